// Package codec serializes match results across the host boundary: a
// little-endian binary layout for raw match lists and JSON for findings and
// node information.
package codec

import (
	"encoding/binary"

	"github.com/teamchong/codesift/core"
)

// MaxOutput is the fixed serialization buffer size.
const MaxOutput = 64 * 1024

// WriteMatches serializes a match list into buf as little-endian u32 words:
//
//	count
//	per match: start_byte end_byte start_row start_col end_row end_col binding_count
//	per binding: name_len name_bytes text_len text_bytes
//
// Returns the number of bytes written, or 0 when the result does not fit;
// the host observes a zero-length result on overflow.
func WriteMatches(buf []byte, matches *core.MatchList) int {
	w := binWriter{buf: buf}
	w.u32(uint32(matches.Len()))
	for i := 0; i < matches.Len(); i++ {
		m := matches.At(i)
		w.u32(m.Range.StartByte)
		w.u32(m.Range.EndByte)
		w.u32(m.Range.Start.Row)
		w.u32(m.Range.Start.Col)
		w.u32(m.Range.End.Row)
		w.u32(m.Range.End.Col)
		w.u32(uint32(m.Bindings.Len()))
		for j := 0; j < m.Bindings.Len(); j++ {
			b := m.Bindings.At(j)
			w.bytes([]byte(b.Name))
			w.bytes([]byte(b.Text))
		}
	}
	if w.overflow {
		return 0
	}
	return w.off
}

type binWriter struct {
	buf      []byte
	off      int
	overflow bool
}

func (w *binWriter) u32(v uint32) {
	if w.overflow || w.off+4 > len(w.buf) {
		w.overflow = true
		return
	}
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *binWriter) bytes(b []byte) {
	w.u32(uint32(len(b)))
	if w.overflow || w.off+len(b) > len(w.buf) {
		w.overflow = true
		return
	}
	copy(w.buf[w.off:], b)
	w.off += len(b)
}
