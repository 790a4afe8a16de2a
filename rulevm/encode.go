package rulevm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/teamchong/codesift/lang"
)

// NodeSpec is the tree form of a rule body used by encoders (the JSON rule
// loader and tests). Exactly one of the payload groups applies per tag.
type NodeSpec struct {
	Tag Tag

	Str string // pattern / kind / regex
	Num uint32 // nth_child index or matches rule index

	Children []NodeSpec // all / any
	Child    *NodeSpec  // not / inside / has / follows / precedes

	StopBy     StopByKind
	StopByRule *NodeSpec // boundary when StopBy == StopByRule
}

// ConstraintSpec describes one metavariable constraint for encoding.
type ConstraintSpec struct {
	Metavar string
	Kind    ConstraintKind
	Pattern string
}

// TransformSpec describes one transform for encoding.
type TransformSpec struct {
	Source string
	Op     TransformOp
	Arg    string
}

// RuleSpec is the tree form of one rule.
type RuleSpec struct {
	ID          string
	Severity    Severity
	Message     string
	Language    lang.Language
	Constraints []ConstraintSpec
	Transforms  []TransformSpec
	Fix         *string
	Body        NodeSpec
}

// Encode serializes rules into the bytecode wire format. The output decodes
// back with Decode; capacity checking is left to the decoder.
func Encode(version uint16, rules []RuleSpec) ([]byte, error) {
	if len(rules) > math.MaxUint16 {
		return nil, fmt.Errorf("too many rules: %d", len(rules))
	}

	var buf bytes.Buffer
	buf.WriteByte(opRuleset)
	writeU16(&buf, version)
	writeU16(&buf, uint16(len(rules)))

	for i := range rules {
		if err := encodeRule(&buf, &rules[i]); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rules[i].ID, err)
		}
	}
	return buf.Bytes(), nil
}

func encodeRule(buf *bytes.Buffer, r *RuleSpec) error {
	buf.WriteByte(opRule)
	if err := writeStr(buf, r.ID); err != nil {
		return err
	}
	buf.WriteByte(byte(r.Severity))
	if err := writeStr(buf, r.Message); err != nil {
		return err
	}
	buf.WriteByte(byte(r.Language))

	writeU16(buf, uint16(len(r.Constraints)))
	for _, c := range r.Constraints {
		buf.WriteByte(opConstraint)
		if err := writeStr(buf, c.Metavar); err != nil {
			return err
		}
		buf.WriteByte(byte(c.Kind))
		if err := writeStr(buf, c.Pattern); err != nil {
			return err
		}
	}

	writeU16(buf, uint16(len(r.Transforms)))
	for _, t := range r.Transforms {
		buf.WriteByte(opTransform)
		if err := writeStr(buf, t.Source); err != nil {
			return err
		}
		buf.WriteByte(byte(t.Op))
		if err := writeStr(buf, t.Arg); err != nil {
			return err
		}
	}

	if r.Fix != nil {
		buf.WriteByte(opFix)
		if err := writeStr(buf, *r.Fix); err != nil {
			return err
		}
	}

	return encodeNode(buf, &r.Body)
}

func encodeNode(buf *bytes.Buffer, n *NodeSpec) error {
	switch n.Tag {
	case TagPattern, TagKind, TagRegex:
		switch n.Tag {
		case TagPattern:
			buf.WriteByte(opPattern)
		case TagKind:
			buf.WriteByte(opKind)
		case TagRegex:
			buf.WriteByte(opRegex)
		}
		return writeStr(buf, n.Str)

	case TagNthChild:
		buf.WriteByte(opNthChild)
		writeU32(buf, n.Num)
		return nil

	case TagAll, TagAny:
		if n.Tag == TagAll {
			buf.WriteByte(opAll)
		} else {
			buf.WriteByte(opAny)
		}
		writeU16(buf, uint16(len(n.Children)))
		for i := range n.Children {
			if err := encodeNode(buf, &n.Children[i]); err != nil {
				return err
			}
		}
		return nil

	case TagNot:
		buf.WriteByte(opNot)
		if n.Child == nil {
			return fmt.Errorf("not node without child")
		}
		return encodeNode(buf, n.Child)

	case TagInside, TagHas, TagFollows, TagPrecedes:
		switch n.Tag {
		case TagInside:
			buf.WriteByte(opInside)
		case TagHas:
			buf.WriteByte(opHas)
		case TagFollows:
			buf.WriteByte(opFollows)
		case TagPrecedes:
			buf.WriteByte(opPrecedes)
		}
		switch n.StopBy {
		case StopByEnd:
			buf.WriteByte(opStopByEnd)
		case StopByNeighbor:
			buf.WriteByte(opStopByNeighbor)
		case StopByRule:
			buf.WriteByte(opStopByRule)
			if n.StopByRule == nil {
				return fmt.Errorf("stop-by rule without boundary node")
			}
			if err := encodeNode(buf, n.StopByRule); err != nil {
				return err
			}
		}
		if n.Child == nil {
			return fmt.Errorf("relational node without child")
		}
		return encodeNode(buf, n.Child)

	case TagMatches:
		buf.WriteByte(opMatches)
		writeU16(buf, uint16(n.Num))
		return nil

	default:
		return fmt.Errorf("unknown node tag %d", n.Tag)
	}
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeStr(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("string payload of %d bytes exceeds u16 length", len(s))
	}
	writeU16(buf, uint16(len(s)))
	buf.WriteString(s)
	return nil
}
