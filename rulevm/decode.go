package rulevm

import (
	"encoding/binary"
	"fmt"
	"regexp"

	"github.com/teamchong/codesift/lang"
)

// Bytecode opcodes. All multi-byte integers are little-endian; strings are
// u16 length + raw bytes.
const (
	opPattern  = 0x01
	opKind     = 0x02
	opRegex    = 0x03
	opNthChild = 0x04

	opAll      = 0x10
	opAny      = 0x11
	opNot      = 0x12
	opInside   = 0x13
	opHas      = 0x14
	opFollows  = 0x15
	opPrecedes = 0x16
	opMatches  = 0x17

	opFix        = 0x20
	opConstraint = 0x30
	opTransform  = 0x31

	opStopByEnd      = 0x40
	opStopByNeighbor = 0x41
	opStopByRule     = 0x42

	opRule    = 0x50
	opRuleset = 0xFF
)

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) u8() (byte, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("bytecode truncated at offset %d", r.off)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) peek() (byte, bool) {
	if r.remaining() < 1 {
		return 0, false
	}
	return r.buf[r.off], true
}

func (r *reader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, fmt.Errorf("bytecode truncated at offset %d", r.off)
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("bytecode truncated at offset %d", r.off)
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// str returns the next length-prefixed string. The bytes are copied out of
// the buffer; the string does not alias it.
func (r *reader) str() (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	if r.remaining() < int(n) {
		return "", fmt.Errorf("string of %d bytes truncated at offset %d", n, r.off)
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

type decoder struct {
	r  reader
	rs *Ruleset
}

// Decode parses a ruleset bytecode stream. The input is copied; the
// returned ruleset owns its buffer. Any truncation, unknown opcode, or
// capacity overflow fails the whole decode.
func Decode(data []byte) (*Ruleset, error) {
	owned := make([]byte, len(data))
	copy(owned, data)

	d := &decoder{
		r:  reader{buf: owned},
		rs: &Ruleset{bytecode: owned},
	}

	op, err := d.r.u8()
	if err != nil {
		return nil, err
	}
	if op != opRuleset {
		return nil, fmt.Errorf("expected ruleset header 0xFF, got 0x%02X", op)
	}
	if d.rs.Version, err = d.r.u16(); err != nil {
		return nil, err
	}
	count, err := d.r.u16()
	if err != nil {
		return nil, err
	}
	if int(count) > MaxRules {
		return nil, fmt.Errorf("ruleset has %d rules, limit %d", count, MaxRules)
	}

	for i := 0; i < int(count); i++ {
		if err := d.decodeRule(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	if d.r.remaining() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after last rule", d.r.remaining())
	}
	return d.rs, nil
}

func (d *decoder) decodeRule() error {
	op, err := d.r.u8()
	if err != nil {
		return err
	}
	if op != opRule {
		return fmt.Errorf("expected rule opcode 0x50, got 0x%02X", op)
	}

	rule := Rule{Root: -1}
	if rule.ID, err = d.r.str(); err != nil {
		return err
	}
	sev, err := d.r.u8()
	if err != nil {
		return err
	}
	if sev > uint8(SeverityHint) {
		return fmt.Errorf("invalid severity %d", sev)
	}
	rule.Severity = Severity(sev)
	if rule.Message, err = d.r.str(); err != nil {
		return err
	}
	langByte, err := d.r.u8()
	if err != nil {
		return err
	}
	rule.Language = lang.Language(langByte)

	conCount, err := d.r.u16()
	if err != nil {
		return err
	}
	rule.ConstraintStart = uint16(d.rs.constraintCount)
	rule.ConstraintCount = conCount
	for i := 0; i < int(conCount); i++ {
		if err := d.decodeConstraint(); err != nil {
			return err
		}
	}

	trCount, err := d.r.u16()
	if err != nil {
		return err
	}
	rule.TransformStart = uint16(d.rs.transformCount)
	rule.TransformCount = trCount
	for i := 0; i < int(trCount); i++ {
		if err := d.decodeTransform(); err != nil {
			return err
		}
	}

	if b, ok := d.r.peek(); ok && b == opFix {
		d.r.off++
		if rule.Fix, err = d.r.str(); err != nil {
			return err
		}
		rule.HasFix = true
	}

	root, err := d.decodeNode()
	if err != nil {
		return err
	}
	rule.Root = root

	if d.rs.ruleCount >= MaxRules {
		return fmt.Errorf("rule count exceeds %d", MaxRules)
	}
	d.rs.rules[d.rs.ruleCount] = rule
	d.rs.ruleCount++
	return nil
}

func (d *decoder) decodeConstraint() error {
	op, err := d.r.u8()
	if err != nil {
		return err
	}
	if op != opConstraint {
		return fmt.Errorf("expected constraint opcode 0x30, got 0x%02X", op)
	}
	if d.rs.constraintCount >= MaxConstraints {
		return fmt.Errorf("constraint count exceeds %d", MaxConstraints)
	}

	c := Constraint{}
	if c.Metavar, err = d.r.str(); err != nil {
		return err
	}
	kind, err := d.r.u8()
	if err != nil {
		return err
	}
	if kind > uint8(ConstraintNotRegex) {
		return fmt.Errorf("invalid constraint kind %d", kind)
	}
	c.Kind = ConstraintKind(kind)
	if c.Pattern, err = d.r.str(); err != nil {
		return err
	}
	// A pattern that fails to compile leaves the constraint inert: its
	// test result is always "not matched".
	c.Regex, _ = regexp.Compile(c.Pattern)

	d.rs.constraints[d.rs.constraintCount] = c
	d.rs.constraintCount++
	return nil
}

func (d *decoder) decodeTransform() error {
	op, err := d.r.u8()
	if err != nil {
		return err
	}
	if op != opTransform {
		return fmt.Errorf("expected transform opcode 0x31, got 0x%02X", op)
	}
	if d.rs.transformCount >= MaxTransforms {
		return fmt.Errorf("transform count exceeds %d", MaxTransforms)
	}

	t := Transform{}
	if t.Source, err = d.r.str(); err != nil {
		return err
	}
	opByte, err := d.r.u8()
	if err != nil {
		return err
	}
	if opByte > uint8(TransformConvert) {
		return fmt.Errorf("invalid transform op %d", opByte)
	}
	t.Op = TransformOp(opByte)
	if t.Arg, err = d.r.str(); err != nil {
		return err
	}

	d.rs.transforms[d.rs.transformCount] = t
	d.rs.transformCount++
	return nil
}

// decodeStopBy consumes one stop-by byte. Any other byte means the default
// (neighbor) and is left for the node that follows.
func (d *decoder) decodeStopBy() (StopByKind, int16, error) {
	b, ok := d.r.peek()
	if !ok {
		return 0, -1, fmt.Errorf("bytecode truncated before stop-by at offset %d", d.r.off)
	}
	switch b {
	case opStopByEnd:
		d.r.off++
		return StopByEnd, -1, nil
	case opStopByNeighbor:
		d.r.off++
		return StopByNeighbor, -1, nil
	case opStopByRule:
		d.r.off++
		idx, err := d.decodeNode()
		if err != nil {
			return 0, -1, err
		}
		return StopByRule, idx, nil
	default:
		return StopByNeighbor, -1, nil
	}
}

func (d *decoder) addNode(n RuleNode) (int16, error) {
	if d.rs.nodeCount >= MaxRuleNodes {
		return -1, fmt.Errorf("rule node count exceeds %d", MaxRuleNodes)
	}
	idx := int16(d.rs.nodeCount)
	d.rs.nodes[idx] = n
	d.rs.nodeCount++
	return idx, nil
}

func (d *decoder) decodeNode() (int16, error) {
	op, err := d.r.u8()
	if err != nil {
		return -1, err
	}

	n := RuleNode{Child: -1, StopByNode: -1}
	switch op {
	case opPattern, opKind, opRegex:
		switch op {
		case opPattern:
			n.Tag = TagPattern
		case opKind:
			n.Tag = TagKind
		case opRegex:
			n.Tag = TagRegex
		}
		if n.Str, err = d.r.str(); err != nil {
			return -1, err
		}
		return d.addNode(n)

	case opNthChild:
		n.Tag = TagNthChild
		if n.Num, err = d.r.u32(); err != nil {
			return -1, err
		}
		return d.addNode(n)

	case opAll, opAny:
		if op == opAll {
			n.Tag = TagAll
		} else {
			n.Tag = TagAny
		}
		count, err := d.r.u16()
		if err != nil {
			return -1, err
		}
		if int(count) > MaxChildren {
			return -1, fmt.Errorf("composite node has %d children, limit %d", count, MaxChildren)
		}
		// Children are decoded first (they may append their own pool
		// windows), then this node's window is appended contiguously.
		var local [MaxChildren]int16
		for i := 0; i < int(count); i++ {
			idx, err := d.decodeNode()
			if err != nil {
				return -1, err
			}
			local[i] = idx
		}
		if d.rs.childCount+int(count) > MaxChildren {
			return -1, fmt.Errorf("children pool exceeds %d", MaxChildren)
		}
		n.ChildStart = uint16(d.rs.childCount)
		n.ChildCount = count
		copy(d.rs.children[d.rs.childCount:], local[:count])
		d.rs.childCount += int(count)
		return d.addNode(n)

	case opNot:
		n.Tag = TagNot
		if n.Child, err = d.decodeNode(); err != nil {
			return -1, err
		}
		return d.addNode(n)

	case opInside, opHas, opFollows, opPrecedes:
		switch op {
		case opInside:
			n.Tag = TagInside
		case opHas:
			n.Tag = TagHas
		case opFollows:
			n.Tag = TagFollows
		case opPrecedes:
			n.Tag = TagPrecedes
		}
		if n.StopBy, n.StopByNode, err = d.decodeStopBy(); err != nil {
			return -1, err
		}
		if n.Child, err = d.decodeNode(); err != nil {
			return -1, err
		}
		return d.addNode(n)

	case opMatches:
		n.Tag = TagMatches
		ref, err := d.r.u16()
		if err != nil {
			return -1, err
		}
		n.Num = uint32(ref)
		return d.addNode(n)

	default:
		return -1, fmt.Errorf("unknown node opcode 0x%02X at offset %d", op, d.r.off-1)
	}
}
