package core

import (
	"fmt"
	"strings"
	"testing"
)

func span(start, end uint32) Range {
	return Range{StartByte: start, EndByte: end}
}

func TestBindingsUnification(t *testing.T) {
	var b Bindings

	if !b.Bind("X", "a", span(0, 1)) {
		t.Fatal("first bind failed")
	}
	if !b.Bind("X", "a", span(5, 6)) {
		t.Error("rebind with equal text should succeed")
	}
	if b.Bind("X", "b", span(5, 6)) {
		t.Error("rebind with different text should fail")
	}
	if b.Len() != 1 {
		t.Errorf("expected 1 binding, got %d", b.Len())
	}
}

func TestBindingsCapacity(t *testing.T) {
	var b Bindings
	for i := 0; i < MaxBindings; i++ {
		if !b.Bind(fmt.Sprintf("V%d", i), "x", span(0, 1)) {
			t.Fatalf("bind %d failed below capacity", i)
		}
	}
	if b.Bind("OVERFLOW", "x", span(0, 1)) {
		t.Error("bind past MaxBindings should fail")
	}
	if b.Len() != MaxBindings {
		t.Errorf("expected %d bindings, got %d", MaxBindings, b.Len())
	}
}

func TestBindingsTextTooLong(t *testing.T) {
	var b Bindings
	long := strings.Repeat("a", MaxBindingText+1)
	if b.Bind("X", long, span(0, uint32(len(long)))) {
		t.Error("binding text over MaxBindingText should be rejected, not truncated")
	}
	if b.Len() != 0 {
		t.Errorf("expected 0 bindings, got %d", b.Len())
	}
}

func TestBindingsCloneIsIndependent(t *testing.T) {
	var b Bindings
	b.Bind("X", "a", span(0, 1))

	clone := b
	clone.Bind("Y", "b", span(2, 3))

	if b.Len() != 1 {
		t.Errorf("original mutated by clone: %d bindings", b.Len())
	}
	if clone.Len() != 2 {
		t.Errorf("clone has %d bindings, want 2", clone.Len())
	}
}

func TestMatchListDedup(t *testing.T) {
	var l MatchList
	l.AddUnique(Match{Range: span(0, 5)})
	l.AddUnique(Match{Range: span(0, 5)})
	l.AddUnique(Match{Range: span(0, 6)})

	if l.Len() != 2 {
		t.Errorf("expected 2 unique matches, got %d", l.Len())
	}
}

func TestMatchListCapacityClips(t *testing.T) {
	var l MatchList
	for i := uint32(0); i < MaxMatches+10; i++ {
		l.Add(Match{Range: span(i, i + 1)})
	}
	if l.Len() != MaxMatches {
		t.Errorf("expected clip at %d, got %d", MaxMatches, l.Len())
	}
	if !l.Full() {
		t.Error("list should report full")
	}
}

func TestRangePredicates(t *testing.T) {
	outer := span(0, 10)
	inner := span(2, 8)
	disjoint := span(20, 30)

	if !outer.Contains(inner) {
		t.Error("outer should contain inner")
	}
	if inner.Contains(outer) {
		t.Error("inner should not contain outer")
	}
	if !outer.Contains(outer) {
		t.Error("containment is reflexive")
	}
	if !outer.Overlaps(inner) || !inner.Overlaps(outer) {
		t.Error("overlap should be symmetric")
	}
	if outer.Overlaps(disjoint) {
		t.Error("disjoint ranges should not overlap")
	}
	if !outer.SameSpan(span(0, 10)) {
		t.Error("identical spans should compare equal")
	}
}
