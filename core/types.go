package core

// Fixed capacities for the matching hot path. Every list below lives in
// contiguous storage; overflowing a bound drops the candidate instead of
// growing the allocation.
const (
	MaxMatches     = 64
	MaxBindings    = 16
	MaxBindingText = 256
)

// Point is a zero-based (row, column) position in the source.
type Point struct {
	Row uint32 `json:"row"`
	Col uint32 `json:"col"`
}

// Range is a half-open byte span [StartByte, EndByte) with its point bounds.
type Range struct {
	StartByte uint32
	EndByte   uint32
	Start     Point
	End       Point
}

// packed folds the byte span into one word so exact-range comparisons are a
// single integer compare.
func (r Range) packed() uint64 {
	return uint64(r.StartByte)<<32 | uint64(r.EndByte)
}

// SameSpan reports whether two ranges cover exactly the same bytes.
func (r Range) SameSpan(other Range) bool {
	return r.packed() == other.packed()
}

// Contains reports whether r fully covers other.
func (r Range) Contains(other Range) bool {
	return r.StartByte <= other.StartByte && r.EndByte >= other.EndByte
}

// Overlaps reports whether r and other share at least one byte.
func (r Range) Overlaps(other Range) bool {
	return r.StartByte < other.EndByte && other.StartByte < r.EndByte
}

// Binding records a metavariable capture.
type Binding struct {
	Name  string
	Text  string
	Range Range
}

// Bindings is the fixed-capacity capture set for one candidate match. It is
// a plain value: assignment clones it, which is what the matcher relies on
// for backtracking.
type Bindings struct {
	count int
	items [MaxBindings]Binding
}

// Bind records name -> text. A rebind of an existing name succeeds only when
// the text is byte-equal (unification). Returns false when unification
// fails, the set is full, or the text exceeds MaxBindingText.
func (b *Bindings) Bind(name, text string, r Range) bool {
	if len(text) > MaxBindingText {
		return false
	}
	for i := 0; i < b.count; i++ {
		if b.items[i].Name == name {
			return b.items[i].Text == text
		}
	}
	if b.count >= MaxBindings {
		return false
	}
	b.items[b.count] = Binding{Name: name, Text: text, Range: r}
	b.count++
	return true
}

// Get looks up a binding by name.
func (b *Bindings) Get(name string) (Binding, bool) {
	for i := 0; i < b.count; i++ {
		if b.items[i].Name == name {
			return b.items[i], true
		}
	}
	return Binding{}, false
}

// Len returns the number of recorded bindings.
func (b *Bindings) Len() int { return b.count }

// At returns the i-th binding in bind order.
func (b *Bindings) At(i int) Binding { return b.items[i] }

// Match is a source range plus the bindings that produced it.
type Match struct {
	Range    Range
	Bindings Bindings
}

// MatchList is a fixed-capacity match collection. Appends past MaxMatches
// are silently dropped; callers seeing Len() == MaxMatches should treat the
// list as possibly clipped.
type MatchList struct {
	count int
	items [MaxMatches]Match
}

// Reset empties the list.
func (l *MatchList) Reset() { l.count = 0 }

// Len returns the number of stored matches.
func (l *MatchList) Len() int { return l.count }

// Full reports whether the list is at capacity.
func (l *MatchList) Full() bool { return l.count >= MaxMatches }

// At returns a pointer to the i-th match.
func (l *MatchList) At(i int) *Match { return &l.items[i] }

// Add appends a match, dropping it silently at capacity.
func (l *MatchList) Add(m Match) {
	if l.count >= MaxMatches {
		return
	}
	l.items[l.count] = m
	l.count++
}

// AddUnique appends a match unless one with the same byte span exists.
func (l *MatchList) AddUnique(m Match) {
	if l.HasSpan(m.Range) {
		return
	}
	l.Add(m)
}

// HasSpan reports whether a match with exactly this byte span is present.
func (l *MatchList) HasSpan(r Range) bool {
	key := r.packed()
	for i := 0; i < l.count; i++ {
		if l.items[i].Range.packed() == key {
			return true
		}
	}
	return false
}

// CopyFrom replaces the receiver's contents with other's.
func (l *MatchList) CopyFrom(other *MatchList) {
	l.count = other.count
	copy(l.items[:other.count], other.items[:other.count])
}
