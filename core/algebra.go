package core

// Match-set algebra. Every operation mutates the destination list in place
// so no fixed-capacity list is ever returned by value. Comparisons touch
// only byte ranges; bindings ride along with the surviving element.

// Filter compacts the list down to the elements satisfying pred.
func (l *MatchList) Filter(pred func(m *Match) bool) {
	out := 0
	for i := 0; i < l.count; i++ {
		if pred(&l.items[i]) {
			if out != i {
				l.items[out] = l.items[i]
			}
			out++
		}
	}
	l.count = out
}

// anyRef reports whether any reference match satisfies pred against m.
func anyRef(refs *MatchList, m *Match, pred func(m, r *Match) bool) bool {
	for i := 0; i < refs.count; i++ {
		if pred(m, &refs.items[i]) {
			return true
		}
	}
	return false
}

func insidePred(m, r *Match) bool   { return r.Range.Contains(m.Range) }
func hasPred(m, r *Match) bool      { return m.Range.Contains(r.Range) }
func followsPred(m, r *Match) bool  { return r.Range.EndByte <= m.Range.StartByte }
func precedesPred(m, r *Match) bool { return r.Range.StartByte >= m.Range.EndByte }
func overlapPred(m, r *Match) bool  { return m.Range.Overlaps(r.Range) }

// FilterInside keeps matches contained in some reference range.
func (l *MatchList) FilterInside(refs *MatchList) {
	l.Filter(func(m *Match) bool { return anyRef(refs, m, insidePred) })
}

// FilterNotInside keeps matches contained in no reference range.
func (l *MatchList) FilterNotInside(refs *MatchList) {
	l.Filter(func(m *Match) bool { return !anyRef(refs, m, insidePred) })
}

// FilterHas keeps matches that contain some reference range.
func (l *MatchList) FilterHas(refs *MatchList) {
	l.Filter(func(m *Match) bool { return anyRef(refs, m, hasPred) })
}

// FilterNotHas keeps matches that contain no reference range.
func (l *MatchList) FilterNotHas(refs *MatchList) {
	l.Filter(func(m *Match) bool { return !anyRef(refs, m, hasPred) })
}

// FilterFollows keeps matches strictly after some reference range.
func (l *MatchList) FilterFollows(refs *MatchList) {
	l.Filter(func(m *Match) bool { return anyRef(refs, m, followsPred) })
}

// FilterNotFollows keeps matches strictly after no reference range.
func (l *MatchList) FilterNotFollows(refs *MatchList) {
	l.Filter(func(m *Match) bool { return !anyRef(refs, m, followsPred) })
}

// FilterPrecedes keeps matches strictly before some reference range.
func (l *MatchList) FilterPrecedes(refs *MatchList) {
	l.Filter(func(m *Match) bool { return anyRef(refs, m, precedesPred) })
}

// FilterNotPrecedes keeps matches strictly before no reference range.
func (l *MatchList) FilterNotPrecedes(refs *MatchList) {
	l.Filter(func(m *Match) bool { return !anyRef(refs, m, precedesPred) })
}

// Exclude drops matches whose byte span appears exactly in refs.
func (l *MatchList) Exclude(refs *MatchList) {
	l.Filter(func(m *Match) bool { return !refs.HasSpan(m.Range) })
}

// Intersect keeps matches that overlap at least one reference range.
func (l *MatchList) Intersect(refs *MatchList) {
	l.Filter(func(m *Match) bool { return anyRef(refs, m, overlapPred) })
}

// Union appends every reference match whose byte span is not already
// present, truncating silently at capacity.
func (l *MatchList) Union(refs *MatchList) {
	for i := 0; i < refs.count; i++ {
		l.AddUnique(refs.items[i])
	}
}
