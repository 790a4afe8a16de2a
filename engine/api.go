package engine

import (
	"github.com/teamchong/codesift/codec"
	"github.com/teamchong/codesift/core"
	"github.com/teamchong/codesift/lang"
	"github.com/teamchong/codesift/matcher"
	"github.com/teamchong/codesift/rulevm"
)

// finish serializes the staging list into the binary result buffer and
// returns the byte count the host should read.
func (e *Engine) finish() int {
	e.resultLen = codec.WriteMatches(e.result[:], &e.last)
	return e.resultLen
}

func (e *Engine) fail() int {
	e.last.Reset()
	e.resultLen = codec.WriteMatches(e.result[:], &e.last)
	return e.resultLen
}

// StructMatch is the one-shot entry point: parse pattern and source, run
// the structural search, and serialize the result.
func (e *Engine) StructMatch(pattern, source []byte, l lang.Language) int {
	patHandle := e.CompilePattern(pattern, l)
	if patHandle == 0 {
		return e.fail()
	}
	defer e.FreePattern(patHandle)
	return e.MatchPattern(patHandle, source, l)
}

// MatchPattern runs a compiled pattern against raw source bytes.
func (e *Engine) MatchPattern(patHandle uint32, source []byte, l lang.Language) int {
	srcHandle := e.CompileSource(source, l)
	if srcHandle == 0 {
		return e.fail()
	}
	defer e.FreeSource(srcHandle)
	return e.MatchCompiled(patHandle, srcHandle)
}

// MatchCompiled runs a compiled pattern against a compiled source.
func (e *Engine) MatchCompiled(patHandle, srcHandle uint32) int {
	p := e.pattern(patHandle)
	s := e.compiledSource(srcHandle)
	if p == nil || s == nil {
		return e.fail()
	}
	e.last.Reset()
	matcher.Search(p.body, p.source, s.Root(), s.source, &e.last)
	return e.finish()
}

// MatchInRange runs a compiled pattern against the part of a compiled
// source inside [start, end).
func (e *Engine) MatchInRange(patHandle, srcHandle uint32, start, end uint32) int {
	p := e.pattern(patHandle)
	s := e.compiledSource(srcHandle)
	if p == nil || s == nil {
		return e.fail()
	}
	e.last.Reset()
	matcher.SearchInRange(p.body, p.source, s.Root(), s.source, start, end, &e.last)
	return e.finish()
}

// KindMatch collects nodes of one kind from a compiled source. Comment
// kinds use the total-child walk that reaches extra nodes.
func (e *Engine) KindMatch(srcHandle uint32, kind string) int {
	s := e.compiledSource(srcHandle)
	if s == nil {
		return e.fail()
	}
	e.last.Reset()
	if kind == "comment" || kind == "html_comment" {
		matcher.CollectByKindAll(s.Root(), kind, &e.last)
	} else {
		matcher.CollectByKind(s.Root(), kind, &e.last)
	}
	return e.finish()
}

// MatchPreceding collects the named siblings before the node covering
// exactly [start, end).
func (e *Engine) MatchPreceding(srcHandle uint32, start, end uint32) int {
	s := e.compiledSource(srcHandle)
	if s == nil {
		return e.fail()
	}
	e.last.Reset()
	matcher.CollectPrecedingSiblings(s.Root(), start, end, &e.last)
	return e.finish()
}

// MatchFollowing collects the named siblings after the node covering
// exactly [start, end).
func (e *Engine) MatchFollowing(srcHandle uint32, start, end uint32) int {
	s := e.compiledSource(srcHandle)
	if s == nil {
		return e.fail()
	}
	e.last.Reset()
	matcher.CollectFollowingSiblings(s.Root(), start, end, &e.last)
	return e.finish()
}

// StoreMatches snapshots the staging list into a match slot so the next
// operation cannot clobber it. Returns the handle, 0 when no slot is free.
func (e *Engine) StoreMatches() uint32 {
	for i := range e.matches {
		if e.matches[i] == nil {
			stored := &core.MatchList{}
			stored.CopyFrom(&e.last)
			e.matches[i] = stored
			return uint32(i + 1)
		}
	}
	return 0
}

// FilterInside keeps staged matches inside some stored reference range.
func (e *Engine) FilterInside(refHandle uint32) int {
	refs := e.matchSlot(refHandle)
	if refs == nil {
		return e.fail()
	}
	e.last.FilterInside(refs)
	return e.finish()
}

// FilterNotInside keeps staged matches inside no stored reference range.
func (e *Engine) FilterNotInside(refHandle uint32) int {
	refs := e.matchSlot(refHandle)
	if refs == nil {
		return e.fail()
	}
	e.last.FilterNotInside(refs)
	return e.finish()
}

// FilterNot drops staged matches whose exact range appears in the stored
// reference list.
func (e *Engine) FilterNot(refHandle uint32) int {
	refs := e.matchSlot(refHandle)
	if refs == nil {
		return e.fail()
	}
	e.last.Exclude(refs)
	return e.finish()
}

// IntersectMatches keeps staged matches overlapping some stored reference
// range.
func (e *Engine) IntersectMatches(refHandle uint32) int {
	refs := e.matchSlot(refHandle)
	if refs == nil {
		return e.fail()
	}
	e.last.Intersect(refs)
	return e.finish()
}

// LoadRuleset decodes bytecode into a ruleset slot and compiles every
// pattern rule node. Returns the handle, 0 on any failure.
func (e *Engine) LoadRuleset(data []byte) uint32 {
	slot := -1
	for i := range e.rulesets {
		if e.rulesets[i] == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0
	}

	rs, err := rulevm.Decode(data)
	if err != nil {
		return 0
	}

	lr := &loadedRuleset{rs: rs}
	if !e.compileRulesetPatterns(lr) {
		for _, h := range lr.patternSlots {
			e.FreePattern(h)
		}
		return 0
	}
	e.rulesets[slot] = lr
	return uint32(slot + 1)
}

// compileRulesetPatterns parses each pattern node with its rule's language,
// falling back on the first rule's language when the tag is invalid.
func (e *Engine) compileRulesetPatterns(lr *loadedRuleset) bool {
	rs := lr.rs
	fallback := lang.Language(0)
	if rs.RuleCount() > 0 {
		fallback = rs.Rule(0).Language
	}

	for r := 0; r < rs.RuleCount(); r++ {
		rule := rs.Rule(r)
		ruleLang := rule.Language
		if !ruleLang.Valid() {
			ruleLang = fallback
		}
		if !ruleLang.Valid() {
			return false
		}
		if !e.compilePatternNodes(lr, rs.Rule(r).Root, ruleLang) {
			return false
		}
	}
	return true
}

func (e *Engine) compilePatternNodes(lr *loadedRuleset, idx int16, l lang.Language) bool {
	if idx < 0 || int(idx) >= lr.rs.NodeCount() {
		return true
	}
	n := lr.rs.Node(int(idx))
	switch n.Tag {
	case rulevm.TagPattern:
		if n.PatternSlot != 0 {
			return true
		}
		handle := e.CompilePattern([]byte(n.Str), l)
		if handle == 0 {
			return false
		}
		n.PatternSlot = handle
		lr.patternSlots = append(lr.patternSlots, handle)
	case rulevm.TagAll, rulevm.TagAny:
		for _, ci := range lr.rs.Children(n) {
			if !e.compilePatternNodes(lr, ci, l) {
				return false
			}
		}
	case rulevm.TagNot, rulevm.TagInside, rulevm.TagHas, rulevm.TagFollows, rulevm.TagPrecedes:
		if !e.compilePatternNodes(lr, n.Child, l) {
			return false
		}
		if n.StopByNode >= 0 {
			if !e.compilePatternNodes(lr, n.StopByNode, l) {
				return false
			}
		}
	}
	return true
}

// ApplyRuleset evaluates every rule against a compiled source and
// serializes the findings JSON. Returns the JSON length, 0 on failure.
func (e *Engine) ApplyRuleset(rsHandle, srcHandle uint32) int {
	findings := e.Findings(rsHandle, srcHandle)
	if findings == nil {
		e.rsResultLen = 0
		return 0
	}
	e.rsResultLen = codec.WriteFindings(e.rsResult[:], findings)
	return e.rsResultLen
}

// Findings evaluates every rule against a compiled source, returning the
// rules with at least one surviving match. Returns nil on bad handles.
func (e *Engine) Findings(rsHandle, srcHandle uint32) []rulevm.Finding {
	lr := e.ruleset(rsHandle)
	s := e.compiledSource(srcHandle)
	if lr == nil || s == nil {
		return nil
	}

	eval := rulevm.NewEvaluator(lr.rs, e, s.Root(), s.source)
	findings := make([]rulevm.Finding, 0, lr.rs.RuleCount())
	for i := 0; i < lr.rs.RuleCount(); i++ {
		rule := lr.rs.Rule(i)
		var out core.MatchList
		eval.EvalRule(rule, &out)
		if out.Len() == 0 {
			continue
		}
		f := rulevm.Finding{Rule: rule}
		f.Matches.CopyFrom(&out)
		findings = append(findings, f)
	}
	return findings
}

// Ruleset exposes a loaded ruleset, for consumers that inspect transforms.
func (e *Engine) Ruleset(handle uint32) *rulevm.Ruleset {
	lr := e.ruleset(handle)
	if lr == nil {
		return nil
	}
	return lr.rs
}
