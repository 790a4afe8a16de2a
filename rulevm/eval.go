package rulevm

import (
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/teamchong/codesift/core"
	"github.com/teamchong/codesift/matcher"
)

// maxEvalDepth bounds rule-node recursion so a matches() cycle terminates
// with an empty result instead of hanging.
const maxEvalDepth = 32

// Finding is one rule's applied result: the rule plus its surviving
// matches.
type Finding struct {
	Rule    *Rule
	Matches core.MatchList
}

// PatternSource resolves the compiled-pattern handles stashed in pattern
// rule nodes after decode.
type PatternSource interface {
	Pattern(handle uint32) (body *sitter.Node, patternSrc []byte, ok bool)
}

// Evaluator runs decoded rules against one parsed source. All evaluation
// writes into caller-provided lists; nothing is returned by value.
type Evaluator struct {
	rs       *Ruleset
	patterns PatternSource
	root     *sitter.Node
	source   []byte
}

// NewEvaluator binds a ruleset to a source tree.
func NewEvaluator(rs *Ruleset, patterns PatternSource, root *sitter.Node, source []byte) *Evaluator {
	return &Evaluator{rs: rs, patterns: patterns, root: root, source: source}
}

// EvalRule evaluates a rule's body and applies its constraints.
func (e *Evaluator) EvalRule(r *Rule, out *core.MatchList) {
	out.Reset()
	if r.Root < 0 {
		return
	}
	e.evalNode(r.Root, out, 0)
	e.applyConstraints(r, out)
}

// applyConstraints drops matches whose bound metavariables fail a
// constraint test. Constraint names with no corresponding binding do not
// reject the match.
func (e *Evaluator) applyConstraints(r *Rule, out *core.MatchList) {
	constraints := e.rs.Constraints(r)
	if len(constraints) == 0 {
		return
	}
	out.Filter(func(m *core.Match) bool {
		for i := range constraints {
			c := &constraints[i]
			b, bound := m.Bindings.Get(c.Metavar)
			if !bound {
				continue
			}
			matched := c.Regex != nil && c.Regex.MatchString(b.Text)
			if c.Kind == ConstraintRegex && !matched {
				return false
			}
			if c.Kind == ConstraintNotRegex && matched {
				return false
			}
		}
		return true
	})
}

func (e *Evaluator) evalNode(idx int16, out *core.MatchList, depth int) {
	out.Reset()
	if idx < 0 || int(idx) >= e.rs.nodeCount || depth > maxEvalDepth {
		return
	}
	n := &e.rs.nodes[idx]

	switch n.Tag {
	case TagPattern:
		body, patternSrc, ok := e.patterns.Pattern(n.PatternSlot)
		if !ok {
			return
		}
		matcher.Search(body, patternSrc, e.root, e.source, out)

	case TagKind:
		// Comment kinds are extra nodes the named-child walk never visits.
		if n.Str == "comment" || n.Str == "html_comment" {
			matcher.CollectByKindAll(e.root, n.Str, out)
		} else {
			matcher.CollectByKind(e.root, n.Str, out)
		}

	case TagRegex:
		re, err := regexp.Compile(n.Str)
		if err != nil {
			return
		}
		matcher.CollectByRegex(e.root, e.source, re, out)

	case TagNthChild:
		matcher.CollectByNthChild(e.root, n.Num, out)

	case TagAll:
		e.evalAll(n, out, depth)

	case TagAny:
		var tmp core.MatchList
		for _, ci := range e.rs.Children(n) {
			e.evalNode(ci, &tmp, depth+1)
			out.Union(&tmp)
		}

	case TagNot:
		// Meaningful only as a child of all; standalone it produces nothing.

	case TagInside, TagHas, TagFollows, TagPrecedes:
		// Standalone relational operators pass the inner child through.
		e.evalNode(n.Child, out, depth+1)

	case TagMatches:
		if int(n.Num) >= e.rs.ruleCount {
			return
		}
		e.evalNode(e.rs.rules[n.Num].Root, out, depth+1)
	}
}

// evalAll runs the two-phase all evaluation: primary children intersect
// into OUT, then each relational child filters OUT in place.
func (e *Evaluator) evalAll(n *RuleNode, out *core.MatchList, depth int) {
	children := e.rs.Children(n)

	var tmp core.MatchList
	seeded := false
	for _, ci := range children {
		c := &e.rs.nodes[ci]
		if c.Tag.Relational() {
			continue
		}
		e.evalNode(ci, &tmp, depth+1)
		if !seeded {
			out.CopyFrom(&tmp)
			seeded = true
		} else {
			out.Intersect(&tmp)
		}
	}
	if !seeded {
		// No primary children means no candidates; relational filters have
		// nothing to refine.
		out.Reset()
		return
	}

	var refs core.MatchList
	for _, ci := range children {
		c := &e.rs.nodes[ci]
		if !c.Tag.Relational() {
			continue
		}
		switch c.Tag {
		case TagInside:
			e.evalNode(c.Child, &refs, depth+1)
			out.FilterInside(&refs)
		case TagHas:
			e.evalNode(c.Child, &refs, depth+1)
			out.FilterHas(&refs)
		case TagFollows:
			e.evalNode(c.Child, &refs, depth+1)
			out.FilterFollows(&refs)
		case TagPrecedes:
			e.evalNode(c.Child, &refs, depth+1)
			out.FilterPrecedes(&refs)
		case TagNot:
			e.applyNegated(c, out, &refs, depth)
		}
	}
}

// applyNegated dispatches not(inside/has/follows/precedes) to the negative
// filter variant; any other negated node is an exact-range exclusion.
func (e *Evaluator) applyNegated(n *RuleNode, out, refs *core.MatchList, depth int) {
	if n.Child < 0 || int(n.Child) >= e.rs.nodeCount {
		return
	}
	inner := &e.rs.nodes[n.Child]
	switch inner.Tag {
	case TagInside:
		e.evalNode(inner.Child, refs, depth+1)
		out.FilterNotInside(refs)
	case TagHas:
		e.evalNode(inner.Child, refs, depth+1)
		out.FilterNotHas(refs)
	case TagFollows:
		e.evalNode(inner.Child, refs, depth+1)
		out.FilterNotFollows(refs)
	case TagPrecedes:
		e.evalNode(inner.Child, refs, depth+1)
		out.FilterNotPrecedes(refs)
	default:
		e.evalNode(n.Child, refs, depth+1)
		out.Exclude(refs)
	}
}
