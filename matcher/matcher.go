// Package matcher implements unification-based structural matching of
// tree-sitter ASTs. A pattern is written in the target language's own
// syntax; $UPPER metavariables bind to source text and ellipsis tokens
// absorb child sequences.
package matcher

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/teamchong/codesift/core"
	"github.com/teamchong/codesift/lang"
)

// maxDepth bounds matchNode/matchChildSeq recursion. Exceeding it reports
// no match for the candidate.
const maxDepth = 100

// session carries the two byte buffers a match walks over.
type session struct {
	patternSrc []byte
	source     []byte
}

// PatternBody unwraps the "program" wrapper around a parsed pattern when it
// has exactly one named child.
func PatternBody(root *sitter.Node) *sitter.Node {
	if root != nil && root.Type() == "program" && root.NamedChildCount() == 1 {
		return root.NamedChild(0)
	}
	return root
}

// MetavarName extracts the metavariable name from a pattern token: one '$'
// followed by at least one of [A-Z0-9_]. Anything else is a literal.
func MetavarName(text string) (string, bool) {
	if len(text) < 2 || text[0] != '$' {
		return "", false
	}
	name := text[1:]
	if !validMetavarChars(name) {
		return "", false
	}
	return name, true
}

// IsEllipsis reports whether a pattern token absorbs a child sequence:
// "...", "$...NAME" or "$$$NAME".
func IsEllipsis(text string) bool {
	if text == "..." {
		return true
	}
	for _, prefix := range []string{"$...", "$$$"} {
		if len(text) >= len(prefix) && text[:len(prefix)] == prefix {
			return validMetavarChars(text[len(prefix):])
		}
	}
	return false
}

func validMetavarChars(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}

// MatchNode tests a single source node against the pattern body, returning
// the bindings on success.
func MatchNode(body *sitter.Node, patternSrc []byte, node *sitter.Node, source []byte) (core.Bindings, bool) {
	ms := &session{patternSrc: patternSrc, source: source}
	var b core.Bindings
	ok := ms.matchNode(body, node, &b, 0)
	return b, ok
}

// Search tests every descendant of root (pre-order, root included) against
// the pattern body and appends hits to out, deduplicated by byte span.
func Search(body *sitter.Node, patternSrc []byte, root *sitter.Node, source []byte, out *core.MatchList) {
	ms := &session{patternSrc: patternSrc, source: source}
	ms.search(body, root, out, nil)
}

// SearchInRange is Search restricted to candidates fully inside
// [start, end); subtrees fully outside the window are pruned.
func SearchInRange(body *sitter.Node, patternSrc []byte, root *sitter.Node, source []byte, start, end uint32, out *core.MatchList) {
	ms := &session{patternSrc: patternSrc, source: source}
	window := [2]uint32{start, end}
	ms.search(body, root, out, &window)
}

func (ms *session) search(body, node *sitter.Node, out *core.MatchList, window *[2]uint32) {
	if node == nil || out.Full() {
		return
	}
	if window != nil && (node.EndByte() <= window[0] || node.StartByte() >= window[1]) {
		return
	}
	if window == nil || (node.StartByte() >= window[0] && node.EndByte() <= window[1]) {
		var b core.Bindings
		if ms.matchNode(body, node, &b, 0) {
			out.AddUnique(core.Match{Range: lang.NodeRange(node), Bindings: b})
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		ms.search(body, node.NamedChild(i), out, window)
	}
}

func (ms *session) matchNode(p, s *sitter.Node, b *core.Bindings, depth int) bool {
	if depth > maxDepth || p == nil || s == nil {
		return false
	}

	ptext := p.Content(ms.patternSrc)
	if name, ok := MetavarName(ptext); ok {
		return b.Bind(name, s.Content(ms.source), lang.NodeRange(s))
	}
	if IsEllipsis(ptext) {
		// Sequence semantics live in matchChildSeq; a bare ellipsis node
		// matches anything.
		return true
	}

	if p.Type() == s.Type() {
		if p.NamedChildCount() == 0 && s.NamedChildCount() == 0 {
			return ptext == s.Content(ms.source)
		}
		return ms.matchChildSeq(p, s, 0, 0, b, depth+1)
	}

	if p.NamedChildCount() == 0 && s.NamedChildCount() == 0 {
		return ptext == s.Content(ms.source)
	}

	// A one-child expression_statement is transparent on either side.
	if p.Type() == "expression_statement" && p.NamedChildCount() == 1 {
		return ms.matchNode(p.NamedChild(0), s, b, depth+1)
	}
	if s.Type() == "expression_statement" && s.NamedChildCount() == 1 {
		return ms.matchNode(p, s.NamedChild(0), b, depth+1)
	}

	return false
}

// matchChildSeq aligns the pattern's named children from index pi against
// the source's named children from index si. Ellipsis children try to
// consume zero source children first, growing on backtrack; bindings are
// restored by value on every failed attempt.
func (ms *session) matchChildSeq(p, s *sitter.Node, pi, si int, b *core.Bindings, depth int) bool {
	if depth > maxDepth {
		return false
	}
	pn := int(p.NamedChildCount())
	sn := int(s.NamedChildCount())

	if pi >= pn {
		return si >= sn
	}

	pc := p.NamedChild(pi)
	if IsEllipsis(pc.Content(ms.patternSrc)) {
		for k := 0; si+k <= sn; k++ {
			saved := *b
			if ms.matchChildSeq(p, s, pi+1, si+k, b, depth+1) {
				return true
			}
			*b = saved
		}
		return false
	}

	if si >= sn {
		return false
	}
	saved := *b
	if ms.matchNode(pc, s.NamedChild(si), b, depth) &&
		ms.matchChildSeq(p, s, pi+1, si+1, b, depth+1) {
		return true
	}
	*b = saved
	return false
}
