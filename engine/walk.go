package engine

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/teamchong/codesift/codec"
	"github.com/teamchong/codesift/core"
	"github.com/teamchong/codesift/lang"
	"github.com/teamchong/codesift/matcher"
)

// locate resolves a walk target. isRoot short-circuits to the cached root,
// which matters when the root and its sole named child share a byte range.
func (e *Engine) locate(srcHandle uint32, start, end uint32, isRoot bool) (*CompiledSource, *sitter.Node) {
	s := e.compiledSource(srcHandle)
	if s == nil {
		return nil, nil
	}
	if isRoot {
		return s, s.Root()
	}
	return s, lang.ExactNodeForByteRange(s.Root(), start, end)
}

func (e *Engine) writeInfo(node *sitter.Node) int {
	e.resultLen = codec.WriteNodeInfo(e.result[:], codec.NodeInfoFrom(node))
	return e.resultLen
}

func (e *Engine) writeInfos(infos []*codec.NodeInfo) int {
	e.resultLen = codec.WriteNodeInfos(e.result[:], infos)
	return e.resultLen
}

// NodeRoot serializes the root node of a compiled source.
func (e *Engine) NodeRoot(srcHandle uint32) int {
	s := e.compiledSource(srcHandle)
	if s == nil {
		return e.writeInfo(nil)
	}
	return e.writeInfo(s.Root())
}

// NodeInfo serializes the node covering exactly [start, end).
func (e *Engine) NodeInfo(srcHandle uint32, start, end uint32, isRoot bool) int {
	_, node := e.locate(srcHandle, start, end, isRoot)
	return e.writeInfo(node)
}

// NodeChildren serializes every child of the target node in source order.
func (e *Engine) NodeChildren(srcHandle uint32, start, end uint32, isRoot bool) int {
	_, node := e.locate(srcHandle, start, end, isRoot)
	if node == nil {
		return e.writeInfos(nil)
	}
	infos := make([]*codec.NodeInfo, 0, node.ChildCount())
	for i := 0; i < int(node.ChildCount()); i++ {
		infos = append(infos, codec.NodeInfoFrom(node.Child(i)))
	}
	return e.writeInfos(infos)
}

// NodeNamedChildren serializes the named children of the target node.
func (e *Engine) NodeNamedChildren(srcHandle uint32, start, end uint32, isRoot bool) int {
	_, node := e.locate(srcHandle, start, end, isRoot)
	if node == nil {
		return e.writeInfos(nil)
	}
	infos := make([]*codec.NodeInfo, 0, node.NamedChildCount())
	for i := 0; i < int(node.NamedChildCount()); i++ {
		infos = append(infos, codec.NodeInfoFrom(node.NamedChild(i)))
	}
	return e.writeInfos(infos)
}

// NodeParent serializes the target node's parent, or null at the root.
func (e *Engine) NodeParent(srcHandle uint32, start, end uint32, isRoot bool) int {
	_, node := e.locate(srcHandle, start, end, isRoot)
	if node == nil {
		return e.writeInfo(nil)
	}
	return e.writeInfo(node.Parent())
}

// NodeNext serializes the next named sibling, or null.
func (e *Engine) NodeNext(srcHandle uint32, start, end uint32, isRoot bool) int {
	_, node := e.locate(srcHandle, start, end, isRoot)
	if node == nil {
		return e.writeInfo(nil)
	}
	return e.writeInfo(node.NextNamedSibling())
}

// NodePrev serializes the previous named sibling, or null.
func (e *Engine) NodePrev(srcHandle uint32, start, end uint32, isRoot bool) int {
	_, node := e.locate(srcHandle, start, end, isRoot)
	if node == nil {
		return e.writeInfo(nil)
	}
	return e.writeInfo(node.PrevNamedSibling())
}

// NodeFieldChild serializes the child under a grammar field name, or null.
func (e *Engine) NodeFieldChild(srcHandle uint32, start, end uint32, isRoot bool, field string) int {
	_, node := e.locate(srcHandle, start, end, isRoot)
	if node == nil {
		return e.writeInfo(nil)
	}
	return e.writeInfo(node.ChildByFieldName(field))
}

// patternFor compiles pattern bytes or reuses an identical compiled slot.
func (e *Engine) patternFor(pattern []byte, l lang.Language) uint32 {
	if h := e.FindPattern(pattern, l); h != 0 {
		return h
	}
	return e.CompilePattern(pattern, l)
}

// subtreeSearch runs a pattern over the subtree at [start, end) and leaves
// the result in the staging list.
func (e *Engine) subtreeSearch(srcHandle uint32, start, end uint32, isRoot bool, pattern string) (*CompiledSource, *sitter.Node, bool) {
	s, node := e.locate(srcHandle, start, end, isRoot)
	if node == nil {
		return nil, nil, false
	}
	h := e.patternFor([]byte(pattern), s.language)
	if h == 0 {
		return nil, nil, false
	}
	p := e.pattern(h)
	e.last.Reset()
	matcher.SearchInRange(p.body, p.source, node, s.source, node.StartByte(), node.EndByte(), &e.last)
	return s, node, true
}

// Find serializes the first pattern match inside the subtree as a node, or
// null when the pattern does not occur.
func (e *Engine) Find(srcHandle uint32, start, end uint32, isRoot bool, pattern string) int {
	s, _, ok := e.subtreeSearch(srcHandle, start, end, isRoot, pattern)
	if !ok || e.last.Len() == 0 {
		return e.writeInfo(nil)
	}
	m := e.last.At(0)
	return e.writeInfo(lang.ExactNodeForByteRange(s.Root(), m.Range.StartByte, m.Range.EndByte))
}

// FindAll serializes every pattern match inside the subtree as nodes,
// deduplicated by byte range.
func (e *Engine) FindAll(srcHandle uint32, start, end uint32, isRoot bool, pattern string) int {
	s, _, ok := e.subtreeSearch(srcHandle, start, end, isRoot, pattern)
	if !ok {
		return e.writeInfos(nil)
	}
	infos := make([]*codec.NodeInfo, 0, e.last.Len())
	for i := 0; i < e.last.Len(); i++ {
		m := e.last.At(i)
		node := lang.ExactNodeForByteRange(s.Root(), m.Range.StartByte, m.Range.EndByte)
		if node != nil {
			infos = append(infos, codec.NodeInfoFrom(node))
		}
	}
	return e.writeInfos(infos)
}

// NodeMatches reports whether the subtree's own range appears in the
// pattern's matches.
func (e *Engine) NodeMatches(srcHandle uint32, start, end uint32, isRoot bool, pattern string) bool {
	_, node, ok := e.subtreeSearch(srcHandle, start, end, isRoot, pattern)
	if !ok {
		return false
	}
	return e.last.HasSpan(core.Range{StartByte: node.StartByte(), EndByte: node.EndByte()})
}
