package lang

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/teamchong/codesift/core"
)

// ParserPool holds one parser per language. Parsers are created on first
// use and reset (not destroyed) after every parse so repeated parses do not
// churn the allocator. A pool is single-threaded; concurrent hosts create
// one pool (one engine) per worker.
type ParserPool struct {
	parsers [4]*sitter.Parser
}

// Parse parses source with the language's cached parser. The returned tree
// must be closed by the owner.
func (p *ParserPool) Parse(l Language, source []byte) (*sitter.Tree, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("unknown language tag %d", l)
	}
	parser := p.parsers[l]
	if parser == nil {
		parser = sitter.NewParser()
		parser.SetLanguage(l.Sitter())
		p.parsers[l] = parser
	}

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	parser.Reset()
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, fmt.Errorf("parser returned no tree")
	}
	return tree, nil
}

// Close releases every cached parser.
func (p *ParserPool) Close() {
	for i, parser := range p.parsers {
		if parser != nil {
			parser.Close()
			p.parsers[i] = nil
		}
	}
}

// NodeRange converts a node's byte and point extents to a core.Range.
func NodeRange(n *sitter.Node) core.Range {
	return core.Range{
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		Start:     core.Point{Row: n.StartPoint().Row, Col: n.StartPoint().Column},
		End:       core.Point{Row: n.EndPoint().Row, Col: n.EndPoint().Column},
	}
}

// DescendantForByteRange descends to the smallest node covering
// [start, end). When namedOnly is set, only named children are considered
// on the way down. The binding exposes point-range descendant lookup only,
// so the descent is done here.
func DescendantForByteRange(root *sitter.Node, start, end uint32, namedOnly bool) *sitter.Node {
	if root == nil || root.StartByte() > start || root.EndByte() < end {
		return nil
	}
	node := root
	for {
		var next *sitter.Node
		count := int(node.ChildCount())
		if namedOnly {
			count = int(node.NamedChildCount())
		}
		for i := 0; i < count; i++ {
			var child *sitter.Node
			if namedOnly {
				child = node.NamedChild(i)
			} else {
				child = node.Child(i)
			}
			if child == nil {
				continue
			}
			if child.StartByte() <= start && child.EndByte() >= end {
				next = child
				break
			}
		}
		if next == nil {
			return node
		}
		node = next
	}
}

// ExactNodeForByteRange locates the node covering exactly [start, end).
// Returns nil when the smallest covering node is an ancestor with a wider
// span.
func ExactNodeForByteRange(root *sitter.Node, start, end uint32) *sitter.Node {
	node := DescendantForByteRange(root, start, end, true)
	if node == nil || node.StartByte() != start || node.EndByte() != end {
		return nil
	}
	return node
}
