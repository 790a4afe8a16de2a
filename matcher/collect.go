package matcher

import (
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/teamchong/codesift/core"
	"github.com/teamchong/codesift/lang"
)

// CollectByKind appends every named node whose kind equals kind, walking
// named children only.
func CollectByKind(root *sitter.Node, kind string, out *core.MatchList) {
	walkNamed(root, func(n *sitter.Node) {
		if n.Type() == kind {
			out.Add(core.Match{Range: lang.NodeRange(n)})
		}
	})
}

// CollectByKindAll is CollectByKind over the total child list, which also
// reaches extra nodes such as comments that the named-child walk skips.
func CollectByKindAll(root *sitter.Node, kind string, out *core.MatchList) {
	walkAll(root, func(n *sitter.Node) {
		if n.Type() == kind {
			out.Add(core.Match{Range: lang.NodeRange(n)})
		}
	})
}

// CollectByNthChild appends nodes that are the index-th named child of
// their parent.
func CollectByNthChild(root *sitter.Node, index uint32, out *core.MatchList) {
	walkNamed(root, func(n *sitter.Node) {
		if index < n.NamedChildCount() {
			if child := n.NamedChild(int(index)); child != nil {
				out.Add(core.Match{Range: lang.NodeRange(child)})
			}
		}
	})
}

// CollectPrecedingSiblings locates the node covering exactly [start, end)
// and appends its preceding named siblings, nearest first.
func CollectPrecedingSiblings(root *sitter.Node, start, end uint32, out *core.MatchList) {
	node := lang.ExactNodeForByteRange(root, start, end)
	if node == nil {
		return
	}
	for sib := node.PrevNamedSibling(); sib != nil; sib = sib.PrevNamedSibling() {
		out.Add(core.Match{Range: lang.NodeRange(sib)})
	}
}

// CollectFollowingSiblings locates the node covering exactly [start, end)
// and appends its following named siblings in source order.
func CollectFollowingSiblings(root *sitter.Node, start, end uint32, out *core.MatchList) {
	node := lang.ExactNodeForByteRange(root, start, end)
	if node == nil {
		return
	}
	for sib := node.NextNamedSibling(); sib != nil; sib = sib.NextNamedSibling() {
		out.Add(core.Match{Range: lang.NodeRange(sib)})
	}
}

// CollectByRegex walks the total child list and appends leaf nodes whose
// text contains a match of re.
func CollectByRegex(root *sitter.Node, source []byte, re *regexp.Regexp, out *core.MatchList) {
	walkAll(root, func(n *sitter.Node) {
		if n.ChildCount() == 0 && re.MatchString(n.Content(source)) {
			out.Add(core.Match{Range: lang.NodeRange(n)})
		}
	})
}

// walkDepthCap bounds tree walks independently of the match recursion cap.
const walkDepthCap = 200

func walkNamed(node *sitter.Node, visit func(*sitter.Node)) {
	walkNamedDepth(node, visit, 0)
}

func walkNamedDepth(node *sitter.Node, visit func(*sitter.Node), depth int) {
	if node == nil || depth > walkDepthCap {
		return
	}
	visit(node)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		walkNamedDepth(node.NamedChild(i), visit, depth+1)
	}
}

func walkAll(node *sitter.Node, visit func(*sitter.Node)) {
	walkAllDepth(node, visit, 0)
}

func walkAllDepth(node *sitter.Node, visit func(*sitter.Node), depth int) {
	if node == nil || depth > walkDepthCap {
		return
	}
	visit(node)
	for i := 0; i < int(node.ChildCount()); i++ {
		walkAllDepth(node.Child(i), visit, depth+1)
	}
}
