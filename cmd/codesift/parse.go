package main

import (
	"encoding/json"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/spf13/cobra"

	"github.com/teamchong/codesift/codec"
	"github.com/teamchong/codesift/lang"
)

// parseTreeNode is codec.NodeInfo plus nested children, for grammar
// debugging.
type parseTreeNode struct {
	codec.NodeInfo
	Text     string          `json:"text,omitempty"`
	Children []parseTreeNode `json:"children,omitempty"`
}

func newParseCmd() *cobra.Command {
	var (
		langFlag  string
		namedOnly bool
		maxText   int
	)

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Dump a file's parse tree as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := resolveLanguage(langFlag, args[0])
			if err != nil {
				return err
			}
			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			pool := &lang.ParserPool{}
			defer pool.Close()
			tree, err := pool.Parse(l, source)
			if err != nil {
				return err
			}
			defer tree.Close()

			root := buildParseTree(tree.RootNode(), source, namedOnly, maxText)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(root)
		},
	}

	cmd.Flags().StringVarP(&langFlag, "lang", "l", "", "Language (inferred from extension if omitted)")
	cmd.Flags().BoolVar(&namedOnly, "named", true, "Walk named children only")
	cmd.Flags().IntVar(&maxText, "max-text", 40, "Truncate leaf text beyond this many bytes")
	return cmd
}

func buildParseTree(node *sitter.Node, source []byte, namedOnly bool, maxText int) parseTreeNode {
	out := parseTreeNode{NodeInfo: *codec.NodeInfoFrom(node)}

	count := int(node.ChildCount())
	if namedOnly {
		count = int(node.NamedChildCount())
	}
	if count == 0 {
		text := node.Content(source)
		if maxText > 0 && len(text) > maxText {
			text = text[:maxText] + "…"
		}
		out.Text = text
		return out
	}

	out.Children = make([]parseTreeNode, 0, count)
	for i := 0; i < count; i++ {
		var child *sitter.Node
		if namedOnly {
			child = node.NamedChild(i)
		} else {
			child = node.Child(i)
		}
		if child != nil {
			out.Children = append(out.Children, buildParseTree(child, source, namedOnly, maxText))
		}
	}
	return out
}
