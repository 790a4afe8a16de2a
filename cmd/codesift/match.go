package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teamchong/codesift/codec"
	"github.com/teamchong/codesift/engine"
	"github.com/teamchong/codesift/lang"
)

func newMatchCmd() *cobra.Command {
	var (
		langFlag   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "match <pattern> <file>...",
		Short: "Run a structural pattern against source files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := args[0]
			eng := engine.New()
			defer eng.Close()

			for _, path := range args[1:] {
				l, err := resolveLanguage(langFlag, path)
				if err != nil {
					return err
				}
				source, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}

				eng.StructMatch([]byte(pattern), source, l)
				if err := printMatches(cmd, path, eng, jsonOutput); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&langFlag, "lang", "l", "", "Language (inferred from extension if omitted)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output matches as JSON")
	return cmd
}

func resolveLanguage(flag, path string) (lang.Language, error) {
	if flag != "" {
		l, ok := lang.Parse(flag)
		if !ok {
			return 0, fmt.Errorf("unknown language %q", flag)
		}
		return l, nil
	}
	l, ok := lang.ByExtension(filepath.Ext(path))
	if !ok {
		return 0, fmt.Errorf("cannot infer language for %s; pass --lang", path)
	}
	return l, nil
}

func printMatches(cmd *cobra.Command, path string, eng *engine.Engine, asJSON bool) error {
	matches := eng.LastMatches()

	if asJSON {
		out := make([]codec.MatchJSON, 0, matches.Len())
		for i := 0; i < matches.Len(); i++ {
			out = append(out, codec.MatchToJSON(matches.At(i)))
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"file": path, "matches": out})
	}

	for i := 0; i < matches.Len(); i++ {
		m := matches.At(i)
		fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d: [%d,%d)\n",
			path, m.Range.Start.Row+1, m.Range.Start.Col+1,
			m.Range.StartByte, m.Range.EndByte)
		for bi := 0; bi < m.Bindings.Len(); bi++ {
			b := m.Bindings.At(bi)
			fmt.Fprintf(cmd.OutOrStdout(), "    $%s = %s\n", b.Name, b.Text)
		}
	}
	return nil
}
