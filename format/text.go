// Package format renders scan results for terminals, JSON consumers, and
// SARIF uploaders. The fix preview is display-only; nothing here writes
// source files.
package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/teamchong/codesift/rulevm"
	"github.com/teamchong/codesift/scan"
)

// TextOptions control the terminal formatter.
type TextOptions struct {
	ShowFix     bool // render fix templates as unified diffs
	NoColor     bool
	DiffContext int // context lines in fix diffs, default 3
}

var severityColors = map[rulevm.Severity]*color.Color{
	rulevm.SeverityError:   color.New(color.FgRed, color.Bold),
	rulevm.SeverityWarning: color.New(color.FgYellow, color.Bold),
	rulevm.SeverityInfo:    color.New(color.FgBlue),
	rulevm.SeverityHint:    color.New(color.FgCyan),
}

// Text writes one line per match plus optional fix previews. Returns the
// number of matches printed.
func Text(w io.Writer, results []scan.FileResult, opts TextOptions) (int, error) {
	if opts.DiffContext <= 0 {
		opts.DiffContext = 3
	}
	total := 0
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(w, "%s: %v\n", res.File, res.Err)
			continue
		}
		for fi := range res.Findings {
			f := &res.Findings[fi]
			for mi := 0; mi < f.Matches.Len(); mi++ {
				m := f.Matches.At(mi)
				total++

				sev := f.Rule.Severity.String()
				if !opts.NoColor {
					if c, ok := severityColors[f.Rule.Severity]; ok {
						sev = c.Sprint(sev)
					}
				}
				fmt.Fprintf(w, "%s:%d:%d: %s [%s] %s\n",
					res.File,
					m.Range.Start.Row+1, m.Range.Start.Col+1,
					sev, f.Rule.ID, f.Rule.Message)

				for bi := 0; bi < m.Bindings.Len(); bi++ {
					b := m.Bindings.At(bi)
					fmt.Fprintf(w, "    $%s = %s\n", b.Name, b.Text)
				}

				if opts.ShowFix && f.Rule.HasFix {
					if err := writeFixDiff(w, res, f, mi, opts.DiffContext); err != nil {
						return total, err
					}
				}
			}
		}
	}
	return total, nil
}

// writeFixDiff previews a fix template as a unified diff of the matched
// region against its rendered replacement.
func writeFixDiff(w io.Writer, res scan.FileResult, f *rulevm.Finding, mi, context int) error {
	m := f.Matches.At(mi)
	if int(m.Range.EndByte) > len(res.Source) {
		return nil
	}
	original := string(res.Source[m.Range.StartByte:m.Range.EndByte])
	fixed := RenderFix(f.Rule.Fix, &m.Bindings)
	if original == fixed {
		return nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(fixed),
		FromFile: res.File,
		ToFile:   res.File + " (fixed)",
		Context:  context,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Errorf("fix diff: %w", err)
	}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
	return nil
}
