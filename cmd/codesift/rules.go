package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teamchong/codesift/rules"
	"github.com/teamchong/codesift/rulevm"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate rule files",
	}
	cmd.AddCommand(newRulesCheckCmd())
	return cmd
}

func newRulesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a rule file and report its compiled form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read rules: %w", err)
			}

			bytecode, err := rules.Compile(doc)
			if err != nil {
				return err
			}
			rs, err := rulevm.Decode(bytecode)
			if err != nil {
				return fmt.Errorf("compiled bytecode failed to decode: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d rules, %d nodes, %d bytes of bytecode\n",
				args[0], rs.RuleCount(), rs.NodeCount(), len(bytecode))
			for i := 0; i < rs.RuleCount(); i++ {
				r := rs.Rule(i)
				fix := ""
				if r.HasFix {
					fix = " (has fix)"
				}
				fmt.Fprintf(out, "  %-8s %s: %s%s\n", r.Severity, r.ID, r.Message, fix)
				for _, c := range rs.Constraints(r) {
					status := "ok"
					if c.Regex == nil {
						status = "inert: pattern does not compile"
					}
					fmt.Fprintf(out, "           constraint $%s (%s)\n", c.Metavar, status)
				}
			}
			return nil
		},
	}
}
