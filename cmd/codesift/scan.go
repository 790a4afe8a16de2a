package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teamchong/codesift/db"
	"github.com/teamchong/codesift/format"
	"github.com/teamchong/codesift/rules"
	"github.com/teamchong/codesift/scan"
)

func newScanCmd() *cobra.Command {
	var (
		rulesPath    string
		outputFormat string
		include      []string
		exclude      []string
		workers      int
		maxBytes     int64
		showFix      bool
		noColor      bool
		history      bool
		dsn          string
		debug        bool
	)

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a file tree with a rule file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			doc, err := os.ReadFile(rulesPath)
			if err != nil {
				return fmt.Errorf("read rules: %w", err)
			}
			specs, err := rules.Load(doc)
			if err != nil {
				return err
			}
			bytecode, err := rules.Compile(doc)
			if err != nil {
				return err
			}

			files, err := scan.Discover(cmd.Context(), scan.Scope{
				Root:     root,
				Include:  include,
				Exclude:  exclude,
				MaxBytes: maxBytes,
			})
			if err != nil {
				return err
			}

			results, err := scan.NewScanner(bytecode, workers).Run(cmd.Context(), files)
			if err != nil {
				return err
			}

			if history {
				conn, err := db.Connect(dsn, debug)
				if err != nil {
					return fmt.Errorf("open history db: %w", err)
				}
				run, err := db.RecordScan(conn, root, rulesPath, len(specs), results)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "recorded scan %s (%d matches)\n", run.ID, run.MatchCount)
			}

			switch outputFormat {
			case "text":
				total, err := format.Text(cmd.OutOrStdout(), results, format.TextOptions{
					ShowFix: showFix,
					NoColor: noColor,
				})
				if err != nil {
					return err
				}
				if total > 0 {
					return fmt.Errorf("%d matches", total)
				}
				return nil
			case "json":
				return format.JSON(cmd.OutOrStdout(), results)
			case "sarif":
				return format.SARIF(cmd.OutOrStdout(), results)
			default:
				return fmt.Errorf("unknown format %q (text|json|sarif)", outputFormat)
			}
		},
	}

	cmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "Rule file (JSON)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text, json, sarif")
	cmd.Flags().StringSliceVar(&include, "include", nil, "Include file globs")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Exclude file globs")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent workers, 0 = all CPUs")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 5*1024*1024, "Maximum file size to scan")
	cmd.Flags().BoolVar(&showFix, "fix-preview", false, "Show fix templates as diffs")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&history, "history", false, "Record the scan in the history database")
	cmd.Flags().StringVar(&dsn, "db", envDefault("CODESIFT_DB", "codesift.db"), "History database DSN")
	cmd.Flags().BoolVar(&debug, "debug", envDefault("CODESIFT_DEBUG", "") != "", "Enable debug logging")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}
