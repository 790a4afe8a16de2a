// codesift is the command-line front-end for the structural matcher: one-
// shot pattern matches, ruleset scans, rule-file validation, and parse
// tree dumps.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Optional .env for CODESIFT_DB / CODESIFT_LIBSQL_AUTH_TOKEN.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "codesift",
		Short:         "Structural code pattern matcher for JavaScript and TypeScript",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newMatchCmd())
	root.AddCommand(newScanCmd())
	root.AddCommand(newRulesCmd())
	root.AddCommand(newParseCmd())
	return root
}

// envDefault returns an environment value or fallback.
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
