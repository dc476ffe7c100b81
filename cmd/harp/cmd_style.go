package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harp-pm/harp/format"
)

func newStyleCmd() *cobra.Command {
	var fix bool
	var specStrings bool

	cmd := &cobra.Command{
		Use:   "style [file...]",
		Short: "Check files for spec strings written in the legacy format",
		Long: `Check files for spec strings written in the legacy format, where the
compiler appears as a node attribute instead of a dependency.

Scans Python, YAML, and JSON files for string literals that look like
spec expressions and reports each one that can be rewritten. Use --fix
to rewrite the files in place.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !specStrings {
				return fmt.Errorf("no checks selected; use --spec-strings")
			}

			handler := format.ReportHandler(os.Stdout)
			if fix {
				handler = format.FixHandler(os.Stdout)
			}
			format.CheckFiles(args, handler)
			return nil
		},
	}

	cmd.Flags().BoolVar(&specStrings, "spec-strings", false, "check spec strings for the legacy compiler format")
	cmd.Flags().BoolVar(&fix, "fix", false, "rewrite the files in place")

	return cmd
}
