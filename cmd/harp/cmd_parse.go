package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harp-pm/harp/config"
	"github.com/harp-pm/harp/parser"
)

func newParseCmd() *cobra.Command {
	var outputFormat string
	var configPath string

	cmd := &cobra.Command{
		Use:   "parse [spec...]",
		Short: "Parse spec expressions and print them in canonical form",
		Long: `Parse one or more spec expressions and print each resulting spec.

Arguments are joined into a single expression; with no arguments the
expression is read from stdin. Toolchain definitions are taken from the
configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimSpace(string(data))
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			p, err := parser.NewSpecParser(text, parser.WithToolchains(cfg.Toolchains))
			if err != nil {
				return err
			}
			specs, err := p.AllSpecs()
			if err != nil {
				return err
			}
			for _, warning := range p.Warnings() {
				fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
			}

			for _, s := range specs {
				switch outputFormat {
				case "spec":
					fmt.Println(s.String())
				case "json":
					if err := s.ToJSON(os.Stdout); err != nil {
						return fmt.Errorf("encode json: %w", err)
					}
					fmt.Println()
				case "yaml":
					if err := s.ToYAML(os.Stdout); err != nil {
						return fmt.Errorf("encode yaml: %w", err)
					}
				default:
					return fmt.Errorf("unknown format: %s", outputFormat)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "spec", "output format: spec, json, or yaml")
	cmd.Flags().StringVar(&configPath, "config", "", "path to the configuration file")

	return cmd
}
