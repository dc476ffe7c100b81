package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harp-pm/harp/parser"
)

func newTokenizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize [spec...]",
		Short: "Print the token stream of a spec expression",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimSpace(string(data))
			}

			for _, tok := range parser.Tokenize(text) {
				fmt.Printf("%d:%d\t%s\t%q\n", tok.Start, tok.End, parser.SpecTokenDef(tok.Kind).Name, tok.Value)
			}
			return nil
		},
	}
}
