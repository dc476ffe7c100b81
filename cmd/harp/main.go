package main

import (
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "harp",
		Short: "A toolkit for package spec expressions",
	}

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newTokenizeCmd())
	rootCmd.AddCommand(newStyleCmd())
	rootCmd.AddCommand(newLSPCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
