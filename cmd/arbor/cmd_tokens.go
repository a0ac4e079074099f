package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/format"
	"github.com/dhamidi/arbor/parser"
)

func newTokensCmd() *cobra.Command {
	var grammarPath string

	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "Parse a file and list its tokens, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGrammar(grammarPath)
			if err != nil {
				return err
			}

			text, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			t, err := parser.Parse(cmd.Context(), g, text)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}

			return format.NewLineEncoder(os.Stdout).Encode(t.Root())
		},
	}

	cmd.Flags().StringVarP(&grammarPath, "grammar", "g", "", "grammar file (default: bundled minipy)")

	return cmd
}
