package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/grammar"
)

func newGrammarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grammar",
		Short: "Inspect and validate grammar files",
	}

	cmd.AddCommand(newGrammarDumpCmd())
	cmd.AddCommand(newGrammarCheckCmd())

	return cmd
}

func newGrammarDumpCmd() *cobra.Command {
	var grammarPath string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the active grammar as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGrammar(grammarPath)
			if err != nil {
				return err
			}
			data, err := g.Dump()
			if err != nil {
				return fmt.Errorf("dump grammar: %w", err)
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&grammarPath, "grammar", "g", "", "grammar file (default: bundled minipy)")

	return cmd
}

func newGrammarCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a grammar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := grammar.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: ok (%d symbols, %d states)\n", g.Name, len(g.Symbols), len(g.States))
			return nil
		},
	}
}
