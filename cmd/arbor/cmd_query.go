package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/parser"
	"github.com/dhamidi/arbor/query"
)

func newQueryCmd() *cobra.Command {
	var grammarPath string
	var patternFile string

	cmd := &cobra.Command{
		Use:   "query <pattern> <file>",
		Short: "Match an s-expression pattern against a file's syntax tree",
		Long: `Match an s-expression pattern against a file's syntax tree.

Patterns name node kinds and may nest, capture, and alternate:

  arbor query '(function_definition (identifier) @name)' main.mpy
`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := args[0]
			file := ""
			if patternFile != "" {
				data, err := os.ReadFile(patternFile)
				if err != nil {
					return fmt.Errorf("read pattern file: %w", err)
				}
				pattern = string(data)
				file = args[0]
			} else {
				if len(args) < 2 {
					return fmt.Errorf("need a pattern and a file")
				}
				file = args[1]
			}

			g, err := loadGrammar(grammarPath)
			if err != nil {
				return err
			}

			q, err := query.Compile(g, pattern)
			if err != nil {
				return err
			}

			text, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			t, err := parser.Parse(cmd.Context(), g, text)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}

			for _, m := range q.Matches(t) {
				n := m.Node
				fmt.Printf("%s\t%s\n", n.Kind(), n.Span())
				for _, c := range m.Captures {
					fmt.Printf("  @%s\t%s\t%q\n", c.Name, c.Node.Span(), text[c.Node.StartByte():c.Node.EndByte()])
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&grammarPath, "grammar", "g", "", "grammar file (default: bundled minipy)")
	cmd.Flags().StringVarP(&patternFile, "patterns", "p", "", "read patterns from a file instead of the command line")

	return cmd
}
