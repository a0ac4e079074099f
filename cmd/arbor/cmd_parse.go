package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/format"
	"github.com/dhamidi/arbor/parser"
)

func newParseCmd() *cobra.Command {
	var grammarPath string
	var outputFormat string
	var noSpans bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a file and dump its syntax tree",
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

			var encoder format.Encoder
			switch outputFormat {
			case "sexp":
				enc := format.NewSExprEncoder(os.Stdout)
				enc.Spans = !noSpans
				encoder = enc
			case "json":
				encoder = format.NewJSONEncoder(os.Stdout)
			default:
				return fmt.Errorf("unknown format: %s", outputFormat)
			}

			if err := encoder.Encode(t.Root()); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			if outputFormat == "json" {
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&grammarPath, "grammar", "g", "", "grammar file (default: bundled minipy)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "sexp", "output format: sexp or json")
	cmd.Flags().BoolVar(&noSpans, "no-spans", false, "omit byte spans from s-expression output")

	return cmd
}
