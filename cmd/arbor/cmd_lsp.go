package main

import (
	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/lsp"
)

func newLSPCmd() *cobra.Command {
	var grammarPath string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGrammar(grammarPath)
			if err != nil {
				return err
			}
			return lsp.NewServer(g, version).RunStdio()
		},
	}

	cmd.Flags().StringVarP(&grammarPath, "grammar", "g", "", "grammar file (default: bundled minipy)")

	return cmd
}
