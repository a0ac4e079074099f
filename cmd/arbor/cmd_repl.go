package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/format"
	"github.com/dhamidi/arbor/parser"
	"github.com/dhamidi/arbor/tree"
)

func newReplCmd() *cobra.Command {
	var grammarPath string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactively grow a document and watch its tree reconcile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGrammar(grammarPath)
			if err != nil {
				return err
			}

			ln := liner.NewLiner()
			defer ln.Close()
			ln.SetCtrlCAborts(true)

			histPath := filepath.Join(os.TempDir(), "arbor_history")
			if f, err := os.Open(histPath); err == nil {
				_, _ = ln.ReadHistory(f)
				_ = f.Close()
			}
			defer func() {
				if f, err := os.Create(histPath); err == nil {
					_, _ = ln.WriteHistory(f)
					_ = f.Close()
				}
			}()

			var text []byte
			t, err := parser.Parse(cmd.Context(), g, text)
			if err != nil {
				return err
			}

			fmt.Println("Each line is appended to the document and the tree is reconciled.")
			fmt.Println("Commands: :tree  :text  :clear  :quit")

			for {
				line, err := ln.Prompt("arbor> ")
				if err != nil {
					fmt.Println()
					return nil
				}
				ln.AppendHistory(line)

				switch strings.TrimSpace(line) {
				case ":quit":
					return nil
				case ":tree":
					fmt.Println(format.SExpr(t.Root()))
					continue
				case ":text":
					fmt.Printf("%q\n", text)
					continue
				case ":clear":
					text = nil
					if t, err = parser.Parse(cmd.Context(), g, text); err != nil {
						return err
					}
					continue
				}

				appended := []byte(line + "\n")
				start := uint32(len(text))
				startPoint := t.Lines().PointFor(start)
				edit := tree.Edit{
					StartByte:   start,
					OldEndByte:  start,
					NewEndByte:  start + uint32(len(appended)),
					StartPoint:  startPoint,
					OldEndPoint: startPoint,
					NewEndPoint: startPoint.Add(tree.ExtentOf(appended)),
				}
				newText := append(append([]byte{}, text...), appended...)

				t, err = parser.Reparse(cmd.Context(), g, t, []tree.Edit{edit}, newText)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					continue
				}
				text = newText
				fmt.Println(format.SExpr(t.Root()))
			}
		},
	}

	cmd.Flags().StringVarP(&grammarPath, "grammar", "g", "", "grammar file (default: bundled minipy)")

	return cmd
}
