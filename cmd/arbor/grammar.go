package main

import (
	"fmt"

	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/grammar/minipy"
)

// loadGrammar resolves the --grammar flag: empty means the bundled
// language, anything else is a grammar file.
func loadGrammar(path string) (*grammar.Grammar, error) {
	if path == "" {
		return minipy.Grammar(), nil
	}
	g, err := grammar.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load grammar: %w", err)
	}
	return g, nil
}
