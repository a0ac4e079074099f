package minipy

import (
	"bytes"
	"testing"

	"github.com/dhamidi/arbor/grammar"
)

func TestGrammarValidates(t *testing.T) {
	g := Grammar()
	if g == nil {
		t.Fatal("Grammar() returned nil")
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if g2 := Grammar(); g2 != g {
		t.Error("Grammar() returned a new instance on the second call")
	}
}

func TestGrammarSymbols(t *testing.T) {
	g := Grammar()

	if g.Root != symModule {
		t.Errorf("Root = %d, want module (%d)", g.Root, symModule)
	}
	if len(g.Symbols) != int(symCount) {
		t.Errorf("len(Symbols) = %d, want %d", len(g.Symbols), symCount)
	}

	named := []string{
		"identifier", "number", "string", "module", "function_definition",
		"parameters", "return_statement", "expression", "call", "arguments",
		"fstring",
	}
	for _, name := range named {
		sym, ok := g.SymbolByName(name)
		if !ok {
			t.Errorf("SymbolByName(%q) not found", name)
			continue
		}
		if !g.IsNamed(sym) {
			t.Errorf("%q is not named", name)
		}
	}

	if !g.IsExtra(symWS) {
		t.Error("whitespace is not an extra")
	}
	for s := grammar.Symbol(0); s < symCount; s++ {
		want := int(s) < terminalCount
		if got := g.IsTerminal(s); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", g.SymbolName(s), got, want)
		}
	}
}

func TestGrammarTables(t *testing.T) {
	g := Grammar()

	if len(g.States[0].Actions) == 0 {
		t.Fatal("state 0 has no actions")
	}
	if acts := g.ActionsFor(0, symDef); len(acts) != 1 || acts[0].Type != grammar.ActionShift {
		t.Errorf("state 0 on def = %+v, want a single shift", acts)
	}

	accepts := 0
	for _, state := range g.States {
		for _, acts := range state.Actions {
			for _, act := range acts {
				if act.Type == grammar.ActionAccept {
					accepts++
				}
			}
		}
	}
	if accepts == 0 {
		t.Error("no accept action in the tables")
	}

	// Binary operators leave shift/reduce conflicts for the runtime to
	// settle by precedence, so those cells must carry it.
	for _, state := range g.States {
		for sym, acts := range state.Actions {
			if len(acts) < 2 {
				continue
			}
			if sym != symPlus && sym != symMinus && sym != symStar && sym != symSlash {
				continue
			}
			for _, act := range acts {
				if act.Type == grammar.ActionReduce && act.Precedence == 0 {
					t.Errorf("conflicted cell on %s has a reduce without precedence: %+v",
						g.SymbolName(sym), act)
				}
			}
		}
	}
}

func TestGrammarContexts(t *testing.T) {
	g := Grammar()

	if len(g.Contexts) != 2 {
		t.Fatalf("len(Contexts) = %d, want 2", len(g.Contexts))
	}
	ctx, ok := g.PushContext[symFStrStart]
	if !ok || g.Contexts[ctx].Lex != lexFStr {
		t.Errorf("f\" push = (%d, %v), want the fstring body context", ctx, ok)
	}
	ctx, ok = g.PushContext[symFStrOpen]
	if !ok || g.Contexts[ctx].Lex != lexMain {
		t.Errorf("{ push = (%d, %v), want the interpolation context", ctx, ok)
	}
	if !g.PopContext[symFStrClose] || !g.PopContext[symFStrEnd] {
		t.Error("} and closing quote must pop a context")
	}
	if g.ContextEffect(symFStrStart) != 1 || g.ContextEffect(symFStrEnd) != -1 {
		t.Error("context effects of the fstring delimiters are wrong")
	}
}

func TestGrammarDumpDeterministic(t *testing.T) {
	g := Grammar()
	first, err := g.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	second, err := g.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Dump output differs between calls")
	}
}

func TestGrammarDumpRoundTrip(t *testing.T) {
	g := Grammar()
	data, err := g.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	g2, err := grammar.Load(data)
	if err != nil {
		t.Fatalf("Load(Dump): %v", err)
	}
	if g2.Name != g.Name || g2.Root != g.Root {
		t.Errorf("round trip changed identity: %q root %d vs %q root %d",
			g2.Name, g2.Root, g.Name, g.Root)
	}
	if len(g2.States) != len(g.States) || len(g2.Rules) != len(g.Rules) {
		t.Errorf("round trip changed table sizes: %d states %d rules, want %d and %d",
			len(g2.States), len(g2.Rules), len(g.States), len(g.Rules))
	}
	for si := range g.States {
		if len(g2.States[si].Actions) != len(g.States[si].Actions) {
			t.Errorf("state %d action count changed: %d vs %d",
				si, len(g2.States[si].Actions), len(g.States[si].Actions))
		}
	}
}
