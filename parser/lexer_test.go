package parser

import (
	"testing"

	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/grammar/minipy"
)

// lexAll drains the lexer in parse state 0, applying context pushes and
// pops the way the parser would.
func lexAll(t *testing.T, text string) []string {
	t.Helper()
	g := minipy.Grammar()
	lx := newLexer(g, []byte(text))
	var kinds []string
	for i := 0; i < 1000; i++ {
		tok := lx.next(0)
		kinds = append(kinds, g.SymbolName(tok.sym))
		if tok.sym == grammar.SymbolEnd {
			return kinds
		}
		lx.consume(tok)
		if tok.sym != grammar.SymbolError {
			lx.applyContext(tok.sym)
		}
	}
	t.Fatal("lexer did not reach end of input")
	return nil
}

func TestLexer(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", []string{"end"}},
		{"x", []string{"identifier", "end"}},
		{"def", []string{"def", "end"}},
		{"define", []string{"identifier", "end"}},
		{"return", []string{"return", "end"}},
		{"returns", []string{"identifier", "end"}},
		{"retro", []string{"identifier", "end"}},
		{"f", []string{"identifier", "end"}},
		{"foo", []string{"identifier", "end"}},
		{"_x1", []string{"identifier", "end"}},
		{"42", []string{"number", "end"}},
		{"3.14", []string{"number", "end"}},
		{`"hello"`, []string{"string", "end"}},
		{`"a\"b"`, []string{"string", "end"}},
		{"+ * ( ) : ,", []string{"+", "whitespace", "*", "whitespace", "(", "whitespace", ")", "whitespace", ":", "whitespace", ",", "end"}},
		{"a-b/c", []string{"identifier", "-", "identifier", "/", "identifier", "end"}},
		{"x  y", []string{"identifier", "whitespace", "identifier", "end"}},
		{"def f(x): return x", []string{
			"def", "whitespace", "identifier", "(", "identifier", ")", ":",
			"whitespace", "return", "whitespace", "identifier", "end",
		}},
		{`f"ab"`, []string{`f"`, "text", `"`, "end"}},
		{`f"a{x}b"`, []string{`f"`, "text", "{", "identifier", "}", "text", `"`, "end"}},
		{`f"{x + y}"`, []string{`f"`, "{", "identifier", "whitespace", "+", "whitespace", "identifier", "}", `"`, "end"}},
		{"?", []string{"ERROR", "end"}},
		{"x ? y", []string{"identifier", "whitespace", "ERROR", "whitespace", "identifier", "end"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := lexAll(t, tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("got %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Fatalf("token %d: got %v, want %v", i, got, tt.expected)
				}
			}
		})
	}
}

func TestLexerReach(t *testing.T) {
	g := minipy.Grammar()

	// Lexing "def" runs to end of input, so an append could extend the
	// token; the reach has to cover the end position.
	lx := newLexer(g, []byte("def"))
	tok := lx.next(0)
	if got := g.SymbolName(tok.sym); got != "def" {
		t.Fatalf("symbol = %s, want def", got)
	}
	if tok.reach == 0 {
		t.Error("token at end of input should have nonzero reach")
	}

	// With a delimiter after it, the lexer only looks one byte past.
	lx = newLexer(g, []byte("def("))
	tok = lx.next(0)
	if tok.width != 3 {
		t.Fatalf("width = %d, want 3", tok.width)
	}
	if tok.reach != 1 {
		t.Errorf("reach = %d, want 1", tok.reach)
	}
}

func TestLexerSpans(t *testing.T) {
	g := minipy.Grammar()
	text := []byte("ab 12")
	lx := newLexer(g, text)

	tok := lx.next(0)
	if tok.start != 0 || tok.width != 2 {
		t.Fatalf("first token at [%d, %d)", tok.start, tok.start+tok.width)
	}
	lx.consume(tok)

	tok = lx.next(0)
	if g.SymbolName(tok.sym) != "whitespace" {
		t.Fatalf("expected whitespace, got %s", g.SymbolName(tok.sym))
	}
	lx.consume(tok)

	tok = lx.next(0)
	if tok.start != 3 || tok.width != 2 {
		t.Fatalf("number token at [%d, %d)", tok.start, tok.start+tok.width)
	}
}

func TestLexerContextStack(t *testing.T) {
	g := minipy.Grammar()
	lx := newLexer(g, []byte(`f"a{b}c"`))

	if lx.startState(0) != 0 {
		t.Fatalf("initial start state = %d", lx.startState(0))
	}

	tok := lx.next(0) // f"
	lx.consume(tok)
	lx.applyContext(tok.sym)
	if len(lx.ctx) != 1 {
		t.Fatalf("context depth after f\" = %d, want 1", len(lx.ctx))
	}

	tok = lx.next(0) // text "a"
	if g.SymbolName(tok.sym) != "text" {
		t.Fatalf("in fstring context got %s, want text", g.SymbolName(tok.sym))
	}
	lx.consume(tok)
	lx.applyContext(tok.sym)

	tok = lx.next(0) // {
	lx.consume(tok)
	lx.applyContext(tok.sym)
	if len(lx.ctx) != 2 {
		t.Fatalf("context depth inside hole = %d, want 2", len(lx.ctx))
	}

	tok = lx.next(0) // identifier b, lexed in the interpolation context
	if g.SymbolName(tok.sym) != "identifier" {
		t.Fatalf("inside hole got %s, want identifier", g.SymbolName(tok.sym))
	}
	lx.consume(tok)

	tok = lx.next(0) // }
	lx.consume(tok)
	lx.applyContext(tok.sym)
	if len(lx.ctx) != 1 {
		t.Fatalf("context depth after } = %d, want 1", len(lx.ctx))
	}
}
