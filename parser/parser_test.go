package parser

import (
	"context"
	"testing"

	"github.com/dhamidi/arbor/format"
	"github.com/dhamidi/arbor/grammar/minipy"
	"github.com/dhamidi/arbor/tree"
)

func mustParse(t *testing.T, text string) *tree.Tree {
	t.Helper()
	tr, err := Parse(context.Background(), minipy.Grammar(), []byte(text))
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return tr
}

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "(module)"},
		{"x", "(module (expression (identifier)))"},
		{"  x  ", "(module (expression (identifier)))"},
		{"42", "(module (expression (number)))"},
		{`"hi"`, "(module (expression (string)))"},
		{"x y", "(module (expression (identifier)) (expression (identifier)))"},
		{"return 1", "(module (return_statement (expression (number))))"},
		{
			"def f(x): return x",
			"(module (function_definition (identifier) (parameters (identifier)) (return_statement (expression (identifier)))))",
		},
		{
			"def f(): x",
			"(module (function_definition (identifier) (parameters) (expression (identifier))))",
		},
		{
			"def f(a, b): return a + b",
			"(module (function_definition (identifier) (parameters (identifier) (identifier)) (return_statement (expression (expression (identifier)) (expression (identifier))))))",
		},
		{
			"f(x, 1)",
			"(module (expression (call (identifier) (arguments (expression (identifier)) (expression (number))))))",
		},
		{
			"f()",
			"(module (expression (call (identifier) (arguments))))",
		},
		{
			`f"a{x}b"`,
			"(module (expression (fstring (expression (identifier)))))",
		},
		{
			`f"plain"`,
			"(module (expression (fstring)))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tr := mustParse(t, tt.input)
			if got := format.SExpr(tr.Root()); got != tt.expected {
				t.Errorf("tree = %s\nwant   %s", got, tt.expected)
			}
			if tr.Root().HasError() {
				t.Errorf("unexpected error in tree for %q", tt.input)
			}
			checkCoverage(t, tr, len(tt.input))
		})
	}
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// * binds tighter than +.
		{
			"1+2*3",
			"(module (expression (expression (number)) (expression (expression (number)) (expression (number)))))",
		},
		// + is left associative.
		{
			"1+2+3",
			"(module (expression (expression (expression (number)) (expression (number))) (expression (number))))",
		},
		// Parentheses override precedence; the parenthesized operand
		// keeps its own expression wrapper.
		{
			"(1+2)*3",
			"(module (expression (expression (expression (expression (number)) (expression (number)))) (expression (number))))",
		},
		{
			"1*2+3",
			"(module (expression (expression (expression (number)) (expression (number))) (expression (number))))",
		},
		// - and / rank with + and *.
		{
			"1-2/3",
			"(module (expression (expression (number)) (expression (expression (number)) (expression (number)))))",
		},
		{
			"1-2-3",
			"(module (expression (expression (expression (number)) (expression (number))) (expression (number))))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tr := mustParse(t, tt.input)
			if got := format.SExpr(tr.Root()); got != tt.expected {
				t.Errorf("tree = %s\nwant   %s", got, tt.expected)
			}
		})
	}
}

// checkCoverage verifies that every byte of input belongs to exactly one
// leaf: leaf spans are contiguous from the start of the text to its end.
func checkCoverage(t *testing.T, tr *tree.Tree, length int) {
	t.Helper()
	pos := uint32(0)
	tree.Walk(tr.Root(), func(n tree.Node) bool {
		if !n.IsLeaf() {
			return true
		}
		if n.StartByte() != pos {
			t.Fatalf("leaf %s starts at %d, expected %d", n.Kind(), n.StartByte(), pos)
		}
		pos = n.EndByte()
		return true
	})
	if pos != uint32(length) {
		t.Fatalf("leaves cover [0, %d), text is %d bytes", pos, length)
	}
	if tr.Root().StartByte() != 0 || tr.Root().EndByte() != uint32(length) {
		t.Fatalf("root spans [%d, %d), text is %d bytes",
			tr.Root().StartByte(), tr.Root().EndByte(), length)
	}
}

func TestParseRecoversMissingToken(t *testing.T) {
	tr := mustParse(t, "def f(x) return x")

	want := "(module (function_definition (identifier) (parameters (identifier)) (MISSING :) (return_statement (expression (identifier)))))"
	if got := format.SExpr(tr.Root()); got != want {
		t.Errorf("tree = %s\nwant   %s", got, want)
	}
	if !tr.Root().HasError() {
		t.Error("tree with synthesized token should report an error")
	}

	missing := 0
	tree.Walk(tr.Root(), func(n tree.Node) bool {
		if n.IsMissing() {
			missing++
			if n.Kind() != ":" {
				t.Errorf("missing node kind = %q, want \":\"", n.Kind())
			}
			if n.StartByte() != n.EndByte() {
				t.Error("missing node must be zero width")
			}
		}
		return true
	})
	if missing != 1 {
		t.Errorf("missing nodes = %d, want 1", missing)
	}
	checkCoverage(t, tr, len("def f(x) return x"))
}

func TestParseRecoversSkippedTokens(t *testing.T) {
	tests := []string{
		"def f(: return x",
		"x ? y",
		")",
		"def",
		"f(x",
		`f"unterminated`,
		"((((",
		"\x00\x01\xff",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			tr := mustParse(t, input)
			if !tr.Root().HasError() {
				t.Errorf("expected error in tree for %q", input)
			}
			checkCoverage(t, tr, len(input))
		})
	}
}

func TestParseUnicode(t *testing.T) {
	input := "x \"héllo\" y\nz"
	tr := mustParse(t, input)
	checkCoverage(t, tr, len(input))

	root := tr.Root()
	if got := root.EndPoint(); got.Row != 1 || got.Column != 1 {
		t.Errorf("end point = %v, want 1:1", got)
	}
}

func TestParseNilGrammar(t *testing.T) {
	if _, err := Parse(context.Background(), nil, []byte("x")); err != ErrNilGrammar {
		t.Fatalf("err = %v, want ErrNilGrammar", err)
	}
}

func TestParseCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Parse(ctx, minipy.Grammar(), []byte("def f(x): return x"), WithCancellationInterval(1))
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestParseDeterministic(t *testing.T) {
	input := "def f(a, b): return a + b * f(a)"
	first := format.SExpr(mustParse(t, input).Root())
	for i := 0; i < 10; i++ {
		if got := format.SExpr(mustParse(t, input).Root()); got != first {
			t.Fatalf("parse %d differs:\n%s\n%s", i, got, first)
		}
	}
}
