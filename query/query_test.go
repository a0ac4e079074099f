package query

import (
	"context"
	"strings"
	"testing"

	"github.com/dhamidi/arbor/grammar/minipy"
	"github.com/dhamidi/arbor/parser"
	"github.com/dhamidi/arbor/tree"
)

const querySource = "def add(x, y): return x + y\nadd(1, 2)\n"

func parseSource(t *testing.T, src string) *tree.Tree {
	t.Helper()
	tr, err := parser.Parse(context.Background(), minipy.Grammar(), []byte(src))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return tr
}

func nodeText(src string, n tree.Node) string {
	return src[n.StartByte():n.EndByte()]
}

func mustCompile(t *testing.T, src string) *Query {
	t.Helper()
	q, err := Compile(minipy.Grammar(), src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return q
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown kind", "(bogus)", "unknown node kind"},
		{"anonymous kind in list position", "(def)", "unknown node kind"},
		{"named kind as anonymous", `"identifier"`, "unknown anonymous node"},
		{"unterminated string", `"def`, "unterminated string"},
		{"missing close paren", "(module", "missing )"},
		{"missing close bracket", "[(module)", "missing ]"},
		{"empty alternation", "[]", "empty alternation"},
		{"empty source", "", "empty pattern source"},
		{"comment only", "; nothing here\n", "empty pattern source"},
		{"empty capture name", "(module) @", "empty capture name"},
		{"stray close paren", ")", "unexpected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(minipy.Grammar(), tt.src)
			if err == nil {
				t.Fatal("Compile succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}

	if _, err := Compile(nil, "(module)"); err == nil {
		t.Error("Compile with nil grammar succeeded")
	}
}

func TestMatchFunctionName(t *testing.T) {
	tr := parseSource(t, querySource)
	q := mustCompile(t, "(function_definition (identifier) @name)")

	matches := q.Matches(tr)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	m := matches[0]
	if m.Node.Kind() != "function_definition" {
		t.Errorf("matched %v, want function_definition", m.Node)
	}
	if len(m.Captures) != 1 || m.Captures[0].Name != "name" {
		t.Fatalf("captures = %+v, want one capture @name", m.Captures)
	}
	if got := nodeText(querySource, m.Captures[0].Node); got != "add" {
		t.Errorf("@name = %q, want %q", got, "add")
	}
}

func TestMatchNestedCaptures(t *testing.T) {
	tr := parseSource(t, querySource)
	q := mustCompile(t, "(call (identifier) @fn (arguments) @args)")

	matches := q.Matches(tr)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	caps := matches[0].Captures
	if len(caps) != 2 || caps[0].Name != "fn" || caps[1].Name != "args" {
		t.Fatalf("captures = %+v, want @fn then @args", caps)
	}
	if got := nodeText(querySource, caps[0].Node); got != "add" {
		t.Errorf("@fn = %q, want %q", got, "add")
	}
	if got := nodeText(querySource, caps[1].Node); got != "1, 2" {
		t.Errorf("@args = %q, want %q", got, "1, 2")
	}
}

func TestMatchAnonymousLeaf(t *testing.T) {
	tr := parseSource(t, querySource)
	q := mustCompile(t, `"def" @kw`)

	matches := q.Matches(tr)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if got := nodeText(querySource, matches[0].Node); got != "def" {
		t.Errorf("matched %q, want the def keyword", got)
	}
}

func TestMatchWildcardChild(t *testing.T) {
	tr := parseSource(t, querySource)
	q := mustCompile(t, "(parameters _ @p)")

	matches := q.Matches(tr)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if got := nodeText(querySource, matches[0].Captures[0].Node); got != "x" {
		t.Errorf("@p = %q, want the first parameter", got)
	}
}

func TestMatchAlternation(t *testing.T) {
	tr := parseSource(t, querySource)
	q := mustCompile(t, "[(number) (string)] @lit")

	matches := q.Matches(tr)
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	var got []string
	for _, m := range matches {
		if m.Captures[0].Name != "lit" {
			t.Fatalf("capture = %+v, want @lit", m.Captures)
		}
		got = append(got, nodeText(querySource, m.Node))
	}
	if got[0] != "1" || got[1] != "2" {
		t.Errorf("literals = %v, want [1 2]", got)
	}
}

func TestMatchesIn(t *testing.T) {
	tr := parseSource(t, querySource)
	q := mustCompile(t, "(identifier) @id")

	var call tree.Node
	tree.Walk(tr.Root(), func(n tree.Node) bool {
		if n.Kind() == "call" && !call.Valid() {
			call = n
		}
		return true
	})
	if !call.Valid() {
		t.Fatal("no call node in the tree")
	}

	matches := q.MatchesIn(call)
	if len(matches) != 1 {
		t.Fatalf("got %d matches inside the call, want 1", len(matches))
	}
	if got := nodeText(querySource, matches[0].Node); got != "add" {
		t.Errorf("identifier inside the call = %q, want %q", got, "add")
	}
}

func TestMultiplePatterns(t *testing.T) {
	tr := parseSource(t, querySource)
	q := mustCompile(t, "; definitions, then uses\n(function_definition) @def\n(call) @use")

	matches := q.Matches(tr)
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Pattern != 0 || matches[0].Node.Kind() != "function_definition" {
		t.Errorf("first match = pattern %d on %v", matches[0].Pattern, matches[0].Node)
	}
	if matches[1].Pattern != 1 || matches[1].Node.Kind() != "call" {
		t.Errorf("second match = pattern %d on %v", matches[1].Pattern, matches[1].Node)
	}
}

func TestAlternationBacktracksCaptures(t *testing.T) {
	tr := parseSource(t, querySource)
	// The first alternative captures the identifier before failing on the
	// number; that capture must not leak into the match via the second.
	q := mustCompile(t, "[(call (identifier) @a (number) @n) (call (identifier) @i)]")

	matches := q.Matches(tr)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	caps := matches[0].Captures
	if len(caps) != 1 || caps[0].Name != "i" {
		t.Fatalf("captures = %+v, want only @i", caps)
	}
}
