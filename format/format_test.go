package format

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dhamidi/arbor/grammar/minipy"
	"github.com/dhamidi/arbor/parser"
	"github.com/dhamidi/arbor/tree"
)

func parseSource(t *testing.T, src string) *tree.Tree {
	t.Helper()
	tr, err := parser.Parse(context.Background(), minipy.Grammar(), []byte(src))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return tr
}

func TestSExpr(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{
			input: "x",
			want:  "(module (expression (identifier)))",
		},
		{
			input: "f(1)",
			want:  "(module (expression (call (identifier) (arguments (expression (number))))))",
		},
		{
			input: "",
			want:  "(module)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tr := parseSource(t, tt.input)
			if got := SExpr(tr.Root()); got != tt.want {
				t.Errorf("SExpr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSExprEncoderSpans(t *testing.T) {
	tr := parseSource(t, "x")
	var buf bytes.Buffer
	enc := NewSExprEncoder(&buf)
	if err := enc.Encode(tr.Root()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "(module [0, 1) (expression [0, 1) (identifier [0, 1))))\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}

	buf.Reset()
	enc.Spans = false
	if err := enc.Encode(tr.Root()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got := buf.String(); got != "(module (expression (identifier)))\n" {
		t.Errorf("output without spans = %q", got)
	}
}

func TestSExprErrors(t *testing.T) {
	tr := parseSource(t, "def f(x) return x")
	out := SExpr(tr.Root())
	if !strings.Contains(out, "(MISSING :)") {
		t.Errorf("output %q does not call out the missing colon", out)
	}

	tr = parseSource(t, ")")
	out = SExpr(tr.Root())
	if !strings.Contains(out, "(ERROR") {
		t.Errorf("output %q does not call out the stray token", out)
	}
}

func TestLineEncoder(t *testing.T) {
	tr := parseSource(t, "x +\ny")
	var buf bytes.Buffer
	if err := NewLineEncoder(&buf).Encode(tr.Root()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := strings.Join([]string{
		"identifier\t0\t1\t0:0",
		"whitespace\t1\t2\t0:1",
		"+\t2\t3\t0:2",
		"whitespace\t3\t4\t0:3",
		"identifier\t4\t5\t1:0",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestJSONEncoder(t *testing.T) {
	tr := parseSource(t, "x\ny")
	var buf bytes.Buffer
	if err := NewJSONEncoder(&buf).Encode(tr.Root()); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var root jsonNode
	if err := json.Unmarshal(buf.Bytes(), &root); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if root.Kind != "module" || !root.Named {
		t.Errorf("root = %q named=%v, want module, true", root.Kind, root.Named)
	}
	if root.Span.StartByte != 0 || root.Span.EndByte != 3 {
		t.Errorf("root span = [%d, %d), want [0, 3)", root.Span.StartByte, root.Span.EndByte)
	}
	if root.Span.End.Row != 1 || root.Span.End.Column != 1 {
		t.Errorf("root end = %d:%d, want 1:1", root.Span.End.Row, root.Span.End.Column)
	}
	if len(root.Children) == 0 {
		t.Fatal("root has no children in the JSON rendering")
	}

	// Unlike the s-expression form, JSON keeps every node, extras included.
	var sawExtra bool
	var visit func(n *jsonNode)
	visit = func(n *jsonNode) {
		if n.Extra {
			sawExtra = true
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(&root)
	if !sawExtra {
		t.Error("no extra token in the JSON rendering")
	}
}

func TestEncodersAreEncoders(t *testing.T) {
	var buf bytes.Buffer
	for _, e := range []Encoder{
		NewSExprEncoder(&buf),
		NewJSONEncoder(&buf),
		NewLineEncoder(&buf),
	} {
		if e == nil {
			t.Fatal("constructor returned nil")
		}
	}
}
