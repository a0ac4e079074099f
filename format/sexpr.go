package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/arbor/tree"
)

// SExprEncoder writes the classic s-expression rendering of a tree: named
// nodes with their byte spans, anonymous nodes elided, errors and missing
// tokens called out.
type SExprEncoder struct {
	w io.Writer

	// Spans controls whether byte spans are printed after each node kind.
	Spans bool
}

func NewSExprEncoder(w io.Writer) *SExprEncoder {
	return &SExprEncoder{w: w, Spans: true}
}

func (e *SExprEncoder) Encode(node tree.Node) error {
	text, err := e.MarshalText(node)
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *SExprEncoder) MarshalText(node tree.Node) ([]byte, error) {
	var sb strings.Builder
	e.write(&sb, node)
	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

// SExpr renders a node without spans, the form most tests compare against.
func SExpr(node tree.Node) string {
	var sb strings.Builder
	(&SExprEncoder{}).write(&sb, node)
	return sb.String()
}

func (e *SExprEncoder) write(sb *strings.Builder, n tree.Node) {
	sb.WriteByte('(')
	if n.IsMissing() {
		sb.WriteString("MISSING ")
	}
	if n.IsError() && !n.IsMissing() {
		sb.WriteString("ERROR")
	} else {
		sb.WriteString(n.Kind())
	}
	if e.Spans {
		fmt.Fprintf(sb, " [%d, %d)", n.StartByte(), n.EndByte())
	}
	e.writeChildren(sb, n)
	sb.WriteByte(')')
}

// writeChildren renders named descendants, looking through anonymous
// internal nodes so helper rules do not add nesting.
func (e *SExprEncoder) writeChildren(sb *strings.Builder, n tree.Node) {
	for i := 0; i < n.ChildCount(); i++ {
		kid := n.Child(i)
		switch {
		case kid.IsNamed() || kid.IsError() || kid.IsMissing():
			sb.WriteByte(' ')
			e.write(sb, kid)
		case kid.IsLeaf():
			// Anonymous token, skipped.
		default:
			e.writeChildren(sb, kid)
		}
	}
}
