package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/arbor/tree"
)

// LineEncoder writes one tab-separated line per leaf, which makes the token
// stream easy to grep and diff.
type LineEncoder struct {
	w io.Writer
}

func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w}
}

func (e *LineEncoder) Encode(node tree.Node) error {
	text, err := e.MarshalText(node)
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *LineEncoder) MarshalText(node tree.Node) ([]byte, error) {
	var sb strings.Builder
	tree.Walk(node, func(n tree.Node) bool {
		if !n.IsLeaf() {
			return true
		}
		kind := n.Kind()
		switch {
		case n.IsMissing():
			kind = "MISSING " + kind
		case n.IsError():
			kind = "ERROR"
		}
		fmt.Fprintf(&sb, "%s\t%d\t%d\t%d:%d\n",
			kind, n.StartByte(), n.EndByte(), n.StartPoint().Row, n.StartPoint().Column)
		return true
	})
	return []byte(sb.String()), nil
}
