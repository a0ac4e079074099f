package format

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/arbor/tree"
)

type JSONEncoder struct {
	w io.Writer
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) Encode(node tree.Node) error {
	text, err := e.MarshalText(node)
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *JSONEncoder) MarshalText(node tree.Node) ([]byte, error) {
	return json.MarshalIndent(nodeToJSON(node), "", "  ")
}

type jsonNode struct {
	Kind     string      `json:"kind"`
	Named    bool        `json:"named"`
	Span     jsonSpan    `json:"span"`
	Error    bool        `json:"error,omitempty"`
	Missing  bool        `json:"missing,omitempty"`
	Extra    bool        `json:"extra,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

type jsonSpan struct {
	StartByte uint32       `json:"startByte"`
	EndByte   uint32       `json:"endByte"`
	Start     jsonPosition `json:"start"`
	End       jsonPosition `json:"end"`
}

type jsonPosition struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

func nodeToJSON(n tree.Node) *jsonNode {
	jn := &jsonNode{
		Kind:  n.Kind(),
		Named: n.IsNamed(),
		Span: jsonSpan{
			StartByte: n.StartByte(),
			EndByte:   n.EndByte(),
			Start:     jsonPosition{Row: n.StartPoint().Row, Column: n.StartPoint().Column},
			End:       jsonPosition{Row: n.EndPoint().Row, Column: n.EndPoint().Column},
		},
		Error:   n.IsError(),
		Missing: n.IsMissing(),
		Extra:   n.IsExtra(),
	}
	for i := 0; i < n.ChildCount(); i++ {
		jn.Children = append(jn.Children, nodeToJSON(n.Child(i)))
	}
	return jn
}
