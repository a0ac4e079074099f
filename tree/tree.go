// Package tree provides the persistent syntax tree produced by parsing.
// Trees are immutable values: reconciling edits yields a new Tree that
// shares unchanged subtrees with its predecessor, so readers holding an
// older tree keep a stable view with no coordination.
package tree

import (
	"fmt"

	"github.com/dhamidi/arbor/grammar"
)

// Point is a zero-based line/column position. Columns count bytes.
type Point struct {
	Row    uint32
	Column uint32
}

// Add offsets p by the extent d. An extent spanning rows resets the column.
func (p Point) Add(d Point) Point {
	if d.Row == 0 {
		return Point{Row: p.Row, Column: p.Column + d.Column}
	}
	return Point{Row: p.Row + d.Row, Column: d.Column}
}

// Less reports whether p precedes q in source order.
func (p Point) Less(q Point) bool {
	if p.Row != q.Row {
		return p.Row < q.Row
	}
	return p.Column < q.Column
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

// ExtentOf returns the row/column extent of a byte slice.
func ExtentOf(text []byte) Point {
	var ext Point
	lineStart := -1
	for i, b := range text {
		if b == '\n' {
			ext.Row++
			lineStart = i
		}
	}
	ext.Column = uint32(len(text) - lineStart - 1)
	return ext
}

// Span is an absolute byte and point range.
type Span struct {
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
}

func (s Span) String() string {
	return fmt.Sprintf("[%d, %d)", s.StartByte, s.EndByte)
}

// Contains reports whether the byte offset lies within the span.
func (s Span) Contains(offset uint32) bool {
	return s.StartByte <= offset && offset < s.EndByte
}

// Edit describes one textual replacement. Offsets and points of the start
// and old end are in pre-edit coordinates; the new end is in post-edit
// coordinates. Batches of edits are expressed sequentially: each edit's
// coordinates assume all prior edits in the batch were already applied.
type Edit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// Delta returns the byte length change of the edit.
func (e Edit) Delta() int64 {
	return int64(e.NewEndByte) - int64(e.OldEndByte)
}

func (e Edit) String() string {
	return fmt.Sprintf("edit [%d, %d) -> [%d, %d)", e.StartByte, e.OldEndByte, e.StartByte, e.NewEndByte)
}

// Tree is an immutable syntax tree: a root subtree, the length of the text
// it was built against, and the line-start index for byte/point translation.
type Tree struct {
	grammar *grammar.Grammar
	root    *Subtree
	textLen uint32
	lines   *LineIndex
}

// New assembles a tree from a root subtree and the source text it covers.
func New(g *grammar.Grammar, root *Subtree, text []byte) *Tree {
	return &Tree{
		grammar: g,
		root:    root,
		textLen: uint32(len(text)),
		lines:   NewLineIndex(text),
	}
}

// NewWithLines is like New but reuses an already-computed line index, as the
// reconciler does after updating the previous tree's index incrementally.
func NewWithLines(g *grammar.Grammar, root *Subtree, textLen uint32, lines *LineIndex) *Tree {
	return &Tree{grammar: g, root: root, textLen: textLen, lines: lines}
}

// Grammar returns the grammar the tree was parsed with.
func (t *Tree) Grammar() *grammar.Grammar { return t.grammar }

// Len returns the length in bytes of the text the tree was built against.
func (t *Tree) Len() uint32 { return t.textLen }

// Lines returns the tree's line-start index.
func (t *Tree) Lines() *LineIndex { return t.lines }

// RootSubtree returns the root's shared storage.
func (t *Tree) RootSubtree() *Subtree { return t.root }

// Root returns a handle to the root node. Its span always covers the whole
// text, malformed input included.
func (t *Tree) Root() Node {
	return Node{tree: t, d: t.root, start: 0, startPoint: Point{}}
}

// NodeAt returns the smallest node whose span contains the byte offset.
// Offsets at or past the end of the text resolve to the last leaf.
func (t *Tree) NodeAt(offset uint32) Node {
	if t.textLen > 0 && offset >= t.textLen {
		offset = t.textLen - 1
	}
	n := t.Root()
	for {
		child, ok := childAt(n, offset)
		if !ok {
			return n
		}
		n = child
	}
}

func childAt(n Node, offset uint32) (Node, bool) {
	start := n.start
	point := n.startPoint
	for _, c := range n.d.children {
		end := start + c.width
		if start <= offset && offset < end {
			return Node{tree: n.tree, d: c, start: start, startPoint: point}, true
		}
		start = end
		point = point.Add(c.extent)
	}
	return Node{}, false
}
