package tree

import (
	"fmt"

	"github.com/dhamidi/arbor/grammar"
)

type nodeFlags uint8

const (
	flagNamed nodeFlags = 1 << iota
	flagError
	flagMissing
	flagExtra
	flagSubtreeError // an error or missing node occurs somewhere beneath
)

// Subtree is the shared storage behind syntax nodes. Subtrees record extents
// (byte widths and row/column deltas) rather than absolute positions, so a
// subtree is position-independent: reconciliation can splice the same storage
// into a new tree at a shifted offset without copying. Subtrees are immutable
// after construction and safe for unsynchronized concurrent reads.
type Subtree struct {
	symbol grammar.Symbol
	flags  nodeFlags
	rule   uint16

	width  uint32 // byte extent
	extent Point  // row/column extent

	// reach is how many bytes past the subtree's end were examined while it
	// was built: lexer lookahead plus the pending token of any reduction
	// that closed it. Reuse is only safe when [start, end+reach) avoids the
	// edited region.
	reach uint32

	// firstState is the parse state the parser was in at this subtree's
	// first byte. Reuse requires the reparse to arrive in the same state,
	// which makes splicing equivalent to replaying the original parse.
	firstState grammar.StateID

	// Lexer context stack effect: total delta and minimum running prefix of
	// the push/pop tokens beneath this subtree.
	ctxDelta int16
	ctxMin   int16

	children []*Subtree
}

// LeafSpec describes a token leaf to construct.
type LeafSpec struct {
	Symbol        grammar.Symbol
	Named         bool
	Extra         bool
	Error         bool
	Missing       bool
	Width         uint32
	Extent        Point
	Reach         uint32
	State         grammar.StateID
	ContextEffect int // +1 push, -1 pop, 0 neutral
}

// NewLeaf constructs a leaf subtree from a token.
func NewLeaf(spec LeafSpec) *Subtree {
	s := &Subtree{
		symbol:     spec.Symbol,
		width:      spec.Width,
		extent:     spec.Extent,
		reach:      spec.Reach,
		firstState: spec.State,
	}
	if spec.Named {
		s.flags |= flagNamed
	}
	if spec.Extra {
		s.flags |= flagExtra
	}
	if spec.Error {
		s.flags |= flagError | flagSubtreeError
	}
	if spec.Missing {
		s.flags |= flagMissing | flagSubtreeError
	}
	switch {
	case spec.ContextEffect > 0:
		s.ctxDelta, s.ctxMin = 1, 1
	case spec.ContextEffect < 0:
		s.ctxDelta, s.ctxMin = -1, -1
	}
	return s
}

// NewInternal constructs an interior subtree from ordered children. state is
// used as the first-byte parse state when the node has no children (empty
// productions). extraReach extends the recorded lookahead reach past the
// node's end, covering the token that triggered the closing reduction.
func NewInternal(sym grammar.Symbol, named bool, rule uint16, children []*Subtree, state grammar.StateID, extraReach uint32) *Subtree {
	s := &Subtree{
		symbol:     sym,
		rule:       rule,
		firstState: state,
		children:   children,
	}
	if named {
		s.flags |= flagNamed
	}

	var width uint32
	extent := Point{}
	var reach uint32
	var delta, minPrefix int16
	first := true
	for _, c := range children {
		if first {
			s.firstState = c.firstState
			first = false
		}
		if m := delta + c.ctxMin; m < minPrefix {
			minPrefix = m
		}
		delta += c.ctxDelta
		end := width + c.width
		if r := end + c.reach; r > reach {
			reach = r
		}
		width = end
		extent = extent.Add(c.extent)
		if c.flags&(flagError|flagMissing|flagSubtreeError) != 0 {
			s.flags |= flagSubtreeError
		}
	}
	s.width = width
	s.extent = extent
	if reach > width {
		s.reach = reach - width
	}
	if extraReach > s.reach {
		s.reach = extraReach
	}
	s.ctxDelta = delta
	s.ctxMin = minPrefix
	return s
}

// NewErrorNode wraps children produced during recovery in an error subtree.
func NewErrorNode(children []*Subtree, state grammar.StateID) *Subtree {
	s := NewInternal(grammar.SymbolError, true, 0, children, state, 0)
	s.flags |= flagError | flagSubtreeError
	return s
}

// Symbol returns the grammar symbol of this subtree.
func (s *Subtree) Symbol() grammar.Symbol { return s.symbol }

// Bytes returns the byte extent.
func (s *Subtree) Bytes() uint32 { return s.width }

// Extent returns the row/column extent.
func (s *Subtree) Extent() Point { return s.extent }

// Reach returns the recorded lookahead reach past the subtree's end.
func (s *Subtree) Reach() uint32 { return s.reach }

// FirstState returns the parse state at the subtree's first byte.
func (s *Subtree) FirstState() grammar.StateID { return s.firstState }

// Rule returns the production index that built this subtree (interior nodes).
func (s *Subtree) Rule() uint16 { return s.rule }

// Children returns the ordered child subtrees. The returned slice is shared
// storage; callers must not modify it.
func (s *Subtree) Children() []*Subtree { return s.children }

// IsLeaf reports whether the subtree is a token leaf.
func (s *Subtree) IsLeaf() bool { return len(s.children) == 0 }

// IsNamed reports whether the node is a named node.
func (s *Subtree) IsNamed() bool { return s.flags&flagNamed != 0 }

// IsExtra reports whether the node is an extra (whitespace-class) token.
func (s *Subtree) IsExtra() bool { return s.flags&flagExtra != 0 }

// IsError reports whether the node itself was produced by error recovery.
func (s *Subtree) IsError() bool { return s.flags&flagError != 0 }

// IsMissing reports whether the node is a synthesized missing token.
func (s *Subtree) IsMissing() bool { return s.flags&flagMissing != 0 }

// HasError reports whether this subtree or any descendant carries an error
// or missing flag.
func (s *Subtree) HasError() bool {
	return s.flags&(flagError|flagMissing|flagSubtreeError) != 0
}

// ContextNeutral reports whether the subtree's lexer context effect is
// self-contained: it pushes and pops contexts in balanced pairs and never
// pops below its own floor. Only context-neutral subtrees may be reused
// across reparses.
func (s *Subtree) ContextNeutral() bool {
	return s.ctxDelta == 0 && s.ctxMin >= 0
}

// FirstLeaf returns the leftmost leaf beneath the subtree, or the subtree
// itself when it is a leaf. Returns nil for childless interior nodes of an
// empty production.
func (s *Subtree) FirstLeaf() *Subtree {
	for len(s.children) > 0 {
		s = s.children[0]
	}
	return s
}

// Node is a handle to one syntax node: shared subtree storage plus the
// absolute position accumulated while descending from the root. The zero
// Node is invalid; check Valid before use.
type Node struct {
	tree       *Tree
	d          *Subtree
	start      uint32
	startPoint Point
}

// Valid reports whether the handle refers to a node.
func (n Node) Valid() bool { return n.d != nil }

// Subtree exposes the node's underlying storage. Two nodes from different
// trees share storage exactly when their Subtrees are the same pointer.
func (n Node) Subtree() *Subtree { return n.d }

// Tree returns the tree this handle belongs to.
func (n Node) Tree() *Tree { return n.tree }

// Symbol returns the node's grammar symbol.
func (n Node) Symbol() grammar.Symbol { return n.d.symbol }

// Kind returns the declared name of the node's symbol.
func (n Node) Kind() string { return n.tree.grammar.SymbolName(n.d.symbol) }

// StartByte returns the absolute byte offset of the node's first byte.
func (n Node) StartByte() uint32 { return n.start }

// EndByte returns the absolute byte offset one past the node's last byte.
func (n Node) EndByte() uint32 { return n.start + n.d.width }

// StartPoint returns the node's starting line/column position.
func (n Node) StartPoint() Point { return n.startPoint }

// EndPoint returns the node's ending line/column position.
func (n Node) EndPoint() Point { return n.startPoint.Add(n.d.extent) }

// Span returns the node's byte and point span.
func (n Node) Span() Span {
	return Span{
		StartByte:  n.start,
		EndByte:    n.EndByte(),
		StartPoint: n.startPoint,
		EndPoint:   n.EndPoint(),
	}
}

// IsNamed reports whether the node is a named node.
func (n Node) IsNamed() bool { return n.d.IsNamed() }

// IsExtra reports whether the node is an extra token.
func (n Node) IsExtra() bool { return n.d.IsExtra() }

// IsError reports whether the node was produced by error recovery.
func (n Node) IsError() bool { return n.d.IsError() }

// IsMissing reports whether the node is a synthesized missing token.
func (n Node) IsMissing() bool { return n.d.IsMissing() }

// HasError reports whether the node's subtree contains any error or missing
// node.
func (n Node) HasError() bool { return n.d.HasError() }

// IsLeaf reports whether the node is a token leaf.
func (n Node) IsLeaf() bool { return len(n.d.children) == 0 }

// ChildCount returns the number of children, extras included.
func (n Node) ChildCount() int { return len(n.d.children) }

// Child returns the i-th child, extras included.
func (n Node) Child(i int) Node {
	if i < 0 || i >= len(n.d.children) {
		return Node{}
	}
	start := n.start
	point := n.startPoint
	for j := 0; j < i; j++ {
		c := n.d.children[j]
		start += c.width
		point = point.Add(c.extent)
	}
	return Node{tree: n.tree, d: n.d.children[i], start: start, startPoint: point}
}

// Children returns all children in source order.
func (n Node) Children() []Node {
	out := make([]Node, 0, len(n.d.children))
	start := n.start
	point := n.startPoint
	for _, c := range n.d.children {
		out = append(out, Node{tree: n.tree, d: c, start: start, startPoint: point})
		start += c.width
		point = point.Add(c.extent)
	}
	return out
}

// NamedChildCount returns the number of named children.
func (n Node) NamedChildCount() int {
	count := 0
	for _, c := range n.d.children {
		if c.IsNamed() {
			count++
		}
	}
	return count
}

// NamedChild returns the i-th named child.
func (n Node) NamedChild(i int) Node {
	seen := 0
	start := n.start
	point := n.startPoint
	for _, c := range n.d.children {
		if c.IsNamed() {
			if seen == i {
				return Node{tree: n.tree, d: c, start: start, startPoint: point}
			}
			seen++
		}
		start += c.width
		point = point.Add(c.extent)
	}
	return Node{}
}

// NamedChildren returns the named children in source order.
func (n Node) NamedChildren() []Node {
	var out []Node
	start := n.start
	point := n.startPoint
	for _, c := range n.d.children {
		if c.IsNamed() {
			out = append(out, Node{tree: n.tree, d: c, start: start, startPoint: point})
		}
		start += c.width
		point = point.Add(c.extent)
	}
	return out
}

// FirstChildOfKind returns the first child whose symbol name is kind, or an
// invalid Node.
func (n Node) FirstChildOfKind(kind string) Node {
	start := n.start
	point := n.startPoint
	for _, c := range n.d.children {
		if n.tree.grammar.SymbolName(c.symbol) == kind {
			return Node{tree: n.tree, d: c, start: start, startPoint: point}
		}
		start += c.width
		point = point.Add(c.extent)
	}
	return Node{}
}

// Parent returns the node's parent, or an invalid Node for the root. The
// lookup descends from the root guided by the node's span.
func (n Node) Parent() Node {
	root := n.tree.Root()
	if root.d == n.d && root.start == n.start {
		return Node{}
	}
	return findParent(root, n)
}

func findParent(candidate Node, target Node) Node {
	start := candidate.start
	point := candidate.startPoint
	for _, c := range candidate.d.children {
		child := Node{tree: candidate.tree, d: c, start: start, startPoint: point}
		if c == target.d && start == target.start {
			return candidate
		}
		if start <= target.start && target.start+target.d.width <= start+c.width {
			if found := findParent(child, target); found.Valid() {
				return found
			}
		}
		start += c.width
		point = point.Add(c.extent)
	}
	return Node{}
}

// NextSibling returns the node following this one under the same parent.
func (n Node) NextSibling() Node {
	parent := n.Parent()
	if !parent.Valid() {
		return Node{}
	}
	siblings := parent.Children()
	for i, sib := range siblings {
		if sib.d == n.d && sib.start == n.start && i+1 < len(siblings) {
			return siblings[i+1]
		}
	}
	return Node{}
}

// PrevSibling returns the node preceding this one under the same parent.
func (n Node) PrevSibling() Node {
	parent := n.Parent()
	if !parent.Valid() {
		return Node{}
	}
	siblings := parent.Children()
	for i, sib := range siblings {
		if sib.d == n.d && sib.start == n.start && i > 0 {
			return siblings[i-1]
		}
	}
	return Node{}
}

// String renders the node as its kind and byte range.
func (n Node) String() string {
	if !n.Valid() {
		return "(invalid)"
	}
	return fmt.Sprintf("(%s [%d, %d))", n.Kind(), n.StartByte(), n.EndByte())
}

// Walk visits n and its descendants in depth-first preorder. Returning false
// from visit skips the node's children.
func Walk(n Node, visit func(Node) bool) {
	if !n.Valid() {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, visit)
	}
}
