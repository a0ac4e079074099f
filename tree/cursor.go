package tree

// Cursor traverses a tree while tracking absolute positions, making
// repeated navigation cheaper than recomputing node handles from the root.
// A cursor is read-only; any number of cursors may walk the same tree
// concurrently. A cursor is not safe for concurrent use itself.
type Cursor struct {
	tree  *Tree
	stack []cursorEntry
}

type cursorEntry struct {
	d          *Subtree
	start      uint32
	startPoint Point
	index      int // position within the parent's children
}

// Walk returns a cursor positioned at the root.
func (t *Tree) Walk() *Cursor {
	return &Cursor{
		tree:  t,
		stack: []cursorEntry{{d: t.root}},
	}
}

// Node returns a handle to the cursor's current node.
func (c *Cursor) Node() Node {
	top := c.stack[len(c.stack)-1]
	return Node{tree: c.tree, d: top.d, start: top.start, startPoint: top.startPoint}
}

// Reset moves the cursor back to the root.
func (c *Cursor) Reset() {
	c.stack = c.stack[:1]
	c.stack[0] = cursorEntry{d: c.tree.root}
}

// GotoFirstChild descends to the current node's first child.
func (c *Cursor) GotoFirstChild() bool {
	top := c.stack[len(c.stack)-1]
	if len(top.d.children) == 0 {
		return false
	}
	c.stack = append(c.stack, cursorEntry{
		d:          top.d.children[0],
		start:      top.start,
		startPoint: top.startPoint,
	})
	return true
}

// GotoNextSibling moves to the next child of the current node's parent.
func (c *Cursor) GotoNextSibling() bool {
	if len(c.stack) < 2 {
		return false
	}
	top := c.stack[len(c.stack)-1]
	parent := c.stack[len(c.stack)-2]
	next := top.index + 1
	if next >= len(parent.d.children) {
		return false
	}
	c.stack[len(c.stack)-1] = cursorEntry{
		d:          parent.d.children[next],
		start:      top.start + top.d.width,
		startPoint: top.startPoint.Add(top.d.extent),
		index:      next,
	}
	return true
}

// GotoParent ascends to the current node's parent.
func (c *Cursor) GotoParent() bool {
	if len(c.stack) < 2 {
		return false
	}
	c.stack = c.stack[:len(c.stack)-1]
	return true
}

// GotoFirstChildForByte descends to the first child whose span extends past
// the byte offset. Reports false when the node has no such child.
func (c *Cursor) GotoFirstChildForByte(offset uint32) bool {
	top := c.stack[len(c.stack)-1]
	start := top.start
	point := top.startPoint
	for i, child := range top.d.children {
		end := start + child.width
		if end > offset {
			c.stack = append(c.stack, cursorEntry{
				d:          child,
				start:      start,
				startPoint: point,
				index:      i,
			})
			return true
		}
		start = end
		point = point.Add(child.extent)
	}
	return false
}

// Descend positions the cursor at the smallest node containing the byte
// offset, descending from the current node.
func (c *Cursor) Descend(offset uint32) Node {
	for {
		top := c.stack[len(c.stack)-1]
		start := top.start
		point := top.startPoint
		moved := false
		for i, child := range top.d.children {
			end := start + child.width
			if start <= offset && offset < end {
				c.stack = append(c.stack, cursorEntry{
					d:          child,
					start:      start,
					startPoint: point,
					index:      i,
				})
				moved = true
				break
			}
			start = end
			point = point.Add(child.extent)
		}
		if !moved {
			return c.Node()
		}
	}
}
