package parser

import (
	"context"

	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/tree"
)

// Reparse builds a tree for newText, reusing subtrees of old that the edits
// could not have affected. edits describe how old's text became newText, in
// order, each in the coordinates left by the previous one, and must account
// for every byte that differs: an empty batch asserts newText is identical
// to the old text and returns the old root over it without reparsing. The
// result is structurally identical to what Parse would produce for newText.
func Reparse(ctx context.Context, g *grammar.Grammar, old *tree.Tree, edits []tree.Edit, newText []byte, opts ...Option) (*tree.Tree, error) {
	if g == nil {
		return nil, ErrNilGrammar
	}
	if old == nil {
		return nil, ErrNilTree
	}
	if old.Grammar() != g {
		return nil, ErrGrammarMismatch
	}
	if err := validateEdits(old, edits, len(newText)); err != nil {
		return nil, err
	}
	cfg := newConfig(opts)
	lines := linesAfter(old, edits, newText)

	if len(edits) == 0 {
		return tree.NewWithLines(g, old.RootSubtree(), uint32(len(newText)), lines), nil
	}

	dmg := foldEdits(edits)
	newStart, newEnd := dmg.start, dmg.end

	for {
		full := newStart == 0 && int(newEnd) >= len(newText)
		var rs *reuseSession
		if !full {
			oldEnd := int64(newEnd) - dmg.delta
			if oldEnd < 0 {
				oldEnd = 0
			}
			if oldEnd > int64(old.Len()) {
				oldEnd = int64(old.Len())
			}
			rs = &reuseSession{
				old:      old,
				oldStart: newStart,
				oldEnd:   uint32(oldEnd),
				newStart: newStart,
				newEnd:   newEnd,
				delta:    dmg.delta,
			}
		}

		root, stray, err := run(ctx, g, newText, cfg, rs)
		if err != nil {
			return nil, err
		}
		if full || !stray {
			return tree.NewWithLines(g, root, uint32(len(newText)), lines), nil
		}

		// Recovery fired outside the damage window, so reuse may have
		// steered the automaton away from what a fresh parse does there.
		// Widen the window and try again; in the worst case it covers
		// everything and we fall back to a full parse.
		grow := newEnd - newStart
		if grow < 64 {
			grow = 64
		}
		if newStart > grow {
			newStart -= grow
		} else {
			newStart = 0
		}
		if int(newEnd)+int(grow) >= len(newText) {
			newEnd = uint32(len(newText))
		} else {
			newEnd += grow
		}
	}
}

func linesAfter(old *tree.Tree, edits []tree.Edit, newText []byte) *tree.LineIndex {
	switch len(edits) {
	case 0:
		return old.Lines()
	case 1:
		return old.Lines().Update(edits[0], newText)
	default:
		// Intermediate texts are not available, so rebuild from scratch.
		return tree.NewLineIndex(newText)
	}
}

// damage is the folded extent of an edit batch in the coordinates of the
// final text, plus the total size change.
type damage struct {
	start, end uint32
	delta      int64
}

func foldEdits(edits []tree.Edit) damage {
	d := damage{
		start: edits[0].StartByte,
		end:   edits[0].NewEndByte,
		delta: edits[0].Delta(),
	}
	for _, e := range edits[1:] {
		if e.StartByte < d.start {
			d.start = e.StartByte
		}
		end := d.end
		if end > e.StartByte {
			if end <= e.OldEndByte {
				end = e.NewEndByte
			} else {
				end = uint32(int64(end) + e.Delta())
			}
		}
		if e.NewEndByte > end {
			end = e.NewEndByte
		}
		d.end = end
		d.delta += e.Delta()
	}
	return d
}

// reuseSession maps positions in the new text back into the old tree and
// hands out subtrees that are safe to splice into the new parse.
type reuseSession struct {
	old *tree.Tree

	// Damaged span in old text coordinates.
	oldStart, oldEnd uint32
	// The same span in new text coordinates.
	newStart, newEnd uint32

	delta int64
}

// mapToOld translates a new-text position to the old text. Positions inside
// the damage window have no old equivalent.
func (rs *reuseSession) mapToOld(p uint32) (uint32, bool) {
	if p < rs.newStart {
		return p, true
	}
	if p >= rs.newEnd {
		o := int64(p) - rs.delta
		if o >= int64(rs.oldEnd) && o <= int64(rs.old.Len()) {
			return uint32(o), true
		}
	}
	return 0, false
}

// candidate returns the largest reusable old subtree starting exactly at the
// given new-text position, or nil.
func (rs *reuseSession) candidate(newPos uint32) *tree.Subtree {
	oldPos, ok := rs.mapToOld(newPos)
	if !ok {
		return nil
	}
	d := rs.old.RootSubtree()
	start := uint32(0)
	for d != nil {
		if start == oldPos && rs.safe(d, oldPos) {
			return d
		}
		if d.IsLeaf() {
			return nil
		}
		next := (*tree.Subtree)(nil)
		cs := start
		for _, c := range d.Children() {
			w := c.Bytes()
			if oldPos < cs+w {
				next = c
				start = cs
				break
			}
			cs += w
		}
		if next == nil {
			return nil
		}
		d = next
	}
	return nil
}

// usable reports whether a subtree sitting at newPos may be spliced in.
// It re-checks the damage guard for children produced by breaking a larger
// candidate down.
func (rs *reuseSession) usable(s *tree.Subtree, newPos uint32) bool {
	oldPos, ok := rs.mapToOld(newPos)
	if !ok {
		return false
	}
	return rs.safe(s, oldPos)
}

func (rs *reuseSession) safe(s *tree.Subtree, oldPos uint32) bool {
	if s.Bytes() == 0 || s.HasError() || !s.ContextNeutral() {
		return false
	}
	hi := oldPos + s.Bytes() + s.Reach()
	return hi <= rs.oldStart || oldPos >= rs.oldEnd
}
