package tree

import "sort"

// LineIndex maps byte offsets to line/column points and back. It stores the
// byte offset of each line start; index 0 is always 0. An index is immutable;
// Update returns a new index recomputed only for the edited region.
type LineIndex struct {
	starts []uint32
}

// NewLineIndex scans text and records every line start.
func NewLineIndex(text []byte) *LineIndex {
	starts := []uint32{0}
	for i, b := range text {
		if b == '\n' {
			starts = append(starts, uint32(i)+1)
		}
	}
	return &LineIndex{starts: starts}
}

// LineCount returns the number of lines (trailing newline starts a line).
func (ix *LineIndex) LineCount() int {
	return len(ix.starts)
}

// LineStart returns the byte offset at which the given row begins. Rows past
// the end clamp to the last line.
func (ix *LineIndex) LineStart(row uint32) uint32 {
	if int(row) >= len(ix.starts) {
		return ix.starts[len(ix.starts)-1]
	}
	return ix.starts[row]
}

// PointFor translates a byte offset into a line/column point.
func (ix *LineIndex) PointFor(offset uint32) Point {
	row := sort.Search(len(ix.starts), func(i int) bool {
		return ix.starts[i] > offset
	}) - 1
	return Point{Row: uint32(row), Column: offset - ix.starts[row]}
}

// OffsetFor translates a point back into a byte offset. Rows past the end
// clamp to the last line start plus the column.
func (ix *LineIndex) OffsetFor(p Point) uint32 {
	return ix.LineStart(p.Row) + p.Column
}

// Update applies one edit and returns a new index. Line starts before the
// edit are kept, the replaced region of newText is rescanned, and starts
// after the old end are shifted by the edit's byte delta. The receiver is
// unchanged.
func (ix *LineIndex) Update(e Edit, newText []byte) *LineIndex {
	starts := make([]uint32, 0, len(ix.starts))
	for _, s := range ix.starts {
		if s <= e.StartByte {
			starts = append(starts, s)
		} else {
			break
		}
	}

	end := e.NewEndByte
	if end > uint32(len(newText)) {
		end = uint32(len(newText))
	}
	for i := e.StartByte; i < end; i++ {
		if newText[i] == '\n' {
			starts = append(starts, i+1)
		}
	}

	delta := e.Delta()
	for _, s := range ix.starts {
		// A start at offset s was produced by a newline at s-1, which
		// survives exactly when it sits at or past the old end.
		if s > e.OldEndByte {
			starts = append(starts, uint32(int64(s)+delta))
		}
	}

	return &LineIndex{starts: starts}
}
