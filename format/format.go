// Package format renders syntax trees for humans and tools.
package format

import "github.com/dhamidi/arbor/tree"

type Encoder interface {
	Encode(node tree.Node) error
}
