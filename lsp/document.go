package lsp

import (
	"context"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/parser"
	"github.com/dhamidi/arbor/tree"
)

type document struct {
	text []byte
	tree *tree.Tree
}

// applyIncremental splices one range change into the document and
// reconciles the tree with it.
func (d *document) applyIncremental(g *grammar.Grammar, change protocol.TextDocumentContentChangeEvent) error {
	if change.Range == nil {
		return d.replaceAll(g, []byte(change.Text))
	}

	lines := d.tree.Lines()
	startPoint := tree.Point{Row: change.Range.Start.Line, Column: change.Range.Start.Character}
	oldEndPoint := tree.Point{Row: change.Range.End.Line, Column: change.Range.End.Character}
	start := lines.OffsetFor(startPoint)
	oldEnd := lines.OffsetFor(oldEndPoint)
	if oldEnd < start {
		oldEnd = start
	}

	inserted := []byte(change.Text)
	edit := tree.Edit{
		StartByte:   start,
		OldEndByte:  oldEnd,
		NewEndByte:  start + uint32(len(inserted)),
		StartPoint:  startPoint,
		OldEndPoint: oldEndPoint,
		NewEndPoint: startPoint.Add(tree.ExtentOf(inserted)),
	}

	newText := make([]byte, 0, len(d.text)+len(inserted)-int(oldEnd-start))
	newText = append(newText, d.text[:start]...)
	newText = append(newText, inserted...)
	newText = append(newText, d.text[oldEnd:]...)

	t, err := parser.Reparse(context.Background(), g, d.tree, []tree.Edit{edit}, newText)
	if err != nil {
		return err
	}
	d.text = newText
	d.tree = t
	return nil
}

func (d *document) replaceAll(g *grammar.Grammar, text []byte) error {
	t, err := parser.Parse(context.Background(), g, text)
	if err != nil {
		return err
	}
	d.text = text
	d.tree = t
	return nil
}

// documentStore holds open documents keyed by URI. Handlers run on the
// server's dispatch goroutine but diagnostics reads may not, so access is
// locked.
type documentStore struct {
	mu   sync.RWMutex
	docs map[string]*document
}

func newDocumentStore() *documentStore {
	return &documentStore{docs: map[string]*document{}}
}

func (s *documentStore) get(uri string) *document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

func (s *documentStore) put(uri string, doc *document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = doc
}

func (s *documentStore) delete(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

func (s *documentStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = map[string]*document{}
}
