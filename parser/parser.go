// Package parser turns text into syntax trees using a grammar's parse
// tables, and reconciles existing trees with edits so that unaffected
// subtrees are reused instead of rebuilt.
package parser

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/tree"
)

var (
	// ErrNilGrammar is returned when Parse or Reparse receives a nil grammar.
	ErrNilGrammar = errors.New("parser: nil grammar")
	// ErrNilTree is returned when Reparse receives a nil tree.
	ErrNilTree = errors.New("parser: nil tree")
	// ErrGrammarMismatch is returned when Reparse is given a tree that was
	// produced by a different grammar.
	ErrGrammarMismatch = errors.New("parser: tree was built with a different grammar")
)

// Number of consecutive zero-width token insertions recovery may attempt
// before it must consume input.
const missingBudget = 3

const defaultCancelInterval = 1024

type config struct {
	cancelInterval int
}

// Option adjusts parser behavior.
type Option func(*config)

// WithCancellationInterval sets how many automaton steps run between
// context cancellation checks.
func WithCancellationInterval(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.cancelInterval = n
		}
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{cancelInterval: defaultCancelInterval}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Parse builds a tree for text from scratch. The returned tree always spans
// the whole input, with error and missing nodes marking any malformed parts.
func Parse(ctx context.Context, g *grammar.Grammar, text []byte, opts ...Option) (*tree.Tree, error) {
	if g == nil {
		return nil, ErrNilGrammar
	}
	root, _, err := run(ctx, g, text, newConfig(opts), nil)
	if err != nil {
		return nil, err
	}
	return tree.New(g, root, text), nil
}

type stackEntry struct {
	state grammar.StateID
	node  *tree.Subtree
}

// runner executes the LR automaton over one text. When reuse is non-nil it
// consults the previous tree for subtrees that can stand in for lexing.
type runner struct {
	g     *grammar.Grammar
	text  []byte
	lx    *lexer
	cfg   *config
	reuse *reuseSession

	stack []stackEntry

	haveTok bool
	tok     token
	pending *tree.Subtree

	// examinedTo is the furthest absolute byte inspected on behalf of the
	// current lookahead. Reductions fold it into the new node's reach.
	examinedTo uint32

	// missingLeft bounds consecutive token insertions during recovery.
	missingLeft int

	// strayRecovery reports a recovery action outside the reconciler's
	// damage window, which means reuse may have diverged from a fresh parse.
	strayRecovery bool

	steps int
}

func run(ctx context.Context, g *grammar.Grammar, text []byte, cfg *config, reuse *reuseSession) (*tree.Subtree, bool, error) {
	r := &runner{
		g:           g,
		text:        text,
		lx:          newLexer(g, text),
		cfg:         cfg,
		reuse:       reuse,
		stack:       []stackEntry{{state: 0}},
		missingLeft: missingBudget,
	}
	root, err := r.loop(ctx)
	if err != nil {
		return nil, false, err
	}
	return root, r.strayRecovery, nil
}

func (r *runner) state() grammar.StateID { return r.stack[len(r.stack)-1].state }

func (r *runner) loop(ctx context.Context) (*tree.Subtree, error) {
	for {
		r.steps++
		if r.steps%r.cfg.cancelInterval == 0 && ctx != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		state := r.state()

		if !r.haveTok && r.pending == nil && r.reuse != nil {
			r.pending = r.reuse.candidate(r.lx.pos)
		}
		if r.pending != nil {
			if done := r.stepReuse(state); done {
				continue
			}
			// Fell all the way through to fresh lexing.
		}

		if !r.haveTok {
			r.tok = r.lx.next(state)
			r.haveTok = true
			r.examinedTo = r.tok.end() + r.tok.reach
		} else if r.tok.lexedWith != r.lx.startState(state) {
			// The lexical mode changed under a held lookahead.
			r.tok = r.lx.next(state)
			r.examinedTo = r.tok.end() + r.tok.reach
		}

		act, ok := resolve(r.g.ActionsFor(state, r.tok.sym))
		if !ok {
			if r.tok.sym != grammar.SymbolEnd && r.g.IsExtra(r.tok.sym) {
				r.shiftLeaf(state, state, false)
				continue
			}
			root, done := r.recover(state)
			if done {
				return root, nil
			}
			continue
		}

		switch act.Type {
		case grammar.ActionShift:
			r.shiftLeaf(state, act.State, false)
			r.missingLeft = missingBudget
		case grammar.ActionReduce:
			r.reduce(act)
		case grammar.ActionAccept:
			return r.finish(), nil
		}
	}
}

// stepReuse tries to advance using the pending old subtree. It returns true
// when the main loop should restart, false when the candidate was exhausted
// and the lookahead must be lexed fresh.
func (r *runner) stepReuse(state grammar.StateID) bool {
	for r.pending != nil {
		s := r.pending
		first := s.FirstLeaf()
		if first == nil {
			r.pending = nil
			return false
		}

		if state == s.FirstState() {
			if s.IsLeaf() && s.IsExtra() {
				r.pushReused(s, state)
				return true
			}
			if next, ok := shiftTarget(r.g, state, s.Symbol()); ok {
				r.pushReused(s, next)
				return true
			}
		}

		// A fresh parse at this point would see the subtree's first
		// terminal as lookahead; reductions driven by it are identical.
		if act, ok := resolve(r.g.ActionsFor(state, first.Symbol())); ok && act.Type == grammar.ActionReduce {
			r.examinedTo = r.lx.pos + first.Bytes() + first.Reach()
			r.reduce(act)
			return true
		}

		if s.IsLeaf() {
			r.pending = nil
			return false
		}
		child := s.Children()[0]
		if !r.reuse.usable(child, r.lx.pos) {
			r.pending = nil
			return false
		}
		r.pending = child
	}
	return false
}

func (r *runner) pushReused(s *tree.Subtree, next grammar.StateID) {
	r.stack = append(r.stack, stackEntry{state: next, node: s})
	r.lx.skip(s.Bytes(), s.Extent())
	r.pending = nil
	r.missingLeft = missingBudget
}

// shiftLeaf consumes the held token and pushes it as a leaf. lexedIn is the
// state whose lexical mode produced the token; next is the state to enter.
func (r *runner) shiftLeaf(lexedIn, next grammar.StateID, asError bool) {
	sym := r.tok.sym
	flagError := asError || sym == grammar.SymbolError
	leaf := tree.NewLeaf(tree.LeafSpec{
		Symbol:        sym,
		Named:         r.g.IsNamed(sym),
		Extra:         r.g.IsExtra(sym),
		Error:         flagError,
		Width:         r.tok.width,
		Extent:        r.tok.extent,
		Reach:         r.tok.reach,
		State:         lexedIn,
		ContextEffect: r.g.ContextEffect(sym),
	})
	r.lx.consume(r.tok)
	if !flagError {
		r.lx.applyContext(sym)
	}
	r.stack = append(r.stack, stackEntry{state: next, node: leaf})
	r.haveTok = false
}

// reduce pops the rule's children off the stack and pushes the new node.
// Extras and skipped error leaves between children are absorbed into the
// reduction without counting toward the rule length; ones on top of the
// stack stay outside it and reattach above the new node, so trailing
// whitespace binds to the enclosing construct.
func (r *runner) reduce(act grammar.Action) {
	var trailing []stackEntry
	for len(r.stack) > 1 && !countsAsChild(r.stack[len(r.stack)-1].node) {
		trailing = append(trailing, r.stack[len(r.stack)-1])
		r.stack = r.stack[:len(r.stack)-1]
	}

	var children []*tree.Subtree
	counted := 0
	for counted < int(act.ChildCount) && len(r.stack) > 1 {
		e := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]
		children = append([]*tree.Subtree{e.node}, children...)
		if countsAsChild(e.node) {
			counted++
		}
	}

	state := r.state()
	end := r.lx.pos
	for _, e := range trailing {
		end -= e.node.Bytes()
	}
	extraReach := uint32(0)
	if r.examinedTo > end {
		extraReach = r.examinedTo - end
	}
	node := tree.NewInternal(act.Symbol, r.g.IsNamed(act.Symbol), act.Rule, children, state, extraReach)

	next := state
	if g, ok := shiftTarget(r.g, state, act.Symbol); ok {
		next = g
	}
	r.stack = append(r.stack, stackEntry{state: next, node: node})
	for i := len(trailing) - 1; i >= 0; i-- {
		e := trailing[i]
		e.state = next
		r.stack = append(r.stack, e)
	}
}

func countsAsChild(s *tree.Subtree) bool {
	return !s.IsExtra() && !(s.IsError() && !s.IsMissing())
}

// recover handles a lookahead with no action. It first tries to synthesize a
// bounded number of zero-width missing tokens that would unblock the
// lookahead; failing that it skips the token as an error leaf. At end of
// input it wraps whatever remains on the stack into the root.
func (r *runner) recover(state grammar.StateID) (*tree.Subtree, bool) {
	r.noteRecovery()

	if r.missingLeft > 0 {
		if sym, next, ok := r.insertionCandidate(state); ok {
			leaf := tree.NewLeaf(tree.LeafSpec{
				Symbol:        sym,
				Named:         r.g.IsNamed(sym),
				Missing:       true,
				State:         state,
				ContextEffect: r.g.ContextEffect(sym),
			})
			r.lx.applyContext(sym)
			r.stack = append(r.stack, stackEntry{state: next, node: leaf})
			r.missingLeft--
			return nil, false
		}
	}

	if r.tok.sym == grammar.SymbolEnd {
		return r.finish(), true
	}

	r.shiftLeaf(state, state, true)
	r.missingLeft = missingBudget
	return nil, false
}

// insertionCandidate looks for a terminal the current state can shift whose
// target state has an action for the real lookahead. Symbols are tried in
// numeric order so recovery is deterministic.
func (r *runner) insertionCandidate(state grammar.StateID) (grammar.Symbol, grammar.StateID, bool) {
	actions := r.g.States[state].Actions
	syms := make([]grammar.Symbol, 0, len(actions))
	for sym := range actions {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })

	for _, sym := range syms {
		if sym == grammar.SymbolEnd || !r.g.IsTerminal(sym) || r.g.IsExtra(sym) {
			continue
		}
		next, ok := shiftTarget(r.g, state, sym)
		if !ok {
			continue
		}
		if _, ok := resolve(r.g.ActionsFor(next, r.tok.sym)); ok {
			return sym, next, true
		}
	}
	return 0, 0, false
}

// noteRecovery flags recovery actions outside the reconciler's damage
// window. Reuse decisions made before the recovery mean the automaton may
// not be in the state a fresh parse would be in, so the caller must widen
// the window and retry rather than trust the result.
func (r *runner) noteRecovery() {
	if r.reuse == nil {
		return
	}
	pos := r.tok.start
	if pos >= r.reuse.newStart && pos < r.reuse.newEnd {
		return
	}
	r.strayRecovery = true
}

// finish assembles the root node from whatever the stack holds. On a clean
// accept that is a single node of the root symbol, possibly surrounded by
// extras that get merged into it; anything else becomes an error root so the
// tree still covers the full input.
func (r *runner) finish() *tree.Subtree {
	nodes := make([]*tree.Subtree, 0, len(r.stack)-1)
	for _, e := range r.stack[1:] {
		nodes = append(nodes, e.node)
	}

	root := r.g.Root
	if len(nodes) == 1 && nodes[0].Symbol() == root {
		return nodes[0]
	}

	at := -1
	for i, n := range nodes {
		if n.Symbol() == root && countsAsChild(n) {
			if at >= 0 {
				at = -1
				break
			}
			at = i
		} else if countsAsChild(n) {
			at = -1
			break
		}
	}
	if at >= 0 {
		// Extras around the root node fold into it.
		merged := make([]*tree.Subtree, 0, len(nodes)-1+len(nodes[at].Children()))
		merged = append(merged, nodes[:at]...)
		merged = append(merged, nodes[at].Children()...)
		merged = append(merged, nodes[at+1:]...)
		return tree.NewInternal(root, r.g.IsNamed(root), nodes[at].Rule(), merged, nodes[at].FirstState(), 0)
	}

	if len(nodes) == 0 {
		return tree.NewInternal(root, r.g.IsNamed(root), 0, nil, 0, 0)
	}
	return tree.NewErrorNode(nodes, 0)
}

// shiftTarget returns the state entered by shifting sym in state. It serves
// both terminal shifts and the goto step after a reduction.
func shiftTarget(g *grammar.Grammar, state grammar.StateID, sym grammar.Symbol) (grammar.StateID, bool) {
	act, ok := resolve(g.ActionsFor(state, sym))
	if !ok || act.Type != grammar.ActionShift {
		return 0, false
	}
	return act.State, true
}

// resolve picks one action from a conflict set. Higher precedence wins; at
// equal precedence associativity chooses between shift and reduce (left
// reduces, right shifts); among reduces the lowest rule index wins.
func resolve(acts []grammar.Action) (grammar.Action, bool) {
	switch len(acts) {
	case 0:
		return grammar.Action{}, false
	case 1:
		return acts[0], true
	}
	best := acts[0]
	for _, a := range acts[1:] {
		if a.Precedence > best.Precedence {
			best = a
			continue
		}
		if a.Precedence < best.Precedence {
			continue
		}
		if a.Type != best.Type {
			red, shf := a, best
			if red.Type != grammar.ActionReduce {
				red, shf = best, a
			}
			switch red.Assoc {
			case grammar.AssocLeft:
				best = red
			case grammar.AssocRight:
				best = shf
			default:
				best = shf
			}
			continue
		}
		if a.Type == grammar.ActionReduce && a.Rule < best.Rule {
			best = a
		}
	}
	return best, true
}

func validateEdits(old *tree.Tree, edits []tree.Edit, newLen int) error {
	expect := int64(old.Len())
	for i, e := range edits {
		if e.OldEndByte < e.StartByte || e.NewEndByte < e.StartByte {
			return fmt.Errorf("parser: edit %d has end before start", i)
		}
		expect += e.Delta()
	}
	if expect != int64(newLen) {
		return fmt.Errorf("parser: edits produce text of %d bytes, got %d", expect, newLen)
	}
	return nil
}
