package minipy

import (
	"fmt"
	"sort"

	"github.com/dhamidi/arbor/grammar"
)

// prod is one production of the bundled grammar. The parse tables are
// derived from the production list once, at first use; conflicts from the
// deliberately ambiguous expression rules are kept in the tables as
// alternative actions and settled by the parser's precedence resolution.
type prod struct {
	lhs   grammar.Symbol
	rhs   []grammar.Symbol
	prec  int16
	assoc grammar.Assoc
}

type item struct {
	prod int
	dot  int
}

type builder struct {
	prods     []prod // index 0 is the augmented start production
	terminals int    // symbols below this value are terminals
	tokenPrec map[grammar.Symbol]int16

	nullable map[grammar.Symbol]bool
	first    map[grammar.Symbol]map[grammar.Symbol]bool
	follow   map[grammar.Symbol]map[grammar.Symbol]bool

	states []map[item]bool
	keys   map[string]int
}

func buildStates(prods []prod, terminals int, tokenPrec map[grammar.Symbol]int16) ([]grammar.State, []grammar.Rule) {
	b := &builder{
		prods:     prods,
		terminals: terminals,
		tokenPrec: tokenPrec,
		keys:      map[string]int{},
	}
	b.computeNullable()
	b.computeFirst()
	b.computeFollow()
	b.computeStates()
	return b.actions(), b.rules()
}

func (b *builder) isTerminal(s grammar.Symbol) bool { return int(s) < b.terminals }

func (b *builder) computeNullable() {
	b.nullable = map[grammar.Symbol]bool{}
	for changed := true; changed; {
		changed = false
		for _, p := range b.prods {
			if b.nullable[p.lhs] {
				continue
			}
			all := true
			for _, s := range p.rhs {
				if b.isTerminal(s) || !b.nullable[s] {
					all = false
					break
				}
			}
			if all {
				b.nullable[p.lhs] = true
				changed = true
			}
		}
	}
}

func (b *builder) computeFirst() {
	b.first = map[grammar.Symbol]map[grammar.Symbol]bool{}
	add := func(s grammar.Symbol) map[grammar.Symbol]bool {
		if b.first[s] == nil {
			b.first[s] = map[grammar.Symbol]bool{}
		}
		return b.first[s]
	}
	for changed := true; changed; {
		changed = false
		for _, p := range b.prods {
			set := add(p.lhs)
			for _, s := range p.rhs {
				if b.isTerminal(s) {
					if !set[s] {
						set[s] = true
						changed = true
					}
					break
				}
				for t := range b.first[s] {
					if !set[t] {
						set[t] = true
						changed = true
					}
				}
				if !b.nullable[s] {
					break
				}
			}
		}
	}
}

func (b *builder) computeFollow() {
	b.follow = map[grammar.Symbol]map[grammar.Symbol]bool{}
	add := func(s grammar.Symbol) map[grammar.Symbol]bool {
		if b.follow[s] == nil {
			b.follow[s] = map[grammar.Symbol]bool{}
		}
		return b.follow[s]
	}
	add(b.prods[0].lhs)[grammar.SymbolEnd] = true
	add(b.prods[0].rhs[0])[grammar.SymbolEnd] = true
	for changed := true; changed; {
		changed = false
		for _, p := range b.prods {
			for i, s := range p.rhs {
				if b.isTerminal(s) {
					continue
				}
				set := add(s)
				tail := true
				for _, t := range p.rhs[i+1:] {
					if b.isTerminal(t) {
						if !set[t] {
							set[t] = true
							changed = true
						}
						tail = false
						break
					}
					for u := range b.first[t] {
						if !set[u] {
							set[u] = true
							changed = true
						}
					}
					if !b.nullable[t] {
						tail = false
						break
					}
				}
				if tail {
					for u := range b.follow[p.lhs] {
						if !set[u] {
							set[u] = true
							changed = true
						}
					}
				}
			}
		}
	}
}

func (b *builder) closure(set map[item]bool) map[item]bool {
	work := make([]item, 0, len(set))
	for it := range set {
		work = append(work, it)
	}
	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]
		rhs := b.prods[it.prod].rhs
		if it.dot >= len(rhs) {
			continue
		}
		next := rhs[it.dot]
		if b.isTerminal(next) {
			continue
		}
		for pi, p := range b.prods {
			if p.lhs != next {
				continue
			}
			ni := item{prod: pi}
			if !set[ni] {
				set[ni] = true
				work = append(work, ni)
			}
		}
	}
	return set
}

func stateKey(set map[item]bool) string {
	items := make([]item, 0, len(set))
	for it := range set {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].prod != items[j].prod {
			return items[i].prod < items[j].prod
		}
		return items[i].dot < items[j].dot
	})
	key := ""
	for _, it := range items {
		key += fmt.Sprintf("%d.%d;", it.prod, it.dot)
	}
	return key
}

// intern returns the state index for an item set, adding it if new.
func (b *builder) intern(set map[item]bool) int {
	key := stateKey(set)
	if idx, ok := b.keys[key]; ok {
		return idx
	}
	idx := len(b.states)
	b.states = append(b.states, set)
	b.keys[key] = idx
	return idx
}

func (b *builder) gotoSet(from map[item]bool, on grammar.Symbol) map[item]bool {
	next := map[item]bool{}
	for it := range from {
		rhs := b.prods[it.prod].rhs
		if it.dot < len(rhs) && rhs[it.dot] == on {
			next[item{prod: it.prod, dot: it.dot + 1}] = true
		}
	}
	if len(next) == 0 {
		return nil
	}
	return b.closure(next)
}

func (b *builder) computeStates() {
	b.intern(b.closure(map[item]bool{{prod: 0}: true}))
	for i := 0; i < len(b.states); i++ {
		for _, s := range b.transitionSymbols(i) {
			if next := b.gotoSet(b.states[i], s); next != nil {
				b.intern(next)
			}
		}
	}
}

// transitionSymbols lists the symbols with an outgoing edge from a state,
// in numeric order so state numbering is deterministic.
func (b *builder) transitionSymbols(idx int) []grammar.Symbol {
	seen := map[grammar.Symbol]bool{}
	for it := range b.states[idx] {
		rhs := b.prods[it.prod].rhs
		if it.dot < len(rhs) {
			seen[rhs[it.dot]] = true
		}
	}
	syms := make([]grammar.Symbol, 0, len(seen))
	for s := range seen {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	return syms
}

func (b *builder) actions() []grammar.State {
	states := make([]grammar.State, len(b.states))
	for i, set := range b.states {
		actions := map[grammar.Symbol][]grammar.Action{}

		for _, s := range b.transitionSymbols(i) {
			target := b.keys[stateKey(b.gotoSet(set, s))]
			act := grammar.Action{
				Type:       grammar.ActionShift,
				State:      grammar.StateID(target),
				Precedence: b.tokenPrec[s],
			}
			actions[s] = append(actions[s], act)
		}

		items := make([]item, 0, len(set))
		for it := range set {
			items = append(items, it)
		}
		sort.Slice(items, func(x, y int) bool { return items[x].prod < items[y].prod })

		for _, it := range items {
			p := b.prods[it.prod]
			if it.dot < len(p.rhs) {
				continue
			}
			if it.prod == 0 {
				actions[grammar.SymbolEnd] = append(actions[grammar.SymbolEnd], grammar.Action{Type: grammar.ActionAccept})
				continue
			}
			red := grammar.Action{
				Type:       grammar.ActionReduce,
				Symbol:     p.lhs,
				ChildCount: uint8(len(p.rhs)),
				Rule:       uint16(it.prod - 1),
				Precedence: p.prec,
				Assoc:      p.assoc,
			}
			lookaheads := make([]grammar.Symbol, 0, len(b.follow[p.lhs]))
			for la := range b.follow[p.lhs] {
				lookaheads = append(lookaheads, la)
			}
			sort.Slice(lookaheads, func(x, y int) bool { return lookaheads[x] < lookaheads[y] })
			for _, la := range lookaheads {
				actions[la] = append(actions[la], red)
			}
		}

		states[i] = grammar.State{Actions: actions}
	}
	return states
}

func (b *builder) rules() []grammar.Rule {
	rules := make([]grammar.Rule, len(b.prods)-1)
	for i, p := range b.prods[1:] {
		rules[i] = grammar.Rule{Symbol: p.lhs, Length: uint8(len(p.rhs))}
	}
	return rules
}
