// Package grammar defines the immutable parse-table representation consumed
// by the parser. A Grammar bundles symbol metadata, the shift/reduce action
// table, the lexer DFA, and the lexical contexts used for mode-sensitive
// tokenization. Grammars are produced externally (by a grammar compiler) and
// loaded either from an embedded generated artifact or from a JSON file; the
// engine never constructs tables itself and never mutates one after loading.
package grammar

import "fmt"

// Symbol identifies a grammar symbol: a token kind or a rule name.
type Symbol uint16

const (
	// SymbolEnd is the end-of-input marker. Index 0 is reserved for it in
	// every grammar.
	SymbolEnd Symbol = 0

	// SymbolError is the synthetic symbol for unlexable input and skipped
	// tokens. It never appears in the tables.
	SymbolError Symbol = 0xFFFF
)

// StateID is an index into Grammar.States.
type StateID uint16

// ContextID is an index into Grammar.Contexts.
type ContextID uint8

// ActionType identifies the kind of parse action.
type ActionType uint8

const (
	ActionShift ActionType = iota
	ActionReduce
	ActionAccept
)

// Assoc is the declared associativity of a reduce action, used to break
// shift/reduce ties of equal precedence.
type Assoc uint8

const (
	AssocNone Assoc = iota
	AssocLeft
	AssocRight
)

// Action is one entry in a parse-table cell. A cell may hold several actions;
// the parser resolves the conflict using Precedence, Assoc, and Rule order,
// all of which are table data rather than engine policy.
type Action struct {
	Type       ActionType
	State      StateID // shift/goto target
	Symbol     Symbol  // reduce: the produced symbol
	ChildCount uint8   // reduce: symbols popped from the stack
	Rule       uint16  // reduce: declaration index, lowest wins ties
	Precedence int16
	Assoc      Assoc
}

// SymbolInfo describes one symbol declared by the grammar.
type SymbolInfo struct {
	Name     string
	Named    bool // appears in renders and queries
	Terminal bool
	Extra    bool // may occur anywhere (whitespace, comments)
}

// State is one automaton state: its action table plus the lexer DFA start
// state used when the parser asks for a token in this state.
type State struct {
	Lex     uint16
	Actions map[Symbol][]Action
}

// LexRange is a DFA edge covering an inclusive rune range.
type LexRange struct {
	Lo, Hi rune
	Next   int32
}

// LexState is one state of the lexer DFA.
type LexState struct {
	Accept    Symbol
	HasAccept bool
	Ranges    []LexRange
}

// Context is a lexical context. While a context is on the lexer's stack its
// Lex state overrides the per-parse-state DFA start, which is how grammars
// express nesting-sensitive tokenization such as string interpolation.
type Context struct {
	Name string
	Lex  uint16
}

// Rule records the produced symbol and length of one production, in
// declaration order. The parser only needs rule indices for tie-breaking;
// the full list is kept for validation and artifact round-trips.
type Rule struct {
	Symbol Symbol
	Length uint8
}

// Grammar is a complete compiled parse table. All fields are read-only after
// construction; a single Grammar may be shared by any number of concurrent
// parses.
type Grammar struct {
	Name    string
	Root    Symbol
	Symbols []SymbolInfo
	Rules   []Rule
	States  []State

	LexStates []LexState
	Contexts  []Context

	// PushContext and PopContext declare which shifted symbols enter and
	// leave lexical contexts.
	PushContext map[Symbol]ContextID
	PopContext  map[Symbol]bool
}

// ActionsFor returns the table cell for (state, symbol), or nil when the
// table declares no action there.
func (g *Grammar) ActionsFor(state StateID, sym Symbol) []Action {
	if int(state) >= len(g.States) {
		return nil
	}
	return g.States[state].Actions[sym]
}

// SymbolName returns the declared name of a symbol, or "ERROR" for the
// synthetic error symbol.
func (g *Grammar) SymbolName(sym Symbol) string {
	if sym == SymbolError {
		return "ERROR"
	}
	if int(sym) < len(g.Symbols) {
		return g.Symbols[sym].Name
	}
	return fmt.Sprintf("symbol-%d", sym)
}

// SymbolByName resolves a declared symbol name. Used by query compilation.
func (g *Grammar) SymbolByName(name string) (Symbol, bool) {
	for i := range g.Symbols {
		if g.Symbols[i].Name == name {
			return Symbol(i), true
		}
	}
	return 0, false
}

// IsNamed reports whether sym is a named symbol.
func (g *Grammar) IsNamed(sym Symbol) bool {
	return int(sym) < len(g.Symbols) && g.Symbols[sym].Named
}

// IsExtra reports whether sym may occur anywhere in the input.
func (g *Grammar) IsExtra(sym Symbol) bool {
	return int(sym) < len(g.Symbols) && g.Symbols[sym].Extra
}

// IsTerminal reports whether sym is a token symbol.
func (g *Grammar) IsTerminal(sym Symbol) bool {
	return int(sym) < len(g.Symbols) && g.Symbols[sym].Terminal
}

// ContextEffect returns the lexer context stack effect of shifting sym:
// +1 when it pushes a context, -1 when it pops one, 0 otherwise.
func (g *Grammar) ContextEffect(sym Symbol) int {
	if _, ok := g.PushContext[sym]; ok {
		return 1
	}
	if g.PopContext[sym] {
		return -1
	}
	return 0
}

// Validate checks internal consistency: symbol and state references in
// bounds, lexer transitions well-formed, and reserved entries in place.
// Load calls it on every artifact; embedded grammars are validated in tests.
func (g *Grammar) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("grammar: missing name")
	}
	if len(g.Symbols) == 0 {
		return fmt.Errorf("grammar %s: no symbols", g.Name)
	}
	if g.Symbols[SymbolEnd].Terminal == false || g.Symbols[SymbolEnd].Extra {
		return fmt.Errorf("grammar %s: symbol 0 must be the end-of-input terminal", g.Name)
	}
	if int(g.Root) >= len(g.Symbols) {
		return fmt.Errorf("grammar %s: root symbol %d out of range", g.Name, g.Root)
	}
	if len(g.States) == 0 {
		return fmt.Errorf("grammar %s: no parse states", g.Name)
	}
	if len(g.LexStates) == 0 {
		return fmt.Errorf("grammar %s: no lex states", g.Name)
	}

	checkSymbol := func(sym Symbol, where string) error {
		if sym != SymbolError && int(sym) >= len(g.Symbols) {
			return fmt.Errorf("grammar %s: %s references symbol %d out of range", g.Name, where, sym)
		}
		return nil
	}

	for i, rule := range g.Rules {
		if err := checkSymbol(rule.Symbol, fmt.Sprintf("rule %d", i)); err != nil {
			return err
		}
	}

	for si, state := range g.States {
		if int(state.Lex) >= len(g.LexStates) {
			return fmt.Errorf("grammar %s: state %d lex start %d out of range", g.Name, si, state.Lex)
		}
		for sym, actions := range state.Actions {
			where := fmt.Sprintf("state %d", si)
			if err := checkSymbol(sym, where); err != nil {
				return err
			}
			if len(actions) == 0 {
				return fmt.Errorf("grammar %s: state %d has an empty cell for %s", g.Name, si, g.SymbolName(sym))
			}
			for _, act := range actions {
				switch act.Type {
				case ActionShift:
					if int(act.State) >= len(g.States) {
						return fmt.Errorf("grammar %s: state %d shift target %d out of range", g.Name, si, act.State)
					}
				case ActionReduce:
					if err := checkSymbol(act.Symbol, where); err != nil {
						return err
					}
					if g.IsTerminal(act.Symbol) {
						return fmt.Errorf("grammar %s: state %d reduces to terminal %s", g.Name, si, g.SymbolName(act.Symbol))
					}
					if int(act.Rule) >= len(g.Rules) && len(g.Rules) > 0 {
						return fmt.Errorf("grammar %s: state %d reduce rule %d out of range", g.Name, si, act.Rule)
					}
				case ActionAccept:
					// no references to check
				default:
					return fmt.Errorf("grammar %s: state %d has unknown action type %d", g.Name, si, act.Type)
				}
			}
		}
	}

	for li, ls := range g.LexStates {
		for _, r := range ls.Ranges {
			if r.Lo > r.Hi {
				return fmt.Errorf("grammar %s: lex state %d has inverted range %q..%q", g.Name, li, r.Lo, r.Hi)
			}
			if r.Next < 0 || int(r.Next) >= len(g.LexStates) {
				return fmt.Errorf("grammar %s: lex state %d transition target %d out of range", g.Name, li, r.Next)
			}
		}
		if ls.HasAccept {
			if err := checkSymbol(ls.Accept, fmt.Sprintf("lex state %d", li)); err != nil {
				return err
			}
			if !g.IsTerminal(ls.Accept) {
				return fmt.Errorf("grammar %s: lex state %d accepts non-terminal %s", g.Name, li, g.SymbolName(ls.Accept))
			}
		}
	}

	for sym, ctx := range g.PushContext {
		if err := checkSymbol(sym, "context push"); err != nil {
			return err
		}
		if int(ctx) >= len(g.Contexts) {
			return fmt.Errorf("grammar %s: context push for %s targets context %d out of range", g.Name, g.SymbolName(sym), ctx)
		}
	}
	for sym := range g.PopContext {
		if err := checkSymbol(sym, "context pop"); err != nil {
			return err
		}
	}
	for ci, ctx := range g.Contexts {
		if int(ctx.Lex) >= len(g.LexStates) {
			return fmt.Errorf("grammar %s: context %d lex start %d out of range", g.Name, ci, ctx.Lex)
		}
	}

	return nil
}
