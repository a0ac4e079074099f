package grammar

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Load reads a compiled grammar artifact from its JSON form. The artifact is
// produced by an external grammar compiler; Load only decodes and validates
// it. The returned Grammar is immutable.
func Load(data []byte) (*Grammar, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("grammar: artifact is not valid JSON")
	}
	doc := gjson.ParseBytes(data)

	g := &Grammar{
		Name:        doc.Get("name").String(),
		Root:        Symbol(doc.Get("root").Uint()),
		PushContext: map[Symbol]ContextID{},
		PopContext:  map[Symbol]bool{},
	}

	for _, s := range doc.Get("symbols").Array() {
		g.Symbols = append(g.Symbols, SymbolInfo{
			Name:     s.Get("name").String(),
			Named:    s.Get("named").Bool(),
			Terminal: s.Get("terminal").Bool(),
			Extra:    s.Get("extra").Bool(),
		})
	}

	for _, r := range doc.Get("rules").Array() {
		g.Rules = append(g.Rules, Rule{
			Symbol: Symbol(r.Get("symbol").Uint()),
			Length: uint8(r.Get("length").Uint()),
		})
	}

	var loadErr error
	for si, s := range doc.Get("states").Array() {
		state := State{
			Lex:     uint16(s.Get("lex").Uint()),
			Actions: map[Symbol][]Action{},
		}
		s.Get("actions").ForEach(func(key, cell gjson.Result) bool {
			symVal, err := strconv.ParseUint(key.String(), 10, 16)
			if err != nil {
				loadErr = fmt.Errorf("grammar: state %d has non-numeric action key %q", si, key.String())
				return false
			}
			sym := Symbol(symVal)
			for _, a := range cell.Array() {
				act, err := decodeAction(a)
				if err != nil {
					loadErr = fmt.Errorf("grammar: state %d, symbol %d: %w", si, sym, err)
					return false
				}
				state.Actions[sym] = append(state.Actions[sym], act)
			}
			return true
		})
		if loadErr != nil {
			return nil, loadErr
		}
		g.States = append(g.States, state)
	}

	for _, ls := range doc.Get("lexStates").Array() {
		lex := LexState{}
		if accept := ls.Get("accept"); accept.Exists() {
			lex.Accept = Symbol(accept.Uint())
			lex.HasAccept = true
		}
		for _, r := range ls.Get("ranges").Array() {
			lex.Ranges = append(lex.Ranges, LexRange{
				Lo:   rune(r.Get("lo").Int()),
				Hi:   rune(r.Get("hi").Int()),
				Next: int32(r.Get("next").Int()),
			})
		}
		g.LexStates = append(g.LexStates, lex)
	}

	for _, c := range doc.Get("contexts").Array() {
		g.Contexts = append(g.Contexts, Context{
			Name: c.Get("name").String(),
			Lex:  uint16(c.Get("lex").Uint()),
		})
	}
	doc.Get("pushContext").ForEach(func(key, val gjson.Result) bool {
		symVal, err := strconv.ParseUint(key.String(), 10, 16)
		if err != nil {
			loadErr = fmt.Errorf("grammar: non-numeric pushContext key %q", key.String())
			return false
		}
		g.PushContext[Symbol(symVal)] = ContextID(val.Uint())
		return true
	})
	if loadErr != nil {
		return nil, loadErr
	}
	for _, s := range doc.Get("popContext").Array() {
		g.PopContext[Symbol(s.Uint())] = true
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadFile reads a grammar artifact from disk.
func LoadFile(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("grammar: read artifact: %w", err)
	}
	g, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("grammar: %s: %w", path, err)
	}
	return g, nil
}

func decodeAction(a gjson.Result) (Action, error) {
	switch {
	case a.Get("shift").Exists():
		return Action{
			Type:  ActionShift,
			State: StateID(a.Get("shift").Uint()),
		}, nil
	case a.Get("reduce").Exists():
		act := Action{
			Type:       ActionReduce,
			Symbol:     Symbol(a.Get("reduce").Uint()),
			ChildCount: uint8(a.Get("children").Uint()),
			Rule:       uint16(a.Get("rule").Uint()),
			Precedence: int16(a.Get("prec").Int()),
		}
		switch assoc := a.Get("assoc").String(); assoc {
		case "", "none":
			act.Assoc = AssocNone
		case "left":
			act.Assoc = AssocLeft
		case "right":
			act.Assoc = AssocRight
		default:
			return Action{}, fmt.Errorf("unknown associativity %q", assoc)
		}
		return act, nil
	case a.Get("accept").Exists():
		return Action{Type: ActionAccept}, nil
	default:
		return Action{}, fmt.Errorf("action declares none of shift/reduce/accept")
	}
}

// Dump renders a Grammar back into the JSON artifact form accepted by Load.
// Used by the CLI to normalize and inspect artifacts.
func (g *Grammar) Dump() ([]byte, error) {
	out := []byte(`{}`)
	var err error

	set := func(path string, value any) {
		if err != nil {
			return
		}
		out, err = sjson.SetBytes(out, path, value)
	}

	set("name", g.Name)
	set("root", uint64(g.Root))

	for i, s := range g.Symbols {
		base := fmt.Sprintf("symbols.%d", i)
		set(base+".name", s.Name)
		set(base+".named", s.Named)
		set(base+".terminal", s.Terminal)
		set(base+".extra", s.Extra)
	}
	for i, r := range g.Rules {
		base := fmt.Sprintf("rules.%d", i)
		set(base+".symbol", uint64(r.Symbol))
		set(base+".length", uint64(r.Length))
	}
	for si, state := range g.States {
		base := fmt.Sprintf("states.%d", si)
		set(base+".lex", uint64(state.Lex))
		for _, sym := range sortedSymbols(state.Actions) {
			actions := state.Actions[sym]
			// The ':' prefix makes sjson treat the number as an object
			// key instead of an array index.
			cell := fmt.Sprintf("%s.actions.:%d", base, sym)
			for ai, act := range actions {
				entry := fmt.Sprintf("%s.%d", cell, ai)
				switch act.Type {
				case ActionShift:
					set(entry+".shift", uint64(act.State))
				case ActionReduce:
					set(entry+".reduce", uint64(act.Symbol))
					set(entry+".children", uint64(act.ChildCount))
					set(entry+".rule", uint64(act.Rule))
					if act.Precedence != 0 {
						set(entry+".prec", int64(act.Precedence))
					}
					switch act.Assoc {
					case AssocLeft:
						set(entry+".assoc", "left")
					case AssocRight:
						set(entry+".assoc", "right")
					}
				case ActionAccept:
					set(entry+".accept", true)
				}
			}
		}
	}
	for li, ls := range g.LexStates {
		base := fmt.Sprintf("lexStates.%d", li)
		if ls.HasAccept {
			set(base+".accept", uint64(ls.Accept))
		}
		for ri, r := range ls.Ranges {
			entry := fmt.Sprintf("%s.ranges.%d", base, ri)
			set(entry+".lo", int64(r.Lo))
			set(entry+".hi", int64(r.Hi))
			set(entry+".next", int64(r.Next))
		}
		if len(ls.Ranges) == 0 && !ls.HasAccept {
			set(base+".ranges", []any{})
		}
	}
	for ci, c := range g.Contexts {
		base := fmt.Sprintf("contexts.%d", ci)
		set(base+".name", c.Name)
		set(base+".lex", uint64(c.Lex))
	}
	for _, sym := range sortedSymbols(g.PushContext) {
		set(fmt.Sprintf("pushContext.:%d", sym), uint64(g.PushContext[sym]))
	}
	for popIndex, sym := range sortedSymbols(g.PopContext) {
		set(fmt.Sprintf("popContext.%d", popIndex), uint64(sym))
	}

	if err != nil {
		return nil, fmt.Errorf("grammar: dump %s: %w", g.Name, err)
	}
	return out, nil
}

// sortedSymbols returns the keys of a symbol-keyed map in ascending order so
// Dump output is deterministic.
func sortedSymbols[V any](m map[Symbol]V) []Symbol {
	keys := make([]Symbol, 0, len(m))
	for sym := range m {
		keys = append(keys, sym)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
