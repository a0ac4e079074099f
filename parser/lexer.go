package parser

import (
	"unicode/utf8"

	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/tree"
)

// token is one lexed span. Tokens are never mutated after creation.
type token struct {
	sym    grammar.Symbol
	start  uint32
	width  uint32
	extent tree.Point

	// reach is how many bytes past the token's end the DFA examined before
	// settling on this match. The reconciler uses it to tell whether an
	// edit could have produced a different token here.
	reach uint32

	// lexedWith records the DFA start state used, so a held lookahead can
	// be re-lexed when a reduction moves the parser into a state with a
	// different lexical mode.
	lexedWith uint16
}

func (t token) end() uint32 { return t.start + t.width }

// lexer runs the grammar's DFA over the text. The context stack tracks
// grammar-declared lexical contexts (string interpolation and the like);
// while non-empty, the top context's DFA start overrides the per-state one.
type lexer struct {
	g     *grammar.Grammar
	text  []byte
	pos   uint32
	point tree.Point
	ctx   []grammar.ContextID
}

func newLexer(g *grammar.Grammar, text []byte) *lexer {
	return &lexer{g: g, text: text}
}

// startState returns the DFA start state for lexing in the given parse state.
func (lx *lexer) startState(state grammar.StateID) uint16 {
	if len(lx.ctx) > 0 {
		return lx.g.Contexts[lx.ctx[len(lx.ctx)-1]].Lex
	}
	return lx.g.States[state].Lex
}

// next lexes the token at the current position without consuming it. At end
// of input it returns the zero-width end token. When no rule matches it
// returns a one-codepoint error token so the parser can recover.
func (lx *lexer) next(state grammar.StateID) token {
	start := lx.startState(state)

	if lx.pos >= uint32(len(lx.text)) {
		return token{sym: grammar.SymbolEnd, start: lx.pos, lexedWith: start}
	}

	cur := int32(start)
	scan := lx.pos
	examined := lx.pos
	acceptEnd := uint32(0)
	acceptSym := grammar.SymbolError
	accepted := false

	for {
		ls := &lx.g.LexStates[cur]
		if ls.HasAccept && scan > lx.pos {
			acceptEnd = scan
			acceptSym = ls.Accept
			accepted = true
		}
		if scan >= uint32(len(lx.text)) {
			// Ran off the end: appending text could extend the match, so
			// count the end position itself as examined.
			if scan+1 > examined {
				examined = scan + 1
			}
			break
		}
		r, size := utf8.DecodeRune(lx.text[scan:])
		if r == utf8.RuneError && size == 1 {
			r = rune(lx.text[scan])
		}
		next := int32(-1)
		for _, tr := range ls.Ranges {
			if tr.Lo <= r && r <= tr.Hi {
				next = tr.Next
				break
			}
		}
		if scan+uint32(size) > examined {
			examined = scan + uint32(size)
		}
		if next < 0 {
			break
		}
		cur = next
		scan += uint32(size)
	}

	if !accepted {
		_, size := utf8.DecodeRune(lx.text[lx.pos:])
		end := lx.pos + uint32(size)
		return token{
			sym:       grammar.SymbolError,
			start:     lx.pos,
			width:     uint32(size),
			extent:    tree.ExtentOf(lx.text[lx.pos:end]),
			reach:     examined - end,
			lexedWith: start,
		}
	}

	reach := uint32(0)
	if examined > acceptEnd {
		reach = examined - acceptEnd
	}
	return token{
		sym:       acceptSym,
		start:     lx.pos,
		width:     acceptEnd - lx.pos,
		extent:    tree.ExtentOf(lx.text[lx.pos:acceptEnd]),
		reach:     reach,
		lexedWith: start,
	}
}

// consume advances past a token returned by next.
func (lx *lexer) consume(t token) {
	lx.pos = t.end()
	lx.point = lx.point.Add(t.extent)
}

// skip advances past a reused subtree without lexing it.
func (lx *lexer) skip(width uint32, extent tree.Point) {
	lx.pos += width
	lx.point = lx.point.Add(extent)
}

// applyContext updates the context stack for a shifted symbol.
func (lx *lexer) applyContext(sym grammar.Symbol) {
	if ctx, ok := lx.g.PushContext[sym]; ok {
		lx.ctx = append(lx.ctx, ctx)
		return
	}
	if lx.g.PopContext[sym] && len(lx.ctx) > 0 {
		lx.ctx = lx.ctx[:len(lx.ctx)-1]
	}
}
