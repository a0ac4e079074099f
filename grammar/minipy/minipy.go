// Package minipy bundles a small Python-like language for exercising the
// parser: function definitions with inline bodies, return statements,
// arithmetic expressions with precedence, calls, and interpolated strings.
// Whitespace is an extra, so every byte of input lands in the tree.
package minipy

import (
	"fmt"
	"sync"

	"github.com/dhamidi/arbor/grammar"
)

// Terminal and nonterminal symbols. Terminals come first; the builder
// relies on that split.
const (
	symEnd grammar.Symbol = iota
	symDef
	symReturn
	symName
	symNumber
	symString
	symPlus
	symMinus
	symStar
	symSlash
	symLParen
	symRParen
	symColon
	symComma
	symFStrStart
	symFStrText
	symFStrOpen
	symFStrClose
	symFStrEnd
	symWS

	symModule
	symStmts
	symStmt
	symFuncdef
	symParams
	symPlist
	symRetstmt
	symExpr
	symCall
	symArgs
	symAlist
	symFstring
	symParts
	symPart

	symCount
)

const terminalCount = int(symWS) + 1

var (
	once sync.Once
	g    *grammar.Grammar
)

// Grammar returns the bundled language definition. The parse tables are
// derived on first call and shared by all callers; the returned value is
// immutable.
func Grammar() *grammar.Grammar {
	once.Do(func() {
		g = build()
		if err := g.Validate(); err != nil {
			panic(fmt.Sprintf("minipy: bad grammar tables: %v", err))
		}
	})
	return g
}

func symbols() []grammar.SymbolInfo {
	infos := make([]grammar.SymbolInfo, symCount)
	set := func(s grammar.Symbol, name string, named bool) {
		infos[s] = grammar.SymbolInfo{Name: name, Named: named, Terminal: int(s) < terminalCount}
	}
	set(symEnd, "end", false)
	set(symDef, "def", false)
	set(symReturn, "return", false)
	set(symName, "identifier", true)
	set(symNumber, "number", true)
	set(symString, "string", true)
	set(symPlus, "+", false)
	set(symMinus, "-", false)
	set(symStar, "*", false)
	set(symSlash, "/", false)
	set(symLParen, "(", false)
	set(symRParen, ")", false)
	set(symColon, ":", false)
	set(symComma, ",", false)
	set(symFStrStart, "f\"", false)
	set(symFStrText, "text", false)
	set(symFStrOpen, "{", false)
	set(symFStrClose, "}", false)
	set(symFStrEnd, "\"", false)
	set(symWS, "whitespace", false)
	infos[symWS].Extra = true
	set(symModule, "module", true)
	set(symStmts, "statements", false)
	set(symStmt, "statement", false)
	set(symFuncdef, "function_definition", true)
	set(symParams, "parameters", true)
	set(symPlist, "parameter_list", false)
	set(symRetstmt, "return_statement", true)
	set(symExpr, "expression", true)
	set(symCall, "call", true)
	set(symArgs, "arguments", true)
	set(symAlist, "argument_list", false)
	set(symFstring, "fstring", true)
	set(symParts, "fstring_parts", false)
	set(symPart, "fstring_part", false)
	return infos
}

func productions() []prod {
	left := grammar.AssocLeft
	return []prod{
		{lhs: symCount, rhs: []grammar.Symbol{symModule}}, // augmented start
		{lhs: symModule, rhs: []grammar.Symbol{symStmts}},
		{lhs: symModule, rhs: nil},
		{lhs: symStmts, rhs: []grammar.Symbol{symStmts, symStmt}},
		{lhs: symStmts, rhs: []grammar.Symbol{symStmt}},
		{lhs: symStmt, rhs: []grammar.Symbol{symFuncdef}},
		{lhs: symStmt, rhs: []grammar.Symbol{symRetstmt}},
		{lhs: symStmt, rhs: []grammar.Symbol{symExpr}},
		{lhs: symFuncdef, rhs: []grammar.Symbol{symDef, symName, symLParen, symParams, symRParen, symColon, symStmt}},
		{lhs: symParams, rhs: []grammar.Symbol{symPlist}},
		{lhs: symParams, rhs: nil},
		{lhs: symPlist, rhs: []grammar.Symbol{symPlist, symComma, symName}},
		{lhs: symPlist, rhs: []grammar.Symbol{symName}},
		{lhs: symRetstmt, rhs: []grammar.Symbol{symReturn, symExpr}},
		{lhs: symExpr, rhs: []grammar.Symbol{symExpr, symPlus, symExpr}, prec: 1, assoc: left},
		{lhs: symExpr, rhs: []grammar.Symbol{symExpr, symMinus, symExpr}, prec: 1, assoc: left},
		{lhs: symExpr, rhs: []grammar.Symbol{symExpr, symStar, symExpr}, prec: 2, assoc: left},
		{lhs: symExpr, rhs: []grammar.Symbol{symExpr, symSlash, symExpr}, prec: 2, assoc: left},
		{lhs: symExpr, rhs: []grammar.Symbol{symCall}},
		{lhs: symExpr, rhs: []grammar.Symbol{symName}},
		{lhs: symExpr, rhs: []grammar.Symbol{symNumber}},
		{lhs: symExpr, rhs: []grammar.Symbol{symString}},
		{lhs: symExpr, rhs: []grammar.Symbol{symFstring}},
		{lhs: symExpr, rhs: []grammar.Symbol{symLParen, symExpr, symRParen}},
		{lhs: symCall, rhs: []grammar.Symbol{symName, symLParen, symArgs, symRParen}},
		{lhs: symArgs, rhs: []grammar.Symbol{symAlist}},
		{lhs: symArgs, rhs: nil},
		{lhs: symAlist, rhs: []grammar.Symbol{symAlist, symComma, symExpr}},
		{lhs: symAlist, rhs: []grammar.Symbol{symExpr}},
		{lhs: symFstring, rhs: []grammar.Symbol{symFStrStart, symParts, symFStrEnd}},
		{lhs: symParts, rhs: []grammar.Symbol{symParts, symPart}},
		{lhs: symParts, rhs: nil},
		{lhs: symPart, rhs: []grammar.Symbol{symFStrText}},
		{lhs: symPart, rhs: []grammar.Symbol{symFStrOpen, symExpr, symFStrClose}},
	}
}

func build() *grammar.Grammar {
	states, rules := buildStates(productions(), terminalCount, map[grammar.Symbol]int16{
		symPlus:  1,
		symMinus: 1,
		symStar:  2,
		symSlash: 2,
	})
	return &grammar.Grammar{
		Name:      "minipy",
		Root:      symModule,
		Symbols:   symbols(),
		Rules:     rules,
		States:    states,
		LexStates: lexStates(),
		Contexts: []grammar.Context{
			{Name: "fstring", Lex: lexFStr},
			{Name: "interpolation", Lex: lexMain},
		},
		PushContext: map[grammar.Symbol]grammar.ContextID{
			symFStrStart: 0,
			symFStrOpen:  1,
		},
		PopContext: map[grammar.Symbol]bool{
			symFStrClose: true,
			symFStrEnd:   true,
		},
	}
}
