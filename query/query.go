// Package query matches s-expression patterns against syntax trees.
//
// A pattern names a node kind and optionally nested child patterns:
//
//	(function_definition (identifier) @name)
//
// "_" matches any node, a quoted string matches an anonymous node by its
// spelling, brackets group alternatives, and @name captures the node the
// preceding pattern matched.
package query

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/tree"
)

type patternKind int

const (
	patNamed patternKind = iota
	patAnon
	patWildcard
	patAlt
)

type pattern struct {
	kind     patternKind
	symbol   grammar.Symbol
	alts     []*pattern
	children []*pattern
	capture  string
}

// Query is a compiled set of patterns, bound to the grammar whose node
// kinds they name. A Query is immutable and safe for concurrent use.
type Query struct {
	g        *grammar.Grammar
	patterns []*pattern
}

// Capture is one named node from a match.
type Capture struct {
	Name string
	Node tree.Node
}

// Match is one occurrence of a pattern in a tree.
type Match struct {
	// Pattern is the index of the matching pattern within the query
	// source, in order of appearance.
	Pattern  int
	Node     tree.Node
	Captures []Capture
}

// Compile parses pattern source and validates every node kind it names
// against the grammar.
func Compile(g *grammar.Grammar, src string) (*Query, error) {
	if g == nil {
		return nil, fmt.Errorf("query: nil grammar")
	}
	p := &patternParser{g: g, src: src}
	patterns, err := p.parseAll()
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("query: empty pattern source")
	}
	return &Query{g: g, patterns: patterns}, nil
}

// Matches runs the query over the whole tree.
func (q *Query) Matches(t *tree.Tree) []Match {
	return q.MatchesIn(t.Root())
}

// MatchesIn runs the query over one subtree. Matches are reported in
// preorder; overlapping matches of the same pattern are all reported.
func (q *Query) MatchesIn(root tree.Node) []Match {
	var out []Match
	tree.Walk(root, func(n tree.Node) bool {
		for i, pat := range q.patterns {
			if caps, ok := match(pat, n); ok {
				out = append(out, Match{Pattern: i, Node: n, Captures: caps})
			}
		}
		return true
	})
	return out
}

func match(p *pattern, n tree.Node) ([]Capture, bool) {
	var caps []Capture
	if !matchInto(p, n, &caps) {
		return nil, false
	}
	return caps, true
}

func matchInto(p *pattern, n tree.Node, caps *[]Capture) bool {
	switch p.kind {
	case patAlt:
		for _, alt := range p.alts {
			mark := len(*caps)
			if matchInto(alt, n, caps) {
				if p.capture != "" {
					*caps = append(*caps, Capture{Name: p.capture, Node: n})
				}
				return true
			}
			*caps = (*caps)[:mark]
		}
		return false
	case patWildcard:
	case patNamed:
		if !n.IsNamed() || n.Symbol() != p.symbol {
			return false
		}
	case patAnon:
		if n.IsNamed() || n.Symbol() != p.symbol {
			return false
		}
	}
	if !matchChildren(p.children, n, caps) {
		return false
	}
	if p.capture != "" {
		*caps = append(*caps, Capture{Name: p.capture, Node: n})
	}
	return true
}

// matchChildren matches child patterns against the node's visible children
// in order, allowing unmatched children between them. Anonymous wrapper
// nodes are looked through, so helper rules in the grammar do not show up
// as structure the pattern has to spell out.
func matchChildren(pats []*pattern, n tree.Node, caps *[]Capture) bool {
	if len(pats) == 0 {
		return true
	}
	kids := visibleChildren(n)
	i := 0
	for _, kid := range kids {
		if i == len(pats) {
			break
		}
		mark := len(*caps)
		if matchInto(pats[i], kid, caps) {
			i++
			continue
		}
		*caps = (*caps)[:mark]
	}
	return i == len(pats)
}

// visibleChildren lists named children plus anonymous leaves, descending
// through anonymous internal nodes.
func visibleChildren(n tree.Node) []tree.Node {
	var out []tree.Node
	var walk func(tree.Node)
	walk = func(c tree.Node) {
		for i := 0; i < c.ChildCount(); i++ {
			kid := c.Child(i)
			if kid.IsNamed() || kid.ChildCount() == 0 {
				out = append(out, kid)
				continue
			}
			walk(kid)
		}
	}
	walk(n)
	return out
}

type patternParser struct {
	g   *grammar.Grammar
	src string
	pos int
}

func (p *patternParser) parseAll() ([]*pattern, error) {
	var out []*pattern
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return out, nil
		}
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		out = append(out, pat)
	}
}

func (p *patternParser) parsePattern() (*pattern, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("query: unexpected end of pattern")
	}
	switch c := p.src[p.pos]; {
	case c == '(':
		return p.parseList()
	case c == '[':
		return p.parseAlt()
	case c == '"':
		return p.parseAnon()
	case c == '_':
		p.pos++
		pat := &pattern{kind: patWildcard}
		return p.withCapture(pat)
	default:
		return nil, fmt.Errorf("query: unexpected %q at offset %d", c, p.pos)
	}
}

func (p *patternParser) parseList() (*pattern, error) {
	p.pos++ // (
	p.skipSpace()
	name := p.readName()
	pat := &pattern{}
	if name == "_" || name == "" {
		pat.kind = patWildcard
	} else {
		sym, ok := p.g.SymbolByName(name)
		if !ok || !p.g.IsNamed(sym) {
			return nil, fmt.Errorf("query: unknown node kind %q", name)
		}
		pat.kind = patNamed
		pat.symbol = sym
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("query: missing )")
		}
		if p.src[p.pos] == ')' {
			p.pos++
			return p.withCapture(pat)
		}
		child, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		pat.children = append(pat.children, child)
	}
}

func (p *patternParser) parseAlt() (*pattern, error) {
	p.pos++ // [
	pat := &pattern{kind: patAlt}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("query: missing ]")
		}
		if p.src[p.pos] == ']' {
			p.pos++
			if len(pat.alts) == 0 {
				return nil, fmt.Errorf("query: empty alternation")
			}
			return p.withCapture(pat)
		}
		alt, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		pat.alts = append(pat.alts, alt)
	}
}

func (p *patternParser) parseAnon() (*pattern, error) {
	end := strings.IndexByte(p.src[p.pos+1:], '"')
	if end < 0 {
		return nil, fmt.Errorf("query: unterminated string at offset %d", p.pos)
	}
	name := p.src[p.pos+1 : p.pos+1+end]
	p.pos += end + 2
	sym, ok := p.g.SymbolByName(name)
	if !ok || p.g.IsNamed(sym) {
		return nil, fmt.Errorf("query: unknown anonymous node %q", name)
	}
	return p.withCapture(&pattern{kind: patAnon, symbol: sym})
}

// withCapture attaches a trailing @name, if present.
func (p *patternParser) withCapture(pat *pattern) (*pattern, error) {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '@' {
		return pat, nil
	}
	p.pos++
	name := p.readCaptureName()
	if name == "" {
		return nil, fmt.Errorf("query: empty capture name at offset %d", p.pos)
	}
	pat.capture = name
	return pat, nil
}

func (p *patternParser) readName() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '(' || c == ')' || c == '[' || c == ']' || c == '"' || c == '@' || unicode.IsSpace(rune(c)) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *patternParser) readCaptureName() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if !(c == '.' || c == '_' || c == '-' ||
			'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *patternParser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ';' {
			// Comment to end of line.
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		if !unicode.IsSpace(rune(c)) {
			return
		}
		p.pos++
	}
}
