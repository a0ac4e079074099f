package minipy

import "github.com/dhamidi/arbor/grammar"

// DFA start states. lexMain also serves interpolation holes inside
// f-strings; lexFStr lexes f-string bodies.
const (
	lexMain uint16 = 0
	lexFStr uint16 = 27
)

const maxRune = 0x10FFFF

func one(r rune, next int32) grammar.LexRange {
	return grammar.LexRange{Lo: r, Hi: r, Next: next}
}

func span(lo, hi rune, next int32) grammar.LexRange {
	return grammar.LexRange{Lo: lo, Hi: hi, Next: next}
}

// nameCont continues an identifier after its first rune.
func nameCont() []grammar.LexRange {
	return []grammar.LexRange{
		span('0', '9', 2),
		span('A', 'Z', 2),
		one('_', 2),
		span('a', 'z', 2),
	}
}

// keyword builds a state along a keyword's spelling: accept as an
// identifier, advance on the keyword's next letter, continue as a plain
// identifier on anything else.
func keyword(next rune, to int32) grammar.LexState {
	ranges := []grammar.LexRange{one(next, to)}
	return grammar.LexState{
		Accept:    symName,
		HasAccept: true,
		Ranges:    append(ranges, nameCont()...),
	}
}

func lexStates() []grammar.LexState {
	return []grammar.LexState{
		// 0: main start. Keyword and f-string prefixes are listed before
		// the general identifier ranges; the first matching range wins.
		{Ranges: []grammar.LexRange{
			one('\t', 1),
			one('\n', 1),
			one('\r', 1),
			one(' ', 1),
			one('d', 8),
			one('f', 6),
			one('r', 11),
			span('0', '9', 3),
			one('"', 17),
			one('+', 20),
			one('-', 31),
			one('*', 21),
			one('/', 32),
			one('(', 22),
			one(')', 23),
			one(':', 24),
			one(',', 25),
			one('}', 26),
			span('A', 'Z', 2),
			one('_', 2),
			span('a', 'z', 2),
		}},
		// 1: whitespace run.
		{Accept: symWS, HasAccept: true, Ranges: []grammar.LexRange{
			one('\t', 1), one('\n', 1), one('\r', 1), one(' ', 1),
		}},
		// 2: identifier.
		{Accept: symName, HasAccept: true, Ranges: nameCont()},
		// 3: integer part.
		{Accept: symNumber, HasAccept: true, Ranges: []grammar.LexRange{
			span('0', '9', 3),
			one('.', 4),
		}},
		// 4: just past the decimal point; a digit must follow.
		{Ranges: []grammar.LexRange{span('0', '9', 5)}},
		// 5: fraction part.
		{Accept: symNumber, HasAccept: true, Ranges: []grammar.LexRange{span('0', '9', 5)}},
		// 6: "f". An immediate quote starts an interpolated string.
		{Accept: symName, HasAccept: true, Ranges: append([]grammar.LexRange{one('"', 7)}, nameCont()...)},
		// 7: f" consumed.
		{Accept: symFStrStart, HasAccept: true},
		// 8-10: d, de, def.
		keyword('e', 9),
		keyword('f', 10),
		{Accept: symDef, HasAccept: true, Ranges: nameCont()},
		// 11-16: r through return.
		keyword('e', 12),
		keyword('t', 13),
		keyword('u', 14),
		keyword('r', 15),
		keyword('n', 16),
		{Accept: symReturn, HasAccept: true, Ranges: nameCont()},
		// 17: plain string body. Newlines end the attempt, leaving an
		// unterminated string to error recovery.
		{Ranges: []grammar.LexRange{
			span(0x00, 0x09, 17),
			span(0x0B, 0x21, 17),
			one('"', 19),
			span(0x23, 0x5B, 17),
			one('\\', 18),
			span(0x5D, maxRune, 17),
		}},
		// 18: escape inside a string.
		{Ranges: []grammar.LexRange{span(0x00, maxRune, 17)}},
		// 19: closed string.
		{Accept: symString, HasAccept: true},
		// 20-26: single-character tokens.
		{Accept: symPlus, HasAccept: true},
		{Accept: symStar, HasAccept: true},
		{Accept: symLParen, HasAccept: true},
		{Accept: symRParen, HasAccept: true},
		{Accept: symColon, HasAccept: true},
		{Accept: symComma, HasAccept: true},
		{Accept: symFStrClose, HasAccept: true},
		// 27: f-string body start.
		{Ranges: []grammar.LexRange{
			span(0x00, 0x21, 30),
			one('"', 28),
			span(0x23, 0x7A, 30),
			one('{', 29),
			span(0x7C, maxRune, 30),
		}},
		// 28: closing quote of an f-string.
		{Accept: symFStrEnd, HasAccept: true},
		// 29: opening brace of an interpolation hole.
		{Accept: symFStrOpen, HasAccept: true},
		// 30: literal f-string text.
		{Accept: symFStrText, HasAccept: true, Ranges: []grammar.LexRange{
			span(0x00, 0x21, 30),
			span(0x23, 0x7A, 30),
			span(0x7C, maxRune, 30),
		}},
		// 31-32: minus and slash.
		{Accept: symMinus, HasAccept: true},
		{Accept: symSlash, HasAccept: true},
	}
}
