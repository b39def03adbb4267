// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package cond

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is the type of a lexical token in the condition grammar.
type Token byte

// Constants defining the valid Token values.
const (
	Invalid    Token = iota // invalid token
	LParen                  // left parenthesis "("
	RParen                  // right parenthesis ")"
	And                     // logical and "&&"
	Or                      // logical or "||"
	Eq                      // equality "=="
	Ne                      // inequality "!="
	Ge                      // greater or equal ">="
	Le                      // less or equal "<="
	Gt                      // greater ">"
	Lt                      // less "<"
	Contains                // substring: contains
	StartsWith              // prefix: startsWith
	EndsWith                // suffix: endsWith
	Path                    // path reference: $... or @...
	String                  // quoted string
	Number                  // number
	True                    // constant: true
	False                   // constant: false
	Null                    // constant: null
	Word                    // unquoted word
)

var tokenStr = [...]string{
	Invalid:    "invalid token",
	LParen:     `"("`,
	RParen:     `")"`,
	And:        `"&&"`,
	Or:         `"||"`,
	Eq:         `"=="`,
	Ne:         `"!="`,
	Ge:         `">="`,
	Le:         `"<="`,
	Gt:         `">"`,
	Lt:         `"<"`,
	Contains:   "contains",
	StartsWith: "startsWith",
	EndsWith:   "endsWith",
	Path:       "path",
	String:     "string",
	Number:     "number",
	True:       "true",
	False:      "false",
	Null:       "null",
	Word:       "word",
}

func (t Token) String() string {
	v := int(t)
	if v >= len(tokenStr) {
		return tokenStr[Invalid]
	}
	return tokenStr[v]
}

// isComparison reports whether t is a comparison operator.
func (t Token) isComparison() bool { return t >= Eq && t <= EndsWith }

// keywords maps the lower-case spelling of each reserved word to its token.
var keywords = map[string]Token{
	"true":       True,
	"false":      False,
	"null":       Null,
	"contains":   Contains,
	"startswith": StartsWith,
	"endswith":   EndsWith,
}

// A Span describes a contiguous span of the input.
type Span struct {
	Pos int // the start offset, 0-based
	End int // the end offset, 0-based (noninclusive)
}

// A Scanner reads lexical tokens from a condition expression. Each call to
// Next advances the scanner to the next token, or reports an error.
type Scanner struct {
	src      string
	tok      Token
	pos, end int // start and end offsets of current token
}

// NewScanner constructs a new lexical scanner that consumes input from src.
func NewScanner(src string) *Scanner { return &Scanner{src: src} }

// Next advances s to the next token of the input, or reports an error.
// At the end of the input, Next returns io.EOF.
func (s *Scanner) Next() error {
	s.tok = Invalid

	// Discard whitespace.
	for s.end < len(s.src) {
		ch, n := utf8.DecodeRuneInString(s.src[s.end:])
		if !unicode.IsSpace(ch) {
			break
		}
		s.end += n
	}
	s.pos = s.end
	if s.end >= len(s.src) {
		return io.EOF
	}

	ch := s.src[s.end]
	switch ch {
	case '(':
		return s.emit(LParen, 1)
	case ')':
		return s.emit(RParen, 1)
	case '&':
		return s.pair('&', And, Invalid)
	case '|':
		return s.pair('|', Or, Invalid)
	case '=':
		return s.pair('=', Eq, Invalid)
	case '!':
		return s.pair('=', Ne, Invalid)
	case '>':
		return s.pair('=', Ge, Gt)
	case '<':
		return s.pair('=', Le, Lt)
	case '\'', '"':
		return s.scanString(ch)
	case '$', '@':
		return s.scanPath()
	}
	if isNumStart(s.src[s.end:]) {
		return s.scanNumber()
	}
	if r, _ := utf8.DecodeRuneInString(s.src[s.end:]); isWordRune(r) {
		return s.scanWord()
	}
	return s.failf("unexpected %q", s.src[s.end])
}

// Token returns the type of the current token.
func (s *Scanner) Token() Token { return s.tok }

// Text returns the undecoded text of the current token.
func (s *Scanner) Text() string { return s.src[s.pos:s.end] }

// Span returns the location span of the current token.
func (s *Scanner) Span() Span { return Span{Pos: s.pos, End: s.end} }

func (s *Scanner) emit(tok Token, n int) error {
	s.tok = tok
	s.end += n
	return nil
}

// pair scans a one- or two-byte operator beginning at the current offset.
// If the next byte is next the token is two, otherwise one. If one is
// Invalid, the two-byte form is required.
func (s *Scanner) pair(next byte, two, one Token) error {
	if s.end+1 < len(s.src) && s.src[s.end+1] == next {
		return s.emit(two, 2)
	} else if one == Invalid {
		return s.failf("incomplete operator, expected %v", two)
	}
	return s.emit(one, 1)
}

func (s *Scanner) scanString(quote byte) error {
	for i := s.end + 1; i < len(s.src); i++ {
		switch s.src[i] {
		case '\\':
			i++
		case quote:
			s.end = i + 1
			s.tok = String
			return nil
		}
	}
	return s.failf("unterminated string")
}

// scanPath scans a path reference. A path ends at whitespace, a parenthesis,
// or an operator character, unless that character occurs inside brackets.
func (s *Scanner) scanPath() error {
	depth := 0
	var quote byte
	i := s.end + 1
scan:
	for ; i < len(s.src); i++ {
		c := s.src[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '[':
			depth++
		case c == ']':
			depth--
		case depth > 0:
			if c == '\'' || c == '"' {
				quote = c
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || strings.IndexByte("()=!<>&|", c) >= 0:
			break scan
		}
	}
	if depth != 0 || quote != 0 {
		return s.failf("unbalanced brackets in path")
	}
	s.end = i
	s.tok = Path
	return nil
}

func (s *Scanner) scanNumber() error {
	i := s.end
	if s.src[i] == '-' || s.src[i] == '+' {
		i++
	}
	i = skipDigits(s.src, i)
	if i < len(s.src) && s.src[i] == '.' {
		i = skipDigits(s.src, i+1)
	}
	if i < len(s.src) && (s.src[i] == 'e' || s.src[i] == 'E') {
		j := i + 1
		if j < len(s.src) && (s.src[j] == '-' || s.src[j] == '+') {
			j++
		}
		if k := skipDigits(s.src, j); k > j {
			i = k
		}
	}
	s.end = i
	s.tok = Number

	// A number followed directly by a word rune is a word, as in "3rd".
	if r, _ := utf8.DecodeRuneInString(s.src[i:]); i < len(s.src) && isWordRune(r) {
		return s.scanWord()
	}
	return nil
}

func (s *Scanner) scanWord() error {
	i := s.end
	for i < len(s.src) {
		r, n := utf8.DecodeRuneInString(s.src[i:])
		if !isWordRune(r) && r != '.' && r != '-' {
			break
		}
		i += n
	}
	s.end = i
	if t, ok := keywords[strings.ToLower(s.src[s.pos:i])]; ok {
		s.tok = t
	} else {
		s.tok = Word
	}
	return nil
}

func (s *Scanner) failf(msg string, args ...any) error {
	s.tok = Invalid
	return fmt.Errorf("at offset %d: %s", s.pos, fmt.Sprintf(msg, args...))
}

func isWordRune(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

func isNumStart(s string) bool {
	i := 0
	if s[0] == '-' || s[0] == '+' {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
	}
	return i < len(s) && '0' <= s[i] && s[i] <= '9'
}

func skipDigits(s string, i int) int {
	for i < len(s) && '0' <= s[i] && s[i] <= '9' {
		i++
	}
	return i
}
