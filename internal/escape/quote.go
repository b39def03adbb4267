// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package escape handles quoting of JSON strings and unquoting of the string
// literals that appear in template expressions.
package escape

import (
	"unicode/utf8"

	"go4.org/mem"
)

// shortEsc maps control and delimiter bytes to their short escape letter.
var shortEsc = [...]byte{
	'\b': 'b',
	'\f': 'f',
	'\n': 'n',
	'\r': 'r',
	'\t': 't',
	'"':  '"',
	'\\': '\\',
}

const hexDigit = "0123456789abcdef"

// Quote encodes src as a JSON string, including the enclosing double
// quotation marks.
func Quote(src mem.RO) []byte { return AppendQuote(make([]byte, 0, src.Len()+2), src) }

// AppendQuote appends the JSON encoding of src to buf, including the enclosing
// double quotation marks, and returns the extended slice.
func AppendQuote(buf []byte, src mem.RO) []byte {
	buf = append(buf, '"')
	for src.Len() != 0 {
		r, n := mem.DecodeRune(src)
		src = src.SliceFrom(n)

		switch {
		case r < utf8.RuneSelf && int(r) < len(shortEsc) && shortEsc[r] != 0:
			buf = append(buf, '\\', shortEsc[r])
		case r < ' ':
			buf = append(buf, '\\', 'u', '0', '0', hexDigit[r>>4], hexDigit[r&15])
		case r < utf8.RuneSelf:
			buf = append(buf, byte(r))
		case r == utf8.RuneError && n == 1:
			buf = append(buf, `\ufffd`...)
		case r == '\u2028' || r == '\u2029':
			buf = append(buf, '\\', 'u', '2', '0', '2', hexDigit[r&15])
		default:
			buf = utf8.AppendRune(buf, r)
		}
	}
	return append(buf, '"')
}
