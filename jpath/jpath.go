// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package jpath implements a parser for the path expressions used to address
// locations in a JSON value.
//
// The syntax is a subset of JSONPath. The root marker "$" is optional, so that
// "a.b[0]" and "$.a.b[0]" denote the same path. Inside a filter, paths begin
// with "@" to address the element under consideration.
package jpath

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

/*
Grammar:

  expr = [root] steps
  expr = first [steps]
  root = "$" | "@"
 first = name | "[" value "]"
 steps = step [steps]
  step = "." name
  step = ".." name
  step = "[" value "]"
  name = WORD
  name = QUOTED
  name = "*"
 value = name
 value = INDEX
 value = slice
 value = filter
 slice = [INDEX] ":" [INDEX]
filter = "?(" TEXT ")"

  WORD = RE `[\p{L}\p{N}_-]+`
QUOTED = RE `'[^']*'` | `"[^"]*"`
 INDEX = RE `-?\d+`
  TEXT = { all text with balanced parentheses, outside quotes }
*/

// An Expr is a parsed path expression.
type Expr struct {
	Current bool // the path is relative to the current element ("@")
	Steps   []Step
}

// Parse parses s as a path expression.
func Parse(s string) (Expr, error) {
	if strings.TrimSpace(s) == "" {
		return Expr{}, errors.New("empty path")
	}
	var e Expr
	rest := s
	if t, ok := strings.CutPrefix(s, "$"); ok {
		rest = t
	} else if t, ok := strings.CutPrefix(s, "@"); ok {
		e.Current, rest = true, t
	} else if !strings.HasPrefix(s, "[") && !strings.HasPrefix(s, ".") {
		// A bare leading name, as in "a.b".
		kind, name, u, err := parseName(s)
		if err != nil {
			return Expr{}, fmt.Errorf("path %q: %w", s, err)
		}
		e.Steps = append(e.Steps, nameStep(Member, kind, name))
		rest = u
	}
	steps, err := parseSteps(rest)
	if err != nil {
		return Expr{}, fmt.Errorf("path %q: %w", s, err)
	}
	e.Steps = append(e.Steps, steps...)
	return e, nil
}

// MustParse parses s as a path expression, and panics on error.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the canonical text of e.
func (e Expr) String() string {
	var buf strings.Builder
	if e.Current {
		buf.WriteString("@")
	} else {
		buf.WriteString("$")
	}
	for _, s := range e.Steps {
		buf.WriteString(s.String())
	}
	return buf.String()
}

// IsRoot reports whether e denotes the root itself.
func (e Expr) IsRoot() bool { return len(e.Steps) == 0 }

// Definite reports whether e can match at most one location, that is,
// whether all its steps are member or index steps.
func (e Expr) Definite() bool {
	for _, s := range e.Steps {
		if s.Op != Member && s.Op != Index {
			return false
		}
	}
	return true
}

// CheckWrite reports an error if e cannot be used as the target of a write.
// Only member and non-negative index steps are writable.
func (e Expr) CheckWrite() error {
	if e.Current {
		return errors.New("relative paths cannot be written")
	}
	for _, s := range e.Steps {
		switch {
		case s.Op == Member:
		case s.Op == Index && s.Index >= 0:
		case s.Op == Index:
			return fmt.Errorf("negative index %d is not writable", s.Index)
		default:
			return fmt.Errorf("%s step is not writable", s.Op)
		}
	}
	return nil
}

// CutWildcard splits e at its first wildcard step. The prefix contains the
// steps before the wildcard, and the suffix the steps after it. If e has no
// wildcard step, CutWildcard returns e, an empty suffix, and false.
func (e Expr) CutWildcard() (prefix, suffix Expr, found bool) {
	for i, s := range e.Steps {
		if s.Op == Wildcard {
			return Expr{Current: e.Current, Steps: e.Steps[:i]},
				Expr{Current: true, Steps: e.Steps[i+1:]}, true
		}
	}
	return e, Expr{Current: true}, false
}

func nameStep(op Op, kind nameKind, name string) Step {
	switch {
	case kind == wildName && op == Recur:
		return Step{Op: RecurAll}
	case kind == wildName:
		return Step{Op: Wildcard}
	}
	return Step{Op: op, Key: name, Quoted: kind == quotedName}
}

func parseSteps(s string) ([]Step, error) {
	var steps []Step
	for s != "" {
		step, rest, err := parseStep(s)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
		s = rest
	}
	return steps, nil
}

func parseStep(s string) (_ Step, rest string, _ error) {
	if t, ok := strings.CutPrefix(s, ".."); ok {
		kind, name, u, err := parseName(t)
		if err != nil {
			return Step{}, s, fmt.Errorf("invalid ..name: %w", err)
		}
		return nameStep(Recur, kind, name), u, nil
	}
	if t, ok := strings.CutPrefix(s, "."); ok {
		kind, name, u, err := parseName(t)
		if err != nil {
			return Step{}, s, fmt.Errorf("invalid .name: %w", err)
		}
		return nameStep(Member, kind, name), u, nil
	}
	if t, ok := strings.CutPrefix(s, "["); ok {
		step, u, err := parseValue(t)
		if err != nil {
			return Step{}, t, err
		}
		u, ok := strings.CutPrefix(u, "]")
		if !ok {
			return Step{}, u, errors.New("missing close bracket")
		}
		return step, u, nil
	}
	return Step{}, s, fmt.Errorf("invalid path step at %q", s)
}

type nameKind byte

const (
	plainName nameKind = iota
	quotedName
	wildName
)

func parseName(s string) (kind nameKind, name, rest string, _ error) {
	if t, ok := strings.CutPrefix(s, "*"); ok {
		return wildName, "*", t, nil
	}
	if m := wordRE.FindStringSubmatch(s); m != nil {
		return plainName, m[1], s[len(m[0]):], nil
	}
	if m := quoteRE.FindStringSubmatch(s); m != nil {
		return quotedName, m[1] + m[2], s[len(m[0]):], nil
	}
	return plainName, "", s, errors.New("invalid name")
}

func parseIndex(s string) (int, string, bool) {
	m := indexRE.FindStringSubmatch(s)
	if m == nil {
		return 0, s, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, s, false
	}
	return n, s[len(m[0]):], true
}

func parseValue(s string) (Step, string, error) {
	if t, ok := strings.CutPrefix(s, "?("); ok {
		text, rest, err := parseFilter(t)
		if err != nil {
			return Step{}, s, err
		}
		return Step{Op: Filter, Key: strings.TrimSpace(text)}, rest, nil
	}

	// Index or slice.
	lo, rest, hasLo := parseIndex(s)
	if u, ok := strings.CutPrefix(rest, ":"); ok {
		step := Step{Op: Slice, Index: lo, HasLo: hasLo}
		if hi, v, ok := parseIndex(u); ok {
			step.End, step.HasHi, u = hi, true, v
		}
		return step, u, nil
	} else if hasLo {
		return Step{Op: Index, Index: lo}, rest, nil
	}

	if kind, name, rest, err := parseName(s); err == nil {
		return nameStep(Member, kind, name), rest, nil
	}
	return Step{}, s, fmt.Errorf("invalid subscript at %q", s)
}

// parseFilter scans the text of a filter up to the parenthesis that closes
// it, skipping quoted strings.
func parseFilter(s string) (text, rest string, _ error) {
	np := 1
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			np++
		case c == ')':
			np--
			if np == 0 {
				return s[:i], s[i+1:], nil
			}
		}
	}
	return "", s, errors.New("unbalanced parentheses in filter")
}

var (
	wordRE  = regexp.MustCompile(`^([\p{L}\p{N}_-]+)`)
	indexRE = regexp.MustCompile(`^\s*(-?\d+)\s*`)
	quoteRE = regexp.MustCompile(`^(?:'([^']*)'|"([^"]*)")`)
)

// An Op is a path operator.
type Op byte

const (
	Invalid  Op = iota // invalid operator
	Member             // object member lookup
	Index              // array index lookup
	Slice              // array slice
	Wildcard           // all children (*)
	Recur              // recursive member lookup (..name)
	RecurAll           // all descendants (..*)
	Filter             // filtered children ([?(...)])
)

var opText = [...]string{
	Invalid:  "invalid",
	Member:   "member",
	Index:    "index",
	Slice:    "slice",
	Wildcard: "wildcard",
	Recur:    "recursive",
	RecurAll: "recursive wildcard",
	Filter:   "filter",
}

func (o Op) String() string {
	if int(o) < len(opText) {
		return opText[o]
	}
	return opText[Invalid]
}

// A Step is a single step of a path expression.
type Step struct {
	Op Op

	// Key is the member name for Member and Recur, or the expression text for
	// Filter. Quoted records whether a member name was quoted in the input.
	Key    string
	Quoted bool

	// Index is the position for Index, and the lower bound for Slice.
	// End is the upper bound for Slice. Each slice bound is meaningful only
	// if the corresponding Has flag is set.
	Index, End   int
	HasLo, HasHi bool
}

func (s Step) String() string {
	switch s.Op {
	case Member:
		if s.Quoted || wordRE.FindString(s.Key) != s.Key {
			return "[" + quoteName(s.Key) + "]"
		}
		return "." + s.Key
	case Recur:
		if s.Quoted {
			return ".." + quoteName(s.Key)
		}
		return ".." + s.Key
	case RecurAll:
		return "..*"
	case Index:
		return "[" + strconv.Itoa(s.Index) + "]"
	case Wildcard:
		return "[*]"
	case Filter:
		return "[?(" + s.Key + ")]"
	case Slice:
		var lo, hi string
		if s.HasLo {
			lo = strconv.Itoa(s.Index)
		}
		if s.HasHi {
			hi = strconv.Itoa(s.End)
		}
		return "[" + lo + ":" + hi + "]"
	}
	return "<invalid>"
}

// quoteName quotes a member name, using double quotes if the name contains a
// single quote. A name containing both quote marks cannot be written.
func quoteName(name string) string {
	if strings.Contains(name, "'") {
		return `"` + name + `"`
	}
	return "'" + name + "'"
}
