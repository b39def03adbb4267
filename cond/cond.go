// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package cond implements the condition language used by templates.
//
// A condition is a Boolean expression built from comparisons joined by "&&"
// and "||", with parentheses for grouping:
//
//	$.user.age >= 18 && ($.user.country == 'US' || $.user.country == "CA")
//
// Operands are path references (beginning with "$", or "@" inside a path
// filter), quoted strings, numbers, the constants true, false, and null, or
// bare words, which are treated as strings. The comparison operators are
// ==, !=, >, >=, <, <=, and the case-insensitive string predicates contains,
// startsWith, and endsWith. "&&" binds more tightly than "||".
//
// An Evaluator compiles expressions once and caches them, so that the same
// expression can be applied cheaply to many elements of an array.
package cond

import (
	"github.com/creachadair/jtransform/resolve"
	"github.com/creachadair/jtransform/template"
	"github.com/creachadair/jtransform/value"
	"github.com/creachadair/mds/cache"
)

// DefaultCacheSize is the number of compiled expressions retained by an
// Evaluator when no other size is given.
const DefaultCacheSize = 256

// An Evaluator compiles and evaluates condition expressions, resolving paths
// with a Resolver. It is safe for concurrent use.
type Evaluator struct {
	res   *resolve.Resolver
	cache *cache.Cache[string, *Expr]
}

// NewEvaluator constructs an Evaluator that resolves paths with r, and
// caches up to size compiled expressions. If size <= 0, DefaultCacheSize is
// used.
func NewEvaluator(r *resolve.Resolver, size int) *Evaluator {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Evaluator{res: r, cache: cache.New(cache.LRU[string, *Expr](int64(size)))}
}

// Resolver returns the resolver used by e.
func (e *Evaluator) Resolver() *resolve.Resolver { return e.res }

// Compile returns the compiled form of text, using a cached result if one is
// available.
func (e *Evaluator) Compile(text string) (*Expr, error) {
	if x, ok := e.cache.Get(text); ok {
		return x, nil
	}
	x, err := Parse(text)
	if err != nil {
		return nil, err
	}
	e.cache.Put(text, x)
	return x, nil
}

// Check reports an error if text is not a valid expression.
func (e *Evaluator) Check(text string) error {
	_, err := e.Compile(text)
	return err
}

// Test evaluates the expression text in scope s.
func (e *Evaluator) Test(s resolve.Scope, text string) (bool, error) {
	x, err := e.Compile(text)
	if err != nil {
		return false, err
	}
	return x.Eval(e.res, s)
}

// Filter compiles text as a path filter predicate. It satisfies the
// resolve.FilterCompiler signature.
func (e *Evaluator) Filter(text string) (resolve.Filter, error) {
	x, err := e.Compile(text)
	if err != nil {
		return nil, err
	}
	return func(s resolve.Scope) (bool, error) { return x.Eval(e.res, s) }, nil
}

// Evaluate evaluates c in scope s, and reports the selected value and
// whether there is one.
//
// If c has no "if" expression, or its expression is true, the result is the
// "then" value. Otherwise each "elseif" branch is evaluated in turn, and the
// first that yields a value provides the result. Failing that, the result is
// the "else" value. A result value that is a path reference is resolved in
// s; any other value is a constant (see template.ExpandConstant).
func (e *Evaluator) Evaluate(s resolve.Scope, c *template.Condition) (value.Value, bool, error) {
	if c.If != "" {
		ok, err := e.Test(s, c.If)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			for _, alt := range c.ElseIf {
				v, ok, err := e.Evaluate(s, alt)
				if err != nil || ok {
					return v, ok, err
				}
			}
			return e.result(s, c.Else)
		}
	}
	return e.result(s, c.Then)
}

// EvaluateAll evaluates each of cs in order, and returns the first result
// found.
func (e *Evaluator) EvaluateAll(s resolve.Scope, cs []*template.Condition) (value.Value, bool, error) {
	for _, c := range cs {
		v, ok, err := e.Evaluate(s, c)
		if err != nil || ok {
			return v, ok, err
		}
	}
	return nil, false, nil
}

func (e *Evaluator) result(s resolve.Scope, v value.Value) (value.Value, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	if str, ok := v.(value.String); ok && template.IsPathRef(string(str)) {
		return e.res.Lookup(s, string(str))
	}
	return template.ExpandConstant(v), true, nil
}
