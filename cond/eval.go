// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package cond

import (
	"cmp"
	"strings"

	"github.com/creachadair/jtransform/resolve"
	"github.com/creachadair/jtransform/value"
)

// env is the environment for one evaluation of an expression.
type env struct {
	res   *resolve.Resolver
	scope resolve.Scope
}

// Eval evaluates e in scope s, resolving paths with r.
func (e *Expr) Eval(r *resolve.Resolver, s resolve.Scope) (bool, error) {
	return e.root.eval(&env{res: r, scope: s})
}

func (o orExpr) eval(env *env) (bool, error) {
	for _, n := range o {
		ok, err := n.eval(env)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (a andExpr) eval(env *env) (bool, error) {
	for _, n := range a {
		ok, err := n.eval(env)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (l litExpr) eval(*env) (bool, error) { return bool(l), nil }

func (c cmpExpr) eval(env *env) (bool, error) {
	return Compare(c.op, c.lhs.value(env), c.rhs.value(env)), nil
}

// value returns the value of o in env, or nil if o is a path that does not
// match. A path that cannot be traversed is treated as missing.
func (o operand) value(env *env) value.Value {
	if o.path == "" {
		return o.lit
	}
	v, ok, err := env.res.Lookup(env.scope, o.path)
	if err != nil || !ok {
		return nil
	}
	return v
}

// Compare reports the result of applying the comparison operator op to a and
// b. A nil or null operand is missing: two missing operands are equal, and a
// missing operand is unequal to any other; otherwise a comparison with a
// missing operand is false. If both operands are numeric, or strings that
// parse as numbers, they are compared as numbers. Otherwise they are compared
// as strings, ignoring case.
func Compare(op Token, a, b value.Value) bool {
	aMissing, bMissing := value.IsNull(a), value.IsNull(b)
	if aMissing || bMissing {
		switch op {
		case Eq:
			return aMissing && bMissing
		case Ne:
			return aMissing != bMissing
		}
		return false
	}

	switch op {
	case Contains, StartsWith, EndsWith:
		x, y := strings.ToLower(a.String()), strings.ToLower(b.String())
		switch op {
		case Contains:
			return strings.Contains(x, y)
		case StartsWith:
			return strings.HasPrefix(x, y)
		default:
			return strings.HasSuffix(x, y)
		}
	}

	order, ok := compareNumbers(a, b)
	if !ok {
		order = strings.Compare(strings.ToLower(a.String()), strings.ToLower(b.String()))
	}
	switch op {
	case Eq:
		return order == 0
	case Ne:
		return order != 0
	case Gt:
		return order > 0
	case Ge:
		return order >= 0
	case Lt:
		return order < 0
	case Le:
		return order <= 0
	}
	return false
}

// compareNumbers compares a and b numerically, if both have numeric values.
func compareNumbers(a, b value.Value) (int, bool) {
	x, ok := value.ToNumber(a)
	if !ok {
		return 0, false
	}
	y, ok := value.ToNumber(b)
	if !ok {
		return 0, false
	}
	return cmp.Compare(x, y), true
}
