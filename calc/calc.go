// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package calc evaluates the arithmetic expressions of a template.
//
// An expression applies a named operation to a list of operands, each of
// which is a number, a string (a path reference, or the text of a number),
// or another expression. The operations are:
//
//	add, subtract, multiply, divide   fold left to right over 1 or more operands
//	min, max                          over 1 or more operands
//	power, mod                        exactly 2 operands
//	sqrt, abs, round, ceil, floor     exactly 1 operand
//
// A single operand to subtract is negated. Sums, differences, products, and
// quotients are computed in decimal, so that 0.1 + 0.2 is 0.3. If the
// expression has a precision, its result is rounded half away from zero to
// that many decimal places; for ceil and floor the precision selects the
// place at which to round up or down.
package calc

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/creachadair/jtransform/template"
	"github.com/creachadair/jtransform/value"
	"github.com/creachadair/jtransform/xerr"
	"github.com/creachadair/mds/mapset"
	"github.com/shopspring/decimal"
)

// A LookupFunc resolves a path reference to a value, and reports whether the
// path matched.
type LookupFunc func(path string) (value.Value, bool, error)

// Operation names grouped by arity.
var (
	foldOps   = mapset.New("add", "subtract", "multiply", "divide", "min", "max")
	binaryOps = mapset.New("power", "mod")
	unaryOps  = mapset.New("sqrt", "abs", "round", "ceil", "floor")
)

// Check reports an error if e or any of its nested expressions names an
// unknown operation or has the wrong number of operands.
func Check(e *template.MathExpr) error {
	op := strings.ToLower(e.Operation)
	if err := checkArity(op, len(e.Operands)); err != nil {
		return err
	}
	for _, arg := range e.Operands {
		if sub, ok := arg.(*template.MathExpr); ok {
			if err := Check(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkArity(op string, n int) error {
	switch {
	case foldOps.Has(op):
		if n < 1 {
			return xerr.Math(op, "requires at least 1 operand")
		}
	case binaryOps.Has(op):
		if n != 2 {
			return xerr.Math(op, "requires exactly 2 operands, got %d", n)
		}
	case unaryOps.Has(op):
		if n != 1 {
			return xerr.Math(op, "requires exactly 1 operand, got %d", n)
		}
	default:
		return xerr.Math(op, "unknown operation")
	}
	return nil
}

// Evaluate evaluates e, resolving path operands with lookup. The result is a
// number. Errors have kind xerr.ErrMathOperation.
func Evaluate(e *template.MathExpr, lookup LookupFunc) (value.Value, error) {
	f, err := eval(e, lookup)
	if err != nil {
		return nil, err
	}
	return value.Float(f), nil
}

func eval(e *template.MathExpr, lookup LookupFunc) (float64, error) {
	op := strings.ToLower(e.Operation)
	if err := checkArity(op, len(e.Operands)); err != nil {
		return 0, err
	}
	args := make([]decimal.Decimal, len(e.Operands))
	for i, arg := range e.Operands {
		f, err := operand(op, arg, lookup)
		if err != nil {
			return 0, err
		} else if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, xerr.Math(op, "operand %d is not a finite number", i+1)
		}
		args[i] = decimal.NewFromFloat(f)
	}

	places := int32(0)
	if e.Precision != nil {
		places = int32(*e.Precision)
	}
	var out decimal.Decimal
	switch op {
	case "add":
		out = decimal.Sum(args[0], args[1:]...)
	case "subtract":
		if len(args) == 1 {
			out = args[0].Neg()
			break
		}
		out = args[0]
		for _, d := range args[1:] {
			out = out.Sub(d)
		}
	case "multiply":
		out = args[0]
		for _, d := range args[1:] {
			out = out.Mul(d)
		}
	case "divide":
		out = args[0]
		for _, d := range args[1:] {
			if d.IsZero() {
				return 0, xerr.Math(op, "division by zero")
			}
			out = out.Div(d)
		}
	case "min":
		out = decimal.Min(args[0], args[1:]...)
	case "max":
		out = decimal.Max(args[0], args[1:]...)
	case "mod":
		if args[1].IsZero() {
			return 0, xerr.Math(op, "modulo by zero")
		}
		out = args[0].Mod(args[1])
	case "power":
		x, _ := args[0].Float64()
		y, _ := args[1].Float64()
		return finish(op, math.Pow(x, y), e.Precision)
	case "sqrt":
		if args[0].IsNegative() {
			return 0, xerr.Math(op, "square root of negative number %v", args[0])
		}
		x, _ := args[0].Float64()
		return finish(op, math.Sqrt(x), e.Precision)
	case "abs":
		out = args[0].Abs()
	case "round":
		return finish(op, args[0].Round(places).InexactFloat64(), nil)
	case "ceil":
		return finish(op, args[0].RoundCeil(places).InexactFloat64(), nil)
	case "floor":
		return finish(op, args[0].RoundFloor(places).InexactFloat64(), nil)
	}
	if e.Precision != nil {
		out = out.Round(places)
	}
	return finish(op, out.InexactFloat64(), nil)
}

// finish checks that f is a finite result, and rounds it to precision if
// that is set.
func finish(op string, f float64, precision *int) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, xerr.Math(op, "result is not a finite number")
	}
	if precision != nil {
		f = decimal.NewFromFloat(f).Round(int32(*precision)).InexactFloat64()
	}
	return f, nil
}

func operand(op string, arg template.Operand, lookup LookupFunc) (float64, error) {
	switch t := arg.(type) {
	case template.Number:
		return float64(t), nil

	case template.Ref:
		s := strings.TrimSpace(string(t))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		if lookup == nil {
			return 0, xerr.Math(op, "cannot resolve operand %q", s)
		}
		v, ok, err := lookup(s)
		if err != nil {
			return 0, xerr.Math(op, "operand %q: %w", s, err)
		} else if !ok {
			return 0, xerr.Math(op, "operand %q not found", s)
		}
		f, ok := value.ToNumber(v)
		if !ok {
			return 0, xerr.Math(op, "operand %q is not a number: %s", s, v.JSON())
		}
		return f, nil

	case *template.MathExpr:
		return eval(t, lookup)
	}
	return 0, fmt.Errorf("invalid operand type %T", arg)
}
