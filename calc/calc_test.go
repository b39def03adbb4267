// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package calc_test

import (
	"errors"
	"testing"

	"github.com/creachadair/jtransform/calc"
	"github.com/creachadair/jtransform/template"
	"github.com/creachadair/jtransform/value"
	"github.com/creachadair/jtransform/xerr"
)

type (
	num = template.Number
	ref = template.Ref
)

func expr(op string, args ...template.Operand) *template.MathExpr {
	return &template.MathExpr{Operation: op, Operands: args}
}

func withPrecision(e *template.MathExpr, p int) *template.MathExpr {
	e.Precision = template.Int(p)
	return e
}

func testLookup(t *testing.T) calc.LookupFunc {
	t.Helper()
	doc := value.MustParse(`{"price": 19.99, "qty": "3", "rate": 0.08, "name": "widget", "zero": 0}`)
	return func(path string) (value.Value, bool, error) {
		obj := doc.(*value.Object)
		v, ok := obj.Get(path[len("$."):])
		return v, ok, nil
	}
}

func TestEvaluate(t *testing.T) {
	lookup := testLookup(t)
	tests := []struct {
		name string
		expr *template.MathExpr
		want float64
	}{
		{"Add", expr("add", num(0.1), num(0.2)), 0.3},
		{"AddOne", expr("add", num(4)), 4},
		{"AddMany", expr("add", num(100.50), num(75.25), num(200.00)), 375.75},
		{"Subtract", expr("subtract", num(10), num(3), num(2)), 5},
		{"Negate", expr("subtract", num(7)), -7},
		{"Multiply", expr("multiply", ref("$.price"), ref("$.qty")), 59.97},
		{"Divide", expr("divide", num(1), num(4)), 0.25},
		{"DivideFold", expr("divide", num(100), num(2), num(5)), 10},
		{"Power", expr("power", num(2), num(10)), 1024},
		{"Mod", expr("mod", num(17), num(5)), 2},
		{"ModNegative", expr("mod", num(-7), num(3)), -1},
		{"Sqrt", expr("sqrt", num(2.25)), 1.5},
		{"Abs", expr("abs", num(-3.5)), 3.5},
		{"Round", expr("round", num(2.5)), 3},
		{"RoundNegative", expr("round", num(-2.5)), -3},
		{"RoundPrecision", withPrecision(expr("round", num(1.005)), 2), 1.01},
		{"Ceil", expr("ceil", num(1.2)), 2},
		{"CeilPrecision", withPrecision(expr("ceil", num(1.231)), 2), 1.24},
		{"Floor", expr("floor", num(-1.2)), -2},
		{"Min", expr("min", num(3), num(-1), num(2)), -1},
		{"Max", expr("max", num(100.5), num(75.25), num(200)), 200},
		{"NumericString", expr("add", ref("1.5"), ref(" 2 ")), 3.5},
		{"Nested", expr("multiply",
			ref("$.price"),
			expr("add", num(1), ref("$.rate")),
		), 21.5892},
		{"NestedPrecision", withPrecision(expr("multiply",
			ref("$.price"),
			expr("add", num(1), ref("$.rate")),
		), 2), 21.59},
		{"CaseInsensitive", expr("ADD", num(1), num(1)), 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := calc.Evaluate(tc.expr, lookup)
			if err != nil {
				t.Fatalf("Evaluate: unexpected error: %v", err)
			}
			if f, ok := value.ToNumber(got); !ok || f != tc.want {
				t.Errorf("Evaluate: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	lookup := testLookup(t)
	tests := []struct {
		name string
		expr *template.MathExpr
	}{
		{"DivideByZero", expr("divide", num(1), num(0))},
		{"DivideByZeroPath", expr("divide", num(1), ref("$.zero"))},
		{"ModByZero", expr("mod", num(5), num(0))},
		{"SqrtNegative", expr("sqrt", num(-4))},
		{"NoOperands", expr("add")},
		{"BinaryArity", expr("power", num(2))},
		{"UnaryArity", expr("abs", num(1), num(2))},
		{"Unknown", expr("median", num(1))},
		{"Missing", expr("add", ref("$.nonesuch"))},
		{"NotNumber", expr("add", ref("$.name"))},
		{"NestedError", expr("add", num(1), expr("divide", num(1), num(0)))},
		{"Overflow", expr("power", num(10), num(400))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := calc.Evaluate(tc.expr, lookup)
			if !errors.Is(err, xerr.ErrMathOperation) {
				t.Errorf("Evaluate: got (%v, %v), want %v", got, err, xerr.ErrMathOperation)
			}
		})
	}

	// A path operand with no lookup function cannot be resolved.
	if _, err := calc.Evaluate(expr("add", ref("$.price")), nil); !errors.Is(err, xerr.ErrMathOperation) {
		t.Errorf("Evaluate without lookup: got %v, want %v", err, xerr.ErrMathOperation)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		expr *template.MathExpr
		ok   bool
	}{
		{expr("add", num(1)), true},
		{expr("round", ref("$.x")), true},
		{expr("add", num(1), expr("sqrt", num(1), num(2))), false},
		{expr("frobnicate", num(1)), false},
		{expr("mod", num(1)), false},
		{expr("max"), false},
	}
	for _, tc := range tests {
		err := calc.Check(tc.expr)
		if got := err == nil; got != tc.ok {
			t.Errorf("Check %s: got %v, want ok=%v", tc.expr.Encode().JSON(), err, tc.ok)
		}
	}
}
