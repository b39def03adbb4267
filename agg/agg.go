// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package agg folds a sequence of JSON values into a single value.
//
// The supported operations are sum, avg (or average), min, max, count,
// first, last, and join. For an empty input, count and sum yield 0, join
// yields the empty string, and the other operations yield no value.
package agg

import (
	"strconv"
	"strings"

	"github.com/creachadair/jtransform/resolve"
	"github.com/creachadair/jtransform/value"
	"github.com/creachadair/jtransform/xerr"
	"github.com/shopspring/decimal"
)

// A Kind identifies an aggregation operation.
type Kind byte

const (
	Invalid Kind = iota
	Sum
	Avg
	Min
	Max
	Count
	First
	Last
	Join
)

var kindText = [...]string{
	Invalid: "invalid",
	Sum:     "sum",
	Avg:     "avg",
	Min:     "min",
	Max:     "max",
	Count:   "count",
	First:   "first",
	Last:    "last",
	Join:    "join",
}

func (k Kind) String() string {
	if int(k) < len(kindText) {
		return kindText[k]
	}
	return kindText[Invalid]
}

// ParseKind returns the Kind named by s, ignoring case. Errors have kind
// xerr.ErrAggregation.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "average" {
		return Avg, nil
	}
	for k, text := range kindText {
		if k != int(Invalid) && text == name {
			return Kind(k), nil
		}
	}
	return Invalid, xerr.Aggregation(s, "unknown aggregation type")
}

// CheckKind reports an error if s does not name an aggregation operation.
func CheckKind(s string) error { _, err := ParseKind(s); return err }

// DefaultSeparator is the separator used by join when none is given.
const DefaultSeparator = ","

// An Aggregator folds sequences of values. Projections of elements are
// resolved with its Resolver.
type Aggregator struct {
	Resolver *resolve.Resolver
}

// Aggregate folds items using the operation named by op. If elementPath is
// not empty, each item is first replaced by the value at that path relative
// to the item; items where the path does not match are skipped. The
// separator is used by join, and defaults to DefaultSeparator.
//
// Aggregate reports whether a value was produced.
func (a Aggregator) Aggregate(items []value.Value, op, elementPath, separator string) (value.Value, bool, error) {
	kind, err := ParseKind(op)
	if err != nil {
		return nil, false, err
	}
	return a.Fold(items, kind, elementPath, separator)
}

// Fold is as Aggregate, but takes an operation kind.
func (a Aggregator) Fold(items []value.Value, kind Kind, elementPath, separator string) (value.Value, bool, error) {
	switch kind {
	case Count:
		return value.Int(len(items)), true, nil

	case First, Last:
		if len(items) == 0 {
			return nil, false, nil
		}
		elt := items[0]
		if kind == Last {
			elt = items[len(items)-1]
		}
		return a.project(elt, elementPath)

	case Join:
		if separator == "" {
			separator = DefaultSeparator
		}
		var parts []string
		for _, elt := range items {
			v, ok, err := a.project(elt, elementPath)
			if err != nil {
				return nil, false, err
			}
			if s := value.Text(v); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return value.String(strings.Join(parts, separator)), true, nil

	case Sum, Avg, Min, Max:
		nums, err := a.numbers(items, elementPath)
		if err != nil {
			return nil, false, err
		}
		return foldNumbers(kind, nums)
	}
	return nil, false, xerr.Aggregation(kind.String(), "unknown aggregation type")
}

func foldNumbers(kind Kind, nums []decimal.Decimal) (value.Value, bool, error) {
	if len(nums) == 0 {
		if kind == Sum {
			return value.Int(0), true, nil
		}
		return nil, false, nil
	}
	var out decimal.Decimal
	switch kind {
	case Sum:
		out = decimal.Sum(nums[0], nums[1:]...)
	case Avg:
		out = decimal.Avg(nums[0], nums[1:]...)
	case Min:
		out = decimal.Min(nums[0], nums[1:]...)
	case Max:
		out = decimal.Max(nums[0], nums[1:]...)
	}
	return value.Float(out.InexactFloat64()), true, nil
}

// numbers returns the numeric values of the projections of items, skipping
// those that do not match or are not numbers.
func (a Aggregator) numbers(items []value.Value, elementPath string) ([]decimal.Decimal, error) {
	var out []decimal.Decimal
	for _, elt := range items {
		v, ok, err := a.project(elt, elementPath)
		if err != nil {
			return nil, err
		} else if !ok {
			continue
		}
		if f, ok := value.ToNumber(v); ok {
			if d, err := decimal.NewFromString(numberText(v, f)); err == nil {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

// numberText returns the decimal text of a numeric value v with value f,
// preferring the original spelling of numbers read from JSON. Values that are
// not finite yield text that does not parse as a decimal.
func numberText(v value.Value, f float64) string {
	switch t := v.(type) {
	case value.Number:
		return string(t)
	case value.String:
		return strings.TrimSpace(string(t))
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// project returns the value of elementPath relative to elt, or elt itself if
// elementPath is empty. A projection that cannot be traversed is treated as
// no match.
func (a Aggregator) project(elt value.Value, elementPath string) (value.Value, bool, error) {
	if elementPath == "" {
		return elt, true, nil
	}
	if a.Resolver == nil {
		return nil, false, xerr.Aggregation("project", "no resolver for element path %q", elementPath)
	}
	v, ok, err := a.Resolver.Lookup(resolve.Scope{Root: elt, Current: elt}, elementPath)
	if err != nil {
		if _, cerr := a.Resolver.Compile(elementPath); cerr != nil {
			return nil, false, cerr
		}
		return nil, false, nil
	}
	return v, ok, nil
}
