// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package value

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is reported by Parse for input that is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON input")

// Parse parses a single JSON value from data. If an object contains duplicate
// keys, the last value wins but the member keeps its first position.
func Parse(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// ParseString parses a single JSON value from s.
func ParseString(s string) (Value, error) { return Parse([]byte(s)) }

// MustParse parses s as JSON, and panics if that fails. It is intended for
// use in initializers and tests.
func MustParse(s string) Value {
	v, err := ParseString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Null
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return Number(r.Raw)
	case gjson.String:
		return String(r.Str)
	}
	if r.IsArray() {
		a := &Array{Values: []Value{}}
		r.ForEach(func(_, elt gjson.Result) bool {
			a.Values = append(a.Values, fromResult(elt))
			return true
		})
		return a
	}
	o := &Object{Members: []*Member{}}
	r.ForEach(func(key, elt gjson.Result) bool {
		o.Set(key.Str, fromResult(elt))
		return true
	})
	return o
}
