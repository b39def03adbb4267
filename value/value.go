// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package value defines a mutable tree representation of JSON values.
//
// Objects and arrays are represented by pointers, so that a tree can be
// extended in place by the transformation engine. Object members preserve
// their input order, and numbers read from JSON text retain their original
// spelling, so that values copied unchanged from a source document are
// reproduced exactly in the output.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/creachadair/jtransform/internal/escape"
	"go4.org/mem"
)

// A Value is an arbitrary JSON value.
type Value interface {
	// JSON returns the compact JSON encoding of the value.
	JSON() string

	// String returns the plain text form of the value. For strings this is
	// the unquoted content; for other values it is the JSON encoding.
	String() string
}

// Numeric is a Value that has a numeric representation.
type Numeric interface {
	Value
	Float() float64
}

// An Object is a collection of key-value members.
type Object struct {
	Members []*Member
}

// NewObject constructs an object with the given members.
func NewObject(ms ...*Member) *Object { return &Object{Members: ms} }

// Find returns the first member of o with the given key, or nil.
func (o *Object) Find(key string) *Member {
	if i := o.IndexKey(key); i >= 0 {
		return o.Members[i]
	}
	return nil
}

// IndexKey returns the index of the first member of o with the given key, or
// -1 if there is no such member.
func (o *Object) IndexKey(key string) int {
	for i, m := range o.Members {
		if m.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value of the member of o with the given key, and reports
// whether such a member exists.
func (o *Object) Get(key string) (Value, bool) {
	if m := o.Find(key); m != nil {
		return m.Value, true
	}
	return nil, false
}

// Set replaces the value of the member of o with the given key, or appends a
// new member if there is none.
func (o *Object) Set(key string, v Value) {
	if m := o.Find(key); m != nil {
		m.Value = v
		return
	}
	o.Members = append(o.Members, &Member{Key: key, Value: v})
}

// Len reports the number of members in o.
func (o *Object) Len() int { return len(o.Members) }

func (o *Object) JSON() string {
	if len(o.Members) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, m := range o.Members {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(m.JSON())
	}
	sb.WriteByte('}')
	return sb.String()
}

func (o *Object) String() string { return o.JSON() }

// A Member is a single key-value pair belonging to an Object.
type Member struct {
	Key   string
	Value Value
}

func (m *Member) JSON() string {
	buf := escape.Quote(mem.S(m.Key))
	buf = append(buf, ':')
	return string(buf) + m.Value.JSON()
}

func (m *Member) String() string { return fmt.Sprintf("Member(key=%q)", m.Key) }

// Field constructs an object member with the given key and value.
// The value must be acceptable to ToValue.
func Field(key string, v any) *Member { return &Member{Key: key, Value: ToValue(v)} }

// An Array is a sequence of values.
type Array struct {
	Values []Value
}

// NewArray constructs an array of the given values.
func NewArray(vs ...Value) *Array { return &Array{Values: vs} }

// Len reports the number of elements in a.
func (a *Array) Len() int { return len(a.Values) }

func (a *Array) JSON() string {
	if len(a.Values) == 0 {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a.Values {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(v.JSON())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (a *Array) String() string { return a.JSON() }

// A String is a string value.
type String string

func (s String) JSON() string   { return string(escape.Quote(mem.S(string(s)))) }
func (s String) String() string { return string(s) }

// Len reports the length of s in bytes.
func (s String) Len() int { return len(s) }

// An Int is an integer value.
type Int int64

func (z Int) JSON() string   { return strconv.FormatInt(int64(z), 10) }
func (z Int) String() string { return z.JSON() }
func (z Int) Float() float64 { return float64(z) }

// A Float is a floating-point value.
type Float float64

// JSON encodes f. Values that JSON cannot represent (NaN and infinities) are
// encoded as null.
func (f Float) JSON() string {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "null"
	}
	format := byte('f')
	if abs := math.Abs(v); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	return strconv.FormatFloat(v, format, -1, 64)
}

func (f Float) String() string { return f.JSON() }
func (f Float) Float() float64 { return float64(f) }

// A Number is a number in its original textual form, as read from JSON input.
type Number string

func (n Number) JSON() string   { return string(n) }
func (n Number) String() string { return string(n) }

// Float returns the value of n as a float64. Out-of-range values are reported
// as infinities.
func (n Number) Float() float64 {
	v, _ := strconv.ParseFloat(string(n), 64)
	return v
}

// A Bool is a Boolean constant, true or false.
type Bool bool

func (b Bool) JSON() string   { return strconv.FormatBool(bool(b)) }
func (b Bool) String() string { return b.JSON() }

type nullValue struct{}

func (nullValue) JSON() string   { return "null" }
func (nullValue) String() string { return "null" }

// Null is the JSON null constant.
var Null Value = nullValue{}

// IsNull reports whether v is nil or the null constant.
func IsNull(v Value) bool { return v == nil || v == Null }

// Text returns the string form of v used when composing text: the empty
// string for nil or null, otherwise v.String().
func Text(v Value) string {
	if IsNull(v) {
		return ""
	}
	return v.String()
}

// ToNumber reports the numeric value of v, if it has one. Strings are
// converted if their trimmed content parses as a number.
func ToNumber(v Value) (float64, bool) {
	switch t := v.(type) {
	case Numeric:
		return t.Float(), true
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		return f, err == nil
	}
	return 0, false
}

// ToValue converts a string, int, int64, float64, bool, nil, []any,
// map[string]any, or Value into a Value. It panics if v does not have one of
// those types. Map keys are emitted in an unspecified order.
func ToValue(v any) Value {
	switch t := v.(type) {
	case Value:
		return t
	case string:
		return String(t)
	case int:
		return Int(t)
	case int64:
		return Int(t)
	case float64:
		return Float(t)
	case bool:
		return Bool(t)
	case nil:
		return Null
	case []any:
		a := &Array{Values: make([]Value, len(t))}
		for i, elt := range t {
			a.Values[i] = ToValue(elt)
		}
		return a
	case map[string]any:
		o := &Object{Members: make([]*Member, 0, len(t))}
		for key, elt := range t {
			o.Members = append(o.Members, Field(key, elt))
		}
		return o
	default:
		panic(fmt.Sprintf("invalid value %T", v))
	}
}

// Clone returns a deep copy of v. Scalars are immutable and are returned
// unchanged.
func Clone(v Value) Value {
	switch t := v.(type) {
	case *Object:
		o := &Object{Members: make([]*Member, len(t.Members))}
		for i, m := range t.Members {
			o.Members[i] = &Member{Key: m.Key, Value: Clone(m.Value)}
		}
		return o
	case *Array:
		a := &Array{Values: make([]Value, len(t.Values))}
		for i, elt := range t.Values {
			a.Values[i] = Clone(elt)
		}
		return a
	default:
		return v
	}
}

// Equal reports whether a and b represent the same JSON value. Numbers are
// compared by value regardless of spelling, and object members are compared
// in order.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch x := a.(type) {
	case *Object:
		y, ok := b.(*Object)
		if !ok || len(x.Members) != len(y.Members) {
			return false
		}
		for i, m := range x.Members {
			if m.Key != y.Members[i].Key || !Equal(m.Value, y.Members[i].Value) {
				return false
			}
		}
		return true
	case *Array:
		y, ok := b.(*Array)
		if !ok || len(x.Values) != len(y.Values) {
			return false
		}
		for i, elt := range x.Values {
			if !Equal(elt, y.Values[i]) {
				return false
			}
		}
		return true
	case Numeric:
		y, ok := b.(Numeric)
		return ok && x.Float() == y.Float()
	default:
		return a == b
	}
}
