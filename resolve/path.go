// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package resolve

import (
	"errors"
	"fmt"

	"github.com/creachadair/jtransform/jpath"
	"github.com/creachadair/jtransform/value"
	"github.com/creachadair/jtransform/xerr"
)

// A Scope is the environment in which a path is evaluated.
type Scope struct {
	// Root is the value addressed by a path beginning with "$", or by a path
	// with no root marker.
	Root value.Value

	// Current is the value addressed by a path beginning with "@".
	Current value.Value

	// If a path does not match in Root, it is retried in Fallback, if set.
	Fallback value.Value

	index int
	bound bool
}

// WithIndex returns a copy of s in which every wildcard step selects the
// array element at offset i, rather than all elements.
func (s Scope) WithIndex(i int) Scope { s.index, s.bound = i, true; return s }

// WithCurrent returns a copy of s with its current value set to v.
func (s Scope) WithCurrent(v value.Value) Scope { s.Current = v; return s }

// Index reports the index bound to wildcard steps in s, if any.
func (s Scope) Index() (int, bool) { return s.index, s.bound }

// A Path is a compiled path expression.
type Path struct {
	text    string
	expr    jpath.Expr
	filters []Filter // parallel to expr.Steps; nil if there are no filters
}

// String returns the text from which p was compiled.
func (p *Path) String() string { return p.text }

// Expr returns the parsed expression for p.
func (p *Path) Expr() jpath.Expr { return p.expr }

// Select returns all the values matching p in scope s, in document order.
// The values returned share structure with the inputs.
func (p *Path) Select(s Scope) ([]value.Value, error) {
	start := s.Root
	if p.expr.Current {
		start = s.Current
	}
	vs, err := p.selectFrom(start, s)
	if len(vs) == 0 && !p.expr.Current && s.Fallback != nil {
		if fv, ferr := p.selectFrom(s.Fallback, s); ferr == nil && len(fv) != 0 {
			return fv, nil
		}
	}
	if err != nil {
		return nil, xerr.PathNotFound(p.text, err)
	}
	return vs, nil
}

func (p *Path) selectFrom(start value.Value, s Scope) ([]value.Value, error) {
	if start == nil {
		return nil, nil
	}
	cur := []value.Value{start}
	definite := true
	for i, step := range p.expr.Steps {
		var next []value.Value
		for _, v := range cur {
			out, err := p.apply(i, step, v, s, definite)
			if err != nil {
				return nil, err
			}
			next = append(next, out...)
		}
		if len(next) == 0 {
			return nil, nil
		}
		cur = next
		if step.Op != jpath.Member && step.Op != jpath.Index && !(step.Op == jpath.Wildcard && s.bound) {
			definite = false
		}
	}
	return cur, nil
}

// apply applies step i of p to v. If strict is true, a type mismatch is
// reported as an error; otherwise v contributes no matches.
func (p *Path) apply(i int, step jpath.Step, v value.Value, s Scope, strict bool) ([]value.Value, error) {
	mismatch := func(want string) ([]value.Value, error) {
		if strict {
			return nil, fmt.Errorf("step %d: %s step on %s", i+1, want, typeName(v))
		}
		return nil, nil
	}

	switch step.Op {
	case jpath.Member:
		obj, ok := v.(*value.Object)
		if !ok {
			return mismatch("member")
		}
		if mv, ok := obj.Get(step.Key); ok {
			return []value.Value{mv}, nil
		}

	case jpath.Index:
		arr, ok := v.(*value.Array)
		if !ok {
			return mismatch("index")
		}
		if elt, ok := arrayIndex(arr, step.Index); ok {
			return []value.Value{elt}, nil
		}

	case jpath.Wildcard:
		if s.bound {
			if arr, ok := v.(*value.Array); ok {
				if elt, ok := arrayIndex(arr, s.index); ok {
					return []value.Value{elt}, nil
				}
				return nil, nil
			}
		}
		return children(v), nil

	case jpath.Slice:
		arr, ok := v.(*value.Array)
		if !ok {
			return mismatch("slice")
		}
		lo, hi := sliceBounds(step, len(arr.Values))
		if lo < hi {
			return arr.Values[lo:hi], nil
		}

	case jpath.Recur:
		var out []value.Value
		walk(v, func(elt value.Value) {
			if obj, ok := elt.(*value.Object); ok {
				if mv, ok := obj.Get(step.Key); ok {
					out = append(out, mv)
				}
			}
		})
		return out, nil

	case jpath.RecurAll:
		var out []value.Value
		for _, c := range children(v) {
			walk(c, func(elt value.Value) { out = append(out, elt) })
		}
		return out, nil

	case jpath.Filter:
		if p.filters == nil || p.filters[i] == nil {
			return nil, errors.New("filter is not compiled")
		}
		var out []value.Value
		for _, c := range children(v) {
			ok, err := p.filters[i](s.WithCurrent(c))
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, c)
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("step %d: unknown operator %v", i+1, step.Op)
	}
	return nil, nil
}

// arrayIndex returns the element of arr at offset i. A negative offset counts
// backward from the end of the array.
func arrayIndex(arr *value.Array, i int) (value.Value, bool) {
	if i < 0 {
		i += len(arr.Values)
	}
	if i < 0 || i >= len(arr.Values) {
		return nil, false
	}
	return arr.Values[i], true
}

func sliceBounds(step jpath.Step, n int) (lo, hi int) {
	norm := func(i int) int {
		if i < 0 {
			i += n
		}
		return max(0, min(i, n))
	}
	lo, hi = 0, n
	if step.HasLo {
		lo = norm(step.Index)
	}
	if step.HasHi {
		hi = norm(step.End)
	}
	return lo, hi
}

// children returns the elements of an array or the member values of an
// object. Other values have no children.
func children(v value.Value) []value.Value {
	switch t := v.(type) {
	case *value.Array:
		return t.Values
	case *value.Object:
		out := make([]value.Value, len(t.Members))
		for i, m := range t.Members {
			out[i] = m.Value
		}
		return out
	}
	return nil
}

// walk calls f for v and each of its descendants in preorder.
func walk(v value.Value, f func(value.Value)) {
	f(v)
	for _, c := range children(v) {
		walk(c, f)
	}
}

func typeName(v value.Value) string {
	switch v.(type) {
	case *value.Object:
		return "object"
	case *value.Array:
		return "array"
	case value.String:
		return "string"
	case value.Int, value.Float, value.Number:
		return "number"
	case value.Bool:
		return "bool"
	}
	return "null"
}

// Set writes v at the location named by p in root, which must be an object
// or array. Intermediate containers that do not exist are created if
// createMissing is true; otherwise a missing container is an error. An index
// step past the end of an existing array extends the array, padding with null,
// by at most MaxExtend elements. Setting the root path itself is a no-op.
//
// Only member and non-negative index steps may be written.
func (p *Path) Set(root, v value.Value, createMissing bool) error {
	if p.expr.IsRoot() && !p.expr.Current {
		return nil
	}
	if err := p.expr.CheckWrite(); err != nil {
		return xerr.PathNotFound(p.text, err)
	}
	if err := setPath(root, p.expr.Steps, v, createMissing); err != nil {
		return xerr.PathNotFound(p.text, err)
	}
	return nil
}

// MaxExtend is the largest number of elements a single index step may add to
// an array when writing.
const MaxExtend = 1 << 16

func setPath(cur value.Value, steps []jpath.Step, v value.Value, create bool) error {
	for i, step := range steps {
		last := i == len(steps)-1

		// Find or create the child of cur designated by step.
		var child value.Value
		var put func(value.Value)
		switch step.Op {
		case jpath.Member:
			obj, ok := cur.(*value.Object)
			if !ok {
				return fmt.Errorf("cannot set member %q of %s", step.Key, typeName(cur))
			}
			child, _ = obj.Get(step.Key)
			put = func(c value.Value) { obj.Set(step.Key, c) }

		case jpath.Index:
			arr, ok := cur.(*value.Array)
			if !ok {
				return fmt.Errorf("cannot set index %d of %s", step.Index, typeName(cur))
			}
			if n := step.Index - len(arr.Values) + 1; n > MaxExtend {
				return fmt.Errorf("index %d extends array of length %d by more than %d", step.Index, len(arr.Values), MaxExtend)
			}
			for len(arr.Values) <= step.Index {
				arr.Values = append(arr.Values, value.Null)
			}
			child = arr.Values[step.Index]
			put = func(c value.Value) { arr.Values[step.Index] = c }

		default:
			return fmt.Errorf("%s step is not writable", step.Op)
		}

		if last {
			put(v)
			return nil
		}
		if value.IsNull(child) {
			if !create {
				return fmt.Errorf("missing container at step %d", i+1)
			}
			child = newContainer(steps[i+1])
			put(child)
		}
		cur = child
	}
	return nil
}

// newContainer returns an empty container suitable as the target of step.
func newContainer(step jpath.Step) value.Value {
	if step.Op == jpath.Index {
		return &value.Array{}
	}
	return &value.Object{}
}
