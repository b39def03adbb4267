// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package engine

import (
	"errors"
	"regexp"

	"github.com/creachadair/jtransform/agg"
	"github.com/creachadair/jtransform/calc"
	"github.com/creachadair/jtransform/resolve"
	"github.com/creachadair/jtransform/template"
	"github.com/creachadair/jtransform/value"
	"github.com/creachadair/jtransform/xerr"
	"go.uber.org/zap"
)

// An applier applies one template at one nesting depth. Nested templates are
// applied by a fresh applier whose depth is one greater than its parent.
type applier struct {
	*Engine
	opts   settings
	depth  int
	source value.Value
}

// A fatalError aborts a transformation regardless of strict mode.
type fatalError struct{ err error }

func (f fatalError) Error() string { return f.err.Error() }
func (f fatalError) Unwrap() error { return f.err }

// apply applies the mappings of t in order, and returns the output.
func (a *applier) apply(t *template.Template) (*value.Object, error) {
	if len(t.Mappings) == 0 {
		return nil, &xerr.TransformError{Op: "apply", Err: xerr.Template("template has no mappings")}
	}
	out := value.NewObject()

	// Paths that do not match the source are retried in the output, so that
	// later mappings can read what earlier ones wrote.
	s := resolve.Scope{Root: a.source, Fallback: out}
	for _, m := range t.Mappings {
		if !m.Enabled {
			a.trace("Mapping disabled", m)
			continue
		}
		if err := a.mapping(s, m, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// mapping produces the value of m and writes it to out.
func (a *applier) mapping(s resolve.Scope, m *template.Mapping, out *value.Object) error {
	kind := template.KindOf(m.Source)
	v, ok, err := a.produce(s, m)
	if err != nil {
		var fe fatalError
		if errors.As(err, &fe) {
			return &xerr.TransformError{Target: m.To, Op: kind.String(), Err: fe.err}
		} else if a.opts.strict {
			return &xerr.TransformError{Target: m.To, Op: kind.String(), Err: err}
		}
		a.trace("Mapping failed", m, zap.Error(err))
		v, ok = nil, false
	}

	if len(m.Conditions) != 0 && !m.ConsumesConditions() {
		cv, cok, err := a.eval.EvaluateAll(s, m.Conditions)
		if err != nil {
			if a.opts.strict {
				return &xerr.TransformError{Target: m.To, Op: "conditions", Err: err}
			}
			a.trace("Conditions failed", m, zap.Error(err))
		} else if cok {
			v, ok = cv, true
		}
	}

	if (!ok || value.IsNull(v)) && m.Default != nil {
		v, ok = template.ExpandConstant(m.Default), true
	}
	if !ok {
		if !a.opts.preserveNulls {
			a.trace("Mapping omitted", m)
			return nil
		}
		v = value.Null
	}

	if err := a.res.Set(out, m.To, value.Clone(v), a.opts.createPaths); err != nil {
		return &xerr.TransformError{Target: m.To, Op: "write", Err: err}
	}
	a.trace("Mapping applied", m, zap.Stringer("value", v))
	return nil
}

// produce computes the value of the source of m, and reports whether there
// is one.
func (a *applier) produce(s resolve.Scope, m *template.Mapping) (value.Value, bool, error) {
	switch src := m.Source.(type) {
	case nil:
		return nil, false, nil

	case *template.Constant:
		return template.ExpandConstant(src.Value), true, nil

	case *template.Math:
		v, err := calc.Evaluate(src.Expr, func(path string) (value.Value, bool, error) {
			return a.res.Lookup(s, path)
		})
		return v, err == nil, err

	case *template.Concat:
		return a.concat(s, src.Format)

	case *template.Aggregate:
		if len(m.Conditions) != 0 {
			return a.filterAggregate(s, src, m.Conditions)
		}
		return a.aggregate(s, src)

	case *template.Advanced:
		return a.advanced(s, src)

	case *template.Field:
		v, ok, err := a.res.Lookup(s, src.From)
		if err != nil {
			return nil, false, err
		} else if !ok && a.opts.strict && m.Default == nil {
			return nil, false, xerr.PathNotFound(src.From, nil)
		}
		return v, ok, nil

	case *template.Nested:
		return a.nested(src.Template)
	}
	return nil, false, xerr.Template("unknown source type %T", m.Source)
}

// placeholderRE matches a {path} placeholder in a concat format.
var placeholderRE = regexp.MustCompile(`\{([^{}]+)\}`)

// concat replaces each {path} placeholder in format with the text of the
// value at that path, or the empty string if the path does not match or
// cannot be traversed. Braced text that is not a valid path is kept as is.
func (a *applier) concat(s resolve.Scope, format string) (value.Value, bool, error) {
	out := placeholderRE.ReplaceAllStringFunc(format, func(ph string) string {
		p, err := a.res.Compile(ph[1 : len(ph)-1])
		if err != nil {
			return ph
		}
		vs, err := p.Select(s)
		if err != nil || len(vs) == 0 {
			return ""
		}
		return value.Text(vs[0])
	})
	return value.String(out), true, nil
}

// aggregate folds the values selected by src.From. A path that selects a
// single array folds the elements of that array.
func (a *applier) aggregate(s resolve.Scope, src *template.Aggregate) (value.Value, bool, error) {
	kind, err := agg.ParseKind(src.Op)
	if err != nil {
		return nil, false, err
	}
	items, err := a.selectAll(s, src.From)
	if err != nil {
		return nil, false, err
	}
	if len(items) == 1 {
		if arr, ok := items[0].(*value.Array); ok {
			items = arr.Values
		}
	}
	return agg.Aggregator{Resolver: a.res}.Fold(items, kind, "", src.Separator)
}

// filterAggregate folds the results of evaluating conds once for each
// element of the array selected by the portion of src.From before its first
// wildcard. Within each evaluation, wildcards select the current element.
// A count is the length of the whole array, regardless of the conditions.
func (a *applier) filterAggregate(s resolve.Scope, src *template.Aggregate, conds []*template.Condition) (value.Value, bool, error) {
	kind, err := agg.ParseKind(src.Op)
	if err != nil {
		return nil, false, err
	}
	p, err := a.res.Compile(src.From)
	if err != nil {
		return nil, false, err
	}
	prefix, _, _ := p.Expr().CutWildcard()
	v, _, err := a.res.Lookup(s, prefix.String())
	if err != nil {
		return nil, false, err
	}
	arr, _ := v.(*value.Array)
	if arr == nil {
		arr = value.NewArray()
	}
	if kind == agg.Count {
		return value.Int(arr.Len()), true, nil
	}

	var items []value.Value
	for i := range arr.Values {
		r, ok, err := a.eval.EvaluateAll(s.WithIndex(i), conds)
		if err != nil {
			return nil, false, err
		} else if ok {
			items = append(items, r)
		}
	}
	return agg.Aggregator{Resolver: a.res}.Fold(items, kind, "", src.Separator)
}

// advanced folds the elements of the array at src.From that satisfy the
// condition of the rule. The condition is evaluated in a context where the
// element is bound as "item", and as the current value "@".
func (a *applier) advanced(s resolve.Scope, src *template.Advanced) (value.Value, bool, error) {
	rule := src.Rule
	kind, err := agg.ParseKind(rule.Type)
	if err != nil {
		return nil, false, err
	}
	v, _, err := a.res.Lookup(s, src.From)
	if err != nil {
		return nil, false, err
	}
	var elts []value.Value
	if arr, ok := v.(*value.Array); ok {
		elts = arr.Values
	}

	var items []value.Value
	for _, elt := range elts {
		if rule.Condition != "" {
			ctx := value.NewObject(&value.Member{Key: "item", Value: elt})
			ok, err := a.eval.Test(resolve.Scope{Root: ctx, Current: elt}, rule.Condition)
			if err != nil {
				return nil, false, err
			} else if !ok {
				continue
			}
		}
		items = append(items, elt)
	}
	if len(items) == 0 {
		if kind == agg.Count {
			return value.Int(0), true, nil
		}
		return nil, false, nil
	}
	return agg.Aggregator{Resolver: a.res}.Fold(items, kind, rule.Field, rule.Separator)
}

// nested applies t with a child applier at the next depth. Any error from
// the child is fatal to the parent, since the child has already applied the
// strict mode policy to its own mappings.
func (a *applier) nested(t *template.Template) (value.Value, bool, error) {
	child := &applier{
		Engine: a.Engine,
		opts:   a.opts,
		depth:  a.depth + 1,
		source: a.source,
	}
	if child.depth > a.opts.maxDepth {
		return nil, false, fatalError{xerr.MaxDepth(child.depth, a.opts.maxDepth)}
	}
	out, err := child.apply(t)
	if err != nil {
		return nil, false, fatalError{err}
	}
	return out, true, nil
}

// selectAll returns all the values matching path in scope s, sharing
// structure with the source.
func (a *applier) selectAll(s resolve.Scope, path string) ([]value.Value, error) {
	p, err := a.res.Compile(path)
	if err != nil {
		return nil, err
	}
	return p.Select(s)
}

func (a *applier) trace(msg string, m *template.Mapping, fields ...zap.Field) {
	if !a.opts.tracing {
		return
	}
	a.log.Debug(msg, append([]zap.Field{
		zap.String("target", m.To),
		zap.Stringer("kind", template.KindOf(m.Source)),
		zap.Int("depth", a.depth),
	}, fields...)...)
}
