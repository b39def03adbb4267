// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package resolve reads and writes locations in a JSON value tree using
// path expressions.
//
// A Resolver compiles path strings (see package jpath) and caches the
// results, so that a path used repeatedly by a template is parsed once. The
// cache is bounded with a least-recently-used eviction policy and is safe for
// concurrent use by multiple goroutines.
//
// Reads are performed relative to a Scope, which names the root value and
// optionally binds wildcard steps to a specific array index:
//
//	s := resolve.Scope{Root: doc}.WithIndex(2)
//	v, ok, err := r.Lookup(s, "$.orders[*].amount") // reads $.orders[2].amount
package resolve

import (
	"errors"

	"github.com/creachadair/jtransform/jpath"
	"github.com/creachadair/jtransform/value"
	"github.com/creachadair/jtransform/xerr"
	"github.com/creachadair/mds/cache"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of compiled paths retained by a Resolver
// when no other size is given.
const DefaultCacheSize = 1024

// A Filter reports whether the Current value of s satisfies a compiled
// filter predicate.
type Filter func(s Scope) (bool, error)

// A FilterCompiler compiles the text of a [?(...)] filter step.
type FilterCompiler func(text string) (Filter, error)

// Options are settings for a Resolver. A nil *Options provides defaults.
type Options struct {
	// The maximum number of compiled paths to cache.
	// If zero, DefaultCacheSize is used.
	CacheSize int

	// If set, compile filter steps with this function.
	// If nil, paths containing filter steps are rejected.
	Filters FilterCompiler
}

func (o *Options) cacheSize() int64 {
	if o == nil || o.CacheSize <= 0 {
		return DefaultCacheSize
	}
	return int64(o.CacheSize)
}

func (o *Options) filters() FilterCompiler {
	if o == nil {
		return nil
	}
	return o.Filters
}

// A Resolver compiles and evaluates path expressions.
type Resolver struct {
	filters FilterCompiler
	group   singleflight.Group
	cache   *cache.Cache[string, *Path]
}

// New constructs a new Resolver with the given options.
func New(opts *Options) *Resolver {
	return &Resolver{
		filters: opts.filters(),
		cache:   cache.New(cache.LRU[string, *Path](opts.cacheSize())),
	}
}

// SetFilters sets the compiler used for filter steps. It must be called
// before r is used to compile any path.
func (r *Resolver) SetFilters(fc FilterCompiler) { r.filters = fc }

// Compile parses path and returns its compiled form, using a cached result
// if one is available. Concurrent calls to compile the same uncached path
// share a single compilation.
func (r *Resolver) Compile(path string) (*Path, error) {
	if p, ok := r.cache.Get(path); ok {
		return p, nil
	}

	v, err, _ := r.group.Do(path, func() (any, error) {
		p, err := r.compile(path)
		if err != nil {
			return nil, err
		}
		r.cache.Put(path, p)
		return p, nil
	})
	if err != nil {
		return nil, xerr.PathNotFound(path, err)
	}
	return v.(*Path), nil
}

func (r *Resolver) compile(path string) (*Path, error) {
	expr, err := jpath.Parse(path)
	if err != nil {
		return nil, err
	}
	p := &Path{text: path, expr: expr}
	for i, step := range expr.Steps {
		if step.Op != jpath.Filter {
			continue
		}
		if r.filters == nil {
			return nil, errors.New("filter expressions are not enabled")
		}
		f, err := r.filters(step.Key)
		if err != nil {
			return nil, err
		}
		if p.filters == nil {
			p.filters = make([]Filter, len(expr.Steps))
		}
		p.filters[i] = f
	}
	return p, nil
}

// Lookup returns the first value matching path in scope s, and reports
// whether a match was found. A path that does not match is not an error.
// An error is reported if path is malformed, or if a definite path
// traverses a value that is not a container.
func (r *Resolver) Lookup(s Scope, path string) (value.Value, bool, error) {
	p, err := r.Compile(path)
	if err != nil {
		return nil, false, err
	}
	vs, err := p.Select(s)
	if err != nil || len(vs) == 0 {
		return nil, false, err
	}
	return vs[0], true, nil
}

// LookupAll returns deep copies of all the values matching path in scope s.
func (r *Resolver) LookupAll(s Scope, path string) ([]value.Value, error) {
	p, err := r.Compile(path)
	if err != nil {
		return nil, err
	}
	vs, err := p.Select(s)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		out[i] = value.Clone(v)
	}
	return out, nil
}

// Resolve returns the first value matching path relative to root.
// The value returned shares structure with root.
func (r *Resolver) Resolve(root value.Value, path string) (value.Value, bool, error) {
	return r.Lookup(Scope{Root: root}, path)
}

// ResolveAll returns deep copies of all the values matching path relative to
// root, in document order.
func (r *Resolver) ResolveAll(root value.Value, path string) ([]value.Value, error) {
	return r.LookupAll(Scope{Root: root}, path)
}

// Exists reports whether path matches at least one value in root.
func (r *Resolver) Exists(root value.Value, path string) bool {
	_, ok, err := r.Resolve(root, path)
	return ok && err == nil
}

// Set writes v at the location named by path in root. See Path.Set.
func (r *Resolver) Set(root value.Value, path string, v value.Value, createMissing bool) error {
	p, err := r.Compile(path)
	if err != nil {
		return err
	}
	return p.Set(root, v, createMissing)
}
