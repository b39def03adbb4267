// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package engine applies transformation templates to JSON documents.
//
// An Engine owns the caches of compiled paths and compiled conditions shared
// by all the transformations it performs, and is safe for concurrent use.
// Each transformation is otherwise independent: it reads an immutable source
// document and constructs a new output document by applying the mappings of
// a template in order.
//
// Settings for a transformation are resolved once per call. Each setting is
// taken from the call-site override if it is set there, otherwise from the
// template, otherwise from the engine defaults.
package engine

import (
	"context"

	"github.com/creachadair/jtransform/agg"
	"github.com/creachadair/jtransform/calc"
	"github.com/creachadair/jtransform/cond"
	"github.com/creachadair/jtransform/resolve"
	"github.com/creachadair/jtransform/template"
	"github.com/creachadair/jtransform/value"
	"github.com/creachadair/jtransform/xerr"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

// DefaultMaxDepth is the default limit on the nesting of templates.
const DefaultMaxDepth = 10

// BaseSettings are the settings used when neither the caller, the template,
// nor the engine defaults set a value.
var BaseSettings = template.Settings{
	StrictMode:    template.Bool(false),
	PreserveNulls: template.Bool(false),
	CreatePaths:   template.Bool(true),
	MaxDepth:      template.Int(DefaultMaxDepth),
	EnableTracing: template.Bool(false),
}

// Options are settings for an Engine. A nil *Options provides defaults.
type Options struct {
	// Trace output is written to this logger at debug level.
	// If nil, tracing output is discarded.
	Logger *zap.Logger

	// Default settings, used where neither the caller nor the template sets
	// a value. Unset fields fall back to BaseSettings.
	Defaults template.Settings

	// The maximum number of compiled paths to cache.
	// If zero, resolve.DefaultCacheSize is used.
	PathCacheSize int

	// The maximum number of compiled conditions to cache.
	// If zero, cond.DefaultCacheSize is used.
	ConditionCacheSize int

	// If non-empty, the output of Transform is indented with this string.
	// Otherwise the output is compact.
	Indent string
}

func (o *Options) logger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// An Engine applies templates to documents.
type Engine struct {
	log      *zap.Logger
	defaults template.Settings
	indent   string

	res  *resolve.Resolver
	eval *cond.Evaluator
}

// New constructs a new Engine with the given options.
func New(opts *Options) *Engine {
	e := &Engine{log: opts.logger(), defaults: BaseSettings}
	var pathCache, condCache int
	if opts != nil {
		e.defaults = e.defaults.Merge(opts.Defaults)
		e.indent = opts.Indent
		pathCache, condCache = opts.PathCacheSize, opts.ConditionCacheSize
	}
	e.res = resolve.New(&resolve.Options{CacheSize: pathCache})
	e.eval = cond.NewEvaluator(e.res, condCache)
	e.res.SetFilters(e.eval.Filter)
	return e
}

// Defaults returns the default settings of e, with every field set.
func (e *Engine) Defaults() template.Settings { return e.defaults }

// Resolver returns the path resolver used by e.
func (e *Engine) Resolver() *resolve.Resolver { return e.res }

// Evaluator returns the condition evaluator used by e.
func (e *Engine) Evaluator() *cond.Evaluator { return e.eval }

// Settings returns the effective settings for applying t with the given
// call-site override, which may be nil.
func (e *Engine) Settings(t *template.Template, override *template.Settings) template.Settings {
	s := e.defaults.Merge(t.Settings)
	if override != nil {
		s = s.Merge(*override)
	}
	return s
}

// Apply applies t to the source document src, and returns the resulting
// output document. The override settings, if non-nil, take precedence over
// those declared by t.
//
// Apply does not modify src, and the output shares no structure with it.
func (e *Engine) Apply(src value.Value, t *template.Template, override *template.Settings) (*value.Object, error) {
	a := &applier{
		Engine: e,
		opts:   newSettings(e.Settings(t, override)),
		source: src,
	}
	if a.opts.tracing {
		e.log.Debug("Applying template",
			zap.Int("mappings", len(t.Mappings)),
			zap.Bool("strict", a.opts.strict),
			zap.Int("max_depth", a.opts.maxDepth),
		)
	}
	return a.apply(t)
}

// Transform parses source as a JSON document and tmpl as a template, applies
// the template, and returns the encoded output document. The override
// settings, if non-nil, take precedence over those declared by the template.
//
// Errors from Transform have concrete type *xerr.TransformError.
func (e *Engine) Transform(source, tmpl string, override *template.Settings) (string, error) {
	src, err := value.ParseString(source)
	if err != nil {
		return "", &xerr.TransformError{Op: "parse source", Err: err}
	}
	t, err := template.Parse(tmpl)
	if err != nil {
		return "", &xerr.TransformError{Op: "parse template", Err: err}
	}
	out, err := e.Apply(src, t, override)
	if err != nil {
		return "", err
	}
	return e.format(out), nil
}

func (e *Engine) format(v value.Value) string {
	if e.indent == "" {
		return v.JSON()
	}
	return string(pretty.PrettyOptions([]byte(v.JSON()), &pretty.Options{
		Width:  80,
		Indent: e.indent,
	}))
}

// A Result is the outcome of an asynchronous transformation.
type Result struct {
	Output string
	Err    error
}

// TransformAsync runs Transform on a separate goroutine, and delivers its
// result on the returned channel, which is then closed. If ctx has ended
// before the transformation starts, the result reports the error from ctx.
// Once started, a transformation runs to completion.
func (e *Engine) TransformAsync(ctx context.Context, source, tmpl string, override *template.Settings) <-chan Result {
	ch := make(chan Result, 1)
	if err := ctx.Err(); err != nil {
		ch <- Result{Err: err}
		close(ch)
		return ch
	}
	go func() {
		defer close(ch)
		out, err := e.Transform(source, tmpl, override)
		ch <- Result{Output: out, Err: err}
	}()
	return ch
}

// Validate checks the structure of the template text tmpl without applying
// it, and returns a description of each problem found. A template that
// cannot be parsed yields a single message. A valid template yields no
// messages.
func (e *Engine) Validate(tmpl string) []string {
	t, err := template.Parse(tmpl)
	if err != nil {
		return []string{err.Error()}
	}
	return e.ValidateTemplate(t)
}

// ValidateTemplate is as Validate, but takes a decoded template.
func (e *Engine) ValidateTemplate(t *template.Template) []string {
	return t.Validate(template.Checks{
		Condition: e.eval.Check,
		Math:      calc.Check,
		Aggregate: agg.CheckKind,
	})
}

// settings are the resolved settings for one transformation.
type settings struct {
	strict        bool
	preserveNulls bool
	createPaths   bool
	maxDepth      int
	tracing       bool
}

// newSettings converts s, which must have all fields set, to settings.
func newSettings(s template.Settings) settings {
	return settings{
		strict:        *s.StrictMode,
		preserveNulls: *s.PreserveNulls,
		createPaths:   *s.CreatePaths,
		maxDepth:      *s.MaxDepth,
		tracing:       *s.EnableTracing,
	}
}
