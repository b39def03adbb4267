// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jtransform

import (
	"context"
	"sync"

	"github.com/creachadair/jtransform/config"
	"github.com/creachadair/jtransform/engine"
	"github.com/creachadair/jtransform/template"
	"github.com/creachadair/jtransform/value"
	"github.com/creachadair/jtransform/xerr"
	"go.uber.org/zap"
)

// Result is the outcome of an asynchronous transformation.
type Result = engine.Result

// New constructs an engine with the settings of cfg. If cfg enables tracing,
// trace output is logged as cfg specifies; otherwise it is discarded.
func New(cfg *config.Config) (*engine.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := zap.NewNop()
	if cfg.EnableTracing {
		var err error
		log, err = cfg.Log.NewLogger()
		if err != nil {
			return nil, err
		}
	}
	return engine.New(cfg.EngineOptions(log)), nil
}

var defaultEngine = sync.OnceValues(func() (*engine.Engine, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return New(cfg)
})

// Default returns the engine used by the package-level functions. It is
// constructed on first use from the configuration found by config.Load.
func Default() (*engine.Engine, error) { return defaultEngine() }

func configError(err error) error {
	return &xerr.TransformError{Op: "config", Err: err}
}

// Transform applies the template text tmpl to the JSON document source, and
// returns the encoded output document. The override settings, if non-nil,
// take precedence over those declared by the template.
func Transform(source, tmpl string, override *template.Settings) (string, error) {
	e, err := Default()
	if err != nil {
		return "", configError(err)
	}
	return e.Transform(source, tmpl, override)
}

// TransformAsync runs Transform on a separate goroutine, and delivers its
// result on the returned channel. Cancellation of ctx is honored only before
// the transformation starts.
func TransformAsync(ctx context.Context, source, tmpl string, override *template.Settings) <-chan Result {
	e, err := Default()
	if err != nil {
		ch := make(chan Result, 1)
		ch <- Result{Err: configError(err)}
		close(ch)
		return ch
	}
	return e.TransformAsync(ctx, source, tmpl, override)
}

// TransformValue applies t to the source document src, and returns the
// output document. It does not modify src.
func TransformValue(src value.Value, t *template.Template, override *template.Settings) (*value.Object, error) {
	e, err := Default()
	if err != nil {
		return nil, configError(err)
	}
	return e.Apply(src, t, override)
}

// ValidateTemplate checks the structure of the template text tmpl, and
// returns a description of each problem found. A valid template yields an
// empty result.
func ValidateTemplate(tmpl string) []string {
	e, err := Default()
	if err != nil {
		return []string{err.Error()}
	}
	return e.Validate(tmpl)
}
