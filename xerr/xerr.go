// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package xerr defines the error taxonomy shared by the transformation
// packages.
//
// Each class of failure has a sentinel error, and the concrete errors
// reported by the packages wrap the relevant sentinel so that callers can
// classify them with errors.Is:
//
//	if errors.Is(err, xerr.ErrMathOperation) {
//	   log.Printf("Bad arithmetic: %v", err)
//	}
//
// A failure surfaced by the engine in strict mode has concrete type
// *TransformError, which identifies the mapping that failed.
package xerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for each class of failure.
var (
	ErrPathNotFound     = errors.New("path not found")
	ErrInvalidCondition = errors.New("invalid condition")
	ErrMathOperation    = errors.New("math operation failed")
	ErrAggregation      = errors.New("aggregation failed")
	ErrTemplate         = errors.New("template error")
	ErrTransform        = errors.New("transformation failed")

	// ErrMaxDepth is reported (wrapped in a template error) when nested
	// templates exceed the configured maximum depth.
	ErrMaxDepth = errors.New("maximum template depth exceeded")
)

// Error is the concrete type of errors reported by the transformation
// components. It matches its Kind and its underlying cause with errors.Is.
type Error struct {
	Kind error  // one of the sentinel errors
	Op   string // the operation or component that failed
	Text string // the offending input text, if any

	Err error // the underlying cause, or nil
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Text != "" {
		msg += fmt.Sprintf(" %q", e.Text)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports error wrapping.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// PathNotFound reports a failure to address path.
func PathNotFound(path string, err error) error {
	return &Error{Kind: ErrPathNotFound, Op: "path", Text: path, Err: err}
}

// InvalidCondition reports a malformed boolean expression.
func InvalidCondition(text string, err error) error {
	return &Error{Kind: ErrInvalidCondition, Op: "condition", Text: text, Err: err}
}

// Math reports a failed arithmetic operation.
func Math(op, msg string, args ...any) error {
	return &Error{Kind: ErrMathOperation, Op: op, Err: fmt.Errorf(msg, args...)}
}

// Aggregation reports a failed aggregation.
func Aggregation(op, msg string, args ...any) error {
	return &Error{Kind: ErrAggregation, Op: op, Err: fmt.Errorf(msg, args...)}
}

// Template reports a structural problem with a template.
func Template(msg string, args ...any) error {
	return &Error{Kind: ErrTemplate, Err: fmt.Errorf(msg, args...)}
}

// MaxDepth reports that a nested template at depth exceeded limit.
func MaxDepth(depth, limit int) error {
	return &Error{
		Kind: ErrTemplate,
		Op:   "nested template",
		Err:  fmt.Errorf("%w (depth %d > %d)", ErrMaxDepth, depth, limit),
	}
}

// TransformError reports the failure of a transformation, annotated with the
// target path of the mapping and the operation that failed.
type TransformError struct {
	Target string // the target path of the failing mapping, if any
	Op     string // the source kind or phase that failed

	Err error
}

// Error satisfies the error interface.
func (e *TransformError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("transform: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transform: mapping %q (%s): %v", e.Target, e.Op, e.Err)
}

// Unwrap supports error wrapping. A TransformError matches ErrTransform as
// well as its underlying cause.
func (e *TransformError) Unwrap() []error { return []error{ErrTransform, e.Err} }
