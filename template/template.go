// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package template defines the data model of a transformation template.
//
// A template is an ordered list of mappings, each of which produces one value
// and writes it to a target path in the output document, together with
// settings that control how the template is applied. Templates are written
// as JSON (comments and trailing commas are permitted):
//
//	{
//	  "mappings": [
//	    {"from": "$.user.name", "to": "name"},
//	    {"to": "status", "conditions": {
//	      "if": "$.user.age >= 18", "then": "Adult", "else": "Minor"
//	    }}
//	  ],
//	  "settings": {"strictMode": true}
//	}
//
// The source of each mapping is classified once, when the template is
// decoded, into one of the concrete Source types.
package template

import (
	"math"

	"github.com/creachadair/jtransform/value"
)

// A Template is an ordered sequence of mappings plus settings.
type Template struct {
	Mappings []*Mapping
	Settings Settings
}

// A Mapping is a rule that produces one value and writes it to one target.
type Mapping struct {
	To     string // target path (required)
	Source Source // nil if the mapping declares no source

	// Conditions, if non-empty, override the value produced by Source when
	// one of them yields a result. For a Source of type *Aggregate, the
	// conditions instead filter the aggregated elements.
	Conditions []*Condition

	Default value.Value // used when the result is absent; nil if unset
	Enabled bool        // if false, the mapping is skipped

	declared []string // source fields present in the input, in priority order
}

// Declared reports the names of the source fields present in the input from
// which m was decoded, in priority order. A well-formed mapping declares
// exactly one.
func (m *Mapping) Declared() []string { return m.declared }

// ConsumesConditions reports whether the conditions of m filter its
// aggregation rather than overriding its result.
func (m *Mapping) ConsumesConditions() bool {
	_, ok := m.Source.(*Aggregate)
	return ok && len(m.Conditions) != 0
}

// A Kind identifies the type of a mapping source.
type Kind byte

const (
	KindNone      Kind = iota // no source
	KindConstant              // "value"
	KindMath                  // "math"
	KindConcat                // "concat"
	KindAggregate             // "aggregate"
	KindAdvanced              // "aggregation"
	KindField                 // "from"
	KindNested                // "template"
)

var kindText = [...]string{
	KindNone:      "none",
	KindConstant:  "constant",
	KindMath:      "math",
	KindConcat:    "concat",
	KindAggregate: "aggregate",
	KindAdvanced:  "aggregation",
	KindField:     "field",
	KindNested:    "template",
}

func (k Kind) String() string {
	if int(k) < len(kindText) {
		return kindText[k]
	}
	return kindText[KindNone]
}

// A Source describes where the value of a mapping comes from. The concrete
// type of a Source is one of *Constant, *Math, *Concat, *Aggregate,
// *Advanced, *Field, or *Nested.
type Source interface {
	Kind() Kind
}

// Constant is a literal value, subject to keyword expansion (see
// ExpandConstant).
type Constant struct {
	Value value.Value
}

// Math is an arithmetic expression.
type Math struct {
	Expr *MathExpr
}

// Concat is a string containing {path} placeholders.
type Concat struct {
	Format string
}

// Aggregate folds the values selected by From using the named operation.
// If the mapping has conditions, they are evaluated once per element of the
// array selected by the portion of From before its first wildcard.
type Aggregate struct {
	Op        string
	From      string
	Separator string // for "join"; empty means the default
}

// Advanced folds the elements of the array at From that satisfy Rule.
type Advanced struct {
	Rule *AggregationRule
	From string
}

// Field copies the value at a path in the source document.
type Field struct {
	From string
}

// Nested applies a nested template, whose output becomes the value.
type Nested struct {
	Template *Template
}

func (*Constant) Kind() Kind  { return KindConstant }
func (*Math) Kind() Kind      { return KindMath }
func (*Concat) Kind() Kind    { return KindConcat }
func (*Aggregate) Kind() Kind { return KindAggregate }
func (*Advanced) Kind() Kind  { return KindAdvanced }
func (*Field) Kind() Kind     { return KindField }
func (*Nested) Kind() Kind    { return KindNested }

// KindOf returns the kind of s, or KindNone if s == nil.
func KindOf(s Source) Kind {
	if s == nil {
		return KindNone
	}
	return s.Kind()
}

// A Condition selects a value according to a boolean expression.
type Condition struct {
	If     string       // expression; empty means always true
	Then   value.Value  // result if If is true; nil if unset
	Else   value.Value  // result if If and all ElseIf branches fail; nil if unset
	ElseIf []*Condition // alternatives tried in order when If is false
}

// A MathExpr is an arithmetic operation applied to an ordered list of
// operands.
type MathExpr struct {
	Operation string
	Operands  []Operand
	Precision *int // decimal places to round the result to; nil if unset
}

// An Operand is an argument to a MathExpr. Its concrete type is one of
// Number, Ref, or *MathExpr.
type Operand interface {
	isOperand()
}

// A Number is a literal numeric operand.
type Number float64

// A Ref is a string operand, either a path reference or the text of a
// number.
type Ref string

func (Number) isOperand()    {}
func (Ref) isOperand()       {}
func (*MathExpr) isOperand() {}

// An AggregationRule describes a filtered aggregation over the elements of
// an array.
type AggregationRule struct {
	Type      string // operation name
	Field     string // path projected from each element; empty means the whole element
	Condition string // expression evaluated with the element bound as "item"
	Separator string // for "join"; empty means the default
}

// MaxDepthLimit is the largest accepted value of the maxDepth setting.
const MaxDepthLimit = math.MaxInt32

// Settings control how a template is applied. A nil field is unset, and
// defers to the next source of settings (see Merge).
type Settings struct {
	StrictMode    *bool
	PreserveNulls *bool
	CreatePaths   *bool
	MaxDepth      *int
	EnableTracing *bool
}

// IsZero reports whether no field of s is set.
func (s Settings) IsZero() bool { return s == Settings{} }

// Merge returns a copy of s in which each field that is set in over replaces
// the corresponding field of s.
func (s Settings) Merge(over Settings) Settings {
	if over.StrictMode != nil {
		s.StrictMode = over.StrictMode
	}
	if over.PreserveNulls != nil {
		s.PreserveNulls = over.PreserveNulls
	}
	if over.CreatePaths != nil {
		s.CreatePaths = over.CreatePaths
	}
	if over.MaxDepth != nil {
		s.MaxDepth = over.MaxDepth
	}
	if over.EnableTracing != nil {
		s.EnableTracing = over.EnableTracing
	}
	return s
}

// Bool returns a pointer to b, for use in Settings literals.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to z, for use in Settings and MathExpr literals.
func Int(z int) *int { return &z }
