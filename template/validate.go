// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package template

import (
	"fmt"
	"strings"
)

// Checks are semantic checks applied by Validate in addition to its
// structural checks. A nil field skips the corresponding check.
type Checks struct {
	Condition func(expr string) error // check the syntax of a condition
	Math      func(e *MathExpr) error // check operation names and arities
	Aggregate func(op string) error   // check an aggregation operation name
}

// Validate checks the structure of t without applying it, and returns a
// description of each problem found. It reports a template with no mappings,
// a mapping with no target or with other than one source, incomplete math
// expressions and aggregations, and conditional branches that lack an "if"
// expression. Nested templates are checked recursively. An empty result means
// no problems were found.
func (t *Template) Validate(c Checks) []string {
	v := validator{checks: c}
	v.template("", t)
	return v.msgs
}

type validator struct {
	checks Checks
	msgs   []string
}

func (v *validator) addf(prefix, msg string, args ...any) {
	v.msgs = append(v.msgs, prefix+fmt.Sprintf(msg, args...))
}

func (v *validator) template(prefix string, t *Template) {
	if len(t.Mappings) == 0 {
		v.addf(prefix, "template has no mappings")
		return
	}
	for i, m := range t.Mappings {
		p := fmt.Sprintf("%smapping %d: ", prefix, i+1)
		if m.To == "" {
			v.addf(p, "missing target path (to)")
		}
		switch len(m.declared) {
		case 0:
			// A mapping may take its value solely from its conditions.
			if len(m.Conditions) == 0 {
				v.addf(p, "no source (expected one of %s)", strings.Join(sourceFields, ", "))
			}
		case 1:
		default:
			v.addf(p, "multiple sources (%s)", strings.Join(m.declared, ", "))
		}

		switch s := m.Source.(type) {
		case *Math:
			v.math(p+"math: ", s.Expr)
			if v.checks.Math != nil {
				if err := v.checks.Math(s.Expr); err != nil {
					v.addf(p, "math: %v", err)
				}
			}
		case *Aggregate:
			v.aggregate(p+"aggregate: ", s.Op, s.From)
		case *Advanced:
			v.aggregate(p+"aggregation: ", s.Rule.Type, s.From)
			if s.Rule.Condition != "" {
				v.expr(p+"aggregation: ", s.Rule.Condition)
			}
		case *Field:
			if s.From == "" {
				v.addf(p, "empty source path (from)")
			}
		case *Nested:
			v.template(p+"template: ", s.Template)
		}

		for j, c := range m.Conditions {
			v.condition(fmt.Sprintf("%scondition %d: ", p, j+1), c, false)
		}
	}
}

func (v *validator) math(p string, e *MathExpr) {
	if e.Operation == "" {
		v.addf(p, "missing operation")
	}
	if len(e.Operands) == 0 {
		v.addf(p, "missing operands")
	}
	for i, op := range e.Operands {
		switch t := op.(type) {
		case Ref:
			if strings.TrimSpace(string(t)) == "" {
				v.addf(p, "operand %d is empty", i+1)
			}
		case *MathExpr:
			v.math(fmt.Sprintf("%soperand %d: ", p, i+1), t)
		}
	}
}

func (v *validator) aggregate(p, op, from string) {
	if op == "" {
		v.addf(p, "missing aggregation type")
	} else if v.checks.Aggregate != nil {
		if err := v.checks.Aggregate(op); err != nil {
			v.addf(p, "%v", err)
		}
	}
	if from == "" {
		v.addf(p, "missing source path (from)")
	}
}

func (v *validator) expr(p, text string) {
	if v.checks.Condition != nil {
		if err := v.checks.Condition(text); err != nil {
			v.addf(p, "%v", err)
		}
	}
}

// condition checks c. The "if" of a top-level condition may be omitted,
// provided it has a "then" branch; the "if" of an elseif branch is required.
func (v *validator) condition(p string, c *Condition, nested bool) {
	switch {
	case c.If != "":
		v.expr(p, c.If)
	case nested:
		v.addf(p, "missing if expression")
	case c.Then == nil:
		v.addf(p, "missing if expression and then value")
	}
	for i, alt := range c.ElseIf {
		v.condition(fmt.Sprintf("%selseif %d: ", p, i+1), alt, true)
	}
}
