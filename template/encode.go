// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package template

import (
	"github.com/creachadair/jtransform/value"
)

// Encode returns the JSON value representation of t. Decoding the result
// yields a template equal to t.
func (t *Template) Encode() *value.Object {
	out := value.NewObject()
	ms := value.NewArray()
	for _, m := range t.Mappings {
		ms.Values = append(ms.Values, m.Encode())
	}
	out.Set("mappings", ms)
	if !t.Settings.IsZero() {
		out.Set("settings", t.Settings.Encode())
	}
	return out
}

// String returns the compact JSON text of t.
func (t *Template) String() string { return t.Encode().JSON() }

// MarshalJSON implements the json.Marshaler interface.
func (t *Template) MarshalJSON() ([]byte, error) { return []byte(t.Encode().JSON()), nil }

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *Template) UnmarshalJSON(data []byte) error {
	nt, err := ParseBytes(data)
	if err != nil {
		return err
	}
	*t = *nt
	return nil
}

// Encode returns the JSON value representation of m.
func (m *Mapping) Encode() *value.Object {
	out := value.NewObject()
	if m.To != "" {
		out.Set("to", value.String(m.To))
	}
	switch s := m.Source.(type) {
	case *Constant:
		out.Set("value", s.Value)
	case *Math:
		out.Set("math", s.Expr.Encode())
	case *Concat:
		out.Set("concat", value.String(s.Format))
	case *Aggregate:
		out.Set("aggregate", value.String(s.Op))
		setString(out, "from", s.From)
		setString(out, "separator", s.Separator)
	case *Advanced:
		out.Set("aggregation", s.Rule.Encode())
		setString(out, "from", s.From)
	case *Field:
		out.Set("from", value.String(s.From))
	case *Nested:
		out.Set("template", s.Template.Encode())
	}
	if len(m.Conditions) != 0 {
		out.Set("conditions", encodeConditions(m.Conditions))
	}
	if m.Default != nil {
		out.Set("default", m.Default)
	}
	if !m.Enabled {
		out.Set("enabled", value.Bool(false))
	}
	return out
}

// Encode returns the JSON value representation of e.
func (e *MathExpr) Encode() *value.Object {
	ops := value.NewArray()
	for _, op := range e.Operands {
		switch t := op.(type) {
		case Number:
			ops.Values = append(ops.Values, value.Float(t))
		case Ref:
			ops.Values = append(ops.Values, value.String(t))
		case *MathExpr:
			ops.Values = append(ops.Values, t.Encode())
		}
	}
	out := value.NewObject(
		&value.Member{Key: "operation", Value: value.String(e.Operation)},
		&value.Member{Key: "operands", Value: ops},
	)
	if e.Precision != nil {
		out.Set("precision", value.Int(*e.Precision))
	}
	return out
}

// Encode returns the JSON value representation of r.
func (r *AggregationRule) Encode() *value.Object {
	out := value.NewObject()
	setString(out, "type", r.Type)
	setString(out, "field", r.Field)
	setString(out, "condition", r.Condition)
	setString(out, "separator", r.Separator)
	return out
}

// Encode returns the JSON value representation of c.
func (c *Condition) Encode() *value.Object {
	out := value.NewObject()
	setString(out, "if", c.If)
	if c.Then != nil {
		out.Set("then", c.Then)
	}
	if c.Else != nil {
		out.Set("else", c.Else)
	}
	if len(c.ElseIf) != 0 {
		out.Set("elseif", encodeConditions(c.ElseIf))
	}
	return out
}

// encodeConditions encodes a single condition as an object, and multiple
// conditions as an array.
func encodeConditions(cs []*Condition) value.Value {
	if len(cs) == 1 {
		return cs[0].Encode()
	}
	arr := value.NewArray()
	for _, c := range cs {
		arr.Values = append(arr.Values, c.Encode())
	}
	return arr
}

// Encode returns the JSON value representation of s. Unset fields are
// omitted.
func (s Settings) Encode() *value.Object {
	out := value.NewObject()
	for _, f := range []struct {
		key string
		val *bool
	}{
		{"strictMode", s.StrictMode},
		{"preserveNulls", s.PreserveNulls},
		{"createPaths", s.CreatePaths},
		{"enableTracing", s.EnableTracing},
	} {
		if f.val != nil {
			out.Set(f.key, value.Bool(*f.val))
		}
	}
	if s.MaxDepth != nil {
		out.Set("maxDepth", value.Int(*s.MaxDepth))
	}
	return out
}

func setString(obj *value.Object, key, s string) {
	if s != "" {
		obj.Set(key, value.String(s))
	}
}
