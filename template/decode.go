// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package template

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/creachadair/jtransform/value"
	"github.com/creachadair/jtransform/xerr"
	"github.com/tailscale/hujson"
)

// Source field names, in priority order.
var sourceFields = []string{"value", "math", "concat", "aggregate", "aggregation", "from", "template"}

// Parse parses the text of a template. The text may use JWCC extensions
// (comments and trailing commas). Errors have kind xerr.ErrTemplate.
func Parse(text string) (*Template, error) { return ParseBytes([]byte(text)) }

// ParseBytes parses the text of a template from data.
func ParseBytes(data []byte) (*Template, error) {
	std, err := hujson.Standardize(bytes.Clone(data))
	if err != nil {
		return nil, xerr.Template("invalid template syntax: %w", err)
	}
	v, err := value.Parse(std)
	if err != nil {
		return nil, xerr.Template("invalid template syntax: %w", err)
	}
	return Decode(v)
}

// Decode decodes a template from its JSON value. Unknown fields are ignored.
// Decode does not check the semantic validity of the template; see
// Template.Validate for that.
func Decode(v value.Value) (*Template, error) {
	t, err := decodeTemplate(v)
	if err != nil {
		return nil, xerr.Template("%w", err)
	}
	return t, nil
}

func decodeTemplate(v value.Value) (*Template, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("template must be an object, not %s", typeName(v))
	}
	var t Template
	if mv, ok := get(obj, "mappings"); ok {
		arr, ok := mv.(*value.Array)
		if !ok {
			return nil, fmt.Errorf("mappings must be an array, not %s", typeName(mv))
		}
		for i, elt := range arr.Values {
			m, err := decodeMapping(elt)
			if err != nil {
				return nil, fmt.Errorf("mapping %d: %w", i+1, err)
			}
			t.Mappings = append(t.Mappings, m)
		}
	}
	if sv, ok := get(obj, "settings"); ok {
		s, err := decodeSettings(sv)
		if err != nil {
			return nil, fmt.Errorf("settings: %w", err)
		}
		t.Settings = s
	}
	return &t, nil
}

func decodeMapping(v value.Value) (*Mapping, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("mapping must be an object, not %s", typeName(v))
	}
	m := &Mapping{Enabled: true}

	var err error
	if m.To, _, err = getString(obj, "to"); err != nil {
		return nil, err
	}
	if b, ok, err := getBool(obj, "enabled"); err != nil {
		return nil, err
	} else if ok {
		m.Enabled = b
	}
	if dv, ok := obj.Get("default"); ok {
		m.Default = dv
	}
	if cv, ok := get(obj, "conditions"); ok {
		if m.Conditions, err = decodeConditions(cv); err != nil {
			return nil, fmt.Errorf("conditions: %w", err)
		}
	}

	// Record which source fields are present. The "from" field is the array
	// source for the aggregate forms, and counts as a field mapping only
	// when neither is present.
	for _, key := range sourceFields {
		if _, ok := obj.Get(key); !ok {
			continue
		}
		if key == "from" && (has(obj, "aggregate") || has(obj, "aggregation")) {
			continue
		}
		m.declared = append(m.declared, key)
	}
	if len(m.declared) != 0 {
		src, err := decodeSource(obj, m.declared[0])
		if err != nil {
			return nil, err
		}
		m.Source = src
	}
	return m, nil
}

func decodeSource(obj *value.Object, key string) (Source, error) {
	raw, _ := obj.Get(key)
	switch key {
	case "value":
		return &Constant{Value: raw}, nil

	case "math":
		e, err := decodeMath(raw)
		if err != nil {
			return nil, fmt.Errorf("math: %w", err)
		}
		return &Math{Expr: e}, nil

	case "concat":
		s, ok := raw.(value.String)
		if !ok {
			return nil, fmt.Errorf("concat must be a string, not %s", typeName(raw))
		}
		return &Concat{Format: string(s)}, nil

	case "aggregate":
		op, ok := raw.(value.String)
		if !ok {
			return nil, fmt.Errorf("aggregate must be a string, not %s", typeName(raw))
		}
		from, _, err := getString(obj, "from")
		if err != nil {
			return nil, err
		}
		sep, _, err := getString(obj, "separator")
		if err != nil {
			return nil, err
		}
		return &Aggregate{Op: string(op), From: from, Separator: sep}, nil

	case "aggregation":
		rule, err := decodeRule(raw)
		if err != nil {
			return nil, fmt.Errorf("aggregation: %w", err)
		}
		from, _, err := getString(obj, "from")
		if err != nil {
			return nil, err
		}
		return &Advanced{Rule: rule, From: from}, nil

	case "from":
		from, _, err := getString(obj, "from")
		if err != nil {
			return nil, err
		}
		return &Field{From: from}, nil

	case "template":
		t, err := decodeTemplate(raw)
		if err != nil {
			return nil, fmt.Errorf("nested template: %w", err)
		}
		return &Nested{Template: t}, nil
	}
	panic("unknown source field " + key)
}

func decodeMath(v value.Value) (*MathExpr, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("expression must be an object, not %s", typeName(v))
	}
	op, _, err := getString(obj, "operation")
	if err != nil {
		return nil, err
	}
	e := &MathExpr{Operation: op}
	if ov, ok := get(obj, "operands"); ok {
		arr, ok := ov.(*value.Array)
		if !ok {
			return nil, fmt.Errorf("operands must be an array, not %s", typeName(ov))
		}
		for i, elt := range arr.Values {
			switch t := elt.(type) {
			case value.Numeric:
				e.Operands = append(e.Operands, Number(t.Float()))
			case value.String:
				e.Operands = append(e.Operands, Ref(t))
			case *value.Object:
				sub, err := decodeMath(t)
				if err != nil {
					return nil, fmt.Errorf("operand %d: %w", i+1, err)
				}
				e.Operands = append(e.Operands, sub)
			default:
				return nil, fmt.Errorf("operand %d: invalid %s operand", i+1, typeName(elt))
			}
		}
	}
	if pv, ok := get(obj, "precision"); ok {
		n, ok := pv.(value.Numeric)
		if !ok {
			return nil, fmt.Errorf("precision must be a number, not %s", typeName(pv))
		}
		f := n.Float()
		if f != math.Trunc(f) || f < 0 || f > 32 {
			return nil, fmt.Errorf("invalid precision %v", f)
		}
		e.Precision = Int(int(f))
	}
	return e, nil
}

func decodeRule(v value.Value) (*AggregationRule, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("rule must be an object, not %s", typeName(v))
	}
	var r AggregationRule
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"type", &r.Type}, {"field", &r.Field}, {"condition", &r.Condition}, {"separator", &r.Separator},
	} {
		s, _, err := getString(obj, f.key)
		if err != nil {
			return nil, err
		}
		*f.dst = s
	}
	return &r, nil
}

// decodeConditions decodes either a single condition object or an array of
// them.
func decodeConditions(v value.Value) ([]*Condition, error) {
	if arr, ok := v.(*value.Array); ok {
		out := make([]*Condition, len(arr.Values))
		for i, elt := range arr.Values {
			c, err := decodeCondition(elt)
			if err != nil {
				return nil, fmt.Errorf("condition %d: %w", i+1, err)
			}
			out[i] = c
		}
		return out, nil
	}
	c, err := decodeCondition(v)
	if err != nil {
		return nil, err
	}
	return []*Condition{c}, nil
}

func decodeCondition(v value.Value) (*Condition, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("condition must be an object, not %s", typeName(v))
	}
	var c Condition
	var err error
	if c.If, _, err = getString(obj, "if"); err != nil {
		return nil, err
	}
	c.Then, _ = obj.Get("then")
	c.Else, _ = obj.Get("else")
	if ev, ok := get(obj, "elseif"); ok {
		if c.ElseIf, err = decodeConditions(ev); err != nil {
			return nil, fmt.Errorf("elseif: %w", err)
		}
	}
	return &c, nil
}

func decodeSettings(v value.Value) (Settings, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return Settings{}, fmt.Errorf("settings must be an object, not %s", typeName(v))
	}
	var s Settings
	for _, f := range []struct {
		key string
		dst **bool
	}{
		{"strictMode", &s.StrictMode},
		{"preserveNulls", &s.PreserveNulls},
		{"createPaths", &s.CreatePaths},
		{"enableTracing", &s.EnableTracing},
	} {
		b, ok, err := getBool(obj, f.key)
		if err != nil {
			return Settings{}, err
		} else if ok {
			*f.dst = Bool(b)
		}
	}
	if dv, ok := get(obj, "maxDepth"); ok {
		n, ok := dv.(value.Numeric)
		if !ok || n.Float() != math.Trunc(n.Float()) || n.Float() < 0 {
			return Settings{}, errors.New("maxDepth must be a non-negative integer")
		} else if n.Float() > MaxDepthLimit {
			return Settings{}, fmt.Errorf("maxDepth must be at most %d", MaxDepthLimit)
		}
		s.MaxDepth = Int(int(n.Float()))
	}
	return s, nil
}

// get returns the value of key in obj, treating a null value as absent.
func get(obj *value.Object, key string) (value.Value, bool) {
	v, ok := obj.Get(key)
	if !ok || value.IsNull(v) {
		return nil, false
	}
	return v, true
}

func has(obj *value.Object, key string) bool { _, ok := obj.Get(key); return ok }

func getString(obj *value.Object, key string) (string, bool, error) {
	v, ok := get(obj, key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(value.String)
	if !ok {
		return "", false, fmt.Errorf("%s must be a string, not %s", key, typeName(v))
	}
	return string(s), true, nil
}

func getBool(obj *value.Object, key string) (bool, bool, error) {
	v, ok := get(obj, key)
	if !ok {
		return false, false, nil
	}
	b, ok := v.(value.Bool)
	if !ok {
		return false, false, fmt.Errorf("%s must be a bool, not %s", key, typeName(v))
	}
	return bool(b), true, nil
}

func typeName(v value.Value) string {
	switch v.(type) {
	case *value.Object:
		return "object"
	case *value.Array:
		return "array"
	case value.String:
		return "string"
	case value.Numeric:
		return "number"
	case value.Bool:
		return "bool"
	}
	return "null"
}
