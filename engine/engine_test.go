// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/creachadair/jtransform/engine"
	"github.com/creachadair/jtransform/internal/testutil"
	"github.com/creachadair/jtransform/template"
	"github.com/creachadair/jtransform/value"
	"github.com/creachadair/jtransform/xerr"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// apply parses src and tmpl and applies the template with e.
func apply(t *testing.T, e *engine.Engine, src, tmpl string, override *template.Settings) (value.Value, error) {
	t.Helper()
	doc := value.MustParse(src)
	tp, err := template.Parse(tmpl)
	if err != nil {
		t.Fatalf("Parse template: %v", err)
	}
	out, err := e.Apply(doc, tp, override)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func TestApply(t *testing.T) {
	const source = `{
  "user": {"first": "Ada", "last": "Lovelace", "age": 17, "tags": ["a", "b"]},
  "flag": true,
  "nothing": null,
  "subtotal": 12.5,
  "items": [
    {"name": "pen", "price": 2},
    {"name": "lamp", "price": 35},
    {"name": "desk", "price": 120}
  ],
  "orders": [{"amount": 100.50}, {"amount": 75.25}, {"amount": 200.00}]
}`
	tests := []struct {
		name  string
		tmpl  string
		input string // if empty, use source
		want  string
	}{
		{"Identity",
			`{"mappings": [
			   {"from": "$.a", "to": "a"}, {"from": "$.b", "to": "b"},
			   {"from": "$.c", "to": "c"}, {"from": "$.d", "to": "d"},
			   {"from": "$.e", "to": "e"}
			]}`,
			`{"a": 1, "b": "x", "c": true, "d": null, "e": 1.50}`,
			`{"a": 1, "b": "x", "c": true, "d": null, "e": 1.50}`},

		{"FieldPaths",
			`{"mappings": [
			   {"from": "$.user.first", "to": "person.name"},
			   {"from": "user.tags[-1]", "to": "lastTag"},
			   {"from": "$.items[?(@.price > 10)].name", "to": "pricey"},
			   {"from": "$.nonesuch", "to": "gone"}
			]}`, "",
			`{"person": {"name": "Ada"}, "lastTag": "b", "pricey": "lamp"}`},

		{"Constant",
			`{"mappings": [
			   {"value": "fixed", "to": "s"},
			   {"value": 42, "to": "n"},
			   {"value": "TRUE", "to": "b"},
			   {"value": {"nested": [1, 2]}, "to": "o"}
			]}`, "",
			`{"s": "fixed", "n": 42, "b": true, "o": {"nested": [1, 2]}}`},

		{"Conditions",
			`{"mappings": [{"to": "status", "conditions": {
			   "if": "$.user.age >= 18", "then": "Adult", "else": "Minor"
			}}]}`, "",
			`{"status": "Minor"}`},

		{"ConditionsElseIf",
			`{"mappings": [{"to": "band", "conditions": {
			   "if": "$.user.age < 13", "then": "child",
			   "elseif": {"if": "$.user.age < 20", "then": "$.user.first"},
			   "else": "adult"
			}}]}`, "",
			`{"band": "Ada"}`},

		{"ConditionsOverride",
			`{"mappings": [
			   {"value": "x", "to": "yes", "conditions": {"if": "$.flag == true", "then": "override"}},
			   {"value": "x", "to": "no", "conditions": {"if": "$.flag == false", "then": "override"}}
			]}`, "",
			`{"yes": "override", "no": "x"}`},

		{"Concat",
			`{"mappings": [
			   {"concat": "{$.user.first} {user.last} ({$.user.age}){$.nonesuch}!", "to": "label"}
			]}`, "",
			`{"label": "Ada Lovelace (17)!"}`},

		{"ConcatLiteralBraces",
			`{"mappings": [
			   {"concat": "{$.a} and { } and {a b} and {\"k\": 1}|{$.a.b}", "to": "c"}
			]}`,
			`{"a": "x"}`,
			`{"c": "x and { } and {a b} and {\"k\": 1}|"}`},

		{"Math",
			`{"mappings": [
			   {"math": {"operation": "multiply", "operands": ["$.subtotal", {"operation": "add", "operands": [1, 0.08]}], "precision": 2}, "to": "total"},
			   {"math": {"operation": "add", "operands": [0.1, 0.2]}, "to": "sum"}
			]}`, "",
			`{"total": 13.5, "sum": 0.3}`},

		{"ReadEarlierOutput",
			`{"mappings": [
			   {"math": {"operation": "multiply", "operands": ["$.subtotal", 2]}, "to": "double"},
			   {"math": {"operation": "add", "operands": ["$.double", 1]}, "to": "more"}
			]}`, "",
			`{"double": 25, "more": 26}`},

		{"Aggregate",
			`{"mappings": [
			   {"aggregate": "sum", "from": "$.orders[*].amount", "to": "sum"},
			   {"aggregate": "count", "from": "$.orders", "to": "count"},
			   {"aggregate": "avg", "from": "$.orders[*].amount", "to": "avg"},
			   {"aggregate": "max", "from": "$.orders[*].amount", "to": "max"},
			   {"aggregate": "join", "from": "$.items[*].name", "separator": "/", "to": "names"}
			]}`, "",
			`{"sum": 375.75, "count": 3, "avg": 125.25, "max": 200, "names": "pen/lamp/desk"}`},

		{"AggregateEmpty",
			`{"mappings": [
			   {"aggregate": "sum", "from": "$.xs", "to": "sum"},
			   {"aggregate": "count", "from": "$.xs", "to": "count"},
			   {"aggregate": "join", "from": "$.xs", "to": "join"},
			   {"aggregate": "avg", "from": "$.xs", "to": "avg"},
			   {"aggregate": "first", "from": "$.xs", "to": "first"}
			]}`,
			`{"xs": []}`,
			`{"sum": 0, "count": 0, "join": ""}`},

		{"AggregateConditions",
			`{"mappings": [
			   {"aggregate": "sum", "from": "$.orders[*].amount", "to": "big",
			    "conditions": {"if": "$.orders[*].amount > 100", "then": "$.orders[*].amount"}},
			   {"aggregate": "count", "from": "$.orders[*].amount", "to": "all",
			    "conditions": {"if": "$.orders[*].amount > 100", "then": "$.orders[*].amount"}}
			]}`, "",
			`{"big": 300.5, "all": 3}`},

		{"AggregateConditionsQuotedKey",
			`{"mappings": [
			   {"aggregate": "sum", "from": "$[\"it's\"][*].x", "to": "sum",
			    "conditions": {"if": "$[\"it's\"][*].x > 2", "then": "$[\"it's\"][*].x"}}
			]}`,
			`{"it's": [{"x": 1}, {"x": 5}, {"x": 7}]}`,
			`{"sum": 12}`},

		{"Advanced",
			`{"mappings": [
			   {"aggregation": {"type": "sum", "field": "amount", "condition": "$.item.amount > 100"},
			    "from": "$.orders", "to": "sum"},
			   {"aggregation": {"type": "count", "condition": "@.amount > 1000"},
			    "from": "$.orders", "to": "none"},
			   {"aggregation": {"type": "max", "condition": "$.item.amount > 1000"},
			    "from": "$.orders", "to": "absent"}
			]}`,
			`{"orders": [{"amount": 50.5}, {"amount": 150}, {"amount": 75}, {"amount": 200}, {"amount": 25}]}`,
			`{"sum": 350, "none": 0}`},

		{"Nested",
			`{"mappings": [{"to": "person", "template": {"mappings": [
			   {"from": "$.user.first", "to": "first"},
			   {"from": "$.user.age", "to": "age"}
			]}}]}`, "",
			`{"person": {"first": "Ada", "age": 17}}`},

		{"Defaults",
			`{"mappings": [
			   {"from": "$.nonesuch", "default": "n/a", "to": "missing"},
			   {"from": "$.nothing", "default": 5, "to": "null"},
			   {"from": "$.flag", "default": false, "to": "present"}
			]}`, "",
			`{"missing": "n/a", "null": 5, "present": true}`},

		{"PreserveNulls",
			`{"mappings": [
			   {"from": "$.nonesuch", "to": "m"}
			], "settings": {"preserveNulls": true}}`, "",
			`{"m": null}`},

		{"Disabled",
			`{"mappings": [
			   {"value": 1, "to": "on"},
			   {"value": 2, "to": "off", "enabled": false}
			]}`, "",
			`{"on": 1}`},

		{"ArrayTargets",
			`{"mappings": [
			   {"value": "x", "to": "list[2]"},
			   {"value": "y", "to": "list[0].name"}
			]}`, "",
			`{"list": [{"name": "y"}, null, "x"]}`},

		{"Lenient",
			`{"mappings": [
			   {"value": "x", "to": "a"},
			   {"math": {"operation": "divide", "operands": [1, 0]}, "to": "q"},
			   {"from": "$.user.first.bogus", "to": "r"},
			   {"aggregate": "median", "from": "$.orders", "to": "s"},
			   {"from": "$.flag", "to": "b"}
			]}`, "",
			`{"a": "x", "b": true}`},
	}
	e := engine.New(nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := tc.input
			if input == "" {
				input = source
			}
			got, err := apply(t, e, input, tc.tmpl, nil)
			if err != nil {
				t.Fatalf("Apply: unexpected error: %v", err)
			}
			if diff := testutil.DiffValues(value.MustParse(tc.want), got); diff != "" {
				t.Errorf("Apply (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestIdentityText(t *testing.T) {
	e := engine.New(nil)
	const input = `{"a":1,"b":"x\ty","c":true,"d":null,"e":1.50,"f":-2e3}`
	got, err := e.Transform(input, `{"mappings": [
	  {"from": "a", "to": "a"}, {"from": "b", "to": "b"}, {"from": "c", "to": "c"},
	  {"from": "d", "to": "d"}, {"from": "e", "to": "e"}, {"from": "f", "to": "f"},
	]}`, nil)
	if err != nil {
		t.Fatalf("Transform: unexpected error: %v", err)
	}
	if got != input {
		t.Errorf("Transform: got %#q, want %#q", got, input)
	}
}

func TestStrict(t *testing.T) {
	e := engine.New(nil)
	strict := &template.Settings{StrictMode: template.Bool(true)}
	tests := []struct {
		name   string
		tmpl   string
		target string
		kind   error
	}{
		{"DivideByZero",
			`{"mappings": [{"math": {"operation": "divide", "operands": [1, 0]}, "to": "q"}]}`,
			"q", xerr.ErrMathOperation},
		{"MissingField",
			`{"mappings": [{"from": "$.nonesuch", "to": "f"}]}`,
			"f", xerr.ErrPathNotFound},
		{"BadTraversal",
			`{"mappings": [{"from": "$.x.y", "to": "g"}]}`,
			"g", xerr.ErrPathNotFound},
		{"BadAggregate",
			`{"mappings": [{"aggregate": "median", "from": "$.xs", "to": "h"}]}`,
			"h", xerr.ErrAggregation},
		{"BadCondition",
			`{"mappings": [{"to": "i", "conditions": {"if": "$.x ==", "then": 1}}]}`,
			"i", xerr.ErrInvalidCondition},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := apply(t, e, `{"x": 1, "xs": [1, 2]}`, tc.tmpl, strict)
			var te *xerr.TransformError
			if !errors.As(err, &te) {
				t.Fatalf("Apply: got %v, want *TransformError", err)
			}
			if te.Target != tc.target {
				t.Errorf("Target: got %q, want %q", te.Target, tc.target)
			}
			if !errors.Is(err, tc.kind) || !errors.Is(err, xerr.ErrTransform) {
				t.Errorf("Apply: got %v, want %v", err, tc.kind)
			}

			// In lenient mode the mapping is absent, and no error is reported.
			got, err := apply(t, e, `{"x": 1, "xs": [1, 2]}`, tc.tmpl, nil)
			if err != nil {
				t.Errorf("Apply lenient: unexpected error: %v", err)
			} else if n := got.(*value.Object).Len(); n != 0 {
				t.Errorf("Apply lenient: got %s, want {}", got.JSON())
			}
		})
	}

	// A default satisfies a missing field even in strict mode.
	got, err := apply(t, e, `{}`, `{"mappings": [{"from": "$.a", "default": 0, "to": "a"}]}`, strict)
	if err != nil {
		t.Fatalf("Apply: unexpected error: %v", err)
	}
	if diff := testutil.DiffValues(value.MustParse(`{"a": 0}`), got); diff != "" {
		t.Errorf("Apply (-want, +got):\n%s", diff)
	}
}

// nestedTemplate returns the text of a template containing depth levels of
// nested templates.
func nestedTemplate(depth int) string {
	tmpl := `{"mappings": [{"value": "leaf", "to": "v"}]}`
	for range depth {
		tmpl = fmt.Sprintf(`{"mappings": [{"template": %s, "to": "n"}]}`, tmpl)
	}
	return tmpl
}

func TestMaxDepth(t *testing.T) {
	e := engine.New(nil)

	t.Run("WithinLimit", func(t *testing.T) {
		got, err := apply(t, e, `{}`, nestedTemplate(engine.DefaultMaxDepth), nil)
		if err != nil {
			t.Fatalf("Apply: unexpected error: %v", err)
		}
		want := `"leaf"`
		for range engine.DefaultMaxDepth {
			want = fmt.Sprintf(`{"n": %s}`, want)
		}
		want = strings.Replace(want, `"leaf"`, `{"v": "leaf"}`, 1)
		if diff := testutil.DiffValues(value.MustParse(want), got); diff != "" {
			t.Errorf("Apply (-want, +got):\n%s", diff)
		}
	})

	for _, strict := range []bool{false, true} {
		t.Run(fmt.Sprintf("Exceeded/strict=%v", strict), func(t *testing.T) {
			opts := &template.Settings{StrictMode: template.Bool(strict)}
			_, err := apply(t, e, `{}`, nestedTemplate(engine.DefaultMaxDepth+1), opts)
			if !errors.Is(err, xerr.ErrMaxDepth) {
				t.Errorf("Apply: got %v, want %v", err, xerr.ErrMaxDepth)
			}
		})
	}

	t.Run("Override", func(t *testing.T) {
		opts := &template.Settings{MaxDepth: template.Int(2)}
		if _, err := apply(t, e, `{}`, nestedTemplate(2), opts); err != nil {
			t.Errorf("Apply depth 2: unexpected error: %v", err)
		}
		if _, err := apply(t, e, `{}`, nestedTemplate(3), opts); !errors.Is(err, xerr.ErrMaxDepth) {
			t.Errorf("Apply depth 3: got %v, want %v", err, xerr.ErrMaxDepth)
		}
	})
}

func TestWriteErrors(t *testing.T) {
	e := engine.New(nil)
	tests := []struct {
		name string
		tmpl string
	}{
		{"NoCreate", `{"mappings": [{"value": 1, "to": "a.b"}], "settings": {"createPaths": false}}`},
		{"Wildcard", `{"mappings": [{"value": 1, "to": "a[*]"}]}`},
		{"NotContainer", `{"mappings": [{"value": 1, "to": "a"}, {"value": 2, "to": "a.b"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Write failures are reported even in lenient mode.
			_, err := apply(t, e, `{}`, tc.tmpl, nil)
			var te *xerr.TransformError
			if !errors.As(err, &te) || te.Op != "write" {
				t.Errorf("Apply: got %v, want write error", err)
			}
		})
	}
}

func TestNoMappings(t *testing.T) {
	e := engine.New(nil)
	_, err := apply(t, e, `{}`, `{"mappings": []}`, nil)
	if !errors.Is(err, xerr.ErrTemplate) {
		t.Errorf("Apply: got %v, want %v", err, xerr.ErrTemplate)
	}
}

func TestSettings(t *testing.T) {
	e := engine.New(&engine.Options{
		Defaults: template.Settings{PreserveNulls: template.Bool(true), MaxDepth: template.Int(4)},
	})
	tp, err := template.Parse(`{"mappings": [{"value": 1, "to": "x"}],
	  "settings": {"strictMode": true, "maxDepth": 6}}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := e.Settings(tp, &template.Settings{MaxDepth: template.Int(8), CreatePaths: template.Bool(false)})
	want := template.Settings{
		StrictMode:    template.Bool(true),  // template
		PreserveNulls: template.Bool(true),  // engine default
		CreatePaths:   template.Bool(false), // override
		MaxDepth:      template.Int(8),      // override
		EnableTracing: template.Bool(false), // base
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Settings (-want, +got):\n%s", diff)
	}

	// A nil override uses the template settings.
	if got := e.Settings(tp, nil); *got.MaxDepth != 6 {
		t.Errorf("Settings: got maxDepth %d, want 6", *got.MaxDepth)
	}
}

func TestTransform(t *testing.T) {
	e := engine.New(nil)
	got, err := e.Transform(`{"a": {"b": 1}}`, `{
	  // Comments and trailing commas are permitted in templates.
	  "mappings": [{"from": "$.a.b", "to": "x.y"},],
	}`, nil)
	if err != nil {
		t.Fatalf("Transform: unexpected error: %v", err)
	}
	if want := `{"x":{"y":1}}`; got != want {
		t.Errorf("Transform: got %#q, want %#q", got, want)
	}

	for _, tc := range []struct {
		source, tmpl, op string
	}{
		{`{bad`, `{"mappings": [{"value": 1, "to": "x"}]}`, "parse source"},
		{`{}`, `{"mappings": 5}`, "parse template"},
	} {
		_, err := e.Transform(tc.source, tc.tmpl, nil)
		var te *xerr.TransformError
		if !errors.As(err, &te) || te.Op != tc.op {
			t.Errorf("Transform(%#q, %#q): got %v, want %s error", tc.source, tc.tmpl, err, tc.op)
		}
	}
}

func TestIndent(t *testing.T) {
	e := engine.New(&engine.Options{Indent: "  "})
	got, err := e.Transform(`{"a": 1}`, `{"mappings": [{"from": "a", "to": "a"}]}`, nil)
	if err != nil {
		t.Fatalf("Transform: unexpected error: %v", err)
	}
	if want := "{\n  \"a\": 1\n}"; strings.TrimSpace(got) != want {
		t.Errorf("Transform: got %#q, want %#q", got, want)
	}
}

func TestTransformAsync(t *testing.T) {
	e := engine.New(nil)
	const tmpl = `{"mappings": [{"value": "ok", "to": "status"}]}`

	res := <-e.TransformAsync(t.Context(), `{}`, tmpl, nil)
	if res.Err != nil {
		t.Fatalf("TransformAsync: unexpected error: %v", res.Err)
	}
	if want := `{"status":"ok"}`; res.Output != want {
		t.Errorf("TransformAsync: got %#q, want %#q", res.Output, want)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	ch := e.TransformAsync(ctx, `{}`, tmpl, nil)
	if res := <-ch; !errors.Is(res.Err, context.Canceled) {
		t.Errorf("TransformAsync canceled: got %v, want %v", res.Err, context.Canceled)
	}
	if _, ok := <-ch; ok {
		t.Error("TransformAsync: channel not closed after result")
	}
}

func TestValidate(t *testing.T) {
	e := engine.New(nil)
	if msgs := e.Validate(`{"mappings": [{"from": "$.a", "to": "a"}]}`); len(msgs) != 0 {
		t.Errorf("Validate: got %q, want no messages", msgs)
	}
	msgs := e.Validate(`{"mappings": [
	  {"from": "$.a"},
	  {"to": "b"},
	  {"math": {"operation": "frobnicate", "operands": [1]}, "to": "c"},
	  {"aggregate": "median", "from": "$.xs", "to": "d"},
	  {"to": "e", "conditions": {"if": "$.a >", "then": 1}}
	]}`)
	if len(msgs) != 5 {
		t.Errorf("Validate: got %d messages, want 5:\n%s", len(msgs), strings.Join(msgs, "\n"))
	}
	if msgs := e.Validate(`not a template`); len(msgs) != 1 {
		t.Errorf("Validate: got %q, want 1 message", msgs)
	}
}

func TestTracing(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := engine.New(&engine.Options{Logger: zap.New(core)})
	const tmpl = `{"mappings": [
	  {"value": 1, "to": "a"},
	  {"math": {"operation": "divide", "operands": [1, 0]}, "to": "b"}
	]}`

	if _, err := apply(t, e, `{}`, tmpl, nil); err != nil {
		t.Fatalf("Apply: unexpected error: %v", err)
	}
	if n := logs.Len(); n != 0 {
		t.Errorf("Without tracing: got %d log entries, want 0", n)
	}

	if _, err := apply(t, e, `{}`, tmpl, &template.Settings{EnableTracing: template.Bool(true)}); err != nil {
		t.Fatalf("Apply: unexpected error: %v", err)
	}
	if n := logs.FilterMessage("Mapping applied").Len(); n != 1 {
		t.Errorf("Mapping applied: got %d entries, want 1", n)
	}
	failed := logs.FilterMessage("Mapping failed").FilterField(zap.String("target", "b"))
	if failed.Len() != 1 {
		t.Errorf("Mapping failed: got %d entries, want 1", failed.Len())
	}
}
