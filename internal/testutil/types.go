// Package testutil defines support code for unit tests.
package testutil

import (
	"github.com/creachadair/jtransform/template"
	"github.com/creachadair/jtransform/value"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// ValueComparer compares JSON values by content, so that numbers compare
// equal regardless of how they were spelled in source text.
var ValueComparer = cmp.Comparer(value.Equal)

// TemplateOptions compares decoded templates by content.
var TemplateOptions = cmp.Options{
	ValueComparer,
	cmpopts.IgnoreUnexported(template.Mapping{}),
	cmpopts.EquateEmpty(),
}

// DiffValues reports the differences between JSON values want and got, using
// ValueComparer. The comparison applies even when the concrete types differ,
// as with a number parsed from text and one constructed by a program.
func DiffValues(want, got value.Value) string {
	return cmp.Diff(&want, &got, ValueComparer)
}
