// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package template

import (
	"strings"
	"time"

	"github.com/creachadair/jtransform/value"
	"github.com/google/uuid"
)

// Hooks for the clock and identifier source, replaced in tests.
var (
	timeNow = time.Now
	newID   = uuid.NewString
)

// ExpandConstant returns the value of a constant, replacing a string that
// matches one of the following keywords (ignoring case) with its value:
//
//	now          the current local time, RFC 3339
//	utcnow       the current UTC time, RFC 3339
//	guid         a new random UUID
//	newguid      a new random UUID
//	timestamp    the current time in seconds since the Unix epoch
//	true, false  the corresponding Boolean value
//	null         JSON null
//
// Any other value is returned unchanged.
func ExpandConstant(v value.Value) value.Value {
	s, ok := v.(value.String)
	if !ok {
		return v
	}
	switch strings.ToLower(string(s)) {
	case "now":
		return value.String(timeNow().Format(time.RFC3339))
	case "utcnow":
		return value.String(timeNow().UTC().Format(time.RFC3339))
	case "guid", "newguid":
		return value.String(newID())
	case "timestamp":
		return value.Int(timeNow().Unix())
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	case "null":
		return value.Null
	}
	return v
}

// IsPathRef reports whether s is a reference to a path rather than a literal
// string. A path reference is "$" or begins with "$." or "$[".
func IsPathRef(s string) bool {
	return s == "$" || strings.HasPrefix(s, "$.") || strings.HasPrefix(s, "$[")
}
