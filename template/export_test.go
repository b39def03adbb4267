// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package template

// Hooks exposed for testing.
var (
	TimeNow = &timeNow
	NewID   = &newID
)
