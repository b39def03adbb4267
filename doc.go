// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package jtransform implements declarative JSON-to-JSON transformations.
//
// A transformation is described by a template, a JSON document listing the
// mappings that construct the output. Each mapping produces one value and
// writes it to a target path in the output:
//
//	{
//	  "mappings": [
//	    {"from": "$.user.name", "to": "customer.name"},
//	    {"math": {"operation": "multiply", "operands": ["$.price", "$.qty"]}, "to": "total"},
//	    {"concat": "{$.user.first} {$.user.last}", "to": "customer.label"},
//	    {"aggregate": "sum", "from": "$.orders[*].amount", "to": "spent"},
//	    {"to": "status", "conditions": {
//	      "if": "$.user.age >= 18", "then": "Adult", "else": "Minor"
//	    }}
//	  ]
//	}
//
// # Transforming
//
// The Transform function applies a template to a source document, both given
// as text, and returns the output document:
//
//	out, err := jtransform.Transform(source, tmpl, nil)
//	if err != nil {
//	   log.Fatalf("Transform failed: %v", err)
//	}
//
// Errors from Transform have concrete type *xerr.TransformError, and can be
// classified with errors.Is using the sentinel errors of package xerr.
//
// # Settings
//
// The behavior of a transformation is controlled by settings. A setting given
// by the caller takes precedence over one declared by the template, which in
// turn takes precedence over the process defaults:
//
//	Setting        | Default | Meaning
//	-------------- | ------- | ----------------------------------------------
//	strictMode     | false   | abort on the first failing mapping
//	preserveNulls  | false   | write null for mappings that produce no value
//	createPaths    | true    | create missing objects and arrays on write
//	maxDepth       | 10      | limit on the nesting of templates
//	enableTracing  | false   | log each mapping at debug level
//
// The process defaults used by the package-level functions are loaded once,
// on first use, by config.Load. To use other defaults, construct an engine
// with New.
//
// # Validation
//
// ValidateTemplate checks the structure of a template without a source
// document, and returns a description of each problem it finds.
package jtransform
