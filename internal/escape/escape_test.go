// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package escape_test

import (
	"encoding/json"
	"testing"

	"github.com/creachadair/jtransform/internal/escape"
	"go4.org/mem"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"", `""`},
		{"plain", `"plain"`},
		{`a "b" \c`, `"a \"b\" \\c"`},
		{"tab\tnl\ncr\r", `"tab\tnl\ncr\r"`},
		{"\x00\x1f", `"\u0000\u001f"`},
		{"café 世", `"café 世"`},
		{"sep\u2028\u2029", `"sep\u2028\u2029"`},
		{"bad\xff", `"bad\ufffd"`},
		{"</script>", `"</script>"`},
	}
	for _, tc := range tests {
		got := string(escape.Quote(mem.S(tc.input)))
		if got != tc.want {
			t.Errorf("Quote(%q): got %#q, want %#q", tc.input, got, tc.want)
		}

		// The result must be valid JSON that decodes to the input, apart from
		// invalid UTF-8.
		var dec string
		if err := json.Unmarshal([]byte(got), &dec); err != nil {
			t.Errorf("Quote(%q): invalid JSON %#q: %v", tc.input, got, err)
		}
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"", ""},
		{"no escapes", "no escapes"},
		{`it\'s`, "it's"},
		{`say \"hi\"`, `say "hi"`},
		{`a\\b\/c`, `a\b/c`},
		{`\b\f\n\r\t`, "\b\f\n\r\t"},
		{`\u00e9\u4E16`, "é世"},
		{`\q`, "\ufffd"},
		{`\uzzzz`, "\ufffd"},
	}
	for _, tc := range tests {
		got, err := escape.Unquote(mem.S(tc.input))
		if err != nil {
			t.Errorf("Unquote(%#q): unexpected error: %v", tc.input, err)
		} else if string(got) != tc.want {
			t.Errorf("Unquote(%#q): got %q, want %q", tc.input, got, tc.want)
		}
	}

	for _, bad := range []string{`trailing\`, `\u12`} {
		if got, err := escape.Unquote(mem.S(bad)); err == nil {
			t.Errorf("Unquote(%#q): got %q, want error", bad, got)
		}
	}
}
