// Package sanitize cleans untrusted text before it is stored. Values are
// kept as sent apart from bytes no client can render; escaping is left to
// the output side.
package sanitize

import (
	"strings"
	"unicode"
)

// Text drops control characters other than tab, newline and carriage return
// and replaces invalid UTF-8 with U+FFFD. Markup, entities and surrounding
// whitespace are preserved.
func Text(s string) string {
	s = strings.ToValidUTF8(s, string(unicode.ReplacementChar))
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// Value sanitizes every string reachable inside a decoded JSON value
// (string, []any, map[string]any). Other values pass through unchanged.
func Value(v any) any {
	switch typed := v.(type) {
	case string:
		return Text(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Value(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = Value(item)
		}
		return out
	default:
		return v
	}
}

// volatile keys never belong in audit snapshots
var snapshotDropped = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"createdAt":  {},
	"updatedAt":  {},
}

// Snapshot returns a copy of m fit for an audit trail: timestamps and nil
// values are dropped. A nil map yields nil.
func Snapshot(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, skip := snapshotDropped[k]; skip || v == nil {
			continue
		}
		out[k] = v
	}
	return out
}
