package submission

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeKey maps a submitted field name to its attribute key: trimmed,
// lowercased, and every rune outside [a-z0-9_-] replaced by '_'.
// NormalizeKey(NormalizeKey(x)) == NormalizeKey(x).
func NormalizeKey(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if lowered == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Label turns a field name into display text: "your-first_name" -> "Your First Name".
// Only the first letter of each word changes case.
func Label(name string) string {
	spaced := strings.NewReplacer("_", " ", "-", " ").Replace(name)
	// Casers keep state, so one per call.
	return cases.Title(language.Und, cases.NoLower).String(spaced)
}

// HeaderName is the CSV header text for an attribute key.
func HeaderName(key string) string {
	return strings.TrimLeft(key, "_")
}
