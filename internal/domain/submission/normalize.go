package submission

import (
	"html"
	"strings"
)

// Rules decides which posted fields are bookkeeping and never stored.
type Rules struct {
	// ReservedPrefixes marks the form system's own hidden fields.
	ReservedPrefixes []string
	// IgnoredFields are skipped on exact name match (CAPTCHA, submit button).
	IgnoredFields    []string
	DefaultFormTitle string
}

func DefaultRules() Rules {
	return Rules{
		ReservedPrefixes: []string{"_wpcf7"},
		IgnoredFields:    []string{"g-recaptcha-response", "submit"},
		DefaultFormTitle: "Contact Form 7",
	}
}

// Normalizer turns a Payload into a Draft. It is pure: no I/O, and equal
// payloads always give equal drafts.
type Normalizer struct {
	prefixes     []string
	ignored      map[string]struct{}
	defaultTitle string
}

func NewNormalizer(rules Rules) *Normalizer {
	n := &Normalizer{
		ignored:      make(map[string]struct{}, len(rules.IgnoredFields)),
		defaultTitle: strings.TrimSpace(rules.DefaultFormTitle),
	}
	for _, prefix := range rules.ReservedPrefixes {
		if prefix != "" {
			n.prefixes = append(n.prefixes, prefix)
		}
	}
	for _, name := range rules.IgnoredFields {
		n.ignored[name] = struct{}{}
	}
	if n.defaultTitle == "" {
		n.defaultTitle = DefaultRules().DefaultFormTitle
	}
	return n
}

// Skips reports whether a field name is bookkeeping.
func (n *Normalizer) Skips(name string) bool {
	if _, ok := n.ignored[name]; ok {
		return true
	}
	for _, prefix := range n.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (n *Normalizer) Normalize(p Payload) Draft {
	formTitle := SanitizeText(p.FormTitle)
	if formTitle == "" {
		formTitle = n.defaultTitle
	}

	draft := Draft{
		FormID:     SanitizeText(p.FormID),
		FormTitle:  formTitle,
		Title:      "Submission - " + formTitle,
		Status:     StatusPrivate,
		Attributes: make(map[string]Value, len(p.Fields)),
		Files:      make(map[string]string, len(p.Uploads)),
	}

	var summary strings.Builder
	for _, field := range p.Fields {
		if n.Skips(field.Name) {
			continue
		}
		key := NormalizeKey(field.Name)
		if key == "" {
			continue
		}

		label := html.EscapeString(Label(field.Name))
		if field.Multi {
			items := make([]string, 0, len(field.Values))
			for _, raw := range field.Values {
				items = append(items, SanitizeText(raw))
			}
			value := List(items...)
			summary.WriteString("<p><strong>" + label + ":</strong><br>" + html.EscapeString(value.String()) + "</p>")
			draft.Attributes[key] = value
			continue
		}

		text := ""
		if len(field.Values) > 0 {
			text = SanitizeText(field.Values[0])
		}
		summary.WriteString("<p><strong>" + label + ":</strong> " + html.EscapeString(text) + "</p>")
		draft.Attributes[key] = Single(text)
	}

	uploads := make([]string, 0, len(p.Uploads))
	for _, upload := range p.Uploads {
		key := NormalizeKey(upload.Field)
		if key == "" {
			continue
		}
		path := firstPath(upload.Paths)
		uploads = append(uploads, html.EscapeString(Label(upload.Field))+": "+html.EscapeString(baseName(path))+"<br>")
		draft.Files[key] = SanitizeText(path)
	}
	if len(uploads) > 0 {
		summary.WriteString("<p><strong>Uploaded Files:</strong><br>")
		for _, line := range uploads {
			summary.WriteString(line)
		}
		summary.WriteString("</p>")
	}

	draft.Summary = summary.String()
	return draft
}

// NormalizeEvent parses and normalizes a raw event body. ok is false when the
// body carries no usable submission.
func (n *Normalizer) NormalizeEvent(data []byte) (Draft, Payload, bool) {
	p, ok := ParsePayload(data)
	if !ok {
		return Draft{}, Payload{}, false
	}
	return n.Normalize(p), p, true
}

func firstPath(paths []string) string {
	for _, p := range paths {
		if strings.TrimSpace(p) != "" {
			return strings.TrimSpace(p)
		}
	}
	return ""
}

// baseName handles both slash styles since paths come from the host system.
func baseName(path string) string {
	trimmed := strings.TrimRight(path, `/\`)
	if idx := strings.LastIndexAny(trimmed, `/\`); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
