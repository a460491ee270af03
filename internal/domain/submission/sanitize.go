package submission

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SanitizeText reduces a submitted value to single-line plain text: invalid
// UTF-8 dropped, markup removed (script/style bodies included), control
// characters and line breaks turned into spaces, whitespace collapsed.
// Entities are decoded; callers escape again when embedding into HTML.
func SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}

	text := stripMarkup(escapeLoneLessThan(strings.ToValidUTF8(raw, "")))
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text)

	return strings.Join(strings.Fields(text), " ")
}

// escapeLoneLessThan entity-encodes every '<' that reaches another '<' or
// the end of input before a '>', so "help<urgent" keeps its text instead of
// being read as an unterminated tag.
func escapeLoneLessThan(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '<' {
			b.WriteByte(s[i])
			continue
		}
		if end := strings.IndexAny(s[i+1:], "<>"); end >= 0 && s[i+1+end] == '>' {
			b.WriteByte('<')
			continue
		}
		b.WriteString("&lt;")
	}
	return b.String()
}

func stripMarkup(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))

	var b strings.Builder
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF, or a malformed tail the tokenizer gives up on.
			return b.String()
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			if isRawTextTag(z) {
				skipDepth++
			}
		case html.EndTagToken:
			if skipDepth > 0 && isRawTextTag(z) {
				skipDepth--
			}
		}
	}
}

func isRawTextTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style:
		return true
	default:
		return false
	}
}

// SummaryLines renders a stored summary as plain text, one line per
// paragraph or line break.
func SummaryLines(summary string) []string {
	z := html.NewTokenizer(strings.NewReader(summary))

	var lines []string
	var current strings.Builder
	breakLine := func() {
		if line := strings.Join(strings.Fields(current.String()), " "); line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}
	for {
		switch z.Next() {
		case html.ErrorToken:
			breakLine()
			return lines
		case html.TextToken:
			current.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == atom.Br {
				breakLine()
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == atom.P {
				breakLine()
			}
		}
	}
}
