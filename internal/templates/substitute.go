package templates

import (
	"html"
	"regexp"
	"strings"
)

// Placeholder is the positional marker replaced by fill items.
const Placeholder = "{}"

var bodyTagRe = regexp.MustCompile(`(?i)<body(\s[^>]*)?>`)

// Substitute replaces placeholder markers in text, left to right, with values.
// The n-th marker receives values[n]. Markers beyond len(values) are left as
// they are and surplus values are ignored. Inserted values are never scanned
// for markers themselves.
func Substitute(text string, values []string) string {
	if len(values) == 0 || !strings.Contains(text, Placeholder) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	rest := text
	for _, v := range values {
		i := strings.Index(rest, Placeholder)
		if i < 0 {
			break
		}
		b.WriteString(rest[:i])
		b.WriteString(v)
		rest = rest[i+len(Placeholder):]
	}
	b.WriteString(rest)
	return b.String()
}

// Placeholders counts the markers in text.
func Placeholders(text string) int {
	return strings.Count(text, Placeholder)
}

// ApplyGreeting prepends "Dear <title>," and a blank line to a plain text body.
// An empty title leaves the body untouched.
func ApplyGreeting(text, title string) string {
	if title == "" {
		return text
	}
	return "Dear " + title + ",\n\n" + text
}

// ApplyHTMLGreeting inserts a greeting paragraph right after the first opening
// <body> tag. An empty title, or a document without a body tag, is returned
// unchanged.
func ApplyHTMLGreeting(doc, title string) string {
	if title == "" {
		return doc
	}
	loc := bodyTagRe.FindStringIndex(doc)
	if loc == nil {
		return doc
	}
	greeting := "\n<p>Dear " + html.EscapeString(title) + ",</p>\n"
	return doc[:loc[1]] + greeting + doc[loc[1]:]
}
