package templates

import "html"

// Template is a loaded body template.
type Template struct {
	// Name is the template file name relative to the templates directory.
	Name string

	// Text is the plain text body with placeholder markers.
	Text string

	// HTML is the optional HTML alternative. Empty when the template has none.
	HTML string
}

// Rendered is a template filled in for one recipient.
type Rendered struct {
	Text string
	HTML string
}

// HasHTML reports whether the template carries an HTML alternative.
func (t *Template) HasHTML() bool {
	return t.HTML != ""
}

// Render fills the template for one recipient. The text and HTML bodies each
// consume values from the start, independently of one another. Values are
// HTML-escaped for the HTML body, like the greeting title, so a fill item
// never adds markup to a sanitized document.
func (t *Template) Render(values []string, title string) Rendered {
	r := Rendered{
		Text: ApplyGreeting(Substitute(t.Text, values), title),
	}
	if t.HasHTML() {
		r.HTML = ApplyHTMLGreeting(Substitute(t.HTML, escapeAll(values)), title)
	}
	return r
}

func escapeAll(values []string) []string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = html.EscapeString(v)
	}
	return escaped
}
