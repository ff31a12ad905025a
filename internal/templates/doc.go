// Package templates loads email body templates and renders them per recipient.
//
// A template is plain text containing positional placeholder markers ("{}").
// Rendering replaces markers left to right with the recipient's fill items and
// optionally prepends a "Dear <title>," greeting. Templates may carry an HTML
// alternative, either loaded from an explicit HTML file or produced from a
// Markdown (.md) template with goldmark and sanitized with bluemonday.
package templates
