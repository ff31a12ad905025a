package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplate_Render(t *testing.T) {
	tmpl := &Template{Name: "order.txt", Text: "Hello {}, your order #{} shipped."}

	r := tmpl.Render([]string{"Alice", "12345"}, "")
	assert.Equal(t, "Hello Alice, your order #12345 shipped.", r.Text)
	assert.Empty(t, r.HTML)

	r = tmpl.Render([]string{"Alice", "12345"}, "Ms. Alice")
	assert.Equal(t, "Dear Ms. Alice,\n\nHello Alice, your order #12345 shipped.", r.Text)
}

func TestTemplate_RenderHTMLConsumesValuesIndependently(t *testing.T) {
	tmpl := &Template{
		Name: "order.txt",
		Text: "Hi {}",
		HTML: "<html><body><b>{}</b> #{}</body></html>",
	}

	r := tmpl.Render([]string{"Alice", "42"}, "Ms. Alice")

	assert.Equal(t, "Dear Ms. Alice,\n\nHi Alice", r.Text)
	assert.Equal(t, "<html><body>\n<p>Dear Ms. Alice,</p>\n<b>Alice</b> #42</body></html>", r.HTML)
}

func TestTemplate_HasHTML(t *testing.T) {
	assert.False(t, (&Template{Text: "x"}).HasHTML())
	assert.True(t, (&Template{Text: "x", HTML: "<p>x</p>"}).HasHTML())
}

func TestTemplate_RenderEscapesValuesInHTMLOnly(t *testing.T) {
	tmpl := &Template{
		Name: "note.md",
		Text: "Note: {}",
		HTML: "<html><body><p>Note: {}</p></body></html>",
	}

	r := tmpl.Render([]string{`<script>alert("x")</script> & co`}, "")

	assert.Equal(t, `Note: <script>alert("x")</script> & co`, r.Text)
	assert.Equal(t, "<html><body><p>Note: &lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt; &amp; co</p></body></html>", r.HTML)
}
