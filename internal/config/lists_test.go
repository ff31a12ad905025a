package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listsJSON = `{
  "william": {
    "subject": "Your order",
    "template": "order.txt",
    "recipients": [
      {"email": "alice@example.com", "title": "Ms. Alice", "fill_items": ["Alice", "12345"]},
      {"email": "bob@example.com"}
    ]
  },
  "alpha": {
    "subject": "Hello",
    "template": "hello.md",
    "html_template": "hello.html",
    "recipients": []
  }
}`

const listsYAML = `
william:
  subject: Your order
  template: order.txt
  recipients:
    - email: alice@example.com
      title: Ms. Alice
      fill_items: [Alice, "12345"]
    - email: bob@example.com
alpha:
  subject: Hello
  template: hello.md
  recipients: []
`

func TestParseJSONLists(t *testing.T) {
	lists, err := ParseJSONLists([]byte(listsJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{"william", "alpha"}, lists.Names(), "file order must be kept")
	assert.Equal(t, 2, lists.Len())

	w, ok := lists.Get("william")
	require.True(t, ok)
	assert.Equal(t, "william", w.Name)
	assert.Equal(t, "Your order", w.Subject)
	assert.Equal(t, "order.txt", w.Template)
	require.Len(t, w.Recipients, 2)
	assert.Equal(t, Recipient{Email: "alice@example.com", Title: "Ms. Alice", FillItems: []string{"Alice", "12345"}}, w.Recipients[0])
	assert.Equal(t, Recipient{Email: "bob@example.com"}, w.Recipients[1])

	a, ok := lists.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "hello.html", a.HTMLTemplate)
	assert.Empty(t, a.Recipients)

	_, ok = lists.Get("missing")
	assert.False(t, ok)
}

func TestParseYAMLLists(t *testing.T) {
	lists, err := ParseYAMLLists([]byte(listsYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"william", "alpha"}, lists.Names())
	w, _ := lists.Get("william")
	require.Len(t, w.Recipients, 2)
	assert.Equal(t, []string{"Alice", "12345"}, w.Recipients[0].FillItems)
	assert.Equal(t, "Ms. Alice", w.Recipients[0].Title)
}

func TestParseYAMLLists_Empty(t *testing.T) {
	lists, err := ParseYAMLLists([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, 0, lists.Len())
}

func TestParseLists_Errors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not an object", `[]`},
		{"invalid json", `{"a": `},
		{"missing template", `{"a": {"subject": "s", "recipients": []}}`},
		{"recipient without email", `{"a": {"subject": "s", "template": "t.txt", "recipients": [{"title": "x"}]}}`},
		{"duplicate list", `{"a": {"template": "t.txt"}, "a": {"template": "u.txt"}}`},
		{"wrong field type", `{"a": {"template": "t.txt", "recipients": "nope"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSONLists([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestLoadLists(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "email_lists.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(listsJSON), 0o600))
	yamlPath := filepath.Join(dir, "email_lists.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(listsYAML), 0o600))

	for _, p := range []string{jsonPath, yamlPath} {
		lists, err := LoadLists(p)
		require.NoError(t, err, p)
		assert.Equal(t, []string{"william", "alpha"}, lists.Names())
	}

	_, err := LoadLists(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestNewLists(t *testing.T) {
	lists, err := NewLists(
		RecipientList{Name: "b", Template: "b.txt"},
		RecipientList{Name: "a", Template: "a.txt"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, lists.Names())

	_, err = NewLists(RecipientList{Name: "", Template: "x.txt"})
	assert.Error(t, err)
}
