package templates

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// DefaultDir is the directory templates are read from when none is configured.
const DefaultDir = "templates"

// ErrTemplateNotFound is returned when a template file does not exist.
var ErrTemplateNotFound = errors.New("template not found")

// Loader reads templates from a file system.
type Loader struct {
	fs     fs.FS
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewLoader creates a loader reading from filesystem, typically os.DirFS(dir).
func NewLoader(filesystem fs.FS) *Loader {
	return &Loader{
		fs: filesystem,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Linkify, extension.Table),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Load reads the template called name. When htmlName is set, that file is
// loaded as the HTML alternative. Otherwise a Markdown template (.md) gets an
// HTML alternative rendered from its text.
func (l *Loader) Load(name, htmlName string) (*Template, error) {
	text, err := l.read(name)
	if err != nil {
		return nil, err
	}

	t := &Template{Name: name, Text: text}

	switch {
	case htmlName != "":
		t.HTML, err = l.read(htmlName)
		if err != nil {
			return nil, err
		}
	case isMarkdown(name):
		t.HTML, err = l.renderMarkdown(text)
		if err != nil {
			return nil, fmt.Errorf("failed to render markdown template %s: %w", name, err)
		}
	}

	return t, nil
}

func (l *Loader) read(name string) (string, error) {
	data, err := fs.ReadFile(l.fs, path.Clean(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return string(data), nil
}

func (l *Loader) renderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := l.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	body := l.policy.Sanitize(buf.String())
	return "<html>\n<body>\n" + body + "</body>\n</html>\n", nil
}

func isMarkdown(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".md" || ext == ".markdown"
}
