package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Recipient is one addressee of a recipient list.
type Recipient struct {
	// Email is the recipient address. Required.
	Email string `json:"email" yaml:"email"`

	// Title is used for the "Dear <title>," greeting. Optional.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// FillItems replace the template's placeholder markers in order.
	FillItems []string `json:"fill_items,omitempty" yaml:"fill_items,omitempty"`
}

// RecipientList is a named group of recipients sharing a subject and template.
type RecipientList struct {
	// Name is the key the list is stored under in the lists file.
	Name string `json:"-" yaml:"-"`

	Subject string `json:"subject" yaml:"subject"`

	// Template is a file name relative to the templates directory.
	Template string `json:"template" yaml:"template"`

	// HTMLTemplate optionally names an HTML alternative template.
	HTMLTemplate string `json:"html_template,omitempty" yaml:"html_template,omitempty"`

	Recipients []Recipient `json:"recipients" yaml:"recipients"`
}

// Lists is the set of configured recipient lists in file order.
type Lists struct {
	names  []string
	byName map[string]*RecipientList
}

// NewLists builds a Lists value from lists in the given order.
func NewLists(lists ...RecipientList) (*Lists, error) {
	l := &Lists{byName: make(map[string]*RecipientList, len(lists))}
	for _, rl := range lists {
		if err := l.add(rl); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Names returns the list names in the order they were configured.
func (l *Lists) Names() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Get returns the named list.
func (l *Lists) Get(name string) (*RecipientList, bool) {
	rl, ok := l.byName[name]
	return rl, ok
}

// Len returns the number of lists.
func (l *Lists) Len() int {
	return len(l.names)
}

func (l *Lists) add(rl RecipientList) error {
	if err := rl.Validate(); err != nil {
		return err
	}
	if _, exists := l.byName[rl.Name]; exists {
		return fmt.Errorf("duplicate recipient list %q", rl.Name)
	}
	l.names = append(l.names, rl.Name)
	l.byName[rl.Name] = &rl
	return nil
}

// Validate checks the fields a list needs to be sendable.
func (rl *RecipientList) Validate() error {
	if rl.Name == "" {
		return errors.New("recipient list name must not be empty")
	}
	if rl.Template == "" {
		return fmt.Errorf("recipient list %q: template is required", rl.Name)
	}
	for i, r := range rl.Recipients {
		if strings.TrimSpace(r.Email) == "" {
			return fmt.Errorf("recipient list %q: recipient %d has no email", rl.Name, i+1)
		}
	}
	return nil
}

// LoadLists reads recipient lists from path. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func LoadLists(path string) (*Lists, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipient lists: %w", err)
	}

	var lists *Lists
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		lists, err = ParseYAMLLists(data)
	default:
		lists, err = ParseJSONLists(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipient lists %s: %w", path, err)
	}
	return lists, nil
}

// ParseJSONLists decodes a JSON object of recipient lists, keeping key order.
func ParseJSONLists(data []byte) (*Lists, error) {
	lists := &Lists{byName: make(map[string]*RecipientList)}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a JSON object of recipient lists")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var rl RecipientList
		if err := dec.Decode(&rl); err != nil {
			return nil, fmt.Errorf("recipient list %q: %w", name, err)
		}
		rl.Name = name
		if err := lists.add(rl); err != nil {
			return nil, err
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return lists, nil
}

// ParseYAMLLists decodes a YAML mapping of recipient lists, keeping key order.
func ParseYAMLLists(data []byte) (*Lists, error) {
	lists := &Lists{byName: make(map[string]*RecipientList)}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return lists, nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, errors.New("expected a YAML mapping of recipient lists")
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		name := doc.Content[i].Value

		var rl RecipientList
		if err := doc.Content[i+1].Decode(&rl); err != nil {
			return nil, fmt.Errorf("recipient list %q: %w", name, err)
		}
		rl.Name = name
		if err := lists.add(rl); err != nil {
			return nil, err
		}
	}
	return lists, nil
}
