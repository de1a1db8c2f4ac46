// internal/templates/engine.go
package templates

import (
	"errors"
	"fmt"
	"strings"
)

var ErrTemplateNotFound = errors.New("template not found")

type TemplateID string

const (
	Purchase     TemplateID = "purchase"
	Renovation   TemplateID = "renovation"
	JointVenture TemplateID = "joint-venture"
	LeaseOption  TemplateID = "lease-option"
)

// Field describes one input a template reads and the placeholder printed
// when the value is missing or blank.
type Field struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
}

type Template struct {
	ID          TemplateID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Fields      []Field    `json:"fields"`

	render func(values) string
}

var registry = map[TemplateID]*Template{}

// catalog is the display order used by List.
var catalog = []TemplateID{Purchase, Renovation, JointVenture, LeaseOption}

func register(t *Template) {
	if _, dup := registry[t.ID]; dup {
		panic(fmt.Sprintf("templates: duplicate template %q", t.ID))
	}
	registry[t.ID] = t
}

// Render produces the plain-text body of template id. Absent or blank
// fields are replaced by their bracketed placeholder; an unknown id is the
// only error.
func Render(id TemplateID, fields map[string]string) (string, error) {
	t, ok := registry[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return t.render(newValues(t, fields)), nil
}

func Lookup(id TemplateID) (*Template, error) {
	t, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return t, nil
}

func Exists(id string) bool {
	_, ok := registry[TemplateID(id)]
	return ok
}

// List returns metadata for every registered template.
func List() []Template {
	out := make([]Template, 0, len(catalog))
	for _, id := range catalog {
		t := *registry[id]
		t.Fields = append([]Field(nil), t.Fields...)
		out = append(out, t)
	}
	return out
}

// values resolves a field to its trimmed value or placeholder.
type values struct {
	fields       map[string]string
	placeholders map[string]string
}

func newValues(t *Template, fields map[string]string) values {
	ph := make(map[string]string, len(t.Fields))
	for _, f := range t.Fields {
		ph[f.Key] = f.Placeholder
	}
	return values{fields: fields, placeholders: ph}
}

func (v values) get(key string) string {
	if s := strings.TrimSpace(v.fields[key]); s != "" {
		return s
	}
	if p, ok := v.placeholders[key]; ok {
		return p
	}
	return "[" + strings.ToUpper(key) + "]"
}

func commonFields(partyOne, partyTwo string) []Field {
	return []Field{
		{Key: "partyOne", Label: partyOne, Placeholder: "[" + strings.ToUpper(partyOne) + " NAME]"},
		{Key: "partyTwo", Label: partyTwo, Placeholder: "[" + strings.ToUpper(partyTwo) + " NAME]"},
		{Key: "propertyAddress", Label: "Property Address", Placeholder: "[PROPERTY ADDRESS]"},
		{Key: "date", Label: "Agreement Date", Placeholder: "[DATE]"},
		{Key: "terms", Label: "Additional Terms", Placeholder: "[ADDITIONAL TERMS]"},
	}
}

func signatureBlock(b *strings.Builder, v values, labelOne, labelTwo string) {
	fmt.Fprintf(b, "\nSIGNATURES\n\n")
	fmt.Fprintf(b, "%s: %s\nSignature: ______________________  Date: __________\n\n", labelOne, v.get("partyOne"))
	fmt.Fprintf(b, "%s: %s\nSignature: ______________________  Date: __________\n", labelTwo, v.get("partyTwo"))
}
