// Package templates ships the built-in starter forms and the cover images
// offered by the editor.
package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// DefaultCoverURL is the first cover offered and the one used when a form
// has none.
const DefaultCoverURL = "https://images.unsplash.com/photo-1506784983877-45594efa4cbe?q=80&w=1800&auto=format&fit=crop"

// DefaultCoverLabel labels DefaultCoverURL in pickers.
const DefaultCoverLabel = "Default (notebook)"

// ErrUnknownTemplate is returned by Lookup and Instantiate.
var ErrUnknownTemplate = errors.New("templates: unknown template")

//go:embed catalog.yaml
var catalogYAML []byte

// Template is a starter form with its presentation defaults.
type Template struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Theme       string         `json:"theme" yaml:"theme"`
	CoverURL    string         `json:"coverUrl" yaml:"coverUrl"`
	Form        model.Document `json:"form" yaml:"form"`
}

// CoverOption is an entry of the cover picker.
type CoverOption struct {
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
}

var (
	catalogOnce sync.Once
	catalog     []Template
	catalogErr  error
)

// Parse decodes a catalog document with a top level templates list.
func Parse(data []byte) ([]Template, error) {
	var doc struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("templates: decode catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Templates))
	for i, t := range doc.Templates {
		if t.ID == "" {
			return nil, fmt.Errorf("templates: entry %d has no id", i)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("templates: duplicate id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		if err := t.Form.Check(); err != nil {
			return nil, fmt.Errorf("templates: %s: %w", t.ID, err)
		}
	}
	return doc.Templates, nil
}

func builtin() ([]Template, error) {
	catalogOnce.Do(func() {
		catalog, catalogErr = Parse(catalogYAML)
	})
	return catalog, catalogErr
}

// All returns copies of the built-in templates in display order. The
// embedded catalog is validated by tests so an error here is a build defect.
func All() []Template {
	list, err := builtin()
	if err != nil {
		panic(err)
	}
	out := make([]Template, len(list))
	for i, t := range list {
		out[i] = t
		out[i].Form = t.Form.Clone()
	}
	return out
}

// Lookup returns the template with the given id.
func Lookup(id string) (Template, error) {
	for _, t := range All() {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
}

// CoverOptions lists the default cover followed by the distinct template
// covers in catalog order.
func CoverOptions() []CoverOption {
	out := []CoverOption{{Label: DefaultCoverLabel, URL: DefaultCoverURL}}
	seen := map[string]struct{}{DefaultCoverURL: {}}
	for _, t := range All() {
		if t.CoverURL == "" {
			continue
		}
		if _, dup := seen[t.CoverURL]; dup {
			continue
		}
		seen[t.CoverURL] = struct{}{}
		out = append(out, CoverOption{Label: t.Name, URL: t.CoverURL})
	}
	return out
}

// Instantiate returns a new document built from template id. The template
// cover becomes the background, the tint defaults to dark and every field is
// given its own step.
func Instantiate(id string) (model.Document, error) {
	t, err := Lookup(id)
	if err != nil {
		return model.Document{}, err
	}
	return t.Document(), nil
}

// Document materialises the template as an editable form.
func (t Template) Document() model.Document {
	doc := t.Form.Clone()
	if t.CoverURL != "" {
		doc.Background.URL = t.CoverURL
		doc.Background.Mode = model.BackgroundCover
	}
	if doc.Background.Tint == "" {
		doc.Background.Tint = model.TintDark
	}
	doc = doc.OneFieldPerStep()
	doc.Normalize()
	return doc
}
