package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Transformer mutates a document copy before it is rendered. Stored forms are
// never changed.
type Transformer interface {
	Transform(ctx context.Context, doc *model.Document) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, doc *model.Document) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, doc *model.Document) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, doc)
}

// OneFieldPerStep splits every step so each question gets its own page.
func OneFieldPerStep() Transformer {
	return TransformerFunc(func(_ context.Context, doc *model.Document) error {
		*doc = doc.OneFieldPerStep()
		return nil
	})
}

// PresetTransformer applies copy overrides read from a YAML or JSON preset,
// for example to publish a translated variant of a form:
//
//	title: Registro
//	fields:
//	  full-name:
//	    label: Nombre completo
//	    placeholder: Ada Lovelace
type PresetTransformer struct {
	preset preset
}

type preset struct {
	Title       *string                `yaml:"title"`
	Description *string                `yaml:"description"`
	InfoTop     *string                `yaml:"infoTop"`
	InfoBottom  *string                `yaml:"infoBottom"`
	Steps       map[string]string      `yaml:"steps"`
	Fields      map[string]fieldPreset `yaml:"fields"`
}

type fieldPreset struct {
	Label       *string           `yaml:"label"`
	Placeholder *string           `yaml:"placeholder"`
	HelpText    *string           `yaml:"helpText"`
	Required    *bool             `yaml:"required"`
	Options     map[string]string `yaml:"options"`
}

// NewPresetTransformer parses a preset document. JSON is accepted as YAML.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("preset transformer: document is empty")
	}
	var p preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("preset transformer: parse document: %w", err)
	}
	return &PresetTransformer{preset: p}, nil
}

// LoadPresetTransformer reads a preset file.
func LoadPresetTransformer(path string) (*PresetTransformer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: %w", err)
	}
	return NewPresetTransformer(data)
}

// Transform applies the overrides. Steps are matched by id and fields by
// name; unknown keys are errors so typos do not go unnoticed.
func (t *PresetTransformer) Transform(_ context.Context, doc *model.Document) error {
	p := t.preset
	setString(&doc.Title, p.Title)
	setString(&doc.Description, p.Description)
	setString(&doc.InfoTop, p.InfoTop)
	setString(&doc.InfoBottom, p.InfoBottom)

	seenSteps := make(map[string]bool, len(p.Steps))
	seenFields := make(map[string]bool, len(p.Fields))
	for i := range doc.Steps {
		step := &doc.Steps[i]
		if title, ok := p.Steps[step.ID]; ok {
			step.Title = title
			seenSteps[step.ID] = true
		}
		for j := range step.Fields {
			f := &step.Fields[j]
			fp, ok := p.Fields[f.Name]
			if !ok {
				continue
			}
			seenFields[f.Name] = true
			setString(&f.Label, fp.Label)
			setString(&f.Placeholder, fp.Placeholder)
			setString(&f.HelpText, fp.HelpText)
			if fp.Required != nil {
				f.Required = *fp.Required
			}
			for k := range f.Options {
				if label, ok := fp.Options[f.Options[k].Value]; ok {
					f.Options[k].Label = label
				}
			}
		}
	}

	var unknown []string
	for id := range p.Steps {
		if !seenSteps[id] {
			unknown = append(unknown, "step "+id)
		}
	}
	for name := range p.Fields {
		if !seenFields[name] {
			unknown = append(unknown, "field "+name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("preset transformer: unknown %s", strings.Join(unknown, ", "))
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
