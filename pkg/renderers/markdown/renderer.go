// Package markdown renders form documents as Markdown outlines, one list
// item per question with its constraints and, when given, the answers.
package markdown

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/render/template/pongo"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

const formTemplate = "templates/form.md.tmpl"

// Renderer implements render.Renderer.
type Renderer struct {
	engine *pongo.Engine
}

var _ render.Renderer = (*Renderer)(nil)

// New loads the embedded template.
func New() (*Renderer, error) {
	engine, err := pongo.New(pongo.WithFS(embeddedTemplates))
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: %w", err)
	}
	return &Renderer{engine: engine}, nil
}

func (r *Renderer) Name() string {
	return "markdown"
}

func (r *Renderer) ContentType() string {
	return "text/markdown; charset=utf-8"
}

func (r *Renderer) Render(ctx context.Context, doc model.Document, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	first, steps, err := render.SelectSteps(doc, opts.Step)
	if err != nil {
		return nil, err
	}

	number := doc.FieldsBefore(first)
	stepViews := make([]map[string]any, 0, len(steps))
	for i, step := range steps {
		fields := make([]map[string]any, 0, len(step.Fields))
		for _, f := range step.Fields {
			number++
			fields = append(fields, fieldView(f, number, opts))
		}
		stepViews = append(stepViews, map[string]any{
			"title":  step.Title,
			"number": first + i + 1,
			"fields": fields,
		})
	}

	cover := ""
	if doc.Background.Enabled() && !opts.NoCover {
		cover = strings.TrimSpace(doc.Background.URL)
	}
	visible := len(doc.VisibleSteps())
	out, err := r.engine.RenderTemplate(formTemplate, map[string]any{
		"form": map[string]any{
			"title":       doc.Title,
			"description": doc.Description,
			"info_top":    doc.InfoTop,
			"info_bottom": doc.InfoBottom,
		},
		"cover":      cover,
		"steps":      stepViews,
		"step_count": visible,
		"multi_step": doc.Kind == model.KindMultiStep && visible > 1,
	})
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: %w", err)
	}
	return []byte(out), nil
}

func fieldView(f model.Field, number int, opts render.RenderOptions) map[string]any {
	value := opts.Values[f.Name]
	view := map[string]any{
		"number":   number,
		"label":    f.Label,
		"name":     f.Name,
		"kind":     kindLabel(f),
		"required": f.Required,
		"help":     f.HelpText,
		"rules":    rules(f),
		"errors":   opts.Errors[f.Name],
	}
	if f.Type != model.FieldSelect {
		view["value"] = render.ValueText(value)
		return view
	}

	selected := make(map[string]bool)
	for _, v := range render.ValueList(value) {
		selected[v] = true
	}
	options := make([]map[string]any, 0, len(f.Options))
	for _, opt := range f.Options {
		options = append(options, map[string]any{"label": opt.Label, "value": opt.Value, "selected": selected[opt.Value]})
	}
	view["options"] = options
	return view
}

func kindLabel(f model.Field) string {
	if f.Type == model.FieldSelect && f.Multiple {
		return "multi-select"
	}
	return string(f.Type)
}

func rules(f model.Field) []string {
	var out []string
	if v := f.Validations; v != nil {
		if v.MinLength != nil {
			out = append(out, fmt.Sprintf("at least %d characters", *v.MinLength))
		}
		if v.MaxLength != nil {
			out = append(out, fmt.Sprintf("at most %d characters", *v.MaxLength))
		}
		switch v.Regex {
		case model.RegexNone:
		case model.RegexCustom:
			out = append(out, "matches `"+v.CustomRegex+"`")
		default:
			out = append(out, "format: "+string(v.Regex))
		}
	}
	if f.Type == model.FieldSelect {
		if f.MinSelected != nil {
			out = append(out, fmt.Sprintf("pick at least %d", *f.MinSelected))
		}
		if f.MaxSelected != nil {
			out = append(out, fmt.Sprintf("pick at most %d", *f.MaxSelected))
		}
		if f.AllowCustom {
			out = append(out, "custom answers allowed")
		}
	}
	return out
}
