// Package vanilla renders form documents as plain HTML with pongo2
// templates. Theme partials may replace the cover and field components.
package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/render"
	rendertemplate "github.com/goliatone/go-formbuilder/pkg/render/template"
	"github.com/goliatone/go-formbuilder/pkg/render/template/pongo"
	"github.com/goliatone/go-formbuilder/pkg/themes"
)

const (
	formTemplate = "templates/form.tmpl"

	// PartialCover and PartialField are the theme partial keys this renderer
	// resolves through theme.RendererConfig.Partials.
	PartialCover = "forms.cover"
	PartialField = "forms.field"
)

var defaultPartials = map[string]string{
	PartialCover: "templates/components/cover.tmpl",
	PartialField: "templates/components/field.tmpl",
}

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	stylesheet       string
	inlineStyles     bool
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithStylesheet links an extra stylesheet after the theme's own.
func WithStylesheet(url string) Option {
	return func(cfg *config) {
		cfg.stylesheet = strings.TrimSpace(url)
	}
}

// WithDefaultStyles inlines the embedded base stylesheet.
func WithDefaultStyles() Option {
	return func(cfg *config) {
		cfg.inlineStyles = true
	}
}

type Renderer struct {
	templates    rendertemplate.TemplateRenderer
	stylesheet   string
	inlineStyles bool
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := pongo.New(pongo.WithFS(cfg.templateFS))
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{
		templates:    renderer,
		stylesheet:   cfg.stylesheet,
		inlineStyles: cfg.inlineStyles,
	}, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

func (r *Renderer) Render(ctx context.Context, doc model.Document, opts render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	first, steps, err := render.SelectSteps(doc, opts.Step)
	if err != nil {
		return nil, err
	}
	partials := partialsFor(opts.Theme)

	number := doc.FieldsBefore(first)
	stepViews := make([]map[string]any, 0, len(steps))
	for i, step := range steps {
		fields := make([]string, 0, len(step.Fields))
		for _, field := range step.Fields {
			number++
			out, err := r.templates.RenderTemplate(partials[PartialField], fieldView(field, number, opts))
			if err != nil {
				return nil, fmt.Errorf("vanilla renderer: render field %q: %w", field.Name, err)
			}
			fields = append(fields, strings.TrimRight(out, "\n"))
		}
		stepViews = append(stepViews, map[string]any{
			"id":     step.ID,
			"title":  step.Title,
			"index":  first + i,
			"number": first + i + 1,
			"fields": strings.Join(fields, "\n"),
		})
	}

	var cover string
	if doc.Background.Enabled() && !opts.NoCover {
		cover, err = r.templates.RenderTemplate(partials[PartialCover], coverView(doc.Background, opts.Theme))
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: render cover: %w", err)
		}
		cover = strings.TrimRight(cover, "\n")
	}

	visible := len(doc.VisibleSteps())
	data := map[string]any{
		"form": map[string]any{
			"title":       doc.Title,
			"description": doc.Description,
			"info_top":    doc.InfoTop,
			"info_bottom": doc.InfoBottom,
			"font_theme":  fontTheme(doc.FontTheme),
		},
		"steps":       stepViews,
		"step_count":  visible,
		"multi_step":  doc.Kind == model.KindMultiStep && visible > 1,
		"cover":       cover,
		"action":      opts.Action,
		"hidden":      hiddenViews(opts.Hidden),
		"form_errors": render.MergeFormErrors(opts.FormErrors),
		"stylesheet":  r.stylesheetFor(opts.Theme),
		"inline_css":  r.inlineCSS(),
		"style":       styleAttr(opts.Theme),
	}
	if opts.Theme != nil {
		data["theme_name"] = opts.Theme.Theme
		data["variant"] = opts.Theme.Variant
	} else {
		data["theme_name"] = themes.DefaultTheme
	}

	result, err := r.templates.RenderTemplate(formTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}

func (r *Renderer) stylesheetFor(cfg *theme.RendererConfig) []string {
	var links []string
	if cfg != nil && cfg.AssetURL != nil {
		if url := cfg.AssetURL("stylesheet"); url != "" {
			links = append(links, url)
		}
	}
	if r.stylesheet != "" {
		links = append(links, r.stylesheet)
	}
	return links
}

func (r *Renderer) inlineCSS() string {
	if !r.inlineStyles {
		return ""
	}
	return Stylesheet()
}

func partialsFor(cfg *theme.RendererConfig) map[string]string {
	out := make(map[string]string, len(defaultPartials))
	for key, path := range defaultPartials {
		out[key] = path
	}
	if cfg == nil {
		return out
	}
	for key := range out {
		if path := strings.TrimSpace(cfg.Partials[key]); path != "" {
			out[key] = path
		}
	}
	return out
}

// styleAttr renders the theme CSS variables as an inline declaration list in
// name order.
func styleAttr(cfg *theme.RendererConfig) string {
	if cfg == nil || len(cfg.CSSVars) == 0 {
		return ""
	}
	names := make([]string, 0, len(cfg.CSSVars))
	for name := range cfg.CSSVars {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+cfg.CSSVars[name])
	}
	return strings.Join(parts, "; ")
}

func coverView(bg model.Background, cfg *theme.RendererConfig) map[string]any {
	mode := bg.Mode
	if mode == "" {
		mode = model.BackgroundCover
	}
	overlay := themes.OverlayAlpha(bg.Tint)
	if cfg != nil {
		if alpha := cfg.Tokens["overlay-alpha"]; alpha != "" {
			overlay = alpha
		}
	}
	return map[string]any{
		"url":     strings.TrimSpace(bg.URL),
		"mode":    string(mode),
		"overlay": overlay,
	}
}

func fieldView(f model.Field, number int, opts render.RenderOptions) map[string]any {
	id := "fb-" + f.Name
	view := map[string]any{
		"id":          id,
		"name":        f.Name,
		"type":        string(f.Type),
		"label":       f.Label,
		"number":      number,
		"placeholder": f.Placeholder,
		"help":        f.HelpText,
		"help_id":     id + "-help",
		"required":    f.Required,
		"errors":      opts.Errors[f.Name],
	}
	value := opts.Values[f.Name]

	if f.Type == model.FieldSelect {
		selected := make(map[string]bool)
		if f.Multiple {
			for _, v := range render.ValueList(value) {
				selected[v] = true
			}
		} else if v := render.ValueText(value); v != "" {
			selected[v] = true
		}

		options := make([]map[string]any, 0, len(f.Options))
		for _, opt := range f.Options {
			options = append(options, map[string]any{
				"label":    opt.Label,
				"value":    opt.Value,
				"selected": selected[opt.Value],
			})
			delete(selected, opt.Value)
		}
		view["options"] = options
		view["multiple"] = f.Multiple
		view["allow_custom"] = f.AllowCustom
		view["min_selected"] = intOrNil(f.MinSelected)
		view["max_selected"] = intOrNil(f.MaxSelected)
		view["custom"] = customValue(selected)
		return view
	}

	view["value"] = render.ValueText(value)
	view["input_type"] = inputType(f)
	if v := f.Validations; v != nil {
		view["min_length"] = intOrNil(v.MinLength)
		view["max_length"] = intOrNil(v.MaxLength)
	}
	return view
}

// customValue joins the selected values that match no option.
func customValue(rest map[string]bool) string {
	if len(rest) == 0 {
		return ""
	}
	values := make([]string, 0, len(rest))
	for v := range rest {
		values = append(values, v)
	}
	sort.Strings(values)
	return strings.Join(values, ", ")
}

func inputType(f model.Field) string {
	if f.Type == model.FieldDate {
		return "date"
	}
	if f.Validations != nil {
		switch f.Validations.Regex {
		case model.RegexEmail:
			return "email"
		case model.RegexPhone:
			return "tel"
		}
	}
	return "text"
}

func hiddenViews(fields []render.HiddenField) []map[string]any {
	sorted := render.SortedHiddenFields(fields)
	out := make([]map[string]any, 0, len(sorted))
	for _, f := range sorted {
		out = append(out, map[string]any{"name": f.Name, "value": f.Value})
	}
	return out
}

func fontTheme(ft model.FontTheme) string {
	if ft == "" {
		return string(model.FontDefault)
	}
	return string(ft)
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
