package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formbuilder/internal/logging"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

const defaultRendererName = "vanilla"

// ErrNotFound is returned when the source has no form under the requested id.
var ErrNotFound = errors.New("orchestrator: form not found")

// Source reads stored forms. *store.Store satisfies it.
type Source interface {
	Get(ctx context.Context, id string) (model.Document, bool)
	GetMeta(ctx context.Context, id string) (model.Meta, bool)
}

// ThemeResolver turns a theme name and document into renderer configuration.
// *themes.Catalog satisfies it.
type ThemeResolver interface {
	ForDocument(name string, doc model.Document) (*theme.RendererConfig, error)
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request names none.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.defaultRenderer = name
		}
	}
}

// WithThemes resolves a theme for every request. Without it renderers get no
// theme configuration.
func WithThemes(resolver ThemeResolver) Option {
	return func(o *Orchestrator) {
		o.themes = resolver
	}
}

// WithTransformers registers transformers applied in order to a copy of the
// document before rendering.
func WithTransformers(transformers ...Transformer) Option {
	return func(o *Orchestrator) {
		o.transformers = append(o.transformers, transformers...)
	}
}

// WithValidationOptions configures how submitted responses are validated.
func WithValidationOptions(opts ...validation.Option) Option {
	return func(o *Orchestrator) {
		o.validation = append(o.validation, opts...)
	}
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates source, themes, validation and renderers.
type Orchestrator struct {
	registry        *render.Registry
	defaultRenderer string
	themes          ThemeResolver
	transformers    []Transformer
	validation      []validation.Option
	logger          *slog.Logger
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          logging.Discard(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	return o
}

// Request describes one render.
type Request struct {
	// ID selects the stored form. Ignored when Document is set.
	ID string
	// Document bypasses the source.
	Document *model.Document
	// Theme overrides the theme stored in the form summary.
	Theme string
	// Renderer names the renderer. Empty uses the default renderer.
	Renderer string
	// Values is a response to prefill. When Validate is set it is checked
	// and the messages are passed to the renderer.
	Values   map[string]any
	Validate bool
	// Locale overrides the validation locale.
	Locale string
	// Transformers run after the configured ones.
	Transformers []Transformer
	// RenderOptions is passed through. Theme, Values and Errors are filled in
	// by the orchestrator.
	RenderOptions render.RenderOptions
}

// Output is a rendered form.
type Output struct {
	Body        []byte
	ContentType string
	Renderer    string
	// Result is set when the request asked for validation.
	Result *validation.Result
}

// Generate loads, transforms, validates and renders a form.
func (o *Orchestrator) Generate(ctx context.Context, src Source, req Request) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return Output{}, err
	}

	doc, themeName, err := o.resolveDocument(ctx, src, req)
	if err != nil {
		return Output{}, err
	}
	for _, t := range append(append([]Transformer{}, o.transformers...), req.Transformers...) {
		if err := t.Transform(ctx, &doc); err != nil {
			return Output{}, fmt.Errorf("orchestrator: transform: %w", err)
		}
	}

	opts := req.RenderOptions
	if o.themes != nil {
		cfg, err := o.themes.ForDocument(themeName, doc)
		if err != nil {
			return Output{}, err
		}
		opts.Theme = cfg
	}
	opts.Values = req.Values

	out := Output{Renderer: renderer.Name(), ContentType: renderer.ContentType()}
	if req.Validate {
		res := o.validate(doc, req, opts.Step)
		out.Result = &res
		opts.Errors = render.ResultErrors(res)
	}

	body, err := renderer.Render(ctx, doc, opts)
	if err != nil {
		return Output{}, fmt.Errorf("orchestrator: render %s: %w", renderer.Name(), err)
	}
	out.Body = body
	o.logger.Debug("form rendered", "id", req.ID, "renderer", renderer.Name(), "bytes", len(body))
	return out, nil
}

func (o *Orchestrator) resolveDocument(ctx context.Context, src Source, req Request) (model.Document, string, error) {
	if req.Document != nil {
		return req.Document.Clone(), req.Theme, nil
	}
	if src == nil {
		return model.Document{}, "", errors.New("orchestrator: source or document is required")
	}
	doc, ok := src.Get(ctx, req.ID)
	if !ok {
		return model.Document{}, "", fmt.Errorf("%w: %q", ErrNotFound, req.ID)
	}
	name := req.Theme
	if name == "" {
		if meta, ok := src.GetMeta(ctx, req.ID); ok {
			name = meta.Theme
		}
	}
	return doc, name, nil
}

// validate checks the response against every visible field, or against the
// fields of the rendered step only.
func (o *Orchestrator) validate(doc model.Document, req Request, step int) validation.Result {
	opts := o.validation
	if req.Locale != "" {
		opts = append(append([]validation.Option{}, opts...), validation.WithLocale(req.Locale))
	}
	v := validation.CompileDocument(doc, opts...)
	values := req.Values
	if values == nil {
		values = map[string]any{}
	}
	if step == render.AllSteps {
		return v.Validate(values)
	}
	fields := doc.StepFields(step)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return v.ValidateFields(values, names)
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}
	target := name
	if target == "" {
		target = o.defaultRenderer
	}
	renderer, err := o.registry.Get(target)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return renderer, nil
}
