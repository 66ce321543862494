// Package app assembles the runtime shared by the command line tool and the
// HTTP server from a config.Config: logger, storage medium, form stores,
// validation messages, the theme catalog, the form renderers and the render
// orchestrator.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/goliatone/go-formbuilder/internal/config"
	"github.com/goliatone/go-formbuilder/internal/logging"
	"github.com/goliatone/go-formbuilder/pkg/autosave"
	"github.com/goliatone/go-formbuilder/pkg/builder"
	"github.com/goliatone/go-formbuilder/pkg/kv"
	"github.com/goliatone/go-formbuilder/pkg/kv/file"
	"github.com/goliatone/go-formbuilder/pkg/kv/firestore"
	"github.com/goliatone/go-formbuilder/pkg/kv/memory"
	"github.com/goliatone/go-formbuilder/pkg/kv/postgres"
	"github.com/goliatone/go-formbuilder/pkg/kv/redis"
	"github.com/goliatone/go-formbuilder/pkg/kv/sqlite"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/render/template/pongo"
	"github.com/goliatone/go-formbuilder/pkg/renderers/markdown"
	"github.com/goliatone/go-formbuilder/pkg/renderers/vanilla"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/themes"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

// Option configures New.
type Option func(*options)

type options struct {
	logOutput io.Writer
	logger    *slog.Logger
	medium    kv.Medium
}

// WithLogOutput sets where the built logger writes. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) {
		o.logOutput = w
	}
}

// WithLogger uses logger as is instead of building one from the config.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMedium skips backend selection. The medium is not closed by App.Close.
func WithMedium(m kv.Medium) Option {
	return func(o *options) {
		o.medium = m
	}
}

// App is the assembled runtime.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Medium    kv.Medium
	Messages  *validation.Catalog
	Themes    *themes.Catalog
	Renderers *render.Registry

	// Orchestrator renders stored forms with the app's themes, renderers and
	// validation messages.
	Orchestrator *orchestrator.Orchestrator

	mu     sync.Mutex
	stores map[string]*store.Store
	closer func() error
}

// New validates cfg and opens everything it names.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{logOutput: os.Stderr}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(o.logOutput, cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, err
		}
	}

	messages, err := LoadMessages(cfg.Validation)
	if err != nil {
		return nil, err
	}

	themeCatalog, err := themes.NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("app: themes: %w", err)
	}

	renderers, err := NewRenderers(cfg.Render)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Messages:  messages,
		Themes:    themeCatalog,
		Renderers: renderers,
		stores:    map[string]*store.Store{},
		closer:    func() error { return nil },
	}
	a.Orchestrator = orchestrator.New(
		orchestrator.WithRegistry(renderers),
		orchestrator.WithThemes(themeCatalog),
		orchestrator.WithValidationOptions(a.ValidationOptions()...),
		orchestrator.WithLogger(logger),
	)
	if o.medium != nil {
		a.Medium = o.medium
	} else {
		m, err := OpenMedium(ctx, cfg.Store, logger)
		if err != nil {
			return nil, err
		}
		a.Medium = m
		a.closer = func() error { return kv.Close(m) }
	}
	return a, nil
}

// OpenMedium connects the backend named by cfg.Backend.
func OpenMedium(ctx context.Context, cfg config.Store, logger *slog.Logger) (kv.Medium, error) {
	logger = logging.OrDiscard(logger)
	var (
		m   kv.Medium
		err error
	)
	switch cfg.Backend {
	case config.BackendMemory:
		m = memory.New()
	case config.BackendFile, "":
		m, err = file.New(cfg.Path, file.WithLogger(logger))
	case config.BackendRedis:
		m, err = redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.BackendSQLite:
		m, err = sqlite.Open(ctx, cfg.Path)
	case config.BackendPostgres:
		m, err = postgres.Connect(ctx, cfg.PostgresDSN)
	case config.BackendFirestore:
		m, err = firestore.Open(ctx, cfg.FirestoreProject, cfg.FirestoreCollection)
	default:
		return nil, fmt.Errorf("app: unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("app: open %s store: %w", cfg.Backend, err)
	}
	logger.Debug("store opened", "backend", string(cfg.Backend), "namespace", cfg.Namespace)
	return m, nil
}

// LoadMessages builds the validation catalog, layering the YAML file named by
// cfg.Messages over the built-in messages.
func LoadMessages(cfg config.Validation) (*validation.Catalog, error) {
	if cfg.Messages == "" {
		return validation.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(cfg.Messages)
	if err != nil {
		return nil, fmt.Errorf("app: read messages: %w", err)
	}
	catalog, err := validation.NewCatalog()
	if err != nil {
		return nil, err
	}
	if err := catalog.Load(data); err != nil {
		return nil, fmt.Errorf("app: load messages %s: %w", cfg.Messages, err)
	}
	return catalog, nil
}

// NewRenderers registers the HTML and Markdown renderers. A templates
// directory overrides embedded HTML templates file by file.
func NewRenderers(cfg config.Render) (*render.Registry, error) {
	var opts []vanilla.Option
	if cfg.Templates != "" {
		engine, err := pongo.New(pongo.WithBaseDir(cfg.Templates), pongo.WithFS(vanilla.TemplatesFS()))
		if err != nil {
			return nil, fmt.Errorf("app: templates: %w", err)
		}
		opts = append(opts, vanilla.WithTemplateRenderer(engine))
	}
	if cfg.InlineStyles {
		opts = append(opts, vanilla.WithDefaultStyles())
	}
	html, err := vanilla.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	md, err := markdown.New()
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	registry := render.NewRegistry()
	for _, r := range []render.Renderer{html, md} {
		if err := registry.Register(r); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	return registry, nil
}

// Store returns the form store scoped to namespace, or to the configured
// namespace when it is empty. Stores are cached so writers to one namespace
// share a lock.
func (a *App) Store(namespace string) *store.Store {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = a.Config.Store.Namespace
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.stores[namespace]; ok {
		return st
	}
	st := store.New(a.Medium,
		store.WithNamespace(namespace),
		store.WithLogger(a.Logger.With("namespace", namespace)),
	)
	a.stores[namespace] = st
	return st
}

// ValidationOptions carries the configured locale and messages.
func (a *App) ValidationOptions() []validation.Option {
	return []validation.Option{
		validation.WithTranslator(a.Messages),
		validation.WithLocale(a.Config.Validation.Locale),
		validation.WithLogger(a.Logger),
	}
}

// SessionOptions are the builder options every editing session starts with.
func (a *App) SessionOptions() []builder.Option {
	return []builder.Option{
		builder.WithValidationOptions(a.ValidationOptions()...),
		builder.WithLogger(a.Logger),
	}
}

// Autosave returns a controller writing to st with the configured delay.
func (a *App) Autosave(st *store.Store, opts ...autosave.Option) *autosave.Controller {
	base := []autosave.Option{
		autosave.WithDelay(a.Config.Autosave.Delay),
		autosave.WithLogger(a.Logger),
	}
	return autosave.New(st, append(base, opts...)...)
}

// Close releases the medium when App opened it.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer()
	a.closer = nil
	if err != nil {
		return fmt.Errorf("app: close: %w", err)
	}
	return nil
}
