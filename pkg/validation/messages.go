package validation

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"gopkg.in/yaml.v3"
)

// Message keys understood by the catalog.
const (
	MsgRequired       = "required"
	MsgMinLength      = "min_length"
	MsgMaxLength      = "max_length"
	MsgPhone          = "phone"
	MsgEmail          = "email"
	MsgCURP           = "curp"
	MsgCustomPattern  = "custom_pattern"
	MsgInvalidDate    = "invalid_date"
	MsgSelectRequired = "select_required"
	MsgMinSelected    = "min_selected"
	MsgMaxSelected    = "max_selected"
	MsgInvalidOptions = "invalid_options"
	MsgInvalidOption  = "invalid_option"
	MsgExpectedText   = "expected_text"
	MsgExpectedList   = "expected_list"
)

// DefaultLocale is used when a requested locale has no catalog entry.
const DefaultLocale = "en"

//go:embed messages.yaml
var defaultMessages []byte

var (
	ErrMissingMessage = errors.New("validation: missing message")

	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
)

// Translator resolves a message key for a locale. Args may carry a single
// map of template parameters.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// Catalog stores per-locale message templates rendered with pongo2, so
// overrides can reference the rule parameters ({{ min }}, {{ max }}).
type Catalog struct {
	mu        sync.RWMutex
	fallback  string
	templates map[string]map[string]*pongo2.Template
}

// CatalogOption configures a Catalog.
type CatalogOption func(*catalogConfig)

type catalogConfig struct {
	fallback  string
	overrides []map[string]map[string]string
	skipBase  bool
}

// WithFallbackLocale sets the locale consulted when a key is missing in the
// requested one.
func WithFallbackLocale(locale string) CatalogOption {
	return func(cfg *catalogConfig) {
		cfg.fallback = locale
	}
}

// WithMessages layers messages for a locale over the built-in ones.
func WithMessages(locale string, messages map[string]string) CatalogOption {
	return func(cfg *catalogConfig) {
		cfg.overrides = append(cfg.overrides, map[string]map[string]string{locale: messages})
	}
}

// WithoutDefaults starts from an empty catalog instead of the built-in
// English and Spanish messages.
func WithoutDefaults() CatalogOption {
	return func(cfg *catalogConfig) {
		cfg.skipBase = true
	}
}

// NewCatalog compiles the built-in messages plus any overrides.
func NewCatalog(opts ...CatalogOption) (*Catalog, error) {
	cfg := catalogConfig{fallback: DefaultLocale}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	c := &Catalog{fallback: cfg.fallback, templates: map[string]map[string]*pongo2.Template{}}
	if !cfg.skipBase {
		base, err := ParseMessages(defaultMessages)
		if err != nil {
			return nil, err
		}
		if err := c.merge(base); err != nil {
			return nil, err
		}
	}
	for _, layer := range cfg.overrides {
		if err := c.merge(layer); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// DefaultCatalog returns the shared catalog holding the built-in messages.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := NewCatalog()
		if err != nil {
			panic(fmt.Sprintf("validation: built-in messages: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// ParseMessages decodes a YAML document mapping locale -> key -> template.
func ParseMessages(data []byte) (map[string]map[string]string, error) {
	var out map[string]map[string]string
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("validation: parse messages: %w", err)
	}
	return out, nil
}

// Load merges a YAML message document into the catalog.
func (c *Catalog) Load(data []byte) error {
	layer, err := ParseMessages(data)
	if err != nil {
		return err
	}
	return c.merge(layer)
}

// Set compiles and stores a single message template.
func (c *Catalog) Set(locale, key, source string) error {
	return c.merge(map[string]map[string]string{locale: {key: source}})
}

func (c *Catalog) merge(layer map[string]map[string]string) error {
	compiled := make(map[string]map[string]*pongo2.Template, len(layer))
	for locale, messages := range layer {
		locale = normalizeLocale(locale)
		compiled[locale] = make(map[string]*pongo2.Template, len(messages))
		for key, source := range messages {
			tpl, err := pongo2.FromString(source)
			if err != nil {
				return fmt.Errorf("validation: message %s.%s: %w", locale, key, err)
			}
			compiled[locale][key] = tpl
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for locale, messages := range compiled {
		if c.templates[locale] == nil {
			c.templates[locale] = map[string]*pongo2.Template{}
		}
		for key, tpl := range messages {
			c.templates[locale][key] = tpl
		}
	}
	return nil
}

// Locales lists the locales that have at least one message.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.templates))
	for locale := range c.templates {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Translate renders key for locale. Lookup tries the exact locale, its base
// language ("es-MX" -> "es") and finally the fallback locale.
func (c *Catalog) Translate(locale, key string, args ...any) (string, error) {
	tpl := c.lookup(locale, key)
	if tpl == nil {
		return "", fmt.Errorf("%w: %s (%s)", ErrMissingMessage, key, locale)
	}
	ctx := pongo2.Context{}
	for _, arg := range args {
		switch params := arg.(type) {
		case map[string]any:
			for k, v := range params {
				ctx[k] = v
			}
		case pongo2.Context:
			ctx.Update(params)
		}
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("validation: render %s: %w", key, err)
	}
	return out, nil
}

func (c *Catalog) lookup(locale, key string) *pongo2.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()

	locale = normalizeLocale(locale)
	candidates := []string{locale}
	if base, _, found := strings.Cut(locale, "-"); found {
		candidates = append(candidates, base)
	}
	candidates = append(candidates, c.fallback)
	for _, candidate := range candidates {
		if tpl, ok := c.templates[candidate][key]; ok {
			return tpl
		}
	}
	return nil
}

func normalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(locale)), "_", "-")
}
