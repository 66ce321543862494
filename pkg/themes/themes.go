// Package themes is the catalog of form color themes and font pairings. Each
// theme is a go-theme manifest whose variants are the cover tints, so a
// (theme, tint) pair resolves to the tokens and CSS variables a renderer
// needs.
package themes

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// DefaultTheme is used when a form or template names no theme.
const DefaultTheme = "light"

// ErrUnknownTheme is returned for names missing from the catalog.
var ErrUnknownTheme = errors.New("themes: unknown theme")

// Palette is the color set of a theme.
type Palette struct {
	Background string
	Surface    string
	Text       string
	Muted      string
	Accent     string
	Border     string
}

// Fonts is a heading and body typeface pairing.
type Fonts struct {
	Heading string
	Body    string
}

var palettes = map[string]Palette{
	"light":     {Background: "#ffffff", Surface: "#f8fafc", Text: "#0f172a", Muted: "#64748b", Accent: "#2563eb", Border: "#e2e8f0"},
	"ocean":     {Background: "#0b1d33", Surface: "#12304f", Text: "#e6f1ff", Muted: "#8fb3d9", Accent: "#38bdf8", Border: "#1e4a73"},
	"sunset":    {Background: "#fff7ed", Surface: "#ffedd5", Text: "#431407", Muted: "#9a3412", Accent: "#f97316", Border: "#fed7aa"},
	"terminal":  {Background: "#0c0c0c", Surface: "#161616", Text: "#33ff66", Muted: "#1f9e45", Accent: "#33ff66", Border: "#1f3d26"},
	"elegant":   {Background: "#faf8f5", Surface: "#f1ece4", Text: "#2b2118", Muted: "#7a6a58", Accent: "#8b5e34", Border: "#e4dacb"},
	"event":     {Background: "#1e1b4b", Surface: "#312e81", Text: "#eef2ff", Muted: "#a5b4fc", Accent: "#f472b6", Border: "#4338ca"},
	"editorial": {Background: "#fdfdfb", Surface: "#f3f2ee", Text: "#111111", Muted: "#555555", Accent: "#b91c1c", Border: "#dddddd"},
	"tech":      {Background: "#0f172a", Surface: "#1e293b", Text: "#e2e8f0", Muted: "#94a3b8", Accent: "#22d3ee", Border: "#334155"},
	"aurora":    {Background: "#052e2b", Surface: "#0b3f3a", Text: "#ecfeff", Muted: "#99f6e4", Accent: "#a78bfa", Border: "#115e59"},
	"wedding":   {Background: "#fffaf7", Surface: "#fbeee8", Text: "#3f2a2a", Muted: "#9c7b74", Accent: "#c08497", Border: "#f1d9d0"},
	"perfume":   {Background: "#1a1418", Surface: "#2a2026", Text: "#f5e9ef", Muted: "#bfa3b2", Accent: "#d4af37", Border: "#3d2e37"},
}

var fontPairings = map[model.FontTheme]Fonts{
	model.FontDefault:   {Heading: "Inter", Body: "Inter"},
	model.FontTech:      {Heading: "Inter", Body: "Inter"},
	model.FontEvent:     {Heading: "Poppins", Body: "Poppins"},
	model.FontEditorial: {Heading: "Playfair Display", Body: "Playfair Display"},
	model.FontPerfume:   {Heading: "Cormorant Garamond", Body: "Cormorant Garamond"},
	model.FontWedding:   {Heading: "Great Vibes", Body: "Lora"},
	model.FontElegant:   {Heading: "Lora", Body: "Lora"},
}

// overlayAlpha is the opacity of the black layer drawn over the cover.
var overlayAlpha = map[model.Tint]string{
	model.TintNone:   "0",
	model.TintLight:  "0.10",
	model.TintMedium: "0.25",
	model.TintDark:   "0.40",
	model.TintDarker: "0.55",
}

// Names lists the catalog theme names sorted.
func Names() []string {
	out := make([]string, 0, len(palettes))
	for name := range palettes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FontsFor returns the pairing for ft, falling back to the default pairing.
func FontsFor(ft model.FontTheme) Fonts {
	if f, ok := fontPairings[ft]; ok {
		return f
	}
	return fontPairings[model.FontDefault]
}

// OverlayAlpha returns the cover overlay opacity for tint, dark when unset.
func OverlayAlpha(tint model.Tint) string {
	if a, ok := overlayAlpha[tint]; ok {
		return a
	}
	return overlayAlpha[model.TintDark]
}

// Manifest builds the go-theme manifest of a catalog theme.
func Manifest(name string) (*theme.Manifest, error) {
	p, ok := palettes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	variants := make(map[string]theme.Variant, len(model.Tints))
	for _, tint := range model.Tints {
		variants[string(tint)] = theme.Variant{
			Tokens: map[string]string{"overlay-alpha": overlayAlpha[tint]},
		}
	}
	return &theme.Manifest{
		Name:    name,
		Version: "1.0.0",
		Tokens: map[string]string{
			"color-background": p.Background,
			"color-surface":    p.Surface,
			"color-text":       p.Text,
			"color-muted":      p.Muted,
			"color-accent":     p.Accent,
			"color-border":     p.Border,
			"overlay-alpha":    overlayAlpha[model.TintDark],
		},
		Templates: map[string]string{
			"forms.cover": "templates/components/cover.tmpl",
			"forms.field": "templates/components/field.tmpl",
		},
		Assets: theme.Assets{
			Prefix: "/assets/themes/" + name,
			Files: map[string]string{
				"stylesheet": "theme.css",
			},
		},
		Variants: variants,
	}, nil
}

type registry interface {
	theme.ThemeProvider
	Register(*theme.Manifest) error
}

// Catalog holds the manifests and resolves selections into renderer
// configuration.
type Catalog struct {
	registry  registry
	manifests map[string]*theme.Manifest
}

// NewCatalog registers every built-in theme.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{registry: theme.NewRegistry(), manifests: make(map[string]*theme.Manifest, len(palettes))}
	for _, name := range Names() {
		m, err := Manifest(name)
		if err != nil {
			return nil, err
		}
		if err := c.registry.Register(m); err != nil {
			return nil, fmt.Errorf("themes: register %s: %w", name, err)
		}
		c.manifests[name] = m
	}
	return c, nil
}

// Provider exposes the underlying registry for go-theme consumers.
func (c *Catalog) Provider() theme.ThemeProvider {
	return c.registry
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.manifests[name]
	return ok
}

// Select implements theme.ThemeSelector. Empty name and variant default to
// DefaultTheme and the dark tint.
func (c *Catalog) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name == "" {
		name = DefaultTheme
	}
	if variant == "" {
		variant = string(model.TintDark)
	}
	m, ok := c.manifests[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	if _, ok := m.Variants[variant]; !ok {
		return nil, fmt.Errorf("themes: %s has no variant %q", name, variant)
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: m}, nil
}

var _ theme.ThemeSelector = (*Catalog)(nil)

// Resolve merges a theme, a cover tint and a font pairing into renderer
// configuration. Variant tokens override the base tokens; every token is
// also exposed as a CSS custom property.
func (c *Catalog) Resolve(name string, tint model.Tint, ft model.FontTheme) (*theme.RendererConfig, error) {
	sel, err := c.Select(name, string(tint))
	if err != nil {
		return nil, err
	}
	m := sel.Manifest
	variant := m.Variants[sel.Variant]

	tokens := mergeStrings(m.Tokens, variant.Tokens)
	fonts := FontsFor(ft)
	tokens["font-heading"] = fonts.Heading
	tokens["font-body"] = fonts.Body

	cssVars := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cssVars["--"+k] = v
	}

	files := mergeStrings(m.Assets.Files, variant.Assets.Files)
	prefix := strings.TrimRight(m.Assets.Prefix, "/")
	return &theme.RendererConfig{
		Theme:    sel.Theme,
		Variant:  sel.Variant,
		Tokens:   tokens,
		CSSVars:  cssVars,
		Partials: mergeStrings(m.Templates, variant.Templates),
		AssetURL: func(key string) string {
			file, ok := files[key]
			if !ok || file == "" {
				return ""
			}
			return prefix + "/" + file
		},
	}, nil
}

// ForDocument resolves the configuration for a stored form.
func (c *Catalog) ForDocument(name string, doc model.Document) (*theme.RendererConfig, error) {
	tint := doc.Background.Tint
	if tint == "" {
		tint = model.TintDark
	}
	return c.Resolve(name, tint, doc.FontTheme)
}

func mergeStrings(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
