package pongo_test

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/goliatone/go-formbuilder/pkg/render/template/pongo"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
)

//go:embed testdata/templates/*.tmpl
var embeddedTemplates embed.FS

func TestEngine_RenderTemplate(t *testing.T) {
	engine := newEngine(t)

	var written strings.Builder
	result, err := engine.RenderTemplate("hello", map[string]any{"name": " Ada "}, &written)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "Hello, Ada!\n"
	if result != want {
		t.Fatalf("render template mismatch result\nwant: %q\n got: %q", want, result)
	}
	if written.String() != want {
		t.Fatalf("render template mismatch writer\nwant: %q\n got: %q", want, written.String())
	}
}

func TestEngine_StructData(t *testing.T) {
	engine := newEngine(t)

	result, err := engine.RenderTemplate("steps.tmpl", testsupport.SampleDocument())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := "1. Contact\n2. Details\n"; result != want {
		t.Fatalf("struct data mismatch\nwant: %q\n got: %q", want, result)
	}

	type counts struct {
		Steps  int     `json:"steps"`
		Ratio  float64 `json:"ratio"`
		Nested []any   `json:"nested"`
	}
	result, err = engine.RenderString("{{ steps }} {{ ratio }} {{ nested.0.n }}", counts{Steps: 3, Ratio: 0.5, Nested: []any{map[string]int{"n": 7}}})
	if err != nil {
		t.Fatalf("render numbers: %v", err)
	}
	if want := "3 0.500000 7"; result != want {
		t.Fatalf("numbers mismatch\nwant: %q\n got: %q", want, result)
	}
}

func TestEngine_GlobalContext(t *testing.T) {
	engine := newEngine(t)
	if err := engine.GlobalContext(map[string]any{
		"settings": map[string]any{"env": "staging"},
	}); err != nil {
		t.Fatalf("global context: %v", err)
	}

	result, err := engine.RenderTemplate("use-global", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "staging\n" {
		t.Fatalf("global context mismatch: %q", result)
	}
}

func TestEngine_RegisterFilter(t *testing.T) {
	engine := newEngine(t)
	err := engine.RegisterFilter("shout", func(input any, _ any) (any, error) {
		if input == nil {
			return "", nil
		}
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := engine.RegisterFilter("shout", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate filter registration to fail")
	}

	result, err := engine.RenderTemplate("use-filter", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "ADA!\n" {
		t.Fatalf("filter mismatch: %q", result)
	}
}

func TestEngine_RenderString(t *testing.T) {
	engine := newEngine(t)

	result, err := engine.Render("{{ a }}-{{ b }}", map[string]any{"a": "x", "b": 2})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if result != "x-2" {
		t.Fatalf("render string mismatch: %q", result)
	}
	if _, err := engine.RenderTemplate("missing", nil); err == nil {
		t.Fatalf("expected missing template error")
	}
}

func TestNewRequiresSource(t *testing.T) {
	if _, err := pongo.New(); err == nil {
		t.Fatalf("expected error without base dir or fs")
	}
}

func newEngine(t *testing.T) *pongo.Engine {
	t.Helper()

	templatesFS, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	engine, err := pongo.New(pongo.WithFS(templatesFS))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}
