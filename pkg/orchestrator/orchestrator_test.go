package orchestrator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/kv/memory"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/renderers/markdown"
	"github.com/goliatone/go-formbuilder/pkg/renderers/vanilla"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
	"github.com/goliatone/go-formbuilder/pkg/themes"
)

func newOrchestrator(t *testing.T, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()
	html, err := vanilla.New()
	if err != nil {
		t.Fatalf("vanilla: %v", err)
	}
	md, err := markdown.New()
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	registry := render.NewRegistry()
	for _, r := range []render.Renderer{html, md} {
		if err := registry.Register(r); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	catalog, err := themes.NewCatalog()
	if err != nil {
		t.Fatalf("themes: %v", err)
	}
	base := []orchestrator.Option{orchestrator.WithRegistry(registry), orchestrator.WithThemes(catalog)}
	return orchestrator.New(append(base, opts...)...)
}

func seed(t *testing.T, theme string) (*store.Store, string) {
	t.Helper()
	st := store.New(memory.New())
	id, err := st.Upsert(testsupport.Context(), testsupport.SampleDocument(), store.UpsertOptions{Theme: theme})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return st, id
}

func TestGenerateUsesStoredTheme(t *testing.T) {
	st, id := seed(t, "sunset")
	o := newOrchestrator(t)

	out, err := o.Generate(testsupport.Context(), st, orchestrator.Request{ID: id, RenderOptions: render.DefaultOptions()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Renderer != "vanilla" || !strings.HasPrefix(out.ContentType, "text/html") {
		t.Fatalf("output = %s %s", out.Renderer, out.ContentType)
	}
	if !strings.Contains(string(out.Body), `data-theme="sunset"`) {
		t.Fatalf("stored theme not applied:\n%s", out.Body)
	}
	if out.Result != nil {
		t.Fatalf("no validation requested, got %+v", out.Result)
	}

	out, err = o.Generate(testsupport.Context(), st, orchestrator.Request{ID: id, Theme: "tech", RenderOptions: render.DefaultOptions()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(out.Body), `data-theme="tech"`) {
		t.Fatalf("theme override not applied")
	}
}

func TestGenerateValidatesResponse(t *testing.T) {
	st, id := seed(t, "")
	o := newOrchestrator(t, orchestrator.WithDefaultRenderer("markdown"))

	opts := render.DefaultOptions()
	opts.Step = 0
	out, err := o.Generate(testsupport.Context(), st, orchestrator.Request{
		ID:            id,
		Values:        map[string]any{"full-name": "Al"},
		Validate:      true,
		Locale:        "es",
		RenderOptions: opts,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Result == nil || out.Result.Valid {
		t.Fatalf("expected an invalid result, got %+v", out.Result)
	}
	if diff := cmp.Diff([]string{"full-name", "email"}, out.Result.Invalid); diff != "" {
		t.Fatalf("only step 0 fields are validated (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(out.Body), "Error: ") || !strings.Contains(string(out.Body), "Answer: Al") {
		t.Fatalf("errors and values should be rendered:\n%s", out.Body)
	}
}

func TestGenerateErrors(t *testing.T) {
	st, id := seed(t, "")
	o := newOrchestrator(t)
	ctx := testsupport.Context()

	if _, err := o.Generate(ctx, st, orchestrator.Request{ID: "missing"}); !errors.Is(err, orchestrator.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := o.Generate(ctx, st, orchestrator.Request{ID: id, Renderer: "pdf"}); !errors.Is(err, render.ErrUnknownRenderer) {
		t.Fatalf("expected ErrUnknownRenderer, got %v", err)
	}
	if _, err := o.Generate(ctx, st, orchestrator.Request{ID: id, Theme: "neon"}); !errors.Is(err, themes.ErrUnknownTheme) {
		t.Fatalf("expected ErrUnknownTheme, got %v", err)
	}
	if _, err := o.Generate(ctx, nil, orchestrator.Request{ID: id}); err == nil {
		t.Fatalf("expected error without source or document")
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := o.Generate(canceled, st, orchestrator.Request{ID: id}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := orchestrator.New().Generate(ctx, st, orchestrator.Request{ID: id}); err == nil {
		t.Fatalf("expected error without registry")
	}
}

func TestGenerateTransformsACopy(t *testing.T) {
	st, id := seed(t, "")
	o := newOrchestrator(t, orchestrator.WithTransformers(orchestrator.OneFieldPerStep()))

	upper := orchestrator.TransformerFunc(func(_ context.Context, doc *model.Document) error {
		doc.Title = strings.ToUpper(doc.Title)
		return nil
	})
	opts := render.DefaultOptions()
	out, err := o.Generate(testsupport.Context(), st, orchestrator.Request{
		ID:            id,
		Renderer:      "markdown",
		Transformers:  []orchestrator.Transformer{upper},
		RenderOptions: opts,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	body := string(out.Body)
	if !strings.Contains(body, "# EVENT REGISTRATION") || !strings.Contains(body, "## 7/7 ") {
		t.Fatalf("transformers not applied:\n%s", body)
	}

	stored, _ := st.Get(testsupport.Context(), id)
	if stored.Title != "Event registration" || len(stored.Steps) != 2 {
		t.Fatalf("stored document must not change: %q with %d steps", stored.Title, len(stored.Steps))
	}

	failing := orchestrator.TransformerFunc(func(context.Context, *model.Document) error { return errors.New("boom") })
	if _, err := o.Generate(testsupport.Context(), st, orchestrator.Request{ID: id, Transformers: []orchestrator.Transformer{failing}}); err == nil {
		t.Fatalf("expected transformer error")
	}
}

func TestGenerateWithDocument(t *testing.T) {
	o := newOrchestrator(t)
	doc := testsupport.SampleDocument()
	out, err := o.Generate(testsupport.Context(), nil, orchestrator.Request{Document: &doc, Theme: "aurora", RenderOptions: render.DefaultOptions()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(out.Body), `data-theme="aurora"`) {
		t.Fatalf("theme not applied")
	}
}
