package templates_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/templates"
)

func TestBuiltinCatalogIsValid(t *testing.T) {
	all := templates.All()
	if len(all) == 0 {
		t.Fatalf("no templates embedded")
	}
	for _, tpl := range all {
		if tpl.Name == "" || tpl.Theme == "" {
			t.Fatalf("template %q missing name or theme", tpl.ID)
		}
		if err := tpl.Form.Check(); err != nil {
			t.Fatalf("template %q: %v", tpl.ID, err)
		}
	}
}

func TestAllReturnsCopies(t *testing.T) {
	first := templates.All()
	first[0].Form.Steps[0].Fields[0].Label = "changed"
	second := templates.All()
	if second[0].Form.Steps[0].Fields[0].Label == "changed" {
		t.Fatalf("catalog shared between callers")
	}
}

func TestCoverOptionsDefaultFirstAndDistinct(t *testing.T) {
	opts := templates.CoverOptions()
	if opts[0].URL != templates.DefaultCoverURL {
		t.Fatalf("first cover = %q", opts[0].URL)
	}
	seen := map[string]bool{}
	for _, opt := range opts {
		if seen[opt.URL] {
			t.Fatalf("duplicate cover %q", opt.URL)
		}
		seen[opt.URL] = true
	}
	distinct := map[string]bool{templates.DefaultCoverURL: true}
	for _, tpl := range templates.All() {
		distinct[tpl.CoverURL] = true
	}
	if len(opts) != len(distinct) {
		t.Fatalf("covers = %d, want %d", len(opts), len(distinct))
	}
}

func TestInstantiate(t *testing.T) {
	doc, err := templates.Instantiate("contact-basic")
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if doc.Kind != model.KindMultiStep || len(doc.Steps) != 5 {
		t.Fatalf("kind = %s steps = %d", doc.Kind, len(doc.Steps))
	}
	want := model.Background{
		URL:  "https://images.unsplash.com/photo-1519681393784-d120267933ba?q=80&w=1800&auto=format&fit=crop",
		Mode: model.BackgroundCover,
		Tint: model.TintDark,
	}
	if diff := cmp.Diff(want, doc.Background); diff != "" {
		t.Fatalf("background (-want +got):\n%s", diff)
	}
	if doc.Steps[0].Title != "Full name" || doc.Steps[0].ID != "step-1" {
		t.Fatalf("first step = %+v", doc.Steps[0])
	}

	if _, err := templates.Instantiate("nope"); !errors.Is(err, templates.ErrUnknownTemplate) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	raw := []byte(`
templates:
  - id: a
    form: {title: A, type: simple, steps: [{id: s, title: S, fields: []}]}
  - id: a
    form: {title: B, type: simple, steps: [{id: s, title: S, fields: []}]}
`)
	if _, err := templates.Parse(raw); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
