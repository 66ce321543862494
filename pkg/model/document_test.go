package model_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Full Name":          "full-name",
		"  Email address  ":  "email-address",
		"Phone (mobile)":     "phone-mobile",
		"Correo electrónico": "correo-electr-nico",
		"***":                "",
		"Already-kebab-case": "already-kebab-case",
	}
	for input, want := range cases {
		if got := model.Slugify(input); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFieldNameFallsBackToID(t *testing.T) {
	name := model.FieldName("!!!")
	if name == "" {
		t.Fatalf("expected generated fallback name")
	}
	if got := model.FieldName("Shirt size"); got != "shirt-size" {
		t.Fatalf("FieldName = %q", got)
	}
}

func TestUniqueName(t *testing.T) {
	taken := map[string]struct{}{"email": {}, "email-2": {}}
	if got := model.UniqueName("email", taken); got != "email-3" {
		t.Fatalf("UniqueName = %q, want email-3", got)
	}
	if got := model.UniqueName("phone", taken); got != "phone" {
		t.Fatalf("UniqueName = %q, want phone", got)
	}
}

func TestNewDocumentIsWellFormed(t *testing.T) {
	doc := model.NewDocument()
	if err := doc.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}
	if doc.Kind != model.KindSimple || len(doc.Steps) != 1 {
		t.Fatalf("unexpected shape: %+v", doc)
	}
	if doc.Steps[0].Title != "Step 1" {
		t.Fatalf("step title = %q", doc.Steps[0].Title)
	}
}

func TestCounts(t *testing.T) {
	doc := testsupport.SampleDocument()
	if doc.StepCount() != 2 || doc.FieldCount() != 7 {
		t.Fatalf("counts = %d/%d", doc.StepCount(), doc.FieldCount())
	}
	if got := doc.FieldsBefore(1); got != 3 {
		t.Fatalf("FieldsBefore(1) = %d, want 3", got)
	}
	if got := doc.FieldsBefore(0); got != 0 {
		t.Fatalf("FieldsBefore(0) = %d, want 0", got)
	}
	if doc.LastIndex() != 1 {
		t.Fatalf("LastIndex = %d", doc.LastIndex())
	}

	doc.Kind = model.KindSimple
	if doc.LastIndex() != 0 {
		t.Fatalf("simple LastIndex = %d", doc.LastIndex())
	}
	if len(doc.Fields()) != 3 {
		t.Fatalf("simple forms only expose the first step, got %d fields", len(doc.Fields()))
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := testsupport.SampleDocument()
	clone := doc.Clone()
	if diff := cmp.Diff(doc, clone); diff != "" {
		t.Fatalf("clone mismatch (-want +got):\n%s", diff)
	}

	*clone.Steps[0].Fields[0].Validations.MinLength = 99
	clone.Steps[1].Fields[1].Options[0].Label = "changed"
	clone.Steps[0].Title = "changed"

	if *doc.Steps[0].Fields[0].Validations.MinLength != 3 {
		t.Fatalf("validations shared with clone")
	}
	if doc.Steps[1].Fields[1].Options[0].Label != "S" {
		t.Fatalf("options shared with clone")
	}
	if doc.Steps[0].Title != "Contact" {
		t.Fatalf("steps shared with clone")
	}
}

func TestNormalizeCollapsesSimpleDocuments(t *testing.T) {
	doc := model.Document{
		Kind: model.KindSimple,
		Steps: []model.Step{
			{ID: "a", Fields: []model.Field{{Type: model.FieldText, Label: "Email"}}},
			{ID: "b", Fields: []model.Field{{Type: model.FieldText, Label: "Email"}}},
		},
	}
	doc.Normalize()

	if len(doc.Steps) != 1 {
		t.Fatalf("expected one step, got %d", len(doc.Steps))
	}
	fields := doc.Steps[0].Fields
	if len(fields) != 2 || fields[0].Name != "email" || fields[1].Name != "email-2" {
		t.Fatalf("unexpected fields after collapse: %+v", fields)
	}
	if err := doc.Check(); err != nil {
		t.Fatalf("normalized document still invalid: %v", err)
	}
}

func TestNormalizeDropsForeignProperties(t *testing.T) {
	doc := model.Document{
		Kind: "bogus",
		Steps: []model.Step{{Fields: []model.Field{
			{Type: model.FieldText, Label: "Name", Options: []model.SelectOption{{Label: "x", Value: "x"}}, Multiple: true},
			{Type: model.FieldSelect, Label: "Pick", Validations: &model.Validations{MinLength: model.IntPtr(1)},
				Options: []model.SelectOption{{Label: "A", Value: "a"}}},
			{Type: model.FieldText, Label: "Code", Validations: &model.Validations{Regex: model.RegexPhone, CustomRegex: "x"}},
		}}},
	}
	doc.Normalize()

	if doc.Kind != model.KindSimple {
		t.Fatalf("kind = %q", doc.Kind)
	}
	fields := doc.Steps[0].Fields
	if fields[0].Options != nil || fields[0].Multiple {
		t.Fatalf("text field kept select properties: %+v", fields[0])
	}
	if fields[1].Validations != nil || len(fields[1].Options) != 1 {
		t.Fatalf("select field kept text validations: %+v", fields[1])
	}
	if fields[2].Validations.CustomRegex != "" {
		t.Fatalf("custom pattern kept for predefined regex")
	}
	for _, f := range fields {
		if f.ID == "" {
			t.Fatalf("field id not minted")
		}
	}
}

func TestNormalizeKeepsExistingNames(t *testing.T) {
	doc := model.Document{Kind: model.KindSimple, Steps: []model.Step{{Fields: []model.Field{
		{Type: model.FieldText, Label: "Renamed label", Name: "original"},
	}}}}
	doc.Normalize()
	if got := doc.Steps[0].Fields[0].Name; got != "original" {
		t.Fatalf("name rewritten to %q", got)
	}
}

func TestCheckReportsViolations(t *testing.T) {
	doc := model.Document{
		Kind: model.KindSimple,
		Steps: []model.Step{
			{Fields: []model.Field{
				{ID: "1", Type: model.FieldText, Name: "a"},
				{ID: "2", Type: model.FieldText, Name: "a"},
				{ID: "3", Type: model.FieldSelect, Name: "b", Options: []model.SelectOption{{Value: "x"}, {Value: "x"}}},
			}},
			{},
		},
	}
	err := doc.Check()
	for _, want := range []error{model.ErrStepCount, model.ErrDuplicateName, model.ErrDuplicateOption} {
		if !errors.Is(err, want) {
			t.Errorf("expected %v in %v", want, err)
		}
	}

	if err := (model.Document{Kind: model.KindMultiStep}).Check(); !errors.Is(err, model.ErrNoSteps) {
		t.Fatalf("expected ErrNoSteps, got %v", err)
	}
}

func TestWarnings(t *testing.T) {
	doc := model.Document{
		Kind: model.KindMultiStep,
		Steps: []model.Step{
			{Fields: []model.Field{{ID: "1", Type: model.FieldText, Name: "email"}}},
			{Fields: []model.Field{
				{ID: "2", Type: model.FieldText, Name: "email"},
				{ID: "3", Type: model.FieldSelect, Name: "pick", Multiple: true,
					MinSelected: model.IntPtr(3), MaxSelected: model.IntPtr(1)},
			}},
		},
	}
	var codes []string
	for _, w := range doc.Warnings() {
		codes = append(codes, w.Code)
	}
	want := []string{model.WarnDuplicateAcrossStep, model.WarnEmptyOptions, model.WarnSelectionBounds}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestOneFieldPerStep(t *testing.T) {
	doc := testsupport.SampleDocument()
	doc.Kind = model.KindSimple
	out := doc.OneFieldPerStep()

	if out.Kind != model.KindMultiStep {
		t.Fatalf("kind = %q", out.Kind)
	}
	if len(out.Steps) != 7 {
		t.Fatalf("steps = %d, want 7", len(out.Steps))
	}
	if out.Steps[0].ID != "step-1" || out.Steps[0].Title != "Full name" {
		t.Fatalf("first step = %+v", out.Steps[0])
	}
	if out.Steps[6].Fields[0].Name != "notes" {
		t.Fatalf("order not preserved: %+v", out.Steps[6])
	}

	empty := model.Document{Kind: model.KindSimple, Steps: []model.Step{{}}}.OneFieldPerStep()
	if len(empty.Steps) != 1 || len(empty.Steps[0].Fields) != 0 || empty.Steps[0].Title != "Step 1" {
		t.Fatalf("empty document = %+v", empty.Steps)
	}
}

func TestDocumentPatchApply(t *testing.T) {
	doc := testsupport.SampleDocument()
	title := "Renamed"
	bg := model.Background{URL: "https://example.com/a.jpg", Mode: model.BackgroundCover, Tint: model.TintDark}

	out := model.DocumentPatch{Title: &title, Background: &bg}.Apply(doc)

	if out.Title != "Renamed" || out.Background != bg {
		t.Fatalf("patch not applied: %+v", out)
	}
	if out.Description != doc.Description || len(out.Steps) != len(doc.Steps) {
		t.Fatalf("untouched members changed")
	}
	if doc.Title != "Event registration" {
		t.Fatalf("input mutated")
	}
}

func TestFieldPatchKeepsName(t *testing.T) {
	field := model.Field{ID: "f", Type: model.FieldText, Label: "Email", Name: "email"}
	label := "Work email"
	kind := model.FieldSelect
	out := model.FieldPatch{Label: &label, Type: &kind, Options: []model.SelectOption{{Label: "a", Value: "a"}}}.Apply(field)

	if out.Name != "email" {
		t.Fatalf("name changed to %q", out.Name)
	}
	if out.Label != "Work email" || out.Type != model.FieldSelect || len(out.Options) != 1 {
		t.Fatalf("patch not applied: %+v", out)
	}
}
