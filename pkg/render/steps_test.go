package render_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
)

func TestSelectSteps(t *testing.T) {
	doc := testsupport.SampleDocument()

	first, steps, err := render.SelectSteps(doc, render.AllSteps)
	if err != nil || first != 0 || len(steps) != 2 {
		t.Fatalf("all steps: first=%d len=%d err=%v", first, len(steps), err)
	}

	first, steps, err = render.SelectSteps(doc, 1)
	if err != nil || first != 1 || len(steps) != 1 || steps[0].ID != "step-details" {
		t.Fatalf("step 1: first=%d steps=%v err=%v", first, steps, err)
	}

	if _, _, err := render.SelectSteps(doc, 2); !errors.Is(err, render.ErrStepRange) {
		t.Fatalf("expected ErrStepRange, got %v", err)
	}

	doc.Kind = model.KindSimple
	if _, _, err := render.SelectSteps(doc, 1); !errors.Is(err, render.ErrStepRange) {
		t.Fatalf("simple forms expose only the first step, got %v", err)
	}
}

func TestValueFormatting(t *testing.T) {
	if got := render.ValueText([]any{"go", "zig"}); got != "go, zig" {
		t.Fatalf("ValueText = %q", got)
	}
	if got := render.ValueText(nil); got != "" {
		t.Fatalf("ValueText(nil) = %q", got)
	}
	if diff := cmp.Diff([]string{"go", "3"}, render.ValueList([]any{"go", nil, 3})); diff != "" {
		t.Fatalf("ValueList (-want +got):\n%s", diff)
	}
	if render.ValueList("") != nil {
		t.Fatalf("empty string should have no values")
	}
}
