package navigation_test

import (
	"testing"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/navigation"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
)

func withCover() model.Document {
	doc := testsupport.SampleDocument()
	doc.Background = model.Background{URL: "https://example.com/cover.jpg", Mode: model.BackgroundCover, Tint: model.TintDark}
	return doc
}

func TestGotoClamps(t *testing.T) {
	doc := testsupport.SampleDocument()
	nav := navigation.New(&doc)

	cases := map[int]int{-5: 0, -1: 0, 0: 0, 1: 1, 9: 1}
	for in, want := range cases {
		if got := nav.Goto(in); got != want {
			t.Errorf("Goto(%d) = %d, want %d", in, got, want)
		}
	}

	covered := withCover()
	nav = navigation.New(&covered)
	if got := nav.Goto(-5); got != navigation.CoverIndex {
		t.Fatalf("Goto(-5) with cover = %d", got)
	}
}

func TestSimpleDocumentOnlyExposesFirstStep(t *testing.T) {
	doc := testsupport.SampleDocument()
	doc.Kind = model.KindSimple
	nav := navigation.New(&doc)
	if got := nav.Goto(1); got != 0 {
		t.Fatalf("Goto(1) on simple = %d", got)
	}
}

func TestNextFromCoverIsUnconditional(t *testing.T) {
	doc := withCover()
	nav := navigation.New(&doc, navigation.WithStart(navigation.CoverIndex))
	if !nav.AtCover() {
		t.Fatalf("expected to start on the cover")
	}
	out := nav.Next(nil)
	if !out.Moved || out.To != 0 || !out.Result.Valid {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestNextBlocksOnInvalidStep(t *testing.T) {
	doc := testsupport.SampleDocument()
	nav := navigation.New(&doc)

	out := nav.Next(map[string]any{"full-name": "Ada Lovelace", "email": "nope"})
	if out.Moved || nav.Current() != 0 {
		t.Fatalf("moved past an invalid step: %+v", out)
	}
	if out.Focus != "email" || nav.Focus() != "email" {
		t.Fatalf("focus = %q", out.Focus)
	}
	if _, ok := out.Result.Errors["arrival-date"]; ok {
		t.Fatalf("validated fields outside the active step")
	}
}

func TestNextFocusesFirstInvalidInFieldOrder(t *testing.T) {
	doc := testsupport.SampleDocument()
	nav := navigation.New(&doc)
	out := nav.Next(map[string]any{"phone": "123"})
	if out.Focus != "full-name" {
		t.Fatalf("focus = %q, want full-name", out.Focus)
	}
}

func TestNextAdvancesAndSubmits(t *testing.T) {
	doc := testsupport.SampleDocument()
	nav := navigation.New(&doc)
	values := map[string]any{
		"full-name":    "Ada Lovelace",
		"email":        "ada@example.com",
		"arrival-date": "2025-05-01",
		"shirt-size":   "m",
		"topics":       []string{"go"},
	}

	out := nav.Next(values)
	if !out.Moved || out.To != 1 || out.Submit {
		t.Fatalf("first next = %+v", out)
	}
	out = nav.Next(values)
	if out.Moved || !out.Submit || nav.Current() != 1 {
		t.Fatalf("last next = %+v", out)
	}
}

func TestBack(t *testing.T) {
	doc := withCover()
	nav := navigation.New(&doc, navigation.WithStart(1))

	if got := nav.Back(); got != 0 {
		t.Fatalf("Back from 1 = %d", got)
	}
	if got := nav.Back(); got != navigation.CoverIndex {
		t.Fatalf("Back from 0 with cover = %d", got)
	}
	if got := nav.Back(); got != navigation.CoverIndex {
		t.Fatalf("Back from cover = %d", got)
	}

	plain := testsupport.SampleDocument()
	nav = navigation.New(&plain)
	if got := nav.Back(); got != 0 {
		t.Fatalf("Back from 0 without cover = %d", got)
	}
}

func TestDisablingCoverLeavesCoverPosition(t *testing.T) {
	doc := withCover()
	nav := navigation.New(&doc, navigation.WithStart(navigation.CoverIndex))
	nav.SetCoverEnabled(false)
	if nav.Current() != 0 {
		t.Fatalf("current = %d, want 0", nav.Current())
	}

	nav.FollowBackground()
	if !nav.CoverEnabled() {
		t.Fatalf("cover should follow the background again")
	}
	doc.Background.URL = ""
	nav.Sync()
	if nav.CoverEnabled() || nav.Floor() != 0 {
		t.Fatalf("cover still enabled without a background")
	}
}

func TestAddStepMovesCursor(t *testing.T) {
	doc := model.NewDocument()
	nav := navigation.New(&doc)

	step := nav.AddStep()
	if doc.Kind != model.KindMultiStep || len(doc.Steps) != 2 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if nav.Current() != 1 || nav.Step().ID != step.ID || step.Title != "Step 2" {
		t.Fatalf("cursor = %d step = %+v", nav.Current(), step)
	}
}

func TestSyncAfterRemoval(t *testing.T) {
	doc := testsupport.SampleDocument()
	nav := navigation.New(&doc, navigation.WithStart(1))
	doc.Steps = doc.Steps[:1]
	nav.Sync()
	if nav.Current() != 0 {
		t.Fatalf("current = %d after removal", nav.Current())
	}
}

func TestQuestionNumbersRunAcrossSteps(t *testing.T) {
	doc := testsupport.SampleDocument()
	nav := navigation.New(&doc, navigation.WithStart(1))
	if got := nav.QuestionNumber(0); got != 4 {
		t.Fatalf("QuestionNumber(0) on step 1 = %d, want 4", got)
	}
	nav.Goto(0)
	if got := nav.QuestionNumber(2); got != 3 {
		t.Fatalf("QuestionNumber(2) on step 0 = %d, want 3", got)
	}
}

func TestNextWalksFromCoverToLastStep(t *testing.T) {
	doc := model.Document{
		Title:      "Three steps",
		Kind:       model.KindMultiStep,
		Background: model.Background{URL: "https://example.com/cover.jpg", Mode: model.BackgroundCover},
	}
	for _, id := range []string{"a", "b", "c"} {
		doc.Steps = append(doc.Steps, model.Step{
			ID:    "step-" + id,
			Title: id,
			Fields: []model.Field{
				{ID: id + "-1", Type: model.FieldText, Label: "First", Name: id + "-first"},
				{ID: id + "-2", Type: model.FieldText, Label: "Second", Name: id + "-second"},
			},
		})
	}
	nav := navigation.New(&doc, navigation.WithCover(true), navigation.WithStart(navigation.CoverIndex))
	if !nav.AtCover() {
		t.Fatalf("start = %d, want cover", nav.Current())
	}

	want := []int{0, 1, 2}
	for i, to := range want {
		out := nav.Next(map[string]any{})
		if !out.Moved || out.To != to || out.Submit {
			t.Fatalf("next #%d = %+v, want move to %d", i+1, out, to)
		}
	}
	if nav.Current() != 2 || !nav.AtLast() {
		t.Fatalf("current = %d, want 2", nav.Current())
	}
	if out := nav.Next(map[string]any{}); out.Moved || !out.Submit {
		t.Fatalf("next on last step = %+v", out)
	}
}
