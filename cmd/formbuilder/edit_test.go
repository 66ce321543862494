package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/autosave"
	"github.com/goliatone/go-formbuilder/pkg/builder"
	"github.com/goliatone/go-formbuilder/pkg/kv/memory"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
)

func TestParseOptions(t *testing.T) {
	got := parseOptions("Small\n\n Extra large = xl \nMedium=m\n")
	want := []model.SelectOption{
		{Label: "Small", Value: "small"},
		{Label: "Extra large", Value: "xl"},
		{Label: "Medium", Value: "m"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options (-want +got):\n%s", diff)
	}
	if back := parseOptions(optionsText(got)); !cmp.Equal(want, back) {
		t.Fatalf("options did not survive a round trip: %v", back)
	}
}

func TestPatchFromKeepsBounds(t *testing.T) {
	field := model.Field{
		ID: "f1", Name: "topics", Type: model.FieldSelect, Label: "Topics", Multiple: true,
		MinSelected: model.IntPtr(1), MaxSelected: model.IntPtr(2),
		Options: []model.SelectOption{{Label: "Go", Value: "go"}},
	}
	got := patchFrom(field).Apply(model.Field{ID: "f1", Name: "topics", Type: model.FieldText, Label: "Old"})
	got.ID, got.Name = field.ID, field.Name
	if diff := cmp.Diff(field, got); diff != "" {
		t.Fatalf("field (-want +got):\n%s", diff)
	}
}

func TestOptionalInt(t *testing.T) {
	for _, ok := range []string{"", " ", "0", "12"} {
		if err := optionalInt(ok); err != nil {
			t.Fatalf("optionalInt(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"x", "-1", "1.5"} {
		if err := optionalInt(bad); err == nil {
			t.Fatalf("optionalInt(%q) accepted", bad)
		}
	}
	if parseIntText(" 7 ") == nil || *parseIntText("7") != 7 || parseIntText("") != nil {
		t.Fatalf("parseIntText mismatch")
	}
}

func TestEditorAdoptsMintedID(t *testing.T) {
	st := store.New(memory.New())
	sched := autosave.NewManualScheduler()
	session := builder.New()
	ed := &editor{session: session, saver: autosave.New(st, autosave.WithScheduler(sched))}
	session.Subscribe(ed.saver.Observe)

	if err := session.UpdateForm(model.DocumentPatch{Title: model.StringPtr("Draft")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := ed.adoptID(); got != "" || session.ID() != "" {
		t.Fatalf("id before the first save = %q / %q", got, session.ID())
	}

	sched.Advance(autosave.DefaultDelay)
	if session.ID() != "" {
		t.Fatalf("session id changed outside the editor loop")
	}
	id := ed.adoptID()
	if id == "" || session.ID() != id {
		t.Fatalf("adopted %q, session has %q", id, session.ID())
	}
	if _, ok := st.Get(testsupport.Context(), id); !ok {
		t.Fatalf("form %q not stored", id)
	}
}
