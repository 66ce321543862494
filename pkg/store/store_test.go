package store_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/kv"
	"github.com/goliatone/go-formbuilder/pkg/kv/file"
	"github.com/goliatone/go-formbuilder/pkg/kv/memory"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T, opts ...store.Option) (*store.Store, *memory.Store, *testsupport.Clock) {
	t.Helper()
	clock := testsupport.NewClock(epoch)
	seq := 0
	medium := memory.New()
	base := []store.Option{
		store.WithClock(clock.Now),
		store.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("form-%d", seq)
		}),
	}
	return store.New(medium, append(base, opts...)...), medium, clock
}

func TestUpsertMintsIDAndRoundTrips(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	doc := testsupport.SampleDocument()

	id, err := s.Upsert(ctx, doc, store.UpsertOptions{})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if id != "form-1" {
		t.Fatalf("id = %q", id)
	}
	got, ok := s.Get(ctx, id)
	if !ok {
		t.Fatalf("document not found")
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertMeta(t *testing.T) {
	s, _, clock := newStore(t)
	ctx := context.Background()
	doc := testsupport.SampleDocument()

	id, _ := s.Upsert(ctx, doc, store.UpsertOptions{Theme: "ocean", CoverURL: "https://example.com/c.jpg"})
	clock.Advance(time.Minute)

	doc.Steps = doc.Steps[:1]
	if _, err := s.Upsert(ctx, doc, store.UpsertOptions{ID: id}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	meta, ok := s.GetMeta(ctx, id)
	if !ok {
		t.Fatalf("meta missing")
	}
	want := model.Meta{
		ID:          id,
		Title:       "Event registration",
		Description: "Tell us about yourself",
		Kind:        model.KindMultiStep,
		Theme:       "ocean",
		CoverURL:    "https://example.com/c.jpg",
		StepsCount:  1,
		FieldsCount: 3,
		CreatedAt:   epoch,
		UpdatedAt:   epoch.Add(time.Minute),
	}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Fatalf("meta mismatch (-want +got):\n%s", diff)
	}
}

func TestGetFillsCoverFromMeta(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	doc := testsupport.SampleDocument()
	id, _ := s.Upsert(ctx, doc, store.UpsertOptions{CoverURL: "https://example.com/legacy.jpg"})

	got, _ := s.Get(ctx, id)
	if got.Background.URL != "https://example.com/legacy.jpg" || got.Background.Mode != model.BackgroundCover {
		t.Fatalf("background = %+v", got.Background)
	}

	n, err := s.MigrateBackgrounds(ctx)
	if err != nil || n != 1 {
		t.Fatalf("migrate = %d, %v", n, err)
	}
	if n, _ := s.MigrateBackgrounds(ctx); n != 0 {
		t.Fatalf("second migration changed %d documents", n)
	}
}

func TestClearedBackgroundStaysCleared(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	doc := testsupport.SampleDocument()
	doc.Background = model.Background{URL: "https://example.com/c.jpg", Mode: model.BackgroundCover}
	id, _ := s.Upsert(ctx, doc, store.UpsertOptions{CoverURL: doc.Background.URL})

	loaded, _ := s.Get(ctx, id)
	loaded.Background = model.Background{}
	if _, err := s.Upsert(ctx, loaded, store.UpsertOptions{ID: id, CoverURL: loaded.Background.URL}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, _ := s.Get(ctx, id)
	if diff := cmp.Diff(model.Background{}, got.Background); diff != "" {
		t.Fatalf("background after reload (-want +got):\n%s", diff)
	}
	if meta, _ := s.GetMeta(ctx, id); meta.CoverURL != "" {
		t.Fatalf("meta cover = %q", meta.CoverURL)
	}
}

func TestUpdateClearingBackgroundClearsCover(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	doc := testsupport.SampleDocument()
	doc.Background = model.Background{URL: "https://example.com/c.jpg", Mode: model.BackgroundCover}
	id, _ := s.Upsert(ctx, doc, store.UpsertOptions{})

	if _, _, err := s.Update(ctx, id, model.DocumentPatch{Background: &model.Background{}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.Get(ctx, id)
	if got.Background.URL != "" {
		t.Fatalf("background = %+v", got.Background)
	}
	if meta, _ := s.GetMeta(ctx, id); meta.CoverURL != "" {
		t.Fatalf("meta cover = %q", meta.CoverURL)
	}
}

func TestLegacyCoverSurvivesSaveWithoutBackground(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	id, _ := s.Upsert(ctx, testsupport.SampleDocument(), store.UpsertOptions{CoverURL: "https://example.com/legacy.jpg"})

	title := "Renamed"
	if _, _, err := s.Update(ctx, id, model.DocumentPatch{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if meta, _ := s.GetMeta(ctx, id); meta.CoverURL != "https://example.com/legacy.jpg" {
		t.Fatalf("meta cover = %q", meta.CoverURL)
	}
}

func TestMigrateBackgroundsAsync(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	id, _ := s.Upsert(ctx, testsupport.SampleDocument(), store.UpsertOptions{CoverURL: "https://example.com/a.jpg"})

	select {
	case <-s.MigrateBackgroundsAsync(ctx):
	case <-time.After(2 * time.Second):
		t.Fatalf("migration did not finish")
	}
	if n, _ := s.MigrateBackgrounds(ctx); n != 0 {
		t.Fatalf("async migration did not persist for %s", id)
	}
}

func TestUpdate(t *testing.T) {
	s, _, clock := newStore(t)
	ctx := context.Background()
	id, _ := s.Upsert(ctx, testsupport.SampleDocument(), store.UpsertOptions{Theme: "sunset"})
	clock.Advance(time.Hour)

	title := "Renamed"
	got, ok, err := s.Update(ctx, id, model.DocumentPatch{Title: &title})
	if err != nil || !ok {
		t.Fatalf("update = %v, %v", ok, err)
	}
	if got.Title != "Renamed" || len(got.Steps) != 2 {
		t.Fatalf("merged document = %+v", got)
	}
	meta, _ := s.GetMeta(ctx, id)
	if meta.Title != "Renamed" || meta.Theme != "sunset" || !meta.UpdatedAt.Equal(epoch.Add(time.Hour)) || !meta.CreatedAt.Equal(epoch) {
		t.Fatalf("meta = %+v", meta)
	}

	if _, ok, err := s.Update(ctx, "missing", model.DocumentPatch{Title: &title}); ok || err != nil {
		t.Fatalf("update of unknown id = %v, %v", ok, err)
	}
}

func TestDeleteRemovesBothKeys(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	id, _ := s.Upsert(ctx, testsupport.SampleDocument(), store.UpsertOptions{})

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := s.Get(ctx, id); ok {
		t.Fatalf("document still present")
	}
	if _, ok := s.GetMeta(ctx, id); ok {
		t.Fatalf("meta still present")
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
}

func TestDuplicate(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	src := testsupport.SampleDocument()
	id, _ := s.Upsert(ctx, src, store.UpsertOptions{Theme: "terminal"})

	copyID, ok, err := s.Duplicate(ctx, id)
	if err != nil || !ok {
		t.Fatalf("duplicate = %v, %v", ok, err)
	}
	if copyID == id {
		t.Fatalf("duplicate reused id")
	}
	got, _ := s.Get(ctx, copyID)
	if got.Title != "Event registration (copy)" {
		t.Fatalf("title = %q", got.Title)
	}
	want := src.Clone()
	want.Title = got.Title
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("copy content mismatch (-want +got):\n%s", diff)
	}
	meta, _ := s.GetMeta(ctx, copyID)
	if meta.Theme != "terminal" {
		t.Fatalf("theme = %q", meta.Theme)
	}
	if _, ok, _ := s.Duplicate(ctx, "missing"); ok {
		t.Fatalf("duplicate of unknown id reported ok")
	}
}

func TestListOrdersByUpdatedAtDesc(t *testing.T) {
	s, _, clock := newStore(t)
	ctx := context.Background()
	first, _ := s.Upsert(ctx, model.NewDocument(), store.UpsertOptions{})
	clock.Advance(time.Second)
	second, _ := s.Upsert(ctx, model.NewDocument(), store.UpsertOptions{})
	clock.Advance(time.Second)
	if _, err := s.Upsert(ctx, model.NewDocument(), store.UpsertOptions{ID: first}); err != nil {
		t.Fatalf("touch: %v", err)
	}

	var ids []string
	for _, m := range s.List(ctx) {
		ids = append(ids, m.ID)
	}
	if diff := cmp.Diff([]string{first, second}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateMeta(t *testing.T) {
	s, _, clock := newStore(t)
	ctx := context.Background()
	id, _ := s.Upsert(ctx, model.NewDocument(), store.UpsertOptions{})
	clock.Advance(time.Minute)

	theme := "ocean"
	meta, ok, err := s.UpdateMeta(ctx, id, store.MetaPatch{Theme: &theme})
	if err != nil || !ok {
		t.Fatalf("update meta = %v, %v", ok, err)
	}
	if meta.Theme != "ocean" || meta.ID != id || !meta.UpdatedAt.Equal(epoch.Add(time.Minute)) {
		t.Fatalf("meta = %+v", meta)
	}
	if _, ok, _ := s.UpdateMeta(ctx, "missing", store.MetaPatch{Theme: &theme}); ok {
		t.Fatalf("unknown id reported ok")
	}
}

func TestCorruptStorageReadsAsEmpty(t *testing.T) {
	s, medium, _ := newStore(t)
	ctx := context.Background()
	if err := medium.Set(ctx, store.FormsKey, "{broken"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := medium.Set(ctx, store.MetaKey, "[]"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got := s.List(ctx); len(got) != 0 {
		t.Fatalf("list = %+v", got)
	}
	if _, ok := s.Get(ctx, "anything"); ok {
		t.Fatalf("get on corrupt storage returned a document")
	}

	id, err := s.Upsert(ctx, model.NewDocument(), store.UpsertOptions{})
	if err != nil {
		t.Fatalf("upsert over corrupt storage: %v", err)
	}
	if _, ok := s.Get(ctx, id); !ok {
		t.Fatalf("storage not repaired by write")
	}
}

func TestCorruptFileMediumRecoversOnUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forms.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	medium, err := file.New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s := store.New(medium)
	ctx := context.Background()

	if got := s.List(ctx); len(got) != 0 {
		t.Fatalf("list = %+v", got)
	}
	id, err := s.Upsert(ctx, testsupport.SampleDocument(), store.UpsertOptions{})
	if err != nil {
		t.Fatalf("upsert over corrupt file: %v", err)
	}
	got, ok := s.Get(ctx, id)
	if !ok {
		t.Fatalf("document not readable after recovery")
	}
	if diff := cmp.Diff(testsupport.SampleDocument(), got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(path + file.CorruptSuffix); err != nil {
		t.Fatalf("corrupt copy missing: %v", err)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	medium := memory.New()
	ctx := context.Background()
	a := store.New(medium, store.WithNamespace("tenant-a"))
	b := store.New(medium, store.WithNamespace("tenant-b"))

	id, _ := a.Upsert(ctx, model.NewDocument(), store.UpsertOptions{})
	if _, ok := b.Get(ctx, id); ok {
		t.Fatalf("tenant b sees tenant a's document")
	}
	forms, meta := a.Keys()
	if forms != "tenant-a:app:forms" || meta != "tenant-a:app:forms-meta" {
		t.Fatalf("keys = %q %q", forms, meta)
	}
}

func TestClear(t *testing.T) {
	s, medium, _ := newStore(t)
	ctx := context.Background()
	_, _ = s.Upsert(ctx, model.NewDocument(), store.UpsertOptions{})
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if medium.Len() != 0 {
		t.Fatalf("keys left: %d", medium.Len())
	}
}

type failingMedium struct {
	kv.Medium
}

func (failingMedium) SetMany(context.Context, []kv.Entry) error {
	return errors.New("disk full")
}

func TestWriteErrorsSurface(t *testing.T) {
	s := store.New(failingMedium{Medium: memory.New()})
	if _, err := s.Upsert(context.Background(), model.NewDocument(), store.UpsertOptions{}); err == nil {
		t.Fatalf("expected write error")
	}
}
