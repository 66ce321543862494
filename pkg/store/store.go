package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-formbuilder/internal/logging"
	"github.com/goliatone/go-formbuilder/pkg/kv"
	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Storage keys. Documents and their summaries live under separate keys, each
// holding a JSON object keyed by document id.
const (
	FormsKey = "app:forms"
	MetaKey  = "app:forms-meta"
)

// CopySuffix is appended to the title of duplicated documents.
const CopySuffix = " (copy)"

// UpsertOptions carries the optional identity and presentation overrides of
// Upsert.
type UpsertOptions struct {
	ID       string
	Theme    string
	CoverURL string
}

// MetaPatch updates summary fields without touching the document.
type MetaPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Theme       *string `json:"theme,omitempty"`
	CoverURL    *string `json:"coverUrl,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithNamespace prefixes both storage keys so several tenants can share a
// medium.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		s.namespace = strings.TrimSpace(ns)
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new document ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger receives notices about unreadable storage and failed background
// work.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store persists form documents and their summaries in a kv.Medium. Reads
// fail open: a missing, unreadable or corrupt value behaves like an empty
// collection and is logged. Writes report medium errors to the caller.
type Store struct {
	medium    kv.Medium
	namespace string
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
	mu        sync.Mutex
}

// New returns a Store writing to medium.
func New(medium kv.Medium, opts ...Option) *Store {
	s := &Store{
		medium: medium,
		now:    time.Now,
		newID:  model.NewDocumentID,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Namespace returns the key prefix in use.
func (s *Store) Namespace() string {
	return s.namespace
}

// Keys returns the documents key and the summaries key after namespacing.
func (s *Store) Keys() (forms, meta string) {
	if s.namespace == "" {
		return FormsKey, MetaKey
	}
	return s.namespace + ":" + FormsKey, s.namespace + ":" + MetaKey
}

type snapshot struct {
	forms map[string]model.Document
	metas map[string]model.Meta
}

func (s *Store) load(ctx context.Context) snapshot {
	formsKey, metaKey := s.Keys()
	return snapshot{
		forms: readMap[model.Document](ctx, s, formsKey),
		metas: readMap[model.Meta](ctx, s, metaKey),
	}
}

func readMap[T any](ctx context.Context, s *Store, key string) map[string]T {
	out := map[string]T{}
	raw, err := s.medium.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return out
	}
	if err != nil {
		s.logger.Warn("store: read failed, treating as empty", "key", key, "error", err)
		return out
	}
	var decoded map[string]T
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		s.logger.Warn("store: corrupt value, treating as empty", "key", key, "error", err)
		return out
	}
	if decoded == nil {
		return out
	}
	return decoded
}

func (s *Store) save(ctx context.Context, snap snapshot) error {
	formsKey, metaKey := s.Keys()
	forms, err := json.Marshal(snap.forms)
	if err != nil {
		return fmt.Errorf("store: encode forms: %w", err)
	}
	metas, err := json.Marshal(snap.metas)
	if err != nil {
		return fmt.Errorf("store: encode meta: %w", err)
	}
	if err := kv.SetAll(ctx, s.medium,
		kv.Entry{Key: formsKey, Value: string(forms)},
		kv.Entry{Key: metaKey, Value: string(metas)},
	); err != nil {
		return fmt.Errorf("store: write: %w", err)
	}
	return nil
}

// computeMeta derives the summary of doc. Creation time and theme carry over
// from prev. The cover follows doc; prev's cover is kept only while neither
// doc nor the previously stored document, prevDoc, has a background.
func computeMeta(id string, doc model.Document, prev *model.Meta, prevDoc *model.Document, now time.Time) model.Meta {
	meta := model.Meta{
		ID:          id,
		Title:       doc.Title,
		Description: doc.Description,
		Kind:        doc.Kind,
		StepsCount:  doc.StepCount(),
		FieldsCount: doc.FieldCount(),
		CreatedAt:   now,
		UpdatedAt:   now,
		CoverURL:    doc.Background.URL,
	}
	if meta.Title == "" {
		meta.Title = model.DefaultTitle
	}
	if prev != nil {
		if !prev.CreatedAt.IsZero() {
			meta.CreatedAt = prev.CreatedAt
		}
		meta.Theme = prev.Theme
		if meta.CoverURL == "" && (prevDoc == nil || prevDoc.Background.URL == "") {
			meta.CoverURL = prev.CoverURL
		}
	}
	return meta
}

// Upsert stores doc under opts.ID, minting a new id when it is empty, and
// returns the id. The summary is recomputed; creation time and theme are kept
// unless the options override them. The summary cover follows the saved
// background, so clearing the background clears the cover.
func (s *Store) Upsert(ctx context.Context, doc model.Document, opts UpsertOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := opts.ID
	if id == "" {
		id = s.newID()
	}
	snap := s.load(ctx)
	var prevDoc *model.Document
	if d, ok := snap.forms[id]; ok {
		prevDoc = &d
	}
	snap.forms[id] = doc.Clone()

	var prev *model.Meta
	if m, ok := snap.metas[id]; ok {
		prev = &m
	}
	meta := computeMeta(id, doc, prev, prevDoc, s.now())
	if opts.Theme != "" {
		meta.Theme = opts.Theme
	}
	if opts.CoverURL != "" {
		meta.CoverURL = opts.CoverURL
	}
	snap.metas[id] = meta

	if err := s.save(ctx, snap); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns the stored document. A document without a background whose
// summary records a cover gets that cover filled in; the repair is not
// written back.
func (s *Store) Get(ctx context.Context, id string) (model.Document, bool) {
	snap := s.load(ctx)
	doc, ok := snap.forms[id]
	if !ok {
		return model.Document{}, false
	}
	if meta, ok := snap.metas[id]; ok {
		applyCover(&doc, meta)
	}
	return doc, true
}

// Record returns the document together with its summary.
func (s *Store) Record(ctx context.Context, id string) (model.Record, bool) {
	snap := s.load(ctx)
	doc, ok := snap.forms[id]
	if !ok {
		return model.Record{}, false
	}
	meta, ok := snap.metas[id]
	if ok {
		applyCover(&doc, meta)
	} else {
		meta = computeMeta(id, doc, nil, nil, time.Time{})
	}
	return model.Record{ID: id, Document: doc, Meta: meta}, true
}

func applyCover(doc *model.Document, meta model.Meta) bool {
	if strings.TrimSpace(doc.Background.URL) != "" || meta.CoverURL == "" {
		return false
	}
	doc.Background.URL = meta.CoverURL
	if doc.Background.Mode == "" {
		doc.Background.Mode = model.BackgroundCover
	}
	return true
}

// Update merges patch into the stored document and recomputes its summary.
// The boolean is false when id is unknown.
func (s *Store) Update(ctx context.Context, id string, patch model.DocumentPatch) (model.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.load(ctx)
	current, ok := snap.forms[id]
	if !ok {
		return model.Document{}, false, nil
	}
	merged := patch.Apply(current)
	snap.forms[id] = merged

	var prev *model.Meta
	if m, ok := snap.metas[id]; ok {
		prev = &m
	}
	snap.metas[id] = computeMeta(id, merged, prev, &current, s.now())

	if err := s.save(ctx, snap); err != nil {
		return model.Document{}, true, err
	}
	return merged.Clone(), true, nil
}

// Delete removes the document and its summary together. Unknown ids are a
// no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.load(ctx)
	_, hasForm := snap.forms[id]
	_, hasMeta := snap.metas[id]
	if !hasForm && !hasMeta {
		return nil
	}
	delete(snap.forms, id)
	delete(snap.metas, id)
	return s.save(ctx, snap)
}

// Duplicate stores a copy of id under a new id, with CopySuffix appended to
// the title and the source theme and cover kept. The boolean is false when
// id is unknown.
func (s *Store) Duplicate(ctx context.Context, id string) (string, bool, error) {
	rec, ok := s.Record(ctx, id)
	if !ok {
		return "", false, nil
	}
	copyDoc := rec.Document.Clone()
	title := copyDoc.Title
	if title == "" {
		title = model.DefaultTitle
	}
	copyDoc.Title = title + CopySuffix

	newID, err := s.Upsert(ctx, copyDoc, UpsertOptions{
		Theme:    rec.Meta.Theme,
		CoverURL: rec.Meta.CoverURL,
	})
	if err != nil {
		return "", true, err
	}
	return newID, true, nil
}

// List returns every summary, most recently updated first. Ties are ordered
// by id.
func (s *Store) List(ctx context.Context) []model.Meta {
	snap := s.load(ctx)
	out := make([]model.Meta, 0, len(snap.metas))
	for _, meta := range snap.metas {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GetMeta returns the summary of id.
func (s *Store) GetMeta(ctx context.Context, id string) (model.Meta, bool) {
	meta, ok := s.load(ctx).metas[id]
	return meta, ok
}

// UpdateMeta applies patch to the summary of id, refreshing UpdatedAt. The
// id itself cannot change. The boolean is false when id has no summary.
func (s *Store) UpdateMeta(ctx context.Context, id string, patch MetaPatch) (model.Meta, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.load(ctx)
	meta, ok := snap.metas[id]
	if !ok {
		return model.Meta{}, false, nil
	}
	if patch.Title != nil {
		meta.Title = *patch.Title
	}
	if patch.Description != nil {
		meta.Description = *patch.Description
	}
	if patch.Theme != nil {
		meta.Theme = *patch.Theme
	}
	if patch.CoverURL != nil {
		meta.CoverURL = *patch.CoverURL
	}
	meta.ID = id
	meta.UpdatedAt = s.now()
	snap.metas[id] = meta

	if err := s.save(ctx, snap); err != nil {
		return model.Meta{}, true, err
	}
	return meta, true, nil
}

// Clear removes every document and summary.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	formsKey, metaKey := s.Keys()
	if err := s.medium.Delete(ctx, formsKey, metaKey); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}

// MigrateBackgrounds writes the summary cover into every document that lacks
// a background and returns how many were repaired. Repaired summaries are
// recomputed.
func (s *Store) MigrateBackgrounds(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.load(ctx)
	changed := 0
	for id, doc := range snap.forms {
		meta, ok := snap.metas[id]
		if !ok || !applyCover(&doc, meta) {
			continue
		}
		snap.forms[id] = doc
		snap.metas[id] = computeMeta(id, doc, &meta, nil, s.now())
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	if err := s.save(ctx, snap); err != nil {
		return 0, err
	}
	return changed, nil
}

// MigrateBackgroundsAsync runs MigrateBackgrounds on its own goroutine and
// logs the outcome. The returned channel is closed when it finishes.
func (s *Store) MigrateBackgroundsAsync(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		n, err := s.MigrateBackgrounds(ctx)
		if err != nil {
			s.logger.Warn("store: background migration failed", "error", err)
			return
		}
		if n > 0 {
			s.logger.Info("store: migrated backgrounds", "count", n)
		}
	}()
	return done
}
