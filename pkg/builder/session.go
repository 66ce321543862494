// Package builder holds the editing session of a single form document: the
// document itself, the step navigator, the compiled validator and the change
// listeners (autosave among them). All edits go through the Session so the
// derived state stays consistent.
package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-formbuilder/internal/logging"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/navigation"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

var (
	ErrLastStep      = errors.New("builder: cannot remove the only step")
	ErrStepIndex     = errors.New("builder: step index out of range")
	ErrFieldIndex    = errors.New("builder: field index out of range")
	ErrFieldNotFound = errors.New("builder: field not found")
	ErrNoActiveStep  = errors.New("builder: no active step")
	ErrInvalidCover  = errors.New("builder: invalid cover url")
	ErrInvalidImport = errors.New("builder: invalid document")
)

// Option configures a Session.
type Option func(*Session)

// WithDocument starts the session from doc instead of a blank form.
func WithDocument(doc model.Document) Option {
	return func(s *Session) {
		s.doc = doc.Clone()
	}
}

// WithID records the id the document is stored under.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithValidationOptions are passed to every validator compile, for example a
// locale.
func WithValidationOptions(opts ...validation.Option) Option {
	return func(s *Session) {
		s.validationOpts = append(s.validationOpts, opts...)
	}
}

// WithNavigationOptions are passed to the navigator.
func WithNavigationOptions(opts ...navigation.Option) Option {
	return func(s *Session) {
		s.navOpts = append(s.navOpts, opts...)
	}
}

// OnChange registers a listener called with a copy of the document after
// every edit.
func OnChange(fn func(model.Document)) Option {
	return func(s *Session) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session owns one document being edited. Not safe for concurrent use.
type Session struct {
	doc            model.Document
	id             string
	nav            *navigation.Navigator
	validator      *validation.Validator
	validationOpts []validation.Option
	navOpts        []navigation.Option
	listeners      []func(model.Document)
	logger         *slog.Logger
}

// New returns a session over a blank form or the document given with
// WithDocument. The document is normalized first.
func New(opts ...Option) *Session {
	s := &Session{doc: model.NewDocument(), logger: logging.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.doc.Normalize()
	compile := func(fields []model.Field) *validation.Validator {
		return validation.Compile(fields, s.compileOptions()...)
	}
	navOpts := append([]navigation.Option{navigation.WithCompiler(compile)}, s.navOpts...)
	s.nav = navigation.New(&s.doc, navOpts...)
	s.recompile()
	return s
}

// Open loads id from st. When id is unknown the session starts from a blank
// form that will be stored under id; found reports which case applied.
func Open(ctx context.Context, st *store.Store, id string, opts ...Option) (*Session, bool) {
	doc, found := st.Get(ctx, id)
	if found {
		opts = append([]Option{WithDocument(doc)}, opts...)
	}
	opts = append(opts, WithID(id))
	return New(opts...), found
}

func (s *Session) compileOptions() []validation.Option {
	return append([]validation.Option{validation.WithLogger(s.logger)}, s.validationOpts...)
}

// ID returns the stored id, empty for a document never saved.
func (s *Session) ID() string {
	return s.id
}

// SetID records the id assigned by the first save.
func (s *Session) SetID(id string) {
	s.id = id
}

// Document returns a copy of the current document.
func (s *Session) Document() model.Document {
	return s.doc.Clone()
}

// Navigator exposes the step cursor.
func (s *Session) Navigator() *navigation.Navigator {
	return s.nav
}

// Validator returns the validator compiled for every reachable field.
func (s *Session) Validator() *validation.Validator {
	return s.validator
}

// Subscribe adds a change listener.
func (s *Session) Subscribe(fn func(model.Document)) {
	if fn != nil {
		s.listeners = append(s.listeners, fn)
	}
}

func (s *Session) recompile() {
	s.validator = validation.CompileDocument(s.doc, s.compileOptions()...)
}

func (s *Session) changed() {
	s.nav.Sync()
	s.recompile()
	for _, fn := range s.listeners {
		fn(s.doc.Clone())
	}
}

// UpdateForm applies a shallow patch to the document. Copy is sanitized, the
// cover URL is checked and switching to a simple form collapses the steps.
func (s *Session) UpdateForm(patch model.DocumentPatch) error {
	if patch.Background != nil {
		if err := CheckCoverURL(patch.Background.URL); err != nil {
			return err
		}
	}
	for _, str := range []**string{&patch.Title, &patch.Description, &patch.InfoTop, &patch.InfoBottom} {
		if *str != nil {
			*str = model.StringPtr(SanitizeText(**str))
		}
	}
	if patch.Kind != nil && !patch.Kind.Valid() {
		return fmt.Errorf("%w: %q", model.ErrUnknownKind, *patch.Kind)
	}
	s.doc = patch.Apply(s.doc)
	s.doc.Normalize()
	s.changed()
	return nil
}

// SetKind switches between simple and multi-step.
func (s *Session) SetKind(kind model.Kind) error {
	return s.UpdateForm(model.DocumentPatch{Kind: &kind})
}

// SetBackground replaces the cover settings. Empty mode and tint default to
// cover and dark.
func (s *Session) SetBackground(bg model.Background) error {
	if bg.URL != "" {
		if bg.Mode == "" {
			bg.Mode = model.BackgroundCover
		}
		if bg.Tint == "" {
			bg.Tint = model.TintDark
		}
	}
	return s.UpdateForm(model.DocumentPatch{Background: &bg})
}

// SetCoverEnabled forces the cover pseudo-step on or off in the preview.
func (s *Session) SetCoverEnabled(enabled bool) {
	s.nav.SetCoverEnabled(enabled)
}

// AddStep appends a step and moves the cursor onto it.
func (s *Session) AddStep() model.Step {
	step := s.nav.AddStep()
	s.changed()
	return step
}

// RenameStep sets the title of step i.
func (s *Session) RenameStep(i int, title string) error {
	if i < 0 || i >= len(s.doc.Steps) {
		return ErrStepIndex
	}
	s.doc.Steps[i].Title = SanitizeText(title)
	s.changed()
	return nil
}

// RemoveStep deletes step i and moves the cursor to the first step. The
// last remaining step cannot be removed.
func (s *Session) RemoveStep(i int) error {
	if len(s.doc.Steps) <= 1 {
		return ErrLastStep
	}
	if i < 0 || i >= len(s.doc.Steps) {
		return ErrStepIndex
	}
	s.doc.Steps = append(s.doc.Steps[:i], s.doc.Steps[i+1:]...)
	s.nav.Goto(0)
	s.changed()
	return nil
}

// AddField appends a field to the active step. The name is derived from the
// label once and made unique within the step; any ID or Name on the input is
// ignored.
func (s *Session) AddField(def model.Field) (model.Field, error) {
	step := s.nav.Step()
	if step == nil {
		return model.Field{}, ErrNoActiveStep
	}
	field, err := PrepareField(def)
	if err != nil {
		return model.Field{}, err
	}
	taken := make(map[string]struct{}, len(step.Fields))
	for _, f := range step.Fields {
		taken[f.Name] = struct{}{}
	}
	field.ID = model.NewID()
	field.Name = model.UniqueName(model.FieldName(field.Label), taken)
	field.Normalize()

	step.Fields = append(step.Fields, field)
	s.changed()
	return field.Clone(), nil
}

// UpdateField patches the field fieldID of step stepIndex. The name never
// changes.
func (s *Session) UpdateField(stepIndex int, fieldID string, patch model.FieldPatch) (model.Field, error) {
	if stepIndex < 0 || stepIndex >= len(s.doc.Steps) {
		return model.Field{}, ErrStepIndex
	}
	fields := s.doc.Steps[stepIndex].Fields
	for i := range fields {
		if fields[i].ID != fieldID {
			continue
		}
		updated, err := PrepareField(patch.Apply(fields[i]))
		if err != nil {
			return model.Field{}, err
		}
		updated.ID = fields[i].ID
		updated.Name = fields[i].Name
		fields[i] = updated
		s.changed()
		return updated.Clone(), nil
	}
	return model.Field{}, ErrFieldNotFound
}

// RemoveField deletes fieldID from step stepIndex.
func (s *Session) RemoveField(stepIndex int, fieldID string) error {
	if stepIndex < 0 || stepIndex >= len(s.doc.Steps) {
		return ErrStepIndex
	}
	step := &s.doc.Steps[stepIndex]
	for i := range step.Fields {
		if step.Fields[i].ID == fieldID {
			step.Fields = append(step.Fields[:i], step.Fields[i+1:]...)
			s.changed()
			return nil
		}
	}
	return ErrFieldNotFound
}

// MoveField reorders the active step's fields, moving position from to
// position to.
func (s *Session) MoveField(from, to int) error {
	step := s.nav.Step()
	if step == nil {
		return ErrNoActiveStep
	}
	n := len(step.Fields)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrFieldIndex
	}
	if from == to {
		return nil
	}
	moved := step.Fields[from]
	step.Fields = append(step.Fields[:from], step.Fields[from+1:]...)
	step.Fields = append(step.Fields[:to], append([]model.Field{moved}, step.Fields[to:]...)...)
	s.changed()
	return nil
}

// OneFieldPerStep splits the document so every field gets its own step.
func (s *Session) OneFieldPerStep() {
	s.doc = s.doc.OneFieldPerStep()
	s.nav.Goto(0)
	s.changed()
}

// Reset replaces the document with a blank form and rewinds the cursor.
func (s *Session) Reset() {
	s.doc = model.NewDocument()
	s.nav.Goto(0)
	s.changed()
}

// Replace swaps in a whole document, typically an import.
func (s *Session) Replace(doc model.Document) error {
	doc = doc.Clone()
	doc.Normalize()
	if err := doc.Check(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	s.doc = doc
	s.nav.Goto(0)
	s.changed()
	return nil
}

// ReplaceJSON decodes raw and replaces the document when it has the basic
// shape of a form: a title and a steps list.
func (s *Session) ReplaceJSON(raw []byte) error {
	var shape struct {
		Title *string         `json:"title"`
		Steps json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if shape.Title == nil || len(shape.Steps) == 0 || shape.Steps[0] != '[' {
		return fmt.Errorf("%w: title and steps are required", ErrInvalidImport)
	}
	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return s.Replace(doc)
}

// Next validates the active step against values and advances.
func (s *Session) Next(values map[string]any) navigation.Outcome {
	return s.nav.Next(values)
}

// Back moves the cursor one position back.
func (s *Session) Back() int {
	return s.nav.Back()
}

// Goto moves the cursor, clamped to the reachable range.
func (s *Session) Goto(i int) int {
	return s.nav.Goto(i)
}

// ValidateResponse checks a complete response against every reachable field.
func (s *Session) ValidateResponse(values map[string]any) validation.Result {
	return s.validator.Validate(values)
}
