// Package navigation moves a cursor across the steps of a form document.
package navigation

import (
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

// CoverIndex is the cursor position of the cover pseudo-step.
const CoverIndex = -1

// Compiler builds the validator used to gate forward navigation.
type Compiler func(fields []model.Field) *validation.Validator

// Option configures a Navigator.
type Option func(*Navigator)

// WithCover forces the cover pseudo-step on or off. Without it the cover
// follows whether the document has a background image.
func WithCover(enabled bool) Option {
	return func(n *Navigator) {
		n.coverOverride = &enabled
	}
}

// WithStart positions the cursor before the first call. The index is clamped.
func WithStart(index int) Option {
	return func(n *Navigator) {
		n.current = index
	}
}

// WithCompiler overrides how step validators are built, typically to pass
// a locale or translator through to validation.Compile.
func WithCompiler(compile Compiler) Option {
	return func(n *Navigator) {
		if compile != nil {
			n.compile = compile
		}
	}
}

// Navigator tracks the active step of a document and gates forward movement
// on the validity of the active step's fields. It holds a pointer to the
// document owned by the editing session and must be re-synced with Sync
// after structural edits. Not safe for concurrent use.
type Navigator struct {
	doc           *model.Document
	current       int
	coverOverride *bool
	focus         string
	compile       Compiler
}

// Outcome describes the effect of a Next call.
type Outcome struct {
	From   int               `json:"from"`
	To     int               `json:"to"`
	Moved  bool              `json:"moved"`
	Submit bool              `json:"submit"`
	Focus  string            `json:"focus,omitempty"`
	Result validation.Result `json:"result"`
}

// New returns a navigator over doc positioned at the first step.
func New(doc *model.Document, opts ...Option) *Navigator {
	n := &Navigator{
		doc: doc,
		compile: func(fields []model.Field) *validation.Validator {
			return validation.Compile(fields)
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	n.current = n.clamp(n.current)
	return n
}

// Current returns the cursor position.
func (n *Navigator) Current() int {
	return n.current
}

// CoverEnabled reports whether the cover pseudo-step is reachable.
func (n *Navigator) CoverEnabled() bool {
	if n.coverOverride != nil {
		return *n.coverOverride
	}
	return n.doc.Background.Enabled()
}

// AtCover reports whether the cursor is on the cover pseudo-step.
func (n *Navigator) AtCover() bool {
	return n.current == CoverIndex
}

// Floor is the lowest reachable position.
func (n *Navigator) Floor() int {
	if n.CoverEnabled() {
		return CoverIndex
	}
	return 0
}

// LastIndex is the highest reachable position.
func (n *Navigator) LastIndex() int {
	return n.doc.LastIndex()
}

// AtLast reports whether the cursor is on the final step.
func (n *Navigator) AtLast() bool {
	return n.current == n.LastIndex()
}

// Focus returns the name of the field that blocked the last Next call.
func (n *Navigator) Focus() string {
	return n.focus
}

// Step returns the active step, or nil on the cover.
func (n *Navigator) Step() *model.Step {
	if n.current < 0 || n.current >= len(n.doc.Steps) {
		return nil
	}
	return &n.doc.Steps[n.current]
}

// Fields returns the active step's fields.
func (n *Navigator) Fields() []model.Field {
	if step := n.Step(); step != nil {
		return step.Fields
	}
	return nil
}

// Offset is the number of fields in the steps before the active one, used to
// keep question numbers running across steps.
func (n *Navigator) Offset() int {
	return n.doc.FieldsBefore(n.current)
}

// QuestionNumber returns the 1-based number of the i-th field in the active
// step.
func (n *Navigator) QuestionNumber(i int) int {
	return n.Offset() + i + 1
}

// Goto moves the cursor to index clamped to [Floor, LastIndex].
func (n *Navigator) Goto(index int) int {
	n.current = n.clamp(index)
	n.focus = ""
	return n.current
}

// Next advances from the active step when its fields are valid. On the
// cover it always moves to the first step. On the last step a valid form
// reports Submit instead of moving. Only the active step's fields are
// validated; on failure the first invalid field becomes the focus.
func (n *Navigator) Next(values map[string]any) Outcome {
	out := Outcome{From: n.current, To: n.current, Result: validation.Result{Valid: true}}
	if n.AtCover() {
		out.To = n.Goto(0)
		out.Moved = out.To != out.From
		return out
	}

	fields := n.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	out.Result = n.compile(fields).ValidateFields(values, names)
	if !out.Result.Valid {
		n.focus, _ = out.Result.FirstInvalid()
		out.Focus = n.focus
		return out
	}

	n.focus = ""
	if n.current >= n.LastIndex() {
		out.Submit = true
		return out
	}
	out.To = n.Goto(n.current + 1)
	out.Moved = true
	return out
}

// Back moves one position towards the cover. It is a no-op on the cover and
// on step 0 when the cover is disabled.
func (n *Navigator) Back() int {
	if n.AtCover() {
		return n.current
	}
	return n.Goto(n.current - 1)
}

// AddStep appends a blank step and moves the cursor onto it. A simple
// document becomes multi-step since it can only hold one step.
func (n *Navigator) AddStep() model.Step {
	if n.doc.Kind != model.KindMultiStep {
		n.doc.Kind = model.KindMultiStep
	}
	step := model.NewStep(len(n.doc.Steps) + 1)
	n.doc.Steps = append(n.doc.Steps, step)
	n.Goto(len(n.doc.Steps) - 1)
	return step
}

// SetCoverEnabled forces the cover on or off. Disabling it while the cursor
// is on the cover moves the cursor to step 0.
func (n *Navigator) SetCoverEnabled(enabled bool) {
	n.coverOverride = &enabled
	n.Sync()
}

// FollowBackground drops a forced cover setting so the cover tracks the
// document background again.
func (n *Navigator) FollowBackground() {
	n.coverOverride = nil
	n.Sync()
}

// Sync re-clamps the cursor after the document or cover setting changed.
func (n *Navigator) Sync() {
	n.current = n.clamp(n.current)
	if n.focus != "" && !n.hasField(n.focus) {
		n.focus = ""
	}
}

func (n *Navigator) hasField(name string) bool {
	for _, f := range n.Fields() {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (n *Navigator) clamp(index int) int {
	if index < n.Floor() {
		return n.Floor()
	}
	if last := n.LastIndex(); index > last {
		return last
	}
	return index
}
