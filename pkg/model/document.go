package model

import (
	"errors"
	"fmt"
	"strconv"
)

// DefaultTitle is used for documents created without a title.
const DefaultTitle = "Untitled form"

var (
	ErrNoSteps          = errors.New("model: document has no steps")
	ErrStepCount        = errors.New("model: simple document must have exactly one step")
	ErrUnknownKind      = errors.New("model: unknown document kind")
	ErrUnknownFieldType = errors.New("model: unknown field type")
	ErrEmptyName        = errors.New("model: field name is empty")
	ErrDuplicateName    = errors.New("model: duplicate field name in step")
	ErrDuplicateOption  = errors.New("model: duplicate option value")
	ErrNoOptions        = errors.New("model: select field has no options")
	ErrSelectionBounds  = errors.New("model: minSelected is greater than maxSelected")
	ErrLengthBounds     = errors.New("model: minLength is greater than maxLength")
)

// NewDocument returns an empty simple form with a single blank step.
func NewDocument() Document {
	return Document{
		Title: DefaultTitle,
		Kind:  KindSimple,
		Steps: []Step{NewStep(1)},
	}
}

// NewStep returns an empty step titled after its 1-based position.
func NewStep(position int) Step {
	return Step{
		ID:     NewID(),
		Title:  StepTitle(position),
		Fields: []Field{},
	}
}

// StepTitle is the default title of the step at the given 1-based position.
func StepTitle(position int) string {
	return "Step " + strconv.Itoa(position)
}

// StepCount returns the number of steps.
func (d Document) StepCount() int {
	return len(d.Steps)
}

// FieldCount returns the total number of fields across all steps.
func (d Document) FieldCount() int {
	total := 0
	for _, step := range d.Steps {
		total += len(step.Fields)
	}
	return total
}

// LastIndex is the highest navigable step index. Simple documents only ever
// expose their first step.
func (d Document) LastIndex() int {
	if d.Kind != KindMultiStep || len(d.Steps) == 0 {
		return 0
	}
	return len(d.Steps) - 1
}

// VisibleSteps returns the steps a respondent can reach.
func (d Document) VisibleSteps() []Step {
	if len(d.Steps) == 0 {
		return nil
	}
	return d.Steps[:d.LastIndex()+1]
}

// Fields returns every reachable field in step order.
func (d Document) Fields() []Field {
	var out []Field
	for _, step := range d.VisibleSteps() {
		out = append(out, step.Fields...)
	}
	return out
}

// StepFields returns the fields of step i, or nil when i is out of range.
func (d Document) StepFields(i int) []Field {
	if i < 0 || i >= len(d.Steps) {
		return nil
	}
	return d.Steps[i].Fields
}

// FieldsBefore counts the fields in all steps preceding step i. Question
// numbering continues across steps using this offset.
func (d Document) FieldsBefore(i int) int {
	if i <= 0 {
		return 0
	}
	if i > len(d.Steps) {
		i = len(d.Steps)
	}
	total := 0
	for _, step := range d.Steps[:i] {
		total += len(step.Fields)
	}
	return total
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	if d.Steps != nil {
		out.Steps = make([]Step, len(d.Steps))
		for i, step := range d.Steps {
			out.Steps[i] = step.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	if s.Fields != nil {
		out.Fields = make([]Field, len(s.Fields))
		for i, field := range s.Fields {
			out.Fields[i] = field.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := f
	if f.Validations != nil {
		v := *f.Validations
		v.MinLength = cloneInt(v.MinLength)
		v.MaxLength = cloneInt(v.MaxLength)
		out.Validations = &v
	}
	if f.Options != nil {
		out.Options = append([]SelectOption(nil), f.Options...)
	}
	out.MinSelected = cloneInt(f.MinSelected)
	out.MaxSelected = cloneInt(f.MaxSelected)
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// Normalize repairs a document in place so that the structural invariants
// hold: a known kind, at least one step, exactly one step for simple forms,
// identifiers on every step and field, unique names within each step, and no
// properties that do not belong to a field's type. Fields of collapsed steps
// are appended to the first step.
func (d *Document) Normalize() {
	if !d.Kind.Valid() {
		d.Kind = KindSimple
	}
	if len(d.Steps) == 0 {
		d.Steps = []Step{NewStep(1)}
	}
	if d.Kind == KindSimple && len(d.Steps) > 1 {
		first := d.Steps[0]
		for _, extra := range d.Steps[1:] {
			first.Fields = append(first.Fields, extra.Fields...)
		}
		d.Steps = []Step{first}
	}
	for i := range d.Steps {
		step := &d.Steps[i]
		if step.ID == "" {
			step.ID = NewID()
		}
		if step.Fields == nil {
			step.Fields = []Field{}
		}
		taken := make(map[string]struct{}, len(step.Fields))
		for j := range step.Fields {
			field := &step.Fields[j]
			field.Normalize()
			field.Name = UniqueName(field.Name, taken)
			taken[field.Name] = struct{}{}
		}
	}
}

// Normalize fills missing identifiers and drops properties foreign to the
// field's type. An existing name is never rewritten.
func (f *Field) Normalize() {
	if f.ID == "" {
		f.ID = NewID()
	}
	if !f.Type.Valid() {
		f.Type = FieldText
	}
	if f.Name == "" {
		f.Name = FieldName(f.Label)
	}
	if f.Type == FieldSelect {
		f.Validations = nil
		return
	}
	if f.Validations.Empty() {
		f.Validations = nil
	} else if f.Validations.Regex != RegexCustom {
		f.Validations.CustomRegex = ""
	}
	f.Options = nil
	f.Multiple = false
	f.MinSelected = nil
	f.MaxSelected = nil
	f.AllowCustom = false
}

// Check reports every structural invariant the document violates, joined
// into one error. A nil result means the document is well formed.
func (d Document) Check() error {
	var errs []error
	if !d.Kind.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind))
	}
	if len(d.Steps) == 0 {
		errs = append(errs, ErrNoSteps)
	}
	if d.Kind == KindSimple && len(d.Steps) > 1 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrStepCount, len(d.Steps)))
	}
	for i, step := range d.Steps {
		seen := make(map[string]struct{}, len(step.Fields))
		for _, field := range step.Fields {
			if err := field.Check(); err != nil {
				errs = append(errs, fmt.Errorf("step %d: field %q: %w", i, field.ID, err))
			}
			if field.Name == "" {
				continue
			}
			if _, dup := seen[field.Name]; dup {
				errs = append(errs, fmt.Errorf("%w: step %d: %q", ErrDuplicateName, i, field.Name))
			}
			seen[field.Name] = struct{}{}
		}
	}
	return errors.Join(errs...)
}

// Check validates a single field definition.
func (f Field) Check() error {
	var errs []error
	if !f.Type.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownFieldType, f.Type))
	}
	if f.Name == "" {
		errs = append(errs, ErrEmptyName)
	}
	if v := f.Validations; v != nil && v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
		errs = append(errs, ErrLengthBounds)
	}
	if f.Type == FieldSelect {
		seen := make(map[string]struct{}, len(f.Options))
		for _, opt := range f.Options {
			if _, dup := seen[opt.Value]; dup {
				errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateOption, opt.Value))
			}
			seen[opt.Value] = struct{}{}
		}
	}
	return errors.Join(errs...)
}

// Warning describes an advisory problem that does not make the document
// invalid but is likely to surprise a respondent.
type Warning struct {
	Step    int    `json:"step"`
	FieldID string `json:"fieldId,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnSelectionBounds     = "selection_bounds"
	WarnEmptyOptions        = "empty_options"
	WarnDuplicateAcrossStep = "duplicate_across_steps"
	WarnInvalidPattern      = "invalid_pattern"
)

// Warnings lists advisory problems: inverted selection bounds, select fields
// without options and names repeated across steps (a flat response keyed by
// name keeps only the later value). Custom patterns that do not compile are
// reported by validation.PatternWarnings.
func (d Document) Warnings() []Warning {
	var out []Warning
	owner := map[string]int{}
	for i, step := range d.Steps {
		for _, field := range step.Fields {
			if field.Type == FieldSelect {
				if len(field.Options) == 0 && !field.AllowCustom {
					out = append(out, Warning{Step: i, FieldID: field.ID, Code: WarnEmptyOptions,
						Message: fmt.Sprintf("field %q has no options", field.Name)})
				}
				if field.MinSelected != nil && field.MaxSelected != nil && *field.MinSelected > *field.MaxSelected {
					out = append(out, Warning{Step: i, FieldID: field.ID, Code: WarnSelectionBounds,
						Message: fmt.Sprintf("field %q: minSelected %d > maxSelected %d", field.Name, *field.MinSelected, *field.MaxSelected)})
				}
			}
			if prev, ok := owner[field.Name]; ok && prev != i {
				out = append(out, Warning{Step: i, FieldID: field.ID, Code: WarnDuplicateAcrossStep,
					Message: fmt.Sprintf("field %q also appears in step %d", field.Name, prev)})
			}
			owner[field.Name] = i
		}
	}
	return out
}

// OneFieldPerStep returns a multi-step copy of the document with every field
// moved into its own step. Step titles come from the field labels. A document
// without fields yields a single empty step.
func (d Document) OneFieldPerStep() Document {
	out := d.Clone()
	out.Kind = KindMultiStep
	out.Steps = nil
	for _, step := range d.Clone().Steps {
		for _, field := range step.Fields {
			position := len(out.Steps) + 1
			title := field.Label
			if title == "" {
				title = StepTitle(position)
			}
			out.Steps = append(out.Steps, Step{
				ID:     "step-" + strconv.Itoa(position),
				Title:  title,
				Fields: []Field{field},
			})
		}
	}
	if len(out.Steps) == 0 {
		out.Steps = []Step{{ID: "step-1", Title: StepTitle(1), Fields: []Field{}}}
	}
	return out
}
