package model

import "time"

// Kind distinguishes single-page forms from paginated ones.
type Kind string

const (
	KindSimple    Kind = "simple"
	KindMultiStep Kind = "multi-step"
)

// Valid reports whether k is a known form kind.
func (k Kind) Valid() bool {
	return k == KindSimple || k == KindMultiStep
}

// FieldType is the discriminant of the Field union.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldDate     FieldType = "date"
	FieldTextArea FieldType = "textarea"
	FieldSelect   FieldType = "select"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldDate, FieldTextArea, FieldSelect:
		return true
	}
	return false
}

// Textual reports whether values of this type are plain strings that accept
// length and pattern constraints.
func (t FieldType) Textual() bool {
	return t == FieldText || t == FieldTextArea || t == FieldDate
}

// RegexKind selects one of the predefined patterns or a user supplied one.
type RegexKind string

const (
	RegexNone   RegexKind = ""
	RegexPhone  RegexKind = "phone"
	RegexEmail  RegexKind = "email"
	RegexCURP   RegexKind = "curp"
	RegexCustom RegexKind = "custom"
)

// BackgroundMode controls how the cover image is fitted.
type BackgroundMode string

const (
	BackgroundCover   BackgroundMode = "cover"
	BackgroundContain BackgroundMode = "contain"
)

// Tint is the darkening overlay applied over the cover image.
type Tint string

const (
	TintNone   Tint = "none"
	TintLight  Tint = "light"
	TintMedium Tint = "medium"
	TintDark   Tint = "dark"
	TintDarker Tint = "darker"
)

// Tints lists the overlay levels from lightest to darkest.
var Tints = []Tint{TintNone, TintLight, TintMedium, TintDark, TintDarker}

// FontTheme names a heading/body typeface pairing.
type FontTheme string

const (
	FontDefault   FontTheme = "default"
	FontTech      FontTheme = "tech"
	FontEvent     FontTheme = "event"
	FontEditorial FontTheme = "editorial"
	FontPerfume   FontTheme = "perfume"
	FontWedding   FontTheme = "wedding"
	FontElegant   FontTheme = "elegant"
)

// FontThemes lists every supported pairing.
var FontThemes = []FontTheme{FontDefault, FontTech, FontEvent, FontEditorial, FontPerfume, FontWedding, FontElegant}

// Document is a complete form definition. It is the unit of persistence and
// the value observed by autosave.
type Document struct {
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	InfoTop     string     `json:"infoTop,omitempty" yaml:"infoTop,omitempty"`
	InfoBottom  string     `json:"infoBottom,omitempty" yaml:"infoBottom,omitempty"`
	Kind        Kind       `json:"type" yaml:"type"`
	Steps       []Step     `json:"steps" yaml:"steps"`
	Background  Background `json:"background" yaml:"background,omitempty"`
	FontTheme   FontTheme  `json:"fontTheme,omitempty" yaml:"fontTheme,omitempty"`
}

// Background describes the optional cover image.
type Background struct {
	URL  string         `json:"url,omitempty" yaml:"url,omitempty"`
	Mode BackgroundMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	Tint Tint           `json:"tint,omitempty" yaml:"tint,omitempty"`
}

// Enabled reports whether a cover image is configured.
func (b Background) Enabled() bool {
	return trimmed(b.URL) != ""
}

// Step is an ordered group of fields shown together.
type Step struct {
	ID     string  `json:"id" yaml:"id"`
	Title  string  `json:"title" yaml:"title"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Field is a single question. Type selects which of the optional properties
// apply: Validations for textual fields, the selection properties for
// FieldSelect. Normalize clears properties that do not belong to the type.
type Field struct {
	ID          string         `json:"id" yaml:"id"`
	Type        FieldType      `json:"type" yaml:"type"`
	Label       string         `json:"label" yaml:"label"`
	Name        string         `json:"name" yaml:"name"`
	Placeholder string         `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpText    string         `json:"helpText,omitempty" yaml:"helpText,omitempty"`
	Required    bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Validations *Validations   `json:"validations,omitempty" yaml:"validations,omitempty"`
	Options     []SelectOption `json:"options,omitempty" yaml:"options,omitempty"`
	Multiple    bool           `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	MinSelected *int           `json:"minSelected,omitempty" yaml:"minSelected,omitempty"`
	MaxSelected *int           `json:"maxSelected,omitempty" yaml:"maxSelected,omitempty"`
	AllowCustom bool           `json:"allowCustom,omitempty" yaml:"allowCustom,omitempty"`
}

// Validations holds the optional constraints of textual fields. Bounds are
// inclusive.
type Validations struct {
	MinLength   *int      `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength   *int      `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Regex       RegexKind `json:"regex,omitempty" yaml:"regex,omitempty"`
	CustomRegex string    `json:"customRegex,omitempty" yaml:"customRegex,omitempty"`
}

// Empty reports whether no constraint is set.
func (v *Validations) Empty() bool {
	return v == nil || (v.MinLength == nil && v.MaxLength == nil && v.Regex == RegexNone && v.CustomRegex == "")
}

// SelectOption is one choice of a select field. Values are unique within the
// owning field.
type SelectOption struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Meta is the summary record kept next to each stored document.
type Meta struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Kind        Kind      `json:"type"`
	Theme       string    `json:"theme,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	StepsCount  int       `json:"stepsCount"`
	FieldsCount int       `json:"fieldsCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Record pairs a stored document with its identity and summary.
type Record struct {
	ID       string   `json:"id"`
	Document Document `json:"form"`
	Meta     Meta     `json:"meta"`
}

// IntPtr returns a pointer to v. Handy for populating optional bounds.
func IntPtr(v int) *int {
	return &v
}
