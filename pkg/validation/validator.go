package validation

import (
	"log/slog"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-formbuilder/internal/logging"
	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Result is the outcome of validating a set of values. Errors maps a field
// name to its first failing message; Invalid lists those names in field
// order.
type Result struct {
	Valid   bool              `json:"valid"`
	Errors  map[string]string `json:"errors,omitempty"`
	Invalid []string          `json:"invalid,omitempty"`
}

// Error returns the message recorded for name, if any.
func (r Result) Error(name string) (string, bool) {
	msg, ok := r.Errors[name]
	return msg, ok
}

// FirstInvalid returns the first failing field in field order.
func (r Result) FirstInvalid() (string, bool) {
	if len(r.Invalid) == 0 {
		return "", false
	}
	return r.Invalid[0], true
}

// Option configures a Validator.
type Option func(*Validator)

// WithTranslator overrides the message source. Defaults to DefaultCatalog.
func WithTranslator(t Translator) Option {
	return func(v *Validator) {
		if t != nil {
			v.translator = t
		}
	}
}

// WithLocale selects the message locale.
func WithLocale(locale string) Option {
	return func(v *Validator) {
		if locale != "" {
			v.locale = locale
		}
	}
}

// WithLogger receives notices about rules that could not be compiled.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// Validator checks value maps against compiled field rules. It is immutable
// once compiled and safe for concurrent use.
type Validator struct {
	rules      []rule
	index      map[string]int
	translator Translator
	locale     string
	logger     *slog.Logger
}

type ruleKind int

const (
	ruleText ruleKind = iota
	ruleDate
	ruleSelect
	ruleMulti
)

type rule struct {
	name        string
	kind        ruleKind
	required    bool
	minLength   *int
	maxLength   *int
	pattern     *regexp.Regexp
	patternKey  string
	options     map[string]struct{}
	allowCustom bool
	minSelected *int
	maxSelected *int
}

type failure struct {
	key    string
	params map[string]any
}

// Compile turns field definitions into a Validator. Compilation never fails:
// a custom pattern that does not compile is skipped and reported to the
// logger. When two fields share a name the later definition wins.
func Compile(fields []model.Field, opts ...Option) *Validator {
	v := &Validator{
		index:      make(map[string]int, len(fields)),
		translator: DefaultCatalog(),
		locale:     DefaultLocale,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	for _, field := range fields {
		r := v.compileField(field)
		if pos, ok := v.index[r.name]; ok {
			v.rules[pos] = r
			continue
		}
		v.index[r.name] = len(v.rules)
		v.rules = append(v.rules, r)
	}
	return v
}

// CompileDocument compiles every reachable field of doc.
func CompileDocument(doc model.Document, opts ...Option) *Validator {
	return Compile(doc.Fields(), opts...)
}

func (v *Validator) compileField(field model.Field) rule {
	r := rule{name: field.Name, required: field.Required}

	switch field.Type {
	case model.FieldSelect:
		r.kind = ruleSelect
		if field.Multiple {
			r.kind = ruleMulti
			r.minSelected = field.MinSelected
			r.maxSelected = field.MaxSelected
		}
		r.allowCustom = field.AllowCustom
		r.options = make(map[string]struct{}, len(field.Options))
		for _, opt := range field.Options {
			r.options[opt.Value] = struct{}{}
		}
		return r
	case model.FieldDate:
		r.kind = ruleDate
	default:
		r.kind = ruleText
	}

	rules := field.Validations
	if rules == nil {
		return r
	}
	if rules.MinLength != nil && *rules.MinLength > 0 {
		r.minLength = rules.MinLength
	}
	if rules.MaxLength != nil && *rules.MaxLength > 0 {
		r.maxLength = rules.MaxLength
	}
	switch rules.Regex {
	case model.RegexNone:
	case model.RegexCustom:
		if rules.CustomRegex == "" {
			break
		}
		re, err := CompileCustom(rules.CustomRegex)
		if err != nil {
			v.logger.Warn("validation: custom pattern skipped", "field", field.Name, "pattern", rules.CustomRegex, "error", err)
			break
		}
		r.pattern = re
		r.patternKey = MsgCustomPattern
	default:
		if p, ok := Predefined(rules.Regex); ok {
			r.pattern = p.Regexp
			r.patternKey = p.MessageKey
		} else {
			v.logger.Warn("validation: unknown pattern kind", "field", field.Name, "regex", rules.Regex)
		}
	}
	return r
}

// Names returns the validated field names in field order.
func (v *Validator) Names() []string {
	out := make([]string, len(v.rules))
	for i, r := range v.rules {
		out[i] = r.name
	}
	return out
}

// Has reports whether a rule exists for name.
func (v *Validator) Has(name string) bool {
	_, ok := v.index[name]
	return ok
}

// Validate checks every rule against values. Missing values count as empty
// and keys without a rule are ignored.
func (v *Validator) Validate(values map[string]any) Result {
	return v.run(values, v.rules)
}

// ValidateFields checks only the named fields, in field order. Unknown names
// are ignored.
func (v *Validator) ValidateFields(values map[string]any, names []string) Result {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}
	subset := make([]rule, 0, len(names))
	for _, r := range v.rules {
		if _, ok := wanted[r.name]; ok {
			subset = append(subset, r)
		}
	}
	return v.run(values, subset)
}

// DefaultValues returns the empty value for each field: an empty list for
// multi-selects and an empty string otherwise.
func DefaultValues(fields []model.Field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		if field.Type == model.FieldSelect && field.Multiple {
			out[field.Name] = []string{}
			continue
		}
		out[field.Name] = ""
	}
	return out
}

func (v *Validator) run(values map[string]any, rules []rule) Result {
	res := Result{Valid: true}
	for _, r := range rules {
		f := r.check(values[r.name])
		if f == nil {
			continue
		}
		if res.Errors == nil {
			res.Errors = map[string]string{}
		}
		res.Valid = false
		res.Errors[r.name] = v.message(f)
		res.Invalid = append(res.Invalid, r.name)
	}
	return res
}

func (v *Validator) message(f *failure) string {
	msg, err := v.translator.Translate(v.locale, f.key, f.params)
	if err == nil && msg != "" {
		return msg
	}
	if v.translator != Translator(DefaultCatalog()) {
		if msg, err := DefaultCatalog().Translate(v.locale, f.key, f.params); err == nil {
			return msg
		}
	}
	return f.key
}

func (r rule) check(value any) *failure {
	switch r.kind {
	case ruleMulti:
		selected, ok := asList(value)
		if !ok {
			return &failure{key: MsgExpectedList}
		}
		return r.checkMulti(selected)
	default:
		text, ok := asText(value)
		if !ok {
			return &failure{key: MsgExpectedText}
		}
		if r.kind == ruleSelect {
			return r.checkSelect(text)
		}
		return r.checkText(text)
	}
}

func (r rule) checkText(value string) *failure {
	if value == "" {
		if r.required {
			return &failure{key: MsgRequired}
		}
		return nil
	}
	length := utf8.RuneCountInString(value)
	if r.minLength != nil && length < *r.minLength {
		return &failure{key: MsgMinLength, params: map[string]any{"min": *r.minLength}}
	}
	if r.maxLength != nil && length > *r.maxLength {
		return &failure{key: MsgMaxLength, params: map[string]any{"max": *r.maxLength}}
	}
	if r.kind == ruleDate {
		if _, err := time.Parse(time.DateOnly, value); err != nil {
			return &failure{key: MsgInvalidDate}
		}
	}
	if r.pattern != nil && !r.pattern.MatchString(value) {
		return &failure{key: r.patternKey}
	}
	return nil
}

func (r rule) checkSelect(value string) *failure {
	if value == "" {
		if r.required {
			return &failure{key: MsgRequired}
		}
		return nil
	}
	if r.allowCustom {
		return nil
	}
	if _, ok := r.options[value]; !ok {
		return &failure{key: MsgInvalidOption}
	}
	return nil
}

// checkMulti treats an explicit minSelected as a cardinality constraint that
// also applies to the empty selection.
func (r rule) checkMulti(selected []string) *failure {
	count := len(selected)
	if count == 0 {
		if r.required {
			return &failure{key: MsgSelectRequired}
		}
		if r.minSelected == nil || *r.minSelected <= 0 {
			return nil
		}
	}
	if r.minSelected != nil && count < *r.minSelected {
		return &failure{key: MsgMinSelected, params: map[string]any{"min": *r.minSelected}}
	}
	if r.maxSelected != nil && count > *r.maxSelected {
		return &failure{key: MsgMaxSelected, params: map[string]any{"max": *r.maxSelected}}
	}
	if r.allowCustom {
		return nil
	}
	for _, value := range selected {
		if _, ok := r.options[value]; !ok {
			return &failure{key: MsgInvalidOptions}
		}
	}
	return nil
}

func asText(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	default:
		return "", false
	}
}

func asList(value any) ([]string, bool) {
	switch v := value.(type) {
	case nil:
		return nil, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
