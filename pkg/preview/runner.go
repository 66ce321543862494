// Package preview walks a form in the terminal the way a respondent would:
// cover screen, then each step with continuous question numbers, blocking on
// invalid answers, and finally printing the collected response.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/goliatone/go-formbuilder/internal/logging"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/navigation"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

const (
	noneOption  = "(none)"
	otherOption = "Other..."
)

// Runner drives a form through a PromptDriver.
type Runner struct {
	driver         PromptDriver
	outputFormat   OutputFormat
	theme          Theme
	validationOpts []validation.Option
	cover          *bool
	prefill        map[string]any
	logger         *slog.Logger
}

// New constructs a runner with the survey driver and JSON output.
func New(options ...Option) *Runner {
	r := &Runner{
		driver:       NewSurveyDriver(nil),
		outputFormat: OutputFormatJSON,
		prefill:      map[string]any{},
		logger:       logging.Discard(),
		theme:        Theme{StepPrefix: "==", InfoPrefix: "", ErrorPrefix: "!"},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// ContentType reports the serialization format used by Run.
func (r *Runner) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Run collects a response and serializes it.
func (r *Runner) Run(ctx context.Context, doc model.Document) ([]byte, error) {
	values, err := r.Collect(ctx, doc)
	if err != nil {
		return nil, err
	}
	return r.serialize(doc, values)
}

// Collect prompts for every reachable field and returns the answers keyed by
// field name. Each answer is validated as it is given; Next is then used to
// gate leaving the step, so the flow follows the same rules as the web
// preview.
func (r *Runner) Collect(ctx context.Context, doc model.Document) (map[string]any, error) {
	if ctx == nil {
		return nil, errors.New("preview: context is required")
	}
	if r.driver == nil {
		return nil, ErrNoDriver
	}
	doc = doc.Clone()
	doc.Normalize()

	compile := func(fields []model.Field) *validation.Validator {
		return validation.Compile(fields, r.validationOpts...)
	}
	navOpts := []navigation.Option{navigation.WithCompiler(compile)}
	if r.cover != nil {
		navOpts = append(navOpts, navigation.WithCover(*r.cover))
	}
	nav := navigation.New(&doc, navOpts...)

	values := validation.DefaultValues(doc.Fields())
	for k, v := range r.prefill {
		values[k] = v
	}

	if nav.CoverEnabled() {
		nav.Goto(navigation.CoverIndex)
	}
	if nav.AtCover() {
		if err := r.showCover(ctx, doc); err != nil {
			return nil, err
		}
		nav.Next(values)
	}

	total := doc.LastIndex() + 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step := nav.Step()
		if step == nil {
			return nil, fmt.Errorf("preview: no step at %d", nav.Current())
		}
		if total > 1 {
			r.info(ctx, fmt.Sprintf("%s Step %d/%d: %s", r.theme.StepPrefix, nav.Current()+1, total, step.Title))
		}
		v := compile(step.Fields)
		for i, field := range step.Fields {
			if err := r.promptField(ctx, field, nav.QuestionNumber(i), v, values); err != nil {
				return nil, err
			}
		}

		out := nav.Next(values)
		for !out.Moved && !out.Submit {
			// Only reachable when prefilled values were invalid.
			field, ok := fieldByName(step.Fields, out.Focus)
			if !ok {
				return nil, fmt.Errorf("preview: step %d blocked on unknown field %q", out.From, out.Focus)
			}
			idx := indexOfField(step.Fields, field.Name)
			if err := r.promptField(ctx, field, nav.QuestionNumber(idx), v, values); err != nil {
				return nil, err
			}
			out = nav.Next(values)
		}
		if out.Submit {
			break
		}
	}

	if doc.InfoBottom != "" {
		r.info(ctx, r.theme.InfoPrefix+doc.InfoBottom)
	}
	return values, nil
}

func (r *Runner) showCover(ctx context.Context, doc model.Document) error {
	r.info(ctx, doc.Title)
	if doc.Description != "" {
		r.info(ctx, doc.Description)
	}
	if doc.InfoTop != "" {
		r.info(ctx, r.theme.InfoPrefix+doc.InfoTop)
	}
	start, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Start?", Default: true})
	if err != nil {
		return err
	}
	if !start {
		return ErrAborted
	}
	return nil
}

func (r *Runner) info(ctx context.Context, msg string) {
	if err := r.driver.Info(ctx, msg); err != nil {
		r.logger.Debug("preview: info failed", "error", err)
	}
}

// promptField asks until the answer passes the field's rules.
func (r *Runner) promptField(ctx context.Context, field model.Field, number int, v *validation.Validator, values map[string]any) error {
	label := fmt.Sprintf("%d. %s", number, displayLabel(field))
	if field.Required {
		label += " *"
	}
	for {
		answer, err := r.ask(ctx, field, label, values[field.Name])
		if err != nil {
			return err
		}
		values[field.Name] = answer
		res := v.ValidateFields(values, []string{field.Name})
		if res.Valid {
			return nil
		}
		msg, _ := res.Error(field.Name)
		r.info(ctx, fmt.Sprintf("%s %s", r.theme.ErrorPrefix, msg))
	}
}

func (r *Runner) ask(ctx context.Context, field model.Field, label string, current any) (any, error) {
	switch field.Type {
	case model.FieldSelect:
		if field.Multiple {
			return r.askMulti(ctx, field, label, current)
		}
		return r.askSelect(ctx, field, label, current)
	case model.FieldTextArea:
		def, _ := current.(string)
		return r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: def, Help: field.HelpText})
	case model.FieldDate:
		def, _ := current.(string)
		help := field.HelpText
		if help == "" {
			help = "YYYY-MM-DD"
		}
		return r.driver.Input(ctx, InputConfig{Message: label, Default: def, Help: help})
	default:
		def, _ := current.(string)
		if def == "" {
			def = field.Placeholder
		}
		return r.driver.Input(ctx, InputConfig{Message: label, Default: def, Help: field.HelpText})
	}
}

func (r *Runner) askSelect(ctx context.Context, field model.Field, label string, current any) (any, error) {
	options := optionLabels(field)
	if !field.Required {
		options = append([]string{noneOption}, options...)
	}
	if field.AllowCustom {
		options = append(options, otherOption)
	}
	def := -1
	if s, ok := current.(string); ok && s != "" {
		def = indexOf(options, labelFor(field, s))
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: label, Options: options, DefaultIndex: def, Help: field.HelpText})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(options) {
		return "", nil
	}
	switch options[idx] {
	case noneOption:
		return "", nil
	case otherOption:
		return r.driver.Input(ctx, InputConfig{Message: label + " (other)"})
	}
	return valueFor(field, options[idx]), nil
}

func (r *Runner) askMulti(ctx context.Context, field model.Field, label string, current any) (any, error) {
	options := optionLabels(field)
	var defaults []int
	if list, ok := current.([]string); ok {
		for _, v := range list {
			if i := indexOf(options, labelFor(field, v)); i >= 0 {
				defaults = append(defaults, i)
			}
		}
	}
	indices, err := r.driver.MultiSelect(ctx, SelectConfig{Message: label, Options: options, Defaults: defaults, Help: field.HelpText})
	if err != nil {
		return nil, err
	}
	selected := make([]string, 0, len(indices))
	for _, l := range defaultsFromIndices(options, indices) {
		selected = append(selected, valueFor(field, l))
	}
	if field.AllowCustom {
		extra, err := r.driver.Input(ctx, InputConfig{Message: label + " (other, comma separated)"})
		if err != nil {
			return nil, err
		}
		for _, v := range strings.Split(extra, ",") {
			if v = strings.TrimSpace(v); v != "" {
				selected = append(selected, v)
			}
		}
	}
	return selected, nil
}

func (r *Runner) serialize(doc model.Document, values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		form := url.Values{}
		for _, field := range doc.Fields() {
			switch v := values[field.Name].(type) {
			case []string:
				for _, item := range v {
					form.Add(field.Name+"[]", item)
				}
			case nil:
			default:
				form.Set(field.Name, fmt.Sprint(v))
			}
		}
		return []byte(form.Encode()), nil
	case OutputFormatPrettyText:
		var b strings.Builder
		for _, field := range doc.Fields() {
			v := values[field.Name]
			if list, ok := v.([]string); ok {
				v = strings.Join(list, ", ")
			}
			fmt.Fprintf(&b, "%s: %v\n", displayLabel(field), v)
		}
		return []byte(b.String()), nil
	default:
		return json.Marshal(values)
	}
}

func displayLabel(field model.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func optionLabels(field model.Field) []string {
	out := make([]string, len(field.Options))
	for i, opt := range field.Options {
		out[i] = opt.Label
	}
	return out
}

func labelFor(field model.Field, value string) string {
	for _, opt := range field.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

func valueFor(field model.Field, label string) string {
	for _, opt := range field.Options {
		if opt.Label == label {
			return opt.Value
		}
	}
	return label
}

func fieldByName(fields []model.Field, name string) (model.Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return model.Field{}, false
}

func indexOfField(fields []model.Field, name string) int {
	for i, f := range fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
