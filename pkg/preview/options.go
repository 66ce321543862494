package preview

import (
	"errors"
	"log/slog"

	"github.com/goliatone/go-formbuilder/pkg/validation"
)

var (
	// ErrAborted signals the respondent quit (Ctrl+C or declined to start).
	ErrAborted = errors.New("preview: aborted")
	// ErrNoDriver is returned when the runner has no prompt driver.
	ErrNoDriver = errors.New("preview: prompt driver is nil")
)

// OutputFormat controls how collected values are serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits application/json payloads.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded payloads.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits one "label: value" line per field.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Theme holds the message prefixes printed by the runner.
type Theme struct {
	StepPrefix  string
	InfoPrefix  string
	ErrorPrefix string
}

// Option configures a Runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutputFormat selects the output serialization format.
func WithOutputFormat(format OutputFormat) Option {
	return func(r *Runner) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Runner) {
		r.theme = theme
	}
}

// WithValidationOptions are used when compiling step validators, for example
// to pick a locale.
func WithValidationOptions(opts ...validation.Option) Option {
	return func(r *Runner) {
		r.validationOpts = append(r.validationOpts, opts...)
	}
}

// WithCover forces the cover screen on or off. By default it is shown when
// the form has a cover image.
func WithCover(enabled bool) Option {
	return func(r *Runner) {
		r.cover = &enabled
	}
}

// WithValues prefills answers used as prompt defaults.
func WithValues(values map[string]any) Option {
	return func(r *Runner) {
		for k, v := range values {
			r.prefill[k] = v
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}
