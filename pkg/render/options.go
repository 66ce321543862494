package render

import (
	theme "github.com/goliatone/go-theme"
)

// AllSteps renders every visible step at once.
const AllSteps = -1

// RenderOptions describe per-request data that renderers can use to customise
// their output without mutating the document.
type RenderOptions struct {
	// Theme carries the resolved tokens, CSS variables and partial overrides.
	// A nil theme renders unstyled markup.
	Theme *theme.RendererConfig
	// Action is the submission URL. Empty keeps the form on the current page.
	Action string
	// Step selects a single step by index. AllSteps renders the whole form.
	Step int
	// Values pre-populates controls keyed by field name. Multiple selects take
	// a []string or []any.
	Values map[string]any
	// Errors surfaces validation feedback keyed by field name.
	Errors map[string][]string
	// FormErrors are shown above the fields.
	FormErrors []string
	// Hidden inputs are emitted in name order.
	Hidden []HiddenField
	// NoCover skips the cover block even when the document has a background.
	NoCover bool
}

// DefaultOptions renders the whole form without values.
func DefaultOptions() RenderOptions {
	return RenderOptions{Step: AllSteps}
}
