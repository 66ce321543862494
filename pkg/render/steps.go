package render

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// SelectSteps returns the steps a render covers and the index of the first
// one. AllSteps selects every visible step.
func SelectSteps(doc model.Document, step int) (int, []model.Step, error) {
	visible := doc.VisibleSteps()
	if step == AllSteps {
		return 0, visible, nil
	}
	if step < 0 || step >= len(visible) {
		return 0, nil, fmt.Errorf("%w: %d of %d", ErrStepRange, step, len(visible))
	}
	return step, visible[step : step+1], nil
}

// ValueText formats a prefilled value for a single-value control.
func ValueText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		return strings.Join(ValueList(val), ", ")
	default:
		return fmt.Sprint(val)
	}
}

// ValueList formats a prefilled value for a multiple select.
func ValueList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return []string{fmt.Sprint(val)}
	}
}
