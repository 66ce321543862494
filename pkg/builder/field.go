package builder

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// PrepareField cleans a field definition coming from an editor and rejects
// ones that cannot be saved. Option labels and values are trimmed and
// incomplete options dropped. Selects need at least one option with unique
// values; bounds must not be inverted. Copy is sanitized. Custom patterns are
// stored as typed: one that does not compile validates nothing.
func PrepareField(field model.Field) (model.Field, error) {
	out := field.Clone()
	out.Label = SanitizeText(out.Label)
	out.Placeholder = SanitizeText(out.Placeholder)
	out.HelpText = SanitizeText(out.HelpText)

	if !out.Type.Valid() {
		return model.Field{}, fmt.Errorf("%w: %q", model.ErrUnknownFieldType, out.Type)
	}

	if out.Type != model.FieldSelect {
		if v := out.Validations; v != nil {
			if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
				return model.Field{}, model.ErrLengthBounds
			}
		}
		return out, nil
	}

	clean := make([]model.SelectOption, 0, len(out.Options))
	seen := make(map[string]struct{}, len(out.Options))
	for _, opt := range out.Options {
		opt.Label = SanitizeText(strings.TrimSpace(opt.Label))
		opt.Value = strings.TrimSpace(opt.Value)
		if opt.Label == "" || opt.Value == "" {
			continue
		}
		if _, dup := seen[opt.Value]; dup {
			return model.Field{}, fmt.Errorf("%w: %q", model.ErrDuplicateOption, opt.Value)
		}
		seen[opt.Value] = struct{}{}
		clean = append(clean, opt)
	}
	if len(clean) == 0 {
		return model.Field{}, model.ErrNoOptions
	}
	out.Options = clean
	if !out.Multiple {
		out.MinSelected = nil
		out.MaxSelected = nil
	} else if out.MinSelected != nil && out.MaxSelected != nil && *out.MinSelected > *out.MaxSelected {
		return model.Field{}, model.ErrSelectionBounds
	}
	return out, nil
}
