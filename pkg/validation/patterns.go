package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Pattern is a predefined textual format.
type Pattern struct {
	Kind       model.RegexKind
	Regexp     *regexp.Regexp
	MessageKey string
	Example    string
}

var predefined = map[model.RegexKind]Pattern{
	model.RegexPhone: {
		Kind:       model.RegexPhone,
		Regexp:     regexp.MustCompile(`^[0-9]{10}$`),
		MessageKey: MsgPhone,
		Example:    "5512345678",
	},
	model.RegexEmail: {
		Kind:       model.RegexEmail,
		Regexp:     regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`),
		MessageKey: MsgEmail,
		Example:    "user@example.com",
	},
	model.RegexCURP: {
		Kind:       model.RegexCURP,
		Regexp:     regexp.MustCompile(`^[A-Z]{4}[0-9]{6}[HM][A-Z]{5}[0-9A-Z][0-9]$`),
		MessageKey: MsgCURP,
		Example:    "ABCD123456HDFRRR09",
	},
}

// Predefined returns the built-in pattern for kind.
func Predefined(kind model.RegexKind) (Pattern, bool) {
	p, ok := predefined[kind]
	return p, ok
}

// PredefinedKinds lists the built-in pattern kinds in display order.
func PredefinedKinds() []model.RegexKind {
	return []model.RegexKind{model.RegexPhone, model.RegexEmail, model.RegexCURP}
}

var (
	ErrEmptyPattern = errors.New("validation: empty pattern")
	ErrPatternFlags = errors.New("validation: unsupported pattern flag")

	slashedPattern = regexp.MustCompile(`(?i)^/(.+)/([a-z]*)$`)
)

// CompileCustom compiles a user supplied pattern. Both a bare expression and
// the delimited form "/body/flags" are accepted. The i, m and s flags map to
// the equivalent inline flags; g, y, d, u and v only affect matching state
// and are ignored. Matching is unanchored, so authors anchor explicitly.
func CompileCustom(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, ErrEmptyPattern
	}
	body := expr
	if m := slashedPattern.FindStringSubmatch(expr); m != nil {
		body = m[1]
		inline, err := inlineFlags(m[2])
		if err != nil {
			return nil, err
		}
		if inline != "" {
			body = "(?" + inline + ")" + body
		}
	}
	re, err := regexp.Compile(body)
	if err != nil {
		return nil, fmt.Errorf("validation: compile pattern: %w", err)
	}
	return re, nil
}

func inlineFlags(flags string) (string, error) {
	var inline strings.Builder
	seen := map[rune]bool{}
	for _, r := range flags {
		if seen[r] {
			return "", fmt.Errorf("%w: duplicate %q", ErrPatternFlags, r)
		}
		seen[r] = true
		switch r {
		case 'i', 'm', 's':
			inline.WriteRune(r)
		case 'g', 'y', 'd', 'u', 'v':
		default:
			return "", fmt.Errorf("%w: %q", ErrPatternFlags, r)
		}
	}
	return inline.String(), nil
}

// PatternWarnings reports custom patterns that do not compile. Such fields
// are saved and validate without a pattern rule.
func PatternWarnings(doc model.Document) []model.Warning {
	var out []model.Warning
	for i, step := range doc.Steps {
		for _, field := range step.Fields {
			v := field.Validations
			if field.Type == model.FieldSelect || v == nil || v.Regex != model.RegexCustom || v.CustomRegex == "" {
				continue
			}
			if _, err := CompileCustom(v.CustomRegex); err != nil {
				out = append(out, model.Warning{Step: i, FieldID: field.ID, Code: model.WarnInvalidPattern,
					Message: fmt.Sprintf("field %q: pattern ignored: %v", field.Name, err)})
			}
		}
	}
	return out
}
