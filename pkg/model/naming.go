package model

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var nonSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a label into the kebab-case identifier used as a field
// name. Runs of characters outside [a-z0-9] collapse into a single dash and
// leading or trailing dashes are trimmed, so the result may be empty.
func Slugify(label string) string {
	lower := strings.ToLower(label)
	return strings.Trim(nonSlugPattern.ReplaceAllString(lower, "-"), "-")
}

// NewID mints a short random identifier for steps and fields.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// NewDocumentID mints the identifier assigned to newly stored documents.
func NewDocumentID() string {
	return uuid.NewString()
}

// UniqueName returns base when it is not taken, otherwise base suffixed with
// the first free counter starting at 2.
func UniqueName(base string, taken map[string]struct{}) string {
	if _, exists := taken[base]; !exists {
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
	}
}

// FieldName derives the stable name for a new field. Labels without any
// slug characters fall back to a generated identifier.
func FieldName(label string) string {
	if slug := Slugify(label); slug != "" {
		return slug
	}
	return NewID()
}

func trimmed(value string) string {
	return strings.TrimSpace(value)
}
