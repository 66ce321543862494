package testsupport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// MustLoadDocument reads a JSON or YAML fixture into a form document.
// Testing helpers fail the test on error to keep callers concise.
func MustLoadDocument(t *testing.T, path string) model.Document {
	t.Helper()

	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return doc
}

// LoadDocument returns a Document without requiring testing.T, allowing
// callers to wire fixtures in setup functions.
func LoadDocument(path string) (model.Document, error) {
	if path == "" {
		return model.Document{}, errors.New("testsupport: document path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("testsupport: read document: %w", err)
	}
	var doc model.Document
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("testsupport: decode document: %w", err)
	}
	return doc, nil
}

// SampleDocument returns a two step form covering every field type. Each call
// returns a fresh value.
func SampleDocument() model.Document {
	return model.Document{
		Title:       "Event registration",
		Description: "Tell us about yourself",
		Kind:        model.KindMultiStep,
		Steps: []model.Step{
			{
				ID:    "step-contact",
				Title: "Contact",
				Fields: []model.Field{
					{ID: "f-name", Type: model.FieldText, Label: "Full name", Name: "full-name", Required: true,
						Validations: &model.Validations{MinLength: model.IntPtr(3), MaxLength: model.IntPtr(40)}},
					{ID: "f-email", Type: model.FieldText, Label: "Email", Name: "email", Required: true,
						Validations: &model.Validations{Regex: model.RegexEmail}},
					{ID: "f-phone", Type: model.FieldText, Label: "Phone", Name: "phone",
						Validations: &model.Validations{Regex: model.RegexPhone}},
				},
			},
			{
				ID:    "step-details",
				Title: "Details",
				Fields: []model.Field{
					{ID: "f-date", Type: model.FieldDate, Label: "Arrival date", Name: "arrival-date", Required: true},
					{ID: "f-size", Type: model.FieldSelect, Label: "Shirt size", Name: "shirt-size", Required: true,
						Options: []model.SelectOption{{Label: "S", Value: "s"}, {Label: "M", Value: "m"}, {Label: "L", Value: "l"}}},
					{ID: "f-topics", Type: model.FieldSelect, Label: "Topics", Name: "topics", Multiple: true,
						MinSelected: model.IntPtr(1), MaxSelected: model.IntPtr(2),
						Options: []model.SelectOption{{Label: "Go", Value: "go"}, {Label: "Rust", Value: "rust"}, {Label: "Zig", Value: "zig"}}},
					{ID: "f-notes", Type: model.FieldTextArea, Label: "Notes", Name: "notes"},
				},
			},
		},
	}
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
