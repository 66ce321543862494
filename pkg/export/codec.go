package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Format selects the encoding of exported artifacts.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for formats other than json and yaml.
var ErrUnknownFormat = errors.New("export: unknown format")

// ParseFormat accepts json, yaml and yml in any case.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// Encode serializes v. JSON output is indented. YAML output goes through
// JSON first so types with custom JSON marshalling (OpenAPI documents, for
// one) keep their shape.
func Encode(v any, format Format) ([]byte, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: encode json: %w", err)
	}
	switch format {
	case FormatJSON, "":
		return append(payload, '\n'), nil
	case FormatYAML:
		var generic any
		if err := json.Unmarshal(payload, &generic); err != nil {
			return nil, fmt.Errorf("export: re-decode json: %w", err)
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return nil, fmt.Errorf("export: encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("export: encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// DecodeDocument reads a document in either JSON or YAML; input starting
// with "{" is treated as JSON. The result is normalized and checked.
func DecodeDocument(data []byte) (model.Document, error) {
	var doc model.Document
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return model.Document{}, errors.New("export: empty document")
	}
	var err error
	if trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &doc)
	} else {
		err = yaml.Unmarshal(trimmed, &doc)
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("export: decode document: %w", err)
	}
	doc.Normalize()
	if err := doc.Check(); err != nil {
		return model.Document{}, fmt.Errorf("export: invalid document: %w", err)
	}
	return doc, nil
}
