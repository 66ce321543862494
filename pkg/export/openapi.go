// Package export turns form documents into artifacts consumed outside the
// builder: an OpenAPI 3 description of the response payload and portable
// JSON or YAML encodings of the document itself.
package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

// ResponseSchemaName is the component name of the response payload schema.
const ResponseSchemaName = "FormResponse"

const datePattern = `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`

// ResponseSchema describes the flat name to value payload accepted by the
// document: strings for textual fields and single selects, string arrays for
// multi selects. Optional fields also accept the empty value.
func ResponseSchema(doc model.Document) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	schema.Title = doc.Title
	schema.Description = doc.Description
	no := false
	schema.AdditionalProperties = openapi3.AdditionalProperties{Has: &no}

	required := []string{}
	seen := map[string]bool{}
	for _, field := range doc.Fields() {
		schema.WithProperty(field.Name, fieldSchema(field))
		if field.Required && !seen[field.Name] {
			required = append(required, field.Name)
		}
		seen[field.Name] = true
	}
	schema.Required = required
	return schema
}

func fieldSchema(field model.Field) *openapi3.Schema {
	switch field.Type {
	case model.FieldSelect:
		if field.Multiple {
			return multiSchema(field)
		}
		return selectSchema(field)
	case model.FieldDate:
		s := openapi3.NewStringSchema().WithFormat("date").WithPattern(datePattern)
		s.Description = field.Label
		return optional(field, s)
	default:
		return optional(field, textSchema(field))
	}
}

func textSchema(field model.Field) *openapi3.Schema {
	s := openapi3.NewStringSchema()
	s.Description = field.Label
	if field.Required {
		s.WithMinLength(1)
	}
	v := field.Validations
	if v == nil {
		return s
	}
	if v.MinLength != nil && *v.MinLength > 0 {
		s.WithMinLength(int64(*v.MinLength))
	}
	if v.MaxLength != nil {
		s.WithMaxLength(int64(*v.MaxLength))
	}
	switch v.Regex {
	case model.RegexCustom:
		if re, err := validation.CompileCustom(v.CustomRegex); err == nil {
			s.WithPattern(re.String())
		}
	case model.RegexNone:
	default:
		if p, ok := validation.Predefined(v.Regex); ok {
			s.WithPattern(p.Regexp.String())
			s.Example = p.Example
		}
	}
	return s
}

// optional lets a non-required constrained field also be submitted empty.
func optional(field model.Field, s *openapi3.Schema) *openapi3.Schema {
	constrained := s.Pattern != "" || s.MinLength > 0 || s.MaxLength != nil
	if field.Required || !constrained {
		return s
	}
	return &openapi3.Schema{
		Description: s.Description,
		AnyOf: openapi3.SchemaRefs{
			openapi3.NewStringSchema().WithMaxLength(0).NewRef(),
			s.NewRef(),
		},
	}
}

func optionValues(field model.Field) []any {
	out := make([]any, 0, len(field.Options))
	for _, opt := range field.Options {
		out = append(out, opt.Value)
	}
	return out
}

func selectSchema(field model.Field) *openapi3.Schema {
	s := openapi3.NewStringSchema()
	s.Description = field.Label
	if field.AllowCustom {
		if field.Required {
			s.WithMinLength(1)
		}
		return s
	}
	values := optionValues(field)
	if !field.Required {
		values = append(values, "")
	}
	return s.WithEnum(values...)
}

func multiSchema(field model.Field) *openapi3.Schema {
	item := openapi3.NewStringSchema()
	if !field.AllowCustom {
		item.WithEnum(optionValues(field)...)
	}
	s := openapi3.NewArraySchema().WithItems(item)
	s.Description = field.Label
	switch {
	case field.MinSelected != nil && *field.MinSelected > 0:
		s.WithMinItems(int64(*field.MinSelected))
	case field.Required:
		s.WithMinItems(1)
	}
	if field.MaxSelected != nil {
		s.WithMaxItems(int64(*field.MaxSelected))
	}
	return s
}

// Spec builds an OpenAPI 3 document with a single operation that submits a
// response to the form stored under id. The result is validated before it is
// returned.
func Spec(ctx context.Context, id string, doc model.Document) (*openapi3.T, error) {
	title := doc.Title
	if title == "" {
		title = model.DefaultTitle
	}

	body := openapi3.NewRequestBody().
		WithRequired(true).
		WithDescription("Flat map of field name to submitted value.").
		WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/"+ResponseSchemaName, nil))

	errorsSchema := openapi3.NewObjectSchema().
		WithProperty("valid", openapi3.NewBoolSchema()).
		WithProperty("errors", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema()))

	responses := openapi3.NewResponses(
		openapi3.WithStatus(201, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Response accepted")}),
		openapi3.WithStatus(422, &openapi3.ResponseRef{Value: openapi3.NewResponse().
			WithDescription("One or more fields are invalid").
			WithJSONSchema(errorsSchema)}),
	)

	op := &openapi3.Operation{
		OperationID: "submitResponse",
		Summary:     "Submit a response to " + title,
		Parameters: openapi3.Parameters{
			{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema())},
		},
		RequestBody: &openapi3.RequestBodyRef{Value: body},
		Responses:   responses,
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       title,
			Description: doc.Description,
			Version:     "1.0.0",
		},
		Paths: openapi3.NewPaths(openapi3.WithPath("/forms/{id}/responses", &openapi3.PathItem{Post: op})),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{ResponseSchemaName: ResponseSchema(doc).NewRef()},
		},
	}
	if id != "" {
		spec.Info.Extensions = map[string]any{"x-form-id": id}
	}
	if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("export: validate openapi: %w", err)
	}
	return spec, nil
}

// CheckResponse validates values against the exported response schema. It is
// the schema counterpart of validation.Validator and is used to keep both in
// agreement.
func CheckResponse(doc model.Document, values map[string]any) error {
	// Round trip so []string and other typed values look like decoded JSON.
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("export: encode response: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("export: decode response: %w", err)
	}
	return ResponseSchema(doc).VisitJSON(generic, openapi3.MultiErrors())
}
