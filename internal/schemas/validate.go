// Package schemas provides JSON Schema validation for lookup responses and emitted results.
package schemas

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var files embed.FS

// CollectionResultFile is the embedded schema for a serialised CollectionResult.
const CollectionResultFile = "collection_result.schema.json"

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Name    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Name, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// Schema is a compiled JSON Schema. It is safe for concurrent use.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// Compile compiles schema source text.
func Compile(name, source string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		return nil, &SchemaLoadError{Name: name, Message: "invalid schema", Cause: err}
	}
	return &Schema{name: name, schema: s}, nil
}

// Source returns the text of an embedded schema file.
func Source(file string) (string, error) {
	data, err := files.ReadFile(file)
	if err != nil {
		return "", &SchemaLoadError{Name: file, Message: "not embedded", Cause: err}
	}
	return string(data), nil
}

// MustSource is Source for package-level configuration tables.
func MustSource(file string) string {
	s, err := Source(file)
	if err != nil {
		panic(err)
	}
	return s
}

// Load compiles one of the embedded schema files.
func Load(file string) (*Schema, error) {
	src, err := Source(file)
	if err != nil {
		return nil, err
	}
	return Compile(file, src)
}

// Validate checks a JSON document against the schema.
func (s *Schema) Validate(document []byte) error {
	return s.validate(gojsonschema.NewBytesLoader(document))
}

// ValidateValue marshals v to JSON and validates it.
func (s *Schema) ValidateValue(v any) error {
	return s.validate(gojsonschema.NewGoLoader(v))
}

func (s *Schema) validate(loader gojsonschema.JSONLoader) error {
	result, err := s.schema.Validate(loader)
	if err != nil {
		return fmt.Errorf("schema %s: failed to load document: %w", s.name, err)
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
