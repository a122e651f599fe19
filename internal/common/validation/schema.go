// Package validation checks inbound request bodies against JSON schemas.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// AskSchema describes the body of /api/ask and the answer-query job. A
// missing query reads as empty and gets the empty-query answer.
const AskSchema = `{
  "type": "object",
  "properties": {
    "query":    {"type": "string", "maxLength": 500},
    "subject":  {"type": "string", "maxLength": 200},
    "style":    {"type": "string", "enum": ["simple", "expert"]},
    "provider": {"type": "string", "enum": ["auto", "openai", "gemini"]},
    "coords": {
      "type": "object",
      "required": ["lat", "lon"],
      "properties": {
        "lat": {"type": "number", "minimum": -90, "maximum": 90},
        "lon": {"type": "number", "minimum": -180, "maximum": 180}
      }
    },
    "radius": {"type": "number", "minimum": 0}
  }
}`

// ClickSchema describes the body of /api/click.
const ClickSchema = `{
  "type": "object",
  "required": ["url"],
  "properties": {
    "url": {"type": "string", "minLength": 1, "maxLength": 2048}
  }
}`

// FeedbackSchema describes the body of /api/feedback and the record-feedback job.
const FeedbackSchema = `{
  "type": "object",
  "required": ["query"],
  "properties": {
    "query":   {"type": "string", "minLength": 1, "maxLength": 500},
    "helpful": {"type": "boolean"},
    "reason":  {"type": "string", "maxLength": 1000},
    "entity":  {"type": "string", "maxLength": 300},
    "verdict": {"type": "string", "enum": ["prefer", "avoid"]},
    "url":     {"type": "string", "maxLength": 2048}
  }
}`

// ValidationError lists every schema violation of a document.
type ValidationError struct {
	Fields []FieldError
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator holds a compiled schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// New compiles a schema. It panics on an invalid schema, which is a
// programming error.
func New(schema string) *Validator {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid schema: %v", err))
	}
	return &Validator{schema: compiled}
}

// Validate checks a raw JSON document.
func (v *Validator) Validate(document []byte) error {
	return v.validate(gojsonschema.NewBytesLoader(document))
}

// ValidateValue checks a decoded value such as map[string]interface{}.
func (v *Validator) ValidateValue(document interface{}) error {
	return v.validate(gojsonschema.NewGoLoader(document))
}

func (v *Validator) validate(loader gojsonschema.JSONLoader) error {
	result, err := v.schema.Validate(loader)
	if err != nil {
		return &ValidationError{Fields: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	if result.Valid() {
		return nil
	}
	fields := make([]FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		fields = append(fields, FieldError{Field: desc.Field(), Message: desc.Description()})
	}
	return &ValidationError{Fields: fields}
}
