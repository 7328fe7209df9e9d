package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// RecommendationRequestSchema checks the request envelope only. Field-level
// coercion of the profile and candidates is left to the normalizers, which
// degrade bad values instead of rejecting them.
const RecommendationRequestSchema = `{
  "type": "object",
  "required": ["student_profile"],
  "properties": {
    "student_profile": { "type": "object" },
    "programs": {
      "type": ["array", "null"],
      "items": {}
    },
    "limit": { "type": ["integer", "null"] }
  }
}`

// ComparisonRequestSchema checks both sides of a comparison request.
const ComparisonRequestSchema = `{
  "type": "object",
  "required": ["programA", "programB"],
  "properties": {
    "programA": { "$ref": "#/definitions/scored" },
    "programB": { "$ref": "#/definitions/scored" }
  },
  "definitions": {
    "scored": {
      "type": "object",
      "required": ["program_id", "total_score", "criterion_scores"],
      "properties": {
        "program_id": { "type": "integer" },
        "total_score": { "type": "number", "minimum": 0, "maximum": 1 },
        "criterion_scores": {
          "type": "object",
          "additionalProperties": { "type": "number", "minimum": 0, "maximum": 1 }
        },
        "tuition_fee": { "type": ["number", "null"], "minimum": 0 },
        "duration_months": { "type": ["integer", "null"], "minimum": 1 },
        "rating": { "type": ["number", "null"], "minimum": 0, "maximum": 5 }
      }
    }
  }
}`

// Validator holds a compiled JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewValidator compiles schemaJSON.
func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// MustValidator is NewValidator for package-level schemas known to compile.
func MustValidator(schemaJSON string) *Validator {
	v, err := NewValidator(schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateJSON validates a raw JSON document. A document that is not JSON at
// all yields a single INVALID_JSON error.
func (v *Validator) ValidateJSON(doc []byte) *ValidationResult {
	return v.validate(gojsonschema.NewBytesLoader(doc))
}

func (v *Validator) validate(loader gojsonschema.JSONLoader) *ValidationResult {
	result, err := v.schema.Validate(loader)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "INVALID_JSON",
			}},
		}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return &ValidationResult{Valid: result.Valid(), Errors: errs}
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// FieldMessages maps each failing field to its first message.
func (vr *ValidationResult) FieldMessages() map[string]string {
	out := make(map[string]string, len(vr.Errors))
	for _, err := range vr.Errors {
		if _, seen := out[err.Field]; !seen {
			out[err.Field] = err.Message
		}
	}
	return out
}
