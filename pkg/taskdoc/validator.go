package taskdoc

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents a field-level validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// taskEntrySchema constrains one task entry in an import document. The
// limits mirror the task service's own field constraints.
var taskEntrySchema = map[string]interface{}{
	"type":                 "object",
	"required":             []interface{}{"title"},
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"title": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
			"maxLength": 200,
		},
		"description": map[string]interface{}{
			"type":      "string",
			"maxLength": 1000,
		},
		"priority": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"alta", "media", "baja"},
		},
		"due_date": map[string]interface{}{
			"type":   "string",
			"format": "date-time",
		},
		"assigned_to": map[string]interface{}{
			"type":    "integer",
			"minimum": 1,
		},
	},
}

// Validator validates task import documents
type Validator struct{}

// NewValidator creates a new document validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate performs comprehensive validation on an import document
func (v *Validator) Validate(doc *Document) []ValidationError {
	var errors []ValidationError

	if doc.Version != DocumentVersion {
		errors = append(errors, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("Unsupported document version (must be '%s')", DocumentVersion),
		})
	}

	if doc.Kind != DocumentKind {
		errors = append(errors, ValidationError{
			Field:   "kind",
			Message: fmt.Sprintf("Unsupported document kind (must be '%s')", DocumentKind),
		})
	}

	if len(doc.Spec.Tasks) == 0 {
		errors = append(errors, ValidationError{
			Field:   "spec.tasks",
			Message: "At least one task is required",
		})
		return errors
	}

	for i, task := range doc.Spec.Tasks {
		errors = append(errors, v.validateTask(task, fmt.Sprintf("spec.tasks[%d]", i))...)
	}

	return errors
}

// validateTask validates a single task entry against the JSON schema
func (v *Validator) validateTask(entry TaskEntry, fieldPath string) []ValidationError {
	var errors []ValidationError

	schemaLoader := gojsonschema.NewGoLoader(taskEntrySchema)
	entryLoader := gojsonschema.NewGoLoader(entry)

	result, err := gojsonschema.Validate(schemaLoader, entryLoader)
	if err != nil {
		errors = append(errors, ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("Failed to validate task entry: %v", err),
		})
		return errors
	}

	if !result.Valid() {
		for _, validationErr := range result.Errors() {
			fieldName := validationErr.Field()
			if fieldName == "(root)" {
				fieldName = fieldPath
			} else {
				fieldName = strings.TrimPrefix(fieldName, "(root).")
				fieldName = fieldPath + "." + fieldName
			}

			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: validationErr.Description(),
			})
		}
	}

	return errors
}
