package lesson

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const templateSchemaURL = "schema://lesson-template.json"

// templateSchema describes the lesson template document.
var templateSchema = map[string]any{
	"type": "object",
	"additionalProperties": map[string]any{
		"type":     "array",
		"minItems": 1,
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":    map[string]any{"type": "string"},
				"level": map[string]any{
					"type": "string",
					"enum": []any{"easy", "medium", "hard", "Easy", "Medium", "Hard"},
				},
				"content": map[string]any{
					"type":      "string",
					"minLength": 1,
				},
				"solution": map[string]any{"type": []any{"string", "number"}},
				"hints": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
				"solution_feedback": map[string]any{"type": []any{"string", "null"}},
				"title":             map[string]any{"type": "string"},
			},
			"required": []any{"level", "content", "solution"},
		},
	},
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// ValidateTemplate checks a raw template document against the template schema.
func ValidateTemplate(data []byte) error {
	compileOnce.Do(func() {
		// The compiler wants plain decoded JSON values.
		raw, err := json.Marshal(templateSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(raw, &def); err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(templateSchemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(templateSchemaURL)
	})
	if compileErr != nil {
		return fmt.Errorf("compile template schema: %w", compileErr)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return &DataIntegrityError{Op: "validate template", Reason: "invalid JSON", Err: err}
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return &DataIntegrityError{Op: "validate template", Reason: "schema validation failed", Err: err}
	}
	return nil
}
