package learning

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildPatternsJSONSchema returns the JSON-Schema (draft 2020-12 subset)
// the learned-patterns file must satisfy on load.
func BuildPatternsJSONSchema() map[string]any {
	contextProps := map[string]any{
		"line_number":  map[string]any{"type": "integer", "minimum": 0},
		"total_lines":  map[string]any{"type": "integer", "minimum": 0},
		"line_content": map[string]any{"type": "string"},
		"before":       map[string]any{"type": "string"},
		"after":        map[string]any{"type": "string"},
	}
	counterMap := map[string]any{
		"type":                 "object",
		"additionalProperties": map[string]any{"type": "integer", "minimum": 0},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"vendor_patterns": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":       "object",
						"properties": contextProps,
						"required":   []string{"line_number", "total_lines", "line_content"},
					},
				},
			},
			"amount_contexts":  counterMap,
			"date_formats":     counterMap,
			"vendor_frequency": counterMap,
		},
		"required": []string{"vendor_patterns", "amount_contexts", "date_formats"},
	}
}

// BuildCorrectionsJSONSchema returns the schema for the corrections log file.
func BuildCorrectionsJSONSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timestamp": map[string]any{"type": "string"},
				"raw_text":  map[string]any{"type": "string"},
				"extracted": map[string]any{"type": "object"},
				"corrected": map[string]any{"type": "object"},
			},
			"required": []string{"timestamp", "raw_text", "extracted", "corrected"},
		},
	}
}

// validateJSONAgainstSchema validates data against schemaMap.
func validateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
