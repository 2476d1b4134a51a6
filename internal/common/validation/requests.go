// Package validation validates API request payloads against JSON schemas.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var complianceRequestSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"query": map[string]interface{}{
			"type":      "string",
			"minLength": 10,
			"maxLength": 5000,
		},
		"jurisdiction": map[string]interface{}{
			"type":      "string",
			"maxLength": 100,
		},
	},
	"required": []interface{}{"query"},
}

var contentRequestSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"topic": map[string]interface{}{
			"type":      "string",
			"minLength": 10,
			"maxLength": 500,
		},
	},
	"required": []interface{}{"topic"},
}

var searchRequestSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"q": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
			"maxLength": 1000,
		},
		"limit": map[string]interface{}{
			"type":    "integer",
			"minimum": 1,
			"maximum": 50,
		},
	},
	"required": []interface{}{"q"},
}

// ValidateComplianceRequest checks a compliance query payload.
func ValidateComplianceRequest(payload map[string]interface{}) error {
	return validateAgainst(complianceRequestSchema, payload)
}

// ValidateContentRequest checks a content generation payload.
func ValidateContentRequest(payload map[string]interface{}) error {
	return validateAgainst(contentRequestSchema, payload)
}

// ValidateSearchRequest checks a search query payload.
func ValidateSearchRequest(payload map[string]interface{}) error {
	return validateAgainst(searchRequestSchema, payload)
}

func validateAgainst(schemaMap, payload map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
	}

	return nil
}
