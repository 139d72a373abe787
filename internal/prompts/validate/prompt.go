// Package validate provides prompts for the final stage of multi-pass
// extraction: an independent VALID/INVALID judgment per book.
package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"text/template"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// Temperature is the generation temperature for the validation pass.
const Temperature = 0.1

// SystemPrompt returns the system prompt for the validation pass.
func SystemPrompt() string {
	return systemPrompt
}

// UserPromptData holds the inputs for the validation pass user prompt.
type UserPromptData struct {
	Description string
	BooksJSON   string
}

// UserPrompt builds the user prompt for the validation pass.
func UserPrompt(data UserPromptData) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}

// ResponseSchema is the JSON schema for the validation pass output.
var ResponseSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"verdicts": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string"},
					"author": {"type": "string"},
					"verdict": {"type": "string", "enum": ["VALID", "INVALID"]},
					"reasoning": {"type": "string"}
				},
				"required": ["title", "author", "verdict"]
			}
		},
		"overall_confidence": {"type": "number"}
	},
	"required": ["verdicts"]
}`)
