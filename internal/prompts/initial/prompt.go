// Package initial provides prompts for the first stage of multi-pass
// extraction: strict identification of the books an episode centers on.
package initial

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

// Temperature is the generation temperature for the initial pass.
const Temperature = 0.2

// SystemPrompt returns the system prompt for the initial extraction pass.
func SystemPrompt() string {
	return systemPrompt
}

// UserPromptData holds the inputs for the initial pass user prompt.
type UserPromptData struct {
	Description      string
	PreservedContext string
}

// UserPrompt builds the user prompt for the initial extraction pass.
func UserPrompt(data UserPromptData) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}

// ResponseSchema is the JSON schema for the initial pass output.
var ResponseSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"books": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string"},
					"author": {"type": "string"},
					"links": {"type": "array", "items": {"type": "string"}},
					"context": {"type": "string"},
					"confidence": {"type": "number"},
					"reasoning": {"type": "string"}
				},
				"required": ["title", "author"]
			}
		},
		"context_preserved": {"type": "string"},
		"overall_confidence": {"type": "number"}
	},
	"required": ["books"]
}`)
