// Package simple provides prompts for single-pass book extraction.
// Used for short episodes with no complexity signals.
package simple

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

// Temperature is the generation temperature for the simple pass.
const Temperature = 0.3

// SystemPrompt returns the system prompt for single-pass extraction.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt builds the user prompt for single-pass extraction.
func UserPrompt(description string) string {
	var buf bytes.Buffer
	data := struct{ Description string }{Description: description}
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}

// ResponseSchema is the JSON schema for the simple pass output.
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
					"links": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["title", "author"]
			}
		}
	},
	"required": ["books"]
}`)
