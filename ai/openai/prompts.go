package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/ragprep/ai"
)

const entityResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {"type": "string"},
          "label": {"type": "string"},
          "score": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["text", "label", "score"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const entityPromptTemplate = `Find the named entities in the given text and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- The label must be exactly one of: %s.
  PER is a person, ORG an organization, LOC a location, MISC any other named entity
  (nationalities, events, works, products).
- The text field must be copied character for character from the input, including capitalization.
- List entities in the order they appear. Repeat an entity each time it occurs.
- Dates, times, numbers and amounts are NOT entities. Never return them.
- The score is your confidence in the label, from 0 to 1.
- If the text contains no entities, return "entities": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "John Smith was admitted to Lille University Hospital on March 12, 2024."
Output:
{
  "entities": [
    {"text":"John Smith","label":"PER","score":0.99},
    {"text":"Lille University Hospital","label":"ORG","score":0.95}
  ]
}

Example (informal):
Input: "flew from paris to see the yankees with maria"
Output:
{
  "entities": [
    {"text":"paris","label":"LOC","score":0.9},
    {"text":"yankees","label":"ORG","score":0.85},
    {"text":"maria","label":"PER","score":0.9}
  ]
}`

// buildSystemPrompt creates the system prompt with the entity labels embedded.
func buildSystemPrompt() string {
	return fmt.Sprintf(entityPromptTemplate,
		entityResponseSchema,
		strings.Join(ai.EntityLabels, ", "))
}
