package casegen

import "encoding/json"

// OutputSchema is the JSON schema for a generated example pair.
var OutputSchema = map[string]any{
	"name":   "clause_example",
	"strict": true,
	"schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"incorrect_text": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Unfavorable rewording of the clause",
			},
			"corrected_text": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Fair correction of the unfavorable rewording",
			},
		},
		"required": []string{"incorrect_text", "corrected_text"},
	},
}

var outputSchemaJSON, _ = json.Marshal(OutputSchema)
