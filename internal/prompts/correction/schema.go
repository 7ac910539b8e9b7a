package correction

import "encoding/json"

// OutputSchema is the required-field set a reply must satisfy.
var OutputSchema = map[string]any{
	"name":   "clause_correction",
	"strict": true,
	"schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correctedText": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"proofText": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"violation_score": map[string]any{
				"type": []string{"string", "number"},
			},
		},
		"required": []string{"correctedText", "proofText", "violation_score"},
	},
}

var outputSchemaJSON, _ = json.Marshal(OutputSchema)
