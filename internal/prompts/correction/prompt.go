// Package correction builds the clause correction request and turns the
// model's reply into a typed result.
package correction

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/lexreview/internal/patterns"
	"github.com/jackzampolin/lexreview/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

// Prompt keys
const (
	SystemPromptKey = "review.correction.system"
	UserPromptKey   = "review.correction.user"
)

// RegisterPrompts registers the correction prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Clause correction persona (developer role)",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Clause correction request with reference matches and output format",
	})
}

// Input is what the model sees for one clause.
type Input struct {
	ClauseContent string   `json:"clause_content"`
	ProofText     []string `json:"proof_text"`
	IncorrectText []string `json:"incorrect_text"`
	CorrectedText []string `json:"corrected_text"`
}

// UserPromptData is the template data for the user prompt.
type UserPromptData struct {
	InputJSON string
}

// inputJSON renders in as indented JSON with Hangul left unescaped.
func inputJSON(in Input) (string, error) {
	in.ClauseContent = patterns.CleanClause(in.ClauseContent)
	for _, list := range []*[]string{&in.ProofText, &in.IncorrectText, &in.CorrectedText} {
		if *list == nil {
			*list = []string{}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(in); err != nil {
		return "", fmt.Errorf("failed to encode correction input: %w", err)
	}
	return string(bytes.TrimSpace(buf.Bytes())), nil
}

// UserPrompt renders tmpl (or the embedded default when empty) for in.
func UserPrompt(in Input, tmpl string) (string, error) {
	if tmpl == "" {
		tmpl = userPromptTmpl
	}
	data, err := inputJSON(in)
	if err != nil {
		return "", err
	}
	return prompts.Render(UserPromptKey, tmpl, UserPromptData{InputJSON: data})
}

// SystemPrompt returns the embedded developer prompt.
func SystemPrompt() string {
	return systemPrompt
}
