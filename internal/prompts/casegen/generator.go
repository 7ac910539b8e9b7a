package casegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackzampolin/lexreview/internal/prompts"
	"github.com/jackzampolin/lexreview/internal/providers"
)

// ErrMalformed is returned when the reply is not a usable example pair.
var ErrMalformed = errors.New("malformed example reply")

// Example is one generated pair.
type Example struct {
	IncorrectText string `json:"incorrect_text"`
	CorrectedText string `json:"corrected_text"`
}

// Generator produces examples with an LLM.
type Generator struct {
	client   providers.LLMClient
	resolver *prompts.Resolver
	model    string
}

// NewGenerator creates a Generator. resolver may be nil.
func NewGenerator(client providers.LLMClient, resolver *prompts.Resolver, model string) *Generator {
	return &Generator{client: client, resolver: resolver, model: model}
}

// Generate returns an example pair for clause.
func (g *Generator) Generate(ctx context.Context, clause string) (*Example, error) {
	user, err := UserPrompt(clause, g.resolver.Text(ctx, PromptKey, UserPromptTmpl))
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Chat(ctx, &providers.ChatRequest{
		Model:          g.model,
		Messages:       []providers.Message{{Role: "user", Content: user}},
		Temperature:    0.8,
		MaxTokens:      1000,
		ResponseFormat: &providers.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate example: %w", err)
	}

	return ParseExample(resp.Content)
}

// ParseExample validates raw model output as an Example.
func ParseExample(raw string) (*Example, error) {
	parsed, err := providers.ParseStructuredJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := providers.ValidateStructuredJSON(outputSchemaJSON, parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var ex Example
	if err := json.Unmarshal(parsed, &ex); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &ex, nil
}
