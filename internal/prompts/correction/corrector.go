package correction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/lexreview/internal/prompts"
	"github.com/jackzampolin/lexreview/internal/providers"
)

// Config configures a Corrector.
type Config struct {
	Client      providers.LLMClient
	Resolver    *prompts.Resolver // optional; embedded prompts when nil
	Model       string
	Temperature float64 // default 0.1
	MaxTokens   int     // default 1024
	Logger      *slog.Logger
}

// Corrector asks an LLM to correct one clause.
type Corrector struct {
	client      providers.LLMClient
	resolver    *prompts.Resolver
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// New creates a Corrector.
func New(cfg Config) *Corrector {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Corrector{
		client:      cfg.Client,
		resolver:    cfg.Resolver,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// BuildRequest assembles the chat request for in.
func (c *Corrector) BuildRequest(ctx context.Context, in Input) (*providers.ChatRequest, error) {
	system := c.resolver.Text(ctx, SystemPromptKey, systemPrompt)
	user, err := UserPrompt(in, c.resolver.Text(ctx, UserPromptKey, userPromptTmpl))
	if err != nil {
		return nil, err
	}
	return &providers.ChatRequest{
		Model: c.model,
		Messages: []providers.Message{
			{Role: "developer", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: &providers.ResponseFormat{Type: "json_object"},
	}, nil
}

// Correct sends in to the model. Transport failures are errors; a reply
// that cannot be used is a Malformed result.
func (c *Corrector) Correct(ctx context.Context, in Input) (Result, error) {
	req, err := c.BuildRequest(ctx, in)
	if err != nil {
		return Result{}, err
	}

	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to request correction: %w", err)
	}

	res := Parse(resp.Content)
	if res.Kind == Malformed {
		c.logger.Debug("malformed correction reply", "reason", res.Reason, "request_id", resp.RequestID)
	}
	return res, nil
}
