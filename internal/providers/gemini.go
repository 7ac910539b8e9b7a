package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	GeminiName                  = "gemini"
	geminiDefaultEmbeddingModel = "text-embedding-004"
	geminiDefaultDimensions     = 768
)

// GeminiConfig holds configuration for the Gemini embedder.
type GeminiConfig struct {
	APIKey     string
	Model      string // "text-embedding-004" (default)
	Dimensions int    // 768 (default)
}

// GeminiEmbedder implements Embedder using the Gemini API.
type GeminiEmbedder struct {
	apiKey     string
	model      string
	dimensions int
}

// NewGeminiEmbedder creates a new Gemini embedder.
func NewGeminiEmbedder(cfg GeminiConfig) *GeminiEmbedder {
	if cfg.Model == "" {
		cfg.Model = geminiDefaultEmbeddingModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = geminiDefaultDimensions
	}
	return &GeminiEmbedder{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Name returns the provider identifier.
func (e *GeminiEmbedder) Name() string {
	return GeminiName
}

// Dimensions returns the embedding vector length.
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed returns the embedding of text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer cl.Close()

	resp, err := cl.EmbeddingModel(e.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini returned an empty embedding")
	}
	return resp.Embedding.Values, nil
}

var _ Embedder = (*GeminiEmbedder)(nil)
