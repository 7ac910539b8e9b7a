package providers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// LLMClient is the interface for chat/completion requests.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openrouter").
	Name() string
}

// Embedder turns text into a dense vector.
type Embedder interface {
	// Embed returns the embedding of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions is the length of the vectors Embed returns.
	Dimensions() int

	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string
}

// OCRProvider extracts words and their boxes from an image.
// Separate from LLM because results carry geometry, not just text.
type OCRProvider interface {
	// Name returns the provider identifier (e.g., "clova").
	Name() string

	// Recognize extracts text from an image. format is the file extension
	// without the dot ("png", "jpg").
	Recognize(ctx context.Context, image []byte, format string) (*OCRResult, error)
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "developer", "system", "user", "assistant"
	Content string `json:"content"`
}

// ResponseFormat specifies structured output format.
type ResponseFormat struct {
	Type       string          `json:"type"` // "json_schema" or "json_object"
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	// Required
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Structured output
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	// Response content
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"` // Set when ResponseFormat was requested and parsing succeeded

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Timing
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// OCRWord is one recognized word with its rectangle in image pixels
// (top-left origin).
type OCRWord struct {
	Text      string  `json:"text"`
	X0        float64 `json:"x0"`
	Y0        float64 `json:"y0"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	Page      int     `json:"page"`
	LineBreak bool    `json:"line_break"` // Word ends a line
}

// OCRResult is the response from an OCR provider.
type OCRResult struct {
	Text   string    `json:"text"`
	Words  []OCRWord `json:"words"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`

	ExecutionTime time.Duration `json:"execution_time"`
}

// RateLimitError is returned when the upstream answers 429.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
