package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string

	// Respond, when set, overrides ResponseText. It receives the 1-based
	// request number.
	Respond func(n int, req *ChatRequest) (string, error)

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	requests     []*ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	if c.ShouldFail {
		result.ErrorType = "mock_failure"
		result.ErrorMessage = "mock client configured to fail"
		return result, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		result.ErrorType = "mock_failure"
		result.ErrorMessage = fmt.Sprintf("mock client failed after %d requests", c.FailAfter)
		return result, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			result.ErrorType = "context_cancelled"
			result.ErrorMessage = ctx.Err().Error()
			return result, ctx.Err()
		}
	}

	content := c.ResponseText
	if c.Respond != nil {
		var err error
		content, err = c.Respond(int(count), req)
		if err != nil {
			result.ErrorType = "mock_failure"
			result.ErrorMessage = err.Error()
			return result, err
		}
	}

	result.Success = true
	result.Content = content
	result.ExecutionTime = time.Since(start)

	if req.ResponseFormat != nil {
		if parsed, err := ParseStructuredJSON(content); err == nil {
			result.ParsedJSON = parsed
		} else {
			result.Success = false
			result.ErrorType = "json_parse"
			result.ErrorMessage = err.Error()
		}
	}

	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns a copy of the requests received so far.
func (c *MockClient) Requests() []*ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ChatRequest(nil), c.requests...)
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)

// MockEmbedder is an Embedder for testing. Unless EmbedFunc is set, it
// returns a deterministic unit vector derived from the text hash.
type MockEmbedder struct {
	Dims       int
	ShouldFail bool
	EmbedFunc  func(n int, text string) ([]float32, error)

	requestCount atomic.Int64
}

// NewMockEmbedder creates a mock embedder producing dims-length vectors.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 8
	}
	return &MockEmbedder{Dims: dims}
}

// Name returns the provider identifier.
func (e *MockEmbedder) Name() string {
	return "mock-embedder"
}

// Dimensions returns the vector length.
func (e *MockEmbedder) Dimensions() int {
	return e.Dims
}

// Embed returns a vector for text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	n := int(e.requestCount.Add(1))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.ShouldFail {
		return nil, fmt.Errorf("mock embedder configured to fail")
	}
	if e.EmbedFunc != nil {
		return e.EmbedFunc(n, text)
	}
	return HashVector(text, e.Dims), nil
}

// RequestCount returns the number of requests made.
func (e *MockEmbedder) RequestCount() int64 {
	return e.requestCount.Load()
}

// HashVector returns a normalized pseudo-embedding seeded by text.
func HashVector(text string, dims int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dims)
	var norm float64
	for i := range vec {
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(seed%2000)/1000 - 1
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

var _ Embedder = (*MockEmbedder)(nil)

// MockOCRProvider is an OCRProvider for testing.
type MockOCRProvider struct {
	ProviderName string
	ShouldFail   bool
	Result       *OCRResult

	requestCount atomic.Int64
}

// NewMockOCRProvider creates a new mock OCR provider.
func NewMockOCRProvider() *MockOCRProvider {
	return &MockOCRProvider{
		ProviderName: "mock-ocr",
		Result: &OCRResult{
			Text:   "mock OCR text",
			Words:  []OCRWord{{Text: "mock", X0: 0, Y0: 0, X1: 40, Y1: 10, Page: 1}},
			Width:  100,
			Height: 100,
		},
	}
}

// Name returns the provider identifier.
func (p *MockOCRProvider) Name() string {
	return p.ProviderName
}

// Recognize returns the configured result.
func (p *MockOCRProvider) Recognize(ctx context.Context, image []byte, format string) (*OCRResult, error) {
	p.requestCount.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.ShouldFail {
		return nil, fmt.Errorf("mock OCR provider configured to fail")
	}
	return p.Result, nil
}

// RequestCount returns the number of requests made.
func (p *MockOCRProvider) RequestCount() int64 {
	return p.requestCount.Load()
}

var _ OCRProvider = (*MockOCRProvider)(nil)
