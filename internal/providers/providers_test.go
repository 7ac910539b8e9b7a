package providers

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMockClient(t *testing.T) {
	t.Run("chat", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "hello world"

		result, err := c.Chat(context.Background(), &ChatRequest{
			Model: "test-model",
			Messages: []Message{
				{Role: "user", Content: "test"},
			},
		})

		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Errorf("Success = false, want true")
		}
		if result.Content != "hello world" {
			t.Errorf("Content = %q, want %q", result.Content, "hello world")
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", c.RequestCount())
		}
	})

	t.Run("respond func sees request number", func(t *testing.T) {
		c := NewMockClient()
		c.Respond = func(n int, req *ChatRequest) (string, error) {
			if n == 1 {
				return "", errors.New("first call fails")
			}
			return `{"ok":true}`, nil
		}

		req := &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "x"}},
			ResponseFormat: &ResponseFormat{Type: "json_object"},
		}
		if _, err := c.Chat(context.Background(), req); err == nil {
			t.Fatal("expected first call to fail")
		}
		result, err := c.Chat(context.Background(), req)
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if string(result.ParsedJSON) != `{"ok":true}` {
			t.Errorf("ParsedJSON = %s", result.ParsedJSON)
		}
		if len(c.Requests()) != 2 {
			t.Errorf("Requests() = %d, want 2", len(c.Requests()))
		}
	})

	t.Run("fail after", func(t *testing.T) {
		c := NewMockClient()
		c.FailAfter = 1

		req := &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}}
		if _, err := c.Chat(context.Background(), req); err != nil {
			t.Fatalf("first call error = %v", err)
		}
		if _, err := c.Chat(context.Background(), req); err == nil {
			t.Error("expected second call to fail")
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		c := NewMockClient()
		c.Latency = time.Second

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Chat(ctx, &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(16)

	a, err := e.Embed(context.Background(), "제1조 목적")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	b, _ := e.Embed(context.Background(), "제1조 목적")
	c, _ := e.Embed(context.Background(), "제2조 정의")

	if len(a) != 16 {
		t.Fatalf("len = %d, want 16", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should give the same vector")
		}
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different text should give a different vector")
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-4 {
		t.Errorf("norm = %f, want 1", norm)
	}
	if e.RequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3", e.RequestCount())
	}
}

func TestMockOCRProvider(t *testing.T) {
	p := NewMockOCRProvider()

	result, err := p.Recognize(context.Background(), []byte("img"), "png")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if result.Text != "mock OCR text" {
		t.Errorf("Text = %q", result.Text)
	}

	p.ShouldFail = true
	if _, err := p.Recognize(context.Background(), nil, "png"); err == nil {
		t.Error("expected error")
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows initial burst", func(t *testing.T) {
		limiter := NewRateLimiter(10)

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("took too long: %v", elapsed)
		}
	})

	t.Run("try consume", func(t *testing.T) {
		limiter := NewRateLimiter(1)

		if !limiter.TryConsume() {
			t.Error("first TryConsume should succeed")
		}
		if limiter.TryConsume() {
			t.Error("second TryConsume should fail with an empty bucket")
		}
	})

	t.Run("status", func(t *testing.T) {
		limiter := NewRateLimiter(60.0)

		status := limiter.Status()
		if status.TokensLimit != 60 {
			t.Errorf("TokensLimit = %d, want 60", status.TokensLimit)
		}
		if status.TokensAvailable <= 0 {
			t.Error("expected positive tokens available")
		}
	})

	t.Run("record 429 drains bucket", func(t *testing.T) {
		limiter := NewRateLimiter(1)

		limiter.Record429()

		status := limiter.Status()
		if status.Last429Time.IsZero() {
			t.Error("Last429Time should be set")
		}
		if limiter.TryConsume() {
			t.Error("bucket should be empty after a 429")
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		limiter := NewRateLimiter(0.1)
		_ = limiter.Wait(context.Background())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := limiter.Wait(ctx); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		limiter := NewRateLimiter(100)

		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := limiter.Wait(context.Background()); err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		if failures.Load() > 0 {
			t.Errorf("had %d errors", failures.Load())
		}
		if got := limiter.Status().TotalConsumed; got != 10 {
			t.Errorf("TotalConsumed = %d, want 10", got)
		}
	})

	t.Run("limited embedder", func(t *testing.T) {
		mock := NewMockEmbedder(4)
		e := WithRateLimit(mock, 100)

		if _, err := e.Embed(context.Background(), "x"); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
		if e.Dimensions() != 4 {
			t.Errorf("Dimensions() = %d, want 4", e.Dimensions())
		}
		if e.Status().TotalConsumed != 1 {
			t.Errorf("TotalConsumed = %d, want 1", e.Status().TotalConsumed)
		}
	})
}

// TestTestConfig verifies the test helper works correctly.
func TestTestConfig(t *testing.T) {
	cfg := LoadTestConfig()
	regCfg := cfg.ToRegistryConfig()

	if regCfg.LLMProviders == nil || regCfg.Embedders == nil || regCfg.OCRProviders == nil {
		t.Error("registry config maps should not be nil")
	}
}
