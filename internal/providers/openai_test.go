package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClientEmbed(t *testing.T) {
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object":"list",
			"data":[{"object":"embedding","index":0,"embedding":[0.25,-0.5,1.0]}],
			"model":"text-embedding-3-small",
			"usage":{"prompt_tokens":4,"total_tokens":4}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{
		APIKey:     "test-key",
		Dimensions: 3,
		BaseURL:    server.URL,
	})

	vec, err := client.Embed(context.Background(), "제1조 목적 이 계약은")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	want := []float32{0.25, -0.5, 1.0}
	if len(vec) != len(want) {
		t.Fatalf("len = %d, want %d", len(vec), len(want))
	}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %f, want %f", i, vec[i], want[i])
		}
	}
	if got, _ := payload["model"].(string); got != "text-embedding-3-small" {
		t.Errorf("model = %q", got)
	}
	if got, _ := payload["input"].(string); got != "제1조 목적 이 계약은" {
		t.Errorf("input = %q", got)
	}
	if got, _ := payload["dimensions"].(float64); got != 3 {
		t.Errorf("dimensions = %v, want 3", payload["dimensions"])
	}
}

func TestOpenAIClientEmbedRejectsEmpty(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key"})
	if _, err := client.Embed(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty text")
	}
	if client.Dimensions() != 1536 {
		t.Errorf("Dimensions() = %d, want 1536", client.Dimensions())
	}
}

func TestOpenAIClientChat(t *testing.T) {
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1",
			"object":"chat.completion",
			"created":1,
			"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"correctedText\":\"수정\"}"}}],
			"usage":{"prompt_tokens":12,"completion_tokens":5,"total_tokens":17}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			{Role: "developer", Content: "system prompt"},
			{Role: "user", Content: "user prompt"},
		},
		Temperature:    0.1,
		MaxTokens:      1024,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %s", result.ErrorMessage)
	}
	if string(result.ParsedJSON) != `{"correctedText":"수정"}` {
		t.Errorf("ParsedJSON = %s", result.ParsedJSON)
	}
	if result.TotalTokens != 17 {
		t.Errorf("TotalTokens = %d, want 17", result.TotalTokens)
	}

	msgs, _ := payload["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", payload["messages"])
	}
	if role := msgs[0].(map[string]any)["role"]; role != "developer" {
		t.Errorf("first role = %v, want developer", role)
	}
	if got, _ := payload["max_tokens"].(float64); got != 1024 {
		t.Errorf("max_tokens = %v", payload["max_tokens"])
	}
}

func TestOpenAIClientRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

	_, err := client.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error")
	}
	var rl *RateLimitError
	if !asRateLimit(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.RetryAfter.Seconds() != 3 {
		t.Errorf("RetryAfter = %v, want 3s", rl.RetryAfter)
	}
}
