package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"id":    "test-id",
		"model": "openai/gpt-4o-mini",
		"choices": []map[string]any{
			{
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	}
}

func TestOpenRouterClient_Chat(t *testing.T) {
	t.Run("successful chat", func(t *testing.T) {
		var got openRouterRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != "POST" {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			json.NewDecoder(r.Body).Decode(&got)

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(chatCompletion("안녕하세요"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "developer", Content: "당신은 변호사입니다"},
				{Role: "user", Content: "Hello"},
			},
			Temperature: 0.1,
			MaxTokens:   1024,
		})

		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}
		if result.Content != "안녕하세요" {
			t.Errorf("Content = %q", result.Content)
		}
		if result.TotalTokens != 18 {
			t.Errorf("TotalTokens = %d, want 18", result.TotalTokens)
		}
		if result.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", result.Attempts)
		}
		if got.Model != "openai/gpt-4o-mini" || got.MaxTokens != 1024 || len(got.Messages) != 2 {
			t.Errorf("unexpected request: %+v", got)
		}
	})

	t.Run("structured output", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(chatCompletion("```json\n{\"correctedText\":\"a\"}\n```"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL})
		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "x"}},
			ResponseFormat: &ResponseFormat{Type: "json_object"},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if string(result.ParsedJSON) != `{"correctedText":"a"}` {
			t.Errorf("ParsedJSON = %s", result.ParsedJSON)
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(`{"error":"upstream"}`))
				return
			}
			json.NewEncoder(w).Encode(chatCompletion("ok"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: 3,
			RetryDelay: time.Millisecond,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "x"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", result.Attempts)
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad request"}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			RetryDelay: time.Millisecond,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "x"}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", calls.Load())
		}
		if result.ErrorType != "http_error" {
			t.Errorf("ErrorType = %q", result.ErrorType)
		}
	})

	t.Run("api error in 200 body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"message":"invalid model","code":400}}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL, RetryDelay: time.Millisecond})
		if _, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "x"}},
		}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestOpenRouterClient_Config(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey: "test-key",
		})

		if client.Name() != OpenRouterName {
			t.Errorf("Name() = %s, want %s", client.Name(), OpenRouterName)
		}
		if client.baseURL != OpenRouterBaseURL {
			t.Errorf("baseURL = %s, want %s", client.baseURL, OpenRouterBaseURL)
		}
		if client.defaultModel != "openai/gpt-4o-mini" {
			t.Errorf("defaultModel = %s", client.defaultModel)
		}
		if client.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want 3", client.maxRetries)
		}
		if client.limiter != nil {
			t.Error("limiter should be nil without a rate limit")
		}
	})

	t.Run("rate limit", func(t *testing.T) {
		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:    "test-key",
			RateLimit: 5,
		})
		if client.limiter == nil {
			t.Fatal("expected limiter")
		}
	})
}

// TestOpenRouterIntegration runs real LLM calls against the OpenRouter API.
// Requires OPENROUTER_API_KEY environment variable to be set.
func TestOpenRouterIntegration(t *testing.T) {
	cfg := LoadTestConfig()
	if !cfg.HasOpenRouter() {
		t.Skip("OPENROUTER_API_KEY not set - skipping integration test")
	}

	client := cfg.NewOpenRouterClient()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.Chat(ctx, &ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "You respond only with valid JSON."},
			{Role: "user", Content: `Return exactly this JSON: {"greeting": "hello"}`},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
		MaxTokens:      50,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !result.Success {
		t.Errorf("Chat failed: %s", result.ErrorMessage)
	}
	t.Logf("Response: %s", result.Content)
}
