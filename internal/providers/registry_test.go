package providers

import (
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		llm := NewMockClient()
		emb := NewMockEmbedder(4)
		ocr := NewMockOCRProvider()

		r.RegisterLLM("test-llm", llm)
		r.RegisterEmbedder("test-emb", emb)
		r.RegisterOCR("test-ocr", ocr)

		if got, err := r.GetLLM("test-llm"); err != nil || got != llm {
			t.Errorf("GetLLM() = %v, %v", got, err)
		}
		if got, err := r.GetEmbedder("test-emb"); err != nil || got != emb {
			t.Errorf("GetEmbedder() = %v, %v", got, err)
		}
		if got, err := r.GetOCR("test-ocr"); err != nil || got != ocr {
			t.Errorf("GetOCR() = %v, %v", got, err)
		}
	})

	t.Run("get nonexistent", func(t *testing.T) {
		r := NewRegistry()

		if _, err := r.GetLLM("nonexistent"); err == nil {
			t.Error("expected error for nonexistent LLM")
		}
		if _, err := r.GetEmbedder("nonexistent"); err == nil {
			t.Error("expected error for nonexistent embedder")
		}
		if _, err := r.GetOCR("nonexistent"); err == nil {
			t.Error("expected error for nonexistent OCR")
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("b", NewMockClient())
		r.RegisterLLM("a", NewMockClient())

		got := r.ListLLM()
		if len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Errorf("ListLLM() = %v", got)
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.RegisterLLM("llm", NewMockClient())
			}()
			go func() {
				defer wg.Done()
				_, _ = r.GetLLM("llm")
				_ = r.ListLLM()
			}()
		}
		wg.Wait()
	})
}

func TestRegistryFromConfig(t *testing.T) {
	cfg := RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"openrouter": {Type: "openrouter", APIKey: "k", Enabled: true},
			"disabled":   {Type: "openrouter", APIKey: "k", Enabled: false},
			"nokey":      {Type: "openai", Enabled: true},
			"unknown":    {Type: "bogus", APIKey: "k", Enabled: true},
		},
		Embedders: map[string]EmbedderConfig{
			"openai": {Type: "openai", APIKey: "k", Enabled: true},
			"gemini": {Type: "gemini", APIKey: "k", Enabled: true, RateLimit: 2},
		},
		OCRProviders: map[string]OCRProviderConfig{
			"clova":  {Type: "clova", URL: "http://ocr", APIKey: "s", Enabled: true},
			"no-url": {Type: "clova", APIKey: "s", Enabled: true},
		},
	}

	r := NewRegistryFromConfig(cfg)

	if got := r.ListLLM(); len(got) != 1 || got[0] != "openrouter" {
		t.Errorf("ListLLM() = %v", got)
	}
	if got := r.ListEmbedders(); len(got) != 2 {
		t.Errorf("ListEmbedders() = %v", got)
	}
	if got := r.ListOCR(); len(got) != 1 || got[0] != "clova" {
		t.Errorf("ListOCR() = %v", got)
	}
	if e, _ := r.GetEmbedder("gemini"); e != nil {
		if _, ok := e.(*LimitedEmbedder); !ok {
			t.Errorf("gemini embedder should be rate limited, got %T", e)
		}
	}
}

func TestRegistryReload(t *testing.T) {
	cfg := RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"openrouter": {Type: "openrouter", APIKey: "k1", Model: "m1", Enabled: true},
		},
	}
	r := NewRegistryFromConfig(cfg)
	before, _ := r.GetLLM("openrouter")

	t.Run("unchanged config keeps instance", func(t *testing.T) {
		r.Reload(cfg)
		after, _ := r.GetLLM("openrouter")
		if after != before {
			t.Error("client should not be recreated")
		}
	})

	t.Run("changed config recreates", func(t *testing.T) {
		changed := RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"openrouter": {Type: "openrouter", APIKey: "k2", Model: "m1", Enabled: true},
			},
		}
		r.Reload(changed)
		after, _ := r.GetLLM("openrouter")
		if after == before {
			t.Error("client should be recreated after key change")
		}
		if after.(*OpenRouterClient).apiKey != "k2" {
			t.Error("new client should carry the new key")
		}
	})

	t.Run("removed config unregisters", func(t *testing.T) {
		r.Reload(RegistryConfig{})
		if len(r.ListLLM()) != 0 {
			t.Errorf("ListLLM() = %v, want empty", r.ListLLM())
		}
	})
}
