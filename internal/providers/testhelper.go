package providers

import (
	"os"
)

// TestConfig holds provider configurations loaded from environment variables.
// This allows tests to use the same configuration pattern as production.
type TestConfig struct {
	OpenRouterAPIKey string
	OpenAIAPIKey     string
	GeminiAPIKey     string
	ClovaURL         string
	ClovaSecret      string
}

// LoadTestConfig loads provider API keys from environment variables.
// Returns a TestConfig with whatever keys are available.
func LoadTestConfig() TestConfig {
	return TestConfig{
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		ClovaURL:         os.Getenv("CLOVA_OCR_URL"),
		ClovaSecret:      os.Getenv("CLOVA_OCR_SECRET"),
	}
}

// HasOpenRouter returns true if OpenRouter API key is configured.
func (c TestConfig) HasOpenRouter() bool {
	return c.OpenRouterAPIKey != ""
}

// HasOpenAI returns true if OpenAI API key is configured.
func (c TestConfig) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// HasGemini returns true if Gemini API key is configured.
func (c TestConfig) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// HasClova returns true if the CLOVA OCR endpoint is configured.
func (c TestConfig) HasClova() bool {
	return c.ClovaURL != "" && c.ClovaSecret != ""
}

// ToRegistryConfig converts test config to a RegistryConfig for the provider registry.
// Only includes providers that have API keys configured.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{
		LLMProviders: make(map[string]LLMProviderConfig),
		Embedders:    make(map[string]EmbedderConfig),
		OCRProviders: make(map[string]OCRProviderConfig),
	}

	if c.HasOpenRouter() {
		cfg.LLMProviders["openrouter"] = LLMProviderConfig{
			Type:      "openrouter",
			APIKey:    c.OpenRouterAPIKey,
			RateLimit: 2,
			Enabled:   true,
		}
	}
	if c.HasOpenAI() {
		cfg.LLMProviders["openai"] = LLMProviderConfig{
			Type:    "openai",
			APIKey:  c.OpenAIAPIKey,
			Enabled: true,
		}
		cfg.Embedders["openai"] = EmbedderConfig{
			Type:    "openai",
			APIKey:  c.OpenAIAPIKey,
			Enabled: true,
		}
	}
	if c.HasGemini() {
		cfg.Embedders["gemini"] = EmbedderConfig{
			Type:    "gemini",
			APIKey:  c.GeminiAPIKey,
			Enabled: true,
		}
	}
	if c.HasClova() {
		cfg.OCRProviders["clova"] = OCRProviderConfig{
			Type:    "clova",
			URL:     c.ClovaURL,
			APIKey:  c.ClovaSecret,
			Enabled: true,
		}
	}

	return cfg
}

// NewOpenRouterClient creates an OpenRouter client from test config.
// Returns nil if not configured.
func (c TestConfig) NewOpenRouterClient() *OpenRouterClient {
	if !c.HasOpenRouter() {
		return nil
	}
	return NewOpenRouterClient(OpenRouterConfig{
		APIKey: c.OpenRouterAPIKey,
	})
}
