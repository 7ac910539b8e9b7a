package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds references to LLM clients, embedders and OCR providers.
// It supports config-driven instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu           sync.RWMutex
	llmClients   map[string]LLMClient
	embedders    map[string]Embedder
	ocrProviders map[string]OCRProvider
	configs      map[string]any // last applied config per "kind/name"
	logger       *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients:   make(map[string]LLMClient),
		embedders:    make(map[string]Embedder),
		ocrProviders: make(map[string]OCRProvider),
		configs:      make(map[string]any),
		logger:       slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	r.logger.Info("registered LLM client", "name", name)
}

// RegisterEmbedder registers an embedder by name.
func (r *Registry) RegisterEmbedder(name string, e Embedder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedders[name] = e
	r.logger.Info("registered embedder", "name", name)
}

// RegisterOCR registers an OCR provider by name.
func (r *Registry) RegisterOCR(name string, provider OCRProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocrProviders[name] = provider
	r.logger.Info("registered OCR provider", "name", name)
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// GetEmbedder returns an embedder by name.
func (r *Registry) GetEmbedder(name string) (Embedder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.embedders[name]
	if !ok {
		return nil, fmt.Errorf("embedder not found: %s", name)
	}
	return e, nil
}

// GetOCR returns an OCR provider by name.
func (r *Registry) GetOCR(name string) (OCRProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.ocrProviders[name]
	if !ok {
		return nil, fmt.Errorf("OCR provider not found: %s", name)
	}
	return provider, nil
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.llmClients)
}

// ListEmbedders returns all registered embedder names, sorted.
func (r *Registry) ListEmbedders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.embedders)
}

// ListOCR returns all registered OCR provider names, sorted.
func (r *Registry) ListOCR() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.ocrProviders)
}

func sortedKeys[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegistryConfig defines the providers to instantiate from config.
// This mirrors the config.Config structure for provider setup.
type RegistryConfig struct {
	LLMProviders map[string]LLMProviderConfig
	Embedders    map[string]EmbedderConfig
	OCRProviders map[string]OCRProviderConfig
}

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key.
type LLMProviderConfig struct {
	Type      string  // "openrouter", "openai"
	Model     string  // Model name
	APIKey    string  // Resolved API key
	BaseURL   string  // Optional override
	RateLimit float64 // Requests per second
	Enabled   bool
}

// EmbedderConfig matches config.EmbedderCfg with resolved API key.
type EmbedderConfig struct {
	Type       string // "openai", "gemini"
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	RateLimit  float64 // Requests per second, 0 disables pacing
	Enabled    bool
}

// OCRProviderConfig matches config.OCRProviderCfg with resolved secret.
type OCRProviderConfig struct {
	Type    string // "clova"
	URL     string // Invoke URL
	APIKey  string // Resolved secret
	Enabled bool
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with valid API keys will be registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-registered.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reloadKind(r, "llm", r.llmClients, cfg.LLMProviders,
		func(c LLMProviderConfig) bool { return c.Enabled && c.APIKey != "" },
		createLLMClient)
	reloadKind(r, "embedder", r.embedders, cfg.Embedders,
		func(c EmbedderConfig) bool { return c.Enabled && c.APIKey != "" },
		createEmbedder)
	reloadKind(r, "ocr", r.ocrProviders, cfg.OCRProviders,
		func(c OCRProviderConfig) bool { return c.Enabled && c.APIKey != "" && c.URL != "" },
		createOCRProvider)
}

// reloadKind reconciles one provider map against its config. Must be called
// with the lock held.
func reloadKind[P any, C comparable](r *Registry, kind string, live map[string]P, want map[string]C, usable func(C) bool, create func(C) P) {
	keep := make(map[string]bool, len(want))
	for name, c := range want {
		if !usable(c) {
			continue
		}
		keep[name] = true

		key := kind + "/" + name
		prev, seen := r.configs[key]
		if _, exists := live[name]; exists && seen && prev == any(c) {
			continue
		}

		p := create(c)
		if any(p) == nil {
			r.logger.Warn("unknown provider type", "kind", kind, "name", name)
			continue
		}
		live[name] = p
		r.configs[key] = c
		r.logger.Info("registered provider", "kind", kind, "name", name)
	}

	for name := range live {
		if !keep[name] {
			delete(live, name)
			delete(r.configs, kind+"/"+name)
			r.logger.Info("unregistered provider", "kind", kind, "name", name)
		}
	}
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case "openrouter":
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RateLimit:    cfg.RateLimit,
		})
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			ChatModel: cfg.Model,
		})
	default:
		return nil
	}
}

// createEmbedder creates an embedder based on provider type.
func createEmbedder(cfg EmbedderConfig) Embedder {
	var e Embedder
	switch cfg.Type {
	case "openai":
		e = NewOpenAIClient(OpenAIConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			EmbeddingModel: cfg.Model,
			Dimensions:     cfg.Dimensions,
		})
	case "gemini":
		e = NewGeminiEmbedder(GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil
	}
	if cfg.RateLimit > 0 {
		return WithRateLimit(e, cfg.RateLimit)
	}
	return e
}

// createOCRProvider creates an OCR provider based on provider type.
func createOCRProvider(cfg OCRProviderConfig) OCRProvider {
	switch cfg.Type {
	case "clova":
		return NewClovaOCRClient(ClovaOCRConfig{
			InvokeURL: cfg.URL,
			SecretKey: cfg.APIKey,
		})
	default:
		return nil
	}
}
