package config

// Config holds lexreview configuration.
// Stored at: ~/.lexreview/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Embedders    map[string]EmbedderCfg    `mapstructure:"embedders" yaml:"embedders"`
	OCRProviders map[string]OCRProviderCfg `mapstructure:"ocr_providers" yaml:"ocr_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
	Review       ReviewCfg                 `mapstructure:"review" yaml:"review"`
	VectorStore  VectorStoreCfg            `mapstructure:"vectorstore" yaml:"vectorstore"`
	Postgres     PostgresCfg               `mapstructure:"postgres" yaml:"postgres"`
	Storage      StorageCfg                `mapstructure:"storage" yaml:"storage"`
	Standards    StandardsCfg              `mapstructure:"standards" yaml:"standards"`
}

// LLMProviderCfg configures a chat model used for corrections.
type LLMProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"` // "openrouter", "openai"
	Model     string  `mapstructure:"model" yaml:"model"`
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR}
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// EmbedderCfg configures an embedding model.
type EmbedderCfg struct {
	Type       string  `mapstructure:"type" yaml:"type"` // "openai", "gemini"
	Model      string  `mapstructure:"model" yaml:"model"`
	APIKey     string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL    string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Dimensions int     `mapstructure:"dimensions" yaml:"dimensions"`
	RateLimit  float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
}

// OCRProviderCfg configures an OCR endpoint.
type OCRProviderCfg struct {
	Type    string `mapstructure:"type" yaml:"type"` // "clova"
	URL     string `mapstructure:"url" yaml:"url"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg selects which configured providers are used.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"`
	Embedder    string `mapstructure:"embedder" yaml:"embedder"`
	OCRProvider string `mapstructure:"ocr_provider" yaml:"ocr_provider"`
}

// ServerCfg is the HTTP listen address.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// ReviewCfg tunes the review pipeline.
type ReviewCfg struct {
	// Threshold is the violation score a correction must exceed to be kept.
	Threshold          float64 `mapstructure:"threshold" yaml:"threshold"`
	TopK               int     `mapstructure:"top_k" yaml:"top_k"`
	SearchConcurrency  int     `mapstructure:"search_concurrency" yaml:"search_concurrency"`
	MaxRetries         int     `mapstructure:"max_retries" yaml:"max_retries"`
	BackoffSeconds     float64 `mapstructure:"backoff_seconds" yaml:"backoff_seconds"`
	CallTimeoutSeconds float64 `mapstructure:"call_timeout_seconds" yaml:"call_timeout_seconds"`
	// MaxPositionPages caps evidence pages per clause; negative keeps all.
	MaxPositionPages    int     `mapstructure:"max_position_pages" yaml:"max_position_pages"`
	MinClauseBodyLength int     `mapstructure:"min_clause_body_length" yaml:"min_clause_body_length"`
	HNSWEf              int     `mapstructure:"hnsw_ef" yaml:"hnsw_ef"`
	ExactSearch         bool    `mapstructure:"exact_search" yaml:"exact_search"`
	Temperature         float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens           int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	// CacheTTLHours bounds how long cached results are served; 0 keeps them.
	CacheTTLHours int `mapstructure:"cache_ttl_hours" yaml:"cache_ttl_hours"`
}

// VectorStoreCfg selects the similarity-search backend.
type VectorStoreCfg struct {
	Backend    string `mapstructure:"backend" yaml:"backend"` // "chromem" or "pgvector"
	Path       string `mapstructure:"path" yaml:"path"`       // chromem directory; empty uses ~/.lexreview/vectors
	Collection string `mapstructure:"collection" yaml:"collection"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// PostgresCfg configures the optional Postgres database.
type PostgresCfg struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"` // empty uses the managed container
	// ContainerName is the docker container run by `lexreview db start`.
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	Image         string `mapstructure:"image" yaml:"image"`
	Port          string `mapstructure:"port" yaml:"port"`
	Password      string `mapstructure:"password" yaml:"password"`
}

// StorageCfg configures document retrieval.
type StorageCfg struct {
	HTTPTimeoutSeconds int      `mapstructure:"http_timeout_seconds" yaml:"http_timeout_seconds"`
	AllowedRoots       []string `mapstructure:"allowed_roots" yaml:"allowed_roots"`
	S3Gateway          string   `mapstructure:"s3_gateway" yaml:"s3_gateway"`
	MaxMegabytes       int      `mapstructure:"max_megabytes" yaml:"max_megabytes"`
}

// StandardsCfg configures reference ingestion.
type StandardsCfg struct {
	GenerateExamples bool `mapstructure:"generate_examples" yaml:"generate_examples"`
	Workers          int  `mapstructure:"workers" yaml:"workers"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o-mini",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 10,
				Enabled:   true,
			},
			"openrouter": {
				Type:      "openrouter",
				Model:     "openai/gpt-4o-mini",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 10,
				Enabled:   true,
			},
		},
		Embedders: map[string]EmbedderCfg{
			"openai": {
				Type:       "openai",
				Model:      "text-embedding-3-small",
				APIKey:     "${OPENAI_API_KEY}",
				Dimensions: 1536,
				RateLimit:  20,
				Enabled:    true,
			},
			"gemini": {
				Type:       "gemini",
				Model:      "text-embedding-004",
				APIKey:     "${GEMINI_API_KEY}",
				Dimensions: 768,
				RateLimit:  10,
				Enabled:    true,
			},
		},
		OCRProviders: map[string]OCRProviderCfg{
			"clova": {
				Type:    "clova",
				URL:     "${CLOVA_OCR_URL}",
				APIKey:  "${CLOVA_OCR_SECRET}",
				Enabled: true,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openai",
			Embedder:    "openai",
			OCRProvider: "clova",
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Review: ReviewCfg{
			Threshold:           0.89,
			TopK:                3,
			SearchConcurrency:   5,
			MaxRetries:          3,
			BackoffSeconds:      1,
			CallTimeoutSeconds:  30,
			MaxPositionPages:    2,
			MinClauseBodyLength: 10,
			HNSWEf:              128,
			Temperature:         0.1,
			MaxTokens:           1024,
		},
		VectorStore: VectorStoreCfg{
			Backend:    "chromem",
			Collection: "standard",
			Dimensions: 1536,
		},
		Postgres: PostgresCfg{
			ContainerName: "lexreview-postgres",
			Image:         "pgvector/pgvector:pg16",
			Port:          "5433",
			Password:      "lexreview",
		},
		Storage: StorageCfg{
			HTTPTimeoutSeconds: 60,
			MaxMegabytes:       64,
		},
		Standards: StandardsCfg{
			Workers: 4,
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// GetEmbedder returns an embedder config by name.
func (c *Config) GetEmbedder(name string) (EmbedderCfg, bool) {
	cfg, ok := c.Embedders[name]
	return cfg, ok
}
