package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/lexreview/internal/providers"
)

// EnvPrefix prefixes environment overrides, e.g. LEXREVIEW_REVIEW_THRESHOLD.
const EnvPrefix = "LEXREVIEW"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a config manager and loads the initial config. An empty
// cfgFile searches ./config.yaml and ~/.lexreview/config.yaml; a missing file
// is not an error.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{v: viper.New()}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg
	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	if err := setDefaults(cm.v, DefaultConfig()); err != nil {
		return err
	}

	cm.v.SetEnvPrefix(EnvPrefix)
	cm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cm.v.AutomaticEnv()

	if cfgFile != "" {
		cm.v.SetConfigFile(cfgFile)
	} else {
		cm.v.SetConfigName("config")
		cm.v.SetConfigType("yaml")
		cm.v.AddConfigPath(".")
		cm.v.AddConfigPath("$HOME/.lexreview")
	}

	if err := cm.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// setDefaults registers every leaf of defaults as its own key so that
// environment variables can override nested values.
func setDefaults(v *viper.Viper, defaults *Config) error {
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var tree map[interface{}]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to unmarshal defaults: %w", err)
	}
	flatten("", tree, v.SetDefault)
	return nil
}

func flatten(prefix string, node map[interface{}]interface{}, set func(string, any)) {
	for k, val := range node {
		key := fmt.Sprint(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if child, ok := val.(map[interface{}]interface{}); ok {
			flatten(key, child, set)
			continue
		}
		set(key, val)
	}
}

func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file in use, or "" when running on defaults.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading. A reload that fails validation keeps
// the previous config.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Review.Threshold < 0 || c.Review.Threshold > 1 {
		return fmt.Errorf("review.threshold must be within [0, 1], got %v", c.Review.Threshold)
	}
	if c.Review.TopK < 0 || c.Review.SearchConcurrency < 0 || c.Review.MaxRetries < 0 {
		return fmt.Errorf("review.top_k, search_concurrency and max_retries must not be negative")
	}
	switch c.VectorStore.Backend {
	case "", "chromem":
	case "pgvector":
		if !c.Postgres.Enabled {
			return fmt.Errorf("vectorstore.backend pgvector requires postgres.enabled")
		}
	default:
		return fmt.Errorf("unknown vectorstore.backend %q", c.VectorStore.Backend)
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// ToProviderRegistryConfig converts the config for providers.Registry,
// resolving ${ENV_VAR} references in keys and URLs.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		LLMProviders: make(map[string]providers.LLMProviderConfig),
		Embedders:    make(map[string]providers.EmbedderConfig),
		OCRProviders: make(map[string]providers.OCRProviderConfig),
	}

	for name, llm := range c.LLMProviders {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:      llm.Type,
			Model:     llm.Model,
			APIKey:    ResolveEnvVars(llm.APIKey),
			BaseURL:   llm.BaseURL,
			RateLimit: llm.RateLimit,
			Enabled:   llm.Enabled,
		}
	}
	for name, e := range c.Embedders {
		cfg.Embedders[name] = providers.EmbedderConfig{
			Type:       e.Type,
			Model:      e.Model,
			APIKey:     ResolveEnvVars(e.APIKey),
			BaseURL:    e.BaseURL,
			Dimensions: e.Dimensions,
			RateLimit:  e.RateLimit,
			Enabled:    e.Enabled,
		}
	}
	for name, ocr := range c.OCRProviders {
		cfg.OCRProviders[name] = providers.OCRProviderConfig{
			Type:    ocr.Type,
			URL:     ResolveEnvVars(ocr.URL),
			APIKey:  ResolveEnvVars(ocr.APIKey),
			Enabled: ocr.Enabled,
		}
	}
	return cfg
}

// Backoff returns the linear retry step.
func (r ReviewCfg) Backoff() time.Duration {
	return time.Duration(r.BackoffSeconds * float64(time.Second))
}

// CallTimeout returns the per-attempt timeout.
func (r ReviewCfg) CallTimeout() time.Duration {
	return time.Duration(r.CallTimeoutSeconds * float64(time.Second))
}

// CacheTTL returns how long cached reviews are served.
func (r ReviewCfg) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLHours) * time.Hour
}

// HTTPTimeout returns the storage request timeout.
func (s StorageCfg) HTTPTimeout() time.Duration {
	return time.Duration(s.HTTPTimeoutSeconds) * time.Second
}

// MaxBytes returns the document size cap.
func (s StorageCfg) MaxBytes() int64 {
	return int64(s.MaxMegabytes) << 20
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# lexreview configuration
# API keys use ${ENV_VAR} syntax to reference environment variables, e.g.
#   export OPENAI_API_KEY=xxx CLOVA_OCR_URL=xxx CLOVA_OCR_SECRET=xxx
# Any key can be overridden with LEXREVIEW_<SECTION>_<KEY>, e.g. LEXREVIEW_REVIEW_THRESHOLD=0.9

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
