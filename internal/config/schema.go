package config

// Config holds podshelf configuration.
// Stored at: ~/.podshelf/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Feed         FeedCfg                   `mapstructure:"feed" yaml:"feed"`
	Storage      StorageCfg                `mapstructure:"storage" yaml:"storage"`
	Extraction   ExtractionCfg             `mapstructure:"extraction" yaml:"extraction"`
	Enrichment   EnrichmentCfg             `mapstructure:"enrichment" yaml:"enrichment"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string `mapstructure:"type" yaml:"type"`   // "openrouter", "openai"
	Model     string `mapstructure:"model" yaml:"model"` // Model name
	APIKey    string `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	Retries   int    `mapstructure:"retries" yaml:"retries"`
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selection.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"`
}

// FeedCfg configures the podcast RSS source.
type FeedCfg struct {
	URL            string `mapstructure:"url" yaml:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// StorageCfg configures the SQLite book store.
type StorageCfg struct {
	// DBPath is the database file. Empty means {home}/podshelf.db.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// ExtractionCfg tunes the extraction pipeline.
type ExtractionCfg struct {
	// ComplexityThreshold is the description length that triggers
	// multi-pass extraction.
	ComplexityThreshold int `mapstructure:"complexity_threshold" yaml:"complexity_threshold"`
	MaxTokens           int `mapstructure:"max_tokens" yaml:"max_tokens"`
	// ContextTTLMinutes bounds how long cross-episode context is kept.
	ContextTTLMinutes int `mapstructure:"context_ttl_minutes" yaml:"context_ttl_minutes"`
	BatchSize         int `mapstructure:"batch_size" yaml:"batch_size"`
	BatchDelaySeconds int `mapstructure:"batch_delay_seconds" yaml:"batch_delay_seconds"`
}

// EnrichmentCfg configures the Google Books metadata enricher.
type EnrichmentCfg struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"` // optional (supports ${ENV_VAR} syntax)
	Retries int    `mapstructure:"retries" yaml:"retries"`
}

// ServerCfg configures the HTTP API server.
type ServerCfg struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:      "openrouter",
				Model:     "anthropic/claude-sonnet-4",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 4000,
				Retries:   3,
				Enabled:   true,
			},
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o-mini",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 4000,
				Retries:   3,
				Enabled:   false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openrouter",
		},
		Feed: FeedCfg{
			TimeoutSeconds: 30,
		},
		Extraction: ExtractionCfg{
			ComplexityThreshold: 800,
			MaxTokens:           2000,
			ContextTTLMinutes:   24 * 60,
			BatchSize:           5,
			BatchDelaySeconds:   1,
		},
		Enrichment: EnrichmentCfg{
			Enabled: true,
			APIKey:  "${GOOGLE_BOOKS_API_KEY}",
			Retries: 3,
		},
		Server: ServerCfg{
			Port: 8580,
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// DefaultLLMProvider returns the configured default provider.
func (c *Config) DefaultLLMProvider() (string, LLMProviderCfg, bool) {
	name := c.Defaults.LLMProvider
	cfg, ok := c.LLMProviders[name]
	return name, cfg, ok
}
