package providers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ProviderConfig describes one configured LLM provider.
type ProviderConfig struct {
	Type      string // "openrouter", "openai", "mock"
	Model     string
	APIKey    string
	BaseURL   string
	RateLimit int // requests per minute; zero uses the default window capacity
	Retries   int
	Enabled   bool
}

// RegistryConfig is the full provider configuration for a Reload.
type RegistryConfig struct {
	Providers map[string]ProviderConfig
	Default   string
}

// Registry holds the configured LLM clients and tracks the default.
// It implements LLMClient itself, delegating to the current default, so
// consumers keep working across config hot reloads.
type Registry struct {
	mu          sync.RWMutex
	clients     map[string]LLMClient
	defaultName string
	logger      *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]LLMClient),
		logger:  slog.Default(),
	}
}

// SetLogger sets the registry logger.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Reload replaces the registered clients with ones built from cfg.
// Disabled providers are skipped; unknown types are logged and skipped.
func (r *Registry) Reload(cfg RegistryConfig) {
	clients := make(map[string]LLMClient, len(cfg.Providers))

	r.mu.RLock()
	logger := r.logger
	r.mu.RUnlock()

	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}

		var limiter *RateLimiter
		if pc.RateLimit > 0 {
			limiter = NewRateLimiter(time.Minute, pc.RateLimit)
		}

		switch pc.Type {
		case "openrouter":
			clients[name] = NewOpenRouterClient(OpenRouterConfig{
				APIKey:       pc.APIKey,
				BaseURL:      pc.BaseURL,
				DefaultModel: pc.Model,
				MaxRetries:   pc.Retries,
				Limiter:      limiter,
			})
		case "openai":
			clients[name] = NewOpenAIClient(OpenAIConfig{
				APIKey:       pc.APIKey,
				BaseURL:      pc.BaseURL,
				DefaultModel: pc.Model,
				MaxRetries:   pc.Retries,
				Limiter:      limiter,
			})
		case "mock":
			clients[name] = NewMockClient()
		default:
			logger.Warn("unknown llm provider type, skipping", "name", name, "type", pc.Type)
		}
	}

	r.mu.Lock()
	r.clients = clients
	r.defaultName = cfg.Default
	r.mu.Unlock()

	logger.Info("llm provider registry reloaded", "providers", len(clients), "default", cfg.Default)
}

// Get returns a client by name.
func (r *Registry) Get(name string) (LLMClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	return c, ok
}

// Default returns the configured default client, or nil if unavailable.
func (r *Registry) Default() LLMClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[r.defaultName]
}

// List returns the names of all registered providers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// Name implements LLMClient by reporting the default provider's name.
func (r *Registry) Name() string {
	if c := r.Default(); c != nil {
		return c.Name()
	}
	return "none"
}

// Generate implements LLMClient by delegating to the default provider.
func (r *Registry) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	c := r.Default()
	if c == nil {
		return nil, errors.New("providers: no default llm provider configured")
	}
	return c.Generate(ctx, req)
}
