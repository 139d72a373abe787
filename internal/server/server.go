package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/podshelf/podshelf/internal/api"
	"github.com/podshelf/podshelf/internal/audit"
	"github.com/podshelf/podshelf/internal/clean"
	"github.com/podshelf/podshelf/internal/config"
	"github.com/podshelf/podshelf/internal/enrich"
	"github.com/podshelf/podshelf/internal/extract"
	"github.com/podshelf/podshelf/internal/feed"
	"github.com/podshelf/podshelf/internal/home"
	"github.com/podshelf/podshelf/internal/pipeline"
	"github.com/podshelf/podshelf/internal/providers"
	"github.com/podshelf/podshelf/internal/server/endpoints"
	"github.com/podshelf/podshelf/internal/storage"
	"github.com/podshelf/podshelf/internal/svcctx"
)

// Server is the main Podshelf HTTP server.
// It opens the SQLite store on start and closes it on shutdown.
type Server struct {
	httpServer *http.Server
	store      *storage.SQLiteStore
	registry   *providers.Registry
	configMgr  *config.Manager
	home       *home.Dir
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8580)
	Port string
	// Home is the podshelf home directory holding data files
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8580"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		dir, err := home.New("")
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.Home = dir
	}

	// Create provider registry
	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)

	// If config manager provided, set up providers and hot reload
	if cfg.ConfigManager != nil {
		registry.Reload(cfg.ConfigManager.Get().ToProviderRegistryConfig())

		// Watch for config changes
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			cfg.Logger.Info("provider registry reloaded from config")
		})
	}

	s := &Server{
		registry:  registry,
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server and opens the store.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	var conf *config.Config
	if s.configMgr != nil {
		conf = s.configMgr.Get()
	} else {
		conf = config.DefaultConfig()
	}

	if err := s.home.EnsureExists(); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to create home directory: %w", err)
	}

	dbPath := conf.Storage.DBPath
	if dbPath == "" {
		dbPath = s.home.DBPath()
	}
	s.logger.Info("opening store", "path", dbPath)
	store, err := storage.New(storage.Config{DBPath: dbPath})
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to open store: %w", err)
	}
	s.store = store

	s.services = s.buildServices(conf)

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// buildServices wires the core services from configuration.
func (s *Server) buildServices(conf *config.Config) *svcctx.Services {
	contextTTL := time.Duration(conf.Extraction.ContextTTLMinutes) * time.Minute
	if contextTTL <= 0 {
		contextTTL = 24 * time.Hour
	}

	extractor := extract.New(extract.Config{
		Client:              s.registry,
		Contexts:            extract.NewTTLContextStore(contextTTL),
		Logger:              s.logger,
		ComplexityThreshold: conf.Extraction.ComplexityThreshold,
		MaxTokens:           conf.Extraction.MaxTokens,
	})

	pipe := pipeline.New(pipeline.Config{
		Extractor:  extractor,
		Store:      s.store,
		Logger:     s.logger,
		BatchSize:  conf.Extraction.BatchSize,
		BatchDelay: time.Duration(conf.Extraction.BatchDelaySeconds) * time.Second,
	})

	var enricher enrich.MetadataEnricher
	if conf.Enrichment.Enabled {
		enricher = enrich.New(enrich.Config{
			APIKey:  config.ResolveEnvVars(conf.Enrichment.APIKey),
			Logger:  s.logger,
			Retries: uint(max(conf.Enrichment.Retries, 0)),
		})
	}

	var feedSource feed.TextSource
	if conf.Feed.URL != "" {
		timeout := time.Duration(conf.Feed.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = feed.DefaultTimeout
		}
		feedSource = feed.NewClient(conf.Feed.URL, &http.Client{Timeout: timeout}, s.logger)
	}

	return &svcctx.Services{
		Store:     s.store,
		Extractor: extractor,
		Pipeline:  pipe,
		Auditor:   audit.New(s.store, s.logger),
		Cleaner:   clean.New(s.store, s.logger),
		Enricher:  enricher,
		Feed:      feedSource,
		Config:    s.configMgr,
		Logger:    s.logger,
		Home:      s.home,
	}
}

// shutdown performs graceful shutdown of the HTTP server and store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("store close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Store returns the book store.
// Returns nil if the server hasn't started yet.
func (s *Server) Store() *storage.SQLiteStore {
	return s.store
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the store or services aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.services == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
