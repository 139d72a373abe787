// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/podshelf/podshelf/internal/audit"
	"github.com/podshelf/podshelf/internal/clean"
	"github.com/podshelf/podshelf/internal/config"
	"github.com/podshelf/podshelf/internal/enrich"
	"github.com/podshelf/podshelf/internal/extract"
	"github.com/podshelf/podshelf/internal/feed"
	"github.com/podshelf/podshelf/internal/home"
	"github.com/podshelf/podshelf/internal/pipeline"
	"github.com/podshelf/podshelf/internal/storage"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store     *storage.SQLiteStore
	Extractor *extract.Extractor
	Pipeline  *pipeline.Service
	Auditor   *audit.Auditor
	Cleaner   *clean.Cleaner
	Enricher  enrich.MetadataEnricher
	Feed      feed.TextSource
	Config    *config.Manager
	Logger    *slog.Logger
	Home      *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the book store from context.
func StoreFrom(ctx context.Context) *storage.SQLiteStore {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// ExtractorFrom extracts the book extractor from context.
func ExtractorFrom(ctx context.Context) *extract.Extractor {
	if s := ServicesFrom(ctx); s != nil {
		return s.Extractor
	}
	return nil
}

// PipelineFrom extracts the episode pipeline from context.
func PipelineFrom(ctx context.Context) *pipeline.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Pipeline
	}
	return nil
}

// AuditorFrom extracts the quality auditor from context.
func AuditorFrom(ctx context.Context) *audit.Auditor {
	if s := ServicesFrom(ctx); s != nil {
		return s.Auditor
	}
	return nil
}

// CleanerFrom extracts the record cleaner from context.
func CleanerFrom(ctx context.Context) *clean.Cleaner {
	if s := ServicesFrom(ctx); s != nil {
		return s.Cleaner
	}
	return nil
}

// EnricherFrom extracts the metadata enricher from context.
func EnricherFrom(ctx context.Context) enrich.MetadataEnricher {
	if s := ServicesFrom(ctx); s != nil {
		return s.Enricher
	}
	return nil
}

// FeedFrom extracts the episode source from context.
func FeedFrom(ctx context.Context) feed.TextSource {
	if s := ServicesFrom(ctx); s != nil {
		return s.Feed
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
