// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/jackzampolin/lexreview/internal/chunker"
	"github.com/jackzampolin/lexreview/internal/config"
	"github.com/jackzampolin/lexreview/internal/home"
	"github.com/jackzampolin/lexreview/internal/orchestrator"
	"github.com/jackzampolin/lexreview/internal/pgstore"
	"github.com/jackzampolin/lexreview/internal/prompts"
	"github.com/jackzampolin/lexreview/internal/providers"
	"github.com/jackzampolin/lexreview/internal/review"
	"github.com/jackzampolin/lexreview/internal/standards"
	"github.com/jackzampolin/lexreview/internal/storage"
	"github.com/jackzampolin/lexreview/internal/vectorstore"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
//
// The long-lived parts (database, vector store, registry) are shared across
// reloads; the pipeline parts are rebuilt by Reconfigure.
type Services struct {
	Config   *config.Config
	Logger   *slog.Logger
	Home     *home.Dir
	Registry *providers.Registry
	Prompts  *prompts.Resolver
	DB       *pgstore.DB            // nil when postgres is disabled
	Cache    *pgstore.ReviewCache   // nil when postgres is disabled
	Docker   *pgstore.DockerManager // nil unless the container is managed here
	Store    vectorstore.Store
	Storage  *storage.Client
	Chunker  *chunker.Chunker

	Orchestrator *orchestrator.Orchestrator
	Pipeline     *review.Pipeline
	Standards    *standards.Service

	// InitErr is set when the review pipeline could not be assembled, most
	// often because a provider has no API key. Endpoints that need the
	// pipeline answer 503 with it.
	InitErr error

	ownsRegistry bool

	// searchLimiter bounds similarity searches process-wide. It is sized once
	// by Build and shared by every Reconfigure copy.
	searchLimiter     *semaphore.Weighted
	searchConcurrency int
}

// Ready reports whether the review pipeline is usable.
func (s *Services) Ready() bool {
	return s != nil && s.InitErr == nil && s.Pipeline != nil
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

// PipelineFrom extracts the review pipeline from context.
func PipelineFrom(ctx context.Context) *review.Pipeline {
	if s := ServicesFrom(ctx); s != nil {
		return s.Pipeline
	}
	return nil
}

// StandardsFrom extracts the standards service from context.
func StandardsFrom(ctx context.Context) *standards.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Standards
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// PromptsFrom extracts the prompt resolver from context.
func PromptsFrom(ctx context.Context) *prompts.Resolver {
	if s := ServicesFrom(ctx); s != nil {
		return s.Prompts
	}
	return nil
}

// CacheFrom extracts the review cache from context.
func CacheFrom(ctx context.Context) *pgstore.ReviewCache {
	if s := ServicesFrom(ctx); s != nil {
		return s.Cache
	}
	return nil
}

type loggerKey struct{}

// WithLogger attaches a request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the request logger if one is attached, then the
// services logger, then the default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
