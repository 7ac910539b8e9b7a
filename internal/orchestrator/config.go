package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/semaphore"

	"github.com/jackzampolin/lexreview/internal/locator"
	"github.com/jackzampolin/lexreview/internal/prompts/correction"
	"github.com/jackzampolin/lexreview/internal/providers"
	"github.com/jackzampolin/lexreview/internal/vectorstore"
)

// Defaults applied by New for zero-valued Config fields.
const (
	DefaultThreshold         = 0.89
	DefaultTopK              = 3
	DefaultSearchConcurrency = 5
	DefaultMaxRetries        = 3
	DefaultBackoff           = time.Second
	DefaultCallTimeout       = 30 * time.Second
	DefaultMaxPositionPages  = 2
	DefaultCollection        = "standard"
)

// Corrector scores one clause against its reference matches.
// *correction.Corrector satisfies it.
type Corrector interface {
	Correct(ctx context.Context, in correction.Input) (correction.Result, error)
}

var _ Corrector = (*correction.Corrector)(nil)

// Config configures an Orchestrator.
type Config struct {
	Embedder  providers.Embedder
	Searcher  vectorstore.Searcher
	Corrector Corrector
	Locator   *locator.Locator // optional; a default locator is built when nil

	// Collection is the similarity-search collection to query.
	Collection string

	// Threshold is the violation score a correction must exceed to be kept.
	Threshold float64

	// TopK is the number of reference matches requested per clause.
	TopK int

	// SearchConcurrency bounds in-flight similarity searches across all
	// Process calls on this Orchestrator. Ignored when Limiter is set.
	SearchConcurrency int

	// Limiter is a search limiter shared with other Orchestrators, so the
	// bound holds across a config reload. Optional.
	Limiter *semaphore.Weighted

	// MaxRetries is the attempt ceiling for every collaborator call.
	MaxRetries int

	// Backoff is the linear backoff step; attempt n waits n*Backoff.
	Backoff time.Duration

	// CallTimeout bounds each individual collaborator attempt.
	CallTimeout time.Duration

	// MaxPositionPages caps how many pages of evidence are attached to a unit.
	// Zero means the default; a negative value keeps every page.
	MaxPositionPages int

	SearchParams vectorstore.SearchParams

	Logger *slog.Logger

	// Timer replaces the backoff clock, mostly for tests.
	Timer retry.Timer
}

func (c *Config) applyDefaults() {
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.SearchConcurrency <= 0 {
		c.SearchConcurrency = DefaultSearchConcurrency
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultBackoff
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.MaxPositionPages == 0 {
		c.MaxPositionPages = DefaultMaxPositionPages
	}
	if c.Locator == nil {
		c.Locator = locator.New(locator.Config{})
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
