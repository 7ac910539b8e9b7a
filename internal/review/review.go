// Package review runs one agreement through the whole pipeline: fetch,
// extract, chunk, aggregate, then retrieval and correction per clause.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackzampolin/lexreview/internal/aggregator"
	"github.com/jackzampolin/lexreview/internal/chunker"
	"github.com/jackzampolin/lexreview/internal/document"
	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/orchestrator"
	"github.com/jackzampolin/lexreview/internal/pgstore"
	"github.com/jackzampolin/lexreview/internal/providers"
	"github.com/jackzampolin/lexreview/internal/types"
)

// Fetcher reads a whole object by URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// CollectionChecker reports whether the reference collection exists.
type CollectionChecker interface {
	HasCollection(ctx context.Context, collection string) (bool, error)
}

// Cache stores finished results. *pgstore.ReviewCache satisfies it.
type Cache interface {
	Get(ctx context.Context, docHash, category string, threshold float64) (*types.AnalysisResult, error)
	Put(ctx context.Context, docHash, category string, threshold float64, res *types.AnalysisResult) error
}

var _ Cache = (*pgstore.ReviewCache)(nil)

// Config configures a Pipeline.
type Config struct {
	Fetcher      Fetcher
	OCR          providers.OCRProvider // optional; image requests fail with A011 without it
	Chunker      *chunker.Chunker
	Orchestrator *orchestrator.Orchestrator
	Collections  CollectionChecker
	Cache        Cache // optional
	Logger       *slog.Logger
}

// Pipeline reviews agreements.
type Pipeline struct {
	fetcher     Fetcher
	ocr         providers.OCRProvider
	chunker     *chunker.Chunker
	orch        *orchestrator.Orchestrator
	collections CollectionChecker
	cache       Cache
	logger      *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.Collections == nil {
		return nil, fmt.Errorf("collection checker is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Chunker == nil {
		cfg.Chunker = chunker.New(chunker.Config{Logger: cfg.Logger})
	}
	return &Pipeline{
		fetcher:     cfg.Fetcher,
		ocr:         cfg.OCR,
		chunker:     cfg.Chunker,
		orch:        cfg.Orchestrator,
		collections: cfg.Collections,
		cache:       cfg.Cache,
		logger:      cfg.Logger,
	}, nil
}

// Request is the body of an analysis request.
type Request struct {
	URL      string `json:"url"`
	Category string `json:"category"`
}

// Report is an analysis result plus what happened to the clauses that were
// not accepted.
type Report struct {
	Result   *types.AnalysisResult
	DocHash  string
	Cached   bool
	Clauses  int
	Rejected int
	Dropped  int
	Failures []orchestrator.Failure
	Elapsed  time.Duration
}

// Analyze fetches the document at req.URL and reviews it.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*Report, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, errcode.Newf(errcode.FieldMissing, "url is required")
	}
	if strings.TrimSpace(req.Category) == "" {
		return nil, errcode.Newf(errcode.FieldMissing, "category is required")
	}
	if p.fetcher == nil {
		return nil, errcode.Newf(errcode.InvalidStoragePath, "no storage client configured")
	}
	if _, _, err := document.DetectKind(req.URL); err != nil {
		return nil, err
	}
	if err := p.precheck(ctx); err != nil {
		return nil, err
	}
	data, err := p.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	return p.review(ctx, req.URL, data, req.Category)
}

// AnalyzeBytes reviews a document already in memory. name only selects the
// file type.
func (p *Pipeline) AnalyzeBytes(ctx context.Context, name string, data []byte, category string) (*Report, error) {
	if strings.TrimSpace(category) == "" {
		return nil, errcode.Newf(errcode.FieldMissing, "category is required")
	}
	if _, _, err := document.DetectKind(name); err != nil {
		return nil, err
	}
	if err := p.precheck(ctx); err != nil {
		return nil, err
	}
	return p.review(ctx, name, data, category)
}

// precheck fails the whole request when there is nothing to search against.
func (p *Pipeline) precheck(ctx context.Context) error {
	collection := p.orch.Collection()
	ok, err := p.collections.HasCollection(ctx, collection)
	if err != nil {
		return errcode.New(errcode.VectorStoreDown, err)
	}
	if !ok {
		return errcode.Newf(errcode.CollectionNotFound, "collection %q has no reference points", collection)
	}
	return nil
}

func (p *Pipeline) review(ctx context.Context, name string, data []byte, category string) (*Report, error) {
	start := time.Now()
	kind, format, err := document.DetectKind(name)
	if err != nil {
		return nil, err
	}

	report := &Report{DocHash: pgstore.HashDocument(data)}
	logger := p.logger.With("doc_hash", report.DocHash[:12], "category", category)
	threshold := p.orch.Threshold()

	if p.cache != nil {
		cached, err := p.cache.Get(ctx, report.DocHash, category, threshold)
		if err != nil {
			logger.Warn("review cache read failed", "error", err)
		} else if cached != nil {
			logger.Info("serving cached review", "chunks", cached.TotalChunks)
			report.Result = cached
			report.Cached = true
			report.Elapsed = time.Since(start)
			return report, nil
		}
	}

	doc, err := document.Extract(ctx, kind, format, data, p.ocr)
	if err != nil {
		return nil, err
	}
	units, err := p.chunker.Chunk(doc.Pages())
	if err != nil {
		return nil, err
	}
	clauses, err := aggregator.Aggregate(units)
	if err != nil {
		return nil, err
	}
	report.Clauses = len(clauses)
	logger.Info("document chunked", "pages", doc.PageCount(), "units", len(units), "clauses", len(clauses))
	if logger.Enabled(ctx, slog.LevelDebug) {
		for _, c := range clauses {
			logger.Debug("review unit", "unit", aggregator.Describe(c))
		}
	}

	res := p.orch.Process(ctx, clauses, category, doc)
	if err := ctx.Err(); err != nil {
		return nil, errcode.New(errcode.ReviewFailed, fmt.Errorf("review interrupted: %w", err))
	}

	report.Result = &types.AnalysisResult{
		TotalPage:   doc.PageCount(),
		Chunks:      res.Units,
		TotalChunks: len(res.Units),
	}
	report.Rejected = res.Rejected
	report.Dropped = res.Dropped
	report.Failures = res.Failures

	// Failed clauses may succeed on a later run, so only clean results are cached.
	if p.cache != nil && len(res.Failures) == 0 {
		if err := p.cache.Put(ctx, report.DocHash, category, threshold, report.Result); err != nil {
			logger.Warn("review cache write failed", "error", err)
		}
	}

	report.Elapsed = time.Since(start)
	logger.Info("review complete",
		"accepted", report.Result.TotalChunks,
		"failed", len(report.Failures),
		"elapsed", report.Elapsed)
	return report, nil
}
