// Package standards maintains the reference corpus: reference documents are
// chunked with the same chunker as agreements, embedded per clause and
// written to the vector store under their standard id.
package standards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"

	"github.com/jackzampolin/lexreview/internal/aggregator"
	"github.com/jackzampolin/lexreview/internal/chunker"
	"github.com/jackzampolin/lexreview/internal/document"
	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/orchestrator"
	"github.com/jackzampolin/lexreview/internal/patterns"
	"github.com/jackzampolin/lexreview/internal/prompts/casegen"
	"github.com/jackzampolin/lexreview/internal/providers"
	"github.com/jackzampolin/lexreview/internal/types"
	"github.com/jackzampolin/lexreview/internal/vectorstore"
)

const defaultWorkers = 4

// Fetcher reads a whole object by URI. *storage.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// ExampleGenerator writes an incorrect/corrected pair for a clause.
// *casegen.Generator satisfies it.
type ExampleGenerator interface {
	Generate(ctx context.Context, clause string) (*casegen.Example, error)
}

var _ ExampleGenerator = (*casegen.Generator)(nil)

// Config configures a Service.
type Config struct {
	Fetcher  Fetcher
	OCR      providers.OCRProvider // optional; needed for image standards
	Chunker  *chunker.Chunker      // optional; a default chunker is built when nil
	Embedder providers.Embedder
	Store    vectorstore.Store

	// Generator adds example pairs to every point when set.
	Generator ExampleGenerator

	Collection string
	Workers    int
	Retry      orchestrator.RetryPolicy
	Logger     *slog.Logger
}

// Service ingests and deletes reference standards.
type Service struct {
	fetcher    Fetcher
	ocr        providers.OCRProvider
	chunker    *chunker.Chunker
	embedder   providers.Embedder
	store      vectorstore.Store
	generator  ExampleGenerator
	collection string
	workers    int
	retry      orchestrator.RetryPolicy
	logger     *slog.Logger
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Fetcher == nil || cfg.Embedder == nil || cfg.Store == nil {
		return nil, fmt.Errorf("fetcher, embedder and store are required")
	}
	if cfg.Chunker == nil {
		cfg.Chunker = chunker.New(chunker.Config{Logger: cfg.Logger})
	}
	if cfg.Collection == "" {
		cfg.Collection = orchestrator.DefaultCollection
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retry.Logger == nil {
		cfg.Retry.Logger = cfg.Logger
	}

	return &Service{
		fetcher:    cfg.Fetcher,
		ocr:        cfg.OCR,
		chunker:    cfg.Chunker,
		embedder:   cfg.Embedder,
		store:      cfg.Store,
		generator:  cfg.Generator,
		collection: cfg.Collection,
		workers:    cfg.Workers,
		retry:      cfg.Retry,
		logger:     cfg.Logger,
	}, nil
}

// IngestRequest names a reference document to add.
type IngestRequest struct {
	URL        string `json:"url"`
	StandardID int64  `json:"standardId"`
	Category   string `json:"category"`
}

// IngestResult summarizes an ingestion.
type IngestResult struct {
	StandardID int64  `json:"standard_id"`
	Category   string `json:"category"`
	Clauses    int    `json:"clauses"`
	Points     int    `json:"points"`
	Replaced   int    `json:"replaced"`
	Collection string `json:"collection"`
}

// Ingest fetches, chunks and embeds a reference document. Points already
// stored for the same standard id are replaced.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	logger := s.logger.With("standard_id", req.StandardID, "category", req.Category)

	kind, format, err := document.DetectKind(req.URL)
	if err != nil {
		return nil, err
	}
	data, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	doc, err := document.Extract(ctx, kind, format, data, s.ocr)
	if err != nil {
		return nil, err
	}

	units, err := s.chunker.Chunk(doc.Pages())
	if err != nil {
		return nil, err
	}
	clauses, err := aggregator.Aggregate(units)
	if err != nil {
		return nil, err
	}
	logger.Info("chunked standard", "pages", doc.PageCount(), "clauses", len(clauses))

	id := strconv.FormatInt(req.StandardID, 10)
	created := time.Now().UTC()

	mapper := iter.Mapper[*types.ReviewUnit, vectorstore.Point]{MaxGoroutines: s.workers}
	points, err := mapper.MapErr(clauses, func(u **types.ReviewUnit) (vectorstore.Point, error) {
		return s.buildPoint(ctx, *u, id, req.Category, created)
	})
	if err != nil {
		return nil, firstCoded(err)
	}
	if len(points) == 0 {
		return nil, errcode.Newf(errcode.NoPointsGenerated, "standard %s produced no points", id)
	}

	// The previous points stay searchable until the new ones are stored.
	if err := s.store.Upsert(ctx, s.collection, points); err != nil {
		return nil, errcode.New(errcode.UploadFailed, err)
	}
	keep := make([]string, len(points))
	for i, p := range points {
		keep[i] = p.ID
	}
	replaced, err := s.store.DeleteByStandardExcept(ctx, s.collection, id, keep)
	if err != nil {
		return nil, errcode.New(errcode.DeleteFailed, err)
	}

	logger.Info("ingested standard", "points", len(points), "replaced", replaced)
	return &IngestResult{
		StandardID: req.StandardID,
		Category:   req.Category,
		Clauses:    len(clauses),
		Points:     len(points),
		Replaced:   replaced,
		Collection: s.collection,
	}, nil
}

func (s *Service) buildPoint(ctx context.Context, u *types.ReviewUnit, standardID, category string, created time.Time) (vectorstore.Point, error) {
	_, body := patterns.SplitTitle(u.IncorrectText)
	content := strings.TrimSpace(patterns.CleanClause(body))
	article, clause := splitClauseNumber(u.ClauseNumber)

	p := vectorstore.Point{
		ID:         uuid.NewString(),
		StandardID: standardID,
		Category:   category,
		ProofText:  content,
		CreatedAt:  created,
	}

	if s.generator != nil {
		ex, err := s.generate(ctx, content)
		if err != nil {
			return p, err
		}
		p.IncorrectText = ex.IncorrectText
		p.CorrectedText = ex.CorrectedText
	}

	text := fmt.Sprintf("조 %s, 항 %s: %s", article, clause, content)
	vector, err := orchestrator.Do(ctx, s.retry, "embed", func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	})
	if err != nil {
		return p, errcode.New(errcode.EmbeddingFailed, err)
	}
	p.Vector = vector
	return p, nil
}

func (s *Service) generate(ctx context.Context, clause string) (*casegen.Example, error) {
	ex, err := orchestrator.Do(ctx, s.retry, "generate example", func(ctx context.Context) (*casegen.Example, error) {
		return s.generator.Generate(ctx, clause)
	})
	if err == nil {
		return ex, nil
	}
	if errors.Is(err, orchestrator.ErrAttemptTimeout) {
		return nil, errcode.New(errcode.LLMResponseTimeout, err)
	}
	if errors.Is(err, casegen.ErrMalformed) {
		return nil, errcode.New(errcode.PromptMaxTrialFailed, err)
	}
	return nil, errcode.New(errcode.StandardReviewFailed, err)
}

// DeleteResult reports what Delete removed. Found is false when the
// standard had no points.
type DeleteResult struct {
	StandardID int64 `json:"standard_id"`
	Deleted    int   `json:"deleted"`
	Found      bool  `json:"found"`
}

// Delete removes every point of a standard.
func (s *Service) Delete(ctx context.Context, standardID int64) (*DeleteResult, error) {
	ok, err := s.store.HasCollection(ctx, s.collection)
	if err != nil {
		return nil, errcode.New(errcode.VectorStoreDown, err)
	}
	if !ok {
		return nil, errcode.Newf(errcode.CollectionNotFound, "collection %q", s.collection)
	}

	id := strconv.FormatInt(standardID, 10)
	n, err := s.store.CountByStandard(ctx, s.collection, id)
	if err != nil {
		return nil, errcode.New(errcode.VectorStoreTimeout, err)
	}
	res := &DeleteResult{StandardID: standardID}
	if n == 0 {
		return res, nil
	}

	deleted, err := s.store.DeleteByStandard(ctx, s.collection, id)
	if err != nil {
		return nil, errcode.New(errcode.DeleteFailed, err)
	}
	res.Deleted = deleted
	res.Found = true
	s.logger.Info("deleted standard", "standard_id", standardID, "points", deleted)
	return res, nil
}

// ParseStandardID parses a path parameter as a standard id.
func ParseStandardID(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, errcode.Newf(errcode.InvalidURLParameter, "standard id is empty")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errcode.New(errcode.CannotConvertToNum, err)
	}
	return id, nil
}

// splitClauseNumber turns "제3조 2항" into ("3", "2").
func splitClauseNumber(cn string) (article, clause string) {
	head, tail, _ := strings.Cut(cn, " ")
	article = strings.TrimSuffix(strings.TrimPrefix(head, "제"), "조")
	clause = strings.TrimSuffix(tail, "항")
	return article, clause
}

// firstCoded returns the first coded error in a joined error, or err.
func firstCoded(err error) error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			var coded *errcode.Error
			if errors.As(e, &coded) {
				return e
			}
		}
	}
	return err
}
