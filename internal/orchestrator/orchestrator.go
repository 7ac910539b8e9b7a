// Package orchestrator runs the per-clause retrieval and correction pipeline.
//
// Every ReviewUnit of a request is processed independently: its text is
// embedded, the nearest reference examples are fetched from the vector
// store, and the correction model scores the clause against them. Units
// whose violation score clears the threshold are located on the page and
// returned in their original order. Failures are isolated to the unit.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/avast/retry-go/v4"
	"github.com/sourcegraph/conc/iter"
	"golang.org/x/sync/semaphore"

	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/locator"
	"github.com/jackzampolin/lexreview/internal/patterns"
	"github.com/jackzampolin/lexreview/internal/prompts/correction"
	"github.com/jackzampolin/lexreview/internal/types"
	"github.com/jackzampolin/lexreview/internal/vectorstore"
)

// Outcome is how a single unit left the pipeline.
type Outcome int

const (
	// Accepted units cleared the threshold and carry positions.
	Accepted Outcome = iota
	// Rejected units scored at or below the threshold.
	Rejected
	// Dropped units never got a well-formed correction.
	Dropped
	// Failed units hit a collaborator error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Dropped:
		return "dropped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Failure is one unit that failed with a coded error.
type Failure struct {
	ClauseNumber string
	Err          error
}

// Result is the gathered output of one Process call.
type Result struct {
	// Units are the accepted units in submission order.
	Units    []*types.ReviewUnit
	Failures []Failure
	Rejected int
	Dropped  int
}

// Stats are lifetime counters for an Orchestrator.
type Stats struct {
	Processed      int64 `json:"processed"`
	Accepted       int64 `json:"accepted"`
	Rejected       int64 `json:"rejected"`
	Dropped        int64 `json:"dropped"`
	Failed         int64 `json:"failed"`
	SearchInFlight int64 `json:"search_in_flight"`
}

// Orchestrator fans review units out to the embedding, search and
// correction collaborators. It is safe for concurrent use; the search
// limiter is shared by every Process call.
type Orchestrator struct {
	cfg    Config
	sem    *semaphore.Weighted
	logger *slog.Logger

	processed atomic.Int64
	accepted  atomic.Int64
	rejected  atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
	inFlight  atomic.Int64
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if cfg.Corrector == nil {
		return nil, fmt.Errorf("corrector is required")
	}
	cfg.applyDefaults()

	sem := cfg.Limiter
	if sem == nil {
		sem = semaphore.NewWeighted(int64(cfg.SearchConcurrency))
	}
	return &Orchestrator{
		cfg:    cfg,
		sem:    sem,
		logger: cfg.Logger,
	}, nil
}

// Threshold returns the acceptance threshold in effect.
func (o *Orchestrator) Threshold() float64 {
	return o.cfg.Threshold
}

// Collection returns the similarity-search collection queried.
func (o *Orchestrator) Collection() string {
	return o.cfg.Collection
}

// Stats returns a snapshot of the lifetime counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Processed:      o.processed.Load(),
		Accepted:       o.accepted.Load(),
		Rejected:       o.rejected.Load(),
		Dropped:        o.dropped.Load(),
		Failed:         o.failed.Load(),
		SearchInFlight: o.inFlight.Load(),
	}
}

type unitResult struct {
	unit    *types.ReviewUnit
	outcome Outcome
	err     error
}

// Process runs every unit through the pipeline and gathers the results.
// Units are mutated in place; only accepted ones are returned. doc may be
// nil, in which case accepted units carry empty positions.
func (o *Orchestrator) Process(ctx context.Context, units []*types.ReviewUnit, category string, doc locator.Searchable) *Result {
	res := &Result{Units: []*types.ReviewUnit{}}
	if len(units) == 0 {
		return res
	}

	logger := o.logger.With("category", category, "units", len(units))
	logger.Debug("processing review units")

	mapper := iter.Mapper[*types.ReviewUnit, unitResult]{MaxGoroutines: len(units)}
	results := mapper.Map(units, func(u **types.ReviewUnit) unitResult {
		return o.processUnit(ctx, *u, category, doc)
	})

	for _, r := range results {
		o.processed.Add(1)
		switch r.outcome {
		case Accepted:
			o.accepted.Add(1)
			res.Units = append(res.Units, r.unit)
		case Rejected:
			o.rejected.Add(1)
			res.Rejected++
		case Dropped:
			o.dropped.Add(1)
			res.Dropped++
		case Failed:
			o.failed.Add(1)
			res.Failures = append(res.Failures, Failure{ClauseNumber: r.unit.ClauseNumber, Err: r.err})
		}
	}

	logger.Info("review units processed",
		"accepted", len(res.Units),
		"rejected", res.Rejected,
		"dropped", res.Dropped,
		"failed", len(res.Failures))
	return res
}

func (o *Orchestrator) processUnit(ctx context.Context, u *types.ReviewUnit, category string, doc locator.Searchable) unitResult {
	logger := o.logger.With("clause_number", u.ClauseNumber)

	fail := func(err error) unitResult {
		logger.Warn("clause failed", "code", errcode.From(err).Code, "error", err)
		return unitResult{unit: u, outcome: Failed, err: err}
	}

	title, content := patterns.SplitTitle(u.IncorrectText)
	query := strings.TrimSpace(title + " " + content)

	vector, err := o.embed(ctx, query)
	if err != nil {
		return fail(err)
	}

	matches, err := o.search(ctx, vector, category)
	if err != nil {
		return fail(err)
	}

	in := correction.Input{ClauseContent: content}
	for _, m := range matches {
		in.ProofText = append(in.ProofText, m.ProofText)
		in.IncorrectText = append(in.IncorrectText, m.IncorrectText)
		in.CorrectedText = append(in.CorrectedText, m.CorrectedText)
	}

	result, err := o.correct(ctx, in)
	if err != nil {
		return fail(err)
	}
	if result.Kind != correction.Ok {
		logger.Warn("dropping clause with malformed correction", "reason", result.Reason)
		return unitResult{unit: u, outcome: Dropped}
	}

	score := result.Correction.ViolationScore
	if score <= o.cfg.Threshold {
		logger.Debug("clause below threshold", "score", score, "threshold", o.cfg.Threshold)
		return unitResult{unit: u, outcome: Rejected}
	}

	u.Accuracy = &score
	u.CorrectedText = result.Correction.CorrectedText
	u.ProofText = result.Correction.ProofText
	o.attachPositions(u, doc, logger)
	u.IncorrectText = patterns.CleanClause(u.IncorrectText)

	return unitResult{unit: u, outcome: Accepted}
}

func (o *Orchestrator) embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := Do(ctx, o.Policy(), "embed", func(ctx context.Context) ([]float32, error) {
		v, err := o.cfg.Embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(v) == 0 {
			return nil, fmt.Errorf("empty embedding")
		}
		return v, nil
	})
	if err != nil {
		return nil, errcode.New(errcode.EmbeddingFailed, err)
	}
	return vector, nil
}

// search queries the vector store under the shared limiter. The permit is
// held for one attempt only, never across a backoff wait, and time spent
// waiting for it does not count against the attempt timeout.
func (o *Orchestrator) search(ctx context.Context, vector []float32, category string) ([]types.SimilarityMatch, error) {
	parent := ctx
	matches, err := Do(ctx, o.Policy(), "search", func(ctx context.Context) ([]types.SimilarityMatch, error) {
		if err := o.sem.Acquire(parent, 1); err != nil {
			return nil, err
		}
		o.inFlight.Add(1)
		defer func() {
			o.inFlight.Add(-1)
			o.sem.Release(1)
		}()

		m, err := o.cfg.Searcher.Search(ctx, o.cfg.Collection, vector,
			vectorstore.Filter{Category: category}, o.cfg.TopK, o.cfg.SearchParams)
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return nil, retry.Unrecoverable(err)
		}
		return m, err
	})
	if err != nil {
		return nil, errcode.New(errcode.SearchFailed, err)
	}
	if len(matches) == 0 {
		return nil, errcode.Newf(errcode.NoMatchesFound, "no matches for category %q", category)
	}
	return matches, nil
}

var errMalformed = errors.New("malformed correction")

// correct calls the corrector under the retry policy. A malformed reply
// counts as a failed attempt; if every attempt is malformed the last
// malformed result is returned without error.
func (o *Orchestrator) correct(ctx context.Context, in correction.Input) (correction.Result, error) {
	var last correction.Result
	result, err := Do(ctx, o.Policy(), "correct", func(ctx context.Context) (correction.Result, error) {
		r, err := o.cfg.Corrector.Correct(ctx, in)
		if err != nil {
			return r, err
		}
		if r.Kind != correction.Ok {
			last = r
			return r, fmt.Errorf("%w: %s", errMalformed, r.Reason)
		}
		return r, nil
	})
	if err == nil {
		return result, nil
	}
	if errors.Is(err, errMalformed) {
		return last, nil
	}
	if errors.Is(err, ErrAttemptTimeout) {
		err = errcode.New(errcode.LLMResponseTimeout, err)
	}
	return correction.Result{}, errcode.New(errcode.ReviewFailed, err)
}

// attachPositions locates the unit's original text and fills the first
// fragment with the boxes of its own page, plus the second fragment when the
// text spills onto that fragment's page. When the first fragment's page has
// no match, the first page found stands in for it.
func (o *Orchestrator) attachPositions(u *types.ReviewUnit, doc locator.Searchable, logger *slog.Logger) {
	if len(u.Fragments) == 0 {
		u.Fragments = []types.Fragment{{}}
	}
	first := &u.Fragments[0]

	var positions []locator.PagePositions
	if doc != nil {
		q := locator.Query{Text: u.IncorrectText, Style: u.Style, StartPage: first.Page}
		positions = o.cfg.Locator.Locate(q, doc)
		if len(positions) == 0 && first.Page > 1 {
			q.StartPage = 1
			positions = o.cfg.Locator.Locate(q, doc)
		}
		positions = locator.Truncate(positions, o.cfg.MaxPositionPages)
	}
	if len(positions) == 0 {
		logger.Warn("accepted clause could not be located")
		first.Position = []types.BoundingBox{}
		return
	}

	byPage := make(map[int][]types.BoundingBox, len(positions))
	for _, p := range positions {
		byPage[p.Page] = p.Boxes
	}

	startPage := first.Page
	if boxes, ok := byPage[startPage]; ok {
		first.Position = boxes
	} else {
		logger.Debug("clause located away from its page", "page", startPage, "found", positions[0].Page)
		startPage = positions[0].Page
		first.Position = positions[0].Boxes
	}

	if len(u.Fragments) > 1 {
		second := &u.Fragments[1]
		if boxes, ok := byPage[second.Page]; ok && second.Page != startPage {
			second.Position = boxes
		}
	}
}
