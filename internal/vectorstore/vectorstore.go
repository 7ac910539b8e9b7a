// Package vectorstore holds the reference corpus the orchestrator searches.
// Two backends share one contract: an embedded chromem-go database for
// single-node use and a pgvector table when Postgres is enabled.
package vectorstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackzampolin/lexreview/internal/types"
)

// ErrCollectionNotFound is returned when a collection does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// Filter narrows a search to one reference category.
type Filter struct {
	Category string
}

// SearchParams are backend hints. HNSWEf sets the candidate list size on
// pgvector; Exact disables approximate search. chromem always searches
// exhaustively and ignores both.
type SearchParams struct {
	HNSWEf int
	Exact  bool
}

// Point is one reference clause with its embedding and payload.
type Point struct {
	ID            string
	Vector        []float32
	StandardID    string
	Category      string
	IncorrectText string
	ProofText     string
	CorrectedText string
	CreatedAt     time.Time
}

// Searcher is the similarity-search collaborator.
type Searcher interface {
	// Search returns at most topK matches, most similar first.
	Search(ctx context.Context, collection string, vector []float32, f Filter, topK int, p SearchParams) ([]types.SimilarityMatch, error)
}

// Store is a Searcher that can also be written to.
type Store interface {
	Searcher
	Upsert(ctx context.Context, collection string, points []Point) error
	// DeleteByStandard removes every point of a standard and reports how
	// many were removed.
	DeleteByStandard(ctx context.Context, collection, standardID string) (int, error)
	// DeleteByStandardExcept removes the points of a standard whose IDs are
	// not in keep.
	DeleteByStandardExcept(ctx context.Context, collection, standardID string, keep []string) (int, error)
	CountByStandard(ctx context.Context, collection, standardID string) (int, error)
	HasCollection(ctx context.Context, collection string) (bool, error)
	Close() error
}
