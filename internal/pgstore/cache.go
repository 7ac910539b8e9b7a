package pgstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackzampolin/lexreview/internal/types"
)

// HashDocument returns the cache key for a document's bytes.
func HashDocument(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CachedReview is a stored analysis result.
type CachedReview struct {
	DocHash   string               `json:"doc_hash"`
	Category  string               `json:"category"`
	Threshold float64              `json:"threshold"`
	Result    types.AnalysisResult `json:"result"`
	CreatedAt time.Time            `json:"created_at"`
}

// ReviewCache stores analysis results keyed by document hash, category and
// threshold.
type ReviewCache struct {
	db     *sql.DB
	maxAge time.Duration
}

// NewReviewCache creates a cache. Entries older than maxAge are treated as
// missing; zero keeps them forever.
func NewReviewCache(db *DB, maxAge time.Duration) *ReviewCache {
	return &ReviewCache{db: db.DB, maxAge: maxAge}
}

// Get returns nil, nil on a miss.
func (c *ReviewCache) Get(ctx context.Context, docHash, category string, threshold float64) (*types.AnalysisResult, error) {
	const q = `SELECT result, created_at FROM review_cache
	           WHERE doc_hash = $1 AND category = $2 AND threshold = $3`
	var (
		js []byte
		ts time.Time
	)
	err := c.db.QueryRowContext(ctx, q, docHash, category, threshold).Scan(&js, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read review cache: %w", err)
	}
	if c.maxAge > 0 && time.Since(ts) > c.maxAge {
		return nil, nil
	}
	var res types.AnalysisResult
	if err := json.Unmarshal(js, &res); err != nil {
		// A corrupt row is a miss; the next Put overwrites it.
		return nil, nil
	}
	return &res, nil
}

// Put stores or replaces a result.
func (c *ReviewCache) Put(ctx context.Context, docHash, category string, threshold float64, res *types.AnalysisResult) error {
	js, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode review result: %w", err)
	}
	const q = `
INSERT INTO review_cache (doc_hash, category, threshold, result)
VALUES ($1, $2, $3, $4)
ON CONFLICT (doc_hash, category, threshold)
DO UPDATE SET result = excluded.result, created_at = now()`
	if _, err := c.db.ExecContext(ctx, q, docHash, category, threshold, js); err != nil {
		return fmt.Errorf("failed to write review cache: %w", err)
	}
	return nil
}

// Lookup returns every cached result for a document hash, newest first.
func (c *ReviewCache) Lookup(ctx context.Context, docHash string) ([]CachedReview, error) {
	const q = `SELECT category, threshold, result, created_at FROM review_cache
	           WHERE doc_hash = $1 ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q, docHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query review cache: %w", err)
	}
	defer rows.Close()

	var out []CachedReview
	for rows.Next() {
		cr := CachedReview{DocHash: docHash}
		var js []byte
		if err := rows.Scan(&cr.Category, &cr.Threshold, &js, &cr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review cache: %w", err)
		}
		if err := json.Unmarshal(js, &cr.Result); err != nil {
			continue
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}
