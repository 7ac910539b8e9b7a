package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/jackzampolin/lexreview/internal/types"
)

// PGVectorConfig configures the Postgres backend.
type PGVectorConfig struct {
	DB         *sql.DB
	Dimensions int
	Logger     *slog.Logger
}

// PGVector is a Store backed by a pgvector table.
type PGVector struct {
	db         *sql.DB
	dimensions int
	logger     *slog.Logger
}

// NewPGVector creates the backend and ensures its schema exists.
func NewPGVector(ctx context.Context, cfg PGVectorConfig) (*PGVector, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("vector dimensions must be positive")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	p := &PGVector{db: cfg.DB, dimensions: cfg.Dimensions, logger: cfg.Logger}
	if err := p.migrate(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PGVector) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS standard_points (
			id             uuid PRIMARY KEY,
			collection     text NOT NULL,
			standard_id    text NOT NULL,
			category       text NOT NULL,
			incorrect_text text NOT NULL DEFAULT '',
			proof_text     text NOT NULL,
			corrected_text text NOT NULL DEFAULT '',
			created_at     timestamptz NOT NULL DEFAULT now(),
			embedding      vector(%d) NOT NULL
		)`, p.dimensions),
		`CREATE INDEX IF NOT EXISTS standard_points_collection_idx ON standard_points (collection, category)`,
		`CREATE INDEX IF NOT EXISTS standard_points_standard_idx ON standard_points (collection, standard_id)`,
		`CREATE INDEX IF NOT EXISTS standard_points_embedding_idx ON standard_points USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate standard_points: %w", err)
		}
	}
	return nil
}

// Search implements Searcher. Similarity is 1 - cosine distance.
func (p *PGVector) Search(ctx context.Context, collection string, vector []float32, f Filter, topK int, params SearchParams) ([]types.SimilarityMatch, error) {
	ok, err := p.HasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if topK <= 0 {
		return nil, nil
	}

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin search: %w", err)
	}
	defer tx.Rollback()

	if params.Exact {
		if _, err := tx.ExecContext(ctx, `SET LOCAL enable_indexscan = off`); err != nil {
			return nil, fmt.Errorf("failed to force exact search: %w", err)
		}
	} else if params.HNSWEf > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`SET LOCAL hnsw.ef_search = %d`, params.HNSWEf)); err != nil {
			return nil, fmt.Errorf("failed to set ef_search: %w", err)
		}
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, proof_text, incorrect_text, corrected_text, 1 - (embedding <=> $1) AS similarity
		FROM standard_points
		WHERE collection = $2 AND ($3 = '' OR category = $3)
		ORDER BY embedding <=> $1
		LIMIT $4`,
		pgvector.NewVector(vector), collection, f.Category, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var matches []types.SimilarityMatch
	for rows.Next() {
		var m types.SimilarityMatch
		var sim float64
		if err := rows.Scan(&m.ID, &m.ProofText, &m.IncorrectText, &m.CorrectedText, &sim); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Similarity = float32(sim)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}
	return matches, nil
}

// Upsert implements Store.
func (p *PGVector) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO standard_points
			(id, collection, standard_id, category, incorrect_text, proof_text, corrected_text, created_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			collection = EXCLUDED.collection,
			standard_id = EXCLUDED.standard_id,
			category = EXCLUDED.category,
			incorrect_text = EXCLUDED.incorrect_text,
			proof_text = EXCLUDED.proof_text,
			corrected_text = EXCLUDED.corrected_text,
			embedding = EXCLUDED.embedding`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, pt := range points {
		if len(pt.Vector) != p.dimensions {
			return fmt.Errorf("point %s has %d dimensions, want %d", pt.ID, len(pt.Vector), p.dimensions)
		}
		id, err := uuid.Parse(pt.ID)
		if err != nil {
			return fmt.Errorf("point id %q is not a uuid: %w", pt.ID, err)
		}
		created := pt.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, id, collection, pt.StandardID, pt.Category,
			pt.IncorrectText, pt.ProofText, pt.CorrectedText, created, pgvector.NewVector(pt.Vector)); err != nil {
			return fmt.Errorf("failed to upsert point %s: %w", pt.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	p.logger.Debug("upserted points", "collection", collection, "count", len(points))
	return nil
}

// DeleteByStandard implements Store.
func (p *PGVector) DeleteByStandard(ctx context.Context, collection, standardID string) (int, error) {
	ok, err := p.HasCollection(ctx, collection)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM standard_points WHERE collection = $1 AND standard_id = $2`, collection, standardID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete standard %s: %w", standardID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted count: %w", err)
	}
	return int(n), nil
}

// DeleteByStandardExcept implements Store.
func (p *PGVector) DeleteByStandardExcept(ctx context.Context, collection, standardID string, keep []string) (int, error) {
	ok, err := p.HasCollection(ctx, collection)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if keep == nil {
		keep = []string{}
	}
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM standard_points
		WHERE collection = $1 AND standard_id = $2 AND id::text <> ALL($3::text[])`,
		collection, standardID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale points of standard %s: %w", standardID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted count: %w", err)
	}
	return int(n), nil
}

// CountByStandard implements Store.
func (p *PGVector) CountByStandard(ctx context.Context, collection, standardID string) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx,
		`SELECT count(*) FROM standard_points WHERE collection = $1 AND standard_id = $2`,
		collection, standardID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count standard %s: %w", standardID, err)
	}
	return n, nil
}

// HasCollection implements Store. A collection exists once it holds a point.
func (p *PGVector) HasCollection(ctx context.Context, collection string) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx,
		`SELECT 1 FROM standard_points WHERE collection = $1 LIMIT 1`, collection).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", collection, err)
	}
	return true, nil
}

// Close implements Store. The *sql.DB is owned by the caller.
func (p *PGVector) Close() error {
	return nil
}

var _ Store = (*PGVector)(nil)
