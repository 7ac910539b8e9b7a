package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/jackzampolin/lexreview/internal/types"
)

// Payload keys stored as chromem metadata.
const (
	metaStandardID    = "standard_id"
	metaCategory      = "category"
	metaIncorrectText = "incorrect_text"
	metaCorrectedText = "corrected_text"
	metaCreatedAt     = "created_at"
)

// ChromemConfig configures the embedded store.
type ChromemConfig struct {
	// Path is the persistence directory; empty keeps everything in memory.
	Path     string
	Compress bool
	// Dimensions is the embedding length, needed to count by filter.
	Dimensions int
	Logger     *slog.Logger
}

// Chromem is a Store backed by chromem-go.
type Chromem struct {
	db         *chromem.DB
	dimensions int
	logger     *slog.Logger
}

// NewChromem opens (or creates) the embedded store.
func NewChromem(cfg ChromemConfig) (*Chromem, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector db at %s: %w", cfg.Path, err)
		}
	}

	return &Chromem{db: db, dimensions: cfg.Dimensions, logger: cfg.Logger}, nil
}

// Search implements Searcher.
func (c *Chromem) Search(ctx context.Context, collection string, vector []float32, f Filter, topK int, _ SearchParams) ([]types.SimilarityMatch, error) {
	col := c.db.GetCollection(collection, nil)
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	// chromem rejects nResults larger than the collection.
	n := topK
	if count := col.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	var where map[string]string
	if f.Category != "" {
		where = map[string]string{metaCategory: f.Category}
	}

	results, err := col.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	matches := make([]types.SimilarityMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, types.SimilarityMatch{
			ID:            r.ID,
			ProofText:     r.Content,
			IncorrectText: r.Metadata[metaIncorrectText],
			CorrectedText: r.Metadata[metaCorrectedText],
			Similarity:    r.Similarity,
		})
	}
	return matches, nil
}

// Upsert implements Store. Points with an existing ID are replaced.
func (c *Chromem) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	col, err := c.db.GetOrCreateCollection(collection, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return fmt.Errorf("failed to open collection %s: %w", collection, err)
	}

	ids := make([]string, len(points))
	vectors := make([][]float32, len(points))
	metadatas := make([]map[string]string, len(points))
	contents := make([]string, len(points))
	for i, p := range points {
		created := p.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		ids[i] = p.ID
		vectors[i] = p.Vector
		contents[i] = p.ProofText
		metadatas[i] = map[string]string{
			metaStandardID:    p.StandardID,
			metaCategory:      p.Category,
			metaIncorrectText: p.IncorrectText,
			metaCorrectedText: p.CorrectedText,
			metaCreatedAt:     created.UTC().Format(time.RFC3339),
		}
	}

	if err := col.Add(ctx, ids, vectors, metadatas, contents); err != nil {
		return fmt.Errorf("failed to add %d points to %s: %w", len(points), collection, err)
	}
	c.logger.Debug("upserted points", "collection", collection, "count", len(points))
	return nil
}

// DeleteByStandard implements Store.
func (c *Chromem) DeleteByStandard(ctx context.Context, collection, standardID string) (int, error) {
	col := c.db.GetCollection(collection, nil)
	if col == nil {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	before := col.Count()
	if err := col.Delete(ctx, map[string]string{metaStandardID: standardID}, nil); err != nil {
		return 0, fmt.Errorf("failed to delete standard %s: %w", standardID, err)
	}
	return before - col.Count(), nil
}

// DeleteByStandardExcept implements Store.
func (c *Chromem) DeleteByStandardExcept(ctx context.Context, collection, standardID string, keep []string) (int, error) {
	col := c.db.GetCollection(collection, nil)
	if col == nil {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	ids, err := c.standardPoints(ctx, col, standardID)
	if err != nil {
		return 0, err
	}

	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	var stale []string
	for _, id := range ids {
		if _, ok := kept[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := col.Delete(ctx, nil, nil, stale...); err != nil {
		return 0, fmt.Errorf("failed to delete stale points of standard %s: %w", standardID, err)
	}
	return len(stale), nil
}

// CountByStandard implements Store.
func (c *Chromem) CountByStandard(ctx context.Context, collection, standardID string) (int, error) {
	col := c.db.GetCollection(collection, nil)
	if col == nil {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	ids, err := c.standardPoints(ctx, col, standardID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// standardPoints lists the IDs of a standard's points. chromem has no
// filtered listing, so this runs an exhaustive filtered query with a unit
// vector.
func (c *Chromem) standardPoints(ctx context.Context, col *chromem.Collection, standardID string) ([]string, error) {
	total := col.Count()
	if total == 0 {
		return nil, nil
	}
	if c.dimensions <= 0 {
		return nil, fmt.Errorf("vector dimensions not configured")
	}

	query := make([]float32, c.dimensions)
	query[0] = 1
	results, err := col.QueryEmbedding(ctx, query, total, map[string]string{metaStandardID: standardID}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list standard %s: %w", standardID, err)
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids, nil
}

// HasCollection implements Store.
func (c *Chromem) HasCollection(_ context.Context, collection string) (bool, error) {
	return c.db.GetCollection(collection, nil) != nil, nil
}

// Close implements Store. Persistent chromem writes through on every change.
func (c *Chromem) Close() error {
	return nil
}

var _ Store = (*Chromem)(nil)
