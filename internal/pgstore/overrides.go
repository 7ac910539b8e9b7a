package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackzampolin/lexreview/internal/prompts"
)

// Overrides stores prompt overrides in the prompt_overrides table.
type Overrides struct {
	db *sql.DB
}

var _ prompts.OverrideStore = (*Overrides)(nil)

// NewOverrides creates an override store.
func NewOverrides(db *DB) *Overrides {
	return &Overrides{db: db.DB}
}

// GetOverride returns nil, nil when key has no override.
func (o *Overrides) GetOverride(ctx context.Context, key string) (*prompts.Override, error) {
	const q = `SELECT text, note, updated_at FROM prompt_overrides WHERE key = $1`
	ov := &prompts.Override{Key: key}
	err := o.db.QueryRowContext(ctx, q, key).Scan(&ov.Text, &ov.Note, &ov.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt override %s: %w", key, err)
	}
	return ov, nil
}

// SetOverride upserts an override.
func (o *Overrides) SetOverride(ctx context.Context, ov prompts.Override) error {
	const q = `
INSERT INTO prompt_overrides (key, text, note)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET text = excluded.text, note = excluded.note, updated_at = now()`
	if _, err := o.db.ExecContext(ctx, q, ov.Key, ov.Text, ov.Note); err != nil {
		return fmt.Errorf("failed to write prompt override %s: %w", ov.Key, err)
	}
	return nil
}

// DeleteOverride removes an override. Deleting a missing key is not an error.
func (o *Overrides) DeleteOverride(ctx context.Context, key string) error {
	if _, err := o.db.ExecContext(ctx, `DELETE FROM prompt_overrides WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete prompt override %s: %w", key, err)
	}
	return nil
}
