// Package pgstore holds the Postgres side of lexreview: the database handle,
// the review result cache, prompt overrides and a docker-managed pgvector
// container for local use.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

// Config configures Open.
type Config struct {
	DSN          string
	MaxOpenConns int
	// ConnectTimeout bounds how long Open waits for the server to answer.
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

// DB wraps the *sql.DB shared by the cache, overrides and pgvector backend.
type DB struct {
	*sql.DB
	logger *slog.Logger
}

// Open connects, waits for the server and applies migrations.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	sqlDB, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := waitForPing(ctx, sqlDB, cfg.ConnectTimeout); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("postgres is not reachable: %w", err)
	}

	db := &DB{DB: sqlDB, logger: cfg.Logger}
	if err := db.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	cfg.Logger.Debug("postgres ready", "max_open_conns", cfg.MaxOpenConns)
	return db, nil
}

func waitForPing(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	attempts := uint(timeout.Seconds())
	if attempts == 0 {
		attempts = 1
	}
	return retry.Do(
		func() error {
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return db.PingContext(pctx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

func (db *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS review_cache (
			doc_hash   text NOT NULL,
			category   text NOT NULL,
			threshold  double precision NOT NULL,
			result     jsonb NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (doc_hash, category, threshold)
		)`,
		`CREATE TABLE IF NOT EXISTS prompt_overrides (
			key        text PRIMARY KEY,
			text       text NOT NULL,
			note       text NOT NULL DEFAULT '',
			updated_at timestamptz NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate postgres: %w", err)
		}
	}
	return nil
}
