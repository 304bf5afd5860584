package storage

import (
	"context"
	"fmt"

	"github.com/wonny/credmon/pkg/database"
)

// schema is applied on startup. Statements are idempotent; there is no
// separate migration tool for this service.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS entities (
		ticker     TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS observations (
		id          BIGSERIAL PRIMARY KEY,
		ticker      TEXT NOT NULL REFERENCES entities(ticker),
		category    TEXT NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL,
		ingested_at TIMESTAMPTZ NOT NULL,
		payload     JSONB NOT NULL,
		digest      TEXT NOT NULL,
		UNIQUE (ticker, category, digest)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_observations_window
		ON observations (ticker, observed_at)`,

	`CREATE TABLE IF NOT EXISTS feature_vectors (
		ticker   TEXT NOT NULL REFERENCES entities(ticker),
		cycle_at TIMESTAMPTZ NOT NULL,
		vector   JSONB NOT NULL,
		PRIMARY KEY (ticker, cycle_at)
	)`,

	`CREATE TABLE IF NOT EXISTS score_snapshots (
		ticker           TEXT NOT NULL REFERENCES entities(ticker),
		cycle_at         TIMESTAMPTZ NOT NULL,
		financial        DOUBLE PRECISION NOT NULL,
		market           DOUBLE PRECISION NOT NULL,
		news             DOUBLE PRECISION NOT NULL,
		composite        DOUBLE PRECISION NOT NULL,
		stale_categories JSONB NOT NULL DEFAULT '[]',
		contributions    JSONB NOT NULL,
		attribution      JSONB NOT NULL,
		PRIMARY KEY (ticker, cycle_at)
	)`,

	`CREATE TABLE IF NOT EXISTS alerts (
		id             BIGSERIAL PRIMARY KEY,
		ticker         TEXT NOT NULL REFERENCES entities(ticker),
		previous_at    TIMESTAMPTZ NOT NULL,
		current_at     TIMESTAMPTZ NOT NULL,
		previous_score DOUBLE PRECISION NOT NULL,
		current_score  DOUBLE PRECISION NOT NULL,
		delta          DOUBLE PRECISION NOT NULL,
		direction      TEXT NOT NULL,
		severity       TEXT NOT NULL,
		reasons        JSONB NOT NULL DEFAULT '[]',
		acknowledged   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_ticker_created
		ON alerts (ticker, created_at DESC)`,
}

// Migrate creates the tables and indexes if they do not exist
func Migrate(ctx context.Context, db *database.DB) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
