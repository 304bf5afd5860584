package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/database"
	"github.com/wonny/credmon/pkg/logger"
)

// SnapshotRepository persists scoring cycles in PostgreSQL
type SnapshotRepository struct {
	db  *database.DB
	log *logger.Logger
}

func NewSnapshotRepository(db *database.DB, log *logger.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: db, log: log}
}

// SaveCycle writes the feature vector, snapshot, attribution and optional
// alert in a single transaction. Readers never observe a snapshot without
// its attribution, or an alert without the snapshot that raised it.
func (r *SnapshotRepository) SaveCycle(ctx context.Context, vec *contracts.FeatureVector,
	snap *contracts.ScoreSnapshot, attr *contracts.Attribution, alert *contracts.AlertRecord) error {

	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal feature vector: %w", err)
	}
	staleJSON, err := json.Marshal(snap.StaleCategories)
	if err != nil {
		return fmt.Errorf("marshal stale categories: %w", err)
	}
	contribJSON, err := json.Marshal(snap.Contributions)
	if err != nil {
		return fmt.Errorf("marshal contributions: %w", err)
	}
	attrJSON, err := json.Marshal(attr)
	if err != nil {
		return fmt.Errorf("marshal attribution: %w", err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cycle transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO feature_vectors (ticker, cycle_at, vector)
		VALUES ($1, $2, $3)`,
		vec.Ticker, vec.CycleAt, vecJSON)
	if err != nil {
		return fmt.Errorf("insert feature vector: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO score_snapshots
			(ticker, cycle_at, financial, market, news, composite,
			 stale_categories, contributions, attribution)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		snap.Ticker, snap.CycleAt, snap.Financial, snap.Market, snap.News,
		snap.Composite, staleJSON, contribJSON, attrJSON)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if alert != nil {
		reasonsJSON, err := json.Marshal(alert.Reasons)
		if err != nil {
			return fmt.Errorf("marshal alert reasons: %w", err)
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO alerts
				(ticker, previous_at, current_at, previous_score, current_score,
				 delta, direction, severity, reasons, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`,
			alert.Ticker, alert.PreviousAt, alert.CurrentAt, alert.PreviousScore,
			alert.CurrentScore, alert.Delta, string(alert.Direction),
			string(alert.Severity), reasonsJSON, alert.CreatedAt).
			Scan(&alert.ID)
		if err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cycle: %w", err)
	}

	r.log.WithFields(map[string]interface{}{
		"ticker":   snap.Ticker,
		"cycle_at": snap.CycleAt,
		"alert":    alert != nil,
	}).Debug("Cycle persisted")

	return nil
}

const snapshotColumns = `
	ticker, cycle_at, financial, market, news, composite,
	stale_categories, contributions, attribution`

func scanSnapshot(row pgx.Row) (*contracts.ScoreSnapshot, *contracts.Attribution, error) {
	var snap contracts.ScoreSnapshot
	var staleJSON, contribJSON, attrJSON []byte
	err := row.Scan(&snap.Ticker, &snap.CycleAt, &snap.Financial, &snap.Market,
		&snap.News, &snap.Composite, &staleJSON, &contribJSON, &attrJSON)
	if err != nil {
		return nil, nil, err
	}

	if err := json.Unmarshal(staleJSON, &snap.StaleCategories); err != nil {
		return nil, nil, fmt.Errorf("unmarshal stale categories: %w", err)
	}
	if err := json.Unmarshal(contribJSON, &snap.Contributions); err != nil {
		return nil, nil, fmt.Errorf("unmarshal contributions: %w", err)
	}
	var attr contracts.Attribution
	if err := json.Unmarshal(attrJSON, &attr); err != nil {
		return nil, nil, fmt.Errorf("unmarshal attribution: %w", err)
	}
	return &snap, &attr, nil
}

// Latest returns the newest snapshot and its attribution for a ticker
func (r *SnapshotRepository) Latest(ctx context.Context, ticker string) (*contracts.ScoreSnapshot, *contracts.Attribution, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM score_snapshots
		WHERE ticker = $1
		ORDER BY cycle_at DESC
		LIMIT 1`

	snap, attr, err := scanSnapshot(r.db.Pool.QueryRow(ctx, query, ticker))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, attr, nil
}

// LatestVector returns the newest feature vector for a ticker
func (r *SnapshotRepository) LatestVector(ctx context.Context, ticker string) (*contracts.FeatureVector, error) {
	query := `
		SELECT vector FROM feature_vectors
		WHERE ticker = $1
		ORDER BY cycle_at DESC
		LIMIT 1`

	var raw []byte
	err := r.db.Pool.QueryRow(ctx, query, ticker).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest vector: %w", err)
	}

	var vec contracts.FeatureVector
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, fmt.Errorf("unmarshal feature vector: %w", err)
	}
	return &vec, nil
}

// History returns snapshots since a time, oldest first
func (r *SnapshotRepository) History(ctx context.Context, ticker string, since time.Time, limit int) ([]*contracts.ScoreSnapshot, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM score_snapshots
		WHERE ticker = $1 AND cycle_at >= $2
		ORDER BY cycle_at
		LIMIT $3`
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.db.Pool.Query(ctx, query, ticker, since, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot history: %w", err)
	}
	defer rows.Close()

	var out []*contracts.ScoreSnapshot
	for rows.Next() {
		snap, _, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// LatestAcrossActive returns every active entity's newest snapshot,
// best composite first
func (r *SnapshotRepository) LatestAcrossActive(ctx context.Context) ([]*contracts.ScoreSnapshot, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM (
			SELECT DISTINCT ON (s.ticker) s.*
			FROM score_snapshots s
			JOIN entities e ON e.ticker = s.ticker AND e.active
			ORDER BY s.ticker, s.cycle_at DESC
		) latest
		ORDER BY composite DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("latest snapshots: %w", err)
	}
	defer rows.Close()

	var out []*contracts.ScoreSnapshot
	for rows.Next() {
		snap, _, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
