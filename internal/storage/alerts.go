package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/database"
	"github.com/wonny/credmon/pkg/logger"
)

// AlertRepository reads the alert log. Alerts are written only by
// SnapshotRepository.SaveCycle, inside the cycle transaction.
type AlertRepository struct {
	db  *database.DB
	log *logger.Logger
}

func NewAlertRepository(db *database.DB, log *logger.Logger) *AlertRepository {
	return &AlertRepository{db: db, log: log}
}

const alertColumns = `
	id, ticker, previous_at, current_at, previous_score, current_score,
	delta, direction, severity, reasons, acknowledged, created_at`

func scanAlert(row pgx.Row) (*contracts.AlertRecord, error) {
	var a contracts.AlertRecord
	var reasonsJSON []byte
	err := row.Scan(&a.ID, &a.Ticker, &a.PreviousAt, &a.CurrentAt,
		&a.PreviousScore, &a.CurrentScore, &a.Delta, &a.Direction,
		&a.Severity, &reasonsJSON, &a.Acknowledged, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reasonsJSON, &a.Reasons); err != nil {
		return nil, fmt.Errorf("unmarshal alert reasons: %w", err)
	}
	return &a, nil
}

func (r *AlertRepository) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]*contracts.AlertRecord, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []*contracts.AlertRecord
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// List returns one ticker's alerts since a time, newest first
func (r *AlertRepository) List(ctx context.Context, ticker string, since time.Time, limit int) ([]*contracts.AlertRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryAlerts(ctx, `SELECT `+alertColumns+`
		FROM alerts
		WHERE ticker = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3`, ticker, since, limit)
}

// ListAll returns alerts across all entities since a time, newest first
func (r *AlertRepository) ListAll(ctx context.Context, since time.Time, limit int) ([]*contracts.AlertRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryAlerts(ctx, `SELECT `+alertColumns+`
		FROM alerts
		WHERE created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2`, since, limit)
}

// Acknowledge marks an alert as seen
func (r *AlertRepository) Acknowledge(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE alerts SET acknowledged = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrNotFound
	}
	return nil
}
