package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/database"
	"github.com/wonny/credmon/pkg/logger"
)

// EntityRepository is the PostgreSQL registry of tracked tickers
type EntityRepository struct {
	db  *database.DB
	log *logger.Logger
}

func NewEntityRepository(db *database.DB, log *logger.Logger) *EntityRepository {
	return &EntityRepository{db: db, log: log}
}

func (r *EntityRepository) GetOrCreate(ctx context.Context, ticker, name string) (*contracts.Entity, error) {
	query := `
		INSERT INTO entities (ticker, name)
		VALUES ($1, $2)
		ON CONFLICT (ticker) DO UPDATE
			SET name = CASE WHEN entities.name = '' THEN EXCLUDED.name ELSE entities.name END
		RETURNING ticker, name, active, created_at`

	var e contracts.Entity
	err := r.db.Pool.QueryRow(ctx, query, ticker, name).
		Scan(&e.Ticker, &e.Name, &e.Active, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create entity: %w", err)
	}
	return &e, nil
}

func (r *EntityRepository) Get(ctx context.Context, ticker string) (*contracts.Entity, error) {
	query := `SELECT ticker, name, active, created_at FROM entities WHERE ticker = $1`

	var e contracts.Entity
	err := r.db.Pool.QueryRow(ctx, query, ticker).
		Scan(&e.Ticker, &e.Name, &e.Active, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return &e, nil
}

func (r *EntityRepository) ListActive(ctx context.Context) ([]*contracts.Entity, error) {
	query := `SELECT ticker, name, active, created_at FROM entities WHERE active ORDER BY ticker`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active entities: %w", err)
	}
	defer rows.Close()

	var out []*contracts.Entity
	for rows.Next() {
		var e contracts.Entity
		if err := rows.Scan(&e.Ticker, &e.Name, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *EntityRepository) Deactivate(ctx context.Context, ticker string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE entities SET active = FALSE WHERE ticker = $1`, ticker)
	if err != nil {
		return fmt.Errorf("deactivate entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrNotFound
	}
	return nil
}
