package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/database"
	"github.com/wonny/credmon/pkg/logger"
)

// ObservationRepository is the append-only PostgreSQL observation store.
// Rows are deduplicated on a content digest so re-fetched data never
// inflates the window.
type ObservationRepository struct {
	db  *database.DB
	log *logger.Logger
}

func NewObservationRepository(db *database.DB, log *logger.Logger) *ObservationRepository {
	return &ObservationRepository{db: db, log: log}
}

// digest identifies an observation for deduplication. News items are keyed
// by headline alone: the same story re-fetched later under a fetch-time
// stamp must not become a second row. Other categories key on the payload
// at its observed timestamp.
func digest(o *contracts.RawObservation, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(o.Ticker))
	h.Write([]byte(o.Category))
	if o.Category == contracts.SourceNews && o.News != nil {
		h.Write([]byte(o.News.Headline))
	} else {
		h.Write([]byte(o.ObservedAt.UTC().Format(time.RFC3339Nano)))
		h.Write(payload)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func payloadOf(o *contracts.RawObservation) (interface{}, error) {
	switch o.Category {
	case contracts.SourceFinancial:
		if o.Financial != nil {
			return o.Financial, nil
		}
	case contracts.SourceMarket:
		if o.Market != nil {
			return o.Market, nil
		}
	case contracts.SourceNews:
		if o.News != nil {
			return o.News, nil
		}
	}
	return nil, fmt.Errorf("observation for %s has no %s payload", o.Ticker, o.Category)
}

// SaveBatch appends observations, skipping duplicates, and returns the
// number of rows actually written
func (r *ObservationRepository) SaveBatch(ctx context.Context, obs []contracts.RawObservation) (int, error) {
	query := `
		INSERT INTO observations (ticker, category, observed_at, ingested_at, payload, digest)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ticker, category, digest) DO NOTHING`

	batch := &pgx.Batch{}
	for i := range obs {
		payload, err := payloadOf(&obs[i])
		if err != nil {
			return 0, err
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal observation payload: %w", err)
		}
		batch.Queue(query, obs[i].Ticker, string(obs[i].Category), obs[i].ObservedAt,
			obs[i].IngestedAt, raw, digest(&obs[i], raw))
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	saved := 0
	for range obs {
		tag, err := results.Exec()
		if err != nil {
			return saved, fmt.Errorf("insert observation: %w", err)
		}
		saved += int(tag.RowsAffected())
	}
	return saved, nil
}

// Window returns a ticker's observations within [since, until], oldest first
func (r *ObservationRepository) Window(ctx context.Context, ticker string, since, until time.Time) ([]contracts.RawObservation, error) {
	query := `
		SELECT ticker, category, observed_at, ingested_at, payload
		FROM observations
		WHERE ticker = $1 AND observed_at >= $2 AND observed_at <= $3
		ORDER BY observed_at, category`

	rows, err := r.db.Pool.Query(ctx, query, ticker, since, until)
	if err != nil {
		return nil, fmt.Errorf("load observation window: %w", err)
	}
	defer rows.Close()

	var out []contracts.RawObservation
	for rows.Next() {
		var o contracts.RawObservation
		var raw []byte
		if err := rows.Scan(&o.Ticker, &o.Category, &o.ObservedAt, &o.IngestedAt, &raw); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if err := unmarshalPayload(&o, raw); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func unmarshalPayload(o *contracts.RawObservation, raw []byte) error {
	switch o.Category {
	case contracts.SourceFinancial:
		o.Financial = &contracts.FinancialFacts{}
		return json.Unmarshal(raw, o.Financial)
	case contracts.SourceMarket:
		o.Market = &contracts.MarketQuote{}
		return json.Unmarshal(raw, o.Market)
	case contracts.SourceNews:
		o.News = &contracts.NewsItem{}
		return json.Unmarshal(raw, o.News)
	}
	return fmt.Errorf("unknown observation category %q", o.Category)
}

// LatestObservedAt returns the newest observed timestamp per category
func (r *ObservationRepository) LatestObservedAt(ctx context.Context, ticker string) (map[contracts.SourceCategory]time.Time, error) {
	query := `
		SELECT category, max(observed_at)
		FROM observations
		WHERE ticker = $1
		GROUP BY category`

	rows, err := r.db.Pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("latest observed: %w", err)
	}
	defer rows.Close()

	out := make(map[contracts.SourceCategory]time.Time)
	for rows.Next() {
		var cat contracts.SourceCategory
		var at time.Time
		if err := rows.Scan(&cat, &at); err != nil {
			return nil, fmt.Errorf("scan latest observed: %w", err)
		}
		out[cat] = at
	}
	return out, rows.Err()
}

// Prune deletes observations observed before the cutoff
func (r *ObservationRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM observations WHERE observed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune observations: %w", err)
	}
	return tag.RowsAffected(), nil
}
