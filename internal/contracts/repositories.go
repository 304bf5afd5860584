package contracts

import (
	"context"
	"time"
)

// EntityRepository manages the registry of tracked tickers
type EntityRepository interface {
	// GetOrCreate returns the entity, creating it on first cycle trigger
	GetOrCreate(ctx context.Context, ticker, name string) (*Entity, error)
	Get(ctx context.Context, ticker string) (*Entity, error)
	ListActive(ctx context.Context) ([]*Entity, error)
	Deactivate(ctx context.Context, ticker string) error
}

// ObservationRepository is the append-only store of raw observations
type ObservationRepository interface {
	// SaveBatch appends observations, skipping content duplicates, and
	// returns the count actually stored
	SaveBatch(ctx context.Context, obs []RawObservation) (int, error)

	// Window returns observations within [since, until] ordered by
	// observed timestamp ascending
	Window(ctx context.Context, ticker string, since, until time.Time) ([]RawObservation, error)

	// LatestObservedAt returns the newest observed timestamp per category
	LatestObservedAt(ctx context.Context, ticker string) (map[SourceCategory]time.Time, error)

	// Prune removes observations older than the cutoff (maintenance only)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// SnapshotRepository persists the scoring output. SaveCycle writes the
// feature vector, snapshot, attribution and optional alert as one atomic
// unit; readers only ever observe committed cycles.
type SnapshotRepository interface {
	SaveCycle(ctx context.Context, vec *FeatureVector, snap *ScoreSnapshot, attr *Attribution, alert *AlertRecord) error

	Latest(ctx context.Context, ticker string) (*ScoreSnapshot, *Attribution, error)
	LatestVector(ctx context.Context, ticker string) (*FeatureVector, error)
	History(ctx context.Context, ticker string, since time.Time, limit int) ([]*ScoreSnapshot, error)

	// LatestAcrossActive returns the newest snapshot for every active
	// entity, for the leaderboard surface
	LatestAcrossActive(ctx context.Context) ([]*ScoreSnapshot, error)
}

// AlertRepository reads the append-only alert log
type AlertRepository interface {
	List(ctx context.Context, ticker string, since time.Time, limit int) ([]*AlertRecord, error)
	ListAll(ctx context.Context, since time.Time, limit int) ([]*AlertRecord, error)
	Acknowledge(ctx context.Context, id int64) error
}
