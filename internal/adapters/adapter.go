package adapters

import (
	"context"
	"time"

	"github.com/wonny/credmon/internal/contracts"
)

// SourceAdapter fetches one category's data for a ticker and normalizes it
// into validated observations. Fetch returns only observations newer than
// since; malformed records are dropped individually and logged, never
// returned. An empty result with a nil error means the source responded
// with nothing new, which is a successful fetch.
type SourceAdapter interface {
	Category() contracts.SourceCategory
	Fetch(ctx context.Context, ticker string, since time.Time) ([]contracts.RawObservation, error)
}
