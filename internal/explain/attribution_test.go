package explain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/logger"
)

func snapshot(ticker string, at time.Time, contribs ...contracts.Contribution) *contracts.ScoreSnapshot {
	var composite float64
	for _, c := range contribs {
		composite += c.Value
	}
	return &contracts.ScoreSnapshot{
		Ticker:        ticker,
		CycleAt:       at,
		Composite:     composite,
		Contributions: contribs,
	}
}

func TestExplainInitialSnapshot(t *testing.T) {
	ex := NewExplainer(logger.NewNop())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snap := snapshot("ACME", at,
		contracts.Contribution{Feature: contracts.FeatRevenueGrowth, Value: 24.5},
		contracts.Contribution{Feature: contracts.FeatRecentReturn, Value: 18.0},
		contracts.Contribution{Feature: contracts.FeatSentiment, Value: 16.5},
	)

	attr, err := ex.Explain(nil, snap, nil)
	require.NoError(t, err)

	assert.True(t, attr.Initial)
	assert.InDelta(t, snap.Composite, attr.Delta, 1e-9)
	assert.InDelta(t, snap.Composite, attr.Sum(), 1e-9)

	// entries come back ordered by absolute contribution
	require.Len(t, attr.Entries, 3)
	assert.Equal(t, contracts.FeatRevenueGrowth, attr.Entries[0].Feature)
	assert.Equal(t, contracts.FeatRecentReturn, attr.Entries[1].Feature)
	assert.Equal(t, contracts.FeatSentiment, attr.Entries[2].Feature)
}

func TestExplainDeltaSumsExactly(t *testing.T) {
	ex := NewExplainer(logger.NewNop())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	prev := snapshot("ACME", at,
		contracts.Contribution{Feature: contracts.FeatRevenueGrowth, Value: 24.5},
		contracts.Contribution{Feature: contracts.FeatRecentReturn, Value: 18.0},
		contracts.Contribution{Feature: contracts.FeatSentiment, Value: 16.5},
	)
	cur := snapshot("ACME", at.Add(30*time.Minute),
		contracts.Contribution{Feature: contracts.FeatRevenueGrowth, Value: 20.1},
		contracts.Contribution{Feature: contracts.FeatRecentReturn, Value: 11.4},
		contracts.Contribution{Feature: contracts.FeatSentiment, Value: 9.3},
	)

	attr, err := ex.Explain(nil, cur, prev)
	require.NoError(t, err)

	assert.False(t, attr.Initial)
	assert.InDelta(t, cur.Composite-prev.Composite, attr.Delta, 1e-9)
	assert.InDelta(t, attr.Delta, attr.Sum(), 1e-6)

	// every entry is negative; the largest drop leads
	assert.Equal(t, contracts.FeatSentiment, attr.Entries[0].Feature)
}

func TestExplainFeatureAppearsAndDisappears(t *testing.T) {
	ex := NewExplainer(logger.NewNop())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	prev := snapshot("ACME", at,
		contracts.Contribution{Feature: contracts.FeatRevenueGrowth, Value: 28.0},
		contracts.Contribution{Feature: contracts.FeatEPSChange, Value: 10.0},
	)
	cur := snapshot("ACME", at.Add(30*time.Minute),
		contracts.Contribution{Feature: contracts.FeatRevenueGrowth, Value: 25.0},
		contracts.Contribution{Feature: contracts.FeatDebtEquityDelta, Value: 8.0},
	)

	attr, err := ex.Explain(nil, cur, prev)
	require.NoError(t, err)
	assert.InDelta(t, attr.Delta, attr.Sum(), 1e-6)

	features := make(map[string]float64)
	for _, e := range attr.Entries {
		features[e.Feature] = e.Value
	}
	assert.InDelta(t, -10.0, features[contracts.FeatEPSChange], 1e-9)
	assert.InDelta(t, 8.0, features[contracts.FeatDebtEquityDelta], 1e-9)
}

func TestExplainDropsZeroDeltas(t *testing.T) {
	ex := NewExplainer(logger.NewNop())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	prev := snapshot("ACME", at,
		contracts.Contribution{Feature: contracts.FeatRevenueGrowth, Value: 24.5},
		contracts.Contribution{Feature: contracts.FeatSentiment, Value: 16.5},
	)
	cur := snapshot("ACME", at.Add(30*time.Minute),
		contracts.Contribution{Feature: contracts.FeatRevenueGrowth, Value: 24.5},
		contracts.Contribution{Feature: contracts.FeatSentiment, Value: 12.5},
	)

	attr, err := ex.Explain(nil, cur, prev)
	require.NoError(t, err)
	require.Len(t, attr.Entries, 1)
	assert.Equal(t, contracts.FeatSentiment, attr.Entries[0].Feature)
	assert.InDelta(t, -4.0, attr.Entries[0].Value, 1e-9)
}

func TestExplainAttachesEventHeadlines(t *testing.T) {
	ex := NewExplainer(logger.NewNop())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	vec := &contracts.FeatureVector{
		Ticker: "ACME",
		EventFlags: []contracts.EventFlag{
			{Category: contracts.EventDowngrade, Headline: "Agency downgrades Acme to junk"},
			{Category: contracts.EventRestructuring, Headline: "Acme announces layoffs"},
		},
	}
	snap := snapshot("ACME", at,
		contracts.Contribution{Feature: contracts.FeatEventImpact, Value: 4.5},
		contracts.Contribution{Feature: contracts.FeatSentiment, Value: 12.0},
	)

	attr, err := ex.Explain(vec, snap, nil)
	require.NoError(t, err)

	var eventEntry *contracts.Contribution
	for i := range attr.Entries {
		if attr.Entries[i].Feature == contracts.FeatEventImpact {
			eventEntry = &attr.Entries[i]
		}
	}
	require.NotNil(t, eventEntry)
	assert.Equal(t, []string{
		"Agency downgrades Acme to junk",
		"Acme announces layoffs",
	}, eventEntry.Headlines)
}

func TestExplainRejectsMismatch(t *testing.T) {
	ex := NewExplainer(logger.NewNop())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snap := snapshot("ACME", at,
		contracts.Contribution{Feature: contracts.FeatSentiment, Value: 16.5},
	)
	// composite no longer matches the recorded contributions
	snap.Composite += 0.5

	_, err := ex.Explain(nil, snap, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrAttributionMismatch))
}

func TestExplainToleratesFloatNoise(t *testing.T) {
	ex := NewExplainer(logger.NewNop())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snap := snapshot("ACME", at,
		contracts.Contribution{Feature: contracts.FeatSentiment, Value: 16.5},
	)
	snap.Composite = math.Nextafter(snap.Composite, 100)

	_, err := ex.Explain(nil, snap, nil)
	assert.NoError(t, err)
}
