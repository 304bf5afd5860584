package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/config"
	"github.com/wonny/credmon/pkg/logger"
)

func defaultWeights() config.ScoringConfig {
	return config.ScoringConfig{
		FinancialWeight: 0.4,
		MarketWeight:    0.3,
		NewsWeight:      0.3,

		DebtEquityDeltaWeight: 0.40,
		RevenueGrowthWeight:   0.35,
		EPSChangeWeight:       0.25,

		VolatilityWeight:     0.40,
		RecentReturnWeight:   0.35,
		MarketCapTrendWeight: 0.25,

		SentimentWeight:        0.50,
		EventImpactWeight:      0.30,
		HeadlineActivityWeight: 0.20,
	}
}

func defined(v float64) contracts.SubFeature {
	return contracts.SubFeature{Value: v, Defined: true}
}

func fullVector() *contracts.FeatureVector {
	return &contracts.FeatureVector{
		Ticker:  "ACME",
		CycleAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Financial: contracts.FinancialFeatures{
			DebtEquityDelta: defined(0),
			RevenueGrowth:   defined(0.08),
			EPSChange:       defined(0.05),
		},
		Market: contracts.MarketFeatures{
			Volatility:     defined(0.01),
			RecentReturn:   defined(0.04),
			MarketCapTrend: defined(-0.04),
		},
		News: contracts.NewsFeatures{
			MeanSentiment:    defined(0.2),
			EventImpact:      defined(0),
			HeadlineActivity: defined(5),
		},
	}
}

func TestScoreFullVector(t *testing.T) {
	eng := NewEngine(defaultWeights(), logger.NewNop())

	snap, err := eng.Score(fullVector())
	require.NoError(t, err)

	assert.InDelta(t, 59.5, snap.Financial, 1e-9)
	assert.InDelta(t, 63.0, snap.Market, 1e-9)
	assert.InDelta(t, 55.0, snap.News, 1e-9)
	assert.InDelta(t, 59.2, snap.Composite, 1e-9)

	require.Len(t, snap.Contributions, 9)
	assert.InDelta(t, snap.Composite, snap.ContributionSum(), 1e-9)
	assert.Empty(t, snap.StaleCategories)
}

func TestScoreCompositeEqualsContributionSum(t *testing.T) {
	eng := NewEngine(defaultWeights(), logger.NewNop())

	vectors := []*contracts.FeatureVector{
		fullVector(),
		{
			Ticker: "ONE",
			Financial: contracts.FinancialFeatures{
				RevenueGrowth: defined(-0.12),
			},
			Market: contracts.MarketFeatures{
				RecentReturn: defined(0.31),
			},
			News: contracts.NewsFeatures{
				MeanSentiment: defined(-0.95),
				EventImpact:   defined(-1),
			},
		},
	}

	for _, vec := range vectors {
		snap, err := eng.Score(vec)
		require.NoError(t, err)
		assert.InDelta(t, snap.Composite, snap.ContributionSum(), 1e-9)
		assert.GreaterOrEqual(t, snap.Composite, 0.0)
		assert.LessOrEqual(t, snap.Composite, 100.0)
	}
}

func TestScoreRenormalizesUndefinedSubFeatures(t *testing.T) {
	eng := NewEngine(defaultWeights(), logger.NewNop())

	vec := fullVector()
	vec.Financial.DebtEquityDelta = contracts.SubFeature{}
	vec.Financial.EPSChange = contracts.SubFeature{}

	snap, err := eng.Score(vec)
	require.NoError(t, err)

	// revenue growth is the only defined financial sub-feature, so its
	// normalized score becomes the whole index
	assert.InDelta(t, 70.0, snap.Financial, 1e-9)

	require.Len(t, snap.Contributions, 7)
	assert.InDelta(t, snap.Composite, snap.ContributionSum(), 1e-9)
}

func TestScoreInsufficientData(t *testing.T) {
	eng := NewEngine(defaultWeights(), logger.NewNop())

	vec := fullVector()
	vec.News = contracts.NewsFeatures{}

	_, err := eng.Score(vec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrInsufficientData))
	assert.Contains(t, err.Error(), "news")
}

func TestScoreClampsExtremeInputs(t *testing.T) {
	eng := NewEngine(defaultWeights(), logger.NewNop())

	vec := fullVector()
	vec.Financial.RevenueGrowth = defined(5.0)
	vec.Market.RecentReturn = defined(-0.9)

	snap, err := eng.Score(vec)
	require.NoError(t, err)
	assert.LessOrEqual(t, snap.Composite, 100.0)
	assert.GreaterOrEqual(t, snap.Composite, 0.0)
	for _, c := range snap.Contributions {
		assert.GreaterOrEqual(t, c.Value, 0.0)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	eng := NewEngine(defaultWeights(), logger.NewNop())

	first, err := eng.Score(fullVector())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := eng.Score(fullVector())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScorePropagatesStaleness(t *testing.T) {
	eng := NewEngine(defaultWeights(), logger.NewNop())

	vec := fullVector()
	vec.News.MeanSentiment.Stale = true
	vec.News.EventImpact.Stale = true
	vec.News.HeadlineActivity.Stale = true

	snap, err := eng.Score(vec)
	require.NoError(t, err)

	assert.Equal(t, []contracts.SourceCategory{contracts.SourceNews}, snap.StaleCategories)
	for _, c := range snap.Contributions {
		switch c.Feature {
		case contracts.FeatSentiment, contracts.FeatEventImpact, contracts.FeatHeadlineActivity:
			assert.True(t, c.Stale, c.Feature)
		default:
			assert.False(t, c.Stale, c.Feature)
		}
	}
}
