package scoring

import (
	"fmt"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/config"
	"github.com/wonny/credmon/pkg/logger"
)

// Engine computes score snapshots from feature vectors. Scoring is strictly
// linear: the composite is the sum of the per-sub-feature contributions it
// records, which is what lets attribution reconcile deltas exactly instead
// of approximately.
type Engine struct {
	cfg config.ScoringConfig
	log *logger.Logger
}

func NewEngine(cfg config.ScoringConfig, log *logger.Logger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

// term is one sub-feature's slot in an index
type term struct {
	feature string
	weight  float64
	norm    float64
	stale   bool
}

// Score computes the three indices and the weighted composite. An index
// whose sub-features are all undefined cannot be formed; the cycle fails
// with ErrInsufficientData rather than scoring on a fabricated neutral.
func (e *Engine) Score(vec *contracts.FeatureVector) (*contracts.ScoreSnapshot, error) {
	finTerms := definedTerms([]rawTerm{
		{contracts.FeatDebtEquityDelta, e.cfg.DebtEquityDeltaWeight, vec.Financial.DebtEquityDelta, normDebtEquityDelta},
		{contracts.FeatRevenueGrowth, e.cfg.RevenueGrowthWeight, vec.Financial.RevenueGrowth, normRevenueGrowth},
		{contracts.FeatEPSChange, e.cfg.EPSChangeWeight, vec.Financial.EPSChange, normEPSChange},
	})
	mktTerms := definedTerms([]rawTerm{
		{contracts.FeatVolatility, e.cfg.VolatilityWeight, vec.Market.Volatility, normVolatility},
		{contracts.FeatRecentReturn, e.cfg.RecentReturnWeight, vec.Market.RecentReturn, normRecentReturn},
		{contracts.FeatMarketCapTrend, e.cfg.MarketCapTrendWeight, vec.Market.MarketCapTrend, normMarketCapTrend},
	})
	newsTerms := definedTerms([]rawTerm{
		{contracts.FeatSentiment, e.cfg.SentimentWeight, vec.News.MeanSentiment, normSentiment},
		{contracts.FeatEventImpact, e.cfg.EventImpactWeight, vec.News.EventImpact, normEventImpact},
		{contracts.FeatHeadlineActivity, e.cfg.HeadlineActivityWeight, vec.News.HeadlineActivity, normHeadlineActivity},
	})

	financial, finContribs, err := index(contracts.SourceFinancial, finTerms, e.cfg.FinancialWeight)
	if err != nil {
		return nil, err
	}
	market, mktContribs, err := index(contracts.SourceMarket, mktTerms, e.cfg.MarketWeight)
	if err != nil {
		return nil, err
	}
	news, newsContribs, err := index(contracts.SourceNews, newsTerms, e.cfg.NewsWeight)
	if err != nil {
		return nil, err
	}

	contribs := make([]contracts.Contribution, 0, len(finContribs)+len(mktContribs)+len(newsContribs))
	contribs = append(contribs, finContribs...)
	contribs = append(contribs, mktContribs...)
	contribs = append(contribs, newsContribs...)

	var composite float64
	for _, c := range contribs {
		composite += c.Value
	}
	// Index weights near but not exactly 1.0 can push the sum past the
	// bound; rescaling keeps the decomposition exact after clamping.
	if composite > 100 {
		scale := 100 / composite
		for i := range contribs {
			contribs[i].Value *= scale
		}
		composite = 100
	}

	snap := &contracts.ScoreSnapshot{
		Ticker:          vec.Ticker,
		CycleAt:         vec.CycleAt,
		Financial:       financial,
		Market:          market,
		News:            news,
		Composite:       composite,
		StaleCategories: vec.StaleCategories(),
		Contributions:   contribs,
	}

	if e.log != nil {
		e.log.WithFields(map[string]interface{}{
			"ticker":    vec.Ticker,
			"composite": fmt.Sprintf("%.2f", composite),
			"financial": fmt.Sprintf("%.2f", financial),
			"market":    fmt.Sprintf("%.2f", market),
			"news":      fmt.Sprintf("%.2f", news),
		}).Debug("Scored feature vector")
	}

	return snap, nil
}

type rawTerm struct {
	feature string
	weight  float64
	sub     contracts.SubFeature
	norm    func(float64) float64
}

func definedTerms(raw []rawTerm) []term {
	var out []term
	for _, r := range raw {
		if !r.sub.Defined || r.weight <= 0 {
			continue
		}
		out = append(out, term{
			feature: r.feature,
			weight:  r.weight,
			norm:    r.norm(r.sub.Value),
			stale:   r.sub.Stale,
		})
	}
	return out
}

// index computes one 0-100 index over its defined terms, renormalizing the
// sub-feature weights so they sum to one, and returns the per-term shares
// of the composite
func index(cat contracts.SourceCategory, terms []term, indexWeight float64) (float64, []contracts.Contribution, error) {
	if len(terms) == 0 {
		return 0, nil, fmt.Errorf("%s index has no defined sub-features: %w",
			cat, contracts.ErrInsufficientData)
	}

	var weightSum float64
	for _, t := range terms {
		weightSum += t.weight
	}

	var value float64
	contribs := make([]contracts.Contribution, 0, len(terms))
	for _, t := range terms {
		share := t.weight / weightSum
		value += share * t.norm
		contribs = append(contribs, contracts.Contribution{
			Feature: t.feature,
			Value:   indexWeight * share * t.norm,
			Stale:   t.stale,
		})
	}

	return value, contribs, nil
}
