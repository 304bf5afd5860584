package features

import (
	"sort"
	"time"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/logger"
)

// Engineer turns a window of raw observations into a feature vector.
// Build is a pure function of its inputs: the same window, prior vector and
// failure set always produce an identical vector.
type Engineer struct {
	log *logger.Logger
}

func NewEngineer(log *logger.Logger) *Engineer {
	return &Engineer{log: log}
}

// Build computes the cycle's feature vector. Observations from categories
// that failed this cycle are still present in the window from earlier
// cycles, so their sub-features are recomputed from that history and marked
// stale; a sub-feature with no window history falls back to the prior
// vector's value, also marked stale. A failed category with neither window
// data nor a prior value stays undefined.
func (e *Engineer) Build(ticker string, cycleAt time.Time, window []contracts.RawObservation,
	prev *contracts.FeatureVector, failed map[contracts.SourceCategory]bool) *contracts.FeatureVector {

	sorted := make([]contracts.RawObservation, len(window))
	copy(sorted, window)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ObservedAt.Equal(sorted[j].ObservedAt) {
			return sorted[i].ObservedAt.Before(sorted[j].ObservedAt)
		}
		return sorted[i].Category < sorted[j].Category
	})

	var financials []*contracts.FinancialFacts
	var quotes []*contracts.MarketQuote
	var news []*contracts.NewsItem
	for i := range sorted {
		switch sorted[i].Category {
		case contracts.SourceFinancial:
			if sorted[i].Financial != nil {
				financials = append(financials, sorted[i].Financial)
			}
		case contracts.SourceMarket:
			if sorted[i].Market != nil {
				quotes = append(quotes, sorted[i].Market)
			}
		case contracts.SourceNews:
			if sorted[i].News != nil {
				news = append(news, sorted[i].News)
			}
		}
	}

	vec := &contracts.FeatureVector{
		Ticker:  ticker,
		CycleAt: cycleAt,
	}
	vec.Financial = buildFinancial(financials)
	vec.Market = buildMarket(quotes)
	vec.News, vec.EventFlags = buildNews(news)
	vec.HeadlineCount = len(news)

	if failed[contracts.SourceFinancial] {
		staleFinancial(&vec.Financial, prev)
	}
	if failed[contracts.SourceMarket] {
		staleMarket(&vec.Market, prev)
	}
	if failed[contracts.SourceNews] {
		staleNews(&vec.News, prev)
	}

	if e.log != nil {
		for _, cat := range vec.StaleCategories() {
			e.log.WithFields(map[string]interface{}{
				"ticker":   ticker,
				"category": string(cat),
			}).Warn("Carrying stale features for failed source")
		}
		if vec.News.MeanSentiment.Defined {
			e.log.WithFields(map[string]interface{}{
				"ticker":    ticker,
				"sentiment": vec.News.MeanSentiment.Value,
				"label":     string(LabelFor(vec.News.MeanSentiment.Value)),
				"headlines": vec.HeadlineCount,
			}).Debug("Window sentiment")
		}
	}

	return vec
}

// carry marks a computed sub-feature stale, or substitutes the prior value
// when the window produced nothing
func carry(cur *contracts.SubFeature, prev contracts.SubFeature) {
	if cur.Defined {
		cur.Stale = true
		return
	}
	if prev.Defined {
		*cur = contracts.SubFeature{Value: prev.Value, Defined: true, Stale: true}
	}
}

func staleFinancial(f *contracts.FinancialFeatures, prev *contracts.FeatureVector) {
	var p contracts.FinancialFeatures
	if prev != nil {
		p = prev.Financial
	}
	carry(&f.DebtEquityDelta, p.DebtEquityDelta)
	carry(&f.RevenueGrowth, p.RevenueGrowth)
	carry(&f.EPSChange, p.EPSChange)
}

func staleMarket(m *contracts.MarketFeatures, prev *contracts.FeatureVector) {
	var p contracts.MarketFeatures
	if prev != nil {
		p = prev.Market
	}
	carry(&m.Volatility, p.Volatility)
	carry(&m.RecentReturn, p.RecentReturn)
	carry(&m.MarketCapTrend, p.MarketCapTrend)
}

func staleNews(n *contracts.NewsFeatures, prev *contracts.FeatureVector) {
	var p contracts.NewsFeatures
	if prev != nil {
		p = prev.News
	}
	carry(&n.MeanSentiment, p.MeanSentiment)
	carry(&n.EventImpact, p.EventImpact)
	carry(&n.HeadlineActivity, p.HeadlineActivity)
}
