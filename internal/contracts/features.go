package contracts

import "time"

// SubFeature is one engineered input to an index. A sub-feature that has
// never been observed stays undefined and is excluded from its index by
// renormalizing the remaining weights; a stale sub-feature carries the last
// known value because its source failed this cycle.
type SubFeature struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
	Stale   bool    `json:"stale"`
}

// Feature names used throughout scoring, attribution and alert reasons
const (
	FeatDebtEquityDelta  = "financial.debt_equity_delta"
	FeatRevenueGrowth    = "financial.revenue_growth"
	FeatEPSChange        = "financial.eps_change"
	FeatVolatility       = "market.volatility"
	FeatRecentReturn     = "market.recent_return"
	FeatMarketCapTrend   = "market.market_cap_trend"
	FeatSentiment        = "news.mean_sentiment"
	FeatEventImpact      = "news.event_impact"
	FeatHeadlineActivity = "news.headline_activity"
)

// FinancialFeatures are derived from the latest statement versus the prior one
type FinancialFeatures struct {
	DebtEquityDelta SubFeature `json:"debt_equity_delta"`
	RevenueGrowth   SubFeature `json:"revenue_growth"`
	EPSChange       SubFeature `json:"eps_change"`
}

// MarketFeatures are trailing-window statistics over market quotes
type MarketFeatures struct {
	Volatility     SubFeature `json:"volatility"`
	RecentReturn   SubFeature `json:"recent_return"`
	MarketCapTrend SubFeature `json:"market_cap_trend"`
}

// NewsFeatures aggregate headline sentiment and risk-event flags
type NewsFeatures struct {
	MeanSentiment    SubFeature `json:"mean_sentiment"`
	EventImpact      SubFeature `json:"event_impact"`
	HeadlineActivity SubFeature `json:"headline_activity"`
}

// EventFlag records a risk-event category matched in the window together
// with the headline that triggered it
type EventFlag struct {
	Category EventCategory `json:"category"`
	Headline string        `json:"headline"`
}

// FeatureVector is the per-cycle derived input to scoring. Vectors are
// recomputed each cycle and never mutated in place.
type FeatureVector struct {
	Ticker  string    `json:"ticker"`
	CycleAt time.Time `json:"cycle_at"`

	Financial FinancialFeatures `json:"financial"`
	Market    MarketFeatures    `json:"market"`
	News      NewsFeatures      `json:"news"`

	EventFlags    []EventFlag `json:"event_flags,omitempty"`
	HeadlineCount int         `json:"headline_count"`
}

// CategoryDefined reports whether any sub-feature of the category is defined
func (v *FeatureVector) CategoryDefined(cat SourceCategory) bool {
	switch cat {
	case SourceFinancial:
		return v.Financial.DebtEquityDelta.Defined ||
			v.Financial.RevenueGrowth.Defined ||
			v.Financial.EPSChange.Defined
	case SourceMarket:
		return v.Market.Volatility.Defined ||
			v.Market.RecentReturn.Defined ||
			v.Market.MarketCapTrend.Defined
	case SourceNews:
		return v.News.MeanSentiment.Defined ||
			v.News.EventImpact.Defined ||
			v.News.HeadlineActivity.Defined
	}
	return false
}

// StaleCategories lists the categories whose sub-features were carried
// forward from a prior cycle
func (v *FeatureVector) StaleCategories() []SourceCategory {
	var stale []SourceCategory
	if v.Financial.DebtEquityDelta.Stale || v.Financial.RevenueGrowth.Stale || v.Financial.EPSChange.Stale {
		stale = append(stale, SourceFinancial)
	}
	if v.Market.Volatility.Stale || v.Market.RecentReturn.Stale || v.Market.MarketCapTrend.Stale {
		stale = append(stale, SourceMarket)
	}
	if v.News.MeanSentiment.Stale || v.News.EventImpact.Stale || v.News.HeadlineActivity.Stale {
		stale = append(stale, SourceNews)
	}
	return stale
}
