package contracts

import "time"

// SourceCategory identifies one external data category
type SourceCategory string

const (
	SourceFinancial SourceCategory = "financial"
	SourceMarket    SourceCategory = "market"
	SourceNews      SourceCategory = "news"
)

// Categories lists all source categories in a stable order
func Categories() []SourceCategory {
	return []SourceCategory{SourceFinancial, SourceMarket, SourceNews}
}

// RawObservation is one normalized fact from a source. Observations are
// immutable once written; the store is append-only per
// entity+category+observed timestamp.
type RawObservation struct {
	Ticker     string         `json:"ticker"`
	Category   SourceCategory `json:"category"`
	ObservedAt time.Time      `json:"observed_at"`
	IngestedAt time.Time      `json:"ingested_at"`

	// Exactly one payload is set, matching Category.
	Financial *FinancialFacts `json:"financial,omitempty"`
	Market    *MarketQuote    `json:"market,omitempty"`
	News      *NewsItem       `json:"news,omitempty"`
}

// FinancialFacts is the normalized financial-statement payload
type FinancialFacts struct {
	DebtToEquity   float64 `json:"debt_to_equity"`
	RevenueGrowth  float64 `json:"revenue_growth"` // fractional, e.g. 0.08 = +8%
	EPS            float64 `json:"eps"`
	CurrentRatio   float64 `json:"current_ratio"`
	ReturnOnEquity float64 `json:"return_on_equity"`
}

// MarketQuote is the normalized market payload
type MarketQuote struct {
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"` // fractional day change
	Volume    int64   `json:"volume"`
	MarketCap float64 `json:"market_cap"`
}

// NewsItem is the normalized news payload
type NewsItem struct {
	Headline string `json:"headline"`
	Source   string `json:"source"`
	URL      string `json:"url,omitempty"`
}
