package adapters

import (
	"context"
	"time"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/internal/external/yahoo"
	"github.com/wonny/credmon/pkg/logger"
)

// MarketAdapter ingests real-time quotes stamped with the market timestamp
type MarketAdapter struct {
	client *yahoo.QuoteClient
	log    *logger.Logger
	now    func() time.Time
}

func NewMarketAdapter(client *yahoo.QuoteClient, log *logger.Logger) *MarketAdapter {
	return &MarketAdapter{client: client, log: log, now: time.Now}
}

func (a *MarketAdapter) Category() contracts.SourceCategory {
	return contracts.SourceMarket
}

func (a *MarketAdapter) Fetch(ctx context.Context, ticker string, since time.Time) ([]contracts.RawObservation, error) {
	quote, observedAt, err := a.client.Quote(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if quote.Price < 0 {
		a.log.WithFields(map[string]interface{}{
			"ticker": ticker,
			"price":  quote.Price,
		}).Warn("Dropping quote with negative price")
		return nil, nil
	}
	// off-hours fetches keep returning the last session's quote
	if !observedAt.After(since) {
		return nil, nil
	}

	return []contracts.RawObservation{{
		Ticker:     ticker,
		Category:   contracts.SourceMarket,
		ObservedAt: observedAt,
		IngestedAt: a.now().UTC(),
		Market:     quote,
	}}, nil
}
