package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/equity"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/logger"
)

// QuoteClient fetches real-time market quotes
type QuoteClient struct {
	log *logger.Logger
}

func NewQuoteClient(log *logger.Logger) *QuoteClient {
	return &QuoteClient{log: log}
}

// Quote returns the latest market quote and its market timestamp.
// ChangePct is converted from the provider's percent form to a fraction.
func (c *QuoteClient) Quote(ctx context.Context, ticker string) (*contracts.MarketQuote, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}

	q, err := equity.Get(ticker)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("quote %s: %w: %v", ticker, contracts.ErrSourceUnavailable, err)
	}
	if q == nil {
		return nil, time.Time{}, fmt.Errorf("quote %s: empty response: %w", ticker, contracts.ErrSourceDataMalformed)
	}
	if q.RegularMarketPrice < 0 {
		return nil, time.Time{}, fmt.Errorf("quote %s: negative price %f: %w",
			ticker, q.RegularMarketPrice, contracts.ErrSourceDataMalformed)
	}

	observedAt := time.Now().UTC()
	if q.RegularMarketTime > 0 {
		observedAt = time.Unix(int64(q.RegularMarketTime), 0).UTC()
	}

	mq := &contracts.MarketQuote{
		Price:     q.RegularMarketPrice,
		ChangePct: q.RegularMarketChangePercent / 100,
		Volume:    int64(q.RegularMarketVolume),
		MarketCap: float64(q.MarketCap),
	}

	c.log.WithFields(map[string]interface{}{
		"ticker": ticker,
		"price":  mq.Price,
	}).Debug("Fetched market quote")

	return mq, observedAt, nil
}
