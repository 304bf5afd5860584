package adapters

import (
	"context"
	"time"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/internal/external/yahoo"
	"github.com/wonny/credmon/pkg/logger"
)

// FinancialAdapter ingests statement facts. Statements move on a daily
// cadence at most, so observations are stamped at day granularity and a
// repeat fetch within the same day yields nothing new.
type FinancialAdapter struct {
	client *yahoo.FundamentalsClient
	log    *logger.Logger
	now    func() time.Time
}

func NewFinancialAdapter(client *yahoo.FundamentalsClient, log *logger.Logger) *FinancialAdapter {
	return &FinancialAdapter{client: client, log: log, now: time.Now}
}

func (a *FinancialAdapter) Category() contracts.SourceCategory {
	return contracts.SourceFinancial
}

func (a *FinancialAdapter) Fetch(ctx context.Context, ticker string, since time.Time) ([]contracts.RawObservation, error) {
	now := a.now().UTC()
	observedAt := now.Truncate(24 * time.Hour)
	if !observedAt.After(since) {
		return nil, nil
	}

	facts, err := a.client.Fundamentals(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if facts.DebtToEquity == 0 && facts.EPS == 0 && facts.RevenueGrowth == 0 {
		a.log.WithField("ticker", ticker).Warn("Dropping empty fundamentals record")
		return nil, nil
	}
	if facts.DebtToEquity < 0 {
		a.log.WithFields(map[string]interface{}{
			"ticker":         ticker,
			"debt_to_equity": facts.DebtToEquity,
		}).Warn("Dropping fundamentals record with negative debt-to-equity")
		return nil, nil
	}

	return []contracts.RawObservation{{
		Ticker:     ticker,
		Category:   contracts.SourceFinancial,
		ObservedAt: observedAt,
		IngestedAt: now,
		Financial:  facts,
	}}, nil
}
