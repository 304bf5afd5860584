package adapters

import (
	"context"
	"time"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/internal/external/newswire"
	"github.com/wonny/credmon/pkg/logger"
)

// NewsAdapter ingests headlines. Items with an empty title or a timestamp
// beyond the allowed future skew are dropped individually; the rest of the
// batch is accepted. Items without a published timestamp are stamped with
// the fetch time.
type NewsAdapter struct {
	client     *newswire.Client
	futureSkew time.Duration
	log        *logger.Logger
	now        func() time.Time
}

func NewNewsAdapter(client *newswire.Client, futureSkew time.Duration, log *logger.Logger) *NewsAdapter {
	return &NewsAdapter{
		client:     client,
		futureSkew: futureSkew,
		log:        log,
		now:        time.Now,
	}
}

func (a *NewsAdapter) Category() contracts.SourceCategory {
	return contracts.SourceNews
}

func (a *NewsAdapter) Fetch(ctx context.Context, ticker string, since time.Time) ([]contracts.RawObservation, error) {
	headlines, err := a.client.Headlines(ctx, ticker)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	var out []contracts.RawObservation
	for _, h := range headlines {
		if h.Title == "" {
			a.log.WithField("ticker", ticker).Warn("Dropping headline with empty title")
			continue
		}
		if !h.PublishedAt.IsZero() && h.PublishedAt.After(now.Add(a.futureSkew)) {
			a.log.WithFields(map[string]interface{}{
				"ticker":       ticker,
				"published_at": h.PublishedAt,
			}).Warn("Dropping headline with implausible future timestamp")
			continue
		}

		observedAt := h.PublishedAt
		if observedAt.IsZero() {
			observedAt = now
		}
		if !observedAt.After(since) {
			continue
		}

		out = append(out, contracts.RawObservation{
			Ticker:     ticker,
			Category:   contracts.SourceNews,
			ObservedAt: observedAt,
			IngestedAt: now,
			News: &contracts.NewsItem{
				Headline: h.Title,
				Source:   h.Source,
				URL:      h.URL,
			},
		})
	}

	return out, nil
}
