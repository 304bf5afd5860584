package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/credmon/internal/adapters"
	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/config"
	"github.com/wonny/credmon/pkg/logger"
)

// IsTransient reports whether a source error is worth retrying. Malformed
// data is not: the same payload would come back on every attempt.
func IsTransient(err error) bool {
	return errors.Is(err, contracts.ErrSourceUnavailable) ||
		errors.Is(err, contracts.ErrSourceRateLimited)
}

// fetchWithRetry runs one adapter fetch, retrying transient failures with
// exponential backoff until the attempt budget or the context runs out
func fetchWithRetry(ctx context.Context, adapter adapters.SourceAdapter, ticker string,
	since time.Time, cfg config.IngestConfig, log *logger.Logger) ([]contracts.RawObservation, error) {

	delay := cfg.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		obs, err := adapter.Fetch(ctx, ticker, since)
		if err == nil {
			return obs, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == cfg.MaxRetries {
			break
		}

		log.WithFields(map[string]interface{}{
			"ticker":   ticker,
			"category": string(adapter.Category()),
			"attempt":  attempt + 1,
			"delay":    delay,
			"error":    err.Error(),
		}).Warn("Transient source failure, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > cfg.MaxBackoff {
			delay = cfg.MaxBackoff
		}
	}

	return nil, lastErr
}
