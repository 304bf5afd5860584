package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/config"
	"github.com/wonny/credmon/pkg/httputil"
	"github.com/wonny/credmon/pkg/logger"
)

// FundamentalsClient fetches financial-statement facts from the
// quoteSummary endpoint
type FundamentalsClient struct {
	http    *httputil.Client
	baseURL string
	log     *logger.Logger
}

func NewFundamentalsClient(cfg config.YahooConfig, http *httputil.Client, log *logger.Logger) *FundamentalsClient {
	return &FundamentalsClient{
		http:    http,
		baseURL: cfg.BaseURL,
		log:     log,
	}
}

// rawValue is the provider's {raw, fmt} number wrapper
type rawValue struct {
	Raw float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			FinancialData *struct {
				DebtToEquity   *rawValue `json:"debtToEquity"`
				RevenueGrowth  *rawValue `json:"revenueGrowth"`
				CurrentRatio   *rawValue `json:"currentRatio"`
				ReturnOnEquity *rawValue `json:"returnOnEquity"`
			} `json:"financialData"`
			KeyStatistics *struct {
				TrailingEPS *rawValue `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// Fundamentals returns the current statement facts for a ticker.
// Debt-to-equity arrives in percent form and is converted to a ratio.
func (c *FundamentalsClient) Fundamentals(ctx context.Context, ticker string) (*contracts.FinancialFacts, error) {
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=financialData,defaultKeyStatistics",
		c.baseURL, url.PathEscape(ticker))

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fundamentals %s: %w: %v", ticker, contracts.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("fundamentals %s: %w", ticker, contracts.ErrSourceRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("fundamentals %s: status %d: %w",
			ticker, resp.StatusCode, contracts.ErrSourceUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fundamentals %s: status %d: %w",
			ticker, resp.StatusCode, contracts.ErrSourceDataMalformed)
	}

	var parsed quoteSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("fundamentals %s: decode: %w", ticker, contracts.ErrSourceDataMalformed)
	}
	if parsed.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("fundamentals %s: %s: %w",
			ticker, parsed.QuoteSummary.Error.Description, contracts.ErrSourceDataMalformed)
	}
	if len(parsed.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("fundamentals %s: empty result: %w", ticker, contracts.ErrSourceDataMalformed)
	}

	result := parsed.QuoteSummary.Result[0]
	facts := &contracts.FinancialFacts{}

	if fd := result.FinancialData; fd != nil {
		if fd.DebtToEquity != nil {
			facts.DebtToEquity = fd.DebtToEquity.Raw / 100
		}
		if fd.RevenueGrowth != nil {
			facts.RevenueGrowth = fd.RevenueGrowth.Raw
		}
		if fd.CurrentRatio != nil {
			facts.CurrentRatio = fd.CurrentRatio.Raw
		}
		if fd.ReturnOnEquity != nil {
			facts.ReturnOnEquity = fd.ReturnOnEquity.Raw
		}
	}
	if ks := result.KeyStatistics; ks != nil && ks.TrailingEPS != nil {
		facts.EPS = ks.TrailingEPS.Raw
	}

	c.log.WithFields(map[string]interface{}{
		"ticker":         ticker,
		"debt_to_equity": facts.DebtToEquity,
	}).Debug("Fetched fundamentals")

	return facts, nil
}
