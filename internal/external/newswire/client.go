package newswire

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/config"
	"github.com/wonny/credmon/pkg/httputil"
	"github.com/wonny/credmon/pkg/logger"
)

// Headline is one scraped news item. PublishedAt is zero when the page did
// not carry a timestamp for the item.
type Headline struct {
	Title       string
	URL         string
	Source      string
	PublishedAt time.Time
}

// Client scrapes per-ticker headlines from the newswire's HTML news stream
type Client struct {
	http    *httputil.Client
	baseURL string
	apiKey  string
	log     *logger.Logger
}

func New(cfg config.NewsWireConfig, http *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		http:    http,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		log:     log,
	}
}

// Headlines fetches the current news stream for a ticker. Items without a
// non-empty title are skipped; everything else is passed through for the
// adapter to validate.
func (c *Client) Headlines(ctx context.Context, ticker string) ([]Headline, error) {
	endpoint := fmt.Sprintf("%s/quote/%s/news", c.baseURL, url.PathEscape(ticker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("headlines %s: %w", ticker, err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("headlines %s: %w: %v", ticker, contracts.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("headlines %s: %w", ticker, contracts.ErrSourceRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("headlines %s: status %d: %w",
			ticker, resp.StatusCode, contracts.ErrSourceUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("headlines %s: status %d: %w",
			ticker, resp.StatusCode, contracts.ErrSourceDataMalformed)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("headlines %s: parse: %w", ticker, contracts.ErrSourceDataMalformed)
	}

	headlines := parseStream(doc)

	c.log.WithFields(map[string]interface{}{
		"ticker": ticker,
		"count":  len(headlines),
	}).Debug("Fetched headlines")

	return headlines, nil
}

func parseStream(doc *goquery.Document) []Headline {
	var out []Headline
	doc.Find("li.stream-item, div.news-item, article").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("h3").First().Text())
		if title == "" {
			return
		}

		h := Headline{Title: title}
		if href, ok := s.Find("a").First().Attr("href"); ok {
			h.URL = href
		}
		h.Source = strings.TrimSpace(s.Find(".publisher, .source").First().Text())
		if dt, ok := s.Find("time").First().Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, dt); err == nil {
				h.PublishedAt = t.UTC()
			}
		}
		out = append(out, h)
	})
	return out
}
