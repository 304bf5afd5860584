package adapters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/internal/external/newswire"
	"github.com/wonny/credmon/pkg/config"
	"github.com/wonny/credmon/pkg/httputil"
	"github.com/wonny/credmon/pkg/logger"
)

const newsStreamHTML = `
<html><body><ul>
  <li class="stream-item">
    <h3>Acme beats earnings expectations</h3>
    <a href="https://news.example.com/1"></a>
    <div class="publisher">Reuters</div>
    <time datetime="2026-03-01T10:00:00Z"></time>
  </li>
  <li class="stream-item">
    <h3></h3>
    <a href="https://news.example.com/2"></a>
  </li>
  <li class="stream-item">
    <h3>Acme announces layoffs</h3>
    <div class="publisher">Bloomberg</div>
    <time datetime="2026-03-01T14:30:00Z"></time>
  </li>
  <li class="stream-item">
    <h3>Item from the far future</h3>
    <time datetime="2027-01-01T00:00:00Z"></time>
  </li>
  <li class="stream-item">
    <h3>Undated wire item</h3>
  </li>
</ul></body></html>`

func newsAdapterFor(t *testing.T, handler http.HandlerFunc, now time.Time) *NewsAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewNop()
	client := newswire.New(config.NewsWireConfig{BaseURL: srv.URL}, httputil.New(log).DisableRetry(), log)
	a := NewNewsAdapter(client, 24*time.Hour, log)
	a.now = func() time.Time { return now }
	return a
}

func TestNewsAdapterFetch(t *testing.T) {
	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	a := newsAdapterFor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote/ACME/news", r.URL.Path)
		w.Write([]byte(newsStreamHTML))
	}, now)

	obs, err := a.Fetch(context.Background(), "ACME", time.Time{})
	require.NoError(t, err)

	// empty title and future-dated items are dropped; three remain
	require.Len(t, obs, 3)

	assert.Equal(t, "Acme beats earnings expectations", obs[0].News.Headline)
	assert.Equal(t, "Reuters", obs[0].News.Source)
	assert.Equal(t, "https://news.example.com/1", obs[0].News.URL)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), obs[0].ObservedAt)

	assert.Equal(t, "Acme announces layoffs", obs[1].News.Headline)

	// undated item is stamped with the fetch time
	assert.Equal(t, "Undated wire item", obs[2].News.Headline)
	assert.Equal(t, now, obs[2].ObservedAt)

	for _, o := range obs {
		assert.Equal(t, contracts.SourceNews, o.Category)
		assert.Equal(t, "ACME", o.Ticker)
	}
}

func TestNewsAdapterSinceFiltersOldItems(t *testing.T) {
	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	a := newsAdapterFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(newsStreamHTML))
	}, now)

	since := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	obs, err := a.Fetch(context.Background(), "ACME", since)
	require.NoError(t, err)

	require.Len(t, obs, 2)
	assert.Equal(t, "Acme announces layoffs", obs[0].News.Headline)
	assert.Equal(t, "Undated wire item", obs[1].News.Headline)
}

func TestNewsAdapterRateLimited(t *testing.T) {
	a := newsAdapterFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, time.Now().UTC())

	_, err := a.Fetch(context.Background(), "ACME", time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrSourceRateLimited))
}

func TestNewsAdapterServerError(t *testing.T) {
	a := newsAdapterFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, time.Now().UTC())

	_, err := a.Fetch(context.Background(), "ACME", time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrSourceUnavailable))
}
