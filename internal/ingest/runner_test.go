package ingest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/credmon/internal/adapters"
	"github.com/wonny/credmon/internal/alerting"
	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/internal/explain"
	"github.com/wonny/credmon/internal/features"
	"github.com/wonny/credmon/internal/scoring"
	"github.com/wonny/credmon/pkg/config"
	"github.com/wonny/credmon/pkg/logger"
)

// fakeAdapter serves queued observations and errors per call
type fakeAdapter struct {
	mu       sync.Mutex
	category contracts.SourceCategory
	obs      []contracts.RawObservation
	errs     []error
	calls    int
}

func (f *fakeAdapter) Category() contracts.SourceCategory { return f.category }

func (f *fakeAdapter) Fetch(ctx context.Context, ticker string, since time.Time) ([]contracts.RawObservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := f.calls
	f.calls++
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}

	var out []contracts.RawObservation
	for _, o := range f.obs {
		if o.ObservedAt.After(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

// memStore is an in-memory implementation of the repository interfaces
type memStore struct {
	mu       sync.Mutex
	entities map[string]*contracts.Entity
	obs      []contracts.RawObservation
	vectors  map[string][]*contracts.FeatureVector
	snaps    map[string][]*contracts.ScoreSnapshot
	attrs    map[string][]*contracts.Attribution
	alerts   []*contracts.AlertRecord
}

func newMemStore() *memStore {
	return &memStore{
		entities: make(map[string]*contracts.Entity),
		vectors:  make(map[string][]*contracts.FeatureVector),
		snaps:    make(map[string][]*contracts.ScoreSnapshot),
		attrs:    make(map[string][]*contracts.Attribution),
	}
}

func (s *memStore) GetOrCreate(ctx context.Context, ticker, name string) (*contracts.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ticker]; ok {
		return e, nil
	}
	e := &contracts.Entity{Ticker: ticker, Name: name, Active: true}
	s.entities[ticker] = e
	return e, nil
}

func (s *memStore) Get(ctx context.Context, ticker string) (*contracts.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ticker]; ok {
		return e, nil
	}
	return nil, contracts.ErrNotFound
}

func (s *memStore) ListActive(ctx context.Context) ([]*contracts.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*contracts.Entity
	for _, e := range s.entities {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) Deactivate(ctx context.Context, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[ticker]; ok {
		e.Active = false
		return nil
	}
	return contracts.ErrNotFound
}

func (s *memStore) SaveBatch(ctx context.Context, obs []contracts.RawObservation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := 0
	for _, o := range obs {
		dup := false
		for _, existing := range s.obs {
			if existing.Ticker == o.Ticker && existing.Category == o.Category &&
				existing.ObservedAt.Equal(o.ObservedAt) {
				dup = true
				break
			}
		}
		if !dup {
			s.obs = append(s.obs, o)
			saved++
		}
	}
	return saved, nil
}

func (s *memStore) Window(ctx context.Context, ticker string, since, until time.Time) ([]contracts.RawObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []contracts.RawObservation
	for _, o := range s.obs {
		if o.Ticker == ticker && !o.ObservedAt.Before(since) && !o.ObservedAt.After(until) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	return out, nil
}

func (s *memStore) LatestObservedAt(ctx context.Context, ticker string) (map[contracts.SourceCategory]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[contracts.SourceCategory]time.Time)
	for _, o := range s.obs {
		if o.Ticker == ticker && o.ObservedAt.After(out[o.Category]) {
			out[o.Category] = o.ObservedAt
		}
	}
	return out, nil
}

func (s *memStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []contracts.RawObservation
	var pruned int64
	for _, o := range s.obs {
		if o.ObservedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, o)
	}
	s.obs = kept
	return pruned, nil
}

func (s *memStore) SaveCycle(ctx context.Context, vec *contracts.FeatureVector, snap *contracts.ScoreSnapshot, attr *contracts.Attribution, alert *contracts.AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[vec.Ticker] = append(s.vectors[vec.Ticker], vec)
	s.snaps[snap.Ticker] = append(s.snaps[snap.Ticker], snap)
	s.attrs[attr.Ticker] = append(s.attrs[attr.Ticker], attr)
	if alert != nil {
		alert.ID = int64(len(s.alerts) + 1)
		s.alerts = append(s.alerts, alert)
	}
	return nil
}

func (s *memStore) Latest(ctx context.Context, ticker string) (*contracts.ScoreSnapshot, *contracts.Attribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snaps := s.snaps[ticker]
	if len(snaps) == 0 {
		return nil, nil, contracts.ErrNotFound
	}
	attrs := s.attrs[ticker]
	return snaps[len(snaps)-1], attrs[len(attrs)-1], nil
}

func (s *memStore) LatestVector(ctx context.Context, ticker string) (*contracts.FeatureVector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vecs := s.vectors[ticker]
	if len(vecs) == 0 {
		return nil, contracts.ErrNotFound
	}
	return vecs[len(vecs)-1], nil
}

func (s *memStore) History(ctx context.Context, ticker string, since time.Time, limit int) ([]*contracts.ScoreSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*contracts.ScoreSnapshot
	for _, sn := range s.snaps[ticker] {
		if !sn.CycleAt.Before(since) {
			out = append(out, sn)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) LatestAcrossActive(ctx context.Context) ([]*contracts.ScoreSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*contracts.ScoreSnapshot
	for ticker, snaps := range s.snaps {
		if e, ok := s.entities[ticker]; ok && e.Active && len(snaps) > 0 {
			out = append(out, snaps[len(snaps)-1])
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []*contracts.AlertRecord
}

func (n *fakeNotifier) NotifyAlert(alert *contracts.AlertRecord) {
	n.mu.Lock()
	n.alerts = append(n.alerts, alert)
	n.mu.Unlock()
}

// testClock hands out strictly advancing fixed times
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func testIngestConfig() config.IngestConfig {
	return config.IngestConfig{
		Lookback:       720 * time.Hour,
		MaxParallel:    4,
		MaxRetries:     0,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func testWeights() config.ScoringConfig {
	return config.ScoringConfig{
		FinancialWeight: 0.4, MarketWeight: 0.3, NewsWeight: 0.3,
		DebtEquityDeltaWeight: 0.40, RevenueGrowthWeight: 0.35, EPSChangeWeight: 0.25,
		VolatilityWeight: 0.40, RecentReturnWeight: 0.35, MarketCapTrendWeight: 0.25,
		SentimentWeight: 0.50, EventImpactWeight: 0.30, HeadlineActivityWeight: 0.20,
	}
}

type fixture struct {
	runner    *Runner
	store     *memStore
	notifier  *fakeNotifier
	financial *fakeAdapter
	market    *fakeAdapter
	news      *fakeAdapter
}

func newFixture(t *testing.T, cfg config.IngestConfig, alertThreshold float64) *fixture {
	t.Helper()
	log := logger.NewNop()
	store := newMemStore()
	notifier := &fakeNotifier{}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	financial := &fakeAdapter{category: contracts.SourceFinancial, obs: []contracts.RawObservation{
		{Ticker: "ACME", Category: contracts.SourceFinancial, ObservedAt: base,
			Financial: &contracts.FinancialFacts{DebtToEquity: 1.2, RevenueGrowth: 0.05, EPS: 2.0}},
		{Ticker: "ACME", Category: contracts.SourceFinancial, ObservedAt: base.Add(24 * time.Hour),
			Financial: &contracts.FinancialFacts{DebtToEquity: 1.3, RevenueGrowth: 0.04, EPS: 2.1}},
	}}
	market := &fakeAdapter{category: contracts.SourceMarket, obs: []contracts.RawObservation{
		{Ticker: "ACME", Category: contracts.SourceMarket, ObservedAt: base,
			Market: &contracts.MarketQuote{Price: 100, MarketCap: 1e9}},
		{Ticker: "ACME", Category: contracts.SourceMarket, ObservedAt: base.Add(12 * time.Hour),
			Market: &contracts.MarketQuote{Price: 103, MarketCap: 1.03e9}},
		{Ticker: "ACME", Category: contracts.SourceMarket, ObservedAt: base.Add(24 * time.Hour),
			Market: &contracts.MarketQuote{Price: 101, MarketCap: 1.01e9}},
	}}
	news := &fakeAdapter{category: contracts.SourceNews, obs: []contracts.RawObservation{
		{Ticker: "ACME", Category: contracts.SourceNews, ObservedAt: base.Add(6 * time.Hour),
			News: &contracts.NewsItem{Headline: "Acme reports record profit growth", Source: "wire"}},
	}}

	clock := &testClock{t: base.Add(36 * time.Hour)}

	runner := NewRunner(cfg, RunnerDeps{
		Adapters:  []adapters.SourceAdapter{financial, market, news},
		Entities:  store,
		Obs:       store,
		Snaps:     store,
		Engineer:  features.NewEngineer(log),
		Engine:    scoring.NewEngine(testWeights(), log),
		Explainer: explain.NewExplainer(log),
		Evaluator: alerting.NewEvaluator(config.AlertingConfig{Threshold: alertThreshold, TopReasons: 3}, log),
		Notifier:  notifier,
	}, log)
	runner.now = clock.now

	return &fixture{
		runner:    runner,
		store:     store,
		notifier:  notifier,
		financial: financial,
		market:    market,
		news:      news,
	}
}

func TestRunCycleFirstCycleFullSuccess(t *testing.T) {
	f := newFixture(t, testIngestConfig(), 20)

	result, err := f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomeFullSuccess, result.Outcome)
	assert.Empty(t, result.FailedCategories)
	assert.Equal(t, 6, result.ObservationCount)
	require.NotNil(t, result.Snapshot)
	assert.Nil(t, result.Alert)

	snap, attr, err := f.store.Latest(context.Background(), "ACME")
	require.NoError(t, err)
	assert.True(t, attr.Initial)
	assert.InDelta(t, snap.Composite, attr.Sum(), 1e-6)
	assert.InDelta(t, snap.Composite, snap.ContributionSum(), 1e-6)
	assert.Empty(t, snap.StaleCategories)
}

func TestRunCyclePartialFailureCarriesStaleNews(t *testing.T) {
	f := newFixture(t, testIngestConfig(), 20)

	_, err := f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	require.NoError(t, err)

	f.news.mu.Lock()
	f.news.errs = []error{nil, contracts.ErrSourceUnavailable}
	f.news.mu.Unlock()

	result, err := f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomePartialFailure, result.Outcome)
	assert.Equal(t, []contracts.SourceCategory{contracts.SourceNews}, result.FailedCategories)
	require.NotNil(t, result.Snapshot)

	// news values are carried, flagged stale, never zeroed
	assert.Equal(t, []contracts.SourceCategory{contracts.SourceNews}, result.Snapshot.StaleCategories)
	assert.Greater(t, result.Snapshot.News, 0.0)

	snaps, err := f.store.History(context.Background(), "ACME", time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestRunCycleAllSourcesFailedKeepsPriorSnapshot(t *testing.T) {
	f := newFixture(t, testIngestConfig(), 20)

	first, err := f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	require.NoError(t, err)

	for _, a := range []*fakeAdapter{f.financial, f.market, f.news} {
		a.mu.Lock()
		a.errs = []error{nil, contracts.ErrSourceUnavailable}
		a.mu.Unlock()
	}

	result, err := f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomeFailed, result.Outcome)
	assert.Len(t, result.FailedCategories, 3)
	assert.Nil(t, result.Snapshot)

	snap, _, err := f.store.Latest(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, first.Snapshot.CycleAt, snap.CycleAt)
	assert.Equal(t, first.Snapshot.Composite, snap.Composite)
}

func TestRunCycleRetriesTransientFailure(t *testing.T) {
	cfg := testIngestConfig()
	cfg.MaxRetries = 2
	f := newFixture(t, cfg, 20)

	f.market.mu.Lock()
	f.market.errs = []error{contracts.ErrSourceUnavailable, contracts.ErrSourceRateLimited, nil}
	f.market.mu.Unlock()

	result, err := f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomeFullSuccess, result.Outcome)
	assert.Equal(t, 3, f.market.calls)
}

func TestRunCycleTimestampsStrictlyIncrease(t *testing.T) {
	f := newFixture(t, testIngestConfig(), 20)
	// freeze the clock so consecutive cycles would collide
	frozen := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	f.runner.now = func() time.Time { return frozen }

	first, err := f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	require.NoError(t, err)
	second, err := f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	require.NoError(t, err)

	assert.True(t, second.Snapshot.CycleAt.After(first.Snapshot.CycleAt))
}

func TestRunCycleRejectsOverlap(t *testing.T) {
	f := newFixture(t, testIngestConfig(), 20)

	require.True(t, f.runner.acquire("ACME"))
	_, err := f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycleInProgress))
	f.runner.release("ACME")

	_, err = f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	assert.NoError(t, err)
}

func TestRunCycleRaisesDowngradeAlert(t *testing.T) {
	f := newFixture(t, testIngestConfig(), 10)

	_, err := f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	require.NoError(t, err)

	// a wave of severe headlines lands before the second cycle
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	f.news.mu.Lock()
	f.news.obs = append(f.news.obs,
		contracts.RawObservation{Ticker: "ACME", Category: contracts.SourceNews, ObservedAt: base,
			News: &contracts.NewsItem{Headline: "Acme files for bankruptcy protection", Source: "wire"}},
		contracts.RawObservation{Ticker: "ACME", Category: contracts.SourceNews, ObservedAt: base.Add(time.Hour),
			News: &contracts.NewsItem{Headline: "Acme defaults on bond payment amid crisis", Source: "wire"}},
	)
	f.news.mu.Unlock()

	result, err := f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	require.NoError(t, err)

	require.NotNil(t, result.Alert)
	assert.Equal(t, contracts.DirectionDowngrade, result.Alert.Direction)
	assert.Less(t, result.Alert.Delta, -10.0)
	assert.NotEmpty(t, result.Alert.Reasons)

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "ACME", f.notifier.alerts[0].Ticker)
}

func TestRunAllSweepsActiveEntities(t *testing.T) {
	f := newFixture(t, testIngestConfig(), 20)

	_, err := f.store.GetOrCreate(context.Background(), "ACME", "Acme Corp")
	require.NoError(t, err)

	require.NoError(t, f.runner.RunAll(context.Background()))

	snap, _, err := f.store.Latest(context.Background(), "ACME")
	require.NoError(t, err)
	assert.NotNil(t, snap)
}

func TestRunCycleInsufficientDataFails(t *testing.T) {
	f := newFixture(t, testIngestConfig(), 20)

	// news returns nothing at all: the index cannot be formed
	f.news.mu.Lock()
	f.news.obs = nil
	f.news.mu.Unlock()

	result, err := f.runner.RunCycle(context.Background(), "ACME", "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeFailed, result.Outcome)
	assert.Nil(t, result.Snapshot)

	_, _, err = f.store.Latest(context.Background(), "ACME")
	assert.True(t, errors.Is(err, contracts.ErrNotFound))
}
