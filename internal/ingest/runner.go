package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/wonny/credmon/internal/adapters"
	"github.com/wonny/credmon/internal/alerting"
	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/internal/explain"
	"github.com/wonny/credmon/internal/features"
	"github.com/wonny/credmon/internal/scoring"
	"github.com/wonny/credmon/pkg/config"
	"github.com/wonny/credmon/pkg/logger"
)

// ErrCycleInProgress is returned when a cycle is triggered for an entity
// whose previous cycle has not finished
var ErrCycleInProgress = errors.New("cycle already in progress for entity")

// Notifier receives alerts raised by completed cycles
type Notifier interface {
	NotifyAlert(alert *contracts.AlertRecord)
}

// Runner executes scoring cycles. Cycles for the same entity never overlap;
// cycles across entities run concurrently up to the configured bound.
type Runner struct {
	cfg      config.IngestConfig
	adapters []adapters.SourceAdapter

	entities contracts.EntityRepository
	obs      contracts.ObservationRepository
	snaps    contracts.SnapshotRepository

	engineer  *features.Engineer
	engine    *scoring.Engine
	explainer *explain.Explainer
	evaluator *alerting.Evaluator
	notifier  Notifier

	log *logger.Logger
	now func() time.Time

	sem  *semaphore.Weighted
	mu   sync.Mutex
	busy map[string]bool
}

// RunnerDeps bundles the collaborators a Runner needs
type RunnerDeps struct {
	Adapters  []adapters.SourceAdapter
	Entities  contracts.EntityRepository
	Obs       contracts.ObservationRepository
	Snaps     contracts.SnapshotRepository
	Engineer  *features.Engineer
	Engine    *scoring.Engine
	Explainer *explain.Explainer
	Evaluator *alerting.Evaluator
	Notifier  Notifier
}

func NewRunner(cfg config.IngestConfig, deps RunnerDeps, log *logger.Logger) *Runner {
	parallel := cfg.MaxParallel
	if parallel < 1 {
		parallel = 1
	}
	return &Runner{
		cfg:       cfg,
		adapters:  deps.Adapters,
		entities:  deps.Entities,
		obs:       deps.Obs,
		snaps:     deps.Snaps,
		engineer:  deps.Engineer,
		engine:    deps.Engine,
		explainer: deps.Explainer,
		evaluator: deps.Evaluator,
		notifier:  deps.Notifier,
		log:       log,
		now:       time.Now,
		sem:       semaphore.NewWeighted(int64(parallel)),
		busy:      make(map[string]bool),
	}
}

// RunCycle executes one full scoring cycle for a ticker: fetch, persist
// observations, engineer features, score, explain, evaluate alerts and
// commit everything as one unit. A cycle that produces no snapshot leaves
// the entity's prior snapshot as the current one.
func (r *Runner) RunCycle(ctx context.Context, ticker, name string) (*contracts.CycleResult, error) {
	if !r.acquire(ticker) {
		return nil, fmt.Errorf("%s: %w", ticker, ErrCycleInProgress)
	}
	defer r.release(ticker)

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	started := r.now().UTC()
	result := &contracts.CycleResult{Ticker: ticker, StartedAt: started}

	entity, err := r.entities.GetOrCreate(ctx, ticker, name)
	if err != nil {
		return nil, fmt.Errorf("get or create entity %s: %w", ticker, err)
	}

	since, err := r.obs.LatestObservedAt(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("latest observed %s: %w", ticker, err)
	}

	fetched, failed := r.fetchAll(ctx, ticker, since)

	saved := 0
	if len(fetched) > 0 {
		saved, err = r.obs.SaveBatch(ctx, fetched)
		if err != nil {
			return nil, fmt.Errorf("save observations %s: %w", ticker, err)
		}
	}
	result.ObservationCount = saved

	for cat := range failed {
		result.FailedCategories = append(result.FailedCategories, cat)
	}

	if len(failed) == len(r.adapters) {
		r.log.WithField("ticker", ticker).Error("All sources failed, prior snapshot stands")
		return r.finish(result, contracts.OutcomeFailed), nil
	}

	cycleAt := r.now().UTC()
	windowStart := cycleAt.Add(-r.cfg.Lookback)
	window, err := r.obs.Window(ctx, ticker, windowStart, cycleAt)
	if err != nil {
		return nil, fmt.Errorf("load window %s: %w", ticker, err)
	}

	prevSnap, _, err := r.snaps.Latest(ctx, ticker)
	if err != nil && !errors.Is(err, contracts.ErrNotFound) {
		return nil, fmt.Errorf("load latest snapshot %s: %w", ticker, err)
	}
	prevVec, err := r.snaps.LatestVector(ctx, ticker)
	if err != nil && !errors.Is(err, contracts.ErrNotFound) {
		return nil, fmt.Errorf("load latest vector %s: %w", ticker, err)
	}

	// snapshot timestamps are strictly increasing per entity
	if prevSnap != nil && !cycleAt.After(prevSnap.CycleAt) {
		cycleAt = prevSnap.CycleAt.Add(time.Millisecond)
	}

	vec := r.engineer.Build(ticker, cycleAt, window, prevVec, failed)

	snap, err := r.engine.Score(vec)
	if err != nil {
		if errors.Is(err, contracts.ErrInsufficientData) {
			r.log.WithFields(map[string]interface{}{
				"ticker": ticker,
				"error":  err.Error(),
			}).Warn("Not enough data to score, cycle failed")
			return r.finish(result, contracts.OutcomeFailed), nil
		}
		return nil, fmt.Errorf("score %s: %w", ticker, err)
	}

	attr, err := r.explainer.Explain(vec, snap, prevSnap)
	if err != nil {
		// a snapshot whose explanation does not reconcile must not persist
		return r.finish(result, contracts.OutcomeFailed), fmt.Errorf("explain %s: %w", ticker, err)
	}

	alert := r.evaluator.Evaluate(snap, prevSnap, attr)

	// the commit must survive a caller timeout once the cycle is decided
	saveCtx := context.WithoutCancel(ctx)
	if err := r.snaps.SaveCycle(saveCtx, vec, snap, attr, alert); err != nil {
		return nil, fmt.Errorf("save cycle %s: %w", ticker, err)
	}

	if alert != nil && r.notifier != nil {
		r.notifier.NotifyAlert(alert)
	}

	result.Snapshot = snap
	result.Alert = alert

	outcome := contracts.OutcomeFullSuccess
	if len(failed) > 0 {
		outcome = contracts.OutcomePartialFailure
	}

	r.log.WithFields(map[string]interface{}{
		"ticker":    entity.Ticker,
		"outcome":   string(outcome),
		"composite": snap.Composite,
		"duration":  r.now().UTC().Sub(started),
	}).Info("Cycle completed")

	return r.finish(result, outcome), nil
}

// RunAll runs a cycle for every active entity. Per-cycle failures are
// logged and do not stop the sweep.
func (r *Runner) RunAll(ctx context.Context) error {
	entities, err := r.entities.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active entities: %w", err)
	}

	var wg sync.WaitGroup
	for _, e := range entities {
		wg.Add(1)
		go func(entity *contracts.Entity) {
			defer wg.Done()
			if _, err := r.RunCycle(ctx, entity.Ticker, entity.Name); err != nil {
				r.log.WithFields(map[string]interface{}{
					"ticker": entity.Ticker,
					"error":  err.Error(),
				}).Error("Cycle failed")
			}
		}(e)
	}
	wg.Wait()

	return nil
}

// categoryResult carries one adapter's outcome through the fan-out channel
type categoryResult struct {
	category contracts.SourceCategory
	obs      []contracts.RawObservation
	err      error
}

// fetchAll queries every adapter concurrently and splits the outcomes into
// fetched observations and failed categories
func (r *Runner) fetchAll(ctx context.Context, ticker string, since map[contracts.SourceCategory]time.Time) ([]contracts.RawObservation, map[contracts.SourceCategory]bool) {
	results := make(chan categoryResult, len(r.adapters))

	var wg sync.WaitGroup
	for _, a := range r.adapters {
		wg.Add(1)
		go func(a adapters.SourceAdapter) {
			defer wg.Done()
			obs, err := fetchWithRetry(ctx, a, ticker, since[a.Category()], r.cfg, r.log)
			results <- categoryResult{category: a.Category(), obs: obs, err: err}
		}(a)
	}
	wg.Wait()
	close(results)

	var fetched []contracts.RawObservation
	failed := make(map[contracts.SourceCategory]bool)
	for res := range results {
		if res.err != nil {
			failed[res.category] = true
			r.log.WithFields(map[string]interface{}{
				"ticker":   ticker,
				"category": string(res.category),
				"error":    res.err.Error(),
			}).Error("Source fetch failed")
			continue
		}
		fetched = append(fetched, res.obs...)
	}
	return fetched, failed
}

func (r *Runner) finish(result *contracts.CycleResult, outcome contracts.CycleOutcome) *contracts.CycleResult {
	result.Outcome = outcome
	result.FinishedAt = r.now().UTC()
	return result
}

func (r *Runner) acquire(ticker string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy[ticker] {
		return false
	}
	r.busy[ticker] = true
	return true
}

func (r *Runner) release(ticker string) {
	r.mu.Lock()
	delete(r.busy, ticker)
	r.mu.Unlock()
}
