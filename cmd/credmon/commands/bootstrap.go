package commands

import (
	"context"
	"fmt"

	"github.com/wonny/credmon/internal/adapters"
	"github.com/wonny/credmon/internal/alerting"
	"github.com/wonny/credmon/internal/api/ws"
	"github.com/wonny/credmon/internal/explain"
	"github.com/wonny/credmon/internal/external/newswire"
	"github.com/wonny/credmon/internal/external/yahoo"
	"github.com/wonny/credmon/internal/features"
	"github.com/wonny/credmon/internal/ingest"
	"github.com/wonny/credmon/internal/scoring"
	"github.com/wonny/credmon/internal/storage"
	"github.com/wonny/credmon/pkg/config"
	"github.com/wonny/credmon/pkg/database"
	"github.com/wonny/credmon/pkg/httputil"
	"github.com/wonny/credmon/pkg/logger"
	"github.com/wonny/credmon/pkg/redis"
)

// runtime holds the full dependency graph shared by the commands
type runtime struct {
	cfg *config.Config
	log *logger.Logger

	db    *database.DB
	redis *redis.Client
	cache *redis.Cache

	entities     *storage.EntityRepository
	observations *storage.ObservationRepository
	snapshots    *storage.SnapshotRepository
	alerts       *storage.AlertRepository

	runner *ingest.Runner
	hub    *ws.Hub
}

// newRuntime connects to the backing services and wires the pipeline
func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	if rejected := features.ExtendVocabulary(cfg.Ingest.ExtraKeywords); len(rejected) > 0 {
		log.WithField("entries", rejected).Warn("Ignored malformed event keyword entries")
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := storage.Migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	log.Info("Connected to database")

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(rdb, "credmon")
	limiter := redis.NewRateLimiter(rdb, "credmon")

	yahooHTTP := httputil.New(log).
		WithRetry(cfg.Ingest.MaxRetries, cfg.Ingest.InitialBackoff, cfg.Ingest.MaxBackoff).
		WithLocalRateLimit(float64(redis.YahooRateLimit.Limit), redis.YahooRateLimit.Limit).
		WithRateLimiter(limiter, redis.YahooRateLimit)
	newsHTTP := httputil.New(log).
		WithRetry(cfg.Ingest.MaxRetries, cfg.Ingest.InitialBackoff, cfg.Ingest.MaxBackoff).
		WithLocalRateLimit(float64(redis.NewsWireRateLimit.Limit), redis.NewsWireRateLimit.Limit).
		WithRateLimiter(limiter, redis.NewsWireRateLimit)

	quoteClient := yahoo.NewQuoteClient(log)
	fundamentalsClient := yahoo.NewFundamentalsClient(cfg.Yahoo, yahooHTTP, log)
	newsClient := newswire.New(cfg.NewsWire, newsHTTP, log)

	entities := storage.NewEntityRepository(db, log)
	observations := storage.NewObservationRepository(db, log)
	snapshots := storage.NewSnapshotRepository(db, log)
	alertRepo := storage.NewAlertRepository(db, log)

	hub := ws.NewHub(log)

	runner := ingest.NewRunner(cfg.Ingest, ingest.RunnerDeps{
		Adapters: []adapters.SourceAdapter{
			adapters.NewFinancialAdapter(fundamentalsClient, log),
			adapters.NewMarketAdapter(quoteClient, log),
			adapters.NewNewsAdapter(newsClient, cfg.Ingest.FutureSkew, log),
		},
		Entities:  entities,
		Obs:       observations,
		Snaps:     snapshots,
		Engineer:  features.NewEngineer(log),
		Engine:    scoring.NewEngine(cfg.Scoring, log),
		Explainer: explain.NewExplainer(log),
		Evaluator: alerting.NewEvaluator(cfg.Alerting, log),
		Notifier:  hub,
	}, log)

	return &runtime{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        rdb,
		cache:        cache,
		entities:     entities,
		observations: observations,
		snapshots:    snapshots,
		alerts:       alertRepo,
		runner:       runner,
		hub:          hub,
	}, nil
}

func (rt *runtime) Close() {
	rt.hub.Close()
	rt.redis.Close()
	rt.db.Close()
}
