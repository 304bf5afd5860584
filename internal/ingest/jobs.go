package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/config"
	"github.com/wonny/credmon/pkg/logger"
)

// ScoringJob runs a scoring cycle for every active entity on the configured
// cadence
type ScoringJob struct {
	runner   *Runner
	schedule string
}

func NewScoringJob(runner *Runner, cfg config.IngestConfig) *ScoringJob {
	return &ScoringJob{runner: runner, schedule: cfg.CycleSchedule}
}

func (j *ScoringJob) Name() string     { return "scoring_sweep" }
func (j *ScoringJob) Schedule() string { return j.schedule }

func (j *ScoringJob) Run(ctx context.Context) error {
	return j.runner.RunAll(ctx)
}

// MaintenanceJob prunes raw observations past the retention horizon.
// Snapshots and alerts are kept; only the raw source material ages out.
type MaintenanceJob struct {
	obs       contracts.ObservationRepository
	retention time.Duration
	log       *logger.Logger
	now       func() time.Time
}

func NewMaintenanceJob(obs contracts.ObservationRepository, cfg config.IngestConfig, log *logger.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		obs:       obs,
		retention: cfg.Retention,
		log:       log,
		now:       time.Now,
	}
}

func (j *MaintenanceJob) Name() string     { return "observation_maintenance" }
func (j *MaintenanceJob) Schedule() string { return "0 0 3 * * *" }

func (j *MaintenanceJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	pruned, err := j.obs.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune observations: %w", err)
	}

	j.log.WithFields(map[string]interface{}{
		"cutoff": cutoff,
		"pruned": pruned,
	}).Info("Pruned aged observations")

	return nil
}
