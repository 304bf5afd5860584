package alerting

import (
	"fmt"
	"math"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/config"
	"github.com/wonny/credmon/pkg/logger"
)

// Severity cutoffs in composite score points
const (
	criticalDelta = 30.0
	highDelta     = 20.0
)

// Evaluator decides whether a scored cycle raises an alert. Reasons are
// taken from the cycle's own attribution so an alert can never cite a
// different explanation than the one persisted with it.
type Evaluator struct {
	threshold  float64
	topReasons int
	log        *logger.Logger
}

func NewEvaluator(cfg config.AlertingConfig, log *logger.Logger) *Evaluator {
	return &Evaluator{
		threshold:  cfg.Threshold,
		topReasons: cfg.TopReasons,
		log:        log,
	}
}

// Evaluate returns an alert when the composite moved at least the threshold
// between consecutive snapshots, and nil otherwise. The first snapshot of an
// entity never alerts; there is no previous score to move from.
func (e *Evaluator) Evaluate(snap, prev *contracts.ScoreSnapshot, attr *contracts.Attribution) *contracts.AlertRecord {
	if prev == nil {
		return nil
	}

	delta := snap.Composite - prev.Composite
	if math.Abs(delta) < e.threshold {
		return nil
	}

	direction := contracts.DirectionUpgrade
	if delta < 0 {
		direction = contracts.DirectionDowngrade
	}

	alert := &contracts.AlertRecord{
		Ticker:        snap.Ticker,
		PreviousAt:    prev.CycleAt,
		CurrentAt:     snap.CycleAt,
		PreviousScore: prev.Composite,
		CurrentScore:  snap.Composite,
		Delta:         delta,
		Direction:     direction,
		Severity:      severityFor(delta),
		Reasons:       reasons(attr, e.topReasons),
		CreatedAt:     snap.CycleAt,
	}

	if e.log != nil {
		e.log.WithFields(map[string]interface{}{
			"ticker":    snap.Ticker,
			"delta":     fmt.Sprintf("%+.2f", delta),
			"direction": string(direction),
			"severity":  string(alert.Severity),
		}).Info("Score change alert raised")
	}

	return alert
}

func severityFor(delta float64) contracts.AlertSeverity {
	switch abs := math.Abs(delta); {
	case abs >= criticalDelta:
		return contracts.SeverityCritical
	case abs >= highDelta:
		return contracts.SeverityHigh
	default:
		return contracts.SeverityMedium
	}
}

// reasons renders the top attribution entries as human-readable strings.
// Event-impact entries include the first headline behind the flags.
func reasons(attr *contracts.Attribution, n int) []string {
	if attr == nil {
		return nil
	}
	top := attr.Top(n)
	out := make([]string, 0, len(top))
	for _, entry := range top {
		r := fmt.Sprintf("%s %+.2f", entry.Feature, entry.Value)
		if entry.Stale {
			r += " (stale)"
		}
		if len(entry.Headlines) > 0 {
			r += fmt.Sprintf(" (%q)", entry.Headlines[0])
		}
		out = append(out, r)
	}
	return out
}
