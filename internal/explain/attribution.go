package explain

import (
	"fmt"
	"math"

	"github.com/wonny/credmon/internal/contracts"
	"github.com/wonny/credmon/pkg/logger"
)

// mismatchTolerance bounds the allowed gap between the attributed sum and
// the composite movement it explains
const mismatchTolerance = 1e-6

// Explainer produces attributions for score snapshots. An attribution that
// does not reconcile with the composite is a bug in scoring, and the cycle
// must not persist it.
type Explainer struct {
	log *logger.Logger
}

func NewExplainer(log *logger.Logger) *Explainer {
	return &Explainer{log: log}
}

// Explain builds the attribution for snap. With no prior snapshot the
// entries decompose the composite itself; otherwise each entry is the change
// in that feature's contribution and the entries sum to the composite delta.
// Event-impact entries carry the headlines that triggered the flags.
func (e *Explainer) Explain(vec *contracts.FeatureVector, snap, prev *contracts.ScoreSnapshot) (*contracts.Attribution, error) {
	attr := &contracts.Attribution{
		Ticker:  snap.Ticker,
		CycleAt: snap.CycleAt,
	}

	if prev == nil {
		attr.Initial = true
		attr.Delta = snap.Composite
		attr.Entries = append([]contracts.Contribution(nil), snap.Contributions...)
	} else {
		attr.Delta = snap.Composite - prev.Composite
		attr.Entries = deltaEntries(snap.Contributions, prev.Contributions)
	}

	attachHeadlines(attr.Entries, vec)
	contracts.SortContributions(attr.Entries)

	if err := e.verify(attr, snap, prev); err != nil {
		return nil, err
	}
	return attr, nil
}

// deltaEntries diffs the two contribution sets over the union of features.
// A feature absent from one side contributes zero there, so features that
// appear or disappear between cycles still reconcile. Exact zero deltas are
// dropped; removing them cannot change the sum.
func deltaEntries(current, previous []contracts.Contribution) []contracts.Contribution {
	prevByFeature := make(map[string]contracts.Contribution, len(previous))
	for _, c := range previous {
		prevByFeature[c.Feature] = c
	}

	entries := make([]contracts.Contribution, 0, len(current))
	seen := make(map[string]bool, len(current))
	for _, c := range current {
		seen[c.Feature] = true
		d := c.Value - prevByFeature[c.Feature].Value
		if d == 0 {
			continue
		}
		entries = append(entries, contracts.Contribution{
			Feature: c.Feature,
			Value:   d,
			Stale:   c.Stale,
		})
	}
	for _, p := range previous {
		if seen[p.Feature] || p.Value == 0 {
			continue
		}
		entries = append(entries, contracts.Contribution{
			Feature: p.Feature,
			Value:   -p.Value,
		})
	}
	return entries
}

func attachHeadlines(entries []contracts.Contribution, vec *contracts.FeatureVector) {
	if vec == nil || len(vec.EventFlags) == 0 {
		return
	}
	var headlines []string
	seen := make(map[string]bool)
	for _, f := range vec.EventFlags {
		if seen[f.Headline] {
			continue
		}
		seen[f.Headline] = true
		headlines = append(headlines, f.Headline)
	}
	for i := range entries {
		if entries[i].Feature == contracts.FeatEventImpact {
			entries[i].Headlines = headlines
		}
	}
}

func (e *Explainer) verify(attr *contracts.Attribution, snap, prev *contracts.ScoreSnapshot) error {
	sum := attr.Sum()
	gap := math.Abs(sum - attr.Delta)
	if gap <= mismatchTolerance {
		return nil
	}

	if e.log != nil {
		fields := map[string]interface{}{
			"ticker":    snap.Ticker,
			"sum":       sum,
			"delta":     attr.Delta,
			"gap":       gap,
			"composite": snap.Composite,
		}
		if prev != nil {
			fields["prev_composite"] = prev.Composite
		}
		e.log.WithFields(fields).Error("Attribution does not reconcile with composite")
	}

	return fmt.Errorf("attributed sum %.9f vs delta %.9f for %s: %w",
		sum, attr.Delta, snap.Ticker, contracts.ErrAttributionMismatch)
}
