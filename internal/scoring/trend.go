package scoring

import (
	"math"
	"time"

	"github.com/wonny/credmon/internal/contracts"
)

// TrendDirection buckets an entity's recent score movement
type TrendDirection string

const (
	TrendImproving     TrendDirection = "improving"
	TrendStable        TrendDirection = "stable"
	TrendDeteriorating TrendDirection = "deteriorating"
)

// trendBand is the composite change, in points, within which the trend
// counts as stable
const trendBand = 5.0

// volatilityWindow is how many recent snapshots feed the volatility figure
const volatilityWindow = 10

// TrendMove records a single cycle-to-cycle composite change that exceeded
// the stable band
type TrendMove struct {
	At     time.Time `json:"at"`
	Change float64   `json:"change"`
}

// TrendSummary describes an entity's score movement over a snapshot range
type TrendSummary struct {
	Direction        TrendDirection `json:"direction"`
	Change           float64        `json:"change"`
	Min              float64        `json:"min"`
	Max              float64        `json:"max"`
	Volatility       float64        `json:"volatility"`
	Snapshots        int            `json:"snapshots"`
	SignificantMoves []TrendMove    `json:"significant_moves,omitempty"`
}

// Summarize computes the trend over snapshots ordered oldest to newest.
// Change is last minus first; volatility is the standard deviation of the
// last ten composites.
func Summarize(snaps []*contracts.ScoreSnapshot) TrendSummary {
	s := TrendSummary{Direction: TrendStable, Snapshots: len(snaps)}
	if len(snaps) == 0 {
		return s
	}

	s.Change = snaps[len(snaps)-1].Composite - snaps[0].Composite
	switch {
	case s.Change > trendBand:
		s.Direction = TrendImproving
	case s.Change < -trendBand:
		s.Direction = TrendDeteriorating
	}

	s.Min, s.Max = snaps[0].Composite, snaps[0].Composite
	for _, sn := range snaps[1:] {
		if sn.Composite < s.Min {
			s.Min = sn.Composite
		}
		if sn.Composite > s.Max {
			s.Max = sn.Composite
		}
	}

	for i := 1; i < len(snaps); i++ {
		move := snaps[i].Composite - snaps[i-1].Composite
		if math.Abs(move) > trendBand {
			s.SignificantMoves = append(s.SignificantMoves, TrendMove{
				At:     snaps[i].CycleAt,
				Change: move,
			})
		}
	}

	recent := snaps
	if len(recent) > volatilityWindow {
		recent = recent[len(recent)-volatilityWindow:]
	}
	s.Volatility = stddev(recent)

	return s
}

func stddev(snaps []*contracts.ScoreSnapshot) float64 {
	if len(snaps) < 2 {
		return 0
	}

	var mean float64
	for _, sn := range snaps {
		mean += sn.Composite
	}
	mean /= float64(len(snaps))

	var variance float64
	for _, sn := range snaps {
		d := sn.Composite - mean
		variance += d * d
	}
	variance /= float64(len(snaps))

	return math.Sqrt(variance)
}
