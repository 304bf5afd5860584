package contracts

import (
	"math"
	"sort"
	"time"
)

// Contribution is one feature's signed share of a score (absolute form) or
// of a score delta (attribution form)
type Contribution struct {
	Feature   string   `json:"feature"`
	Value     float64  `json:"value"`
	Stale     bool     `json:"stale,omitempty"`
	Headlines []string `json:"headlines,omitempty"`
}

// ScoreSnapshot is one cycle's scoring result. Snapshots are append-only
// and strictly ordered by cycle timestamp per entity; corrections are new
// snapshots, never updates.
type ScoreSnapshot struct {
	Ticker  string    `json:"ticker"`
	CycleAt time.Time `json:"cycle_at"`

	Financial float64 `json:"financial"`
	Market    float64 `json:"market"`
	News      float64 `json:"news"`
	Composite float64 `json:"composite"`

	StaleCategories []SourceCategory `json:"stale_categories,omitempty"`

	// Contributions is the exact linear decomposition of Composite into
	// per-sub-feature terms. The composite always equals their sum, which
	// is what makes delta attribution exact rather than approximate.
	Contributions []Contribution `json:"contributions"`
}

// ContributionSum returns the sum of all contribution values
func (s *ScoreSnapshot) ContributionSum() float64 {
	var sum float64
	for _, c := range s.Contributions {
		sum += c.Value
	}
	return sum
}

// Attribution explains a snapshot: the decomposition of the composite score
// for an initial snapshot, or of the delta versus the previous snapshot
// otherwise. Entries are sorted by absolute contribution descending.
type Attribution struct {
	Ticker  string    `json:"ticker"`
	CycleAt time.Time `json:"cycle_at"`
	Initial bool      `json:"initial"`
	Delta   float64   `json:"delta"` // composite delta; equals composite for initial

	Entries []Contribution `json:"entries"`
}

// Sum returns the sum of attribution entry values
func (a *Attribution) Sum() float64 {
	var sum float64
	for _, e := range a.Entries {
		sum += e.Value
	}
	return sum
}

// Top returns the n entries with the largest absolute contribution
func (a *Attribution) Top(n int) []Contribution {
	if n > len(a.Entries) {
		n = len(a.Entries)
	}
	return a.Entries[:n]
}

// SortContributions orders entries by absolute value descending, with the
// feature name as a deterministic tiebreak
func SortContributions(entries []Contribution) {
	sort.SliceStable(entries, func(i, j int) bool {
		ai, aj := math.Abs(entries[i].Value), math.Abs(entries[j].Value)
		if ai != aj {
			return ai > aj
		}
		return entries[i].Feature < entries[j].Feature
	})
}
