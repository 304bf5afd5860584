package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/credmon/internal/contracts"
)

func snapsOf(scores ...float64) []*contracts.ScoreSnapshot {
	out := make([]*contracts.ScoreSnapshot, 0, len(scores))
	for _, s := range scores {
		out = append(out, &contracts.ScoreSnapshot{Composite: s})
	}
	return out
}

func TestSummarizeDirections(t *testing.T) {
	assert.Equal(t, TrendImproving, Summarize(snapsOf(50, 53, 58)).Direction)
	assert.Equal(t, TrendDeteriorating, Summarize(snapsOf(58, 53, 50)).Direction)
	assert.Equal(t, TrendStable, Summarize(snapsOf(50, 56, 54)).Direction)
	// exactly at the band edge stays stable
	assert.Equal(t, TrendStable, Summarize(snapsOf(50, 55)).Direction)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, TrendStable, s.Direction)
	assert.Zero(t, s.Change)
	assert.Zero(t, s.Volatility)
	assert.Zero(t, s.Snapshots)
}

func TestSummarizeVolatilityUsesRecentWindow(t *testing.T) {
	// a wild early history followed by ten flat snapshots
	scores := []float64{10, 90, 10, 90, 10}
	for i := 0; i < 10; i++ {
		scores = append(scores, 50)
	}
	s := Summarize(snapsOf(scores...))
	assert.Zero(t, s.Volatility)

	s = Summarize(snapsOf(40, 60, 40, 60))
	assert.InDelta(t, 10.0, s.Volatility, 1e-9)
}

func TestSummarizeRangeAndMoves(t *testing.T) {
	s := Summarize(snapsOf(50, 62, 60, 45))

	assert.Equal(t, 45.0, s.Min)
	assert.Equal(t, 62.0, s.Max)

	// 50->62 and 60->45 exceed the band, 62->60 does not
	if assert.Len(t, s.SignificantMoves, 2) {
		assert.InDelta(t, 12.0, s.SignificantMoves[0].Change, 1e-9)
		assert.InDelta(t, -15.0, s.SignificantMoves[1].Change, 1e-9)
	}
}

func TestSummarizeSingleSnapshot(t *testing.T) {
	s := Summarize(snapsOf(72))
	assert.Equal(t, TrendStable, s.Direction)
	assert.Zero(t, s.Change)
	assert.Zero(t, s.Volatility)
	assert.Equal(t, 1, s.Snapshots)
}
