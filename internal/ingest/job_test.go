package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func result(success bool) JobResult {
	return JobResult{JobName: "scoring_sweep", StartTime: time.Now(), Success: success}
}

func TestJobHistoryKeepsBoundedResults(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+20; i++ {
		h.Add(result(true))
	}
	assert.Len(t, h.Results, historyLimit)
}

func TestJobHistorySuccessRate(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.SuccessRate())

	h.Add(result(true))
	h.Add(result(true))
	h.Add(result(false))
	h.Add(result(true))
	assert.InDelta(t, 0.75, h.SuccessRate(), 1e-9)
}

func TestJobHistoryLatest(t *testing.T) {
	h := &JobHistory{}
	h.Add(result(true))
	h.Add(result(false))

	latest := h.Latest(1)
	assert.Len(t, latest, 1)
	assert.False(t, latest[0].Success)

	assert.Len(t, h.Latest(10), 2)
	assert.Empty(t, (&JobHistory{}).Latest(5))
}
