package contracts

import "time"

// CycleState is the per-entity ingestion state machine position
type CycleState string

const (
	StateIdle      CycleState = "idle"
	StateFetching  CycleState = "fetching"
	StateScoring   CycleState = "scoring"
	StatePersisted CycleState = "persisted"
)

// CycleOutcome is the terminal result of one scoring cycle
type CycleOutcome string

const (
	// OutcomeFullSuccess: every source category returned data or a
	// definitive "no new data" result
	OutcomeFullSuccess CycleOutcome = "full_success"

	// OutcomePartialFailure: at least one category failed but the cycle
	// still produced a snapshot from the categories that succeeded
	OutcomePartialFailure CycleOutcome = "partial_failure"

	// OutcomeFailed: no snapshot was produced; the prior snapshot stands
	OutcomeFailed CycleOutcome = "failed"
)

// CycleResult summarizes one completed cycle for callers of TriggerCycle
type CycleResult struct {
	Ticker           string           `json:"ticker"`
	Outcome          CycleOutcome     `json:"outcome"`
	StartedAt        time.Time        `json:"started_at"`
	FinishedAt       time.Time        `json:"finished_at"`
	FailedCategories []SourceCategory `json:"failed_categories,omitempty"`
	ObservationCount int              `json:"observation_count"`
	Snapshot         *ScoreSnapshot   `json:"snapshot,omitempty"`
	Alert            *AlertRecord     `json:"alert,omitempty"`
}
