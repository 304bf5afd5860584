package contracts

import "errors"

// Source error taxonomy. Transient errors are retried with backoff before
// the category is marked failed for the cycle; malformed data is a
// record-level problem and never fails a whole batch.
var (
	// ErrSourceUnavailable indicates the provider could not be reached (transient)
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceRateLimited indicates the provider throttled us (transient)
	ErrSourceRateLimited = errors.New("source rate limited")

	// ErrSourceDataMalformed indicates a record failed schema validation
	ErrSourceDataMalformed = errors.New("source data malformed")

	// ErrInsufficientData indicates an index has no defined sub-features at
	// all; the cycle fails and the prior snapshot stands.
	ErrInsufficientData = errors.New("insufficient data for scoring")

	// ErrAttributionMismatch indicates the attribution sum does not reconcile
	// with the score delta. This is a defect in the scoring logic itself and
	// must abort the snapshot write.
	ErrAttributionMismatch = errors.New("attribution does not reconcile with score delta")

	// ErrNotFound indicates the requested entity or snapshot does not exist
	ErrNotFound = errors.New("not found")
)
