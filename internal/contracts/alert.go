package contracts

import "time"

// AlertDirection indicates which way the score moved
type AlertDirection string

const (
	DirectionUpgrade   AlertDirection = "upgrade"
	DirectionDowngrade AlertDirection = "downgrade"
)

// AlertSeverity buckets the magnitude of the change
type AlertSeverity string

const (
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertRecord is created when a score change between two consecutive
// snapshots exceeds the configured threshold. The record is append-only;
// reasons are copied verbatim from the top attribution entries so the alert
// and the explanation can never disagree.
type AlertRecord struct {
	ID     int64  `json:"id,omitempty"`
	Ticker string `json:"ticker"`

	PreviousAt    time.Time `json:"previous_at"`
	CurrentAt     time.Time `json:"current_at"`
	PreviousScore float64   `json:"previous_score"`
	CurrentScore  float64   `json:"current_score"`

	Delta     float64        `json:"delta"`
	Direction AlertDirection `json:"direction"`
	Severity  AlertSeverity  `json:"severity"`
	Reasons   []string       `json:"reasons"`

	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
}
