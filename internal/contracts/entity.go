package contracts

import "time"

// Entity is a tracked company identified by ticker. Entities are created on
// first cycle trigger and deactivated rather than deleted, so their score
// history stays intact.
type Entity struct {
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
