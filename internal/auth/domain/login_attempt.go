package domain

import "time"

// LoginAttempt is an append-only audit record. Rows are never mutated; the
// guard aggregates over them to rate limit by source address.
type LoginAttempt struct {
	ID         string
	Email      string
	SourceAddr string
	Successful bool
	CreatedAt  time.Time
}
