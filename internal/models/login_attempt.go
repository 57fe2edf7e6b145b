package models

import "time"

// LoginAttempt is one immutable entry in the attempt ledger.
// IdentityID is nil when the submitted email matched no identity; the raw
// email is kept either way so unknown-account probing is still auditable.
type LoginAttempt struct {
	ID          string
	IdentityID  *string
	Email       string
	Success     bool
	AttemptTime time.Time
	ExpiresAt   time.Time // Retention horizon for background pruning
}
