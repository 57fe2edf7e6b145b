package models

import (
	"time"
)

// PasswordResetToken holds the stored half of a reset token: only the SHA-256
// hash is persisted, the plain value leaves the system exactly once, in the
// reset email. An identity has at most one live token; issuing a new one
// deletes the prior row.
type PasswordResetToken struct {
	ID         string
	IdentityID string
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// IsExpired reports whether the token's validity window has elapsed.
func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
