package models

import (
	"time"
)

// Identity is an account capable of authenticating.
type Identity struct {
	ID                string
	Email             string
	PasswordHash      string
	FailedLoginCount  int        // Consecutive failures; reset on success or password change
	LockedOutUntil    *time.Time // Lockout window end, nil when not locked
	PasswordExpiresAt *time.Time // After this, login succeeds only into the change-password flow
	Version           int64      // Optimistic concurrency token, bumped on every save
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PasswordExpired reports whether a password expiry is set and has elapsed.
func (i *Identity) PasswordExpired(now time.Time) bool {
	return i.PasswordExpiresAt != nil && !now.Before(*i.PasswordExpiresAt)
}
