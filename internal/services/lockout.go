package services

import (
	"time"

	"gatehouse/internal/config"
	"gatehouse/internal/models"
)

// ConfigSource supplies the lockout policy settings for each authentication
// call. Settings are read once per call and never mid-request.
type ConfigSource interface {
	LockoutConfig() config.LockoutConfig
}

// StaticConfig is a ConfigSource backed by a fixed value.
type StaticConfig struct {
	Lockout config.LockoutConfig
}

func (s StaticConfig) LockoutConfig() config.LockoutConfig { return s.Lockout }

// LockoutDecision describes the effect of recording a failed attempt.
type LockoutDecision struct {
	FailedLoginCount int
	LockedOut        bool       // True when this failure entered a lockout window
	LockedOutUntil   *time.Time // End of the window when LockedOut
}

// LockoutPolicy is the engine deciding when an identity enters and leaves a
// lockout window. It is stateless: all state lives on the Identity, and the
// thresholds arrive as an explicit config value with every call, so two
// identities can never contaminate each other's counters.
type LockoutPolicy struct{}

// NewLockoutPolicy creates a new LockoutPolicy
func NewLockoutPolicy() *LockoutPolicy {
	return &LockoutPolicy{}
}

// IsLockedOut reports whether the identity is inside an active lockout window.
func (p *LockoutPolicy) IsLockedOut(identity *models.Identity, now time.Time) bool {
	return identity.LockedOutUntil != nil && now.Before(*identity.LockedOutUntil)
}

// RetryAfter returns the time remaining in the identity's lockout window,
// zero when no window is active.
func (p *LockoutPolicy) RetryAfter(identity *models.Identity, now time.Time) time.Duration {
	if !p.IsLockedOut(identity, now) {
		return 0
	}
	return identity.LockedOutUntil.Sub(now)
}

// RecordFailure increments the identity's failure counter and opens a lockout
// window once the counter reaches the configured threshold. The counter is
// deliberately not reset on entering lockout: it keeps counting until a
// success or a completed password change clears it, so a failure arriving
// right after a window expires re-locks immediately rather than granting a
// fresh run of attempts.
func (p *LockoutPolicy) RecordFailure(identity *models.Identity, now time.Time, cfg config.LockoutConfig) LockoutDecision {
	identity.FailedLoginCount++

	decision := LockoutDecision{FailedLoginCount: identity.FailedLoginCount}

	if identity.FailedLoginCount >= cfg.MaxFailedAttempts && !p.IsLockedOut(identity, now) {
		until := now.Add(cfg.LockoutDuration)
		identity.LockedOutUntil = &until
		decision.LockedOut = true
		decision.LockedOutUntil = &until
	}

	return decision
}

// RecordSuccess resets the failure counter. A still-active lockout window is
// left in place: success is only reachable after the pre-check has already
// rejected locked-out identities, so a late success must not shorten the
// window. An elapsed window is cleared as housekeeping.
func (p *LockoutPolicy) RecordSuccess(identity *models.Identity, now time.Time) {
	identity.FailedLoginCount = 0

	if identity.LockedOutUntil != nil && !now.Before(*identity.LockedOutUntil) {
		identity.LockedOutUntil = nil
	}
}
