package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthOutcome classifies the result of a single authentication call.
// Outcomes are values, not errors: callers branch on the kind.
type AuthOutcome int

const (
	OutcomeInvalidCredentials AuthOutcome = iota
	OutcomeLockedOut
	OutcomeExpiredPassword
	OutcomeSuccess
)

func (o AuthOutcome) String() string {
	switch o {
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	case OutcomeLockedOut:
		return "locked_out"
	case OutcomeExpiredPassword:
		return "expired_password"
	case OutcomeSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// AuthResult is the structured outcome of AuthService.Authenticate. It replaces
// any ambient per-request state: everything a caller needs to render or redirect
// is carried here explicitly.
type AuthResult struct {
	Outcome     AuthOutcome
	Identity    *Identity     // Set for ExpiredPassword and Success
	RetryAfter  time.Duration // Set for LockedOut: time until the window ends
	EchoedEmail string        // Submitted email, set only when RememberUsername is enabled
}

// SessionClaims are the JWT claims carried by a bound session token.
type SessionClaims struct {
	IdentityID string `json:"identity_id"`
	Email      string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
