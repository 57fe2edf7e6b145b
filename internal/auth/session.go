package auth

import (
	"fmt"
	"time"

	"gatehouse/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionManager binds an authenticated identity to a signed session token.
// Binding happens only after the authenticator reports Success; logout is a
// cookie clear on the transport side, the token simply ages out.
type SessionManager struct {
	secret      string
	tokenExpiry time.Duration
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(secret string, tokenExpiry time.Duration) *SessionManager {
	return &SessionManager{
		secret:      secret,
		tokenExpiry: tokenExpiry,
	}
}

// TokenExpiry returns the configured session lifetime
func (sm *SessionManager) TokenExpiry() time.Duration {
	return sm.tokenExpiry
}

// Bind issues a session token for the identity
func (sm *SessionManager) Bind(identityID, email string) (string, error) {
	claims := &models.SessionClaims{
		IdentityID: identityID,
		Email:      email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sm.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(sm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// Validate verifies a session token and returns its claims
func (sm *SessionManager) Validate(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(sm.secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.IdentityID == "" {
		return nil, fmt.Errorf("invalid session token: missing identity")
	}

	return claims, nil
}
