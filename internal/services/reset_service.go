package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gatehouse/internal/models"
	pkglogger "gatehouse/pkg/logger"
)

// ResetTokenRepository defines the interface for reset token storage
type ResetTokenRepository interface {
	Replace(ctx context.Context, identityID, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error)
	GetByIdentityID(ctx context.Context, identityID string) (*models.PasswordResetToken, error)
	DeleteByIdentityID(ctx context.Context, identityID string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// Mailer is the email collaborator. Dispatch is fire-and-forget: the reset
// service only needs confirmation of queuing, not delivery.
type Mailer interface {
	SendPasswordResetEmail(ctx context.Context, email, identityID, token string, expiresAt time.Time) error
}

// PasswordResetService issues and validates single-use password reset tokens.
// It never mutates passwords itself; the caller redeems a token, performs the
// change through the authenticator, then calls Consume.
type PasswordResetService struct {
	tokens      ResetTokenRepository
	identities  IdentityRepository
	mailer      Mailer
	clock       Clock
	logger      *slog.Logger
	tokenExpiry time.Duration
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(
	tokens ResetTokenRepository,
	identities IdentityRepository,
	mailer Mailer,
	clock Clock,
	logger *slog.Logger,
	tokenExpiry time.Duration,
) *PasswordResetService {
	return &PasswordResetService{
		tokens:      tokens,
		identities:  identities,
		mailer:      mailer,
		clock:       clock,
		logger:      logger,
		tokenExpiry: tokenExpiry,
	}
}

// Issue generates a high-entropy token for the identity behind the email,
// stores only its SHA-256 hash, and dispatches the reset email. Issuing
// invalidates any previously issued token. Unknown emails are not an error:
// the caller sees the same result either way (anti-enumeration).
//
// The token hash is durably stored before the email is handed to the mailer,
// so "issued" is only ever signaled for a redeemable token. A mailer failure
// is logged, not surfaced.
func (s *PasswordResetService) Issue(ctx context.Context, email string) error {
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("reset requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		s.logger.Error("failed to look up identity for reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return fmt.Errorf("failed to generate token: %w", err)
	}

	plainToken := base64.URLEncoding.EncodeToString(tokenBytes)
	tokenHash := hashToken(plainToken)
	expiresAt := s.clock.Now().Add(s.tokenExpiry)

	if _, err := s.tokens.Replace(ctx, identity.ID, tokenHash, expiresAt); err != nil {
		s.logger.Error("failed to store reset token",
			slog.String("identity_id", identity.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, identity.Email, identity.ID, plainToken, expiresAt); err != nil {
		s.logger.Error("failed to send reset email",
			slog.String("identity_id", identity.ID), slog.Any("error", err))
	}

	s.logger.Info("reset token issued", slog.String("identity_id", identity.ID))
	return nil
}

// Redeem validates a presented token against the stored hash. On success the
// identity is returned and the token stays live, so the change-password form
// can be re-validated on submit; Consume clears it once the change lands.
func (s *PasswordResetService) Redeem(ctx context.Context, identityID, plainToken string) (*models.Identity, error) {
	stored, err := s.tokens.GetByIdentityID(ctx, identityID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTokenNotFound
		}
		s.logger.Error("failed to retrieve reset token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if stored.IsExpired(s.clock.Now()) {
		s.logger.Info("reset token expired", slog.String("identity_id", identityID))
		return nil, models.ErrTokenExpired
	}

	presented := hashToken(plainToken)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(stored.TokenHash)) != 1 {
		s.logger.Warn("reset token mismatch", slog.String("identity_id", identityID))
		return nil, models.ErrTokenMismatch
	}

	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTokenNotFound
		}
		s.logger.Error("failed to retrieve identity for reset", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return identity, nil
}

// Consume clears the identity's token after a confirmed password change.
// A consumed token can never be redeemed again.
func (s *PasswordResetService) Consume(ctx context.Context, identityID string) error {
	if err := s.tokens.DeleteByIdentityID(ctx, identityID); err != nil {
		s.logger.Error("failed to consume reset token",
			slog.String("identity_id", identityID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("reset token consumed", slog.String("identity_id", identityID))
	return nil
}

// hashToken computes the stored form of a plain token
func hashToken(plainToken string) string {
	hash := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(hash[:])
}
