package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gatehouse/internal/config"
	"gatehouse/internal/models"
	pkgauth "gatehouse/pkg/auth"
	pkglogger "gatehouse/pkg/logger"
)

// IdentityRepository defines the credential store operations the authenticator needs
type IdentityRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	SaveAuthState(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) (*models.Identity, error)
}

// AttemptLedger defines the append-only login attempt audit log
type AttemptLedger interface {
	Append(ctx context.Context, attempt *models.LoginAttempt) error
}

// attemptRetention is how long ledger rows are kept before the background
// pruner removes them.
const attemptRetention = 90 * 24 * time.Hour

// saveRetries bounds the reload-and-retry loop on concurrent update conflicts.
const saveRetries = 3

// AuthService handles authentication business logic
type AuthService struct {
	identities  IdentityRepository
	ledger      AttemptLedger
	policy      *LockoutPolicy
	configs     ConfigSource
	clock       Clock
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	identities IdentityRepository,
	ledger AttemptLedger,
	policy *LockoutPolicy,
	configs ConfigSource,
	clock Clock,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		identities:  identities,
		ledger:      ledger,
		policy:      policy,
		configs:     configs,
		clock:       clock,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Authenticate verifies a credential pair and returns a structured outcome.
// All authentication-domain outcomes are values on AuthResult; an error return
// means the store itself failed, never "wrong password".
//
// Exactly one ledger row is appended per call when recording is enabled, with
// one exception: attempts rejected by the locked-out pre-check append nothing,
// since the credential is never even compared.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	cfg := s.configs.LockoutConfig()
	now := s.clock.Now()

	result := &models.AuthResult{}
	if cfg.RememberUsername {
		result.EchoedEmail = email
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown emails still leave a ledger row, keyed by the raw
			// submitted value with no identity reference.
			s.logger.Info("login failed: invalid credentials")
			s.recordAttempt(ctx, nil, email, false, now, cfg)
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			result.Outcome = models.OutcomeInvalidCredentials
			return result, nil
		}
		s.logger.Error("failed to get identity by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Pre-check: a locked-out identity rejects before credential comparison,
	// and the short-circuit leaves no ledger row.
	if s.policy.IsLockedOut(identity, now) {
		retryAfter := s.policy.RetryAfter(identity, now)
		s.logger.Info("login blocked: identity locked out",
			slog.String("identity_id", identity.ID),
			slog.Duration("retry_after", retryAfter))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			IdentityID:    identity.ID,
			FailureReason: "locked_out",
			Success:       false,
		})
		result.Outcome = models.OutcomeLockedOut
		result.RetryAfter = retryAfter
		return result, nil
	}

	if err := pkgauth.ComparePassword(identity.PasswordHash, password); err != nil {
		var decision LockoutDecision
		saved, err := s.saveWithRetry(ctx, identity, func(id *models.Identity) {
			decision = s.policy.RecordFailure(id, now, cfg)
		})
		if err != nil {
			s.logger.Error("failed to record login failure",
				slog.String("identity_id", identity.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		identity = saved

		if decision.LockedOut {
			s.auditLogger.LogLockout(identity.ID, *decision.LockedOutUntil)
		}

		s.recordAttempt(ctx, &identity.ID, email, false, now, cfg)
		s.logger.Info("login failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			IdentityID:    identity.ID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		result.Outcome = models.OutcomeInvalidCredentials
		return result, nil
	}

	saved, err := s.saveWithRetry(ctx, identity, func(id *models.Identity) {
		s.policy.RecordSuccess(id, now)
	})
	if err != nil {
		s.logger.Error("failed to record login success",
			slog.String("identity_id", identity.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	identity = saved

	s.recordAttempt(ctx, &identity.ID, email, true, now, cfg)
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:  "login_success",
		IdentityID: identity.ID,
		Success:    true,
	})

	// An elapsed password expiry still authenticates the principal, but the
	// caller must route to the change-password flow before binding a session.
	if identity.PasswordExpired(now) {
		s.logger.Info("login requires password change", slog.String("identity_id", identity.ID))
		result.Outcome = models.OutcomeExpiredPassword
		result.Identity = identity
		return result, nil
	}

	s.logger.Info("identity authenticated", slog.String("identity_id", identity.ID))
	result.Outcome = models.OutcomeSuccess
	result.Identity = identity
	return result, nil
}

// saveWithRetry applies mutate to the identity and persists it, reloading and
// reapplying on a concurrent update conflict. Conflicts are bounded-retried,
// never silently dropped.
func (s *AuthService) saveWithRetry(ctx context.Context, identity *models.Identity, mutate func(*models.Identity)) (*models.Identity, error) {
	for attempt := 0; ; attempt++ {
		mutate(identity)

		saved, err := s.identities.SaveAuthState(ctx, identity)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, models.ErrConcurrentUpdate) || attempt == saveRetries-1 {
			return nil, err
		}

		s.logger.Warn("concurrent identity update, retrying with fresh state",
			slog.String("identity_id", identity.ID))

		identity, err = s.identities.GetByID(ctx, identity.ID)
		if err != nil {
			return nil, err
		}
	}
}

// recordAttempt appends to the ledger when recording is enabled. Ledger
// failures are logged but never turn an authentication outcome into an error.
func (s *AuthService) recordAttempt(ctx context.Context, identityID *string, email string, success bool, now time.Time, cfg config.LockoutConfig) {
	if !cfg.LoginRecordingEnabled {
		return
	}

	attempt := &models.LoginAttempt{
		IdentityID:  identityID,
		Email:       email,
		Success:     success,
		AttemptTime: now,
		ExpiresAt:   now.Add(attemptRetention),
	}

	if err := s.ledger.Append(ctx, attempt); err != nil {
		s.logger.Error("failed to append login attempt", slog.Any("error", err))
	}
}

// Register creates a new identity
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err := s.identities.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: identity already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if identity exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	identity := &models.Identity{
		Email:        email,
		PasswordHash: hashedPassword,
	}

	created, err := s.identities.Create(ctx, identity)
	if err != nil {
		s.logger.Error("failed to create identity", slog.Any("error", err))
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, models.ErrInternalServer
	}

	s.logger.Info("identity registered", slog.String("identity_id", created.ID))
	s.auditLogger.LogAccountAction("identity_registered", created.ID, nil)

	return created, nil
}

// ChangePassword replaces the identity's credential. The store clears
// password expiry, the failure counter and any lockout window alongside the
// hash, so a completed change always leaves a clean slate.
func (s *AuthService) ChangePassword(ctx context.Context, identityID, newPassword string) (*models.Identity, error) {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	identity, err := s.identities.UpdatePassword(ctx, identityID, hashedPassword)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update password",
			slog.String("identity_id", identityID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.String("identity_id", identity.ID))
	s.auditLogger.LogPasswordChange(identity.ID, true)

	return identity, nil
}
