package integration

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"gatehouse/internal/config"
	"gatehouse/internal/models"
	"gatehouse/internal/services"
	pkglogger "gatehouse/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopMailer struct{}

func (noopMailer) SendPasswordResetEmail(ctx context.Context, email, identityID, token string, expiresAt time.Time) error {
	return nil
}

func TestAuthFlows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer testDB.Teardown(ctx)

	identityRepo, attemptRepo, tokenRepo := InitializeRepositories(testDB.DB)

	logger := slog.Default()
	lockoutCfg := config.LockoutConfig{
		MaxFailedAttempts:     3,
		LockoutDuration:       15 * time.Minute,
		LoginRecordingEnabled: true,
	}
	authService := services.NewAuthService(
		identityRepo,
		attemptRepo,
		services.NewLockoutPolicy(),
		services.StaticConfig{Lockout: lockoutCfg},
		services.SystemClock(),
		logger,
		pkglogger.NewAuditLogger(logger),
	)
	resetService := services.NewPasswordResetService(
		tokenRepo,
		identityRepo,
		noopMailer{},
		services.SystemClock(),
		logger,
		time.Hour,
	)

	t.Run("successful login records attempt", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		email, password := TestCredentials("login")
		identity, err := SeedIdentity(ctx, testDB.Pool, email, password)
		require.NoError(t, err)

		result, err := authService.Authenticate(ctx, email, password)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeSuccess, result.Outcome)

		attempts, err := attemptRepo.ListByIdentity(ctx, identity.ID, 10)
		require.NoError(t, err)
		require.Len(t, attempts, 1)
		assert.True(t, attempts[0].Success)
	})

	t.Run("repeated failures lock the identity", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		email, password := TestCredentials("lockout")
		identity, err := SeedIdentity(ctx, testDB.Pool, email, password)
		require.NoError(t, err)

		for i := 0; i < lockoutCfg.MaxFailedAttempts; i++ {
			result, err := authService.Authenticate(ctx, email, "WrongPassword1")
			require.NoError(t, err)
			assert.Equal(t, models.OutcomeInvalidCredentials, result.Outcome)
		}

		// Correct password is now rejected without touching the ledger
		result, err := authService.Authenticate(ctx, email, password)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeLockedOut, result.Outcome)
		assert.Positive(t, result.RetryAfter)

		attempts, err := attemptRepo.ListByIdentity(ctx, identity.ID, 10)
		require.NoError(t, err)
		assert.Len(t, attempts, lockoutCfg.MaxFailedAttempts)

		stored, err := identityRepo.GetByID(ctx, identity.ID)
		require.NoError(t, err)
		assert.Equal(t, lockoutCfg.MaxFailedAttempts, stored.FailedLoginCount)
		assert.NotNil(t, stored.LockedOutUntil)
	})

	t.Run("expired password forces change then clean login", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		email, password := TestCredentials("expiry")
		identity, err := SeedIdentity(ctx, testDB.Pool, email, password)
		require.NoError(t, err)
		require.NoError(t, ExpirePassword(ctx, testDB.Pool, identity.ID))

		result, err := authService.Authenticate(ctx, email, password)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeExpiredPassword, result.Outcome)

		_, err = authService.ChangePassword(ctx, identity.ID, "ReplacementPass9")
		require.NoError(t, err)

		result, err = authService.Authenticate(ctx, email, "ReplacementPass9")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	})

	t.Run("reset token round trip", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		email, password := TestCredentials("reset")
		identity, err := SeedIdentity(ctx, testDB.Pool, email, password)
		require.NoError(t, err)

		require.NoError(t, resetService.Issue(ctx, email))

		stored, err := tokenRepo.GetByIdentityID(ctx, identity.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, stored.TokenHash)

		// Only the hash is stored; a guessed value never redeems
		_, err = resetService.Redeem(ctx, identity.ID, "guessed-token")
		assert.ErrorIs(t, err, models.ErrTokenMismatch)

		require.NoError(t, resetService.Consume(ctx, identity.ID))

		_, err = tokenRepo.GetByIdentityID(ctx, identity.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("unknown email leaves orphan ledger row", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		result, err := authService.Authenticate(ctx, "ghost@example.com", "whatever")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeInvalidCredentials, result.Outcome)

		count, err := attemptRepo.CountByEmail(ctx, "ghost@example.com", true)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
