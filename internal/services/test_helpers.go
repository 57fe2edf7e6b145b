package services

import (
	"context"
	"time"

	"gatehouse/internal/config"
	"gatehouse/internal/models"
	pkgauth "gatehouse/pkg/auth"
)

// MockIdentityRepository implements IdentityRepository for testing
type MockIdentityRepository struct {
	GetByEmailFunc     func(ctx context.Context, email string) (*models.Identity, error)
	GetByIDFunc        func(ctx context.Context, id string) (*models.Identity, error)
	CreateFunc         func(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	SaveAuthStateFunc  func(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) (*models.Identity, error)
}

func (m *MockIdentityRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockIdentityRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockIdentityRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, identity)
	}
	return nil, models.ErrInternalServer
}

func (m *MockIdentityRepository) SaveAuthState(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	if m.SaveAuthStateFunc != nil {
		return m.SaveAuthStateFunc(ctx, identity)
	}
	return identity, nil
}

func (m *MockIdentityRepository) UpdatePassword(ctx context.Context, id, passwordHash string) (*models.Identity, error) {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil, models.ErrInternalServer
}

// MockAttemptLedger implements AttemptLedger for testing and records every
// appended attempt for inspection
type MockAttemptLedger struct {
	AppendFunc func(ctx context.Context, attempt *models.LoginAttempt) error
	Appended   []*models.LoginAttempt
}

func (m *MockAttemptLedger) Append(ctx context.Context, attempt *models.LoginAttempt) error {
	m.Appended = append(m.Appended, attempt)
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, attempt)
	}
	return nil
}

// MockResetTokenRepository implements ResetTokenRepository for testing
type MockResetTokenRepository struct {
	ReplaceFunc            func(ctx context.Context, identityID, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error)
	GetByIdentityIDFunc    func(ctx context.Context, identityID string) (*models.PasswordResetToken, error)
	DeleteByIdentityIDFunc func(ctx context.Context, identityID string) error
	CleanupExpiredFunc     func(ctx context.Context) (int64, error)
}

func (m *MockResetTokenRepository) Replace(ctx context.Context, identityID, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, identityID, tokenHash, expiresAt)
	}
	return &models.PasswordResetToken{
		ID:         "token123",
		IdentityID: identityID,
		TokenHash:  tokenHash,
		ExpiresAt:  expiresAt,
	}, nil
}

func (m *MockResetTokenRepository) GetByIdentityID(ctx context.Context, identityID string) (*models.PasswordResetToken, error) {
	if m.GetByIdentityIDFunc != nil {
		return m.GetByIdentityIDFunc(ctx, identityID)
	}
	return nil, models.ErrNotFound
}

func (m *MockResetTokenRepository) DeleteByIdentityID(ctx context.Context, identityID string) error {
	if m.DeleteByIdentityIDFunc != nil {
		return m.DeleteByIdentityIDFunc(ctx, identityID)
	}
	return nil
}

func (m *MockResetTokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	if m.CleanupExpiredFunc != nil {
		return m.CleanupExpiredFunc(ctx)
	}
	return 0, nil
}

// MockMailer implements Mailer for testing
type MockMailer struct {
	SendPasswordResetEmailFunc func(ctx context.Context, email, identityID, token string, expiresAt time.Time) error
}

func (m *MockMailer) SendPasswordResetEmail(ctx context.Context, email, identityID, token string, expiresAt time.Time) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, identityID, token, expiresAt)
	}
	return nil
}

// fakeClock is a Clock fixed to a settable instant
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// NewTestIdentity creates an identity with a bcrypt hash of the given password
func NewTestIdentity(id, email, password string) *models.Identity {
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		panic(err)
	}

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.Identity{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// testLockoutConfig returns the policy settings used across the service tests
func testLockoutConfig() config.LockoutConfig {
	return config.LockoutConfig{
		MaxFailedAttempts:     5,
		LockoutDuration:       15 * time.Minute,
		LoginRecordingEnabled: true,
	}
}
