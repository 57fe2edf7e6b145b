package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatehouse/internal/database"
	"gatehouse/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type IdentityRepository struct {
	pool *pgxpool.Pool
}

func NewIdentityRepository(db *database.DB) *IdentityRepository {
	return &IdentityRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanIdentityRow handles nullable fields and populates an Identity model from a database row
func scanIdentityRow(scanner rowScanner) (*models.Identity, error) {
	var identity models.Identity
	var lockedOutUntil, passwordExpiresAt *time.Time

	err := scanner.Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash,
		&identity.FailedLoginCount, &lockedOutUntil, &passwordExpiresAt,
		&identity.Version, &identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	identity.LockedOutUntil = lockedOutUntil
	identity.PasswordExpiresAt = passwordExpiresAt

	return &identity, nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	query := `
		SELECT id, email, password_hash, failed_login_count, locked_out_until, password_expires_at, version, created_at, updated_at
		FROM identities WHERE id = $1
	`

	return scanIdentityRow(r.pool.QueryRow(ctx, query, id))
}

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	query := `
		SELECT id, email, password_hash, failed_login_count, locked_out_until, password_expires_at, version, created_at, updated_at
		FROM identities WHERE email = $1
	`

	return scanIdentityRow(r.pool.QueryRow(ctx, query, email))
}

func (r *IdentityRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	identity.ID = uuid.New().String()

	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	query := `
		INSERT INTO identities (id, email, password_hash, failed_login_count, locked_out_until, password_expires_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)
		RETURNING id, email, password_hash, failed_login_count, locked_out_until, password_expires_at, version, created_at, updated_at
	`

	return scanIdentityRow(r.pool.QueryRow(ctx, query,
		identity.ID, identity.Email, identity.PasswordHash,
		identity.FailedLoginCount, identity.LockedOutUntil, identity.PasswordExpiresAt,
		identity.CreatedAt, identity.UpdatedAt,
	))
}

// SaveAuthState persists the mutable authentication fields (failure counter,
// lockout window, password expiry) under optimistic concurrency. The update
// only lands if nobody else saved the row since it was read; otherwise
// ErrConcurrentUpdate is returned and the caller must reload and retry.
func (r *IdentityRepository) SaveAuthState(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	query := `
		UPDATE identities
		SET failed_login_count = $1, locked_out_until = $2, password_expires_at = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6
		RETURNING id, email, password_hash, failed_login_count, locked_out_until, password_expires_at, version, created_at, updated_at
	`

	updated, err := scanIdentityRow(r.pool.QueryRow(ctx, query,
		identity.FailedLoginCount, identity.LockedOutUntil, identity.PasswordExpiresAt,
		time.Now(), identity.ID, identity.Version,
	))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Row exists but the version moved on, or the identity is gone.
			// Either way the caller's snapshot is stale.
			return nil, models.ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("failed to save auth state: %w", err)
	}

	return updated, nil
}

// UpdatePassword replaces the credential and clears all derived auth state:
// expiry, failure counter and any active lockout.
func (r *IdentityRepository) UpdatePassword(ctx context.Context, id, passwordHash string) (*models.Identity, error) {
	query := `
		UPDATE identities
		SET password_hash = $1, password_expires_at = NULL, failed_login_count = 0, locked_out_until = NULL, version = version + 1, updated_at = $2
		WHERE id = $3
		RETURNING id, email, password_hash, failed_login_count, locked_out_until, password_expires_at, version, created_at, updated_at
	`

	identity, err := scanIdentityRow(r.pool.QueryRow(ctx, query, passwordHash, time.Now(), id))
	if err != nil {
		return nil, err
	}

	return identity, nil
}
