package repositories

import (
	"context"
	"errors"
	"time"

	"gatehouse/internal/database"
	"gatehouse/internal/models"

	"github.com/jackc/pgx/v5"
)

// LoginAttemptRepository handles database operations for the attempt ledger.
// Rows are append-only: nothing in the system updates or deletes an attempt
// except the retention pruner.
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// Append records a login attempt in the ledger
func (r *LoginAttemptRepository) Append(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (identity_id, email, success, attempt_time, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.IdentityID,
		attempt.Email,
		attempt.Success,
		attempt.AttemptTime,
		attempt.ExpiresAt,
	)

	return err
}

// CountByEmail returns the number of attempts recorded for an email, optionally
// restricted to failures only
func (r *LoginAttemptRepository) CountByEmail(ctx context.Context, email string, failuresOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM login_attempts WHERE email = $1`
	if failuresOnly {
		query += ` AND success = false`
	}

	var count int
	err := r.db.Pool.QueryRow(ctx, query, email).Scan(&count)
	return count, err
}

// LastAttemptTime returns the timestamp of the most recent attempt for an email
func (r *LoginAttemptRepository) LastAttemptTime(ctx context.Context, email string) (*time.Time, error) {
	query := `
		SELECT attempt_time FROM login_attempts
		WHERE email = $1
		ORDER BY attempt_time DESC
		LIMIT 1
	`

	var attemptTime time.Time
	err := r.db.Pool.QueryRow(ctx, query, email).Scan(&attemptTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &attemptTime, nil
}

// ListByIdentity returns the recorded attempts for an identity, newest first
func (r *LoginAttemptRepository) ListByIdentity(ctx context.Context, identityID string, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, identity_id, email, success, attempt_time, expires_at
		FROM login_attempts
		WHERE identity_id = $1
		ORDER BY attempt_time DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, identityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]*models.LoginAttempt, 0)
	for rows.Next() {
		var attempt models.LoginAttempt
		var identityRef *string
		if err := rows.Scan(&attempt.ID, &identityRef, &attempt.Email, &attempt.Success, &attempt.AttemptTime, &attempt.ExpiresAt); err != nil {
			return nil, err
		}
		attempt.IdentityID = identityRef
		attempts = append(attempts, &attempt)
	}

	return attempts, rows.Err()
}

// DeleteExpired removes attempts past their retention horizon
func (r *LoginAttemptRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM login_attempts WHERE expires_at <= CURRENT_TIMESTAMP`
	result, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
