package repositories

import (
	"context"
	"fmt"
	"time"

	"gatehouse/internal/database"
	"gatehouse/internal/models"

	"github.com/jackc/pgx/v5"
)

// ResetTokenRepository handles password reset token data access
type ResetTokenRepository struct {
	db *database.DB
}

// NewResetTokenRepository creates a new ResetTokenRepository
func NewResetTokenRepository(db *database.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func scanResetTokenRow(row rowScanner) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken

	err := row.Scan(
		&token.ID, &token.IdentityID, &token.TokenHash,
		&token.ExpiresAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &token, nil
}

// Replace stores a new token hash for an identity, removing any previously
// issued token in the same transaction so at most one token is ever live.
func (r *ResetTokenRepository) Replace(ctx context.Context, identityID, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	var token *models.PasswordResetToken

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE identity_id = $1`, identityID); err != nil {
			return fmt.Errorf("failed to invalidate prior token: %w", err)
		}

		query := `
			INSERT INTO password_reset_tokens (identity_id, token_hash, expires_at)
			VALUES ($1, $2, $3)
			RETURNING id, identity_id, token_hash, expires_at, created_at
		`

		created, err := scanResetTokenRow(tx.QueryRow(ctx, query, identityID, tokenHash, expiresAt))
		if err != nil {
			return fmt.Errorf("failed to create reset token: %w", err)
		}

		token = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return token, nil
}

// GetByIdentityID retrieves the live token for an identity
func (r *ResetTokenRepository) GetByIdentityID(ctx context.Context, identityID string) (*models.PasswordResetToken, error) {
	query := `
		SELECT id, identity_id, token_hash, expires_at, created_at
		FROM password_reset_tokens
		WHERE identity_id = $1
	`

	return scanResetTokenRow(r.db.Pool.QueryRow(ctx, query, identityID))
}

// DeleteByIdentityID consumes the identity's token
func (r *ResetTokenRepository) DeleteByIdentityID(ctx context.Context, identityID string) error {
	query := `DELETE FROM password_reset_tokens WHERE identity_id = $1`

	_, err := r.db.Pool.Exec(ctx, query, identityID)
	if err != nil {
		return fmt.Errorf("failed to delete reset token: %w", err)
	}

	return nil
}

// CleanupExpired deletes tokens whose validity window has long passed
func (r *ResetTokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM password_reset_tokens
		WHERE expires_at < NOW() - INTERVAL '1 day'
	`

	result, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired reset tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
