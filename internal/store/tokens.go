package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/budgetd-io/budgetd/internal/models"
)

// resetTable and verificationTable are the two single-use token tables.
// They share a shape, so the accessors below take the table name.
const (
	resetTable        = "password_reset_tokens"
	verificationTable = "email_verification_tokens"
)

func (s *Store) createSecurityToken(ctx context.Context, table, userID, token string, expiresAt time.Time) (*models.SecurityToken, error) {
	row := &models.SecurityToken{
		ID:        newID(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, s.q(fmt.Sprintf(
		"INSERT INTO %s (id, user_id, token, expires_at, used, created_at) VALUES (?, ?, ?, ?, ?, ?)", table)),
		row.ID, row.UserID, row.Token, row.ExpiresAt, false, row.CreatedAt,
	)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return row, nil
}

func (s *Store) getSecurityToken(ctx context.Context, table, token string) (*models.SecurityToken, error) {
	row := &models.SecurityToken{}
	err := s.db.QueryRowContext(ctx, s.q(fmt.Sprintf(
		"SELECT id, user_id, token, expires_at, used, created_at FROM %s WHERE token = ?", table)),
		token,
	).Scan(&row.ID, &row.UserID, &row.Token, &row.ExpiresAt, &row.Used, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// consumeSecurityToken marks a token used in one conditional update. Two
// requests racing the same token cannot both win: the second sees zero
// affected rows and gets ErrNotFound.
func (s *Store) consumeSecurityToken(ctx context.Context, table, id string) error {
	result, err := s.db.ExecContext(ctx, s.q(fmt.Sprintf(
		"UPDATE %s SET used = ? WHERE id = ? AND used = ?", table)),
		true, id, false,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// CreatePasswordResetToken stores a fresh reset token for the user
func (s *Store) CreatePasswordResetToken(ctx context.Context, userID, token string, expiresAt time.Time) (*models.SecurityToken, error) {
	return s.createSecurityToken(ctx, resetTable, userID, token, expiresAt)
}

// GetPasswordResetToken looks up a reset token by its opaque value
func (s *Store) GetPasswordResetToken(ctx context.Context, token string) (*models.SecurityToken, error) {
	return s.getSecurityToken(ctx, resetTable, token)
}

// ConsumePasswordResetToken atomically marks a reset token used
func (s *Store) ConsumePasswordResetToken(ctx context.Context, id string) error {
	return s.consumeSecurityToken(ctx, resetTable, id)
}

// CreateEmailVerificationToken stores a fresh verification token for the user
func (s *Store) CreateEmailVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) (*models.SecurityToken, error) {
	return s.createSecurityToken(ctx, verificationTable, userID, token, expiresAt)
}

// GetEmailVerificationToken looks up a verification token by its opaque value
func (s *Store) GetEmailVerificationToken(ctx context.Context, token string) (*models.SecurityToken, error) {
	return s.getSecurityToken(ctx, verificationTable, token)
}

// ConsumeEmailVerificationToken atomically marks a verification token used
func (s *Store) ConsumeEmailVerificationToken(ctx context.Context, id string) error {
	return s.consumeSecurityToken(ctx, verificationTable, id)
}

// BlacklistToken records a revoked access token under its raw string. The
// expiry mirrors the token's own exp claim, so the row becomes garbage
// exactly when the token would have died naturally.
func (s *Store) BlacklistToken(ctx context.Context, token, userID string, reason models.BlacklistReason, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(
		"INSERT INTO blacklisted_tokens (id, token, user_id, reason, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		newID(), token, userID, reason, expiresAt, time.Now().UTC(),
	)
	if errors.Is(mapWriteErr(err), ErrDuplicate) {
		// Revoking an already-revoked token is a no-op.
		return nil
	}
	return err
}

// IsTokenBlacklisted checks whether a raw access token has been revoked.
// This runs on every authenticated request.
func (s *Store) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, s.q(
		"SELECT COUNT(*) FROM blacklisted_tokens WHERE token = ?"), token).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CleanupExpiredTokens deletes blacklist rows and single-use tokens whose
// expiry has passed. Runs out-of-band, never on the request path.
func (s *Store) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	var total int64

	for _, table := range []string{"blacklisted_tokens", resetTable, verificationTable} {
		result, err := s.db.ExecContext(ctx, s.q(fmt.Sprintf(
			"DELETE FROM %s WHERE expires_at < ?", table)), now)
		if err != nil {
			return total, err
		}
		if rows, err := result.RowsAffected(); err == nil {
			total += rows
		}
	}
	return total, nil
}
