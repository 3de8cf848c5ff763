package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/budgetd-io/budgetd/internal/models"
)

// CreateUser inserts a new user with an already-hashed password.
// Returns ErrDuplicate if the email is taken.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, name *string) (*models.User, error) {
	user := &models.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, s.q(
		"INSERT INTO users (id, email, password_hash, name, email_verified, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		user.ID, user.Email, user.PasswordHash, user.Name, false, user.CreatedAt,
	)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return user, nil
}

func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.EmailVerified, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, s.q(
		"SELECT id, email, password_hash, name, email_verified, created_at FROM users WHERE email = ?"), email))
}

// GetUserByID retrieves a user by id
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, s.q(
		"SELECT id, email, password_hash, name, email_verified, created_at FROM users WHERE id = ?"), id))
}

// UpdateUserName sets the user's display name
func (s *Store) UpdateUserName(ctx context.Context, userID string, name *string) error {
	result, err := s.db.ExecContext(ctx, s.q("UPDATE users SET name = ? WHERE id = ?"), name, userID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdateUserPassword replaces the user's password hash
func (s *Store) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, s.q("UPDATE users SET password_hash = ? WHERE id = ?"), passwordHash, userID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// MarkEmailVerified flips the user's verified flag
func (s *Store) MarkEmailVerified(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, s.q("UPDATE users SET email_verified = ? WHERE id = ?"), true, userID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// DeleteUser removes a user and every row the user owns. Children are
// deleted in dependency order inside one transaction: budget items and
// transactions reference categories and accounts with RESTRICT, so relying
// on engine cascade order is not safe.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statements := []string{
		"DELETE FROM budget_items WHERE budget_month_id IN (SELECT id FROM budget_months WHERE user_id = ?)",
		"DELETE FROM budget_months WHERE user_id = ?",
		"DELETE FROM transactions WHERE user_id = ?",
		"DELETE FROM accounts WHERE user_id = ?",
		"DELETE FROM categories WHERE user_id = ?",
		"DELETE FROM password_reset_tokens WHERE user_id = ?",
		"DELETE FROM email_verification_tokens WHERE user_id = ?",
		"DELETE FROM blacklisted_tokens WHERE user_id = ?",
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, s.q(stmt), userID); err != nil {
			return err
		}
	}

	result, err := tx.ExecContext(ctx, s.q("DELETE FROM users WHERE id = ?"), userID)
	if err != nil {
		return err
	}
	if err := requireRow(result); err != nil {
		return err
	}

	return tx.Commit()
}

// requireRow converts a zero-row write into ErrNotFound
func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
