package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/budgetd-io/budgetd/internal/models"
)

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	From       time.Time
	To         time.Time
	AccountID  string
	CategoryID string
	Limit      int
}

const defaultTxLimit = 50
const maxTxLimit = 200

// CreateTransaction inserts a ledger entry. The account and category must
// exist and be owned by the same user; callers enforce that before writing.
func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	t.ID = newID()
	t.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, s.q(
		"INSERT INTO transactions (id, user_id, account_id, category_id, amount_cents, note, occurred_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"),
		t.ID, t.UserID, t.AccountID, t.CategoryID, t.AmountCents, t.Note, t.OccurredAt, t.CreatedAt,
	)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return t, nil
}

func scanTransaction(scanner interface {
	Scan(dest ...any) error
}) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := scanner.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &t.AmountCents, &t.Note, &t.OccurredAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTransaction retrieves one transaction scoped by ownership
func (s *Store) GetTransaction(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	return scanTransaction(s.db.QueryRowContext(ctx, s.q(
		"SELECT id, user_id, account_id, category_id, amount_cents, note, occurred_at, created_at FROM transactions WHERE id = ? AND user_id = ?"),
		transactionID, userID))
}

// ListTransactions returns the user's transactions matching the filter,
// newest first, capped at 200 rows.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]*models.Transaction, error) {
	query := "SELECT id, user_id, account_id, category_id, amount_cents, note, occurred_at, created_at FROM transactions WHERE user_id = ?"
	args := []any{userID}

	if !filter.From.IsZero() {
		query += " AND occurred_at >= ?"
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		query += " AND occurred_at <= ?"
		args = append(args, filter.To)
	}
	if filter.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, filter.AccountID)
	}
	if filter.CategoryID != "" {
		query += " AND category_id = ?"
		args = append(args, filter.CategoryID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTxLimit
	}
	if limit > maxTxLimit {
		limit = maxTxLimit
	}
	query += " ORDER BY occurred_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []*models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// UpdateTransaction replaces the mutable fields of an owned transaction
func (s *Store) UpdateTransaction(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	result, err := s.db.ExecContext(ctx, s.q(
		"UPDATE transactions SET account_id = ?, category_id = ?, amount_cents = ?, note = ?, occurred_at = ? WHERE id = ? AND user_id = ?"),
		t.AccountID, t.CategoryID, t.AmountCents, t.Note, t.OccurredAt, t.ID, t.UserID,
	)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, t.UserID, t.ID)
}

// DeleteTransaction removes an owned transaction
func (s *Store) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	result, err := s.db.ExecContext(ctx, s.q(
		"DELETE FROM transactions WHERE id = ? AND user_id = ?"), transactionID, userID)
	if err != nil {
		return err
	}
	return requireRow(result)
}
