package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/budgetd-io/budgetd/internal/models"
)

// CreateAccount inserts a new financial account for the user
func (s *Store) CreateAccount(ctx context.Context, userID, name string, accountType models.AccountType, currency string) (*models.Account, error) {
	account := &models.Account{
		ID:        newID(),
		UserID:    userID,
		Name:      name,
		Type:      accountType,
		Currency:  currency,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, s.q(
		"INSERT INTO accounts (id, user_id, name, type, currency, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		account.ID, account.UserID, account.Name, account.Type, account.Currency, account.CreatedAt,
	)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return account, nil
}

// GetAccount retrieves one account scoped by ownership, with its derived balance
func (s *Store) GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error) {
	account := &models.Account{}
	err := s.db.QueryRowContext(ctx, s.q(
		"SELECT id, user_id, name, type, currency, created_at FROM accounts WHERE id = ? AND user_id = ?"),
		accountID, userID,
	).Scan(&account.ID, &account.UserID, &account.Name, &account.Type, &account.Currency, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	balance, err := s.AccountBalance(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.BalanceCents = balance
	return account, nil
}

// ListAccounts returns all of the user's accounts with derived balances.
// Accounts without transactions carry a balance of 0, not an absent entry.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		"SELECT id, user_id, name, type, currency, created_at FROM accounts WHERE user_id = ? ORDER BY created_at"),
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []*models.Account{}
	for rows.Next() {
		account := &models.Account{}
		if err := rows.Scan(&account.ID, &account.UserID, &account.Name, &account.Type, &account.Currency, &account.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	balances, err := s.AllBalances(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		account.BalanceCents = balances[account.ID]
	}
	return accounts, nil
}

// UpdateAccount modifies name, type and currency of an owned account
func (s *Store) UpdateAccount(ctx context.Context, userID, accountID, name string, accountType models.AccountType, currency string) (*models.Account, error) {
	result, err := s.db.ExecContext(ctx, s.q(
		"UPDATE accounts SET name = ?, type = ?, currency = ? WHERE id = ? AND user_id = ?"),
		name, accountType, currency, accountID, userID,
	)
	if err != nil {
		return nil, err
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}
	return s.GetAccount(ctx, userID, accountID)
}

// DeleteAccount removes an owned account. Accounts still referenced by
// transactions cannot be deleted (ErrRestricted).
func (s *Store) DeleteAccount(ctx context.Context, userID, accountID string) error {
	var count int64
	err := s.db.QueryRowContext(ctx, s.q(
		"SELECT COUNT(*) FROM transactions WHERE account_id = ?"), accountID).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrRestricted
	}

	result, err := s.db.ExecContext(ctx, s.q(
		"DELETE FROM accounts WHERE id = ? AND user_id = ?"), accountID, userID)
	if err != nil {
		return mapWriteErr(err)
	}
	return requireRow(result)
}

// AccountBalance sums all transaction amounts on one account, in cents.
// Read-only; the result reflects the committed rows visible at query time.
func (s *Store) AccountBalance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, s.q(
		"SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE account_id = ?"),
		accountID).Scan(&balance)
	return balance, err
}

// AllBalances computes every account balance for the user in one grouped
// pass. Accounts with no transactions map to 0.
func (s *Store) AllBalances(ctx context.Context, userID string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT a.id, COALESCE(SUM(t.amount_cents), 0)
		FROM accounts a
		LEFT JOIN transactions t ON t.account_id = a.id
		WHERE a.user_id = ?
		GROUP BY a.id`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[string]int64)
	for rows.Next() {
		var accountID string
		var cents int64
		if err := rows.Scan(&accountID, &cents); err != nil {
			return nil, err
		}
		balances[accountID] = cents
	}
	return balances, rows.Err()
}
