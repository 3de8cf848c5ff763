package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/budgetd-io/budgetd/internal/models"
)

// SentinelCategoryID is the category reference left on transactions whose
// category has been deleted.
const SentinelCategoryID = ""

// CreateCategory inserts a category. Returns ErrDuplicate when the user
// already has a category with the same name and kind.
func (s *Store) CreateCategory(ctx context.Context, userID, name string, kind models.CategoryKind, icon, color *string) (*models.Category, error) {
	now := time.Now().UTC()
	category := &models.Category{
		ID:        newID(),
		UserID:    userID,
		Name:      name,
		Kind:      kind,
		Icon:      icon,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, s.q(
		"INSERT INTO categories (id, user_id, name, kind, icon, color, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"),
		category.ID, category.UserID, category.Name, category.Kind, category.Icon, category.Color, category.CreatedAt, category.UpdatedAt,
	)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return category, nil
}

func scanCategory(scanner interface {
	Scan(dest ...any) error
}) (*models.Category, error) {
	category := &models.Category{}
	err := scanner.Scan(&category.ID, &category.UserID, &category.Name, &category.Kind,
		&category.Icon, &category.Color, &category.CreatedAt, &category.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategory retrieves one category scoped by ownership
func (s *Store) GetCategory(ctx context.Context, userID, categoryID string) (*models.Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx, s.q(
		"SELECT id, user_id, name, kind, icon, color, created_at, updated_at FROM categories WHERE id = ? AND user_id = ?"),
		categoryID, userID))
}

// ListCategories returns the user's categories, optionally filtered by kind
func (s *Store) ListCategories(ctx context.Context, userID string, kind models.CategoryKind) ([]*models.Category, error) {
	query := "SELECT id, user_id, name, kind, icon, color, created_at, updated_at FROM categories WHERE user_id = ?"
	args := []any{userID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*models.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// UpdateCategory modifies an owned category and bumps updated_at
func (s *Store) UpdateCategory(ctx context.Context, userID, categoryID, name string, kind models.CategoryKind, icon, color *string) (*models.Category, error) {
	result, err := s.db.ExecContext(ctx, s.q(
		"UPDATE categories SET name = ?, kind = ?, icon = ?, color = ?, updated_at = ? WHERE id = ? AND user_id = ?"),
		name, kind, icon, color, time.Now().UTC(), categoryID, userID,
	)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, userID, categoryID)
}

// DeleteCategory removes an owned category. Transactions that referenced it
// are repointed at the sentinel category id; budget items keep it alive
// (ErrRestricted).
func (s *Store) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var planned int64
	err = tx.QueryRowContext(ctx, s.q(
		"SELECT COUNT(*) FROM budget_items WHERE category_id = ?"), categoryID).Scan(&planned)
	if err != nil {
		return err
	}
	if planned > 0 {
		return ErrRestricted
	}

	_, err = tx.ExecContext(ctx, s.q(
		"UPDATE transactions SET category_id = ? WHERE category_id = ? AND user_id = ?"),
		SentinelCategoryID, categoryID, userID)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, s.q(
		"DELETE FROM categories WHERE id = ? AND user_id = ?"), categoryID, userID)
	if err != nil {
		return mapWriteErr(err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	return tx.Commit()
}
