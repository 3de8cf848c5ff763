package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/budgetd-io/budgetd/internal/models"
)

// MonthBounds returns the inclusive UTC boundaries of a calendar month:
// the first instant of day 1 and 23:59:59.999 of the last day. Month 12
// normalizes through time.Date into January of the next year.
func MonthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)
	return start, end
}

// GetBudgetMonth looks up the month row for (user, year, month)
func (s *Store) GetBudgetMonth(ctx context.Context, userID string, year, month int) (*models.BudgetMonth, error) {
	bm := &models.BudgetMonth{}
	err := s.db.QueryRowContext(ctx, s.q(
		"SELECT id, user_id, year, month, created_at FROM budget_months WHERE user_id = ? AND year = ? AND month = ?"),
		userID, year, month,
	).Scan(&bm.ID, &bm.UserID, &bm.Year, &bm.Month, &bm.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return bm, nil
}

// findOrCreateBudgetMonth returns the month row, creating it on first use.
// The find and the insert are two steps: a concurrent first write for the
// same month loses the insert to the unique constraint and re-fetches.
func (s *Store) findOrCreateBudgetMonth(ctx context.Context, userID string, year, month int) (*models.BudgetMonth, error) {
	bm, err := s.GetBudgetMonth(ctx, userID, year, month)
	if err == nil {
		return bm, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	bm = &models.BudgetMonth{
		ID:        newID(),
		UserID:    userID,
		Year:      year,
		Month:     month,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, s.q(
		"INSERT INTO budget_months (id, user_id, year, month, created_at) VALUES (?, ?, ?, ?, ?)"),
		bm.ID, bm.UserID, bm.Year, bm.Month, bm.CreatedAt,
	)
	if err == nil {
		return bm, nil
	}
	if errors.Is(mapWriteErr(err), ErrDuplicate) {
		// Created by a concurrent request between the find and the insert.
		return s.GetBudgetMonth(ctx, userID, year, month)
	}
	return nil, err
}

// MonthActuals sums the user's transaction amounts for the month, grouped
// by category, clamping each negative amount to 0 before summing. Refunds
// never reduce a category's actual spend.
func (s *Store) MonthActuals(ctx context.Context, userID string, year, month int) (map[string]int64, error) {
	start, end := MonthBounds(year, month)

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT category_id, SUM(CASE WHEN amount_cents < 0 THEN 0 ELSE amount_cents END)
		FROM transactions
		WHERE user_id = ? AND occurred_at >= ? AND occurred_at <= ?
		GROUP BY category_id`),
		userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actuals := make(map[string]int64)
	for rows.Next() {
		var categoryID string
		var cents int64
		if err := rows.Scan(&categoryID, &cents); err != nil {
			return nil, err
		}
		actuals[categoryID] = cents
	}
	return actuals, rows.Err()
}

func (s *Store) listBudgetItems(ctx context.Context, budgetMonthID string) ([]*models.BudgetItem, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		"SELECT id, budget_month_id, category_id, planned_cents FROM budget_items WHERE budget_month_id = ?"),
		budgetMonthID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.BudgetItem{}
	for rows.Next() {
		item := &models.BudgetItem{}
		if err := rows.Scan(&item.ID, &item.BudgetMonthID, &item.CategoryID, &item.PlannedCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) getBudgetItem(ctx context.Context, budgetMonthID, categoryID string) (*models.BudgetItem, error) {
	item := &models.BudgetItem{}
	err := s.db.QueryRowContext(ctx, s.q(
		"SELECT id, budget_month_id, category_id, planned_cents FROM budget_items WHERE budget_month_id = ? AND category_id = ?"),
		budgetMonthID, categoryID,
	).Scan(&item.ID, &item.BudgetMonthID, &item.CategoryID, &item.PlannedCents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetMonthView returns every planned item for the month joined with its
// aggregated actual (0 when no matching transactions). A month that was
// never written returns an empty item list; reads do not create rows.
func (s *Store) GetMonthView(ctx context.Context, userID string, year, month int) (*models.BudgetMonthView, error) {
	bm, err := s.GetBudgetMonth(ctx, userID, year, month)
	if errors.Is(err, ErrNotFound) {
		return &models.BudgetMonthView{Year: year, Month: month, Items: []models.BudgetLine{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.expandMonth(ctx, bm)
}

func (s *Store) expandMonth(ctx context.Context, bm *models.BudgetMonth) (*models.BudgetMonthView, error) {
	actuals, err := s.MonthActuals(ctx, bm.UserID, bm.Year, bm.Month)
	if err != nil {
		return nil, err
	}

	items, err := s.listBudgetItems(ctx, bm.ID)
	if err != nil {
		return nil, err
	}

	view := &models.BudgetMonthView{
		ID:    bm.ID,
		Year:  bm.Year,
		Month: bm.Month,
		Items: make([]models.BudgetLine, 0, len(items)),
	}
	for _, item := range items {
		view.Items = append(view.Items, models.BudgetLine{
			CategoryID:   item.CategoryID,
			PlannedCents: item.PlannedCents,
			ActualCents:  actuals[item.CategoryID],
		})
	}
	return view, nil
}

// ListMonthViews expands every budget month the user has. One aggregation
// query per month; fine for the volumes in scope.
func (s *Store) ListMonthViews(ctx context.Context, userID string) ([]*models.BudgetMonthView, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		"SELECT id, user_id, year, month, created_at FROM budget_months WHERE user_id = ? ORDER BY year, month"),
		userID)
	if err != nil {
		return nil, err
	}

	months := []*models.BudgetMonth{}
	for rows.Next() {
		bm := &models.BudgetMonth{}
		if err := rows.Scan(&bm.ID, &bm.UserID, &bm.Year, &bm.Month, &bm.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		months = append(months, bm)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	views := []*models.BudgetMonthView{}
	for _, bm := range months {
		view, err := s.expandMonth(ctx, bm)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// CreateBudgetItem plans an amount for a category in a month, creating the
// month row on first use. A second item for the same (month, category) is a
// conflict, never an overwrite.
func (s *Store) CreateBudgetItem(ctx context.Context, userID string, year, month int, categoryID string, plannedCents int64) (*models.BudgetItem, error) {
	bm, err := s.findOrCreateBudgetMonth(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}

	if _, err := s.getBudgetItem(ctx, bm.ID, categoryID); err == nil {
		return nil, ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	item := &models.BudgetItem{
		ID:            newID(),
		BudgetMonthID: bm.ID,
		CategoryID:    categoryID,
		PlannedCents:  plannedCents,
	}
	_, err = s.db.ExecContext(ctx, s.q(
		"INSERT INTO budget_items (id, budget_month_id, category_id, planned_cents) VALUES (?, ?, ?, ?)"),
		item.ID, item.BudgetMonthID, item.CategoryID, item.PlannedCents,
	)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return item, nil
}

// UpdateBudgetItem changes the planned amount of an existing item
func (s *Store) UpdateBudgetItem(ctx context.Context, userID string, year, month int, categoryID string, plannedCents int64) (*models.BudgetItem, error) {
	bm, err := s.GetBudgetMonth(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}

	item, err := s.getBudgetItem(ctx, bm.ID, categoryID)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, s.q(
		"UPDATE budget_items SET planned_cents = ? WHERE id = ?"), plannedCents, item.ID)
	if err != nil {
		return nil, err
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}
	item.PlannedCents = plannedCents
	return item, nil
}

// DeleteBudgetItem removes a planned item from a month
func (s *Store) DeleteBudgetItem(ctx context.Context, userID string, year, month int, categoryID string) error {
	bm, err := s.GetBudgetMonth(ctx, userID, year, month)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, s.q(
		"DELETE FROM budget_items WHERE budget_month_id = ? AND category_id = ?"), bm.ID, categoryID)
	if err != nil {
		return err
	}
	return requireRow(result)
}
