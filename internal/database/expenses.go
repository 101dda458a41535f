package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/models"
)

// CreateExpense inserts e and returns its new id. A zero CreatedAt is
// replaced with the current time.
func (db *DB) CreateExpense(ctx context.Context, e models.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO expenses (amount_cents, description, category, created_at)
		VALUES (?, ?, ?, ?)`,
		e.Amount.Cents, e.Description, string(e.Category), toMillis(e.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	return res.LastInsertId()
}

// UpdateExpense overwrites amount, description and category of the
// expense with e.ID. The creation time is never changed.
func (db *DB) UpdateExpense(ctx context.Context, e models.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE expenses SET amount_cents = ?, description = ?, category = ?
		WHERE id = ?`,
		e.Amount.Cents, e.Description, string(e.Category), e.ID)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return expectOneRow(res, e.ID)
}

func (db *DB) DeleteExpense(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

func (db *DB) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, amount_cents, description, category, created_at
		FROM expenses WHERE id = ?`, id)

	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExpenses returns every expense, most recent first.
func (db *DB) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, amount_cents, description, category, created_at
		FROM expenses
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TotalAmount sums every recorded amount. An empty table yields zero.
func (db *DB) TotalAmount(ctx context.Context) (models.Money, error) {
	var cents int64
	err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM expenses`).Scan(&cents)
	if err != nil {
		return models.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return models.Money{Cents: cents}, nil
}

// CategoryTotals returns the sum per category in the fixed category order.
// Categories without expenses are omitted.
func (db *DB) CategoryTotals(ctx context.Context) ([]models.CategoryTotal, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents) FROM expenses GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	defer rows.Close()

	sums := make(map[models.Category]int64)
	for rows.Next() {
		var (
			cat   string
			cents int64
		)
		if err := rows.Scan(&cat, &cents); err != nil {
			return nil, err
		}
		sums[models.Category(cat)] = cents
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []models.CategoryTotal
	for _, c := range models.Categories {
		if cents, ok := sums[c]; ok {
			out = append(out, models.CategoryTotal{Category: c, Total: models.Money{Cents: cents}})
			delete(sums, c)
		}
	}
	// Rows written under a category that is no longer known still count.
	for c, cents := range sums {
		out = append(out, models.CategoryTotal{Category: c, Total: models.Money{Cents: cents}})
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (models.Expense, error) {
	var (
		e        models.Expense
		category string
		created  int64
	)
	if err := s.Scan(&e.ID, &e.Amount.Cents, &e.Description, &category, &created); err != nil {
		return models.Expense{}, err
	}
	e.Category = models.Category(category)
	e.CreatedAt = fromMillis(created)
	return e, nil
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	return nil
}
