package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

const monthColumns = `id, month, year, notes, total_income, total_expenses, recurring_expenses, version, created_at, updated_at`

func scanMonth(row rowScanner) (Month, error) {
	var m Month
	err := row.Scan(
		&m.ID, &m.Month, &m.Year, &m.Notes,
		&m.TotalIncome, &m.TotalExpenses, &m.RecurringExpenses,
		&m.Version, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

func collectMonths(rows *sql.Rows, err error) ([]Month, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Month
	for rows.Next() {
		m, err := scanMonth(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const createMonth = `
INSERT INTO months (month, year, notes, total_income, total_expenses, recurring_expenses, version, created_at, updated_at)
VALUES (?, ?, ?, '0', '0', '0', 1, ?, ?)
RETURNING ` + monthColumns

type CreateMonthParams struct {
	Month     int64
	Year      int64
	Notes     sql.NullString
	CreatedAt string
}

func (q *Queries) CreateMonth(ctx context.Context, arg CreateMonthParams) (Month, error) {
	row := q.db.QueryRowContext(ctx, createMonth, arg.Month, arg.Year, arg.Notes, arg.CreatedAt, arg.CreatedAt)
	return scanMonth(row)
}

const getMonth = `SELECT ` + monthColumns + ` FROM months WHERE id = ?`

func (q *Queries) GetMonth(ctx context.Context, id int64) (Month, error) {
	return scanMonth(q.db.QueryRowContext(ctx, getMonth, id))
}

const getMonthByDate = `SELECT ` + monthColumns + ` FROM months WHERE month = ? AND year = ?`

func (q *Queries) GetMonthByDate(ctx context.Context, month, year int64) (Month, error) {
	return scanMonth(q.db.QueryRowContext(ctx, getMonthByDate, month, year))
}

const getLatestMonth = `SELECT ` + monthColumns + ` FROM months ORDER BY year DESC, month DESC LIMIT 1`

func (q *Queries) GetLatestMonth(ctx context.Context) (Month, error) {
	return scanMonth(q.db.QueryRowContext(ctx, getLatestMonth))
}

const listMonths = `SELECT ` + monthColumns + ` FROM months ORDER BY year DESC, month DESC`

func (q *Queries) ListMonths(ctx context.Context) ([]Month, error) {
	return collectMonths(q.db.QueryContext(ctx, listMonths))
}

const listMonthIDs = `SELECT id FROM months ORDER BY id`

func (q *Queries) ListMonthIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listMonthIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const monthExists = `SELECT EXISTS (SELECT 1 FROM months WHERE month = ? AND year = ?)`

func (q *Queries) MonthExists(ctx context.Context, month, year int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, monthExists, month, year).Scan(&exists)
	return exists, err
}

// The version predicate is skipped when the expected version is 0.
const updateMonth = `
UPDATE months SET
    notes              = CASE WHEN ? THEN ? ELSE notes END,
    total_income       = CASE WHEN ? THEN ? ELSE total_income END,
    total_expenses     = CASE WHEN ? THEN ? ELSE total_expenses END,
    recurring_expenses = CASE WHEN ? THEN ? ELSE recurring_expenses END,
    version            = version + 1,
    updated_at         = ?
WHERE id = ? AND (? = 0 OR version = ?)`

type UpdateMonthParams struct {
	ID                int64
	SetNotes          bool
	Notes             sql.NullString
	SetTotals         bool
	TotalIncome       decimal.Decimal
	TotalExpenses     decimal.Decimal
	RecurringExpenses decimal.Decimal
	UpdatedAt         string
	ExpectedVersion   int64
}

// UpdateMonth returns the number of rows changed; 0 means missing or version mismatch.
func (q *Queries) UpdateMonth(ctx context.Context, arg UpdateMonthParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateMonth,
		arg.SetNotes, arg.Notes,
		arg.SetTotals, arg.TotalIncome,
		arg.SetTotals, arg.TotalExpenses,
		arg.SetTotals, arg.RecurringExpenses,
		arg.UpdatedAt,
		arg.ID, arg.ExpectedVersion, arg.ExpectedVersion,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setRecurringExpenses = `
UPDATE months SET recurring_expenses = ?, version = version + 1, updated_at = ? WHERE id = ?`

func (q *Queries) SetRecurringExpenses(ctx context.Context, id int64, amount decimal.Decimal, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, setRecurringExpenses, amount, updatedAt, id)
	return err
}

const deleteMonth = `DELETE FROM months WHERE id = ?`

func (q *Queries) DeleteMonth(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteMonth, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
