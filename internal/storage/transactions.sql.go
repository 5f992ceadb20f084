package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

const transactionColumns = `id, owner_id, month_id, category_id, template_id, recurring, name, amount_cad, amount_usd, type, date, notes, created_at`

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.MonthID, &t.CategoryID, &t.TemplateID, &t.Recurring,
		&t.Name, &t.AmountCad, &t.AmountUsd, &t.Type, &t.Date, &t.Notes, &t.CreatedAt,
	)
	return t, err
}

func collectTransactions(rows *sql.Rows, err error) ([]Transaction, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

type CreateTransactionParams struct {
	OwnerID    string
	MonthID    int64
	CategoryID int64
	TemplateID sql.NullInt64
	Recurring  int64
	Name       string
	AmountCad  decimal.Decimal
	AmountUsd  decimal.NullDecimal
	Type       string
	Date       string
	Notes      sql.NullString
	CreatedAt  string
}

const createTransaction = `
INSERT INTO transactions
    (owner_id, month_id, category_id, template_id, recurring, name, amount_cad, amount_usd, type, date, notes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.OwnerID, arg.MonthID, arg.CategoryID, arg.TemplateID, arg.Recurring,
		arg.Name, arg.AmountCad, arg.AmountUsd, arg.Type, arg.Date, arg.Notes, arg.CreatedAt,
	)
	return scanTransaction(row)
}

const listTransactionsByMonth = `SELECT ` + transactionColumns + ` FROM transactions WHERE month_id = ? ORDER BY date, id`

func (q *Queries) ListTransactionsByMonth(ctx context.Context, monthID int64) ([]Transaction, error) {
	return collectTransactions(q.db.QueryContext(ctx, listTransactionsByMonth, monthID))
}

const listTransactionsByCategory = `SELECT ` + transactionColumns + ` FROM transactions WHERE category_id = ? ORDER BY date, id`

func (q *Queries) ListTransactionsByCategory(ctx context.Context, categoryID int64) ([]Transaction, error) {
	return collectTransactions(q.db.QueryContext(ctx, listTransactionsByCategory, categoryID))
}

const listAllTransactions = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY date, id`

func (q *Queries) ListAllTransactions(ctx context.Context) ([]Transaction, error) {
	return collectTransactions(q.db.QueryContext(ctx, listAllTransactions))
}

const countTransactionsByMonth = `SELECT COUNT(*) FROM transactions WHERE month_id = ?`

func (q *Queries) CountTransactionsByMonth(ctx context.Context, monthID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactionsByMonth, monthID).Scan(&n)
	return n, err
}

// Amounts are summed in Go; SQLite SUM over TEXT columns goes through float.
const listMonthAmounts = `SELECT type, recurring, amount_cad FROM transactions WHERE month_id = ?`

type MonthAmountRow struct {
	Type      string
	Recurring int64
	AmountCad decimal.Decimal
}

func (q *Queries) ListMonthAmounts(ctx context.Context, monthID int64) ([]MonthAmountRow, error) {
	rows, err := q.db.QueryContext(ctx, listMonthAmounts, monthID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MonthAmountRow
	for rows.Next() {
		var r MonthAmountRow
		if err := rows.Scan(&r.Type, &r.Recurring, &r.AmountCad); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listCategoryExpenses = `
SELECT c.id, c.name, t.amount_cad
FROM transactions t
JOIN categories c ON c.id = t.category_id
WHERE t.month_id = ? AND t.type = 'Expense'
ORDER BY c.name`

type CategoryAmountRow struct {
	CategoryID int64
	Name       string
	AmountCad  decimal.Decimal
}

func (q *Queries) ListCategoryExpenses(ctx context.Context, monthID int64) ([]CategoryAmountRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategoryExpenses, monthID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CategoryAmountRow
	for rows.Next() {
		var r CategoryAmountRow
		if err := rows.Scan(&r.CategoryID, &r.Name, &r.AmountCad); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listUSDExpenses = `
SELECT amount_usd, amount_cad FROM transactions
WHERE month_id = ? AND type = 'Expense' AND amount_usd IS NOT NULL`

type USDAmountRow struct {
	AmountUsd decimal.Decimal
	AmountCad decimal.Decimal
}

func (q *Queries) ListUSDExpenses(ctx context.Context, monthID int64) ([]USDAmountRow, error) {
	rows, err := q.db.QueryContext(ctx, listUSDExpenses, monthID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []USDAmountRow
	for rows.Next() {
		var r USDAmountRow
		if err := rows.Scan(&r.AmountUsd, &r.AmountCad); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getMaterialization = `SELECT transaction_id FROM recurring_materializations WHERE month_id = ? AND template_id = ?`

func (q *Queries) GetMaterialization(ctx context.Context, monthID, templateID int64) (int64, error) {
	var txID int64
	err := q.db.QueryRowContext(ctx, getMaterialization, monthID, templateID).Scan(&txID)
	return txID, err
}

const createMaterialization = `
INSERT INTO recurring_materializations (month_id, template_id, transaction_id, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateMaterialization(ctx context.Context, monthID, templateID, transactionID int64, createdAt string) error {
	_, err := q.db.ExecContext(ctx, createMaterialization, monthID, templateID, transactionID, createdAt)
	return err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}
