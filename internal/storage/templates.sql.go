package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

const templateColumns = `id, owner_id, name, amount_cad, amount_usd, category_id, notes, day_of_month, type, created_at, updated_at`

func scanTemplate(row rowScanner) (RecurringTemplate, error) {
	var t RecurringTemplate
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Name, &t.AmountCad, &t.AmountUsd, &t.CategoryID,
		&t.Notes, &t.DayOfMonth, &t.Type, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

type TemplateParams struct {
	OwnerID    string
	Name       string
	AmountCad  decimal.NullDecimal
	AmountUsd  decimal.NullDecimal
	CategoryID int64
	Notes      sql.NullString
	DayOfMonth sql.NullInt64
	Type       string
	Timestamp  string
}

const createTemplate = `
INSERT INTO recurring_templates
    (owner_id, name, amount_cad, amount_usd, category_id, notes, day_of_month, type, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + templateColumns

func (q *Queries) CreateTemplate(ctx context.Context, arg TemplateParams) (RecurringTemplate, error) {
	row := q.db.QueryRowContext(ctx, createTemplate,
		arg.OwnerID, arg.Name, arg.AmountCad, arg.AmountUsd, arg.CategoryID,
		arg.Notes, arg.DayOfMonth, arg.Type, arg.Timestamp, arg.Timestamp,
	)
	return scanTemplate(row)
}

const updateTemplate = `
UPDATE recurring_templates SET
    owner_id = ?, name = ?, amount_cad = ?, amount_usd = ?, category_id = ?,
    notes = ?, day_of_month = ?, type = ?, updated_at = ?
WHERE id = ?
RETURNING ` + templateColumns

func (q *Queries) UpdateTemplate(ctx context.Context, id int64, arg TemplateParams) (RecurringTemplate, error) {
	row := q.db.QueryRowContext(ctx, updateTemplate,
		arg.OwnerID, arg.Name, arg.AmountCad, arg.AmountUsd, arg.CategoryID,
		arg.Notes, arg.DayOfMonth, arg.Type, arg.Timestamp, id,
	)
	return scanTemplate(row)
}

const getTemplate = `SELECT ` + templateColumns + ` FROM recurring_templates WHERE id = ?`

func (q *Queries) GetTemplate(ctx context.Context, id int64) (RecurringTemplate, error) {
	return scanTemplate(q.db.QueryRowContext(ctx, getTemplate, id))
}

const listTemplates = `SELECT ` + templateColumns + ` FROM recurring_templates ORDER BY name`

func (q *Queries) ListTemplates(ctx context.Context) ([]RecurringTemplate, error) {
	rows, err := q.db.QueryContext(ctx, listTemplates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const templateNameExists = `SELECT EXISTS (SELECT 1 FROM recurring_templates WHERE name = ?)`

func (q *Queries) TemplateNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, templateNameExists, name).Scan(&exists)
	return exists, err
}

const deleteTemplate = `DELETE FROM recurring_templates WHERE id = ?`

func (q *Queries) DeleteTemplate(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTemplate, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
