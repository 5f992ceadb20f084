package storage

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

type Category struct {
	ID        int64
	Name      string
	Type      string
	CreatedAt sqlTime
}

type Month struct {
	ID                int64
	Month             int64
	Year              int64
	Notes             sql.NullString
	TotalIncome       decimal.Decimal
	TotalExpenses     decimal.Decimal
	RecurringExpenses decimal.Decimal
	Version           int64
	CreatedAt         sqlTime
	UpdatedAt         sqlTime
}

type RecurringTemplate struct {
	ID         int64
	OwnerID    string
	Name       string
	AmountCad  decimal.NullDecimal
	AmountUsd  decimal.NullDecimal
	CategoryID int64
	Notes      sql.NullString
	DayOfMonth sql.NullInt64
	Type       string
	CreatedAt  sqlTime
	UpdatedAt  sqlTime
}

type Transaction struct {
	ID         int64
	OwnerID    string
	MonthID    int64
	CategoryID int64
	TemplateID sql.NullInt64
	Recurring  int64
	Name       string
	AmountCad  decimal.Decimal
	AmountUsd  decimal.NullDecimal
	Type       string
	Date       sqlTime
	Notes      sql.NullString
	CreatedAt  sqlTime
}

func (c Category) toCore() core.Category {
	return core.Category{
		ID:        c.ID,
		Name:      c.Name,
		Type:      core.TransactionType(c.Type),
		CreatedAt: c.CreatedAt.Time,
	}
}

func (m Month) toCore() core.Month {
	return core.Month{
		ID:                m.ID,
		Month:             int(m.Month),
		Year:              int(m.Year),
		Notes:             m.Notes.String,
		TotalIncome:       m.TotalIncome,
		TotalExpenses:     m.TotalExpenses,
		RecurringExpenses: m.RecurringExpenses,
		Version:           m.Version,
		CreatedAt:         m.CreatedAt.Time,
		UpdatedAt:         m.UpdatedAt.Time,
	}
}

func (t RecurringTemplate) toCore() core.RecurringTemplate {
	rt := core.RecurringTemplate{
		ID:         t.ID,
		OwnerID:    t.OwnerID,
		Name:       t.Name,
		Amounts:    core.AmountPair{CAD: t.AmountCad, USD: t.AmountUsd},
		CategoryID: t.CategoryID,
		Notes:      t.Notes.String,
		Type:       core.TransactionType(t.Type),
		CreatedAt:  t.CreatedAt.Time,
		UpdatedAt:  t.UpdatedAt.Time,
	}
	if t.DayOfMonth.Valid {
		day := int(t.DayOfMonth.Int64)
		rt.DayOfMonth = &day
	}
	return rt
}

func (t Transaction) toCore() core.Transaction {
	tx := core.Transaction{
		ID:         t.ID,
		OwnerID:    t.OwnerID,
		MonthID:    t.MonthID,
		CategoryID: t.CategoryID,
		Recurring:  t.Recurring != 0,
		Name:       t.Name,
		AmountCAD:  t.AmountCad,
		AmountUSD:  t.AmountUsd,
		Type:       core.TransactionType(t.Type),
		Date:       t.Date.Time,
		Notes:      t.Notes.String,
		CreatedAt:  t.CreatedAt.Time,
	}
	if t.TemplateID.Valid {
		id := t.TemplateID.Int64
		tx.TemplateID = &id
	}
	return tx
}
