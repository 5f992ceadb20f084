package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"budget/internal/core"
	"budget/internal/log"
)

// SQLiteRepository is the relational system of record. Each gateway is exposed
// through its own accessor so method names can follow the gateway contracts.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
	logger  *log.Logger

	months       *MonthStore
	templates    *TemplateStore
	transactions *TransactionStore
	categories   *CategoryStore
}

type Option func(*SQLiteRepository)

// WithClock sets the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepository) { r.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(r *SQLiteRepository) { r.logger = logger.WithComponent(log.ComponentStorage) }
}

// DSN returns the connection string used for dbPath. Foreign keys are
// enforced per connection.
func DSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection serializes writes in-process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
		logger:  log.Nop(),
	}
	for _, opt := range opts {
		opt(repo)
	}
	repo.months = &MonthStore{repo}
	repo.templates = &TemplateStore{repo}
	repo.transactions = &TransactionStore{repo}
	repo.categories = &CategoryStore{repo}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Months() *MonthStore             { return r.months }
func (r *SQLiteRepository) Templates() *TemplateStore       { return r.templates }
func (r *SQLiteRepository) Transactions() *TransactionStore { return r.transactions }
func (r *SQLiteRepository) Categories() *CategoryStore      { return r.categories }

func (r *SQLiteRepository) timestamp() string {
	return formatTime(r.now())
}

// inTx runs fn inside a transaction. fn must only use the given Queries: the
// pool holds a single connection.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const (
	constraintNone = iota
	constraintUnique
	constraintForeignKey
)

func constraintKind(err error) int {
	if err == nil {
		return constraintNone
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return constraintUnique
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return constraintForeignKey
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return constraintUnique
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return constraintForeignKey
	}
	return constraintNone
}

func monthKey(month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// MonthStore implements the month gateway.
type MonthStore struct {
	r *SQLiteRepository
}

func (s *MonthStore) Find(ctx context.Context, month, year int) (core.Month, error) {
	m, err := s.r.queries.GetMonthByDate(ctx, int64(month), int64(year))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Month{}, core.NewNotFound("month", monthKey(month, year))
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("get month %s: %w", monthKey(month, year), err)
	}
	return m.toCore(), nil
}

func (s *MonthStore) FindByID(ctx context.Context, id int64) (core.Month, error) {
	m, err := s.r.queries.GetMonth(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Month{}, core.NewNotFound("month", id)
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("get month %d: %w", id, err)
	}
	return m.toCore(), nil
}

func (s *MonthStore) FindLatest(ctx context.Context) (core.Month, error) {
	m, err := s.r.queries.GetLatestMonth(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Month{}, core.NewNotFound("month", "latest")
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("get latest month: %w", err)
	}
	return m.toCore(), nil
}

func (s *MonthStore) List(ctx context.Context) ([]core.Month, error) {
	rows, err := s.r.queries.ListMonths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	months := make([]core.Month, len(rows))
	for i, m := range rows {
		months[i] = m.toCore()
	}
	return months, nil
}

// Create inserts a month with zeroed aggregates. The (month, year) unique
// constraint turns a lost creation race into AlreadyExists.
func (s *MonthStore) Create(ctx context.Context, m core.Month) (core.Month, error) {
	row, err := s.r.queries.CreateMonth(ctx, CreateMonthParams{
		Month:     int64(m.Month),
		Year:      int64(m.Year),
		Notes:     nullString(m.Notes),
		CreatedAt: s.r.timestamp(),
	})
	if constraintKind(err) == constraintUnique {
		return core.Month{}, core.NewAlreadyExists("month", m.String())
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("create month %s: %w", m.String(), err)
	}

	s.r.logger.Debug("Month saved to SQLite", log.FieldMonthID, row.ID, log.FieldMonth, row.Month, log.FieldYear, row.Year)
	return row.toCore(), nil
}

func (s *MonthStore) Update(ctx context.Context, id int64, upd core.MonthUpdate) (core.Month, error) {
	params := UpdateMonthParams{
		ID:              id,
		UpdatedAt:       s.r.timestamp(),
		ExpectedVersion: upd.ExpectedVersion,
	}
	if upd.Notes != nil {
		params.SetNotes = true
		params.Notes = nullString(*upd.Notes)
	}
	if upd.Totals != nil {
		params.SetTotals = true
		params.TotalIncome = upd.Totals.Income
		params.TotalExpenses = upd.Totals.Expenses
		params.RecurringExpenses = upd.Totals.RecurringExpenses
	}

	var out Month
	err := s.r.inTx(ctx, func(q *Queries) error {
		n, err := q.UpdateMonth(ctx, params)
		if err != nil {
			return fmt.Errorf("update month %d: %w", id, err)
		}
		current, err := q.GetMonth(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return core.NewNotFound("month", id)
		}
		if err != nil {
			return fmt.Errorf("reload month %d: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: month %d is at version %d, expected %d",
				core.ErrConcurrentUpdate, id, current.Version, upd.ExpectedVersion)
		}
		out = current
		return nil
	})
	if err != nil {
		return core.Month{}, err
	}
	return out.toCore(), nil
}

// Delete refuses to remove a month that transactions still reference.
func (s *MonthStore) Delete(ctx context.Context, id int64) error {
	return s.r.inTx(ctx, func(q *Queries) error {
		if _, err := q.GetMonth(ctx, id); errors.Is(err, sql.ErrNoRows) {
			return core.NewNotFound("month", id)
		} else if err != nil {
			return fmt.Errorf("get month %d: %w", id, err)
		}

		count, err := q.CountTransactionsByMonth(ctx, id)
		if err != nil {
			return fmt.Errorf("count transactions of month %d: %w", id, err)
		}
		if count > 0 {
			return &core.HasTransactionsError{MonthID: id, Count: count}
		}

		if _, err := q.DeleteMonth(ctx, id); err != nil {
			if constraintKind(err) == constraintForeignKey {
				count, _ := q.CountTransactionsByMonth(ctx, id)
				return &core.HasTransactionsError{MonthID: id, Count: count}
			}
			return fmt.Errorf("delete month %d: %w", id, err)
		}
		return nil
	})
}

func (s *MonthStore) ExistsByMonthYear(ctx context.Context, month, year int) (bool, error) {
	exists, err := s.r.queries.MonthExists(ctx, int64(month), int64(year))
	if err != nil {
		return false, fmt.Errorf("check month %s: %w", monthKey(month, year), err)
	}
	return exists, nil
}

func (s *MonthStore) HasTransactions(ctx context.Context, id int64) (bool, int64, error) {
	count, err := s.r.queries.CountTransactionsByMonth(ctx, id)
	if err != nil {
		return false, 0, fmt.Errorf("count transactions of month %d: %w", id, err)
	}
	return count > 0, count, nil
}

// RecalculateRecurringExpenses recomputes recurring_expenses for one month,
// or for every month when monthID is nil.
func (s *MonthStore) RecalculateRecurringExpenses(ctx context.Context, monthID *int64) error {
	return s.r.inTx(ctx, func(q *Queries) error {
		var ids []int64
		if monthID != nil {
			if _, err := q.GetMonth(ctx, *monthID); errors.Is(err, sql.ErrNoRows) {
				return core.NewNotFound("month", *monthID)
			} else if err != nil {
				return fmt.Errorf("get month %d: %w", *monthID, err)
			}
			ids = []int64{*monthID}
		} else {
			var err error
			if ids, err = q.ListMonthIDs(ctx); err != nil {
				return fmt.Errorf("list month ids: %w", err)
			}
		}

		updatedAt := s.r.timestamp()
		for _, id := range ids {
			rows, err := q.ListMonthAmounts(ctx, id)
			if err != nil {
				return fmt.Errorf("list amounts of month %d: %w", id, err)
			}
			totals := sumTotals(rows)
			if err := q.SetRecurringExpenses(ctx, id, totals.RecurringExpenses, updatedAt); err != nil {
				return fmt.Errorf("set recurring expenses of month %d: %w", id, err)
			}
		}
		return nil
	})
}

// sumTotals is the single definition of a month's aggregates: income,
// expenses, and the part of expenses created from recurring templates.
func sumTotals(rows []MonthAmountRow) core.TypeTotals {
	totals := core.TypeTotals{}
	for _, row := range rows {
		switch core.TransactionType(row.Type) {
		case core.Income:
			totals.Income = totals.Income.Add(row.AmountCad)
		case core.Expense:
			totals.Expenses = totals.Expenses.Add(row.AmountCad)
			if row.Recurring != 0 {
				totals.RecurringExpenses = totals.RecurringExpenses.Add(row.AmountCad)
			}
		}
	}
	return totals
}

// TemplateStore implements the recurring template gateway.
type TemplateStore struct {
	r *SQLiteRepository
}

func templateParams(t core.RecurringTemplate, ts string) TemplateParams {
	return TemplateParams{
		OwnerID:    t.OwnerID,
		Name:       t.Name,
		AmountCad:  t.Amounts.CAD,
		AmountUsd:  t.Amounts.USD,
		CategoryID: t.CategoryID,
		Notes:      nullString(t.Notes),
		DayOfMonth: nullIntFromInt(t.DayOfMonth),
		Type:       t.Type.String(),
		Timestamp:  ts,
	}
}

func (s *TemplateStore) mapWriteError(err error, t core.RecurringTemplate) error {
	switch constraintKind(err) {
	case constraintUnique:
		return core.NewAlreadyExists("recurring template", t.Name)
	case constraintForeignKey:
		return core.NewNotFound("category", t.CategoryID)
	}
	return err
}

func (s *TemplateStore) List(ctx context.Context) ([]core.RecurringTemplate, error) {
	rows, err := s.r.queries.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	out := make([]core.RecurringTemplate, len(rows))
	for i, t := range rows {
		out[i] = t.toCore()
	}
	return out, nil
}

func (s *TemplateStore) FindByID(ctx context.Context, id int64) (core.RecurringTemplate, error) {
	t, err := s.r.queries.GetTemplate(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTemplate{}, core.NewNotFound("recurring template", id)
	}
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("get recurring template %d: %w", id, err)
	}
	return t.toCore(), nil
}

func (s *TemplateStore) Create(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	row, err := s.r.queries.CreateTemplate(ctx, templateParams(t, s.r.timestamp()))
	if err != nil {
		if mapped := s.mapWriteError(err, t); mapped != err {
			return core.RecurringTemplate{}, mapped
		}
		return core.RecurringTemplate{}, fmt.Errorf("create recurring template: %w", err)
	}
	return row.toCore(), nil
}

// Update replaces the stored content of template t.ID.
func (s *TemplateStore) Update(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	row, err := s.r.queries.UpdateTemplate(ctx, t.ID, templateParams(t, s.r.timestamp()))
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTemplate{}, core.NewNotFound("recurring template", t.ID)
	}
	if err != nil {
		if mapped := s.mapWriteError(err, t); mapped != err {
			return core.RecurringTemplate{}, mapped
		}
		return core.RecurringTemplate{}, fmt.Errorf("update recurring template %d: %w", t.ID, err)
	}
	return row.toCore(), nil
}

func (s *TemplateStore) Delete(ctx context.Context, id int64) error {
	n, err := s.r.queries.DeleteTemplate(ctx, id)
	if err != nil {
		return fmt.Errorf("delete recurring template %d: %w", id, err)
	}
	if n == 0 {
		return core.NewNotFound("recurring template", id)
	}
	return nil
}

func (s *TemplateStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	exists, err := s.r.queries.TemplateNameExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check recurring template %q: %w", name, err)
	}
	return exists, nil
}

// TransactionStore implements the transaction gateway.
type TransactionStore struct {
	r *SQLiteRepository
}

func transactionParams(t core.Transaction, createdAt string) CreateTransactionParams {
	return CreateTransactionParams{
		OwnerID:    t.OwnerID,
		MonthID:    t.MonthID,
		CategoryID: t.CategoryID,
		TemplateID: nullInt64(t.TemplateID),
		Recurring:  boolToInt(t.Recurring),
		Name:       t.Name,
		AmountCad:  t.AmountCAD,
		AmountUsd:  t.AmountUSD,
		Type:       t.Type.String(),
		Date:       formatDate(t.Date),
		Notes:      nullString(t.Notes),
		CreatedAt:  createdAt,
	}
}

func (s *TransactionStore) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row, err := s.r.queries.CreateTransaction(ctx, transactionParams(t, s.r.timestamp()))
	if constraintKind(err) == constraintForeignKey {
		return core.Transaction{}, core.NewNotFound("month or category", fmt.Sprintf("%d/%d", t.MonthID, t.CategoryID))
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return row.toCore(), nil
}

// CreateFromTemplate inserts the transaction and its (month, template) marker
// atomically. When the marker already exists nothing is written and created
// is false.
func (s *TransactionStore) CreateFromTemplate(ctx context.Context, monthID, templateID int64, t core.Transaction) (core.Transaction, bool, error) {
	t.MonthID = monthID
	t.TemplateID = &templateID
	t.Recurring = true

	var (
		out     Transaction
		created bool
	)
	err := s.r.inTx(ctx, func(q *Queries) error {
		existingID, err := q.GetMaterialization(ctx, monthID, templateID)
		switch {
		case err == nil:
			out, err = q.GetTransaction(ctx, existingID)
			if err != nil {
				return fmt.Errorf("get materialized transaction %d: %w", existingID, err)
			}
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("get materialization marker: %w", err)
		}

		ts := s.r.timestamp()
		row, err := q.CreateTransaction(ctx, transactionParams(t, ts))
		if constraintKind(err) == constraintForeignKey {
			return core.NewNotFound("month or category", fmt.Sprintf("%d/%d", monthID, t.CategoryID))
		}
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		if err := q.CreateMaterialization(ctx, monthID, templateID, row.ID, ts); err != nil {
			return fmt.Errorf("create materialization marker: %w", err)
		}
		out, created = row, true
		return nil
	})
	if constraintKind(err) == constraintUnique {
		// another writer materialized the pair first
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, err
	}
	return out.toCore(), created, nil
}

func (s *TransactionStore) GroupTotalsByType(ctx context.Context, monthID int64) (core.TypeTotals, error) {
	rows, err := s.r.queries.ListMonthAmounts(ctx, monthID)
	if err != nil {
		return core.TypeTotals{}, fmt.Errorf("list amounts of month %d: %w", monthID, err)
	}
	return sumTotals(rows), nil
}

func (s *TransactionStore) ListByMonth(ctx context.Context, monthID int64) ([]core.Transaction, error) {
	rows, err := s.r.queries.ListTransactionsByMonth(ctx, monthID)
	if err != nil {
		return nil, fmt.Errorf("list transactions of month %d: %w", monthID, err)
	}
	return toCoreTransactions(rows), nil
}

func (s *TransactionStore) ListByCategory(ctx context.Context, categoryID int64) ([]core.Transaction, error) {
	rows, err := s.r.queries.ListTransactionsByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list transactions of category %d: %w", categoryID, err)
	}
	return toCoreTransactions(rows), nil
}

func (s *TransactionStore) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.r.queries.ListAllTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toCoreTransactions(rows), nil
}

func toCoreTransactions(rows []Transaction) []core.Transaction {
	out := make([]core.Transaction, len(rows))
	for i, t := range rows {
		out[i] = t.toCore()
	}
	return out
}

// SpendingByCategory totals a month's expenses per category, ordered by name.
func (s *TransactionStore) SpendingByCategory(ctx context.Context, monthID int64) ([]core.CategorySpending, error) {
	rows, err := s.r.queries.ListCategoryExpenses(ctx, monthID)
	if err != nil {
		return nil, fmt.Errorf("list category expenses of month %d: %w", monthID, err)
	}

	var out []core.CategorySpending
	index := make(map[int64]int)
	for _, row := range rows {
		i, ok := index[row.CategoryID]
		if !ok {
			i = len(out)
			index[row.CategoryID] = i
			out = append(out, core.CategorySpending{CategoryID: row.CategoryID, Name: row.Name})
		}
		out[i].Amount = out[i].Amount.Add(row.AmountCad)
	}
	return out, nil
}

func (s *TransactionStore) USDSpending(ctx context.Context, monthID int64) (core.USDSpending, error) {
	rows, err := s.r.queries.ListUSDExpenses(ctx, monthID)
	if err != nil {
		return core.USDSpending{}, fmt.Errorf("list USD expenses of month %d: %w", monthID, err)
	}
	out := core.USDSpending{MonthID: monthID, Count: int64(len(rows))}
	for _, row := range rows {
		out.AmountUSD = out.AmountUSD.Add(row.AmountUsd)
		out.AmountCAD = out.AmountCAD.Add(row.AmountCad)
	}
	return out, nil
}

// CategoryStore implements the category gateway.
type CategoryStore struct {
	r *SQLiteRepository
}

func (s *CategoryStore) List(ctx context.Context) ([]core.Category, error) {
	rows, err := s.r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, c := range rows {
		out[i] = c.toCore()
	}
	return out, nil
}

func (s *CategoryStore) FindByID(ctx context.Context, id int64) (core.Category, error) {
	c, err := s.r.queries.GetCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewNotFound("category", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c.toCore(), nil
}

func (s *CategoryStore) Create(ctx context.Context, c core.Category) (core.Category, error) {
	row, err := s.r.queries.CreateCategory(ctx, CreateCategoryParams{
		Name:      c.Name,
		Type:      c.Type.String(),
		CreatedAt: s.r.timestamp(),
	})
	if constraintKind(err) == constraintUnique {
		return core.Category{}, core.NewAlreadyExists("category", c.Name)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return row.toCore(), nil
}
