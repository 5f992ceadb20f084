package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/metrics"
)

const (
	ttlMonths       = time.Hour
	ttlMonthExists  = 30 * time.Minute
	ttlMonthTxns    = 30 * time.Minute
	ttlCategories   = time.Hour
	ttlCategoryTxns = 30 * time.Minute
	ttlTransactions = 10 * time.Minute
	ttlSpending     = 10 * time.Minute
)

const keyMonthsAll = "months:all"
const keyCategoriesAll = "categories:all"
const keyTransactionsAll = "transactions:all"

func keyMonth(id int64) string                { return fmt.Sprintf("month:%d", id) }
func keyMonthDate(month, year int) string     { return fmt.Sprintf("month:date:%d:%d", month, year) }
func keyMonthExists(month, year int) string   { return fmt.Sprintf("month:exists:%d:%d", month, year) }
func keyMonthTransactions(id int64) string    { return fmt.Sprintf("month:%d:transactions", id) }
func keyCategory(id int64) string             { return fmt.Sprintf("category:%d", id) }
func keyCategoryTransactions(id int64) string { return fmt.Sprintf("category:%d:transactions", id) }
func keyTransactions(monthID int64) string    { return fmt.Sprintf("transactions:%d", monthID) }
func keySpendingCategory(monthID int64) string {
	return fmt.Sprintf("spending:category:%d", monthID)
}
func keySpendingUSD(monthID int64) string { return fmt.Sprintf("spending:usd:%d", monthID) }

// CachedRepository fronts the SQLite gateways with a best-effort cache. Cache
// failures are logged and counted, then the call falls through to SQLite.
type CachedRepository struct {
	repo   *SQLiteRepository
	store  cache.Store
	logger *log.Logger

	months       *CachedMonths
	transactions *CachedTransactions
	categories   *CachedCategories
}

func NewCachedRepository(repo *SQLiteRepository, store cache.Store, logger *log.Logger) *CachedRepository {
	if logger == nil {
		logger = log.Nop()
	}
	c := &CachedRepository{
		repo:   repo,
		store:  store,
		logger: logger.WithComponent(log.ComponentCache),
	}
	c.months = &CachedMonths{c: c, next: repo.Months()}
	c.transactions = &CachedTransactions{c: c, next: repo.Transactions()}
	c.categories = &CachedCategories{c: c, next: repo.Categories()}
	return c
}

func (c *CachedRepository) Months() *CachedMonths             { return c.months }
func (c *CachedRepository) Transactions() *CachedTransactions { return c.transactions }
func (c *CachedRepository) Categories() *CachedCategories     { return c.categories }

// Templates are not cached.
func (c *CachedRepository) Templates() *TemplateStore { return c.repo.Templates() }

func (c *CachedRepository) Close() error { return c.repo.Close() }

func (c *CachedRepository) invalidate(ctx context.Context, keys ...string) {
	if err := c.store.Delete(ctx, keys...); err != nil {
		metrics.CacheError("delete")
		c.logger.Warn("Cache invalidation failed", log.FieldCacheKey, keys, log.FieldError, err)
	}
}

func (c *CachedRepository) lookup(ctx context.Context, key string, dst any) bool {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		metrics.CacheError("get")
		c.logger.Warn("Cache read failed", log.FieldCacheKey, key, log.FieldError, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.CacheError("decode")
		c.logger.Warn("Cache entry undecodable, dropping", log.FieldCacheKey, key, log.FieldError, err)
		c.invalidate(ctx, key)
		return false
	}
	return true
}

func (c *CachedRepository) save(ctx context.Context, key string, val any, ttl time.Duration) {
	raw, err := json.Marshal(val)
	if err != nil {
		metrics.CacheError("encode")
		c.logger.Warn("Cache entry unencodable", log.FieldCacheKey, key, log.FieldError, err)
		return
	}
	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		metrics.CacheError("set")
		c.logger.Warn("Cache write failed", log.FieldCacheKey, key, log.FieldError, err)
	}
}

// cached returns the value under key, loading and storing it on a miss.
func cached[T any](ctx context.Context, c *CachedRepository, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var hit T
	if c.lookup(ctx, key, &hit) {
		return hit, nil
	}
	val, err := load()
	if err != nil {
		return val, err
	}
	c.save(ctx, key, val, ttl)
	return val, nil
}

// CachedMonths is the cache-fronted month gateway.
type CachedMonths struct {
	c    *CachedRepository
	next *MonthStore
}

// monthDateEntry also records a miss so repeated lookups of an absent month
// stay off the database.
type monthDateEntry struct {
	Found bool       `json:"found"`
	Month core.Month `json:"month"`
}

func (m *CachedMonths) Find(ctx context.Context, month, year int) (core.Month, error) {
	key := keyMonthDate(month, year)
	var entry monthDateEntry
	if m.c.lookup(ctx, key, &entry) {
		if !entry.Found {
			return core.Month{}, core.NewNotFound("month", monthKey(month, year))
		}
		return entry.Month, nil
	}

	found, err := m.next.Find(ctx, month, year)
	switch {
	case err == nil:
		m.c.save(ctx, key, monthDateEntry{Found: true, Month: found}, ttlMonths)
	case isNotFound(err):
		m.c.save(ctx, key, monthDateEntry{Found: false}, ttlMonths)
	}
	return found, err
}

func (m *CachedMonths) FindByID(ctx context.Context, id int64) (core.Month, error) {
	return cached(ctx, m.c, keyMonth(id), ttlMonths, func() (core.Month, error) {
		return m.next.FindByID(ctx, id)
	})
}

func (m *CachedMonths) FindLatest(ctx context.Context) (core.Month, error) {
	return m.next.FindLatest(ctx)
}

func (m *CachedMonths) List(ctx context.Context) ([]core.Month, error) {
	return cached(ctx, m.c, keyMonthsAll, ttlMonths, func() ([]core.Month, error) {
		return m.next.List(ctx)
	})
}

func (m *CachedMonths) Create(ctx context.Context, month core.Month) (core.Month, error) {
	created, err := m.next.Create(ctx, month)
	m.c.invalidate(ctx, keyMonthsAll, keyMonthDate(month.Month, month.Year), keyMonthExists(month.Month, month.Year))
	return created, err
}

func (m *CachedMonths) Update(ctx context.Context, id int64, upd core.MonthUpdate) (core.Month, error) {
	updated, err := m.next.Update(ctx, id, upd)
	keys := []string{keyMonth(id), keyMonthsAll}
	if err == nil {
		keys = append(keys, keyMonthDate(updated.Month, updated.Year))
	}
	m.c.invalidate(ctx, keys...)
	return updated, err
}

func (m *CachedMonths) Delete(ctx context.Context, id int64) error {
	existing, lookupErr := m.next.FindByID(ctx, id)
	if err := m.next.Delete(ctx, id); err != nil {
		return err
	}
	keys := []string{
		keyMonth(id), keyMonthsAll, keyMonthTransactions(id),
		keyTransactions(id), keySpendingCategory(id), keySpendingUSD(id),
	}
	if lookupErr == nil {
		keys = append(keys, keyMonthDate(existing.Month, existing.Year), keyMonthExists(existing.Month, existing.Year))
	}
	m.c.invalidate(ctx, keys...)
	return nil
}

func (m *CachedMonths) ExistsByMonthYear(ctx context.Context, month, year int) (bool, error) {
	return cached(ctx, m.c, keyMonthExists(month, year), ttlMonthExists, func() (bool, error) {
		return m.next.ExistsByMonthYear(ctx, month, year)
	})
}

type transactionCount struct {
	Has   bool  `json:"has"`
	Count int64 `json:"count"`
}

func (m *CachedMonths) HasTransactions(ctx context.Context, id int64) (bool, int64, error) {
	tc, err := cached(ctx, m.c, keyMonthTransactions(id), ttlMonthTxns, func() (transactionCount, error) {
		has, count, err := m.next.HasTransactions(ctx, id)
		return transactionCount{Has: has, Count: count}, err
	})
	return tc.Has, tc.Count, err
}

func (m *CachedMonths) RecalculateRecurringExpenses(ctx context.Context, monthID *int64) error {
	err := m.next.RecalculateRecurringExpenses(ctx, monthID)

	keys := []string{keyMonthsAll}
	if monthID != nil {
		keys = append(keys, keyMonth(*monthID))
		if month, err := m.next.FindByID(ctx, *monthID); err == nil {
			keys = append(keys, keyMonthDate(month.Month, month.Year))
		}
	} else if months, err := m.next.List(ctx); err == nil {
		for _, month := range months {
			keys = append(keys, keyMonth(month.ID), keyMonthDate(month.Month, month.Year))
		}
	}
	m.c.invalidate(ctx, keys...)
	return err
}

// CachedTransactions is the cache-fronted transaction gateway.
type CachedTransactions struct {
	c    *CachedRepository
	next *TransactionStore
}

func (t *CachedTransactions) invalidateFor(ctx context.Context, tx core.Transaction) {
	t.c.invalidate(ctx,
		keyTransactions(tx.MonthID), keyTransactionsAll,
		keyMonthTransactions(tx.MonthID), keyCategoryTransactions(tx.CategoryID),
		keySpendingCategory(tx.MonthID), keySpendingUSD(tx.MonthID),
	)
}

func (t *CachedTransactions) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	created, err := t.next.Create(ctx, tx)
	if err == nil {
		t.invalidateFor(ctx, created)
	}
	return created, err
}

func (t *CachedTransactions) CreateFromTemplate(ctx context.Context, monthID, templateID int64, tx core.Transaction) (core.Transaction, bool, error) {
	created, ok, err := t.next.CreateFromTemplate(ctx, monthID, templateID, tx)
	if err == nil && ok {
		t.invalidateFor(ctx, created)
	}
	return created, ok, err
}

// GroupTotalsByType always reads SQLite; it feeds aggregate recomputation.
func (t *CachedTransactions) GroupTotalsByType(ctx context.Context, monthID int64) (core.TypeTotals, error) {
	return t.next.GroupTotalsByType(ctx, monthID)
}

func (t *CachedTransactions) ListByMonth(ctx context.Context, monthID int64) ([]core.Transaction, error) {
	return cached(ctx, t.c, keyTransactions(monthID), ttlTransactions, func() ([]core.Transaction, error) {
		return t.next.ListByMonth(ctx, monthID)
	})
}

func (t *CachedTransactions) ListByCategory(ctx context.Context, categoryID int64) ([]core.Transaction, error) {
	return cached(ctx, t.c, keyCategoryTransactions(categoryID), ttlCategoryTxns, func() ([]core.Transaction, error) {
		return t.next.ListByCategory(ctx, categoryID)
	})
}

func (t *CachedTransactions) ListAll(ctx context.Context) ([]core.Transaction, error) {
	return cached(ctx, t.c, keyTransactionsAll, ttlTransactions, func() ([]core.Transaction, error) {
		return t.next.ListAll(ctx)
	})
}

func (t *CachedTransactions) SpendingByCategory(ctx context.Context, monthID int64) ([]core.CategorySpending, error) {
	return cached(ctx, t.c, keySpendingCategory(monthID), ttlSpending, func() ([]core.CategorySpending, error) {
		return t.next.SpendingByCategory(ctx, monthID)
	})
}

func (t *CachedTransactions) USDSpending(ctx context.Context, monthID int64) (core.USDSpending, error) {
	return cached(ctx, t.c, keySpendingUSD(monthID), ttlSpending, func() (core.USDSpending, error) {
		return t.next.USDSpending(ctx, monthID)
	})
}

// CachedCategories is the cache-fronted category gateway.
type CachedCategories struct {
	c    *CachedRepository
	next *CategoryStore
}

func (g *CachedCategories) List(ctx context.Context) ([]core.Category, error) {
	return cached(ctx, g.c, keyCategoriesAll, ttlCategories, func() ([]core.Category, error) {
		return g.next.List(ctx)
	})
}

func (g *CachedCategories) FindByID(ctx context.Context, id int64) (core.Category, error) {
	return cached(ctx, g.c, keyCategory(id), ttlCategories, func() (core.Category, error) {
		return g.next.FindByID(ctx, id)
	})
}

func (g *CachedCategories) Create(ctx context.Context, category core.Category) (core.Category, error) {
	created, err := g.next.Create(ctx, category)
	if err == nil {
		g.c.invalidate(ctx, keyCategoriesAll, keyCategory(created.ID))
	}
	return created, err
}
