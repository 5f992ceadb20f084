package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/cache"
	"budget/internal/core"
)

type recordingStore struct {
	*cache.MemoryStore
	mu      sync.Mutex
	hits    map[string]int
	deleted []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: cache.NewMemoryStore(100), hits: make(map[string]int)}
}

func (s *recordingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok, err := s.MemoryStore.Get(ctx, key)
	if ok {
		s.mu.Lock()
		s.hits[key]++
		s.mu.Unlock()
	}
	return val, ok, err
}

func (s *recordingStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, keys...)
	s.mu.Unlock()
	return s.MemoryStore.Delete(ctx, keys...)
}

type failingStore struct{}

var errCacheDown = errors.New("cache down")

func (failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errCacheDown }
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errCacheDown
}
func (failingStore) Delete(context.Context, ...string) error { return errCacheDown }

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCachedMonthsServesFromCache(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	store := newRecordingStore()
	cached := NewCachedRepository(repo, store, nil)

	_, err := cached.Months().Create(ctx, core.Month{Month: 6, Year: 2025})
	require.NoError(t, err)

	months, err := cached.Months().List(ctx)
	require.NoError(t, err)
	require.Len(t, months, 1)

	// written behind the cache's back
	_, err = repo.Months().Create(ctx, core.Month{Month: 7, Year: 2025})
	require.NoError(t, err)

	months, err = cached.Months().List(ctx)
	require.NoError(t, err)
	assert.Len(t, months, 1)
	assert.Equal(t, 1, store.hits[keyMonthsAll])

	_, err = cached.Months().Create(ctx, core.Month{Month: 8, Year: 2025})
	require.NoError(t, err)
	assert.Contains(t, store.deleted, keyMonthsAll)

	months, err = cached.Months().List(ctx)
	require.NoError(t, err)
	assert.Len(t, months, 3)
}

func TestCachedMonthsRoundTripsDecimals(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cached := NewCachedRepository(repo, newRecordingStore(), nil)

	m, err := cached.Months().Create(ctx, core.Month{Month: 6, Year: 2025})
	require.NoError(t, err)
	totals := core.TypeTotals{
		Income:            decimal.RequireFromString("4000.10"),
		Expenses:          decimal.RequireFromString("1500.05"),
		RecurringExpenses: decimal.RequireFromString("1500"),
	}
	_, err = cached.Months().Update(ctx, m.ID, core.MonthUpdate{Totals: &totals})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := cached.Months().FindByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "4000.10", got.TotalIncome.StringFixed(2))
		assert.Equal(t, "1500.05", got.TotalExpenses.StringFixed(2))
		assert.Equal(t, int64(2), got.Version)
	}
}

func TestCachedMonthFindRemembersMisses(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	store := newRecordingStore()
	cached := NewCachedRepository(repo, store, nil)

	_, err := cached.Months().Find(ctx, 6, 2025)
	require.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.Months().Create(ctx, core.Month{Month: 6, Year: 2025})
	require.NoError(t, err)

	_, err = cached.Months().Find(ctx, 6, 2025)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 1, store.hits[keyMonthDate(6, 2025)])

	require.NoError(t, store.Delete(ctx, keyMonthDate(6, 2025)))
	found, err := cached.Months().Find(ctx, 6, 2025)
	require.NoError(t, err)
	assert.Equal(t, "2025-06", found.String())
}

func TestCachedMonthDeleteInvalidatesKeys(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	store := newRecordingStore()
	cached := NewCachedRepository(repo, store, nil)

	m, err := cached.Months().Create(ctx, core.Month{Month: 6, Year: 2025})
	require.NoError(t, err)
	exists, err := cached.Months().ExistsByMonthYear(ctx, 6, 2025)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, cached.Months().Delete(ctx, m.ID))
	assert.Subset(t, store.deleted, []string{
		"month:1", "months:all", "month:date:6:2025", "month:exists:6:2025",
		"month:1:transactions", "transactions:1", "spending:category:1", "spending:usd:1",
	})

	exists, err = cached.Months().ExistsByMonthYear(ctx, 6, 2025)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCachedTransactionsInvalidateOnCreate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	store := newRecordingStore()
	cached := NewCachedRepository(repo, store, nil)

	m, err := cached.Months().Create(ctx, core.Month{Month: 6, Year: 2025})
	require.NoError(t, err)
	cat, err := cached.Categories().Create(ctx, core.Category{Name: "Food", Type: core.Expense})
	require.NoError(t, err)

	txs, err := cached.Transactions().ListByMonth(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
	has, _, err := cached.Months().HasTransactions(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = cached.Transactions().Create(ctx, core.Transaction{
		MonthID:    m.ID,
		CategoryID: cat.ID,
		Name:       "Groceries",
		AmountCAD:  decimal.RequireFromString("42.50"),
		Type:       core.Expense,
		Date:       time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	txs, err = cached.Transactions().ListByMonth(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "42.50", txs[0].AmountCAD.StringFixed(2))

	has, count, err := cached.Months().HasTransactions(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, int64(1), count)

	spending, err := cached.Transactions().SpendingByCategory(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, spending, 1)
	assert.Equal(t, "Food", spending[0].Name)
}

func TestCachedRepositoryToleratesCacheFailures(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cached := NewCachedRepository(repo, failingStore{}, nil)

	m, err := cached.Months().Create(ctx, core.Month{Month: 6, Year: 2025})
	require.NoError(t, err)

	got, err := cached.Months().FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	months, err := cached.Months().List(ctx)
	require.NoError(t, err)
	assert.Len(t, months, 1)

	cat, err := cached.Categories().Create(ctx, core.Category{Name: "Food", Type: core.Expense})
	require.NoError(t, err)
	categories, err := cached.Categories().List(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
	assert.Equal(t, cat.ID, categories[0].ID)

	require.NoError(t, cached.Months().Delete(ctx, m.ID))
}

func TestCachedRepositoryDropsUndecodableEntries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	store := newRecordingStore()
	cached := NewCachedRepository(repo, store, nil)

	require.NoError(t, store.Set(ctx, keyCategoriesAll, []byte("{not json"), time.Minute))

	categories, err := cached.Categories().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, categories)
	assert.Contains(t, store.deleted, keyCategoriesAll)
}
