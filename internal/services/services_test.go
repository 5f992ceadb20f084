package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/currency"
	"budget/internal/storage"
)

type staticSource struct{ rate decimal.Decimal }

func (s staticSource) FetchRate(context.Context) (decimal.Decimal, error) { return s.rate, nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.MonthEvent
	err    error
}

func (p *recordingPublisher) PublishMonthEvent(_ context.Context, evt amqp.MonthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type failingTemplates struct {
	TemplateGateway
}

func (failingTemplates) List(context.Context) ([]core.RecurringTemplate, error) {
	return nil, errors.New("templates unavailable")
}

type ServicesSuite struct {
	suite.Suite
	ctx  context.Context
	now  time.Time
	repo *storage.SQLiteRepository
	gw   Gateways

	events       *recordingPublisher
	materializer *Materializer
	months       *MonthService
	templates    *TemplateService
	transactions *TransactionService
	categories   *CategoryService

	housing core.Category
	salary  core.Category
}

func TestServicesSuite(t *testing.T) {
	suite.Run(t, new(ServicesSuite))
}

// SetupTest is called before each test in the suite.
func (s *ServicesSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	repo, err := storage.NewSQLiteRepository(filepath.Join(s.T().TempDir(), "budget.db"), storage.WithClock(clock))
	s.Require().NoError(err)
	s.repo = repo
	s.gw = SQLiteGateways(repo)

	rates := currency.NewRateCache(staticSource{rate: decimal.RequireFromString("1.35")}, currency.WithClock(clock))
	normalizer := currency.NewNormalizer(currency.NewConverter(rates, currency.Tolerant), false)

	s.events = &recordingPublisher{}
	s.materializer = NewMaterializer(s.gw, 4, nil)
	s.months = NewMonthService(s.gw, s.materializer, s.events, nil, WithClock(clock))
	s.templates = NewTemplateService(s.gw, normalizer, nil)
	s.transactions = NewTransactionService(s.gw, s.months, normalizer, nil)
	s.categories = NewCategoryService(s.gw, nil)

	s.housing, err = s.categories.Create(s.ctx, "Housing", "expense")
	s.Require().NoError(err)
	s.salary, err = s.categories.Create(s.ctx, "Salary", "Income")
	s.Require().NoError(err)
}

// TearDownTest is called after each test in the suite.
func (s *ServicesSuite) TearDownTest() {
	s.Require().NoError(s.repo.Close())
}

func cad(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func (s *ServicesSuite) rentAndSalary() {
	_, err := s.templates.Create(s.ctx, TemplateInput{Name: "Rent", AmountCAD: cad("1500"), CategoryID: s.housing.ID})
	s.Require().NoError(err)
	_, err = s.templates.Create(s.ctx, TemplateInput{Name: "Salary", AmountCAD: cad("4000"), CategoryID: s.salary.ID, Type: "income"})
	s.Require().NoError(err)
}

func (s *ServicesSuite) TestCreateMonthMaterializesTemplates() {
	s.rentAndSalary()

	result, err := s.months.CreateMonth(s.ctx, 7, 2025, "")
	s.Require().NoError(err)
	s.Require().NoError(result.Err)
	s.Equal(2, result.Materialization.Created)
	s.Empty(result.Materialization.Failed)

	m := result.Month
	s.Equal("1500.00", m.TotalExpenses.StringFixed(2))
	s.Equal("4000.00", m.TotalIncome.StringFixed(2))
	s.Equal("1500.00", m.RecurringExpenses.StringFixed(2))
	s.Equal("2500.00", m.Cashflow().StringFixed(2))

	txs, err := s.transactions.ListTransactions(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Len(txs, 2)
	for _, tx := range txs {
		s.Equal(1, tx.Date.Day())
		s.True(tx.Recurring)
		s.Contains(tx.Notes, "Auto-generated from recurring template")
	}

	s.Equal([]amqp.EventType{amqp.EventMonthCreated, amqp.EventMonthMaterialized}, s.events.types())
	s.Equal(2, s.events.events[1].Created)
}

func (s *ServicesSuite) TestCreateMonthTwiceIsAlreadyExists() {
	_, err := s.months.CreateMonth(s.ctx, 7, 2025, "")
	s.Require().NoError(err)

	_, err = s.months.CreateMonth(s.ctx, 7, 2025, "")
	s.ErrorIs(err, core.ErrAlreadyExists)
}

func (s *ServicesSuite) TestCreateMonthValidatesRange() {
	_, err := s.months.CreateMonth(s.ctx, 13, 2025, "")
	s.ErrorIs(err, core.ErrInvalidMonth)

	_, err = s.months.CreateMonth(s.ctx, 1, 1899, "")
	s.ErrorIs(err, core.ErrInvalidYear)
}

func (s *ServicesSuite) TestMaterializeIsIdempotent() {
	s.rentAndSalary()
	result, err := s.months.CreateMonth(s.ctx, 7, 2025, "")
	s.Require().NoError(err)

	again, err := s.materializer.Materialize(s.ctx, result.Month.ID, 7, 2025)
	s.Require().NoError(err)
	s.Zero(again.Created)
	s.Equal(2, again.Skipped)

	m, err := s.months.GetMonth(s.ctx, result.Month.ID)
	s.Require().NoError(err)
	s.Equal("1500.00", m.TotalExpenses.StringFixed(2))
	s.Equal("4000.00", m.TotalIncome.StringFixed(2))
}

func (s *ServicesSuite) TestConcurrentMaterializeCreatesOnce() {
	s.rentAndSalary()
	m, err := s.repo.Months().Create(s.ctx, core.Month{Month: 8, Year: 2025})
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.materializer.Materialize(s.ctx, m.ID, 8, 2025)
			s.NoError(err)
		}()
	}
	wg.Wait()

	txs, err := s.transactions.ListTransactions(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Len(txs, 2)

	got, err := s.months.GetMonth(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal("4000.00", got.TotalIncome.StringFixed(2))
}

func (s *ServicesSuite) TestMaterializeClampsDayOfMonth() {
	day := 31
	_, err := s.templates.Create(s.ctx, TemplateInput{Name: "Insurance", AmountCAD: cad("80"), CategoryID: s.housing.ID, DayOfMonth: &day})
	s.Require().NoError(err)

	result, err := s.months.CreateMonth(s.ctx, 2, 2025, "")
	s.Require().NoError(err)

	txs, err := s.transactions.ListTransactions(s.ctx, result.Month.ID)
	s.Require().NoError(err)
	s.Require().Len(txs, 1)
	s.Equal(28, txs[0].Date.Day())
	s.Equal(time.February, txs[0].Date.Month())
}

func (s *ServicesSuite) TestMaterializationFailureDoesNotFailCreation() {
	gw := s.gw
	gw.Templates = failingTemplates{}
	months := NewMonthService(gw, NewMaterializer(gw, 2, nil), nil, nil)

	result, err := months.CreateMonth(s.ctx, 9, 2025, "")
	s.Require().NoError(err)
	s.Error(result.Err)
	s.NotZero(result.Month.ID)

	exists, err := s.repo.Months().ExistsByMonthYear(s.ctx, 9, 2025)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *ServicesSuite) TestPublishFailureIsIgnored() {
	s.events.err = errors.New("broker down")

	result, err := s.months.CreateMonth(s.ctx, 7, 2025, "")
	s.Require().NoError(err)
	s.NoError(result.Err)
	s.Len(s.events.types(), 2)
}

func (s *ServicesSuite) TestDeleteMonth() {
	empty, err := s.months.CreateMonth(s.ctx, 5, 2025, "")
	s.Require().NoError(err)
	s.Require().NoError(s.months.DeleteMonth(s.ctx, empty.Month.ID))

	s.rentAndSalary()
	full, err := s.months.CreateMonth(s.ctx, 6, 2025, "")
	s.Require().NoError(err)

	err = s.months.DeleteMonth(s.ctx, full.Month.ID)
	s.ErrorIs(err, core.ErrHasDependents)
	var hasTx *core.HasTransactionsError
	s.Require().ErrorAs(err, &hasTx)
	s.Equal(int64(2), hasTx.Count)

	s.ErrorIs(s.months.DeleteMonth(s.ctx, 999), core.ErrNotFound)
}

func (s *ServicesSuite) TestEnsureMonth() {
	m, created, err := s.months.EnsureMonth(s.ctx, 6, 2025)
	s.Require().NoError(err)
	s.True(created)

	again, created, err := s.months.EnsureMonth(s.ctx, 6, 2025)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(m.ID, again.ID)
}

func (s *ServicesSuite) TestSummaryUsesClock() {
	result, err := s.months.CreateMonth(s.ctx, 6, 2025, "")
	s.Require().NoError(err)

	summary, err := s.months.Summary(s.ctx, result.Month.ID)
	s.Require().NoError(err)
	s.True(summary.Metrics.IsCurrentMonth)
	s.Equal(10, summary.Metrics.DaysPassedInMonth)
	s.Equal(20, summary.Metrics.DaysLeftInMonth)
}

func (s *ServicesSuite) TestUpdateNotesAndLatest() {
	_, err := s.months.CreateMonth(s.ctx, 5, 2025, "")
	s.Require().NoError(err)
	june, err := s.months.CreateMonth(s.ctx, 6, 2025, "")
	s.Require().NoError(err)

	updated, err := s.months.UpdateNotes(s.ctx, june.Month.ID, "vacation")
	s.Require().NoError(err)
	s.Equal("vacation", updated.Notes)

	latest, err := s.months.LatestMonth(s.ctx)
	s.Require().NoError(err)
	s.Equal(june.Month.ID, latest.ID)

	found, err := s.months.FindMonth(s.ctx, 5, 2025)
	s.Require().NoError(err)
	s.Equal(5, found.Month)

	all, err := s.months.ListMonths(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *ServicesSuite) TestCreateTransactionEnsuresMonthAndUpdatesAggregates() {
	tx, err := s.transactions.CreateTransaction(s.ctx, TransactionInput{
		Name:       "Hotel in Seattle",
		AmountUSD:  cad("100"),
		CategoryID: s.housing.ID,
		Date:       time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)
	s.Equal("135.00", tx.AmountCAD.StringFixed(2))
	s.True(tx.AmountUSD.Valid)
	s.False(tx.Recurring)

	m, err := s.months.FindMonth(s.ctx, 7, 2025)
	s.Require().NoError(err)
	s.Equal(tx.MonthID, m.ID)
	s.Equal("135.00", m.TotalExpenses.StringFixed(2))
	s.True(m.RecurringExpenses.IsZero())

	s.Contains(s.events.types(), amqp.EventMonthUpdated)

	usd, err := s.transactions.USDSpending(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal("100.00", usd.AmountUSD.StringFixed(2))

	spending, err := s.transactions.SpendingByCategory(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Require().Len(spending, 1)
	s.Equal("Housing", spending[0].Name)
}

func (s *ServicesSuite) TestCreateTransactionRejectsBadInput() {
	date := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)

	_, err := s.transactions.CreateTransaction(s.ctx, TransactionInput{Name: "x", CategoryID: s.housing.ID, Date: date})
	s.ErrorIs(err, core.ErrInvalidAmount)

	_, err = s.transactions.CreateTransaction(s.ctx, TransactionInput{Name: "x", AmountCAD: cad("5"), CategoryID: s.housing.ID, Type: "transfer", Date: date})
	s.ErrorIs(err, core.ErrInvalidTransactionType)

	_, err = s.transactions.CreateTransaction(s.ctx, TransactionInput{Name: "x", AmountCAD: cad("5"), CategoryID: 999, Date: date})
	s.ErrorIs(err, core.ErrNotFound)

	exists, err := s.repo.Months().ExistsByMonthYear(s.ctx, 7, 2025)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *ServicesSuite) TestTemplateValidation() {
	s.rentAndSalary()

	_, err := s.templates.Create(s.ctx, TemplateInput{Name: "Rent", AmountCAD: cad("1"), CategoryID: s.housing.ID})
	s.ErrorIs(err, core.ErrAlreadyExists)

	_, err = s.templates.Create(s.ctx, TemplateInput{Name: "Gym", CategoryID: s.housing.ID})
	s.ErrorIs(err, core.ErrInvalidAmount)

	day := 32
	_, err = s.templates.Create(s.ctx, TemplateInput{Name: "Gym", AmountCAD: cad("40"), CategoryID: s.housing.ID, DayOfMonth: &day})
	s.ErrorIs(err, core.ErrInvalidDayOfMonth)

	_, err = s.templates.Create(s.ctx, TemplateInput{Name: "  ", AmountCAD: cad("40"), CategoryID: s.housing.ID})
	s.ErrorIs(err, core.ErrEmptyName)

	_, err = s.templates.Create(s.ctx, TemplateInput{Name: "Gym", AmountCAD: cad("40"), CategoryID: 999})
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *ServicesSuite) TestTemplateNormalizesUSD() {
	rt, err := s.templates.Create(s.ctx, TemplateInput{Name: "Streaming", AmountUSD: cad("10.50"), CategoryID: s.housing.ID})
	s.Require().NoError(err)
	s.Equal("14.18", rt.Amounts.CAD.Decimal.StringFixed(2))
	s.Equal("10.50", rt.Amounts.USD.Decimal.StringFixed(2))
	s.Equal(core.Expense, rt.Type)
}

func (s *ServicesSuite) TestTemplateUpdateAndDelete() {
	s.rentAndSalary()
	list, err := s.templates.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)

	var rent core.RecurringTemplate
	for _, rt := range list {
		if rt.Name == "Rent" {
			rent = rt
		}
	}

	_, err = s.templates.Update(s.ctx, rent.ID, TemplateInput{Name: "Salary", AmountCAD: cad("1600"), CategoryID: s.housing.ID})
	s.ErrorIs(err, core.ErrAlreadyExists)

	updated, err := s.templates.Update(s.ctx, rent.ID, TemplateInput{Name: "Rent", AmountCAD: cad("1600"), CategoryID: s.housing.ID})
	s.Require().NoError(err)
	s.Equal("1600.00", updated.Amounts.CAD.Decimal.StringFixed(2))

	s.Require().NoError(s.templates.Delete(s.ctx, rent.ID))
	_, err = s.templates.Get(s.ctx, rent.ID)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *ServicesSuite) TestRecurringTotalsSurviveTemplateDeletion() {
	s.rentAndSalary()
	result, err := s.months.CreateMonth(s.ctx, 7, 2025, "")
	s.Require().NoError(err)

	list, err := s.templates.List(s.ctx)
	s.Require().NoError(err)
	for _, rt := range list {
		s.Require().NoError(s.templates.Delete(s.ctx, rt.ID))
	}

	s.Require().NoError(s.months.RecalculateRecurringExpenses(s.ctx, nil))
	m, err := s.months.GetMonth(s.ctx, result.Month.ID)
	s.Require().NoError(err)
	s.Equal("1500.00", m.RecurringExpenses.StringFixed(2))
}

func (s *ServicesSuite) TestCategories() {
	_, err := s.categories.Create(s.ctx, "Housing", "Expense")
	s.ErrorIs(err, core.ErrAlreadyExists)

	_, err = s.categories.Create(s.ctx, "Misc", "weekly")
	s.ErrorIs(err, core.ErrInvalidTransactionType)

	list, err := s.categories.List(s.ctx)
	s.Require().NoError(err)
	s.Len(list, 2)
}

func (s *ServicesSuite) TestRolloverRun() {
	s.rentAndSalary()
	rollover := NewMonthRollover(s.months, DefaultRolloverConfig(), nil)

	m, created, err := rollover.Run(s.ctx, s.now)
	s.Require().NoError(err)
	s.True(created)
	s.Equal("2025-06", m.String())
	s.Equal("4000.00", m.TotalIncome.StringFixed(2))

	_, created, err = rollover.Run(s.ctx, s.now.Add(24*time.Hour))
	s.Require().NoError(err)
	s.False(created)
}

func (s *ServicesSuite) TestRolloverLifecycle() {
	rollover := NewMonthRollover(s.months, RolloverConfig{Interval: time.Hour}, nil, WithClock(func() time.Time { return s.now }))
	s.False(rollover.IsRunning())
	s.NoError(rollover.Stop(s.ctx))

	s.Require().NoError(rollover.Start(s.ctx))
	s.True(rollover.IsRunning())
	s.Error(rollover.Start(s.ctx))

	s.Eventually(func() bool {
		exists, err := s.repo.Months().ExistsByMonthYear(s.ctx, 6, 2025)
		return err == nil && exists
	}, 5*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	s.Require().NoError(rollover.Stop(stopCtx))
	s.False(rollover.IsRunning())
}

func (s *ServicesSuite) TestRolloverRestartsAfterContextCancel() {
	rollover := NewMonthRollover(s.months, RolloverConfig{Interval: time.Hour}, nil, WithClock(func() time.Time { return s.now }))

	ctx, cancel := context.WithCancel(s.ctx)
	s.Require().NoError(rollover.Start(ctx))
	cancel()

	s.Eventually(func() bool { return !rollover.IsRunning() }, 5*time.Second, 10*time.Millisecond)
	s.NoError(rollover.Stop(s.ctx))

	s.Require().NoError(rollover.Start(s.ctx))
	s.True(rollover.IsRunning())

	stopCtx, stopCancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer stopCancel()
	s.Require().NoError(rollover.Stop(stopCtx))
	s.False(rollover.IsRunning())
}
