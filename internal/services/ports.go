// Package services holds the budget use cases. Persistence is reached through
// the gateway interfaces below, satisfied by both the SQLite stores and their
// cache-fronted decorators.
package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/storage"
)

type MonthGateway interface {
	Find(ctx context.Context, month, year int) (core.Month, error)
	FindByID(ctx context.Context, id int64) (core.Month, error)
	FindLatest(ctx context.Context) (core.Month, error)
	List(ctx context.Context) ([]core.Month, error)
	Create(ctx context.Context, m core.Month) (core.Month, error)
	Update(ctx context.Context, id int64, upd core.MonthUpdate) (core.Month, error)
	Delete(ctx context.Context, id int64) error
	ExistsByMonthYear(ctx context.Context, month, year int) (bool, error)
	HasTransactions(ctx context.Context, id int64) (bool, int64, error)
	RecalculateRecurringExpenses(ctx context.Context, monthID *int64) error
}

type TemplateGateway interface {
	List(ctx context.Context) ([]core.RecurringTemplate, error)
	FindByID(ctx context.Context, id int64) (core.RecurringTemplate, error)
	Create(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error)
	Update(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error)
	Delete(ctx context.Context, id int64) error
	ExistsByName(ctx context.Context, name string) (bool, error)
}

type TransactionGateway interface {
	Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
	// CreateFromTemplate is a no-op returning created=false when the
	// (month, template) pair was already materialized.
	CreateFromTemplate(ctx context.Context, monthID, templateID int64, t core.Transaction) (core.Transaction, bool, error)
	GroupTotalsByType(ctx context.Context, monthID int64) (core.TypeTotals, error)
	ListByMonth(ctx context.Context, monthID int64) ([]core.Transaction, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]core.Transaction, error)
	ListAll(ctx context.Context) ([]core.Transaction, error)
	SpendingByCategory(ctx context.Context, monthID int64) ([]core.CategorySpending, error)
	USDSpending(ctx context.Context, monthID int64) (core.USDSpending, error)
}

type CategoryGateway interface {
	List(ctx context.Context) ([]core.Category, error)
	FindByID(ctx context.Context, id int64) (core.Category, error)
	Create(ctx context.Context, c core.Category) (core.Category, error)
}

// Gateways bundles one implementation of every gateway.
type Gateways struct {
	Months       MonthGateway
	Templates    TemplateGateway
	Transactions TransactionGateway
	Categories   CategoryGateway
}

func SQLiteGateways(r *storage.SQLiteRepository) Gateways {
	return Gateways{
		Months:       r.Months(),
		Templates:    r.Templates(),
		Transactions: r.Transactions(),
		Categories:   r.Categories(),
	}
}

func CachedGateways(r *storage.CachedRepository) Gateways {
	return Gateways{
		Months:       r.Months(),
		Templates:    r.Templates(),
		Transactions: r.Transactions(),
		Categories:   r.Categories(),
	}
}

// AmountNormalizer resolves a CAD/USD pair; see currency.Normalizer.
type AmountNormalizer interface {
	Normalize(ctx context.Context, cad, usd decimal.NullDecimal) (core.AmountPair, error)
}

// EventPublisher publishes month events. A nil publisher disables events.
type EventPublisher interface {
	PublishMonthEvent(ctx context.Context, evt amqp.MonthEvent) error
}

type settings struct {
	now func() time.Time
}

type Option func(*settings)

// WithClock sets the time source used for time-relative metrics and events.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

func applyOptions(opts []Option) settings {
	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
