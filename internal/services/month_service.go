package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/metrics"
)

// CreateMonthResult is the outcome of CreateMonth. Err holds the best-effort
// materialization failure, if any; the month exists regardless.
type CreateMonthResult struct {
	Month           core.Month
	Materialization MaterializeReport
	Err             error
}

// MonthService owns the month lifecycle.
type MonthService struct {
	months       MonthGateway
	transactions TransactionGateway
	materializer *Materializer
	events       EventPublisher
	logger       *log.Logger
	now          func() time.Time
}

// NewMonthService wires the month use cases. materializer and events may be
// nil to disable template expansion and event publishing.
func NewMonthService(gw Gateways, materializer *Materializer, events EventPublisher, logger *log.Logger, opts ...Option) *MonthService {
	if logger == nil {
		logger = log.Nop()
	}
	s := applyOptions(opts)
	return &MonthService{
		months:       gw.Months,
		transactions: gw.Transactions,
		materializer: materializer,
		events:       events,
		logger:       logger.WithComponent(log.ComponentMonth),
		now:          s.now,
	}
}

// CreateMonth creates an empty month and expands every recurring template
// into it. A materialization failure is logged and reported in the result
// but does not fail the creation.
func (s *MonthService) CreateMonth(ctx context.Context, month, year int, notes string) (CreateMonthResult, error) {
	if err := core.ValidateMonthYear(month, year); err != nil {
		return CreateMonthResult{}, err
	}

	exists, err := s.months.ExistsByMonthYear(ctx, month, year)
	if err != nil {
		return CreateMonthResult{}, fmt.Errorf("check month: %w", err)
	}
	m := core.Month{Month: month, Year: year, Notes: notes}
	if exists {
		return CreateMonthResult{}, core.NewAlreadyExists("month", m.String())
	}

	created, err := s.months.Create(ctx, m)
	if err != nil {
		return CreateMonthResult{}, err
	}
	metrics.MonthCreated()
	s.logger.Info("Month created", log.FieldMonthID, created.ID, log.FieldMonth, month, log.FieldYear, year)
	s.publish(ctx, amqp.NewMonthEvent(amqp.EventMonthCreated, created, s.now()))

	result := CreateMonthResult{Month: created}
	if s.materializer == nil {
		return result, nil
	}

	report, err := s.materializer.Materialize(ctx, created.ID, month, year)
	result.Materialization = report
	if err != nil {
		s.logger.Error("Recurring materialization failed for new month",
			log.FieldMonthID, created.ID, log.FieldError, err)
		result.Err = err
		return result, nil
	}

	if refreshed, err := s.months.FindByID(ctx, created.ID); err == nil {
		result.Month = refreshed
	} else {
		s.logger.Warn("Failed to reload month after materialization", log.FieldMonthID, created.ID, log.FieldError, err)
	}

	evt := amqp.NewMonthEvent(amqp.EventMonthMaterialized, result.Month, s.now())
	evt.Created, evt.Failed = report.Created, len(report.Failed)
	s.publish(ctx, evt)

	return result, nil
}

// EnsureMonth returns the month for (month, year), creating it when absent.
func (s *MonthService) EnsureMonth(ctx context.Context, month, year int) (core.Month, bool, error) {
	existing, err := s.months.Find(ctx, month, year)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Month{}, false, err
	}

	result, err := s.CreateMonth(ctx, month, year, "")
	if errors.Is(err, core.ErrAlreadyExists) {
		// lost a creation race
		existing, err := s.months.Find(ctx, month, year)
		return existing, false, err
	}
	if err != nil {
		return core.Month{}, false, err
	}
	return result.Month, true, nil
}

func (s *MonthService) GetMonth(ctx context.Context, id int64) (core.Month, error) {
	return s.months.FindByID(ctx, id)
}

func (s *MonthService) FindMonth(ctx context.Context, month, year int) (core.Month, error) {
	if err := core.ValidateMonthYear(month, year); err != nil {
		return core.Month{}, err
	}
	return s.months.Find(ctx, month, year)
}

func (s *MonthService) LatestMonth(ctx context.Context) (core.Month, error) {
	return s.months.FindLatest(ctx)
}

func (s *MonthService) ListMonths(ctx context.Context) ([]core.Month, error) {
	return s.months.List(ctx)
}

func (s *MonthService) UpdateNotes(ctx context.Context, id int64, notes string) (core.Month, error) {
	return s.months.Update(ctx, id, core.MonthUpdate{Notes: &notes})
}

// Summary returns the month with its metrics evaluated at the current time.
func (s *MonthService) Summary(ctx context.Context, id int64) (core.MonthSummary, error) {
	m, err := s.months.FindByID(ctx, id)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.MonthSummary{Month: m, Metrics: m.Metrics(s.now())}, nil
}

// DeleteMonth removes a month that no transaction references.
func (s *MonthService) DeleteMonth(ctx context.Context, id int64) error {
	if _, err := s.months.FindByID(ctx, id); err != nil {
		return err
	}
	has, count, err := s.months.HasTransactions(ctx, id)
	if err != nil {
		return fmt.Errorf("check transactions: %w", err)
	}
	if has {
		return &core.HasTransactionsError{MonthID: id, Count: count}
	}
	if err := s.months.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Month deleted", log.FieldMonthID, id)
	return nil
}

// RecalculateRecurringExpenses repairs recurring_expenses for one month, or
// all months when monthID is nil.
func (s *MonthService) RecalculateRecurringExpenses(ctx context.Context, monthID *int64) error {
	if err := s.months.RecalculateRecurringExpenses(ctx, monthID); err != nil {
		return fmt.Errorf("recalculate recurring expenses: %w", err)
	}
	return nil
}

// Recompute rewrites a month's aggregates from its transactions.
func (s *MonthService) Recompute(ctx context.Context, id int64) (core.Month, error) {
	m, err := recomputeAggregates(ctx, s.months, s.transactions, s.logger, id)
	if err != nil {
		return core.Month{}, err
	}
	s.publish(ctx, amqp.NewMonthEvent(amqp.EventMonthUpdated, m, s.now()))
	return m, nil
}

func (s *MonthService) publish(ctx context.Context, evt amqp.MonthEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishMonthEvent(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish month event",
			log.FieldRoutingKey, evt.RoutingKey(),
			log.FieldMonthID, evt.MonthID,
			log.FieldError, err)
	}
}
