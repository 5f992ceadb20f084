package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/metrics"
)

const DefaultMaterializeConcurrency = 4

// MaterializeFailure records a template that could not be expanded.
type MaterializeFailure struct {
	TemplateID int64
	Name       string
	Err        error
}

// MaterializeReport summarizes one materialization run.
type MaterializeReport struct {
	MonthID int64
	Created int
	Skipped int
	Failed  []MaterializeFailure
}

func (r MaterializeReport) Total() int {
	return r.Created + r.Skipped + len(r.Failed)
}

type templateOutcome int

const (
	outcomeCreated templateOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// Materializer expands recurring templates into concrete transactions of a
// month. Re-running it for the same month creates nothing new.
type Materializer struct {
	templates    TemplateGateway
	transactions TransactionGateway
	months       MonthGateway
	concurrency  int
	logger       *log.Logger
}

func NewMaterializer(gw Gateways, concurrency int, logger *log.Logger) *Materializer {
	if concurrency < 1 {
		concurrency = DefaultMaterializeConcurrency
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Materializer{
		templates:    gw.Templates,
		transactions: gw.Transactions,
		months:       gw.Months,
		concurrency:  concurrency,
		logger:       logger.WithComponent(log.ComponentRecurring),
	}
}

// Materialize creates one transaction per template in the given month, then
// recomputes the month's aggregates. Templates are not filtered by owner or
// category. Per-template failures are reported, not returned.
func (p *Materializer) Materialize(ctx context.Context, monthID int64, month, year int) (MaterializeReport, error) {
	start := time.Now()
	defer func() { metrics.ObserveMaterialize(time.Since(start).Seconds()) }()

	report := MaterializeReport{MonthID: monthID}

	templates, err := p.templates.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list recurring templates: %w", err)
	}

	p.logger.Info("Materializing recurring templates",
		log.FieldMonthID, monthID,
		log.FieldMonth, month,
		log.FieldYear, year,
		"templates", len(templates))

	outcomes := make([]templateOutcome, len(templates))
	errs := make([]error, len(templates))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, rt := range templates {
		i, rt := i, rt
		g.Go(func() error {
			outcomes[i], errs[i] = p.materializeOne(ctx, monthID, month, year, rt)
			return nil
		})
	}
	_ = g.Wait()

	for i, rt := range templates {
		switch outcomes[i] {
		case outcomeCreated:
			report.Created++
			metrics.TemplateMaterialized(metrics.ResultCreated)
		case outcomeSkipped:
			report.Skipped++
			metrics.TemplateMaterialized(metrics.ResultSkipped)
		case outcomeFailed:
			report.Failed = append(report.Failed, MaterializeFailure{TemplateID: rt.ID, Name: rt.Name, Err: errs[i]})
			metrics.TemplateMaterialized(metrics.ResultFailed)
			p.logger.Error("Failed to materialize recurring template",
				log.FieldTemplateID, rt.ID,
				log.FieldName, rt.Name,
				log.FieldMonthID, monthID,
				log.FieldError, errs[i])
		}
	}

	if _, err := recomputeAggregates(ctx, p.months, p.transactions, p.logger, monthID); err != nil {
		return report, fmt.Errorf("recompute month %d: %w", monthID, err)
	}

	p.logger.Info("Recurring template materialization complete",
		log.FieldMonthID, monthID,
		log.FieldCreated, report.Created,
		log.FieldSkipped, report.Skipped,
		log.FieldFailed, len(report.Failed))

	return report, nil
}

func (p *Materializer) materializeOne(ctx context.Context, monthID int64, month, year int, rt core.RecurringTemplate) (templateOutcome, error) {
	// Amounts were normalized when the template was defined.
	if !rt.Amounts.CAD.Valid {
		return outcomeFailed, fmt.Errorf("%w: template %q has no CAD amount", core.ErrInvalidAmount, rt.Name)
	}

	tx := core.Transaction{
		OwnerID:    rt.OwnerID,
		CategoryID: rt.CategoryID,
		Name:       rt.Name,
		AmountCAD:  rt.Amounts.CAD.Decimal,
		AmountUSD:  rt.Amounts.USD,
		Type:       rt.Type,
		Date:       rt.DateIn(year, month),
		Notes:      rt.MaterializedNote(),
	}

	created, ok, err := p.transactions.CreateFromTemplate(ctx, monthID, rt.ID, tx)
	if err != nil {
		return outcomeFailed, err
	}
	if !ok {
		p.logger.Debug("Recurring template already materialized",
			log.FieldTemplateID, rt.ID, log.FieldMonthID, monthID)
		return outcomeSkipped, nil
	}

	p.logger.Debug("Created transaction from recurring template",
		log.FieldTemplateID, rt.ID,
		log.FieldName, rt.Name,
		"transaction_id", created.ID,
		log.FieldAmountCAD, created.AmountCAD.String())
	return outcomeCreated, nil
}
