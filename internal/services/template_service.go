package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/log"
)

// TemplateInput is an unparsed recurring template definition.
type TemplateInput struct {
	OwnerID    string
	Name       string
	AmountCAD  decimal.NullDecimal
	AmountUSD  decimal.NullDecimal
	CategoryID int64
	Notes      string
	DayOfMonth *int
	Type       string
}

type TemplateService struct {
	templates  TemplateGateway
	categories CategoryGateway
	normalizer AmountNormalizer
	logger     *log.Logger
}

func NewTemplateService(gw Gateways, normalizer AmountNormalizer, logger *log.Logger) *TemplateService {
	if logger == nil {
		logger = log.Nop()
	}
	return &TemplateService{
		templates:  gw.Templates,
		categories: gw.Categories,
		normalizer: normalizer,
		logger:     logger.WithComponent(log.ComponentTemplate),
	}
}

// build parses and normalizes in. Amounts are resolved once here so that
// materialization copies them without converting again.
func (s *TemplateService) build(ctx context.Context, in TemplateInput) (core.RecurringTemplate, error) {
	typ, err := core.ParseTransactionType(in.Type)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	if err := core.ValidateDayOfMonth(in.DayOfMonth); err != nil {
		return core.RecurringTemplate{}, err
	}
	amounts, err := s.normalizer.Normalize(ctx, in.AmountCAD, in.AmountUSD)
	if err != nil {
		return core.RecurringTemplate{}, err
	}

	rt := core.RecurringTemplate{
		OwnerID:    in.OwnerID,
		Name:       strings.TrimSpace(in.Name),
		Amounts:    amounts,
		CategoryID: in.CategoryID,
		Notes:      in.Notes,
		DayOfMonth: in.DayOfMonth,
		Type:       typ,
	}
	if err := rt.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}
	if _, err := s.categories.FindByID(ctx, in.CategoryID); err != nil {
		return core.RecurringTemplate{}, err
	}
	return rt, nil
}

func (s *TemplateService) Create(ctx context.Context, in TemplateInput) (core.RecurringTemplate, error) {
	rt, err := s.build(ctx, in)
	if err != nil {
		return core.RecurringTemplate{}, err
	}

	exists, err := s.templates.ExistsByName(ctx, rt.Name)
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("check template name: %w", err)
	}
	if exists {
		return core.RecurringTemplate{}, core.NewAlreadyExists("recurring template", rt.Name)
	}

	created, err := s.templates.Create(ctx, rt)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	s.logger.Info("Recurring template created", log.FieldTemplateID, created.ID, log.FieldName, created.Name)
	return created, nil
}

// Update replaces the content of template id. Months already materialized
// keep their transactions.
func (s *TemplateService) Update(ctx context.Context, id int64, in TemplateInput) (core.RecurringTemplate, error) {
	current, err := s.templates.FindByID(ctx, id)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	rt, err := s.build(ctx, in)
	if err != nil {
		return core.RecurringTemplate{}, err
	}

	if rt.Name != current.Name {
		exists, err := s.templates.ExistsByName(ctx, rt.Name)
		if err != nil {
			return core.RecurringTemplate{}, fmt.Errorf("check template name: %w", err)
		}
		if exists {
			return core.RecurringTemplate{}, core.NewAlreadyExists("recurring template", rt.Name)
		}
	}

	rt.ID = id
	updated, err := s.templates.Update(ctx, rt)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	s.logger.Info("Recurring template updated", log.FieldTemplateID, id, log.FieldName, updated.Name)
	return updated, nil
}

func (s *TemplateService) Delete(ctx context.Context, id int64) error {
	if err := s.templates.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Recurring template deleted", log.FieldTemplateID, id)
	return nil
}

func (s *TemplateService) Get(ctx context.Context, id int64) (core.RecurringTemplate, error) {
	return s.templates.FindByID(ctx, id)
}

func (s *TemplateService) List(ctx context.Context) ([]core.RecurringTemplate, error) {
	return s.templates.List(ctx)
}
