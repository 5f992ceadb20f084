package services

import (
	"context"
	"strings"

	"budget/internal/core"
	"budget/internal/log"
)

type CategoryService struct {
	categories CategoryGateway
	logger     *log.Logger
}

func NewCategoryService(gw Gateways, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.Nop()
	}
	return &CategoryService{categories: gw.Categories, logger: logger.WithComponent(log.ComponentCategory)}
}

func (s *CategoryService) Create(ctx context.Context, name, typ string) (core.Category, error) {
	t, err := core.ParseTransactionType(typ)
	if err != nil {
		return core.Category{}, err
	}
	c := core.Category{Name: strings.TrimSpace(name), Type: t}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.categories.Create(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.logger.Info("Category created", log.FieldCategoryID, created.ID, log.FieldName, created.Name)
	return created, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.Category, error) {
	return s.categories.FindByID(ctx, id)
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	return s.categories.List(ctx)
}
