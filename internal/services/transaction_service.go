package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/log"
)

// TransactionInput is an unparsed ledger entry.
type TransactionInput struct {
	OwnerID    string
	Name       string
	AmountCAD  decimal.NullDecimal
	AmountUSD  decimal.NullDecimal
	CategoryID int64
	Type       string
	Date       time.Time
	Notes      string
}

// TransactionService records direct transactions and keeps the owning
// month's aggregates current.
type TransactionService struct {
	transactions TransactionGateway
	categories   CategoryGateway
	months       *MonthService
	normalizer   AmountNormalizer
	logger       *log.Logger
}

func NewTransactionService(gw Gateways, months *MonthService, normalizer AmountNormalizer, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Nop()
	}
	return &TransactionService{
		transactions: gw.Transactions,
		categories:   gw.Categories,
		months:       months,
		normalizer:   normalizer,
		logger:       logger.WithComponent(log.ComponentTxn),
	}
}

// CreateTransaction stores a transaction in the month containing its date,
// creating that month first when needed. The transaction is persisted before
// aggregates are recomputed; a recompute error is returned alongside it.
func (s *TransactionService) CreateTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(in.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	amounts, err := s.normalizer.Normalize(ctx, in.AmountCAD, in.AmountUSD)
	if err != nil {
		return core.Transaction{}, err
	}
	if in.Date.IsZero() {
		return core.Transaction{}, fmt.Errorf("transaction date cannot be zero")
	}
	if _, err := s.categories.FindByID(ctx, in.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		OwnerID:    in.OwnerID,
		CategoryID: in.CategoryID,
		Name:       strings.TrimSpace(in.Name),
		AmountCAD:  amounts.CAD.Decimal,
		AmountUSD:  amounts.USD,
		Type:       typ,
		Date:       in.Date,
		Notes:      in.Notes,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	month, _, err := s.months.EnsureMonth(ctx, int(in.Date.Month()), in.Date.Year())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("ensure month: %w", err)
	}
	tx.MonthID = month.ID

	created, err := s.transactions.Create(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}
	s.logger.Info("Transaction created",
		"transaction_id", created.ID,
		log.FieldMonthID, month.ID,
		log.FieldAmountCAD, created.AmountCAD.String())

	if _, err := s.months.Recompute(ctx, month.ID); err != nil {
		s.logger.Error("Failed to recompute month aggregates", log.FieldMonthID, month.ID, log.FieldError, err)
		return created, fmt.Errorf("recompute month %d: %w", month.ID, err)
	}
	return created, nil
}

func (s *TransactionService) ListTransactions(ctx context.Context, monthID int64) ([]core.Transaction, error) {
	if _, err := s.months.GetMonth(ctx, monthID); err != nil {
		return nil, err
	}
	return s.transactions.ListByMonth(ctx, monthID)
}

func (s *TransactionService) ListByCategory(ctx context.Context, categoryID int64) ([]core.Transaction, error) {
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.transactions.ListByCategory(ctx, categoryID)
}

func (s *TransactionService) ListAll(ctx context.Context) ([]core.Transaction, error) {
	return s.transactions.ListAll(ctx)
}

func (s *TransactionService) SpendingByCategory(ctx context.Context, monthID int64) ([]core.CategorySpending, error) {
	if _, err := s.months.GetMonth(ctx, monthID); err != nil {
		return nil, err
	}
	return s.transactions.SpendingByCategory(ctx, monthID)
}

func (s *TransactionService) USDSpending(ctx context.Context, monthID int64) (core.USDSpending, error) {
	if _, err := s.months.GetMonth(ctx, monthID); err != nil {
		return core.USDSpending{}, err
	}
	return s.transactions.USDSpending(ctx, monthID)
}
