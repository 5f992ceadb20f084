package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
)

const (
	MinYear = 1900
	MaxYear = 2100

	maxNameLength = 200
)

type (
	// TransactionType is the closed set of ledger directions. It is parsed
	// once at the boundary and never re-validated downstream.
	TransactionType string

	// AmountPair is a CAD/USD amount pair where either side may be absent.
	AmountPair struct {
		CAD decimal.NullDecimal
		USD decimal.NullDecimal
	}

	Category struct {
		ID        int64
		Name      string
		Type      TransactionType
		CreatedAt time.Time
	}

	// RecurringTemplate is a reusable definition of a monthly income or expense.
	RecurringTemplate struct {
		ID         int64
		OwnerID    string
		Name       string
		Amounts    AmountPair
		CategoryID int64
		Notes      string
		DayOfMonth *int // nil means the first of the month
		Type       TransactionType
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	// Transaction is a concrete, dated ledger entry.
	Transaction struct {
		ID         int64
		OwnerID    string
		MonthID    int64
		CategoryID int64
		TemplateID *int64 // set when materialized from a template
		Recurring  bool   // survives template deletion, unlike TemplateID
		Name       string
		AmountCAD  decimal.Decimal
		AmountUSD  decimal.NullDecimal
		Type       TransactionType
		Date       time.Time
		Notes      string
		CreatedAt  time.Time
	}
)

// ParseTransactionType accepts "Income" or "Expense" (case-insensitive). The
// empty string defaults to Expense.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Expense, nil
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
	}
}

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

// NewAmountPair builds a pair from optional values.
func NewAmountPair(cad, usd *decimal.Decimal) AmountPair {
	var p AmountPair
	if cad != nil {
		p.CAD = decimal.NewNullDecimal(*cad)
	}
	if usd != nil {
		p.USD = decimal.NewNullDecimal(*usd)
	}
	return p
}

// Validate checks that at least one side is present and every present side is
// strictly positive.
func (p AmountPair) Validate() error {
	if !p.CAD.Valid && !p.USD.Valid {
		return ErrMissingAmount
	}
	if p.CAD.Valid && !p.CAD.Decimal.IsPositive() {
		return fmt.Errorf("%w: CAD amount must be positive", ErrInvalidAmount)
	}
	if p.USD.Valid && !p.USD.Decimal.IsPositive() {
		return fmt.Errorf("%w: USD amount must be positive", ErrInvalidAmount)
	}
	return nil
}

// ValidateDayOfMonth accepts nil or a value in [1,31].
func ValidateDayOfMonth(day *int) error {
	if day == nil {
		return nil
	}
	if *day < 1 || *day > 31 {
		return fmt.Errorf("%w: %d", ErrInvalidDayOfMonth, *day)
	}
	return nil
}

func validateName(name string) error {
	if len(strings.TrimSpace(name)) == 0 {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name too long (max %d characters)", maxNameLength)
	}
	return nil
}

func (c Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionType, c.Type)
	}
	return nil
}

// Validate checks a template after amount normalization.
func (rt RecurringTemplate) Validate() error {
	if err := validateName(rt.Name); err != nil {
		return err
	}
	if err := rt.Amounts.Validate(); err != nil {
		return err
	}
	if err := ValidateDayOfMonth(rt.DayOfMonth); err != nil {
		return err
	}
	if !rt.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionType, rt.Type)
	}
	return nil
}

// Day returns the configured day of month, defaulting to 1.
func (rt RecurringTemplate) Day() int {
	if rt.DayOfMonth == nil {
		return 1
	}
	return *rt.DayOfMonth
}

// DateIn returns the template's occurrence in the given month. Days past the
// end of a short month are clamped to its last day.
func (rt RecurringTemplate) DateIn(year, month int) time.Time {
	day := rt.Day()
	if last := DaysIn(month, year); day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// MaterializedNote is the note stamped on transactions generated from rt.
func (rt RecurringTemplate) MaterializedNote() string {
	note := fmt.Sprintf("Auto-generated from recurring template %q", rt.Name)
	if notes := strings.TrimSpace(rt.Notes); notes != "" {
		note += ": " + notes
	}
	return note
}

func (t Transaction) Validate() error {
	if err := validateName(t.Name); err != nil {
		return err
	}
	if !t.AmountCAD.IsPositive() {
		return fmt.Errorf("%w: CAD amount must be positive", ErrInvalidAmount)
	}
	if t.AmountUSD.Valid && !t.AmountUSD.Decimal.IsPositive() {
		return fmt.Errorf("%w: USD amount must be positive", ErrInvalidAmount)
	}
	if !t.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionType, t.Type)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}
	return nil
}
