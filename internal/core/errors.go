package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrAlreadyExists          = errors.New("already exists")
	ErrHasDependents          = errors.New("has dependent records")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrMissingAmount          = fmt.Errorf("%w: either CAD or USD amount must be provided", ErrInvalidAmount)
	ErrInvalidDayOfMonth      = errors.New("invalid day of month")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidMonth           = errors.New("invalid month")
	ErrInvalidYear            = errors.New("invalid year")
	ErrEmptyName              = errors.New("empty name")
	ErrExchangeRateFetch      = errors.New("exchange rate fetch failed")
	ErrStaleExchangeRate      = errors.New("exchange rate is stale")
	ErrConcurrentUpdate       = errors.New("concurrent update")
)

// NotFoundError reports a missing entity. It matches ErrNotFound.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound builds a NotFoundError for the entity identified by key.
func NewNotFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

// AlreadyExistsError reports a uniqueness collision. It matches ErrAlreadyExists.
type AlreadyExistsError struct {
	Entity string
	Key    string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Entity, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// NewAlreadyExists builds an AlreadyExistsError for the entity identified by key.
func NewAlreadyExists(entity string, key any) error {
	return &AlreadyExistsError{Entity: entity, Key: fmt.Sprint(key)}
}

// HasTransactionsError is returned when deleting a month that is still
// referenced by transactions. It matches ErrHasDependents.
type HasTransactionsError struct {
	MonthID int64
	Count   int64
}

func (e *HasTransactionsError) Error() string {
	return fmt.Sprintf("month %d has %d transaction(s)", e.MonthID, e.Count)
}

func (e *HasTransactionsError) Is(target error) bool {
	return target == ErrHasDependents
}
