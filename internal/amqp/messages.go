package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// EventType doubles as the routing key on the topic exchange.
type EventType string

const (
	EventMonthCreated      EventType = "month.created"
	EventMonthMaterialized EventType = "month.materialized"
	EventMonthUpdated      EventType = "month.updated"
)

// MonthEvent describes a change to a month and its aggregates. Created and
// Failed are only set on month.materialized.
type MonthEvent struct {
	ID                uuid.UUID       `json:"id"`
	Type              EventType       `json:"type"`
	MonthID           int64           `json:"month_id"`
	Month             int             `json:"month"`
	Year              int             `json:"year"`
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalExpenses     decimal.Decimal `json:"total_expenses"`
	RecurringExpenses decimal.Decimal `json:"recurring_expenses"`
	Created           int             `json:"created,omitempty"`
	Failed            int             `json:"failed,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
}

// NewMonthEvent snapshots m into an event of the given type.
func NewMonthEvent(typ EventType, m core.Month, now time.Time) MonthEvent {
	return MonthEvent{
		ID:                uuid.New(),
		Type:              typ,
		MonthID:           m.ID,
		Month:             m.Month,
		Year:              m.Year,
		TotalIncome:       m.TotalIncome,
		TotalExpenses:     m.TotalExpenses,
		RecurringExpenses: m.RecurringExpenses,
		Timestamp:         now.UTC(),
	}
}

func (e MonthEvent) RoutingKey() string {
	return string(e.Type)
}

// ToJSON converts the event to JSON bytes
func (e MonthEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// MonthEventFromJSON decodes an event published by PublishMonthEvent.
func MonthEventFromJSON(data []byte) (MonthEvent, error) {
	var evt MonthEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return MonthEvent{}, err
	}
	return evt, nil
}
