package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names an order lifecycle event.
type EventType string

const (
	EventOrderPlaced    EventType = "order.placed"
	EventOrderCancelled EventType = "order.cancelled"
)

// Envelope is the stable message structure written to the orders topic.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  EventType       `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// OrderLine is one product quantity carried by an order event.
type OrderLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

// OrderEvent is the payload of order.placed and order.cancelled.
type OrderEvent struct {
	OrderID int64       `json:"orderId"`
	UserID  int64       `json:"userId"`
	Items   []OrderLine `json:"items"`
}

// NewEnvelope marshals data into a fresh envelope.
func NewEnvelope(eventType EventType, data any, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Version:    1,
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: now.UTC(),
		Data:       raw,
	}, nil
}
