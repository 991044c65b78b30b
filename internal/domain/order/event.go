package order

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an entry in the order's audit trail
type EventType string

const (
	EventTypeCreated        EventType = "created"
	EventTypeExported       EventType = "exported"
	EventTypeChangeAccepted EventType = "change_accepted"
	EventTypeChangeRejected EventType = "change_rejected"
	EventTypeUserReviewed   EventType = "user_reviewed"
	EventTypeUserEdit       EventType = "user_edit"
	EventTypeCancelled      EventType = "cancelled"
)

// IsValid checks if the event type is known
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeCreated, EventTypeExported, EventTypeChangeAccepted, EventTypeChangeRejected,
		EventTypeUserReviewed, EventTypeUserEdit, EventTypeCancelled:
		return true
	}
	return false
}

// OrderEvent is an append-only audit record. Once written it is never
// updated or deleted.
type OrderEvent struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	OrganizationID uuid.UUID
	Type           EventType
	Metadata       map[string]any
	CreatedAt      time.Time
}

// NewOrderEvent creates an audit record for the order
func NewOrderEvent(o *Order, eventType EventType, metadata map[string]any) OrderEvent {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return OrderEvent{
		ID:             uuid.New(),
		OrderID:        o.ID,
		OrganizationID: o.OrganizationID,
		Type:           eventType,
		Metadata:       metadata,
		CreatedAt:      time.Now(),
	}
}
