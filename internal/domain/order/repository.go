package order

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository persists orders together with all of their lines
type OrderRepository interface {
	// FindByID loads the order and every line, deleted ones included
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByIDForOrganization(ctx context.Context, organizationID, id uuid.UUID) (*Order, error)
	// Save inserts a new order with its lines
	Save(ctx context.Context, order *Order) error
	// SaveWithLock updates the order if its version still matches and
	// upserts its lines. A stale version yields CONCURRENT_MODIFICATION.
	SaveWithLock(ctx context.Context, order *Order) error
}

// EventRepository is the append-only store for order audit records
type EventRepository interface {
	Append(ctx context.Context, events ...OrderEvent) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderEvent, error)
}
