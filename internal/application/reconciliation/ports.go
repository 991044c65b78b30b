package reconciliation

import (
	"context"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/feedback"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/proposal"
	"github.com/google/uuid"
)

// TransactionalRepositories exposes the repositories bound to one transaction
type TransactionalRepositories interface {
	Orders() order.OrderRepository
	OrderEvents() order.EventRepository
	Proposals() proposal.ProposalRepository
	Accuracy() feedback.AccuracyRepository
}

// TransactionScope runs fn in a single database transaction.
// If fn returns an error every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// OrderLocker serializes reconciliation on one order across processes.
// It is best-effort: the optimistic version check on the order remains the
// source of truth.
type OrderLocker interface {
	// Lock returns a release func. acquired is false when the lock is held
	// elsewhere and the caller proceeds without it.
	Lock(ctx context.Context, orderID uuid.UUID) (release func(), acquired bool, err error)
}

// Notifier delivers a human-readable summary of an accepted change
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NoopLocker never contends; the optimistic version check does all the work
type NoopLocker struct{}

// Lock always succeeds immediately
func (NoopLocker) Lock(context.Context, uuid.UUID) (func(), bool, error) {
	return func() {}, true, nil
}
