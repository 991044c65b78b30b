package reconciliation

import (
	"context"
	"fmt"
	"strings"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/proposal"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification is the human-readable summary of one accepted proposal
type Notification struct {
	OrganizationID uuid.UUID
	OrderID        uuid.UUID
	ProposalID     uuid.UUID
	Subject        string
	CustomerName   string
	Added          []string
	Modified       []string
	Removed        []string
	AcceptedBy     *uuid.UUID
}

// Body renders the notification as plain text
func (n Notification) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s for %s\n", n.OrderID, n.CustomerName)
	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", title)
		for _, l := range lines {
			fmt.Fprintf(&b, "  - %s\n", l)
		}
	}
	section("Added", n.Added)
	section("Modified", n.Modified)
	section("Removed", n.Removed)
	return b.String()
}

// AcceptedNotificationHandler sends a summary to the notifier whenever a
// proposal is accepted. Delivery failures are logged and returned so the
// idempotency wrapper does not mark the event processed.
type AcceptedNotificationHandler struct {
	orders   order.OrderRepository
	notifier Notifier
	logger   *zap.Logger
}

// NewAcceptedNotificationHandler creates a new AcceptedNotificationHandler
func NewAcceptedNotificationHandler(orders order.OrderRepository, notifier Notifier, logger *zap.Logger) *AcceptedNotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcceptedNotificationHandler{orders: orders, notifier: notifier, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *AcceptedNotificationHandler) EventTypes() []string {
	return []string{proposal.EventTypeProposalAccepted}
}

// Handle builds and sends the notification for a ProposalAcceptedEvent
func (h *AcceptedNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	accepted, ok := event.(*proposal.ProposalAcceptedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", proposal.EventTypeProposalAccepted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			proposal.EventTypeProposalAccepted, event.EventType())
	}

	customer := "Unknown Customer"
	if o, err := h.orders.FindByID(ctx, accepted.OrderID); err == nil && o.CustomerName != "" {
		customer = o.CustomerName
	} else if err != nil {
		h.logger.Warn("order lookup failed for notification",
			zap.String("order_id", accepted.OrderID.String()),
			zap.Error(err),
		)
	}

	n := BuildNotification(accepted, customer)
	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Error("failed to send accept notification",
			zap.String("proposal_id", accepted.ProposalID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// BuildNotification groups the accepted lines into added, modified and removed
func BuildNotification(e *proposal.ProposalAcceptedEvent, customerName string) Notification {
	n := Notification{
		OrganizationID: e.OrganizationID(),
		OrderID:        e.OrderID,
		ProposalID:     e.ProposalID,
		CustomerName:   customerName,
		AcceptedBy:     e.AcceptedBy,
	}
	switch e.Type {
	case proposal.TypeCancelOrder:
		n.Subject = "Order Cancelled: " + customerName
	case proposal.TypeNewOrder:
		n.Subject = "New Order Accepted: " + customerName
	default:
		n.Subject = "Order Change Accepted: " + customerName
	}

	for _, l := range e.Lines {
		name := l.ItemName
		if name == "" {
			name = "line " + fmt.Sprint(l.LineNumber)
		}
		switch l.ChangeType {
		case proposal.ChangeTypeAdd:
			n.Added = append(n.Added, fmt.Sprintf("%s x %d", name, l.Quantity()))
		case proposal.ChangeTypeRemove:
			n.Removed = append(n.Removed, name)
		case proposal.ChangeTypeModify:
			if orig := l.ProposedValues.OriginalQuantity; orig != nil {
				n.Modified = append(n.Modified, fmt.Sprintf("%s: %d -> %d", name, *orig, l.Quantity()))
			} else {
				n.Modified = append(n.Modified, fmt.Sprintf("%s: -> %d", name, l.Quantity()))
			}
		}
	}
	return n
}

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification
func (n *LogNotifier) Notify(_ context.Context, msg Notification) error {
	n.logger.Info("order change notification",
		zap.String("subject", msg.Subject),
		zap.String("order_id", msg.OrderID.String()),
		zap.String("proposal_id", msg.ProposalID.String()),
		zap.Strings("added", msg.Added),
		zap.Strings("modified", msg.Modified),
		zap.Strings("removed", msg.Removed),
	)
	return nil
}

var (
	_ shared.EventHandler = (*AcceptedNotificationHandler)(nil)
	_ Notifier            = (*LogNotifier)(nil)
)
