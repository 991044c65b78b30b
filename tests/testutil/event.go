package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/application/reconciliation"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// MockEventHandler is a recording implementation of shared.EventHandler.
type MockEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewMockEventHandler creates a new mock event handler.
func NewMockEventHandler(eventTypes ...string) *MockEventHandler {
	return &MockEventHandler{eventTypes: eventTypes}
}

// EventTypes returns the event types this handler subscribes to.
func (h *MockEventHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records the event and returns the configured error.
func (h *MockEventHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Handled returns a copy of all handled events.
func (h *MockEventHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.handled))
	copy(out, h.handled)
	return out
}

// HandledCount returns the number of handled events.
func (h *MockEventHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// SetError sets the error to return from Handle.
func (h *MockEventHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// TestEvent is a minimal domain event.
type TestEvent struct {
	shared.BaseDomainEvent
	Data string
}

// NewTestEvent creates a test event with a random id.
func NewTestEvent(eventType string, organizationID uuid.UUID) *TestEvent {
	return &TestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), organizationID),
		Data:            "test-data",
	}
}

// NewTestEventWithID creates a test event with a fixed id, for dedupe tests.
func NewTestEventWithID(eventID uuid.UUID, eventType string, organizationID uuid.UUID) *TestEvent {
	e := NewTestEvent(eventType, organizationID)
	e.ID = eventID
	return e
}

// RecordingNotifier collects the notifications sent for accepted proposals.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []reconciliation.Notification
}

var _ reconciliation.Notifier = (*RecordingNotifier)(nil)

// Notify records n.
func (r *RecordingNotifier) Notify(_ context.Context, n reconciliation.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

// Sent returns a copy of the recorded notifications.
func (r *RecordingNotifier) Sent() []reconciliation.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]reconciliation.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// WaitForEventCount waits until the handler has processed at least count events.
func WaitForEventCount(handler *MockEventHandler, count int, timeout time.Duration) bool {
	return WaitForCondition(func() bool {
		return handler.HandledCount() >= count
	}, timeout, 10*time.Millisecond)
}
