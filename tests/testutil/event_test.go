package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/application/reconciliation"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEventHandler(t *testing.T) {
	handler := NewMockEventHandler("ProposalAccepted")
	assert.Equal(t, []string{"ProposalAccepted"}, handler.EventTypes())

	event := NewTestEvent("ProposalAccepted", uuid.New())
	require.NoError(t, handler.Handle(context.Background(), event))
	assert.Equal(t, 1, handler.HandledCount())
	assert.Equal(t, event, handler.Handled()[0])

	handler.SetError(errors.New("boom"))
	assert.Error(t, handler.Handle(context.Background(), event))
}

func TestNewTestEventWithID(t *testing.T) {
	id := uuid.New()
	org := uuid.New()
	event := NewTestEventWithID(id, "ProposalRejected", org)

	assert.Equal(t, id, event.EventID())
	assert.Equal(t, org, event.OrganizationID())
	assert.Equal(t, "ProposalRejected", event.EventType())
}

func TestWaitForEventCount(t *testing.T) {
	handler := NewMockEventHandler()
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = handler.Handle(context.Background(), NewTestEvent("X", uuid.New()))
	}()

	assert.True(t, WaitForEventCount(handler, 1, time.Second))
}

func TestRecordingNotifier(t *testing.T) {
	n := &RecordingNotifier{}
	require.NoError(t, n.Notify(context.Background(), reconciliation.Notification{Subject: "Order updated"}))

	sent := n.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Order updated", sent[0].Subject)
}
