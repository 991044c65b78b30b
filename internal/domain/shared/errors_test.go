package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Is(t *testing.T) {
	err := NewDomainError(CodeNotFound, "order not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))

	wrapped := fmt.Errorf("loading order: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.True(t, IsCode(wrapped, CodeNotFound))
}

func TestDomainError_Cause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDomainErrorWithCause(CodeReconciliationFailed, "failed to save order", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to save order: connection reset", err.Error())

	de, ok := AsDomainError(fmt.Errorf("apply: %w", err))
	require.True(t, ok)
	assert.Equal(t, CodeReconciliationFailed, de.Code)
}

func TestDomainError_WithDetail(t *testing.T) {
	base := NewDomainError(CodeInvalidProposalLine, "quantity must be positive")
	withLine := base.WithDetail("line_number", 3).WithDetail("field", "quantity")

	assert.Nil(t, base.Details)
	assert.Equal(t, 3, withLine.Details["line_number"])
	assert.Equal(t, "quantity", withLine.Details["field"])
}

func TestFilter_Paging(t *testing.T) {
	f := DefaultFilter()
	assert.Equal(t, 0, f.Offset())
	assert.Equal(t, 20, f.Limit())

	f.Page = 3
	f.PageSize = 500
	assert.Equal(t, 100, f.Limit())
	assert.Equal(t, 200, f.Offset())

	f.Page = 0
	f.PageSize = -1
	assert.Equal(t, 0, f.Offset())
	assert.Equal(t, 20, f.Limit())
}

func TestOrganizationAggregateRoot(t *testing.T) {
	org := uuid.New()
	root := NewOrganizationAggregateRoot(org)
	assert.Equal(t, 1, root.Version)
	assert.Equal(t, org, root.OrganizationID)
	assert.NotEqual(t, uuid.Nil, root.ID)

	root.AddDomainEvent(&stubEvent{BaseDomainEvent: NewBaseDomainEvent("ProposalAccepted", "proposal", root.ID, org)})
	assert.Len(t, root.GetDomainEvents(), 1)
	root.ClearDomainEvents()
	assert.Empty(t, root.GetDomainEvents())

	restored := RestoreOrganizationAggregateRoot(root.ID, org, nil, 7, root.CreatedAt, root.UpdatedAt)
	assert.Equal(t, 7, restored.Version)
	assert.Empty(t, restored.GetDomainEvents())
}

type stubEvent struct {
	BaseDomainEvent
}
