package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/proposal"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qtyPtr(v int) *int { return &v }

func newTestProposal(t *testing.T, orgID uuid.UUID, orderID *uuid.UUID) *proposal.OrderChangeProposal {
	t.Helper()
	customerID := uuid.New()
	delivery := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	lines := []proposal.ProposalLine{
		{
			ChangeType: proposal.ChangeTypeAdd,
			ItemName:   "Apples",
			ProposedValues: proposal.ProposedValues{
				Quantity:     qtyPtr(50),
				CustomerID:   &customerID,
				DeliveryDate: &delivery,
				Metadata:     map[string]any{"confidence": 0.92},
			},
		},
		{ChangeType: proposal.ChangeTypeAdd, ItemName: "Pears", ProposedValues: proposal.ProposedValues{Quantity: qtyPtr(30)}},
	}
	p, err := proposal.NewProposal(orgID, orderID, nil, "", map[string]any{"order_frequency": "recurring"}, lines)
	require.NoError(t, err)
	return p
}

func TestGormProposalRepository_SaveAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProposalRepository(db)
	ctx := context.Background()
	orgID := uuid.New()

	p := newTestProposal(t, orgID, nil)
	require.NoError(t, repo.Save(ctx, p))

	found, err := repo.FindByIDForOrganization(ctx, orgID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.TypeNewOrder, found.Type)
	assert.Equal(t, proposal.StatusPending, found.Status)
	assert.True(t, found.IsRecurring())
	require.Len(t, found.Lines, 2)
	assert.Equal(t, "Apples", found.Lines[0].ItemName)
	assert.Equal(t, 50, found.Lines[0].Quantity())
	require.NotNil(t, found.Lines[0].ProposedValues.DeliveryDate)
	assert.Equal(t, 0.92, found.Lines[0].ProposedValues.Metadata["confidence"])

	_, err = repo.FindByIDForOrganization(ctx, uuid.New(), p.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormProposalRepository_SaveWithLock(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProposalRepository(db)
	ctx := context.Background()

	p := newTestProposal(t, uuid.New(), nil)
	require.NoError(t, repo.Save(ctx, p))

	loaded, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	edited := []proposal.ProposalLine{loaded.Lines[0]}
	edited[0].ProposedValues.Quantity = qtyPtr(60)
	require.NoError(t, loaded.ReplaceLines(edited))
	require.NoError(t, loaded.LinkOrder(uuid.New()))
	require.NoError(t, loaded.Accept(uuid.New(), time.Now()))

	require.NoError(t, repo.SaveWithLock(ctx, loaded))

	reloaded, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.StatusAccepted, reloaded.Status)
	assert.NotNil(t, reloaded.OrderID)
	assert.NotNil(t, reloaded.ReviewedAt)
	require.Len(t, reloaded.Lines, 1)
	assert.Equal(t, 60, reloaded.Lines[0].Quantity())

	p.Version = 1
	err = repo.SaveWithLock(ctx, p)
	assert.True(t, shared.IsCode(err, shared.CodeConcurrentModification))
}

func TestGormProposalRepository_ListAndCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProposalRepository(db)
	ctx := context.Background()
	orgID := uuid.New()
	orderID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(ctx, newTestProposal(t, orgID, &orderID)))
	}
	require.NoError(t, repo.Save(ctx, newTestProposal(t, orgID, nil)))
	require.NoError(t, repo.Save(ctx, newTestProposal(t, uuid.New(), nil)))

	filter := proposal.ListFilter{Filter: shared.DefaultFilter(), OrganizationID: orgID}
	filter.PageSize = 2
	items, total, err := repo.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, items, 2)

	filter.OrderID = &orderID
	filter.Status = proposal.StatusPending
	_, total, err = repo.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	pending, err := repo.CountPendingForOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pending)
}

func TestGormProposalRepository_SaveWithLock_ForeignLineID(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProposalRepository(db)
	ctx := context.Background()

	victim := newTestProposal(t, uuid.New(), nil)
	require.NoError(t, repo.Save(ctx, victim))
	other := newTestProposal(t, uuid.New(), nil)
	require.NoError(t, repo.Save(ctx, other))

	loaded, err := repo.FindByID(ctx, other.ID)
	require.NoError(t, err)
	loaded.Lines = loaded.Lines[:1]
	loaded.Lines[0].ID = victim.Lines[0].ID
	loaded.Lines[0].ItemName = "Edited"
	loaded.Lines[0].ProposedValues.Quantity = qtyPtr(1)

	err = repo.SaveWithLock(ctx, loaded)
	assert.True(t, shared.IsCode(err, shared.CodeInvalidProposalLine))

	untouched, err := repo.FindByID(ctx, victim.ID)
	require.NoError(t, err)
	require.Len(t, untouched.Lines, 2)
	assert.Equal(t, "Apples", untouched.Lines[0].ItemName)
	assert.Equal(t, 50, untouched.Lines[0].Quantity())

	rolledBack, err := repo.FindByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.Version, rolledBack.Version)
	assert.Len(t, rolledBack.Lines, 2)
}
