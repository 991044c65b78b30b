package proposal

import (
	"testing"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(v int) *int { return &v }

func addLine(name string, q int) ProposalLine {
	itemID := uuid.New()
	return ProposalLine{ChangeType: ChangeTypeAdd, ItemID: &itemID, ItemName: name, ProposedValues: ProposedValues{Quantity: qty(q)}}
}

func removeLine(ref uuid.UUID) ProposalLine {
	return ProposalLine{ChangeType: ChangeTypeRemove, OrderLineID: &ref}
}

func modifyLine(ref uuid.UUID, q int) ProposalLine {
	return ProposalLine{ChangeType: ChangeTypeModify, OrderLineID: &ref, ProposedValues: ProposedValues{Quantity: qty(q)}}
}

func TestProposalLine_Validate(t *testing.T) {
	ref := uuid.New()
	tests := []struct {
		name  string
		line  ProposalLine
		field string
	}{
		{"add with reference", ProposalLine{ChangeType: ChangeTypeAdd, OrderLineID: &ref, ItemName: "Kale", ProposedValues: ProposedValues{Quantity: qty(1)}}, "order_line_id"},
		{"add without quantity", ProposalLine{ChangeType: ChangeTypeAdd, ItemName: "Kale"}, "quantity"},
		{"remove without reference", ProposalLine{ChangeType: ChangeTypeRemove}, "order_line_id"},
		{"remove with quantity", ProposalLine{ChangeType: ChangeTypeRemove, OrderLineID: &ref, ProposedValues: ProposedValues{Quantity: qty(3)}}, "quantity"},
		{"modify to zero", modifyLine(ref, 0), "quantity"},
		{"modify negative", modifyLine(ref, -4), "quantity"},
		{"modify without reference", ProposalLine{ChangeType: ChangeTypeModify, ProposedValues: ProposedValues{Quantity: qty(3)}}, "order_line_id"},
		{"unknown type", ProposalLine{ChangeType: "replace"}, "change_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.line.Validate()
			require.Error(t, err)
			de, ok := shared.AsDomainError(err)
			require.True(t, ok)
			assert.Equal(t, shared.CodeInvalidProposalLine, de.Code)
			assert.Equal(t, tt.field, de.Details["field"])
		})
	}

	t.Run("valid lines", func(t *testing.T) {
		assert.NoError(t, addLine("Kale", 4).Validate())
		assert.NoError(t, removeLine(ref).Validate())
		assert.NoError(t, modifyLine(ref, 12).Validate())
	})
}

func TestNewProposal(t *testing.T) {
	orgID := uuid.New()
	orderID := uuid.New()

	t.Run("type derived from missing order", func(t *testing.T) {
		p, err := NewProposal(orgID, nil, nil, "", nil, []ProposalLine{addLine("Apples", 50), addLine("Pears", 30)})
		require.NoError(t, err)
		assert.Equal(t, TypeNewOrder, p.Type)
		assert.Equal(t, StatusPending, p.Status)
		assert.Equal(t, 1, p.Lines[0].LineNumber)
		assert.Equal(t, 2, p.Lines[1].LineNumber)
		assert.Equal(t, p.ID, p.Lines[1].ProposalID)
	})

	t.Run("type derived from intent tag", func(t *testing.T) {
		p, err := NewProposal(orgID, &orderID, nil, "", map[string]any{TagIntent: "cancel_order"}, nil)
		require.NoError(t, err)
		assert.Equal(t, TypeCancelOrder, p.Type)
	})

	t.Run("new order may only add", func(t *testing.T) {
		_, err := NewProposal(orgID, nil, nil, TypeNewOrder, nil, []ProposalLine{removeLine(uuid.New())})
		assert.True(t, shared.IsCode(err, shared.CodeInvalidProposalLine))
	})

	t.Run("change order needs an order", func(t *testing.T) {
		_, err := NewProposal(orgID, nil, nil, TypeChangeOrder, nil, []ProposalLine{addLine("Kale", 1)})
		assert.True(t, shared.IsCode(err, shared.CodeInvalidInput))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewProposal(orgID, &orderID, nil, Type("merge_order"), nil, nil)
		assert.True(t, shared.IsCode(err, shared.CodeInvalidInput))
	})

	t.Run("duplicate line numbers", func(t *testing.T) {
		a, b := addLine("Kale", 1), addLine("Chard", 2)
		a.LineNumber, b.LineNumber = 2, 2
		_, err := NewProposal(orgID, &orderID, nil, TypeChangeOrder, nil, []ProposalLine{a, b})
		assert.True(t, shared.IsCode(err, shared.CodeInvalidProposalLine))
	})
}

func TestProposal_Lifecycle(t *testing.T) {
	orgID := uuid.New()
	reviewer := uuid.New()

	t.Run("accept is terminal", func(t *testing.T) {
		p, err := NewProposal(orgID, nil, nil, "", nil, []ProposalLine{addLine("Apples", 50)})
		require.NoError(t, err)

		err = p.Accept(reviewer, time.Now())
		assert.Error(t, err, "new-order proposal must be linked first")

		orderID := uuid.New()
		require.NoError(t, p.LinkOrder(orderID))
		require.NoError(t, p.LinkOrder(orderID))
		assert.Error(t, p.LinkOrder(uuid.New()))

		require.NoError(t, p.Accept(reviewer, time.Now()))
		assert.Equal(t, StatusAccepted, p.Status)
		assert.Equal(t, reviewer, *p.ReviewedBy)
		require.Len(t, p.GetDomainEvents(), 1)
		evt, ok := p.GetDomainEvents()[0].(*ProposalAcceptedEvent)
		require.True(t, ok)
		assert.Equal(t, orderID, evt.OrderID)
		assert.Len(t, evt.Lines, 1)

		assert.Error(t, p.Accept(reviewer, time.Now()))
		assert.Error(t, p.Reject(reviewer, "late", time.Now()))
		assert.Error(t, p.ReplaceLines([]ProposalLine{addLine("Kale", 1)}))
	})

	t.Run("reject records notes", func(t *testing.T) {
		orderID := uuid.New()
		p, err := NewProposal(orgID, &orderID, nil, "", nil, []ProposalLine{addLine("Kale", 2)})
		require.NoError(t, err)

		require.NoError(t, p.Reject(uuid.Nil, "duplicate email", time.Now()))
		assert.Equal(t, StatusRejected, p.Status)
		assert.Nil(t, p.ReviewedBy)
		assert.Equal(t, "duplicate email", p.Notes)
		assert.Equal(t, EventTypeProposalRejected, p.GetDomainEvents()[0].EventType())
	})
}

func TestProposal_LineIdentity(t *testing.T) {
	orderID := uuid.New()

	t.Run("new proposal ignores supplied line ids", func(t *testing.T) {
		supplied := uuid.New()
		l := addLine("Kale", 2)
		l.ID = supplied
		p, err := NewProposal(uuid.New(), &orderID, nil, TypeChangeOrder, nil, []ProposalLine{l})
		require.NoError(t, err)
		assert.NotEqual(t, supplied, p.Lines[0].ID)
		assert.NotEqual(t, uuid.Nil, p.Lines[0].ID)
	})

	t.Run("edited lines keep only their own ids", func(t *testing.T) {
		victim, err := NewProposal(uuid.New(), &orderID, nil, TypeChangeOrder, nil, []ProposalLine{addLine("Chard", 4), addLine("Leeks", 6)})
		require.NoError(t, err)
		p, err := NewProposal(uuid.New(), &orderID, nil, TypeChangeOrder, nil, []ProposalLine{addLine("Kale", 2)})
		require.NoError(t, err)
		ownID := p.Lines[0].ID
		foreignID := victim.Lines[0].ID

		kept := addLine("Kale", 3)
		kept.ID = ownID
		edited := addLine("Edited", 1)
		edited.ID = foreignID
		require.NoError(t, p.ReplaceLines([]ProposalLine{kept, edited}))

		require.Len(t, p.Lines, 2)
		assert.Equal(t, ownID, p.Lines[0].ID)
		assert.NotEqual(t, foreignID, p.Lines[1].ID)
		assert.NotEqual(t, uuid.Nil, p.Lines[1].ID)
		assert.Equal(t, p.ID, p.Lines[1].ProposalID)
	})

	t.Run("an own id is not reused twice", func(t *testing.T) {
		p, err := NewProposal(uuid.New(), &orderID, nil, TypeChangeOrder, nil, []ProposalLine{addLine("Kale", 2)})
		require.NoError(t, err)
		a, b := addLine("Kale", 3), addLine("Chard", 1)
		a.ID, b.ID = p.Lines[0].ID, p.Lines[0].ID
		require.NoError(t, p.ReplaceLines([]ProposalLine{a, b}))
		assert.NotEqual(t, p.Lines[0].ID, p.Lines[1].ID)
	})
}

func TestProposal_Tags(t *testing.T) {
	orderID := uuid.New()
	p, err := NewProposal(uuid.New(), &orderID, nil, "", map[string]any{TagOrderFrequency: "recurring"}, []ProposalLine{addLine("Kale", 2)})
	require.NoError(t, err)
	assert.True(t, p.IsRecurring())

	p.SetTag(TagERPSyncStatus, "pending")
	assert.Equal(t, "pending", p.Tags[TagERPSyncStatus])
	assert.Equal(t, map[ChangeType]int{ChangeTypeAdd: 1, ChangeTypeRemove: 0, ChangeTypeModify: 0}, p.CountByChangeType())
}
