package proposal

import (
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeProposal = "OrderChangeProposal"

// Event type constants
const (
	EventTypeProposalAccepted = "ProposalAccepted"
	EventTypeProposalRejected = "ProposalRejected"
)

// ProposalAcceptedEvent is raised once a proposal has been applied to its order
type ProposalAcceptedEvent struct {
	shared.BaseDomainEvent
	ProposalID uuid.UUID      `json:"proposal_id"`
	OrderID    uuid.UUID      `json:"order_id"`
	Type       Type           `json:"proposal_type"`
	AcceptedBy *uuid.UUID     `json:"accepted_by,omitempty"`
	Lines      []ProposalLine `json:"lines"`
}

// NewProposalAcceptedEvent creates a new ProposalAcceptedEvent
func NewProposalAcceptedEvent(p *OrderChangeProposal) *ProposalAcceptedEvent {
	lines := make([]ProposalLine, len(p.Lines))
	copy(lines, p.Lines)
	var orderID uuid.UUID
	if p.OrderID != nil {
		orderID = *p.OrderID
	}
	return &ProposalAcceptedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProposalAccepted, AggregateTypeProposal, p.ID, p.OrganizationID),
		ProposalID:      p.ID,
		OrderID:         orderID,
		Type:            p.Type,
		AcceptedBy:      p.ReviewedBy,
		Lines:           lines,
	}
}

// EventType returns the event type name
func (e *ProposalAcceptedEvent) EventType() string {
	return EventTypeProposalAccepted
}

// ProposalRejectedEvent is raised when a reviewer turns a proposal down
type ProposalRejectedEvent struct {
	shared.BaseDomainEvent
	ProposalID uuid.UUID  `json:"proposal_id"`
	OrderID    *uuid.UUID `json:"order_id,omitempty"`
	RejectedBy *uuid.UUID `json:"rejected_by,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// NewProposalRejectedEvent creates a new ProposalRejectedEvent
func NewProposalRejectedEvent(p *OrderChangeProposal) *ProposalRejectedEvent {
	return &ProposalRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProposalRejected, AggregateTypeProposal, p.ID, p.OrganizationID),
		ProposalID:      p.ID,
		OrderID:         p.OrderID,
		RejectedBy:      p.ReviewedBy,
		Notes:           p.Notes,
	}
}

// EventType returns the event type name
func (e *ProposalRejectedEvent) EventType() string {
	return EventTypeProposalRejected
}
