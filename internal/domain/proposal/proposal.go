package proposal

import (
	"fmt"
	"sort"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// Status is the proposal lifecycle state
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusRejected
}

// IsTerminal reports whether the proposal has been decided
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusPending && target.IsTerminal()
}

// Type says what the proposal intends to do to its order
type Type string

const (
	TypeNewOrder    Type = "new_order"
	TypeChangeOrder Type = "change_order"
	TypeCancelOrder Type = "cancel_order"
)

// IsValid checks if the proposal type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeNewOrder, TypeChangeOrder, TypeCancelOrder:
		return true
	}
	return false
}

// Well-known tag keys
const (
	TagIntent         = "intent"
	TagOrderFrequency = "order_frequency"
	TagERPSyncStatus  = "erp_sync_status"
)

// OrderChangeProposal is one reconciliation unit: a set of line deltas against
// an order, or against a not-yet-created order.
type OrderChangeProposal struct {
	shared.OrganizationAggregateRoot
	// OrderID is nil for a new-order proposal until it is accepted
	OrderID       *uuid.UUID
	IntakeEventID *uuid.UUID
	Type          Type
	Status        Status
	Tags          map[string]any
	ReviewedAt    *time.Time
	ReviewedBy    *uuid.UUID
	Notes         string
	Lines         []ProposalLine
}

// NewProposal creates a pending proposal. An empty proposalType is derived
// from tags["intent"], then from whether an order is referenced.
func NewProposal(organizationID uuid.UUID, orderID, intakeEventID *uuid.UUID, proposalType Type, tags map[string]any, lines []ProposalLine) (*OrderChangeProposal, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeMissingRequiredContext, "Organization is required to create a proposal")
	}
	if tags == nil {
		tags = make(map[string]any)
	}
	proposalType = resolveType(proposalType, tags, orderID)
	if !proposalType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown proposal type %q", proposalType)).
			WithDetail("field", "type")
	}

	p := &OrderChangeProposal{
		OrganizationAggregateRoot: shared.NewOrganizationAggregateRoot(organizationID),
		OrderID:                   orderID,
		IntakeEventID:             intakeEventID,
		Type:                      proposalType,
		Status:                    StatusPending,
		Tags:                      tags,
	}

	switch proposalType {
	case TypeNewOrder:
		if orderID != nil {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "A new-order proposal cannot reference an existing order")
		}
	case TypeChangeOrder, TypeCancelOrder:
		if orderID == nil || *orderID == uuid.Nil {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("A %s proposal must reference an order", proposalType))
		}
	}

	fresh := make([]ProposalLine, len(lines))
	for i, l := range lines {
		l.ID = uuid.Nil
		fresh[i] = l
	}
	if err := p.setLines(fresh); err != nil {
		return nil, err
	}
	return p, nil
}

func resolveType(t Type, tags map[string]any, orderID *uuid.UUID) Type {
	if t != "" {
		return t
	}
	if intent, ok := tags[TagIntent].(string); ok && Type(intent).IsValid() {
		return Type(intent)
	}
	if orderID == nil {
		return TypeNewOrder
	}
	return TypeChangeOrder
}

// IsNewOrder reports whether accepting this proposal creates the order
func (p *OrderChangeProposal) IsNewOrder() bool {
	return p.Type == TypeNewOrder
}

// IsPending reports whether the proposal still awaits a decision
func (p *OrderChangeProposal) IsPending() bool {
	return p.Status == StatusPending
}

// IsRecurring reports whether the source order repeats on a schedule
func (p *OrderChangeProposal) IsRecurring() bool {
	freq, _ := p.Tags[TagOrderFrequency].(string)
	return freq == "recurring"
}

// SetTag sets a classification tag
func (p *OrderChangeProposal) SetTag(key string, value any) {
	if p.Tags == nil {
		p.Tags = make(map[string]any)
	}
	p.Tags[key] = value
	p.UpdatedAt = time.Now()
}

// ReplaceLines swaps in a reviewer-edited line set before acceptance.
// A submitted line keeps its id only when it is a line of this proposal;
// any other id is replaced with a fresh one.
func (p *OrderChangeProposal) ReplaceLines(lines []ProposalLine) error {
	if !p.IsPending() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot edit lines of a proposal in %s status", p.Status))
	}
	own := make(map[uuid.UUID]bool, len(p.Lines))
	for _, l := range p.Lines {
		own[l.ID] = true
	}
	edited := make([]ProposalLine, len(lines))
	for i, l := range lines {
		if own[l.ID] {
			delete(own, l.ID)
		} else {
			l.ID = uuid.Nil
		}
		edited[i] = l
	}
	return p.setLines(edited)
}

func (p *OrderChangeProposal) setLines(lines []ProposalLine) error {
	if p.Type == TypeChangeOrder && len(lines) == 0 {
		return shared.NewDomainError(shared.CodeInvalidProposalLine, "A change proposal needs at least one line")
	}
	if p.Type == TypeNewOrder && len(lines) == 0 {
		return shared.NewDomainError(shared.CodeInvalidProposalLine, "A new-order proposal needs at least one line")
	}

	out := make([]ProposalLine, len(lines))
	seenNumbers := make(map[int]bool, len(lines))
	for i, l := range lines {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		if l.LineNumber <= 0 {
			l.LineNumber = i + 1
		}
		l.ProposalID = p.ID
		if seenNumbers[l.LineNumber] {
			return invalidLine(l, "line_number", "line number is used twice in this proposal")
		}
		seenNumbers[l.LineNumber] = true
		if err := l.Validate(); err != nil {
			return err
		}
		if p.Type == TypeNewOrder && (l.ChangeType != ChangeTypeAdd || l.RestoresLineID != nil) {
			return invalidLine(l, "change_type", "a new-order proposal may only add lines")
		}
		out[i] = l
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	p.Lines = out
	p.UpdatedAt = time.Now()
	return nil
}

// LinkOrder sets the order a new-order proposal created. It may happen once.
func (p *OrderChangeProposal) LinkOrder(orderID uuid.UUID) error {
	if p.OrderID != nil {
		if *p.OrderID == orderID {
			return nil
		}
		return shared.NewDomainError(shared.CodeInvalidState, "Proposal is already linked to a different order")
	}
	p.OrderID = &orderID
	p.UpdatedAt = time.Now()
	return nil
}

// Accept moves the proposal to accepted and records a ProposalAccepted event
func (p *OrderChangeProposal) Accept(reviewer uuid.UUID, at time.Time) error {
	if !p.Status.CanTransitionTo(StatusAccepted) {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot accept proposal in %s status", p.Status))
	}
	if p.OrderID == nil {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot accept a proposal that is not linked to an order")
	}
	p.Status = StatusAccepted
	p.markReviewed(reviewer, at)
	p.AddDomainEvent(NewProposalAcceptedEvent(p))
	return nil
}

// Reject moves the proposal to rejected and records a ProposalRejected event
func (p *OrderChangeProposal) Reject(reviewer uuid.UUID, notes string, at time.Time) error {
	if !p.Status.CanTransitionTo(StatusRejected) {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot reject proposal in %s status", p.Status))
	}
	p.Status = StatusRejected
	p.Notes = notes
	p.markReviewed(reviewer, at)
	p.AddDomainEvent(NewProposalRejectedEvent(p))
	return nil
}

func (p *OrderChangeProposal) markReviewed(reviewer uuid.UUID, at time.Time) {
	p.ReviewedAt = &at
	if reviewer != uuid.Nil {
		r := reviewer
		p.ReviewedBy = &r
	}
	p.UpdatedAt = at
}

// FirstLineContext returns the order-level context carried by the first line
func (p *OrderChangeProposal) FirstLineContext() ProposedValues {
	if len(p.Lines) == 0 {
		return ProposedValues{}
	}
	return p.Lines[0].ProposedValues
}

// CountByChangeType counts lines per change type
func (p *OrderChangeProposal) CountByChangeType() map[ChangeType]int {
	counts := map[ChangeType]int{ChangeTypeAdd: 0, ChangeTypeRemove: 0, ChangeTypeModify: 0}
	for _, l := range p.Lines {
		counts[l.ChangeType]++
	}
	return counts
}
