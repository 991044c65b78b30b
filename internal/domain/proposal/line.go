package proposal

import (
	"fmt"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// ChangeType is the kind of delta a proposal line carries
type ChangeType string

const (
	ChangeTypeAdd    ChangeType = "add"
	ChangeTypeRemove ChangeType = "remove"
	ChangeTypeModify ChangeType = "modify"
)

// IsValid checks if the change type is known
func (c ChangeType) IsValid() bool {
	switch c {
	case ChangeTypeAdd, ChangeTypeRemove, ChangeTypeModify:
		return true
	}
	return false
}

// ProposedValues is the bag of values a proposal line carries.
// Original* fields are for display only.
type ProposedValues struct {
	Quantity            *int           `json:"quantity,omitempty"`
	VariantCode         string         `json:"variant_code,omitempty"`
	OriginalQuantity    *int           `json:"original_quantity,omitempty"`
	OriginalVariantCode string         `json:"original_variant_code,omitempty"`
	CustomerID          *uuid.UUID     `json:"customer_id,omitempty"`
	CustomerName        string         `json:"customer_name,omitempty"`
	DeliveryDate        *time.Time     `json:"delivery_date,omitempty"`
	OrganizationID      *uuid.UUID     `json:"organization_id,omitempty"`
	SourceChannel       string         `json:"source_channel,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// ProposalLine is one typed delta against an order's line set
type ProposalLine struct {
	ID         uuid.UUID
	ProposalID uuid.UUID
	// OrderLineID is the line being removed or modified; nil for additions
	OrderLineID *uuid.UUID
	// RestoresLineID marks an addition that brings a removed line back
	RestoresLineID *uuid.UUID
	LineNumber     int
	ChangeType     ChangeType
	ItemID         *uuid.UUID
	VariantID      *uuid.UUID
	ItemName       string
	ProposedValues ProposedValues
}

// Quantity returns the proposed quantity, or 0 when none was given
func (l ProposalLine) Quantity() int {
	if l.ProposedValues.Quantity == nil {
		return 0
	}
	return *l.ProposedValues.Quantity
}

// Validate checks the structural invariants of the line on its own
func (l ProposalLine) Validate() error {
	if !l.ChangeType.IsValid() {
		return l.invalid("change_type", fmt.Sprintf("unknown change type %q", l.ChangeType))
	}
	qty := l.ProposedValues.Quantity

	switch l.ChangeType {
	case ChangeTypeAdd:
		if l.OrderLineID != nil {
			return l.invalid("order_line_id", "an addition must not reference an existing order line")
		}
		if qty == nil || *qty <= 0 {
			return l.invalid("quantity", "an addition needs a positive quantity")
		}
		if l.ItemID == nil && l.ItemName == "" && l.RestoresLineID == nil {
			return l.invalid("item_name", "an addition needs an item reference or a name")
		}
	case ChangeTypeRemove:
		if l.OrderLineID == nil {
			return l.invalid("order_line_id", "a removal must reference an order line")
		}
		if qty != nil {
			return l.invalid("quantity", "a removal carries no quantity")
		}
		if l.RestoresLineID != nil {
			return l.invalid("restores_line_id", "only an addition can restore a line")
		}
	case ChangeTypeModify:
		if l.OrderLineID == nil {
			return l.invalid("order_line_id", "a modification must reference an order line")
		}
		if qty != nil && *qty <= 0 {
			return l.invalid("quantity", "quantity must be positive; use a removal instead")
		}
		if l.RestoresLineID != nil {
			return l.invalid("restores_line_id", "only an addition can restore a line")
		}
	}
	return nil
}

func (l ProposalLine) invalid(field, message string) *shared.DomainError {
	return invalidLine(l, field, message)
}

func invalidLine(l ProposalLine, field, message string) *shared.DomainError {
	err := shared.NewDomainError(shared.CodeInvalidProposalLine,
		fmt.Sprintf("Proposal line %d: %s", l.LineNumber, message)).
		WithDetail("line_number", l.LineNumber).
		WithDetail("field", field)
	if l.ID != uuid.Nil {
		err = err.WithDetail("proposal_line_id", l.ID.String())
	}
	return err
}
