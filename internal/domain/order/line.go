package order

import (
	"strings"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// LineStatus is the soft-delete lifecycle of an order line
type LineStatus string

const (
	LineStatusActive  LineStatus = "active"
	LineStatusDeleted LineStatus = "deleted"
)

// OrderLine is one product line of an order. Lines are never hard-deleted.
type OrderLine struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	LineNumber  int
	ItemID      *uuid.UUID
	VariantID   *uuid.UUID
	VariantCode string
	ProductName string
	Quantity    int
	Status      LineStatus
	// Metadata holds the raw customer text, matcher confidence and SKU
	Metadata map[string]any
	// SourceProposalLineID links a line created from a proposal back to it
	SourceProposalLineID *uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsActive reports whether the line has not been removed
func (l OrderLine) IsActive() bool {
	return l.Status == LineStatusActive
}

// IsResolved reports whether the line is bound to a catalog item
func (l OrderLine) IsResolved() bool {
	return l.ItemID != nil && *l.ItemID != uuid.Nil
}

// LineInput carries the values for a new line
type LineInput struct {
	ItemID               *uuid.UUID
	VariantID            *uuid.UUID
	VariantCode          string
	ProductName          string
	Quantity             int
	Metadata             map[string]any
	SourceProposalLineID *uuid.UUID
}

// LineChange carries the fields a modify touches. Nil fields are left alone.
type LineChange struct {
	Quantity    *int
	VariantID   *uuid.UUID
	VariantCode string
}

func newOrderLine(orderID uuid.UUID, lineNumber int, input LineInput) (*OrderLine, error) {
	if input.Quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be a positive integer").
			WithDetail("line_number", lineNumber).
			WithDetail("field", "quantity")
	}
	name := strings.TrimSpace(input.ProductName)
	if name == "" && input.ItemID == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Line needs a product name or item reference").
			WithDetail("line_number", lineNumber).
			WithDetail("field", "product_name")
	}
	metadata := input.Metadata
	if metadata == nil {
		metadata = make(map[string]any)
	}
	now := time.Now()
	return &OrderLine{
		ID:                   uuid.New(),
		OrderID:              orderID,
		LineNumber:           lineNumber,
		ItemID:               input.ItemID,
		VariantID:            input.VariantID,
		VariantCode:          input.VariantCode,
		ProductName:          name,
		Quantity:             input.Quantity,
		Status:               LineStatusActive,
		Metadata:             metadata,
		SourceProposalLineID: input.SourceProposalLineID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}
