package feedback

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Category is the error taxonomy for matcher predictions
type Category string

const (
	CategoryAccurate      Category = "accurate"
	CategorySKUWrong      Category = "sku_wrong"
	CategoryQuantityWrong Category = "quantity_wrong"
	CategoryBothWrong     Category = "both_wrong"
	CategoryCustomerWrong Category = "customer_wrong"
)

// AccuracyRecord compares one matcher prediction with what a human approved.
// Records are written only for the first human review of an order.
type AccuracyRecord struct {
	ID                uuid.UUID
	OrganizationID    uuid.UUID
	OrderID           uuid.UUID
	ProposalID        uuid.UUID
	ProposalLineID    *uuid.UUID
	Category          Category
	PredictedItemID   *uuid.UUID
	ApprovedItemID    *uuid.UUID
	PredictedQuantity *int
	ApprovedQuantity  *int
	PredictedCustomer string
	ApprovedCustomer  string
	ReviewedBy        *uuid.UUID
	CreatedAt         time.Time
}

// LineOutcome is one line as the matcher predicted it or as it was approved.
// ProposalLineID ties an approved line back to its prediction; it is nil for
// lines a reviewer added by hand.
type LineOutcome struct {
	ProposalLineID *uuid.UUID
	ItemID         *uuid.UUID
	Quantity       *int
}

// Review is the input to Classify
type Review struct {
	OrganizationID    uuid.UUID
	OrderID           uuid.UUID
	ProposalID        uuid.UUID
	ReviewedBy        *uuid.UUID
	Predicted         []LineOutcome
	Approved          []LineOutcome
	PredictedCustomer string
	ApprovedCustomer  string
}

// Classify reconciles predictions against approved lines.
//
// A predicted line the reviewer dropped and an approved line with no
// prediction are both sku_wrong. A customer mismatch adds one
// customer_wrong record.
func Classify(r Review) []AccuracyRecord {
	now := time.Now()
	records := make([]AccuracyRecord, 0, len(r.Predicted)+1)
	newRecord := func(c Category) AccuracyRecord {
		return AccuracyRecord{
			ID:             uuid.New(),
			OrganizationID: r.OrganizationID,
			OrderID:        r.OrderID,
			ProposalID:     r.ProposalID,
			Category:       c,
			ReviewedBy:     r.ReviewedBy,
			CreatedAt:      now,
		}
	}

	approvedByLine := make(map[uuid.UUID]LineOutcome, len(r.Approved))
	for _, a := range r.Approved {
		if a.ProposalLineID != nil {
			approvedByLine[*a.ProposalLineID] = a
		}
	}
	predictedLines := make(map[uuid.UUID]bool, len(r.Predicted))

	for _, p := range r.Predicted {
		if p.ProposalLineID == nil {
			continue
		}
		predictedLines[*p.ProposalLineID] = true
		rec := newRecord(CategorySKUWrong)
		rec.ProposalLineID = p.ProposalLineID
		rec.PredictedItemID = p.ItemID
		rec.PredictedQuantity = p.Quantity

		if a, ok := approvedByLine[*p.ProposalLineID]; ok {
			rec.ApprovedItemID = a.ItemID
			rec.ApprovedQuantity = a.Quantity
			rec.Category = categorize(sameItem(p.ItemID, a.ItemID), sameQuantity(p.Quantity, a.Quantity))
		}
		records = append(records, rec)
	}

	for _, a := range r.Approved {
		if a.ProposalLineID != nil && predictedLines[*a.ProposalLineID] {
			continue
		}
		rec := newRecord(CategorySKUWrong)
		rec.ProposalLineID = a.ProposalLineID
		rec.ApprovedItemID = a.ItemID
		rec.ApprovedQuantity = a.Quantity
		records = append(records, rec)
	}

	if r.PredictedCustomer != "" && r.ApprovedCustomer != "" && !sameName(r.PredictedCustomer, r.ApprovedCustomer) {
		rec := newRecord(CategoryCustomerWrong)
		rec.PredictedCustomer = r.PredictedCustomer
		rec.ApprovedCustomer = r.ApprovedCustomer
		records = append(records, rec)
	}
	return records
}

func categorize(itemOK, qtyOK bool) Category {
	switch {
	case itemOK && qtyOK:
		return CategoryAccurate
	case !itemOK && !qtyOK:
		return CategoryBothWrong
	case !itemOK:
		return CategorySKUWrong
	default:
		return CategoryQuantityWrong
	}
}

func sameItem(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameQuantity(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameName(a, b string) bool {
	c := cases.Fold()
	return strings.TrimSpace(c.String(a)) == strings.TrimSpace(c.String(b))
}

// AccuracyRepository stores prediction accuracy records
type AccuracyRepository interface {
	SaveAll(ctx context.Context, records []AccuracyRecord) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]AccuracyRecord, error)
}
