package order

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents where an order sits between intake and ERP export
type OrderStatus string

const (
	OrderStatusReceived    OrderStatus = "received"
	OrderStatusNeedsReview OrderStatus = "needs_review"
	OrderStatusReady       OrderStatus = "ready"
	OrderStatusPushedToERP OrderStatus = "pushed_to_erp"
	OrderStatusCompleted   OrderStatus = "completed"
	OrderStatusCancelled   OrderStatus = "cancelled"
)

var statusRank = map[OrderStatus]int{
	OrderStatusReceived:    1,
	OrderStatusNeedsReview: 2,
	OrderStatusReady:       3,
	OrderStatusPushedToERP: 4,
	OrderStatusCompleted:   5,
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok || s == OrderStatusCancelled
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are allowed
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status.
// Statuses only move forward; cancellation is allowed from any non-terminal state.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s.IsTerminal() || !target.IsValid() {
		return false
	}
	if target == OrderStatusCancelled {
		return true
	}
	return statusRank[target] > statusRank[s]
}

// Order is the aggregate root for a customer order and its line set
type Order struct {
	shared.OrganizationAggregateRoot
	CustomerID     *uuid.UUID
	CustomerName   string
	DeliveryDate   *time.Time
	Status         OrderStatus
	Total          decimal.Decimal
	SourceChannel  string
	UserReviewedAt *time.Time
	Lines          []OrderLine
}

// NewOrder creates a new order in received status.
// Either a customer id or a customer name is required.
func NewOrder(organizationID uuid.UUID, customerID *uuid.UUID, customerName string, deliveryDate *time.Time, sourceChannel string) (*Order, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeMissingRequiredContext, "Organization is required to create an order")
	}
	customerName = strings.TrimSpace(customerName)
	if (customerID == nil || *customerID == uuid.Nil) && customerName == "" {
		return nil, shared.NewDomainError(shared.CodeMissingRequiredContext, "Customer is required to create an order")
	}
	if sourceChannel == "" {
		sourceChannel = "manual"
	}

	return &Order{
		OrganizationAggregateRoot: shared.NewOrganizationAggregateRoot(organizationID),
		CustomerID:                customerID,
		CustomerName:              customerName,
		DeliveryDate:              deliveryDate,
		Status:                    OrderStatusReceived,
		Total:                     decimal.Zero,
		SourceChannel:             sourceChannel,
		Lines:                     make([]OrderLine, 0),
	}, nil
}

// ActiveLines returns the non-deleted lines ordered by line number.
// Every read of "the order's lines" goes through here.
func (o *Order) ActiveLines() []OrderLine {
	active := make([]OrderLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		if l.IsActive() {
			active = append(active, l)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].LineNumber < active[j].LineNumber
	})
	return active
}

// NextLineNumber returns one past the highest line number ever assigned,
// soft-deleted lines included, so numbers are never reused.
func (o *Order) NextLineNumber() int {
	maxNumber := 0
	for _, l := range o.Lines {
		if l.LineNumber > maxNumber {
			maxNumber = l.LineNumber
		}
	}
	return maxNumber + 1
}

// GetLine returns the line with the given id, active or not
func (o *Order) GetLine(lineID uuid.UUID) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

// AddLine appends a new active line with the next unused line number
func (o *Order) AddLine(input LineInput) (*OrderLine, error) {
	if err := o.ensureModifiable(); err != nil {
		return nil, err
	}
	line, err := newOrderLine(o.ID, o.NextLineNumber(), input)
	if err != nil {
		return nil, err
	}
	o.Lines = append(o.Lines, *line)
	o.touch()
	return line, nil
}

// RemoveLine soft-deletes an active line. The row keeps its id and number.
func (o *Order) RemoveLine(lineID uuid.UUID) error {
	if err := o.ensureModifiable(); err != nil {
		return err
	}
	line := o.GetLine(lineID)
	if line == nil {
		return lineNotFound(lineID)
	}
	if !line.IsActive() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Line %d is already removed", line.LineNumber)).
			WithDetail("line_id", lineID.String())
	}
	line.Status = LineStatusDeleted
	line.UpdatedAt = time.Now()
	o.touch()
	return nil
}

// ModifyLine updates only the fields present in the change.
// It returns false when nothing differed from the current values.
func (o *Order) ModifyLine(lineID uuid.UUID, change LineChange) (bool, error) {
	if err := o.ensureModifiable(); err != nil {
		return false, err
	}
	line := o.GetLine(lineID)
	if line == nil {
		return false, lineNotFound(lineID)
	}
	if !line.IsActive() {
		return false, shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot modify removed line %d", line.LineNumber)).
			WithDetail("line_id", lineID.String())
	}
	if change.Quantity != nil && *change.Quantity <= 0 {
		return false, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be a positive integer").
			WithDetail("line_id", lineID.String()).
			WithDetail("field", "quantity")
	}

	changed := false
	if change.Quantity != nil && *change.Quantity != line.Quantity {
		line.Quantity = *change.Quantity
		changed = true
	}
	if change.VariantID != nil && (line.VariantID == nil || *line.VariantID != *change.VariantID) {
		variantID := *change.VariantID
		line.VariantID = &variantID
		if change.VariantCode != "" {
			line.VariantCode = change.VariantCode
		}
		changed = true
	}
	if changed {
		line.UpdatedAt = time.Now()
		o.touch()
	}
	return changed, nil
}

// RestoreLine reactivates a soft-deleted line in place, keeping its id and
// line number, and applies the given change on top.
func (o *Order) RestoreLine(lineID uuid.UUID, change LineChange) (*OrderLine, error) {
	if err := o.ensureModifiable(); err != nil {
		return nil, err
	}
	line := o.GetLine(lineID)
	if line == nil {
		return nil, lineNotFound(lineID)
	}
	if line.IsActive() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Line %d is not removed", line.LineNumber)).
			WithDetail("line_id", lineID.String())
	}
	if change.Quantity != nil && *change.Quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be a positive integer").
			WithDetail("line_id", lineID.String()).
			WithDetail("field", "quantity")
	}
	line.Status = LineStatusActive
	if change.Quantity != nil {
		line.Quantity = *change.Quantity
	}
	if change.VariantID != nil {
		variantID := *change.VariantID
		line.VariantID = &variantID
		if change.VariantCode != "" {
			line.VariantCode = change.VariantCode
		}
	}
	line.UpdatedAt = time.Now()
	o.touch()
	restored := *line
	return &restored, nil
}

// Cancel cancels the order and soft-deletes every active line.
// It returns the number of lines removed.
func (o *Order) Cancel() (int, error) {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return 0, shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	now := time.Now()
	removed := 0
	for i := range o.Lines {
		if o.Lines[i].IsActive() {
			o.Lines[i].Status = LineStatusDeleted
			o.Lines[i].UpdatedAt = now
			removed++
		}
	}
	o.Status = OrderStatusCancelled
	o.Total = decimal.Zero
	o.touch()
	return removed, nil
}

// TransitionTo moves the order to a later status
func (o *Order) TransitionTo(target OrderStatus) error {
	if o.Status == target {
		return nil
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot move order from %s to %s", o.Status, target))
	}
	o.Status = target
	o.touch()
	return nil
}

// MarkExported records a successful hand-off to the ERP
func (o *Order) MarkExported() error {
	if len(o.ActiveLines()) == 0 {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot export an order without active lines")
	}
	return o.TransitionTo(OrderStatusPushedToERP)
}

// MarkReviewed sets the first-human-review timestamp.
// It returns true only the first time; later calls leave the timestamp alone.
func (o *Order) MarkReviewed(at time.Time) bool {
	if o.UserReviewedAt != nil {
		return false
	}
	o.UserReviewedAt = &at
	o.touch()
	return true
}

// IsReviewed reports whether a human has already reviewed this order
func (o *Order) IsReviewed() bool {
	return o.UserReviewedAt != nil
}

// UpdateCustomer overwrites customer and delivery fields that are set
func (o *Order) UpdateCustomer(customerID *uuid.UUID, customerName string, deliveryDate *time.Time) {
	if customerID != nil && *customerID != uuid.Nil {
		o.CustomerID = customerID
	}
	if name := strings.TrimSpace(customerName); name != "" {
		o.CustomerName = name
	}
	if deliveryDate != nil {
		o.DeliveryDate = deliveryDate
	}
	o.touch()
}

// RecalculateTotal sums quantity x unit price over active lines.
// prices is keyed by order line id. Lines without a price contribute zero
// and their ids are returned so the caller can surface them.
func (o *Order) RecalculateTotal(prices map[uuid.UUID]decimal.Decimal) []uuid.UUID {
	total := decimal.Zero
	unpriced := make([]uuid.UUID, 0)
	for _, l := range o.ActiveLines() {
		price, ok := prices[l.ID]
		if !ok {
			unpriced = append(unpriced, l.ID)
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	o.Total = total.Round(2)
	o.touch()
	return unpriced
}

// CanModify reports whether lines may still change
func (o *Order) CanModify() bool {
	return !o.Status.IsTerminal()
}

func (o *Order) ensureModifiable() error {
	if !o.CanModify() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot change lines of order in %s status", o.Status))
	}
	return nil
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now()
}

func lineNotFound(lineID uuid.UUID) error {
	return shared.NewDomainError(shared.CodeNotFound, "Order line not found").
		WithDetail("line_id", lineID.String())
}
