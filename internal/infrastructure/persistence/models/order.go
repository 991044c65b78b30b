package models

import (
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	OrganizationAggregateModel
	CustomerID     *uuid.UUID        `gorm:"type:uuid;index"`
	CustomerName   string            `gorm:"type:varchar(200)"`
	DeliveryDate   *datatypes.Date   `gorm:"index"`
	Status         order.OrderStatus `gorm:"type:varchar(20);not null;default:'received';index"`
	Total          decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	SourceChannel  string            `gorm:"type:varchar(30);not null;default:'manual'"`
	UserReviewedAt *time.Time
	Lines          []OrderLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		OrganizationAggregateRoot: m.ToDomainAggregateRoot(),
		CustomerID:                m.CustomerID,
		CustomerName:              m.CustomerName,
		Status:                    m.Status,
		Total:                     m.Total,
		SourceChannel:             m.SourceChannel,
		UserReviewedAt:            m.UserReviewedAt,
		Lines:                     make([]order.OrderLine, len(m.Lines)),
	}
	if m.DeliveryDate != nil {
		d := time.Time(*m.DeliveryDate)
		o.DeliveryDate = &d
	}
	for i := range m.Lines {
		o.Lines[i] = *m.Lines[i].ToDomain()
	}
	return o
}

// OrderModelFromDomain creates a persistence model from a domain Order
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{
		CustomerID:     o.CustomerID,
		CustomerName:   o.CustomerName,
		Status:         o.Status,
		Total:          o.Total,
		SourceChannel:  o.SourceChannel,
		UserReviewedAt: o.UserReviewedAt,
	}
	m.FromDomainAggregateRoot(o.OrganizationAggregateRoot)
	if o.DeliveryDate != nil {
		d := datatypes.Date(*o.DeliveryDate)
		m.DeliveryDate = &d
	}
	m.Lines = make([]OrderLineModel, len(o.Lines))
	for i := range o.Lines {
		m.Lines[i] = *OrderLineModelFromDomain(&o.Lines[i])
		m.Lines[i].OrderID = o.ID
	}
	return m
}

// OrderLineModel is the persistence model for OrderLine.
// (order_id, line_number) is unique; numbers are never reused.
type OrderLineModel struct {
	BaseModel
	OrderID              uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_order_lines_order_number,priority:1"`
	LineNumber           int               `gorm:"not null;uniqueIndex:idx_order_lines_order_number,priority:2"`
	ItemID               *uuid.UUID        `gorm:"type:uuid;index"`
	VariantID            *uuid.UUID        `gorm:"type:uuid"`
	VariantCode          string            `gorm:"type:varchar(50)"`
	ProductName          string            `gorm:"type:varchar(300)"`
	Quantity             int               `gorm:"not null"`
	Status               order.LineStatus  `gorm:"type:varchar(10);not null;default:'active';index"`
	Metadata             datatypes.JSONMap `gorm:"type:jsonb"`
	SourceProposalLineID *uuid.UUID        `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine
func (m *OrderLineModel) ToDomain() *order.OrderLine {
	metadata := map[string]any(m.Metadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &order.OrderLine{
		ID:                   m.ID,
		OrderID:              m.OrderID,
		LineNumber:           m.LineNumber,
		ItemID:               m.ItemID,
		VariantID:            m.VariantID,
		VariantCode:          m.VariantCode,
		ProductName:          m.ProductName,
		Quantity:             m.Quantity,
		Status:               m.Status,
		Metadata:             metadata,
		SourceProposalLineID: m.SourceProposalLineID,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// OrderLineModelFromDomain creates a persistence model from a domain OrderLine
func OrderLineModelFromDomain(l *order.OrderLine) *OrderLineModel {
	return &OrderLineModel{
		BaseModel: BaseModel{
			ID:        l.ID,
			CreatedAt: l.CreatedAt,
			UpdatedAt: l.UpdatedAt,
		},
		OrderID:              l.OrderID,
		LineNumber:           l.LineNumber,
		ItemID:               l.ItemID,
		VariantID:            l.VariantID,
		VariantCode:          l.VariantCode,
		ProductName:          l.ProductName,
		Quantity:             l.Quantity,
		Status:               l.Status,
		Metadata:             datatypes.JSONMap(l.Metadata),
		SourceProposalLineID: l.SourceProposalLineID,
	}
}

// OrderEventModel is the persistence model for the append-only audit trail
type OrderEventModel struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	OrganizationID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Type           order.EventType   `gorm:"type:varchar(30);not null;index"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderEventModel) TableName() string {
	return "order_events"
}

// ToDomain converts the persistence model to a domain OrderEvent
func (m *OrderEventModel) ToDomain() order.OrderEvent {
	metadata := map[string]any(m.Metadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return order.OrderEvent{
		ID:             m.ID,
		OrderID:        m.OrderID,
		OrganizationID: m.OrganizationID,
		Type:           m.Type,
		Metadata:       metadata,
		CreatedAt:      m.CreatedAt,
	}
}

// OrderEventModelFromDomain creates a persistence model from a domain OrderEvent
func OrderEventModelFromDomain(e order.OrderEvent) *OrderEventModel {
	return &OrderEventModel{
		ID:             e.ID,
		OrderID:        e.OrderID,
		OrganizationID: e.OrganizationID,
		Type:           e.Type,
		Metadata:       datatypes.JSONMap(e.Metadata),
		CreatedAt:      e.CreatedAt,
	}
}
