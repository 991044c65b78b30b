package models

import (
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/feedback"
	"github.com/google/uuid"
)

// AccuracyRecordModel is the persistence model for prediction accuracy records
type AccuracyRecordModel struct {
	ID                uuid.UUID         `gorm:"type:uuid;primary_key"`
	OrganizationID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	OrderID           uuid.UUID         `gorm:"type:uuid;not null;index"`
	ProposalID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	ProposalLineID    *uuid.UUID        `gorm:"type:uuid"`
	Category          feedback.Category `gorm:"type:varchar(20);not null;index"`
	PredictedItemID   *uuid.UUID        `gorm:"type:uuid"`
	ApprovedItemID    *uuid.UUID        `gorm:"type:uuid"`
	PredictedQuantity *int
	ApprovedQuantity  *int
	PredictedCustomer string     `gorm:"type:varchar(200)"`
	ApprovedCustomer  string     `gorm:"type:varchar(200)"`
	ReviewedBy        *uuid.UUID `gorm:"type:uuid"`
	CreatedAt         time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccuracyRecordModel) TableName() string {
	return "prediction_accuracy_records"
}

// ToDomain converts the persistence model to a domain AccuracyRecord
func (m *AccuracyRecordModel) ToDomain() feedback.AccuracyRecord {
	return feedback.AccuracyRecord{
		ID:                m.ID,
		OrganizationID:    m.OrganizationID,
		OrderID:           m.OrderID,
		ProposalID:        m.ProposalID,
		ProposalLineID:    m.ProposalLineID,
		Category:          m.Category,
		PredictedItemID:   m.PredictedItemID,
		ApprovedItemID:    m.ApprovedItemID,
		PredictedQuantity: m.PredictedQuantity,
		ApprovedQuantity:  m.ApprovedQuantity,
		PredictedCustomer: m.PredictedCustomer,
		ApprovedCustomer:  m.ApprovedCustomer,
		ReviewedBy:        m.ReviewedBy,
		CreatedAt:         m.CreatedAt,
	}
}

// AccuracyRecordModelFromDomain creates a persistence model from a domain AccuracyRecord
func AccuracyRecordModelFromDomain(r feedback.AccuracyRecord) *AccuracyRecordModel {
	return &AccuracyRecordModel{
		ID:                r.ID,
		OrganizationID:    r.OrganizationID,
		OrderID:           r.OrderID,
		ProposalID:        r.ProposalID,
		ProposalLineID:    r.ProposalLineID,
		Category:          r.Category,
		PredictedItemID:   r.PredictedItemID,
		ApprovedItemID:    r.ApprovedItemID,
		PredictedQuantity: r.PredictedQuantity,
		ApprovedQuantity:  r.ApprovedQuantity,
		PredictedCustomer: r.PredictedCustomer,
		ApprovedCustomer:  r.ApprovedCustomer,
		ReviewedBy:        r.ReviewedBy,
		CreatedAt:         r.CreatedAt,
	}
}
