package models

import (
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/proposal"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ProposalModel is the persistence model for the OrderChangeProposal aggregate root.
type ProposalModel struct {
	OrganizationAggregateModel
	OrderID       *uuid.UUID        `gorm:"type:uuid;index"`
	IntakeEventID *uuid.UUID        `gorm:"type:uuid;index"`
	Type          proposal.Type     `gorm:"type:varchar(20);not null"`
	Status        proposal.Status   `gorm:"type:varchar(20);not null;default:'pending';index"`
	Tags          datatypes.JSONMap `gorm:"type:jsonb"`
	ReviewedAt    *time.Time
	ReviewedBy    *uuid.UUID          `gorm:"type:uuid"`
	Notes         string              `gorm:"type:text"`
	Lines         []ProposalLineModel `gorm:"foreignKey:ProposalID;references:ID"`
}

// TableName returns the table name for GORM
func (ProposalModel) TableName() string {
	return "order_change_proposals"
}

// ToDomain converts the persistence model to a domain proposal
func (m *ProposalModel) ToDomain() *proposal.OrderChangeProposal {
	tags := map[string]any(m.Tags)
	if tags == nil {
		tags = make(map[string]any)
	}
	p := &proposal.OrderChangeProposal{
		OrganizationAggregateRoot: m.ToDomainAggregateRoot(),
		OrderID:                   m.OrderID,
		IntakeEventID:             m.IntakeEventID,
		Type:                      m.Type,
		Status:                    m.Status,
		Tags:                      tags,
		ReviewedAt:                m.ReviewedAt,
		ReviewedBy:                m.ReviewedBy,
		Notes:                     m.Notes,
		Lines:                     make([]proposal.ProposalLine, len(m.Lines)),
	}
	for i := range m.Lines {
		p.Lines[i] = m.Lines[i].ToDomain()
	}
	return p
}

// ProposalModelFromDomain creates a persistence model from a domain proposal
func ProposalModelFromDomain(p *proposal.OrderChangeProposal) *ProposalModel {
	m := &ProposalModel{
		OrderID:       p.OrderID,
		IntakeEventID: p.IntakeEventID,
		Type:          p.Type,
		Status:        p.Status,
		Tags:          datatypes.JSONMap(p.Tags),
		ReviewedAt:    p.ReviewedAt,
		ReviewedBy:    p.ReviewedBy,
		Notes:         p.Notes,
	}
	m.FromDomainAggregateRoot(p.OrganizationAggregateRoot)
	m.Lines = make([]ProposalLineModel, len(p.Lines))
	for i := range p.Lines {
		m.Lines[i] = *ProposalLineModelFromDomain(p.Lines[i], p.CreatedAt)
		m.Lines[i].ProposalID = p.ID
	}
	return m
}

// ProposalLineModel is the persistence model for ProposalLine
type ProposalLineModel struct {
	BaseModel
	ProposalID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	OrderLineID    *uuid.UUID          `gorm:"type:uuid;index"`
	RestoresLineID *uuid.UUID          `gorm:"type:uuid"`
	LineNumber     int                 `gorm:"not null"`
	ChangeType     proposal.ChangeType `gorm:"type:varchar(10);not null"`
	ItemID         *uuid.UUID          `gorm:"type:uuid"`
	VariantID      *uuid.UUID          `gorm:"type:uuid"`
	ItemName       string              `gorm:"type:varchar(300)"`
	ProposedValues datatypes.JSONType[proposal.ProposedValues] `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (ProposalLineModel) TableName() string {
	return "proposal_lines"
}

// ToDomain converts the persistence model to a domain ProposalLine
func (m *ProposalLineModel) ToDomain() proposal.ProposalLine {
	return proposal.ProposalLine{
		ID:             m.ID,
		ProposalID:     m.ProposalID,
		OrderLineID:    m.OrderLineID,
		RestoresLineID: m.RestoresLineID,
		LineNumber:     m.LineNumber,
		ChangeType:     m.ChangeType,
		ItemID:         m.ItemID,
		VariantID:      m.VariantID,
		ItemName:       m.ItemName,
		ProposedValues: m.ProposedValues.Data(),
	}
}

// ProposalLineModelFromDomain creates a persistence model from a domain ProposalLine
func ProposalLineModelFromDomain(l proposal.ProposalLine, createdAt time.Time) *ProposalLineModel {
	return &ProposalLineModel{
		BaseModel: BaseModel{
			ID:        l.ID,
			CreatedAt: createdAt,
			UpdatedAt: time.Now(),
		},
		ProposalID:     l.ProposalID,
		OrderLineID:    l.OrderLineID,
		RestoresLineID: l.RestoresLineID,
		LineNumber:     l.LineNumber,
		ChangeType:     l.ChangeType,
		ItemID:         l.ItemID,
		VariantID:      l.VariantID,
		ItemName:       l.ItemName,
		ProposedValues: datatypes.NewJSONType(l.ProposedValues),
	}
}
