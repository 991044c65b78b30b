package models

import (
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel holds the id and timestamp columns every table carries
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// OrganizationAggregateModel adds the owning organization and the version
// column compared by SaveWithLock
type OrganizationAggregateModel struct {
	BaseModel
	Version        int        `gorm:"not null;default:1"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy      *uuid.UUID `gorm:"type:uuid"`
}

// FromDomainAggregateRoot copies the root columns off a domain aggregate
func (m *OrganizationAggregateModel) FromDomainAggregateRoot(a shared.OrganizationAggregateRoot) {
	m.ID = a.ID
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
	m.Version = a.Version
	m.OrganizationID = a.OrganizationID
	m.CreatedBy = a.CreatedBy
}

// ToDomainAggregateRoot rebuilds the domain aggregate root
func (m *OrganizationAggregateModel) ToDomainAggregateRoot() shared.OrganizationAggregateRoot {
	return shared.RestoreOrganizationAggregateRoot(m.ID, m.OrganizationID, m.CreatedBy, m.Version, m.CreatedAt, m.UpdatedAt)
}
