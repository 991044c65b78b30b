package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity carries identity and timestamps
type Entity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrganizationAggregateRoot is the root of an aggregate owned by one
// organization. Version is compared on every locked save; domain events
// queue here until the saving transaction commits.
type OrganizationAggregateRoot struct {
	Entity
	OrganizationID uuid.UUID
	CreatedBy      *uuid.UUID
	Version        int
	pending        []DomainEvent
}

// NewOrganizationAggregateRoot starts a fresh aggregate at version 1
func NewOrganizationAggregateRoot(organizationID uuid.UUID) OrganizationAggregateRoot {
	now := time.Now()
	return OrganizationAggregateRoot{
		Entity:         Entity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		OrganizationID: organizationID,
		Version:        1,
	}
}

// RestoreOrganizationAggregateRoot rebuilds the root of a stored aggregate
func RestoreOrganizationAggregateRoot(id, organizationID uuid.UUID, createdBy *uuid.UUID, version int, createdAt, updatedAt time.Time) OrganizationAggregateRoot {
	return OrganizationAggregateRoot{
		Entity:         Entity{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt},
		OrganizationID: organizationID,
		CreatedBy:      createdBy,
		Version:        version,
	}
}

// SetCreatedBy records the user that created the aggregate
func (a *OrganizationAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	a.CreatedBy = &userID
}

// AddDomainEvent queues an event for publication after commit
func (a *OrganizationAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events
func (a *OrganizationAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the queued events once they are published
func (a *OrganizationAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}
