package proposal

import (
	"context"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// ListFilter narrows a proposal listing
type ListFilter struct {
	shared.Filter
	OrganizationID uuid.UUID
	Status         Status
	OrderID        *uuid.UUID
}

// ProposalRepository persists proposals together with their lines
type ProposalRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OrderChangeProposal, error)
	FindByIDForOrganization(ctx context.Context, organizationID, id uuid.UUID) (*OrderChangeProposal, error)
	List(ctx context.Context, filter ListFilter) ([]OrderChangeProposal, int64, error)
	// CountPendingForOrder counts undecided proposals that reference the order
	CountPendingForOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	Save(ctx context.Context, p *OrderChangeProposal) error
	// SaveWithLock updates the proposal if its version still matches.
	// Lines are replaced wholesale.
	SaveWithLock(ctx context.Context, p *OrderChangeProposal) error
}
