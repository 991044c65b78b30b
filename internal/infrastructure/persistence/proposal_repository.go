package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/proposal"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProposalRepository implements proposal.ProposalRepository using GORM
type GormProposalRepository struct {
	db *gorm.DB
}

// NewGormProposalRepository creates a new GormProposalRepository
func NewGormProposalRepository(db *gorm.DB) *GormProposalRepository {
	return &GormProposalRepository{db: db}
}

// FindByID finds a proposal with its lines
func (r *GormProposalRepository) FindByID(ctx context.Context, id uuid.UUID) (*proposal.OrderChangeProposal, error) {
	var model models.ProposalModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", preloadLines).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForOrganization finds a proposal by ID within an organization
func (r *GormProposalRepository) FindByIDForOrganization(ctx context.Context, organizationID, id uuid.UUID) (*proposal.OrderChangeProposal, error) {
	var model models.ProposalModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", preloadLines).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns one page of proposals and the total count
func (r *GormProposalRepository) List(ctx context.Context, filter proposal.ListFilter) ([]proposal.OrderChangeProposal, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProposalModel{}).
		Where("organization_id = ?", filter.OrganizationID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ProposalModel
	if err := query.
		Preload("Lines", preloadLines).
		Clauses(proposalSort.orderBy(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]proposal.OrderChangeProposal, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// CountPendingForOrder counts undecided proposals that reference the order
func (r *GormProposalRepository) CountPendingForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProposalModel{}).
		Where("order_id = ? AND status = ?", orderID, proposal.StatusPending).
		Count(&count).Error
	return count, err
}

// Save inserts a new proposal and its lines
func (r *GormProposalRepository) Save(ctx context.Context, p *proposal.OrderChangeProposal) error {
	model := models.ProposalModelFromDomain(p)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Create(model).Error; err != nil {
			return err
		}
		if len(model.Lines) == 0 {
			return nil
		}
		return tx.Create(&model.Lines).Error
	})
}

// SaveWithLock updates a proposal under its version check.
// Lines no longer on the proposal are deleted; the rest are upserted.
func (r *GormProposalRepository) SaveWithLock(ctx context.Context, p *proposal.OrderChangeProposal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		result := tx.Model(&models.ProposalModel{}).
			Where("id = ?", p.ID).
			Select("version").
			Scan(&currentVersion)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		if currentVersion != p.Version {
			return shared.NewDomainError(shared.CodeConcurrentModification, "The proposal has been modified by another user")
		}

		nextVersion := p.Version + 1
		updatedAt := time.Now()
		model := models.ProposalModelFromDomain(p)

		result = tx.Model(&models.ProposalModel{}).
			Where("id = ? AND version = ?", p.ID, currentVersion).
			Updates(map[string]interface{}{
				"order_id":    model.OrderID,
				"status":      model.Status,
				"tags":        model.Tags,
				"reviewed_at": model.ReviewedAt,
				"reviewed_by": model.ReviewedBy,
				"notes":       model.Notes,
				"version":     nextVersion,
				"updated_at":  updatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError(shared.CodeConcurrentModification, "The proposal has been modified by another user")
		}

		lineIDs := make([]uuid.UUID, len(model.Lines))
		for i := range model.Lines {
			lineIDs[i] = model.Lines[i].ID
		}
		if len(lineIDs) > 0 {
			var foreign int64
			if err := tx.Model(&models.ProposalLineModel{}).
				Where("id IN ? AND proposal_id <> ?", lineIDs, p.ID).
				Count(&foreign).Error; err != nil {
				return err
			}
			if foreign > 0 {
				return shared.NewDomainError(shared.CodeInvalidProposalLine, "Proposal line id belongs to another proposal").
					WithDetail("proposal_id", p.ID.String())
			}
		}

		del := tx.Where("proposal_id = ?", p.ID)
		if len(lineIDs) > 0 {
			del = del.Where("id NOT IN ?", lineIDs)
		}
		if err := del.Delete(&models.ProposalLineModel{}).Error; err != nil {
			return err
		}
		if len(model.Lines) > 0 {
			// A row is only ever updated in place by its own proposal
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				Where: clause.Where{Exprs: []clause.Expression{
					clause.Eq{Column: clause.Column{Table: models.ProposalLineModel{}.TableName(), Name: "proposal_id"}, Value: p.ID},
				}},
				UpdateAll: true,
			}).Create(&model.Lines).Error; err != nil {
				return err
			}
		}

		p.Version = nextVersion
		p.UpdatedAt = updatedAt
		return nil
	})
}

// Ensure GormProposalRepository implements proposal.ProposalRepository
var _ proposal.ProposalRepository = (*GormProposalRepository)(nil)
