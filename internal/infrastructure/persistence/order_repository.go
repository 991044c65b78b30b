package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_number ASC")
}

// FindByID finds an order with all of its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
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

// FindByIDForOrganization finds an order by ID within an organization
func (r *GormOrderRepository) FindByIDForOrganization(ctx context.Context, organizationID, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
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

// Save inserts a new order and its lines
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Create(model).Error; err != nil {
			return err
		}
		return upsertLines(tx, model.Lines)
	})
}

// SaveWithLock updates the order if nobody else changed it since it was
// loaded, then upserts every line. Lines are never deleted.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		result := tx.Model(&models.OrderModel{}).
			Where("id = ?", o.ID).
			Select("version").
			Scan(&currentVersion)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}

		if currentVersion != o.Version {
			return shared.NewDomainError(shared.CodeConcurrentModification, "The order has been modified by another user")
		}

		nextVersion := o.Version + 1
		updatedAt := time.Now()
		model := models.OrderModelFromDomain(o)

		result = tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, currentVersion).
			Updates(map[string]interface{}{
				"customer_id":      model.CustomerID,
				"customer_name":    model.CustomerName,
				"delivery_date":    model.DeliveryDate,
				"status":           model.Status,
				"total":            model.Total,
				"source_channel":   model.SourceChannel,
				"user_reviewed_at": model.UserReviewedAt,
				"version":          nextVersion,
				"updated_at":       updatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError(shared.CodeConcurrentModification, "The order has been modified by another user")
		}

		if err := upsertLines(tx, model.Lines); err != nil {
			return err
		}

		o.Version = nextVersion
		o.UpdatedAt = updatedAt
		return nil
	})
}

func upsertLines(tx *gorm.DB, lines []models.OrderLineModel) error {
	if len(lines) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"item_id", "variant_id", "variant_code", "product_name",
			"quantity", "status", "metadata", "updated_at",
		}),
	}).Create(&lines).Error
}

// Ensure GormOrderRepository implements order.OrderRepository
var _ order.OrderRepository = (*GormOrderRepository)(nil)
