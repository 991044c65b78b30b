package persistence

import (
	"context"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderEventRepository implements order.EventRepository using GORM.
// It only ever inserts.
type GormOrderEventRepository struct {
	db *gorm.DB
}

// NewGormOrderEventRepository creates a new GormOrderEventRepository
func NewGormOrderEventRepository(db *gorm.DB) *GormOrderEventRepository {
	return &GormOrderEventRepository{db: db}
}

// Append inserts audit records
func (r *GormOrderEventRepository) Append(ctx context.Context, events ...order.OrderEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]models.OrderEventModel, len(events))
	for i, e := range events {
		rows[i] = *models.OrderEventModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindByOrder returns an order's audit trail, oldest first
func (r *GormOrderEventRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]order.OrderEvent, error) {
	var rows []models.OrderEventModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	events := make([]order.OrderEvent, len(rows))
	for i := range rows {
		events[i] = rows[i].ToDomain()
	}
	return events, nil
}

// Ensure GormOrderEventRepository implements order.EventRepository
var _ order.EventRepository = (*GormOrderEventRepository)(nil)
