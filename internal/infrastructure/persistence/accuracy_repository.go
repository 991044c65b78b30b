package persistence

import (
	"context"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/feedback"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccuracyRepository implements feedback.AccuracyRepository using GORM
type GormAccuracyRepository struct {
	db *gorm.DB
}

// NewGormAccuracyRepository creates a new GormAccuracyRepository
func NewGormAccuracyRepository(db *gorm.DB) *GormAccuracyRepository {
	return &GormAccuracyRepository{db: db}
}

// SaveAll inserts accuracy records in one batch
func (r *GormAccuracyRepository) SaveAll(ctx context.Context, records []feedback.AccuracyRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]models.AccuracyRecordModel, len(records))
	for i, rec := range records {
		rows[i] = *models.AccuracyRecordModelFromDomain(rec)
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, 100).Error
}

// FindByOrder returns every accuracy record for an order
func (r *GormAccuracyRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]feedback.AccuracyRecord, error) {
	var rows []models.AccuracyRecordModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]feedback.AccuracyRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Ensure GormAccuracyRepository implements feedback.AccuracyRepository
var _ feedback.AccuracyRepository = (*GormAccuracyRepository)(nil)
