package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/catalog"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormCatalogRepository implements catalog.Catalog on the catalog_items and
// item_variants tables
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// UnitPrices resolves prices for all refs with one query
func (r *GormCatalogRepository) UnitPrices(ctx context.Context, refs []catalog.PriceRef) (map[catalog.PriceRef]decimal.Decimal, error) {
	prices := make(map[catalog.PriceRef]decimal.Decimal, len(refs))
	if len(refs) == 0 {
		return prices, nil
	}

	seen := make(map[uuid.UUID]bool, len(refs))
	itemIDs := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		if ref.ItemID == uuid.Nil || seen[ref.ItemID] {
			continue
		}
		seen[ref.ItemID] = true
		itemIDs = append(itemIDs, ref.ItemID)
	}
	if len(itemIDs) == 0 {
		return prices, nil
	}

	var rows []models.CatalogItemModel
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id IN ?", itemIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make(map[uuid.UUID]*catalog.Item, len(rows))
	for i := range rows {
		items[rows[i].ID] = rows[i].ToDomain()
	}
	for _, ref := range refs {
		item, ok := items[ref.ItemID]
		if !ok {
			continue
		}
		if price, ok := catalog.ResolvePrice(*item, ref.VariantID); ok {
			prices[ref] = price
		}
	}
	return prices, nil
}

// FindItemByName matches the item name case-insensitively within the organization
func (r *GormCatalogRepository) FindItemByName(ctx context.Context, organizationID uuid.UUID, name string) (*catalog.Item, error) {
	var model models.CatalogItemModel
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("organization_id = ? AND LOWER(name) = ?", organizationID, strings.ToLower(strings.TrimSpace(name))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindVariantByCode finds a variant of an item by its code
func (r *GormCatalogRepository) FindVariantByCode(ctx context.Context, itemID uuid.UUID, code string) (*catalog.Variant, error) {
	var model models.ItemVariantModel
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND code = ?", itemID, code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	v := model.ToDomain()
	return &v, nil
}

// Ensure GormCatalogRepository implements catalog.Catalog
var _ catalog.Catalog = (*GormCatalogRepository)(nil)
