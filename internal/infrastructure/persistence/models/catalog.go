package models

import (
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogItemModel is the persistence model for a catalog item
type CatalogItemModel struct {
	BaseModel
	OrganizationID uuid.UUID          `gorm:"type:uuid;not null;index"`
	Name           string             `gorm:"type:varchar(300);not null;index"`
	SKU            string             `gorm:"type:varchar(100)"`
	UnitPrice      *decimal.Decimal   `gorm:"type:decimal(18,4)"`
	Variants       []ItemVariantModel `gorm:"foreignKey:ItemID;references:ID"`
}

// TableName returns the table name for GORM
func (CatalogItemModel) TableName() string {
	return "catalog_items"
}

// ToDomain converts the persistence model to a domain Item
func (m *CatalogItemModel) ToDomain() *catalog.Item {
	item := &catalog.Item{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Name:           m.Name,
		SKU:            m.SKU,
		UnitPrice:      m.UnitPrice,
		Variants:       make([]catalog.Variant, len(m.Variants)),
	}
	for i := range m.Variants {
		item.Variants[i] = m.Variants[i].ToDomain()
	}
	return item
}

// ItemVariantModel is the persistence model for an item variant
type ItemVariantModel struct {
	BaseModel
	ItemID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	Code      string           `gorm:"type:varchar(50);not null"`
	Name      string           `gorm:"type:varchar(200)"`
	UnitPrice *decimal.Decimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (ItemVariantModel) TableName() string {
	return "item_variants"
}

// ToDomain converts the persistence model to a domain Variant
func (m *ItemVariantModel) ToDomain() catalog.Variant {
	return catalog.Variant{
		ID:        m.ID,
		ItemID:    m.ItemID,
		Code:      m.Code,
		Name:      m.Name,
		UnitPrice: m.UnitPrice,
	}
}
