package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a sellable product in an organization's catalog
type Item struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	SKU            string
	UnitPrice      *decimal.Decimal
	Variants       []Variant
}

// Variant is a pack size or grade of an item with its own code and price
type Variant struct {
	ID        uuid.UUID
	ItemID    uuid.UUID
	Code      string
	Name      string
	UnitPrice *decimal.Decimal
}

// PriceRef identifies what to price. A zero VariantID means the item itself.
type PriceRef struct {
	ItemID    uuid.UUID
	VariantID uuid.UUID
}

// PriceLookup resolves unit prices in bulk. References without a price are
// simply absent from the result.
type PriceLookup interface {
	UnitPrices(ctx context.Context, refs []PriceRef) (map[PriceRef]decimal.Decimal, error)
}

// ItemLookup resolves catalog entries for direct order edits
type ItemLookup interface {
	// FindItemByName matches the name case-insensitively within the organization
	FindItemByName(ctx context.Context, organizationID uuid.UUID, name string) (*Item, error)
	FindVariantByCode(ctx context.Context, itemID uuid.UUID, code string) (*Variant, error)
}

// Catalog combines price and item lookups
type Catalog interface {
	PriceLookup
	ItemLookup
}

// ResolvePrice picks the variant price and falls back to the item price
func ResolvePrice(item Item, variantID uuid.UUID) (decimal.Decimal, bool) {
	if variantID != uuid.Nil {
		for _, v := range item.Variants {
			if v.ID == variantID && v.UnitPrice != nil {
				return *v.UnitPrice, true
			}
		}
	}
	if item.UnitPrice != nil {
		return *item.UnitPrice, true
	}
	return decimal.Zero, false
}
