package cache

import (
	"context"
	"errors"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	priceKeyPrefix = "recon:price:"
	// noPrice marks a reference the catalog could not price
	noPrice = "-"
)

// PriceCache is a read-through Redis cache in front of a catalog's unit
// prices. Item lookups pass straight through. Redis failures fall back to
// the inner catalog.
type PriceCache struct {
	inner  catalog.Catalog
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewPriceCache wraps inner. A non-positive ttl returns inner unchanged.
func NewPriceCache(inner catalog.Catalog, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) catalog.Catalog {
	if client == nil || ttl <= 0 {
		return inner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceCache{inner: inner, client: client, ttl: ttl, logger: logger}
}

func priceKey(ref catalog.PriceRef) string {
	return priceKeyPrefix + ref.ItemID.String() + ":" + ref.VariantID.String()
}

// UnitPrices serves cached prices and loads the rest from the catalog
func (c *PriceCache) UnitPrices(ctx context.Context, refs []catalog.PriceRef) (map[catalog.PriceRef]decimal.Decimal, error) {
	if len(refs) == 0 {
		return map[catalog.PriceRef]decimal.Decimal{}, nil
	}

	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = priceKey(ref)
	}

	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("price cache read failed", zap.Error(err))
		return c.inner.UnitPrices(ctx, refs)
	}

	result := make(map[catalog.PriceRef]decimal.Decimal, len(refs))
	var misses []catalog.PriceRef
	for i, ref := range refs {
		raw, ok := cached[i].(string)
		if !ok {
			misses = append(misses, ref)
			continue
		}
		if raw == noPrice {
			continue
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			misses = append(misses, ref)
			continue
		}
		result[ref] = price
	}
	if len(misses) == 0 {
		return result, nil
	}

	loaded, err := c.inner.UnitPrices(ctx, misses)
	if err != nil {
		return nil, err
	}

	pipe := c.client.Pipeline()
	for _, ref := range misses {
		value := noPrice
		if price, ok := loaded[ref]; ok {
			result[ref] = price
			value = price.String()
		}
		pipe.Set(ctx, priceKey(ref), value, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("price cache write failed", zap.Error(err))
	}
	return result, nil
}

// FindItemByName delegates to the inner catalog
func (c *PriceCache) FindItemByName(ctx context.Context, organizationID uuid.UUID, name string) (*catalog.Item, error) {
	return c.inner.FindItemByName(ctx, organizationID, name)
}

// FindVariantByCode delegates to the inner catalog
func (c *PriceCache) FindVariantByCode(ctx context.Context, itemID uuid.UUID, code string) (*catalog.Variant, error) {
	return c.inner.FindVariantByCode(ctx, itemID, code)
}

var _ catalog.Catalog = (*PriceCache)(nil)
