package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"buy-together-service/internal/models"
)

// Cache TTL constants
const (
	CrossSellCacheTTL = 5 * time.Minute
)

// CatalogRepository reads products, SKUs and cross-sell relations from
// Postgres. Cross-sell lookups are cached in Redis when a client is given.
type CatalogRepository struct {
	db    *gorm.DB
	cache *cache.CacheLayer
}

func NewCatalogRepository(db *gorm.DB, redis *redis.Client) *CatalogRepository {
	repo := &CatalogRepository{
		db: db,
	}

	if redis != nil {
		cacheConfig := cache.CacheConfig{
			L1Enabled:  true,
			L1MaxItems: 2000,
			L1TTL:      30 * time.Second,
			DefaultTTL: CrossSellCacheTTL,
			KeyPrefix:  "tesseract:buy-together:",
		}
		repo.cache = cache.NewCacheLayerFromClient(redis, cacheConfig)
	}

	return repo
}

func crossSellCacheKey(tenantID, productID string) string {
	return fmt.Sprintf("crosssell:%s:%s", tenantID, productID)
}

// GetProduct returns the product with its SKUs, or nil when it does not exist.
func (r *CatalogRepository) GetProduct(ctx context.Context, tenantID, productID string) (*models.CatalogProduct, error) {
	var product models.CatalogProduct
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	return &product, nil
}

// CrossSellSkuIDs returns the SKU ids shown together with productID, in
// merchandising order.
func (r *CatalogRepository) CrossSellSkuIDs(ctx context.Context, tenantID, productID string) ([]string, error) {
	if r.cache != nil {
		var ids []string
		err := r.cache.GetOrSetJSON(ctx, crossSellCacheKey(tenantID, productID), &ids, CrossSellCacheTTL, func() (any, error) {
			return r.queryCrossSellSkuIDs(ctx, tenantID, productID)
		})
		if err != nil {
			return nil, err
		}
		return ids, nil
	}

	return r.queryCrossSellSkuIDs(ctx, tenantID, productID)
}

func (r *CatalogRepository) queryCrossSellSkuIDs(ctx context.Context, tenantID, productID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&models.CrossSellRelation{}).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Order("position ASC, created_at ASC").
		Pluck("related_sku_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cross-sell relations for %s: %w", productID, err)
	}
	return ids, nil
}

// ProductsBySkuIDs resolves every SKU id to its owning product. Records come
// back in request order; ids that do not exist for the tenant carry a nil
// Product.
func (r *CatalogRepository) ProductsBySkuIDs(ctx context.Context, tenantID string, skuIDs []string) ([]models.CandidateRecord, error) {
	if len(skuIDs) == 0 {
		return []models.CandidateRecord{}, nil
	}

	var skus []models.CatalogSku
	err := r.db.WithContext(ctx).
		Joins("JOIN catalog_products ON catalog_products.product_id = catalog_skus.product_id").
		Where("catalog_products.tenant_id = ? AND catalog_skus.item_id IN ?", tenantID, skuIDs).
		Find(&skus).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load skus: %w", err)
	}

	productIDs := make([]string, 0, len(skus))
	productBySku := make(map[string]string, len(skus))
	for _, sku := range skus {
		productBySku[sku.ItemID] = sku.ProductID
		productIDs = append(productIDs, sku.ProductID)
	}

	products := make(map[string]*models.CatalogProduct)
	if len(productIDs) > 0 {
		var found []*models.CatalogProduct
		err := r.db.WithContext(ctx).
			Preload("Items").
			Where("tenant_id = ? AND product_id IN ?", tenantID, productIDs).
			Find(&found).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load products: %w", err)
		}
		for _, p := range found {
			products[p.ProductID] = p
		}
	}

	records := make([]models.CandidateRecord, 0, len(skuIDs))
	for _, id := range skuIDs {
		records = append(records, models.CandidateRecord{
			Identifier: id,
			Product:    products[productBySku[id]],
		})
	}
	return records, nil
}

// InvalidateProduct drops cached cross-sell ids of productID
func (r *CatalogRepository) InvalidateProduct(ctx context.Context, tenantID, productID string) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Delete(ctx, crossSellCacheKey(tenantID, productID)); err != nil {
		return fmt.Errorf("failed to invalidate cross-sell cache: %w", err)
	}
	return nil
}
