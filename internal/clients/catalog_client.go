// Package clients provides HTTP clients for service-to-service communication.
package clients

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"buy-together-service/internal/models"
)

const (
	// searchBatchSize is the largest number of fq filters the catalog search accepts.
	searchBatchSize = 50
	// searchConcurrency bounds parallel search requests for one lookup.
	searchConcurrency = 4
)

// CatalogClient resolves cross-sell candidates through the storefront catalog API.
type CatalogClient struct {
	baseURL    string
	appKey     string
	appToken   string
	cache      map[string]*CatalogCacheEntry
	cacheTTL   time.Duration
	mu         sync.RWMutex
	httpClient *http.Client
}

// CatalogCacheEntry contains a cached catalog lookup.
type CatalogCacheEntry struct {
	Product   *models.CatalogProduct
	SkuIDs    []string
	ExpiresAt time.Time
}

// CatalogClientConfig configures a CatalogClient.
type CatalogClientConfig struct {
	BaseURL  string
	AppKey   string
	AppToken string
	CacheTTL time.Duration
}

// catalogProduct is a product as returned by the catalog search API.
type catalogProduct struct {
	ProductID   string        `json:"productId"`
	ProductName string        `json:"productName"`
	Brand       string        `json:"brand"`
	LinkText    string        `json:"linkText"`
	Description string        `json:"description"`
	Items       []catalogItem `json:"items"`
}

type catalogItem struct {
	ItemID  string `json:"itemId"`
	Name    string `json:"name"`
	Images  []struct {
		ImageURL string `json:"imageUrl"`
	} `json:"images"`
	Sellers []catalogSeller `json:"sellers"`
}

type catalogSeller struct {
	SellerID        string `json:"sellerId"`
	SellerName      string `json:"sellerName"`
	SellerDefault   bool   `json:"sellerDefault"`
	CommertialOffer struct {
		Price             float64 `json:"Price"`
		ListPrice         float64 `json:"ListPrice"`
		AvailableQuantity int     `json:"AvailableQuantity"`
	} `json:"commertialOffer"`
}

// NewCatalogClient creates a new catalog client with caching.
func NewCatalogClient(cfg CatalogClientConfig) *CatalogClient {
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 1 * time.Minute // Short TTL for price/stock accuracy
	}

	// Create optimized transport with connection pooling
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &CatalogClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		appKey:   cfg.AppKey,
		appToken: cfg.AppToken,
		cache:    make(map[string]*CatalogCacheEntry),
		cacheTTL: cacheTTL,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}
}

// GetProduct fetches a product by id. It returns nil when the catalog does
// not know the product.
func (c *CatalogClient) GetProduct(ctx context.Context, tenantID, productID string) (*models.CatalogProduct, error) {
	cacheKey := fmt.Sprintf("product:%s:%s", tenantID, productID)
	if entry, ok := c.cached(cacheKey); ok {
		return entry.Product, nil
	}

	query := url.Values{}
	query.Add("fq", "productId:"+productID)
	products, err := c.search(ctx, tenantID, query)
	if err != nil {
		return nil, err
	}

	var product *models.CatalogProduct
	for i := range products {
		if products[i].ProductID == productID {
			product = &products[i]
			break
		}
	}

	c.store(cacheKey, &CatalogCacheEntry{Product: product})
	return product, nil
}

// CrossSellSkuIDs returns the SKU ids shown together with productID. The
// first SKU of every related product is used.
func (c *CatalogClient) CrossSellSkuIDs(ctx context.Context, tenantID, productID string) ([]string, error) {
	cacheKey := fmt.Sprintf("crosssell:%s:%s", tenantID, productID)
	if entry, ok := c.cached(cacheKey); ok {
		return append([]string(nil), entry.SkuIDs...), nil
	}

	endpoint := fmt.Sprintf("%s/api/catalog_system/pub/products/crossselling/showtogether/%s", c.baseURL, url.PathEscape(productID))
	var related []catalogProduct
	if err := c.getJSON(ctx, tenantID, endpoint, &related); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(related))
	for _, p := range related {
		if len(p.Items) == 0 || p.Items[0].ItemID == "" {
			continue
		}
		ids = append(ids, p.Items[0].ItemID)
	}

	c.store(cacheKey, &CatalogCacheEntry{SkuIDs: ids})
	return append([]string(nil), ids...), nil
}

// ProductsBySkuIDs resolves SKU ids to their products in request order.
// Lookups are batched and run concurrently; unknown ids carry a nil Product.
func (c *CatalogClient) ProductsBySkuIDs(ctx context.Context, tenantID string, skuIDs []string) ([]models.CandidateRecord, error) {
	if len(skuIDs) == 0 {
		return []models.CandidateRecord{}, nil
	}

	bySku := make(map[string]*models.CatalogProduct, len(skuIDs))
	uncached := make([]string, 0, len(skuIDs))
	for _, id := range skuIDs {
		if entry, ok := c.cached(skuCacheKey(tenantID, id)); ok {
			bySku[id] = entry.Product
			continue
		}
		uncached = append(uncached, id)
	}

	if len(uncached) > 0 {
		batches := chunk(uncached, searchBatchSize)
		results := make([][]models.CatalogProduct, len(batches))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(searchConcurrency)
		for i, batch := range batches {
			i, batch := i, batch
			g.Go(func() error {
				query := url.Values{}
				for _, id := range batch {
					query.Add("fq", "skuId:"+id)
				}
				products, err := c.search(gctx, tenantID, query)
				if err != nil {
					return err
				}
				results[i] = products
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for _, products := range results {
			for i := range products {
				product := &products[i]
				for _, item := range product.Items {
					bySku[item.ItemID] = product
				}
			}
		}
		for _, id := range uncached {
			c.store(skuCacheKey(tenantID, id), &CatalogCacheEntry{Product: bySku[id]})
		}
	}

	records := make([]models.CandidateRecord, 0, len(skuIDs))
	for _, id := range skuIDs {
		records = append(records, models.CandidateRecord{
			Identifier: id,
			Product:    bySku[id],
		})
	}
	return records, nil
}

// InvalidateProduct removes cached lookups that mention productID.
func (c *CatalogClient) InvalidateProduct(_ context.Context, tenantID, productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, fmt.Sprintf("product:%s:%s", tenantID, productID))
	delete(c.cache, fmt.Sprintf("crosssell:%s:%s", tenantID, productID))

	prefix := fmt.Sprintf("sku:%s:", tenantID)
	for key, entry := range c.cache {
		if strings.HasPrefix(key, prefix) && entry.Product != nil && entry.Product.ProductID == productID {
			delete(c.cache, key)
		}
	}
	return nil
}

// ClearCache clears the entire cache.
func (c *CatalogClient) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*CatalogCacheEntry)
}

func (c *CatalogClient) cached(key string) (*CatalogCacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !time.Now().Before(entry.ExpiresAt) {
		return nil, false
	}
	return entry, true
}

func (c *CatalogClient) store(key string, entry *CatalogCacheEntry) {
	entry.ExpiresAt = time.Now().Add(c.cacheTTL)
	c.mu.Lock()
	c.cache[key] = entry
	c.mu.Unlock()
}

func (c *CatalogClient) search(ctx context.Context, tenantID string, query url.Values) ([]models.CatalogProduct, error) {
	endpoint := fmt.Sprintf("%s/api/catalog_system/pub/products/search?%s", c.baseURL, query.Encode())
	var raw []catalogProduct
	if err := c.getJSON(ctx, tenantID, endpoint, &raw); err != nil {
		return nil, err
	}

	products := make([]models.CatalogProduct, 0, len(raw))
	for _, p := range raw {
		products = append(products, toCatalogProduct(p))
	}
	return products, nil
}

// getJSON makes the HTTP request and decodes the JSON body into out.
func (c *CatalogClient) getJSON(ctx context.Context, tenantID, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Tenant-ID", tenantID)
	req.Header.Set("X-Internal-Service", "buy-together-service")
	req.Header.Set("Accept", "application/json")
	if c.appKey != "" {
		req.Header.Set("X-VTEX-API-AppKey", c.appKey)
		req.Header.Set("X-VTEX-API-AppToken", c.appToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call catalog: %w", err)
	}
	defer resp.Body.Close()

	// The catalog answers 206 for partial search pages
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("catalog API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func toCatalogProduct(p catalogProduct) models.CatalogProduct {
	product := models.CatalogProduct{
		ProductID:   p.ProductID,
		ProductName: p.ProductName,
		Brand:       p.Brand,
		LinkText:    p.LinkText,
		Items:       make([]models.CatalogSku, 0, len(p.Items)),
	}
	if p.Description != "" {
		description := p.Description
		product.Description = &description
	}

	for _, item := range p.Items {
		sku := models.CatalogSku{
			ItemID:    item.ItemID,
			ProductID: p.ProductID,
			Name:      item.Name,
			Sellers:   make(models.SellerList, 0, len(item.Sellers)),
		}
		if len(item.Images) > 0 && item.Images[0].ImageURL != "" {
			imageURL := item.Images[0].ImageURL
			sku.ImageURL = &imageURL
		}
		for _, s := range item.Sellers {
			sku.Sellers = append(sku.Sellers, models.CatalogSeller{
				SellerID:          s.SellerID,
				SellerName:        s.SellerName,
				SellerDefault:     s.SellerDefault,
				SellingPrice:      toMinorUnits(s.CommertialOffer.Price),
				ListPrice:         toMinorUnits(s.CommertialOffer.ListPrice),
				AvailableQuantity: s.CommertialOffer.AvailableQuantity,
			})
		}
		product.Items = append(product.Items, sku)
	}
	return product
}

// toMinorUnits converts a catalog decimal price into cents.
func toMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

func skuCacheKey(tenantID, skuID string) string {
	return fmt.Sprintf("sku:%s:%s", tenantID, skuID)
}

func chunk(ids []string, size int) [][]string {
	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
