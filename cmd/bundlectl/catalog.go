package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"buy-together-service/internal/models"
)

// catalogFile is an offline catalog: products plus the cross-sell SKU ids of
// each product.
type catalogFile struct {
	Products     []models.CatalogProduct `json:"products"`
	CrossSelling map[string][]string     `json:"crossSelling"`
	GroupItems   []models.GroupItem      `json:"groupItems"`
}

// fileCatalog serves a catalogFile as a candidate fetcher.
type fileCatalog struct {
	file     catalogFile
	products map[string]*models.CatalogProduct
	skus     map[string]*models.CatalogProduct
}

func loadCatalog(path string) (*fileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return newFileCatalog(file), nil
}

func newFileCatalog(file catalogFile) *fileCatalog {
	c := &fileCatalog{
		file:     file,
		products: make(map[string]*models.CatalogProduct, len(file.Products)),
		skus:     make(map[string]*models.CatalogProduct),
	}
	for i := range file.Products {
		product := &file.Products[i]
		c.products[product.ProductID] = product
		for _, item := range product.Items {
			c.skus[item.ItemID] = product
		}
	}
	return c
}

func (c *fileCatalog) GetProduct(_ context.Context, _ string, productID string) (*models.CatalogProduct, error) {
	return c.products[productID], nil
}

func (c *fileCatalog) CrossSellSkuIDs(_ context.Context, _ string, productID string) ([]string, error) {
	return c.file.CrossSelling[productID], nil
}

func (c *fileCatalog) ProductsBySkuIDs(_ context.Context, _ string, skuIDs []string) ([]models.CandidateRecord, error) {
	records := make([]models.CandidateRecord, 0, len(skuIDs))
	for _, id := range skuIDs {
		records = append(records, models.CandidateRecord{Identifier: id, Product: c.skus[id]})
	}
	return records, nil
}
