package services

import (
	"buy-together-service/internal/models"
)

// NormalizeOptions controls how catalog records are projected into summaries.
type NormalizeOptions struct {
	ShowAllSkus  bool
	PreferredSku models.PreferenceType
}

// Normalize projects raw catalog products into product summaries.
//
// With ShowAllSkus every SKU of every product becomes its own summary carrying
// a copy of the parent's metadata. Otherwise each product yields exactly one
// summary whose Sku is picked by PreferredSku. A product without SKUs yields a
// summary with a nil Sku instead of being dropped.
func Normalize(products []models.CatalogProduct, opts NormalizeOptions) []models.ProductSummary {
	summaries := make([]models.ProductSummary, 0, len(products))
	for i := range products {
		product := &products[i]
		if !opts.ShowAllSkus || len(product.Items) == 0 {
			summaries = append(summaries, NormalizeProduct(product, opts.PreferredSku))
			continue
		}
		for j := range product.Items {
			sku := normalizeSku(product.ProductID, &product.Items[j])
			summary := baseSummary(product)
			summary.Sku = &sku
			summary.Items = []models.SkuSummary{sku}
			summaries = append(summaries, summary)
		}
	}
	return summaries
}

// NormalizeRecords normalizes fetched candidate records, skipping identifiers
// the catalog could not resolve. A product reached through several
// identifiers is normalized once.
func NormalizeRecords(records []models.CandidateRecord, opts NormalizeOptions) []models.ProductSummary {
	products := make([]models.CatalogProduct, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, record := range records {
		if record.Product == nil || seen[record.Product.ProductID] {
			continue
		}
		seen[record.Product.ProductID] = true
		products = append(products, *record.Product)
	}
	return Normalize(products, opts)
}

// NormalizeProduct projects one product into a summary with its preferred SKU.
func NormalizeProduct(product *models.CatalogProduct, preference models.PreferenceType) models.ProductSummary {
	summary := baseSummary(product)
	if len(product.Items) == 0 {
		return summary
	}

	summary.Items = make([]models.SkuSummary, 0, len(product.Items))
	for i := range product.Items {
		summary.Items = append(summary.Items, normalizeSku(product.ProductID, &product.Items[i]))
	}

	preferred := summary.Items[preferredSkuIndex(summary.Items, preference)]
	summary.Sku = &preferred
	return summary
}

func baseSummary(product *models.CatalogProduct) models.ProductSummary {
	summary := models.ProductSummary{
		ProductID:   product.ProductID,
		ProductName: product.ProductName,
		Brand:       product.Brand,
		LinkText:    product.LinkText,
		Items:       []models.SkuSummary{},
	}
	if product.Description != nil {
		summary.Description = *product.Description
	}
	return summary
}

func normalizeSku(productID string, sku *models.CatalogSku) models.SkuSummary {
	summary := models.SkuSummary{
		ItemID:    sku.ItemID,
		ProductID: productID,
		Name:      sku.Name,
	}
	if sku.ImageURL != nil {
		summary.ImageURL = *sku.ImageURL
	}

	seller := defaultSeller(sku.Sellers)
	if seller == nil {
		return summary
	}
	summary.Seller = models.SellerSummary{
		SellerID:   seller.SellerID,
		SellerName: seller.SellerName,
	}
	summary.SellingPrice = seller.SellingPrice
	summary.ListPrice = seller.ListPrice
	summary.Available = seller.AvailableQuantity > 0
	return summary
}

// defaultSeller returns the seller flagged as default, else the first one.
func defaultSeller(sellers models.SellerList) *models.CatalogSeller {
	if len(sellers) == 0 {
		return nil
	}
	for i := range sellers {
		if sellers[i].SellerDefault {
			return &sellers[i]
		}
	}
	return &sellers[0]
}

// preferredSkuIndex picks the SKU for single-SKU mode. items must not be empty.
// When no SKU is available the policy is applied to all SKUs instead.
func preferredSkuIndex(items []models.SkuSummary, preference models.PreferenceType) int {
	candidates := make([]int, 0, len(items))
	for i := range items {
		if items[i].Available {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		for i := range items {
			candidates = append(candidates, i)
		}
	}

	switch preference {
	case models.PreferenceLastAvailable:
		return candidates[len(candidates)-1]
	case models.PreferencePriceAsc:
		best := candidates[0]
		for _, i := range candidates[1:] {
			if items[i].SellingPrice < items[best].SellingPrice {
				best = i
			}
		}
		return best
	case models.PreferencePriceDesc:
		best := candidates[0]
		for _, i := range candidates[1:] {
			if items[i].SellingPrice > items[best].SellingPrice {
				best = i
			}
		}
		return best
	default:
		return candidates[0]
	}
}
