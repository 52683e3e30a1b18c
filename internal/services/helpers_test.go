package services

import (
	"buy-together-service/internal/models"
)

func testSku(itemID string, price int64, available int) models.CatalogSku {
	return models.CatalogSku{
		ItemID: itemID,
		Name:   "SKU " + itemID,
		Sellers: models.SellerList{
			{
				SellerID:          "1",
				SellerName:        "Main Store",
				SellerDefault:     true,
				SellingPrice:      price,
				ListPrice:         price + 500,
				AvailableQuantity: available,
			},
		},
	}
}

func testProduct(productID string, skus ...models.CatalogSku) *models.CatalogProduct {
	for i := range skus {
		skus[i].ProductID = productID
	}
	return &models.CatalogProduct{
		ProductID:   productID,
		ProductName: "Product " + productID,
		Brand:       "Acme",
		LinkText:    "product-" + productID,
		Items:       skus,
	}
}

// testRecords builds one candidate record per product, keyed by its first SKU.
func testRecords(products ...*models.CatalogProduct) ([]string, []models.CandidateRecord) {
	ids := make([]string, 0, len(products))
	records := make([]models.CandidateRecord, 0, len(products))
	for _, product := range products {
		id := product.Items[0].ItemID
		ids = append(ids, id)
		records = append(records, models.CandidateRecord{Identifier: id, Product: product})
	}
	return ids, records
}

func testSummary(productID, skuID string, price int64) models.ProductSummary {
	return models.ProductSummary{
		ProductID:   productID,
		ProductName: "Product " + productID,
		Sku: &models.SkuSummary{
			ItemID:       skuID,
			ProductID:    productID,
			Name:         "SKU " + skuID,
			Seller:       models.SellerSummary{SellerID: "1"},
			SellingPrice: price,
			Available:    true,
		},
	}
}

func skuIDs(summaries []models.ProductSummary) []string {
	ids := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		ids = append(ids, summary.SkuID())
	}
	return ids
}

func defaultTestConfig() models.BundleConfig {
	return models.BundleConfig{
		DiscountPercentage: 10,
		CustomText:         "PIX",
		ShowCustomText:     true,
		PreferredSku:       models.PreferenceFirstAvailable,
		IncludeBaseProduct: true,
	}
}
