package services

import (
	"buy-together-service/internal/models"
)

// DefaultSellerID is used when a SKU carries no seller; "1" is the
// storefront's own seller.
const DefaultSellerID = "1"

// ProjectCartItems maps selected entries into cart items. Entries without a
// resolvable SKU or price are left out; a partial bundle is still valid.
// Prices are copied in minor units without rounding.
func ProjectCartItems(entries []models.ProductSummary) []models.CartItem {
	items := make([]models.CartItem, 0, len(entries))
	for i := range entries {
		item, ok := projectCartItem(&entries[i])
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items
}

func projectCartItem(entry *models.ProductSummary) (models.CartItem, bool) {
	sku := entry.Sku
	if sku == nil || sku.ItemID == "" || sku.SellingPrice <= 0 {
		return models.CartItem{}, false
	}

	seller := sku.Seller.SellerID
	if seller == "" {
		seller = DefaultSellerID
	}

	name := sku.Name
	if name == "" {
		name = entry.ProductName
	}

	return models.CartItem{
		ID:           sku.ItemID,
		ProductID:    entry.ProductID,
		Name:         name,
		Quantity:     1,
		Seller:       seller,
		SellingPrice: sku.SellingPrice,
		ListPrice:    sku.ListPrice,
	}, true
}
