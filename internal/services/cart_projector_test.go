package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buy-together-service/internal/models"
)

func TestProjectCartItems(t *testing.T) {
	entries := []models.ProductSummary{
		testSummary("p1", "10", 1000),
		testSummary("p2", "20", 2050),
	}

	items := ProjectCartItems(entries)

	require.Len(t, items, 2)
	assert.Equal(t, models.CartItem{
		ID:           "10",
		ProductID:    "p1",
		Name:         "SKU 10",
		Quantity:     1,
		Seller:       "1",
		SellingPrice: 1000,
	}, items[0])
	assert.Equal(t, int64(2050), items[1].SellingPrice)
}

func TestProjectCartItems_DropsUnmappableEntries(t *testing.T) {
	free := testSummary("free", "30", 0)
	noID := testSummary("noid", "", 1000)
	entries := []models.ProductSummary{
		{ProductID: "nosku"},
		free,
		noID,
		testSummary("ok", "40", 400),
	}

	items := ProjectCartItems(entries)

	require.Len(t, items, 1)
	assert.Equal(t, "40", items[0].ID)
}

func TestProjectCartItems_Defaults(t *testing.T) {
	entry := testSummary("p1", "10", 1000)
	entry.Sku.Seller = models.SellerSummary{}
	entry.Sku.Name = ""

	items := ProjectCartItems([]models.ProductSummary{entry})

	require.Len(t, items, 1)
	assert.Equal(t, DefaultSellerID, items[0].Seller)
	assert.Equal(t, "Product p1", items[0].Name)
}

func TestProjectCartItems_Empty(t *testing.T) {
	items := ProjectCartItems(nil)

	assert.NotNil(t, items)
	assert.Empty(t, items)
}
