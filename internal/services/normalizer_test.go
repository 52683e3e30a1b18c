package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buy-together-service/internal/models"
)

func TestNormalize_PreferredModeEmitsOneSummaryPerProduct(t *testing.T) {
	products := []models.CatalogProduct{
		*testProduct("p1", testSku("11", 1000, 1), testSku("12", 900, 1)),
		*testProduct("p2", testSku("21", 2000, 1)),
	}

	summaries := Normalize(products, NormalizeOptions{PreferredSku: models.PreferenceFirstAvailable})

	require.Len(t, summaries, 2)
	assert.Equal(t, "11", summaries[0].SkuID())
	assert.Len(t, summaries[0].Items, 2)
	assert.Equal(t, "21", summaries[1].SkuID())
}

func TestNormalize_ExpandModeEmitsOneSummaryPerSku(t *testing.T) {
	products := []models.CatalogProduct{
		*testProduct("p1", testSku("11", 1000, 1), testSku("12", 900, 0), testSku("13", 800, 1)),
		*testProduct("p2", testSku("21", 2000, 1)),
	}

	summaries := Normalize(products, NormalizeOptions{ShowAllSkus: true})

	require.Len(t, summaries, 4)
	assert.Equal(t, []string{"11", "12", "13", "21"}, skuIDs(summaries))
	for _, summary := range summaries {
		require.Len(t, summary.Items, 1)
		assert.Equal(t, summary.SkuID(), summary.Items[0].ItemID)
	}
	assert.Equal(t, "p1", summaries[1].ProductID)
	assert.Equal(t, "Product p1", summaries[1].ProductName)
	assert.False(t, summaries[1].Sku.Available)
}

func TestNormalize_ProductWithoutSkusKeepsNilSku(t *testing.T) {
	summaries := Normalize([]models.CatalogProduct{*testProduct("empty")}, NormalizeOptions{ShowAllSkus: true})

	require.Len(t, summaries, 1)
	assert.Nil(t, summaries[0].Sku)
	assert.Empty(t, summaries[0].Items)
}

func TestNormalizeProduct_Preferences(t *testing.T) {
	product := testProduct("p1",
		testSku("11", 1500, 0),
		testSku("12", 1200, 3),
		testSku("13", 1800, 2),
		testSku("14", 1000, 0),
	)

	tests := []struct {
		preference models.PreferenceType
		expected   string
	}{
		{models.PreferenceFirstAvailable, "12"},
		{models.PreferenceLastAvailable, "13"},
		{models.PreferencePriceAsc, "12"},
		{models.PreferencePriceDesc, "13"},
		{models.PreferenceType("UNKNOWN"), "12"},
	}

	for _, tt := range tests {
		t.Run(string(tt.preference), func(t *testing.T) {
			summary := NormalizeProduct(product, tt.preference)
			assert.Equal(t, tt.expected, summary.SkuID())
		})
	}
}

func TestNormalizeProduct_NothingAvailableFallsBackToAllSkus(t *testing.T) {
	product := testProduct("p1", testSku("11", 1500, 0), testSku("12", 900, 0))

	assert.Equal(t, "11", NormalizeProduct(product, models.PreferenceFirstAvailable).SkuID())
	assert.Equal(t, "12", NormalizeProduct(product, models.PreferencePriceAsc).SkuID())
}

func TestNormalizeProduct_UsesDefaultSeller(t *testing.T) {
	sku := testSku("11", 1500, 1)
	sku.Sellers = models.SellerList{
		{SellerID: "2", SellerName: "Partner", SellingPrice: 1400, AvailableQuantity: 1},
		{SellerID: "1", SellerName: "Main Store", SellerDefault: true, SellingPrice: 1500, ListPrice: 1700, AvailableQuantity: 1},
	}

	summary := NormalizeProduct(testProduct("p1", sku), models.PreferenceFirstAvailable)

	require.NotNil(t, summary.Sku)
	assert.Equal(t, "1", summary.Sku.Seller.SellerID)
	assert.Equal(t, int64(1500), summary.Sku.SellingPrice)
	assert.Equal(t, int64(1700), summary.Sku.ListPrice)
}

func TestNormalizeProduct_SkuWithoutSellers(t *testing.T) {
	sku := testSku("11", 0, 0)
	sku.Sellers = nil

	summary := NormalizeProduct(testProduct("p1", sku), models.PreferenceFirstAvailable)

	require.NotNil(t, summary.Sku)
	assert.Equal(t, int64(0), summary.Sku.SellingPrice)
	assert.False(t, summary.Sku.Available)
}

func TestNormalizeRecords_SkipsUnresolvedAndDuplicates(t *testing.T) {
	p1 := testProduct("p1", testSku("11", 1000, 1), testSku("12", 1100, 1))
	p2 := testProduct("p2", testSku("21", 2000, 1))
	records := []models.CandidateRecord{
		{Identifier: "11", Product: p1},
		{Identifier: "99"},
		{Identifier: "12", Product: p1},
		{Identifier: "21", Product: p2},
	}

	summaries := NormalizeRecords(records, NormalizeOptions{PreferredSku: models.PreferenceFirstAvailable})

	require.Len(t, summaries, 2)
	assert.Equal(t, "p1", summaries[0].ProductID)
	assert.Equal(t, "p2", summaries[1].ProductID)
}
