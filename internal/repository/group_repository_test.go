package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buy-together-service/internal/models"
)

var _ GroupRepositoryInterface = (*MemoryGroupRepository)(nil)
var _ GroupRepositoryInterface = (*RedisGroupRepository)(nil)

func testGroupItem(groupID, instanceID, skuID string) *models.GroupItem {
	return &models.GroupItem{
		GroupID:       groupID,
		InstanceID:    instanceID,
		BaseProductID: "base-" + instanceID,
		Product: models.ProductSummary{
			ProductID: "product-" + skuID,
			Sku:       &models.SkuSummary{ItemID: skuID, SellingPrice: 1000},
		},
	}
}

func TestMemoryGroupRepository_PutReplacesPerInstance(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryGroupRepository()

	require.NoError(t, repo.Put(ctx, "tenant-1", testGroupItem("g1", "i1", "10")))
	require.NoError(t, repo.Put(ctx, "tenant-1", testGroupItem("g1", "i2", "20")))
	require.NoError(t, repo.Put(ctx, "tenant-1", testGroupItem("g1", "i1", "11")))

	items, err := repo.List(ctx, "tenant-1", "g1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	bySku := map[string]string{}
	for _, item := range items {
		bySku[item.InstanceID] = item.Product.SkuID()
	}
	assert.Equal(t, map[string]string{"i1": "11", "i2": "20"}, bySku)
}

func TestMemoryGroupRepository_IsolatesTenantsAndGroups(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryGroupRepository()

	require.NoError(t, repo.Put(ctx, "tenant-1", testGroupItem("g1", "i1", "10")))
	require.NoError(t, repo.Put(ctx, "tenant-2", testGroupItem("g1", "i2", "20")))
	require.NoError(t, repo.Put(ctx, "tenant-1", testGroupItem("g2", "i3", "30")))

	items, err := repo.List(ctx, "tenant-1", "g1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "i1", items[0].InstanceID)
}

func TestMemoryGroupRepository_Remove(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryGroupRepository()
	require.NoError(t, repo.Put(ctx, "tenant-1", testGroupItem("g1", "i1", "10")))

	require.NoError(t, repo.Remove(ctx, "tenant-1", "g1", "i1"))
	require.NoError(t, repo.Remove(ctx, "tenant-1", "g1", "i1"))
	require.NoError(t, repo.Remove(ctx, "tenant-1", "missing", "i1"))

	items, err := repo.List(ctx, "tenant-1", "g1")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestGroupKey(t *testing.T) {
	assert.Equal(t, "bundle:group:tenant-1:page-9", groupKey("tenant-1", "page-9"))
}
