package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CatalogSeller is a seller offer attached to a catalog SKU.
// Prices are integer minor-currency units (cents).
type CatalogSeller struct {
	SellerID          string `json:"sellerId"`
	SellerName        string `json:"sellerName"`
	SellerDefault     bool   `json:"sellerDefault"`
	SellingPrice      int64  `json:"sellingPrice"`
	ListPrice         int64  `json:"listPrice"`
	AvailableQuantity int    `json:"availableQuantity"`
}

// SellerList type for PostgreSQL JSONB (array of seller offers)
type SellerList []CatalogSeller

func (s SellerList) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *SellerList) Scan(value interface{}) error {
	if value == nil {
		*s = make(SellerList, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// CatalogProduct is a raw catalog product record as returned by the catalog.
type CatalogProduct struct {
	ProductID   string       `json:"productId" gorm:"primaryKey"`
	TenantID    string       `json:"tenantId,omitempty" gorm:"not null;index:idx_catalog_products_tenant"`
	ProductName string       `json:"productName" gorm:"not null"`
	Brand       string       `json:"brand"`
	LinkText    string       `json:"linkText"`
	Description *string      `json:"description,omitempty"`
	Items       []CatalogSku `json:"items" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// CatalogSku is a raw SKU record belonging to one CatalogProduct.
type CatalogSku struct {
	ItemID    string     `json:"itemId" gorm:"primaryKey"`
	ProductID string     `json:"productId" gorm:"not null;index"`
	Name      string     `json:"name"`
	ImageURL  *string    `json:"imageUrl,omitempty"`
	Sellers   SellerList `json:"sellers" gorm:"type:jsonb"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CrossSellRelation links a product to a SKU shown together with it.
type CrossSellRelation struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID     string    `json:"tenantId" gorm:"not null;index:idx_cross_sell_tenant_product"`
	ProductID    string    `json:"productId" gorm:"not null;index:idx_cross_sell_tenant_product"`
	RelatedSkuID string    `json:"relatedSkuId" gorm:"not null"`
	Position     int       `json:"position" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CandidateRecord pairs a requested cross-sell identifier with the product
// that owns it. Product is nil when the identifier could not be resolved.
type CandidateRecord struct {
	Identifier string          `json:"identifier"`
	Product    *CatalogProduct `json:"product,omitempty"`
}

// TableName returns the table name for the CatalogProduct model
func (CatalogProduct) TableName() string {
	return "catalog_products"
}

// TableName returns the table name for the CatalogSku model
func (CatalogSku) TableName() string {
	return "catalog_skus"
}

// TableName returns the table name for the CrossSellRelation model
func (CrossSellRelation) TableName() string {
	return "cross_sell_relations"
}
