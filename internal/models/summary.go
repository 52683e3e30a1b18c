package models

// PreferenceType selects which SKU represents a product in single-SKU mode.
type PreferenceType string

const (
	PreferenceFirstAvailable PreferenceType = "FIRST_AVAILABLE"
	PreferenceLastAvailable  PreferenceType = "LAST_AVAILABLE"
	PreferencePriceAsc       PreferenceType = "PRICE_ASC"
	PreferencePriceDesc      PreferenceType = "PRICE_DESC"
)

// IsValid reports whether p is a known preference policy
func (p PreferenceType) IsValid() bool {
	switch p {
	case PreferenceFirstAvailable, PreferenceLastAvailable, PreferencePriceAsc, PreferencePriceDesc:
		return true
	}
	return false
}

// SellerSummary identifies the seller of a SKU.
type SellerSummary struct {
	SellerID   string `json:"sellerId"`
	SellerName string `json:"sellerName,omitempty"`
}

// SkuSummary is the normalized view of a single SKU.
type SkuSummary struct {
	ItemID       string        `json:"itemId"`
	ProductID    string        `json:"productId"`
	Name         string        `json:"name"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	Seller       SellerSummary `json:"seller"`
	SellingPrice int64         `json:"sellingPrice"`
	ListPrice    int64         `json:"listPrice"`
	Available    bool          `json:"available"`
}

// ProductSummary is the normalized view of a catalog product.
// Sku is the SKU chosen to represent the product and is nil when the source
// record carried no SKUs.
type ProductSummary struct {
	ProductID   string       `json:"productId"`
	ProductName string       `json:"productName"`
	Brand       string       `json:"brand,omitempty"`
	LinkText    string       `json:"linkText,omitempty"`
	Description string       `json:"description,omitempty"`
	Sku         *SkuSummary  `json:"sku"`
	Items       []SkuSummary `json:"items"`
}

// SkuID returns the identifier of the chosen SKU, or "" when there is none.
func (p ProductSummary) SkuID() string {
	if p.Sku == nil {
		return ""
	}
	return p.Sku.ItemID
}
