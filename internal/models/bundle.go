package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// GroupItem is a selection contributed by a bundle instance to its page group.
// The chosen SKU is Product.Sku.
type GroupItem struct {
	GroupID       string         `json:"groupId"`
	InstanceID    string         `json:"instanceId"`
	BaseProductID string         `json:"baseProductId"`
	Product       ProductSummary `json:"product"`
	SelectedAt    time.Time      `json:"selectedAt"`
}

// CartItem is a flattened purchase intent for a single SKU.
type CartItem struct {
	ID           string `json:"id"`
	ProductID    string `json:"productId"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	Seller       string `json:"seller"`
	SellingPrice int64  `json:"sellingPrice"`
	ListPrice    int64  `json:"listPrice"`
}

// BundleConfig is the display configuration of a bundle instance.
type BundleConfig struct {
	DiscountPercentage float64        `json:"discountPercentage"`
	CustomText         string         `json:"customText"`
	ShowCustomText     bool           `json:"showCustomText"`
	ShowAllSkus        bool           `json:"showAllSkus"`
	PreferredSku       PreferenceType `json:"preferredSku"`
	IncludeBaseProduct bool           `json:"includeBaseProduct"`
}

// BundleConfigOverrides carries optional per-mount overrides of BundleConfig.
type BundleConfigOverrides struct {
	DiscountPercentage *float64        `json:"discountPercentage,omitempty"`
	CustomText         *string         `json:"customText,omitempty"`
	ShowCustomText     *bool           `json:"showCustomText,omitempty"`
	ShowAllSkus        *bool           `json:"showAllSkus,omitempty"`
	PreferredSku       *PreferenceType `json:"preferredSku,omitempty"`
	IncludeBaseProduct *bool           `json:"includeBaseProduct,omitempty"`
}

// BundleState is one consistent snapshot of a bundle instance.
type BundleState struct {
	InstanceID           string           `json:"instanceId"`
	GroupID              string           `json:"groupId"`
	BaseProduct          *ProductSummary  `json:"baseProduct"`
	Candidates           []ProductSummary `json:"candidates"`
	ActiveIndex          int              `json:"activeIndex"`
	Current              *ProductSummary  `json:"current"`
	Selection            []ProductSummary `json:"selection"`
	CartItems            []CartItem       `json:"cartItems"`
	SimplifiedTotalPrice decimal.Decimal  `json:"simplifiedTotalPrice"`
	TotalPrice           *decimal.Decimal `json:"totalPrice"`
	DisplayPrice         decimal.Decimal  `json:"displayPrice"`
	DiscountPercentage   float64          `json:"discountPercentage"`
	CustomText           string           `json:"customText"`
	ShowCustomText       bool             `json:"showCustomText"`
	Suppressed           bool             `json:"suppressed"`
	Loading              bool             `json:"loading"`
	Version              uint64           `json:"version"`
	ComputedAt           time.Time        `json:"computedAt"`
}

// ClampDiscount bounds a discount percentage to [0, limit].
func ClampDiscount(value, limit float64) float64 {
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	if limit < 0 {
		limit = 0
	}
	if value > limit {
		return limit
	}
	return value
}

// WithOverrides returns c with every non-nil override applied. The discount is
// clamped to [0, maxDiscount] and an unknown SKU preference is ignored.
func (c BundleConfig) WithOverrides(o BundleConfigOverrides, maxDiscount float64) BundleConfig {
	if o.DiscountPercentage != nil {
		c.DiscountPercentage = *o.DiscountPercentage
	}
	if o.CustomText != nil {
		c.CustomText = *o.CustomText
	}
	if o.ShowCustomText != nil {
		c.ShowCustomText = *o.ShowCustomText
	}
	if o.ShowAllSkus != nil {
		c.ShowAllSkus = *o.ShowAllSkus
	}
	if o.PreferredSku != nil && o.PreferredSku.IsValid() {
		c.PreferredSku = *o.PreferredSku
	}
	if o.IncludeBaseProduct != nil {
		c.IncludeBaseProduct = *o.IncludeBaseProduct
	}
	c.DiscountPercentage = ClampDiscount(c.DiscountPercentage, maxDiscount)
	return c
}
