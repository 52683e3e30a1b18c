package services

import (
	"math"

	"github.com/shopspring/decimal"

	"buy-together-service/internal/models"
)

// PriceScale is the number of decimal places shown for aggregate prices.
const PriceScale = 2

var hundred = decimal.NewFromInt(100)

// AggregatePrice sums the cart item prices with discountPercentage applied to
// every item and returns the display estimate in currency units.
//
// Minor-unit integers are converted to decimal units exactly once per item and
// the sum is rounded once at the end. discountPercentage is clamped to [0, 100].
// An empty cart costs exactly zero.
func AggregatePrice(items []models.CartItem, discountPercentage float64) decimal.Decimal {
	discount := clampPercentage(discountPercentage)

	total := decimal.Zero
	for _, item := range items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		line := toUnits(item.SellingPrice).Mul(decimal.NewFromInt(int64(quantity)))
		total = total.Add(applyDiscount(line, discount))
	}

	return total.Round(PriceScale)
}

// DiscountedContribution returns price - price*d/100 for a single minor-unit
// price, in currency units and without rounding.
func DiscountedContribution(price int64, discountPercentage float64) decimal.Decimal {
	return applyDiscount(toUnits(price), clampPercentage(discountPercentage))
}

func applyDiscount(price, discount decimal.Decimal) decimal.Decimal {
	if !discount.IsPositive() {
		return price
	}
	return price.Sub(price.Mul(discount).Div(hundred))
}

func toUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -PriceScale)
}

func clampPercentage(value float64) decimal.Decimal {
	switch {
	case math.IsNaN(value) || value <= 0:
		return decimal.Zero
	case value >= 100:
		return hundred
	}
	return decimal.NewFromFloat(value)
}
