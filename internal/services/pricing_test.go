package services

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"buy-together-service/internal/models"
)

func cartItems(prices ...int64) []models.CartItem {
	items := make([]models.CartItem, 0, len(prices))
	for _, price := range prices {
		items = append(items, models.CartItem{SellingPrice: price, Quantity: 1})
	}
	return items
}

func TestAggregatePrice_TenPercentOffTwoItems(t *testing.T) {
	total := AggregatePrice(cartItems(1000, 2000), 10)

	assert.Equal(t, "27.00", total.StringFixed(PriceScale))
}

func TestAggregatePrice_EmptyCartIsZero(t *testing.T) {
	assert.True(t, AggregatePrice(nil, 10).IsZero())
	assert.True(t, AggregatePrice([]models.CartItem{}, 0).IsZero())
}

func TestAggregatePrice_RoundsOnceAtTheEnd(t *testing.T) {
	total := AggregatePrice(cartItems(1999, 1999), 7)
	assert.Equal(t, "37.18", total.StringFixed(PriceScale))

	// 0.005 per item; rounding each item would give 0.03
	total = AggregatePrice(cartItems(1, 1, 1), 50)
	assert.Equal(t, "0.02", total.StringFixed(PriceScale))
}

func TestAggregatePrice_Quantity(t *testing.T) {
	items := []models.CartItem{{SellingPrice: 1000, Quantity: 3}, {SellingPrice: 500}}

	total := AggregatePrice(items, 0)

	assert.Equal(t, "35.00", total.StringFixed(PriceScale))
}

func TestAggregatePrice_ClampsDiscount(t *testing.T) {
	assert.Equal(t, "30.00", AggregatePrice(cartItems(1000, 2000), -5).StringFixed(PriceScale))
	assert.Equal(t, "30.00", AggregatePrice(cartItems(1000, 2000), math.NaN()).StringFixed(PriceScale))
	assert.True(t, AggregatePrice(cartItems(1000, 2000), 150).IsZero())
}

func TestDiscountedContribution(t *testing.T) {
	prices := []int64{0, 1, 99, 1000, 1999, 123456789}
	for _, price := range prices {
		p := decimal.New(price, -2)

		assert.True(t, DiscountedContribution(price, 0).Equal(p), "d=0 must return the price for %d", price)

		for _, d := range []float64{5, 7, 10, 20, 33.5, 100} {
			dd := decimal.NewFromFloat(d)
			expected := p.Sub(p.Mul(dd).Div(decimal.NewFromInt(100)))
			assert.True(t, DiscountedContribution(price, d).Equal(expected), "price %d discount %v", price, d)
		}
	}
}
