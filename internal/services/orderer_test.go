package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"buy-together-service/internal/models"
)

func TestCompareSkuIDs(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected int
	}{
		{"numeric less", "9", "10", -1},
		{"numeric greater", "20", "3", 1},
		{"numeric equal", "42", "42", 0},
		{"leading zeros ignored", "007", "7", 0},
		{"longer than int64", "123456789012345678901", "123456789012345678902", -1},
		{"numeric before text", "999", "abc", -1},
		{"text after numeric", "abc", "1", 1},
		{"text lexicographic", "abc", "abd", -1},
		{"empty after numeric", "", "1", 1},
		{"whitespace trimmed", " 5 ", "5", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompareSkuIDs(tt.a, tt.b))
			assert.Equal(t, -tt.expected, CompareSkuIDs(tt.b, tt.a))
		})
	}
}

func TestOrderSummaries_SortsByNumericSkuID(t *testing.T) {
	input := []models.ProductSummary{
		testSummary("p30", "30", 3000),
		testSummary("p10", "10", 1000),
		testSummary("p20", "20", 2000),
	}

	ordered := OrderSummaries(input)

	assert.Equal(t, []string{"10", "20", "30"}, skuIDs(ordered))
	assert.Equal(t, []string{"30", "10", "20"}, skuIDs(input), "input must not be modified")
}

func TestOrderSummaries_Idempotent(t *testing.T) {
	input := []models.ProductSummary{
		testSummary("a", "100", 1),
		testSummary("b", "9", 1),
		testSummary("c", "x1", 1),
		testSummary("d", "25", 1),
	}

	once := OrderSummaries(input)
	twice := OrderSummaries(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"9", "25", "100", "x1"}, skuIDs(once))
}

func TestOrderSummaries_StableForEqualIDs(t *testing.T) {
	input := []models.ProductSummary{
		testSummary("first", "5", 1),
		testSummary("other", "1", 1),
		testSummary("second", "05", 1),
	}

	ordered := OrderSummaries(input)

	assert.Equal(t, "other", ordered[0].ProductID)
	assert.Equal(t, "first", ordered[1].ProductID)
	assert.Equal(t, "second", ordered[2].ProductID)
}

func TestOrderSummaries_MissingSkuSortsLast(t *testing.T) {
	input := []models.ProductSummary{
		{ProductID: "nosku"},
		testSummary("p2", "2", 1),
	}

	ordered := OrderSummaries(input)

	assert.Equal(t, "p2", ordered[0].ProductID)
	assert.Equal(t, "nosku", ordered[1].ProductID)
}
