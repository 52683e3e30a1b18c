package services

import (
	"slices"
	"strings"

	"buy-together-service/internal/models"
)

// CompareSkuIDs is a three-way comparison of SKU identifiers.
//
// Identifiers made only of ASCII digits compare numerically at any length,
// ignoring leading zeros. Numeric identifiers sort before non-numeric ones,
// and two non-numeric identifiers compare byte-wise. Surrounding whitespace is
// ignored. Equal keys return 0.
func CompareSkuIDs(a, b string) int {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	aNumeric, bNumeric := isDigits(a), isDigits(b)

	switch {
	case aNumeric && bNumeric:
		a = trimLeadingZeros(a)
		b = trimLeadingZeros(b)
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	case aNumeric:
		return -1
	case bNumeric:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// OrderSummaries returns a copy of summaries sorted ascending by SKU id.
// The sort is stable, so equal ids keep their input order.
func OrderSummaries(summaries []models.ProductSummary) []models.ProductSummary {
	ordered := slices.Clone(summaries)
	slices.SortStableFunc(ordered, func(a, b models.ProductSummary) int {
		return CompareSkuIDs(a.SkuID(), b.SkuID())
	})
	return ordered
}

// OrderGroupItems returns a copy of group items sorted ascending by the SKU id
// of their selected product.
func OrderGroupItems(items []models.GroupItem) []models.GroupItem {
	ordered := slices.Clone(items)
	slices.SortStableFunc(ordered, func(a, b models.GroupItem) int {
		return CompareSkuIDs(a.Product.SkuID(), b.Product.SkuID())
	})
	return ordered
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func trimLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
