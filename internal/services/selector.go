package services

import (
	"buy-together-service/internal/models"
)

// Selection is what a bundle instance currently considers "in the bundle".
type Selection struct {
	// Current is the local candidate at the active index, if any.
	Current *models.ProductSummary
	// Entries is Current followed by the group items owned by other bundles.
	Entries []models.ProductSummary
}

// Select joins the local candidate at activeIndex with the group selections
// contributed by bundles for other base products. Group items owned by
// baseProductID, or that are baseProductID, are skipped so an instance never
// offers itself. An index
// outside [0, len(ordered)) contributes no local candidate.
func Select(ordered []models.ProductSummary, group []models.GroupItem, activeIndex int, baseProductID string) Selection {
	selection := Selection{
		Entries: make([]models.ProductSummary, 0, len(group)+1),
	}

	if activeIndex >= 0 && activeIndex < len(ordered) {
		current := ordered[activeIndex]
		selection.Current = &current
		selection.Entries = append(selection.Entries, current)
	}

	for _, item := range OrderGroupItems(group) {
		if item.BaseProductID == baseProductID {
			continue
		}
		if baseProductID != "" && item.Product.ProductID == baseProductID {
			continue
		}
		selection.Entries = append(selection.Entries, item.Product)
	}

	return selection
}
