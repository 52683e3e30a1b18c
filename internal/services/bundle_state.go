package services

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"buy-together-service/internal/models"
)

// Bundle is the state container of one mounted bundle widget.
//
// Inputs are written through the setters below. Every write recomputes the
// derived fields in dependency order (normalize, order, select, project,
// price) while holding the write lock and then publishes a new immutable
// BundleState. Readers only ever see complete snapshots.
type Bundle struct {
	mu sync.Mutex

	instanceID string
	groupID    string
	config     models.BundleConfig

	baseProductID string
	baseProduct   *models.ProductSummary

	// generation identifies the current base product; fetch results carrying
	// an older generation are ignored.
	generation   uint64
	candidateIDs []string
	records      []models.CandidateRecord
	loading      bool
	ordered      []models.ProductSummary

	groupItems  []models.GroupItem
	activeIndex int
	override    *decimal.Decimal

	version uint64
	state   atomic.Pointer[models.BundleState]
	now     func() time.Time

	// groupMu serializes writes of this instance to its page group.
	groupMu  sync.Mutex
	detached bool
}

// NewBundle creates an empty, suppressed bundle container.
func NewBundle(instanceID, groupID string, config models.BundleConfig) *Bundle {
	b := &Bundle{
		instanceID: instanceID,
		groupID:    groupID,
		config:     config,
		now:        time.Now,
	}
	b.mu.Lock()
	b.publish()
	b.mu.Unlock()
	return b
}

// InstanceID returns the id of the bundle instance.
func (b *Bundle) InstanceID() string {
	return b.instanceID
}

// GroupID returns the page group the instance belongs to.
func (b *Bundle) GroupID() string {
	return b.groupID
}

// Config returns the display configuration of the instance.
func (b *Bundle) Config() models.BundleConfig {
	return b.config
}

// State returns the latest published snapshot. It must not be modified.
func (b *Bundle) State() *models.BundleState {
	return b.state.Load()
}

// BaseProductID returns the id of the product the bundle is built around.
func (b *Bundle) BaseProductID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.baseProductID
}

// Generation returns the fetch generation of the current base product.
func (b *Bundle) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// CandidateIDs returns a copy of the identifiers the last fetch resolved.
func (b *Bundle) CandidateIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.candidateIDs)
}

// SetBaseProduct switches the bundle to a new base product and returns the
// generation that candidate fetches for it must carry. Candidate data of the
// previous product is discarded and the carousel restarts at index 0.
func (b *Bundle) SetBaseProduct(product *models.CatalogProduct) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	summary := NormalizeProduct(product, b.config.PreferredSku)
	b.baseProductID = product.ProductID
	b.baseProduct = &summary
	b.generation++
	b.candidateIDs = nil
	b.records = nil
	b.ordered = nil
	b.loading = true
	b.activeIndex = 0
	b.publish()
	return b.generation
}

// Reload starts a new fetch generation for the current base product while
// keeping the loaded candidates visible until fresh data arrives.
func (b *Bundle) Reload() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.generation++
	b.loading = true
	b.publish()
	return b.generation
}

// UpdateBaseProduct refreshes the base product's data without restarting the
// bundle. It is ignored when product is not the current base product.
func (b *Bundle) UpdateBaseProduct(product *models.CatalogProduct) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if product == nil || product.ProductID != b.baseProductID {
		return false
	}
	summary := NormalizeProduct(product, b.config.PreferredSku)
	b.baseProduct = &summary
	b.publish()
	return true
}

// ApplyCandidateIDs stores the cross-sell identifiers fetched for generation.
// It returns false and changes nothing when generation is stale.
func (b *Bundle) ApplyCandidateIDs(generation uint64, ids []string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if generation != b.generation {
		return false
	}
	if !slices.Equal(ids, b.candidateIDs) || b.records == nil {
		b.candidateIDs = slices.Clone(ids)
		b.records = nil
		b.ordered = nil
	}
	b.loading = len(ids) > 0
	b.publish()
	return true
}

// ApplyCandidateRecords stores the product records fetched for ids. The
// result is applied only when both generation and ids still match the
// current inputs; otherwise it returns false.
func (b *Bundle) ApplyCandidateRecords(generation uint64, ids []string, records []models.CandidateRecord) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if generation != b.generation || !slices.Equal(ids, b.candidateIDs) {
		return false
	}
	b.records = slices.Clone(records)
	b.ordered = OrderSummaries(NormalizeRecords(b.records, NormalizeOptions{
		ShowAllSkus:  b.config.ShowAllSkus,
		PreferredSku: b.config.PreferredSku,
	}))
	b.loading = false
	b.publish()
	return true
}

// FailFetch ends loading for generation with an empty candidate set.
func (b *Bundle) FailFetch(generation uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if generation != b.generation {
		return false
	}
	b.records = nil
	b.ordered = nil
	b.loading = false
	b.publish()
	return true
}

// SetGroupItems replaces the page group selections seen by this instance.
func (b *Bundle) SetGroupItems(items []models.GroupItem) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.groupItems = slices.Clone(items)
	b.publish()
}

// SetActiveIndex moves the carousel to index.
func (b *Bundle) SetActiveIndex(index int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.activeIndex = index
	b.publish()
}

// SetTotalPrice overrides the computed aggregate with an externally computed
// total, e.g. from a checkout simulation. The override is dropped as soon as
// the cart items change.
func (b *Bundle) SetTotalPrice(total decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.override = &total
	b.publish()
}

// ClearTotalPrice removes a total price override.
func (b *Bundle) ClearTotalPrice() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.override = nil
	b.publish()
}

// ShowsProduct reports whether productID is the base product or one of the
// loaded candidates.
func (b *Bundle) ShowsProduct(productID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.baseProductID == productID {
		return true
	}
	for _, candidate := range b.ordered {
		if candidate.ProductID == productID {
			return true
		}
	}
	return false
}

// publish recomputes the downstream fields and stores a new snapshot.
// b.mu must be held.
func (b *Bundle) publish() {
	candidates := b.ordered
	if candidates == nil {
		candidates = []models.ProductSummary{}
	}

	selection := Select(candidates, b.groupItems, b.activeIndex, b.baseProductID)

	cartItems := []models.CartItem{}
	simplified := decimal.Zero
	suppressed := len(candidates) == 0
	if !suppressed {
		entries := selection.Entries
		if b.config.IncludeBaseProduct && b.baseProduct != nil {
			entries = append([]models.ProductSummary{*b.baseProduct}, entries...)
		}
		cartItems = ProjectCartItems(entries)
		simplified = AggregatePrice(cartItems, b.config.DiscountPercentage)
	}

	if previous := b.state.Load(); previous != nil && b.override != nil && !slices.Equal(previous.CartItems, cartItems) {
		b.override = nil
	}

	display := simplified
	var total *decimal.Decimal
	if b.override != nil {
		override := *b.override
		total = &override
		display = override
	}

	b.version++
	b.state.Store(&models.BundleState{
		InstanceID:           b.instanceID,
		GroupID:              b.groupID,
		BaseProduct:          b.baseProduct,
		Candidates:           candidates,
		ActiveIndex:          b.activeIndex,
		Current:              selection.Current,
		Selection:            selection.Entries,
		CartItems:            cartItems,
		SimplifiedTotalPrice: simplified,
		TotalPrice:           total,
		DisplayPrice:         display,
		DiscountPercentage:   b.config.DiscountPercentage,
		CustomText:           b.config.CustomText,
		ShowCustomText:       b.config.ShowCustomText,
		Suppressed:           suppressed,
		Loading:              b.loading,
		Version:              b.version,
		ComputedAt:           b.now(),
	})
}
