package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"buy-together-service/internal/models"
	"buy-together-service/internal/repository"
)

var (
	ErrBundleNotFound     = errors.New("bundle not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidActiveIndex = errors.New("active index must not be negative")
	ErrInvalidTotalPrice  = errors.New("total price must not be negative")
	ErrProductIDRequired  = errors.New("product id is required")
)

// DefaultFetchTimeout bounds one candidate fetch (identifiers plus records).
const DefaultFetchTimeout = 10 * time.Second

// CandidateFetcher resolves catalog data for bundles. Lookups of unknown
// products return nil without an error.
type CandidateFetcher interface {
	GetProduct(ctx context.Context, tenantID, productID string) (*models.CatalogProduct, error)
	CrossSellSkuIDs(ctx context.Context, tenantID, productID string) ([]string, error)
	ProductsBySkuIDs(ctx context.Context, tenantID string, skuIDs []string) ([]models.CandidateRecord, error)
}

// EventPublisher announces bundle changes to other services.
type EventPublisher interface {
	PublishSelectionChanged(ctx context.Context, tenantID string, item *models.GroupItem) error
	PublishBundleUnmounted(ctx context.Context, tenantID, groupID, instanceID string) error
}

// BundleServiceConfig holds the service wide bundle settings.
type BundleServiceConfig struct {
	Defaults     models.BundleConfig
	MaxDiscount  float64
	FetchTimeout time.Duration
}

type bundleInstance struct {
	tenantID string
	bundle   *Bundle
}

// BundleService manages mounted bundle instances and their page groups.
type BundleService struct {
	fetcher   CandidateFetcher
	groups    repository.GroupRepositoryInterface
	publisher EventPublisher
	config    BundleServiceConfig
	logger    *logrus.Entry

	mu        sync.RWMutex
	instances map[string]*bundleInstance
	wg        sync.WaitGroup
}

// NewBundleService creates a new bundle service
func NewBundleService(fetcher CandidateFetcher, groups repository.GroupRepositoryInterface, config BundleServiceConfig, logger *logrus.Logger) *BundleService {
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BundleService{
		fetcher:   fetcher,
		groups:    groups,
		config:    config,
		logger:    logger.WithField("component", "bundle_service"),
		instances: make(map[string]*bundleInstance),
	}
}

// SetEventPublisher sets the event publisher (optional, events are skipped without one)
func (s *BundleService) SetEventPublisher(publisher EventPublisher) {
	s.publisher = publisher
}

// MountRequest represents a request to mount a bundle for a product page
type MountRequest struct {
	ProductID   string                       `json:"productId" binding:"required"`
	GroupID     string                       `json:"groupId"`
	ActiveIndex int                          `json:"activeIndex"`
	Config      models.BundleConfigOverrides `json:"config"`
	// Wait makes the call return after candidates are loaded.
	Wait bool `json:"wait"`
}

// QuoteRequest represents a request to price a bundle without mounting it
type QuoteRequest struct {
	ProductID   string                       `json:"productId" binding:"required"`
	ActiveIndex int                          `json:"activeIndex"`
	GroupItems  []models.GroupItem           `json:"groupItems"`
	Config      models.BundleConfigOverrides `json:"config"`
}

// Mount creates a bundle instance for a product and starts loading its
// candidates.
func (s *BundleService) Mount(ctx context.Context, tenantID string, req MountRequest) (*models.BundleState, error) {
	if req.ProductID == "" {
		return nil, ErrProductIDRequired
	}
	if req.ActiveIndex < 0 {
		return nil, ErrInvalidActiveIndex
	}

	product, err := s.fetcher.GetProduct(ctx, tenantID, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	groupID := req.GroupID
	if groupID == "" {
		groupID = uuid.NewString()
	}

	bundle := NewBundle(uuid.NewString(), groupID, s.config.Defaults.WithOverrides(req.Config, s.config.MaxDiscount))
	generation := bundle.SetBaseProduct(product)
	bundle.SetActiveIndex(req.ActiveIndex)
	bundle.SetGroupItems(s.listGroup(ctx, tenantID, groupID))

	s.mu.Lock()
	s.instances[bundle.InstanceID()] = &bundleInstance{tenantID: tenantID, bundle: bundle}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"tenant_id":   tenantID,
		"instance_id": bundle.InstanceID(),
		"group_id":    groupID,
		"product_id":  product.ProductID,
	}).Info("Bundle mounted")

	if req.Wait {
		s.load(ctx, tenantID, bundle, generation)
	} else {
		s.loadAsync(tenantID, bundle, generation)
	}
	return bundle.State(), nil
}

// Get returns the current snapshot of a bundle after picking up the latest
// selections of its page group.
func (s *BundleService) Get(ctx context.Context, tenantID, instanceID string) (*models.BundleState, error) {
	bundle, err := s.lookup(tenantID, instanceID)
	if err != nil {
		return nil, err
	}
	bundle.SetGroupItems(s.listGroup(ctx, tenantID, bundle.GroupID()))
	return bundle.State(), nil
}

// SetActiveIndex moves the carousel of a bundle and shares the new choice
// with the page group.
func (s *BundleService) SetActiveIndex(ctx context.Context, tenantID, instanceID string, index int) (*models.BundleState, error) {
	if index < 0 {
		return nil, ErrInvalidActiveIndex
	}
	bundle, err := s.lookup(tenantID, instanceID)
	if err != nil {
		return nil, err
	}

	bundle.SetActiveIndex(index)
	s.contribute(ctx, tenantID, bundle)
	return bundle.State(), nil
}

// ChangeProduct rebuilds a bundle around another base product.
func (s *BundleService) ChangeProduct(ctx context.Context, tenantID, instanceID, productID string, wait bool) (*models.BundleState, error) {
	if productID == "" {
		return nil, ErrProductIDRequired
	}
	bundle, err := s.lookup(tenantID, instanceID)
	if err != nil {
		return nil, err
	}

	product, err := s.fetcher.GetProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	generation := bundle.SetBaseProduct(product)
	// The old choice belonged to the previous product's candidates
	s.contribute(ctx, tenantID, bundle)

	if wait {
		s.load(ctx, tenantID, bundle, generation)
	} else {
		s.loadAsync(tenantID, bundle, generation)
	}
	return bundle.State(), nil
}

// SetTotalPrice overrides the displayed total of a bundle.
func (s *BundleService) SetTotalPrice(ctx context.Context, tenantID, instanceID string, total decimal.Decimal) (*models.BundleState, error) {
	if total.IsNegative() {
		return nil, ErrInvalidTotalPrice
	}
	bundle, err := s.lookup(tenantID, instanceID)
	if err != nil {
		return nil, err
	}
	bundle.SetTotalPrice(total.Round(PriceScale))
	return bundle.State(), nil
}

// ClearTotalPrice removes a total price override.
func (s *BundleService) ClearTotalPrice(ctx context.Context, tenantID, instanceID string) (*models.BundleState, error) {
	bundle, err := s.lookup(tenantID, instanceID)
	if err != nil {
		return nil, err
	}
	bundle.ClearTotalPrice()
	return bundle.State(), nil
}

// Unmount removes a bundle and withdraws its selection from the page group.
func (s *BundleService) Unmount(ctx context.Context, tenantID, instanceID string) error {
	s.mu.Lock()
	instance, ok := s.instances[instanceID]
	if !ok || instance.tenantID != tenantID {
		s.mu.Unlock()
		return ErrBundleNotFound
	}
	delete(s.instances, instanceID)
	s.mu.Unlock()

	groupID := instance.bundle.GroupID()
	instance.bundle.groupMu.Lock()
	instance.bundle.detached = true
	if err := s.groups.Remove(ctx, tenantID, groupID, instanceID); err != nil {
		s.logger.WithError(err).WithField("instance_id", instanceID).Warn("Failed to remove group selection")
	}
	instance.bundle.groupMu.Unlock()
	if s.publisher != nil {
		if err := s.publisher.PublishBundleUnmounted(ctx, tenantID, groupID, instanceID); err != nil {
			s.logger.WithError(err).Warn("Failed to publish bundle unmounted event")
		}
	}
	s.refreshGroup(ctx, tenantID, groupID)

	s.logger.WithFields(logrus.Fields{
		"tenant_id":   tenantID,
		"instance_id": instanceID,
		"group_id":    groupID,
	}).Info("Bundle unmounted")
	return nil
}

// GroupItems returns the selections of a page group ordered by SKU id.
func (s *BundleService) GroupItems(ctx context.Context, tenantID, groupID string) ([]models.GroupItem, error) {
	items, err := s.groups.List(ctx, tenantID, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group: %w", err)
	}
	return OrderGroupItems(items), nil
}

// RefreshProduct reloads every bundle of the tenant that shows productID and
// returns how many were refreshed.
func (s *BundleService) RefreshProduct(ctx context.Context, tenantID, productID string) int {
	s.mu.RLock()
	var affected []*Bundle
	for _, instance := range s.instances {
		if instance.tenantID == tenantID && instance.bundle.ShowsProduct(productID) {
			affected = append(affected, instance.bundle)
		}
	}
	s.mu.RUnlock()

	for _, bundle := range affected {
		if bundle.BaseProductID() == productID {
			product, err := s.fetcher.GetProduct(ctx, tenantID, productID)
			if err != nil {
				s.logger.WithError(err).WithField("product_id", productID).Warn("Failed to refresh base product")
			} else if product != nil {
				bundle.UpdateBaseProduct(product)
			}
		}
		s.loadAsync(tenantID, bundle, bundle.Reload())
	}
	return len(affected)
}

// Quote computes the state of a bundle for one set of inputs without
// registering an instance.
func (s *BundleService) Quote(ctx context.Context, tenantID string, req QuoteRequest) (*models.BundleState, error) {
	if req.ProductID == "" {
		return nil, ErrProductIDRequired
	}
	if req.ActiveIndex < 0 {
		return nil, ErrInvalidActiveIndex
	}

	product, err := s.fetcher.GetProduct(ctx, tenantID, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	bundle := NewBundle("", "", s.config.Defaults.WithOverrides(req.Config, s.config.MaxDiscount))
	generation := bundle.SetBaseProduct(product)
	bundle.SetActiveIndex(req.ActiveIndex)
	bundle.SetGroupItems(req.GroupItems)

	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()
	if err := s.fetchCandidates(ctx, tenantID, bundle, generation); err != nil {
		return nil, err
	}
	return bundle.State(), nil
}

// Wait blocks until background candidate fetches have finished.
func (s *BundleService) Wait() {
	s.wg.Wait()
}

func (s *BundleService) lookup(tenantID, instanceID string) (*Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instance, ok := s.instances[instanceID]
	if !ok || instance.tenantID != tenantID {
		return nil, ErrBundleNotFound
	}
	return instance.bundle, nil
}

func (s *BundleService) loadAsync(tenantID string, bundle *Bundle, generation uint64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.load(context.Background(), tenantID, bundle, generation)
	}()
}

// load fetches candidates for generation and shares the resulting choice with
// the page group. Failures leave the bundle suppressed.
func (s *BundleService) load(ctx context.Context, tenantID string, bundle *Bundle, generation uint64) {
	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	if err := s.fetchCandidates(ctx, tenantID, bundle, generation); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"tenant_id":   tenantID,
			"instance_id": bundle.InstanceID(),
			"product_id":  bundle.BaseProductID(),
		}).Error("Failed to load bundle candidates")
		if bundle.FailFetch(generation) {
			s.contribute(ctx, tenantID, bundle)
		}
		return
	}
	s.contributeWhen(ctx, tenantID, bundle, func() bool {
		return bundle.Generation() == generation
	})
}

// fetchCandidates runs the two step candidate fetch. Results of a superseded
// generation are dropped by the bundle.
func (s *BundleService) fetchCandidates(ctx context.Context, tenantID string, bundle *Bundle, generation uint64) error {
	productID := bundle.BaseProductID()

	ids, err := s.fetcher.CrossSellSkuIDs(ctx, tenantID, productID)
	if err != nil {
		return fmt.Errorf("failed to get cross-sell ids: %w", err)
	}
	if !bundle.ApplyCandidateIDs(generation, ids) || len(ids) == 0 {
		return nil
	}

	records, err := s.fetcher.ProductsBySkuIDs(ctx, tenantID, ids)
	if err != nil {
		return fmt.Errorf("failed to get candidate products: %w", err)
	}
	bundle.ApplyCandidateRecords(generation, ids, records)
	return nil
}

// contribute writes the bundle's current choice to its page group, or
// withdraws it when there is none, and refreshes the other group members.
func (s *BundleService) contribute(ctx context.Context, tenantID string, bundle *Bundle) {
	s.contributeWhen(ctx, tenantID, bundle, nil)
}

// contributeWhen is contribute guarded by cond. Writes of one instance are
// serialized and each carries the snapshot read under the lock, so the group
// store always ends with the instance's latest choice. A nil cond always
// holds.
func (s *BundleService) contributeWhen(ctx context.Context, tenantID string, bundle *Bundle, cond func() bool) {
	bundle.groupMu.Lock()
	if bundle.detached || (cond != nil && !cond()) {
		bundle.groupMu.Unlock()
		return
	}
	s.storeSelection(ctx, tenantID, bundle)
	bundle.groupMu.Unlock()

	s.refreshGroup(ctx, tenantID, bundle.GroupID())
}

// storeSelection puts or removes the group entry of bundle.
// bundle.groupMu must be held.
func (s *BundleService) storeSelection(ctx context.Context, tenantID string, bundle *Bundle) {
	state := bundle.State()
	logger := s.logger.WithFields(logrus.Fields{
		"tenant_id":   tenantID,
		"instance_id": bundle.InstanceID(),
		"group_id":    bundle.GroupID(),
	})

	if state.Current == nil || state.Current.Sku == nil {
		if err := s.groups.Remove(ctx, tenantID, bundle.GroupID(), bundle.InstanceID()); err != nil {
			logger.WithError(err).Warn("Failed to remove group selection")
		}
	} else {
		item := &models.GroupItem{
			GroupID:       bundle.GroupID(),
			InstanceID:    bundle.InstanceID(),
			BaseProductID: bundle.BaseProductID(),
			Product:       *state.Current,
			SelectedAt:    time.Now().UTC(),
		}
		if err := s.groups.Put(ctx, tenantID, item); err != nil {
			logger.WithError(err).Warn("Failed to store group selection")
		} else if s.publisher != nil {
			if err := s.publisher.PublishSelectionChanged(ctx, tenantID, item); err != nil {
				logger.WithError(err).Warn("Failed to publish selection changed event")
			}
		}
	}
}

// refreshGroup hands the latest group selections to every mounted member.
func (s *BundleService) refreshGroup(ctx context.Context, tenantID, groupID string) {
	s.mu.RLock()
	var members []*Bundle
	for _, instance := range s.instances {
		if instance.tenantID == tenantID && instance.bundle.GroupID() == groupID {
			members = append(members, instance.bundle)
		}
	}
	s.mu.RUnlock()

	if len(members) == 0 {
		return
	}
	items := s.listGroup(ctx, tenantID, groupID)
	for _, member := range members {
		member.SetGroupItems(items)
	}
}

// listGroup reads a page group. A failed read degrades to an empty group.
func (s *BundleService) listGroup(ctx context.Context, tenantID, groupID string) []models.GroupItem {
	items, err := s.groups.List(ctx, tenantID, groupID)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"group_id":  groupID,
		}).Warn("Failed to read bundle group")
		return nil
	}
	return items
}
