package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"buy-together-service/internal/models"
)

const (
	StreamBundles = "BUNDLE_EVENTS"

	BundleSelectionChanged = "bundle.selection.changed"
	BundleUnmounted        = "bundle.unmounted"

	publishTimeout = 10 * time.Second
)

// BundleEvent is the payload of every bundle event.
type BundleEvent struct {
	EventID       string    `json:"eventId"`
	EventType     string    `json:"eventType"`
	TenantID      string    `json:"tenantId"`
	Timestamp     time.Time `json:"timestamp"`
	GroupID       string    `json:"groupId"`
	InstanceID    string    `json:"instanceId"`
	BaseProductID string    `json:"baseProductId,omitempty"`
	ProductID     string    `json:"productId,omitempty"`
	SkuID         string    `json:"skuId,omitempty"`
	SellingPrice  int64     `json:"sellingPrice,omitempty"`
}

// Publisher publishes bundle events to JetStream.
type Publisher struct {
	js     jetstream.JetStream
	logger *logrus.Entry
}

// NewPublisher creates a bundle events publisher and ensures its stream exists.
func NewPublisher(js jetstream.JetStream, logger *logrus.Logger) *Publisher {
	p := &Publisher{
		js:     js,
		logger: logger.WithField("component", "bundle-events"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamBundles,
		Subjects:  []string{"bundle.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		p.logger.WithError(err).Warn("Failed to ensure bundle events stream (may already exist)")
	}
	return p
}

// PublishSelectionChanged publishes a bundle.selection.changed event
func (p *Publisher) PublishSelectionChanged(ctx context.Context, tenantID string, item *models.GroupItem) error {
	event := newBundleEvent(BundleSelectionChanged, tenantID, item.GroupID, item.InstanceID)
	event.BaseProductID = item.BaseProductID
	event.ProductID = item.Product.ProductID
	if item.Product.Sku != nil {
		event.SkuID = item.Product.Sku.ItemID
		event.SellingPrice = item.Product.Sku.SellingPrice
	}
	return p.publish(ctx, event)
}

// PublishBundleUnmounted publishes a bundle.unmounted event
func (p *Publisher) PublishBundleUnmounted(ctx context.Context, tenantID, groupID, instanceID string) error {
	return p.publish(ctx, newBundleEvent(BundleUnmounted, tenantID, groupID, instanceID))
}

func newBundleEvent(eventType, tenantID, groupID, instanceID string) *BundleEvent {
	return &BundleEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		TenantID:   tenantID,
		Timestamp:  time.Now().UTC(),
		GroupID:    groupID,
		InstanceID: instanceID,
	}
}

// publish sends the event without blocking the caller. Delivery failures are
// only logged.
func (p *Publisher) publish(_ context.Context, event *BundleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.EventType, err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		logger := p.logger.WithFields(logrus.Fields{
			"event_type":  event.EventType,
			"tenant_id":   event.TenantID,
			"instance_id": event.InstanceID,
		})
		if _, err := p.js.Publish(ctx, event.EventType, data); err != nil {
			logger.WithError(err).Error("Failed to publish bundle event")
			return
		}
		logger.Debug("Published bundle event")
	}()
	return nil
}
