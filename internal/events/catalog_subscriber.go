package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

const StreamProducts = "PRODUCT_EVENTS"

// ProductRefresher reloads mounted bundles that show a product.
type ProductRefresher interface {
	RefreshProduct(ctx context.Context, tenantID, productID string) int
}

// CacheInvalidator drops cached catalog data of a product.
type CacheInvalidator interface {
	InvalidateProduct(ctx context.Context, tenantID, productID string) error
}

// ProductEvent represents a product change event.
type ProductEvent struct {
	EventType string    `json:"eventType"`
	TenantID  string    `json:"tenantId"`
	Timestamp time.Time `json:"timestamp"`
	ProductID string    `json:"productId"`
	Status    string    `json:"status,omitempty"`
}

// CatalogEventSubscriber keeps bundles in sync with catalog changes.
type CatalogEventSubscriber struct {
	js           jetstream.JetStream
	refresher    ProductRefresher
	caches       []CacheInvalidator
	consumerName string
	logger       *logrus.Entry
}

// NewCatalogEventSubscriber creates a subscriber for product events.
func NewCatalogEventSubscriber(js jetstream.JetStream, refresher ProductRefresher, logger *logrus.Logger, caches ...CacheInvalidator) *CatalogEventSubscriber {
	hostname, _ := os.Hostname()
	return &CatalogEventSubscriber{
		js:           js,
		refresher:    refresher,
		caches:       caches,
		consumerName: fmt.Sprintf("buy-together-%s", hostname),
		logger:       logger.WithField("component", "catalog-subscriber"),
	}
}

// Start begins listening for product events.
func (s *CatalogEventSubscriber) Start(ctx context.Context) error {
	_, err := s.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamProducts,
		Subjects:  []string{"product.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Could not create PRODUCT_EVENTS stream")
	}

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamProducts, jetstream.ConsumerConfig{
		Durable:       s.consumerName + "-products",
		FilterSubject: "product.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create product events consumer: %w", err)
	}

	msgs, err := consumer.Messages()
	if err != nil {
		return fmt.Errorf("failed to get product messages iterator: %w", err)
	}

	go s.consume(ctx, msgs)
	s.logger.Info("Catalog event subscriber started")
	return nil
}

func (s *CatalogEventSubscriber) consume(ctx context.Context, msgs jetstream.MessagesContext) {
	go func() {
		<-ctx.Done()
		msgs.Stop()
	}()

	for {
		msg, err := msgs.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Warn("Error getting next product message")
			time.Sleep(time.Second)
			continue
		}

		if err := s.HandleProductEvent(ctx, msg.Data()); err != nil {
			s.logger.WithError(err).Error("Error handling product event")
			_ = msg.Nak()
		} else {
			_ = msg.Ack()
		}
	}
}

// HandleProductEvent applies one product event to caches and mounted bundles.
func (s *CatalogEventSubscriber) HandleProductEvent(ctx context.Context, data []byte) error {
	var event ProductEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal product event: %w", err)
	}
	if event.TenantID == "" || event.ProductID == "" {
		return nil
	}

	switch event.EventType {
	case "product.updated", "product.deleted", "product.archived", "product.published":
	default:
		return nil
	}

	for _, cache := range s.caches {
		if err := cache.InvalidateProduct(ctx, event.TenantID, event.ProductID); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"tenant_id":  event.TenantID,
				"product_id": event.ProductID,
			}).Warn("Failed to invalidate catalog cache")
		}
	}
	refreshed := s.refresher.RefreshProduct(ctx, event.TenantID, event.ProductID)

	s.logger.WithFields(logrus.Fields{
		"event_type": event.EventType,
		"tenant_id":  event.TenantID,
		"product_id": event.ProductID,
		"refreshed":  refreshed,
	}).Debug("Processed product event")
	return nil
}
