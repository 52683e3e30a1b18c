package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buy-together-service/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeRefresher) RefreshProduct(_ context.Context, tenantID, productID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, tenantID+"/"+productID)
	return 1
}

type fakeInvalidator struct {
	invalidated []string
	err         error
}

func (f *fakeInvalidator) InvalidateProduct(_ context.Context, tenantID, productID string) error {
	f.invalidated = append(f.invalidated, tenantID+"/"+productID)
	return f.err
}

// fakeJetStream records publishes; other JetStream methods are not used.
type fakeJetStream struct {
	jetstream.JetStream

	mu        sync.Mutex
	streams   []string
	published chan publishedMsg
	err       error
}

type publishedMsg struct {
	subject string
	data    []byte
}

func newFakeJetStream() *fakeJetStream {
	return &fakeJetStream{published: make(chan publishedMsg, 8)}
}

func (f *fakeJetStream) CreateOrUpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams = append(f.streams, cfg.Name)
	return nil, nil
}

func (f *fakeJetStream) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.published <- publishedMsg{subject: subject, data: data}
	if f.err != nil {
		return nil, f.err
	}
	return &jetstream.PubAck{Stream: StreamBundles}, nil
}

func (f *fakeJetStream) next(t *testing.T) publishedMsg {
	t.Helper()
	select {
	case msg := <-f.published:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
		return publishedMsg{}
	}
}

func productEvent(t *testing.T, eventType, tenantID, productID string) []byte {
	data, err := json.Marshal(ProductEvent{
		EventType: eventType,
		TenantID:  tenantID,
		ProductID: productID,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	return data
}

func TestHandleProductEvent(t *testing.T) {
	tests := []struct {
		name        string
		eventType   string
		productID   string
		wantRefresh bool
	}{
		{"updated", "product.updated", "p1", true},
		{"deleted", "product.deleted", "p1", true},
		{"archived", "product.archived", "p1", true},
		{"published", "product.published", "p1", true},
		{"created is ignored", "product.created", "p1", false},
		{"missing product", "product.updated", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refresher := &fakeRefresher{}
			cache := &fakeInvalidator{}
			subscriber := NewCatalogEventSubscriber(nil, refresher, quietLogger(), cache)

			err := subscriber.HandleProductEvent(context.Background(), productEvent(t, tt.eventType, "tenant-1", tt.productID))

			require.NoError(t, err)
			if tt.wantRefresh {
				assert.Equal(t, []string{"tenant-1/p1"}, refresher.calls)
				assert.Equal(t, []string{"tenant-1/p1"}, cache.invalidated)
			} else {
				assert.Empty(t, refresher.calls)
				assert.Empty(t, cache.invalidated)
			}
		})
	}
}

func TestHandleProductEvent_InvalidationFailureStillRefreshes(t *testing.T) {
	refresher := &fakeRefresher{}
	failing := &fakeInvalidator{err: errors.New("redis: connection refused")}
	healthy := &fakeInvalidator{}
	subscriber := NewCatalogEventSubscriber(nil, refresher, quietLogger(), failing, healthy)

	err := subscriber.HandleProductEvent(context.Background(), productEvent(t, "product.updated", "tenant-1", "p1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"tenant-1/p1"}, failing.invalidated)
	assert.Equal(t, []string{"tenant-1/p1"}, healthy.invalidated)
	assert.Equal(t, []string{"tenant-1/p1"}, refresher.calls)
}

func TestHandleProductEvent_InvalidPayload(t *testing.T) {
	refresher := &fakeRefresher{}
	subscriber := NewCatalogEventSubscriber(nil, refresher, quietLogger())

	err := subscriber.HandleProductEvent(context.Background(), []byte("{not json"))

	assert.Error(t, err)
	assert.Empty(t, refresher.calls)
}

func TestPublisher_SelectionChanged(t *testing.T) {
	js := newFakeJetStream()
	publisher := NewPublisher(js, quietLogger())
	assert.Equal(t, []string{StreamBundles}, js.streams)

	item := &models.GroupItem{
		GroupID:       "page-1",
		InstanceID:    "bundle-1",
		BaseProductID: "p1",
		Product: models.ProductSummary{
			ProductID: "p2",
			Sku:       &models.SkuSummary{ItemID: "21", SellingPrice: 1500},
		},
	}

	require.NoError(t, publisher.PublishSelectionChanged(context.Background(), "tenant-1", item))

	msg := js.next(t)
	assert.Equal(t, BundleSelectionChanged, msg.subject)
	var event BundleEvent
	require.NoError(t, json.Unmarshal(msg.data, &event))
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "tenant-1", event.TenantID)
	assert.Equal(t, "page-1", event.GroupID)
	assert.Equal(t, "bundle-1", event.InstanceID)
	assert.Equal(t, "p1", event.BaseProductID)
	assert.Equal(t, "p2", event.ProductID)
	assert.Equal(t, "21", event.SkuID)
	assert.Equal(t, int64(1500), event.SellingPrice)
}

func TestPublisher_UnmountedIgnoresDeliveryFailure(t *testing.T) {
	js := newFakeJetStream()
	js.err = errors.New("no responders")
	publisher := NewPublisher(js, quietLogger())

	err := publisher.PublishBundleUnmounted(context.Background(), "tenant-1", "page-1", "bundle-1")

	require.NoError(t, err)
	msg := js.next(t)
	assert.Equal(t, BundleUnmounted, msg.subject)
}
