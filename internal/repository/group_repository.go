package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"buy-together-service/internal/models"
)

// DefaultGroupTTL is how long a page group survives without writes.
const DefaultGroupTTL = 30 * time.Minute

// GroupRepositoryInterface stores the selections that bundle instances on the
// same page share with each other. Entries are keyed by instance.
type GroupRepositoryInterface interface {
	List(ctx context.Context, tenantID, groupID string) ([]models.GroupItem, error)
	Put(ctx context.Context, tenantID string, item *models.GroupItem) error
	Remove(ctx context.Context, tenantID, groupID, instanceID string) error
}

// RedisGroupRepository keeps one Redis hash per page group. Hash fields are
// instance ids and values are JSON encoded group items.
type RedisGroupRepository struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisGroupRepository(client *redis.Client, ttl time.Duration) *RedisGroupRepository {
	if ttl <= 0 {
		ttl = DefaultGroupTTL
	}
	return &RedisGroupRepository{
		redis: client,
		ttl:   ttl,
	}
}

func groupKey(tenantID, groupID string) string {
	return fmt.Sprintf("bundle:group:%s:%s", tenantID, groupID)
}

// List returns every selection of the group in no particular order
func (r *RedisGroupRepository) List(ctx context.Context, tenantID, groupID string) ([]models.GroupItem, error) {
	values, err := r.redis.HGetAll(ctx, groupKey(tenantID, groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read group %s: %w", groupID, err)
	}

	items := make([]models.GroupItem, 0, len(values))
	for _, raw := range values {
		var item models.GroupItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			// Skip entries written by an incompatible version
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Put stores the selection of one instance and refreshes the group TTL
func (r *RedisGroupRepository) Put(ctx context.Context, tenantID string, item *models.GroupItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode group item: %w", err)
	}

	key := groupKey(tenantID, item.GroupID)
	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, item.InstanceID, data)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store group item: %w", err)
	}
	return nil
}

// Remove deletes the selection of one instance
func (r *RedisGroupRepository) Remove(ctx context.Context, tenantID, groupID, instanceID string) error {
	if err := r.redis.HDel(ctx, groupKey(tenantID, groupID), instanceID).Err(); err != nil {
		return fmt.Errorf("failed to remove group item: %w", err)
	}
	return nil
}

// MemoryGroupRepository is an in-process group store used in development and
// when Redis is unreachable.
type MemoryGroupRepository struct {
	mu     sync.RWMutex
	groups map[string]map[string]models.GroupItem
}

func NewMemoryGroupRepository() *MemoryGroupRepository {
	return &MemoryGroupRepository{
		groups: make(map[string]map[string]models.GroupItem),
	}
}

func (r *MemoryGroupRepository) List(_ context.Context, tenantID, groupID string) ([]models.GroupItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group := r.groups[groupKey(tenantID, groupID)]
	items := make([]models.GroupItem, 0, len(group))
	for _, item := range group {
		items = append(items, item)
	}
	return items, nil
}

func (r *MemoryGroupRepository) Put(_ context.Context, tenantID string, item *models.GroupItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := groupKey(tenantID, item.GroupID)
	group, ok := r.groups[key]
	if !ok {
		group = make(map[string]models.GroupItem)
		r.groups[key] = group
	}
	group[item.InstanceID] = *item
	return nil
}

func (r *MemoryGroupRepository) Remove(_ context.Context, tenantID, groupID, instanceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := groupKey(tenantID, groupID)
	group, ok := r.groups[key]
	if !ok {
		return nil
	}
	delete(group, instanceID)
	if len(group) == 0 {
		delete(r.groups, key)
	}
	return nil
}
