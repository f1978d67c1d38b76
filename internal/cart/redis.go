package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"catalog-admin-service/internal/kv"
)

// RedisPersister mirrors cart snapshots into Redis. Attach it with
// store.Subscribe(p.Listener()).
type RedisPersister struct {
	client  kv.Client
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisPersister creates a persister writing with the given TTL.
func NewRedisPersister(client kv.Client, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, ttl: ttl, timeout: 2 * time.Second}
}

func (p *RedisPersister) key(owner string) string {
	return fmt.Sprintf("cart:owner:%s", owner)
}

// Listener returns the subscriber that writes each snapshot. Empty carts are deleted.
func (p *RedisPersister) Listener() Listener {
	return func(ev Event) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Save(ctx, ev.Cart); err != nil {
			zap.L().Error("failed to persist cart",
				zap.String("owner_id", ev.Cart.OwnerID),
				zap.String("event", string(ev.Kind)),
				zap.Error(err),
			)
		}
	}
}

// Save writes c, or deletes its key when c is empty.
func (p *RedisPersister) Save(ctx context.Context, c Cart) error {
	key := p.key(c.OwnerID)
	if c.Empty() {
		return p.client.Del(ctx, key).Err()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("cart: encode snapshot: %w", err)
	}
	return p.client.Set(ctx, key, data, p.ttl).Err()
}

// Load restores owner's cart from Redis into s unless s already holds one. It
// reports whether a cart was found.
func (p *RedisPersister) Load(ctx context.Context, s *Store, owner string) (bool, error) {
	data, err := p.client.Get(ctx, p.key(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cart: load %s: %w", owner, err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return false, fmt.Errorf("cart: decode %s: %w", owner, err)
	}
	c.OwnerID = owner
	if c.Items == nil {
		c.Items = []Item{}
	}
	if c.Wishlist == nil {
		c.Wishlist = []int64{}
	}
	if !s.Restore(c) {
		zap.L().Debug("persisted cart ignored, owner already in memory", zap.String("owner", owner))
	}
	return true, nil
}
