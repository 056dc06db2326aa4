package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
)

const (
	orderLockKeyPrefix = "orderlock:"
	orderListKeyPrefix = "orders:"
	orderLockTTL       = 30 * time.Second
)

// Release only deletes the lock when the caller still owns it, so an expired
// lock re-acquired by someone else is never stolen back.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisAdapter carries the core's cache concerns: short-lived per-order locks
// and a TTL-bounded cache of marketplace order listings. The listing TTL is
// fixed at construction; invalidation is either expiry or an explicit
// InvalidateOrders call, never ad hoc.
type RedisAdapter struct {
	client  *redis.Client
	listTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, listTTL time.Duration) *RedisAdapter {
	return &RedisAdapter{client: client, listTTL: listTTL}
}

func (r *RedisAdapter) AcquireOrderLock(ctx context.Context, orderID string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, orderLockKeyPrefix+orderID, token, orderLockTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire order lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisAdapter) ReleaseOrderLock(ctx context.Context, orderID, token string) error {
	if err := releaseLockScript.Run(ctx, r.client, []string{orderLockKeyPrefix + orderID}, token).Err(); err != nil {
		return fmt.Errorf("release order lock: %w", err)
	}
	return nil
}

func (r *RedisAdapter) GetOrders(ctx context.Context, key string) ([]domain.Order, bool, error) {
	payload, err := r.client.Get(ctx, orderListKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached orders: %w", err)
	}

	var orders []domain.Order
	if err := json.Unmarshal(payload, &orders); err != nil {
		return nil, false, fmt.Errorf("decode cached orders: %w", err)
	}
	return orders, true, nil
}

func (r *RedisAdapter) SetOrders(ctx context.Context, key string, orders []domain.Order) error {
	payload, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("encode orders: %w", err)
	}
	if err := r.client.Set(ctx, orderListKeyPrefix+key, payload, r.listTTL).Err(); err != nil {
		return fmt.Errorf("cache orders: %w", err)
	}
	return nil
}

func (r *RedisAdapter) InvalidateOrders(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, orderListKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("invalidate orders: %w", err)
	}
	return nil
}
