package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

/* Redis implementation of Guard
 * SET NX EX makes the insert-if-absent check a single atomic round trip,
 * and Redis key expiry replaces the memory guard's gc pass. Use this
 * backend when more than one replica shares the webhook endpoint.
 */

// keyPrefix namespaces replay entries: replay:{delivery_id}
const keyPrefix = "replay"

type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a Redis-backed replay guard.
func NewRedisGuard(addr, password string, db int, ttl time.Duration) (*RedisGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &RedisGuard{
		client: client,
		ttl:    ttl,
	}, nil
}

// Accept implements Guard via SET NX with the replay TTL as key expiry.
func (g *RedisGuard) Accept(ctx context.Context, deliveryID string) (bool, error) {
	key := fmt.Sprintf("%s:%s", keyPrefix, deliveryID)

	inserted, err := g.client.SetNX(ctx, key, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("recording delivery id: %w", err)
	}
	return inserted, nil
}

// Forget implements Guard via DEL on the delivery's replay key.
func (g *RedisGuard) Forget(ctx context.Context, deliveryID string) error {
	key := fmt.Sprintf("%s:%s", keyPrefix, deliveryID)

	if err := g.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("releasing delivery id: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable, for readiness probes.
func (g *RedisGuard) Ping(ctx context.Context) error {
	if err := g.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging Redis: %w", err)
	}
	return nil
}

// Close implements Guard.
func (g *RedisGuard) Close(_ context.Context) error {
	return g.client.Close()
}
