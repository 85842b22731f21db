// Package rediscache implements ports.SnapshotCache on Redis with go-redis/v9,
// so several scanner processes can share market snapshots.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

const keyPrefix = "pm:snapshot:"

// Config holds connection parameters for the Redis client.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache stores JSON-encoded RawMarket snapshots under pm:snapshot:{venue}:{id}.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ ports.SnapshotCache = (*Cache)(nil)

// New connects and pings Redis. It returns an error if the server is unreachable.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("rediscache: ping %s: %w", cfg.Addr, err)
	}
	return &Cache{rdb: rdb, ttl: cfg.TTL}, nil
}

func snapshotKey(venue domain.Venue, id string) string {
	return keyPrefix + domain.MarketKey(venue, id)
}

// Get returns domain.ErrNotFound when the key does not exist or has expired.
func (c *Cache) Get(ctx context.Context, venue domain.Venue, id string) (domain.RawMarket, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(venue, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RawMarket{}, domain.ErrNotFound
		}
		return domain.RawMarket{}, fmt.Errorf("rediscache: get %s:%s: %w", venue, id, err)
	}

	var m domain.RawMarket
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.RawMarket{}, fmt.Errorf("rediscache: unmarshal %s:%s: %w", venue, id, err)
	}
	return m, nil
}

func (c *Cache) Set(ctx context.Context, venue domain.Venue, id string, market domain.RawMarket) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("rediscache: marshal %s: %w", domain.MarketKey(venue, id), err)
	}
	if err := c.rdb.Set(ctx, snapshotKey(venue, id), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("rediscache: set %s: %w", domain.MarketKey(venue, id), err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
