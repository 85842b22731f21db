// Package cache holds the in-process SnapshotCache implementations.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

// Memory is a TTL-based in-memory cache of market snapshots.
type Memory struct {
	mu      sync.RWMutex
	markets map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	market    domain.RawMarket
	fetchedAt time.Time
}

var _ ports.SnapshotCache = (*Memory)(nil)

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		markets: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *Memory) Get(_ context.Context, venue domain.Venue, id string) (domain.RawMarket, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.markets[domain.MarketKey(venue, id)]
	if !ok || c.now().Sub(entry.fetchedAt) > c.ttl {
		return domain.RawMarket{}, domain.ErrNotFound
	}
	return entry.market, nil
}

func (c *Memory) Set(_ context.Context, venue domain.Venue, id string, market domain.RawMarket) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markets[domain.MarketKey(venue, id)] = cacheEntry{
		market:    market,
		fetchedAt: c.now(),
	}
	return nil
}

// Prune drops expired entries and returns how many were removed.
func (c *Memory) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, entry := range c.markets {
		if now.Sub(entry.fetchedAt) > c.ttl {
			delete(c.markets, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired or not.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.markets)
}

// Nop never stores anything. Used when caching is disabled.
type Nop struct{}

var _ ports.SnapshotCache = Nop{}

func (Nop) Get(context.Context, domain.Venue, string) (domain.RawMarket, error) {
	return domain.RawMarket{}, domain.ErrNotFound
}

func (Nop) Set(context.Context, domain.Venue, string, domain.RawMarket) error { return nil }
