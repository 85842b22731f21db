package main

import (
	"context"
	"fmt"

	"github.com/FilipePhys/prediction-markets/config"
	"github.com/FilipePhys/prediction-markets/internal/adapters/cache"
	"github.com/FilipePhys/prediction-markets/internal/adapters/cache/rediscache"
	"github.com/FilipePhys/prediction-markets/internal/adapters/futuur"
	"github.com/FilipePhys/prediction-markets/internal/adapters/manifold"
	"github.com/FilipePhys/prediction-markets/internal/adapters/polymarket"
	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/domain/pricing"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

// buildVenues crea un cliente por venue. Son de larga vida y se comparten entre pares.
func buildVenues(cfg *config.Config) []ports.VenueClient {
	fc := cfg.Venues.Futuur
	return []ports.VenueClient{
		futuur.NewClient(futuur.Config{
			BaseURL:      fc.BaseURL,
			PublicKey:    fc.PublicKey,
			PrivateKey:   fc.PrivateKey,
			CurrencyMode: fc.CurrencyMode,
			RatePerSec:   fc.RequestsPerSecond,
		}),
		manifold.NewDefaultClient(cfg.Venues.Manifold.PageSize),
		polymarket.NewClient(cfg.Venues.Polymarket.CLOBBase, cfg.Venues.Polymarket.GammaBase),
	}
}

func buildPricing(cfg *config.Config) pricing.Table {
	table := pricing.DefaultTable()
	table[domain.VenueFutuur] = pricing.NewNormalizer(cfg.Venues.Futuur.ReferenceCurrency)
	return table
}

// buildCache devuelve la cache configurada y su función de cierre.
func buildCache(ctx context.Context, cfg *config.Config) (ports.SnapshotCache, func(), error) {
	switch cfg.Cache.Backend {
	case "none":
		return cache.Nop{}, func() {}, nil
	case "redis":
		c, err := rediscache.New(ctx, rediscache.Config{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.CacheTTL(),
		})
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	case "memory":
		return cache.NewMemory(cfg.CacheTTL()), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
