package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FilipePhys/prediction-markets/config"
	"github.com/FilipePhys/prediction-markets/internal/adapters/notify"
	"github.com/FilipePhys/prediction-markets/internal/adapters/registry"
	"github.com/FilipePhys/prediction-markets/internal/adapters/storage"
	"github.com/FilipePhys/prediction-markets/internal/application/scanner"
	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	pairsPath := flag.String("pairs", "", "path to pairs file (.yaml/.yml/.toml, overrides config)")
	once := flag.Bool("once", false, "run one scan cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	output := flag.String("output", notify.FormatTable, "report format: table|compact")
	discover := flag.Bool("discover", false, "list candidate market pairs and exit")
	venueA := flag.String("venue-a", string(domain.VenueFutuur), "discover: first venue")
	venueB := flag.String("venue-b", string(domain.VenueManifold), "discover: second venue")
	category := flag.String("category", "", "discover: registry category name")
	minScore := flag.Float64("min-score", 0.3, "discover: minimum question similarity")
	pages := flag.Int("pages", 3, "discover: pages to list per venue")
	historyWindow := flag.Duration("history", 0, "print pairs seen in the last duration (e.g. 24h) and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *pairsPath != "" {
		cfg.Registry.Path = *pairsPath
	}
	setupLogger(cfg.Log)

	slog.Info("scanner starting",
		"config", *configPath,
		"pairs", cfg.Registry.Path,
		"interval", cfg.ScanInterval(),
		"once", *once,
		"cache", cfg.Cache.Backend,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier := notify.NewConsole(decimal.NewFromFloat(cfg.Scanner.Bankroll), *output)

	var store *storage.SQLiteStorage
	if cfg.Storage.DSN != "" {
		store, err = storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
	}

	if *historyWindow > 0 {
		if store == nil {
			slog.Error("history needs storage.dsn")
			os.Exit(1)
		}
		runHistory(ctx, store, notifier, *historyWindow)
		return
	}

	reg, err := registry.NewFileRegistry(cfg.Registry.Path)
	if err != nil {
		slog.Error("failed to open registry", "err", err, "path", cfg.Registry.Path)
		os.Exit(1)
	}

	cache, closeCache, err := buildCache(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up cache", "err", err, "backend", cfg.Cache.Backend)
		os.Exit(1)
	}
	defer closeCache()

	scanCfg := scanner.Config{
		Interval:       cfg.ScanInterval(),
		MaxConcurrency: cfg.Scanner.MaxConcurrency,
		DryRun:         *once,
		FuzzyThreshold: cfg.Scanner.FuzzyThreshold,
		ExactThreshold: cfg.Scanner.ExactThreshold,
		Filter: scanner.FilterConfig{
			MinMargin:      cfg.Scanner.MinMargin,
			MaxUncovered:   cfg.Scanner.MaxUncovered,
			ExcludeSkipped: cfg.Scanner.ExcludeSkipped,
		},
	}

	// sin DSN no hay histórico; evita meter un *SQLiteStorage nil en la interfaz
	var history ports.Storage
	if store != nil {
		history = store
	}
	s := scanner.New(scanCfg, buildVenues(cfg), reg, cache, history, notifier, buildPricing(cfg))

	if *discover {
		runDiscover(ctx, s, notifier, scanner.DiscoverConfig{
			VenueA:    domain.Venue(*venueA),
			VenueB:    domain.Venue(*venueB),
			Category:  *category,
			Threshold: *minScore,
			MaxPages:  *pages,
		})
		return
	}

	if err := s.Run(ctx); err != nil {
		slog.Error("scanner exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("scanner stopped cleanly")
}

func runDiscover(ctx context.Context, s *scanner.Scanner, notifier *notify.Console, cfg scanner.DiscoverConfig) {
	slog.Info("=== DISCOVER MODE: candidate pairs by question similarity ===",
		"venue_a", cfg.VenueA,
		"venue_b", cfg.VenueB,
		"category", cfg.Category,
	)

	cands, err := s.Discover(ctx, cfg)
	if err != nil {
		slog.Error("discover failed", "err", err)
		os.Exit(1)
	}
	notifier.PrintCandidates(cands)
}

func runHistory(ctx context.Context, store *storage.SQLiteStorage, notifier *notify.Console, window time.Duration) {
	to := time.Now()
	records, err := store.GetHistory(ctx, to.Add(-window), to)
	if err != nil {
		slog.Error("history query failed", "err", err)
		os.Exit(1)
	}
	notifier.PrintHistory(records)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
