package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/domain/pricing"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

// Config contiene la configuración del scanner.
type Config struct {
	Interval       time.Duration
	MaxConcurrency int // pares evaluados en paralelo (0 = 4)
	DryRun         bool

	// Umbrales por defecto para pares sin threshold propio (0 = default del matcher).
	FuzzyThreshold float64
	ExactThreshold float64

	Filter FilterConfig
}

const defaultMaxConcurrency = 4

// Scanner es el orquestador principal del loop de escaneo.
type Scanner struct {
	cfg      Config
	venues   map[domain.Venue]ports.VenueClient
	registry ports.PairRegistry
	cache    ports.SnapshotCache
	storage  ports.Storage
	notifier ports.Notifier
	prices   pricing.Table
	filter   *Filter

	previousOpps map[string]bool // pares con oportunidad en el ciclo anterior, para alertas
	now          func() time.Time
}

// New crea un Scanner con todas las dependencias inyectadas.
// cache y storage son opcionales (nil = desactivados).
func New(
	cfg Config,
	venues []ports.VenueClient,
	registry ports.PairRegistry,
	cache ports.SnapshotCache,
	storage ports.Storage,
	notifier ports.Notifier,
	prices pricing.Table,
) *Scanner {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	if prices == nil {
		prices = pricing.DefaultTable()
	}
	byVenue := make(map[domain.Venue]ports.VenueClient, len(venues))
	for _, v := range venues {
		byVenue[v.Venue()] = v
	}
	return &Scanner{
		cfg:          cfg,
		venues:       byVenue,
		registry:     registry,
		cache:        cache,
		storage:      storage,
		notifier:     notifier,
		prices:       prices,
		filter:       NewFilter(cfg.Filter),
		previousOpps: make(map[string]bool),
		now:          time.Now,
	}
}

// Run ejecuta el loop de escaneo hasta que el contexto se cancele.
// Si cfg.DryRun está activo, solo ejecuta un ciclo.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner starting",
		"interval", s.cfg.Interval,
		"dry_run", s.cfg.DryRun,
		"max_concurrency", s.cfg.MaxConcurrency,
		"venues", len(s.venues),
	)

	if err := s.runCycle(ctx); err != nil {
		slog.Error("scan cycle failed", "err", err)
		if s.cfg.DryRun {
			return err
		}
	}

	if s.cfg.DryRun {
		return nil
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stopped")
			return nil
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				slog.Error("scan cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un ciclo de escaneo y devuelve el reporte,
// sin notificar ni persistir.
func (s *Scanner) RunOnce(ctx context.Context) (domain.ScanReport, error) {
	return s.cycle(ctx)
}

// runCycle ejecuta un ciclo completo y notifica/persiste los resultados.
func (s *Scanner) runCycle(ctx context.Context) error {
	report, err := s.cycle(ctx)
	if err != nil {
		return err
	}

	s.emitAlerts(report.Signals)

	if err := s.notifier.Notify(ctx, report); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if s.storage != nil {
		if err := s.storage.SaveScan(ctx, report); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	s.pruneCache()

	slog.Info("scan cycle complete",
		"scan_id", report.ID,
		"pairs", len(report.Results)+len(report.Failures),
		"opportunities", len(report.Opportunities()),
		"failures", len(report.Failures),
		"duration", report.Duration().Round(time.Millisecond),
	)
	return nil
}

// cycle carga los pares, los evalúa en paralelo y arma el reporte.
// Solo falla si el registro no se puede leer; los fallos por par quedan en el reporte.
func (s *Scanner) cycle(ctx context.Context) (domain.ScanReport, error) {
	report := domain.ScanReport{ID: uuid.NewString(), StartedAt: s.now()}

	pairs, err := s.registry.LoadPairs(ctx)
	if err != nil {
		return report, fmt.Errorf("scanner.cycle: load pairs: %w", err)
	}

	for _, out := range s.evaluatePairsConcurrent(ctx, pairs) {
		switch {
		case out.failure != nil:
			report.Failures = append(report.Failures, *out.failure)
		default:
			report.Results = append(report.Results, out.result)
			if out.signal != nil {
				report.Signals = append(report.Signals, *out.signal)
			}
		}
	}

	report.Signals = rankByMargin(s.filter.Apply(report.Signals))
	report.FinishedAt = s.now()
	return report, nil
}

// pruner lo implementan las caches que no expiran solas (la de memoria).
type pruner interface {
	Prune() int
}

func (s *Scanner) pruneCache() {
	p, ok := s.cache.(pruner)
	if !ok {
		return
	}
	if n := p.Prune(); n > 0 {
		slog.Debug("snapshot cache pruned", "removed", n)
	}
}

// emitAlerts registra las oportunidades nuevas (no vistas en el ciclo anterior).
func (s *Scanner) emitAlerts(signals []domain.ArbitrageSignal) {
	current := make(map[string]bool, len(signals))

	for _, sig := range signals {
		if !sig.Opportunity {
			continue
		}
		current[sig.MarketPairID] = true
		if s.previousOpps[sig.MarketPairID] {
			continue // ya conocida
		}

		attrs := []any{
			"pair", sig.MarketPairID,
			"margin", fmt.Sprintf("%.4f", sig.Margin),
			"legs", len(sig.Outcomes),
		}
		if sig.Uncovered > 0 {
			attrs = append(attrs, "uncovered", fmt.Sprintf("%.4f", sig.Uncovered))
		}
		slog.Warn("NEW ARBITRAGE OPPORTUNITY", attrs...)
	}

	s.previousOpps = current
}

// rankByMargin ordena las señales por margen descendente.
func rankByMargin(signals []domain.ArbitrageSignal) []domain.ArbitrageSignal {
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Margin > signals[j].Margin
	})
	return signals
}
