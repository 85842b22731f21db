package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/domain/matching"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

// DiscoverConfig acota la búsqueda de pares candidatos.
type DiscoverConfig struct {
	VenueA, VenueB domain.Venue
	Category       string  // nombre de una categoría del registro ("" = sin filtro)
	Threshold      float64 // score mínimo (exclusivo) entre preguntas
	PageSize       int
	MaxPages       int // páginas por venue (0 = 1)
	MaxCandidates  int // 0 = sin límite
	IncludeClosed  bool
}

// Discover lista mercados de dos venues y propone pares cuyas preguntas se parecen.
// Excluye los pares que ya están en el registro.
func (s *Scanner) Discover(ctx context.Context, cfg DiscoverConfig) ([]domain.Candidate, error) {
	clientA, ok := s.venues[cfg.VenueA]
	if !ok {
		return nil, fmt.Errorf("scanner.Discover: no client for venue %q", cfg.VenueA)
	}
	clientB, ok := s.venues[cfg.VenueB]
	if !ok {
		return nil, fmt.Errorf("scanner.Discover: no client for venue %q", cfg.VenueB)
	}

	filter, err := s.discoveryFilter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var marketsA, marketsB []domain.RawMarket
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		marketsA, err = listPages(gctx, clientA, filter, cfg.MaxPages)
		return err
	})
	g.Go(func() error {
		var err error
		marketsB, err = listPages(gctx, clientB, filter, cfg.MaxPages)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scanner.Discover: list markets: %w", err)
	}

	if !cfg.IncludeClosed {
		marketsA = openOnly(marketsA)
		marketsB = openOnly(marketsB)
	}

	known, err := s.knownPairs(ctx)
	if err != nil {
		return nil, err
	}

	cands := proposeCandidates(marketsA, marketsB, cfg.Threshold, known)
	if cfg.MaxCandidates > 0 && len(cands) > cfg.MaxCandidates {
		cands = cands[:cfg.MaxCandidates]
	}

	slog.Info("discovery complete",
		"venue_a", cfg.VenueA,
		"markets_a", len(marketsA),
		"venue_b", cfg.VenueB,
		"markets_b", len(marketsB),
		"candidates", len(cands),
	)
	return cands, nil
}

// discoveryFilter traduce la categoría del registro al filtro de listado.
func (s *Scanner) discoveryFilter(ctx context.Context, cfg DiscoverConfig) (domain.MarketFilter, error) {
	filter := domain.MarketFilter{Limit: cfg.PageSize}
	if cfg.Category == "" {
		return filter, nil
	}

	cats, err := s.registry.Categories(ctx)
	if err != nil {
		return filter, fmt.Errorf("scanner.Discover: load categories: %w", err)
	}
	for _, c := range cats {
		if c.Name == cfg.Category {
			filter.Category = c.FutuurID
			filter.Tag = c.Tag
			return filter, nil
		}
	}
	return filter, fmt.Errorf("scanner.Discover: unknown category %q", cfg.Category)
}

// knownPairs devuelve las claves "venue:id|venue:id" ya registradas, en ambos sentidos.
func (s *Scanner) knownPairs(ctx context.Context) (map[string]bool, error) {
	pairs, err := s.registry.LoadPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanner.Discover: load pairs: %w", err)
	}
	known := make(map[string]bool, 2*len(pairs))
	for _, p := range pairs {
		a := domain.MarketKey(p.VenueA, p.MarketA)
		b := domain.MarketKey(p.VenueB, p.MarketB)
		known[a+"|"+b] = true
		known[b+"|"+a] = true
	}
	return known, nil
}

// proposeCandidates elige, para cada mercado de A, la pregunta de B más parecida.
func proposeCandidates(a, b []domain.RawMarket, threshold float64, known map[string]bool) []domain.Candidate {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = matching.DefaultFuzzyThreshold
	}

	questions := make([]string, len(b))
	for i, m := range b {
		questions[i] = m.Question
	}

	var scorer matching.TFIDFScorer
	var cands []domain.Candidate
	for _, ma := range a {
		scores := scorer.Score(ma.Question, questions)
		best := 0
		for i := range scores {
			if scores[i] > scores[best] {
				best = i
			}
		}
		if scores[best] <= threshold {
			continue
		}
		mb := b[best]
		if known[ma.Key()+"|"+mb.Key()] {
			continue
		}
		cands = append(cands, domain.Candidate{
			VenueA:    ma.Venue,
			MarketA:   ma.ID,
			QuestionA: ma.Question,
			VenueB:    mb.Venue,
			MarketB:   mb.ID,
			QuestionB: mb.Question,
			Score:     scores[best],
		})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Score > cands[j].Score
	})
	return cands
}

// listPages recorre las páginas en secuencia hasta agotarlas o llegar a maxPages.
func listPages(ctx context.Context, client ports.VenueClient, filter domain.MarketFilter, maxPages int) ([]domain.RawMarket, error) {
	if maxPages <= 0 {
		maxPages = 1
	}
	var all []domain.RawMarket
	for page := 0; page < maxPages; page++ {
		markets, next, err := client.ListMarkets(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %w", client.Venue(), page, err)
		}
		all = append(all, markets...)
		if next == "" {
			break
		}
		filter.PageToken = next
	}
	return all, nil
}

func openOnly(ms []domain.RawMarket) []domain.RawMarket {
	out := make([]domain.RawMarket, 0, len(ms))
	for _, m := range ms {
		switch m.Status {
		case domain.StatusOpen, "":
			out = append(out, m)
		}
	}
	return out
}
