package scanner

// concurrent.go: evaluación paralela de pares.
//
// Cada par ocupa su propio slot en el slice de salida: un fallo nunca cancela
// a los demás. Dentro de un par, los fetch de A y B van en paralelo; el rate
// limit lo impone cada VenueClient.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

// pairOutcome es el resultado de evaluar un par: o bien result (y quizá signal), o bien failure.
type pairOutcome struct {
	result  domain.MarketPairResult
	signal  *domain.ArbitrageSignal
	failure *domain.PairFailure
}

// evaluatePairsConcurrent evalúa todos los pares con como mucho cfg.MaxConcurrency a la vez.
// El orden de salida es el de entrada.
func (s *Scanner) evaluatePairsConcurrent(ctx context.Context, pairs []domain.MarketPair) []pairOutcome {
	outcomes := make([]pairOutcome, len(pairs))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			outcomes[i] = s.evaluatePair(ctx, pair)
			return nil
		})
	}
	_ = g.Wait() // las funciones nunca devuelven error

	slog.Debug("concurrent evaluation complete",
		"pairs", len(pairs),
		"max_concurrency", s.cfg.MaxConcurrency,
	)
	return outcomes
}

// fetchPair obtiene los dos mercados del par en paralelo.
func (s *Scanner) fetchPair(ctx context.Context, pair domain.MarketPair) (a, b domain.RawMarket, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = s.fetch(gctx, pair.VenueA, pair.MarketA)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = s.fetch(gctx, pair.VenueB, pair.MarketB)
		return err
	})
	err = g.Wait()
	return a, b, err
}

// fetch consulta la cache y, si no hay entrada vigente, la venue.
func (s *Scanner) fetch(ctx context.Context, venue domain.Venue, id string) (domain.RawMarket, error) {
	client, ok := s.venues[venue]
	if !ok {
		return domain.RawMarket{}, fmt.Errorf("no client for venue %q", venue)
	}

	if s.cache != nil {
		m, err := s.cache.Get(ctx, venue, id)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("snapshot cache get failed", "venue", venue, "market", id, "err", err)
		}
	}

	m, err := client.GetMarket(ctx, id)
	if err != nil {
		return domain.RawMarket{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, venue, id, m); err != nil {
			slog.Warn("snapshot cache set failed", "venue", venue, "market", id, "err", err)
		}
	}
	return m, nil
}
