package scanner

import (
	"context"
	"log/slog"

	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/domain/arbitrage"
	"github.com/FilipePhys/prediction-markets/internal/domain/matching"
)

// evaluatePair ejecuta fetch → match → normalize → evaluate para un par.
func (s *Scanner) evaluatePair(ctx context.Context, pair domain.MarketPair) pairOutcome {
	fail := func(stage domain.FailureStage, err error) pairOutcome {
		slog.Warn("pair failed",
			"pair", pair.ID,
			"stage", stage,
			"err", err,
		)
		return pairOutcome{failure: &domain.PairFailure{MarketPairID: pair.ID, Stage: stage, Err: err}}
	}

	marketA, marketB, err := s.fetchPair(ctx, pair)
	if err != nil {
		return fail(domain.StageFetch, err)
	}

	var skipped []string
	outcomesA := s.outcomes(pair.ID, marketA, &skipped)
	outcomesB := s.outcomes(pair.ID, marketB, &skipped)

	matched, unmatched := s.align(pair, outcomesA, outcomesB, &skipped)

	result, err := arbitrage.Evaluate(pair.ID, matched, unmatched)
	if err != nil {
		return fail(domain.StageEvaluate, err)
	}
	result.Skipped = skipped

	out := pairOutcome{result: result}
	if sig, ok := arbitrage.Signal(result, pair.VenueA, pair.VenueB); ok {
		out.signal = &sig
	}

	slog.Debug("pair evaluated",
		"pair", pair.ID,
		"matched", len(result.MatchedPairs),
		"unmatched", len(result.Unmatched),
		"skipped", len(skipped),
		"total", result.TotalProbability,
	)
	return out
}

// outcomes devuelve los outcomes a emparejar. Un mercado binario sin outcomes
// explícitos se expande a yes/no desde su probabilidad normalizada.
func (s *Scanner) outcomes(pairID string, m domain.RawMarket, skipped *[]string) []domain.RawOutcome {
	if !m.Binary || len(m.Outcomes) > 0 {
		return m.Outcomes
	}
	p, err := s.prices.ForVenue(m.Venue).Normalize(m.Probability)
	if err != nil {
		s.skip(pairID, m.Venue, "probability", err, skipped)
		return nil
	}
	return matching.ExpandBinary(p)
}

// align normaliza ambos lados y después empareja. Un valor inválido descarta
// el outcome (queda en skipped) antes del match, así nunca ocupa el lugar de un
// candidato válido; un outcome de A que se queda sin candidato cuenta como sin match.
func (s *Scanner) align(pair domain.MarketPair, a, b []domain.RawOutcome, skipped *[]string) ([]domain.MatchedPair, []domain.UnmatchedOutcome) {
	validA := s.normalized(pair.ID, pair.VenueA, a, skipped)
	validB := s.normalized(pair.ID, pair.VenueB, b, skipped)

	var matched []domain.MatchedPair
	var unmatched []domain.UnmatchedOutcome
	for _, r := range matching.ForMode(pair.Mode, s.threshold(pair)).Match(validA, validB) {
		pa, _ := r.A.Value.ScalarValue()
		if !r.Matched() {
			unmatched = append(unmatched, domain.UnmatchedOutcome{Label: r.A.Label, ProbabilityA: pa})
			continue
		}
		pb, _ := r.B.Value.ScalarValue()
		matched = append(matched, domain.MatchedPair{
			MarketPairID: pair.ID,
			OutcomeLabel: r.A.Label,
			LabelB:       r.B.Label,
			ProbabilityA: pa,
			ProbabilityB: pb,
			Score:        r.Score,
		})
	}
	return matched, unmatched
}

// normalized devuelve los outcomes con su probabilidad ya normalizada como escalar.
func (s *Scanner) normalized(pairID string, venue domain.Venue, outcomes []domain.RawOutcome, skipped *[]string) []domain.RawOutcome {
	norm := s.prices.ForVenue(venue)
	valid := make([]domain.RawOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		p, err := norm.Normalize(o.Value)
		if err != nil {
			s.skip(pairID, venue, o.Label, err, skipped)
			continue
		}
		valid = append(valid, domain.RawOutcome{Label: o.Label, Value: domain.Scalar(p)})
	}
	return valid
}

// threshold devuelve el umbral del par, o el default configurado para su modo.
func (s *Scanner) threshold(pair domain.MarketPair) float64 {
	if pair.Threshold > 0 {
		return pair.Threshold
	}
	if pair.Mode == domain.MatchExact {
		return s.cfg.ExactThreshold
	}
	return s.cfg.FuzzyThreshold
}

func (s *Scanner) skip(pairID string, venue domain.Venue, label string, err error, skipped *[]string) {
	slog.Warn("outcome skipped",
		"pair", pairID,
		"venue", venue,
		"label", label,
		"err", err,
	)
	*skipped = append(*skipped, string(venue)+":"+label)
}
