package arbitrage

import (
	"github.com/FilipePhys/prediction-markets/internal/domain"
)

// Evaluate calcula la masa de probabilidad total de un par.
// Cada par emparejado aporta min(a,b): el arbitrajista compra el lado más barato.
// Cada outcome sin match aporta su probabilidad completa en A (política conservadora).
// Sin pares emparejados devuelve *domain.NoMatchError.
func Evaluate(pairID string, matched []domain.MatchedPair, unmatched []domain.UnmatchedOutcome) (domain.MarketPairResult, error) {
	if len(matched) == 0 {
		return domain.MarketPairResult{}, &domain.NoMatchError{MarketPairID: pairID}
	}

	var total, unmatchedMass float64
	pairs := make([]domain.MatchedPair, len(matched))
	for i, m := range matched {
		m.MarketPairID = pairID
		pairs[i] = m
		total += m.Cheapest()
	}
	for _, u := range unmatched {
		unmatchedMass += u.ProbabilityA
	}
	total += unmatchedMass

	return domain.MarketPairResult{
		MarketPairID:     pairID,
		MatchedPairs:     pairs,
		Unmatched:        append([]domain.UnmatchedOutcome(nil), unmatched...),
		UnmatchedMass:    unmatchedMass,
		TotalProbability: total,
	}, nil
}

// HasOpportunity aplica la condición de arbitraje: total < 1. Exactamente 1 no es oportunidad.
func HasOpportunity(r domain.MarketPairResult) bool {
	return len(r.MatchedPairs) > 0 && r.TotalProbability < 1
}

// Signal construye la cartera de cobertura si hay oportunidad.
// Cada par emparejado recibe min(a,b)/total en la venue con menor probabilidad
// (en empate, la venue A). Los outcomes sin match no reciben stake; su fracción
// queda en Uncovered.
func Signal(r domain.MarketPairResult, venueA, venueB domain.Venue) (domain.ArbitrageSignal, bool) {
	if !HasOpportunity(r) || r.TotalProbability <= 0 {
		return domain.ArbitrageSignal{MarketPairID: r.MarketPairID}, false
	}

	legs := make([]domain.StakeLeg, 0, len(r.MatchedPairs))
	for _, m := range r.MatchedPairs {
		venue, prob := venueA, m.ProbabilityA
		if m.ProbabilityB < m.ProbabilityA {
			venue, prob = venueB, m.ProbabilityB
		}
		legs = append(legs, domain.StakeLeg{
			Label:         m.OutcomeLabel,
			Venue:         venue,
			StakeFraction: prob / r.TotalProbability,
			Probability:   prob,
		})
	}

	return domain.ArbitrageSignal{
		MarketPairID: r.MarketPairID,
		Opportunity:  true,
		Margin:       1 - r.TotalProbability,
		Uncovered:    r.UnmatchedMass / r.TotalProbability,
		Skipped:      len(r.Skipped),
		Outcomes:     legs,
	}, true
}
