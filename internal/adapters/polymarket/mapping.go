package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

const marketURLPrefix = "https://polymarket.com/event/"

// mapCLOBMarket convierte un clobMarket DTO a domain.RawMarket.
func mapCLOBMarket(r clobMarket, fetchedAt time.Time) domain.RawMarket {
	labels := make([]string, len(r.Tokens))
	prices := make([]float64, len(r.Tokens))
	for i, t := range r.Tokens {
		labels[i] = t.Outcome
		prices[i] = t.Price
	}
	m := buildMarket(r.ConditionID, r.Question, r.MarketSlug, labels, prices, fetchedAt)
	m.Status = status(r.Active, r.Closed)
	return m
}

// mapCLOBMarkets descarta los mercados sin tokens.
func mapCLOBMarkets(raw []clobMarket, fetchedAt time.Time) []domain.RawMarket {
	markets := make([]domain.RawMarket, 0, len(raw))
	for _, r := range raw {
		if r.ConditionID == "" || len(r.Tokens) == 0 {
			continue
		}
		markets = append(markets, mapCLOBMarket(r, fetchedAt))
	}
	return markets
}

// mapGammaMarket decodifica los arrays embebidos en string de Gamma.
func mapGammaMarket(g gammaMarket, fetchedAt time.Time) (domain.RawMarket, error) {
	var labels, rawPrices []string
	if err := json.Unmarshal([]byte(g.Outcomes), &labels); err != nil {
		return domain.RawMarket{}, fmt.Errorf("decode outcomes %q: %w", g.Outcomes, err)
	}
	if err := json.Unmarshal([]byte(g.OutcomePrices), &rawPrices); err != nil {
		return domain.RawMarket{}, fmt.Errorf("decode outcomePrices %q: %w", g.OutcomePrices, err)
	}
	if len(labels) != len(rawPrices) {
		return domain.RawMarket{}, fmt.Errorf("outcomes/prices length mismatch: %d vs %d", len(labels), len(rawPrices))
	}

	prices := make([]float64, len(rawPrices))
	for i, s := range rawPrices {
		p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return domain.RawMarket{}, fmt.Errorf("parse price %q: %w", s, err)
		}
		prices[i] = p
	}

	id := g.ConditionID
	if id == "" {
		id = g.ID
	}
	m := buildMarket(id, g.Question, g.Slug, labels, prices, fetchedAt)
	m.Status = status(g.Active, g.Closed)
	return m, nil
}

// buildMarket arma el RawMarket. Un par Yes/No se marca como binario con la
// probabilidad del Yes, pero conserva ambos outcomes explícitos.
func buildMarket(id, question, slug string, labels []string, prices []float64, fetchedAt time.Time) domain.RawMarket {
	m := domain.RawMarket{
		Venue:     domain.VenuePolymarket,
		ID:        id,
		Question:  question,
		Outcomes:  make([]domain.RawOutcome, len(labels)),
		FetchedAt: fetchedAt,
	}
	if slug != "" {
		m.URL = marketURLPrefix + slug
	}
	for i, l := range labels {
		m.Outcomes[i] = domain.RawOutcome{Label: l, Value: domain.Scalar(prices[i])}
	}
	if len(labels) == 2 && strings.EqualFold(labels[0], "yes") && strings.EqualFold(labels[1], "no") {
		m.Binary = true
		m.Probability = domain.Scalar(prices[0])
	}
	return m
}

func status(active, closed bool) domain.MarketStatus {
	switch {
	case closed:
		return domain.StatusClosed
	case active:
		return domain.StatusOpen
	default:
		return domain.StatusStopped
	}
}
