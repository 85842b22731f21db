package domain

import "fmt"

// MatchMode selecciona cómo se comparan las etiquetas de outcomes.
type MatchMode string

const (
	MatchExact MatchMode = "exact"
	MatchFuzzy MatchMode = "fuzzy"
)

// MarketPair es una entrada del registro: el mismo evento en dos venues.
type MarketPair struct {
	ID        string    `yaml:"id" toml:"id"`
	VenueA    Venue     `yaml:"venue_a" toml:"venue_a"`
	MarketA   string    `yaml:"market_a" toml:"market_a"`
	VenueB    Venue     `yaml:"venue_b" toml:"venue_b"`
	MarketB   string    `yaml:"market_b" toml:"market_b"`
	Mode      MatchMode `yaml:"mode" toml:"mode"`
	Threshold float64   `yaml:"threshold" toml:"threshold"` // 0 = default del modo
}

// Validate comprueba que el par tenga los campos mínimos.
func (p MarketPair) Validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("market pair: missing id")
	case p.VenueA == "" || p.MarketA == "":
		return fmt.Errorf("market pair %q: missing venue_a/market_a", p.ID)
	case p.VenueB == "" || p.MarketB == "":
		return fmt.Errorf("market pair %q: missing venue_b/market_b", p.ID)
	}
	switch p.Mode {
	case "", MatchExact, MatchFuzzy:
	default:
		return fmt.Errorf("market pair %q: unknown mode %q", p.ID, p.Mode)
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return fmt.Errorf("market pair %q: threshold %v out of [0,1]", p.ID, p.Threshold)
	}
	return nil
}

// Category agrupa mercados de una venue para la búsqueda de pares candidatos.
type Category struct {
	Name     string `yaml:"name" toml:"name"`
	FutuurID string `yaml:"futuur_id" toml:"futuur_id"`
	Tag      string `yaml:"tag" toml:"tag"`
}
