package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Venue identifica una plataforma de mercados de predicción.
type Venue string

const (
	VenueFutuur     Venue = "futuur"
	VenueManifold   Venue = "manifold"
	VenuePolymarket Venue = "polymarket"
)

// MarketStatus es el estado de un mercado tal como lo reporta la venue.
type MarketStatus string

const (
	StatusOpen      MarketStatus = "open"
	StatusStopped   MarketStatus = "stopped"
	StatusClosed    MarketStatus = "closed" // resuelto
	StatusCancelled MarketStatus = "cancelled"
	StatusReversed  MarketStatus = "reversed" // el resultado cambió tras resolverse
	StatusUnknown   MarketStatus = ""
)

// RawValue es el precio o probabilidad de un outcome tal como lo publica la venue:
// o un escalar (probabilidad) o un mapa moneda → precio.
// No se modifica después de construirse.
type RawValue struct {
	scalar    float64
	hasScalar bool
	prices    map[string]float64
}

// Scalar construye un RawValue escalar.
func Scalar(p float64) RawValue {
	return RawValue{scalar: p, hasScalar: true}
}

// Prices construye un RawValue indexado por moneda. Copia el mapa.
func Prices(m map[string]float64) RawValue {
	cp := make(map[string]float64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return RawValue{prices: cp}
}

// IsScalar devuelve true si el valor es una probabilidad escalar.
func (v RawValue) IsScalar() bool { return v.hasScalar }

// IsZero devuelve true si el valor no fue inicializado.
func (v RawValue) IsZero() bool { return !v.hasScalar && v.prices == nil }

// ScalarValue devuelve el escalar y si existe.
func (v RawValue) ScalarValue() (float64, bool) { return v.scalar, v.hasScalar }

// Price devuelve el precio para la moneda dada.
func (v RawValue) Price(currency string) (float64, bool) {
	p, ok := v.prices[currency]
	return p, ok
}

// Currencies devuelve las monedas disponibles, ordenadas.
func (v RawValue) Currencies() []string {
	out := make([]string, 0, len(v.prices))
	for k := range v.prices {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON serializa el escalar como número y el mapa como objeto.
func (v RawValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.hasScalar:
		return json.Marshal(v.scalar)
	case v.prices != nil:
		return json.Marshal(v.prices)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON acepta un número, un objeto moneda → precio o null.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = RawValue{}
		return nil
	}
	if data[0] == '{' {
		var m map[string]float64
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("domain.RawValue: %w", err)
		}
		*v = Prices(m)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("domain.RawValue: %w", err)
	}
	*v = Scalar(f)
	return nil
}

// RawOutcome es un resultado posible de un mercado con su valor sin normalizar.
type RawOutcome struct {
	Label string   `json:"label"`
	Value RawValue `json:"value"`
}

// RawMarket es el snapshot inmutable de un mercado obtenido de una venue.
// Los mercados binarios pueden traer solo Probability; el matcher los expande a yes/no.
type RawMarket struct {
	Venue       Venue        `json:"venue"`
	ID          string       `json:"id"`
	Question    string       `json:"question"`
	Outcomes    []RawOutcome `json:"outcomes"`
	Binary      bool         `json:"binary"`
	Probability RawValue     `json:"probability"` // solo para mercados binarios sin outcomes explícitos
	Status      MarketStatus `json:"status"`
	URL         string       `json:"url,omitempty"`
	FetchedAt   time.Time    `json:"fetched_at"`
}

// Key identifica el mercado de forma única entre venues.
func (m RawMarket) Key() string {
	return MarketKey(m.Venue, m.ID)
}

// MarketKey construye la clave "venue:id".
func MarketKey(v Venue, id string) string {
	return string(v) + ":" + id
}

// MarketFilter acota un listado de mercados. Los campos vacíos no filtran.
type MarketFilter struct {
	Category     string
	Tag          string
	Live         *bool
	ResolvedOnly bool
	Limit        int
	PageToken    string // token devuelto por la página anterior; "" = primera página
}
