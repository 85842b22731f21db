package pricing

import (
	"math"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

// Epsilon es la tolerancia numérica antes de rechazar una probabilidad.
const Epsilon = 1e-9

// DefaultFutuurCurrency es la moneda cuyo precio aproxima la probabilidad en Futuur.
const DefaultFutuurCurrency = "OOM"

// Normalizer convierte el valor crudo de una venue en una probabilidad en [0,1].
type Normalizer struct {
	referenceCurrency string
}

// NewNormalizer crea un Normalizer con la moneda de referencia dada ("" = solo escalares).
func NewNormalizer(referenceCurrency string) Normalizer {
	return Normalizer{referenceCurrency: referenceCurrency}
}

// ReferenceCurrency devuelve la moneda de referencia configurada.
func (n Normalizer) ReferenceCurrency() string { return n.referenceCurrency }

// Normalize devuelve la probabilidad normalizada.
// Escalares fuera de [-ε, 1+ε] → *domain.OutOfRangeError.
// Mapas sin la moneda de referencia → *domain.MissingReferenceCurrencyError.
func (n Normalizer) Normalize(v domain.RawValue) (float64, error) {
	if p, ok := v.ScalarValue(); ok {
		return clamp(p)
	}
	p, ok := v.Price(n.referenceCurrency)
	if !ok || n.referenceCurrency == "" {
		return 0, &domain.MissingReferenceCurrencyError{
			Currency:  n.referenceCurrency,
			Available: v.Currencies(),
		}
	}
	return clamp(p)
}

func clamp(p float64) (float64, error) {
	if math.IsNaN(p) || p < -Epsilon || p > 1+Epsilon {
		return 0, &domain.OutOfRangeError{Value: p}
	}
	return math.Min(1, math.Max(0, p)), nil
}

// Table asigna un Normalizer a cada venue.
type Table map[domain.Venue]Normalizer

// DefaultTable usa OOM para Futuur y escalares para el resto.
func DefaultTable() Table {
	return Table{
		domain.VenueFutuur:     NewNormalizer(DefaultFutuurCurrency),
		domain.VenueManifold:   NewNormalizer(""),
		domain.VenuePolymarket: NewNormalizer(""),
	}
}

// ForVenue devuelve el Normalizer de la venue; si no está registrada solo acepta escalares.
func (t Table) ForVenue(v domain.Venue) Normalizer {
	if n, ok := t[v]; ok {
		return n
	}
	return Normalizer{}
}
