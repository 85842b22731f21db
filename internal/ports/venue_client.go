package ports

import (
	"context"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

// VenueClient obtiene mercados de una venue concreta (Futuur, Manifold, Polymarket).
// Las instancias son de larga vida y se comparten entre pares; no guardan estado
// relevante para la evaluación.
type VenueClient interface {
	// Venue identifica la plataforma.
	Venue() domain.Venue

	// GetMarket devuelve el snapshot de un mercado por su identificador.
	// Ante un fallo de transporte o decodificación devuelve *domain.FetchError,
	// nunca un mercado a medio rellenar.
	GetMarket(ctx context.Context, id string) (domain.RawMarket, error)

	// ListMarkets devuelve una página de mercados y el token de la siguiente.
	// Un token vacío indica que no hay más páginas.
	ListMarkets(ctx context.Context, filter domain.MarketFilter) ([]domain.RawMarket, string, error)
}
