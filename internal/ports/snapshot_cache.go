package ports

import (
	"context"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

// SnapshotCache guarda el último fetch de cada mercado.
type SnapshotCache interface {
	// Get devuelve domain.ErrNotFound si no hay entrada vigente.
	Get(ctx context.Context, venue domain.Venue, id string) (domain.RawMarket, error)
	// Set guarda market bajo el id pedido a la venue, que puede no ser market.ID
	// (p. ej. un slug de Polymarket resuelto a condition id).
	Set(ctx context.Context, venue domain.Venue, id string, market domain.RawMarket) error
}
