package ports

import (
	"context"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

// PairRegistry entrega los pares de mercados a evaluar, leídos de configuración estática.
type PairRegistry interface {
	LoadPairs(ctx context.Context) ([]domain.MarketPair, error)

	// Categories devuelve las categorías usadas para descubrir pares nuevos.
	Categories(ctx context.Context) ([]domain.Category, error)
}
