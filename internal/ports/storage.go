package ports

import (
	"context"
	"time"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

// Storage persiste los resultados de cada scan.
type Storage interface {
	// SaveScan persiste el resumen del scan y el estado de cada par.
	SaveScan(ctx context.Context, report domain.ScanReport) error

	// GetHistory devuelve los pares vistos en el rango de tiempo dado.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.PairRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
