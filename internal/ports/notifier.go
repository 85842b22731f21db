package ports

import (
	"context"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

// Notifier presenta el resultado de un scan al usuario.
type Notifier interface {
	// Notify muestra resultados, señales y fallos por par.
	// En la implementación de consola, imprime tablas formateadas.
	Notify(ctx context.Context, report domain.ScanReport) error
}
