package scanner

import (
	"github.com/FilipePhys/prediction-markets/internal/domain"
)

// FilterConfig contiene los parámetros configurables de filtrado de señales.
// Los valores cero no filtran.
type FilterConfig struct {
	// MinMargin descarta señales cuyo margen no cubre costes (comisiones, spread).
	MinMargin float64
	// MaxUncovered descarta señales con demasiada masa en outcomes sin contraparte.
	MaxUncovered float64
	// ExcludeSkipped descarta señales de pares con outcomes descartados por datos inválidos.
	ExcludeSkipped bool
}

// Filter aplica los filtros configurados sobre una lista de señales.
type Filter struct {
	cfg FilterConfig
}

// NewFilter crea un Filter con la configuración dada.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Apply devuelve las señales que pasan todos los filtros.
// Los resultados de cada par no se tocan: el total sigue en el reporte.
func (f *Filter) Apply(signals []domain.ArbitrageSignal) []domain.ArbitrageSignal {
	result := make([]domain.ArbitrageSignal, 0, len(signals))
	for _, sig := range signals {
		if f.passes(sig) {
			result = append(result, sig)
		}
	}
	return result
}

// passes devuelve true si la señal supera todos los criterios.
func (f *Filter) passes(sig domain.ArbitrageSignal) bool {
	if !sig.Opportunity {
		return false
	}
	if f.cfg.MinMargin > 0 && sig.Margin < f.cfg.MinMargin {
		return false
	}
	if f.cfg.MaxUncovered > 0 && sig.Uncovered > f.cfg.MaxUncovered {
		return false
	}
	if f.cfg.ExcludeSkipped && sig.Skipped > 0 {
		return false
	}
	return true
}
