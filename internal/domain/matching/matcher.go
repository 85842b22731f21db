package matching

import (
	"github.com/FilipePhys/prediction-markets/internal/domain"
)

const (
	// DefaultFuzzyThreshold es el score mínimo (exclusivo) para aceptar un match difuso.
	DefaultFuzzyThreshold = 0.1
	// DefaultExactThreshold exige coincidencia exacta de etiquetas.
	DefaultExactThreshold = 1.0
)

// Result es el emparejamiento de un outcome de A. B es nil si no hubo match confiable.
type Result struct {
	A     *domain.RawOutcome
	B     *domain.RawOutcome
	Score float64
}

// Matched devuelve true si el outcome de A tiene contraparte.
func (r Result) Matched() bool { return r.B != nil }

// Matcher alinea outcomes entre dos venues. Es una función pura sobre sus entradas.
type Matcher struct {
	scorer    Scorer
	threshold float64
}

// Option configura un Matcher.
type Option func(*Matcher)

// WithScorer cambia el algoritmo de similitud.
func WithScorer(s Scorer) Option {
	return func(m *Matcher) { m.scorer = s }
}

// WithThreshold cambia el umbral de aceptación.
func WithThreshold(t float64) Option {
	return func(m *Matcher) { m.threshold = t }
}

// New crea un Matcher difuso (TF-IDF, umbral 0.1) salvo que las opciones digan otra cosa.
func New(opts ...Option) *Matcher {
	m := &Matcher{scorer: TFIDFScorer{}, threshold: DefaultFuzzyThreshold}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ForMode crea el Matcher adecuado al modo del par. threshold <= 0 usa el default del modo.
func ForMode(mode domain.MatchMode, threshold float64) *Matcher {
	if mode == domain.MatchExact {
		if threshold <= 0 {
			threshold = DefaultExactThreshold
		}
		return New(WithScorer(ExactScorer{}), WithThreshold(threshold))
	}
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return New(WithThreshold(threshold))
}

// Threshold devuelve el umbral configurado.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Match devuelve un Result por cada outcome de a, en orden.
// Para cada uno elige el mejor candidato de b; en empate gana el primero.
func (m *Matcher) Match(a, b []domain.RawOutcome) []Result {
	labels := make([]string, len(b))
	for i, o := range b {
		labels[i] = o.Label
	}

	results := make([]Result, 0, len(a))
	for i := range a {
		res := Result{A: &a[i]}
		if len(b) > 0 {
			best, score := argmax(m.scorer.Score(a[i].Label, labels))
			res.Score = score
			if m.accepts(score) {
				res.B = &b[best]
			}
		}
		results = append(results, res)
	}
	return results
}

// accepts aplica el umbral: estrictamente mayor, salvo en modo exacto donde 1.0 basta.
func (m *Matcher) accepts(score float64) bool {
	if m.threshold >= 1 {
		return score >= 1
	}
	return score > m.threshold
}

// argmax devuelve el índice del primer máximo.
func argmax(scores []float64) (int, float64) {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best, scores[best]
}

// ExpandBinary convierte la probabilidad p de un mercado binario en dos outcomes sintéticos.
func ExpandBinary(p float64) []domain.RawOutcome {
	return []domain.RawOutcome{
		{Label: "yes", Value: domain.Scalar(p)},
		{Label: "no", Value: domain.Scalar(1 - p)},
	}
}
