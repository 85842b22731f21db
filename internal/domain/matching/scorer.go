package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Scorer puntúa una etiqueta contra cada candidato. Devuelve un score en [0,1]
// por candidato, en el mismo orden.
type Scorer interface {
	Score(label string, candidates []string) []float64
}

// NormalizeLabel deja una etiqueta lista para comparar: sin acentos,
// case-folded y con los espacios colapsados.
func NormalizeLabel(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(out)), " ")
}

// ExactScorer da 1.0 solo si las etiquetas coinciden tras normalizar.
type ExactScorer struct{}

// Score implementa Scorer.
func (ExactScorer) Score(label string, candidates []string) []float64 {
	scores := make([]float64, len(candidates))
	want := NormalizeLabel(label)
	for i, c := range candidates {
		if NormalizeLabel(c) == want {
			scores[i] = 1
		}
	}
	return scores
}

var (
	_ Scorer = ExactScorer{}
	_ Scorer = TFIDFScorer{}
)
