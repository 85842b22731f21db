package matching

import (
	"math"
	"strings"
	"unicode"
)

// TFIDFScorer compara etiquetas por similitud coseno de vectores TF-IDF.
// El corpus es la etiqueta más sus candidatos; idf suavizado ln((1+n)/(1+df))+1
// y vectores normalizados L2. Coincidencia exacta tras normalizar = 1.0.
type TFIDFScorer struct{}

// Score implementa Scorer.
func (TFIDFScorer) Score(label string, candidates []string) []float64 {
	scores := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return scores
	}

	want := NormalizeLabel(label)
	docs := make([][]string, 0, len(candidates)+1)
	docs = append(docs, tokenize(want))
	for _, c := range candidates {
		docs = append(docs, tokenize(NormalizeLabel(c)))
	}

	idf := inverseDocFreq(docs)
	query := weigh(docs[0], idf)

	for i, c := range candidates {
		if NormalizeLabel(c) == want {
			scores[i] = 1
			continue
		}
		scores[i] = cosine(query, weigh(docs[i+1], idf))
	}
	return scores
}

// tokenize parte el texto en palabras (letras y dígitos).
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func inverseDocFreq(docs [][]string) map[string]float64 {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, tok := range doc {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}
	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for tok, d := range df {
		idf[tok] = math.Log((1+n)/(1+float64(d))) + 1
	}
	return idf
}

// weigh construye el vector tf·idf normalizado L2 de un documento.
func weigh(doc []string, idf map[string]float64) map[string]float64 {
	vec := make(map[string]float64, len(doc))
	for _, tok := range doc {
		vec[tok]++
	}
	var norm float64
	for tok, tf := range vec {
		w := tf * idf[tok]
		vec[tok] = w
		norm += w * w
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for tok := range vec {
		vec[tok] /= norm
	}
	return vec
}

func cosine(a, b map[string]float64) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for tok, w := range a {
		dot += w * b[tok]
	}
	// redondeo numérico
	return math.Min(1, math.Max(0, dot))
}
