package domain

import "time"

// MatchedPair es una correspondencia confirmada entre un outcome de A y uno de B.
// Ambas probabilidades están en [0,1]; OutcomeLabel es la etiqueta de la venue A.
type MatchedPair struct {
	MarketPairID string
	OutcomeLabel string
	LabelB       string
	ProbabilityA float64
	ProbabilityB float64
	Score        float64
}

// Cheapest devuelve la menor de las dos probabilidades.
func (m MatchedPair) Cheapest() float64 {
	return min(m.ProbabilityA, m.ProbabilityB)
}

// UnmatchedOutcome es un outcome de A sin contraparte confiable en B.
type UnmatchedOutcome struct {
	Label        string
	ProbabilityA float64
}

// MarketPairResult es el resultado de evaluar un par.
// TotalProbability = Σ min(a,b) de los emparejados + UnmatchedMass.
type MarketPairResult struct {
	MarketPairID     string
	MatchedPairs     []MatchedPair
	Unmatched        []UnmatchedOutcome
	UnmatchedMass    float64
	TotalProbability float64
	Skipped          []string // outcomes descartados por datos inválidos
}

// StakeLeg es una pata de la cartera de cobertura.
type StakeLeg struct {
	Label         string
	Venue         Venue
	StakeFraction float64
	Probability   float64 // probabilidad cotizada en la venue elegida
}

// ArbitrageSignal se produce solo cuando TotalProbability < 1.
type ArbitrageSignal struct {
	MarketPairID string
	Opportunity  bool
	Margin       float64 // 1 - TotalProbability
	Uncovered    float64 // fracción atribuida a outcomes no emparejados
	Skipped      int     // outcomes descartados por datos inválidos; >0 baja la confianza
	Outcomes     []StakeLeg
}

// FailureStage indica en qué fase falló un par.
type FailureStage string

const (
	StageFetch    FailureStage = "fetch"
	StageMatch    FailureStage = "match"
	StageEvaluate FailureStage = "evaluate"
)

// PairFailure es un fallo contenido a un par concreto.
type PairFailure struct {
	MarketPairID string
	Stage        FailureStage
	Err          error
}

// Reason devuelve el mensaje del error, o "" si no hay.
func (f PairFailure) Reason() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// ScanReport es el resultado visible de un scan completo.
type ScanReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []MarketPairResult
	Signals    []ArbitrageSignal
	Failures   []PairFailure
}

// Duration devuelve cuánto tardó el scan.
func (r ScanReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Opportunities devuelve solo las señales con oportunidad.
func (r ScanReport) Opportunities() []ArbitrageSignal {
	var out []ArbitrageSignal
	for _, s := range r.Signals {
		if s.Opportunity {
			out = append(out, s)
		}
	}
	return out
}

// PairRecord es el histórico persistido de un par.
type PairRecord struct {
	MarketPairID     string
	TotalProbability float64
	Margin           float64
	Opportunity      bool
	Matched          int
	Unmatched        int
	PeakMargin       float64
	FirstSeen        time.Time
	LastSeen         time.Time
}

// Candidate es una sugerencia de par entre dos venues basada en la similitud de preguntas.
type Candidate struct {
	VenueA    Venue
	MarketA   string
	QuestionA string
	VenueB    Venue
	MarketB   string
	QuestionB string
	Score     float64
}
