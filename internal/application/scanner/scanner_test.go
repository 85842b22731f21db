package scanner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FilipePhys/prediction-markets/internal/application/scanner"
	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

func newScanner(reg *mockRegistry, venues ...ports.VenueClient) (*scanner.Scanner, *mockNotifier, *mockStorage) {
	n := &mockNotifier{}
	st := &mockStorage{}
	s := scanner.New(scanner.Config{MaxConcurrency: 2, DryRun: true}, venues, reg, nil, st, n, nil)
	return s, n, st
}

func TestRunOnce_ExactScenario(t *testing.T) {
	poly := newMockVenue(domain.VenuePolymarket, scalarMarket("0xa", []string{"Yes", "No"}, []float64{0.4, 0.6}))
	mani := newMockVenue(domain.VenueManifold, scalarMarket("m1", []string{"yes", "no"}, []float64{0.3, 0.7}))
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("p1", domain.VenuePolymarket, "0xa", domain.VenueManifold, "m1", domain.MatchExact),
	}}
	s, _, _ := newScanner(reg, poly, mani)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	require.Len(t, report.Results, 1)
	assert.Empty(t, report.Failures)
	assert.InDelta(t, 0.9, report.Results[0].TotalProbability, 1e-9)

	require.Len(t, report.Signals, 1)
	sig := report.Signals[0]
	assert.True(t, sig.Opportunity)
	assert.InDelta(t, 0.1, sig.Margin, 1e-9)
	require.Len(t, sig.Outcomes, 2)
	assert.Equal(t, domain.VenueManifold, sig.Outcomes[0].Venue)
	assert.InDelta(t, 1.0/3, sig.Outcomes[0].StakeFraction, 1e-9)
	assert.Equal(t, domain.VenuePolymarket, sig.Outcomes[1].Venue)
	assert.InDelta(t, 2.0/3, sig.Outcomes[1].StakeFraction, 1e-9)
}

func TestRunOnce_BinaryExpansion(t *testing.T) {
	mani := newMockVenue(domain.VenueManifold, domain.RawMarket{ID: "b1", Binary: true, Probability: domain.Scalar(0.4)})
	poly := newMockVenue(domain.VenuePolymarket, scalarMarket("0xb", []string{"Yes", "No"}, []float64{0.3, 0.5}))
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("bin", domain.VenueManifold, "b1", domain.VenuePolymarket, "0xb", domain.MatchExact),
	}}
	s, _, _ := newScanner(reg, poly, mani)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.InDelta(t, 0.8, report.Results[0].TotalProbability, 1e-9)
	assert.Len(t, report.Results[0].MatchedPairs, 2)
}

func TestRunOnce_FuzzyWithUnmatchedAndSkipped(t *testing.T) {
	futuur := newMockVenue(domain.VenueFutuur, domain.RawMarket{
		ID: "133793",
		Outcomes: []domain.RawOutcome{
			{Label: "Trump wins", Value: domain.Prices(map[string]float64{"OOM": 0.45, "USDC": 0.44})},
			{Label: "Kamala Harris", Value: domain.Prices(map[string]float64{"OOM": 0.40})},
			{Label: "Other", Value: domain.Prices(map[string]float64{"USDC": 0.05})},
			{Label: "Rfk Jr", Value: domain.Prices(map[string]float64{"OOM": 0.03})},
		},
	})
	mani := newMockVenue(domain.VenueManifold, scalarMarket("Z9", []string{
		"Donald Trump Wins Election", "Kamala Harris",
	}, []float64{0.5, 0.38}))
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("us-2024", domain.VenueFutuur, "133793", domain.VenueManifold, "Z9", domain.MatchFuzzy),
	}}
	s, _, _ := newScanner(reg, futuur, mani)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	r := report.Results[0]

	require.Len(t, r.MatchedPairs, 2)
	assert.Equal(t, "Trump wins", r.MatchedPairs[0].OutcomeLabel)
	assert.Equal(t, "Donald Trump Wins Election", r.MatchedPairs[0].LabelB)
	assert.InDelta(t, 0.45, r.MatchedPairs[0].Cheapest(), 1e-9)

	require.Len(t, r.Unmatched, 1)
	assert.Equal(t, "Rfk Jr", r.Unmatched[0].Label)
	assert.Equal(t, []string{"futuur:Other"}, r.Skipped)

	// .45 + .38 + .03
	assert.InDelta(t, 0.86, r.TotalProbability, 1e-9)
	require.Len(t, report.Signals, 1)
	assert.InDelta(t, 0.03/0.86, report.Signals[0].Uncovered, 1e-9)
	assert.Equal(t, 1, report.Signals[0].Skipped)
}

func TestRunOnce_InvalidPriceOnVenueBChargesOutcomeA(t *testing.T) {
	mani := newMockVenue(domain.VenueManifold, scalarMarket("m1", []string{"Yes", "No"}, []float64{0.4, 0.6}))
	futuur := newMockVenue(domain.VenueFutuur, domain.RawMarket{
		ID: "77",
		Outcomes: []domain.RawOutcome{
			{Label: "yes", Value: domain.Prices(map[string]float64{"OOM": 0.3})},
			{Label: "no", Value: domain.Prices(map[string]float64{"USDC": 0.7})},
		},
	})
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("bad-b", domain.VenueManifold, "m1", domain.VenueFutuur, "77", domain.MatchExact),
	}}
	s, _, _ := newScanner(reg, mani, futuur)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	r := report.Results[0]

	require.Len(t, r.MatchedPairs, 1)
	require.Len(t, r.Unmatched, 1)
	assert.Equal(t, "No", r.Unmatched[0].Label)
	assert.Equal(t, []string{"futuur:no"}, r.Skipped)
	// .3 + .6: "No" sin contraparte válida cuenta entera
	assert.InDelta(t, 0.9, r.TotalProbability, 1e-9)

	require.Len(t, report.Signals, 1)
	assert.InDelta(t, 0.1, report.Signals[0].Margin, 1e-9)
	assert.Equal(t, 1, report.Signals[0].Skipped)
}

func TestRunOnce_InvalidCandidateDoesNotTakeBestMatch(t *testing.T) {
	mani := newMockVenue(domain.VenueManifold, scalarMarket("m1", []string{"Donald Trump", "Kamala Harris"}, []float64{0.5, 0.45}))
	futuur := newMockVenue(domain.VenueFutuur, domain.RawMarket{
		ID: "77",
		Outcomes: []domain.RawOutcome{
			{Label: "Donald Trump", Value: domain.Prices(map[string]float64{"USDC": 0.2})},
			{Label: "Trump", Value: domain.Prices(map[string]float64{"OOM": 0.48})},
			{Label: "Kamala Harris", Value: domain.Prices(map[string]float64{"OOM": 0.44})},
		},
	})
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("fuzzy", domain.VenueManifold, "m1", domain.VenueFutuur, "77", domain.MatchFuzzy),
	}}
	s, _, _ := newScanner(reg, mani, futuur)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	r := report.Results[0]

	require.Len(t, r.MatchedPairs, 2)
	assert.Equal(t, "Trump", r.MatchedPairs[0].LabelB)
	assert.Equal(t, []string{"futuur:Donald Trump"}, r.Skipped)
	// .48 + .44
	assert.InDelta(t, 0.92, r.TotalProbability, 1e-9)
}

func TestRunOnce_FailuresAreContained(t *testing.T) {
	poly := newMockVenue(domain.VenuePolymarket,
		scalarMarket("0xa", []string{"Yes", "No"}, []float64{0.4, 0.6}),
		scalarMarket("0xc", []string{"Up", "Down"}, []float64{0.5, 0.5}),
	)
	poly.errs["0xdead"] = &domain.FetchError{Venue: domain.VenuePolymarket, Op: "GET /markets/0xdead", StatusCode: 503}
	mani := newMockVenue(domain.VenueManifold,
		scalarMarket("m1", []string{"yes", "no"}, []float64{0.3, 0.7}),
		scalarMarket("m3", []string{"Left", "Right"}, []float64{0.5, 0.5}),
	)
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("broken", domain.VenuePolymarket, "0xdead", domain.VenueManifold, "m1", domain.MatchExact),
		pair("good", domain.VenuePolymarket, "0xa", domain.VenueManifold, "m1", domain.MatchExact),
		pair("nomatch", domain.VenuePolymarket, "0xc", domain.VenueManifold, "m3", domain.MatchExact),
		pair("novenue", domain.VenueFutuur, "1", domain.VenueManifold, "m1", domain.MatchExact),
	}}
	s, _, _ := newScanner(reg, poly, mani)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, "good", report.Results[0].MarketPairID)
	require.Len(t, report.Failures, 3)

	byID := map[string]domain.PairFailure{}
	for _, f := range report.Failures {
		byID[f.MarketPairID] = f
	}

	var fe *domain.FetchError
	assert.Equal(t, domain.StageFetch, byID["broken"].Stage)
	assert.True(t, errors.As(byID["broken"].Err, &fe))
	assert.Equal(t, 503, fe.StatusCode)

	var nm *domain.NoMatchError
	assert.Equal(t, domain.StageEvaluate, byID["nomatch"].Stage)
	assert.True(t, errors.As(byID["nomatch"].Err, &nm))

	assert.Equal(t, domain.StageFetch, byID["novenue"].Stage)
	assert.Contains(t, byID["novenue"].Reason(), "no client for venue")
}

func TestRunOnce_NoOpportunityAtExactlyOne(t *testing.T) {
	poly := newMockVenue(domain.VenuePolymarket, scalarMarket("0xa", []string{"Yes", "No"}, []float64{0.5, 0.5}))
	mani := newMockVenue(domain.VenueManifold, scalarMarket("m1", []string{"yes", "no"}, []float64{0.5, 0.5}))
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("flat", domain.VenuePolymarket, "0xa", domain.VenueManifold, "m1", domain.MatchExact),
	}}
	s, _, _ := newScanner(reg, poly, mani)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Empty(t, report.Signals)
}

func TestRunOnce_RegistryErrorFailsCycle(t *testing.T) {
	s, _, _ := newScanner(&mockRegistry{err: errors.New("bad yaml")})
	_, err := s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "bad yaml")
}

func TestRunOnce_SignalsRankedByMargin(t *testing.T) {
	poly := newMockVenue(domain.VenuePolymarket,
		scalarMarket("0xa", []string{"Yes", "No"}, []float64{0.45, 0.5}),
		scalarMarket("0xb", []string{"Yes", "No"}, []float64{0.3, 0.5}),
	)
	mani := newMockVenue(domain.VenueManifold, scalarMarket("m1", []string{"yes", "no"}, []float64{0.5, 0.5}))
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("small", domain.VenuePolymarket, "0xa", domain.VenueManifold, "m1", domain.MatchExact),
		pair("big", domain.VenuePolymarket, "0xb", domain.VenueManifold, "m1", domain.MatchExact),
	}}
	s, _, _ := newScanner(reg, poly, mani)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Signals, 2)
	assert.Equal(t, "big", report.Signals[0].MarketPairID)
	assert.Equal(t, "small", report.Signals[1].MarketPairID)
	// los resultados conservan el orden del registro
	assert.Equal(t, "small", report.Results[0].MarketPairID)
}

func TestRunOnce_BoundedParallelism(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	poly := newMockVenue(domain.VenuePolymarket, scalarMarket("0xa", []string{"Yes", "No"}, []float64{0.4, 0.6}))
	mani := newMockVenue(domain.VenueManifold, scalarMarket("m1", []string{"yes", "no"}, []float64{0.3, 0.7}))
	for _, v := range []*mockVenue{poly, mani} {
		v.delay = 20 * time.Millisecond
		v.inFlight = &inFlight
		v.maxInFlight = &maxInFlight
	}

	var pairs []domain.MarketPair
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		pairs = append(pairs, pair(id, domain.VenuePolymarket, "0xa", domain.VenueManifold, "m1", domain.MatchExact))
	}
	s := scanner.New(scanner.Config{MaxConcurrency: 2}, []ports.VenueClient{poly, mani},
		&mockRegistry{pairs: pairs}, nil, nil, &mockNotifier{}, nil)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Results, 6)
	// 2 pares a la vez × 2 fetch por par
	assert.LessOrEqual(t, maxInFlight.Load(), int32(4))
	assert.Equal(t, int32(6), poly.calls.Load())
}

func TestRunOnce_CacheAvoidsRefetch(t *testing.T) {
	poly := newMockVenue(domain.VenuePolymarket, scalarMarket("0xa", []string{"Yes", "No"}, []float64{0.4, 0.6}))
	mani := newMockVenue(domain.VenueManifold, scalarMarket("m1", []string{"yes", "no"}, []float64{0.3, 0.7}))
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("p1", domain.VenuePolymarket, "0xa", domain.VenueManifold, "m1", domain.MatchExact),
	}}
	s := scanner.New(scanner.Config{}, []ports.VenueClient{poly, mani}, reg, newMapCache(), nil, &mockNotifier{}, nil)

	for i := 0; i < 3; i++ {
		_, err := s.RunOnce(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), poly.calls.Load())
	assert.Equal(t, int32(1), mani.calls.Load())
}

func TestRunOnce_CacheHitsForSlugPairs(t *testing.T) {
	poly := newMockVenue(domain.VenuePolymarket)
	resolved := scalarMarket("0xabc123", []string{"Yes", "No"}, []float64{0.4, 0.6})
	resolved.Venue = domain.VenuePolymarket
	poly.markets["will-it-rain"] = resolved
	mani := newMockVenue(domain.VenueManifold, scalarMarket("m1", []string{"yes", "no"}, []float64{0.3, 0.7}))
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("slug", domain.VenuePolymarket, "will-it-rain", domain.VenueManifold, "m1", domain.MatchExact),
	}}
	s := scanner.New(scanner.Config{}, []ports.VenueClient{poly, mani}, reg, newMapCache(), nil, &mockNotifier{}, nil)

	for i := 0; i < 3; i++ {
		report, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		require.Len(t, report.Results, 1)
	}
	assert.Equal(t, int32(1), poly.calls.Load())
}

func TestRun_DryRunNotifiesAndStores(t *testing.T) {
	poly := newMockVenue(domain.VenuePolymarket, scalarMarket("0xa", []string{"Yes", "No"}, []float64{0.4, 0.6}))
	mani := newMockVenue(domain.VenueManifold, scalarMarket("m1", []string{"yes", "no"}, []float64{0.3, 0.7}))
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("p1", domain.VenuePolymarket, "0xa", domain.VenueManifold, "m1", domain.MatchExact),
	}}
	s, n, st := newScanner(reg, poly, mani)
	st.err = errors.New("disk full") // no debe tumbar el ciclo

	require.NoError(t, s.Run(context.Background()))
	require.Len(t, n.reports, 1)
	require.Len(t, st.saved, 1)
	assert.Equal(t, n.reports[0].ID, st.saved[0].ID)
	assert.Len(t, n.reports[0].Opportunities(), 1)
}

func TestRun_PrunesCacheAfterCycle(t *testing.T) {
	poly := newMockVenue(domain.VenuePolymarket, scalarMarket("0xa", []string{"Yes", "No"}, []float64{0.4, 0.6}))
	mani := newMockVenue(domain.VenueManifold, scalarMarket("m1", []string{"yes", "no"}, []float64{0.3, 0.7}))
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("p1", domain.VenuePolymarket, "0xa", domain.VenueManifold, "m1", domain.MatchExact),
	}}
	c := newMapCache()
	s := scanner.New(scanner.Config{DryRun: true}, []ports.VenueClient{poly, mani}, reg, c, nil, &mockNotifier{}, nil)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, int32(1), c.prunes.Load())
}

func TestRun_DryRunPropagatesCycleError(t *testing.T) {
	s, n, _ := newScanner(&mockRegistry{err: errors.New("missing file")})
	assert.Error(t, s.Run(context.Background()))
	assert.Empty(t, n.reports)
}

func TestRunOnce_ConfiguredFuzzyThreshold(t *testing.T) {
	mani := newMockVenue(domain.VenueManifold, scalarMarket("m1", []string{"Trump wins", "Harris"}, []float64{0.4, 0.4}))
	poly := newMockVenue(domain.VenuePolymarket, scalarMarket("0xa", []string{"Donald Trump Wins Election", "Harris"}, []float64{0.5, 0.5}))
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("strict", domain.VenueManifold, "m1", domain.VenuePolymarket, "0xa", domain.MatchFuzzy),
	}}
	s := scanner.New(scanner.Config{FuzzyThreshold: 0.9}, []ports.VenueClient{poly, mani}, reg, nil, nil, &mockNotifier{}, nil)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	r := report.Results[0]
	require.Len(t, r.MatchedPairs, 1)
	assert.Equal(t, "Harris", r.MatchedPairs[0].OutcomeLabel)
	require.Len(t, r.Unmatched, 1)
	assert.Equal(t, "Trump wins", r.Unmatched[0].Label)
	assert.InDelta(t, 0.8, r.TotalProbability, 1e-9)
}

func TestRunOnce_FilterDropsThinSignals(t *testing.T) {
	poly := newMockVenue(domain.VenuePolymarket,
		scalarMarket("0xa", []string{"Yes", "No"}, []float64{0.45, 0.5}),
		scalarMarket("0xb", []string{"Yes", "No"}, []float64{0.3, 0.5}),
	)
	mani := newMockVenue(domain.VenueManifold, scalarMarket("m1", []string{"yes", "no"}, []float64{0.5, 0.5}))
	reg := &mockRegistry{pairs: []domain.MarketPair{
		pair("small", domain.VenuePolymarket, "0xa", domain.VenueManifold, "m1", domain.MatchExact),
		pair("big", domain.VenuePolymarket, "0xb", domain.VenueManifold, "m1", domain.MatchExact),
	}}
	cfg := scanner.Config{Filter: scanner.FilterConfig{MinMargin: 0.1, ExcludeSkipped: true}}
	s := scanner.New(cfg, []ports.VenueClient{poly, mani}, reg, nil, nil, &mockNotifier{}, nil)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Signals, 1)
	assert.Equal(t, "big", report.Signals[0].MarketPairID)
	require.Len(t, report.Results, 2)
}
