package manifold_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jonnyspicer/mango"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FilipePhys/prediction-markets/internal/adapters/manifold"
	"github.com/FilipePhys/prediction-markets/internal/domain"
)

type fakeAPI struct {
	markets  map[string]*mango.FullMarket
	search   []mango.FullMarket
	err      error
	requests []mango.SearchMarketsRequest
}

func (f *fakeAPI) GetMarketByID(id string) (*mango.FullMarket, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.markets[id], nil
}

func (f *fakeAPI) SearchMarkets(req mango.SearchMarketsRequest) (*[]mango.FullMarket, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	n := min(int(req.Limit), len(f.search))
	out := append([]mango.FullMarket(nil), f.search[:n]...)
	return &out, nil
}

func searchResults(n int) []mango.FullMarket {
	out := make([]mango.FullMarket, n)
	for i := range out {
		out[i] = mango.FullMarket{
			Id:          fmt.Sprintf("m%d", i),
			Question:    fmt.Sprintf("Question %d?", i),
			OutcomeType: mango.Binary,
			Probability: 0.5,
		}
	}
	return out
}

func TestGetMarket_MultipleChoice(t *testing.T) {
	api := &fakeAPI{markets: map[string]*mango.FullMarket{
		"Z9uy9T4q4rAfq4sGzPA0": {
			Id:       "Z9uy9T4q4rAfq4sGzPA0",
			Question: "Who will win the 2024 US Presidential Election?",
			Url:      "https://manifold.markets/x/who-will-win",
			Answers: []mango.Answer{
				{Id: "a1", Text: "Donald Trump", Probability: 0.47},
				{Id: "a2", Text: "Kamala Harris", Probability: 0.41},
			},
		},
	}}

	m, err := manifold.NewClient(api, 0).GetMarket(context.Background(), "Z9uy9T4q4rAfq4sGzPA0")
	require.NoError(t, err)

	assert.Equal(t, domain.VenueManifold, m.Venue)
	assert.False(t, m.Binary)
	require.Len(t, m.Outcomes, 2)
	assert.Equal(t, "Donald Trump", m.Outcomes[0].Label)
	p, ok := m.Outcomes[0].Value.ScalarValue()
	require.True(t, ok)
	assert.InDelta(t, 0.47, p, 1e-12)
	assert.Equal(t, domain.StatusOpen, m.Status)
}

func TestGetMarket_Binary(t *testing.T) {
	api := &fakeAPI{markets: map[string]*mango.FullMarket{
		"b1": {Id: "b1", Question: "Will it rain?", OutcomeType: mango.Binary, Probability: 0.3, IsResolved: true},
	}}

	m, err := manifold.NewClient(api, 0).GetMarket(context.Background(), "b1")
	require.NoError(t, err)
	assert.True(t, m.Binary)
	assert.Empty(t, m.Outcomes)
	p, ok := m.Probability.ScalarValue()
	require.True(t, ok)
	assert.InDelta(t, 0.3, p, 1e-12)
	assert.Equal(t, domain.StatusClosed, m.Status)
}

func TestGetMarket_ErrorsAreFetchErrors(t *testing.T) {
	client := manifold.NewClient(&fakeAPI{err: errors.New("status 404")}, 0)
	_, err := client.GetMarket(context.Background(), "missing")
	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, domain.VenueManifold, fe.Venue)

	client = manifold.NewClient(&fakeAPI{markets: map[string]*mango.FullMarket{}}, 0)
	_, err = client.GetMarket(context.Background(), "missing")
	assert.True(t, errors.As(err, &fe))
}

func TestListMarkets_OffsetPaging(t *testing.T) {
	api := &fakeAPI{search: searchResults(5)}
	client := manifold.NewClient(api, 2)

	page, next, err := client.ListMarkets(context.Background(), domain.MarketFilter{})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m0", page[0].ID)
	assert.Equal(t, "2", next)

	page, next, err = client.ListMarkets(context.Background(), domain.MarketFilter{PageToken: next})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m2", page[0].ID)
	assert.Equal(t, "4", next)

	page, next, err = client.ListMarkets(context.Background(), domain.MarketFilter{PageToken: next})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "m4", page[0].ID)
	assert.Empty(t, next)

	require.Len(t, api.requests, 3)
	assert.Equal(t, int64(6), api.requests[2].Limit)
}

func TestListMarkets_SearchError(t *testing.T) {
	client := manifold.NewClient(&fakeAPI{err: errors.New("boom")}, 0)
	_, _, err := client.ListMarkets(context.Background(), domain.MarketFilter{})
	var fe *domain.FetchError
	assert.True(t, errors.As(err, &fe))
}
