package polymarket

import (
	"context"
	"errors"
	"net/url"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

const gammaMarketsPath = "/markets"

// GetMarketBySlug resuelve un mercado por su slug en Gamma.
func (c *Client) GetMarketBySlug(ctx context.Context, slug string) (domain.RawMarket, error) {
	params := url.Values{}
	params.Set("slug", slug)
	op := "GET " + gammaMarketsPath + "?slug=" + slug

	var resp gammaMarketsResponse
	if err := c.gamma.Get(ctx, gammaMarketsPath, params, &resp); err != nil {
		return domain.RawMarket{}, err
	}
	if len(resp) == 0 {
		return domain.RawMarket{}, &domain.FetchError{
			Venue: domain.VenuePolymarket,
			Op:    op,
			Err:   errors.New("no market for slug"),
		}
	}

	m, err := mapGammaMarket(resp[0], c.now())
	if err != nil {
		return domain.RawMarket{}, &domain.FetchError{Venue: domain.VenuePolymarket, Op: op, Err: err}
	}
	return m, nil
}
