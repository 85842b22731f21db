package polymarket

// clob.go: mercados y precios del CLOB de Polymarket.
//
// ListMarkets pagina con next_cursor; "LTE=" es el cursor vacío codificado en
// base64 que indica la última página.

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

const (
	clobMarketsPath = "/markets"
	endCursor       = "LTE="
)

// GetMarket devuelve un mercado por condition_id (0x...) o, si no lo parece, por slug vía Gamma.
func (c *Client) GetMarket(ctx context.Context, id string) (domain.RawMarket, error) {
	if !strings.HasPrefix(id, "0x") {
		return c.GetMarketBySlug(ctx, id)
	}

	path := clobMarketsPath + "/" + url.PathEscape(id)
	var resp clobMarket
	if err := c.clob.Get(ctx, path, nil, &resp); err != nil {
		return domain.RawMarket{}, err
	}
	if resp.ConditionID == "" || len(resp.Tokens) == 0 {
		return domain.RawMarket{}, &domain.FetchError{
			Venue: domain.VenuePolymarket,
			Op:    "GET " + path,
			Err:   errors.New("market without tokens"),
		}
	}
	return mapCLOBMarket(resp, c.now()), nil
}

// ListMarkets devuelve una página de GET /markets del CLOB.
func (c *Client) ListMarkets(ctx context.Context, filter domain.MarketFilter) ([]domain.RawMarket, string, error) {
	params := url.Values{}
	if filter.PageToken != "" {
		params.Set("next_cursor", filter.PageToken)
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}

	var resp clobMarketsResponse
	if err := c.clob.Get(ctx, clobMarketsPath, params, &resp); err != nil {
		return nil, "", err
	}

	markets := mapCLOBMarkets(resp.Data, c.now())
	if filter.ResolvedOnly {
		markets = onlyClosed(markets)
	}

	next := resp.NextCursor
	if next == endCursor {
		next = ""
	}

	slog.Debug("fetched polymarket markets page",
		"count", len(resp.Data),
		"kept", len(markets),
		"has_more", next != "",
	)
	return markets, next, nil
}

func onlyClosed(ms []domain.RawMarket) []domain.RawMarket {
	out := ms[:0]
	for _, m := range ms {
		if m.Status == domain.StatusClosed {
			out = append(out, m)
		}
	}
	return out
}
