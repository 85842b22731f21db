package manifold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonnyspicer/mango"
	"golang.org/x/time/rate"

	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

const (
	defaultPageSize = 100
	// search-markets caps limit at 1000, which also bounds how deep we can page.
	maxSearchLimit = 1000
	// Manifold allows 500 requests/min per IP; keep to roughly half.
	defaultRatePerSec = 4
)

// API is the subset of *mango.Client the adapter needs.
type API interface {
	GetMarketByID(id string) (*mango.FullMarket, error)
	SearchMarkets(req mango.SearchMarketsRequest) (*[]mango.FullMarket, error)
}

var _ API = (*mango.Client)(nil)

// Client implements ports.VenueClient for Manifold on top of mango.
type Client struct {
	api      API
	limiter  *rate.Limiter
	pageSize int
	now      func() time.Time
}

var _ ports.VenueClient = (*Client)(nil)

// NewClient wraps api. pageSize <= 0 uses 100.
func NewClient(api API, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		api:      api,
		limiter:  rate.NewLimiter(defaultRatePerSec, 2),
		pageSize: pageSize,
		now:      time.Now,
	}
}

// NewDefaultClient uses mango's default client instance.
func NewDefaultClient(pageSize int) *Client {
	return NewClient(mango.DefaultClientInstance(), pageSize)
}

// Venue implements ports.VenueClient.
func (c *Client) Venue() domain.Venue { return domain.VenueManifold }

// GetMarket fetches a market with its answers.
func (c *Client) GetMarket(ctx context.Context, id string) (domain.RawMarket, error) {
	op := "GetMarketByID " + id
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.RawMarket{}, fetchError(op, err)
	}

	m, err := c.api.GetMarketByID(id)
	if err != nil {
		return domain.RawMarket{}, fetchError(op, err)
	}
	if m == nil || m.Id == "" {
		return domain.RawMarket{}, fetchError(op, errors.New("empty market payload"))
	}
	return mapMarket(*m, c.now()), nil
}

// ListMarkets pages through search-markets. The client exposes no cursor, so
// the page token is an offset and each page widens the limit.
func (c *Client) ListMarkets(ctx context.Context, filter domain.MarketFilter) ([]domain.RawMarket, string, error) {
	size := filter.Limit
	if size <= 0 {
		size = c.pageSize
	}
	offset := 0
	if filter.PageToken != "" {
		n, err := strconv.Atoi(filter.PageToken)
		if err != nil || n < 0 {
			return nil, "", fmt.Errorf("manifold.ListMarkets: invalid page token %q", filter.PageToken)
		}
		offset = n
	}
	want := min(offset+size, maxSearchLimit)
	if offset >= want {
		return nil, "", nil
	}

	req := mango.SearchMarketsRequest{
		Filter: "open",
		Sort:   "liquidity",
		Limit:  int64(want),
	}
	if filter.ResolvedOnly {
		req.Filter = "resolved"
	}
	switch filter.Tag {
	case "BINARY":
		req.ContractType = "BINARY"
	case "MULTIPLE_CHOICE":
		req.ContractType = "MULTIPLE_CHOICE"
	}

	op := "SearchMarkets"
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fetchError(op, err)
	}
	res, err := c.api.SearchMarkets(req)
	if err != nil {
		return nil, "", fetchError(op, err)
	}
	if res == nil {
		return nil, "", nil
	}

	all := *res
	if offset > len(all) {
		offset = len(all)
	}
	now := c.now()
	page := make([]domain.RawMarket, 0, len(all)-offset)
	for _, m := range all[offset:] {
		page = append(page, mapMarket(m, now))
	}

	next := ""
	if len(all) >= want && want < maxSearchLimit {
		next = strconv.Itoa(want)
	}

	slog.Debug("fetched manifold markets page",
		"offset", offset,
		"count", len(page),
		"has_more", next != "",
	)
	return page, next, nil
}

func fetchError(op string, err error) error {
	return &domain.FetchError{Venue: domain.VenueManifold, Op: op, Err: err}
}
