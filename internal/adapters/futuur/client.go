package futuur

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/FilipePhys/prediction-markets/internal/adapters/venuehttp"
	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

const (
	defaultBaseURL      = "https://api.futuur.com/api/v1/"
	defaultCurrencyMode = "play_money"
	defaultOrdering     = "relevance"
	defaultPageSize     = 40

	// Futuur documents no public limit; stay well under one request per second.
	defaultRatePerSec = 0.5
)

// Config configures the Futuur client.
type Config struct {
	BaseURL      string
	PublicKey    string
	PrivateKey   string
	CurrencyMode string // play_money | real_money
	RatePerSec   float64
	// Signer overrides the HMAC signer built from the keys.
	Signer venuehttp.Signer
}

// Client implements ports.VenueClient for Futuur.
type Client struct {
	http         *venuehttp.Client
	currencyMode string
	now          func() time.Time
}

var _ ports.VenueClient = (*Client)(nil)

// NewClient creates a Futuur client. Empty fields use production defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.CurrencyMode == "" {
		cfg.CurrencyMode = defaultCurrencyMode
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.Signer == nil {
		cfg.Signer = NewHMACSigner(cfg.PublicKey, cfg.PrivateKey)
	}
	return &Client{
		http: venuehttp.New(venuehttp.Config{
			Venue:      domain.VenueFutuur,
			BaseURL:    cfg.BaseURL,
			RatePerSec: cfg.RatePerSec,
			Burst:      1,
			Signer:     cfg.Signer,
		}),
		currencyMode: cfg.CurrencyMode,
		now:          time.Now,
	}
}

// Venue implements ports.VenueClient.
func (c *Client) Venue() domain.Venue { return domain.VenueFutuur }

// GetMarket fetches markets/{id}/.
func (c *Client) GetMarket(ctx context.Context, id string) (domain.RawMarket, error) {
	path := "markets/" + url.PathEscape(id) + "/"

	var resp marketResponse
	if err := c.http.Get(ctx, path, nil, &resp); err != nil {
		return domain.RawMarket{}, err
	}
	if resp.ID == 0 {
		return domain.RawMarket{}, &domain.FetchError{
			Venue: domain.VenueFutuur,
			Op:    "GET " + path,
			Err:   errors.New("empty market payload"),
		}
	}
	return mapMarket(resp, c.now()), nil
}

// ListMarkets fetches one page of markets/. The page token is the offset.
func (c *Client) ListMarkets(ctx context.Context, filter domain.MarketFilter) ([]domain.RawMarket, string, error) {
	params, err := c.listParams(filter)
	if err != nil {
		return nil, "", err
	}

	var page marketsPage
	if err := c.http.Get(ctx, "markets/", params, &page); err != nil {
		return nil, "", err
	}

	markets := mapMarkets(page.Results, c.now())
	next := nextOffset(page.Pagination)

	slog.Debug("fetched futuur markets page",
		"offset", params.Get("offset"),
		"count", len(markets),
		"has_more", next != "",
	)
	return markets, next, nil
}

// ListAll walks the pages sequentially until exhausted or maxPages is reached (0 = no cap).
func (c *Client) ListAll(ctx context.Context, filter domain.MarketFilter, maxPages int) ([]domain.RawMarket, error) {
	var all []domain.RawMarket
	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		markets, next, err := c.ListMarkets(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("futuur.ListAll: page %d: %w", page, err)
		}
		all = append(all, markets...)
		if next == "" {
			break
		}
		filter.PageToken = next
	}
	return all, nil
}

// RelatedMarkets fetches markets/{id}/related_markets/. The endpoint answers either
// a bare list or the paginated envelope.
func (c *Client) RelatedMarkets(ctx context.Context, id string) ([]domain.RawMarket, error) {
	path := "markets/" + url.PathEscape(id) + "/related_markets/"

	var raw json.RawMessage
	if err := c.http.Get(ctx, path, nil, &raw); err != nil {
		return nil, err
	}

	var list []marketResponse
	if err := json.Unmarshal(raw, &list); err != nil {
		var page marketsPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, &domain.FetchError{
				Venue:   domain.VenueFutuur,
				Op:      "GET " + path,
				Payload: string(raw),
				Err:     fmt.Errorf("decode related markets: %w", err),
			}
		}
		list = page.Results
	}
	return mapMarkets(list, c.now()), nil
}

// Rates fetches bets/rates/: exchange rates between the OOM play currency and the others.
func (c *Client) Rates(ctx context.Context) (map[string]map[string]float64, error) {
	var rates map[string]map[string]float64
	if err := c.http.Get(ctx, "bets/rates/", nil, &rates); err != nil {
		return nil, err
	}
	return rates, nil
}

func (c *Client) listParams(f domain.MarketFilter) (url.Values, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	offset := 0
	if f.PageToken != "" {
		n, err := strconv.Atoi(f.PageToken)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("futuur.ListMarkets: invalid page token %q", f.PageToken)
		}
		offset = n
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("currency_mode", c.currencyMode)
	params.Set("ordering", defaultOrdering)
	params.Set("hide_my_bets", "true")
	if f.Category != "" {
		params.Set("category", f.Category)
	}
	if f.Tag != "" {
		params.Set("tag", f.Tag)
	}
	if f.Live != nil {
		params.Set("live", strconv.FormatBool(*f.Live))
	}
	if f.ResolvedOnly {
		params.Set("resolved_only", "true")
	}
	return params, nil
}
