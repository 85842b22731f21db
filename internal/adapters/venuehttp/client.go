// Package venuehttp is the HTTP plumbing shared by the venue adapters:
// rate limiting, retries, request signing and FetchError reporting.
package venuehttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	baseRetryWait  = 500 * time.Millisecond
	maxPayload     = 8 << 20
)

// Signer adds authentication to an outgoing request.
// params are the query parameters that will be sent.
type Signer interface {
	Sign(h http.Header, params url.Values) error
}

// Unsigned is the Signer for public endpoints.
type Unsigned struct{}

// Sign implements Signer.
func (Unsigned) Sign(http.Header, url.Values) error { return nil }

// Config configures a Client.
type Config struct {
	Venue   domain.Venue
	BaseURL string
	// RatePerSec is the sustained request rate; Burst the bucket size.
	RatePerSec float64
	Burst      int
	Timeout    time.Duration
	Signer     Signer
}

// Client is a rate-limited JSON GET client for one venue base URL.
type Client struct {
	http    *http.Client
	venue   domain.Venue
	base    string
	limiter *rate.Limiter
	signer  Signer
}

// New creates a Client. Zero values fall back to one request per second and no signing.
func New(cfg Config) *Client {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Signer == nil {
		cfg.Signer = Unsigned{}
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		venue:   cfg.Venue,
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		signer:  cfg.Signer,
	}
}

// BaseURL returns the configured base URL without trailing slash.
func (c *Client) BaseURL() string { return c.base }

// Get performs a signed GET of base+path with the given query and decodes the JSON body into out.
// Every failure is returned as *domain.FetchError.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	op := "GET " + path
	target := c.base + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	return c.doWithRetry(ctx, op, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if err := c.signer.Sign(req.Header, params); err != nil {
			return nil, permanentError{fmt.Errorf("sign request: %w", err)}
		}
		return c.http.Do(req)
	}, out)
}

// doWithRetry runs fn with exponential backoff on 429 and 5xx.
func (c *Client) doWithRetry(ctx context.Context, op string, fn func() (*http.Response, error), out any) error {
	fail := func(status int, payload string, err error) error {
		return &domain.FetchError{Venue: c.venue, Op: op, StatusCode: status, Payload: payload, Err: err}
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(0, "", fmt.Errorf("rate limiter: %w", err))
		}

		resp, err := fn()
		if err != nil {
			var perm permanentError
			if errors.As(err, &perm) {
				return fail(0, "", perm.err)
			}
			if attempt == maxRetries || ctx.Err() != nil {
				return fail(0, "", fmt.Errorf("request failed after %d attempts: %w", attempt+1, err))
			}
			c.sleep(ctx, attempt)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			if attempt == maxRetries {
				return fail(resp.StatusCode, string(body), fmt.Errorf("exhausted %d retries", maxRetries))
			}
			slog.Warn("venue request retry",
				"venue", c.venue,
				"op", op,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
			c.sleep(ctx, attempt)
			continue
		case resp.StatusCode >= 400:
			return fail(resp.StatusCode, string(body), errors.New("client error"))
		}

		if readErr != nil {
			return fail(resp.StatusCode, "", fmt.Errorf("read body: %w", readErr))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fail(resp.StatusCode, string(body), fmt.Errorf("decode response: %w", err))
		}
		return nil
	}
	return fail(0, "", fmt.Errorf("exhausted %d retries", maxRetries))
}

// permanentError marks failures that retrying cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }

// sleep waits with exponential backoff, honoring the context.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
