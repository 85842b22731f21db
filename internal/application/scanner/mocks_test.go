package scanner_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

// --- VenueClient ---

type mockVenue struct {
	venue   domain.Venue
	markets map[string]domain.RawMarket
	errs    map[string]error
	listing []domain.RawMarket
	delay   time.Duration

	calls       atomic.Int32
	inFlight    *atomic.Int32 // compartido entre venues para medir paralelismo global
	maxInFlight *atomic.Int32
}

func newMockVenue(v domain.Venue, markets ...domain.RawMarket) *mockVenue {
	m := &mockVenue{venue: v, markets: make(map[string]domain.RawMarket), errs: make(map[string]error)}
	for _, mk := range markets {
		mk.Venue = v
		m.markets[mk.ID] = mk
	}
	return m
}

func (m *mockVenue) Venue() domain.Venue { return m.venue }

func (m *mockVenue) GetMarket(ctx context.Context, id string) (domain.RawMarket, error) {
	m.calls.Add(1)
	if m.inFlight != nil {
		n := m.inFlight.Add(1)
		defer m.inFlight.Add(-1)
		for {
			cur := m.maxInFlight.Load()
			if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.RawMarket{}, ctx.Err()
		}
	}
	if err, ok := m.errs[id]; ok {
		return domain.RawMarket{}, err
	}
	mk, ok := m.markets[id]
	if !ok {
		return domain.RawMarket{}, &domain.FetchError{Venue: m.venue, Op: "GET " + id, StatusCode: 404, Err: errors.New("client error")}
	}
	return mk, nil
}

// ListMarkets pagina listing de a dos.
func (m *mockVenue) ListMarkets(_ context.Context, f domain.MarketFilter) ([]domain.RawMarket, string, error) {
	start := 0
	if f.PageToken != "" {
		fmt.Sscanf(f.PageToken, "%d", &start)
	}
	end := min(start+2, len(m.listing))
	next := ""
	if end < len(m.listing) {
		next = fmt.Sprintf("%d", end)
	}
	out := make([]domain.RawMarket, 0, end-start)
	for _, mk := range m.listing[start:end] {
		mk.Venue = m.venue
		out = append(out, mk)
	}
	return out, next, nil
}

// --- PairRegistry ---

type mockRegistry struct {
	pairs      []domain.MarketPair
	categories []domain.Category
	err        error
}

func (r *mockRegistry) LoadPairs(context.Context) ([]domain.MarketPair, error) {
	return r.pairs, r.err
}

func (r *mockRegistry) Categories(context.Context) ([]domain.Category, error) {
	return r.categories, r.err
}

// --- Notifier ---

type mockNotifier struct {
	mu      sync.Mutex
	reports []domain.ScanReport
	err     error
}

func (n *mockNotifier) Notify(_ context.Context, r domain.ScanReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, r)
	return n.err
}

// --- Storage ---

type mockStorage struct {
	mu    sync.Mutex
	saved []domain.ScanReport
	err   error
}

func (s *mockStorage) SaveScan(_ context.Context, r domain.ScanReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, r)
	return s.err
}

func (s *mockStorage) GetHistory(context.Context, time.Time, time.Time) ([]domain.PairRecord, error) {
	return nil, nil
}

func (s *mockStorage) Close() error { return nil }

// --- SnapshotCache ---

type mapCache struct {
	mu     sync.Mutex
	m      map[string]domain.RawMarket
	prunes atomic.Int32
}

func newMapCache() *mapCache { return &mapCache{m: make(map[string]domain.RawMarket)} }

func (c *mapCache) Get(_ context.Context, v domain.Venue, id string) (domain.RawMarket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mk, ok := c.m[domain.MarketKey(v, id)]
	if !ok {
		return domain.RawMarket{}, domain.ErrNotFound
	}
	return mk, nil
}

func (c *mapCache) Set(_ context.Context, v domain.Venue, id string, mk domain.RawMarket) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[domain.MarketKey(v, id)] = mk
	return nil
}

func (c *mapCache) Prune() int {
	c.prunes.Add(1)
	return 0
}

// --- builders ---

func scalarMarket(id string, labels []string, probs []float64) domain.RawMarket {
	m := domain.RawMarket{ID: id, Question: "Question " + id}
	for i, l := range labels {
		m.Outcomes = append(m.Outcomes, domain.RawOutcome{Label: l, Value: domain.Scalar(probs[i])})
	}
	return m
}

func pair(id string, a domain.Venue, ma string, b domain.Venue, mb string, mode domain.MatchMode) domain.MarketPair {
	return domain.MarketPair{ID: id, VenueA: a, MarketA: ma, VenueB: b, MarketB: mb, Mode: mode}
}
