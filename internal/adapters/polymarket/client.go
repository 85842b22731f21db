package polymarket

import (
	"time"

	"github.com/FilipePhys/prediction-markets/internal/adapters/venuehttp"
	"github.com/FilipePhys/prediction-markets/internal/domain"
	"github.com/FilipePhys/prediction-markets/internal/ports"
)

const (
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Rate limits al 60% de los límites reales documentados.
	// CLOB /markets: 9000/10s general → 540/s; aquí basta con mucho menos.
	clobRatePerSec = 50
	// Gamma /markets: 300/10s → 180/10s → 18/s
	gammaRatePerSec = 18
)

// Client es el cliente de Polymarket: CLOB para precios, Gamma para slugs.
type Client struct {
	clob  *venuehttp.Client
	gamma *venuehttp.Client
	now   func() time.Time
}

var _ ports.VenueClient = (*Client)(nil)

// NewClient crea un Client con los base URLs dados.
// Si clobBase o gammaBase están vacíos, usa los URLs de producción.
func NewClient(clobBase, gammaBase string) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	return &Client{
		clob: venuehttp.New(venuehttp.Config{
			Venue:      domain.VenuePolymarket,
			BaseURL:    clobBase,
			RatePerSec: clobRatePerSec,
			Burst:      10,
		}),
		gamma: venuehttp.New(venuehttp.Config{
			Venue:      domain.VenuePolymarket,
			BaseURL:    gammaBase,
			RatePerSec: gammaRatePerSec,
			Burst:      5,
		}),
		now: time.Now,
	}
}

// Venue implementa ports.VenueClient.
func (c *Client) Venue() domain.Venue { return domain.VenuePolymarket }
