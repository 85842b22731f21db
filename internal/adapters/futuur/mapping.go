package futuur

import (
	"net/url"
	"strconv"
	"time"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

const marketURLPrefix = "https://futuur.com/q/"

func mapMarket(m marketResponse, fetchedAt time.Time) domain.RawMarket {
	outcomes := make([]domain.RawOutcome, 0, len(m.Outcomes))
	for _, o := range m.Outcomes {
		outcomes = append(outcomes, domain.RawOutcome{
			Label: o.Title,
			Value: domain.Prices(o.Price),
		})
	}

	id := strconv.FormatInt(m.ID, 10)
	var link string
	if m.Slug != "" {
		link = marketURLPrefix + id + "/" + m.Slug
	}

	return domain.RawMarket{
		Venue:     domain.VenueFutuur,
		ID:        id,
		Question:  m.Title,
		Outcomes:  outcomes,
		Status:    mapStatus(m.Status),
		URL:       link,
		FetchedAt: fetchedAt,
	}
}

func mapMarkets(ms []marketResponse, fetchedAt time.Time) []domain.RawMarket {
	out := make([]domain.RawMarket, 0, len(ms))
	for _, m := range ms {
		if m.ID == 0 {
			continue
		}
		out = append(out, mapMarket(m, fetchedAt))
	}
	return out
}

// mapStatus translates Futuur's one-letter status codes.
func mapStatus(s string) domain.MarketStatus {
	switch s {
	case "o":
		return domain.StatusOpen
	case "s":
		return domain.StatusStopped
	case "c":
		return domain.StatusClosed
	case "x":
		return domain.StatusCancelled
	case "r":
		return domain.StatusReversed
	default:
		return domain.StatusUnknown
	}
}

// nextOffset extracts the offset query param of pagination.next. "" when there is no next page.
func nextOffset(p pagination) string {
	if p.Next == nil || *p.Next == "" {
		return ""
	}
	u, err := url.Parse(*p.Next)
	if err != nil {
		return ""
	}
	return u.Query().Get("offset")
}
