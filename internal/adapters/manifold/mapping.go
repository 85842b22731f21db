package manifold

import (
	"time"

	"github.com/jonnyspicer/mango"

	"github.com/FilipePhys/prediction-markets/internal/domain"
)

// mapMarket converts a mango market. Binary markets carry only their probability;
// multiple choice markets expose one outcome per answer.
func mapMarket(m mango.FullMarket, fetchedAt time.Time) domain.RawMarket {
	out := domain.RawMarket{
		Venue:     domain.VenueManifold,
		ID:        m.Id,
		Question:  m.Question,
		URL:       m.Url,
		Status:    domain.StatusOpen,
		FetchedAt: fetchedAt,
	}
	if m.IsResolved {
		out.Status = domain.StatusClosed
	}

	if m.OutcomeType == mango.Binary {
		out.Binary = true
		out.Probability = domain.Scalar(m.Probability)
		return out
	}

	out.Outcomes = make([]domain.RawOutcome, 0, len(m.Answers))
	for _, a := range m.Answers {
		out.Outcomes = append(out.Outcomes, domain.RawOutcome{
			Label: a.Text,
			Value: domain.Scalar(a.Probability),
		})
	}
	return out
}
