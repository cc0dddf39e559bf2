package ranking

import "github.com/confhub/recommender/internal/models"

// Reason templates used when no generated explanation is available.
const (
	reasonInterestTemplate = "Matches your interests in "
	reasonInterestGeneric  = "Matches your interests"
	reasonBehavioral       = "Attendees like you found this valuable"
	reasonEditorial        = "Featured session you shouldn't miss"
	reasonDefault          = "Recommended for you"
)

// TemplateReason returns the deterministic reason for a session keyed by its dominant signal.
func TemplateReason(signal Signal, session *models.Session) string {
	switch signal {
	case SignalSemantic, SignalKeyword:
		if session != nil && session.Track.Name != "" {
			return reasonInterestTemplate + session.Track.Name
		}

		return reasonInterestGeneric
	case SignalBehavioral:
		return reasonBehavioral
	case SignalEditorial:
		return reasonEditorial
	default:
		return reasonDefault
	}
}
