package ranking

import "github.com/confhub/recommender/internal/models"

// PrimaryMode selects the interest signal for a request. The two modes never both contribute.
type PrimaryMode string

// Primary modes.
const (
	// PrimarySemantic ranks by embedding similarity to the subject embedding.
	PrimarySemantic PrimaryMode = "semantic_active"
	// PrimaryKeyword ranks by interest tag matches only.
	PrimaryKeyword PrimaryMode = "keyword_fallback"
)

// ChoosePrimary is the provisional mode decision made before the subject embedding is resolved.
// Semantic ranking needs an embedding provider (or a stored profile embedding), something to embed,
// and at least one session embedding it can be compared with. A stored embedding that cannot be
// refreshed must match some session's dimension.
func ChoosePrimary(embedderAvailable bool, profile *models.Profile, sessions []models.Session) PrimaryMode {
	if profile == nil {
		return PrimaryKeyword
	}

	canEmbed := embedderAvailable && profile.InterestText() != ""
	if !canEmbed {
		if HasComparableSession(profile.Embedding, sessions) {
			return PrimarySemantic
		}

		return PrimaryKeyword
	}

	for i := range sessions {
		if len(sessions[i].Embedding) > 0 {
			return PrimarySemantic
		}
	}

	return PrimaryKeyword
}

// HasComparableSession reports whether at least one session embedding has the dimension of subject.
// Cosine similarity between vectors of different lengths is undefined and scores nothing.
func HasComparableSession(subject []float32, sessions []models.Session) bool {
	if len(subject) == 0 {
		return false
	}

	for i := range sessions {
		if len(sessions[i].Embedding) == len(subject) {
			return true
		}
	}

	return false
}
