package ranking

import (
	"strings"

	"github.com/confhub/recommender/internal/models"
	"github.com/confhub/recommender/pkg/embeddings"
)

// SemanticScores scores sessions by cosine similarity to the subject embedding, scaled by
// w.Semantic. Sessions without embeddings and non-positive scores are skipped.
func SemanticScores(subject []float32, sessions []models.Session, w Weights) Partial {
	p := NewPartial(SignalSemantic)
	if len(subject) == 0 {
		return p
	}

	for i := range sessions {
		s := &sessions[i]
		if len(s.Embedding) == 0 {
			continue
		}

		score := embeddings.Cosine(subject, s.Embedding) * w.Semantic
		if score > 0 {
			p.Scores[s.ID] = flat(score)
		}
	}

	return p
}

// KeywordScores adds w.KeywordMatch for each interest that appears (case-insensitive substring)
// in a session's title, description, or topic tags.
func KeywordScores(interests []string, sessions []models.Session, w Weights) Partial {
	p := NewPartial(SignalKeyword)

	needles := make([]string, 0, len(interests))
	for _, interest := range interests {
		if n := strings.ToLower(strings.TrimSpace(interest)); n != "" {
			needles = append(needles, n)
		}
	}

	if len(needles) == 0 {
		return p
	}

	for i := range sessions {
		s := &sessions[i]
		haystack := strings.ToLower(s.Title + "\n" + s.Description + "\n" + strings.Join(s.Topics, "\n"))

		matches := 0
		for _, needle := range needles {
			if strings.Contains(haystack, needle) {
				matches++
			}
		}

		if matches > 0 {
			p.Scores[s.ID] = flat(float64(matches) * w.KeywordMatch)
		}
	}

	return p
}

// BehavioralScores scores unseen sessions in tracks the attendee has interacted with.
// The track count is weighted by w.BehavioralFirst when the session has no other score and by
// w.BehavioralStacked when it does.
func BehavioralScores(history models.InteractionHistory, sessions []models.Session, w Weights) Partial {
	p := NewPartial(SignalBehavioral)
	if len(history.TrackCounts) == 0 {
		return p
	}

	for i := range sessions {
		s := &sessions[i]
		if history.HasSeen(s.ID) {
			continue
		}

		count := history.TrackCounts[s.Track.ID]
		if count <= 0 {
			continue
		}

		p.Scores[s.ID] = Contribution{
			First:   float64(count) * w.BehavioralFirst,
			Stacked: float64(count) * w.BehavioralStacked,
		}
	}

	return p
}

// EditorialScores adds w.Editorial to featured sessions.
func EditorialScores(sessions []models.Session, w Weights) Partial {
	p := NewPartial(SignalEditorial)

	for i := range sessions {
		if sessions[i].Featured {
			p.Scores[sessions[i].ID] = flat(w.Editorial)
		}
	}

	return p
}
