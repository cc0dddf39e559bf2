package ranking

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/confhub/recommender/internal/models"
)

// Scored is a session with its merged score and the signal that contributed most to it.
type Scored struct {
	Session *models.Session
	Score   float64
	Signal  Signal
	Reason  string

	shares map[Signal]float64
	order  []Signal
}

// Share returns the points contributed by signal.
func (s *Scored) Share(signal Signal) float64 {
	return s.shares[signal]
}

// Aggregate merges partials into one ranked list. Partials are applied in order, so a partial's
// Stacked value is used only when an earlier partial already scored the session. Saved sessions and
// sessions with no positive score are dropped; the rest are sorted by score descending, then by
// earliest start time, then by id, and truncated to limit (limit <= 0 means no limit).
func Aggregate(sessions []models.Session, history models.InteractionHistory, partials []Partial, limit int) []Scored {
	byID := make(map[uuid.UUID]*models.Session, len(sessions))
	for i := range sessions {
		if _, dup := byID[sessions[i].ID]; !dup {
			byID[sessions[i].ID] = &sessions[i]
		}
	}

	acc := make(map[uuid.UUID]*Scored)

	for _, partial := range partials {
		for id, c := range partial.Scores {
			session, ok := byID[id]
			if !ok {
				continue
			}

			entry, exists := acc[id]
			if !exists {
				entry = &Scored{Session: session, shares: make(map[Signal]float64)}
				acc[id] = entry
			}

			points := c.First
			if entry.Score > 0 {
				points = c.Stacked
			}

			if points <= 0 {
				continue
			}

			if _, seen := entry.shares[partial.Signal]; !seen {
				entry.order = append(entry.order, partial.Signal)
			}

			entry.shares[partial.Signal] += points
			entry.Score += points
		}
	}

	out := make([]Scored, 0, len(acc))

	for id, entry := range acc {
		if entry.Score <= 0 || history.HasSaved(id) {
			continue
		}

		entry.Signal = dominant(entry)
		out = append(out, *entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return less(&out[i], &out[j])
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}

// dominant returns the signal with the largest share; ties go to the signal applied first.
func dominant(s *Scored) Signal {
	var (
		best      Signal
		bestShare = math.Inf(-1)
	)

	for _, signal := range s.order {
		if share := s.shares[signal]; share > bestShare {
			best, bestShare = signal, share
		}
	}

	return best
}

func less(a, b *Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}

	if !a.Session.StartTime.Equal(b.Session.StartTime) {
		return a.Session.StartTime.Before(b.Session.StartTime)
	}

	return a.Session.ID.String() < b.Session.ID.String()
}

// ToRecommendation converts a scored session into its public form. Score is rounded to an integer.
func (s *Scored) ToRecommendation() models.Recommendation {
	return models.Recommendation{
		SessionID:  s.Session.ID,
		Title:      s.Session.Title,
		Score:      int(math.Round(s.Score)),
		Reason:     s.Reason,
		SignalType: s.Signal.SignalType(),
		Track:      s.Session.Track.Name,
		TrackColor: s.Session.Track.Color,
		StartTime:  s.Session.StartTime,
		Room:       s.Session.Room.Name,
	}
}
