package ranking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/recommender/internal/models"
)

func ids(scored []Scored) []uuid.UUID {
	out := make([]uuid.UUID, len(scored))
	for i := range scored {
		out[i] = scored[i].Session.ID
	}

	return out
}

func TestAggregate_keywordAndEditorial(t *testing.T) {
	a := session("0190c000-0000-7000-8000-000000000001", "Applied AI", trackAI, time.Hour)
	b := session("0190c000-0000-7000-8000-000000000002", "Design systems keynote", trackDesign, 2*time.Hour)
	b.Featured = true
	c := session("0190c000-0000-7000-8000-000000000003", "Kubernetes upgrades", trackOps, 0)
	sessions := []models.Session{a, b, c}

	w := DefaultWeights()
	partials := []Partial{
		KeywordScores([]string{"AI", "design"}, sessions, w),
		EditorialScores(sessions, w),
	}

	got := Aggregate(sessions, models.NewInteractionHistory(nil), partials, 10)

	require.Len(t, got, 2)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, ids(got))
	assert.InDelta(t, 45, got[0].Score, 1e-9)
	assert.InDelta(t, 25, got[1].Score, 1e-9)
	assert.Equal(t, SignalKeyword, got[0].Signal)
	assert.InDelta(t, 20, got[0].Share(SignalEditorial), 1e-9)

	rec := got[0].ToRecommendation()
	assert.Equal(t, 45, rec.Score)
	assert.Equal(t, models.SignalTypeInterestMatch, rec.SignalType)
	assert.Equal(t, "Design", rec.Track)
	assert.Equal(t, "#db2777", rec.TrackColor)
	assert.Equal(t, "Hall Design", rec.Room)
}

func TestAggregate_excludesSavedEvenWhenHighest(t *testing.T) {
	top := session("0190c000-0000-7000-8000-000000000011", "Top", trackAI, 0)
	top.Featured = true
	other := session("0190c000-0000-7000-8000-000000000012", "Other", trackAI, 0)
	sessions := []models.Session{top, other}

	history := models.NewInteractionHistory([]models.Interaction{
		{SessionID: top.ID, TrackID: trackAI.ID, Kind: models.InteractionSaved},
	})

	partials := []Partial{
		{Signal: SignalSemantic, Scores: map[uuid.UUID]Contribution{top.ID: flat(95), other.ID: flat(10)}},
		EditorialScores(sessions, DefaultWeights()),
	}

	got := Aggregate(sessions, history, partials, 10)

	assert.Equal(t, []uuid.UUID{other.ID}, ids(got))
}

func TestAggregate_tieBreaks(t *testing.T) {
	late := session("0190c000-0000-7000-8000-000000000021", "Late", trackAI, 3*time.Hour)
	early := session("0190c000-0000-7000-8000-000000000022", "Early", trackAI, time.Hour)
	sameTimeB := session("0190c000-0000-7000-8000-00000000002b", "Same B", trackAI, 2*time.Hour)
	sameTimeA := session("0190c000-0000-7000-8000-00000000002a", "Same A", trackAI, 2*time.Hour)
	sessions := []models.Session{late, early, sameTimeB, sameTimeA}

	scores := map[uuid.UUID]Contribution{}
	for _, s := range sessions {
		scores[s.ID] = flat(30)
	}

	got := Aggregate(sessions, models.NewInteractionHistory(nil), []Partial{{Signal: SignalKeyword, Scores: scores}}, 10)

	assert.Equal(t, []uuid.UUID{early.ID, sameTimeA.ID, sameTimeB.ID, late.ID}, ids(got))
}

func TestAggregate_behavioralFirstVersusStacked(t *testing.T) {
	scoredAlready := session("0190c000-0000-7000-8000-000000000031", "Already scored", trackAI, 0)
	behavioralOnly := session("0190c000-0000-7000-8000-000000000032", "Behavioral only", trackAI, time.Hour)
	sessions := []models.Session{scoredAlready, behavioralOnly}

	history := models.NewInteractionHistory([]models.Interaction{
		{SessionID: uuid.New(), TrackID: trackAI.ID, Kind: models.InteractionViewed},
		{SessionID: uuid.New(), TrackID: trackAI.ID, Kind: models.InteractionViewed},
	})

	w := DefaultWeights()
	partials := []Partial{
		{Signal: SignalSemantic, Scores: map[uuid.UUID]Contribution{scoredAlready.ID: flat(40)}},
		BehavioralScores(history, sessions, w),
	}

	got := Aggregate(sessions, history, partials, 10)

	require.Len(t, got, 2)
	assert.InDelta(t, 60, got[0].Score, 1e-9) // 40 + 2*10
	assert.Equal(t, SignalSemantic, got[0].Signal)
	assert.InDelta(t, 30, got[1].Score, 1e-9) // 2*15
	assert.Equal(t, SignalBehavioral, got[1].Signal)
	assert.Equal(t, models.SignalTypeSimilarAttendees, got[1].ToRecommendation().SignalType)
}

func TestAggregate_truncatesAndDedupes(t *testing.T) {
	var sessions []models.Session

	scores := map[uuid.UUID]Contribution{}

	for i := range 15 {
		s := session(uuid.NewString(), "S", trackAI, time.Duration(i)*time.Minute)
		sessions = append(sessions, s)
		scores[s.ID] = flat(float64(100 - i))
	}

	sessions = append(sessions, sessions[0])

	got := Aggregate(sessions, models.NewInteractionHistory(nil), []Partial{{Signal: SignalSemantic, Scores: scores}}, 10)

	require.Len(t, got, 10)
	assert.Equal(t, sessions[0].ID, got[0].Session.ID)
	assert.Equal(t, sessions[9].ID, got[9].Session.ID)

	seen := map[uuid.UUID]bool{}
	for _, s := range got {
		assert.False(t, seen[s.Session.ID], "duplicate %s", s.Session.ID)
		seen[s.Session.ID] = true
	}
}

func TestAggregate_emptyIsValid(t *testing.T) {
	got := Aggregate(nil, models.NewInteractionHistory(nil), nil, 10)
	assert.Empty(t, got)
}

func TestTemplateReason(t *testing.T) {
	s := session("0190c000-0000-7000-8000-000000000041", "S", trackAI, 0)

	assert.Equal(t, "Matches your interests in AI", TemplateReason(SignalSemantic, &s))
	assert.Equal(t, "Matches your interests in AI", TemplateReason(SignalKeyword, &s))
	assert.Equal(t, "Attendees like you found this valuable", TemplateReason(SignalBehavioral, &s))
	assert.Equal(t, "Featured session you shouldn't miss", TemplateReason(SignalEditorial, &s))
	assert.Equal(t, "Recommended for you", TemplateReason("", &s))
	assert.Equal(t, "Matches your interests", TemplateReason(SignalKeyword, &models.Session{}))
}
