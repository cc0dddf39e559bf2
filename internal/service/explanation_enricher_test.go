package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/recommender/internal/models"
	"github.com/confhub/recommender/internal/ranking"
)

func scoredList(n int) []ranking.Scored {
	signals := []ranking.Signal{ranking.SignalSemantic, ranking.SignalBehavioral, ranking.SignalEditorial}
	out := make([]ranking.Scored, n)

	for i := range out {
		out[i] = ranking.Scored{
			Session: &models.Session{ID: uuid.New(), Title: "Session", Track: models.Track{Name: "AI"}},
			Score:   float64(100 - i),
			Signal:  signals[i%len(signals)],
		}
	}

	return out
}

func TestExplanationEnricher_Enrich(t *testing.T) {
	profile := &models.Profile{Interests: []string{"AI"}, Role: "Engineer"}

	t.Run("generated reasons for top K, templates beyond", func(t *testing.T) {
		var gotPrompt string

		gen := &mockTextGenerator{generateFunc: func(_ context.Context, _, prompt string) (string, error) {
			gotPrompt = prompt

			return `["One.", "Two.", "Three."]`, nil
		}}
		e := NewExplanationEnricher(gen, 3, time.Second)
		scored := scoredList(5)
		ids := []uuid.UUID{scored[0].Session.ID, scored[4].Session.ID}

		outcome := e.Enrich(context.Background(), profile, scored)

		assert.Equal(t, EnrichmentGenerated, outcome)
		assert.Equal(t, "One.", scored[0].Reason)
		assert.Equal(t, "Three.", scored[2].Reason)
		assert.Equal(t, "Attendees like you found this valuable", scored[4].Reason)
		assert.Equal(t, ids[0], scored[0].Session.ID, "order unchanged")
		assert.Equal(t, ids[1], scored[4].Session.ID, "order unchanged")
		assert.Contains(t, gotPrompt, `"interests":["AI"]`)
		assert.Contains(t, gotPrompt, "exactly 3")
	})

	failures := []struct {
		name  string
		reply string
		err   error
	}{
		{name: "provider error", err: errors.New("network")},
		{name: "timeout", err: context.DeadlineExceeded},
		{name: "malformed json", reply: "Sure! Here are your reasons"},
		{name: "wrong count", reply: `["only one"]`},
		{name: "too large", reply: `["` + strings.Repeat("x", maxExplanationResponseBytes) + `"]`},
	}

	for _, tt := range failures {
		t.Run("fallback on "+tt.name, func(t *testing.T) {
			gen := &mockTextGenerator{generateFunc: func(context.Context, string, string) (string, error) {
				return tt.reply, tt.err
			}}
			e := NewExplanationEnricher(gen, 5, time.Second)
			scored := scoredList(3)

			outcome := e.Enrich(context.Background(), profile, scored)

			assert.Equal(t, EnrichmentFallback, outcome)
			assert.Equal(t, "Matches your interests in AI", scored[0].Reason)
			assert.Equal(t, "Attendees like you found this valuable", scored[1].Reason)
			assert.Equal(t, "Featured session you shouldn't miss", scored[2].Reason)

			for i := range scored {
				assert.NotEmpty(t, scored[i].Reason)
			}
		})
	}

	t.Run("no generator uses templates", func(t *testing.T) {
		e := NewExplanationEnricher(nil, 5, time.Second)
		scored := scoredList(2)

		assert.Equal(t, EnrichmentSkipped, e.Enrich(context.Background(), profile, scored))
		assert.Equal(t, "Matches your interests in AI", scored[0].Reason)
	})

	t.Run("cancelled request skips provider", func(t *testing.T) {
		gen := &mockTextGenerator{generateFunc: func(context.Context, string, string) (string, error) {
			return `["x"]`, nil
		}}
		e := NewExplanationEnricher(gen, 5, time.Second)
		scored := scoredList(1)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.Equal(t, EnrichmentSkipped, e.Enrich(ctx, profile, scored))
		assert.Zero(t, gen.calls.Load())
		assert.NotEmpty(t, scored[0].Reason)
	})

	t.Run("provider call has its own deadline", func(t *testing.T) {
		gen := &mockTextGenerator{generateFunc: func(ctx context.Context, _, _ string) (string, error) {
			<-ctx.Done()

			return "", ctx.Err()
		}}
		e := NewExplanationEnricher(gen, 5, 20*time.Millisecond)
		scored := scoredList(1)

		start := time.Now()
		outcome := e.Enrich(context.Background(), profile, scored)

		assert.Equal(t, EnrichmentFallback, outcome)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("empty list", func(t *testing.T) {
		gen := &mockTextGenerator{generateFunc: func(context.Context, string, string) (string, error) {
			return "[]", nil
		}}
		e := NewExplanationEnricher(gen, 5, time.Second)

		assert.Equal(t, EnrichmentSkipped, e.Enrich(context.Background(), profile, nil))
		assert.Zero(t, gen.calls.Load())
	})
}

func TestParseExplanations(t *testing.T) {
	t.Run("code fence", func(t *testing.T) {
		got, err := parseExplanations("```json\n[\"a\", \"b\"]\n```", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("wrapped object", func(t *testing.T) {
		got, err := parseExplanations(`{"reasons":["a"]}`, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, got)
	})

	t.Run("blank entries stay blank and whitespace collapses", func(t *testing.T) {
		got, err := parseExplanations(`["  ", "a\n  b"]`, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"", "a b"}, got)
	})

	t.Run("long reasons are capped", func(t *testing.T) {
		got, err := parseExplanations(`["`+strings.Repeat("y", 500)+`"]`, 1)
		require.NoError(t, err)
		assert.Len(t, []rune(got[0]), maxReasonRunes)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := parseExplanations(`{"other":1}`, 1)
		assert.ErrorIs(t, err, errMalformedExplanations)
	})
}
