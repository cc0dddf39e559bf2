package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/recommender/internal/huberrors"
	"github.com/confhub/recommender/internal/models"
)

func TestMemoryRecommendationStore(t *testing.T) {
	ctx := context.Background()
	profileID, conferenceID := uuid.New(), uuid.New()
	now := time.Now()

	t.Run("missing key is not found", func(t *testing.T) {
		s := NewMemoryRecommendationStore(10, time.Hour)

		_, err := s.Get(ctx, profileID, conferenceID)
		assert.ErrorIs(t, err, huberrors.ErrNotFound)
	})

	t.Run("replace then get returns a copy", func(t *testing.T) {
		s := NewMemoryRecommendationStore(10, time.Hour)
		entry := &models.CachedRecommendations{
			ProfileID:       profileID,
			ConferenceID:    conferenceID,
			Recommendations: []models.Recommendation{{SessionID: uuid.New(), Title: "A", Score: 25}},
			ComputedAt:      now,
			ExpiresAt:       now.Add(time.Hour),
		}
		require.NoError(t, s.Replace(ctx, entry))

		entry.Recommendations[0].Title = "mutated"

		got, err := s.Get(ctx, profileID, conferenceID)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Recommendations[0].Title)

		got.Recommendations[0].Title = "mutated again"

		again, err := s.Get(ctx, profileID, conferenceID)
		require.NoError(t, err)
		assert.Equal(t, "A", again.Recommendations[0].Title)
	})

	t.Run("replace is wholesale", func(t *testing.T) {
		s := NewMemoryRecommendationStore(10, time.Hour)
		require.NoError(t, s.Replace(ctx, &models.CachedRecommendations{
			ProfileID: profileID, ConferenceID: conferenceID,
			Recommendations: []models.Recommendation{{Title: "A"}, {Title: "B"}},
		}))
		require.NoError(t, s.Replace(ctx, &models.CachedRecommendations{
			ProfileID: profileID, ConferenceID: conferenceID,
		}))

		got, err := s.Get(ctx, profileID, conferenceID)
		require.NoError(t, err)
		assert.NotNil(t, got.Recommendations)
		assert.Empty(t, got.Recommendations)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("delete", func(t *testing.T) {
		s := NewMemoryRecommendationStore(10, time.Hour)
		require.NoError(t, s.Replace(ctx, &models.CachedRecommendations{ProfileID: profileID, ConferenceID: conferenceID}))
		require.NoError(t, s.Delete(ctx, profileID, conferenceID))
		require.NoError(t, s.Delete(ctx, profileID, conferenceID))

		_, err := s.Get(ctx, profileID, conferenceID)
		assert.ErrorIs(t, err, huberrors.ErrNotFound)
	})

	t.Run("keys are per profile and conference", func(t *testing.T) {
		s := NewMemoryRecommendationStore(10, time.Hour)
		require.NoError(t, s.Replace(ctx, &models.CachedRecommendations{ProfileID: profileID, ConferenceID: conferenceID}))

		_, err := s.Get(ctx, profileID, uuid.New())
		assert.ErrorIs(t, err, huberrors.ErrNotFound)
	})
}
