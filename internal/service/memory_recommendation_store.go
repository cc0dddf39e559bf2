package service

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/confhub/recommender/internal/huberrors"
	"github.com/confhub/recommender/internal/models"
)

// MemoryRecommendationStore keeps recommendation sets in process. Used when the cache backend is
// "memory" (single replica, or tests). Entries are evicted by size and by ttl.
type MemoryRecommendationStore struct {
	lru *expirable.LRU[string, models.CachedRecommendations]
}

// NewMemoryRecommendationStore creates a store holding at most maxEntries sets for ttl each.
func NewMemoryRecommendationStore(maxEntries int, ttl time.Duration) *MemoryRecommendationStore {
	return &MemoryRecommendationStore{
		lru: expirable.NewLRU[string, models.CachedRecommendations](maxEntries, nil, ttl),
	}
}

func recommendationKey(profileID, conferenceID uuid.UUID) string {
	return profileID.String() + "/" + conferenceID.String()
}

// Get returns a copy of the stored set, or a huberrors.NotFoundError.
func (s *MemoryRecommendationStore) Get(
	_ context.Context, profileID, conferenceID uuid.UUID,
) (*models.CachedRecommendations, error) {
	entry, ok := s.lru.Get(recommendationKey(profileID, conferenceID))
	if !ok {
		return nil, huberrors.NewNotFoundError("recommendations", "no cached recommendations")
	}

	entry.Recommendations = slices.Clone(entry.Recommendations)

	return &entry, nil
}

// Replace stores entry, discarding any previous set for the same key.
func (s *MemoryRecommendationStore) Replace(_ context.Context, entry *models.CachedRecommendations) error {
	stored := *entry
	stored.Recommendations = slices.Clone(entry.Recommendations)

	if stored.Recommendations == nil {
		stored.Recommendations = []models.Recommendation{}
	}

	s.lru.Add(recommendationKey(entry.ProfileID, entry.ConferenceID), stored)

	return nil
}

// Delete removes the set for the key. Deleting a missing key is not an error.
func (s *MemoryRecommendationStore) Delete(_ context.Context, profileID, conferenceID uuid.UUID) error {
	s.lru.Remove(recommendationKey(profileID, conferenceID))

	return nil
}

// Len returns the number of stored sets.
func (s *MemoryRecommendationStore) Len() int {
	return s.lru.Len()
}
