package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/confhub/recommender/internal/models"
	"github.com/confhub/recommender/internal/observability"
	"github.com/confhub/recommender/pkg/cache"
)

var (
	// ErrNoSubjectEmbedding is returned when a profile has no usable embedding and none can be computed.
	ErrNoSubjectEmbedding = errors.New("no subject embedding available")
)

// ProfileEmbeddingStore persists a profile's interest embedding.
type ProfileEmbeddingStore interface {
	SetEmbedding(ctx context.Context, id uuid.UUID, model string, embedding []float32, updatedAt time.Time) error
}

const (
	interestEmbeddingCacheName = "interest_embedding"
	interestEmbeddingCacheSize = 5000
	interestEmbeddingCacheTTL  = time.Hour
	profileWriteBackTimeout    = 5 * time.Second
)

// ProfileEmbedder resolves the interest embedding of a profile: the stored one while fresh and
// produced by the configured model, otherwise computed from the interest text and written back
// in the background.
type ProfileEmbedder struct {
	client       EmbeddingClient
	store        ProfileEmbeddingStore
	model        string
	cache        *cache.LoaderCache[string, []float32]
	maxAge       time.Duration
	metrics      observability.RecommendationMetrics
	cacheMetrics observability.CacheMetrics
	now          func() time.Time
	writeBacks   sync.WaitGroup
}

// NewProfileEmbedder creates an embedder. client may be nil (stored embeddings only); metrics may be nil.
func NewProfileEmbedder(
	client EmbeddingClient,
	store ProfileEmbeddingStore,
	model string,
	maxAge time.Duration,
	metrics observability.RecommendationMetrics,
	cacheMetrics observability.CacheMetrics,
) *ProfileEmbedder {
	return &ProfileEmbedder{
		client:       client,
		store:        store,
		model:        model,
		cache:        cache.NewLoaderCache[string, []float32](interestEmbeddingCacheSize, interestEmbeddingCacheTTL, func(s string) string { return s }),
		maxAge:       maxAge,
		metrics:      metrics,
		cacheMetrics: cacheMetrics,
		now:          time.Now,
	}
}

// CanCompute reports whether new embeddings can be computed.
func (e *ProfileEmbedder) CanCompute() bool {
	return e != nil && e.client != nil
}

// Resolve returns the profile's interest embedding. A stale stored embedding is used when a new one
// cannot be computed; an embedding from another model never is.
func (e *ProfileEmbedder) Resolve(ctx context.Context, profile *models.Profile) ([]float32, error) {
	if profile == nil {
		return nil, ErrNoSubjectEmbedding
	}

	if profile.EmbeddingFresh(e.now(), e.maxAge, e.model) {
		e.record(ctx, "reused")

		return profile.Embedding, nil
	}

	text := profile.InterestText()
	if !e.CanCompute() || text == "" {
		if profile.HasEmbeddingFrom(e.model) {
			e.record(ctx, "reused")

			return profile.Embedding, nil
		}

		return nil, ErrNoSubjectEmbedding
	}

	embedding, hit, err := e.cache.GetWithStats(ctx, text, e.client.CreateEmbedding)
	e.recordCache(ctx, hit)

	if err != nil {
		e.record(ctx, "failed")

		if profile.HasEmbeddingFrom(e.model) && ctx.Err() == nil {
			slog.WarnContext(ctx, "profile embedding: refresh failed, using stale embedding",
				"profile_id", profile.ID, "error", err)

			return profile.Embedding, nil
		}

		return nil, fmt.Errorf("compute profile embedding: %w", err)
	}

	e.record(ctx, "computed")
	e.writeBack(ctx, profile.ID, embedding)

	return embedding, nil
}

// writeBack persists the embedding without blocking or being cancelled by the request.
func (e *ProfileEmbedder) writeBack(ctx context.Context, profileID uuid.UUID, embedding []float32) {
	if e.store == nil {
		return
	}

	bg := context.WithoutCancel(ctx)
	updatedAt := e.now()

	e.writeBacks.Go(func() {
		writeCtx, cancel := context.WithTimeout(bg, profileWriteBackTimeout)
		defer cancel()

		if err := e.store.SetEmbedding(writeCtx, profileID, e.model, embedding, updatedAt); err != nil {
			e.record(writeCtx, "persist_failed")
			slog.WarnContext(writeCtx, "profile embedding: write back failed", "profile_id", profileID, "error", err)
		}
	})
}

// Wait blocks until pending write-backs finish. Used on shutdown and in tests.
func (e *ProfileEmbedder) Wait() {
	e.writeBacks.Wait()
}

func (e *ProfileEmbedder) record(ctx context.Context, outcome string) {
	if e.metrics != nil {
		e.metrics.RecordProfileEmbedding(ctx, outcome)
	}
}

func (e *ProfileEmbedder) recordCache(ctx context.Context, hit bool) {
	if e.cacheMetrics == nil {
		return
	}

	if hit {
		e.cacheMetrics.RecordHit(ctx, interestEmbeddingCacheName)
	} else {
		e.cacheMetrics.RecordMiss(ctx, interestEmbeddingCacheName)
	}
}
