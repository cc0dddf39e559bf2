package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/confhub/recommender/internal/huberrors"
	"github.com/confhub/recommender/internal/models"
)

// RecommendationCacheRepository persists the last ranked list per (profile, conference).
type RecommendationCacheRepository struct {
	db *pgxpool.Pool
}

// NewRecommendationCacheRepository creates a new recommendation cache repository.
func NewRecommendationCacheRepository(db *pgxpool.Pool) *RecommendationCacheRepository {
	return &RecommendationCacheRepository{db: db}
}

var recommendationItemColumns = []string{
	"profile_id", "conference_id", "position", "session_id", "title", "score", "reason",
	"signal_type", "track", "track_color", "start_time", "room",
}

// Get returns the stored entry, expired or not. Callers decide freshness.
// Returns a huberrors.NotFoundError when nothing is stored for the key.
func (r *RecommendationCacheRepository) Get(
	ctx context.Context, profileID, conferenceID uuid.UUID,
) (*models.CachedRecommendations, error) {
	entry := &models.CachedRecommendations{ProfileID: profileID, ConferenceID: conferenceID}

	err := r.db.QueryRow(ctx, `
		SELECT computed_at, expires_at FROM recommendation_sets
		WHERE profile_id = $1 AND conference_id = $2`, profileID, conferenceID,
	).Scan(&entry.ComputedAt, &entry.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("recommendations", "no cached recommendations")
		}

		return nil, fmt.Errorf("get recommendation set: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT session_id, title, score, reason, signal_type, track, track_color, start_time, room
		FROM recommendation_items
		WHERE profile_id = $1 AND conference_id = $2
		ORDER BY position`, profileID, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("list recommendation items: %w", err)
	}
	defer rows.Close()

	entry.Recommendations = []models.Recommendation{}

	for rows.Next() {
		var rec models.Recommendation
		if err := rows.Scan(&rec.SessionID, &rec.Title, &rec.Score, &rec.Reason, &rec.SignalType,
			&rec.Track, &rec.TrackColor, &rec.StartTime, &rec.Room); err != nil {
			return nil, fmt.Errorf("scan recommendation item: %w", err)
		}

		entry.Recommendations = append(entry.Recommendations, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recommendation items: %w", err)
	}

	return entry, nil
}

// Replace deletes any prior entry for the key and inserts entry in one transaction.
func (r *RecommendationCacheRepository) Replace(ctx context.Context, entry *models.CachedRecommendations) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM recommendation_sets WHERE profile_id = $1 AND conference_id = $2`,
		entry.ProfileID, entry.ConferenceID); err != nil {
		return fmt.Errorf("delete recommendation set: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO recommendation_sets (profile_id, conference_id, computed_at, expires_at)
		VALUES ($1, $2, $3, $4)`,
		entry.ProfileID, entry.ConferenceID, entry.ComputedAt, entry.ExpiresAt); err != nil {
		return fmt.Errorf("insert recommendation set: %w", err)
	}

	if len(entry.Recommendations) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"recommendation_items"}, recommendationItemColumns,
			pgx.CopyFromSlice(len(entry.Recommendations), func(i int) ([]any, error) {
				rec := entry.Recommendations[i]

				return []any{
					entry.ProfileID, entry.ConferenceID, i, rec.SessionID, rec.Title, rec.Score, rec.Reason,
					string(rec.SignalType), rec.Track, rec.TrackColor, rec.StartTime, rec.Room,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("insert recommendation items: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit recommendation set: %w", err)
	}

	return nil
}

// Delete removes the entry for the key. Deleting a missing entry is not an error.
func (r *RecommendationCacheRepository) Delete(ctx context.Context, profileID, conferenceID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM recommendation_sets WHERE profile_id = $1 AND conference_id = $2`,
		profileID, conferenceID)
	if err != nil {
		return fmt.Errorf("delete recommendation set: %w", err)
	}

	return nil
}
