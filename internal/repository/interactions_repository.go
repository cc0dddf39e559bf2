package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/confhub/recommender/internal/models"
)

// InteractionsRepository reads attendee interactions with sessions.
type InteractionsRepository struct {
	db *pgxpool.Pool
}

// NewInteractionsRepository creates a new interactions repository.
func NewInteractionsRepository(db *pgxpool.Pool) *InteractionsRepository {
	return &InteractionsRepository{db: db}
}

// ListByProfileAndConference returns the profile's interactions with sessions of the conference,
// each resolved to the session's track.
func (r *InteractionsRepository) ListByProfileAndConference(
	ctx context.Context, profileID, conferenceID uuid.UUID,
) ([]models.Interaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.profile_id, i.session_id,
		       COALESCE(s.track_id, '00000000-0000-0000-0000-000000000000'::uuid),
		       i.kind, i.created_at
		FROM session_interactions i
		INNER JOIN sessions s ON s.id = i.session_id
		WHERE i.profile_id = $1 AND s.conference_id = $2
		ORDER BY i.created_at`, profileID, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var interactions []models.Interaction

	for rows.Next() {
		var in models.Interaction
		if err := rows.Scan(&in.ProfileID, &in.SessionID, &in.TrackID, &in.Kind, &in.At); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}

		interactions = append(interactions, in)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating interactions: %w", err)
	}

	return interactions, nil
}
