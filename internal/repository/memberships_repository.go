package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MembershipsRepository answers whether an attendee belongs to a conference.
type MembershipsRepository struct {
	db *pgxpool.Pool
}

// NewMembershipsRepository creates a new memberships repository.
func NewMembershipsRepository(db *pgxpool.Pool) *MembershipsRepository {
	return &MembershipsRepository{db: db}
}

// IsMember reports whether profileID is registered for conferenceID.
func (r *MembershipsRepository) IsMember(ctx context.Context, conferenceID, profileID uuid.UUID) (bool, error) {
	var exists bool

	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conference_members WHERE conference_id = $1 AND profile_id = $2
		)`, conferenceID, profileID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}

	return exists, nil
}
