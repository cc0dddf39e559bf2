package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/confhub/recommender/internal/huberrors"
	"github.com/confhub/recommender/internal/models"
)

// ProfilesRepository reads attendee profiles and writes back interest embeddings.
type ProfilesRepository struct {
	db *pgxpool.Pool
}

// NewProfilesRepository creates a new profiles repository.
func NewProfilesRepository(db *pgxpool.Pool) *ProfilesRepository {
	return &ProfilesRepository{db: db}
}

// GetByID returns the profile.
func (r *ProfilesRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var (
		p   models.Profile
		vec *pgvector.Vector
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, interests, role, organization,
			interest_embedding, COALESCE(interest_embedding_model, ''), interest_embedding_updated_at
		FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Interests, &p.Role, &p.Organization, &vec, &p.EmbeddingModel, &p.EmbeddingUpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("profile", "profile not found")
		}

		return nil, fmt.Errorf("get profile: %w", err)
	}

	p.Embedding = vectorSlice(vec)

	return &p, nil
}

// SetEmbedding stores the interest embedding model produced at updatedAt.
func (r *ProfilesRepository) SetEmbedding(
	ctx context.Context, id uuid.UUID, model string, embedding []float32, updatedAt time.Time,
) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET interest_embedding = $2, interest_embedding_model = $3, interest_embedding_updated_at = $4
		WHERE id = $1`,
		id, nullableVector(embedding), model, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("set profile embedding: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return huberrors.NewNotFoundError("profile", "profile not found")
	}

	return nil
}
