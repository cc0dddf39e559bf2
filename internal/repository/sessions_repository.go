// Package repository provides Postgres data access for sessions, profiles, interactions,
// memberships and cached recommendations.
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

// SessionsRepository reads conference sessions and maintains their embeddings.
// Reads only return embeddings produced by embeddingModel; others come back empty.
type SessionsRepository struct {
	db             *pgxpool.Pool
	embeddingModel string
}

// NewSessionsRepository creates a new sessions repository for the configured embedding model.
func NewSessionsRepository(db *pgxpool.Pool, embeddingModel string) *SessionsRepository {
	return &SessionsRepository{db: db, embeddingModel: embeddingModel}
}

// sessionColumns expects the embedding model as $2.
const sessionColumns = `
	s.id, s.conference_id, s.title, s.description, s.start_time,
	COALESCE(r.id, '00000000-0000-0000-0000-000000000000'::uuid), COALESCE(r.name, ''),
	COALESCE(t.id, '00000000-0000-0000-0000-000000000000'::uuid), COALESCE(t.name, ''), COALESCE(t.color, ''),
	s.topics, s.difficulty, s.featured,
	CASE WHEN s.embedding_model = $2 THEN s.embedding END`

const sessionFrom = `
	FROM sessions s
	LEFT JOIN rooms r ON r.id = s.room_id
	LEFT JOIN tracks t ON t.id = s.track_id`

func scanSession(row pgx.Row) (models.Session, error) {
	var (
		s   models.Session
		vec *pgvector.Vector
	)

	err := row.Scan(
		&s.ID, &s.ConferenceID, &s.Title, &s.Description, &s.StartTime,
		&s.Room.ID, &s.Room.Name,
		&s.Track.ID, &s.Track.Name, &s.Track.Color,
		&s.Topics, &s.Difficulty, &s.Featured, &vec,
	)
	if err != nil {
		return models.Session{}, err
	}

	s.Embedding = vectorSlice(vec)

	return s, nil
}

// ListByConference returns every session of the conference ordered by start time.
// Embeddings from another model are left empty.
func (r *SessionsRepository) ListByConference(ctx context.Context, conferenceID uuid.UUID) ([]models.Session, error) {
	rows, err := r.db.Query(ctx, `SELECT`+sessionColumns+sessionFrom+`
		WHERE s.conference_id = $1
		ORDER BY s.start_time, s.id`, conferenceID, r.embeddingModel)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session

	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	return sessions, nil
}

// GetByID returns a single session.
func (r *SessionsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, `SELECT`+sessionColumns+sessionFrom+` WHERE s.id = $1`, id, r.embeddingModel))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("session", "session not found")
		}

		return nil, fmt.Errorf("get session: %w", err)
	}

	return &s, nil
}

// UpdateEmbedding stores the session embedding and the model that produced it.
// An empty embedding clears the column.
func (r *SessionsRepository) UpdateEmbedding(ctx context.Context, id uuid.UUID, model string, embedding []float32) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET embedding = $2, embedding_model = $3, embedding_updated_at = $4
		WHERE id = $1`,
		id, nullableVector(embedding), model, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update session embedding: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return huberrors.NewNotFoundError("session", "session not found")
	}

	return nil
}

// ListIDsMissingEmbedding returns sessions of the conference with no embedding for model.
// uuid.Nil lists across all conferences.
func (r *SessionsRepository) ListIDsMissingEmbedding(
	ctx context.Context, conferenceID uuid.UUID, model string,
) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM sessions
		WHERE ($1 = '00000000-0000-0000-0000-000000000000'::uuid OR conference_id = $1)
		  AND (embedding IS NULL OR embedding_model IS DISTINCT FROM $2)
		ORDER BY start_time, id`, conferenceID, model)
	if err != nil {
		return nil, fmt.Errorf("list session ids for backfill: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating backfill ids: %w", err)
	}

	return ids, nil
}
