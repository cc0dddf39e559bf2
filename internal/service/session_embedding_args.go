package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const (
	sessionEmbeddingKind = "session_embedding"
	// EmbeddingsQueueName is the River queue used for session embedding jobs.
	EmbeddingsQueueName = "embeddings"
)

// JobInserter inserts River jobs (e.g. the River client).
type JobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// SessionEmbeddingArgs is the job payload for computing and storing the embedding of one session
// with one model. Unique by session and model so repeated backfills do not stack jobs.
type SessionEmbeddingArgs struct {
	SessionID uuid.UUID `json:"session_id" river:"unique"`
	Model     string    `json:"model"      river:"unique"`
}

// Kind returns the River job kind.
func (SessionEmbeddingArgs) Kind() string { return sessionEmbeddingKind }

var _ river.JobArgs = SessionEmbeddingArgs{}
