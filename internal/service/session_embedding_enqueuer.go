package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/confhub/recommender/internal/observability"
)

// MissingEmbeddingLister lists sessions that have no embedding for a model.
type MissingEmbeddingLister interface {
	ListIDsMissingEmbedding(ctx context.Context, conferenceID uuid.UUID, model string) ([]uuid.UUID, error)
}

// pendingJobStates are the states in which a duplicate session_embedding job is rejected.
// Completed jobs are left out so a later backfill can enqueue the session again.
var pendingJobStates = []rivertype.JobState{
	rivertype.JobStatePending,
	rivertype.JobStateAvailable,
	rivertype.JobStateRunning,
	rivertype.JobStateRetryable,
	rivertype.JobStateScheduled,
}

// SessionEmbeddingEnqueuer enqueues session_embedding jobs.
type SessionEmbeddingEnqueuer struct {
	inserter    JobInserter
	lister      MissingEmbeddingLister
	model       string
	queueName   string
	maxAttempts int
	metrics     observability.EmbeddingMetrics
}

// NewSessionEmbeddingEnqueuer creates an enqueuer for model. metrics may be nil when metrics are disabled.
func NewSessionEmbeddingEnqueuer(
	inserter JobInserter,
	lister MissingEmbeddingLister,
	model string,
	queueName string,
	maxAttempts int,
	metrics observability.EmbeddingMetrics,
) *SessionEmbeddingEnqueuer {
	return &SessionEmbeddingEnqueuer{
		inserter:    inserter,
		lister:      lister,
		model:       model,
		queueName:   queueName,
		maxAttempts: maxAttempts,
		metrics:     metrics,
	}
}

// Enqueue inserts one job for sessionID. A duplicate of a pending job is skipped by River.
func (e *SessionEmbeddingEnqueuer) Enqueue(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	opts := &river.InsertOpts{
		Queue:       e.queueName,
		MaxAttempts: e.maxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true, ByState: pendingJobStates},
	}

	res, err := e.inserter.Insert(ctx, SessionEmbeddingArgs{SessionID: sessionID, Model: e.model}, opts)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordProviderError(ctx, "enqueue_failed")
		}

		return false, fmt.Errorf("enqueue session embedding: %w", err)
	}

	if res != nil && res.UniqueSkippedAsDuplicate {
		slog.Debug("embedding: job already pending", "session_id", sessionID)

		return false, nil
	}

	if e.metrics != nil {
		e.metrics.RecordJobsEnqueued(ctx, 1)
	}

	return true, nil
}

// Backfill enqueues jobs for every session of conferenceID (uuid.Nil for all conferences) that has no
// embedding for the current model. Returns the number of jobs enqueued. Stops at the first insert error.
func (e *SessionEmbeddingEnqueuer) Backfill(ctx context.Context, conferenceID uuid.UUID) (int, error) {
	ids, err := e.lister.ListIDsMissingEmbedding(ctx, conferenceID, e.model)
	if err != nil {
		return 0, fmt.Errorf("list sessions for backfill: %w", err)
	}

	enqueued := 0

	for _, id := range ids {
		inserted, err := e.Enqueue(ctx, id)
		if err != nil {
			return enqueued, err
		}

		if inserted {
			enqueued++
		}
	}

	slog.Info("embedding: backfill enqueued",
		"conference_id", conferenceID,
		"model", e.model,
		"candidates", len(ids),
		"enqueued", enqueued,
	)

	return enqueued, nil
}
