// Package workers provides River job workers.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	"github.com/confhub/recommender/internal/huberrors"
	"github.com/confhub/recommender/internal/models"
	"github.com/confhub/recommender/internal/observability"
	"github.com/confhub/recommender/internal/service"
	"github.com/confhub/recommender/pkg/embeddings"
)

// sessionEmbeddingStore is the minimal store interface needed by the worker.
type sessionEmbeddingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	UpdateEmbedding(ctx context.Context, id uuid.UUID, model string, embedding []float32) error
}

// SessionEmbeddingWorker computes and stores the embedding of one session.
type SessionEmbeddingWorker struct {
	river.WorkerDefaults[service.SessionEmbeddingArgs]

	sessions sessionEmbeddingStore
	client   service.EmbeddingClient
	model    string
	limiter  *rate.Limiter
	metrics  observability.EmbeddingMetrics
}

// NewSessionEmbeddingWorker creates the worker. limiter and metrics may be nil.
func NewSessionEmbeddingWorker(
	sessions sessionEmbeddingStore,
	client service.EmbeddingClient,
	model string,
	limiter *rate.Limiter,
	metrics observability.EmbeddingMetrics,
) *SessionEmbeddingWorker {
	return &SessionEmbeddingWorker{
		sessions: sessions,
		client:   client,
		model:    model,
		limiter:  limiter,
		metrics:  metrics,
	}
}

const sessionEmbeddingTimeout = 30 * time.Second

// Timeout limits how long a single embedding job can run.
func (w *SessionEmbeddingWorker) Timeout(*river.Job[service.SessionEmbeddingArgs]) time.Duration {
	return sessionEmbeddingTimeout
}

// Work loads the session, embeds its text and stores the normalized vector.
func (w *SessionEmbeddingWorker) Work(ctx context.Context, job *river.Job[service.SessionEmbeddingArgs]) error {
	args := job.Args
	start := time.Now()

	if args.Model != w.model {
		w.outcome(ctx, "skipped", start)
		slog.Info("embedding: skipped, job model differs from configured model",
			"session_id", args.SessionID, "job_model", args.Model, "model", w.model)

		return nil
	}

	session, err := w.sessions.GetByID(ctx, args.SessionID)
	if err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			w.outcome(ctx, "skipped", start)
			slog.Info("embedding: session deleted before job ran", "session_id", args.SessionID)

			return nil
		}

		w.workerError(ctx, "get_session_failed")

		return fmt.Errorf("get session: %w", err)
	}

	text := strings.TrimSpace(session.EmbeddingText())
	if text == "" {
		w.outcome(ctx, "skipped", start)

		return nil
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for embedding rate limit: %w", err)
		}
	}

	embedding, err := w.client.CreateEmbedding(ctx, text)
	if err != nil {
		w.workerError(ctx, "provider_failed")

		if job.Attempt >= job.MaxAttempts {
			w.outcome(ctx, "failed_final", start)
			slog.Error("embedding: provider failed (final attempt)", "session_id", args.SessionID, "error", err)

			return nil
		}

		w.outcome(ctx, "retry", start)

		return fmt.Errorf("create embedding: %w", err)
	}

	embeddings.NormalizeL2(embedding)

	if err := w.sessions.UpdateEmbedding(ctx, args.SessionID, w.model, embedding); err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			w.outcome(ctx, "skipped", start)

			return nil
		}

		w.workerError(ctx, "update_failed")

		return fmt.Errorf("update session embedding: %w", err)
	}

	w.outcome(ctx, "success", start)
	slog.Info("embedding: stored", "session_id", args.SessionID, "model", w.model)

	return nil
}

func (w *SessionEmbeddingWorker) outcome(ctx context.Context, status string, start time.Time) {
	if w.metrics != nil {
		w.metrics.RecordEmbeddingOutcome(ctx, status)
		w.metrics.RecordEmbeddingDuration(ctx, time.Since(start), status)
	}
}

func (w *SessionEmbeddingWorker) workerError(ctx context.Context, reason string) {
	if w.metrics != nil {
		w.metrics.RecordWorkerError(ctx, reason)
	}
}
