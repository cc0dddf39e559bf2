// Package jobs holds River client plumbing shared by the API and the backfill command.
package jobs

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/confhub/recommender/internal/observability"
)

// ErrorHandler logs job errors and panics and counts panics as worker errors.
type ErrorHandler struct {
	metrics observability.EmbeddingMetrics
}

// NewErrorHandler creates an ErrorHandler. metrics may be nil.
func NewErrorHandler(metrics observability.EmbeddingMetrics) *ErrorHandler {
	return &ErrorHandler{metrics: metrics}
}

// HandleError is called when a job returns an error. River's retry policy applies.
func (h *ErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	level := slog.LevelWarn
	if job.Attempt >= job.MaxAttempts {
		level = slog.LevelError
	}

	slog.Log(ctx, level, "job failed",
		"job_kind", job.Kind,
		"job_id", job.ID,
		"queue", job.Queue,
		"attempt", job.Attempt,
		"max_attempts", job.MaxAttempts,
		"error", err,
	)

	return nil
}

// HandlePanic is called when a job panics. The job is marked errored and retried.
func (h *ErrorHandler) HandlePanic(
	ctx context.Context, job *rivertype.JobRow, panicVal any, trace string,
) *river.ErrorHandlerResult {
	if h.metrics != nil {
		h.metrics.RecordWorkerError(ctx, "panic")
	}

	slog.ErrorContext(ctx, "job panicked",
		"job_kind", job.Kind,
		"job_id", job.ID,
		"attempt", job.Attempt,
		"panic_value", panicVal,
		"stack_trace", trace,
	)

	return nil
}

var _ river.ErrorHandler = (*ErrorHandler)(nil)
