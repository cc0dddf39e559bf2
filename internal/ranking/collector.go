package ranking

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/confhub/recommender/internal/models"
)

// Input is the per-request data every collector reads.
type Input struct {
	Profile  *models.Profile
	History  models.InteractionHistory
	Sessions []models.Session
}

// Collector produces one partial score map. Implementations must honor ctx cancellation.
type Collector interface {
	Signal() Signal
	Collect(ctx context.Context, in Input) (Partial, error)
}

// CollectorFunc adapts a function to Collector.
type CollectorFunc struct {
	Name Signal
	Fn   func(ctx context.Context, in Input) (Partial, error)
}

// Signal returns the collector's signal.
func (c CollectorFunc) Signal() Signal { return c.Name }

// Collect calls Fn.
func (c CollectorFunc) Collect(ctx context.Context, in Input) (Partial, error) { return c.Fn(ctx, in) }

// Outcome classifies how a collector finished.
type Outcome string

// Collector outcomes.
const (
	OutcomeOK      Outcome = "ok"
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailed  Outcome = "failed"
	OutcomeTimeout Outcome = "timeout"
)

// CollectorResult is the result of one collector. A failed or timed-out collector has an empty Partial.
type CollectorResult struct {
	Signal   Signal
	Partial  Partial
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// RunCollectors runs collectors concurrently, each under its own timeout (timeout <= 0 means none).
// A collector that errors or overruns contributes an empty partial and never fails the others.
// Results keep the order of collectors. If the parent ctx is cancelled, ctx.Err() is returned.
func RunCollectors(ctx context.Context, collectors []Collector, in Input, timeout time.Duration) ([]CollectorResult, error) {
	results := make([]CollectorResult, len(collectors))

	var (
		eg errgroup.Group
		mu sync.Mutex
	)

	for i, c := range collectors {
		eg.Go(func() error {
			collectCtx := ctx

			if timeout > 0 {
				var cancel context.CancelFunc

				collectCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			start := time.Now()
			partial, err := collect(collectCtx, c, in)
			res := CollectorResult{Signal: c.Signal(), Partial: partial, Err: err, Duration: time.Since(start)}

			switch {
			case err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
				res.Outcome = OutcomeTimeout
				res.Partial = NewPartial(c.Signal())
			case err != nil:
				res.Outcome = OutcomeFailed
				res.Partial = NewPartial(c.Signal())
			case partial.Empty():
				res.Outcome = OutcomeEmpty
			default:
				res.Outcome = OutcomeOK
			}

			mu.Lock()
			results[i] = res
			mu.Unlock()

			return nil
		})
	}

	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// collect runs c but returns as soon as ctx is done, so a collector that ignores ctx cannot hold
// the request past its budget.
func collect(ctx context.Context, c Collector, in Input) (Partial, error) {
	type result struct {
		partial Partial
		err     error
	}

	done := make(chan result, 1)

	go func() {
		p, err := c.Collect(ctx, in)
		done <- result{partial: p, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && r.partial.Scores == nil {
			r.partial = NewPartial(c.Signal())
		}

		return r.partial, r.err
	case <-ctx.Done():
		return NewPartial(c.Signal()), ctx.Err()
	}
}
