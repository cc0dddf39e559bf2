package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(signal Signal, scores map[uuid.UUID]Contribution) Collector {
	return CollectorFunc{Name: signal, Fn: func(context.Context, Input) (Partial, error) {
		return Partial{Signal: signal, Scores: scores}, nil
	}}
}

func TestRunCollectors(t *testing.T) {
	id := uuid.MustParse("0190d000-0000-7000-8000-000000000001")

	t.Run("keeps order and classifies outcomes", func(t *testing.T) {
		collectors := []Collector{
			fixed(SignalSemantic, map[uuid.UUID]Contribution{id: flat(10)}),
			CollectorFunc{Name: SignalBehavioral, Fn: func(context.Context, Input) (Partial, error) {
				return Partial{}, errors.New("store unavailable")
			}},
			CollectorFunc{Name: SignalEditorial, Fn: func(context.Context, Input) (Partial, error) {
				return Partial{}, nil
			}},
		}

		results, err := RunCollectors(context.Background(), collectors, Input{}, time.Second)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, OutcomeOK, results[0].Outcome)
		assert.Len(t, results[0].Partial.Scores, 1)

		assert.Equal(t, OutcomeFailed, results[1].Outcome)
		assert.True(t, results[1].Partial.Empty())
		assert.Error(t, results[1].Err)

		assert.Equal(t, OutcomeEmpty, results[2].Outcome)
		assert.NotNil(t, results[2].Partial.Scores)
	})

	t.Run("slow collector times out without blocking others", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		collectors := []Collector{
			CollectorFunc{Name: SignalSemantic, Fn: func(context.Context, Input) (Partial, error) {
				<-release // ignores ctx on purpose

				return NewPartial(SignalSemantic), nil
			}},
			fixed(SignalEditorial, map[uuid.UUID]Contribution{id: flat(20)}),
		}

		start := time.Now()
		results, err := RunCollectors(context.Background(), collectors, Input{}, 20*time.Millisecond)
		require.NoError(t, err)

		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, OutcomeTimeout, results[0].Outcome)
		assert.True(t, results[0].Partial.Empty())
		assert.Equal(t, OutcomeOK, results[1].Outcome)
	})

	t.Run("parent cancellation is returned", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		collectors := []Collector{
			CollectorFunc{Name: SignalSemantic, Fn: func(ctx context.Context, _ Input) (Partial, error) {
				<-ctx.Done()

				return Partial{}, ctx.Err()
			}},
		}

		results, err := RunCollectors(ctx, collectors, Input{}, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, results)
	})
}
