package observability

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
)

// QueueMetrics exposes River queue depth as a gauge.
type QueueMetrics interface {
	SetRiverQueueDepth(depth int)
}

type queueMetrics struct {
	riverQueueDepth atomic.Int64
	riverQueueGauge metric.Float64ObservableGauge
}

// NewQueueMetrics creates QueueMetrics and registers the gauge. Returns (nil, nil) when meter is nil (metrics disabled).
func NewQueueMetrics(meter metric.Meter) (QueueMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	qm := &queueMetrics{}

	gauge, err := meter.Float64ObservableGauge(
		MetricNameRiverQueueDepth,
		metric.WithDescription("Current River embeddings queue depth (available/retryable/scheduled)"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(float64(qm.riverQueueDepth.Load()))

			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create river queue depth gauge: %w", err)
	}

	qm.riverQueueGauge = gauge

	return qm, nil
}

func (q *queueMetrics) SetRiverQueueDepth(depth int) {
	q.riverQueueDepth.Store(int64(depth))
}
