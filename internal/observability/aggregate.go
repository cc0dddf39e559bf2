package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all recommender metric collectors. When metrics are disabled, all fields are nil.
// Components that accept an interface can receive the corresponding field; they already handle nil.
type Metrics struct {
	HTTP            HTTPMetrics
	Recommendations RecommendationMetrics
	Embeddings      EmbeddingMetrics
	Cache           CacheMetrics
	Queue           QueueMetrics
}

// NewMetrics creates every metric collector from the given meter.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	httpMetrics, err := NewHTTPMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	recommendations, err := NewRecommendationMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("recommendation metrics: %w", err)
	}

	embeddings, err := NewEmbeddingMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("embedding metrics: %w", err)
	}

	cache, err := NewCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	queue, err := NewQueueMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("queue metrics: %w", err)
	}

	return &Metrics{
		HTTP:            httpMetrics,
		Recommendations: recommendations,
		Embeddings:      embeddings,
		Cache:           cache,
		Queue:           queue,
	}, nil
}
