package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RecommendationMetrics records the request pipeline: outcomes, collectors, enrichment, persistence.
type RecommendationMetrics interface {
	RecordRequest(ctx context.Context, outcome string, duration time.Duration)
	RecordCollector(ctx context.Context, signal, outcome string, duration time.Duration)
	RecordPrimaryMode(ctx context.Context, mode string)
	RecordEnrichment(ctx context.Context, outcome string)
	RecordPersistFailure(ctx context.Context)
	RecordProfileEmbedding(ctx context.Context, outcome string)
}

type recommendationMetrics struct {
	requests          metric.Int64Counter
	requestDuration   metric.Float64Histogram
	collectorOutcomes metric.Int64Counter
	collectorDuration metric.Float64Histogram
	primaryMode       metric.Int64Counter
	enrichment        metric.Int64Counter
	persistFailures   metric.Int64Counter
	profileEmbeddings metric.Int64Counter
}

// NewRecommendationMetrics creates RecommendationMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewRecommendationMetrics(meter metric.Meter) (RecommendationMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	requests, err := meter.Int64Counter(
		MetricNameRecommendationRequests,
		metric.WithDescription("Recommendation requests by outcome (served_cache, computed, rejected_*, ...)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create requests counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		MetricNameRecommendationDuration,
		metric.WithDescription("Recommendation request duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request duration histogram: %w", err)
	}

	collectorOutcomes, err := meter.Int64Counter(
		MetricNameCollectorOutcomes,
		metric.WithDescription("Signal collector outcomes by signal and outcome (ok, empty, failed, timeout)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create collector outcomes counter: %w", err)
	}

	collectorDuration, err := meter.Float64Histogram(
		MetricNameCollectorDuration,
		metric.WithDescription("Signal collector duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create collector duration histogram: %w", err)
	}

	primaryMode, err := meter.Int64Counter(
		MetricNamePrimaryMode,
		metric.WithDescription("Primary interest signal chosen per computed request"),
	)
	if err != nil {
		return nil, fmt.Errorf("create primary mode counter: %w", err)
	}

	enrichment, err := meter.Int64Counter(
		MetricNameEnrichmentOutcomes,
		metric.WithDescription("Explanation enrichment outcomes (generated, fallback, skipped)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create enrichment counter: %w", err)
	}

	persistFailures, err := meter.Int64Counter(
		MetricNameCachePersistFailures,
		metric.WithDescription("Recommendation cache writes that failed; the result was still returned"),
	)
	if err != nil {
		return nil, fmt.Errorf("create persist failures counter: %w", err)
	}

	profileEmbeddings, err := meter.Int64Counter(
		MetricNameProfileEmbeddings,
		metric.WithDescription("Profile interest embedding resolution outcomes"),
	)
	if err != nil {
		return nil, fmt.Errorf("create profile embeddings counter: %w", err)
	}

	return &recommendationMetrics{
		requests:          requests,
		requestDuration:   requestDuration,
		collectorOutcomes: collectorOutcomes,
		collectorDuration: collectorDuration,
		primaryMode:       primaryMode,
		enrichment:        enrichment,
		persistFailures:   persistFailures,
		profileEmbeddings: profileEmbeddings,
	}, nil
}

func (m *recommendationMetrics) RecordRequest(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedRequestOutcomes)))
	m.requests.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *recommendationMetrics) RecordCollector(ctx context.Context, signal, outcome string, duration time.Duration) {
	signal = NormalizeReason(signal, AllowedSignals)
	m.collectorOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrSignal, signal),
		attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedCollectorOutcomes)),
	))
	m.collectorDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(AttrSignal, signal)))
}

func (m *recommendationMetrics) RecordPrimaryMode(ctx context.Context, mode string) {
	m.primaryMode.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrMode, NormalizeReason(mode, AllowedPrimaryModes))))
}

func (m *recommendationMetrics) RecordEnrichment(ctx context.Context, outcome string) {
	m.enrichment.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedEnrichmentOutcomes)),
	))
}

func (m *recommendationMetrics) RecordPersistFailure(ctx context.Context) {
	m.persistFailures.Add(ctx, 1)
}

func (m *recommendationMetrics) RecordProfileEmbedding(ctx context.Context, outcome string) {
	m.profileEmbeddings.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedProfileEmbeddingOutcomes)),
	))
}
