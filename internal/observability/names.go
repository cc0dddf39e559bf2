// Package observability provides OpenTelemetry metrics and tracing for the recommender API.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameHTTPRequests        = "recommender_http_requests_total"
	MetricNameHTTPRequestDuration = "recommender_http_request_duration_seconds"

	MetricNameRecommendationRequests = "recommender_requests_total"
	MetricNameRecommendationDuration = "recommender_request_duration_seconds"
	MetricNameCollectorOutcomes      = "recommender_collector_outcomes_total"
	MetricNameCollectorDuration      = "recommender_collector_duration_seconds"
	MetricNamePrimaryMode            = "recommender_primary_mode_total"
	MetricNameEnrichmentOutcomes     = "recommender_enrichment_outcomes_total"
	MetricNameCachePersistFailures   = "recommender_cache_persist_failures_total"
	MetricNameProfileEmbeddings      = "recommender_profile_embeddings_total"

	MetricNameCacheHits   = "recommender_cache_hits_total"
	MetricNameCacheMisses = "recommender_cache_misses_total"

	MetricNameEmbeddingJobsEnqueued   = "recommender_embedding_jobs_enqueued_total"
	MetricNameEmbeddingProviderErrors = "recommender_embedding_provider_errors_total"
	MetricNameEmbeddingOutcomes       = "recommender_embedding_outcomes_total"
	MetricNameEmbeddingWorkerErrors   = "recommender_embedding_worker_errors_total"
	MetricNameEmbeddingDuration       = "recommender_embedding_duration_seconds"

	MetricNameRiverQueueDepth = "recommender_river_queue_depth"
)

// Attribute keys.
const (
	AttrOutcome = "outcome"
	AttrReason  = "reason"
	AttrSignal  = "signal"
	AttrStatus  = "status"
	AttrMode    = "mode"
	AttrCache   = "cache"
)

// AllowedRequestOutcomes for recommender_requests_total and recommender_request_duration_seconds.
var AllowedRequestOutcomes = map[string]bool{
	"served_cache":             true,
	"computed":                 true,
	"invalidated":              true,
	"rejected_rate_limited":    true,
	"rejected_invalid":         true,
	"rejected_unauthenticated": true,
	"rejected_forbidden":       true,
	"cancelled":                true,
	"failed":                   true,
}

// AllowedSignals for collector metrics.
var AllowedSignals = map[string]bool{
	"semantic":   true,
	"keyword":    true,
	"behavioral": true,
	"editorial":  true,
}

// AllowedCollectorOutcomes for recommender_collector_outcomes_total.
var AllowedCollectorOutcomes = map[string]bool{
	"ok":      true,
	"empty":   true,
	"failed":  true,
	"timeout": true,
}

// AllowedPrimaryModes for recommender_primary_mode_total.
var AllowedPrimaryModes = map[string]bool{
	"semantic_active":     true,
	"keyword_fallback":    true,
	"semantic_downgraded": true,
}

// AllowedEnrichmentOutcomes for recommender_enrichment_outcomes_total.
var AllowedEnrichmentOutcomes = map[string]bool{
	"generated": true,
	"fallback":  true,
	"skipped":   true,
}

// AllowedProfileEmbeddingOutcomes for recommender_profile_embeddings_total.
var AllowedProfileEmbeddingOutcomes = map[string]bool{
	"reused":         true,
	"computed":       true,
	"failed":         true,
	"persist_failed": true,
}

// AllowedCacheNames for cache hit/miss metrics.
var AllowedCacheNames = map[string]bool{
	"recommendations":    true,
	"interest_embedding": true,
	"membership":         true,
}

// AllowedEmbeddingProviderReason for recommender_embedding_provider_errors_total.
var AllowedEmbeddingProviderReason = map[string]bool{
	"list_failed":    true,
	"enqueue_failed": true,
}

// AllowedEmbeddingWorkerReason for recommender_embedding_worker_errors_total.
var AllowedEmbeddingWorkerReason = map[string]bool{
	"get_session_failed": true,
	"provider_failed":    true,
	"update_failed":      true,
	"rate_limit_wait":    true,
}

// AllowedEmbeddingOutcomeStatus reports whether status is a known embedding job outcome.
func AllowedEmbeddingOutcomeStatus(status string) bool {
	switch status {
	case "success", "retry", "failed_final", "skipped":
		return true
	default:
		return false
	}
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}

// NormalizeCacheName returns name if it is a known cache, otherwise "other".
func NormalizeCacheName(name string) string {
	return NormalizeReason(name, AllowedCacheNames)
}
