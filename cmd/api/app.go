package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/confhub/recommender/internal/api/handlers"
	"github.com/confhub/recommender/internal/api/middleware"
	"github.com/confhub/recommender/internal/auth"
	"github.com/confhub/recommender/internal/config"
	"github.com/confhub/recommender/internal/jobs"
	"github.com/confhub/recommender/internal/observability"
	"github.com/confhub/recommender/internal/ranking"
	"github.com/confhub/recommender/internal/repository"
	"github.com/confhub/recommender/internal/service"
	"github.com/confhub/recommender/internal/workers"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	server         *http.Server
	river          *river.Client[pgx.Tx]
	limiter        *service.RateLimiter
	embedder       *service.ProfileEmbedder
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *observability.Metrics
}

const (
	riverQueueDepthInterval = 15 * time.Second
	memoryCacheMaxEntries   = 50000
)

// setupMetrics creates the meter provider and recommender metrics when metrics are enabled.
// When NewMeterProvider returns nil (unsupported or disabled exporter), returns nils (metrics disabled).
func setupMetrics(cfg *config.Config) (*sdkmetric.MeterProvider, http.Handler, *observability.Metrics, error) {
	mp, promHandler, err := observability.NewMeterProvider(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	if mp == nil {
		return nil, nil, nil, nil
	}

	metrics, err := observability.NewMetrics(mp.Meter(observability.MeterScope))
	if err != nil {
		if err2 := observability.ShutdownMeterProvider(context.Background(), mp); err2 != nil {
			slog.Error("shutdown meter provider after metrics error", "error", err2)
		}

		return nil, nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	return mp, promHandler, metrics, nil
}

// metricSet splits the aggregate into the per-component interfaces; all nil when metrics are off.
type metricSet struct {
	http            observability.HTTPMetrics
	recommendations observability.RecommendationMetrics
	embeddings      observability.EmbeddingMetrics
	cache           observability.CacheMetrics
}

func splitMetrics(m *observability.Metrics) metricSet {
	if m == nil {
		return metricSet{}
	}

	return metricSet{
		http:            m.HTTP,
		recommendations: m.Recommendations,
		embeddings:      m.Embeddings,
		cache:           m.Cache,
	}
}

// NewApp builds and wires all components. It does not start the HTTP server or River;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	var (
		err           error
		meterProvider *sdkmetric.MeterProvider
		promHandler   http.Handler
		metrics       *observability.Metrics
	)

	if cfg.OtelMetricsExporter == "" {
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or unset)")
	} else {
		meterProvider, promHandler, metrics, err = setupMetrics(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tracerProvider *sdktrace.TracerProvider

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(cfg)
		if err != nil {
			if err2 := observability.ShutdownMeterProvider(context.Background(), meterProvider); err2 != nil {
				slog.Error("shutdown meter provider after tracer provider error", "error", err2)
			}

			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
	}

	// Install TraceContextHandler unconditionally so request_id (and trace_id/span_id when tracing is on) appear in logs.
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(slog.Default().Handler())))

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	}

	app, err := wire(ctx, cfg, db, metrics, promHandler, meterProvider, tracerProvider)
	if err != nil {
		if err2 := shutdownObservability(context.Background(), tracerProvider, meterProvider); err2 != nil {
			slog.Error("shutdown observability after wiring error", "error", err2)
		}

		return nil, err
	}

	return app, nil
}

func wire(
	ctx context.Context,
	cfg *config.Config,
	db *pgxpool.Pool,
	metrics *observability.Metrics,
	promHandler http.Handler,
	meterProvider *sdkmetric.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) (*App, error) {
	m := splitMetrics(metrics)

	authenticator, err := auth.NewJWTAuthenticator(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("create authenticator: %w", err)
	}

	providerHTTP := newProviderHTTPClient(cfg.ProviderMaxRetries)

	embeddingClient, err := newEmbeddingClient(ctx, cfg, providerHTTP)
	if err != nil {
		return nil, err
	}

	generator, err := newTextGenerator(ctx, cfg, providerHTTP)
	if err != nil {
		return nil, err
	}

	embeddingModel := embeddingModelForDB(cfg)
	sessionsRepo := repository.NewSessionsRepository(db, embeddingModel)
	profilesRepo := repository.NewProfilesRepository(db)

	var store service.RecommendationStore
	if cfg.RecommendationCacheBackend == "memory" {
		store = service.NewMemoryRecommendationStore(memoryCacheMaxEntries, cfg.RecommendationCacheTTL)
	} else {
		store = repository.NewRecommendationCacheRepository(db)
	}

	limiter := service.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	embedder := service.NewProfileEmbedder(embeddingClient, profilesRepo, embeddingModel, cfg.ProfileEmbeddingMaxAge, m.recommendations, m.cache)

	recommendations := service.NewRecommendationService(service.RecommendationDeps{
		Limiter:      limiter,
		Auth:         authenticator,
		Membership:   service.NewCachingMembershipChecker(repository.NewMembershipsRepository(db), cfg.MembershipCacheTTL, m.cache),
		Sessions:     sessionsRepo,
		Profiles:     profilesRepo,
		Interactions: repository.NewInteractionsRepository(db),
		Store:        store,
		Embedder:     embedder,
		Enricher:     service.NewExplanationEnricher(generator, cfg.ExplanationTopK, cfg.ExplanationTimeout),
		Metrics:      m.recommendations,
	}, service.RecommendationConfig{
		Weights: ranking.Weights{
			Semantic:          cfg.WeightSemantic,
			KeywordMatch:      cfg.WeightKeywordMatch,
			BehavioralFirst:   cfg.WeightBehavioralFirst,
			BehavioralStacked: cfg.WeightBehavioralStacked,
			Editorial:         cfg.WeightEditorial,
		},
		Limit:            cfg.RecommendationLimit,
		CacheTTL:         cfg.RecommendationCacheTTL,
		CollectorTimeout: cfg.CollectorTimeout,
	})

	var riverClient *river.Client[pgx.Tx]

	if embeddingClient != nil {
		riverClient, err = newRiverClient(cfg, db, sessionsRepo, embeddingClient, m.embeddings)
		if err != nil {
			return nil, err
		}
	} else {
		slog.Info("session embedding jobs disabled (EMBEDDING_PROVIDER empty or unsupported)")
	}

	server := newHTTPServer(
		cfg,
		handlers.NewHealthHandler(db),
		handlers.NewRecommendationsHandler(recommendations),
		promHandler,
		m.http,
		meterProvider, tracerProvider,
	)

	return &App{
		cfg:            cfg,
		db:             db,
		server:         server,
		river:          riverClient,
		limiter:        limiter,
		embedder:       embedder,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		metrics:        metrics,
	}, nil
}

// newRiverClient registers the session embedding worker on the embeddings queue.
func newRiverClient(
	cfg *config.Config,
	db *pgxpool.Pool,
	sessions *repository.SessionsRepository,
	client service.EmbeddingClient,
	metrics observability.EmbeddingMetrics,
) (*river.Client[pgx.Tx], error) {
	var limiter *rate.Limiter
	if cfg.EmbeddingRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1)
	}

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewSessionEmbeddingWorker(
		sessions, client, embeddingModelForDB(cfg), limiter, metrics,
	))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			service.EmbeddingsQueueName: {MaxWorkers: cfg.EmbeddingMaxConcurrent},
		},
		Workers:      riverWorkers,
		ErrorHandler: jobs.NewErrorHandler(metrics),
	})
	if err != nil {
		return nil, fmt.Errorf("create River client: %w", err)
	}

	return riverClient, nil
}

// newHTTPServer builds the router: /health and /metrics are public, /v1 carries credentials.
// Handler chain: RequestID -> otelhttp(Metrics(Logging(router))) so access logs get trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	health *handlers.HealthHandler,
	recommendations *handlers.RecommendationsHandler,
	promHandler http.Handler,
	httpMetrics observability.HTTPMetrics,
	meterProvider *sdkmetric.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	router := chi.NewRouter()
	router.Use(middleware.Metrics(httpMetrics))

	router.Get("/health", health.Check)

	if promHandler != nil {
		router.Method(http.MethodGet, "/metrics", promHandler)
	}

	router.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Credentials)
		r.Get("/contexts/{contextId}/recommendations", recommendations.Get)
		r.Delete("/contexts/{contextId}/recommendations", recommendations.Invalidate)
	})

	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for health checks and scrapes to reduce noise.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	// Logging runs inside otelhttp so r.Context() has the span when we log (trace_id/span_id in access logs).
	inner := middleware.Logging(slog.Default())(router)
	handler := otelhttp.NewHandler(inner, "recommender-api", otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 30 * time.Second
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and River, then blocks until ctx is cancelled (e.g. signal)
// or a component fails. When ctx is cancelled or a component fails, it cancels the internal
// background context so River, the rate limit sweeper and the queue depth poller stop before Run returns.
// Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	go a.limiter.RunSweeper(bgCtx)

	if a.river != nil {
		if a.metrics != nil && a.metrics.Queue != nil {
			go runRiverQueueDepthPoller(bgCtx, a.db, a.metrics.Queue)
		}

		go func() {
			if err := a.river.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				select {
				case runErr <- fmt.Errorf("river: %w", err):
				default:
				}
			}
		}()
	}

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelBackground()

		return err
	case <-ctx.Done():
		cancelBackground()

		return nil
	}
}

// runRiverQueueDepthPoller periodically updates the embeddings queue depth gauge.
func runRiverQueueDepthPoller(ctx context.Context, db *pgxpool.Pool, queueMetrics observability.QueueMetrics) {
	ticker := time.NewTicker(riverQueueDepthInterval)
	defer ticker.Stop()

	update := func() {
		var count int

		err := db.QueryRow(ctx,
			`SELECT COUNT(*) FROM river_job WHERE queue = $1 AND state IN ($2, $3, $4)`,
			service.EmbeddingsQueueName,
			rivertype.JobStateAvailable, rivertype.JobStateRetryable, rivertype.JobStateScheduled,
		).Scan(&count)
		if err != nil {
			if ctx.Err() == nil {
				slog.WarnContext(ctx, "river queue depth poll failed", "error", err)
			}

			return
		}

		queueMetrics.SetRiverQueueDepth(count)
	}

	update()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter *sdkmetric.MeterProvider) error {
	var first error

	if tracer != nil {
		if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
			first = err
		}
	}

	if meter != nil {
		if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
			if first == nil {
				first = err
			} else {
				slog.Error("shutdown meter provider", "error", err)
			}
		}
	}

	return first
}

// Shutdown stops the server, waits for profile embedding write-backs, then stops River.
// Call after Run returns. Observability is shut down last; its error is returned only when
// server and River shut down successfully.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if stopErr := a.stopRiver(ctx); stopErr != nil {
			slog.Error("river stop during server shutdown", "error", stopErr)
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	a.embedder.Wait()

	return a.stopRiver(ctx)
}

func (a *App) stopRiver(ctx context.Context) error {
	if a.river == nil {
		return nil
	}

	if err := a.river.Stop(ctx); err != nil {
		return fmt.Errorf("river stop: %w", err)
	}

	return nil
}
