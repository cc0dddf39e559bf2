package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/confhub/recommender/internal/huberrors"
	"github.com/confhub/recommender/internal/models"
	"github.com/confhub/recommender/internal/observability"
	"github.com/confhub/recommender/internal/ranking"
)

// SessionsRepository lists the candidate sessions of a conference.
type SessionsRepository interface {
	ListByConference(ctx context.Context, conferenceID uuid.UUID) ([]models.Session, error)
}

// ProfilesRepository loads attendee profiles.
type ProfilesRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// InteractionsRepository loads an attendee's interactions within one conference.
type InteractionsRepository interface {
	ListByProfileAndConference(ctx context.Context, profileID, conferenceID uuid.UUID) ([]models.Interaction, error)
}

// RecommendationStore holds the last computed set per (profile, conference).
// Get returns a huberrors.NotFoundError when nothing is stored.
type RecommendationStore interface {
	Get(ctx context.Context, profileID, conferenceID uuid.UUID) (*models.CachedRecommendations, error)
	Replace(ctx context.Context, entry *models.CachedRecommendations) error
	Delete(ctx context.Context, profileID, conferenceID uuid.UUID) error
}

// Authenticator resolves a bearer credential to a profile ID.
type Authenticator interface {
	Authenticate(token string) (uuid.UUID, error)
}

// MembershipChecker reports whether a profile belongs to a conference.
type MembershipChecker interface {
	IsMember(ctx context.Context, conferenceID, profileID uuid.UUID) (bool, error)
}

// CallerLimiter admits or refuses one request for a caller key.
type CallerLimiter interface {
	Allow(key string) (bool, time.Duration)
}

// SubjectEmbedder resolves the embedding that represents a profile's interests.
type SubjectEmbedder interface {
	CanCompute() bool
	Resolve(ctx context.Context, profile *models.Profile) ([]float32, error)
}

// Enricher sets a reason on every ranked session and returns the enrichment outcome.
type Enricher interface {
	Enrich(ctx context.Context, profile *models.Profile, scored []ranking.Scored) string
}

// Request outcomes recorded per call.
const (
	OutcomeServedCache          = "served_cache"
	OutcomeComputed             = "computed"
	OutcomeInvalidated          = "invalidated"
	OutcomeRejectedRateLimited  = "rejected_rate_limited"
	OutcomeRejectedInvalid      = "rejected_invalid"
	OutcomeRejectedUnauthorized = "rejected_unauthenticated"
	OutcomeRejectedForbidden    = "rejected_forbidden"
	OutcomeCancelled            = "cancelled"
	OutcomeFailed               = "failed"
)

// RecommendationRequest asks for the caller's recommendations in one conference.
type RecommendationRequest struct {
	// Token is the bearer credential.
	Token string
	// CallerKey identifies the caller for rate limiting (client IP).
	CallerKey    string
	ConferenceID uuid.UUID
	// SubjectID is optional; when set it must match the authenticated profile.
	SubjectID    uuid.UUID
	ForceRefresh bool
	// InputErr is a malformed path or query found by the transport. The request is still
	// counted against the caller's rate limit, then rejected with an InputError.
	InputErr error
}

// InvalidateRequest asks to drop the caller's cached recommendations for one conference.
type InvalidateRequest struct {
	Token        string
	CallerKey    string
	ConferenceID uuid.UUID
	InputErr     error
}

// InputError rejects a request whose path or query could not be parsed.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }

// RecommendationConfig tunes ranking and caching.
type RecommendationConfig struct {
	Weights          ranking.Weights
	Limit            int
	CacheTTL         time.Duration
	CollectorTimeout time.Duration
}

// RecommendationDeps are the collaborators of RecommendationService. Limiter, Embedder, Enricher
// and Metrics may be nil.
type RecommendationDeps struct {
	Limiter      CallerLimiter
	Auth         Authenticator
	Membership   MembershipChecker
	Sessions     SessionsRepository
	Profiles     ProfilesRepository
	Interactions InteractionsRepository
	Store        RecommendationStore
	Embedder     SubjectEmbedder
	Enricher     Enricher
	Metrics      observability.RecommendationMetrics
}

// RecommendationService admits a request, serves it from the recommendation store while fresh,
// and otherwise ranks the conference's sessions for the caller and stores the result.
type RecommendationService struct {
	deps   RecommendationDeps
	cfg    RecommendationConfig
	tracer trace.Tracer
	now    func() time.Time
}

// NewRecommendationService creates the service.
func NewRecommendationService(deps RecommendationDeps, cfg RecommendationConfig) *RecommendationService {
	if deps.Embedder == nil {
		deps.Embedder = NewProfileEmbedder(nil, nil, "", 0, nil, nil)
	}

	if deps.Enricher == nil {
		deps.Enricher = NewExplanationEnricher(nil, 0, 0)
	}

	return &RecommendationService{
		deps:   deps,
		cfg:    cfg,
		tracer: otel.Tracer(observability.MeterScope),
		now:    time.Now,
	}
}

// Get returns the caller's recommendations. Only rejections (rate limit, malformed input,
// authentication, membership) and request cancellation are returned as errors; degraded signals still produce
// a response.
func (s *RecommendationService) Get(ctx context.Context, req RecommendationRequest) (*models.RecommendationSet, error) {
	start := time.Now()
	outcome := OutcomeFailed

	defer func() { s.recordRequest(ctx, outcome, time.Since(start)) }()

	subject, err := s.admit(req.CallerKey, req.Token, req.InputErr)
	if err != nil {
		outcome = requestOutcome(ctx, err)

		return nil, err
	}

	if req.SubjectID != uuid.Nil && req.SubjectID != subject {
		outcome = OutcomeRejectedForbidden

		return nil, huberrors.NewForbiddenError("subject does not match credentials")
	}

	if err := s.authorize(ctx, req.ConferenceID, subject); err != nil {
		outcome = requestOutcome(ctx, err)

		return nil, err
	}

	if !req.ForceRefresh {
		if entry, ok := s.lookup(ctx, subject, req.ConferenceID); ok {
			outcome = OutcomeServedCache

			return &models.RecommendationSet{Recommendations: entry.Recommendations, Cached: true}, nil
		}
	}

	set, err := s.compute(ctx, subject, req.ConferenceID)
	if err != nil {
		outcome = requestOutcome(ctx, err)

		return nil, err
	}

	outcome = OutcomeComputed

	return set, nil
}

// Invalidate drops the caller's stored recommendations so the next Get recomputes.
func (s *RecommendationService) Invalidate(ctx context.Context, req InvalidateRequest) error {
	start := time.Now()
	outcome := OutcomeFailed

	defer func() { s.recordRequest(ctx, outcome, time.Since(start)) }()

	subject, err := s.admit(req.CallerKey, req.Token, req.InputErr)
	if err != nil {
		outcome = requestOutcome(ctx, err)

		return err
	}

	if err := s.authorize(ctx, req.ConferenceID, subject); err != nil {
		outcome = requestOutcome(ctx, err)

		return err
	}

	if err := s.deps.Store.Delete(ctx, subject, req.ConferenceID); err != nil {
		outcome = requestOutcome(ctx, err)

		return fmt.Errorf("invalidate recommendations: %w", err)
	}

	slog.DebugContext(ctx, "recommendations: invalidated", "profile_id", subject, "conference_id", req.ConferenceID)

	outcome = OutcomeInvalidated

	return nil
}

// admit applies the per-caller rate limit, then rejects malformed input, then authenticates.
// Nothing is read before all of them pass.
func (s *RecommendationService) admit(callerKey, token string, inputErr error) (uuid.UUID, error) {
	if s.deps.Limiter != nil {
		if ok, retryAfter := s.deps.Limiter.Allow(callerKey); !ok {
			return uuid.Nil, huberrors.NewLimitExceededError("too many requests", retryAfter)
		}
	}

	if inputErr != nil {
		return uuid.Nil, &InputError{Err: inputErr}
	}

	subject, err := s.deps.Auth.Authenticate(token)
	if err != nil {
		if errors.Is(err, huberrors.ErrUnauthenticated) {
			return uuid.Nil, err
		}

		return uuid.Nil, huberrors.NewUnauthenticatedError("invalid bearer token")
	}

	return subject, nil
}

func (s *RecommendationService) authorize(ctx context.Context, conferenceID, subject uuid.UUID) error {
	member, err := s.deps.Membership.IsMember(ctx, conferenceID, subject)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}

	if !member {
		return huberrors.NewForbiddenError("not a member of this conference")
	}

	return nil
}

// lookup returns a fresh stored entry. Store errors other than not-found are logged and treated as a miss.
func (s *RecommendationService) lookup(ctx context.Context, subject, conferenceID uuid.UUID) (*models.CachedRecommendations, bool) {
	entry, err := s.deps.Store.Get(ctx, subject, conferenceID)
	if err != nil {
		if !errors.Is(err, huberrors.ErrNotFound) && ctx.Err() == nil {
			slog.WarnContext(ctx, "recommendations: cache read failed, recomputing",
				"profile_id", subject, "conference_id", conferenceID, "error", err)
		}

		return nil, false
	}

	if entry.Expired(s.now()) {
		return nil, false
	}

	if entry.Recommendations == nil {
		entry.Recommendations = []models.Recommendation{}
	}

	return entry, true
}

// baseData is what every collector reads. complete is false when a read failed and the result
// must not be stored.
type baseData struct {
	profile      *models.Profile
	sessions     []models.Session
	interactions []models.Interaction
	complete     bool
}

func (s *RecommendationService) load(ctx context.Context, subject, conferenceID uuid.UUID) (baseData, error) {
	var (
		wg              sync.WaitGroup
		profile         *models.Profile
		sessions        []models.Session
		interactions    []models.Interaction
		profileErr      error
		sessionsErr     error
		interactionsErr error
	)

	wg.Go(func() { profile, profileErr = s.deps.Profiles.GetByID(ctx, subject) })
	wg.Go(func() { sessions, sessionsErr = s.deps.Sessions.ListByConference(ctx, conferenceID) })
	wg.Go(func() {
		interactions, interactionsErr = s.deps.Interactions.ListByProfileAndConference(ctx, subject, conferenceID)
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return baseData{}, err
	}

	data := baseData{profile: profile, sessions: sessions, interactions: interactions, complete: true}

	if profileErr != nil || profile == nil {
		if profileErr != nil && !errors.Is(profileErr, huberrors.ErrNotFound) {
			slog.WarnContext(ctx, "recommendations: profile unavailable, ranking without interests",
				"profile_id", subject, "error", profileErr)

			data.complete = false
		}

		data.profile = &models.Profile{ID: subject}
	}

	if sessionsErr != nil {
		slog.WarnContext(ctx, "recommendations: sessions unavailable",
			"conference_id", conferenceID, "error", sessionsErr)

		data.sessions = nil
		data.complete = false
	}

	if interactionsErr != nil {
		slog.WarnContext(ctx, "recommendations: interactions unavailable, ranking without history",
			"profile_id", subject, "conference_id", conferenceID, "error", interactionsErr)

		data.interactions = nil
		data.complete = false
	}

	return data, nil
}

// choosePrimary decides the interest signal before any collector runs. Semantic ranking is chosen
// only when the subject embedding resolves and some session embedding has its dimension; the
// returned profile carries it.
func (s *RecommendationService) choosePrimary(
	ctx context.Context, profile *models.Profile, sessions []models.Session,
) (*models.Profile, ranking.PrimaryMode) {
	if ranking.ChoosePrimary(s.deps.Embedder.CanCompute(), profile, sessions) == ranking.PrimaryKeyword {
		return profile, ranking.PrimaryKeyword
	}

	resolveCtx := ctx

	if s.cfg.CollectorTimeout > 0 {
		var cancel context.CancelFunc

		resolveCtx, cancel = context.WithTimeout(ctx, s.cfg.CollectorTimeout)
		defer cancel()
	}

	embedding, err := s.deps.Embedder.Resolve(resolveCtx, profile)
	if err != nil {
		if ctx.Err() == nil {
			slog.WarnContext(ctx, "recommendations: subject embedding unavailable, ranking by keywords",
				"profile_id", profile.ID, "error", err)
		}

		return profile, ranking.PrimaryKeyword
	}

	if !ranking.HasComparableSession(embedding, sessions) {
		slog.WarnContext(ctx, "recommendations: no session embedding matches the subject dimension, ranking by keywords",
			"profile_id", profile.ID, "dimension", len(embedding))

		return profile, ranking.PrimaryKeyword
	}

	resolved := *profile
	resolved.Embedding = embedding

	return &resolved, ranking.PrimarySemantic
}

func (s *RecommendationService) compute(ctx context.Context, subject, conferenceID uuid.UUID) (*models.RecommendationSet, error) {
	ctx, span := s.tracer.Start(ctx, "recommendations.compute", trace.WithAttributes(
		attribute.String("conference_id", conferenceID.String()),
	))
	defer span.End()

	data, err := s.load(ctx, subject, conferenceID)
	if err != nil {
		return nil, err
	}

	history := models.NewInteractionHistory(data.interactions)

	profile, mode := s.choosePrimary(ctx, data.profile, data.sessions)
	span.SetAttributes(attribute.String("primary_mode", string(mode)))

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordPrimaryMode(ctx, string(mode))
	}

	in := ranking.Input{Profile: profile, History: history, Sessions: data.sessions}

	results, err := ranking.RunCollectors(ctx, buildCollectors(mode, s.cfg.Weights), in, s.cfg.CollectorTimeout)
	if err != nil {
		return nil, err
	}

	partials := make([]ranking.Partial, len(results))
	for i := range results {
		partials[i] = results[i].Partial
		s.recordCollector(ctx, &results[i])
	}

	scored := ranking.Aggregate(data.sessions, history, partials, s.cfg.Limit)

	enrichment := s.deps.Enricher.Enrich(ctx, profile, scored)
	if s.deps.Metrics != nil && len(scored) > 0 {
		s.deps.Metrics.RecordEnrichment(ctx, enrichment)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	recs := make([]models.Recommendation, len(scored))
	for i := range scored {
		recs[i] = scored[i].ToRecommendation()
	}

	span.SetAttributes(attribute.Int("recommendations", len(recs)))

	if data.complete {
		s.persist(ctx, subject, conferenceID, recs)
	}

	slog.DebugContext(ctx, "recommendations: computed",
		"profile_id", subject,
		"conference_id", conferenceID,
		"primary_mode", mode,
		"count", len(recs),
		"enrichment", enrichment,
	)

	return &models.RecommendationSet{Recommendations: recs, Cached: false}, nil
}

// persist replaces the stored set. A failed write is logged; the caller still gets the result.
func (s *RecommendationService) persist(
	ctx context.Context, subject, conferenceID uuid.UUID, recs []models.Recommendation,
) {
	now := s.now()

	entry := &models.CachedRecommendations{
		ProfileID:       subject,
		ConferenceID:    conferenceID,
		Recommendations: recs,
		ComputedAt:      now,
		ExpiresAt:       now.Add(s.cfg.CacheTTL),
	}

	if err := s.deps.Store.Replace(ctx, entry); err != nil {
		slog.WarnContext(ctx, "recommendations: cache write failed, returning unpersisted result",
			"profile_id", subject, "conference_id", conferenceID, "error", err)

		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordPersistFailure(ctx)
		}
	}
}

func (s *RecommendationService) recordCollector(ctx context.Context, r *ranking.CollectorResult) {
	if r.Outcome == ranking.OutcomeFailed || r.Outcome == ranking.OutcomeTimeout {
		slog.WarnContext(ctx, "recommendations: signal excluded",
			"signal", r.Signal, "outcome", r.Outcome, "duration", r.Duration, "error", r.Err)
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordCollector(ctx, string(r.Signal), string(r.Outcome), r.Duration)
	}
}

func (s *RecommendationService) recordRequest(ctx context.Context, outcome string, duration time.Duration) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordRequest(context.WithoutCancel(ctx), outcome, duration)
	}
}

func requestOutcome(ctx context.Context, err error) string {
	var inputErr *InputError

	switch {
	case errors.Is(err, huberrors.ErrLimitExceeded):
		return OutcomeRejectedRateLimited
	case errors.As(err, &inputErr):
		return OutcomeRejectedInvalid
	case errors.Is(err, huberrors.ErrUnauthenticated):
		return OutcomeRejectedUnauthorized
	case errors.Is(err, huberrors.ErrForbidden):
		return OutcomeRejectedForbidden
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}
