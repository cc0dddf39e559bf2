package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/recommender/internal/api/middleware"
	"github.com/confhub/recommender/internal/api/response"
	"github.com/confhub/recommender/internal/huberrors"
	"github.com/confhub/recommender/internal/models"
	"github.com/confhub/recommender/internal/service"
)

// mockRecommendationService mocks RecommendationService for handler tests. Without a func it
// rejects malformed input the way the service does.
type mockRecommendationService struct {
	getFunc        func(ctx context.Context, req service.RecommendationRequest) (*models.RecommendationSet, error)
	invalidateFunc func(ctx context.Context, req service.InvalidateRequest) error
}

func (m *mockRecommendationService) Get(ctx context.Context, req service.RecommendationRequest) (*models.RecommendationSet, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, req)
	}

	if req.InputErr != nil {
		return nil, &service.InputError{Err: req.InputErr}
	}

	return &models.RecommendationSet{Recommendations: []models.Recommendation{}}, nil
}

func (m *mockRecommendationService) Invalidate(ctx context.Context, req service.InvalidateRequest) error {
	if m.invalidateFunc != nil {
		return m.invalidateFunc(ctx, req)
	}

	if req.InputErr != nil {
		return &service.InputError{Err: req.InputErr}
	}

	return nil
}

func newTestRouter(svc RecommendationService) http.Handler {
	h := NewRecommendationsHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.Credentials)
	r.Get("/v1/contexts/{contextId}/recommendations", h.Get)
	r.Delete("/v1/contexts/{contextId}/recommendations", h.Invalidate)

	return r
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) response.ProblemDetails {
	t.Helper()

	var problem response.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	return problem
}

func TestRecommendationsHandler_Get(t *testing.T) {
	conferenceID := uuid.New()
	subjectID := uuid.New()
	sessionID := uuid.New()

	t.Run("success passes credentials and query to the service", func(t *testing.T) {
		var captured service.RecommendationRequest

		mock := &mockRecommendationService{
			getFunc: func(_ context.Context, req service.RecommendationRequest) (*models.RecommendationSet, error) {
				captured = req

				return &models.RecommendationSet{
					Recommendations: []models.Recommendation{{
						SessionID:  sessionID,
						Title:      "Design systems",
						Score:      45,
						Reason:     "Matches your interests in Design",
						SignalType: models.SignalTypeInterestMatch,
					}},
					Cached: true,
				}, nil
			},
		}

		url := fmt.Sprintf("/v1/contexts/%s/recommendations?refresh=true&subjectId=%s", conferenceID, subjectID)
		req := httptest.NewRequest(http.MethodGet, url, http.NoBody)
		req.Header.Set("Authorization", "Bearer tok")
		req.RemoteAddr = "192.0.2.10:4321"

		rec := httptest.NewRecorder()
		newTestRouter(mock).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, service.RecommendationRequest{
			Token:        "tok",
			CallerKey:    "192.0.2.10",
			ConferenceID: conferenceID,
			SubjectID:    subjectID,
			ForceRefresh: true,
		}, captured)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["cached"])

		items, ok := body["recommendations"].([]any)
		require.True(t, ok)
		require.Len(t, items, 1)

		item, ok := items[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, sessionID.String(), item["itemId"])
		assert.Equal(t, "interest_match", item["signalType"])
		assert.InDelta(t, 45, item["score"], 0)
	})

	t.Run("empty result encodes an empty array", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/contexts/%s/recommendations", conferenceID), http.NoBody)
		rec := httptest.NewRecorder()
		newTestRouter(&mockRecommendationService{}).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"recommendations":[],"cached":false}`, rec.Body.String())
	})

	t.Run("invalid context id reaches the service and returns bad request", func(t *testing.T) {
		var captured service.RecommendationRequest

		mock := &mockRecommendationService{
			getFunc: func(_ context.Context, req service.RecommendationRequest) (*models.RecommendationSet, error) {
				captured = req

				return nil, &service.InputError{Err: req.InputErr}
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/contexts/not-a-uuid/recommendations?subjectId=abc", http.NoBody)
		req.RemoteAddr = "192.0.2.10:4321"
		rec := httptest.NewRecorder()
		newTestRouter(mock).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.Error(t, captured.InputErr)
		assert.Equal(t, "192.0.2.10", captured.CallerKey, "malformed requests are still keyed for rate limiting")
		assert.Equal(t, uuid.Nil, captured.SubjectID)
		assert.Contains(t, decodeProblem(t, rec).Detail, "contextId")
	})

	t.Run("rate limit wins over malformed input", func(t *testing.T) {
		mock := &mockRecommendationService{
			getFunc: func(context.Context, service.RecommendationRequest) (*models.RecommendationSet, error) {
				return nil, huberrors.NewLimitExceededError("too many requests", time.Second)
			},
		}

		rec := httptest.NewRecorder()
		newTestRouter(mock).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/contexts/not-a-uuid/recommendations", http.NoBody))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("invalid query returns validation problem", func(t *testing.T) {
		tests := []struct {
			name  string
			query string
		}{
			{name: "subject not a uuid", query: "subjectId=abc"},
			{name: "refresh not a bool", query: "refresh=maybe"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				url := fmt.Sprintf("/v1/contexts/%s/recommendations?%s", conferenceID, tt.query)
				rec := httptest.NewRecorder()
				newTestRouter(&mockRecommendationService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, http.NoBody))

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Equal(t, "Validation Error", decodeProblem(t, rec).Title)
			})
		}
	})
}

func TestRecommendationsHandler_errorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantHeader map[string]string
	}{
		{
			name:       "rate limited",
			err:        huberrors.NewLimitExceededError("too many requests", 1500*time.Millisecond),
			wantStatus: http.StatusTooManyRequests,
			wantHeader: map[string]string{"Retry-After": "2"},
		},
		{
			name:       "unauthenticated",
			err:        huberrors.NewUnauthenticatedError("invalid bearer token"),
			wantStatus: http.StatusUnauthorized,
			wantHeader: map[string]string{"WWW-Authenticate": `Bearer realm="recommender"`},
		},
		{
			name:       "forbidden",
			err:        huberrors.NewForbiddenError("not a member of this conference"),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "validation",
			err:        huberrors.NewValidationError("subjectId", "bad"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed input",
			err:        &service.InputError{Err: errors.New("contextId must be a valid UUID")},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "cancelled",
			err:        fmt.Errorf("compute: %w", context.Canceled),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unexpected",
			err:        errors.New("check membership: connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	conferenceID := uuid.New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockRecommendationService{
				getFunc: func(context.Context, service.RecommendationRequest) (*models.RecommendationSet, error) {
					return nil, tt.err
				},
				invalidateFunc: func(context.Context, service.InvalidateRequest) error {
					return tt.err
				},
			}
			router := newTestRouter(mock)
			url := fmt.Sprintf("/v1/contexts/%s/recommendations", conferenceID)

			for _, method := range []string{http.MethodGet, http.MethodDelete} {
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, httptest.NewRequest(method, url, http.NoBody))

				assert.Equal(t, tt.wantStatus, rec.Code, method)

				problem := decodeProblem(t, rec)
				assert.Equal(t, tt.wantStatus, problem.Status)

				for k, v := range tt.wantHeader {
					assert.Equal(t, v, rec.Header().Get(k), method)
				}
			}
		})
	}
}

func TestRecommendationsHandler_Invalidate(t *testing.T) {
	conferenceID := uuid.New()

	var captured service.InvalidateRequest

	mock := &mockRecommendationService{
		invalidateFunc: func(_ context.Context, req service.InvalidateRequest) error {
			captured = req

			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/contexts/%s/recommendations", conferenceID), http.NoBody)
	req.Header.Set("Authorization", "Bearer tok")
	req.RemoteAddr = "192.0.2.11:1"

	rec := httptest.NewRecorder()
	newTestRouter(mock).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, service.InvalidateRequest{Token: "tok", CallerKey: "192.0.2.11", ConferenceID: conferenceID}, captured)
}

func TestRecommendationsHandler_Invalidate_invalidContextID(t *testing.T) {
	var captured service.InvalidateRequest

	mock := &mockRecommendationService{
		invalidateFunc: func(_ context.Context, req service.InvalidateRequest) error {
			captured = req

			return &service.InputError{Err: req.InputErr}
		},
	}

	rec := httptest.NewRecorder()
	newTestRouter(mock).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/contexts/nope/recommendations", http.NoBody))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Error(t, captured.InputErr)
	assert.Equal(t, "Validation Error", decodeProblem(t, rec).Title)
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthHandler_Check(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
	}{
		{name: "no database configured", db: nil, wantStatus: http.StatusOK},
		{name: "database reachable", db: fakePinger{}, wantStatus: http.StatusOK},
		{name: "database down", db: fakePinger{err: errors.New("dial tcp: refused")}, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.db).Check(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
