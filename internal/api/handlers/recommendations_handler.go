// Package handlers implements the HTTP handlers of the recommendation API.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/confhub/recommender/internal/api/middleware"
	"github.com/confhub/recommender/internal/api/response"
	"github.com/confhub/recommender/internal/api/validation"
	"github.com/confhub/recommender/internal/huberrors"
	"github.com/confhub/recommender/internal/models"
	"github.com/confhub/recommender/internal/service"
)

// RecommendationService defines the orchestrator operations exposed over HTTP.
type RecommendationService interface {
	Get(ctx context.Context, req service.RecommendationRequest) (*models.RecommendationSet, error)
	Invalidate(ctx context.Context, req service.InvalidateRequest) error
}

// RecommendationsHandler handles HTTP requests for personalized session recommendations.
type RecommendationsHandler struct {
	service RecommendationService
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(service RecommendationService) *RecommendationsHandler {
	return &RecommendationsHandler{service: service}
}

// Get handles GET /v1/contexts/{contextId}/recommendations. Malformed input is passed to the
// service, which counts it against the caller's rate limit before rejecting it.
// @Summary Get personalized session recommendations
// @Tags Recommendations
// @Produce json
// @Param contextId path string true "Conference ID (UUID)"
// @Param refresh query bool false "Bypass the cached result"
// @Param subjectId query string false "Attendee profile ID; must match the bearer subject"
// @Success 200 {object} RecommendationSet
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Security BearerAuth
// @Router /v1/contexts/{contextId}/recommendations [get]
func (h *RecommendationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	req := service.RecommendationRequest{
		Token:     middleware.BearerToken(r.Context()),
		CallerKey: middleware.CallerKey(r.Context()),
	}

	conferenceID, err := validation.ParsePathUUID("contextId", chi.URLParam(r, "contextId"))
	if err != nil {
		req.InputErr = err
	} else {
		req.ConferenceID = conferenceID

		var query validation.RecommendationsQuery
		if err := validation.ValidateAndDecodeQueryParams(r, &query); err != nil {
			req.InputErr = err
		} else {
			req.SubjectID = query.Subject()
			req.ForceRefresh = query.Refresh
		}
	}

	set, err := h.service.Get(r.Context(), req)
	if err != nil {
		respondServiceError(r.Context(), w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, set)
}

// Invalidate handles DELETE /v1/contexts/{contextId}/recommendations
// @Summary Drop the caller's cached recommendations
// @Tags Recommendations
// @Param contextId path string true "Conference ID (UUID)"
// @Success 204
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Security BearerAuth
// @Router /v1/contexts/{contextId}/recommendations [delete]
func (h *RecommendationsHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	conferenceID, inputErr := validation.ParsePathUUID("contextId", chi.URLParam(r, "contextId"))

	err := h.service.Invalidate(r.Context(), service.InvalidateRequest{
		Token:        middleware.BearerToken(r.Context()),
		CallerKey:    middleware.CallerKey(r.Context()),
		ConferenceID: conferenceID,
		InputErr:     inputErr,
	})
	if err != nil {
		respondServiceError(r.Context(), w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func respondServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		limitErr *huberrors.LimitExceededError
		inputErr *service.InputError
	)

	switch {
	case errors.As(err, &limitErr):
		response.RespondTooManyRequests(w, limitErr.Error(), limitErr.RetryAfter)
	case errors.As(err, &inputErr):
		validation.RespondValidationError(w, inputErr.Err)
	case errors.Is(err, huberrors.ErrUnauthenticated):
		response.RespondUnauthorized(w, err.Error())
	case errors.Is(err, huberrors.ErrForbidden):
		response.RespondForbidden(w, err.Error())
	case errors.Is(err, huberrors.ErrValidation):
		response.RespondBadRequest(w, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.RespondServiceUnavailable(w, "request was cancelled before recommendations were ready")
	default:
		slog.ErrorContext(ctx, "recommendations request failed", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
	}
}
