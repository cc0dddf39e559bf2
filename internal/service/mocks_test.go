package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/confhub/recommender/internal/huberrors"
	"github.com/confhub/recommender/internal/models"
)

type mockEmbeddingClient struct {
	createFunc func(ctx context.Context, input string) ([]float32, error)
	calls      atomic.Int32
}

func (m *mockEmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	m.calls.Add(1)

	if m.createFunc != nil {
		return m.createFunc(ctx, input)
	}

	return []float32{0.1}, nil
}

type setEmbeddingCall struct {
	id        uuid.UUID
	model     string
	embedding []float32
	updatedAt time.Time
}

type mockProfilesRepo struct {
	getFunc          func(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	setEmbeddingFunc func(ctx context.Context, id uuid.UUID, model string, embedding []float32, updatedAt time.Time) error

	mu       sync.Mutex
	setCalls []setEmbeddingCall
}

func (m *mockProfilesRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}

	return &models.Profile{ID: id}, nil
}

func (m *mockProfilesRepo) SetEmbedding(
	ctx context.Context, id uuid.UUID, model string, embedding []float32, updatedAt time.Time,
) error {
	m.mu.Lock()
	m.setCalls = append(m.setCalls, setEmbeddingCall{id: id, model: model, embedding: embedding, updatedAt: updatedAt})
	m.mu.Unlock()

	if m.setEmbeddingFunc != nil {
		return m.setEmbeddingFunc(ctx, id, model, embedding, updatedAt)
	}

	return nil
}

func (m *mockProfilesRepo) SetCalls() []setEmbeddingCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]setEmbeddingCall(nil), m.setCalls...)
}

type mockSessionsRepo struct {
	listFunc func(ctx context.Context, conferenceID uuid.UUID) ([]models.Session, error)
	calls    atomic.Int32
}

func (m *mockSessionsRepo) ListByConference(ctx context.Context, conferenceID uuid.UUID) ([]models.Session, error) {
	m.calls.Add(1)

	if m.listFunc != nil {
		return m.listFunc(ctx, conferenceID)
	}

	return nil, nil
}

type mockInteractionsRepo struct {
	listFunc func(ctx context.Context, profileID, conferenceID uuid.UUID) ([]models.Interaction, error)
}

func (m *mockInteractionsRepo) ListByProfileAndConference(
	ctx context.Context, profileID, conferenceID uuid.UUID,
) ([]models.Interaction, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, profileID, conferenceID)
	}

	return nil, nil
}

type mockMembership struct {
	isMemberFunc func(ctx context.Context, conferenceID, profileID uuid.UUID) (bool, error)
}

func (m *mockMembership) IsMember(ctx context.Context, conferenceID, profileID uuid.UUID) (bool, error) {
	if m.isMemberFunc != nil {
		return m.isMemberFunc(ctx, conferenceID, profileID)
	}

	return true, nil
}

type mockAuthenticator struct {
	authenticateFunc func(token string) (uuid.UUID, error)
}

func (m *mockAuthenticator) Authenticate(token string) (uuid.UUID, error) {
	return m.authenticateFunc(token)
}

// staticAuth accepts exactly one token for one subject.
func staticAuth(token string, subject uuid.UUID) *mockAuthenticator {
	return &mockAuthenticator{authenticateFunc: func(got string) (uuid.UUID, error) {
		if got != token {
			return uuid.Nil, huberrors.NewUnauthenticatedError("invalid bearer token")
		}

		return subject, nil
	}}
}

type mockTextGenerator struct {
	generateFunc func(ctx context.Context, system, prompt string) (string, error)
	calls        atomic.Int32
}

func (m *mockTextGenerator) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	m.calls.Add(1)

	return m.generateFunc(ctx, system, prompt)
}

type mockRecommendationStore struct {
	getFunc     func(ctx context.Context, profileID, conferenceID uuid.UUID) (*models.CachedRecommendations, error)
	replaceFunc func(ctx context.Context, entry *models.CachedRecommendations) error
	deleteFunc  func(ctx context.Context, profileID, conferenceID uuid.UUID) error
}

func (m *mockRecommendationStore) Get(
	ctx context.Context, profileID, conferenceID uuid.UUID,
) (*models.CachedRecommendations, error) {
	return m.getFunc(ctx, profileID, conferenceID)
}

func (m *mockRecommendationStore) Replace(ctx context.Context, entry *models.CachedRecommendations) error {
	return m.replaceFunc(ctx, entry)
}

func (m *mockRecommendationStore) Delete(ctx context.Context, profileID, conferenceID uuid.UUID) error {
	return m.deleteFunc(ctx, profileID, conferenceID)
}

type fakeRecommendationMetrics struct {
	mu                sync.Mutex
	requests          []string
	collectors        map[string]string
	primaryModes      []string
	enrichments       []string
	persistFailures   int
	profileEmbeddings []string
}

func (f *fakeRecommendationMetrics) RecordRequest(_ context.Context, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, outcome)
}

func (f *fakeRecommendationMetrics) RecordCollector(_ context.Context, signal, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.collectors == nil {
		f.collectors = make(map[string]string)
	}

	f.collectors[signal] = outcome
}

func (f *fakeRecommendationMetrics) RecordPrimaryMode(_ context.Context, mode string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.primaryModes = append(f.primaryModes, mode)
}

func (f *fakeRecommendationMetrics) RecordEnrichment(_ context.Context, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.enrichments = append(f.enrichments, outcome)
}

func (f *fakeRecommendationMetrics) RecordPersistFailure(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.persistFailures++
}

func (f *fakeRecommendationMetrics) RecordProfileEmbedding(_ context.Context, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.profileEmbeddings = append(f.profileEmbeddings, outcome)
}

func (f *fakeRecommendationMetrics) lastRequest() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.requests) == 0 {
		return ""
	}

	return f.requests[len(f.requests)-1]
}
