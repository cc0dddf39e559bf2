// Package openai provides a thin wrapper around the official OpenAI Go SDK for embeddings
// and short text generation.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
	ErrEmptyInput = errors.New("openai: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("openai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("openai: embedding dimension mismatch")
)

const (
	defaultDimension      = 1536
	defaultEmbeddingModel = "text-embedding-3-small"
)

// Client calls the OpenAI embeddings API via the official SDK.
type Client struct {
	sdk        openaisdk.Client
	model      string
	dimensions int
}

// ClientOption configures the Client.
type ClientOption func(*settings)

type settings struct {
	model      string
	dimensions int
	maxTokens  int
	requestOpt []option.RequestOption
}

// WithDimensions sets the requested embedding dimension (must match DB column).
func WithDimensions(dim int) ClientOption {
	return func(s *settings) {
		s.dimensions = dim
	}
}

// WithModel sets the model name. Empty keeps the default for the client kind.
func WithModel(model string) ClientOption {
	return func(s *settings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithHTTPClient routes SDK calls through httpClient and disables the SDK's own retries,
// so retry policy lives in one place (e.g. a retryablehttp standard client).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(s *settings) {
		s.requestOpt = append(s.requestOpt, option.WithHTTPClient(httpClient), option.WithMaxRetries(0))
	}
}

// WithBaseURL overrides the API base URL (proxies, tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(s *settings) {
		s.requestOpt = append(s.requestOpt, option.WithBaseURL(baseURL))
	}
}

func newSettings(apiKey, defaultModel string, opts []ClientOption) *settings {
	s := &settings{
		model:      defaultModel,
		dimensions: defaultDimension,
		maxTokens:  defaultMaxTokens,
		requestOpt: []option.RequestOption{option.WithAPIKey(apiKey)},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewClient creates an OpenAI embeddings client using the official SDK.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	s := newSettings(apiKey, defaultEmbeddingModel, opts)

	return &Client{
		sdk:        openaisdk.NewClient(s.requestOpt...),
		model:      s.model,
		dimensions: s.dimensions,
	}
}

// CreateEmbedding returns the embedding vector for the given text.
// The returned slice length equals the configured dimensions.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	if c.dimensions <= 0 {
		return nil, ErrInvalidDims
	}

	resp, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(input),
		},
		Model:      openaisdk.EmbeddingModel(c.model),
		Dimensions: param.NewOpt(int64(c.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Data[0].Embedding
	if len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	out := make([]float32, len(emb))
	for i := range emb {
		out[i] = float32(emb[i])
	}

	return out, nil
}
