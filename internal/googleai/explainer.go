package googleai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"
)

// ErrNoCandidate is returned when the response has no text candidate.
var ErrNoCandidate = errors.New("googleai: no candidate in response")

const (
	defaultChatModel = "gemini-2.0-flash"
	defaultMaxTokens = 400
)

// Explainer generates short text via GenerateContent.
type Explainer struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// WithMaxTokens caps output tokens per call.
func WithMaxTokens(n int) ClientOption {
	return func(s *settings) {
		if n > 0 && n <= math.MaxInt32 {
			s.maxTokens = n
		}
	}
}

// NewExplainer creates a Gemini text generation client.
func NewExplainer(ctx context.Context, apiKey string, opts ...ClientOption) (*Explainer, error) {
	genaiClient, s, err := newGenAIClient(ctx, apiKey, defaultChatModel, opts)
	if err != nil {
		return nil, err
	}

	return &Explainer{
		client: genaiClient,
		model:  s.model,
		//nolint:gosec // G115: bounded by WithMaxTokens
		maxTokens: int32(s.maxTokens),
	}, nil
}

// GenerateText sends prompt with system as the system instruction and requests a JSON reply.
func (e *Explainer) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   e.maxTokens,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrNoCandidate
	}

	return text, nil
}
