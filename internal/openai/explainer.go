package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
)

// ErrNoCompletion is returned when the chat response has no usable choice.
var ErrNoCompletion = errors.New("openai: no completion in response")

const (
	defaultChatModel = "gpt-4o-mini"
	defaultMaxTokens = 400
)

// Explainer generates short text via the chat completions API.
type Explainer struct {
	sdk       openaisdk.Client
	model     string
	maxTokens int
}

// WithMaxTokens caps completion tokens per call.
func WithMaxTokens(n int) ClientOption {
	return func(s *settings) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// NewExplainer creates a chat completions client.
func NewExplainer(apiKey string, opts ...ClientOption) *Explainer {
	s := newSettings(apiKey, defaultChatModel, opts)

	return &Explainer{
		sdk:       openaisdk.NewClient(s.requestOpt...),
		model:     s.model,
		maxTokens: s.maxTokens,
	}
}

// GenerateText sends one system + user message pair and returns the first choice's content.
func (e *Explainer) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	resp, err := e.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(e.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(system),
			openaisdk.UserMessage(prompt),
		},
		MaxCompletionTokens: param.NewOpt(int64(e.maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrNoCompletion
	}

	return content, nil
}
