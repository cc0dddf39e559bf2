package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/confhub/recommender/internal/models"
	"github.com/confhub/recommender/internal/ranking"
)

// TextGenerator produces text from a system instruction and a prompt.
// Implemented by provider-specific explainers (e.g. OpenAI, Google Gemini).
type TextGenerator interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// Enrichment outcomes.
const (
	EnrichmentGenerated = "generated"
	EnrichmentFallback  = "fallback"
	EnrichmentSkipped   = "skipped"
)

const (
	maxExplanationResponseBytes = 8 << 10
	maxReasonRunes              = 200

	explanationSystemPrompt = "You write one short, friendly sentence per conference session explaining " +
		"why it suits the attendee. Reply with only a JSON array of strings, one per session, in the given order."
)

var (
	errMalformedExplanations = errors.New("malformed explanation response")
	errExplanationsTooLarge  = errors.New("explanation response too large")
)

// ExplanationEnricher sets a reason on every ranked session: generated text for the top K when the
// provider answers in time, templated text for everything else. It never reorders.
type ExplanationEnricher struct {
	generator TextGenerator
	topK      int
	timeout   time.Duration
}

// NewExplanationEnricher creates an enricher. generator may be nil (templates only).
func NewExplanationEnricher(generator TextGenerator, topK int, timeout time.Duration) *ExplanationEnricher {
	return &ExplanationEnricher{generator: generator, topK: topK, timeout: timeout}
}

// Enrich fills Reason for every entry of scored and returns the enrichment outcome.
func (e *ExplanationEnricher) Enrich(ctx context.Context, profile *models.Profile, scored []ranking.Scored) string {
	for i := range scored {
		scored[i].Reason = ranking.TemplateReason(scored[i].Signal, scored[i].Session)
	}

	n := min(e.topK, len(scored))
	if e.generator == nil || n <= 0 {
		return EnrichmentSkipped
	}

	if ctx.Err() != nil {
		return EnrichmentSkipped
	}

	genCtx := ctx

	if e.timeout > 0 {
		var cancel context.CancelFunc

		genCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	prompt, err := buildExplanationPrompt(profile, scored[:n])
	if err != nil {
		slog.WarnContext(ctx, "explanations: build prompt failed", "error", err)

		return EnrichmentFallback
	}

	text, err := e.generator.GenerateText(genCtx, explanationSystemPrompt, prompt)
	if err != nil {
		slog.WarnContext(ctx, "explanations: provider call failed, using templates", "error", err)

		return EnrichmentFallback
	}

	reasons, err := parseExplanations(text, n)
	if err != nil {
		slog.WarnContext(ctx, "explanations: unusable response, using templates", "error", err)

		return EnrichmentFallback
	}

	for i, reason := range reasons {
		if reason != "" {
			scored[i].Reason = reason
		}
	}

	return EnrichmentGenerated
}

type explanationPrompt struct {
	Interests []string             `json:"interests"`
	Role      string               `json:"role,omitempty"`
	Sessions  []explanationSession `json:"sessions"`
}

type explanationSession struct {
	Title string `json:"title"`
	Track string `json:"track,omitempty"`
}

func buildExplanationPrompt(profile *models.Profile, scored []ranking.Scored) (string, error) {
	p := explanationPrompt{Interests: []string{}, Sessions: make([]explanationSession, len(scored))}
	if profile != nil {
		if profile.Interests != nil {
			p.Interests = profile.Interests
		}

		p.Role = profile.Role
	}

	for i := range scored {
		p.Sessions[i] = explanationSession{Title: scored[i].Session.Title, Track: scored[i].Session.Track.Name}
	}

	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}

	return fmt.Sprintf("Attendee and sessions:\n%s\nReturn exactly %d sentences.", body, len(scored)), nil
}

// parseExplanations accepts a JSON array of strings, optionally inside a code fence or an object
// with a "reasons" field. Each reason is trimmed and capped; blank entries are returned as "".
func parseExplanations(text string, want int) ([]string, error) {
	if len(text) > maxExplanationResponseBytes {
		return nil, errExplanationsTooLarge
	}

	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var reasons []string
	if err := json.Unmarshal([]byte(text), &reasons); err != nil {
		var wrapped struct {
			Reasons []string `json:"reasons"`
		}

		if err := json.Unmarshal([]byte(text), &wrapped); err != nil || wrapped.Reasons == nil {
			return nil, errMalformedExplanations
		}

		reasons = wrapped.Reasons
	}

	if len(reasons) != want {
		return nil, fmt.Errorf("%w: got %d reasons, want %d", errMalformedExplanations, len(reasons), want)
	}

	for i, r := range reasons {
		r = strings.Join(strings.Fields(r), " ")
		if utf8.RuneCountInString(r) > maxReasonRunes {
			r = string([]rune(r)[:maxReasonRunes-1]) + "…"
		}

		reasons[i] = r
	}

	return reasons, nil
}
