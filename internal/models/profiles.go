package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Profile is the attendee a recommendation is computed for.
type Profile struct {
	ID                 uuid.UUID  `json:"id"`
	Interests          []string   `json:"interests"`
	Role               string     `json:"role"`
	Organization       string     `json:"organization"`
	Embedding          []float32  `json:"-"`
	EmbeddingModel     string     `json:"-"`
	EmbeddingUpdatedAt *time.Time `json:"embedding_updated_at,omitempty"`
}

// InterestText is the text embedded for a profile: interest tags followed by the role.
// Returns "" when the profile carries neither.
func (p *Profile) InterestText() string {
	parts := make([]string, 0, len(p.Interests)+1)

	for _, interest := range p.Interests {
		if trimmed := strings.TrimSpace(interest); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	text := strings.Join(parts, ", ")

	role := strings.TrimSpace(p.Role)
	if role == "" {
		return text
	}

	if text == "" {
		return "Role: " + role
	}

	return "Interests: " + text + ". Role: " + role
}

// EmbeddingFresh reports whether the stored embedding exists, was produced by model and is
// younger than maxAge. A zero maxAge disables the age check.
func (p *Profile) EmbeddingFresh(now time.Time, maxAge time.Duration, model string) bool {
	if !p.HasEmbeddingFrom(model) {
		return false
	}

	if maxAge <= 0 || p.EmbeddingUpdatedAt == nil {
		return true
	}

	return now.Sub(*p.EmbeddingUpdatedAt) < maxAge
}

// HasEmbeddingFrom reports whether a stored embedding exists and was produced by model.
func (p *Profile) HasEmbeddingFrom(model string) bool {
	return len(p.Embedding) > 0 && p.EmbeddingModel == model
}
