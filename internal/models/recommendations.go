package models

import (
	"time"

	"github.com/google/uuid"
)

// SignalType is the public label explaining why a session was recommended.
type SignalType string

// Signal types exposed to clients. SkillBuilding and ScheduleFit are reserved for future signals.
const (
	SignalTypeInterestMatch    SignalType = "interest_match"
	SignalTypePopular          SignalType = "popular"
	SignalTypeSimilarAttendees SignalType = "similar_attendees"
	SignalTypeSkillBuilding    SignalType = "skill_building"
	SignalTypeScheduleFit      SignalType = "schedule_fit"
)

// Recommendation is one ranked session as returned to the attendee and stored in the cache.
type Recommendation struct {
	SessionID  uuid.UUID  `json:"itemId"` //nolint:tagliatelle // API contract camelCase
	Title      string     `json:"title"`
	Score      int        `json:"score"`
	Reason     string     `json:"reason"`
	SignalType SignalType `json:"signalType"` //nolint:tagliatelle // API contract camelCase
	Track      string     `json:"track"`
	TrackColor string     `json:"trackColor"` //nolint:tagliatelle // API contract camelCase
	StartTime  time.Time  `json:"startTime"`  //nolint:tagliatelle // API contract camelCase
	Room       string     `json:"room"`
}

// RecommendationSet is the result of one recommendation request.
type RecommendationSet struct {
	Recommendations []Recommendation `json:"recommendations"`
	Cached          bool             `json:"cached"`
}

// CachedRecommendations is the persisted ranked list for one (profile, conference) pair.
type CachedRecommendations struct {
	ProfileID       uuid.UUID
	ConferenceID    uuid.UUID
	Recommendations []Recommendation
	ComputedAt      time.Time
	ExpiresAt       time.Time
}

// Expired reports whether the entry is past its expiry at now.
func (c *CachedRecommendations) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
