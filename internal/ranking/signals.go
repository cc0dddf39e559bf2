// Package ranking scores candidate sessions from independent signals and merges them into one order.
// Everything here is pure; I/O belongs to the collectors built in the service layer.
package ranking

import (
	"github.com/google/uuid"

	"github.com/confhub/recommender/internal/models"
)

// Signal identifies the scorer that produced a contribution.
type Signal string

// Signals, in the order the aggregator applies them.
const (
	SignalSemantic   Signal = "semantic"
	SignalKeyword    Signal = "keyword"
	SignalBehavioral Signal = "behavioral"
	SignalEditorial  Signal = "editorial"
)

// SignalType maps the internal signal to the label clients see.
func (s Signal) SignalType() models.SignalType {
	switch s {
	case SignalSemantic, SignalKeyword:
		return models.SignalTypeInterestMatch
	case SignalBehavioral:
		return models.SignalTypeSimilarAttendees
	case SignalEditorial:
		return models.SignalTypePopular
	default:
		return models.SignalTypeInterestMatch
	}
}

// Weights are the point values each signal contributes.
type Weights struct {
	// Semantic multiplies cosine similarity.
	Semantic float64
	// KeywordMatch is added per matching interest tag.
	KeywordMatch float64
	// BehavioralFirst multiplies the track count when the session has no other score yet.
	BehavioralFirst float64
	// BehavioralStacked multiplies the track count when the session already has a score.
	BehavioralStacked float64
	// Editorial is added to featured sessions.
	Editorial float64
}

// DefaultWeights returns the standard weights.
func DefaultWeights() Weights {
	return Weights{
		Semantic:          100,
		KeywordMatch:      25,
		BehavioralFirst:   15,
		BehavioralStacked: 10,
		Editorial:         20,
	}
}

// Contribution is what one signal adds to one session. First applies when the session has no
// accumulated score yet; Stacked applies on top of an existing score.
type Contribution struct {
	First   float64
	Stacked float64
}

// flat is a contribution that does not depend on prior scores.
func flat(points float64) Contribution {
	return Contribution{First: points, Stacked: points}
}

// Partial is the sparse output of one signal: session id to contribution.
type Partial struct {
	Signal Signal
	Scores map[uuid.UUID]Contribution
}

// NewPartial returns an empty partial for signal.
func NewPartial(signal Signal) Partial {
	return Partial{Signal: signal, Scores: make(map[uuid.UUID]Contribution)}
}

// Empty reports whether the partial scored nothing.
func (p Partial) Empty() bool {
	return len(p.Scores) == 0
}
