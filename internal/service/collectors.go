package service

import (
	"context"

	"github.com/confhub/recommender/internal/ranking"
)

// semanticCollector scores sessions by cosine similarity to the profile's resolved interest embedding.
func semanticCollector(w ranking.Weights) ranking.Collector {
	return ranking.CollectorFunc{
		Name: ranking.SignalSemantic,
		Fn: func(_ context.Context, in ranking.Input) (ranking.Partial, error) {
			if in.Profile == nil {
				return ranking.NewPartial(ranking.SignalSemantic), nil
			}

			return ranking.SemanticScores(in.Profile.Embedding, in.Sessions, w), nil
		},
	}
}

func keywordCollector(w ranking.Weights) ranking.Collector {
	return ranking.CollectorFunc{
		Name: ranking.SignalKeyword,
		Fn: func(_ context.Context, in ranking.Input) (ranking.Partial, error) {
			if in.Profile == nil {
				return ranking.NewPartial(ranking.SignalKeyword), nil
			}

			return ranking.KeywordScores(in.Profile.Interests, in.Sessions, w), nil
		},
	}
}

func behavioralCollector(w ranking.Weights) ranking.Collector {
	return ranking.CollectorFunc{
		Name: ranking.SignalBehavioral,
		Fn: func(_ context.Context, in ranking.Input) (ranking.Partial, error) {
			return ranking.BehavioralScores(in.History, in.Sessions, w), nil
		},
	}
}

func editorialCollector(w ranking.Weights) ranking.Collector {
	return ranking.CollectorFunc{
		Name: ranking.SignalEditorial,
		Fn: func(_ context.Context, in ranking.Input) (ranking.Partial, error) {
			return ranking.EditorialScores(in.Sessions, w), nil
		},
	}
}

// buildCollectors returns the collectors for mode in aggregation order: primary, behavioral, editorial.
func buildCollectors(mode ranking.PrimaryMode, w ranking.Weights) []ranking.Collector {
	primary := keywordCollector(w)
	if mode == ranking.PrimarySemantic {
		primary = semanticCollector(w)
	}

	return []ranking.Collector{primary, behavioralCollector(w), editorialCollector(w)}
}
