package service

import (
	"context"
	"fmt"

	"github.com/salesagent/salesagent/internal/model"
)

// Stats summarizes stored match history.
type Stats struct {
	TotalMatches      int            `json:"total_matches"`
	ByProduct         map[string]int `json:"by_product"`
	ScoreDistribution map[string]int `json:"score_distribution"`
}

var scoreBuckets = []struct {
	label string
	upper float64
}{
	{"0-25", 25},
	{"26-50", 50},
	{"51-75", 75},
	{"76-100", 100},
}

// ComputeStats aggregates a match list into totals, per-product counts and
// a score histogram.
func ComputeStats(matches []model.Match) *Stats {
	stats := &Stats{
		TotalMatches:      len(matches),
		ByProduct:         make(map[string]int),
		ScoreDistribution: make(map[string]int),
	}
	for _, bucket := range scoreBuckets {
		stats.ScoreDistribution[bucket.label] = 0
	}

	for _, match := range matches {
		stats.ByProduct[match.MatchedProduct]++

		// The last bucket is a catch-all: rule-based scores are unbounded,
		// so anything above its upper edge still lands in "76-100".
		for i, bucket := range scoreBuckets {
			if match.Score <= bucket.upper || i == len(scoreBuckets)-1 {
				stats.ScoreDistribution[bucket.label]++
				break
			}
		}
	}

	return stats
}

// Stats reads the full match history from the store and aggregates it.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if s.deps.Matches == nil {
		return nil, fmt.Errorf("no match store configured")
	}

	matches, err := s.deps.Matches.Matches(ctx)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}

	return ComputeStats(matches), nil
}
