package matching

import (
	"sort"

	"github.com/salesagent/salesagent/internal/model"
)

// Postprocess applies the single normalization contract every strategy's
// output passes through before it is a valid engine result:
//
//  1. drop matches below minScore,
//  2. deduplicate on (tender_id, matched_product) keeping the first
//     occurrence,
//  3. sort by score descending, ties keeping insertion order.
//
// The input slice is not modified.
func Postprocess(matches []model.Match, minScore float64) []model.Match {
	seen := make(map[model.MatchKey]struct{}, len(matches))
	result := make([]model.Match, 0, len(matches))

	for _, m := range matches {
		if m.Score < minScore {
			continue
		}
		key := m.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, m)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})

	return result
}
