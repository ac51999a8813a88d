// Package scoring computes deterministic keyword-based relevance scores for
// a single product/tender pair. It is pure and side-effect-free so matching
// runs are reproducible.
package scoring

import (
	"fmt"
	"strings"

	"github.com/salesagent/salesagent/internal/model"
)

// Bonus weights. An exact tag match outranks a description hit for the same
// keyword; the category bonus is flat and applied at most once per pair.
const (
	tagMatchBonus      = 2.0
	textMatchBonus     = 1.0
	categoryMatchBonus = 0.5
)

// Score evaluates how well a product matches a tender by keyword overlap.
// It returns the total score (0.0 when nothing matches) and a human-readable
// reason per earned bonus, in discovery order: keyword bonuses in keyword
// order, category bonus last.
func Score(product *model.Product, tender *model.Tender) (float64, []string) {
	score := 0.0
	var reasons []string

	tags := make(map[string]struct{}, len(tender.SearchTags))
	for _, tag := range tender.SearchTags {
		tags[normalize(tag)] = struct{}{}
	}

	tenderText := strings.ToLower(tender.DisplayName + " " + tender.Description)

	for _, raw := range product.Keywords {
		keyword := normalize(raw)
		if keyword == "" {
			continue
		}

		// A keyword earns at most one bonus; the tag match takes priority.
		if _, ok := tags[keyword]; ok {
			score += tagMatchBonus
			reasons = append(reasons, fmt.Sprintf("Keyword '%s' found in tender tags", keyword))
		} else if strings.Contains(tenderText, keyword) {
			score += textMatchBonus
			reasons = append(reasons, fmt.Sprintf("Keyword '%s' found in tender description", keyword))
		}
	}

	category := normalize(product.Category)
	serviceType := normalize(tender.ServiceType)
	if category != "" && serviceType != "" && strings.Contains(serviceType, category) {
		score += categoryMatchBonus
		reasons = append(reasons, fmt.Sprintf("Category match: '%s'", category))
	}

	return score, reasons
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
