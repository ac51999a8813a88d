package matching

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/salesagent/salesagent/internal/matching/scoring"
	"github.com/salesagent/salesagent/internal/metrics"
	"github.com/salesagent/salesagent/internal/model"
)

// ruleBasedAgent evaluates the keyword scorer over the full tender/product
// cross product. Pure CPU, no external calls.
type ruleBasedAgent struct {
	minScore            float64
	maxMatchesPerTender int
	logger              *zap.Logger
}

func newRuleBasedAgent(cfg Config, logger *zap.Logger) *ruleBasedAgent {
	return &ruleBasedAgent{
		minScore:            cfg.MinScore,
		maxMatchesPerTender: cfg.MaxMatchesPerTender,
		logger:              logger,
	}
}

func (a *ruleBasedAgent) Name() string { return StrategyRuleBased }

func (a *ruleBasedAgent) Analyze(_ context.Context, tenders []model.Tender, products []model.Product) ([]model.Match, error) {
	if len(tenders) == 0 || len(products) == 0 {
		a.logger.Warn("nothing to analyze",
			zap.Int("tenders", len(tenders)),
			zap.Int("products", len(products)),
		)
		return nil, nil
	}

	a.logger.Info("starting rule-based analysis",
		zap.Int("tenders", len(tenders)),
		zap.Int("products", len(products)),
		zap.Float64("min_score", a.minScore),
	)

	matches := make([]model.Match, 0)
	for i := range tenders {
		matches = append(matches, a.matchTender(&tenders[i], products)...)
	}

	result := Postprocess(matches, a.minScore)

	a.logger.Info("rule-based analysis complete", zap.Int("matches", len(result)))
	metrics.MatchesFound.WithLabelValues(StrategyRuleBased).Add(float64(len(result)))

	return result, nil
}

// matchTender scores one tender against every product, keeps matches at or
// above the threshold sorted by score, and applies the per-tender cap
// before the global merge.
func (a *ruleBasedAgent) matchTender(tender *model.Tender, products []model.Product) []model.Match {
	tenderMatches := make([]model.Match, 0)

	for i := range products {
		product := &products[i]

		score, reasons := scoring.Score(product, tender)
		if score < a.minScore {
			continue
		}

		tenderMatches = append(tenderMatches, model.Match{
			TenderID:       tender.ID,
			TenderName:     tender.DisplayName,
			MatchedProduct: product.Name,
			Score:          round2(score),
			Reasons:        reasons,
			MarketURL:      tender.MarketURL,
			MatchType:      model.MatchTypeRuleBased,
			Confidence:     math.Min(score/10.0, 1.0),
		})
	}

	sort.SliceStable(tenderMatches, func(i, j int) bool {
		return tenderMatches[i].Score > tenderMatches[j].Score
	})

	if a.maxMatchesPerTender > 0 && len(tenderMatches) > a.maxMatchesPerTender {
		tenderMatches = tenderMatches[:a.maxMatchesPerTender]
	}

	return tenderMatches
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
