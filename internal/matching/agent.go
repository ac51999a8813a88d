// Package matching implements the tender/product matching engine: a
// deterministic keyword strategy, an LLM-backed batch strategy, and the
// shared postprocessing contract both must pass through.
package matching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/salesagent/salesagent/internal/ai"
	"github.com/salesagent/salesagent/internal/model"
)

// Strategy names accepted by the factory.
const (
	StrategyRuleBased = model.MatchTypeRuleBased
	StrategyAI        = model.MatchTypeAI
)

// Default tuning values.
const (
	DefaultMinScore    = 1.0
	DefaultAIMinScore  = 50.0
	DefaultBatchSize   = 10
	DefaultCallTimeout = 120 * time.Second
	DefaultConcurrency = 1
)

// Agent analyzes tenders against products and produces postprocessed
// matches. Implementations never fail the whole run for per-batch or
// per-element problems; an error return means the run could not start at
// all.
type Agent interface {
	Name() string
	Analyze(ctx context.Context, tenders []model.Tender, products []model.Product) ([]model.Match, error)
}

// Config selects and tunes a strategy. It is an explicit value passed into
// the factory; there is no process-wide settings state.
type Config struct {
	Strategy string
	MinScore float64
	// MaxMatchesPerTender caps the rule-based strategy's matches per tender
	// before the global merge. Zero means no cap.
	MaxMatchesPerTender int
	// BatchSize is the number of tenders sent in one model call.
	BatchSize int
	// Timeout bounds a single model call.
	Timeout time.Duration
	// Concurrency bounds in-flight model calls. 1 processes batches
	// sequentially.
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultCallTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// New returns the agent for the configured strategy. The generator is only
// required for the AI strategy.
func New(cfg Config, generator ai.Generator, logger *zap.Logger) (Agent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	switch strings.TrimSpace(strings.ToLower(cfg.Strategy)) {
	case StrategyRuleBased, "":
		if cfg.MinScore <= 0 {
			cfg.MinScore = DefaultMinScore
		}
		return newRuleBasedAgent(cfg, logger), nil
	case StrategyAI:
		if generator == nil {
			return nil, fmt.Errorf("strategy %q requires a content generator", StrategyAI)
		}
		if cfg.MinScore <= 0 {
			cfg.MinScore = DefaultAIMinScore
		}
		return newLLMAgent(cfg, generator, logger), nil
	default:
		return nil, fmt.Errorf("unsupported matching strategy: %s", cfg.Strategy)
	}
}
