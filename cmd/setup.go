package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/salesagent/salesagent/internal/ai"
	"github.com/salesagent/salesagent/internal/ai/gemini"
	"github.com/salesagent/salesagent/internal/gem"
	"github.com/salesagent/salesagent/internal/matching"
	"github.com/salesagent/salesagent/internal/secrets"
	"github.com/salesagent/salesagent/internal/service"
	"github.com/salesagent/salesagent/internal/store"
)

const (
	defaultProductsFile = "data/products.json"
	defaultOutputDir    = "output"
)

func (c *Config) dataConfig() *DataConfig {
	if c.Data == nil {
		c.Data = &DataConfig{}
	}
	if c.Data.ProductsFile == "" {
		c.Data.ProductsFile = defaultProductsFile
	}
	if c.Data.OutputDir == "" {
		c.Data.OutputDir = defaultOutputDir
	}
	return c.Data
}

// newAgent builds the matching agent the config asks for. The generator is
// only constructed for the AI strategy.
func newAgent(ctx context.Context, config *Config, logger *zap.Logger) (matching.Agent, error) {
	var generator ai.Generator

	if strings.EqualFold(strings.TrimSpace(config.Strategy), matching.StrategyAI) {
		gen, err := newGeminiGenerator(ctx, config.AI)
		if err != nil {
			return nil, err
		}
		generator = gen
	}

	cfg := matching.Config{
		Strategy:            config.Strategy,
		MinScore:            config.MinScore,
		MaxMatchesPerTender: config.MaxMatchesPerTender,
		BatchSize:           config.BatchSize,
		Concurrency:         config.Concurrency,
	}
	if config.AI != nil && config.AI.Gemini != nil {
		cfg.Timeout = config.AI.Gemini.Timeout
	}

	return matching.New(cfg, generator, logger)
}

func newGeminiGenerator(ctx context.Context, config *AIConfig) (ai.Generator, error) {
	if config == nil || config.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required for the ai strategy")
	}

	provider := strings.TrimSpace(strings.ToLower(config.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", config.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.Gemini.APIKey,
		File:  config.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	return gemini.NewGenerator(ctx, apiKey, config.Gemini.Model)
}

// newService wires the tender/product sources, the optional mongo store and
// the feed fallback into a matching service. The returned cleanup closes
// the mongo connection and is safe to call unconditionally.
func newService(ctx context.Context, config *Config, logger *zap.Logger) (*service.Service, *service.Deps, func(), error) {
	cleanup := func() {}

	agent, err := newAgent(ctx, config, logger)
	if err != nil {
		return nil, nil, cleanup, fmt.Errorf("building matching agent: %w", err)
	}

	data := config.dataConfig()

	deps := service.Deps{
		Agent:     agent,
		Products:  store.FileProductSource{Path: data.ProductsFile},
		OutputDir: data.OutputDir,
		Logger:    logger,
	}

	if config.Mongo != nil && config.Mongo.URI != "" {
		mongo, err := store.NewMongo(ctx, config.Mongo.URI, mongoDatabase(config.Mongo), logger)
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("connecting to mongodb: %w", err)
		}
		cleanup = func() {
			if err := mongo.Close(context.Background()); err != nil {
				logger.Warn("closing mongodb connection", zap.Error(err))
			}
		}

		deps.Tenders = mongo
		deps.Matches = mongo
		deps.Feed = gem.New(logger)
	}

	// An explicit snapshot file wins over the mongo-backed source.
	if data.TendersFile != "" {
		deps.Tenders = store.FileTenderSource{Path: data.TendersFile}
		deps.Feed = nil
	}

	if deps.Tenders == nil {
		return nil, nil, cleanup, errors.New("no tender source configured: set data.tenders-file or mongo.uri")
	}

	svc, err := service.New(deps)
	if err != nil {
		return nil, nil, cleanup, err
	}

	return svc, &deps, cleanup, nil
}

func mongoDatabase(config *MongoConfig) string {
	if config.Database == "" {
		return "salesagent"
	}
	return config.Database
}
