package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/salesagent/salesagent/internal/logger"
	"github.com/salesagent/salesagent/internal/service"
	"github.com/salesagent/salesagent/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics over stored matches",
	Run: func(_ *cobra.Command, _ []string) {
		stats()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func stats() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config.Mongo == nil || config.Mongo.URI == "" {
		logger.Fatal("mongo.uri is required for stats")
	}

	mongo, err := store.NewMongo(ctx, config.Mongo.URI, mongoDatabase(config.Mongo), logger)
	if err != nil {
		logger.Fatal("connecting to mongodb", zap.Error(err))
	}
	defer func() {
		if err := mongo.Close(context.Background()); err != nil {
			logger.Warn("closing mongodb connection", zap.Error(err))
		}
	}()

	total, err := mongo.CountMatches(ctx)
	if err != nil {
		logger.Fatal("counting matches", zap.Error(err))
	}
	logger.Debug("stored matches", zap.Int64("count", total))

	matches, err := mongo.Matches(ctx)
	if err != nil {
		logger.Fatal("loading matches", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(service.ComputeStats(matches), "", "  ")
	fmt.Println(string(pretty))
}
