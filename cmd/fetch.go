package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/salesagent/salesagent/internal/gem"
	"github.com/salesagent/salesagent/internal/logger"
	"github.com/salesagent/salesagent/internal/store"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the current tender listing and store it",
	Run: func(_ *cobra.Command, _ []string) {
		fetch()
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func fetch() {
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
		logger.Fatal("mongo.uri is required to store fetched tenders")
	}

	collection, err := gem.New(logger).FetchTenders(ctx)
	if err != nil {
		logger.Fatal("fetching tenders", zap.Error(err))
	}

	if collection.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "feed returned no tenders"))
		return
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

	if err := mongo.SaveTenders(ctx, collection.Services); err != nil {
		logger.Fatal("saving tenders", zap.Error(err))
	}

	logger.Info("tenders stored",
		zap.Int("count", collection.Len()),
		zap.String("source", collection.Source),
	)
}
