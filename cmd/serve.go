package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/salesagent/salesagent/internal/api"
	"github.com/salesagent/salesagent/internal/logger"
)

const (
	defaultServerAddr = ":8080"
	defaultRateLimit  = 5.0
	defaultRateBurst  = 10
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching engine over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the salesagent server", zap.String("version", version))

	svc, deps, cleanup, err := newService(ctx, config, logger)
	defer cleanup()
	if err != nil {
		logger.Fatal("building the matching service", zap.Error(err))
	}

	serverCfg := serverConfig(config)
	handler := api.NewHandler(svc, deps.Tenders, deps.Matches, logger, version)

	if err := api.Serve(ctx, serverCfg, handler, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}

	logger.Info("server stopped")
}

func serverConfig(config *Config) api.ServerConfig {
	cfg := api.ServerConfig{
		Addr:      defaultServerAddr,
		RateLimit: defaultRateLimit,
		RateBurst: defaultRateBurst,
		Debug:     viper.GetBool("debug"),
	}

	if config.Server == nil {
		return cfg
	}

	if config.Server.Addr != "" {
		cfg.Addr = config.Server.Addr
	}
	if config.Server.RateLimit > 0 {
		cfg.RateLimit = config.Server.RateLimit
	}
	if config.Server.RateBurst > 0 {
		cfg.RateBurst = config.Server.RateBurst
	}

	return cfg
}
