package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ServerConfig holds the HTTP server knobs.
type ServerConfig struct {
	Addr      string
	RateLimit float64
	RateBurst int
	Debug     bool
}

// SetupRouter wires the middleware chain and routes.
func SetupRouter(cfg ServerConfig, handler *Handler, logger *zap.Logger) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	if cfg.RateLimit > 0 {
		v1.Use(RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst))
	}
	{
		v1.POST("/match", handler.RunMatch)
		v1.GET("/tenders", handler.ListTenders)
		v1.GET("/matches", handler.ListMatches)
		v1.GET("/matches/stats", handler.MatchStats)
	}

	return router
}

// Serve runs the server until ctx is canceled, then shuts down gracefully.
func Serve(ctx context.Context, cfg ServerConfig, handler *Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           SetupRouter(cfg, handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}
