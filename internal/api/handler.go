// Package api exposes the matching service over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/salesagent/salesagent/internal/service"
)

// Handler holds the dependencies of the HTTP endpoints.
type Handler struct {
	svc     *service.Service
	tenders service.TenderSource
	matches service.MatchStore
	logger  *zap.Logger
	version string
}

func NewHandler(svc *service.Service, tenders service.TenderSource, matches service.MatchStore, logger *zap.Logger, version string) *Handler {
	return &Handler{
		svc:     svc,
		tenders: tenders,
		matches: matches,
		logger:  logger,
		version: version,
	}
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "salesagent",
		"version": h.version,
	})
}

type matchRequest struct {
	Save   bool `json:"save"`
	Export bool `json:"export"`
}

// RunMatch triggers a matching run. The body is optional; an empty body
// runs without saving or exporting.
func (h *Handler) RunMatch(c *gin.Context) {
	var req matchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.svc.Run(c.Request.Context(), service.RunOptions{
		Save:   req.Save,
		Export: req.Export,
	})
	if err != nil {
		h.logger.Error("matching run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "matching run failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":      result.RunID,
		"strategy":    result.Strategy,
		"match_count": len(result.Matches),
		"matches":     result.Matches,
		"duration_ms": result.Duration.Milliseconds(),
		"export_path": result.ExportPath,
	})
}

// ListTenders returns the current tender snapshot.
func (h *Handler) ListTenders(c *gin.Context) {
	tenders, err := h.tenders.Tenders(c.Request.Context())
	if err != nil {
		h.logger.Error("listing tenders failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing tenders failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_count": len(tenders),
		"tenders":     tenders,
	})
}

// ListMatches returns stored match history, highest score first.
func (h *Handler) ListMatches(c *gin.Context) {
	if h.matches == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match store not configured"})
		return
	}

	matches, err := h.matches.Matches(c.Request.Context())
	if err != nil {
		h.logger.Error("listing matches failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing matches failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_count": len(matches),
		"matches":     matches,
	})
}

// MatchStats returns aggregate statistics over stored matches.
func (h *Handler) MatchStats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("computing stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "computing stats failed"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
