package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sugarswap/sugarswap-go/internal/application/services"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/performance"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/persistence/database"
)

// SystemHandlers serves health and operational endpoints
type SystemHandlers struct {
	db             *database.DB
	sessionService *services.SessionService
	logger         *logging.ChanneledLogger
	perfTracker    *performance.Tracker
}

// NewSystemHandlers creates system handlers with injected dependencies
func NewSystemHandlers(db *database.DB, sessionService *services.SessionService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SystemHandlers {
	return &SystemHandlers{
		db:             db,
		sessionService: sessionService,
		logger:         logger,
		perfTracker:    perfTracker,
	}
}

// GetHealth handles GET /api/v1/system/health
func (h *SystemHandlers) GetHealth(c *gin.Context) {
	status := "ok"
	httpStatus := http.StatusOK
	if err := h.db.Ping(); err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		h.logger.System().Error("Health check database ping failed", "error", err.Error())
	}

	c.JSON(httpStatus, gin.H{
		"status":        status,
		"live_sessions": h.sessionService.Count(),
	})
}

// GetPerformance handles GET /api/v1/system/performance. Alongside the
// aggregate stats it lists the completed operations still held by the
// tracker, with per-operation cache effectiveness where one applies.
func (h *SystemHandlers) GetPerformance(c *gin.Context) {
	completed := h.perfTracker.GetCompletedMarkers()
	operations := make([]gin.H, 0, len(completed))
	for _, m := range completed {
		entry := gin.H{
			"operation": m.Operation,
			"duration":  m.Duration.String(),
			"success":   m.Success,
		}
		if m.CacheHits+m.CacheMisses > 0 {
			entry["cacheHitRatio"] = m.GetCacheHitRatio()
		}
		if len(m.Metadata) > 0 {
			entry["metadata"] = m.Metadata
		}
		operations = append(operations, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":      h.perfTracker.GetOverallStats(),
		"operations": operations,
	})
}

// GetLogLevels handles GET /api/v1/system/logs/levels
func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": h.logger.GetChannelLevels()})
}

type logLevelRequest struct {
	Channel string `json:"channel" binding:"required"`
	Level   string `json:"level" binding:"required"`
}

// PostLogLevel handles POST /api/v1/system/logs/levels
func (h *SystemHandlers) PostLogLevel(c *gin.Context) {
	var req logLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel and level are required"})
		return
	}

	var level slog.Level
	switch strings.ToLower(req.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "level must be debug, info, warn, or error"})
		return
	}

	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated", "channel": req.Channel, "level": req.Level})
}
