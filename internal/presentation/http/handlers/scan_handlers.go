package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sugarswap/sugarswap-go/internal/application/services"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/progress"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/lookup"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/performance"
	"github.com/sugarswap/sugarswap-go/internal/presentation/http/middleware"
)

// ScanHandlers serves the scan, water, stats, and product proxy endpoints
type ScanHandlers struct {
	scanService        *services.ScanService
	catalogService     *services.CatalogService
	sessionService     *services.SessionService
	progressionService *services.ProgressionService
	logger             *logging.ChanneledLogger
	perfTracker        *performance.Tracker
}

// NewScanHandlers creates scan handlers with injected dependencies
func NewScanHandlers(scanService *services.ScanService, catalogService *services.CatalogService, sessionService *services.SessionService, progressionService *services.ProgressionService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ScanHandlers {
	return &ScanHandlers{
		scanService:        scanService,
		catalogService:     catalogService,
		sessionService:     sessionService,
		progressionService: progressionService,
		logger:             logger,
		perfTracker:        perfTracker,
	}
}

type scanRequest struct {
	Barcode string `json:"barcode" binding:"required"`
}

// PostScan handles POST /api/v1/scan: resolve the barcode and open the
// confirmation prompt. Resolution failures still queue feedback, so the
// error response carries the feedback id.
func (h *ScanHandlers) PostScan(c *gin.Context) {
	username, _, _ := middleware.SessionIdentity(c)
	marker := h.perfTracker.StartOperation("post_scan_request", username)
	defer marker.Complete()

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "barcode is required"})
		return
	}

	marker.AddMetadata("barcode", req.Barcode)

	sc, saver, err := h.sessionService.Acquire(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	product, feedbackID, err := h.scanService.SubmitScan(c.Request.Context(), sc, saver, req.Barcode)
	if err != nil {
		marker.SetError(err)
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, lookup.ErrInvalidBarcode):
			status = http.StatusBadRequest
		case errors.Is(err, lookup.ErrProductNotFound):
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error(), "feedback_id": feedbackID})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusAccepted, gin.H{
		"status":      "pending_confirmation",
		"feedback_id": feedbackID,
		"product":     product,
	})
}

// PostLogWater handles POST /api/v1/log/water
func (h *ScanHandlers) PostLogWater(c *gin.Context) {
	username, _, _ := middleware.SessionIdentity(c)
	marker := h.perfTracker.StartOperation("post_log_water_request", username)
	defer marker.Complete()

	sc, saver, err := h.sessionService.Acquire(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	outcome := h.scanService.LogWater(sc, saver)

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{
		"status":        "logged",
		"sugar_saved_g": outcome.SugarSaved,
		"xp_awarded":    outcome.XPAwarded,
		"leveled_up":    outcome.LeveledUp,
	})
}

// GetProductProxy handles GET /api/v1/proxy/product/:barcode, the lookup
// passthrough. Resolutions populate the session product cache.
func (h *ScanHandlers) GetProductProxy(c *gin.Context) {
	username, _, _ := middleware.SessionIdentity(c)
	marker := h.perfTracker.StartOperation("get_product_proxy_request", username)
	defer marker.Complete()

	sc, _, err := h.sessionService.Acquire(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	barcode := c.Param("barcode")
	marker.AddMetadata("barcode", barcode)
	product, cached, err := h.catalogService.ResolveProduct(c.Request.Context(), sc, barcode)
	if err != nil {
		marker.SetError(err)
		switch {
		case errors.Is(err, lookup.ErrInvalidBarcode):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid barcode"})
		case errors.Is(err, lookup.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"status": 0, "error": "product not found"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "product lookup failed"})
		}
		return
	}

	if cached {
		marker.AddCacheHit()
	} else {
		marker.AddCacheMiss()
	}
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"status": 1, "product": product, "cached": cached})
}

// GetStats handles GET /api/v1/stats, the derived dashboard rollups
func (h *ScanHandlers) GetStats(c *gin.Context) {
	username, _, _ := middleware.SessionIdentity(c)
	marker := h.perfTracker.StartOperation("get_stats_request", username)
	defer marker.Complete()

	sc, _, err := h.sessionService.Acquire(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	var snapshot services.StatsSnapshot
	var cacheSize int
	sc.WithState(func(state *progress.GamificationState, products *catalog.Cache) {
		h.progressionService.RolloverDaily(state, services.Today())
		snapshot = h.progressionService.Snapshot(state)
		cacheSize = products.Len()
	})

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{
		"stats":            snapshot,
		"cached_products":  cacheSize,
		"pending_feedback": sc.Queue.PendingCount(),
	})
}
