package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sugarswap/sugarswap-go/internal/application/services"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/progress"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/performance"
	"github.com/sugarswap/sugarswap-go/internal/presentation/http/middleware"
)

// UserDataHandlers serves the persisted user state sync endpoints
type UserDataHandlers struct {
	sessionService     *services.SessionService
	progressionService *services.ProgressionService
	logger             *logging.ChanneledLogger
	perfTracker        *performance.Tracker
}

// NewUserDataHandlers creates user data handlers with injected dependencies
func NewUserDataHandlers(sessionService *services.SessionService, progressionService *services.ProgressionService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *UserDataHandlers {
	return &UserDataHandlers{
		sessionService:     sessionService,
		progressionService: progressionService,
		logger:             logger,
		perfTracker:        perfTracker,
	}
}

type userDataDocument struct {
	GamificationState *progress.GamificationState `json:"gamification_state" binding:"required"`
	ProductCache      *catalog.Cache              `json:"product_cache"`
}

// GetUserData handles GET /api/v1/user/data. A stale daily counter is
// reset in the served copy without persisting; the next consumption writes
// the reset through.
func (h *UserDataHandlers) GetUserData(c *gin.Context) {
	username, _, _ := middleware.SessionIdentity(c)
	marker := h.perfTracker.StartOperation("get_user_data_request", username)
	defer marker.Complete()

	sc, _, err := h.sessionService.Acquire(username)
	if err != nil {
		h.logger.Session().Error("Failed to acquire session", "username", logging.SanitizeUsername(username), "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user data"})
		return
	}

	// Serialization happens under the session lock; the state pointers must
	// not escape it while other requests can mutate them.
	var payload []byte
	var marshalErr error
	sc.WithState(func(state *progress.GamificationState, products *catalog.Cache) {
		h.progressionService.RolloverDaily(state, services.Today())
		payload, marshalErr = json.Marshal(userDataDocument{GamificationState: state, ProductCache: products})
	})
	if marshalErr != nil {
		h.logger.Session().Error("Failed to serialize user data", "username", logging.SanitizeUsername(username), "error", marshalErr.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user data"})
		return
	}

	marker.SetSuccess(true)
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// PostUserData handles POST /api/v1/user/data, the client-driven sync
// target: the full state document replaces the session state and persists
// immediately.
func (h *UserDataHandlers) PostUserData(c *gin.Context) {
	username, _, _ := middleware.SessionIdentity(c)
	marker := h.perfTracker.StartOperation("post_user_data_request", username)
	defer marker.Complete()

	var doc userDataDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "gamification_state is required"})
		return
	}

	sc, saver, err := h.sessionService.Acquire(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user data"})
		return
	}

	doc.GamificationState.Normalize()
	sc.WithState(func(state *progress.GamificationState, products *catalog.Cache) {
		*state = *doc.GamificationState
		if doc.ProductCache != nil {
			*products = *doc.ProductCache
		}
	})

	if err := saver.Flush(); err != nil {
		h.logger.Session().Error("Explicit sync save failed", "username", logging.SanitizeUsername(username), "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save user data"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}
