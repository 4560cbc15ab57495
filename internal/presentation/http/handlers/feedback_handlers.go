package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sugarswap/sugarswap-go/internal/application/services"
	"github.com/sugarswap/sugarswap-go/internal/domain/feedback"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/messaging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/performance"
	"github.com/sugarswap/sugarswap-go/internal/presentation/http/middleware"
)

// FeedbackHandlers serves the feedback SSE stream and acknowledgement
type FeedbackHandlers struct {
	sessionService *services.SessionService
	broadcaster    messaging.Broadcaster
	logger         *logging.ChanneledLogger
	perfTracker    *performance.Tracker
}

// NewFeedbackHandlers creates feedback handlers with injected dependencies
func NewFeedbackHandlers(sessionService *services.SessionService, broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *FeedbackHandlers {
	return &FeedbackHandlers{
		sessionService: sessionService,
		broadcaster:    broadcaster,
		logger:         logger,
		perfTracker:    perfTracker,
	}
}

// GetFeedbackStream handles GET /api/v1/feedback/sse. The currently
// displayed item replays on connect so a reconnecting client never misses
// the prompt it is supposed to answer.
func (h *FeedbackHandlers) GetFeedbackStream(c *gin.Context) {
	username, sessionID, _ := middleware.SessionIdentity(c)

	sc, _, err := h.sessionService.Acquire(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ch := h.broadcaster.AddClient(username, sessionID)
	defer h.broadcaster.RemoveClient(ch, username, sessionID)

	if current, state := sc.Queue.Current(); state == feedback.StateShowing && current != nil {
		if data, err := json.Marshal(feedback.Event{Type: "show", Item: current}); err == nil {
			fmt.Fprintf(c.Writer, "event: feedback\ndata: %s\n\n", data)
		}
	}
	c.Writer.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case message, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprint(c.Writer, message)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		}
	}
}

type ackRequest struct {
	Confirmed bool `json:"confirmed"`
}

// PostFeedbackAck handles POST /api/v1/feedback/:id/ack
func (h *FeedbackHandlers) PostFeedbackAck(c *gin.Context) {
	username, _, _ := middleware.SessionIdentity(c)
	marker := h.perfTracker.StartOperation("post_feedback_ack_request", username)
	defer marker.Complete()

	sc, _, err := h.sessionService.Acquire(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	var req ackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// An empty body reads as a plain acknowledge
		req.Confirmed = false
	}

	if err := sc.Queue.Acknowledge(c.Param("id"), req.Confirmed); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
}
