package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sugarswap/sugarswap-go/internal/application/services"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/performance"
	"github.com/sugarswap/sugarswap-go/internal/presentation/http/middleware"
)

// ScannerHandlers serves the inbound barcode scanner stream. The browser
// scanner library decodes frames locally and pushes barcode strings up a
// websocket; each barcode runs the same flow as POST /scan.
type ScannerHandlers struct {
	scanService    *services.ScanService
	sessionService *services.SessionService
	logger         *logging.ChanneledLogger
	perfTracker    *performance.Tracker
	upgrader       websocket.Upgrader
}

// NewScannerHandlers creates scanner handlers with injected dependencies
func NewScannerHandlers(scanService *services.ScanService, sessionService *services.SessionService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ScannerHandlers {
	return &ScannerHandlers{
		scanService:    scanService,
		sessionService: sessionService,
		logger:         logger,
		perfTracker:    perfTracker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS middleware already gates the origins we serve
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type scannerAck struct {
	Barcode    string `json:"barcode"`
	Status     string `json:"status"`
	FeedbackID string `json:"feedback_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// GetScannerStream handles GET /api/v1/scanner/stream. A failed upgrade is
// the scanner-unavailable path: the client falls back to manual entry.
func (h *ScannerHandlers) GetScannerStream(c *gin.Context) {
	username, _, _ := middleware.SessionIdentity(c)

	sc, saver, err := h.sessionService.Acquire(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Session().Warn("Scanner stream upgrade failed", "username", logging.SanitizeUsername(username), "error", err.Error())
		// Upgrade already wrote the HTTP error response
		return
	}
	defer conn.Close()

	h.logger.Session().Info("Scanner stream opened", "username", logging.SanitizeUsername(username))

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			h.logger.Session().Debug("Scanner stream closed", "username", logging.SanitizeUsername(username), "error", err.Error())
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		barcode := string(payload)
		marker := h.perfTracker.StartOperation("scanner_stream_scan", username)

		ack := scannerAck{Barcode: barcode}
		_, feedbackID, err := h.scanService.SubmitScan(c.Request.Context(), sc, saver, barcode)
		ack.FeedbackID = feedbackID
		if err != nil {
			ack.Status = "error"
			ack.Error = err.Error()
			marker.SetError(err)
		} else {
			ack.Status = "pending_confirmation"
			marker.SetSuccess(true)
		}
		marker.Complete()

		if err := conn.WriteJSON(ack); err != nil {
			h.logger.Session().Debug("Scanner stream write failed", "username", logging.SanitizeUsername(username), "error", err.Error())
			return
		}
	}
}
