// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sugarswap/sugarswap-go/internal/application/services"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/performance"
	"github.com/sugarswap/sugarswap-go/internal/presentation/http/middleware"
	"github.com/sugarswap/sugarswap-go/pkg/config"
)

// AuthHandlers contains the registration and session HTTP handlers
type AuthHandlers struct {
	authService    *services.AuthService
	sessionService *services.SessionService
	logger         *logging.ChanneledLogger
	perfTracker    *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, sessionService *services.SessionService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService:    authService,
		sessionService: sessionService,
		logger:         logger,
		perfTracker:    perfTracker,
	}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PostRegister handles POST /api/v1/auth/register
func (h *AuthHandlers) PostRegister(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_register_request", "")
	defer marker.Complete()

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	if err := h.authService.Register(req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		case errors.Is(err, services.ErrBadRegistration):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Auth().Error("Registration failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		}
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusCreated, gin.H{"status": "registered", "username": req.Username})
}

// PostLogin handles POST /api/v1/auth/login
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_login_request", "")
	defer marker.Complete()

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
			return
		}
		h.logger.Auth().Error("Login failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	// Warm the session so the first scan doesn't pay the load
	if _, _, err := h.sessionService.Acquire(req.Username); err != nil {
		h.logger.Session().Error("Failed to warm session on login", "error", err.Error())
	}

	c.SetCookie(middleware.SessionCookieName, token, config.SessionCookieAge, "/", "", false, true)
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"status": "success", "username": req.Username})
}

// PostLogout handles POST /api/v1/auth/logout. Pending state is flushed
// before the session is torn down.
func (h *AuthHandlers) PostLogout(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_logout_request", "")
	defer marker.Complete()

	username, _, ok := middleware.SessionIdentity(c)
	if ok {
		h.authService.Logout(username)
	}

	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// GetSessionCheck handles GET /api/v1/session/check. Never fails; an
// absent or invalid token reads as logged out.
func (h *AuthHandlers) GetSessionCheck(c *gin.Context) {
	token := middleware.ExtractSessionToken(c)
	if token == "" {
		c.JSON(http.StatusOK, gin.H{"logged_in": false})
		return
	}

	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"logged_in": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logged_in": true, "username": claims.Username})
}
