package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sugarswap/sugarswap-go/internal/application/services"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
)

// SessionCookieName is the cookie carrying the signed session token
const SessionCookieName = "sugarswap_session"

const (
	contextKeyUsername  = "username"
	contextKeySessionID = "sessionId"
)

// AuthMiddleware validates the session token and injects the session
// identity into the request context
func AuthMiddleware(authService *services.AuthService, logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractSessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			logger.Auth().Debug("Rejected session token", "error", err.Error(), "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		c.Set(contextKeyUsername, claims.Username)
		c.Set(contextKeySessionID, claims.SessionID)
		c.Next()
	}
}

// ExtractSessionToken pulls the session token from the cookie or the
// Authorization header
func ExtractSessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// SessionIdentity returns the authenticated username and session id set by
// AuthMiddleware
func SessionIdentity(c *gin.Context) (string, string, bool) {
	username, ok := c.Get(contextKeyUsername)
	if !ok {
		return "", "", false
	}
	sessionID, _ := c.Get(contextKeySessionID)
	sid, _ := sessionID.(string)
	name, _ := username.(string)
	return name, sid, name != ""
}
