// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sugarswap/sugarswap-go/internal/application/container"
	"github.com/sugarswap/sugarswap-go/internal/presentation/http/handlers"
	"github.com/sugarswap/sugarswap-go/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Serve the web client
	r.Static("/static", "web/static")
	r.StaticFile("/", "web/static/index.html")
	r.StaticFile("/favicon.ico", "web/static/favicon.ico")

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.SessionService, container.Logger, container.PerfTracker)
	userDataHandlers := handlers.NewUserDataHandlers(container.SessionService, container.ProgressionService, container.Logger, container.PerfTracker)
	scanHandlers := handlers.NewScanHandlers(container.ScanService, container.CatalogService, container.SessionService, container.ProgressionService, container.Logger, container.PerfTracker)
	feedbackHandlers := handlers.NewFeedbackHandlers(container.SessionService, container.Broadcaster, container.Logger, container.PerfTracker)
	scannerHandlers := handlers.NewScannerHandlers(container.ScanService, container.SessionService, container.Logger, container.PerfTracker)
	systemHandlers := handlers.NewSystemHandlers(container.DB, container.SessionService, container.Logger, container.PerfTracker)

	api := r.Group("/api/v1")
	{
		// Public endpoints
		api.POST("/auth/register", authHandlers.PostRegister)
		api.POST("/auth/login", authHandlers.PostLogin)
		api.GET("/session/check", authHandlers.GetSessionCheck)
		api.GET("/system/health", systemHandlers.GetHealth)

		// Authenticated endpoints
		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(container.AuthService, container.Logger))
		{
			authed.POST("/auth/logout", authHandlers.PostLogout)

			authed.GET("/user/data", userDataHandlers.GetUserData)
			authed.POST("/user/data", userDataHandlers.PostUserData)

			authed.GET("/proxy/product/:barcode", scanHandlers.GetProductProxy)
			authed.POST("/scan", scanHandlers.PostScan)
			authed.POST("/log/water", scanHandlers.PostLogWater)
			authed.GET("/stats", scanHandlers.GetStats)

			authed.GET("/feedback/sse", feedbackHandlers.GetFeedbackStream)
			authed.POST("/feedback/:id/ack", feedbackHandlers.PostFeedbackAck)

			authed.GET("/scanner/stream", scannerHandlers.GetScannerStream)

			authed.GET("/system/performance", systemHandlers.GetPerformance)
			authed.GET("/system/logs/levels", systemHandlers.GetLogLevels)
			authed.POST("/system/logs/levels", systemHandlers.PostLogLevel)
		}
	}

	return r
}
