// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sugarswap/sugarswap-go/internal/application/container"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/persistence/database"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/security"
	"github.com/sugarswap/sugarswap-go/internal/presentation/http/server"
	"github.com/sugarswap/sugarswap-go/pkg/config"
)

// Static assets pre-warmed into the offline gateway on install
var precacheManifest = []string{
	"/",
	"/static/css/style.css",
	"/static/js/app.js",
	"/static/js/scanner.js",
	"/favicon.ico",
}

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `

 ▄▄▄ ▄  ▄ ▄▄▄ ▄▄▄ ▄▄▄ ▄▄▄ ▄   ▄ ▄▄▄ ▄▄▄
 ▀▄  █  █ █ ▄ █▄█ █▄▀ ▀▄  █ ▄ █ █▄█ █▄█
 ▄▄▀ ▀▄▄▀ █▄█ █ █ █ █ ▄▄▀ ▀▄▀▄▀ █ █ █
` + "\033[97m" + `
  swap the sugar, keep the streak
` + "\033[0m")

	// Step 1: Resolve secrets. Generated secrets keep dev setups running
	// but invalidate sessions on restart.
	if err := ensureSecrets(); err != nil {
		return err
	}

	// Step 2: Create the channeled logger
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Startup().Info("Channeled logging initialized")

	// Step 3: Open the user store
	logger.Startup().Info("Connecting to database...", "driver", config.DBDriver)
	dsn := config.DBPath
	if config.DBDriver == "libsql" {
		if err := database.TestTursoConnection(config.TursoDatabaseURL, config.TursoAuthToken); err != nil {
			return fmt.Errorf("turso connection check failed: %w", err)
		}
		dsn = database.TursoConnStr(config.TursoDatabaseURL, config.TursoAuthToken)
	}
	db, err := database.NewConnectionWithLogger(config.DBDriver, dsn, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.EnsureSchema(); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	logger.Startup().Info("Database ready")

	// Step 4: Create dependency injection container
	appContainer := container.NewContainer(db, logger)
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 5: Start background workers
	appContainer.SessionService.StartCleanup(ctx, 10*time.Minute, time.Hour)
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := appContainer.PerfTracker.Cleanup(time.Hour)
				logger.Perf().Debug("Performance markers cleaned", "removed", removed)
			}
		}
	}()
	logger.Startup().Info("Background workers started")

	// Step 6: Start the offline cache gateway
	go func() {
		addr := ":" + config.OfflineGatewayPort
		if err := appContainer.OfflineGateway.Run(ctx, addr, precacheManifest); err != nil {
			logger.Offline().Error("Offline gateway failed", "error", err.Error())
		}
	}()

	// Step 7: Start HTTP server
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port,
		"offlineGatewayPort", config.OfflineGatewayPort,
	)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	shutdownStart := time.Now()

	cancelBackgroundTasks()

	// Flush every live session before the server stops accepting writes
	appContainer.SessionService.FlushAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	if err := db.Close(); err != nil {
		logger.Shutdown().Error("Error closing database", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart),
	)
	return logger.Close()
}

// ensureSecrets fills in missing JWT and AES secrets with generated keys
func ensureSecrets() error {
	if config.JWTSecret == "" {
		key, err := security.GenerateSecureKey(64)
		if err != nil {
			return fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		config.JWTSecret = key
		log.Println("WARNING: JWT_SECRET not set, generated an ephemeral one; sessions will not survive restarts")
	}
	if config.AESKey == "" {
		key, err := security.GenerateSecureKey(64)
		if err != nil {
			return fmt.Errorf("failed to generate AES key: %w", err)
		}
		config.AESKey = key
		log.Println("WARNING: AES_KEY not set, generated an ephemeral one")
	}
	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
