// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/sugarswap/sugarswap-go/internal/application/services"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/lookup"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/messaging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/performance"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/offline"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/persistence/database"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/persistence/user"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services
	AuthService        *services.AuthService
	SessionService     *services.SessionService
	CatalogService     *services.CatalogService
	ProgressionService *services.ProgressionService
	ScanService        *services.ScanService

	// Infrastructure
	DB             *database.DB
	UserRepository *user.SQLUserRepository
	LookupClient   *lookup.Client
	Broadcaster    *messaging.SSEBroadcaster
	OfflineStore   *offline.Store
	OfflineGateway *offline.Gateway
	Logger         *logging.ChanneledLogger
	PerfTracker    *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(db *database.DB, logger *logging.ChanneledLogger) *Container {
	perfTracker := performance.NewTracker()
	broadcaster := messaging.NewSSEBroadcaster(logger)
	userRepo := user.NewSQLUserRepository(db, logger)
	lookupClient := lookup.NewClient(logger)

	sessionService := services.NewSessionService(userRepo, broadcaster, logger)
	authService := services.NewAuthService(userRepo, sessionService, logger)
	progressionService := services.NewProgressionService(logger)
	catalogService := services.NewCatalogService(lookupClient, logger)
	scanService := services.NewScanService(catalogService, progressionService, broadcaster, logger)

	offlineStore := offline.NewStore(logger)
	offlineGateway := offline.NewGateway(offlineStore, nil, logger)

	return &Container{
		AuthService:        authService,
		SessionService:     sessionService,
		CatalogService:     catalogService,
		ProgressionService: progressionService,
		ScanService:        scanService,

		DB:             db,
		UserRepository: userRepo,
		LookupClient:   lookupClient,
		Broadcaster:    broadcaster,
		OfflineStore:   offlineStore,
		OfflineGateway: offlineGateway,
		Logger:         logger,
		PerfTracker:    perfTracker,
	}
}
