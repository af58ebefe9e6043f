package server

import (
	"context"
	"net/http"

	config "cbm-estimator-api/configs"
	"cbm-estimator-api/pkg/handlers"
	"cbm-estimator-api/pkg/logging"
	"cbm-estimator-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies lets callers replace the spreadsheet backed collaborators.
// Nil fields are built from the config.
type Dependencies struct {
	Fetcher    services.SheetValuesFetcher
	Monitoring *services.MonitoringService
}

// NewRouter wires services, handlers and middleware into a gin engine.
func NewRouter(ctx context.Context, cfg *config.Config, logger *zap.Logger, deps Dependencies) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Sheets client
	fetcher := deps.Fetcher
	if fetcher == nil {
		client, err := services.NewSheetsClient(ctx, services.SheetsOptions{
			SpreadsheetID:   cfg.SpreadsheetID,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
			APIKey:          cfg.GoogleAPIKey,
			MaxRetries:      cfg.ReferenceMaxRetries,
		}, logger.Named("sheets"))
		if err != nil {
			// requests that need the spreadsheet fail with ErrSheetsNotConfigured
			logger.Warn("sheets client unavailable", zap.Error(err))
		}
		fetcher = client
	}

	// service initialization
	monitoringService := deps.Monitoring
	if monitoringService == nil {
		monitoringService = services.NewMonitoringService()
	}

	referenceService := services.NewReferenceService(fetcher, cfg.FallbackSheet, logger.Named("reference"))
	retailerService := services.NewRetailerService(fetcher, cfg.TasksSheet, logger.Named("retailers"))

	// handler initialization
	cbmHandler := handlers.NewCBMHandler(referenceService, monitoringService, cfg.MaxUploadMB<<20, cfg.ReferenceTimeout, logger.Named("cbm"))
	sheetsHandler := handlers.NewSheetsHandler(fetcher, retailerService, cfg.ExposedSheets, cfg.ReferenceTimeout)
	adminHandler := handlers.NewAdminHandler(cfg, referenceService)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// middleware registration
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinLogger(logger))
	r.Use(monitoringService.LoggingMiddleware())
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	// health check endpoint
	r.GET("/health", handlers.HealthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey))
	{
		// CBM estimation API
		cbm := v1.Group("/cbm")
		{
			cbm.POST("/calculate", cbmHandler.Calculate)
			cbm.POST("/breakdown", cbmHandler.Breakdown)
			cbm.POST("/export", cbmHandler.Export)
		}

		// trip and spreadsheet API
		v1.POST("/trips/assign", cbmHandler.AssignTrips)
		v1.GET("/retailers", sheetsHandler.GetRetailers)
		v1.GET("/sheets/:name", sheetsHandler.GetSheet)

		// admin API
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.GET("/reference-status", adminHandler.GetReferenceStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		// monitoring API
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "X-API-KEY")
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	return cfg
}

// authMiddleware requires X-API-KEY to equal apiKey. An empty apiKey disables the check.
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-KEY") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
