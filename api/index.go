package handler

import (
	"context"
	"log"
	"net/http"
	"sync"

	config "cbm-estimator-api/configs"
	"cbm-estimator-api/pkg/logging"
	"cbm-estimator-api/pkg/server"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	app  *gin.Engine
	once sync.Once
)

// setupApp builds the gin engine once per serverless instance.
func setupApp() *gin.Engine {
	once.Do(func() {
		// environment variables come from the platform; no .env here
		cfg := config.LoadConfig()

		logger, err := logging.NewLogger(cfg.LogLevel, cfg.Environment)
		if err != nil {
			log.Printf("logger setup failed, logging disabled: %v", err)
			logger = zap.NewNop()
		}

		gin.SetMode(gin.ReleaseMode)
		app = server.NewRouter(context.Background(), cfg, logger, server.Dependencies{})
	})
	return app
}

// Handler is the Vercel entry point.
func Handler(w http.ResponseWriter, r *http.Request) {
	setupApp().ServeHTTP(w, r)
}
