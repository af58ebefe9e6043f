package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	config "cbm-estimator-api/configs"
	"cbm-estimator-api/pkg/logging"
	"cbm-estimator-api/pkg/server"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	// optional; a missing .env is fine
	_ = godotenv.Load("../../.env")

	os.Exit(m.Run())
}

func TestApplicationSetup(t *testing.T) {
	t.Setenv("API_KEY", "")

	cfg := config.LoadConfig()
	require.NotNil(t, cfg)

	logger, err := logging.NewLogger("error", "test")
	require.NoError(t, err)

	r := server.NewRouter(context.Background(), cfg, logger, server.Dependencies{})
	require.NotNil(t, r)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest(http.MethodGet, "/api/v1/admin/health-status", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "isMaintenanceMode")
}
