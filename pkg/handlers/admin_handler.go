package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	config "cbm-estimator-api/configs"
	"cbm-estimator-api/pkg/models"

	"github.com/gin-gonic/gin"
)

// isMaintenanceMode reports whether the server is in maintenance.
var isMaintenanceMode atomic.Bool

// ReferenceStatusProvider reports the shape of the reference sheet.
type ReferenceStatusProvider interface {
	Status(ctx context.Context) (models.ReferenceStatus, error)
}

// AdminHandler handles administrative operations.
type AdminHandler struct {
	AdminUsername string
	AdminPassword string
	reference     ReferenceStatusProvider
	timeout       time.Duration
}

// NewAdminHandler creates an AdminHandler. reference may be nil.
func NewAdminHandler(cfg *config.Config, reference ReferenceStatusProvider) *AdminHandler {
	return &AdminHandler{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		reference:     reference,
		timeout:       cfg.ReferenceTimeout,
	}
}

// AdminCredentials is the request body of the maintenance endpoints.
type AdminCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) authorize(c *gin.Context) bool {
	var input AdminCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return false
	}

	// unset admin credentials never match
	if h.AdminUsername == "" || input.Username != h.AdminUsername || input.Password != h.AdminPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return false
	}
	return true
}

// StartMaintenance turns maintenance mode on.
func (h *AdminHandler) StartMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	isMaintenanceMode.Store(true)
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode started"})
}

// StopMaintenance turns maintenance mode off.
func (h *AdminHandler) StopMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	isMaintenanceMode.Store(false)
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode stopped"})
}

// GetHealthStatus returns the current server state.
func (h *AdminHandler) GetHealthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"isMaintenanceMode": isMaintenanceMode.Load()})
}

// GetReferenceStatus loads the reference sheet and reports its size and any missing columns.
func (h *AdminHandler) GetReferenceStatus(c *gin.Context) {
	if h.reference == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Reference data is not configured"})
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	status, err := h.reference.Status(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// HealthCheck answers external health checkers such as load balancers.
func HealthCheck(c *gin.Context) {
	if isMaintenanceMode.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "Server is in maintenance mode"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
