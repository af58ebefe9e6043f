package handlers

import (
	"context"
	"net/http"
	"time"

	"cbm-estimator-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// SheetsHandler serves spreadsheet backed listings.
type SheetsHandler struct {
	fetcher   services.SheetValuesFetcher
	retailers *services.RetailerService
	exposed   map[string]bool
	timeout   time.Duration
}

// NewSheetsHandler creates a SheetsHandler. Only sheets in exposed can be read raw.
func NewSheetsHandler(fetcher services.SheetValuesFetcher, retailers *services.RetailerService, exposed []string, timeout time.Duration) *SheetsHandler {
	allowed := make(map[string]bool, len(exposed))
	for _, name := range exposed {
		allowed[name] = true
	}
	return &SheetsHandler{fetcher: fetcher, retailers: retailers, exposed: allowed, timeout: timeout}
}

func (h *SheetsHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.timeout)
	}
	return context.WithCancel(c.Request.Context())
}

// GetRetailers returns the retailer rows located inside the service area.
func (h *SheetsHandler) GetRetailers(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	retailers, err := h.retailers.ListRetailers(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, retailers)
}

// GetSheet returns the rows of an exposed sheet as header->value records.
func (h *SheetsHandler) GetSheet(c *gin.Context) {
	name := c.Param("name")
	if !h.exposed[name] {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sheet not available: " + name})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	rows, err := services.FetchTable(ctx, h.fetcher, name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.TableRecords(rows))
}
