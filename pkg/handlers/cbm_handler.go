package handlers

import (
	"context"
	"net/http"
	"time"

	"cbm-estimator-api/pkg/models"
	"cbm-estimator-api/pkg/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CBMHandler serves the estimation endpoints. Every request loads its own reference index.
type CBMHandler struct {
	reference        services.ReferenceProvider
	monitoring       *services.MonitoringService
	maxUploadBytes   int64
	referenceTimeout time.Duration
	logger           *zap.Logger
}

// NewCBMHandler creates a CBMHandler. monitoring may be nil.
func NewCBMHandler(
	reference services.ReferenceProvider,
	monitoring *services.MonitoringService,
	maxUploadBytes int64,
	referenceTimeout time.Duration,
	logger *zap.Logger,
) *CBMHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CBMHandler{
		reference:        reference,
		monitoring:       monitoring,
		maxUploadBytes:   maxUploadBytes,
		referenceTimeout: referenceTimeout,
		logger:           logger,
	}
}

// estimate reads the upload, loads the reference and aggregates the batch.
// On failure the error response is already written and ok is false.
func (h *CBMHandler) estimate(c *gin.Context) (rows []models.InputRow, batch models.BatchResult, ok bool) {
	rows, err := readUpload(c, h.maxUploadBytes)
	if err != nil {
		respondError(c, err)
		return nil, models.BatchResult{}, false
	}

	ctx := c.Request.Context()
	if h.referenceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.referenceTimeout)
		defer cancel()
	}

	index, err := h.reference.LoadReference(ctx)
	if err != nil {
		respondError(c, err)
		return nil, models.BatchResult{}, false
	}

	batch = services.Aggregate(rows, index)
	if h.monitoring != nil {
		h.monitoring.RecordBatch(batch.Summary)
	}
	h.logger.Info("batch estimated",
		zap.Int("rows", len(batch.Results)),
		zap.Int("exact", batch.Summary.ConfidenceLevels[models.ConfidenceExact]),
		zap.Int("unmatched", batch.Summary.ConfidenceLevels[models.ConfidenceNone]))
	return rows, batch, true
}

// Calculate estimates every row of the uploaded sheet.
func (h *CBMHandler) Calculate(c *gin.Context) {
	_, batch, ok := h.estimate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, batch)
}

// Breakdown returns the per-order, per-supplier and per-area views of a batch.
func (h *CBMHandler) Breakdown(c *gin.Context) {
	rows, batch, ok := h.estimate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, services.BuildBreakdown(rows, batch))
}

// Export returns the batch as an xlsx workbook.
func (h *CBMHandler) Export(c *gin.Context) {
	_, batch, ok := h.estimate(c)
	if !ok {
		return
	}

	buf, err := services.ExportWorkbook(batch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="cbm_results.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// AssignTrips packs the orders of the uploaded sheet into vehicle trips.
func (h *CBMHandler) AssignTrips(c *gin.Context) {
	limitBody(c, h.maxUploadBytes)

	var constraints models.TripConstraints
	if err := c.ShouldBind(&constraints); err != nil {
		if tooLarge := bodyLimitError(err); tooLarge != nil {
			respondError(c, tooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip constraints: " + err.Error()})
		return
	}

	_, batch, ok := h.estimate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, services.PlanTrips(batch, constraints))
}
