package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"cbm-estimator-api/pkg/models"
	"cbm-estimator-api/pkg/services"

	"github.com/gin-gonic/gin"
)

var (
	errMissingFile  = errors.New("no file uploaded")
	errFileTooLarge = errors.New("uploaded file is too large")
)

// limitBody caps the request body before it is first parsed.
func limitBody(c *gin.Context, maxBytes int64) {
	if maxBytes > 0 && c.Request.MultipartForm == nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
}

// readUpload parses the multipart "file" field into order rows.
func readUpload(c *gin.Context, maxBytes int64) ([]models.InputRow, error) {
	limitBody(c, maxBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if tooLarge := bodyLimitError(err); tooLarge != nil {
			return nil, tooLarge
		}
		return nil, errMissingFile
	}
	defer file.Close()

	return services.ReadOrderTable(file, header.Filename)
}

// bodyLimitError returns errFileTooLarge when err came from an exceeded body limit, nil otherwise.
func bodyLimitError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, tooLarge.Limit)
	}
	return nil
}

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	var invalidQty *services.InvalidQuantityError
	switch {
	case errors.Is(err, services.ErrReferenceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrNoRetailers), errors.Is(err, services.ErrSheetNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSheetsNotConfigured),
		errors.Is(err, services.ErrSheetUnauthorized),
		errors.Is(err, services.ErrSheetForbidden),
		errors.Is(err, services.ErrSheetRateLimited):
		return http.StatusBadGateway
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrUnsupportedFormat),
		errors.Is(err, services.ErrEmptyTable),
		errors.Is(err, errMissingFile),
		errors.As(err, &invalidQty):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the {"error": ...} body used by every endpoint.
func respondError(c *gin.Context, err error) {
	status := errorStatus(err)
	_ = c.Error(err)

	msg := err.Error()
	switch {
	case errors.Is(err, services.ErrReferenceUnavailable):
		msg = "Failed to load fallback data: " + err.Error()
	case errors.Is(err, services.ErrNoRetailers):
		msg = "No data found"
	}
	c.JSON(status, gin.H{"error": msg})
}
