package services

import (
	"context"
	"errors"
	"strings"

	"cbm-estimator-api/pkg/models"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// ErrNoRetailers is returned when the tasks sheet yields no rows inside the service area.
var ErrNoRetailers = errors.New("no retailer data found")

// retailerColumns are the task sheet columns exposed by the listing, in output order.
var retailerColumns = []string{
	"order_id", "retailer_name", "customer_area", "customer_latitude", "customer_longitude",
	"supplier_name", "supplier_latitude", "supplier_longitude", "created_at", "delivery_date",
}

// EgyptBounds is the service area: longitude [24.7, 37.0], latitude [22.0, 31.9], edges included.
func EgyptBounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(24.7, 22.0, 37.0, 31.9)
}

// InBounds reports whether the lat/lng strings parse and fall inside bounds.
func InBounds(bounds *geom.Bounds, lat, lng string) bool {
	la, ok := parseNumeric(lat)
	if !ok {
		return false
	}
	lo, ok := parseNumeric(lng)
	if !ok {
		return false
	}
	return bounds.OverlapsPoint(geom.XY, geom.Coord{lo, la})
}

// RetailerService lists retailer/task rows located inside the service area.
type RetailerService struct {
	fetcher SheetValuesFetcher
	sheet   string
	bounds  *geom.Bounds
	logger  *zap.Logger
}

// NewRetailerService creates a RetailerService reading sheet through fetcher.
func NewRetailerService(fetcher SheetValuesFetcher, sheet string, logger *zap.Logger) *RetailerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetailerService{fetcher: fetcher, sheet: sheet, bounds: EgyptBounds(), logger: logger}
}

// ListRetailers returns the in-area rows restricted to the retailer columns.
func (s *RetailerService) ListRetailers(ctx context.Context) ([]models.Retailer, error) {
	rows, err := FetchTable(ctx, s.fetcher, s.sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRetailers
	}

	retailers := FilterRetailers(rows, s.bounds)
	s.logger.Debug("retailers filtered",
		zap.String("sheet", s.sheet),
		zap.Int("rows", len(rows)),
		zap.Int("kept", len(retailers)))
	if len(retailers) == 0 {
		return nil, ErrNoRetailers
	}
	return retailers, nil
}

// FilterRetailers locates the header row, projects the retailer columns and keeps rows inside bounds.
// Blank cells become "". Rows without customer coordinates are dropped.
func FilterRetailers(rows [][]string, bounds *geom.Bounds) []models.Retailer {
	header, data := splitRetailerHeader(rows)

	type column struct {
		name string
		idx  int
	}
	var cols []column
	for _, name := range retailerColumns {
		if idx := findColumn(header, name); idx >= 0 {
			cols = append(cols, column{name, idx})
		}
	}
	latIdx := findColumn(header, "customer_latitude")
	lngIdx := findColumn(header, "customer_longitude")

	out := make([]models.Retailer, 0, len(data))
	if latIdx < 0 || lngIdx < 0 {
		return out
	}
	for _, cells := range data {
		if !InBounds(bounds, cell(cells, latIdx), cell(cells, lngIdx)) {
			continue
		}
		r := make(models.Retailer, len(cols))
		for _, c := range cols {
			r[c.name] = cell(cells, c.idx)
		}
		out = append(out, r)
	}
	return out
}

// splitRetailerHeader uses the first row as the header unless the next row names
// customer_latitude, in which case that row is the real header.
func splitRetailerHeader(rows [][]string) ([]string, [][]string) {
	if len(rows) == 0 {
		return nil, nil
	}
	header, data := rows[0], rows[1:]
	if len(data) > 0 && namesLatitude(data[0]) {
		header, data = data[0], data[1:]
	}
	return header, data
}

func namesLatitude(cells []string) bool {
	for _, c := range cells {
		if strings.Contains(c, "customer_latitude") {
			return true
		}
	}
	return false
}
