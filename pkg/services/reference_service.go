package services

import (
	"context"
	"errors"
	"fmt"

	"cbm-estimator-api/pkg/models"

	"go.uber.org/zap"
)

// ErrReferenceUnavailable means the reference sheet could not be obtained at all.
// It is distinct from an index that simply has no matching records.
var ErrReferenceUnavailable = errors.New("reference data unavailable")

// referenceColumns lists the header names accepted for each reference field.
var referenceColumns = []struct {
	field   string
	aliases []string
}{
	{"BRAND_NAME", []string{"BRAND_NAME"}},
	{"CATEGORY", []string{"CATEGORY"}},
	{"measure", []string{"measure", "measurement_value"}},
	{"unit count", []string{"unit count", "unit_count"}},
	{"CBM", []string{"CBM"}},
	{"Weight", []string{"Weight"}},
}

// ReferenceProvider yields the reference index for one request.
type ReferenceProvider interface {
	LoadReference(ctx context.Context) (*ReferenceIndex, error)
}

// ReferenceService loads the reference (Fallback) sheet into a ReferenceIndex on every call.
type ReferenceService struct {
	fetcher SheetValuesFetcher
	sheet   string
	logger  *zap.Logger
}

// NewReferenceService creates a ReferenceService reading sheet through fetcher.
func NewReferenceService(fetcher SheetValuesFetcher, sheet string, logger *zap.Logger) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{fetcher: fetcher, sheet: sheet, logger: logger}
}

// Sheet returns the name of the reference sheet.
func (s *ReferenceService) Sheet() string {
	return s.sheet
}

// LoadReference fetches and decodes the reference sheet.
func (s *ReferenceService) LoadReference(ctx context.Context) (*ReferenceIndex, error) {
	rows, err := FetchTable(ctx, s.fetcher, s.sheet)
	if err != nil {
		s.logger.Error("failed to load reference sheet", zap.String("sheet", s.sheet), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrReferenceUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrReferenceUnavailable, s.sheet)
	}

	index := DecodeReferenceRows(rows)
	if missing := index.MissingColumns(); len(missing) > 0 {
		s.logger.Warn("reference sheet is missing columns, every row will resolve unmatched",
			zap.String("sheet", s.sheet), zap.Strings("missing", missing))
	} else {
		s.logger.Debug("reference sheet loaded",
			zap.String("sheet", s.sheet),
			zap.Int("records", index.Len()),
			zap.Int("categories", index.CategoryCount()))
	}
	return index, nil
}

// Status loads the reference and reports its shape.
func (s *ReferenceService) Status(ctx context.Context) (models.ReferenceStatus, error) {
	index, err := s.LoadReference(ctx)
	if err != nil {
		return models.ReferenceStatus{}, err
	}
	return models.ReferenceStatus{
		Sheet:          s.sheet,
		Records:        index.Len(),
		Categories:     index.CategoryCount(),
		MissingColumns: index.MissingColumns(),
	}, nil
}

// DecodeReferenceRows builds an index from a header row plus data rows.
// Numeric cells are coerced with ParseNumericOr(v, 0).
func DecodeReferenceRows(rows [][]string) *ReferenceIndex {
	if len(rows) == 0 {
		return newMalformedIndex([]string{"header"})
	}

	header := rows[0]
	cols := make([]int, len(referenceColumns))
	var missing []string
	for i, rc := range referenceColumns {
		cols[i] = findColumn(header, rc.aliases...)
		if cols[i] < 0 {
			missing = append(missing, rc.field)
		}
	}
	if len(missing) > 0 {
		return newMalformedIndex(missing)
	}

	records := make([]models.ReferenceRecord, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		if isBlankRow(cells) {
			continue
		}
		records = append(records, models.ReferenceRecord{
			BrandName: cell(cells, cols[0]),
			Category:  cell(cells, cols[1]),
			Measure:   ParseNumericOr(cell(cells, cols[2]), 0),
			UnitCount: ParseNumericOr(cell(cells, cols[3]), 0),
			CBM:       ParseNumericOr(cell(cells, cols[4]), 0),
			Weight:    ParseNumericOr(cell(cells, cols[5]), 0),
		})
	}
	return NewReferenceIndex(records)
}
