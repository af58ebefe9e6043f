package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"cbm-estimator-api/pkg/models"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, upload .xlsx or .csv")
	ErrEmptyTable        = errors.New("file has no header row")
)

// InvalidQuantityError reports a product_amount cell that is present but not numeric.
type InvalidQuantityError struct {
	Row   int // 1-based sheet row, header is row 1
	Value string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("row %d: product_amount %q is not a number", e.Row, e.Value)
}

// orderColumns maps each InputRow field to the header names accepted for it.
var orderColumns = struct {
	orderID, productID, brand, category, measure, units, amount, supplier, area []string
}{
	orderID:   []string{"order_id"},
	productID: []string{"product_id", "base_product_id"},
	brand:     []string{"brand_name"},
	category:  []string{"category"},
	measure:   []string{"measurement_value"},
	units:     []string{"unit_count"},
	amount:    []string{"product_amount"},
	supplier:  []string{"supplier_name"},
	area:      []string{"customer_area"},
}

// ReadRawTable reads the first sheet of an xlsx/xlsm file or a csv file into rows of cells.
func ReadRawTable(r io.Reader, filename string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()
		rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet rows: %w", err)
		}
		return rows, nil
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// ReadOrderTable parses an uploaded order sheet into input rows.
func ReadOrderTable(r io.Reader, filename string) ([]models.InputRow, error) {
	raw, err := ReadRawTable(r, filename)
	if err != nil {
		return nil, err
	}
	return DecodeOrderRows(raw)
}

// DecodeOrderRows maps a header row plus data rows onto InputRows.
// Missing columns leave fields blank; blank rows are skipped.
func DecodeOrderRows(raw [][]string) ([]models.InputRow, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyTable
	}

	header := raw[0]
	var (
		orderIdx    = findColumn(header, orderColumns.orderID...)
		productIdx  = findColumn(header, orderColumns.productID...)
		brandIdx    = findColumn(header, orderColumns.brand...)
		categoryIdx = findColumn(header, orderColumns.category...)
		measureIdx  = findColumn(header, orderColumns.measure...)
		unitsIdx    = findColumn(header, orderColumns.units...)
		amountIdx   = findColumn(header, orderColumns.amount...)
		supplierIdx = findColumn(header, orderColumns.supplier...)
		areaIdx     = findColumn(header, orderColumns.area...)
	)

	rows := make([]models.InputRow, 0, len(raw)-1)
	for i, cells := range raw[1:] {
		if isBlankRow(cells) {
			continue
		}

		row := models.InputRow{
			OrderID:          cell(cells, orderIdx),
			ProductID:        cell(cells, productIdx),
			BrandName:        cell(cells, brandIdx),
			Category:         cell(cells, categoryIdx),
			MeasurementValue: cell(cells, measureIdx),
			UnitCount:        cell(cells, unitsIdx),
			SupplierName:     cell(cells, supplierIdx),
			CustomerArea:     cell(cells, areaIdx),
		}

		if amount := cell(cells, amountIdx); amount != "" {
			qty, ok := parseNumeric(amount)
			if !ok {
				return nil, &InvalidQuantityError{Row: i + 2, Value: amount}
			}
			row.ProductAmount = &qty
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// findColumn returns the index of the first header matching any candidate, ignoring case and padding.
func findColumn(header []string, candidates ...string) int {
	for _, candidate := range candidates {
		for i, item := range header {
			if strings.EqualFold(strings.TrimSpace(item), candidate) {
				return i
			}
		}
	}
	return -1
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
