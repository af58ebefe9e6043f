package services

import (
	"bytes"
	"fmt"
	"sort"

	"cbm-estimator-api/pkg/models"

	"github.com/xuri/excelize/v2"
)

const (
	ExportResultsSheet = "Results"
	ExportOrdersSheet  = "Orders"
	ExportSummarySheet = "Summary"
)

// ExportWorkbook renders a batch as an xlsx workbook with result, order and summary sheets.
func ExportWorkbook(batch models.BatchResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportResultsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	results := [][]interface{}{{"order_id", "product_id", "confidence", "cbm", "weight", "total_cbm", "total_weight"}}
	for _, r := range batch.Results {
		results = append(results, []interface{}{
			r.OrderID, r.ProductID, int(r.Confidence), r.CBM, r.Weight, r.TotalCBM, r.TotalWeight,
		})
	}
	if err := writeRows(f, ExportResultsSheet, results); err != nil {
		return nil, err
	}

	orders := [][]interface{}{{"order_id", "total_cbm", "total_weight", "avg_confidence", "line_count"}}
	for _, o := range OrderViews(batch) {
		orders = append(orders, []interface{}{o.OrderID, o.TotalCBM, o.TotalWeight, o.AvgConfidence, o.LineCount})
	}
	if err := writeRows(f, ExportOrdersSheet, orders); err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"total_cbm", batch.Summary.TotalCBM},
		{"total_weight", batch.Summary.TotalWeight},
	}
	levels := make([]int, 0, len(batch.Summary.ConfidenceLevels))
	for c := range batch.Summary.ConfidenceLevels {
		levels = append(levels, int(c))
	}
	sort.Sort(sort.Reverse(sort.IntSlice(levels)))
	for _, c := range levels {
		summary = append(summary, []interface{}{
			fmt.Sprintf("confidence_%d", c), batch.Summary.ConfidenceLevels[models.Confidence(c)],
		})
	}
	if err := writeRows(f, ExportSummarySheet, summary); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	if idx, err := f.GetSheetIndex(sheet); err != nil {
		return fmt.Errorf("lookup sheet %s: %w", sheet, err)
	} else if idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, ref, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
