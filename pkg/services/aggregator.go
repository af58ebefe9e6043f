package services

import "cbm-estimator-api/pkg/models"

// Aggregate estimates every row in input order, scales by quantity and accumulates the summary.
// Rows are independent; there is no reordering or deduplication.
func Aggregate(rows []models.InputRow, index *ReferenceIndex) models.BatchResult {
	out := models.BatchResult{
		Results: make([]models.ResultRow, 0, len(rows)),
		Summary: models.Summary{ConfidenceLevels: make(map[models.Confidence]int)},
	}

	for _, row := range rows {
		est := Estimate(row, index)
		qty := row.Quantity()

		result := models.ResultRow{
			OrderID:     row.OrderID,
			ProductID:   row.ProductID,
			Confidence:  est.Confidence,
			CBM:         est.CBM,
			Weight:      est.Weight,
			TotalCBM:    est.CBM * qty,
			TotalWeight: est.Weight * qty,
		}
		out.Results = append(out.Results, result)

		out.Summary.TotalCBM += result.TotalCBM
		out.Summary.TotalWeight += result.TotalWeight
		out.Summary.ConfidenceLevels[result.Confidence]++
	}

	return out
}
