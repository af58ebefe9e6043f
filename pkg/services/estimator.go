package services

import (
	"errors"
	"fmt"

	"cbm-estimator-api/pkg/models"
)

var (
	errMissingCategory = errors.New("row has no category")
	errNoReference     = errors.New("reference index is nil")
)

// Estimate resolves a row to a confidence tier and per-unit cbm/weight.
// Tiers are tried tightest first and the first tier with a match wins:
// brand+category+measure+unit_count (100), category+measure+unit_count (70),
// category mean (30), nothing (0). Failures degrade to the zero result.
func Estimate(row models.InputRow, index *ReferenceIndex) models.EstimationResult {
	res, err := estimate(row, index)
	if err != nil {
		return models.EstimationResult{Confidence: models.ConfidenceNone}
	}
	return res
}

func estimate(row models.InputRow, index *ReferenceIndex) (res models.EstimationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = models.EstimationResult{}, fmt.Errorf("estimate: %v", r)
		}
	}()

	if index == nil {
		return models.EstimationResult{}, errNoReference
	}
	if len(index.missing) > 0 {
		return models.EstimationResult{}, fmt.Errorf("reference is missing columns %v", index.missing)
	}
	if row.Category == "" {
		return models.EstimationResult{}, errMissingCategory
	}

	candidates := index.category(row.Category)
	if len(candidates) == 0 {
		return models.EstimationResult{Confidence: models.ConfidenceNone}, nil
	}

	// unparseable numbers compare as 0 on both sides
	measure := ParseNumericOr(row.MeasurementValue, 0)
	units := ParseNumericOr(row.UnitCount, 0)

	for _, rec := range candidates {
		if rec.BrandName == row.BrandName && rec.Measure == measure && rec.UnitCount == units {
			return models.EstimationResult{Confidence: models.ConfidenceExact, CBM: rec.CBM, Weight: rec.Weight}, nil
		}
	}

	for _, rec := range candidates {
		if rec.Measure == measure && rec.UnitCount == units {
			return models.EstimationResult{Confidence: models.ConfidenceCategory, CBM: rec.CBM, Weight: rec.Weight}, nil
		}
	}

	var cbm, weight float64
	for _, rec := range candidates {
		cbm += rec.CBM
		weight += rec.Weight
	}
	n := float64(len(candidates))
	return models.EstimationResult{
		Confidence: models.ConfidenceCategoryAverage,
		CBM:        cbm / n,
		Weight:     weight / n,
	}, nil
}
