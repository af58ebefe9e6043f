package models

// Confidence is the match tier an estimate resolved at.
type Confidence int

const (
	ConfidenceNone            Confidence = 0
	ConfidenceCategoryAverage Confidence = 30
	ConfidenceCategory        Confidence = 70
	ConfidenceExact           Confidence = 100
)

// InputRow is one line of an uploaded order sheet.
// MeasurementValue and UnitCount keep the raw cell text; they are coerced when matched.
type InputRow struct {
	OrderID          string   `json:"order_id"`
	ProductID        string   `json:"product_id"`
	BrandName        string   `json:"brand_name"`
	Category         string   `json:"category"`
	MeasurementValue string   `json:"measurement_value"`
	UnitCount        string   `json:"unit_count"`
	ProductAmount    *float64 `json:"product_amount,omitempty"` // nil: column absent or blank
	SupplierName     string   `json:"supplier_name,omitempty"`
	CustomerArea     string   `json:"customer_area,omitempty"`
}

// Quantity returns the product amount, defaulting to 1 when absent.
func (r InputRow) Quantity() float64 {
	if r.ProductAmount == nil {
		return 1
	}
	return *r.ProductAmount
}

// ReferenceRecord is one row of the reference (Fallback) sheet.
type ReferenceRecord struct {
	BrandName string  `json:"brand_name"`
	Category  string  `json:"category"`
	Measure   float64 `json:"measure"`
	UnitCount float64 `json:"unit_count"`
	CBM       float64 `json:"cbm"`
	Weight    float64 `json:"weight"`
}

// EstimationResult is the estimator output for a single row.
type EstimationResult struct {
	Confidence Confidence `json:"confidence"`
	CBM        float64    `json:"cbm"`
	Weight     float64    `json:"weight"`
}

// ResultRow is an estimation result with row identity and quantity-scaled totals.
type ResultRow struct {
	OrderID     string     `json:"order_id"`
	ProductID   string     `json:"product_id"`
	Confidence  Confidence `json:"confidence"`
	CBM         float64    `json:"cbm"`
	Weight      float64    `json:"weight"`
	TotalCBM    float64    `json:"total_cbm"`
	TotalWeight float64    `json:"total_weight"`
}

// Summary aggregates a batch. ConfidenceLevels only holds tiers that were used.
type Summary struct {
	TotalCBM         float64            `json:"total_cbm"`
	TotalWeight      float64            `json:"total_weight"`
	ConfidenceLevels map[Confidence]int `json:"confidence_levels"`
}

// BatchResult is the complete output of one estimation pass.
type BatchResult struct {
	Results []ResultRow `json:"results"`
	Summary Summary     `json:"summary"`
}
