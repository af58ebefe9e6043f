package models

// OrderView is the per-order rollup of a batch.
type OrderView struct {
	OrderID       string  `json:"order_id"`
	TotalCBM      float64 `json:"total_cbm"`
	TotalWeight   float64 `json:"total_weight"`
	AvgConfidence float64 `json:"avg_confidence"`
	LineCount     int     `json:"line_count"`
}

// GroupView is a rollup keyed by supplier or customer area.
type GroupView struct {
	Name        string  `json:"name"`
	TotalCBM    float64 `json:"total_cbm"`
	TotalWeight float64 `json:"total_weight"`
	OrderCount  int     `json:"order_count"`
}

// Breakdown bundles the derived views of a batch.
type Breakdown struct {
	Summary       Summary     `json:"summary"`
	Orders        []OrderView `json:"orders"`
	Suppliers     []GroupView `json:"suppliers"`
	CustomerAreas []GroupView `json:"customer_areas"`
	Unmatched     []ResultRow `json:"unmatched"`
}

// TripConstraints bounds a single vehicle trip. Zero values mean "use the default".
type TripConstraints struct {
	MaxCBM    float64 `form:"max_cbm" json:"max_cbm" binding:"omitempty,gt=0"`
	MaxWeight float64 `form:"max_weight" json:"max_weight" binding:"omitempty,gt=0"`
	MaxStops  int     `form:"max_stops" json:"max_stops" binding:"omitempty,gt=0"`
}

// Trip is a group of orders assigned to one vehicle.
type Trip struct {
	ID          string   `json:"id"`
	Stops       []string `json:"stops"`
	TotalCBM    float64  `json:"total_cbm"`
	TotalWeight float64  `json:"total_weight"`
	Overloaded  bool     `json:"overloaded"`
}

// TripPlan is the response of a trip assignment.
type TripPlan struct {
	Constraints TripConstraints `json:"constraints"`
	Trips       []Trip          `json:"trips"`
	Summary     Summary         `json:"summary"`
}

// Retailer is one row of the geo-filtered retailer listing. Only columns present in the sheet are set.
type Retailer map[string]string

// ReferenceStatus reports the shape of the currently reachable reference sheet.
type ReferenceStatus struct {
	Sheet          string   `json:"sheet"`
	Records        int      `json:"records"`
	Categories     int      `json:"categories"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}
