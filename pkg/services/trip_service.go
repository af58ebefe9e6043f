package services

import (
	"fmt"

	"cbm-estimator-api/pkg/models"
)

// Default vehicle limits (Dababa truck).
const (
	DefaultMaxTripCBM    = 4.9
	DefaultMaxTripWeight = 1800.0
	DefaultMaxTripStops  = 10
)

// WithDefaults fills unset constraint fields.
func WithDefaults(c models.TripConstraints) models.TripConstraints {
	if c.MaxCBM <= 0 {
		c.MaxCBM = DefaultMaxTripCBM
	}
	if c.MaxWeight <= 0 {
		c.MaxWeight = DefaultMaxTripWeight
	}
	if c.MaxStops <= 0 {
		c.MaxStops = DefaultMaxTripStops
	}
	return c
}

type orderLoad struct {
	id          string
	cbm, weight float64
}

// PlanTrips packs the orders of a batch into trips, first-fit in order of first appearance.
// An order is never split; an order that alone exceeds the limits gets its own trip marked overloaded.
func PlanTrips(batch models.BatchResult, constraints models.TripConstraints) models.TripPlan {
	c := WithDefaults(constraints)
	return models.TripPlan{
		Constraints: c,
		Trips:       assignTrips(orderLoads(batch), c),
		Summary:     batch.Summary,
	}
}

func orderLoads(batch models.BatchResult) []orderLoad {
	var loads []orderLoad
	pos := make(map[string]int)
	for _, res := range batch.Results {
		id := orDefault(res.OrderID)
		i, ok := pos[id]
		if !ok {
			i = len(loads)
			pos[id] = i
			loads = append(loads, orderLoad{id: id})
		}
		loads[i].cbm += res.TotalCBM
		loads[i].weight += res.TotalWeight
	}
	return loads
}

func assignTrips(loads []orderLoad, c models.TripConstraints) []models.Trip {
	trips := make([]models.Trip, 0)
	var current *models.Trip

	closeTrip := func() {
		if current != nil && len(current.Stops) > 0 {
			trips = append(trips, *current)
		}
		current = nil
	}

	for _, l := range loads {
		if current != nil && fits(current, l, c) {
			current.Stops = append(current.Stops, l.id)
			current.TotalCBM += l.cbm
			current.TotalWeight += l.weight
			continue
		}
		closeTrip()
		current = &models.Trip{
			ID:          fmt.Sprintf("Trip_%d", len(trips)+1),
			Stops:       []string{l.id},
			TotalCBM:    l.cbm,
			TotalWeight: l.weight,
			Overloaded:  l.cbm > c.MaxCBM || l.weight > c.MaxWeight,
		}
	}
	closeTrip()

	return trips
}

func fits(t *models.Trip, l orderLoad, c models.TripConstraints) bool {
	return !t.Overloaded &&
		len(t.Stops) < c.MaxStops &&
		t.TotalCBM+l.cbm <= c.MaxCBM &&
		t.TotalWeight+l.weight <= c.MaxWeight
}
