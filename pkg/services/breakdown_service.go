package services

import (
	"cbm-estimator-api/pkg/models"

	"github.com/shopspring/decimal"
)

const unknownGroup = "Unknown"

// BuildBreakdown rolls a batch up per order, per supplier and per customer area.
// results must be the Aggregate output for rows, index-aligned.
// Groups appear in first-seen order. CBM is rounded to 4 places, weight and confidence to 2.
func BuildBreakdown(rows []models.InputRow, batch models.BatchResult) models.Breakdown {
	n := len(rows)
	if len(batch.Results) < n {
		n = len(batch.Results)
	}

	orders := newOrderRollup()
	suppliers := newGroupRollup()
	areas := newGroupRollup()
	unmatched := make([]models.ResultRow, 0)

	for i := 0; i < n; i++ {
		row, res := rows[i], batch.Results[i]
		orderID := orDefault(res.OrderID)

		orders.add(orderID, res)
		suppliers.add(orDefault(row.SupplierName), orderID, res)
		areas.add(orDefault(row.CustomerArea), orderID, res)

		if res.Confidence == models.ConfidenceNone {
			unmatched = append(unmatched, res)
		}
	}

	return models.Breakdown{
		Summary:       batch.Summary,
		Orders:        orders.views(),
		Suppliers:     suppliers.views(),
		CustomerAreas: areas.views(),
		Unmatched:     unmatched,
	}
}

// OrderViews returns only the per-order rollup of a batch.
func OrderViews(batch models.BatchResult) []models.OrderView {
	orders := newOrderRollup()
	for _, res := range batch.Results {
		orders.add(orDefault(res.OrderID), res)
	}
	return orders.views()
}

type orderAcc struct {
	cbm, weight, confidence float64
	lines                   int
}

type orderRollup struct {
	keys []string
	acc  map[string]*orderAcc
}

func newOrderRollup() *orderRollup {
	return &orderRollup{acc: make(map[string]*orderAcc)}
}

func (r *orderRollup) add(orderID string, res models.ResultRow) {
	a, ok := r.acc[orderID]
	if !ok {
		a = &orderAcc{}
		r.acc[orderID] = a
		r.keys = append(r.keys, orderID)
	}
	a.cbm += res.TotalCBM
	a.weight += res.TotalWeight
	a.confidence += float64(res.Confidence)
	a.lines++
}

func (r *orderRollup) views() []models.OrderView {
	out := make([]models.OrderView, 0, len(r.keys))
	for _, k := range r.keys {
		a := r.acc[k]
		out = append(out, models.OrderView{
			OrderID:       k,
			TotalCBM:      round(a.cbm, 4),
			TotalWeight:   round(a.weight, 2),
			AvgConfidence: round(a.confidence/float64(a.lines), 2),
			LineCount:     a.lines,
		})
	}
	return out
}

type groupAcc struct {
	cbm, weight float64
	orders      map[string]struct{}
}

type groupRollup struct {
	keys []string
	acc  map[string]*groupAcc
}

func newGroupRollup() *groupRollup {
	return &groupRollup{acc: make(map[string]*groupAcc)}
}

func (r *groupRollup) add(name, orderID string, res models.ResultRow) {
	a, ok := r.acc[name]
	if !ok {
		a = &groupAcc{orders: make(map[string]struct{})}
		r.acc[name] = a
		r.keys = append(r.keys, name)
	}
	a.cbm += res.TotalCBM
	a.weight += res.TotalWeight
	a.orders[orderID] = struct{}{}
}

func (r *groupRollup) views() []models.GroupView {
	out := make([]models.GroupView, 0, len(r.keys))
	for _, k := range r.keys {
		a := r.acc[k]
		out = append(out, models.GroupView{
			Name:        k,
			TotalCBM:    round(a.cbm, 4),
			TotalWeight: round(a.weight, 2),
			OrderCount:  len(a.orders),
		})
	}
	return out
}

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func orDefault(s string) string {
	if s == "" {
		return unknownGroup
	}
	return s
}
