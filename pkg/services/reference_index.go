package services

import "cbm-estimator-api/pkg/models"

// ReferenceIndex is a read-only, category-grouped view over the reference records.
// Groups keep dataset order so "first match" is the first record in the sheet.
type ReferenceIndex struct {
	records    []models.ReferenceRecord
	byCategory map[string][]int
	missing    []string // required sheet columns that were absent; such an index matches nothing
}

// NewReferenceIndex builds an index over records. The slice is copied.
func NewReferenceIndex(records []models.ReferenceRecord) *ReferenceIndex {
	idx := &ReferenceIndex{
		records:    make([]models.ReferenceRecord, len(records)),
		byCategory: make(map[string][]int),
	}
	copy(idx.records, records)
	for i, rec := range idx.records {
		idx.byCategory[rec.Category] = append(idx.byCategory[rec.Category], i)
	}
	return idx
}

func newMalformedIndex(missing []string) *ReferenceIndex {
	return &ReferenceIndex{byCategory: map[string][]int{}, missing: missing}
}

// MissingColumns lists the required reference columns the source sheet lacked.
func (idx *ReferenceIndex) MissingColumns() []string {
	if idx == nil {
		return nil
	}
	return idx.missing
}

// Len returns the number of records.
func (idx *ReferenceIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.records)
}

// CategoryCount returns the number of distinct categories.
func (idx *ReferenceIndex) CategoryCount() int {
	if idx == nil {
		return 0
	}
	return len(idx.byCategory)
}

// category returns the records sharing category, in dataset order.
func (idx *ReferenceIndex) category(category string) []models.ReferenceRecord {
	positions := idx.byCategory[category]
	out := make([]models.ReferenceRecord, len(positions))
	for i, p := range positions {
		out[i] = idx.records[p]
	}
	return out
}
