package dataset

import (
	"fmt"
	"sort"
	"time"

	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/imagery"
)

// FeatureRecord is one output row: every raw band mean and every derived
// index for one (field, acquisition date) pair. A column absent from Values
// is undefined for that record; it is exported as an empty cell, never
// coerced to zero.
type FeatureRecord struct {
	FieldName string
	Date      time.Time
	Values    map[string]float64
}

// FeatureTable is the run artifact: records from every field, globally
// sorted by (field name, acquisition date). Every record of one table shares
// the source's column schema.
type FeatureTable struct {
	Source  imagery.Source
	Records []FeatureRecord
}

// ValueColumns is the stable per-source value schema: raw bands first, then
// the derived indexes, in catalogue order.
func ValueColumns(source imagery.Source) []string {
	columns := append([]string{}, source.Bands()...)
	for _, index := range source.Indexes() {
		columns = append(columns, index.Name)
	}
	return columns
}

// Columns is the full CSV header of a table for the source.
func Columns(source imagery.Source) []string {
	header := []string{"crop_field_name", source.DatePrefix() + "_acquisition_date"}
	return append(header, ValueColumns(source)...)
}

// Sort orders records by field name ascending, then acquisition date
// ascending.
func (t *FeatureTable) Sort() {
	sort.SliceStable(t.Records, func(i, j int) bool {
		if t.Records[i].FieldName != t.Records[j].FieldName {
			return t.Records[i].FieldName < t.Records[j].FieldName
		}
		return t.Records[i].Date.Before(t.Records[j].Date)
	})
}

// Validate checks the table invariants: no duplicate (field, date) pair.
func (t *FeatureTable) Validate() error {
	seen := make(map[string]bool, len(t.Records))
	for _, record := range t.Records {
		key := record.FieldName + "|" + record.Date.Format("2006-01-02")
		if seen[key] {
			return fmt.Errorf("duplicate record for field %s on %s", record.FieldName, record.Date.Format("2006-01-02"))
		}
		seen[key] = true
	}
	return nil
}
