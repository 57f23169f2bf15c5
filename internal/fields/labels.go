package fields

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
)

type manureEventRow struct {
	Field string `csv:"crop_field_name"`
	Date  string `csv:"manure_date"`
}

// LoadManureEvents reads a label CSV with columns crop_field_name,manure_date
// and merges the dates into the matching fields. Unknown field names are an
// error so a typo cannot silently drop a label.
func LoadManureEvents(filePath string, flds []Field) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open labels file: %w", err)
	}
	defer file.Close()

	var rows []*manureEventRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return fmt.Errorf("failed to parse labels file: %w", err)
	}

	byName := make(map[string]*Field, len(flds))
	for i := range flds {
		byName[flds[i].Name] = &flds[i]
	}

	for _, row := range rows {
		field, ok := byName[row.Field]
		if !ok {
			return fmt.Errorf("labels file references unknown field %s", row.Field)
		}
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			return fmt.Errorf("invalid manure date %q for field %s: %w", row.Date, row.Field, err)
		}
		field.ManureDates = append(field.ManureDates, date)
	}

	return nil
}
