package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/imagery"
)

// WriteCSV exports the table with the source's stable column schema.
// Undefined values become empty cells.
func (t *FeatureTable) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns(t.Source)); err != nil {
		return err
	}

	valueColumns := ValueColumns(t.Source)
	for _, record := range t.Records {
		row := make([]string, 0, len(valueColumns)+2)
		row = append(row, record.FieldName, record.Date.Format("2006-01-02"))
		for _, column := range valueColumns {
			if v, ok := record.Values[column]; ok {
				row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// SaveCSV writes the table to filePath, creating or truncating it.
func (t *FeatureTable) SaveCSV(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer file.Close()
	return t.WriteCSV(file)
}

// ReadCSV loads a previously exported table. The header must match the
// source schema exactly.
func ReadCSV(r io.Reader, source imagery.Source) (*FeatureTable, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	expected := Columns(source)
	if len(header) != len(expected) {
		return nil, fmt.Errorf("dataset has %d columns, expected %d for %s", len(header), len(expected), source)
	}
	for i, column := range expected {
		if header[i] != column {
			return nil, fmt.Errorf("dataset column %d is %q, expected %q", i, header[i], column)
		}
	}

	table := &FeatureTable{Source: source}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row: %w", err)
		}

		date, err := time.Parse("2006-01-02", row[1])
		if err != nil {
			return nil, fmt.Errorf("invalid acquisition date %q: %w", row[1], err)
		}
		record := FeatureRecord{
			FieldName: row[0],
			Date:      date,
			Values:    make(map[string]float64),
		}
		for i, cell := range row[2:] {
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q in column %s: %w", cell, expected[i+2], err)
			}
			record.Values[expected[i+2]] = v
		}
		table.Records = append(table.Records, record)
	}

	return table, nil
}

// LoadCSV reads a table back from filePath.
func LoadCSV(filePath string, source imagery.Source) (*FeatureTable, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()
	return ReadCSV(file, source)
}
