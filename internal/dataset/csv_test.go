package dataset

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/imagery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2023, 4, d, 0, 0, 0, 0, time.UTC)
}

func TestColumns(t *testing.T) {
	columns := Columns(imagery.Sentinel1)
	assert.Equal(t, "crop_field_name", columns[0])
	assert.Equal(t, "s1_acquisition_date", columns[1])
	assert.Contains(t, columns, "VV")
	assert.Contains(t, columns, "RVI")

	assert.Equal(t, "s2_acquisition_date", Columns(imagery.Sentinel2)[1])
	assert.Equal(t, "l8_acquisition_date", Columns(imagery.Landsat8)[1])
}

func TestWriteReadCSV_RoundTrip(t *testing.T) {
	table := &FeatureTable{
		Source: imagery.Sentinel1,
		Records: []FeatureRecord{
			{FieldName: "alfa", Date: day(2), Values: map[string]float64{"VV": 1.5, "VH": 0.75, "RVI": 4.0 / 3.0}},
			{FieldName: "verza", Date: day(5), Values: map[string]float64{"VV": 2.0}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	loaded, err := ReadCSV(bytes.NewReader(buf.Bytes()), imagery.Sentinel1)
	require.NoError(t, err)
	require.Len(t, loaded.Records, 2)
	assert.Equal(t, table.Records[0].FieldName, loaded.Records[0].FieldName)
	assert.True(t, table.Records[0].Date.Equal(loaded.Records[0].Date))
	assert.InDelta(t, 4.0/3.0, loaded.Records[0].Values["RVI"], 1e-12)

	// Undefined values survive as absent keys, not zeroes.
	_, ok := loaded.Records[1].Values["VH"]
	assert.False(t, ok)
}

func TestWriteCSV_UndefinedIsEmptyCell(t *testing.T) {
	table := &FeatureTable{
		Source: imagery.Sentinel1,
		Records: []FeatureRecord{
			{FieldName: "alfa", Date: day(1), Values: map[string]float64{"VV": 1.0}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	cells := strings.Split(lines[1], ",")
	assert.Equal(t, "alfa", cells[0])
	assert.Equal(t, "1", cells[2])
	assert.Equal(t, "", cells[3])
}

func TestReadCSV_HeaderMismatch(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("crop_field_name,bogus\n"), imagery.Sentinel1)
	assert.Error(t, err)
}

func TestReadCSV_InvalidValue(t *testing.T) {
	header := strings.Join(Columns(imagery.Sentinel1), ",")
	row := "alfa,2023-04-02,not-a-number" + strings.Repeat(",", len(Columns(imagery.Sentinel1))-3)
	_, err := ReadCSV(strings.NewReader(header+"\n"+row+"\n"), imagery.Sentinel1)
	assert.Error(t, err)
}

func TestFeatureTable_Sort(t *testing.T) {
	table := &FeatureTable{
		Source: imagery.Sentinel1,
		Records: []FeatureRecord{
			{FieldName: "verza", Date: day(1)},
			{FieldName: "alfa", Date: day(9)},
			{FieldName: "alfa", Date: day(2)},
		},
	}
	table.Sort()

	assert.Equal(t, "alfa", table.Records[0].FieldName)
	assert.True(t, table.Records[0].Date.Equal(day(2)))
	assert.Equal(t, "alfa", table.Records[1].FieldName)
	assert.Equal(t, "verza", table.Records[2].FieldName)
}

func TestFeatureTable_ValidateRejectsDuplicates(t *testing.T) {
	table := &FeatureTable{
		Source: imagery.Sentinel1,
		Records: []FeatureRecord{
			{FieldName: "alfa", Date: day(2)},
			{FieldName: "alfa", Date: day(2)},
		},
	}
	assert.Error(t, table.Validate())
}
