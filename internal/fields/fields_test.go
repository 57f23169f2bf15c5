package fields

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"crop_field_name": "verza", "manure_dates": ["2022-03-15"]},
      "geometry": {"type": "Polygon", "coordinates": [[[9.1, 45.2], [9.2, 45.2], [9.2, 45.3], [9.1, 45.3], [9.1, 45.2]]]}
    },
    {
      "type": "Feature",
      "properties": {"crop_field_name": "alfa"},
      "geometry": {"type": "Polygon", "coordinates": [[[9.4, 45.2], [9.5, 45.2], [9.5, 45.3], [9.4, 45.3], [9.4, 45.2]]]}
    }
  ]
}`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFields(t *testing.T) {
	flds, err := LoadFields(writeTempFile(t, "fields.geojson", sampleGeoJSON))
	require.NoError(t, err)
	require.Len(t, flds, 2)

	// Sorted by name.
	assert.Equal(t, "alfa", flds[0].Name)
	assert.Equal(t, "verza", flds[1].Name)

	require.Len(t, flds[1].ManureDates, 1)
	assert.True(t, flds[1].ManureDates[0].Equal(time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC)))

	lat, lon, err := flds[0].Centroid()
	require.NoError(t, err)
	assert.InDelta(t, 45.25, lat, 1e-9)
	assert.InDelta(t, 9.45, lon, 1e-9)
}

func TestLoadFields_DuplicateName(t *testing.T) {
	dup := `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"crop_field_name": "verza"},
     "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 1], [0, 0]]]}},
    {"type": "Feature", "properties": {"crop_field_name": "verza"},
     "geometry": {"type": "Polygon", "coordinates": [[[2, 0], [3, 0], [3, 1], [2, 1], [2, 0]]]}}
  ]
}`
	_, err := LoadFields(writeTempFile(t, "dup.geojson", dup))
	assert.ErrorContains(t, err, "duplicate field name")
}

func TestLoadFields_MissingName(t *testing.T) {
	anonymous := `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 1], [0, 0]]]}}
  ]
}`
	_, err := LoadFields(writeTempFile(t, "anon.geojson", anonymous))
	assert.ErrorContains(t, err, "crop_field_name")
}

func TestLoadFields_DegeneratePolygon(t *testing.T) {
	flat := `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"crop_field_name": "line"},
     "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [2, 0], [0, 0]]]}}
  ]
}`
	_, err := LoadFields(writeTempFile(t, "flat.geojson", flat))
	assert.ErrorContains(t, err, "no area")
}

func TestLoadManureEvents(t *testing.T) {
	flds, err := LoadFields(writeTempFile(t, "fields.geojson", sampleGeoJSON))
	require.NoError(t, err)

	labels := "crop_field_name,manure_date\nalfa,2022-04-01\nverza,2022-09-20\n"
	require.NoError(t, LoadManureEvents(writeTempFile(t, "labels.csv", labels), flds))

	assert.Len(t, flds[0].ManureDates, 1)
	assert.Len(t, flds[1].ManureDates, 2)
}

func TestLoadManureEvents_UnknownField(t *testing.T) {
	flds, err := LoadFields(writeTempFile(t, "fields.geojson", sampleGeoJSON))
	require.NoError(t, err)

	labels := "crop_field_name,manure_date\nghost,2022-04-01\n"
	err = LoadManureEvents(writeTempFile(t, "labels.csv", labels), flds)
	assert.ErrorContains(t, err, "unknown field")
}

func TestLoadManureEvents_InvalidDate(t *testing.T) {
	flds, err := LoadFields(writeTempFile(t, "fields.geojson", sampleGeoJSON))
	require.NoError(t, err)

	labels := "crop_field_name,manure_date\nalfa,01/04/2022\n"
	err = LoadManureEvents(writeTempFile(t, "labels.csv", labels), flds)
	assert.ErrorContains(t, err, "invalid manure date")
}
