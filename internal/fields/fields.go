package fields

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Field is one agricultural parcel of interest. ManureDates are label
// metadata carried through the pipeline but never interpreted by it.
type Field struct {
	Name        string
	Polygon     orb.Polygon
	ManureDates []time.Time
}

// Centroid returns the (lat, lon) of the field polygon.
func (f Field) Centroid() (float64, float64, error) {
	centroid, area := planar.CentroidArea(f.Polygon)
	if area <= 0 {
		return 0, 0, fmt.Errorf("degenerate polygon for field %s", f.Name)
	}
	return centroid.Y(), centroid.X(), nil
}

func polygonFromGeometry(geom orb.Geometry) (orb.Polygon, error) {
	switch g := geom.(type) {
	case orb.Polygon:
		return g, nil
	case orb.MultiPolygon:
		if len(g) == 0 {
			return nil, fmt.Errorf("empty multipolygon")
		}
		return g[0], nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %s", geom.GeoJSONType())
	}
}

func validatePolygon(p orb.Polygon, name string) error {
	if len(p) == 0 || len(p[0]) < 3 {
		return fmt.Errorf("field %s: polygon ring needs at least 3 vertices", name)
	}
	if _, area := planar.CentroidArea(p); area <= 0 {
		return fmt.Errorf("field %s: polygon has no area", name)
	}
	return nil
}

// LoadFields reads a GeoJSON FeatureCollection of crop fields. Each feature
// must carry a "crop_field_name" property and may carry a "manure_dates"
// property, a list of YYYY-MM-DD strings.
func LoadFields(filePath string) ([]Field, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read fields file: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	var result []Field
	seen := make(map[string]bool)
	for _, feature := range fc.Features {
		name, ok := feature.Properties["crop_field_name"].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("feature without crop_field_name property")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate field name %s", name)
		}
		seen[name] = true

		polygon, err := polygonFromGeometry(feature.Geometry)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		if err := validatePolygon(polygon, name); err != nil {
			return nil, err
		}

		field := Field{Name: name, Polygon: polygon}
		if rawDates, ok := feature.Properties["manure_dates"].([]interface{}); ok {
			for _, raw := range rawDates {
				str, ok := raw.(string)
				if !ok {
					continue
				}
				date, err := time.Parse("2006-01-02", str)
				if err != nil {
					return nil, fmt.Errorf("field %s: invalid manure date %q: %w", name, str, err)
				}
				field.ManureDates = append(field.ManureDates, date)
			}
		}
		result = append(result, field)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("no fields found in %s", filePath)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
