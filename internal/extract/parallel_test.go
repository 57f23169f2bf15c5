package extract

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/dataset"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/fields"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/imagery"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	dates       []time.Time
	names       map[float64]string
	failFields  map[string]bool
	noImage     map[string]bool
	bandMeans   func(field string, date time.Time) map[string]float64
	delay       time.Duration
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

// fieldName recovers the field identity from the polygon's first vertex,
// which testFields makes unique per field.
func (p *fakePlatform) fieldName(polygon orb.Polygon) string {
	if len(polygon) == 0 || len(polygon[0]) == 0 {
		return ""
	}
	return p.names[polygon[0][0][0]]
}

func (p *fakePlatform) FilterCollection(ctx context.Context, source imagery.Source, polygon orb.Polygon, start, end time.Time, filters imagery.Filters) (imagery.Collection, error) {
	return &fakeCollection{platform: p, source: source, fieldPolygon: polygon, fieldName: p.fieldName(polygon)}, nil
}

type fakeCollection struct {
	platform     *fakePlatform
	source       imagery.Source
	fieldPolygon orb.Polygon
	fieldName    string
}

func (c *fakeCollection) DistinctDates(ctx context.Context) ([]time.Time, error) {
	if c.platform.failFields[c.fieldName] {
		return nil, &imagery.SourceQueryError{Source: c.source, Op: "list-dates", Err: fmt.Errorf("remote unavailable")}
	}
	return append([]time.Time{}, c.platform.dates...), nil
}

func (c *fakeCollection) Image(ctx context.Context, date time.Time) (imagery.Image, error) {
	return &fakeImage{collection: c, date: date}, nil
}

type fakeImage struct {
	collection *fakeCollection
	date       time.Time
}

func (img *fakeImage) BandMeans(ctx context.Context, bands []string, polygon orb.Polygon) (map[string]float64, error) {
	p := img.collection.platform

	current := p.inFlight.Add(1)
	for {
		max := p.maxInFlight.Load()
		if current <= max || p.maxInFlight.CompareAndSwap(max, current) {
			break
		}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	defer p.inFlight.Add(-1)

	if p.noImage[img.date.Format("2006-01-02")] {
		return nil, imagery.ErrNoImage
	}
	if p.bandMeans != nil {
		return p.bandMeans(img.collection.fieldName, img.date), nil
	}
	return map[string]float64{"VV": 2.0, "VH": 1.0}, nil
}

func testFields(platform *fakePlatform, names ...string) []fields.Field {
	platform.names = make(map[float64]string, len(names))
	result := make([]fields.Field, len(names))
	for i, name := range names {
		x := float64(i * 2)
		platform.names[x] = name
		result[i] = fields.Field{
			Name:    name,
			Polygon: orb.Polygon{{{x, 0}, {x + 1, 0}, {x + 1, 1}, {x, 1}, {x, 0}}},
		}
	}
	return result
}

func testRequest(flds []fields.Field, budget Budget) Request {
	return Request{
		Fields:  flds,
		Source:  imagery.Sentinel1,
		Start:   time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
		Filters: imagery.Filters{MaxCloudCover: -1},
		Budget:  budget,
	}
}

func TestExtractFeatures_AllFieldsMerged(t *testing.T) {
	platform := &fakePlatform{dates: days(7)}
	flds := testFields(platform, "verza", "alfa", "girasole")

	table, failures, err := ExtractFeatures(context.Background(), platform, testRequest(flds, Budget{TotalWorkers: 8, FieldWorkers: 2}))
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Len(t, table.Records, 3*7)
	require.NoError(t, table.Validate())

	// Sorted by field name, then date.
	for i := 1; i < len(table.Records); i++ {
		prev, cur := table.Records[i-1], table.Records[i]
		if prev.FieldName == cur.FieldName {
			assert.True(t, prev.Date.Before(cur.Date))
		} else {
			assert.Less(t, prev.FieldName, cur.FieldName)
		}
	}
}

func TestExtractFeatures_SchemaStableAcrossRecords(t *testing.T) {
	platform := &fakePlatform{dates: days(4)}

	table, _, err := ExtractFeatures(context.Background(), platform, testRequest(testFields(platform, "a", "b"), Budget{TotalWorkers: 4, FieldWorkers: 2}))
	require.NoError(t, err)

	columns := dataset.ValueColumns(imagery.Sentinel1)
	allowed := make(map[string]bool, len(columns))
	for _, column := range columns {
		allowed[column] = true
	}
	for _, record := range table.Records {
		assert.Len(t, record.Values, len(columns))
		for key := range record.Values {
			assert.True(t, allowed[key], "value %s outside the source schema", key)
		}
	}
}

func TestExtractFeatures_UndefinedIndexOmitted(t *testing.T) {
	platform := &fakePlatform{
		dates: days(1),
		bandMeans: func(string, time.Time) map[string]float64 {
			return map[string]float64{"VV": 0.0, "VH": 0.0}
		},
	}

	table, _, err := ExtractFeatures(context.Background(), platform, testRequest(testFields(platform, "a"), Budget{TotalWorkers: 2, FieldWorkers: 1}))
	require.NoError(t, err)
	require.Len(t, table.Records, 1)

	values := table.Records[0].Values
	assert.Contains(t, values, "VV")
	assert.Contains(t, values, "DIF")
	assert.NotContains(t, values, "NDI")
	assert.NotContains(t, values, "RVI")
}

func TestExtractFeatures_PartialFailure(t *testing.T) {
	platform := &fakePlatform{dates: days(3), failFields: map[string]bool{"broken": true}}

	table, failures, err := ExtractFeatures(context.Background(), platform, testRequest(testFields(platform, "broken", "fine", "alsofine"), Budget{TotalWorkers: 4, FieldWorkers: 2}))
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "broken", failures[0].FieldName)
	assert.Len(t, table.Records, 2*3)
}

func TestExtractFeatures_AllFieldsFailed(t *testing.T) {
	platform := &fakePlatform{dates: days(3), failFields: map[string]bool{"a": true, "b": true}}

	_, failures, err := ExtractFeatures(context.Background(), platform, testRequest(testFields(platform, "a", "b"), Budget{TotalWorkers: 4, FieldWorkers: 2}))
	assert.Error(t, err)
	assert.Len(t, failures, 2)

	var queryErr *imagery.SourceQueryError
	assert.ErrorAs(t, err, &queryErr)
}

func TestExtractFeatures_SingleField(t *testing.T) {
	platform := &fakePlatform{dates: days(5)}

	table, failures, err := ExtractFeatures(context.Background(), platform, testRequest(testFields(platform, "solo"), Budget{TotalWorkers: 4, FieldWorkers: 2}))
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Len(t, table.Records, 5)
}

func TestExtractFeatures_NoAcquisitionsIsNotAFailure(t *testing.T) {
	platform := &fakePlatform{}

	table, failures, err := ExtractFeatures(context.Background(), platform, testRequest(testFields(platform, "a", "b"), Budget{TotalWorkers: 4, FieldWorkers: 2}))
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Empty(t, table.Records)
}

func TestExtractFeatures_VanishedImageSkipped(t *testing.T) {
	dates := days(4)
	platform := &fakePlatform{dates: dates, noImage: map[string]bool{dates[1].Format("2006-01-02"): true}}

	table, failures, err := ExtractFeatures(context.Background(), platform, testRequest(testFields(platform, "a", "b"), Budget{TotalWorkers: 4, FieldWorkers: 2}))
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Len(t, table.Records, 2*3)
}

func TestExtractFeatures_EmptyDateRange(t *testing.T) {
	platform := &fakePlatform{dates: days(3)}
	req := testRequest(testFields(platform, "a"), Budget{TotalWorkers: 2, FieldWorkers: 1})
	req.End = req.Start

	_, _, err := ExtractFeatures(context.Background(), platform, req)
	assert.Error(t, err)
}

func TestExtractFeatures_NoFields(t *testing.T) {
	platform := &fakePlatform{dates: days(3)}

	_, _, err := ExtractFeatures(context.Background(), platform, testRequest(nil, Budget{TotalWorkers: 2, FieldWorkers: 1}))
	assert.Error(t, err)
}

func TestExtractFeatures_ConcurrencyBounded(t *testing.T) {
	budget := Budget{TotalWorkers: 6, FieldWorkers: 2}
	platform := &fakePlatform{dates: days(16), delay: 2 * time.Millisecond}

	_, _, err := ExtractFeatures(context.Background(), platform, testRequest(testFields(platform, "a", "b", "c", "d"), budget))
	require.NoError(t, err)

	bound := int64(budget.outerWorkers() * budget.chunkWorkers())
	assert.LessOrEqual(t, platform.maxInFlight.Load(), bound)
	assert.Greater(t, platform.maxInFlight.Load(), int64(1))
}

func TestResolveAcquisitions_Idempotent(t *testing.T) {
	platform := &fakePlatform{dates: days(6)}
	collection, err := platform.FilterCollection(context.Background(), imagery.Sentinel1, nil, time.Now(), time.Now().Add(time.Hour), imagery.Filters{})
	require.NoError(t, err)

	first, err := ResolveAcquisitions(context.Background(), collection)
	require.NoError(t, err)
	second, err := ResolveAcquisitions(context.Background(), collection)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExtractFeatures_CancelledContext(t *testing.T) {
	platform := &fakePlatform{dates: days(10)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ExtractFeatures(ctx, platform, testRequest(testFields(platform, "solo"), Budget{TotalWorkers: 2, FieldWorkers: 1}))
	assert.ErrorIs(t, err, context.Canceled)
}
