package analysis

import (
	"testing"
	"time"

	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/dataset"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/imagery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2022, 3, d, 0, 0, 0, 0, time.UTC)
}

func record(field string, date time.Time, values map[string]float64) dataset.FeatureRecord {
	return dataset.FeatureRecord{FieldName: field, Date: date, Values: values}
}

func sampleTable() *dataset.FeatureTable {
	// RVI doubles after the event, NDI stays flat.
	return &dataset.FeatureTable{
		Source: imagery.Sentinel1,
		Records: []dataset.FeatureRecord{
			record("verza", day(1), map[string]float64{"RVI": 1.0, "NDI": 0.2}),
			record("verza", day(5), map[string]float64{"RVI": 1.0, "NDI": 0.2}),
			record("verza", day(12), map[string]float64{"RVI": 2.0, "NDI": 0.2}),
			record("verza", day(20), map[string]float64{"RVI": 2.0, "NDI": 0.2}),
		},
	}
}

func TestRankFeatureVariation(t *testing.T) {
	events := map[string][]time.Time{"verza": {day(10)}}

	report, err := RankFeatureVariation(sampleTable(), events)
	require.NoError(t, err)
	assert.Equal(t, "sentinel-1", report.Source)
	require.Len(t, report.Features, 2)

	// Strongest variation first.
	assert.Equal(t, "RVI", report.Features[0].Feature)
	assert.InDelta(t, 1.0, report.Features[0].Variation, 1e-9)
	assert.Equal(t, 1, report.Features[0].SampleCount)

	assert.Equal(t, "NDI", report.Features[1].Feature)
	assert.InDelta(t, 0.0, report.Features[1].Variation, 1e-9)
}

func TestRankFeatureVariation_WindowBoundary(t *testing.T) {
	table := &dataset.FeatureTable{
		Source: imagery.Sentinel1,
		Records: []dataset.FeatureRecord{
			record("verza", day(1), map[string]float64{"RVI": 1.0}),
			// 40 days after the event, outside the window, back in the baseline.
			record("verza", time.Date(2022, 4, 19, 0, 0, 0, 0, time.UTC), map[string]float64{"RVI": 1.0}),
			record("verza", day(15), map[string]float64{"RVI": 3.0}),
		},
	}
	events := map[string][]time.Time{"verza": {day(10)}}

	report, err := RankFeatureVariation(table, events)
	require.NoError(t, err)
	require.Len(t, report.Features, 1)
	assert.InDelta(t, 2.0, report.Features[0].Variation, 1e-9)
}

func TestRankFeatureVariation_MultipleFieldsAveraged(t *testing.T) {
	table := &dataset.FeatureTable{
		Source: imagery.Sentinel1,
		Records: []dataset.FeatureRecord{
			record("a", day(1), map[string]float64{"RVI": 1.0}),
			record("a", day(15), map[string]float64{"RVI": 2.0}),
			record("b", day(1), map[string]float64{"RVI": 2.0}),
			record("b", day(15), map[string]float64{"RVI": 3.0}),
		},
	}
	events := map[string][]time.Time{"a": {day(10)}, "b": {day(10)}}

	report, err := RankFeatureVariation(table, events)
	require.NoError(t, err)
	require.Len(t, report.Features, 1)
	// Mean of shifts 1.0 and 0.5.
	assert.InDelta(t, 0.75, report.Features[0].Variation, 1e-9)
	assert.Equal(t, 2, report.Features[0].SampleCount)
	assert.NotZero(t, report.Features[0].TStatistic)
}

func TestRankFeatureVariation_UnknownField(t *testing.T) {
	events := map[string][]time.Time{"ghost": {day(10)}}
	_, err := RankFeatureVariation(sampleTable(), events)
	assert.ErrorContains(t, err, "unknown field")
}

func TestRankFeatureVariation_NoEvents(t *testing.T) {
	_, err := RankFeatureVariation(sampleTable(), nil)
	assert.Error(t, err)
}

func TestRankFeatureVariation_EmptyTable(t *testing.T) {
	_, err := RankFeatureVariation(&dataset.FeatureTable{Source: imagery.Sentinel1}, map[string][]time.Time{"verza": {day(10)}})
	assert.Error(t, err)
}

func TestRankFeatureVariation_NoDataAroundEvents(t *testing.T) {
	table := &dataset.FeatureTable{
		Source: imagery.Sentinel1,
		Records: []dataset.FeatureRecord{
			record("verza", day(1), map[string]float64{"RVI": 1.0}),
		},
	}
	_, err := RankFeatureVariation(table, map[string][]time.Time{"verza": {day(10)}})
	assert.Error(t, err)
}
