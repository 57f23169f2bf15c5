package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/dataset"
	"github.com/montanaflynn/stats"
)

// manureWindow is how long after a spreading event a feature is considered
// influenced by it.
const manureWindow = 30 * 24 * time.Hour

// FeatureVariation scores how strongly one derived feature reacts to manure
// application: the absolute relative shift of its post-application mean
// against its baseline mean, averaged over every (field, event) pair that had
// data on both sides.
type FeatureVariation struct {
	Feature     string
	Variation   float64
	TStatistic  float64
	SampleCount int
}

// Report is a ranking of derived features by their sensitivity to manure
// application, strongest first.
type Report struct {
	Source   string
	Features []FeatureVariation
}

// windowSplit partitions one field's values for a feature into baseline and
// post-application samples. A record falls in the post set when it lies
// within the window after any of the field's events.
func windowSplit(records []dataset.FeatureRecord, feature string, events []time.Time) (baseline, post []float64) {
	for _, record := range records {
		value, ok := record.Values[feature]
		if !ok || math.IsNaN(value) {
			continue
		}
		inWindow := false
		for _, event := range events {
			if !record.Date.Before(event) && record.Date.Sub(event) <= manureWindow {
				inWindow = true
				break
			}
		}
		if inWindow {
			post = append(post, value)
		} else {
			baseline = append(baseline, value)
		}
	}
	return baseline, post
}

// relativeShift is |mean(post) - mean(baseline)| / |mean(baseline)|. A zero
// baseline mean makes the shift undefined and the pair is skipped.
func relativeShift(baseline, post []float64) (float64, bool) {
	if len(baseline) == 0 || len(post) == 0 {
		return 0, false
	}
	baseMean, err := stats.Mean(baseline)
	if err != nil || baseMean == 0 {
		return 0, false
	}
	postMean, err := stats.Mean(post)
	if err != nil {
		return 0, false
	}
	return math.Abs(postMean-baseMean) / math.Abs(baseMean), true
}

// tStatistic is the one-sample t value of the shifts against a zero-shift
// null. Needs at least two samples and non-zero spread.
func tStatistic(shifts []float64) float64 {
	if len(shifts) < 2 {
		return 0
	}
	mean, err := stats.Mean(shifts)
	if err != nil {
		return 0
	}
	sd, err := stats.StandardDeviationSample(shifts)
	if err != nil || sd == 0 {
		return 0
	}
	return mean / (sd / math.Sqrt(float64(len(shifts))))
}

// RankFeatureVariation ranks every derived feature of the table by how much
// it moves in the month after manure application, relative to its baseline.
// manureEvents maps a field name to its known application dates; fields
// absent from the map contribute baseline data only.
func RankFeatureVariation(table *dataset.FeatureTable, manureEvents map[string][]time.Time) (*Report, error) {
	if table == nil || len(table.Records) == 0 {
		return nil, fmt.Errorf("empty feature table")
	}
	if len(manureEvents) == 0 {
		return nil, fmt.Errorf("no manure events to rank against")
	}

	byField := make(map[string][]dataset.FeatureRecord)
	for _, record := range table.Records {
		byField[record.FieldName] = append(byField[record.FieldName], record)
	}
	for name := range manureEvents {
		if _, ok := byField[name]; !ok {
			return nil, fmt.Errorf("manure events reference unknown field %s", name)
		}
	}

	report := &Report{Source: table.Source.String()}
	for _, index := range table.Source.Indexes() {
		var shifts []float64
		for fieldName, events := range manureEvents {
			if len(events) == 0 {
				continue
			}
			baseline, post := windowSplit(byField[fieldName], index.Name, events)
			if shift, ok := relativeShift(baseline, post); ok {
				shifts = append(shifts, shift)
			}
		}
		if len(shifts) == 0 {
			continue
		}
		mean, err := stats.Mean(shifts)
		if err != nil {
			continue
		}
		report.Features = append(report.Features, FeatureVariation{
			Feature:     index.Name,
			Variation:   mean,
			TStatistic:  tStatistic(shifts),
			SampleCount: len(shifts),
		})
	}

	if len(report.Features) == 0 {
		return nil, fmt.Errorf("no feature had data on both sides of a manure event")
	}

	sort.SliceStable(report.Features, func(i, j int) bool {
		return report.Features[i].Variation > report.Features[j].Variation
	})
	return report, nil
}
