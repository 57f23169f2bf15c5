package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/dataset"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/features"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/fields"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/imagery"
)

// extractRecord fetches every raw band mean for one (field, date) pair and
// evaluates the source's full index catalogue over them, producing one flat
// record. Undefined indices are left out of Values rather than zeroed.
func extractRecord(ctx context.Context, collection imagery.Collection, field fields.Field, source imagery.Source, date time.Time) (*dataset.FeatureRecord, error) {
	image, err := collection.Image(ctx, date)
	if err != nil {
		return nil, err
	}

	means, err := image.BandMeans(ctx, source.Bands(), field.Polygon)
	if err != nil {
		return nil, err
	}

	record := &dataset.FeatureRecord{
		FieldName: field.Name,
		Date:      date,
		Values:    make(map[string]float64, len(means)+len(source.Indexes())),
	}

	bandMeans := features.BandMeans(means)
	for _, band := range source.Bands() {
		if v, err := bandMeans.Get(band); err == nil {
			record.Values[band] = v
		}
	}

	for _, index := range source.Indexes() {
		v, err := index.Fn(bandMeans)
		if err != nil {
			if errors.Is(err, features.ErrUndefined) {
				continue
			}
			return nil, fmt.Errorf("index %s on field %s at %s: %w", index.Name, field.Name, date.Format("2006-01-02"), err)
		}
		record.Values[index.Name] = v
	}

	return record, nil
}

// extractChunk runs the per-date extractor sequentially over one contiguous
// date chunk. A date whose image vanished between discovery and fetch is
// skipped, not fatal.
func extractChunk(ctx context.Context, collection imagery.Collection, field fields.Field, source imagery.Source, chunk []time.Time) ([]dataset.FeatureRecord, error) {
	records := make([]dataset.FeatureRecord, 0, len(chunk))
	for _, date := range chunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := extractRecord(ctx, collection, field, source, date)
		if err != nil {
			if errors.Is(err, imagery.ErrNoImage) {
				continue
			}
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}
