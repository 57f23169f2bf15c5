package extract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/dataset"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/fields"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/imagery"
	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// FieldFailure reports one field whose extraction failed while the run as a
// whole carried on.
type FieldFailure struct {
	FieldName string
	Err       error
}

func (f FieldFailure) Error() string {
	return fmt.Sprintf("field %s: %v", f.FieldName, f.Err)
}

// Request describes one extraction run over a set of fields.
type Request struct {
	Fields  []fields.Field
	Source  imagery.Source
	Start   time.Time
	End     time.Time
	Filters imagery.Filters
	Budget  Budget
}

// ResolveAcquisitions lists the distinct calendar days the collection has
// imagery for. An empty result is a valid outcome, not an error.
func ResolveAcquisitions(ctx context.Context, collection imagery.Collection) ([]time.Time, error) {
	return collection.DistinctDates(ctx)
}

// processField extracts every available acquisition of one field: resolve the
// date set, split it into as many chunks as the leftover worker budget allows,
// then run the chunks concurrently under an errgroup so the first failure
// cancels the siblings.
func processField(ctx context.Context, platform imagery.Platform, field fields.Field, req Request) ([]dataset.FeatureRecord, error) {
	collection, err := platform.FilterCollection(ctx, req.Source, field.Polygon, req.Start, req.End, req.Filters)
	if err != nil {
		return nil, err
	}

	dates, err := ResolveAcquisitions(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, nil
	}

	chunks := splitDates(dates, req.Budget.chunkWorkers())
	results := make([][]dataset.FeatureRecord, len(chunks))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		group.Go(func() error {
			records, err := extractChunk(groupCtx, collection, field, req.Source, chunk)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var records []dataset.FeatureRecord
	for _, part := range results {
		records = append(records, part...)
	}
	return records, nil
}

// ExtractFeatures runs the full pipeline over every requested field. Fields
// are processed by a bounded pool; each failure is recorded and the remaining
// fields carry on. The run errors only when no field produced anything, so a
// long run is never lost to one bad polygon.
func ExtractFeatures(ctx context.Context, platform imagery.Platform, req Request) (*dataset.FeatureTable, []FieldFailure, error) {
	if len(req.Fields) == 0 {
		return nil, nil, fmt.Errorf("no fields to extract")
	}
	if !req.Start.Before(req.End) {
		return nil, nil, fmt.Errorf("invalid date range [%s, %s)", req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"))
	}

	table := &dataset.FeatureTable{Source: req.Source}

	// A single field gets the whole budget as chunk workers instead of
	// paying for an outer pool it cannot use.
	if len(req.Fields) == 1 {
		singleBudget := req.Budget
		singleBudget.FieldWorkers = 0
		singleReq := req
		singleReq.Budget = singleBudget

		records, err := processField(ctx, platform, req.Fields[0], singleReq)
		if err != nil {
			return nil, []FieldFailure{{FieldName: req.Fields[0].Name, Err: err}}, fmt.Errorf("all fields failed: %w", err)
		}
		table.Records = records
		table.Sort()
		return table, nil, nil
	}

	var (
		mu          sync.Mutex
		failures    []FieldFailure
		progressBar = progressbar.Default(int64(len(req.Fields)), "Extracting features")
	)

	wp := workerpool.New(req.Budget.outerWorkers())
	for _, field := range req.Fields {
		wp.Submit(func() {
			records, err := processField(ctx, platform, field, req)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, FieldFailure{FieldName: field.Name, Err: err})
			} else {
				table.Records = append(table.Records, records...)
			}
			progressBar.Add(1)
		})
	}
	wp.StopWait()

	if len(failures) == len(req.Fields) {
		return nil, failures, fmt.Errorf("all %d fields failed, first error: %w", len(failures), failures[0].Err)
	}

	table.Sort()
	if err := table.Validate(); err != nil {
		return nil, failures, err
	}
	return table, failures, nil
}
