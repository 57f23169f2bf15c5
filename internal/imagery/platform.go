package imagery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// ErrNoImage is returned by Collection.Image when no acquisition exists for
// the requested calendar day.
var ErrNoImage = errors.New("no image for date")

// SourceQueryError wraps a failed remote platform call. It is surfaced to the
// caller, never swallowed; retry happens below this boundary.
type SourceQueryError struct {
	Source Source
	Op     string
	Err    error
}

func (e *SourceQueryError) Error() string {
	return fmt.Sprintf("%s query %s failed: %v", e.Source, e.Op, e.Err)
}

func (e *SourceQueryError) Unwrap() error { return e.Err }

// Platform is the remote imagery service boundary.
type Platform interface {
	// FilterCollection applies the source's filter predicates to the remote
	// collection, bounded by the field polygon and the half-open calendar
	// date range [start, end).
	FilterCollection(ctx context.Context, source Source, polygon orb.Polygon, start, end time.Time, filters Filters) (Collection, error)
}

// Collection is a filtered view over one source's images for one polygon.
type Collection interface {
	// DistinctDates lists the de-duplicated, ascending calendar days on
	// which the collection has at least one acquisition. Empty is valid.
	DistinctDates(ctx context.Context) ([]time.Time, error)

	// Image selects the image acquired within [date, date+1d). When sensor
	// overlap yields several, the platform-reported first one is used.
	Image(ctx context.Context, date time.Time) (Image, error)
}

// Image is one acquisition. BandMeans reduces each requested band to its
// spatial mean over the polygon, after the source's cloud/shadow mask.
// Bands whose every pixel is masked out come back as NaN.
type Image interface {
	BandMeans(ctx context.Context, bands []string, polygon orb.Polygon) (map[string]float64, error)
}
