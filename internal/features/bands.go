package features

import (
	"errors"
	"fmt"
	"math"
)

// ErrUndefined marks an index value that is mathematically undefined for the
// supplied band means (zero denominator, negative sqrt operand, missing or
// masked-out band). It is surfaced per record, never as a run failure.
var ErrUndefined = errors.New("undefined index value")

// BandMeans maps a band or polarization name to its spatial mean over one
// (field, acquisition date) pair.
type BandMeans map[string]float64

// Get returns the mean for one band, or ErrUndefined when the band is
// missing or fully masked out.
func (bm BandMeans) Get(band string) (float64, error) {
	v, ok := bm[band]
	if !ok || math.IsNaN(v) {
		return 0, fmt.Errorf("band %s has no mean value: %w", band, ErrUndefined)
	}
	return v, nil
}

func div(num, den float64) (float64, error) {
	if den == 0 {
		return 0, fmt.Errorf("zero denominator: %w", ErrUndefined)
	}
	return num / den, nil
}

func sqrt(x float64) (float64, error) {
	if x < 0 {
		return 0, fmt.Errorf("negative sqrt operand: %w", ErrUndefined)
	}
	return math.Sqrt(x), nil
}

// Func computes one derived index from a set of band means.
type Func func(BandMeans) (float64, error)

// Index is one named entry of a source's derived-feature schema.
type Index struct {
	Name string
	Fn   Func
}
