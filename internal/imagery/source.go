package imagery

import (
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/features"
)

// Source is the closed set of supported satellite image sources.
type Source int

const (
	Sentinel1 Source = iota + 1 // radar (VV/VH backscatter)
	Sentinel2                   // optical (surface reflectance)
	Landsat8                    // optical + thermal (raw bands only)
)

func (s Source) String() string {
	switch s {
	case Sentinel1:
		return "sentinel-1"
	case Sentinel2:
		return "sentinel-2"
	case Landsat8:
		return "landsat-8"
	}
	return "unknown"
}

// CollectionID is the remote collection identifier used by the platform.
func (s Source) CollectionID() string {
	switch s {
	case Sentinel1:
		return "sentinel-1-grd"
	case Sentinel2:
		return "sentinel-2-l2a"
	case Landsat8:
		return "landsat-ot-l1"
	}
	return ""
}

// Bands is the fixed ordered vocabulary of raw band/polarization names the
// source exposes.
func (s Source) Bands() []string {
	switch s {
	case Sentinel1:
		return []string{"VV", "VH"}
	case Sentinel2:
		return []string{"B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8", "B8A", "B9", "B11", "B12"}
	case Landsat8:
		return []string{"B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8", "B9", "B10", "B11"}
	}
	return nil
}

// Indexes is the derived-feature schema applicable to the source. Landsat-8
// records carry raw bands only.
func (s Source) Indexes() []features.Index {
	switch s {
	case Sentinel1:
		return features.RadarIndexes
	case Sentinel2:
		return features.OpticalIndexes
	}
	return nil
}

// DatePrefix names the acquisition-date column of the source's records.
func (s Source) DatePrefix() string {
	switch s {
	case Sentinel1:
		return "s1"
	case Sentinel2:
		return "s2"
	case Landsat8:
		return "l8"
	}
	return ""
}

// Masked reports whether a cloud/shadow mask must be applied before any
// spatial mean reduction.
func (s Source) Masked() bool {
	return s == Sentinel2
}

// Filters are the source-specific predicates applied remotely when filtering
// a collection. Zero values leave the corresponding predicate off.
type Filters struct {
	// OrbitPass restricts Sentinel-1 acquisitions to "ASCENDING" or
	// "DESCENDING" passes.
	OrbitPass string
	// MaxCloudCover is the Sentinel-2 cloudy-pixel-percentage ceiling, in
	// [0, 100]. Negative disables the predicate.
	MaxCloudCover int
}
