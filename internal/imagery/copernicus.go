package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/cache"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/properties"
	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/oauth2/clientcredentials"
)

const sceneResolutionMeters = 10.0

// Copernicus implements Platform against the Copernicus Dataspace APIs:
// the Catalog API for acquisition discovery and the Process API for
// band rasters.
type Copernicus struct {
	httpClient   *http.Client
	catalogURL   string
	processURL   string
	attempts     int
	queryTimeout time.Duration
	sceneCache   *cache.FileCache[[]byte]
}

func NewCopernicus() (*Copernicus, error) {
	clientID := properties.CopernicusClientID()
	clientSecret := properties.CopernicusClientSecret()
	tokenURL := properties.CopernicusTokenURL()
	if clientID == "" || clientSecret == "" || tokenURL == "" {
		return nil, fmt.Errorf("missing required environment variables: COPERNICUS_CLIENT_ID, COPERNICUS_CLIENT_SECRET, or COPERNICUS_TOKEN_URL")
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}

	godal.RegisterInternalDrivers()

	return &Copernicus{
		httpClient:   config.Client(context.Background()),
		catalogURL:   properties.CopernicusCatalogURL(),
		processURL:   properties.CopernicusProcessURL(),
		attempts:     defaultAttempts,
		queryTimeout: defaultQueryTimeout,
		sceneCache:   cache.NewFileCache[[]byte]("scenes"),
	}, nil
}

func (c *Copernicus) FilterCollection(ctx context.Context, source Source, polygon orb.Polygon, start, end time.Time, filters Filters) (Collection, error) {
	if !start.Before(end) {
		return nil, &SourceQueryError{Source: source, Op: "filter", Err: fmt.Errorf("empty date range [%s, %s)", start, end)}
	}
	return &copernicusCollection{
		platform: c,
		source:   source,
		polygon:  polygon,
		start:    start,
		end:      end,
		filters:  filters,
	}, nil
}

type copernicusCollection struct {
	platform *Copernicus
	source   Source
	polygon  orb.Polygon
	start    time.Time
	end      time.Time
	filters  Filters
}

func (cc *copernicusCollection) DistinctDates(ctx context.Context) ([]time.Time, error) {
	dates, err := cc.platform.searchDistinctDates(ctx, cc.source, cc.polygon, cc.start, cc.end, cc.filters)
	if err != nil {
		return nil, &SourceQueryError{Source: cc.source, Op: "list-dates", Err: err}
	}
	return dates, nil
}

func (cc *copernicusCollection) Image(ctx context.Context, date time.Time) (Image, error) {
	return &copernicusScene{collection: cc, date: date}, nil
}

// copernicusScene is the mosaicked first acquisition of one calendar day.
// Scene validity surfaces at BandMeans time: a day without data yields
// ErrNoImage.
type copernicusScene struct {
	collection *copernicusCollection
	date       time.Time
}

func evalscript(bands []string) string {
	samples := make([]string, len(bands))
	quoted := make([]string, len(bands))
	for i, band := range bands {
		quoted[i] = fmt.Sprintf("%q", band)
		samples[i] = "sample." + band
	}
	return fmt.Sprintf(`
    //VERSION=3
    function setup() {
      return {
        input: [%s],
        output: {
          id: "default",
          bands: %d,
          sampleType: SampleType.FLOAT32,
        },
      }
    }

    function evaluatePixel(sample) {
      return [%s];
    }
  `, strings.Join(quoted, ", "), len(bands), strings.Join(samples, ", "))
}

func calculatePixels(distance float64) int {
	pixels := distance * (111_000.0 / sceneResolutionMeters)
	if pixels < 1 {
		return 1
	}
	// Process API caps raster dimensions at 2500 pixels.
	if pixels > 2500 {
		return 2500
	}
	return int(pixels)
}

// rasterBands is the full fetch vocabulary for one scene: the source bands
// plus the scene-classification mask band for optical Sentinel-2.
func (s *copernicusScene) rasterBands() []string {
	bands := append([]string{}, s.collection.source.Bands()...)
	if s.collection.source.Masked() {
		bands = append(bands, "SCL")
	}
	return bands
}

func (s *copernicusScene) fetchRaster(ctx context.Context) ([]byte, error) {
	source := s.collection.source
	bounds := s.collection.polygon.Bound()

	dataFilter := map[string]interface{}{
		"timeRange": map[string]string{
			"from": s.date.UTC().Format(time.RFC3339),
			"to":   s.date.UTC().Add(24 * time.Hour).Format(time.RFC3339),
		},
	}
	switch source {
	case Sentinel1:
		if s.collection.filters.OrbitPass != "" {
			dataFilter["orbitDirection"] = s.collection.filters.OrbitPass
		}
	case Sentinel2:
		if s.collection.filters.MaxCloudCover >= 0 {
			dataFilter["maxCloudCoverage"] = s.collection.filters.MaxCloudCover
		}
	}

	geometry, err := json.Marshal(map[string]interface{}{
		"type":        "Polygon",
		"coordinates": s.collection.polygon,
	})
	if err != nil {
		return nil, err
	}

	requestPayload := map[string]interface{}{
		"input": map[string]interface{}{
			"bounds": map[string]interface{}{
				"geometry": json.RawMessage(geometry),
			},
			"data": []map[string]interface{}{
				{
					"dataFilter": dataFilter,
					"type":       source.CollectionID(),
				},
			},
		},
		"output": map[string]interface{}{
			"width":  calculatePixels(bounds.Max[0] - bounds.Min[0]),
			"height": calculatePixels(bounds.Max[1] - bounds.Min[1]),
			"responses": []map[string]interface{}{
				{
					"identifier": "default",
					"format": map[string]string{
						"type": "image/tiff",
					},
				},
			},
		},
		"evalscript": evalscript(s.rasterBands()),
		"mosaicking": "mostRecent",
	}

	requestBody, err := json.Marshal(requestPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal process request: %w", err)
	}

	var raster []byte
	err = withRetry(ctx, s.collection.platform.attempts, s.collection.platform.queryTimeout, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.collection.platform.processURL, bytes.NewReader(requestBody))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.collection.platform.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("process request returned %d: %s", resp.StatusCode, string(payload))
		}
		raster = payload
		return nil
	})
	return raster, err
}

func (s *copernicusScene) BandMeans(ctx context.Context, bands []string, polygon orb.Polygon) (map[string]float64, error) {
	source := s.collection.source

	cacheKey := s.collection.platform.sceneCache.GenerateKey(
		source.CollectionID(), s.date.Format("2006-01-02"), polygon.Bound(), s.collection.filters)
	raster, ok := s.collection.platform.sceneCache.Get(cacheKey)
	if !ok {
		var err error
		raster, err = s.fetchRaster(ctx)
		if err != nil {
			return nil, &SourceQueryError{Source: source, Op: "band-mean", Err: err}
		}
		if err := s.collection.platform.sceneCache.Set(cacheKey, raster); err != nil {
			fmt.Printf("failed to cache scene raster: %v\n", err)
		}
	}

	means, err := reduceBandMeans(raster, s.rasterBands(), bands, polygon, source.Masked())
	if err != nil {
		return nil, &SourceQueryError{Source: source, Op: "band-mean", Err: err}
	}
	if means == nil {
		return nil, ErrNoImage
	}
	return means, nil
}

// sclExcluded reports Sentinel-2 scene-classification values that must be
// masked out before any reduction: cloud shadow, cloud medium/high
// probability and thin cirrus.
func sclExcluded(value float64) bool {
	return value == 3 || value == 8 || value == 9 || value == 10
}

// reduceBandMeans reads the fetched GeoTIFF and reduces every requested band
// to its mean over the pixels whose center falls inside the polygon, after
// masking. A nil map means the scene holds no data at all.
func reduceBandMeans(raster []byte, rasterBands, wanted []string, polygon orb.Polygon, masked bool) (map[string]float64, error) {
	tmp, err := os.CreateTemp("", "scene-*.tif")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raster); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	ds, err := godal.Open(tmp.Name(), godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("%s", msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to open scene raster: %w", err)
	}
	defer ds.Close()

	width := ds.Structure().SizeX
	height := ds.Structure().SizeY
	geoTransform, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("failed to get GeoTransform: %w", err)
	}

	data := make(map[string][]float64, len(rasterBands))
	dsBands := ds.Bands()
	if len(dsBands) < len(rasterBands) {
		return nil, fmt.Errorf("scene raster has %d bands, expected %d", len(dsBands), len(rasterBands))
	}
	for i, name := range rasterBands {
		buf := make([]float64, width*height)
		for y := 0; y < height; y++ {
			if err := dsBands[i].Read(0, y, buf[y*width:(y+1)*width], width, 1); err != nil {
				return nil, fmt.Errorf("failed to read band %s: %w", name, err)
			}
		}
		data[name] = buf
	}

	sums := make(map[string]float64, len(wanted))
	counts := make(map[string]int, len(wanted))
	anyData := false
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			lon := geoTransform[0] + geoTransform[1]*(float64(x)+0.5) + geoTransform[2]*(float64(y)+0.5)
			lat := geoTransform[3] + geoTransform[4]*(float64(x)+0.5) + geoTransform[5]*(float64(y)+0.5)
			if !planar.PolygonContains(polygon, orb.Point{lon, lat}) {
				continue
			}
			if masked && sclExcluded(data["SCL"][idx]) {
				continue
			}
			for _, band := range wanted {
				v := data[band][idx]
				if math.IsNaN(v) {
					continue
				}
				if v != 0 {
					anyData = true
				}
				sums[band] += v
				counts[band]++
			}
		}
	}

	if !anyData {
		return nil, nil
	}

	means := make(map[string]float64, len(wanted))
	for _, band := range wanted {
		if counts[band] == 0 {
			means[band] = math.NaN()
			continue
		}
		means[band] = sums[band] / float64(counts[band])
	}
	return means, nil
}

// SceneCachePath is where raster cache entries live, for operators clearing
// disk space.
func SceneCachePath() string {
	return filepath.Join(properties.RootPath(), "data", "scenes")
}
