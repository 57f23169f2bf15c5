package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type searchRequest struct {
	Collections []string                          `json:"collections"`
	Intersects  *geojson.Geometry                 `json:"intersects"`
	Datetime    string                            `json:"datetime"`
	Query       map[string]map[string]interface{} `json:"query,omitempty"`
	Fields      searchFields                      `json:"fields"`
	Limit       int                               `json:"limit"`
	Next        int                               `json:"next,omitempty"`
}

type searchFields struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

type searchResponse struct {
	Features []struct {
		Properties struct {
			Datetime string `json:"datetime"`
		} `json:"properties"`
	} `json:"features"`
	Context struct {
		Next int `json:"next"`
	} `json:"context"`
}

func catalogQuery(source Source, filters Filters) map[string]map[string]interface{} {
	query := make(map[string]map[string]interface{})
	switch source {
	case Sentinel1:
		// Dual-polarization IW scenes only, so VV and VH are both present.
		query["polarization"] = map[string]interface{}{"eq": "DV"}
		query["sar:instrument_mode"] = map[string]interface{}{"eq": "IW"}
		if filters.OrbitPass != "" {
			query["sat:orbit_state"] = map[string]interface{}{"eq": strings.ToLower(filters.OrbitPass)}
		}
	case Sentinel2:
		if filters.MaxCloudCover >= 0 {
			query["eo:cloud_cover"] = map[string]interface{}{"lte": filters.MaxCloudCover}
		}
	}
	if len(query) == 0 {
		return nil
	}
	return query
}

// searchDistinctDates pages through the catalog and reduces acquisition
// timestamps to a sorted, de-duplicated list of calendar days.
func (c *Copernicus) searchDistinctDates(ctx context.Context, source Source, polygon orb.Polygon, start, end time.Time, filters Filters) ([]time.Time, error) {
	// The catalog interval is closed on both ends; the range contract is
	// half-open on calendar days.
	interval := fmt.Sprintf("%s/%s",
		start.UTC().Format(time.RFC3339),
		end.UTC().Add(-time.Second).Format(time.RFC3339))

	seen := make(map[string]bool)
	next := 0
	for {
		request := searchRequest{
			Collections: []string{source.CollectionID()},
			Intersects:  geojson.NewGeometry(polygon),
			Datetime:    interval,
			Query:       catalogQuery(source, filters),
			Fields:      searchFields{Include: []string{"properties.datetime"}, Exclude: []string{"assets", "links"}},
			Limit:       100,
			Next:        next,
		}
		body, err := json.Marshal(request)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal catalog request: %w", err)
		}

		var response searchResponse
		err = withRetry(ctx, c.attempts, c.queryTimeout, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.catalogURL+"/search", bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			payload, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("catalog search returned %d: %s", resp.StatusCode, string(payload))
			}
			response = searchResponse{}
			return json.Unmarshal(payload, &response)
		})
		if err != nil {
			return nil, err
		}

		for _, feature := range response.Features {
			ts, err := time.Parse(time.RFC3339, feature.Properties.Datetime)
			if err != nil {
				return nil, fmt.Errorf("catalog returned invalid datetime %q: %w", feature.Properties.Datetime, err)
			}
			seen[ts.UTC().Format("2006-01-02")] = true
		}

		if response.Context.Next == 0 {
			break
		}
		next = response.Context.Next
	}

	dates := make([]time.Time, 0, len(seen))
	for day := range seen {
		date, _ := time.Parse("2006-01-02", day)
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}
