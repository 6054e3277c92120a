package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/lluc-palou/wealth-preservation/internal/timeseries"
)

// FredClient fetches series observations from the FRED REST API.
type FredClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewFredClient creates a FRED observations client.
func NewFredClient(apiKey string, log zerolog.Logger) *FredClient {
	return &FredClient{
		baseURL: "https://api.stlouisfed.org/fred/series/observations",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("client", "fred").Logger(),
	}
}

type fredObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type fredResponse struct {
	Observations []fredObservation `json:"observations"`
}

// GetObservations fetches one series over the given window. FRED encodes
// missing observations as the literal value "."; those become NaN points.
func (c *FredClient) GetObservations(ctx context.Context, seriesID string, start, end time.Time) ([]timeseries.Point, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("observation_start", start.Format("2006-01-02"))
	params.Set("observation_end", end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build FRED request for %s: %w", seriesID, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FRED request for %s failed: %w", seriesID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FRED returned status %d for %s", resp.StatusCode, seriesID)
	}

	var decoded fredResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode FRED response for %s: %w", seriesID, err)
	}

	points := make([]timeseries.Point, 0, len(decoded.Observations))
	for _, obs := range decoded.Observations {
		date, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			return nil, fmt.Errorf("FRED returned bad date %q for %s: %w", obs.Date, seriesID, err)
		}

		value := math.NaN()
		if obs.Value != "." && obs.Value != "" {
			value, err = strconv.ParseFloat(obs.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("FRED returned bad value %q for %s: %w", obs.Value, seriesID, err)
			}
		}

		points = append(points, timeseries.Point{Date: date.UTC(), Value: value})
	}

	return points, nil
}
