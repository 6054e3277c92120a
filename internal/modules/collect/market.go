package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/lluc-palou/wealth-preservation/internal/timeseries"
)

// MarketClient fetches daily closing prices from the Yahoo Finance chart API.
type MarketClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewMarketClient creates a market price history client.
func NewMarketClient(log zerolog.Logger) *MarketClient {
	return &MarketClient{
		baseURL: "https://query1.finance.yahoo.com/v8/finance/chart",
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("client", "market").Logger(),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailyCloses fetches daily close prices for a ticker over the window.
// Null closes (exchange holidays, partial bars) become NaN points.
func (c *MarketClient) GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]timeseries.Point, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	params.Set("period2", fmt.Sprintf("%d", end.Unix()))
	params.Set("interval", "1d")
	params.Set("events", "history")

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build chart request for %s: %w", symbol, err)
	}
	// The chart endpoint rejects requests without a browser-like agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart request for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart API returned status %d for %s", resp.StatusCode, symbol)
	}

	var decoded chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode chart response for %s: %w", symbol, err)
	}

	if decoded.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, decoded.Chart.Error.Description)
	}
	if len(decoded.Chart.Result) == 0 || len(decoded.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart API returned no data for %s", symbol)
	}

	result := decoded.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return nil, fmt.Errorf("chart API returned %d closes for %d timestamps for %s",
			len(closes), len(result.Timestamp), symbol)
	}

	points := make([]timeseries.Point, 0, len(closes))
	for i, ts := range result.Timestamp {
		value := math.NaN()
		if closes[i] != nil {
			value = *closes[i]
		}

		// Bars are stamped at the session open; normalize to the UTC date.
		day := time.Unix(ts, 0).UTC()
		points = append(points, timeseries.Point{
			Date:  time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Value: value,
		})
	}

	return points, nil
}
