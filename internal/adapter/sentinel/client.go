// Package sentinel fetches crop-health indices from a Sentinel-2 indices gateway.
package sentinel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
)

const dateLayout = "2006-01-02"

// ErrIncompleteResponse is returned when the gateway omits a required index.
var ErrIncompleteResponse = errors.New("sentinel response missing index")

// Client implements domain.SatelliteProvider over the gateway's HTTP API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Sentinel indices client.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// FetchSatellite returns the indices observed at loc on date.
func (c *Client) FetchSatellite(ctx context.Context, loc domain.Coordinate, date time.Time) (domain.SatelliteObservation, error) {
	params := url.Values{
		"lat":  {strconv.FormatFloat(loc.Latitude, 'f', 6, 64)},
		"lon":  {strconv.FormatFloat(loc.Longitude, 'f', 6, 64)},
		"date": {date.Format(dateLayout)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.SatelliteObservation{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.SatelliteObservation{}, fmt.Errorf("satellite request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.SatelliteObservation{}, fmt.Errorf("sentinel API error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return domain.SatelliteObservation{}, fmt.Errorf("decode response: %w", err)
	}

	obs, err := r.observation()
	if err != nil {
		return domain.SatelliteObservation{}, err
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = date
	}
	c.logger.Debug("satellite indices fetched", "lat", loc.Latitude, "lon", loc.Longitude, "date", obs.Timestamp.Format(dateLayout))
	return obs, nil
}

// Gateway response types. Pointers distinguish absent indices from zero.

type response struct {
	Date    string  `json:"date"`
	Indices indices `json:"indices"`
}

type indices struct {
	NDVI               *float64 `json:"ndvi"`
	NDMI               *float64 `json:"ndmi"`
	CropHealth         *float64 `json:"crop_health"`
	StressLevel        *float64 `json:"stress_level"`
	CanopyWater        *float64 `json:"canopy_water"`
	Chlorophyll        *float64 `json:"chlorophyll"`
	SurfaceTemperature *float64 `json:"surface_temperature"`
}

func (r response) observation() (domain.SatelliteObservation, error) {
	fields := []struct {
		name string
		v    *float64
	}{
		{"ndvi", r.Indices.NDVI},
		{"ndmi", r.Indices.NDMI},
		{"crop_health", r.Indices.CropHealth},
		{"stress_level", r.Indices.StressLevel},
		{"canopy_water", r.Indices.CanopyWater},
		{"chlorophyll", r.Indices.Chlorophyll},
		{"surface_temperature", r.Indices.SurfaceTemperature},
	}
	for _, f := range fields {
		if f.v == nil {
			return domain.SatelliteObservation{}, fmt.Errorf("%w: %s", ErrIncompleteResponse, f.name)
		}
	}

	obs := domain.SatelliteObservation{
		NDVI:               *r.Indices.NDVI,
		NDMI:               *r.Indices.NDMI,
		CropHealth:         *r.Indices.CropHealth,
		StressLevel:        *r.Indices.StressLevel,
		CanopyWater:        *r.Indices.CanopyWater,
		Chlorophyll:        *r.Indices.Chlorophyll,
		TemperatureSurface: *r.Indices.SurfaceTemperature,
		IsRealData:         true,
	}
	if r.Date != "" {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return domain.SatelliteObservation{}, fmt.Errorf("parse observation date %q: %w", r.Date, err)
		}
		obs.Timestamp = d
	}
	return obs, nil
}
