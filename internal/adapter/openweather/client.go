// Package openweather fetches current conditions and forecasts from the
// OpenWeatherMap 2.5 API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
)

// The forecast endpoint returns 3-hourly steps, at most 40 (five days).
const (
	forecastStepHours = 3
	maxForecastSteps  = 40
)

// ErrIncompleteResponse is returned when a required field is absent.
var ErrIncompleteResponse = errors.New("openweather response missing field")

// Client implements domain.WeatherProvider using OpenWeatherMap.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client.
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

// FetchWeather returns current conditions and up to forecastHours of forecast
// at loc. Forecast points carry their hour offset from the current reading.
func (c *Client) FetchWeather(ctx context.Context, loc domain.Coordinate, forecastHours int) (domain.WeatherBundle, error) {
	var cur currentResponse
	if err := c.get(ctx, "weather", loc, nil, &cur); err != nil {
		return domain.WeatherBundle{}, fmt.Errorf("current weather: %w", err)
	}
	current, err := cur.observation()
	if err != nil {
		return domain.WeatherBundle{}, err
	}

	var forecast []domain.ForecastPoint
	if forecastHours > 0 {
		steps := min(maxForecastSteps, (forecastHours+forecastStepHours-1)/forecastStepHours)
		var fr forecastResponse
		extra := url.Values{"cnt": {strconv.Itoa(steps)}}
		if err := c.get(ctx, "forecast", loc, extra, &fr); err != nil {
			return domain.WeatherBundle{}, fmt.Errorf("forecast: %w", err)
		}
		forecast, err = fr.points(current.Timestamp, forecastHours)
		if err != nil {
			return domain.WeatherBundle{}, err
		}
	}

	c.logger.Debug("weather fetched", "lat", loc.Latitude, "lon", loc.Longitude, "forecast_points", len(forecast))
	return domain.WeatherBundle{
		Current:  current,
		Forecast: forecast,
		Location: loc,
		Source:   domain.SourceLive,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, loc domain.Coordinate, extra url.Values, out any) error {
	params := url.Values{
		"lat":   {strconv.FormatFloat(loc.Latitude, 'f', 6, 64)},
		"lon":   {strconv.FormatFloat(loc.Longitude, 'f', 6, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	for k, v := range extra {
		params[k] = v
	}

	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// DewPoint approximates the dew point in °C with the Magnus formula.
func DewPoint(tempC, relativeHumidity float64) float64 {
	const a, b = 17.62, 243.12
	gamma := math.Log(relativeHumidity/100) + a*tempC/(b+tempC)
	return b * gamma / (a - gamma)
}

// OpenWeatherMap response types. Pointers distinguish absent values from zero.

type mainBlock struct {
	Temp     *float64 `json:"temp"`
	Humidity *float64 `json:"humidity"`
	Pressure *float64 `json:"pressure"`
}

type windBlock struct {
	Speed *float64 `json:"speed"`
}

type currentResponse struct {
	Dt   int64              `json:"dt"`
	Main mainBlock          `json:"main"`
	Wind windBlock          `json:"wind"`
	Rain map[string]float64 `json:"rain"`
}

type forecastEntry struct {
	Dt   int64              `json:"dt"`
	Main mainBlock          `json:"main"`
	Rain map[string]float64 `json:"rain"`
}

type forecastResponse struct {
	List []forecastEntry `json:"list"`
}

func (r currentResponse) observation() (domain.WeatherObservation, error) {
	switch {
	case r.Dt == 0:
		return domain.WeatherObservation{}, fmt.Errorf("%w: dt", ErrIncompleteResponse)
	case r.Main.Temp == nil:
		return domain.WeatherObservation{}, fmt.Errorf("%w: main.temp", ErrIncompleteResponse)
	case r.Main.Humidity == nil || *r.Main.Humidity <= 0:
		return domain.WeatherObservation{}, fmt.Errorf("%w: main.humidity", ErrIncompleteResponse)
	case r.Main.Pressure == nil:
		return domain.WeatherObservation{}, fmt.Errorf("%w: main.pressure", ErrIncompleteResponse)
	case r.Wind.Speed == nil:
		return domain.WeatherObservation{}, fmt.Errorf("%w: wind.speed", ErrIncompleteResponse)
	}

	temp, humidity := *r.Main.Temp, *r.Main.Humidity
	return domain.WeatherObservation{
		Temperature: temp,
		Humidity:    humidity,
		Rainfall:    r.Rain["1h"],
		WindSpeed:   *r.Wind.Speed,
		DewPoint:    DewPoint(temp, humidity),
		Pressure:    *r.Main.Pressure,
		Timestamp:   time.Unix(r.Dt, 0).UTC(),
	}, nil
}

func (r forecastResponse) points(from time.Time, maxHours int) ([]domain.ForecastPoint, error) {
	if len(r.List) == 0 {
		return nil, fmt.Errorf("%w: list", ErrIncompleteResponse)
	}

	points := make([]domain.ForecastPoint, 0, len(r.List))
	for i, e := range r.List {
		if e.Main.Temp == nil || e.Main.Humidity == nil {
			return nil, fmt.Errorf("%w: list[%d].main", ErrIncompleteResponse, i)
		}
		ts := time.Unix(e.Dt, 0).UTC()
		hour := int(math.Round(ts.Sub(from).Hours()))
		if hour < 1 || hour > maxHours {
			continue
		}
		points = append(points, domain.ForecastPoint{
			Hour:        hour,
			Temperature: *e.Main.Temp,
			Humidity:    *e.Main.Humidity,
			Rainfall:    e.Rain["3h"],
			Timestamp:   ts,
		})
	}
	return points, nil
}
