package assessment

import (
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
)

// Request defaults applied when optional fields are omitted.
const (
	DefaultStorageType      = domain.StorageBag
	DefaultVentilationScore = 0.5
	DefaultMoistureContent  = 12.0
)

// MaxForecastHours bounds the forecast length a caller may request.
const MaxForecastHours = 24 * 16

const dateLayout = "2006-01-02"

// Request asks for one risk assessment. Pointer fields distinguish omitted
// values from zero.
type Request struct {
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	StorageType      string   `json:"storage_type,omitempty"`
	VentilationScore *float64 `json:"ventilation_score,omitempty"`
	// StorageQuality is the legacy name for VentilationScore.
	StorageQuality  *float64 `json:"storage_quality,omitempty"`
	MoistureContent *float64 `json:"moisture_content,omitempty"`
	ForecastHours   int      `json:"forecast_hours,omitempty"`
	Date            string   `json:"date,omitempty"`
}

// Coordinate validates and returns the requested location.
func (r Request) Coordinate() (domain.Coordinate, error) {
	return parseCoordinate(r.Latitude, r.Longitude)
}

// Storage applies defaults and validates the storage parameters.
func (r Request) Storage() (domain.StorageCondition, error) {
	st := domain.StorageCondition{
		Type:             DefaultStorageType,
		VentilationScore: DefaultVentilationScore,
		MoistureContent:  DefaultMoistureContent,
	}
	if r.StorageType != "" {
		st.Type = domain.StorageType(r.StorageType)
	}
	switch {
	case r.VentilationScore != nil:
		st.VentilationScore = *r.VentilationScore
	case r.StorageQuality != nil:
		st.VentilationScore = *r.StorageQuality
	}
	if r.MoistureContent != nil {
		st.MoistureContent = *r.MoistureContent
	}
	if err := st.Validate(); err != nil {
		return domain.StorageCondition{}, err
	}
	return st, nil
}

// forecastHours returns the requested length, or fallback when omitted.
func (r Request) forecastHours(fallback int) (int, error) {
	return parseForecastHours(r.ForecastHours, fallback)
}

// date parses the optional observation date.
func (r Request) date() (time.Time, error) {
	return parseDate(r.Date)
}

// WeatherRequest asks for a forecast at a location.
type WeatherRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Hours     int      `json:"hours,omitempty"`
}

// SatelliteRequest asks for satellite indices at a location.
type SatelliteRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Date      string   `json:"date,omitempty"`
}

func parseCoordinate(lat, lon *float64) (domain.Coordinate, error) {
	if lat == nil {
		return domain.Coordinate{}, &domain.ValidationError{Field: "latitude", Reason: "is required"}
	}
	if lon == nil {
		return domain.Coordinate{}, &domain.ValidationError{Field: "longitude", Reason: "is required"}
	}
	c := domain.Coordinate{Latitude: *lat, Longitude: *lon}
	if err := c.Validate(); err != nil {
		return domain.Coordinate{}, err
	}
	return c, nil
}

func parseForecastHours(hours, fallback int) (int, error) {
	switch {
	case hours == 0:
		return fallback, nil
	case hours < 0 || hours > MaxForecastHours:
		return 0, &domain.ValidationError{Field: "forecast_hours", Reason: "must be between 1 and 384"}
	default:
		return hours, nil
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: "date", Reason: "must be formatted YYYY-MM-DD"}
	}
	return d, nil
}
