// Package assessment runs the full risk pipeline for one request: observation
// fetch, fusion, sequence building, scoring, risk factors, recommendations,
// and threshold alerts.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/couchcryptid/harvest-risk-service/internal/observability"
	"github.com/couchcryptid/harvest-risk-service/internal/observation"
	"github.com/couchcryptid/harvest-risk-service/internal/scoring"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ReportForecastPoints is how many forecast points a Report carries.
const ReportForecastPoints = 24

// ObservationSource is the fetch-or-fallback contract of observation.Source.
type ObservationSource interface {
	FetchSatellite(ctx context.Context, loc domain.Coordinate, date time.Time) observation.SatelliteResult
	FetchWeather(ctx context.Context, loc domain.Coordinate, forecastHours int) observation.WeatherResult
}

// DataSources records where each observation came from.
type DataSources struct {
	Satellite domain.DataSource `json:"satellite"`
	Weather   domain.DataSource `json:"weather"`
}

// Report is the complete outcome of one assessment.
type Report struct {
	ID             string                      `json:"id"`
	Location       domain.Coordinate           `json:"location"`
	Storage        domain.StorageCondition     `json:"storage"`
	Assessment     domain.RiskAssessment       `json:"prediction"`
	RiskFactors    domain.RiskFactors          `json:"risk_factors"`
	Recommendation domain.Recommendation       `json:"recommendations"`
	Alert          *domain.Alert               `json:"alert,omitempty"`
	Satellite      domain.SatelliteObservation `json:"satellite"`
	Weather        domain.WeatherObservation   `json:"weather"`
	Forecast       []domain.ForecastPoint      `json:"forecast"`
	DataSources    DataSources                 `json:"data_sources"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// Config wires an Engine.
type Config struct {
	Source         ObservationSource
	Builder        *domain.SequenceBuilder
	Model          scoring.Model
	AlertThreshold float64
	ForecastHours  int
	Clock          clockwork.Clock
	Metrics        *observability.Metrics
	Logger         *slog.Logger
}

// Engine assesses storage risk. It is safe for concurrent use.
type Engine struct {
	source         ObservationSource
	builder        *domain.SequenceBuilder
	model          scoring.Model
	alertThreshold float64
	forecastHours  int
	clock          clockwork.Clock
	newID          func() string
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// NewEngine creates an Engine from cfg, applying defaults for zero values.
func NewEngine(cfg Config) *Engine {
	if cfg.Builder == nil {
		cfg.Builder = domain.NewSequenceBuilder(domain.DefaultSequenceWindow, domain.SequenceRepeat, nil)
	}
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = domain.DefaultAlertThreshold
	}
	if cfg.ForecastHours <= 0 {
		cfg.ForecastHours = observation.DefaultForecastHours
	}
	return &Engine{
		source:         cfg.Source,
		builder:        cfg.Builder,
		model:          cfg.Model,
		alertThreshold: cfg.AlertThreshold,
		forecastHours:  cfg.ForecastHours,
		clock:          cfg.Clock,
		newID:          uuid.NewString,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
	}
}

// Strategy returns the scoring strategy chosen at startup.
func (e *Engine) Strategy() domain.Strategy { return e.model.Strategy() }

// CheckReadiness reports whether the engine can serve assessments.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if e.model == nil || e.source == nil {
		return errors.New("assessment engine is not configured")
	}
	return nil
}

// Assess validates req, then fetches observations and scores them. Only
// validation failures and internal scoring errors are returned; provider
// failures degrade to synthetic data.
func (e *Engine) Assess(ctx context.Context, req Request) (Report, error) {
	loc, err := req.Coordinate()
	if err != nil {
		return Report{}, err
	}
	storage, err := req.Storage()
	if err != nil {
		return Report{}, err
	}
	hours, err := req.forecastHours(e.forecastHours)
	if err != nil {
		return Report{}, err
	}
	date, err := req.date()
	if err != nil {
		return Report{}, err
	}

	var (
		wg  sync.WaitGroup
		sat observation.SatelliteResult
		wx  observation.WeatherResult
	)
	wg.Go(func() { sat = e.source.FetchSatellite(ctx, loc, date) })
	wg.Go(func() { wx = e.source.FetchWeather(ctx, loc, hours) })
	wg.Wait()

	now := e.clock.Now()
	features := domain.Fuse(&sat.Observation, &wx.Bundle.Current, &storage)
	key := domain.SequenceKey(loc, storage)
	seq := e.builder.Build(key, now, features)

	a, err := e.model.Score(seq)
	if err != nil {
		return Report{}, fmt.Errorf("score %s: %w", loc.Key(), err)
	}
	e.builder.Record(key, now, features)

	rec := domain.Recommend(a)
	report := Report{
		ID:             e.newID(),
		Location:       loc,
		Storage:        storage,
		Assessment:     a,
		RiskFactors:    domain.CalculateRiskFactors(sat.Observation, wx.Bundle),
		Recommendation: rec,
		Satellite:      sat.Observation,
		Weather:        wx.Bundle.Current,
		Forecast:       wx.Bundle.TruncateForecast(ReportForecastPoints),
		DataSources:    DataSources{Satellite: sat.Source, Weather: wx.Source},
		CreatedAt:      now,
	}

	if a.RiskScore >= e.alertThreshold {
		alert := domain.NewAlert(e.newID(), report.ID, loc, a, rec, now)
		report.Alert = &alert
		e.metrics.AlertsEmitted.Inc()
	}

	e.metrics.Assessments.WithLabelValues(string(a.RiskLevel), string(a.Strategy)).Inc()
	e.metrics.RiskScore.Observe(a.RiskScore)
	e.logger.Info("risk assessed",
		"assessment_id", report.ID,
		"location", loc.Key(),
		"risk_score", a.RiskScore,
		"risk_level", a.RiskLevel,
		"strategy", a.Strategy,
		"satellite_source", sat.Source,
		"weather_source", wx.Source,
		"alert", report.Alert != nil,
	)

	return report, nil
}

// Forecast validates req and returns the weather bundle for its location.
func (e *Engine) Forecast(ctx context.Context, req WeatherRequest) (observation.WeatherResult, error) {
	loc, err := parseCoordinate(req.Latitude, req.Longitude)
	if err != nil {
		return observation.WeatherResult{}, err
	}
	hours, err := parseForecastHours(req.Hours, e.forecastHours)
	if err != nil {
		return observation.WeatherResult{}, err
	}
	return e.source.FetchWeather(ctx, loc, hours), nil
}

// Satellite validates req and returns the satellite indices for its location.
func (e *Engine) Satellite(ctx context.Context, req SatelliteRequest) (observation.SatelliteResult, error) {
	loc, err := parseCoordinate(req.Latitude, req.Longitude)
	if err != nil {
		return observation.SatelliteResult{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return observation.SatelliteResult{}, err
	}
	return e.source.FetchSatellite(ctx, loc, date), nil
}
