// Package app wires configuration into a ready assessment engine. Both the
// service and the one-shot CLI build their engine here.
package app

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/harvest-risk-service/internal/adapter/memory"
	"github.com/couchcryptid/harvest-risk-service/internal/adapter/openweather"
	"github.com/couchcryptid/harvest-risk-service/internal/adapter/sentinel"
	"github.com/couchcryptid/harvest-risk-service/internal/adapter/synthetic"
	"github.com/couchcryptid/harvest-risk-service/internal/assessment"
	"github.com/couchcryptid/harvest-risk-service/internal/config"
	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/couchcryptid/harvest-risk-service/internal/observability"
	"github.com/couchcryptid/harvest-risk-service/internal/observation"
	"github.com/couchcryptid/harvest-risk-service/internal/scoring"
	"github.com/jonboulle/clockwork"
)

// NewEngine builds the observation source, sequence builder, and model
// described by cfg and returns the engine that ties them together.
func NewEngine(cfg *config.Config, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) (*assessment.Engine, error) {
	source, err := NewSource(cfg, clock, metrics, logger)
	if err != nil {
		return nil, err
	}

	builder, err := NewSequenceBuilder(cfg)
	if err != nil {
		return nil, err
	}

	model, err := scoring.Select(cfg.ModelPath, clock, logger)
	if err != nil {
		return nil, fmt.Errorf("select model: %w", err)
	}

	logger.Info("assessment engine ready",
		"strategy", model.Strategy(),
		"sequence_window", builder.Window(),
		"sequence_mode", builder.Mode(),
		"alert_threshold", cfg.AlertThreshold,
	)

	return assessment.NewEngine(assessment.Config{
		Source:         source,
		Builder:        builder,
		Model:          model,
		AlertThreshold: cfg.AlertThreshold,
		ForecastHours:  cfg.ForecastHours,
		Clock:          clock,
		Metrics:        metrics,
		Logger:         logger,
	}), nil
}

// NewSource configures live providers for every usable credential, each behind
// an expiring cache, and the synthetic fallbacks.
func NewSource(cfg *config.Config, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) (*observation.Source, error) {
	mode, err := synthetic.ParseSatelliteMode(cfg.SatelliteSyntheticMode)
	if err != nil {
		return nil, err
	}

	// Interfaces stay nil unless a provider is configured.
	var (
		satellite domain.SatelliteProvider
		weather   domain.WeatherProvider
	)
	if cfg.SentinelEnabled() {
		client := sentinel.NewClient(cfg.SentinelAPIKey, cfg.SentinelBaseURL, cfg.FetchTimeout, logger)
		satellite = observation.NewCachedSatellite(client, cfg.ObservationCacheSize, cfg.ObservationCacheTTL, metrics)
		logger.Info("live satellite provider enabled", "base_url", cfg.SentinelBaseURL)
	} else {
		logger.Info("live satellite provider disabled, using synthetic data", "mode", mode)
	}
	if cfg.WeatherEnabled() {
		client := openweather.NewClient(cfg.WeatherAPIKey, cfg.WeatherBaseURL, cfg.FetchTimeout, logger)
		weather = observation.NewCachedWeather(client, cfg.ObservationCacheSize, cfg.ObservationCacheTTL, metrics)
		logger.Info("live weather provider enabled", "base_url", cfg.WeatherBaseURL)
	} else {
		logger.Info("live weather provider disabled, using synthetic data")
	}

	return observation.NewSource(observation.Config{
		Satellite:          satellite,
		Weather:            weather,
		SyntheticSatellite: synthetic.NewSatellite(mode),
		SyntheticWeather:   synthetic.NewWeather(clock),
		Timeout:            cfg.FetchTimeout,
		Clock:              clock,
		Metrics:            metrics,
		Logger:             logger,
	}), nil
}

// NewSequenceBuilder returns a builder for the configured mode. Rolling mode
// gets an in-memory history bounded by HistorySize keys.
func NewSequenceBuilder(cfg *config.Config) (*domain.SequenceBuilder, error) {
	mode, err := domain.ParseSequenceMode(cfg.SequenceMode)
	if err != nil {
		return nil, err
	}
	if mode != domain.SequenceRolling {
		return domain.NewSequenceBuilder(cfg.SequenceWindow, mode, nil), nil
	}

	history, err := memory.NewHistory(cfg.HistorySize, cfg.SequenceWindow)
	if err != nil {
		return nil, fmt.Errorf("create sequence history: %w", err)
	}
	return domain.NewSequenceBuilder(cfg.SequenceWindow, mode, history), nil
}
