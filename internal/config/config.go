package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// MinCredentialLength is the shortest API key treated as real. Shorter values
// are placeholders and leave the provider unconfigured.
const MinCredentialLength = 6

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Live observation providers.
	SentinelAPIKey  string
	SentinelBaseURL string
	WeatherAPIKey   string
	WeatherBaseURL  string
	FetchTimeout    time.Duration

	SatelliteSyntheticMode string
	ObservationCacheSize   int
	ObservationCacheTTL    time.Duration

	// Scoring.
	ModelPath      string
	SequenceWindow int
	SequenceMode   string
	HistorySize    int
	ForecastHours  int
	AlertThreshold float64

	// Kafka batch assessment pipeline.
	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaRequestTopic    string
	KafkaAssessmentTopic string
	KafkaAlertTopic      string
	KafkaGroupID         string

	BatchSize          int
	BatchFlushInterval time.Duration
}

// SentinelEnabled reports whether a usable satellite credential is configured.
func (c *Config) SentinelEnabled() bool {
	return len(c.SentinelAPIKey) >= MinCredentialLength
}

// WeatherEnabled reports whether a usable weather credential is configured.
func (c *Config) WeatherEnabled() bool {
	return len(c.WeatherAPIKey) >= MinCredentialLength
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("OBSERVATION_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	window, err := parsePositiveInt("SEQUENCE_WINDOW", 48, 24*30)
	if err != nil {
		return nil, err
	}

	forecastHours, err := parsePositiveInt("FORECAST_HOURS", 72, 24*16)
	if err != nil {
		return nil, err
	}

	alertThreshold, err := parseAlertThreshold()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SentinelAPIKey:  os.Getenv("SENTINEL_API_KEY"),
		SentinelBaseURL: sharedcfg.EnvOrDefault("SENTINEL_BASE_URL", "https://services.sentinel-hub.com/api/v1/indices"),
		WeatherAPIKey:   os.Getenv("WEATHER_API_KEY"),
		WeatherBaseURL:  sharedcfg.EnvOrDefault("WEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		FetchTimeout:    fetchTimeout,

		SatelliteSyntheticMode: sharedcfg.EnvOrDefault("SATELLITE_SYNTHETIC_MODE", "constant"),
		ObservationCacheSize:   parseSizeOrDefault("OBSERVATION_CACHE_SIZE", 1000),
		ObservationCacheTTL:    cacheTTL,

		ModelPath:      os.Getenv("MODEL_PATH"),
		SequenceWindow: window,
		SequenceMode:   sharedcfg.EnvOrDefault("SEQUENCE_MODE", "repeat"),
		HistorySize:    parseSizeOrDefault("HISTORY_SIZE", 1000),
		ForecastHours:  forecastHours,
		AlertThreshold: alertThreshold,

		KafkaEnabled:         os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRequestTopic:    sharedcfg.EnvOrDefault("KAFKA_REQUEST_TOPIC", "risk-requests"),
		KafkaAssessmentTopic: sharedcfg.EnvOrDefault("KAFKA_ASSESSMENT_TOPIC", "risk-assessments"),
		KafkaAlertTopic:      sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "risk-alerts"),
		KafkaGroupID:         sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "harvest-risk"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	switch cfg.SatelliteSyntheticMode {
	case "constant", "coordinate":
	default:
		return nil, errors.New("invalid SATELLITE_SYNTHETIC_MODE: must be constant or coordinate")
	}
	switch cfg.SequenceMode {
	case "repeat", "rolling":
	default:
		return nil, errors.New("invalid SEQUENCE_MODE: must be repeat or rolling")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaRequestTopic == "" || cfg.KafkaAssessmentTopic == "" || cfg.KafkaAlertTopic == "" {
			return nil, errors.New("KAFKA_REQUEST_TOPIC, KAFKA_ASSESSMENT_TOPIC and KAFKA_ALERT_TOPIC are required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback, maxValue int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxValue {
		return 0, fmt.Errorf("invalid %s: must be 1-%d", key, maxValue)
	}
	return n, nil
}

func parseAlertThreshold() (float64, error) {
	s := os.Getenv("ALERT_THRESHOLD")
	if s == "" {
		return 6.0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 1 || v > 10 {
		return 0, errors.New("invalid ALERT_THRESHOLD: must be between 1 and 10")
	}
	return v, nil
}

func parseSizeOrDefault(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
