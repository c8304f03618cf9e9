package assessment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/adapter/memory"
	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/couchcryptid/harvest-risk-service/internal/observability"
	"github.com/couchcryptid/harvest-risk-service/internal/observation"
	"github.com/couchcryptid/harvest-risk-service/internal/scoring"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// countingSource records fetches and delegates to an unconfigured Source.
type countingSource struct {
	inner        *observation.Source
	satellite    atomic.Int32
	weather      atomic.Int32
	lastHours    atomic.Int32
	satelliteErr error
}

func (c *countingSource) FetchSatellite(ctx context.Context, loc domain.Coordinate, date time.Time) observation.SatelliteResult {
	c.satellite.Add(1)
	res := c.inner.FetchSatellite(ctx, loc, date)
	res.FallbackErr = c.satelliteErr
	return res
}

func (c *countingSource) FetchWeather(ctx context.Context, loc domain.Coordinate, hours int) observation.WeatherResult {
	c.weather.Add(1)
	c.lastHours.Store(int32(hours))
	return c.inner.FetchWeather(ctx, loc, hours)
}

type fixture struct {
	engine  *Engine
	source  *countingSource
	metrics *observability.Metrics
	clock   *clockwork.FakeClock
}

func newFixture(t *testing.T, model scoring.Model, builder *domain.SequenceBuilder) fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testNow)
	metrics := observability.NewMetricsForTesting()
	src := &countingSource{inner: observation.NewSource(observation.Config{
		Clock:   clock,
		Metrics: metrics,
		Logger:  discardLogger(),
	})}
	if model == nil {
		model = scoring.NewRuleBased(clock)
	}

	e := NewEngine(Config{
		Source:  src,
		Builder: builder,
		Model:   model,
		Clock:   clock,
		Metrics: metrics,
		Logger:  discardLogger(),
	})
	var n atomic.Int32
	e.newID = func() string { return fmt.Sprintf("id-%d", n.Add(1)) }

	return fixture{engine: e, source: src, metrics: metrics, clock: clock}
}

func demoRequest() Request {
	return Request{
		Latitude:         ptr(15.3173),
		Longitude:        ptr(75.7139),
		StorageType:      "bag",
		VentilationScore: ptr(0.4),
		MoistureContent:  ptr(14.0),
	}
}

func TestEngine_Assess_DemoScenario(t *testing.T) {
	f := newFixture(t, nil, nil)

	r, err := f.engine.Assess(context.Background(), demoRequest())
	require.NoError(t, err)

	assert.Equal(t, "id-1", r.ID)
	assert.Equal(t, domain.Coordinate{Latitude: 15.3173, Longitude: 75.7139}, r.Location)
	assert.Equal(t, testNow, r.CreatedAt)

	assert.Equal(t, 7.0, r.Assessment.RiskScore)
	assert.Equal(t, domain.RiskHigh, r.Assessment.RiskLevel)
	assert.Equal(t, domain.StrategyRuleBased, r.Assessment.Strategy)

	assert.Equal(t, 1.5, r.RiskFactors.TemperatureRisk)
	assert.Equal(t, 1.8, r.RiskFactors.HumidityRisk)
	assert.InDelta(t, 1.15, r.RiskFactors.CropStressRisk, 1e-9)
	assert.Equal(t, 3.0, r.RiskFactors.CombinedRiskMultiplier)
	assert.Equal(t, domain.RiskHigh, r.RiskFactors.Assessment)

	assert.Equal(t, domain.PriorityHigh, r.Recommendation.Priority)
	assert.Equal(t, "HIGH RISK - Take preventive action within 24 hours", r.Recommendation.Actions[0])

	assert.Len(t, r.Forecast, ReportForecastPoints)
	assert.Equal(t, DataSources{Satellite: domain.SourceSynthetic, Weather: domain.SourceSynthetic}, r.DataSources)
	assert.False(t, r.Satellite.IsRealData)
	assert.Equal(t, 31.0, r.Weather.Temperature)

	require.NotNil(t, r.Alert)
	assert.Equal(t, "id-2", r.Alert.ID)
	assert.Equal(t, "id-1", r.Alert.AssessmentID)
	assert.Equal(t, domain.RiskHigh, r.Alert.Severity)
	assert.Equal(t, "HIGH AFLATOXIN RISK", r.Alert.Title)
	assert.Equal(t, "Take preventive action within 24 hours. Risk Score: 7.0/10", r.Alert.Message)

	assert.Equal(t, int32(1), f.source.satellite.Load())
	assert.Equal(t, int32(1), f.source.weather.Load())
	assert.Equal(t, int32(72), f.source.lastHours.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Assessments.WithLabelValues("HIGH", "rule_based")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AlertsEmitted))
}

func TestEngine_Assess_Defaults(t *testing.T) {
	f := newFixture(t, nil, nil)

	r, err := f.engine.Assess(context.Background(), Request{Latitude: ptr(15.3173), Longitude: ptr(75.7139)})
	require.NoError(t, err)

	assert.Equal(t, domain.StorageCondition{Type: domain.StorageBag, VentilationScore: 0.5, MoistureContent: 12.0}, r.Storage)
	// Humidity 0.75 adds 2.0 and 31 °C adds 2.5; default storage adds nothing.
	assert.Equal(t, 5.5, r.Assessment.RiskScore)
	assert.Equal(t, domain.RiskModerate, r.Assessment.RiskLevel)
	assert.Nil(t, r.Alert)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.AlertsEmitted))
}

func TestEngine_Assess_LegacyStorageQuality(t *testing.T) {
	f := newFixture(t, nil, nil)
	req := demoRequest()
	req.VentilationScore = nil
	req.StorageQuality = ptr(0.9)

	r, err := f.engine.Assess(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 0.9, r.Storage.VentilationScore)
	assert.Equal(t, 8.5, r.Assessment.RiskScore)
	assert.Equal(t, domain.RiskCritical, r.Assessment.RiskLevel)
	assert.Equal(t, domain.PriorityUrgent, r.Recommendation.Priority)
	require.NotNil(t, r.Alert)
	assert.Equal(t, "Immediate action required! Risk Score: 8.5/10", r.Alert.Message)
}

func TestEngine_Assess_ValidationBeforeFetch(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Request)
		wantErr string
	}{
		{"missing latitude", func(r *Request) { r.Latitude = nil }, "latitude"},
		{"missing longitude", func(r *Request) { r.Longitude = nil }, "longitude"},
		{"latitude out of range", func(r *Request) { r.Latitude = ptr(95.0) }, "latitude"},
		{"ventilation out of range", func(r *Request) { r.VentilationScore = ptr(1.5) }, "ventilation_score"},
		{"negative moisture", func(r *Request) { r.MoistureContent = ptr(-1.0) }, "moisture_content"},
		{"negative forecast hours", func(r *Request) { r.ForecastHours = -4 }, "forecast_hours"},
		{"bad date", func(r *Request) { r.Date = "01/03/2026" }, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, nil)
			req := demoRequest()
			tt.mutate(&req)

			_, err := f.engine.Assess(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, int32(0), f.source.satellite.Load())
			assert.Equal(t, int32(0), f.source.weather.Load())
		})
	}
}

func TestEngine_Assess_ZeroCoordinateIsValid(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.engine.Assess(context.Background(), Request{Latitude: ptr(0.0), Longitude: ptr(0.0)})
	require.NoError(t, err)
}

func TestEngine_Assess_ProviderFailureStillAssesses(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.source.satelliteErr = errors.New("upstream down")

	r, err := f.engine.Assess(context.Background(), demoRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceSynthetic, r.DataSources.Satellite)
}

func TestEngine_Assess_CustomForecastHours(t *testing.T) {
	f := newFixture(t, nil, nil)
	req := demoRequest()
	req.ForecastHours = 12

	r, err := f.engine.Assess(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int32(12), f.source.lastHours.Load())
	assert.Len(t, r.Forecast, 12)
}

type failingModel struct{}

func (failingModel) Score(domain.FeatureSequence) (domain.RiskAssessment, error) {
	return domain.RiskAssessment{}, scoring.ErrNonFiniteScore
}

func (failingModel) Strategy() domain.Strategy { return domain.StrategyTrained }

func TestEngine_Assess_ModelErrorPropagates(t *testing.T) {
	f := newFixture(t, failingModel{}, nil)

	_, err := f.engine.Assess(context.Background(), demoRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrNonFiniteScore)
	assert.False(t, errors.Is(err, domain.ErrInvalidInput))
}

// recordingModel captures the sequence it was given.
type recordingModel struct {
	last domain.FeatureSequence
}

func (m *recordingModel) Score(seq domain.FeatureSequence) (domain.RiskAssessment, error) {
	m.last = seq
	return domain.RiskAssessment{RiskScore: 2, RiskLevel: domain.RiskLow, Strategy: domain.StrategyTrained}, nil
}

func (m *recordingModel) Strategy() domain.Strategy { return domain.StrategyTrained }

func TestEngine_Assess_SequenceModes(t *testing.T) {
	t.Run("repeat", func(t *testing.T) {
		model := &recordingModel{}
		f := newFixture(t, model, domain.NewSequenceBuilder(48, domain.SequenceRepeat, nil))

		_, err := f.engine.Assess(context.Background(), demoRequest())
		require.NoError(t, err)

		require.Len(t, model.last, 48)
		assert.Equal(t, model.last[0], model.last[47])
		assert.Equal(t, 0.7, model.last[47].Storage.Moisture)
	})

	t.Run("rolling", func(t *testing.T) {
		history, err := memory.NewHistory(10, 4)
		require.NoError(t, err)
		model := &recordingModel{}
		f := newFixture(t, model, domain.NewSequenceBuilder(4, domain.SequenceRolling, history))

		_, err = f.engine.Assess(context.Background(), demoRequest())
		require.NoError(t, err)

		f.clock.Advance(time.Hour)
		second := demoRequest()
		second.MoistureContent = ptr(10.0)
		_, err = f.engine.Assess(context.Background(), second)
		require.NoError(t, err)

		require.Len(t, model.last, 4)
		assert.Equal(t, []float64{0.7, 0.7, 0.7, 0.5}, moistures(model.last))
	})
}

func moistures(seq domain.FeatureSequence) []float64 {
	out := make([]float64, len(seq))
	for i, f := range seq {
		out[i] = f.Storage.Moisture
	}
	return out
}

func typeScoreCounts(seq domain.FeatureSequence) map[float64]int {
	out := make(map[float64]int)
	for _, f := range seq {
		out[f.Storage.TypeScore]++
	}
	return out
}

func TestEngine_Assess_RollingHistoryIsHourlyPerStorage(t *testing.T) {
	history, err := memory.NewHistory(10, 48)
	require.NoError(t, err)
	model := &recordingModel{}
	f := newFixture(t, model, domain.NewSequenceBuilder(48, domain.SequenceRolling, history))

	assess := func(storage string) domain.FeatureSequence {
		t.Helper()
		req := demoRequest()
		req.StorageType = storage
		_, err := f.engine.Assess(context.Background(), req)
		require.NoError(t, err)
		return model.last
	}

	for _, storage := range []string{"silo", "open", "silo", "open"} {
		assess(storage)
	}
	assert.Equal(t, map[float64]int{0.8: 48}, typeScoreCounts(model.last))

	silo := assess("silo")
	assert.Equal(t, map[float64]int{0.2: 48}, typeScoreCounts(silo))

	key := domain.SequenceKey(
		domain.Coordinate{Latitude: 15.3173, Longitude: 75.7139},
		domain.StorageCondition{Type: domain.StorageSilo, VentilationScore: 0.4},
	)
	require.Len(t, history.Recent(key), 1, "same-hour calls share one bucket")

	f.clock.Advance(time.Hour)
	req := demoRequest()
	req.StorageType = "silo"
	req.MoistureContent = ptr(10.0)
	_, err = f.engine.Assess(context.Background(), req)
	require.NoError(t, err)

	snapshots := history.Recent(key)
	require.Len(t, snapshots, 2)
	assert.Equal(t, testNow, snapshots[0].Hour)
	assert.Equal(t, testNow.Add(time.Hour), snapshots[1].Hour)
	assert.Equal(t, map[float64]int{0.2: 48}, typeScoreCounts(model.last))
	assert.Equal(t, 0.7, model.last[46].Storage.Moisture)
	assert.Equal(t, 0.5, model.last[47].Storage.Moisture)
}

// flakyModel fails the first call and records every later sequence.
type flakyModel struct {
	recordingModel
	calls int
}

func (m *flakyModel) Score(seq domain.FeatureSequence) (domain.RiskAssessment, error) {
	m.calls++
	if m.calls == 1 {
		return domain.RiskAssessment{}, scoring.ErrNonFiniteScore
	}
	return m.recordingModel.Score(seq)
}

func TestEngine_Assess_ScoreErrorLeavesHistoryUntouched(t *testing.T) {
	history, err := memory.NewHistory(10, 4)
	require.NoError(t, err)
	model := &flakyModel{}
	f := newFixture(t, model, domain.NewSequenceBuilder(4, domain.SequenceRolling, history))

	failed := demoRequest()
	failed.MoistureContent = ptr(20.0)
	_, err = f.engine.Assess(context.Background(), failed)
	require.ErrorIs(t, err, scoring.ErrNonFiniteScore)
	assert.Zero(t, history.Len())

	f.clock.Advance(time.Hour)
	_, err = f.engine.Assess(context.Background(), demoRequest())
	require.NoError(t, err)

	assert.Equal(t, []float64{0.7, 0.7, 0.7, 0.7}, moistures(model.last))
	assert.Equal(t, 1, history.Len())
}

func TestEngine_Forecast(t *testing.T) {
	f := newFixture(t, nil, nil)

	res, err := f.engine.Forecast(context.Background(), WeatherRequest{Latitude: ptr(15.3), Longitude: ptr(75.7)})
	require.NoError(t, err)
	assert.Len(t, res.Bundle.Forecast, 72)
	assert.Equal(t, domain.SourceSynthetic, res.Source)

	res, err = f.engine.Forecast(context.Background(), WeatherRequest{Latitude: ptr(15.3), Longitude: ptr(75.7), Hours: 30})
	require.NoError(t, err)
	assert.Len(t, res.Bundle.Forecast, 30)

	_, err = f.engine.Forecast(context.Background(), WeatherRequest{Longitude: ptr(75.7)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEngine_Satellite(t *testing.T) {
	f := newFixture(t, nil, nil)

	res, err := f.engine.Satellite(context.Background(), SatelliteRequest{Latitude: ptr(15.3), Longitude: ptr(75.7), Date: "2026-02-14"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), res.Observation.Timestamp)

	_, err = f.engine.Satellite(context.Background(), SatelliteRequest{Latitude: ptr(15.3), Longitude: ptr(75.7), Date: "Feb 14"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
