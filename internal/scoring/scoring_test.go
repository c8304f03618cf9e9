package scoring

import (
	"encoding/gob"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testClock() clockwork.Clock { return clockwork.NewFakeClockAt(testNow) }

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// demoFeatures fuses the bag-storage demo scenario with the synthetic
// satellite and weather constants.
func demoFeatures() domain.Features {
	sat := domain.SatelliteObservation{NDVI: 0.65, NDMI: 0.55, CropHealth: 0.7, StressLevel: 0.3, CanopyWater: 0.6, Chlorophyll: 0.68, TemperatureSurface: 28.5}
	wx := domain.WeatherObservation{Temperature: 31.0, Humidity: 75.0, Rainfall: 0.0, WindSpeed: 8.5, DewPoint: 23.5, Pressure: 1012.0}
	st := domain.StorageCondition{Type: domain.StorageBag, VentilationScore: 0.4, MoistureContent: 14.0}
	return domain.Fuse(&sat, &wx, &st)
}

func withWeather(temp, humidity float64) domain.Features {
	f := domain.Fuse(nil, nil, nil)
	f.Weather.Temperature = temp
	f.Weather.Humidity = humidity
	f.Storage.Ventilation = 0
	f.Storage.Moisture = 0
	return f
}

func TestRuleBased_DemoScenario(t *testing.T) {
	r := NewRuleBased(testClock())

	a, err := r.Score(domain.RepeatSequence(demoFeatures(), 48))
	require.NoError(t, err)

	assert.Equal(t, 7.0, a.RiskScore)
	assert.Equal(t, domain.RiskHigh, a.RiskLevel)
	assert.Equal(t, 0.75, a.Confidence)
	assert.Equal(t, domain.StrategyRuleBased, a.Strategy)
	assert.Equal(t, testNow, a.Timestamp)
	assert.NotEmpty(t, a.Note)
}

func TestRuleBased_Rules(t *testing.T) {
	tests := []struct {
		name     string
		features domain.Features
		want     float64
	}{
		{"baseline", withWeather(10, 0.5), 1.0},
		{"humidity exactly 0.75", withWeather(10, 0.75), 3.0},
		{"humidity above 0.75", withWeather(10, 0.76), 4.5},
		{"humidity exactly 0.65", withWeather(10, 0.65), 1.0},
		{"optimal band lower edge", withWeather(25, 0.5), 3.5},
		{"optimal band upper edge", withWeather(35, 0.5), 3.5},
		{"warm band", withWeather(22, 0.5), 2.5},
		{"warm band upper edge", withWeather(40, 0.5), 2.5},
		{"too hot", withWeather(41, 0.5), 1.0},
		{"everything bad", func() domain.Features {
			f := withWeather(30, 0.9)
			f.Storage.Ventilation = 0.9
			f.Storage.Moisture = 0.9
			return f
		}(), 10.0},
		{"ventilation exactly 0.6", func() domain.Features {
			f := withWeather(10, 0.5)
			f.Storage.Ventilation = 0.6
			return f
		}(), 1.0},
	}

	r := NewRuleBased(testClock())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := r.Score(domain.FeatureSequence{tt.features})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, a.RiskScore, 1e-9)
			assert.Equal(t, domain.ClassifyRisk(a.RiskScore), a.RiskLevel)
		})
	}
}

func TestRuleBased_OnlyLatestSnapshotCounts(t *testing.T) {
	r := NewRuleBased(testClock())
	seq := domain.FeatureSequence{withWeather(30, 0.9), withWeather(10, 0.5)}

	a, err := r.Score(seq)
	require.NoError(t, err)
	assert.Equal(t, 1.0, a.RiskScore)
}

func TestRuleBased_EmptySequence(t *testing.T) {
	a, err := NewRuleBased(testClock()).Score(nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, a.RiskScore)
	assert.Equal(t, domain.RiskLow, a.RiskLevel)
}

func zeros(n int) []float64 { return make([]float64, n) }

// constantParams returns a network whose output ignores its inputs.
func constantParams(bias float64) Params {
	return Params{
		Recurrent: []RecurrentLayer{{
			Input:  Matrix{Rows: 2, Cols: domain.FeatureCount, Data: zeros(2 * domain.FeatureCount)},
			Hidden: Matrix{Rows: 2, Cols: 2, Data: zeros(4)},
			Bias:   zeros(2),
		}},
		Dense: []DenseLayer{{
			Weights: Matrix{Rows: 1, Cols: 2, Data: []float64{1, 1}},
			Bias:    []float64{0},
		}},
		Output: DenseLayer{
			Weights: Matrix{Rows: 1, Cols: 1, Data: []float64{1}},
			Bias:    []float64{bias},
		},
	}
}

// humidityParams returns a one-unit Elman network reading humidity only:
// h_t = tanh(x_t + 0.5*h_{t-1}), score = 1 + 5*h_T.
func humidityParams() Params {
	in := zeros(domain.FeatureCount)
	in[domain.IndexHumidity] = 1
	return Params{
		Recurrent: []RecurrentLayer{{
			Input:  Matrix{Rows: 1, Cols: domain.FeatureCount, Data: in},
			Hidden: Matrix{Rows: 1, Cols: 1, Data: []float64{0.5}},
			Bias:   []float64{0},
		}},
		Dense: []DenseLayer{{
			Weights: Matrix{Rows: 1, Cols: 1, Data: []float64{1}},
			Bias:    []float64{0},
		}},
		Output: DenseLayer{
			Weights: Matrix{Rows: 1, Cols: 1, Data: []float64{5}},
			Bias:    []float64{1},
		},
	}
}

func humiditySequence(hs ...float64) domain.FeatureSequence {
	seq := make(domain.FeatureSequence, len(hs))
	for i, h := range hs {
		seq[i] = withWeather(25, h)
	}
	return seq
}

func TestTrained_Score(t *testing.T) {
	tests := []struct {
		name      string
		bias      float64
		wantScore float64
		wantLevel domain.RiskLevel
	}{
		{"in range", 7.3, 7.3, domain.RiskHigh},
		{"clamped high", 42, 10, domain.RiskCritical},
		{"clamped low", -3, 1, domain.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewTrained(constantParams(tt.bias), testClock())
			require.NoError(t, err)

			a, err := m.Score(domain.RepeatSequence(demoFeatures(), 48))
			require.NoError(t, err)

			assert.InDelta(t, tt.wantScore, a.RiskScore, 1e-9)
			assert.Equal(t, tt.wantLevel, a.RiskLevel)
			assert.Equal(t, 0.85, a.Confidence)
			assert.Equal(t, domain.StrategyTrained, a.Strategy)
			assert.Equal(t, testNow, a.Timestamp)
			assert.Empty(t, a.Note)
		})
	}
}

func TestTrained_UsesWholeSequenceInOrder(t *testing.T) {
	m, err := NewTrained(humidityParams(), testClock())
	require.NoError(t, err)

	a, err := m.Score(humiditySequence(0.9, 0.1))
	require.NoError(t, err)
	b, err := m.Score(humiditySequence(0.1, 0.9))
	require.NoError(t, err)

	h := math.Tanh(0.1 + 0.5*math.Tanh(0.9))
	assert.InDelta(t, 1+5*h, a.RiskScore, 1e-9)
	h = math.Tanh(0.9 + 0.5*math.Tanh(0.1))
	assert.InDelta(t, 1+5*h, b.RiskScore, 1e-9)
	assert.NotEqual(t, a.RiskScore, b.RiskScore)
}

func TestTrained_Standardization(t *testing.T) {
	p := humidityParams()
	p.FeatureMean = zeros(domain.FeatureCount)
	p.FeatureScale = make([]float64, domain.FeatureCount)
	for i := range p.FeatureScale {
		p.FeatureScale[i] = 1
	}
	p.FeatureMean[domain.IndexHumidity] = 0.5
	p.FeatureScale[domain.IndexHumidity] = 0.25

	m, err := NewTrained(p, testClock())
	require.NoError(t, err)

	a, err := m.Score(humiditySequence(0.75))
	require.NoError(t, err)
	assert.InDelta(t, 1+5*math.Tanh(1.0), a.RiskScore, 1e-9)
}

func TestTrained_NonFiniteOutput(t *testing.T) {
	m, err := NewTrained(constantParams(math.NaN()), testClock())
	require.NoError(t, err)

	_, err = m.Score(domain.RepeatSequence(demoFeatures(), 4))
	assert.ErrorIs(t, err, ErrNonFiniteScore)
}

func TestTrained_EmptySequenceScoresZeroSnapshot(t *testing.T) {
	m, err := NewTrained(humidityParams(), testClock())
	require.NoError(t, err)

	a, err := m.Score(nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, a.RiskScore, 1e-9)
	assert.Equal(t, domain.RiskLow, a.RiskLevel)
}

func TestNewTrained_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"no recurrent layer", func(p *Params) { p.Recurrent = nil }},
		{"wrong input width", func(p *Params) { p.Recurrent[0].Input.Cols = 14 }},
		{"short weight data", func(p *Params) { p.Recurrent[0].Hidden.Data = zeros(3) }},
		{"dense does not chain", func(p *Params) { p.Dense[0].Weights = Matrix{Rows: 1, Cols: 3, Data: zeros(3)} }},
		{"output has two units", func(p *Params) { p.Output.Bias = zeros(2) }},
		{"partial standardization", func(p *Params) { p.FeatureMean = zeros(domain.FeatureCount) }},
		{"zero scale", func(p *Params) {
			p.FeatureMean = zeros(domain.FeatureCount)
			p.FeatureScale = zeros(domain.FeatureCount)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := constantParams(5)
			tt.mutate(&p)

			_, err := NewTrained(p, testClock())
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestArtifact_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ars.gob")

	m, err := NewTrained(humidityParams(), testClock())
	require.NoError(t, err)
	require.NoError(t, m.Save(path))

	loaded, err := Load(path, testClock())
	require.NoError(t, err)

	seq := humiditySequence(0.3, 0.8, 0.6)
	want, err := m.Score(seq)
	require.NoError(t, err)
	got, err := loaded.Score(seq)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func writeArtifact(t *testing.T, a artifact) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.gob")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, gob.NewEncoder(f).Encode(a))
	require.NoError(t, f.Close())
	return path
}

func TestLoad_Incompatible(t *testing.T) {
	t.Run("version", func(t *testing.T) {
		path := writeArtifact(t, artifact{Version: 99, FeatureCount: domain.FeatureCount, Params: constantParams(5)})
		_, err := Load(path, testClock())
		assert.ErrorIs(t, err, ErrIncompatibleArtifact)
	})

	t.Run("feature count", func(t *testing.T) {
		path := writeArtifact(t, artifact{Version: artifactVersion, FeatureCount: 12, Params: constantParams(5)})
		_, err := Load(path, testClock())
		assert.ErrorIs(t, err, ErrIncompatibleArtifact)
	})

	t.Run("bad shapes", func(t *testing.T) {
		p := constantParams(5)
		p.Output.Bias = nil
		path := writeArtifact(t, artifact{Version: artifactVersion, FeatureCount: domain.FeatureCount, Params: p})
		_, err := Load(path, testClock())
		assert.ErrorIs(t, err, ErrInvalidParams)
	})
}

func TestSelect(t *testing.T) {
	dir := t.TempDir()

	t.Run("no path", func(t *testing.T) {
		m, err := Select("", testClock(), testLogger())
		require.NoError(t, err)
		assert.Equal(t, domain.StrategyRuleBased, m.Strategy())
	})

	t.Run("missing file", func(t *testing.T) {
		m, err := Select(filepath.Join(dir, "absent.gob"), testClock(), testLogger())
		require.NoError(t, err)
		assert.Equal(t, domain.StrategyRuleBased, m.Strategy())
	})

	t.Run("valid artifact", func(t *testing.T) {
		path := filepath.Join(dir, "valid.gob")
		trained, err := NewTrained(constantParams(6.5), testClock())
		require.NoError(t, err)
		require.NoError(t, trained.Save(path))

		m, err := Select(path, testClock(), testLogger())
		require.NoError(t, err)
		assert.Equal(t, domain.StrategyTrained, m.Strategy())

		a, err := m.Score(domain.RepeatSequence(demoFeatures(), 48))
		require.NoError(t, err)
		assert.InDelta(t, 6.5, a.RiskScore, 1e-9)
	})

	t.Run("corrupt artifact", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.gob")
		require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o600))

		_, err := Select(path, testClock(), testLogger())
		require.Error(t, err)
		assert.False(t, errors.Is(err, os.ErrNotExist))
	})
}
