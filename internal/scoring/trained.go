package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"gonum.org/v1/gonum/mat"
)

const trainedConfidence = 0.85

var (
	// ErrNonFiniteScore signals a broken model producing NaN or Inf.
	ErrNonFiniteScore = errors.New("model produced a non-finite score")
	// ErrInvalidParams is returned when layer shapes do not chain.
	ErrInvalidParams = errors.New("invalid model parameters")
)

// Matrix is a row-major weight matrix.
type Matrix struct {
	Rows, Cols int
	Data       []float64
}

// RecurrentLayer is an Elman layer: h_t = tanh(Input·x_t + Hidden·h_{t-1} + Bias).
type RecurrentLayer struct {
	Input  Matrix // size x inputs
	Hidden Matrix // size x size
	Bias   []float64
}

// DenseLayer is a fully connected layer: y = Weights·x + Bias.
type DenseLayer struct {
	Weights Matrix
	Bias    []float64
}

// Params are the learned weights of a Trained model. Recurrent layers run over
// the whole sequence; the final hidden state of the last one feeds the ReLU
// Dense stack and then the single-unit linear Output.
type Params struct {
	Recurrent []RecurrentLayer
	Dense     []DenseLayer
	Output    DenseLayer

	// Optional per-feature standardization, (x - mean) / scale.
	FeatureMean  []float64
	FeatureScale []float64
}

type recurrent struct {
	wx, wh *mat.Dense
	b      *mat.VecDense
}

type dense struct {
	w *mat.Dense
	b *mat.VecDense
}

// Trained scores sequences with a recurrent network.
type Trained struct {
	params    Params
	recurrent []recurrent
	dense     []dense
	output    dense
	clock     clockwork.Clock
}

// NewTrained validates params and builds the network.
func NewTrained(p Params, clock clockwork.Clock) (*Trained, error) {
	if len(p.Recurrent) == 0 {
		return nil, fmt.Errorf("%w: at least one recurrent layer is required", ErrInvalidParams)
	}
	if err := checkStandardization(p.FeatureMean, p.FeatureScale); err != nil {
		return nil, err
	}

	t := &Trained{params: p, clock: clock}

	inputs := domain.FeatureCount
	for i, l := range p.Recurrent {
		size := len(l.Bias)
		wx, err := l.Input.toDense(size, inputs)
		if err != nil {
			return nil, fmt.Errorf("recurrent layer %d input: %w", i, err)
		}
		wh, err := l.Hidden.toDense(size, size)
		if err != nil {
			return nil, fmt.Errorf("recurrent layer %d hidden: %w", i, err)
		}
		t.recurrent = append(t.recurrent, recurrent{wx: wx, wh: wh, b: vec(l.Bias)})
		inputs = size
	}

	for i, l := range p.Dense {
		d, err := l.build(inputs)
		if err != nil {
			return nil, fmt.Errorf("dense layer %d: %w", i, err)
		}
		t.dense = append(t.dense, d)
		inputs = len(l.Bias)
	}

	if len(p.Output.Bias) != 1 {
		return nil, fmt.Errorf("%w: output layer must have exactly one unit", ErrInvalidParams)
	}
	out, err := p.Output.build(inputs)
	if err != nil {
		return nil, fmt.Errorf("output layer: %w", err)
	}
	t.output = out

	return t, nil
}

func (t *Trained) Strategy() domain.Strategy { return domain.StrategyTrained }

// Score runs the network over the sequence, oldest snapshot first. An empty
// sequence is scored as a single all-zero snapshot.
func (t *Trained) Score(seq domain.FeatureSequence) (domain.RiskAssessment, error) {
	if len(seq) == 0 {
		seq = domain.FeatureSequence{{}}
	}

	steps := make([]*mat.VecDense, len(seq))
	for i, v := range seq.Vectors() {
		steps[i] = t.standardize(v)
	}

	for _, l := range t.recurrent {
		steps = l.forward(steps)
	}

	x := steps[len(steps)-1]
	for _, d := range t.dense {
		x = d.forward(x)
		relu(x)
	}
	raw := t.output.forward(x).AtVec(0)

	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return domain.RiskAssessment{}, ErrNonFiniteScore
	}

	score := domain.ClampScore(raw)
	return domain.RiskAssessment{
		RiskScore:  score,
		RiskLevel:  domain.ClassifyRisk(score),
		Confidence: trainedConfidence,
		Timestamp:  t.clock.Now(),
		Strategy:   domain.StrategyTrained,
	}, nil
}

func (t *Trained) standardize(v domain.FeatureVector) *mat.VecDense {
	x := make([]float64, domain.FeatureCount)
	copy(x, v[:])
	if len(t.params.FeatureMean) == domain.FeatureCount {
		for i := range x {
			x[i] = (x[i] - t.params.FeatureMean[i]) / t.params.FeatureScale[i]
		}
	}
	return mat.NewVecDense(domain.FeatureCount, x)
}

func (l recurrent) forward(inputs []*mat.VecDense) []*mat.VecDense {
	size, _ := l.wh.Dims()
	h := mat.NewVecDense(size, nil)
	out := make([]*mat.VecDense, len(inputs))
	for i, x := range inputs {
		next := mat.NewVecDense(size, nil)
		next.MulVec(l.wx, x)
		var rec mat.VecDense
		rec.MulVec(l.wh, h)
		next.AddVec(next, &rec)
		next.AddVec(next, l.b)
		for j := 0; j < size; j++ {
			next.SetVec(j, math.Tanh(next.AtVec(j)))
		}
		out[i] = next
		h = next
	}
	return out
}

func (d dense) forward(x *mat.VecDense) *mat.VecDense {
	rows, _ := d.w.Dims()
	y := mat.NewVecDense(rows, nil)
	y.MulVec(d.w, x)
	y.AddVec(y, d.b)
	return y
}

func (l DenseLayer) build(inputs int) (dense, error) {
	w, err := l.Weights.toDense(len(l.Bias), inputs)
	if err != nil {
		return dense{}, err
	}
	return dense{w: w, b: vec(l.Bias)}, nil
}

func (m Matrix) toDense(rows, cols int) (*mat.Dense, error) {
	if rows == 0 || m.Rows != rows || m.Cols != cols || len(m.Data) != rows*cols {
		return nil, fmt.Errorf("%w: want %dx%d weights, got %dx%d with %d values",
			ErrInvalidParams, rows, cols, m.Rows, m.Cols, len(m.Data))
	}
	return mat.NewDense(rows, cols, append([]float64(nil), m.Data...)), nil
}

func vec(b []float64) *mat.VecDense {
	return mat.NewVecDense(len(b), append([]float64(nil), b...))
}

func relu(x *mat.VecDense) {
	for i := 0; i < x.Len(); i++ {
		if x.AtVec(i) < 0 {
			x.SetVec(i, 0)
		}
	}
}

func checkStandardization(mean, scale []float64) error {
	if len(mean) == 0 && len(scale) == 0 {
		return nil
	}
	if len(mean) != domain.FeatureCount || len(scale) != domain.FeatureCount {
		return fmt.Errorf("%w: standardization needs %d means and scales", ErrInvalidParams, domain.FeatureCount)
	}
	for i, s := range scale {
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: feature %d scale must be finite and non-zero", ErrInvalidParams, i)
		}
	}
	return nil
}
