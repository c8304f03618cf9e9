// Command genmodel writes a model artifact with seeded random weights. The
// artifact is loadable by the service (MODEL_PATH) and is meant for exercising
// the trained scoring path in development and tests, not for real predictions.
//
// Usage:
//
//	go run ./cmd/genmodel -out data/model.gob -hidden 16 -dense 8 -seed 7
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/couchcryptid/harvest-risk-service/internal/scoring"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "model.gob", "artifact output path")
	hidden := flag.Int("hidden", 16, "recurrent layer width")
	denseWidth := flag.Int("dense", 8, "dense layer width, 0 for none")
	seed := flag.Uint64("seed", 1, "random seed")
	bias := flag.Float64("bias", 5.0, "output bias, the score of an all-zero activation")
	flag.Parse()

	if *hidden <= 0 || *denseWidth < 0 {
		return fmt.Errorf("-hidden must be positive and -dense non-negative")
	}

	params := randomParams(*hidden, *denseWidth, *bias, rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)))
	m, err := scoring.NewTrained(params, clockwork.NewRealClock())
	if err != nil {
		return err
	}
	if err := m.Save(*out); err != nil {
		return err
	}

	// Round-trip to confirm the artifact loads the way the service will load it.
	if _, err := scoring.Load(*out, clockwork.NewRealClock()); err != nil {
		return fmt.Errorf("verify artifact: %w", err)
	}
	log.Printf("wrote %s (recurrent %d, dense %d)", *out, *hidden, *denseWidth)
	return nil
}

// randomParams draws Xavier-scaled weights so tanh units start unsaturated.
func randomParams(hidden, denseWidth int, outputBias float64, rng *rand.Rand) scoring.Params {
	p := scoring.Params{
		Recurrent: []scoring.RecurrentLayer{{
			Input:  randomMatrix(hidden, domain.FeatureCount, rng),
			Hidden: randomMatrix(hidden, hidden, rng),
			Bias:   make([]float64, hidden),
		}},
	}

	inputs := hidden
	if denseWidth > 0 {
		p.Dense = []scoring.DenseLayer{{
			Weights: randomMatrix(denseWidth, hidden, rng),
			Bias:    make([]float64, denseWidth),
		}}
		inputs = denseWidth
	}
	p.Output = scoring.DenseLayer{
		Weights: randomMatrix(1, inputs, rng),
		Bias:    []float64{outputBias},
	}
	return p
}

func randomMatrix(rows, cols int, rng *rand.Rand) scoring.Matrix {
	sigma := math.Sqrt(2.0 / float64(rows+cols))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64() * sigma
	}
	return scoring.Matrix{Rows: rows, Cols: cols, Data: data}
}
