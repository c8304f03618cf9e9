package scoring

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

const artifactVersion = 1

// ErrIncompatibleArtifact is returned for artifacts of another format version
// or feature layout.
var ErrIncompatibleArtifact = errors.New("incompatible model artifact")

type artifact struct {
	Version      int
	FeatureCount int
	Params       Params
}

// Save writes the model's parameters to path.
func (t *Trained) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model artifact: %w", err)
	}

	a := artifact{
		Version:      artifactVersion,
		FeatureCount: domain.FeatureCount,
		Params:       t.params,
	}
	if err := gob.NewEncoder(f).Encode(a); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode model artifact: %w", err)
	}
	return f.Close()
}

// Load reads a model saved by Save.
func Load(path string, clock clockwork.Clock) (*Trained, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model artifact: %w", err)
	}
	defer f.Close()

	var a artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", path, err)
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrIncompatibleArtifact, a.Version, artifactVersion)
	}
	if a.FeatureCount != domain.FeatureCount {
		return nil, fmt.Errorf("%w: %d features, want %d", ErrIncompatibleArtifact, a.FeatureCount, domain.FeatureCount)
	}

	t, err := NewTrained(a.Params, clock)
	if err != nil {
		return nil, fmt.Errorf("build model from %s: %w", path, err)
	}
	return t, nil
}
