package perf

import (
	"os"

	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.viam.com/utils"

	"github.com/viamrobotics/keyframe-vo/dataset"
	"github.com/viamrobotics/keyframe-vo/vo"
)

// RunConfig ties together everything a benchmark run needs: the sequence on
// disk, the stereo rig it was recorded with, and the algorithm tunables.
type RunConfig struct {
	Dataset     dataset.Config     `json:"dataset"`
	Calibration vo.Calibration     `json:"calibration"`
	Algorithm   vo.AlgorithmConfig `json:"algorithm"`
}

// LoadRunConfig reads and validates a run configuration from a JSON file.
// Hand-written configs may use JSON5 relaxations (comments, unquoted keys,
// trailing commas). Algorithm fields absent from the file keep their defaults.
func LoadRunConfig(path string) (*RunConfig, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	cfg := &RunConfig{Algorithm: vo.DefaultAlgorithmConfig()}
	if err := json5.NewDecoder(f).Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := cfg.CheckValid(); err != nil {
		return nil, errors.Wrapf(err, "invalid run configuration %s", path)
	}
	return cfg, nil
}

// CheckValid checks if the fields of RunConfig have valid inputs.
func (c *RunConfig) CheckValid() error {
	if c == nil {
		return errors.New("run configuration does not exist")
	}
	if err := c.Dataset.CheckValid(); err != nil {
		return err
	}
	if err := c.Calibration.CheckValid(); err != nil {
		return err
	}
	return c.Algorithm.CheckValid()
}
