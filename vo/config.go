package vo

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// Intrinsics holds the pinhole parameters of the rectified left camera.
type Intrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields of Intrinsics have valid inputs.
func (params *Intrinsics) CheckValid() error {
	if params == nil {
		return errors.New("intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return errors.Errorf("invalid size (%#v, %#v)", params.Width, params.Height)
	}
	if params.Fx <= 0 {
		return errors.Errorf("invalid focal length Fx = %#v", params.Fx)
	}
	if params.Fy <= 0 {
		return errors.Errorf("invalid focal length Fy = %#v", params.Fy)
	}
	if params.Ppx < 0 {
		return errors.Errorf("invalid principal X point Ppx = %#v", params.Ppx)
	}
	if params.Ppy < 0 {
		return errors.Errorf("invalid principal Y point Ppy = %#v", params.Ppy)
	}
	return nil
}

// GetCameraMatrix returns the intrinsics as a 3x3 camera matrix.
func (params *Intrinsics) GetCameraMatrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		params.Fx, 0, params.Ppx,
		0, params.Fy, params.Ppy,
		0, 0, 1,
	})
}

// Calibration describes a rectified stereo rig: the left camera intrinsics
// plus the baseline between the two cameras.
type Calibration struct {
	Intrinsics Intrinsics `json:"intrinsics"`
	// Baseline is the distance between the rectified cameras, in meters.
	Baseline float64 `json:"baseline_m"`
}

// CheckValid checks if the fields of Calibration have valid inputs.
func (c *Calibration) CheckValid() error {
	if c == nil {
		return errors.New("calibration does not exist")
	}
	if err := c.Intrinsics.CheckValid(); err != nil {
		return err
	}
	if c.Baseline <= 0 {
		return errors.Errorf("invalid baseline %#v", c.Baseline)
	}
	return nil
}

// DisparityToDepth converts a disparity, in pixels, to a depth along the
// optical axis, in meters. Non-positive disparities have no depth and map
// to zero.
func (c *Calibration) DisparityToDepth(disparity float64) float64 {
	if disparity <= 0 {
		return 0
	}
	return c.Intrinsics.Fx * c.Baseline / disparity
}

// NewCalibrationFromJSONFile takes in a file path to a JSON and turns it
// into a stereo Calibration.
func NewCalibrationFromJSONFile(jsonPath string) (*Calibration, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	calibration := &Calibration{}
	if err := json.Unmarshal(byteValue, calibration); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return calibration, nil
}

// AlgorithmConfig holds the tunables of the direct pose optimizer.
type AlgorithmConfig struct {
	// NumPyramidLevels is the number of image pyramid levels built per
	// frame, level 0 being the finest.
	NumPyramidLevels int `json:"num_pyramid_levels"`
	// MaxIterations bounds the optimizer at every pyramid level.
	MaxIterations int `json:"max_iterations"`
	// MaxTestLevel is the pyramid level whose iteration count is used to
	// judge convergence health.
	MaxTestLevel int `json:"max_test_level"`

	FunctionTolerance  float64 `json:"function_tolerance"`
	ParameterTolerance float64 `json:"parameter_tolerance"`
	GradientTolerance  float64 `json:"gradient_tolerance"`

	// MinTranslationMagnitude is the translation, in meters, past which a
	// new keyframe is created.
	MinTranslationMagnitude float64 `json:"min_translation_magnitude"`
	// MinRotationMagnitude is the rotation, in degrees, past which a new
	// keyframe is created.
	MinRotationMagnitude float64 `json:"min_rotation_magnitude"`
	// GoodPointFraction is the fraction of well tracked points below which
	// a new keyframe is created.
	GoodPointFraction float64 `json:"good_point_fraction"`
}

// DefaultAlgorithmConfig returns the algorithm tunables used when a run
// configuration does not override them.
func DefaultAlgorithmConfig() AlgorithmConfig {
	return AlgorithmConfig{
		NumPyramidLevels:        5,
		MaxIterations:           50,
		MaxTestLevel:            0,
		FunctionTolerance:       1e-6,
		ParameterTolerance:      1e-7,
		GradientTolerance:       1e-8,
		MinTranslationMagnitude: 0.15,
		MinRotationMagnitude:    2.5,
		GoodPointFraction:       0.6,
	}
}

// CheckValid checks if the fields of AlgorithmConfig have valid inputs.
func (c *AlgorithmConfig) CheckValid() error {
	if c == nil {
		return errors.New("algorithm configuration does not exist")
	}
	if c.NumPyramidLevels < 1 {
		return errors.Errorf("need at least one pyramid level, got %d", c.NumPyramidLevels)
	}
	if c.MaxIterations < 1 {
		return errors.Errorf("need a positive iteration budget, got %d", c.MaxIterations)
	}
	if c.MaxTestLevel < 0 || c.MaxTestLevel >= c.NumPyramidLevels {
		return errors.Errorf("test level %d outside [0, %d)", c.MaxTestLevel, c.NumPyramidLevels)
	}
	if c.FunctionTolerance <= 0 || c.ParameterTolerance <= 0 || c.GradientTolerance <= 0 {
		return errors.New("tolerances must be positive")
	}
	if c.MinTranslationMagnitude < 0 {
		return errors.Errorf("invalid keyframe translation threshold %#v", c.MinTranslationMagnitude)
	}
	if c.MinRotationMagnitude < 0 {
		return errors.Errorf("invalid keyframe rotation threshold %#v", c.MinRotationMagnitude)
	}
	if c.GoodPointFraction <= 0 || c.GoodPointFraction > 1 {
		return errors.Errorf("good point fraction %#v outside (0, 1]", c.GoodPointFraction)
	}
	return nil
}

// AlgorithmConfigFromJSONFile takes in a file path to a JSON and turns it
// into an AlgorithmConfig. Fields absent from the file keep their defaults.
func AlgorithmConfigFromJSONFile(jsonPath string) (*AlgorithmConfig, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	config := DefaultAlgorithmConfig()
	if err := json.Unmarshal(byteValue, &config); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := config.CheckValid(); err != nil {
		return nil, err
	}
	return &config, nil
}
