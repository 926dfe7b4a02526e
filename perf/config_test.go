package perf

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func writeRunConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.json")
	test.That(t, os.WriteFile(path, []byte(body), 0o640), test.ShouldBeNil)
	return path
}

func TestLoadRunConfig(t *testing.T) {
	// hand-written configs may carry JSON5 comments and trailing commas
	path := writeRunConfig(t, `{
		// tsukuba, left camera
		"dataset": {
			"image_pattern": "frames/im_%05d.png",
			"disparity_pattern": "frames/d_%05d.pfm",
			"first_frame": 1,
		},
		"calibration": {
			"intrinsics": {"width_px": 640, "height_px": 480, "fx": 500, "fy": 500, "ppx": 320, "ppy": 240},
			"baseline_m": 0.12
		},
		"algorithm": {"max_iterations": 100}
	}`)

	cfg, err := LoadRunConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Dataset.FirstFrame, test.ShouldEqual, 1)
	test.That(t, cfg.Calibration.Baseline, test.ShouldEqual, 0.12)
	// overridden field
	test.That(t, cfg.Algorithm.MaxIterations, test.ShouldEqual, 100)
	// untouched fields keep their defaults
	test.That(t, cfg.Algorithm.NumPyramidLevels, test.ShouldEqual, 5)
	test.That(t, cfg.Algorithm.GoodPointFraction, test.ShouldEqual, 0.6)
}

func TestLoadRunConfigErrors(t *testing.T) {
	_, err := LoadRunConfig(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "error opening JSON file")

	_, err = LoadRunConfig(writeRunConfig(t, "{ not json"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "error parsing JSON string")

	// parses but fails validation
	_, err = LoadRunConfig(writeRunConfig(t, `{
		"dataset": {"image_pattern": "a_%d.png", "disparity_pattern": "b_%d.png"},
		"calibration": {
			"intrinsics": {"width_px": 640, "height_px": 480, "fx": 500, "fy": 500, "ppx": 320, "ppy": 240},
			"baseline_m": 0
		}
	}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid run configuration")

	_, err = LoadRunConfig(writeRunConfig(t, `{
		"dataset": {"image_pattern": "", "disparity_pattern": "b_%d.png"},
		"calibration": {
			"intrinsics": {"width_px": 640, "height_px": 480, "fx": 500, "fy": 500, "ppx": 320, "ppy": 240},
			"baseline_m": 0.1
		}
	}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "image_pattern")
}
