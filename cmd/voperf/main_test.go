package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"
)

// writeRunConfig lays down a small stereo sequence plus a matching run
// configuration and returns the configuration path.
func writeRunConfig(t *testing.T, dir string, count int) string {
	t.Helper()
	for n := 0; n < count; n++ {
		img := image.NewGray(image.Rect(0, 0, 8, 6))
		for y := 0; y < 6; y++ {
			for x := 0; x < 8; x++ {
				img.SetGray(x, y, color.Gray{Y: uint8(10*n + x)})
			}
		}
		var buf bytes.Buffer
		test.That(t, png.Encode(&buf, img), test.ShouldBeNil)
		test.That(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("im_%02d.png", n)), buf.Bytes(), 0o640), test.ShouldBeNil)

		disparity := image.NewGray16(image.Rect(0, 0, 8, 6))
		for y := 0; y < 6; y++ {
			for x := 0; x < 8; x++ {
				disparity.SetGray16(x, y, color.Gray16{Y: uint16(16 * (n + 1))})
			}
		}
		buf.Reset()
		test.That(t, png.Encode(&buf, disparity), test.ShouldBeNil)
		test.That(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("d_%02d.png", n)), buf.Bytes(), 0o640), test.ShouldBeNil)
	}

	cfgJSON := fmt.Sprintf(`{
	"dataset": {
		"image_pattern": %q,
		"disparity_pattern": %q,
		"disparity_divisor": 16
	},
	"calibration": {
		"intrinsics": {"width_px": 8, "height_px": 6, "fx": 100, "fy": 100, "ppx": 4, "ppy": 3},
		"baseline_m": 0.1
	}
}`, filepath.Join(dir, "im_%02d.png"), filepath.Join(dir, "d_%02d.png"))
	cfgPath := filepath.Join(dir, "run.json")
	test.That(t, os.WriteFile(cfgPath, []byte(cfgJSON), 0o640), test.ShouldBeNil)
	return cfgPath
}

func TestMainMain(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeRunConfig(t, dir, 4)
	outPrefix := filepath.Join(dir, "run1")
	pathImage := filepath.Join(dir, "path.png")

	reset := func(t *testing.T, tLogger golog.Logger, _ *testutils.ContextualMainExecution) {
		t.Helper()
		logger = tLogger
	}
	testutils.TestMain(t, mainWithArgs, []testutils.MainTestCase{
		// parsing
		{"no args", nil, "Usage of", reset, nil, nil},
		{"unknown named arg", []string{"--unknown"}, "not defined", reset, nil, nil},

		// configuration
		{"bad config file", []string{"--dontshow", filepath.Join(dir, "missing.json")}, "error opening JSON file", reset, nil, nil},
		{"bad engine", []string{"--dontshow", "--engine=cuda", cfgPath}, `unknown engine "cuda"`, reset, nil, nil},

		// running
		{"dry run", []string{"--dontshow", cfgPath}, "", reset, nil, func(t *testing.T, logs *observer.ObservedLogs) {
			t.Helper()
			test.That(t, len(logs.FilterMessageSnippet("no more data").All()), test.ShouldEqual, 1)
			test.That(t, len(logs.FilterMessageSnippet("run summary").All()), test.ShouldEqual, 1)
			test.That(t, len(logs.FilterField(zap.Int("frames", 4)).All()), test.ShouldEqual, 1)
			// nothing was asked to be written
			_, err := os.Stat(outPrefix + "_poses.txt")
			test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
		}},
		{"frame budget", []string{"--dontshow", "--numframes=2", cfgPath}, "", reset, nil, func(t *testing.T, logs *observer.ObservedLogs) {
			t.Helper()
			test.That(t, len(logs.FilterMessageSnippet("no more data").All()), test.ShouldEqual, 0)
			test.That(t, len(logs.FilterField(zap.Int("frames", 2)).All()), test.ShouldEqual, 1)
		}},
		{"with output", []string{"--dontshow", "--output=" + outPrefix, "--pathimg=" + pathImage, cfgPath}, "", reset, nil, func(t *testing.T, logs *observer.ObservedLogs) {
			t.Helper()
			for _, suffix := range []string{"_poses.txt", "_path.txt", "_iterations.txt", "_time.txt"} {
				data, err := os.ReadFile(outPrefix + suffix)
				test.That(t, err, test.ShouldBeNil)
				test.That(t, strings.Count(string(data), "\n"), test.ShouldEqual, 4)
			}
			img, err := os.ReadFile(pathImage)
			test.That(t, err, test.ShouldBeNil)
			decoded, err := png.Decode(bytes.NewReader(img))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, decoded.Bounds().Dx(), test.ShouldEqual, pathImageSize)
		}},
	})
}
