// Package dataset loads stereo sequences stored as numbered files on disk,
// one intensity image and one disparity file per frame.
package dataset

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"os"
	"strings"

	// register the decoders frame images are stored with.
	_ "image/jpeg"
	_ "image/png"

	"github.com/edaniels/golog"
	_ "github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/viamrobotics/keyframe-vo/vo"
)

// Config describes where a sequence lives on disk. The patterns are printf
// style with one integer verb, e.g. "frames/tsukuba_%05d.png".
type Config struct {
	ImagePattern     string `json:"image_pattern"`
	DisparityPattern string `json:"disparity_pattern"`
	// FirstFrame is the number substituted into the patterns for frame 0.
	FirstFrame int `json:"first_frame"`
	// DisparityDivisor scales integer disparity images down to pixel
	// units; zero means values are used as is.
	DisparityDivisor float64 `json:"disparity_divisor"`
}

// CheckValid checks if the fields of Config have valid inputs.
func (c *Config) CheckValid() error {
	if c == nil {
		return errors.New("dataset configuration does not exist")
	}
	if err := checkPattern(c.ImagePattern); err != nil {
		return errors.Wrap(err, "image_pattern")
	}
	if err := checkPattern(c.DisparityPattern); err != nil {
		return errors.Wrap(err, "disparity_pattern")
	}
	if c.FirstFrame < 0 {
		return errors.Errorf("invalid first frame %d", c.FirstFrame)
	}
	if c.DisparityDivisor < 0 {
		return errors.Errorf("invalid disparity divisor %#v", c.DisparityDivisor)
	}
	return nil
}

func checkPattern(pattern string) error {
	if pattern == "" {
		return errors.New("a file pattern is required")
	}
	if strings.Contains(fmt.Sprintf(pattern, 1), "%!") {
		return errors.Errorf("%q does not format a frame number", pattern)
	}
	return nil
}

// Source reads the frames of one sequence from disk.
type Source struct {
	cfg    Config
	logger golog.Logger
}

// NewSource returns a source for the sequence the config points at.
func NewSource(cfg Config, logger golog.Logger) (*Source, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, errors.New("missing required logger")
	}
	return &Source{cfg: cfg, logger: logger}, nil
}

// GetFrame loads the frame at the given index. A missing image file marks
// the end of the sequence.
func (s *Source) GetFrame(ctx context.Context, index int) (*vo.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, errors.Errorf("negative frame index %d", index)
	}
	n := s.cfg.FirstFrame + index
	imgPath := fmt.Sprintf(s.cfg.ImagePattern, n)
	img, err := readGrayImage(imgPath)
	if os.IsNotExist(errors.Cause(err)) {
		s.logger.Debugw("sequence exhausted", "path", imgPath)
		return nil, vo.ErrNoMoreFrames
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load image for frame %d", index)
	}
	disparity, err := vo.ParseDisparityFile(fmt.Sprintf(s.cfg.DisparityPattern, n), s.cfg.DisparityDivisor)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load disparity for frame %d", index)
	}
	frame := &vo.Frame{Index: index, Image: img, Disparity: disparity}
	if err := frame.CheckValid(); err != nil {
		return nil, errors.Wrapf(err, "frame %d", index)
	}
	return frame, nil
}

// Close does nothing; frames hold no open resources.
func (s *Source) Close() error {
	return nil
}

func readGrayImage(fn string) (*image.Gray, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %s", fn)
	}
	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	return gray, nil
}
