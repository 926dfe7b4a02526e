package fake

import (
	"context"
	"image"
	"image/color"

	"github.com/pkg/errors"

	"github.com/viamrobotics/keyframe-vo/vo"
)

// Source generates a fixed number of synthetic stereo frames. The pixel
// content shifts with the frame index so consecutive frames differ.
type Source struct {
	NumFrames int
	Width     int
	Height    int
}

// NewSource returns a source producing numFrames frames of the given size.
func NewSource(numFrames, width, height int) *Source {
	return &Source{NumFrames: numFrames, Width: width, Height: height}
}

// GetFrame returns the synthetic frame at the given index.
func (s *Source) GetFrame(ctx context.Context, index int) (*vo.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, errors.Errorf("negative frame index %d", index)
	}
	if index >= s.NumFrames {
		return nil, vo.ErrNoMoreFrames
	}

	img := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
	dm := vo.NewDisparityMap(s.Width, s.Height)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y + 3*index) % 256)})
			dm.Set(x, y, float32(1+(x+index)%64))
		}
	}
	return &vo.Frame{Index: index, Image: img, Disparity: dm}, nil
}

// Close does nothing.
func (s *Source) Close() error {
	return nil
}
