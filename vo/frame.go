package vo

import (
	"image"

	"github.com/pkg/errors"
)

// A Frame is one stereo observation: an intensity image together with the
// disparity map computed for it. Both cover the same pixel grid.
type Frame struct {
	// Index is the zero-based position of the frame in its sequence.
	Index int
	Image *image.Gray
	// Disparity holds the per pixel stereo disparity, in pixels.
	Disparity *DisparityMap
}

// Size returns the pixel dimensions of the frame.
func (f *Frame) Size() image.Point {
	if f.Image == nil {
		return image.Point{}
	}
	return f.Image.Bounds().Size()
}

// CheckValid ensures the frame carries both channels and that their
// dimensions agree.
func (f *Frame) CheckValid() error {
	if f.Image == nil {
		return errors.New("frame has no intensity image")
	}
	if f.Disparity == nil {
		return errors.New("frame has no disparity map")
	}
	size := f.Image.Bounds().Size()
	if size.X != f.Disparity.Width() || size.Y != f.Disparity.Height() {
		return errors.Errorf("image size (%d, %d) does not match disparity size (%d, %d)",
			size.X, size.Y, f.Disparity.Width(), f.Disparity.Height())
	}
	return nil
}
