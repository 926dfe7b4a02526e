package perf

import (
	"image"
	"math"

	"github.com/fogleman/gg"

	"github.com/viamrobotics/keyframe-vo/vo"
)

const pathImageMargin = 20.0

// RenderPathImage draws the camera path seen from above (x right, z up)
// onto a square canvas, marking the start with a dot.
func RenderPathImage(tr *vo.Trajectory, size int) image.Image {
	dc := gg.NewContext(size, size)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	if tr.Size() == 0 {
		return dc.Image()
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for i := 0; i < tr.Size(); i++ {
		t := tr.At(i).Translation()
		minX = math.Min(minX, t.X)
		maxX = math.Max(maxX, t.X)
		minZ = math.Min(minZ, t.Z)
		maxZ = math.Max(maxZ, t.Z)
	}
	span := math.Max(maxX-minX, maxZ-minZ)
	if span <= 0 {
		span = 1
	}
	scale := (float64(size) - 2*pathImageMargin) / span
	project := func(x, z float64) (float64, float64) {
		return pathImageMargin + (x-minX)*scale, float64(size) - pathImageMargin - (z-minZ)*scale
	}

	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(2)
	for i := 0; i < tr.Size(); i++ {
		t := tr.At(i).Translation()
		x, y := project(t.X, t.Z)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	start := tr.At(0).Translation()
	x, y := project(start.X, start.Z)
	dc.SetRGB(0.8, 0.2, 0.2)
	dc.DrawCircle(x, y, 4)
	dc.Fill()
	return dc.Image()
}

// WritePathImage renders the camera path and saves it as a PNG.
func WritePathImage(path string, tr *vo.Trajectory, size int) error {
	return gg.SavePNG(path, RenderPathImage(tr, size))
}
