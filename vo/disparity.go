package vo

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	// register png and ppm decoders for image backed disparity files.
	_ "image/png"

	_ "github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// A DisparityMap stores the per pixel stereo disparity of a frame, in
// pixels. Larger values mean closer surfaces.
type DisparityMap struct {
	width  int
	height int

	data []float32
}

// NewDisparityMap returns a zero filled disparity map of the given size.
func NewDisparityMap(width, height int) *DisparityMap {
	return &DisparityMap{
		width:  width,
		height: height,
		data:   make([]float32, width*height),
	}
}

func (dm *DisparityMap) kxy(x, y int) int {
	return (y * dm.width) + x
}

// HasData reports whether the map holds any pixels.
func (dm *DisparityMap) HasData() bool {
	return dm.width > 0 && dm.data != nil
}

// Width returns the horizontal dimension of the map.
func (dm *DisparityMap) Width() int {
	return dm.width
}

// Height returns the vertical dimension of the map.
func (dm *DisparityMap) Height() int {
	return dm.height
}

// Cols returns the horizontal dimension of the map.
func (dm *DisparityMap) Cols() int {
	return dm.width
}

// Rows returns the vertical dimension of the map.
func (dm *DisparityMap) Rows() int {
	return dm.height
}

// Get returns the disparity at a point.
func (dm *DisparityMap) Get(p image.Point) float32 {
	return dm.data[dm.kxy(p.X, p.Y)]
}

// GetDisparity returns the disparity at (x, y).
func (dm *DisparityMap) GetDisparity(x, y int) float32 {
	return dm.data[dm.kxy(x, y)]
}

// Set writes the disparity at (x, y).
func (dm *DisparityMap) Set(x, y int, val float32) {
	dm.data[dm.kxy(x, y)] = val
}

// Contains reports whether (x, y) lies inside the map.
func (dm *DisparityMap) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

// MinMax returns the smallest and largest finite disparities in the map.
func (dm *DisparityMap) MinMax() (float32, float32) {
	min := float32(math.MaxFloat32)
	max := float32(-math.MaxFloat32)
	seen := false
	for _, v := range dm.data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		seen = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if !seen {
		return 0, 0
	}
	return min, max
}

// ToGray renders the map as a grayscale image, brightest at the largest
// disparity. Non-finite pixels render black.
func (dm *DisparityMap) ToGray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, dm.width, dm.height))
	min, max := dm.MinMax()
	span := float64(max) - float64(min)
	if span <= 0 {
		return img
	}
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			v := float64(dm.GetDisparity(x, y))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			scaled := (v - float64(min)) / span
			img.SetGray(x, y, color.Gray{Y: uint8((scaled * 255) + .5)})
		}
	}
	return img
}

// ParseDisparityFile reads a disparity map from disk. PFM files carry floats
// directly; anything else is decoded as an image whose integer pixel values
// are divided by divisor to recover disparities. A ".gz" suffix is
// decompressed first.
func ParseDisparityFile(fn string, divisor float64) (*DisparityMap, error) {
	var f io.Reader

	//nolint:gosec
	ff, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(ff.Close)
	f = ff

	ext := filepath.Ext(fn)
	if ext == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(gz.Close)
		f = gz
		ext = filepath.Ext(strings.TrimSuffix(fn, ".gz"))
	}

	if ext == ".pfm" {
		return ReadDisparityPFM(f)
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode disparity image %s", fn)
	}
	return DisparityFromImage(img, divisor), nil
}

// DisparityFromImage converts an image into a disparity map, dividing raw
// pixel values by divisor. A divisor of zero or less means raw values are
// used as is.
func DisparityFromImage(img image.Image, divisor float64) *DisparityMap {
	if divisor <= 0 {
		divisor = 1
	}
	bounds := img.Bounds()
	dm := NewDisparityMap(bounds.Dx(), bounds.Dy())
	switch im := img.(type) {
	case *image.Gray16:
		for y := 0; y < dm.height; y++ {
			for x := 0; x < dm.width; x++ {
				raw := im.Gray16At(x+bounds.Min.X, y+bounds.Min.Y).Y
				dm.Set(x, y, float32(float64(raw)/divisor))
			}
		}
	case *image.Gray:
		for y := 0; y < dm.height; y++ {
			for x := 0; x < dm.width; x++ {
				raw := im.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y
				dm.Set(x, y, float32(float64(raw)/divisor))
			}
		}
	default:
		for y := 0; y < dm.height; y++ {
			for x := 0; x < dm.width; x++ {
				raw := color.Gray16Model.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.Gray16).Y
				dm.Set(x, y, float32(float64(raw)/divisor))
			}
		}
	}
	return dm
}

// ReadDisparityPFM reads a single channel PFM file: a "Pf" magic token,
// the dimensions, a scale whose sign gives the byte order, then rows of
// 32-bit floats ordered bottom to top.
func ReadDisparityPFM(r io.Reader) (*DisparityMap, error) {
	br := bufio.NewReader(r)

	magic, err := readPFMToken(br)
	if err != nil {
		return nil, err
	}
	switch magic {
	case "Pf":
	case "PF":
		return nil, errors.New("3 channel PFM files are not supported, need single channel disparity")
	default:
		return nil, errors.Errorf("bad PFM magic %q", magic)
	}

	width, err := readPFMInt(br)
	if err != nil {
		return nil, err
	}
	height, err := readPFMInt(br)
	if err != nil {
		return nil, err
	}
	if width <= 0 || width >= 100000 || height <= 0 || height >= 100000 {
		return nil, errors.Errorf("bad width or height for disparity map %v %v", width, height)
	}

	scaleTok, err := readPFMToken(br)
	if err != nil {
		return nil, err
	}
	scale, err := strconv.ParseFloat(scaleTok, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "bad PFM scale %q", scaleTok)
	}
	var order binary.ByteOrder = binary.BigEndian
	if scale < 0 {
		order = binary.LittleEndian
	}

	dm := NewDisparityMap(width, height)
	row := make([]byte, 4*width)
	for y := height - 1; y >= 0; y-- {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, errors.Wrapf(err, "short PFM raster at row %d", y)
		}
		for x := 0; x < width; x++ {
			dm.data[dm.kxy(x, y)] = math.Float32frombits(order.Uint32(row[4*x:]))
		}
	}
	return dm, nil
}

func readPFMToken(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			if sb.Len() == 0 {
				continue
			}
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}
}

func readPFMInt(br *bufio.Reader) (int, error) {
	tok, err := readPFMToken(br)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.Wrapf(err, "bad PFM dimension %q", tok)
	}
	return n, nil
}
