// Package fake provides deterministic in-memory implementations of the vo
// interfaces for tests and demo runs.
package fake

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/viamrobotics/keyframe-vo/vo"
)

const (
	// forwardStep is the distance the fake camera advances every frame, in
	// meters.
	forwardStep = 0.1
	// yawAmplitude bounds the oscillating heading change, in radians.
	yawAmplitude = 0.02
	// pointStride is the sampling grid spacing used to count trackable
	// points in the disparity map.
	pointStride = 8
)

// Engine is a fake odometry engine that drives a fixed arc regardless of
// image content, while still deriving point counts and keyframing decisions
// from the disparity data it is fed.
type Engine struct {
	calibration vo.Calibration
	algorithm   vo.AlgorithmConfig

	// SaturateFrames lists frame indices whose reported iteration count is
	// forced to the configured maximum.
	SaturateFrames map[int]bool
	// FailAt makes AddFrame fail at the given frame index; a negative
	// value disables it.
	FailAt int

	frame           int
	distSinceKey    float64
	degreesSinceKey float64
}

// NewEngine returns a fake engine for the given stereo rig and tunables.
func NewEngine(calibration vo.Calibration, algorithm vo.AlgorithmConfig) (*Engine, error) {
	if err := calibration.CheckValid(); err != nil {
		return nil, err
	}
	if err := algorithm.CheckValid(); err != nil {
		return nil, err
	}
	return &Engine{
		calibration: calibration,
		algorithm:   algorithm,
		FailAt:      -1,
	}, nil
}

// AddFrame consumes the next frame and reports a deterministic motion
// estimate for it.
func (e *Engine) AddFrame(ctx context.Context, frame *vo.Frame) (*vo.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := frame.CheckValid(); err != nil {
		return nil, err
	}
	size := frame.Size()
	if size.X != e.calibration.Intrinsics.Width || size.Y != e.calibration.Intrinsics.Height {
		return nil, errors.Errorf("frame size (%d, %d) does not match calibration (%d, %d)",
			size.X, size.Y, e.calibration.Intrinsics.Width, e.calibration.Intrinsics.Height)
	}
	i := e.frame
	if i == e.FailAt {
		return nil, errors.Errorf("injected failure at frame %d", i)
	}
	e.frame++

	yaw := yawAmplitude * math.Sin(float64(i)*0.15)
	rel := vo.NewPoseFromAxisAngle(
		r3.Vector{Y: 1},
		yaw,
		r3.Vector{X: 0.002 * math.Cos(float64(i)*0.1), Z: forwardStep},
	)

	sampled, valid := countTrackablePoints(frame.Disparity)
	fraction := 1.0
	if sampled > 0 {
		fraction = float64(valid) / float64(sampled)
	}

	e.distSinceKey += rel.Translation().Norm()
	e.degreesSinceKey += math.Abs(yaw) * 180 / math.Pi
	reason := vo.KeyFramingReasonNone
	switch {
	case i == 0:
		reason = vo.KeyFramingReasonFirstFrame
	case e.distSinceKey >= e.algorithm.MinTranslationMagnitude:
		reason = vo.KeyFramingReasonLargeTranslation
	case e.degreesSinceKey >= e.algorithm.MinRotationMagnitude:
		reason = vo.KeyFramingReasonLargeRotation
	case fraction < e.algorithm.GoodPointFraction:
		reason = vo.KeyFramingReasonFewGoodPoints
	}
	isKey := reason != vo.KeyFramingReasonNone
	if isKey {
		e.distSinceKey = 0
		e.degreesSinceKey = 0
	}

	base := 5 + (i*7)%13
	stats := make([]vo.OptimizerStatistics, e.algorithm.NumPyramidLevels)
	for level := range stats {
		iters := base - level
		if iters < 1 {
			iters = 1
		}
		if iters > e.algorithm.MaxIterations {
			iters = e.algorithm.MaxIterations
		}
		stats[level] = vo.OptimizerStatistics{
			NumIterations: iters,
			FinalError:    0.5/float64(i+1) + 0.01*float64(level),
		}
	}
	if e.SaturateFrames[i] {
		stats[e.algorithm.MaxTestLevel].NumIterations = e.algorithm.MaxIterations
	}

	return &vo.Result{
		Pose:             rel,
		Stats:            stats,
		KeyFramingReason: reason,
		IsKeyFrame:       isKey,
		PointCount:       valid,
	}, nil
}

// Close does nothing.
func (e *Engine) Close() error {
	return nil
}

// countTrackablePoints samples the disparity map on a coarse grid and
// reports how many samples carry a usable disparity.
func countTrackablePoints(dm *vo.DisparityMap) (int, int) {
	sampled, valid := 0, 0
	for y := 0; y < dm.Height(); y += pointStride {
		for x := 0; x < dm.Width(); x += pointStride {
			sampled++
			d := float64(dm.GetDisparity(x, y))
			if d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d) {
				valid++
			}
		}
	}
	return sampled, valid
}
