// Package vo defines the types and interfaces shared by the pieces of a
// keyframe based stereo visual odometry pipeline: sources that produce stereo
// frames, the odometry engine that consumes them, and the per frame results
// the engine reports back.
package vo

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNoMoreFrames is returned by a FrameSource once its sequence is
// exhausted. It signals normal termination, not a failure.
var ErrNoMoreFrames = errors.New("no more frames")

// A FrameSource produces a finite, ordered sequence of stereo frames.
// Sources must be deterministic: repeated calls with the same index return
// the same frame.
type FrameSource interface {
	// GetFrame returns the frame at the given zero-based index, or
	// ErrNoMoreFrames once the sequence is exhausted.
	GetFrame(ctx context.Context, index int) (*Frame, error)
	Close() error
}

// An Engine estimates camera motion one stereo frame at a time. Engines are
// stateful across calls (keyframe set, pose history) and are never reset
// mid-run; callers own a single instance for the lifetime of a sequence.
type Engine interface {
	// AddFrame feeds the next frame to the engine and returns the motion
	// estimate for it. Frame dimensions must match the calibration the
	// engine was built with.
	AddFrame(ctx context.Context, frame *Frame) (*Result, error)
	Close() error
}

// KeyFramingReason explains why a frame was, or was not, promoted to a
// keyframe.
type KeyFramingReason int

// The keyframing decisions an engine can report.
const (
	KeyFramingReasonNone KeyFramingReason = iota
	KeyFramingReasonFirstFrame
	KeyFramingReasonLargeTranslation
	KeyFramingReasonLargeRotation
	KeyFramingReasonFewGoodPoints
)

func (r KeyFramingReason) String() string {
	switch r {
	case KeyFramingReasonNone:
		return "no keyframe"
	case KeyFramingReasonFirstFrame:
		return "first frame"
	case KeyFramingReasonLargeTranslation:
		return "large translation"
	case KeyFramingReasonLargeRotation:
		return "large rotation"
	case KeyFramingReasonFewGoodPoints:
		return "few good points"
	default:
		return "unknown"
	}
}

// OptimizerStatistics reports the convergence behavior of the pose optimizer
// at one pyramid level for a single frame.
type OptimizerStatistics struct {
	// NumIterations is the number of iterations the optimizer ran. A count
	// equal to the configured maximum means it stopped on budget rather
	// than on convergence.
	NumIterations int
	// FinalError is the objective value at the last iteration.
	FinalError float64
}

// A Result is the engine's complete output for one frame.
type Result struct {
	// Pose is the estimated motion relative to the previous frame;
	// Trajectory.Push composes these into absolute poses.
	Pose Pose
	// Stats holds convergence statistics indexed by pyramid level, finest
	// level first.
	Stats []OptimizerStatistics
	// KeyFramingReason explains the keyframing decision for this frame.
	KeyFramingReason KeyFramingReason
	// IsKeyFrame reports whether this frame became the new keyframe.
	IsKeyFrame bool
	// PointCount is the number of points tracked at the test level.
	PointCount int
}

// CheckValid ensures the result honors the engine contract for the given
// algorithm configuration.
func (r *Result) CheckValid(testLevel, maxIterations int) error {
	if len(r.Stats) <= testLevel {
		return errors.Errorf("expected optimizer statistics for at least %d levels, got %d", testLevel+1, len(r.Stats))
	}
	for level, s := range r.Stats {
		if s.NumIterations < 0 || s.NumIterations > maxIterations {
			return errors.Errorf("iteration count %d at level %d outside [0, %d]", s.NumIterations, level, maxIterations)
		}
	}
	if r.PointCount < 0 {
		return errors.Errorf("expected a non-negative point count, got %d", r.PointCount)
	}
	return nil
}
