// Package perf implements the benchmark loop for a stereo visual odometry
// engine: it pulls frames from a source, times every engine call, watches
// convergence health, accumulates the estimated trajectory, and persists the
// per frame series for offline analysis.
package perf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/viamrobotics/keyframe-vo/vo"
)

// A Viewer renders frames as they are processed. Display failures do not
// stop a run.
type Viewer interface {
	Display(ctx context.Context, frame *vo.Frame) error
}

// Options configures one benchmark run.
type Options struct {
	// MaxFrames bounds the number of frames processed; non-positive means
	// run until the source is exhausted.
	MaxFrames int
	// Viewer, if set, receives every frame before it is processed.
	Viewer Viewer
	// CancelRequested is polled once per frame, after display and before
	// the engine call; returning true ends the run cleanly.
	CancelRequested func() bool
	// Progress, if set, receives a live one line status per frame.
	Progress io.Writer
	// Clock times engine calls; nil means the wall clock.
	Clock clock.Clock
	Logger golog.Logger
}

// A Runner drives an odometry engine over a frame sequence.
type Runner struct {
	Source    vo.FrameSource
	Engine    vo.Engine
	Algorithm vo.AlgorithmConfig
	Opts      Options
}

// Results holds everything measured over a run. The trajectory and the per
// frame series always stay the same length as the number of processed
// frames.
type Results struct {
	Trajectory *vo.Trajectory
	// Iterations is the per frame iteration count at the test level.
	Iterations []int
	// TimeMS is the per frame engine latency, in milliseconds.
	TimeMS []float64
	// TotalTime is the accumulated engine time, in seconds. Display and
	// I/O time is not counted.
	TotalTime float64
	// Frames is the number of frames processed to completion.
	Frames int
}

// Run processes frames until the source is exhausted, the frame budget is
// reached, an abort is requested, or the context ends. The results
// accumulated so far are returned even when the run fails partway.
func (r *Runner) Run(ctx context.Context) (*Results, error) {
	if r.Source == nil {
		return nil, errors.New("missing required frame source")
	}
	if r.Engine == nil {
		return nil, errors.New("missing required engine")
	}
	if r.Opts.Logger == nil {
		return nil, errors.New("missing required logger")
	}
	if err := r.Algorithm.CheckValid(); err != nil {
		return nil, err
	}
	clk := r.Opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := r.Opts.Logger

	capacity := 0
	if r.Opts.MaxFrames > 0 {
		capacity = r.Opts.MaxFrames
	}
	res := &Results{
		Trajectory: vo.NewTrajectory(),
		Iterations: make([]int, 0, capacity),
		TimeMS:     make([]float64, 0, capacity),
	}

	for i := 0; r.Opts.MaxFrames <= 0 || i < r.Opts.MaxFrames; i++ {
		if ctx.Err() != nil {
			logger.Info("interrupted, stopping early")
			break
		}

		frame, err := r.Source.GetFrame(ctx, i)
		if errors.Is(err, vo.ErrNoMoreFrames) {
			logger.Info("no more data")
			break
		}
		if err != nil {
			return res, errors.Wrapf(err, "failed to get frame %d", i)
		}

		if r.Opts.Viewer != nil {
			if err := r.Opts.Viewer.Display(ctx, frame); err != nil {
				logger.Warnw("failed to display frame", "frame", i, "error", err)
			}
		}
		if r.Opts.CancelRequested != nil && r.Opts.CancelRequested() {
			logger.Info("abort requested, stopping early")
			break
		}

		start := clk.Now()
		result, err := r.Engine.AddFrame(ctx, frame)
		elapsed := clk.Since(start)
		if err != nil {
			return res, errors.Wrapf(err, "engine failed on frame %d", i)
		}
		if err := result.CheckValid(r.Algorithm.MaxTestLevel, r.Algorithm.MaxIterations); err != nil {
			return res, errors.Wrapf(err, "engine returned a bad result for frame %d", i)
		}

		res.TotalTime += elapsed.Seconds()
		tms := float64(elapsed) / float64(time.Millisecond)
		iterations := result.Stats[r.Algorithm.MaxTestLevel].NumIterations
		if iterations == r.Algorithm.MaxIterations {
			logger.Warnw("max iterations reached", "frame", i)
		}

		res.Trajectory.Push(result.Pose)
		res.Iterations = append(res.Iterations, iterations)
		res.TimeMS = append(res.TimeMS, tms)
		res.Frames++

		r.reportProgress(res, i, tms, iterations, result)
	}
	if r.Opts.Progress != nil && res.Frames > 0 {
		fmt.Fprintln(r.Opts.Progress)
	}
	return res, nil
}

// reportProgress overwrites a single status line with the latest frame's
// numbers and the running processing rate.
func (r *Runner) reportProgress(res *Results, index int, tms float64, iterations int, result *vo.Result) {
	if r.Opts.Progress == nil {
		return
	}
	rate := 0.0
	if res.TotalTime > 0 {
		rate = float64(res.Frames) / res.TotalTime
	}
	fmt.Fprintf(r.Opts.Progress, "Frame %05d %6.2f ms @ %5.2f Hz %3d iters %-18s %6d pts\r",
		index, tms, rate, iterations, result.KeyFramingReason, result.PointCount)
}
