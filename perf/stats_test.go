package perf

import (
	"bytes"
	"testing"

	"go.viam.com/test"

	"github.com/viamrobotics/keyframe-vo/vo"
)

func TestSummarize(t *testing.T) {
	res := &Results{
		Trajectory: vo.NewTrajectory(),
		Iterations: []int{10, 20, 30, 40, 50},
		TimeMS:     []float64{2, 4, 6, 8, 10},
		TotalTime:  0.03,
		Frames:     5,
	}
	s, err := res.Summarize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Frames, test.ShouldEqual, 5)
	test.That(t, s.TotalTime, test.ShouldEqual, 0.03)
	test.That(t, s.MeanMS, test.ShouldAlmostEqual, 6, 1e-9)
	test.That(t, s.MedianMS, test.ShouldAlmostEqual, 6, 1e-9)
	test.That(t, s.MaxMS, test.ShouldEqual, 10)
	// with five samples the 95th percentile interpolates between the top two
	test.That(t, s.P95MS, test.ShouldAlmostEqual, 9, 1e-9)
	test.That(t, s.MeanIterations, test.ShouldAlmostEqual, 30, 1e-9)
	test.That(t, s.RateHz, test.ShouldAlmostEqual, 5/0.03, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	res := &Results{Trajectory: vo.NewTrajectory()}
	s, err := res.Summarize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Frames, test.ShouldEqual, 0)
	test.That(t, s.MeanMS, test.ShouldEqual, 0)
	test.That(t, s.RateHz, test.ShouldEqual, 0)
}

func TestSummarizeZeroTime(t *testing.T) {
	res := &Results{
		Trajectory: vo.NewTrajectory(),
		Iterations: []int{5, 5},
		TimeMS:     []float64{0, 0},
		Frames:     2,
	}
	s, err := res.Summarize()
	test.That(t, err, test.ShouldBeNil)
	// no measured time means no rate, not a division by zero
	test.That(t, s.RateHz, test.ShouldEqual, 0)
}

func TestPrintTimingHistogram(t *testing.T) {
	res := &Results{
		Trajectory: vo.NewTrajectory(),
		TimeMS:     []float64{1, 2, 2, 3, 3, 3, 4, 8},
		Frames:     8,
	}
	var buf bytes.Buffer
	test.That(t, res.PrintTimingHistogram(&buf, 4), test.ShouldBeNil)
	test.That(t, buf.Len(), test.ShouldBeGreaterThan, 0)

	// bins fall back to a sane default
	buf.Reset()
	test.That(t, res.PrintTimingHistogram(&buf, 0), test.ShouldBeNil)
	test.That(t, buf.Len(), test.ShouldBeGreaterThan, 0)

	// nothing measured, nothing printed
	buf.Reset()
	empty := &Results{Trajectory: vo.NewTrajectory()}
	test.That(t, empty.PrintTimingHistogram(&buf, 4), test.ShouldBeNil)
	test.That(t, buf.Len(), test.ShouldEqual, 0)
}
