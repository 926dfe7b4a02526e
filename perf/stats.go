package perf

import (
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"
)

const (
	defaultHistogramBins = 10
	histogramBarWidth    = 40
)

// Summary aggregates the timing and convergence numbers of a run.
type Summary struct {
	Frames    int
	TotalTime float64
	MeanMS    float64
	MedianMS  float64
	P95MS     float64
	MaxMS     float64
	// MeanIterations is the average optimizer iteration count at the test
	// level.
	MeanIterations float64
	// RateHz is the overall processing rate; zero when no engine time was
	// measured.
	RateHz float64
}

// Summarize reduces the per frame series to a Summary. A run with no frames
// summarizes to zeros.
func (r *Results) Summarize() (Summary, error) {
	s := Summary{Frames: r.Frames, TotalTime: r.TotalTime}
	if r.Frames == 0 {
		return s, nil
	}
	var err error
	if s.MeanMS, err = stats.Mean(r.TimeMS); err != nil {
		return s, err
	}
	if s.MedianMS, err = stats.Median(r.TimeMS); err != nil {
		return s, err
	}
	if s.P95MS, err = stats.Percentile(r.TimeMS, 95); err != nil {
		return s, err
	}
	if s.MaxMS, err = stats.Max(r.TimeMS); err != nil {
		return s, err
	}
	iterations := make([]float64, 0, len(r.Iterations))
	for _, n := range r.Iterations {
		iterations = append(iterations, float64(n))
	}
	if s.MeanIterations, err = stats.Mean(iterations); err != nil {
		return s, err
	}
	if r.TotalTime > 0 {
		s.RateHz = float64(r.Frames) / r.TotalTime
	}
	return s, nil
}

// PrintTimingHistogram renders the per frame latency distribution as a text
// histogram. Runs with no frames print nothing.
func (r *Results) PrintTimingHistogram(out io.Writer, bins int) error {
	if len(r.TimeMS) == 0 {
		return nil
	}
	if bins < 1 {
		bins = defaultHistogramBins
	}
	hist := histogram.Hist(bins, r.TimeMS)
	return histogram.Fprint(out, hist, histogram.Linear(histogramBarWidth))
}
