package perf

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/edaniels/golog"
)

// WriteResults persists the results of a run into four text files sharing a
// prefix: "<prefix>_poses.txt", "<prefix>_path.txt", "<prefix>_iterations.txt"
// and "<prefix>_time.txt". An empty prefix writes nothing. Each file is best
// effort: a destination that cannot be opened is skipped without failing the
// others.
func WriteResults(prefix string, res *Results, logger golog.Logger) {
	if prefix == "" {
		return
	}
	logger.Infow("writing results", "prefix", prefix)
	writeResultFile(prefix+"_poses.txt", logger, res.Trajectory.WritePosesTo)
	writeResultFile(prefix+"_path.txt", logger, res.Trajectory.WriteCameraPathTo)
	writeResultFile(prefix+"_iterations.txt", logger, func(out io.Writer) error {
		for _, n := range res.Iterations {
			if _, err := fmt.Fprintf(out, "%d\n", n); err != nil {
				return err
			}
		}
		return nil
	})
	writeResultFile(prefix+"_time.txt", logger, func(out io.Writer) error {
		for _, ms := range res.TimeMS {
			if _, err := fmt.Fprintf(out, "%f\n", ms); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeResultFile(path string, logger golog.Logger, write func(io.Writer) error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		logger.Debugw("skipping result file", "path", path, "error", err)
		return
	}
	out := bufio.NewWriter(f)
	err = write(out)
	if err == nil {
		err = out.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		logger.Debugw("failed to write result file", "path", path, "error", err)
	}
}
