package vo

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
)

// Trajectory accumulates absolute camera poses, one per processed frame,
// from the relative motions an engine reports.
type Trajectory struct {
	poses []Pose
}

// NewTrajectory returns an empty trajectory.
func NewTrajectory() *Trajectory {
	return &Trajectory{}
}

// Push appends the next camera pose given the motion relative to the
// previous frame. The first pushed pose is taken as is.
func (tr *Trajectory) Push(rel Pose) {
	if len(tr.poses) == 0 {
		tr.poses = append(tr.poses, rel)
		return
	}
	tr.poses = append(tr.poses, Compose(tr.poses[len(tr.poses)-1], rel))
}

// Size returns the number of poses accumulated.
func (tr *Trajectory) Size() int {
	return len(tr.poses)
}

// At returns the absolute pose at the given frame position.
func (tr *Trajectory) At(i int) Pose {
	return tr.poses[i]
}

// WritePosesTo writes one pose per line: the top three rows of the
// homogeneous transform, row major, twelve values.
func (tr *Trajectory) WritePosesTo(out io.Writer) error {
	for _, p := range tr.poses {
		m := p.Matrix()
		_, err := fmt.Fprintf(out, "%f %f %f %f %f %f %f %f %f %f %f %f\n",
			m.At(0, 0), m.At(0, 1), m.At(0, 2), m.At(0, 3),
			m.At(1, 0), m.At(1, 1), m.At(1, 2), m.At(1, 3),
			m.At(2, 0), m.At(2, 1), m.At(2, 2), m.At(2, 3))
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteCameraPathTo writes one camera position per line as "x y z".
func (tr *Trajectory) WriteCameraPathTo(out io.Writer) error {
	for _, p := range tr.poses {
		t := p.Translation()
		if _, err := fmt.Fprintf(out, "%f %f %f\n", t.X, t.Y, t.Z); err != nil {
			return err
		}
	}
	return nil
}

// WritePosesToFile writes the full poses to a text file.
func (tr *Trajectory) WritePosesToFile(fn string) error {
	return writeTextToFile(fn, tr.WritePosesTo)
}

// WriteCameraPathToFile writes the camera positions to a text file.
func (tr *Trajectory) WriteCameraPathToFile(fn string) error {
	return writeTextToFile(fn, tr.WriteCameraPathTo)
}

func writeTextToFile(fn string, write func(io.Writer) error) error {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	out := bufio.NewWriter(f)
	err = write(out)
	if err == nil {
		err = out.Flush()
	}
	return multierr.Combine(err, f.Close())
}
