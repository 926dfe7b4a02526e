package vo

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform in 3D space, a rotation followed by a
// translation. The rotation is kept as a unit quaternion.
type Pose struct {
	rot quat.Number
	tr  r3.Vector
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return Pose{rot: quat.Number{Real: 1}}
}

// NewPose returns a pose from a rotation quaternion and a translation
// vector. The quaternion is normalized.
func NewPose(rot quat.Number, tr r3.Vector) Pose {
	return Pose{rot: normalize(rot), tr: tr}
}

// NewPoseFromAxisAngle returns a pose rotating by theta radians around the
// given axis and translating by tr. A zero axis yields a pure translation.
func NewPoseFromAxisAngle(axis r3.Vector, theta float64, tr r3.Vector) Pose {
	if axis.Norm2() == 0 {
		return Pose{rot: quat.Number{Real: 1}, tr: tr}
	}
	u := axis.Normalize()
	s := math.Sin(theta / 2)
	return Pose{
		rot: quat.Number{Real: math.Cos(theta / 2), Imag: u.X * s, Jmag: u.Y * s, Kmag: u.Z * s},
		tr:  tr,
	}
}

// Compose returns the pose equivalent to applying b in the frame of a.
func Compose(a, b Pose) Pose {
	return Pose{
		rot: normalize(quat.Mul(a.rot, b.rot)),
		tr:  a.Transform(b.tr),
	}
}

// Transform applies the pose to a point.
func (p Pose) Transform(pt r3.Vector) r3.Vector {
	qp := quat.Mul(quat.Mul(p.rot, quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}), quat.Conj(p.rot))
	return r3.Vector{X: qp.Imag + p.tr.X, Y: qp.Jmag + p.tr.Y, Z: qp.Kmag + p.tr.Z}
}

// Translation returns the translational component of the pose.
func (p Pose) Translation() r3.Vector {
	return p.tr
}

// Rotation returns the rotational component of the pose as a unit
// quaternion.
func (p Pose) Rotation() quat.Number {
	return p.rot
}

// Matrix returns the pose as a 4x4 homogeneous transformation matrix.
func (p Pose) Matrix() *mat.Dense {
	r := p.rotationMatrix()
	return mat.NewDense(4, 4, []float64{
		r[0], r[1], r[2], p.tr.X,
		r[3], r[4], r[5], p.tr.Y,
		r[6], r[7], r[8], p.tr.Z,
		0, 0, 0, 1,
	})
}

// rotationMatrix expands the quaternion into a row major 3x3 rotation
// matrix.
func (p Pose) rotationMatrix() [9]float64 {
	w, x, y, z := p.rot.Real, p.rot.Imag, p.rot.Jmag, p.rot.Kmag
	return [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}
}

// PoseAlmostEqual returns whether two poses agree to within epsilon, in
// translation distance and quaternion alignment.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	if a.tr.Sub(b.tr).Norm() > epsilon {
		return false
	}
	dot := a.rot.Real*b.rot.Real + a.rot.Imag*b.rot.Imag + a.rot.Jmag*b.rot.Jmag + a.rot.Kmag*b.rot.Kmag
	return math.Abs(dot) > 1-epsilon
}

func normalize(q quat.Number) quat.Number {
	length := quat.Abs(q)
	if length == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/length, q)
}
