// Package spatial3 implements the five spatial element types of the
// closed dtype set in spec.md §3: Vector3, Matrix3, Affine3, Rotation
// and Translation. It is grounded on gonum's spatial/r3 package
// (vector.go, mat.go, rotation.go, affine.go), adapted from a
// matrix-library-backed Mat/quat.Number representation to small
// self-contained value types suitable for dense storage in a
// buffer.Buffer[T].
package spatial3

import "math"

// Vector3 is a 3-component vector, storage-compatible with gonum's
// r3.Vec ([3]float64 with X/Y/Z accessors).
type Vector3 [3]float64

func (v Vector3) X() float64 { return v[0] }
func (v Vector3) Y() float64 { return v[1] }
func (v Vector3) Z() float64 { return v[2] }

// Add returns the component-wise sum of v and w.
func (v Vector3) Add(w Vector3) Vector3 {
	return Vector3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns the component-wise difference v - w.
func (v Vector3) Sub(w Vector3) Vector3 {
	return Vector3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns v scaled by f.
func (v Vector3) Scale(f float64) Vector3 {
	return Vector3{v[0] * f, v[1] * f, v[2] * f}
}

// Dot returns the dot product of v and w.
func (v Vector3) Dot(w Vector3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

// Cross returns the cross product v × w.
func (v Vector3) Cross(w Vector3) Vector3 {
	return Vector3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

// Norm returns the Euclidean length of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Matrix3 is a 3×3 matrix stored row-major, the fixed-size analogue
// of gonum's r3.Mat.
type Matrix3 [9]float64

// At returns the element at row i, column j (0-indexed).
func (m Matrix3) At(i, j int) float64 { return m[i*3+j] }

// MulVec returns m applied to v.
func (m Matrix3) MulVec(v Vector3) Vector3 {
	return Vector3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// Mul returns the matrix product m*n.
func (m Matrix3) Mul(n Matrix3) Matrix3 {
	var out Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += m.At(i, k) * n.At(k, j)
			}
			out[i*3+j] = sum
		}
	}
	return out
}

// Identity3 is the 3×3 identity matrix.
var Identity3 = Matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Translation is a pure translation vector. It is kept as a distinct
// dtype from Vector3 (spec.md §3's closed dtype set lists both) since
// a translation composes with Affine3/Rotation under a different
// algebra than a free vector (translations add; free vectors rotate).
type Translation Vector3

// Add composes two translations.
func (t Translation) Add(u Translation) Translation {
	return Translation(Vector3(t).Add(Vector3(u)))
}

// Rotation is a unit quaternion describing a rotation in R3, the same
// representation gonum's r3.Rotation uses internally (via
// num/quat.Number), kept self-contained here since spec.md §3 models
// Rotation as a first-class storable dtype rather than a helper type.
type Rotation struct {
	W, X, Y, Z float64
}

// NewRotation returns the rotation by angle radians around axis,
// mirroring gonum's r3.NewRotation.
func NewRotation(angle float64, axis Vector3) Rotation {
	n := axis.Norm()
	if n == 0 {
		return Rotation{W: 1}
	}
	axis = axis.Scale(1 / n)
	sin, cos := math.Sincos(0.5 * angle)
	return Rotation{W: cos, X: axis[0] * sin, Y: axis[1] * sin, Z: axis[2] * sin}
}

// Rotate applies rot to v.
func (rot Rotation) Rotate(v Vector3) Vector3 {
	// Standard quaternion-vector rotation q*v*conj(q), expanded to
	// avoid allocating a second quaternion multiply.
	qx, qy, qz, qw := rot.X, rot.Y, rot.Z, rot.W
	vx, vy, vz := v[0], v[1], v[2]

	uvx := qy*vz - qz*vy
	uvy := qz*vx - qx*vz
	uvz := qx*vy - qy*vx

	uuvx := qy*uvz - qz*uvy
	uuvy := qz*uvx - qx*uvz
	uuvz := qx*uvy - qy*uvx

	return Vector3{
		vx + 2*(qw*uvx+uuvx),
		vy + 2*(qw*uvy+uuvy),
		vz + 2*(qw*uvz+uuvz),
	}
}

// Mul composes two rotations as the quaternion product r·s: applying
// the result is equivalent to applying s then r.
func (r Rotation) Mul(s Rotation) Rotation {
	return Rotation{
		W: r.W*s.W - r.X*s.X - r.Y*s.Y - r.Z*s.Z,
		X: r.W*s.X + r.X*s.W + r.Y*s.Z - r.Z*s.Y,
		Y: r.W*s.Y - r.X*s.Z + r.Y*s.W + r.Z*s.X,
		Z: r.W*s.Z + r.X*s.Y - r.Y*s.X + r.Z*s.W,
	}
}

// Matrix3 returns rot as an equivalent rotation matrix.
func (rot Rotation) Matrix3() Matrix3 {
	w, x, y, z := rot.W, rot.X, rot.Y, rot.Z
	return Matrix3{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}
}

// Affine3 is a 3D affine transform: a Matrix3 linear part plus a
// Translation, mirroring gonum's r3.Affine (linear 4×4 block stored
// as a diagonal-subtracted matrix to make the zero value the
// identity). nscipp keeps the linear and translation parts explicit
// since Matrix3 and Translation are already independent dtypes.
type Affine3 struct {
	Linear      Matrix3
	Translation Translation
}

// IdentityAffine3 is the identity affine transform.
var IdentityAffine3 = Affine3{Linear: Identity3}

// Transform applies a to v.
func (a Affine3) Transform(v Vector3) Vector3 {
	return a.Linear.MulVec(v).Add(Vector3(a.Translation))
}

// Compose returns the affine transform equivalent to applying a then
// b.
func (a Affine3) Compose(b Affine3) Affine3 {
	return Affine3{
		Linear:      b.Linear.Mul(a.Linear),
		Translation: Translation(b.Linear.MulVec(Vector3(a.Translation)).Add(Vector3(b.Translation))),
	}
}

// IndexPair is a half-open index range [Begin, End) into a parent
// buffer, the element type backing a binned Variable's indices buffer
// (spec.md §4.5).
type IndexPair struct {
	Begin, End int
}

// Len returns End-Begin.
func (p IndexPair) Len() int { return p.End - p.Begin }
