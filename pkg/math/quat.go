package math

import "math"

// Quat is a rotation quaternion stored as it appears on disk: X, Y, Z, then
// the scalar W.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns the quaternion that leaves vectors unchanged.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// Length returns the quaternion norm.
func (q Quat) Length() float32 {
	return float32(math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
}

// Normalize scales q to unit length. Near-zero quaternions collapse to the
// identity so that malformed marker rotations still yield a usable matrix.
func (q Quat) Normalize() Quat {
	n := q.Length()
	if n < 1e-4 {
		return QuatIdentity()
	}
	return Quat{X: q.X / n, Y: q.Y / n, Z: q.Z / n, W: q.W / n}
}

// Rotate applies the rotation described by q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	q = q.Normalize()
	u := Vec3{q.X, q.Y, q.Z}
	// v' = v + 2w(u x v) + 2u x (u x v)
	t := cross(u, v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(cross(u, t))
}

// ToMat4 returns the rotation as an affine matrix with no translation.
func (q Quat) ToMat4() Mat4 {
	x := q.Rotate(Vec3{X: 1})
	y := q.Rotate(Vec3{Y: 1})
	z := q.Rotate(Vec3{Z: 1})
	return Mat4{
		x.X, x.Y, x.Z, 0,
		y.X, y.Y, y.Z, 0,
		z.X, z.Y, z.Z, 0,
		0, 0, 0, 1,
	}
}

// Transform returns a matrix that rotates by q and then translates by position.
func (q Quat) Transform(position Vec3) Mat4 {
	return Translate(position.X, position.Y, position.Z).Mul(q.ToMat4())
}

func cross(a, b Vec3) Vec3 {
	return Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}
