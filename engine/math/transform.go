package math

import (
	"github.com/go-gl/mathgl/mgl32"
)

var (
	AxisX = mgl32.Vec3{1, 0, 0}
	AxisY = mgl32.Vec3{0, 1, 0}
	AxisZ = mgl32.Vec3{0, 0, 1}
)

// Compose builds translate(position) * rotate(orientation) * scale(scale).
func Compose(position mgl32.Vec3, orientation mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(position.X(), position.Y(), position.Z())
	r := orientation.Normalize().Mat4()
	s := mgl32.Scale3D(scale.X(), scale.Y(), scale.Z())
	return t.Mul4(r).Mul4(s)
}

// NormalMatrix returns the inverse transpose of the upper 3x3 of modelView.
// A singular matrix yields the plain upper 3x3 instead of NaNs.
func NormalMatrix(modelView mgl32.Mat4) mgl32.Mat3 {
	m := modelView.Mat3()
	if m.Det() == 0 {
		return m
	}
	return m.Inv().Transpose()
}

// SafeNormalize normalizes v, returning the zero vector for zero-length input.
func SafeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return mgl32.Vec3{}
	}
	return v.Normalize()
}

// RotateAbout rotates v by angle radians around axis.
func RotateAbout(v mgl32.Vec3, angle float32, axis mgl32.Vec3) mgl32.Vec3 {
	return mgl32.QuatRotate(angle, axis.Normalize()).Rotate(v)
}

// ShadowBias maps clip space [-1,1] into texture space [0,1].
func ShadowBias() mgl32.Mat4 {
	return mgl32.Translate3D(0.5, 0.5, 0.5).Mul4(mgl32.Scale3D(0.5, 0.5, 0.5))
}

// TransformPoint applies m to the point p (w = 1).
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}
