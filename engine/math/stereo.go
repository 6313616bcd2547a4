package math

import (
	"github.com/go-gl/mathgl/mgl32"
)

// StereoSide returns the sideways half eye separation normalize(cross(look, up)) * distance * 0.5.
// The left eye adds it and the right eye subtracts it.
func StereoSide(look, up mgl32.Vec3, distance float32) mgl32.Vec3 {
	return SafeNormalize(look.Cross(up)).Mul(distance * 0.5)
}

// ApplyYawPitchRoll turns look around up by yaw, tilts it by pitch around the side axis of the
// unrotated basis and rolls up around the resulting look vector. Angles are radians.
func ApplyYawPitchRoll(look, up mgl32.Vec3, yaw, pitch, roll float32) (mgl32.Vec3, mgl32.Vec3) {
	side := SafeNormalize(look.Cross(up))
	if yaw != 0 {
		look = RotateAbout(look, yaw, up)
	}
	if pitch != 0 && side.Len() > 0 {
		look = RotateAbout(look, -pitch, side)
	}
	if roll != 0 && look.Len() > 0 {
		up = RotateAbout(up, -roll, look)
	}
	return look, up
}

// HeadTrackedBasis rotates the canonical forward and up vectors through the basis described by
// look/up composed with the tracker orientation.
func HeadTrackedBasis(look, up mgl32.Vec3, orientation mgl32.Quat) (mgl32.Vec3, mgl32.Vec3) {
	view := mgl32.LookAtV(mgl32.Vec3{}, look, up)
	q := mgl32.Mat4ToQuat(view).Inverse().Mul(orientation.Normalize())
	return q.Rotate(mgl32.Vec3{0, 0, -1}), q.Rotate(mgl32.Vec3{0, 1, 0})
}
