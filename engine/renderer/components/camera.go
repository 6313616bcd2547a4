package components

import (
	"github.com/go-gl/mathgl/mgl32"
)

type ProjectionType int

const (
	ProjectionPerspective ProjectionType = iota
	ProjectionOrtho
)

/**
 * @brief Represents a camera used for rendering. The view matrix is
 * rotate(orientation) * translate(-position). A camera is a value type:
 * copies are independent snapshots.
 */
type Camera struct {
	Type ProjectionType

	// perspective
	FOV         float32
	AspectRatio float32

	// ortho
	Left   float32
	Right  float32
	Bottom float32
	Top    float32

	Near float32
	Far  float32

	Position    mgl32.Vec3
	Orientation mgl32.Quat
}

func NewCamera() Camera {
	return Camera{
		Type:        ProjectionPerspective,
		FOV:         mgl32.DegToRad(90),
		AspectRatio: 1,
		Near:        0.1,
		Far:         1000,
		Orientation: mgl32.QuatIdent(),
	}
}

/**
 * @brief Switches to a perspective projection.
 * @param fov vertical field of view in radians.
 */
func (c *Camera) Perspective(fov, aspectRatio, near, far float32) {
	c.Type = ProjectionPerspective
	c.FOV = fov
	c.AspectRatio = aspectRatio
	c.Near = near
	c.Far = far
}

func (c *Camera) Ortho(left, right, bottom, top, near, far float32) {
	c.Type = ProjectionOrtho
	c.Left = left
	c.Right = right
	c.Bottom = bottom
	c.Top = top
	c.Near = near
	c.Far = far
}

/**
 * @brief Places the camera at eye looking at center.
 */
func (c *Camera) LookAt(eye, center, up mgl32.Vec3) {
	c.Orientation = mgl32.Mat4ToQuat(mgl32.LookAtV(eye, center, up))
	c.Position = eye
}

// WithPosition returns a copy of the camera moved to p.
func (c Camera) WithPosition(p mgl32.Vec3) Camera {
	c.Position = p
	return c
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	if c.Type == ProjectionOrtho {
		return mgl32.Ortho(c.Left, c.Right, c.Bottom, c.Top, c.Near, c.Far)
	}
	return mgl32.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return c.Orientation.Mat4().Mul4(mgl32.Translate3D(-c.Position.X(), -c.Position.Y(), -c.Position.Z()))
}

// Matrix returns projection * view.
func (c *Camera) Matrix() mgl32.Mat4 {
	return c.ProjectionMatrix().Mul4(c.ViewMatrix())
}
