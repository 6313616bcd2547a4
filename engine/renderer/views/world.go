package views

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/math"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/components"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/scene"
)

// OrientationSource reports the head orientation of a tracker; ok is false while disconnected.
type OrientationSource interface {
	Snapshot() (orientation mgl32.Quat, ok bool)
}

/**
 * @brief Viewer placement and stereo parameters. Angles are radians; Look and Up need not be
 * normalized.
 */
type StereoCamera struct {
	Eye  mgl32.Vec3
	Look mgl32.Vec3
	Up   mgl32.Vec3

	FOV  float32
	Near float32
	Far  float32

	EyeDistance float32
	Convergence float32
	// moves the eye along Look
	DistanceOffset float32

	Yaw   float32
	Pitch float32
	Roll  float32
}

func DefaultStereoCamera() StereoCamera {
	return StereoCamera{
		Look:        mgl32.Vec3{0, 0, -1},
		Up:          mgl32.Vec3{0, 1, 0},
		FOV:         mgl32.DegToRad(42),
		Near:        0.1,
		Far:         1000,
		EyeDistance: 0.065,
		Convergence: 1,
	}
}

/**
 * @brief Builds the camera of one eye. A connected tracker replaces the yaw/pitch/roll
 * offsets. The left eye moves along normalize(cross(look, up)) by half the eye distance, the
 * right eye the other way, and both look at eye + look * convergence.
 */
func (s StereoCamera) Camera(eye metadata.StereoEye, aspect float32, tracker OrientationSource) components.Camera {
	look, up := s.Look, s.Up
	position := s.Eye.Add(math.SafeNormalize(look).Mul(s.DistanceOffset))

	tracked := false
	if tracker != nil {
		if q, ok := tracker.Snapshot(); ok {
			look, up = math.HeadTrackedBasis(look, up, q)
			tracked = true
		}
	}
	if !tracked {
		look, up = math.ApplyYawPitchRoll(look, up, s.Yaw, s.Pitch, s.Roll)
	}

	var side mgl32.Vec3
	switch eye {
	case metadata.StereoEyeLeft:
		side = math.StereoSide(look, up, s.EyeDistance)
	case metadata.StereoEyeRight:
		side = math.StereoSide(look, up, s.EyeDistance).Mul(-1)
	}

	cam := components.NewCamera()
	cam.Perspective(s.FOV, aspect, s.Near, s.Far)
	cam.LookAt(position.Add(side), position.Add(look.Mul(s.Convergence)), up)
	return cam
}

/** @brief The geometry pass: renders the scene for one eye and resolves it into a framebuffer. */
type WorldView struct {
	backend renderer.Backend
	scene   *scene.Manager
}

func NewWorldView(b renderer.Backend, sm *scene.Manager) *WorldView {
	return &WorldView{backend: b, scene: sm}
}

// OnRender draws the scene into target and blits the result into resolve. Returns the models drawn.
func (v *WorldView) OnRender(camera components.Camera, eye metadata.StereoEye, target *renderer.RenderTarget, resolve *renderer.Framebuffer) int {
	target.Bind()
	v.backend.Viewport(0, 0, target.Width, target.Height)
	v.backend.ClearColor(0, 0, 0, 1)
	v.backend.Clear(metadata.ClearColor | metadata.ClearDepth)

	drawn := v.scene.Render(camera, false, eye)

	target.Unbind()
	target.Blit(resolve)
	return drawn
}
