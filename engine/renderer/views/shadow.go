package views

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/math"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/components"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/scene"
)

/** @brief The light the shadow map is rendered from. Angles are radians. */
type LightCamera struct {
	// rotation of the light around Y, starting at (10, 10, 10)
	Angle float32
	// rotation of the light up vector around Z
	UpAngle float32
	FOV     float32
	Near    float32
	Far     float32
}

func DefaultLightCamera() LightCamera {
	return LightCamera{
		FOV:  mgl32.DegToRad(25),
		Near: 0.1,
		Far:  1000,
	}
}

// Camera looks from the light position at the origin.
func (l LightCamera) Camera() components.Camera {
	position := math.RotateAbout(mgl32.Vec3{10, 10, 10}, l.Angle, math.AxisY)
	up := math.RotateAbout(math.AxisY, l.UpAngle, math.AxisZ)

	cam := components.NewCamera()
	cam.Perspective(l.FOV, 1, l.Near, l.Far)
	cam.LookAt(position, mgl32.Vec3{}, up)
	return cam
}

/**
 * @brief The shadow pass: renders every shadow caster depth-only from the light and publishes
 * the light matrix and depth texture in the shared ShadowState.
 */
type ShadowView struct {
	Light LightCamera

	backend     renderer.Backend
	scene       *scene.Manager
	depth       *renderer.Material
	state       *renderer.ShadowState
	framebuffer *renderer.Framebuffer
}

/**
 * @brief Creates the shadow framebuffer of size x size. An incomplete framebuffer is logged;
 * the pass keeps running and yields a broken shadow map.
 */
func NewShadowView(b renderer.Backend, sm *scene.Manager, depth *renderer.Material, state *renderer.ShadowState, size int) *ShadowView {
	fb, err := renderer.NewFramebuffer(b, "shadowmap", size, size)
	if err != nil {
		core.LogError("shadow pass: %s", err)
	}
	return &ShadowView{
		Light:       DefaultLightCamera(),
		backend:     b,
		scene:       sm,
		depth:       depth,
		state:       state,
		framebuffer: fb,
	}
}

func (v *ShadowView) Framebuffer() *renderer.Framebuffer {
	return v.framebuffer
}

// OnRender runs the pass and returns the number of shadow casters drawn.
func (v *ShadowView) OnRender() int {
	v.framebuffer.Bind()
	v.backend.Viewport(0, 0, v.framebuffer.Width, v.framebuffer.Height)
	v.backend.ClearColor(1, 0, 1, 1)
	v.backend.Clear(metadata.ClearColor | metadata.ClearDepth)

	cam := v.Light.Camera()
	v.state.Matrix = math.ShadowBias().Mul4(cam.Matrix())
	v.state.Texture = v.framebuffer.Depth
	v.state.Enabled = true

	v.scene.SetOverride(v.depth)
	drawn := v.scene.Render(cam, true, metadata.StereoEyeCenter)

	v.framebuffer.Unbind()
	return drawn
}

// Disable marks the shadow map as stale so materials stop sampling it.
func (v *ShadowView) Disable() {
	v.state.Enabled = false
}

func (v *ShadowView) OnDestroy() {
	v.state.Enabled = false
	v.state.Texture = nil
	v.framebuffer.Destroy()
}
