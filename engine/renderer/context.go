package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/math"
	"github.com/spaghettifunk/parallax/engine/renderer/components"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

// WorldTransformer is anything carrying a world matrix, typically a scene node.
type WorldTransformer interface {
	WorldTransform() mgl32.Mat4
}

/**
 * @brief Everything a draw needs to resolve its uniforms: the backend, a snapshot of the
 * camera and the node being drawn. Eye, node, override material and video texture are
 * per draw overlays so one context can be reused across a whole traversal.
 */
type RenderContext struct {
	backend  Backend
	camera   components.Camera
	node     WorldTransformer
	eye      metadata.StereoEye
	override *Material
	video    *Texture
	shadow   *ShadowState
}

func NewRenderContext(b Backend, camera components.Camera, node WorldTransformer) *RenderContext {
	return &RenderContext{
		backend: b,
		camera:  camera,
		node:    node,
		eye:     metadata.StereoEyeCenter,
	}
}

func (c *RenderContext) Backend() Backend {
	return c.backend
}

func (c *RenderContext) Camera() components.Camera {
	return c.camera
}

func (c *RenderContext) SetNode(node WorldTransformer) {
	c.node = node
}

func (c *RenderContext) Node() WorldTransformer {
	return c.node
}

func (c *RenderContext) SetEye(eye metadata.StereoEye) {
	c.eye = eye
}

func (c *RenderContext) Eye() metadata.StereoEye {
	return c.eye
}

func (c *RenderContext) SetOverride(m *Material) {
	c.override = m
}

func (c *RenderContext) Override() *Material {
	return c.override
}

func (c *RenderContext) SetVideoTexture(t *Texture) {
	c.video = t
}

func (c *RenderContext) VideoTexture() *Texture {
	return c.video
}

func (c *RenderContext) SetShadow(s *ShadowState) {
	c.shadow = s
}

func (c *RenderContext) Shadow() *ShadowState {
	return c.shadow
}

func (c *RenderContext) ViewMatrix() mgl32.Mat4 {
	return c.camera.ViewMatrix()
}

func (c *RenderContext) ProjectionMatrix() mgl32.Mat4 {
	return c.camera.ProjectionMatrix()
}

// ModelMatrix reads the node world transform at call time.
func (c *RenderContext) ModelMatrix() mgl32.Mat4 {
	if c.node == nil {
		return mgl32.Ident4()
	}
	return c.node.WorldTransform()
}

func (c *RenderContext) ModelViewMatrix() mgl32.Mat4 {
	return c.ViewMatrix().Mul4(c.ModelMatrix())
}

func (c *RenderContext) NormalMatrix() mgl32.Mat3 {
	return math.NormalMatrix(c.ModelViewMatrix())
}

func (c *RenderContext) ModelViewProjectionMatrix() mgl32.Mat4 {
	return c.ProjectionMatrix().Mul4(c.ViewMatrix()).Mul4(c.ModelMatrix())
}

// ShadowMatrix returns the light space matrix of the last shadow pass, identity without one.
func (c *RenderContext) ShadowMatrix() mgl32.Mat4 {
	if c.shadow == nil {
		return mgl32.Ident4()
	}
	return c.shadow.Matrix
}

func (c *RenderContext) ShadowTexture() *Texture {
	if c.shadow == nil {
		return nil
	}
	return c.shadow.Texture
}
