package renderer

import (
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

// FramebufferAttachments names the storage attached to a framebuffer. Zero means "none".
type FramebufferAttachments struct {
	ColorTexture      uint32
	DepthTexture      uint32
	ColorRenderbuffer uint32
	DepthRenderbuffer uint32
}

/**
 * @brief The GPU state machine the render pipeline drives. Handles are backend
 * object names; 0 is never a valid object, except for the default framebuffer.
 * All methods must be called from the render thread.
 */
type Backend interface {
	core.ErrorChecker

	// fixed-function state
	Enable(capability metadata.Capability)
	Disable(capability metadata.Capability)
	ColorMask(r, g, b, a bool)
	DepthMask(enabled bool)
	CullFace(mode metadata.FaceCullMode)
	BlendFunc(src, dst metadata.BlendFactor)

	// programs and uniforms
	CreateProgram(name, vertexSource, fragmentSource string) (uint32, error)
	DestroyProgram(program uint32)
	UseProgram(program uint32)
	UniformLocation(program uint32, name string) int32
	AttributeLocation(program uint32, name string) int32
	/**
	 * @brief Uploads value to the uniform at location of the program in use.
	 * Supported values: bool, int, int32, float32, mgl32.Vec2/3/4, mgl32.Mat3, mgl32.Mat4,
	 * []float32, []mgl32.Mat4.
	 * @returns false when the value type is not supported.
	 */
	SetUniform(program uint32, location int32, value interface{}) bool

	// geometry
	CreateVertexBuffer(data []float32) uint32
	CreateIndexBuffer(data []uint32) uint32
	DestroyBuffer(buffer uint32)
	BindVertexAttribute(location int32, buffer uint32, components int)
	DisableVertexAttribute(location int32)
	DrawArrays(topology metadata.Topology, first, count int)
	DrawElements(topology metadata.Topology, indexBuffer uint32, count int)

	// textures
	BindTexture(unit int, texture uint32)
	CreateTexture(width, height int, format metadata.TextureFormat, pixels []uint8) uint32
	UpdateTexture(texture uint32, width, height int, pixels []uint8)
	DestroyTexture(texture uint32)

	// render targets
	CreateRenderbuffer(width, height, samples int, format metadata.TextureFormat) uint32
	DestroyRenderbuffer(renderbuffer uint32)
	/**
	 * @brief Creates a framebuffer with the given attachments. An incomplete framebuffer
	 * is still returned together with an error wrapping core.ErrFramebufferIncomplete.
	 */
	CreateFramebuffer(attachments FramebufferAttachments) (uint32, error)
	DestroyFramebuffer(framebuffer uint32)
	BindFramebuffer(framebuffer uint32)
	BlitFramebuffer(src, dst uint32, width, height int, mask metadata.ClearMask)

	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear(mask metadata.ClearMask)
}
