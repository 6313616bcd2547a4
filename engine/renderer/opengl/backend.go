package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

/**
 * @brief OpenGL 4.1 core implementation of renderer.Backend. A single vertex array object
 * is bound for the lifetime of the context; attribute streams are rebound per draw.
 */
type Backend struct {
	vao     uint32
	program uint32
}

/**
 * @brief Loads the GL entry points of the current context. Must be called on the
 * render thread after the window context was made current.
 */
func New() (*Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	core.LogInfo("OpenGL %s, GLSL %s, %s",
		gl.GoStr(gl.GetString(gl.VERSION)),
		gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)),
		gl.GoStr(gl.GetString(gl.RENDERER)))

	b := &Backend{}
	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)
	return b, nil
}

// Shutdown releases the vertex array object.
func (b *Backend) Shutdown() {
	gl.BindVertexArray(0)
	gl.DeleteVertexArrays(1, &b.vao)
}

func (b *Backend) CheckError() error {
	var codes []string
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		codes = append(codes, fmt.Sprintf("0x%04x", code))
	}
	if len(codes) == 0 {
		return nil
	}
	return fmt.Errorf("GL error %s: %w", strings.Join(codes, ","), core.ErrUnknown)
}

var capabilities = map[metadata.Capability]uint32{
	metadata.CapabilityDepthTest:        gl.DEPTH_TEST,
	metadata.CapabilityCullFace:         gl.CULL_FACE,
	metadata.CapabilityBlend:            gl.BLEND,
	metadata.CapabilityProgramPointSize: gl.PROGRAM_POINT_SIZE,
	metadata.CapabilityMultisample:      gl.MULTISAMPLE,
	metadata.CapabilityStencilTest:      gl.STENCIL_TEST,
}

func (b *Backend) Enable(c metadata.Capability) {
	if glCap, ok := capabilities[c]; ok {
		gl.Enable(glCap)
	}
}

func (b *Backend) Disable(c metadata.Capability) {
	if glCap, ok := capabilities[c]; ok {
		gl.Disable(glCap)
	}
}

func (b *Backend) ColorMask(r, g, bl, a bool) {
	gl.ColorMask(r, g, bl, a)
}

func (b *Backend) DepthMask(enabled bool) {
	gl.DepthMask(enabled)
}

func (b *Backend) CullFace(mode metadata.FaceCullMode) {
	switch mode {
	case metadata.FaceCullModeFront:
		gl.CullFace(gl.FRONT)
	case metadata.FaceCullModeFrontAndBack:
		gl.CullFace(gl.FRONT_AND_BACK)
	default:
		// FaceCullModeNone is expressed by disabling CapabilityCullFace
		gl.CullFace(gl.BACK)
	}
}

var blendFactors = map[metadata.BlendFactor]uint32{
	metadata.BlendZero:             gl.ZERO,
	metadata.BlendOne:              gl.ONE,
	metadata.BlendSrcAlpha:         gl.SRC_ALPHA,
	metadata.BlendOneMinusSrcAlpha: gl.ONE_MINUS_SRC_ALPHA,
	metadata.BlendDstAlpha:         gl.DST_ALPHA,
	metadata.BlendOneMinusDstAlpha: gl.ONE_MINUS_DST_ALPHA,
}

func (b *Backend) BlendFunc(src, dst metadata.BlendFactor) {
	gl.BlendFunc(blendFactors[src], blendFactors[dst])
}

func compileShader(stage uint32, source string) (uint32, error) {
	handle := gl.CreateShader(stage)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(handle, 1, csources, nil)
	free()
	gl.CompileShader(handle)

	var status int32
	gl.GetShaderiv(handle, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetShaderiv(handle, gl.INFO_LOG_LENGTH, &length)
		msg := strings.Repeat("\x00", int(length+1))
		gl.GetShaderInfoLog(handle, length, nil, gl.Str(msg))
		gl.DeleteShader(handle)
		return 0, fmt.Errorf("%s: %w", strings.TrimRight(msg, "\x00"), core.ErrShaderCompile)
	}
	return handle, nil
}

func (b *Backend) CreateProgram(name, vertexSource, fragmentSource string) (uint32, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, vertexSource)
	if err != nil {
		return 0, fmt.Errorf("program '%s' vertex stage: %w", name, err)
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(gl.FRAGMENT_SHADER, fragmentSource)
	if err != nil {
		return 0, fmt.Errorf("program '%s' fragment stage: %w", name, err)
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &length)
		msg := strings.Repeat("\x00", int(length+1))
		gl.GetProgramInfoLog(program, length, nil, gl.Str(msg))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("program '%s': %s: %w", name, strings.TrimRight(msg, "\x00"), core.ErrProgramLink)
	}
	gl.DetachShader(program, vs)
	gl.DetachShader(program, fs)
	return program, nil
}

func (b *Backend) DestroyProgram(program uint32) {
	if b.program == program {
		b.program = 0
	}
	gl.DeleteProgram(program)
}

func (b *Backend) UseProgram(program uint32) {
	b.program = program
	gl.UseProgram(program)
}

func (b *Backend) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (b *Backend) AttributeLocation(program uint32, name string) int32 {
	return gl.GetAttribLocation(program, gl.Str(name+"\x00"))
}

// SetUniform uploads to the program in use; program is only checked against it.
func (b *Backend) SetUniform(program uint32, location int32, value interface{}) bool {
	if program != b.program {
		core.LogDebug("uniform upload to program %d while %d is in use", program, b.program)
	}
	switch v := value.(type) {
	case bool:
		var i int32
		if v {
			i = 1
		}
		gl.Uniform1i(location, i)
	case int:
		gl.Uniform1i(location, int32(v))
	case int32:
		gl.Uniform1i(location, v)
	case float32:
		gl.Uniform1f(location, v)
	case mgl32.Vec2:
		gl.Uniform2f(location, v[0], v[1])
	case mgl32.Vec3:
		gl.Uniform3f(location, v[0], v[1], v[2])
	case mgl32.Vec4:
		gl.Uniform4f(location, v[0], v[1], v[2], v[3])
	case mgl32.Mat3:
		gl.UniformMatrix3fv(location, 1, false, &v[0])
	case mgl32.Mat4:
		gl.UniformMatrix4fv(location, 1, false, &v[0])
	case []float32:
		if len(v) > 0 {
			gl.Uniform1fv(location, int32(len(v)), &v[0])
		}
	case []mgl32.Mat4:
		if len(v) > 0 {
			gl.UniformMatrix4fv(location, int32(len(v)), false, &v[0][0])
		}
	default:
		return false
	}
	return true
}

func (b *Backend) CreateVertexBuffer(data []float32) uint32 {
	var buffer uint32
	gl.GenBuffers(1, &buffer)
	gl.BindBuffer(gl.ARRAY_BUFFER, buffer)
	if len(data) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return buffer
}

func (b *Backend) CreateIndexBuffer(data []uint32) uint32 {
	var buffer uint32
	gl.GenBuffers(1, &buffer)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, buffer)
	if len(data) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	}
	return buffer
}

func (b *Backend) DestroyBuffer(buffer uint32) {
	gl.DeleteBuffers(1, &buffer)
}

func (b *Backend) BindVertexAttribute(location int32, buffer uint32, components int) {
	gl.BindBuffer(gl.ARRAY_BUFFER, buffer)
	gl.EnableVertexAttribArray(uint32(location))
	gl.VertexAttribPointerWithOffset(uint32(location), int32(components), gl.FLOAT, false, 0, 0)
}

func (b *Backend) DisableVertexAttribute(location int32) {
	gl.DisableVertexAttribArray(uint32(location))
}

func topology(t metadata.Topology) uint32 {
	switch t {
	case metadata.TopologyLines:
		return gl.LINES
	case metadata.TopologyPoints:
		return gl.POINTS
	case metadata.TopologyTriangleStrip:
		return gl.TRIANGLE_STRIP
	default:
		return gl.TRIANGLES
	}
}

func (b *Backend) DrawArrays(t metadata.Topology, first, count int) {
	gl.DrawArrays(topology(t), int32(first), int32(count))
}

func (b *Backend) DrawElements(t metadata.Topology, indexBuffer uint32, count int) {
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, indexBuffer)
	gl.DrawElementsWithOffset(topology(t), int32(count), gl.UNSIGNED_INT, 0)
}

func (b *Backend) BindTexture(unit int, texture uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, texture)
}

// formats returns internal format, pixel format and pixel type.
func formats(f metadata.TextureFormat) (int32, uint32, uint32) {
	switch f {
	case metadata.TextureFormatRGB8:
		return gl.RGB8, gl.RGB, gl.UNSIGNED_BYTE
	case metadata.TextureFormatDepth24:
		return gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.FLOAT
	default:
		return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
	}
}

func pixelPointer(pixels []uint8) interface{} {
	if len(pixels) == 0 {
		return nil
	}
	return pixels
}

func (b *Backend) CreateTexture(width, height int, format metadata.TextureFormat, pixels []uint8) uint32 {
	var texture uint32
	gl.GenTextures(1, &texture)
	gl.BindTexture(gl.TEXTURE_2D, texture)

	filter := int32(gl.LINEAR)
	if format == metadata.TextureFormatDepth24 {
		filter = gl.NEAREST
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	internal, pixelFormat, pixelType := formats(format)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0, pixelFormat, pixelType, gl.Ptr(pixelPointer(pixels)))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return texture
}

// UpdateTexture reuploads an RGBA8 image.
func (b *Backend) UpdateTexture(texture uint32, width, height int, pixels []uint8) {
	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixelPointer(pixels)))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (b *Backend) DestroyTexture(texture uint32) {
	gl.DeleteTextures(1, &texture)
}

func (b *Backend) CreateRenderbuffer(width, height, samples int, format metadata.TextureFormat) uint32 {
	var rb uint32
	gl.GenRenderbuffers(1, &rb)
	gl.BindRenderbuffer(gl.RENDERBUFFER, rb)
	internal, _, _ := formats(format)
	gl.RenderbufferStorageMultisample(gl.RENDERBUFFER, int32(samples), uint32(internal), int32(width), int32(height))
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	return rb
}

func (b *Backend) DestroyRenderbuffer(renderbuffer uint32) {
	gl.DeleteRenderbuffers(1, &renderbuffer)
}

func (b *Backend) CreateFramebuffer(att renderer.FramebufferAttachments) (uint32, error) {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb)
	defer gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if att.ColorTexture != 0 {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, att.ColorTexture, 0)
	}
	if att.DepthTexture != 0 {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, att.DepthTexture, 0)
	}
	if att.ColorRenderbuffer != 0 {
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, att.ColorRenderbuffer)
	}
	if att.DepthRenderbuffer != 0 {
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, att.DepthRenderbuffer)
	}

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fb, fmt.Errorf("framebuffer %d status 0x%04x: %w", fb, status, core.ErrFramebufferIncomplete)
	}
	return fb, nil
}

func (b *Backend) DestroyFramebuffer(framebuffer uint32) {
	gl.DeleteFramebuffers(1, &framebuffer)
}

func (b *Backend) BindFramebuffer(framebuffer uint32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, framebuffer)
}

func (b *Backend) BlitFramebuffer(src, dst uint32, width, height int, mask metadata.ClearMask) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, src)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, dst)
	w, h := int32(width), int32(height)
	gl.BlitFramebuffer(0, 0, w, h, 0, 0, w, h, clearBits(mask), gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (b *Backend) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (b *Backend) ClearColor(r, g, bl, a float32) {
	gl.ClearColor(r, g, bl, a)
}

func clearBits(mask metadata.ClearMask) uint32 {
	var bits uint32
	if mask&metadata.ClearColor != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&metadata.ClearDepth != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	if mask&metadata.ClearStencil != 0 {
		bits |= gl.STENCIL_BUFFER_BIT
	}
	return bits
}

func (b *Backend) Clear(mask metadata.ClearMask) {
	gl.Clear(clearBits(mask))
}

var _ renderer.Backend = (*Backend)(nil)
