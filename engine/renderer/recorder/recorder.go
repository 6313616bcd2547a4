package recorder

import (
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

var (
	uniformDecl   = regexp.MustCompile(`(?m)^\s*uniform\s+(?:(?:lowp|mediump|highp)\s+)?\w+\s+(\w+)\s*(?:\[\s*(\d+)\s*\])?\s*;`)
	attributeDecl = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?in\s+(?:(?:lowp|mediump|highp)\s+)?\w+\s+(\w+)\s*;`)
)

// State is the fixed-function and binding state of the recorded GPU.
type State struct {
	Capabilities map[metadata.Capability]bool
	ColorMask    [4]bool
	DepthMask    bool
	CullFace     metadata.FaceCullMode
	BlendSrc     metadata.BlendFactor
	BlendDst     metadata.BlendFactor
	Textures     map[int]uint32
	Program      uint32
	Framebuffer  uint32
	Viewport     [4]int
}

func (s State) clone() State {
	s.Capabilities = maps.Clone(s.Capabilities)
	s.Textures = maps.Clone(s.Textures)
	return s
}

// DrawCall is a snapshot taken at every draw.
type DrawCall struct {
	ProgramName  string
	Topology     metadata.Topology
	Count        int
	Indexed      bool
	Attributes   []string
	Uniforms     map[string]interface{}
	TargetWidth  int
	TargetHeight int
	State        State
}

type Blit struct {
	Src, Dst      uint32
	Width, Height int
	Mask          metadata.ClearMask
}

type Clear struct {
	Framebuffer uint32
	Mask        metadata.ClearMask
	Color       [4]float32
}

type programInfo struct {
	name       string
	uniforms   map[string]int32
	attributes map[string]int32
	names      map[int32]string
	values     map[int32]interface{}
}

type TextureInfo struct {
	Width, Height int
	Format        metadata.TextureFormat
	Pixels        []uint8
}

type RenderbufferInfo struct {
	Width, Height, Samples int
	Format                 metadata.TextureFormat
}

type FramebufferInfo struct {
	Attachments renderer.FramebufferAttachments
	Width       int
	Height      int
}

/**
 * @brief A Backend that executes nothing and records everything. Location queries are
 * answered from the uniform and input declarations found in the program sources.
 */
type Backend struct {
	// IncompleteFramebuffers makes every CreateFramebuffer report an incomplete framebuffer.
	IncompleteFramebuffers bool
	// PendingError is returned (and cleared) by the next CheckError.
	PendingError error

	DefaultWidth  int
	DefaultHeight int

	state         State
	next          uint32
	programs      map[uint32]*programInfo
	textures      map[uint32]*TextureInfo
	renderbuffers map[uint32]*RenderbufferInfo
	framebuffers  map[uint32]*FramebufferInfo
	buffers       map[uint32]int
	attributes    map[int32]uint32

	Draws  []DrawCall
	Blits  []Blit
	Clears []Clear
	Calls  []string

	clearColor [4]float32
}

func New() *Backend {
	return &Backend{
		state: State{
			Capabilities: make(map[metadata.Capability]bool),
			ColorMask:    [4]bool{true, true, true, true},
			DepthMask:    true,
			CullFace:     metadata.FaceCullModeBack,
			BlendSrc:     metadata.BlendOne,
			BlendDst:     metadata.BlendZero,
			Textures:     make(map[int]uint32),
		},
		programs:      make(map[uint32]*programInfo),
		textures:      make(map[uint32]*TextureInfo),
		renderbuffers: make(map[uint32]*RenderbufferInfo),
		framebuffers:  make(map[uint32]*FramebufferInfo),
		buffers:       make(map[uint32]int),
		attributes:    make(map[int32]uint32),
	}
}

func (b *Backend) newHandle() uint32 {
	b.next++
	return b.next
}

func (b *Backend) record(format string, args ...interface{}) {
	b.Calls = append(b.Calls, fmt.Sprintf(format, args...))
}

// State returns a copy of the current GPU state.
func (b *Backend) State() State {
	return b.state.clone()
}

// Reset forgets recorded draws, blits, clears and calls but keeps every object alive.
func (b *Backend) Reset() {
	b.Draws = nil
	b.Blits = nil
	b.Clears = nil
	b.Calls = nil
}

func (b *Backend) CheckError() error {
	err := b.PendingError
	b.PendingError = nil
	return err
}

func (b *Backend) Enable(c metadata.Capability) {
	b.state.Capabilities[c] = true
	b.record("Enable(%s)", c)
}

func (b *Backend) Disable(c metadata.Capability) {
	b.state.Capabilities[c] = false
	b.record("Disable(%s)", c)
}

func (b *Backend) ColorMask(r, g, bl, a bool) {
	b.state.ColorMask = [4]bool{r, g, bl, a}
	b.record("ColorMask(%t,%t,%t,%t)", r, g, bl, a)
}

func (b *Backend) DepthMask(enabled bool) {
	b.state.DepthMask = enabled
	b.record("DepthMask(%t)", enabled)
}

func (b *Backend) CullFace(mode metadata.FaceCullMode) {
	b.state.CullFace = mode
	b.record("CullFace(%d)", mode)
}

func (b *Backend) BlendFunc(src, dst metadata.BlendFactor) {
	b.state.BlendSrc = src
	b.state.BlendDst = dst
	b.record("BlendFunc(%d,%d)", src, dst)
}

func (b *Backend) CreateProgram(name, vertexSource, fragmentSource string) (uint32, error) {
	for stage, src := range map[string]string{"vertex": vertexSource, "fragment": fragmentSource} {
		if strings.TrimSpace(src) == "" || strings.Contains(src, "#error") {
			return 0, fmt.Errorf("program '%s' %s stage: %w", name, stage, core.ErrShaderCompile)
		}
	}
	p := &programInfo{
		name:       name,
		uniforms:   make(map[string]int32),
		attributes: make(map[string]int32),
		names:      make(map[int32]string),
		values:     make(map[int32]interface{}),
	}
	var loc int32
	for _, src := range []string{vertexSource, fragmentSource} {
		for _, m := range uniformDecl.FindAllStringSubmatch(src, -1) {
			if _, seen := p.uniforms[m[1]]; seen {
				continue
			}
			size := 1
			if m[2] != "" {
				size, _ = strconv.Atoi(m[2])
			}
			p.uniforms[m[1]] = loc
			for i := 0; i < size; i++ {
				if m[2] != "" {
					p.uniforms[fmt.Sprintf("%s[%d]", m[1], i)] = loc + int32(i)
				}
				p.names[loc+int32(i)] = m[1]
			}
			loc += int32(size)
		}
	}
	for i, m := range attributeDecl.FindAllStringSubmatch(vertexSource, -1) {
		p.attributes[m[1]] = int32(i)
	}
	h := b.newHandle()
	b.programs[h] = p
	b.record("CreateProgram(%s)", name)
	return h, nil
}

func (b *Backend) DestroyProgram(program uint32) {
	delete(b.programs, program)
	b.record("DestroyProgram(%d)", program)
}

func (b *Backend) UseProgram(program uint32) {
	b.state.Program = program
	b.record("UseProgram(%s)", b.ProgramName(program))
}

func (b *Backend) UniformLocation(program uint32, name string) int32 {
	p, ok := b.programs[program]
	if !ok {
		return -1
	}
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	return -1
}

func (b *Backend) AttributeLocation(program uint32, name string) int32 {
	p, ok := b.programs[program]
	if !ok {
		return -1
	}
	if loc, ok := p.attributes[name]; ok {
		return loc
	}
	return -1
}

func (b *Backend) SetUniform(program uint32, location int32, value interface{}) bool {
	switch value.(type) {
	case bool, int, int32, float32, mgl32.Vec2, mgl32.Vec3, mgl32.Vec4, mgl32.Mat3, mgl32.Mat4, []float32, []mgl32.Mat4:
	default:
		return false
	}
	p, ok := b.programs[program]
	if !ok {
		return false
	}
	p.values[location] = value
	b.record("SetUniform(%s,%s)", p.name, p.names[location])
	return true
}

// ProgramName returns the name given at creation, "" for unknown handles.
func (b *Backend) ProgramName(program uint32) string {
	if p, ok := b.programs[program]; ok {
		return p.name
	}
	return ""
}

// UniformValue returns the last value uploaded to name in program.
func (b *Backend) UniformValue(program uint32, name string) (interface{}, bool) {
	p, ok := b.programs[program]
	if !ok {
		return nil, false
	}
	loc, ok := p.uniforms[name]
	if !ok {
		return nil, false
	}
	v, ok := p.values[loc]
	return v, ok
}

func (b *Backend) CreateVertexBuffer(data []float32) uint32 {
	h := b.newHandle()
	b.buffers[h] = len(data)
	return h
}

func (b *Backend) CreateIndexBuffer(data []uint32) uint32 {
	h := b.newHandle()
	b.buffers[h] = len(data)
	return h
}

func (b *Backend) DestroyBuffer(buffer uint32) {
	delete(b.buffers, buffer)
}

// LiveBuffers counts vertex and index buffers not yet destroyed.
func (b *Backend) LiveBuffers() int {
	return len(b.buffers)
}

func (b *Backend) BindVertexAttribute(location int32, buffer uint32, components int) {
	b.attributes[location] = buffer
}

func (b *Backend) DisableVertexAttribute(location int32) {
	delete(b.attributes, location)
}

func (b *Backend) DrawArrays(topology metadata.Topology, first, count int) {
	b.draw(topology, count, false)
}

func (b *Backend) DrawElements(topology metadata.Topology, indexBuffer uint32, count int) {
	b.draw(topology, count, true)
}

func (b *Backend) draw(topology metadata.Topology, count int, indexed bool) {
	call := DrawCall{
		Topology: topology,
		Count:    count,
		Indexed:  indexed,
		Uniforms: make(map[string]interface{}),
		State:    b.state.clone(),
	}
	if p, ok := b.programs[b.state.Program]; ok {
		call.ProgramName = p.name
		for loc, v := range p.values {
			call.Uniforms[p.names[loc]] = v
		}
		for name, loc := range p.attributes {
			if _, bound := b.attributes[loc]; bound {
				call.Attributes = append(call.Attributes, name)
			}
		}
	}
	call.TargetWidth, call.TargetHeight = b.FramebufferSize(b.state.Framebuffer)
	b.Draws = append(b.Draws, call)
	b.record("Draw(%s,%d)", call.ProgramName, count)
}

func (b *Backend) BindTexture(unit int, texture uint32) {
	b.state.Textures[unit] = texture
	b.record("BindTexture(%d,%d)", unit, texture)
}

func (b *Backend) CreateTexture(width, height int, format metadata.TextureFormat, pixels []uint8) uint32 {
	h := b.newHandle()
	b.textures[h] = &TextureInfo{Width: width, Height: height, Format: format, Pixels: pixels}
	return h
}

func (b *Backend) UpdateTexture(texture uint32, width, height int, pixels []uint8) {
	if t, ok := b.textures[texture]; ok {
		t.Width, t.Height, t.Pixels = width, height, pixels
	}
}

func (b *Backend) DestroyTexture(texture uint32) {
	delete(b.textures, texture)
}

// Texture returns the description of a live texture.
func (b *Backend) Texture(texture uint32) (*TextureInfo, bool) {
	t, ok := b.textures[texture]
	return t, ok
}

func (b *Backend) CreateRenderbuffer(width, height, samples int, format metadata.TextureFormat) uint32 {
	h := b.newHandle()
	b.renderbuffers[h] = &RenderbufferInfo{Width: width, Height: height, Samples: samples, Format: format}
	return h
}

func (b *Backend) DestroyRenderbuffer(renderbuffer uint32) {
	delete(b.renderbuffers, renderbuffer)
}

func (b *Backend) CreateFramebuffer(attachments renderer.FramebufferAttachments) (uint32, error) {
	h := b.newHandle()
	info := &FramebufferInfo{Attachments: attachments}
	switch {
	case attachments.ColorTexture != 0:
		if t, ok := b.textures[attachments.ColorTexture]; ok {
			info.Width, info.Height = t.Width, t.Height
		}
	case attachments.DepthTexture != 0:
		if t, ok := b.textures[attachments.DepthTexture]; ok {
			info.Width, info.Height = t.Width, t.Height
		}
	case attachments.ColorRenderbuffer != 0:
		if r, ok := b.renderbuffers[attachments.ColorRenderbuffer]; ok {
			info.Width, info.Height = r.Width, r.Height
		}
	}
	b.framebuffers[h] = info
	b.record("CreateFramebuffer(%d)", h)
	if b.IncompleteFramebuffers || info.Width == 0 || info.Height == 0 {
		return h, fmt.Errorf("framebuffer %d: %w", h, core.ErrFramebufferIncomplete)
	}
	return h, nil
}

func (b *Backend) DestroyFramebuffer(framebuffer uint32) {
	delete(b.framebuffers, framebuffer)
}

// LiveFramebuffers counts framebuffers not yet destroyed.
func (b *Backend) LiveFramebuffers() int {
	return len(b.framebuffers)
}

// FramebufferSize returns the size of a framebuffer; 0 is the default framebuffer.
func (b *Backend) FramebufferSize(framebuffer uint32) (int, int) {
	if framebuffer == 0 {
		return b.DefaultWidth, b.DefaultHeight
	}
	if f, ok := b.framebuffers[framebuffer]; ok {
		return f.Width, f.Height
	}
	return 0, 0
}

func (b *Backend) BindFramebuffer(framebuffer uint32) {
	b.state.Framebuffer = framebuffer
	b.record("BindFramebuffer(%d)", framebuffer)
}

func (b *Backend) BlitFramebuffer(src, dst uint32, width, height int, mask metadata.ClearMask) {
	b.Blits = append(b.Blits, Blit{Src: src, Dst: dst, Width: width, Height: height, Mask: mask})
	b.record("Blit(%d,%d)", src, dst)
}

func (b *Backend) Viewport(x, y, width, height int) {
	b.state.Viewport = [4]int{x, y, width, height}
	b.record("Viewport(%d,%d,%d,%d)", x, y, width, height)
}

func (b *Backend) ClearColor(r, g, bl, a float32) {
	b.clearColor = [4]float32{r, g, bl, a}
}

func (b *Backend) Clear(mask metadata.ClearMask) {
	b.Clears = append(b.Clears, Clear{Framebuffer: b.state.Framebuffer, Mask: mask, Color: b.clearColor})
	b.record("Clear(%d)", mask)
}

var _ renderer.Backend = (*Backend)(nil)
