package renderer

import (
	"maps"
	"slices"

	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

/**
 * @brief GPU state for a draw: capabilities, fixed-function masks, textures, program and
 * uniforms. Applying a material writes every managed capability (absent ones are disabled)
 * and every fixed-function field, so the result never depends on the previous draw.
 * Raw backend calls made outside materials can still leak into later draws.
 */
type Material struct {
	Name         string
	CastsShadows bool
	Program      *Program
	Textures     map[int]TextureBinding
	Uniforms     *UniformGroup
	Capabilities map[metadata.Capability]bool
	ColorMask    [4]bool
	DepthMask    bool
	CullFace     metadata.FaceCullMode
	BlendSrc     metadata.BlendFactor
	BlendDst     metadata.BlendFactor
}

func NewMaterial(name string) *Material {
	return &Material{
		Name:         name,
		CastsShadows: true,
		Textures:     make(map[int]TextureBinding),
		Uniforms:     NewUniformGroup(),
		Capabilities: make(map[metadata.Capability]bool),
		ColorMask:    [4]bool{true, true, true, true},
		DepthMask:    true,
		CullFace:     metadata.FaceCullModeBack,
		BlendSrc:     metadata.BlendOne,
		BlendDst:     metadata.BlendZero,
	}
}

func (m *Material) Enable(c metadata.Capability) {
	m.Capabilities[c] = true
}

func (m *Material) Disable(c metadata.Capability) {
	m.Capabilities[c] = false
}

// SetProgram takes a reference to p and releases the previous program.
func (m *Material) SetProgram(p *Program) {
	if p != nil {
		p.Acquire()
	}
	if m.Program != nil {
		m.Program.Release()
	}
	m.Program = p
}

func (m *Material) SetTexture(unit int, t *Texture) {
	m.SetStereoTexture(unit, t, nil)
}

// SetStereoTexture binds a left/right pair to unit, taking a reference to both.
func (m *Material) SetStereoTexture(unit int, left, right *Texture) {
	if left != nil {
		left.Acquire()
	}
	if right != nil {
		right.Acquire()
	}
	m.releaseUnit(unit)
	m.Textures[unit] = TextureBinding{Left: left, Right: right}
}

// SetContextTexture binds whatever texture fn picks from the render context at apply time.
func (m *Material) SetContextTexture(unit int, fn func(ctx *RenderContext) *Texture) {
	m.releaseUnit(unit)
	m.Textures[unit] = TextureBinding{FromContext: fn}
}

// ClearTexture drops the binding of unit and the references it held.
func (m *Material) ClearTexture(unit int) {
	m.releaseUnit(unit)
	delete(m.Textures, unit)
}

func (m *Material) releaseUnit(unit int) {
	old, ok := m.Textures[unit]
	if !ok {
		return
	}
	if old.Left != nil {
		old.Left.Release()
	}
	if old.Right != nil {
		old.Right.Release()
	}
}

// Release drops the references held on program and textures.
func (m *Material) Release() {
	for unit := range m.Textures {
		m.releaseUnit(unit)
	}
	m.Textures = make(map[int]TextureBinding)
	m.SetProgram(nil)
}

// Apply writes the whole material state to the backend of ctx.
// State set directly on the backend outside a material is not reset here.
func (m *Material) Apply(ctx *RenderContext) {
	b := ctx.Backend()

	for _, c := range metadata.ManagedCapabilities {
		if m.Capabilities[c] {
			b.Enable(c)
		} else {
			b.Disable(c)
		}
	}

	b.ColorMask(m.ColorMask[0], m.ColorMask[1], m.ColorMask[2], m.ColorMask[3])
	b.DepthMask(m.DepthMask)
	b.CullFace(m.CullFace)
	b.BlendFunc(m.BlendSrc, m.BlendDst)

	for _, unit := range slices.Sorted(maps.Keys(m.Textures)) {
		var handle uint32
		if t := m.Textures[unit].Resolve(ctx); t != nil {
			handle = t.Handle
		}
		b.BindTexture(unit, handle)
	}

	if m.Program != nil {
		b.UseProgram(m.Program.Handle)
		m.Uniforms.Apply(m.Program, ctx)
	}

	core.AssertGPU(b, "material "+m.Name)
}
