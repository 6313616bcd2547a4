package renderer

import (
	"fmt"

	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

// Samples used by multisample render targets.
const DefaultSamples = 8

/**
 * @brief An off-screen framebuffer backed by a color texture and a depth texture, so both
 * can be sampled by later passes.
 */
type Framebuffer struct {
	Handle uint32
	Width  int
	Height int
	Color  *Texture
	Depth  *Texture

	backend Backend
}

/**
 * @brief Creates a framebuffer of the given size. When the backend reports it incomplete the
 * framebuffer is still returned along with an error wrapping core.ErrFramebufferIncomplete.
 */
func NewFramebuffer(b Backend, name string, width, height int) (*Framebuffer, error) {
	fb := &Framebuffer{
		Width:   width,
		Height:  height,
		Color:   NewTexture(b, name+".color", width, height, metadata.TextureFormatRGBA8, nil),
		Depth:   NewTexture(b, name+".depth", width, height, metadata.TextureFormatDepth24, nil),
		backend: b,
	}
	handle, err := b.CreateFramebuffer(FramebufferAttachments{
		ColorTexture: fb.Color.Handle,
		DepthTexture: fb.Depth.Handle,
	})
	fb.Handle = handle
	if err != nil {
		return fb, fmt.Errorf("framebuffer '%s' (%dx%d): %w", name, width, height, err)
	}
	core.LogDebug("framebuffer '%s' created (%dx%d)", name, width, height)
	return fb, nil
}

func (f *Framebuffer) Bind() {
	f.backend.BindFramebuffer(f.Handle)
}

func (f *Framebuffer) Unbind() {
	f.backend.BindFramebuffer(0)
}

// Destroy releases the framebuffer and its textures. Materials still holding the textures
// keep them alive until they release them too.
func (f *Framebuffer) Destroy() {
	if f.Handle != 0 {
		f.backend.DestroyFramebuffer(f.Handle)
		f.Handle = 0
	}
	f.Color.Release()
	f.Depth.Release()
}

/**
 * @brief A multisample render target (color and depth renderbuffers). It cannot be sampled:
 * its content is resolved into a Framebuffer with Blit.
 */
type RenderTarget struct {
	Handle  uint32
	Width   int
	Height  int
	Samples int

	color   uint32
	depth   uint32
	backend Backend
}

func NewRenderTarget(b Backend, name string, width, height, samples int) (*RenderTarget, error) {
	rt := &RenderTarget{
		Width:   width,
		Height:  height,
		Samples: samples,
		color:   b.CreateRenderbuffer(width, height, samples, metadata.TextureFormatRGBA8),
		depth:   b.CreateRenderbuffer(width, height, samples, metadata.TextureFormatDepth24),
		backend: b,
	}
	handle, err := b.CreateFramebuffer(FramebufferAttachments{
		ColorRenderbuffer: rt.color,
		DepthRenderbuffer: rt.depth,
	})
	rt.Handle = handle
	if err != nil {
		return rt, fmt.Errorf("render target '%s' (%dx%d, %d samples): %w", name, width, height, samples, err)
	}
	core.LogDebug("render target '%s' created (%dx%d, %d samples)", name, width, height, samples)
	return rt, nil
}

func (r *RenderTarget) Bind() {
	r.backend.BindFramebuffer(r.Handle)
}

func (r *RenderTarget) Unbind() {
	r.backend.BindFramebuffer(0)
}

// Blit resolves color and depth into target.
func (r *RenderTarget) Blit(target *Framebuffer) {
	r.backend.BlitFramebuffer(r.Handle, target.Handle, r.Width, r.Height, metadata.ClearColor|metadata.ClearDepth)
	core.AssertGPU(r.backend, "blit")
}

func (r *RenderTarget) Destroy() {
	if r.Handle != 0 {
		r.backend.DestroyFramebuffer(r.Handle)
		r.Handle = 0
	}
	r.backend.DestroyRenderbuffer(r.color)
	r.backend.DestroyRenderbuffer(r.depth)
}
