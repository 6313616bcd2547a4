package renderer

import (
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

/**
 * @brief A GPU texture shared by reference count.
 */
type Texture struct {
	ID     core.ResourceID
	Name   string
	Handle uint32
	Width  int
	Height int
	Format metadata.TextureFormat

	backend Backend
	refs    int
}

// NewTexture uploads pixels (may be nil for render targets). The returned texture holds one reference.
func NewTexture(b Backend, name string, width, height int, format metadata.TextureFormat, pixels []uint8) *Texture {
	t := &Texture{
		ID:      core.NewResourceID(),
		Name:    name,
		Handle:  b.CreateTexture(width, height, format, pixels),
		Width:   width,
		Height:  height,
		Format:  format,
		backend: b,
		refs:    1,
	}
	core.AssertGPU(b, "create texture "+name)
	return t
}

func (t *Texture) Acquire() *Texture {
	t.refs++
	return t
}

func (t *Texture) Release() {
	if t.refs <= 0 {
		return
	}
	t.refs--
	if t.refs == 0 {
		t.backend.DestroyTexture(t.Handle)
		t.Handle = 0
	}
}

func (t *Texture) RefCount() int {
	return t.refs
}

// Update replaces the texture contents, e.g. after an asset reload.
func (t *Texture) Update(width, height int, pixels []uint8) {
	t.backend.UpdateTexture(t.Handle, width, height, pixels)
	t.Width = width
	t.Height = height
}

/**
 * @brief A texture bound to one unit. When Right is set the pair is stereo and the
 * right eye samples Right while every other eye samples Left. A binding with FromContext
 * takes its texture from the render context of the draw instead (shadow map, video frame).
 */
type TextureBinding struct {
	Left        *Texture
	Right       *Texture
	FromContext func(ctx *RenderContext) *Texture
}

// ForEye picks the texture sampled by eye.
func (tb TextureBinding) ForEye(eye metadata.StereoEye) *Texture {
	if eye == metadata.StereoEyeRight && tb.Right != nil {
		return tb.Right
	}
	return tb.Left
}

// Resolve picks the texture sampled by the draw described by ctx.
func (tb TextureBinding) Resolve(ctx *RenderContext) *Texture {
	if tb.FromContext != nil {
		return tb.FromContext(ctx)
	}
	return tb.ForEye(ctx.Eye())
}
