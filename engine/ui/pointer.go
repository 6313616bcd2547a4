package ui

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/assets/loaders"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/renderer/views"
	"github.com/spaghettifunk/parallax/engine/scene"
)

/**
 * @brief A dot showing where the head tracker points, drawn only while it is connected.
 * Looking straight ahead puts the dot at x, y; Travel is the distance in pixels for a
 * 90 degree turn.
 */
type Pointer struct {
	Travel float32

	tracker  views.OrientationSource
	material *renderer.Material
	texture  *renderer.Texture
	model    *renderer.Model
	node     *scene.Node
	size     int
}

// NewPointer takes ownership of material, normally a fresh "text" material.
func NewPointer(b renderer.Backend, tracker views.OrientationSource, material *renderer.Material, size int) *Pointer {
	data := loaders.ImageData(dot(size, color.RGBA{255, 64, 64, 255}), false)
	p := &Pointer{
		Travel:   200,
		tracker:  tracker,
		material: material,
		texture:  renderer.NewTexture(b, "pointer", size, size, metadata.TextureFormatRGBA8, data.Pixels),
		model:    renderer.NewModel("pointer"),
		node:     scene.NewNode("pointer"),
		size:     size,
	}
	half := float32(size) / 2
	p.model.AddMesh(renderer.CreateRect(b, -half, -half, half, half, overlayDepth))
	p.model.SetMaterial(material)
	material.SetTexture(0, p.texture)
	return p
}

// Offset maps an orientation to the screen offset of the dot, y pointing down.
func (p *Pointer) Offset(q mgl32.Quat) (float32, float32) {
	forward := q.Rotate(mgl32.Vec3{0, 0, -1})
	return forward.X() * p.Travel, -forward.Y() * p.Travel
}

func (p *Pointer) Draw(ctx *renderer.RenderContext, x, y float32) {
	q, ok := p.tracker.Snapshot()
	if !ok {
		return
	}
	dx, dy := p.Offset(q)
	drawAt(ctx, p.node, p.model, x+dx, y+dy)
}

func (p *Pointer) Destroy() {
	p.model.Destroy()
	p.material.Release()
	p.texture.Release()
}

func dot(size int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	r := float32(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float32(x)+0.5-r, float32(y)+0.5-r
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}
	return img
}
