package views

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/components"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/scene"
)

// Overlay is drawn on top of the composed frame, at x, y in screen pixels.
type Overlay interface {
	Draw(ctx *renderer.RenderContext, x, y float32)
}

type overlayEntry struct {
	overlay Overlay
	x, y    float32
}

/**
 * @brief The composition pass: draws a full screen rect with the material of the stereo mode
 * into the default framebuffer, then the overlays.
 */
type CompositionView struct {
	backend  renderer.Backend
	node     *scene.Node
	rect     *renderer.Model
	overlays []overlayEntry
}

func NewCompositionView(b renderer.Backend) *CompositionView {
	v := &CompositionView{
		backend: b,
		node:    scene.NewNode("composition"),
		rect:    renderer.NewModel("composition"),
	}
	v.node.UpdateTransform(mgl32.Ident4())
	return v
}

func (v *CompositionView) AddOverlay(o Overlay, x, y float32) {
	v.overlays = append(v.overlays, overlayEntry{overlay: o, x: x, y: y})
}

// ScreenCamera is the orthographic camera of a width x height screen, y pointing down.
func ScreenCamera(width, height int) components.Camera {
	cam := components.NewCamera()
	cam.Ortho(0, float32(width), float32(height), 0, 0.1, 10000)
	return cam
}

// OnResize replaces the full screen rect.
func (v *CompositionView) OnResize(rect *renderer.Mesh) {
	for _, m := range v.rect.Meshes {
		m.Destroy()
	}
	v.rect.Meshes = nil
	v.rect.AddMesh(rect)
}

// OnRender composes the frame with material into the width x height area at offset.
func (v *CompositionView) OnRender(material *renderer.Material, offset [2]int, width, height int) {
	b := v.backend
	b.BindFramebuffer(0)
	b.Viewport(offset[0], offset[1], width, height)
	b.ClearColor(0, 0, 0, 1)
	b.Clear(metadata.ClearColor | metadata.ClearDepth)

	ctx := renderer.NewRenderContext(b, ScreenCamera(width, height), v.node)
	v.rect.SetMaterial(material)
	v.rect.Draw(ctx)

	b.Clear(metadata.ClearDepth)
	for _, o := range v.overlays {
		o.overlay.Draw(ctx, o.x, o.y)
	}
}

func (v *CompositionView) OnDestroy() {
	v.rect.Destroy()
	v.overlays = nil
}
