package ui

import (
	"image"
	"image/color"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/assets/loaders"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/scene"
	"golang.org/x/image/draw"
)

// depth of overlay quads, in front of the composition rect
const overlayDepth = -10

/**
 * @brief Draws text into a new RGBA image with the glyph pages of font used as alpha masks.
 * Lines are separated by '\n'. Runes missing from the font advance by half a line height.
 */
func Rasterize(font *metadata.BitmapFontResourceData, text string, tint color.Color) *image.RGBA {
	lines := strings.Split(text, "\n")
	width := 0
	for _, line := range lines {
		if w := measure(font, line); w > width {
			width = w
		}
	}
	img := image.NewRGBA(image.Rect(0, 0, width, len(lines)*font.LineHeight))
	src := &image.Uniform{C: tint}

	for i, line := range lines {
		top := i * font.LineHeight
		pen := 0
		var prev rune
		for _, r := range line {
			g, ok := font.Glyphs[r]
			if !ok {
				pen += font.LineHeight / 2
				prev = 0
				continue
			}
			pen += font.Kernings[metadata.KerningPair{First: prev, Second: r}]
			if page, ok := font.Pages[g.PageID]; ok {
				dst := image.Rect(pen+g.XOffset, top+g.YOffset, pen+g.XOffset+g.Width, top+g.YOffset+g.Height)
				draw.DrawMask(img, dst, src, image.Point{}, page, image.Pt(g.X, g.Y), draw.Over)
			}
			pen += g.XAdvance
			prev = r
		}
	}
	return img
}

func measure(font *metadata.BitmapFontResourceData, line string) int {
	pen := 0
	var prev rune
	for _, r := range line {
		g, ok := font.Glyphs[r]
		if !ok {
			pen += font.LineHeight / 2
			prev = 0
			continue
		}
		pen += font.Kernings[metadata.KerningPair{First: prev, Second: r}] + g.XAdvance
		prev = r
	}
	return pen
}

/**
 * @brief A string rendered with a bitmap font into a texture and drawn as a screen quad.
 * The text is rasterized again only when it changes.
 */
type TextSurface struct {
	Color color.RGBA

	backend  renderer.Backend
	font     *metadata.BitmapFontResourceData
	material *renderer.Material
	texture  *renderer.Texture
	model    *renderer.Model
	node     *scene.Node

	text          string
	dirty         bool
	width, height int
}

// NewTextSurface takes ownership of material, normally a fresh "text" material.
func NewTextSurface(b renderer.Backend, font *metadata.BitmapFontResourceData, material *renderer.Material) *TextSurface {
	s := &TextSurface{
		Color:    color.RGBA{255, 255, 255, 255},
		backend:  b,
		font:     font,
		material: material,
		model:    renderer.NewModel("text"),
		node:     scene.NewNode("text"),
	}
	s.model.SetMaterial(material)
	return s
}

func (s *TextSurface) SetText(text string) {
	if text == s.text && s.texture != nil {
		return
	}
	s.text = text
	s.dirty = true
}

func (s *TextSurface) Text() string {
	return s.text
}

// Size is the size of the rendered text in pixels, valid after the first Draw.
func (s *TextSurface) Size() (int, int) {
	return s.width, s.height
}

func (s *TextSurface) upload() {
	s.dirty = false
	img := Rasterize(s.font, s.text, s.Color)
	data := loaders.ImageData(img, true)
	w, h := int(data.Width), int(data.Height)

	if s.texture == nil {
		s.texture = renderer.NewTexture(s.backend, "text", w, h, metadata.TextureFormatRGBA8, data.Pixels)
		s.material.SetTexture(0, s.texture)
	} else {
		s.texture.Update(w, h, data.Pixels)
	}

	if w != s.width || h != s.height || len(s.model.Meshes) == 0 {
		for _, m := range s.model.Meshes {
			m.Destroy()
		}
		s.model.Meshes = nil
		if w > 0 && h > 0 {
			s.model.AddMesh(renderer.CreateRect(s.backend, 0, 0, float32(w), float32(h), overlayDepth))
		}
	}
	s.width, s.height = w, h
}

// Draw draws the text with its top left corner at x, y.
func (s *TextSurface) Draw(ctx *renderer.RenderContext, x, y float32) {
	if s.dirty {
		s.upload()
	}
	if s.text == "" || len(s.model.Meshes) == 0 {
		return
	}
	drawAt(ctx, s.node, s.model, x, y)
}

func (s *TextSurface) Destroy() {
	s.model.Destroy()
	s.material.Release()
	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
}

// drawAt draws model translated to x, y and restores the node of ctx.
func drawAt(ctx *renderer.RenderContext, node *scene.Node, model *renderer.Model, x, y float32) {
	node.SetPosition(mgl32.Vec3{x, y, 0})
	node.UpdateTransform(ctx.ModelMatrix())

	previous := ctx.Node()
	ctx.SetNode(node)
	if !model.Draw(ctx) {
		core.LogDebug("overlay '%s' not drawn", model.Name)
	}
	ctx.SetNode(previous)
}
