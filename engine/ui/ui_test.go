package ui

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/assets"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/renderer/recorder"
	"github.com/spaghettifunk/parallax/engine/renderer/views"
	"github.com/spaghettifunk/parallax/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
)

var white = color.RGBA{255, 255, 255, 255}

func textMaterial(t *testing.T, b *recorder.Backend) *renderer.Material {
	t.Helper()
	am, err := assets.NewAssetManager(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = am.Shutdown() })
	js, err := systems.NewJobSystem(1, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = js.Shutdown() })

	ms := systems.NewMaterialSystem(b, systems.NewShaderSystem(b, am), systems.NewTextureSystem(b, am, js), am)
	m, err := ms.Create("text")
	require.NoError(t, err)
	return m
}

func screenContext(b *recorder.Backend) *renderer.RenderContext {
	return renderer.NewRenderContext(b, views.ScreenCamera(640, 480), nil)
}

func drawnAt(t *testing.T, d recorder.DrawCall) mgl32.Vec3 {
	t.Helper()
	mvp, ok := d.Uniforms["MVP"].(mgl32.Mat4)
	require.True(t, ok)
	cam := views.ScreenCamera(640, 480)
	model := cam.Matrix().Inv().Mul4(mvp)
	return model.Col(3).Vec3()
}

func defaultFont() *systems.FontSystem {
	return systems.NewFontSystem(nil)
}

func TestRasterizeMeasuresLines(t *testing.T) {
	font := defaultFont().Default()
	require.Equal(t, 13, font.LineHeight)

	img := Rasterize(font, "ab\nc", white)
	assert.Equal(t, 14, img.Bounds().Dx())
	assert.Equal(t, 26, img.Bounds().Dy())

	covered := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			covered++
		}
	}
	assert.Positive(t, covered)

	// runes missing from the font advance by half a line
	assert.Equal(t, 7+6, Rasterize(font, "aé", white).Bounds().Dx())
}

func TestRasterizeAppliesKerning(t *testing.T) {
	font := systems.BuildBitmapFont(basicfont.Face7x13, "kerned", 'A', 'Z')
	font.Kernings[metadata.KerningPair{First: 'A', Second: 'V'}] = -2

	assert.Equal(t, 12, Rasterize(font, "AV", white).Bounds().Dx())
	assert.Equal(t, 14, Rasterize(font, "VA", white).Bounds().Dx())
}

func TestTextSurfaceUploadsOnlyOnChange(t *testing.T) {
	b := recorder.New()
	s := NewTextSurface(b, defaultFont().Default(), textMaterial(t, b))
	defer s.Destroy()
	ctx := screenContext(b)

	s.SetText("hi")
	s.Draw(ctx, 10, 20)
	require.Len(t, b.Draws, 1)
	assert.Equal(t, "text", b.Draws[0].ProgramName)
	assert.True(t, drawnAt(t, b.Draws[0]).ApproxEqualThreshold(mgl32.Vec3{10, 20, 0}, 1e-3))

	w, h := s.Size()
	assert.Equal(t, 14, w)
	assert.Equal(t, 13, h)
	tex, ok := b.Texture(b.Draws[0].State.Textures[0])
	require.True(t, ok)
	assert.Equal(t, 14, tex.Width)
	buffers := b.LiveBuffers()

	s.SetText("hi")
	s.Draw(ctx, 10, 20)
	assert.Len(t, b.Draws, 2)
	assert.Equal(t, buffers, b.LiveBuffers())

	s.SetText("longer")
	s.Draw(ctx, 0, 0)
	w, _ = s.Size()
	assert.Equal(t, 42, w)
	assert.Equal(t, 42, tex.Width)

	s.SetText("")
	s.Draw(ctx, 0, 0)
	assert.Len(t, b.Draws, 3)
}

func TestMenuNavigation(t *testing.T) {
	b := recorder.New()
	m := NewMenu(NewTextSurface(b, defaultFont().Default(), textMaterial(t, b)))
	defer m.Destroy()

	shadows := true
	m.Add(MenuItem{Label: "mode", Value: func() string { return "none" }})
	m.Add(MenuItem{
		Label:    "shadows",
		Value:    func() string { return map[bool]string{true: "on", false: "off"}[shadows] },
		Activate: func() { shadows = !shadows },
	})

	assert.False(t, m.HandleKey(core.KEY_DOWN))
	m.Draw(screenContext(b), 0, 0)
	assert.Empty(t, b.Draws)

	assert.True(t, m.HandleKey(core.KEY_TAB))
	assert.True(t, m.Visible())
	assert.Equal(t, []string{"> mode: none", "  shadows: on"}, m.Lines())

	assert.True(t, m.HandleKey(core.KEY_UP))
	assert.Equal(t, 1, m.Selected())
	assert.True(t, m.HandleKey(core.KEY_ENTER))
	assert.False(t, shadows)
	assert.Equal(t, []string{"  mode: none", "> shadows: off"}, m.Lines())

	assert.True(t, m.HandleKey(core.KEY_DOWN))
	assert.Equal(t, 0, m.Selected())
	assert.False(t, m.HandleKey(core.KEY_ESCAPE))

	m.Draw(screenContext(b), 5, 5)
	assert.Len(t, b.Draws, 1)
}

type fixedTracker struct {
	orientation mgl32.Quat
	connected   bool
}

func (ft *fixedTracker) Snapshot() (mgl32.Quat, bool) {
	return ft.orientation, ft.connected
}

func TestPointerFollowsTheTracker(t *testing.T) {
	b := recorder.New()
	tracker := &fixedTracker{orientation: mgl32.QuatIdent()}
	p := NewPointer(b, tracker, textMaterial(t, b), 8)
	defer p.Destroy()
	ctx := screenContext(b)

	p.Draw(ctx, 320, 240)
	assert.Empty(t, b.Draws)

	tracker.connected = true
	p.Draw(ctx, 320, 240)
	require.Len(t, b.Draws, 1)
	assert.True(t, drawnAt(t, b.Draws[0]).ApproxEqualThreshold(mgl32.Vec3{320, 240, 0}, 1e-3))

	tracker.orientation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	dx, dy := p.Offset(tracker.orientation)
	assert.InDelta(t, -p.Travel, dx, 1e-3)
	assert.InDelta(t, 0, dy, 1e-3)

	tracker.orientation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0})
	_, dy = p.Offset(tracker.orientation)
	assert.InDelta(t, -p.Travel, dy, 1e-3)
}
