package views

import (
	"fmt"
	"image"
	"image/color"

	"github.com/spaghettifunk/parallax/engine/assets/loaders"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/scene"
	"golang.org/x/image/draw"
)

// MaterialSource hands out shared materials by name ("depth") and builds unshared ones
// ("composite_<mode>").
type MaterialSource interface {
	Get(name string) (*renderer.Material, error)
	Create(name string) (*renderer.Material, error)
}

type CompositorConfig struct {
	Width      int
	Height     int
	Samples    int
	ShadowSize int
	Mode       metadata.StereoMode
	Shadows    bool
	// lower left corner of the composed image in the window, in pixels
	ViewportOffset [2]int
}

func DefaultCompositorConfig() CompositorConfig {
	return CompositorConfig{
		Width:      1280,
		Height:     720,
		Samples:    renderer.DefaultSamples,
		ShadowSize: 1024,
		Mode:       metadata.StereoModeNone,
		Shadows:    true,
	}
}

// FrameStats reports what one frame drew.
type FrameStats struct {
	ShadowCasters int
	Models        int
	Eyes          int
}

// eyeTargets are the size dependent objects, swapped together on reshape.
type eyeTargets struct {
	width        int
	height       int
	targets      [2]*renderer.RenderTarget
	framebuffers [2]*renderer.Framebuffer
	rect         *renderer.Mesh
}

func (t *eyeTargets) destroy() {
	for i := range t.targets {
		t.targets[i].Destroy()
		t.framebuffers[i].Destroy()
	}
}

/**
 * @brief Runs the frame: shadow pass, one geometry pass per eye and the composition pass,
 * strictly in that order on the render thread.
 */
type Compositor struct {
	Camera StereoCamera

	backend   renderer.Backend
	scene     *scene.Manager
	materials MaterialSource
	tracker   OrientationSource
	config    CompositorConfig

	shadowState *renderer.ShadowState
	shadow      *ShadowView
	world       *WorldView
	composition *CompositionView
	composites  [metadata.StereoModeCount]*renderer.Material
	targets     *eyeTargets

	mode                metadata.StereoMode
	shadows             bool
	calibration         bool
	calibrationTextures [2]*renderer.Texture
}

func NewCompositor(b renderer.Backend, sm *scene.Manager, materials MaterialSource, config CompositorConfig) (*Compositor, error) {
	if config.Samples <= 0 {
		config.Samples = renderer.DefaultSamples
	}
	if config.ShadowSize <= 0 {
		return nil, fmt.Errorf("shadow map size %d: %w", config.ShadowSize, core.ErrInvalidConfig)
	}

	depth, err := materials.Get("depth")
	if err != nil {
		return nil, err
	}

	c := &Compositor{
		Camera:      DefaultStereoCamera(),
		backend:     b,
		scene:       sm,
		materials:   materials,
		config:      config,
		shadowState: renderer.NewShadowState(),
		world:       NewWorldView(b, sm),
		composition: NewCompositionView(b),
		mode:        config.Mode,
		shadows:     config.Shadows,
	}
	for mode := metadata.StereoModeNone; mode < metadata.StereoModeCount; mode++ {
		m, err := materials.Create("composite_" + mode.String())
		if err != nil {
			c.releaseComposites()
			return nil, err
		}
		c.composites[mode] = m
	}
	depthView := c.composites[metadata.StereoModeDepth]
	depthView.Uniforms.SetComputed("near", "camera near", func(*renderer.RenderContext) interface{} {
		return c.Camera.Near
	})
	depthView.Uniforms.SetComputed("far", "camera far", func(*renderer.RenderContext) interface{} {
		return c.Camera.Far
	})

	sm.SetShadow(c.shadowState)
	c.shadow = NewShadowView(b, sm, depth, c.shadowState, config.ShadowSize)
	c.calibrationTextures[0] = calibrationTexture(b, "calibration_left", color.RGBA{255, 64, 64, 255})
	c.calibrationTextures[1] = calibrationTexture(b, "calibration_right", color.RGBA{64, 160, 255, 255})

	if err := c.Reshape(config.Width, config.Height); err != nil {
		c.Shutdown()
		return nil, err
	}
	return c, nil
}

// SetTracker installs the head tracker consulted by the geometry passes; nil removes it.
func (c *Compositor) SetTracker(t OrientationSource) {
	c.tracker = t
}

func (c *Compositor) AddOverlay(o Overlay, x, y float32) {
	c.composition.AddOverlay(o, x, y)
}

func (c *Compositor) Light() *LightCamera {
	return &c.shadow.Light
}

func (c *Compositor) ShadowState() *renderer.ShadowState {
	return c.shadowState
}

func (c *Compositor) Size() (int, int) {
	return c.targets.width, c.targets.height
}

func (c *Compositor) StereoMode() metadata.StereoMode {
	return c.mode
}

func (c *Compositor) SetStereoMode(mode metadata.StereoMode) {
	if mode < 0 || mode >= metadata.StereoModeCount {
		core.LogWarn("ignoring unknown stereo mode %d", mode)
		return
	}
	c.mode = mode
}

// ToggleStereoMode advances to the next stereo mode, wrapping to none.
func (c *Compositor) ToggleStereoMode() metadata.StereoMode {
	c.mode = c.mode.Next()
	core.LogInfo("stereo mode: %s", c.mode)
	return c.mode
}

func (c *Compositor) ShadowsEnabled() bool {
	return c.shadows
}

func (c *Compositor) ToggleShadows() bool {
	c.shadows = !c.shadows
	return c.shadows
}

func (c *Compositor) CalibrationEnabled() bool {
	return c.calibration
}

func (c *Compositor) ToggleCalibration() bool {
	c.calibration = !c.calibration
	return c.calibration
}

/**
 * @brief Resizes every size dependent object. All new render targets and framebuffers are
 * created before any old one is released, then swapped in together. Incomplete framebuffers
 * are logged and used anyway.
 */
func (c *Compositor) Reshape(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("reshape to %dx%d: %w", width, height, core.ErrInvalidConfig)
	}
	core.LogInfo("reshape(%d, %d)", width, height)

	next := &eyeTargets{width: width, height: height}
	for i := range next.targets {
		rt, err := renderer.NewRenderTarget(c.backend, fmt.Sprintf("eye%d.msaa", i), width, height, c.config.Samples)
		if err != nil {
			core.LogError("%s", err)
		}
		fb, err := renderer.NewFramebuffer(c.backend, fmt.Sprintf("eye%d", i), width, height)
		if err != nil {
			core.LogError("%s", err)
		}
		next.targets[i] = rt
		next.framebuffers[i] = fb
	}
	next.rect = renderer.CreateRect(c.backend, 0, 0, float32(width), float32(height), -20)

	previous := c.targets
	c.targets = next
	c.composition.OnResize(next.rect)
	if previous != nil {
		// the old eye textures die with their framebuffers only once no composite holds them
		c.unbindComposites()
		c.bindComposite(c.composites[c.mode])
		previous.destroy()
	}
	core.AssertGPU(c.backend, "reshape")
	return nil
}

// bindComposite binds the eye images (or the calibration pair) the material of the current mode samples.
func (c *Compositor) bindComposite(m *renderer.Material) {
	left, right := c.targets.framebuffers[0].Color, c.targets.framebuffers[1].Color
	if c.mode == metadata.StereoModeDepth {
		left = c.targets.framebuffers[0].Depth
	}
	if c.calibration {
		left, right = c.calibrationTextures[0], c.calibrationTextures[1]
	}
	m.SetTexture(0, left)
	if usesRightEye(c.mode) {
		m.SetTexture(1, right)
	}
}

func (c *Compositor) unbindComposites() {
	for _, m := range c.composites {
		if m == nil {
			continue
		}
		m.ClearTexture(0)
		m.ClearTexture(1)
	}
}

func (c *Compositor) releaseComposites() {
	for i, m := range c.composites {
		if m != nil {
			m.Release()
			c.composites[i] = nil
		}
	}
}

func usesRightEye(mode metadata.StereoMode) bool {
	switch mode {
	case metadata.StereoModeCrossEye, metadata.StereoModeCybermaxx, metadata.StereoModeAnaglyph:
		return true
	}
	return false
}

// Render draws one frame into the default framebuffer.
func (c *Compositor) Render() FrameStats {
	var stats FrameStats
	t := c.targets

	if c.shadows {
		stats.ShadowCasters = c.shadow.OnRender()
	} else {
		c.shadow.Disable()
	}

	aspect := float32(t.width) / float32(t.height)
	eyes := []metadata.StereoEye{metadata.StereoEyeCenter}
	if c.mode.IsStereo() {
		eyes = []metadata.StereoEye{metadata.StereoEyeLeft, metadata.StereoEyeRight}
	}
	for i, eye := range eyes {
		cam := c.Camera.Camera(eye, aspect, c.tracker)
		stats.Models += c.world.OnRender(cam, eye, t.targets[i], t.framebuffers[i])
	}
	stats.Eyes = len(eyes)

	material := c.composites[c.mode]
	c.bindComposite(material)
	c.composition.OnRender(material, c.config.ViewportOffset, t.width, t.height)

	core.AssertGPU(c.backend, "frame")
	return stats
}

// Shutdown releases every GPU object the compositor created.
func (c *Compositor) Shutdown() {
	c.releaseComposites()
	if c.targets != nil {
		c.targets.destroy()
		c.targets = nil
	}
	c.composition.OnDestroy()
	c.shadow.OnDestroy()
	for _, t := range c.calibrationTextures {
		if t != nil {
			t.Release()
		}
	}
}

// calibrationTexture draws a grid with a center cross, used to line up stereo displays.
func calibrationTexture(b renderer.Backend, name string, tint color.RGBA) *renderer.Texture {
	const size = 256
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{0, 0, 0, 255}}, image.Point{}, draw.Src)

	line := &image.Uniform{C: tint}
	for i := 0; i <= size; i += size / 8 {
		draw.Draw(img, image.Rect(i-1, 0, i+1, size), line, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(0, i-1, size, i+1), line, image.Point{}, draw.Src)
	}
	white := &image.Uniform{C: color.RGBA{255, 255, 255, 255}}
	draw.Draw(img, image.Rect(size/2-3, size/4, size/2+3, size*3/4), white, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(size/4, size/2-3, size*3/4, size/2+3), white, image.Point{}, draw.Src)

	data := loaders.ImageData(img, false)
	return renderer.NewTexture(b, name, int(data.Width), int(data.Height), metadata.TextureFormatRGBA8, data.Pixels)
}
