package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/devices"
	"github.com/spaghettifunk/parallax/engine/math"
	"github.com/spaghettifunk/parallax/engine/platform"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/opengl"
	"github.com/spaghettifunk/parallax/engine/renderer/recorder"
	"github.com/spaghettifunk/parallax/engine/systems"
	"github.com/spaghettifunk/parallax/engine/ui"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

const (
	eyeDistanceStep  float32 = 0.005
	maxEyeDistance   float32 = 1
	convergenceScale float32 = 1.1
	minConvergence   float32 = 0.01
	maxConvergence   float32 = 1000
	pointerSize              = 12
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *ApplicationConfig
	isRunning     bool
	isSuspended   bool
	platform      *platform.Platform
	backend       renderer.Backend
	systemManager *systems.SystemManager
	tracker       *devices.Tracker
	width         int
	height        int
	clock         *core.Clock
	metrics       *core.FrameMetrics
	lastTime      float64

	status  *ui.TextSurface
	menu    *ui.Menu
	pointer *ui.Pointer

	// frames to render without a window, 0 when windowed
	headlessFrames int
	frameCount     int
	drawCalls      int
}

func newEngine(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	if err := g.ApplicationConfig.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       g.ApplicationConfig,
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		width:        g.ApplicationConfig.Window.Width,
		height:       g.ApplicationConfig.Window.Height,
	}, nil
}

// New creates an engine drawing into a window with OpenGL.
func New(g *Game) (*Engine, error) {
	return newEngine(g)
}

// NewHeadless creates an engine that renders frames with the recording backend and then stops.
func NewHeadless(g *Game, frames int) (*Engine, error) {
	if frames <= 0 {
		return nil, fmt.Errorf("headless frame count %d: %w", frames, core.ErrInvalidConfig)
	}
	e, err := newEngine(g)
	if err != nil {
		return nil, err
	}
	e.headlessFrames = frames
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	level, err := core.ParseLogLevel(e.config.LogLevel)
	if err != nil {
		return err
	}
	core.SetLogLevel(level)

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}

	// initialize events
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventRegister(core.EVENT_CODE_TRACKER_STATE, e, e.onTrackerState)

	if err := e.startBackend(); err != nil {
		return err
	}

	sc := e.config.SystemConfig()
	sc.Compositor.Width, sc.Compositor.Height = e.width, e.height
	sm, err := systems.NewSystemManager(e.backend, sc)
	if err != nil {
		return err
	}
	e.systemManager = sm

	c := sm.Compositor()
	c.Camera = e.config.StereoCamera()
	*c.Light() = e.config.LightCamera()
	if e.config.Stereo.Calibration {
		c.ToggleCalibration()
	}

	if e.config.Tracker.Addr != "" {
		tr := devices.NewTracker()
		if err := tr.Start(e.config.Tracker.Addr); err != nil {
			return fmt.Errorf("head tracker: %w", err)
		}
		e.tracker = tr
		c.SetTracker(tr)
		core.LogInfo("head tracker listening on ws://%s/", tr.Addr())
	}

	if err := e.createOverlays(); err != nil {
		return err
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) startBackend() error {
	if e.headlessFrames > 0 {
		rec := recorder.New()
		rec.DefaultWidth, rec.DefaultHeight = e.width, e.height
		e.backend = rec
		return nil
	}

	p := platform.New()
	w := e.config.Window
	if err := p.Startup(w.Title, w.PosX, w.PosY, w.Width, w.Height); err != nil {
		return err
	}
	e.platform = p

	b, err := opengl.New()
	if err != nil {
		return err
	}
	e.backend = b
	// HiDPI screens have more pixels than the window size
	e.width, e.height = p.FramebufferSize()
	return nil
}

func (e *Engine) createOverlays() error {
	sys := e.systemManager
	c := sys.Compositor()

	font, err := sys.Fonts().Acquire(e.config.Font)
	if err != nil {
		core.LogWarn("font '%s' not loaded, using the built-in one: %s", e.config.Font, err)
		font = sys.Fonts().Default()
	}

	statusMaterial, err := sys.Materials().Create("text")
	if err != nil {
		return err
	}
	e.status = ui.NewTextSurface(e.backend, font, statusMaterial)
	c.AddOverlay(e.status, 10, 10)

	menuMaterial, err := sys.Materials().Create("text")
	if err != nil {
		return err
	}
	e.menu = ui.NewMenu(ui.NewTextSurface(e.backend, font, menuMaterial))
	e.menu.Add(ui.MenuItem{
		Label:    "stereo mode",
		Value:    func() string { return c.StereoMode().String() },
		Activate: func() { c.ToggleStereoMode() },
	})
	e.menu.Add(ui.MenuItem{
		Label:    "shadows",
		Value:    func() string { return onOff(c.ShadowsEnabled()) },
		Activate: func() { c.ToggleShadows() },
	})
	e.menu.Add(ui.MenuItem{
		Label:    "calibration",
		Value:    func() string { return onOff(c.CalibrationEnabled()) },
		Activate: func() { c.ToggleCalibration() },
	})
	e.menu.Add(ui.MenuItem{
		Label:    "eye distance",
		Value:    func() string { return fmt.Sprintf("%.3f", c.Camera.EyeDistance) },
		Activate: func() { c.Camera.EyeDistance = e.config.Camera.EyeDistance },
	})
	e.menu.Add(ui.MenuItem{
		Label:    "convergence",
		Value:    func() string { return fmt.Sprintf("%.2f", c.Camera.Convergence) },
		Activate: func() { c.Camera.Convergence = e.config.Camera.Convergence },
	})
	c.AddOverlay(e.menu, 10, 10+float32(2*font.LineHeight))

	if e.tracker != nil {
		e.menu.Add(ui.MenuItem{
			Label: "tracker",
			Value: func() string {
				_, ok := e.tracker.Snapshot()
				return map[bool]string{true: "connected", false: "waiting"}[ok]
			},
		})

		pointerMaterial, err := sys.Materials().Create("text")
		if err != nil {
			return err
		}
		e.pointer = ui.NewPointer(e.backend, e.tracker, pointerMaterial, pointerSize)
		c.AddOverlay(overlayFunc(func(ctx *renderer.RenderContext, _, _ float32) {
			w, h := c.Size()
			e.pointer.Draw(ctx, float32(w)/2, float32(h)/2)
		}), 0, 0)
	}
	return nil
}

// overlayFunc adapts a function to the compositor overlays.
type overlayFunc func(ctx *renderer.RenderContext, x, y float32)

func (f overlayFunc) Draw(ctx *renderer.RenderContext, x, y float32) {
	f(ctx, x, y)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning = true

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		if e.isSuspended {
			// keep delivering events so a restore can resume the loop
			e.systemManager.Update()
			time.Sleep(10 * time.Millisecond)
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if err := e.frame(delta); err != nil {
			core.LogError("frame failed, shutting down: %s", err)
			e.isRunning = false
			return err
		}

		e.clock.Update()
		e.metrics.Update(e.clock.Elapsed() - currentTime)
		e.lastTime = currentTime

		if e.headlessFrames > 0 && e.frameCount >= e.headlessFrames {
			core.LogInfo("rendered %d frames headless, %d draw calls", e.frameCount, e.drawCalls)
			e.isRunning = false
		}
	}
	return nil
}

// frame advances and renders one frame.
func (e *Engine) frame(delta float64) error {
	e.systemManager.Update()
	e.applyHeldKeys(float32(delta))

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(e, delta); err != nil {
			return err
		}
	}

	c := e.systemManager.Compositor()
	e.status.SetText(fmt.Sprintf("%s  %.0f fps", c.StereoMode(), e.metrics.FPS()))

	if rec, ok := e.backend.(*recorder.Backend); ok {
		rec.Reset()
	}
	stats := c.Render()
	if rec, ok := e.backend.(*recorder.Backend); ok {
		e.drawCalls += len(rec.Draws)
	}
	if e.platform != nil {
		e.platform.SwapBuffers()
	}
	if e.frameCount == 0 {
		core.LogDebug("first frame: %d eyes, %d models, %d shadow casters", stats.Eyes, stats.Models, stats.ShadowCasters)
	}
	e.frameCount++

	// NOTE: Input update/state copying should always be handled
	// after any input should be recorded; I.E. before this line.
	// As a safety, input is the last thing to be updated before
	// this frame ends.
	return core.InputUpdate(delta)
}

// applyHeldKeys moves the camera and the light while their keys are held.
func (e *Engine) applyHeldKeys(dt float32) {
	c := e.systemManager.Compositor()
	cam := &c.Camera
	move := e.config.Camera.MoveSpeed * dt
	turn := mgl32.DegToRad(e.config.Camera.TurnSpeed) * dt

	if core.InputIsKeyDown(core.KEY_W) {
		cam.DistanceOffset += move
	}
	if core.InputIsKeyDown(core.KEY_S) {
		cam.DistanceOffset -= move
	}
	side := math.SafeNormalize(cam.Look.Cross(cam.Up))
	if core.InputIsKeyDown(core.KEY_A) {
		cam.Eye = cam.Eye.Sub(side.Mul(move))
	}
	if core.InputIsKeyDown(core.KEY_D) {
		cam.Eye = cam.Eye.Add(side.Mul(move))
	}
	if core.InputIsKeyDown(core.KEY_PAGE_UP) {
		cam.Eye = cam.Eye.Add(math.SafeNormalize(cam.Up).Mul(move))
	}
	if core.InputIsKeyDown(core.KEY_PAGE_DOWN) {
		cam.Eye = cam.Eye.Sub(math.SafeNormalize(cam.Up).Mul(move))
	}
	if core.InputIsKeyDown(core.KEY_Q) {
		cam.Roll -= turn
	}
	if core.InputIsKeyDown(core.KEY_E) {
		cam.Roll += turn
	}
	if core.InputIsKeyDown(core.KEY_Z) {
		c.Light().Angle += turn
	}

	// the arrows belong to the menu while it is open
	if e.menu != nil && e.menu.Visible() {
		return
	}
	if core.InputIsKeyDown(core.KEY_LEFT) {
		cam.Yaw += turn
	}
	if core.InputIsKeyDown(core.KEY_RIGHT) {
		cam.Yaw -= turn
	}
	if core.InputIsKeyDown(core.KEY_UP) {
		cam.Pitch += turn
	}
	if core.InputIsKeyDown(core.KEY_DOWN) {
		cam.Pitch -= turn
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError(err.Error())
		}
	}
	if e.status != nil {
		e.status.Destroy()
	}
	if e.menu != nil {
		e.menu.Destroy()
	}
	if e.pointer != nil {
		e.pointer.Destroy()
	}
	if e.tracker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := e.tracker.Shutdown(ctx); err != nil {
			core.LogWarn("head tracker shutdown: %s", err)
		}
		cancel()
	}
	if e.systemManager != nil {
		if err := e.systemManager.Shutdown(); err != nil {
			return err
		}
	}
	if b, ok := e.backend.(*opengl.Backend); ok {
		b.Shutdown()
	}
	if e.platform != nil {
		if err := e.platform.Shutdown(); err != nil {
			return err
		}
	}
	for _, code := range []core.EventCode{core.EVENT_CODE_APPLICATION_QUIT, core.EVENT_CODE_KEY_PRESSED, core.EVENT_CODE_RESIZED, core.EVENT_CODE_TRACKER_STATE} {
		core.EventUnregister(code, e)
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	return core.InputShutdown()
}

func (e *Engine) Config() *ApplicationConfig {
	return e.config
}

func (e *Engine) Systems() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Backend() renderer.Backend {
	return e.backend
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) IsRunning() bool {
	return e.isRunning
}

// GetFramebufferSize returns the width and height (in this order) of the drawable area.
func (e *Engine) GetFramebufferSize() (int, int) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if e.menu != nil && e.menu.HandleKey(ke.KeyCode) {
		return true
	}

	c := e.systemManager.Compositor()
	cam := &c.Camera
	switch ke.KeyCode {
	case core.KEY_ESCAPE:
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	case core.KEY_F1:
		c.ToggleStereoMode()
	case core.KEY_F2:
		core.LogInfo("shadows %s", onOff(c.ToggleShadows()))
	case core.KEY_F3:
		core.LogInfo("calibration %s", onOff(c.ToggleCalibration()))
	case core.KEY_PLUS:
		cam.EyeDistance = math.Clamp(cam.EyeDistance+eyeDistanceStep, 0, maxEyeDistance)
		core.LogDebug("eye distance %.3f", cam.EyeDistance)
	case core.KEY_MINUS:
		cam.EyeDistance = math.Clamp(cam.EyeDistance-eyeDistanceStep, 0, maxEyeDistance)
		core.LogDebug("eye distance %.3f", cam.EyeDistance)
	case core.KEY_PERIOD:
		cam.Convergence = math.Clamp(cam.Convergence*convergenceScale, minConvergence, maxConvergence)
		core.LogDebug("convergence %.2f", cam.Convergence)
	case core.KEY_COMMA:
		cam.Convergence = math.Clamp(cam.Convergence/convergenceScale, minConvergence, maxConvergence)
		core.LogDebug("convergence %.2f", cam.Convergence)
	case core.KEY_R:
		cam.Yaw, cam.Pitch, cam.Roll, cam.DistanceOffset = 0, 0, 0, 0
	default:
		return false
	}
	return true
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	width, height := int(se.WindowWidth), int(se.WindowHeight)
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if err := e.systemManager.Compositor().Reshape(width, height); err != nil {
		core.LogError(err.Error())
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	return true
}

func (e *Engine) onTrackerState(context core.EventContext) bool {
	if connected, ok := context.Data.(bool); ok {
		if connected {
			core.LogInfo("head tracker connected")
		} else {
			core.LogInfo("head tracker disconnected")
		}
	}
	return false
}
