package engine

// Game is the application driven by the engine. Every hook is optional.
type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

// Initialize runs once all systems exist, before the first frame.
type Initialize func(e *Engine) error

// Update runs every frame before the frame is rendered.
type Update func(e *Engine, deltaTime float64) error
type OnResize func(width, height int) error
type Shutdown func() error
