package systems

import (
	"github.com/spaghettifunk/parallax/engine/assets"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/views"
	"github.com/spaghettifunk/parallax/engine/scene"
)

type SystemManagerConfig struct {
	// directory relative asset paths are resolved against
	AssetsDir string
	// reload materials, shaders and images when they change on disk
	Watch        bool
	Workers      int
	JobQueueSize int
	Light        LightConfig
	Compositor   views.CompositorConfig
}

func DefaultSystemManagerConfig() SystemManagerConfig {
	return SystemManagerConfig{
		AssetsDir:    ".",
		Workers:      4,
		JobQueueSize: 256,
		Light:        DefaultLight(),
		Compositor:   views.DefaultCompositorConfig(),
	}
}

/**
 * @brief Owns every system of the viewer and wires them together. All methods run on the
 * render thread.
 */
type SystemManager struct {
	jobSystem        *JobSystem
	assetManager     *assets.AssetManager
	shaderSystem     *ShaderSystem
	textureSystem    *TextureSystem
	fontSystem       *FontSystem
	materialSystem   *MaterialSystem
	meshLoaderSystem *MeshLoaderSystem
	sceneManager     *scene.Manager
	compositor       *views.Compositor
}

func NewSystemManager(b renderer.Backend, config SystemManagerConfig) (*SystemManager, error) {
	js, err := NewJobSystem(config.Workers, config.JobQueueSize)
	if err != nil {
		return nil, err
	}
	am, err := assets.NewAssetManager(config.AssetsDir)
	if err != nil {
		js.Shutdown()
		return nil, err
	}

	ss := NewShaderSystem(b, am)
	ts := NewTextureSystem(b, am, js)
	ms := NewMaterialSystem(b, ss, ts, am)
	ms.SetLight(config.Light)
	mls := NewMeshLoaderSystem(b, am, ms)
	sm := scene.NewManager(b)

	sys := &SystemManager{
		jobSystem:        js,
		assetManager:     am,
		shaderSystem:     ss,
		textureSystem:    ts,
		fontSystem:       NewFontSystem(am),
		materialSystem:   ms,
		meshLoaderSystem: mls,
		sceneManager:     sm,
	}

	c, err := views.NewCompositor(b, sm, ms, config.Compositor)
	if err != nil {
		sys.Shutdown()
		return nil, err
	}
	sys.compositor = c

	if config.Watch {
		if err := am.Watch(config.AssetsDir); err != nil {
			core.LogWarn("hot reload disabled: %s", err)
		}
	}
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, sys, sys.onAssetChanged)
	return sys, nil
}

func (sys *SystemManager) Jobs() *JobSystem              { return sys.jobSystem }
func (sys *SystemManager) Assets() *assets.AssetManager  { return sys.assetManager }
func (sys *SystemManager) Shaders() *ShaderSystem        { return sys.shaderSystem }
func (sys *SystemManager) Textures() *TextureSystem      { return sys.textureSystem }
func (sys *SystemManager) Fonts() *FontSystem            { return sys.fontSystem }
func (sys *SystemManager) Materials() *MaterialSystem    { return sys.materialSystem }
func (sys *SystemManager) Meshes() *MeshLoaderSystem     { return sys.meshLoaderSystem }
func (sys *SystemManager) Scene() *scene.Manager         { return sys.sceneManager }
func (sys *SystemManager) Compositor() *views.Compositor { return sys.compositor }

// LoadModel loads a model file below the world root.
func (sys *SystemManager) LoadModel(path string) ([]*scene.Node, error) {
	return sys.meshLoaderSystem.Load(path, sys.sceneManager.World())
}

// Update hands finished background work to the render thread: decoded images and file changes.
func (sys *SystemManager) Update() {
	sys.jobSystem.Update()
	core.EventDispatchPending()
}

func (sys *SystemManager) onAssetChanged(context core.EventContext) bool {
	ev, ok := context.Data.(core.AssetEvent)
	if !ok || ev.Removed {
		return false
	}
	if sys.materialSystem.Reload(ev.Path) {
		core.LogInfo("reloaded '%s'", ev.Path)
	}
	return false
}

// Shutdown stops the systems in reverse dependency order.
func (sys *SystemManager) Shutdown() error {
	core.EventUnregister(core.EVENT_CODE_ASSET_CHANGED, sys)
	if sys.compositor != nil {
		sys.compositor.Shutdown()
	}
	sys.sceneManager.Clear()
	if err := sys.meshLoaderSystem.Shutdown(); err != nil {
		return err
	}
	if err := sys.materialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sys.fontSystem.Shutdown(); err != nil {
		return err
	}
	if err := sys.shaderSystem.Shutdown(); err != nil {
		return err
	}
	if err := sys.textureSystem.Shutdown(); err != nil {
		return err
	}
	if err := sys.jobSystem.Shutdown(); err != nil {
		return err
	}
	return sys.assetManager.Shutdown()
}
