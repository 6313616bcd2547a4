/*
The viewer application: loads one model into the scene and lets the engine present it.
*/
package testbed

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/views"
	"github.com/spaghettifunk/parallax/engine/scene"
)

const skyboxSize = 500

type ViewerOptions struct {
	// model file, .scene/.txt or .gltf/.glb; empty shows an empty scene
	ModelPath string
	// image drawn on the inside of a cube around the camera, empty for none
	SkyboxPath string
	// degrees per second the model turns around Y
	Spin float32
}

type viewerState struct {
	options ViewerOptions
	roots   []*scene.Node
	sky     *renderer.Material
}

type Viewer struct {
	*engine.Game
}

func NewViewer(config *engine.ApplicationConfig, options ViewerOptions) *Viewer {
	v := &Viewer{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &viewerState{options: options},
		},
	}
	v.FnInitialize = v.Initialize
	v.FnUpdate = v.Update
	v.FnShutdown = v.Shutdown
	return v
}

func (v *Viewer) state() *viewerState {
	return v.State.(*viewerState)
}

func (v *Viewer) Initialize(e *engine.Engine) error {
	state := v.state()
	sys := e.Systems()

	if state.options.SkyboxPath != "" {
		sky, err := sys.Materials().Create("skybox")
		if err != nil {
			return err
		}
		sky.SetTexture(0, sys.Textures().Acquire(state.options.SkyboxPath))
		state.sky = sky
		if _, _, err := views.NewSkybox(e.Backend(), sys.Scene().View(), sky, skyboxSize); err != nil {
			return err
		}
	}

	if state.options.ModelPath == "" {
		core.LogWarn("no model given, showing an empty scene")
		return nil
	}
	roots, err := sys.LoadModel(state.options.ModelPath)
	if err != nil {
		return err
	}
	state.roots = roots
	core.LogInfo("loaded '%s': %d root objects", state.options.ModelPath, len(roots))
	return nil
}

func (v *Viewer) Update(e *engine.Engine, deltaTime float64) error {
	state := v.state()
	if state.options.Spin == 0 {
		return nil
	}
	turn := mgl32.QuatRotate(mgl32.DegToRad(state.options.Spin)*float32(deltaTime), mgl32.Vec3{0, 1, 0})
	for _, n := range state.roots {
		n.SetOrientation(turn.Mul(n.Orientation).Normalize())
	}
	return nil
}

// Shutdown releases what the viewer created; the scene itself is cleared by the engine.
func (v *Viewer) Shutdown() error {
	state := v.state()
	if state.sky != nil {
		state.sky.Release()
		state.sky = nil
	}
	return nil
}
