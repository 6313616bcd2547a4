package systems

import (
	"github.com/spaghettifunk/parallax/engine/assets"
	"github.com/spaghettifunk/parallax/engine/assets/loaders"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

/** @brief The name of the default texture. */
const DefaultTextureName string = "default"

/**
 * @brief Loads image files into textures. Decoding runs on the job system; the texture is
 * returned at once holding a white pixel and receives its pixels in JobSystem.Update.
 */
type TextureSystem struct {
	backend        renderer.Backend
	assets         *assets.AssetManager
	jobSystem      *JobSystem
	defaultTexture *renderer.Texture
	// registered textures by resolved path; the system holds one reference on each
	textures map[string]*renderer.Texture
}

var whitePixel = []uint8{255, 255, 255, 255}

func NewTextureSystem(b renderer.Backend, am *assets.AssetManager, js *JobSystem) *TextureSystem {
	return &TextureSystem{
		backend:        b,
		assets:         am,
		jobSystem:      js,
		defaultTexture: renderer.NewTexture(b, DefaultTextureName, 1, 1, metadata.TextureFormatRGBA8, whitePixel),
		textures:       make(map[string]*renderer.Texture),
	}
}

// Default returns the 1x1 white texture bound where a material has no texture.
func (ts *TextureSystem) Default() *renderer.Texture {
	return ts.defaultTexture
}

/**
 * @brief Returns the texture of the image at path, queueing the decode on first use.
 * The caller takes its own reference (Material.SetTexture does).
 */
func (ts *TextureSystem) Acquire(path string) *renderer.Texture {
	key := ts.assets.Resolve(path)
	if t, ok := ts.textures[key]; ok {
		return t
	}
	t := renderer.NewTexture(ts.backend, key, 1, 1, metadata.TextureFormatRGBA8, whitePixel)
	ts.textures[key] = t
	ts.load(key, t)
	return t
}

// Reload decodes the image again when path belongs to a registered texture.
func (ts *TextureSystem) Reload(path string) bool {
	key := ts.assets.Resolve(path)
	t, ok := ts.textures[key]
	if !ok {
		return false
	}
	ts.load(key, t)
	return true
}

func (ts *TextureSystem) load(path string, t *renderer.Texture) {
	err := ts.jobSystem.Submit(metadata.JobTask{
		JobType:     metadata.JOB_TYPE_RESOURCE_LOAD,
		InputParams: path,
		OnStart: func(params interface{}) (interface{}, error) {
			return ts.assets.LoadAsset(params.(string), metadata.ResourceTypeImage, &loaders.ImageParams{FlipY: true})
		},
		OnComplete: func(result interface{}) {
			img := result.(*metadata.Resource).Data.(*metadata.ImageResourceData)
			if t.Handle == 0 {
				// released while decoding
				return
			}
			t.Update(int(img.Width), int(img.Height), img.Pixels)
			core.LogDebug("texture '%s' loaded (%dx%d)", path, img.Width, img.Height)
		},
		OnFailure: func(err error) {
			core.LogError("texture '%s' keeps the default pixel: %s", path, err)
		},
	})
	if err != nil {
		core.LogError("cannot queue texture '%s': %s", path, err)
	}
}

// Shutdown releases the references held by the system.
func (ts *TextureSystem) Shutdown() error {
	for key, t := range ts.textures {
		t.Release()
		delete(ts.textures, key)
	}
	ts.defaultTexture.Release()
	return nil
}
