package systems

import (
	"embed"
	"fmt"
	"path"

	"github.com/spaghettifunk/parallax/engine/assets"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

//go:embed shaders/*.vert shaders/*.frag
var builtinShaders embed.FS

type shaderSources struct {
	vertex   string
	fragment string
}

// builtinPrograms maps program names to their embedded vertex and fragment stages.
var builtinPrograms = map[string]shaderSources{
	"phong":               {"phong.vert", "phong.frag"},
	"phong_skinned":       {"skinned.vert", "phong.frag"},
	"depth":               {"depth.vert", "depth.frag"},
	"skybox":              {"textured.vert", "skybox.frag"},
	"text":                {"textured.vert", "text.frag"},
	"video":               {"textured.vert", "video.frag"},
	"composite_none":      {"textured.vert", "composite_none.frag"},
	"composite_crosseye":  {"textured.vert", "composite_crosseye.frag"},
	"composite_cybermaxx": {"textured.vert", "composite_cybermaxx.frag"},
	"composite_anaglyph":  {"textured.vert", "composite_anaglyph.frag"},
	"composite_depth":     {"textured.vert", "composite_depth.frag"},
	"composite_newsprint": {"textured.vert", "composite_newsprint.frag"},
}

// CompositeProgramName returns the name of the program presenting mode.
func CompositeProgramName(mode metadata.StereoMode) string {
	return "composite_" + mode.String()
}

/**
 * @brief Compiles programs on first use and shares them. The system keeps one reference on
 * every cached program; materials take their own through Material.SetProgram.
 */
type ShaderSystem struct {
	backend renderer.Backend
	assets  *assets.AssetManager
	// cached programs by name; file based programs use "vertex|fragment"
	programs map[string]*renderer.Program
	// source files of file based programs
	sources map[string]shaderSources
}

func NewShaderSystem(b renderer.Backend, am *assets.AssetManager) *ShaderSystem {
	return &ShaderSystem{
		backend:  b,
		assets:   am,
		programs: make(map[string]*renderer.Program),
		sources:  make(map[string]shaderSources),
	}
}

/**
 * @brief Returns the built-in program called name, compiling it on first use.
 * Fails with core.ErrShaderNotFound for unknown names.
 */
func (ss *ShaderSystem) Get(name string) (*renderer.Program, error) {
	if p, ok := ss.programs[name]; ok {
		return p, nil
	}
	src, ok := builtinPrograms[name]
	if !ok {
		return nil, fmt.Errorf("program '%s': %w", name, core.ErrShaderNotFound)
	}

	vertex, err := builtinShaders.ReadFile(path.Join("shaders", src.vertex))
	if err != nil {
		return nil, fmt.Errorf("program '%s' stage %s: %w", name, src.vertex, core.ErrShaderNotFound)
	}
	fragment, err := builtinShaders.ReadFile(path.Join("shaders", src.fragment))
	if err != nil {
		return nil, fmt.Errorf("program '%s' stage %s: %w", name, src.fragment, core.ErrShaderNotFound)
	}

	p, err := renderer.NewProgram(ss.backend, name, string(vertex), string(fragment))
	if err != nil {
		return nil, err
	}
	core.LogDebug("built-in program '%s' compiled", name)
	ss.programs[name] = p
	return p, nil
}

// Load compiles a program from a vertex and a fragment file loaded through the asset manager.
func (ss *ShaderSystem) Load(vertexPath, fragmentPath string) (*renderer.Program, error) {
	key := vertexPath + "|" + fragmentPath
	if p, ok := ss.programs[key]; ok {
		return p, nil
	}

	var stages [2]string
	for i, file := range []string{vertexPath, fragmentPath} {
		res, err := ss.assets.LoadAsset(file, metadata.ResourceTypeShader, nil)
		if err != nil {
			return nil, err
		}
		stages[i] = res.Data.(*metadata.ShaderResourceData).Source
	}

	p, err := renderer.NewProgram(ss.backend, key, stages[0], stages[1])
	if err != nil {
		return nil, err
	}
	core.LogInfo("program '%s' compiled from files", key)
	ss.programs[key] = p
	ss.sources[key] = shaderSources{vertexPath, fragmentPath}
	return p, nil
}

/**
 * @brief Drops cached programs built from file. Materials keep using the old program until
 * they are rebuilt; the next Load compiles the new source.
 * @returns the number of programs dropped.
 */
func (ss *ShaderSystem) Invalidate(file string) int {
	dropped := 0
	for key, src := range ss.sources {
		if ss.assets.Resolve(src.vertex) != ss.assets.Resolve(file) && ss.assets.Resolve(src.fragment) != ss.assets.Resolve(file) {
			continue
		}
		ss.programs[key].Release()
		delete(ss.programs, key)
		delete(ss.sources, key)
		dropped++
	}
	return dropped
}

// Shutdown releases the references held by the cache.
func (ss *ShaderSystem) Shutdown() error {
	for name, p := range ss.programs {
		p.Release()
		delete(ss.programs, name)
	}
	ss.sources = make(map[string]shaderSources)
	return nil
}
