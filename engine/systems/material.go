package systems

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/assets"
	"github.com/spaghettifunk/parallax/engine/assets/loaders"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/math"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = loaders.DefaultMaterial

// Texture units shared by the built-in programs.
const (
	ShadowMapUnit       = 0
	DiffuseTextureUnit  = 1
	SpecularTextureUnit = 2
)

// MaxBones is the size of the bones[] array of the skinned program.
const MaxBones = 64

/** @brief Point light used by the phong programs, position in world space. */
type LightConfig struct {
	Position mgl32.Vec3
	Diffuse  mgl32.Vec3
	Ambient  mgl32.Vec3
	Specular mgl32.Vec3
}

func DefaultLight() LightConfig {
	return LightConfig{
		Position: mgl32.Vec3{50, 50, 50},
		Diffuse:  mgl32.Vec3{1, 1, 1},
		Ambient:  mgl32.Vec3{0, 0, 0},
		Specular: mgl32.Vec3{0.6, 0.6, 0.6},
	}
}

/**
 * @brief Creates materials by factory name ("phong", "phong_skinned", "depth", "skybox",
 * "text", "video", "composite_<mode>") or from .material files. Get shares one instance per
 * name or file; Create always builds a new one. Every phong material reads the shadow state
 * owned by the compositor through the render context.
 */
type MaterialSystem struct {
	backend  renderer.Backend
	shaders  *ShaderSystem
	textures *TextureSystem
	assets   *assets.AssetManager
	light    LightConfig

	materials map[string]*renderer.Material
	// parsed descriptions of file materials, by resolved path
	configs map[string]*metadata.MaterialConfig
}

func NewMaterialSystem(b renderer.Backend, ss *ShaderSystem, ts *TextureSystem, am *assets.AssetManager) *MaterialSystem {
	return &MaterialSystem{
		backend:   b,
		shaders:   ss,
		textures:  ts,
		assets:    am,
		light:     DefaultLight(),
		materials: make(map[string]*renderer.Material),
		configs:   make(map[string]*metadata.MaterialConfig),
	}
}

func (ms *MaterialSystem) SetLight(l LightConfig) {
	ms.light = l
}

func (ms *MaterialSystem) Light() LightConfig {
	return ms.light
}

// IsMaterialFile reports whether name refers to a material description file.
func IsMaterialFile(name string) bool {
	return strings.HasSuffix(name, ".material")
}

/**
 * @brief Returns the shared material called name. Names ending in ".material" are loaded
 * from file, anything else comes from the factory.
 */
func (ms *MaterialSystem) Get(name string) (*renderer.Material, error) {
	key := name
	if IsMaterialFile(name) {
		key = ms.assets.Resolve(name)
	}
	if m, ok := ms.materials[key]; ok {
		return m, nil
	}

	var (
		m   *renderer.Material
		err error
	)
	if IsMaterialFile(name) {
		m, err = ms.loadFile(key)
	} else {
		m, err = ms.Create(name)
	}
	if err != nil {
		return nil, err
	}
	ms.materials[key] = m
	return m, nil
}

// Create builds a new, unshared material from the factory.
func (ms *MaterialSystem) Create(name string) (*renderer.Material, error) {
	switch name {
	case "phong", "phong_skinned":
		cfg := loaders.DefaultMaterialConfig(name)
		cfg.Diffuse = mgl32.Vec3{0.5, 0.5, 0.5}
		cfg.Shininess = 15
		cfg.Program = name
		return ms.FromConfig(cfg)
	case "depth":
		return ms.createDepth()
	case "skybox":
		return ms.createSkybox()
	case "text":
		return ms.createText()
	case "video":
		return ms.createVideo()
	}
	if mode, ok := metadata.ParseStereoMode(strings.TrimPrefix(name, "composite_")); ok && strings.HasPrefix(name, "composite_") {
		return ms.createComposite(mode)
	}
	return nil, fmt.Errorf("material '%s': %w", name, core.ErrMaterialNotFound)
}

func (ms *MaterialSystem) loadFile(path string) (*renderer.Material, error) {
	res, err := ms.assets.LoadAsset(path, metadata.ResourceTypeMaterial, nil)
	if err != nil {
		return nil, err
	}
	cfg := res.Data.(*metadata.MaterialConfig)
	m, err := ms.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	ms.configs[path] = cfg
	return m, nil
}

/**
 * @brief Builds a material from a description. Without explicit shader files the program is
 * cfg.Program (phong by default) and gets the phong bindings; file programs get the standard
 * matrices they declare plus the [uniforms] of the description.
 */
func (ms *MaterialSystem) FromConfig(cfg *metadata.MaterialConfig) (*renderer.Material, error) {
	var (
		program *renderer.Program
		err     error
	)
	if cfg.VertexPath != "" {
		program, err = ms.shaders.Load(cfg.VertexPath, cfg.FragmentPath)
	} else {
		name := cfg.Program
		if name == "" {
			name = DefaultMaterialName
		}
		program, err = ms.shaders.Get(name)
	}
	if err != nil {
		return nil, fmt.Errorf("material '%s': %w", cfg.Name, err)
	}

	m := renderer.NewMaterial(cfg.Name)
	m.CastsShadows = cfg.CastShadows
	for c, on := range cfg.Capabilities {
		m.Capabilities[c] = on
	}
	m.SetProgram(program)

	m.SetTexture(DiffuseTextureUnit, ms.textures.Default())
	if ref := cfg.DiffuseTexture; ref != nil {
		m.SetStereoTexture(DiffuseTextureUnit, ms.textureOrNil(ref.Left), ms.textureOrNil(ref.Right))
	}
	if ref := cfg.SpecularTexture; ref != nil {
		m.SetStereoTexture(SpecularTextureUnit, ms.textureOrNil(ref.Left), ms.textureOrNil(ref.Right))
	}

	if cfg.VertexPath == "" && strings.HasPrefix(program.Name, "phong") {
		ms.wirePhong(m, cfg)
	} else {
		wireDeclaredSymbols(m, program)
	}
	for _, name := range cfg.UniformOrder {
		m.Uniforms.SetLiteral(name, cfg.Uniforms[name])
	}
	return m, nil
}

func (ms *MaterialSystem) textureOrNil(path string) *renderer.Texture {
	if path == "" {
		return nil
	}
	return ms.textures.Acquire(path)
}

func (ms *MaterialSystem) wirePhong(m *renderer.Material, cfg *metadata.MaterialConfig) {
	m.Uniforms.SetSymbol("MVP", renderer.ModelViewProjectionMatrix)
	m.Uniforms.SetSymbol("ModelViewMatrix", renderer.ModelViewMatrix)
	m.Uniforms.SetSymbol("NormalMatrix", renderer.NormalMatrix)
	m.Uniforms.SetComputed("ShadowMapMatrix", "shadow * model", func(ctx *renderer.RenderContext) interface{} {
		return ctx.ShadowMatrix().Mul4(ctx.ModelMatrix())
	})

	m.Uniforms.SetComputed("light_position", "view * light", func(ctx *renderer.RenderContext) interface{} {
		return math.TransformPoint(ctx.ViewMatrix(), ms.light.Position)
	})
	m.Uniforms.SetComputed("light_diffuse", "light.diffuse", func(ctx *renderer.RenderContext) interface{} {
		return ms.light.Diffuse
	})
	m.Uniforms.SetComputed("light_ambient", "light.ambient", func(ctx *renderer.RenderContext) interface{} {
		return ms.light.Ambient
	})
	m.Uniforms.SetComputed("light_specular", "light.specular", func(ctx *renderer.RenderContext) interface{} {
		return ms.light.Specular
	})

	m.Uniforms.SetLiteral("material_diffuse", cfg.Diffuse)
	m.Uniforms.SetLiteral("material_ambient", cfg.Ambient)
	m.Uniforms.SetLiteral("material_specular", cfg.Specular)
	m.Uniforms.SetLiteral("material_shininess", cfg.Shininess)
	m.Uniforms.SetLiteral("material_diffuse_texture", int32(DiffuseTextureUnit))

	m.SetContextTexture(ShadowMapUnit, func(ctx *renderer.RenderContext) *renderer.Texture {
		return ctx.ShadowTexture()
	})
	m.Uniforms.SetLiteral("ShadowMap", int32(ShadowMapUnit))
	m.Uniforms.SetComputed("shadow_enabled", "shadow.enabled", func(ctx *renderer.RenderContext) interface{} {
		s := ctx.Shadow()
		return s != nil && s.Enabled && s.Texture != nil
	})
}

// wireDeclaredSymbols binds the standard matrices a custom program declares.
func wireDeclaredSymbols(m *renderer.Material, p *renderer.Program) {
	symbols := []struct {
		name   string
		symbol renderer.UniformSymbol
	}{
		{"MVP", renderer.ModelViewProjectionMatrix},
		{"ModelMatrix", renderer.ModelMatrix},
		{"ViewMatrix", renderer.ViewMatrix},
		{"ProjectionMatrix", renderer.ProjectionMatrix},
		{"ModelViewMatrix", renderer.ModelViewMatrix},
		{"NormalMatrix", renderer.NormalMatrix},
	}
	for _, s := range symbols {
		if p.HasUniform(s.name) {
			m.Uniforms.SetSymbol(s.name, s.symbol)
		}
	}
}

/**
 * @brief Binds the bones[] uniform of a skinned material: bones[i] = pose_i * inv(bind_i),
 * matched by ordinal. Bones missing from the pose keep the bind pose.
 */
func (ms *MaterialSystem) BindSkeleton(m *renderer.Material, armature *metadata.ArmatureResourceData, pose *metadata.PoseResourceData) {
	m.Uniforms.SetComputed("bones", "pose * inverse(bind)", func(ctx *renderer.RenderContext) interface{} {
		return BoneMatrices(armature, pose)
	})
}

// BoneMatrices computes the skinning matrices of every armature bone.
func BoneMatrices(armature *metadata.ArmatureResourceData, pose *metadata.PoseResourceData) []mgl32.Mat4 {
	n := len(armature.Bones)
	if n > MaxBones {
		n = MaxBones
	}
	out := make([]mgl32.Mat4, n)
	for i := 0; i < n; i++ {
		if pose == nil || i >= len(pose.Bones) {
			out[i] = mgl32.Ident4()
			continue
		}
		out[i] = pose.Bones[i].Matrix.Mul4(armature.Bones[i].MatrixLocal)
	}
	return out
}

func (ms *MaterialSystem) createDepth() (*renderer.Material, error) {
	p, err := ms.shaders.Get("depth")
	if err != nil {
		return nil, err
	}
	m := renderer.NewMaterial("depth")
	m.Enable(metadata.CapabilityDepthTest)
	m.Enable(metadata.CapabilityCullFace)
	m.ColorMask = [4]bool{false, false, false, false}
	m.SetProgram(p)
	m.Uniforms.SetSymbol("MVP", renderer.ModelViewProjectionMatrix)
	return m, nil
}

func (ms *MaterialSystem) createSkybox() (*renderer.Material, error) {
	p, err := ms.shaders.Get("skybox")
	if err != nil {
		return nil, err
	}
	m := renderer.NewMaterial("skybox")
	m.CastsShadows = false
	m.Enable(metadata.CapabilityBlend)
	m.Enable(metadata.CapabilityCullFace)
	m.Enable(metadata.CapabilityDepthTest)
	m.BlendSrc, m.BlendDst = metadata.BlendOne, metadata.BlendOne
	m.SetProgram(p)
	m.SetTexture(0, ms.textures.Default())
	m.Uniforms.SetLiteral("diffuse", mgl32.Vec4{1, 1, 1, 1})
	m.Uniforms.SetLiteral("diffuse_texture", int32(0))
	m.Uniforms.SetSymbol("MVP", renderer.ModelViewProjectionMatrix)
	return m, nil
}

func (ms *MaterialSystem) createText() (*renderer.Material, error) {
	p, err := ms.shaders.Get("text")
	if err != nil {
		return nil, err
	}
	m := renderer.NewMaterial("text")
	m.CastsShadows = false
	m.Enable(metadata.CapabilityBlend)
	m.BlendSrc, m.BlendDst = metadata.BlendSrcAlpha, metadata.BlendOneMinusSrcAlpha
	m.SetProgram(p)
	m.SetTexture(0, ms.textures.Default())
	m.Uniforms.SetLiteral("color", mgl32.Vec4{1, 1, 1, 1})
	m.Uniforms.SetLiteral("diffuse_texture", int32(0))
	m.Uniforms.SetSymbol("MVP", renderer.ModelViewProjectionMatrix)
	return m, nil
}

// createVideo samples the video texture of the render context; the right eye reads the right half
// of side by side frames.
func (ms *MaterialSystem) createVideo() (*renderer.Material, error) {
	p, err := ms.shaders.Get("video")
	if err != nil {
		return nil, err
	}
	m := renderer.NewMaterial("video")
	m.CastsShadows = false
	m.Enable(metadata.CapabilityDepthTest)
	m.SetProgram(p)
	m.SetContextTexture(0, func(ctx *renderer.RenderContext) *renderer.Texture {
		return ctx.VideoTexture()
	})
	m.Uniforms.SetLiteral("video_texture", int32(0))
	m.Uniforms.SetLiteral("side_by_side", false)
	m.Uniforms.SetComputed("offset", "eye offset", func(ctx *renderer.RenderContext) interface{} {
		if ctx.Eye() == metadata.StereoEyeRight {
			return float32(0.5)
		}
		return float32(0)
	})
	m.Uniforms.SetSymbol("MVP", renderer.ModelViewProjectionMatrix)
	return m, nil
}

// createComposite builds the composition material of mode. Its eye textures are bound by the compositor.
func (ms *MaterialSystem) createComposite(mode metadata.StereoMode) (*renderer.Material, error) {
	p, err := ms.shaders.Get(CompositeProgramName(mode))
	if err != nil {
		return nil, err
	}
	m := renderer.NewMaterial(CompositeProgramName(mode))
	m.CastsShadows = false
	m.SetProgram(p)
	m.Uniforms.SetSymbol("MVP", renderer.ModelViewProjectionMatrix)
	m.Uniforms.SetLiteral("left_eye", int32(0))
	switch mode {
	case metadata.StereoModeCrossEye, metadata.StereoModeAnaglyph:
		m.Uniforms.SetLiteral("right_eye", int32(1))
	case metadata.StereoModeCybermaxx:
		m.Uniforms.SetLiteral("right_eye", int32(1))
		m.Uniforms.SetLiteral("barrel_power", float32(0.05))
	}
	return m, nil
}

/**
 * @brief Rebuilds materials affected by a changed file. Material files are parsed again and
 * swapped into the existing material, so models keep their pointer; shader files rebuild
 * every file material using them; images are reloaded by the texture system.
 * @returns true when something was reloaded.
 */
func (ms *MaterialSystem) Reload(path string) bool {
	key := ms.assets.Resolve(path)
	switch {
	case IsMaterialFile(key):
		if _, ok := ms.materials[key]; !ok {
			return false
		}
		return ms.reloadFile(key)
	case assets.DetermineAssetType(key) == metadata.ResourceTypeShader:
		if ms.shaders.Invalidate(key) == 0 {
			return false
		}
		for file, cfg := range ms.configs {
			if cfg.VertexPath == "" {
				continue
			}
			if ms.assets.Resolve(cfg.VertexPath) == key || ms.assets.Resolve(cfg.FragmentPath) == key {
				ms.reloadFile(file)
			}
		}
		return true
	case assets.DetermineAssetType(key) == metadata.ResourceTypeImage:
		return ms.textures.Reload(key)
	}
	return false
}

func (ms *MaterialSystem) reloadFile(path string) bool {
	fresh, err := ms.loadFile(path)
	if err != nil {
		core.LogError("material '%s' not reloaded: %s", path, err)
		return false
	}
	current := ms.materials[path]
	current.Release()
	*current = *fresh
	core.LogInfo("material '%s' reloaded", path)
	return true
}

// Shutdown releases the shared materials.
func (ms *MaterialSystem) Shutdown() error {
	for key, m := range ms.materials {
		m.Release()
		delete(ms.materials, key)
	}
	ms.configs = make(map[string]*metadata.MaterialConfig)
	return nil
}
