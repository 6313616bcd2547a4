package systems

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/assets"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/components"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/renderer/recorder"
	"github.com/spaghettifunk/parallax/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir       string
	backend   *recorder.Backend
	assets    *assets.AssetManager
	jobs      *JobSystem
	shaders   *ShaderSystem
	textures  *TextureSystem
	materials *MaterialSystem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir(), backend: recorder.New()}
	var err error
	f.assets, err = assets.NewAssetManager(f.dir)
	require.NoError(t, err)
	f.jobs, err = NewJobSystem(1, 8)
	require.NoError(t, err)
	f.shaders = NewShaderSystem(f.backend, f.assets)
	f.textures = NewTextureSystem(f.backend, f.assets, f.jobs)
	f.materials = NewMaterialSystem(f.backend, f.shaders, f.textures, f.assets)
	t.Cleanup(func() {
		_ = f.materials.Shutdown()
		_ = f.shaders.Shutdown()
		_ = f.textures.Shutdown()
		_ = f.jobs.Shutdown()
		_ = f.assets.Shutdown()
	})
	return f
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// uniform returns the last binding called name, the one that wins when applied.
func uniform(m *renderer.Material, name string) (renderer.Uniform, bool) {
	var found renderer.Uniform
	ok := false
	for _, u := range m.Uniforms.Uniforms() {
		if u.Name == name {
			found, ok = u, true
		}
	}
	return found, ok
}

func TestJobSystemRunsCallbacksOnUpdate(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, core.ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, core.ErrNegativeChannelSize)

	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)

	var got interface{}
	var failure error
	require.NoError(t, js.Submit(metadata.JobTask{
		InputParams: 21,
		OnStart:     func(p interface{}) (interface{}, error) { return p.(int) * 2, nil },
		OnComplete:  func(r interface{}) { got = r },
	}))
	require.NoError(t, js.Submit(metadata.JobTask{
		OnStart:   func(interface{}) (interface{}, error) { return nil, errors.New("boom") },
		OnFailure: func(err error) { failure = err },
	}))
	assert.Error(t, js.Submit(metadata.JobTask{}))

	require.Eventually(t, func() bool {
		js.Update()
		return got != nil && failure != nil
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 42, got)
	assert.EqualError(t, failure, "boom")
	assert.Zero(t, js.Pending())

	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())
	assert.Error(t, js.Submit(metadata.JobTask{OnStart: func(interface{}) (interface{}, error) { return nil, nil }}))
}

func TestShaderSystemSharesPrograms(t *testing.T) {
	f := newFixture(t)

	for name := range builtinPrograms {
		p, err := f.shaders.Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name)
	}
	a, err := f.shaders.Get("phong")
	require.NoError(t, err)
	b, err := f.shaders.Get("phong")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = f.shaders.Get("hologram")
	assert.ErrorIs(t, err, core.ErrShaderNotFound)
	assert.Equal(t, "composite_anaglyph", CompositeProgramName(metadata.StereoModeAnaglyph))
}

const customVertex = `#version 410 core
uniform mat4 MVP;
uniform mat4 ModelMatrix;
in vec3 position;
void main() { gl_Position = MVP * vec4(position, 1.0); }
`

const customFragment = `#version 410 core
uniform float glow;
out vec4 color;
void main() { color = vec4(glow); }
`

func TestShaderSystemInvalidatesFilePrograms(t *testing.T) {
	f := newFixture(t)
	f.write(t, "glow.vert", customVertex)
	frag := f.write(t, "glow.frag", customFragment)

	p, err := f.shaders.Load("glow.vert", "glow.frag")
	require.NoError(t, err)
	again, err := f.shaders.Load("glow.vert", "glow.frag")
	require.NoError(t, err)
	assert.Same(t, p, again)

	assert.Equal(t, 1, f.shaders.Invalidate(frag))
	assert.Zero(t, f.shaders.Invalidate(frag))
	fresh, err := f.shaders.Load("glow.vert", "glow.frag")
	require.NoError(t, err)
	assert.NotSame(t, p, fresh)

	_, err = f.shaders.Load("missing.vert", "glow.frag")
	assert.ErrorIs(t, err, core.ErrFileNotFound)
}

func TestPhongMaterialWiring(t *testing.T) {
	f := newFixture(t)
	m, err := f.materials.Create("phong")
	require.NoError(t, err)
	defer m.Release()

	assert.Equal(t, "phong", m.Program.Name)
	assert.True(t, m.CastsShadows)
	for _, name := range []string{"MVP", "ModelViewMatrix", "NormalMatrix"} {
		u, ok := uniform(m, name)
		require.True(t, ok, name)
		assert.Equal(t, renderer.UniformSymbolic, u.Kind, name)
	}
	u, ok := uniform(m, "ShadowMap")
	require.True(t, ok)
	assert.Equal(t, int32(ShadowMapUnit), u.Value)
	assert.Contains(t, m.Textures, ShadowMapUnit)
	assert.Contains(t, m.Textures, DiffuseTextureUnit)

	cam := components.NewCamera()
	cam.Position = mgl32.Vec3{0, 0, 10}
	ctx := renderer.NewRenderContext(f.backend, cam, nil)

	u, ok = uniform(m, "light_position")
	require.True(t, ok)
	assert.Equal(t, renderer.UniformComputed, u.Kind)
	assert.True(t, u.Resolve(ctx).(mgl32.Vec3).ApproxEqual(mgl32.Vec3{50, 50, 40}))

	u, ok = uniform(m, "shadow_enabled")
	require.True(t, ok)
	assert.Equal(t, false, u.Resolve(ctx))

	f.materials.SetLight(LightConfig{Position: mgl32.Vec3{0, 10, 0}})
	u, _ = uniform(m, "light_position")
	assert.True(t, u.Resolve(ctx).(mgl32.Vec3).ApproxEqual(mgl32.Vec3{0, 10, -10}))
}

func TestMaterialSystemSharesByName(t *testing.T) {
	f := newFixture(t)

	a, err := f.materials.Get("phong")
	require.NoError(t, err)
	b, err := f.materials.Get("phong")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := f.materials.Create("phong")
	require.NoError(t, err)
	defer c.Release()
	assert.NotSame(t, a, c)

	_, err = f.materials.Get("velvet")
	assert.ErrorIs(t, err, core.ErrMaterialNotFound)
	_, err = f.materials.Get("composite_hologram")
	assert.ErrorIs(t, err, core.ErrMaterialNotFound)
}

func TestCompositeMaterialsBindTheEyeUnits(t *testing.T) {
	f := newFixture(t)

	for mode := metadata.StereoModeNone; mode < metadata.StereoModeCount; mode++ {
		m, err := f.materials.Get(CompositeProgramName(mode))
		require.NoError(t, err)
		assert.False(t, m.CastsShadows)

		left, ok := uniform(m, "left_eye")
		require.True(t, ok)
		assert.Equal(t, int32(0), left.Value)

		right, ok := uniform(m, "right_eye")
		switch mode {
		case metadata.StereoModeCrossEye, metadata.StereoModeCybermaxx, metadata.StereoModeAnaglyph:
			require.True(t, ok, mode.String())
			assert.Equal(t, int32(1), right.Value)
		default:
			assert.False(t, ok, mode.String())
		}
	}
}

func TestMaterialFilesReloadInPlace(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "metal.material", "[material]\ndiffuse = [1.0, 0.0, 0.0]\nshininess = 40.0\n")

	m, err := f.materials.Get("metal.material")
	require.NoError(t, err)
	diffuse, ok := uniform(m, "material_diffuse")
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, diffuse.Value)

	f.write(t, "metal.material", "[material]\ndiffuse = [0.0, 1.0, 0.0]\n")
	require.True(t, f.materials.Reload(path))

	same, err := f.materials.Get("metal.material")
	require.NoError(t, err)
	assert.Same(t, m, same)
	diffuse, _ = uniform(m, "material_diffuse")
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, diffuse.Value)

	// a broken file keeps the previous material
	f.write(t, "metal.material", "[material\n")
	assert.False(t, f.materials.Reload(path))
	diffuse, _ = uniform(m, "material_diffuse")
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, diffuse.Value)

	assert.False(t, f.materials.Reload("other.material"))
	assert.False(t, f.materials.Reload("notes.txt"))
}

func TestCustomProgramMaterialsBindDeclaredMatrices(t *testing.T) {
	f := newFixture(t)
	f.write(t, "glow.vert", customVertex)
	f.write(t, "glow.frag", customFragment)
	f.write(t, "glow.material", "[program]\nvertex = \"glow.vert\"\nfragment = \"glow.frag\"\n[uniforms]\nglow = 0.5\n")

	m, err := f.materials.Get("glow.material")
	require.NoError(t, err)

	_, ok := uniform(m, "MVP")
	assert.True(t, ok)
	_, ok = uniform(m, "ModelMatrix")
	assert.True(t, ok)
	_, ok = uniform(m, "NormalMatrix")
	assert.False(t, ok)
	_, ok = uniform(m, "light_position")
	assert.False(t, ok)
	glow, ok := uniform(m, "glow")
	require.True(t, ok)
	assert.InDelta(t, 0.5, glow.Value, 1e-6)
}

func TestBoneMatrices(t *testing.T) {
	armature := &metadata.ArmatureResourceData{Bones: []*metadata.BoneData{
		{Name: "root", MatrixLocal: mgl32.Translate3D(-1, 0, 0)},
		{Name: "tip", MatrixLocal: mgl32.Translate3D(0, -1, 0)},
	}}
	pose := &metadata.PoseResourceData{Bones: []*metadata.BoneData{
		{Name: "root", Matrix: mgl32.Translate3D(0, 2, 0)},
	}}

	bones := BoneMatrices(armature, pose)
	require.Len(t, bones, 2)
	assert.Equal(t, mgl32.Translate3D(-1, 2, 0), bones[0])
	assert.Equal(t, mgl32.Ident4(), bones[1])

	assert.Equal(t, []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()}, BoneMatrices(armature, nil))
}

func TestTextureSystemDecodesOnWorkers(t *testing.T) {
	f := newFixture(t)
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	file, err := os.Create(filepath.Join(f.dir, "red.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, img))
	require.NoError(t, file.Close())

	assert.Equal(t, 1, f.textures.Default().Width)

	tex := f.textures.Acquire("red.png")
	assert.Equal(t, 1, tex.Width)
	assert.Same(t, tex, f.textures.Acquire("red.png"))

	require.Eventually(t, func() bool {
		f.jobs.Update()
		return tex.Width == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, tex.Height)
	info, ok := f.backend.Texture(tex.Handle)
	require.True(t, ok)
	assert.Equal(t, 2, info.Width)

	missing := f.textures.Acquire("missing.png")
	require.Eventually(t, func() bool {
		f.jobs.Update()
		return f.jobs.Pending() == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, missing.Width)
}

const robot = `
o arm
parent body
loc 0 1 0
v 0 0 0
v 1 0 0
v 0 1 0
f 0 1 2

o body
v 0 0 0
v 1 0 0
v 0 1 0
f 0 1 2

o empty
loc 5 0 0
`

func TestMeshLoaderKeepsTheFileHierarchy(t *testing.T) {
	f := newFixture(t)
	f.write(t, "robot.scene", robot)
	mls := NewMeshLoaderSystem(f.backend, f.assets, f.materials)
	defer mls.Shutdown()
	root := scene.NewNode("root")

	top, err := mls.Load("robot.scene", root)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "body", top[0].Name)
	assert.Equal(t, "empty", top[1].Name)
	assert.Empty(t, top[1].Models())

	arm := root.Find("arm")
	require.NotNil(t, arm)
	assert.Same(t, top[0], arm.Parent())
	require.Len(t, arm.Models(), 1)
	assert.Equal(t, "phong", arm.Models()[0].Material.Name)
	assert.Positive(t, f.backend.LiveBuffers())

	_, err = mls.Load("missing.scene", root)
	assert.ErrorIs(t, err, core.ErrFileNotFound)
}

func TestFontSystemBuiltInFont(t *testing.T) {
	f := newFixture(t)
	fs := NewFontSystem(f.assets)

	font, err := fs.Acquire("")
	require.NoError(t, err)
	assert.Same(t, fs.Default(), font)
	assert.Equal(t, DefaultFontName, font.Face)
	assert.Equal(t, 13, font.LineHeight)
	assert.Len(t, font.Glyphs, int('~'-' ')+1)
	assert.Equal(t, 7, font.Glyphs['A'].XAdvance)

	_, err = fs.Acquire("missing.fnt")
	assert.ErrorIs(t, err, core.ErrFileNotFound)
	require.NoError(t, fs.Shutdown())
}

func TestSystemManagerReloadsChangedMaterials(t *testing.T) {
	core.EventSystemInitialize()
	defer core.EventSystemShutdown()

	config := DefaultSystemManagerConfig()
	config.AssetsDir = t.TempDir()
	config.Workers = 1
	config.Compositor.Width, config.Compositor.Height = 64, 48
	path := filepath.Join(config.AssetsDir, "paint.material")
	require.NoError(t, os.WriteFile(path, []byte("[material]\nambient = [0.5, 0.5, 0.5]\n"), 0o644))

	b := recorder.New()
	sys, err := NewSystemManager(b, config)
	require.NoError(t, err)

	m, err := sys.Materials().Get("paint.material")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("[material]\nambient = [0.25, 0.25, 0.25]\n"), 0o644))

	require.NoError(t, core.EventPost(core.EventContext{
		Type: core.EVENT_CODE_ASSET_CHANGED,
		Data: core.AssetEvent{Path: path},
	}))
	sys.Update()
	ambient, ok := uniform(m, "material_ambient")
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0.25, 0.25, 0.25}, ambient.Value)

	w, h := sys.Compositor().Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)

	require.NoError(t, sys.Shutdown())
	assert.Zero(t, b.LiveFramebuffers())
}
