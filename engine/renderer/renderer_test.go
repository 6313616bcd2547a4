package renderer_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/components"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/renderer/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVertex = `
#version 410 core
in vec3 position;
in vec3 normal;
uniform mat4 MVP;
uniform mat4 ModelMatrix;
uniform mat3 NormalMatrix;
void main() { gl_Position = MVP * vec4(position, 1.0); }
`

const testFragment = `
#version 410 core
uniform vec3 diffuse;
uniform sampler2D tex;
out vec4 color;
void main() { color = vec4(diffuse, 1.0); }
`

type fixedNode mgl32.Mat4

func (n fixedNode) WorldTransform() mgl32.Mat4 { return mgl32.Mat4(n) }

func newProgram(t *testing.T, b renderer.Backend, name string) *renderer.Program {
	t.Helper()
	p, err := renderer.NewProgram(b, name, testVertex, testFragment)
	require.NoError(t, err)
	return p
}

func triangle() *metadata.MeshData {
	return &metadata.MeshData{
		Topology: metadata.TopologyTriangles,
		Attributes: map[string]metadata.AttributeData{
			metadata.AttributePosition: {Components: 3, Values: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}},
			metadata.AttributeNormal:   {Components: 3, Values: []float32{0, 0, 1, 0, 0, 1, 0, 0, 1}},
		},
	}
}

func testCamera() components.Camera {
	cam := components.NewCamera()
	cam.Perspective(mgl32.DegToRad(42), 4.0/3.0, 0.1, 1000)
	cam.LookAt(mgl32.Vec3{1, 2, 10}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	return cam
}

func TestMaterialApplyIsIdempotent(t *testing.T) {
	b := recorder.New()
	p := newProgram(t, b, "phong")
	tex := renderer.NewTexture(b, "white", 1, 1, metadata.TextureFormatRGBA8, []uint8{255, 255, 255, 255})

	m := renderer.NewMaterial("m")
	m.Enable(metadata.CapabilityDepthTest)
	m.SetProgram(p)
	m.SetTexture(0, tex)
	m.Uniforms.SetLiteral("diffuse", mgl32.Vec3{1, 0, 0})
	m.Uniforms.SetSymbol("MVP", renderer.ModelViewProjectionMatrix)

	ctx := renderer.NewRenderContext(b, testCamera(), fixedNode(mgl32.Translate3D(1, 2, 3)))
	b.Reset()

	m.Apply(ctx)
	first := b.State()
	firstCalls := append([]string(nil), b.Calls...)
	b.Reset()

	m.Apply(ctx)
	assert.Equal(t, first, b.State())
	assert.Equal(t, firstCalls, b.Calls)
}

func TestMaterialApplyOverridesPreviousMaterial(t *testing.T) {
	b := recorder.New()
	ctx := renderer.NewRenderContext(b, testCamera(), nil)

	blended := renderer.NewMaterial("blended")
	blended.Enable(metadata.CapabilityBlend)
	blended.Disable(metadata.CapabilityDepthTest)
	blended.DepthMask = false
	blended.BlendSrc, blended.BlendDst = metadata.BlendSrcAlpha, metadata.BlendOneMinusSrcAlpha

	plain := renderer.NewMaterial("plain")
	plain.Enable(metadata.CapabilityDepthTest)

	plain.Apply(ctx)
	fresh := b.State()

	blended.Apply(ctx)
	assert.True(t, b.State().Capabilities[metadata.CapabilityBlend])

	plain.Apply(ctx)
	assert.Equal(t, fresh, b.State())
}

func TestModelViewProjectionResolvesToPVM(t *testing.T) {
	b := recorder.New()
	cam := testCamera()
	model := mgl32.Translate3D(5, 0, 0).Mul4(mgl32.HomogRotate3DY(0.3))
	ctx := renderer.NewRenderContext(b, cam, fixedNode(model))

	u := renderer.Uniform{Name: "MVP", Kind: renderer.UniformSymbolic, Symbol: renderer.ModelViewProjectionMatrix}
	want := cam.ProjectionMatrix().Mul4(cam.ViewMatrix()).Mul4(model)
	got, ok := u.Resolve(ctx).(mgl32.Mat4)
	require.True(t, ok)
	assert.True(t, want.ApproxEqualThreshold(got, 1e-5))

	p := newProgram(t, b, "phong")
	m := renderer.NewMaterial("m")
	m.SetProgram(p)
	m.Uniforms.SetSymbol("MVP", renderer.ModelViewProjectionMatrix)
	m.Apply(ctx)

	uploaded, ok := b.UniformValue(p.Handle, "MVP")
	require.True(t, ok)
	assert.True(t, want.ApproxEqualThreshold(uploaded.(mgl32.Mat4), 1e-5))
}

func TestUniformsApplyInInsertionOrder(t *testing.T) {
	b := recorder.New()
	p := newProgram(t, b, "phong")
	m := renderer.NewMaterial("m")
	m.SetProgram(p)
	m.Uniforms.SetLiteral("diffuse", mgl32.Vec3{1, 0, 0})
	m.Uniforms.SetComputed("diffuse", "green", func(*renderer.RenderContext) interface{} {
		return mgl32.Vec3{0, 1, 0}
	})
	assert.Equal(t, 2, m.Uniforms.Len())
	assert.Equal(t, "diffuse=computed(green)", m.Uniforms.Uniforms()[1].String())

	m.Apply(renderer.NewRenderContext(b, testCamera(), nil))
	v, ok := b.UniformValue(p.Handle, "diffuse")
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, v)
}

func TestMissingUniformWarnsOnceAndDrawContinues(t *testing.T) {
	var out bytes.Buffer
	core.SetLogOutput(&out)
	defer core.SetLogOutput(new(bytes.Buffer))

	b := recorder.New()
	p := newProgram(t, b, "phong")
	mesh, err := renderer.NewMesh(b, triangle())
	require.NoError(t, err)

	m := renderer.NewMaterial("m")
	m.SetProgram(p)
	m.Uniforms.SetLiteral("does_not_exist", float32(1))
	model := renderer.NewModel("tri")
	model.AddMesh(mesh)
	model.SetMaterial(m)

	ctx := renderer.NewRenderContext(b, testCamera(), nil)
	assert.True(t, model.Draw(ctx))
	assert.True(t, model.Draw(ctx))

	assert.Len(t, b.Draws, 2)
	assert.Equal(t, 1, strings.Count(out.String(), "does_not_exist"))
}

func TestStereoTexturePairFollowsEye(t *testing.T) {
	b := recorder.New()
	left := renderer.NewTexture(b, "l", 1, 1, metadata.TextureFormatRGBA8, nil)
	right := renderer.NewTexture(b, "r", 1, 1, metadata.TextureFormatRGBA8, nil)
	m := renderer.NewMaterial("m")
	m.SetStereoTexture(0, left, right)

	ctx := renderer.NewRenderContext(b, testCamera(), nil)
	for eye, want := range map[metadata.StereoEye]uint32{
		metadata.StereoEyeCenter: left.Handle,
		metadata.StereoEyeLeft:   left.Handle,
		metadata.StereoEyeRight:  right.Handle,
	} {
		ctx.SetEye(eye)
		m.Apply(ctx)
		assert.Equal(t, want, b.State().Textures[0], eye.String())
	}
}

func TestOverrideMaterialOnlyForShadowCasters(t *testing.T) {
	b := recorder.New()
	phong := newProgram(t, b, "phong")
	depth := newProgram(t, b, "depth")
	mesh, err := renderer.NewMesh(b, triangle())
	require.NoError(t, err)

	own := renderer.NewMaterial("phong")
	own.SetProgram(phong)
	override := renderer.NewMaterial("depth")
	override.SetProgram(depth)

	caster := &renderer.Model{Name: "caster", Meshes: []*renderer.Mesh{mesh}, Material: own}
	ctx := renderer.NewRenderContext(b, testCamera(), nil)
	ctx.SetOverride(override)

	require.True(t, caster.Draw(ctx))
	require.Len(t, b.Draws, 1)
	assert.Equal(t, "depth", b.Draws[0].ProgramName)
	assert.Same(t, own, caster.Material)

	own.CastsShadows = false
	assert.False(t, caster.Draw(ctx))
	assert.Len(t, b.Draws, 1)
}

func TestModelWithoutMaterialIsSkipped(t *testing.T) {
	b := recorder.New()
	mesh, err := renderer.NewMesh(b, triangle())
	require.NoError(t, err)
	model := renderer.NewModel("bare")
	model.AddMesh(mesh)

	assert.False(t, model.Draw(renderer.NewRenderContext(b, testCamera(), nil)))
	assert.Empty(t, b.Draws)
}

func TestMeshBindsOnlyDeclaredAttributes(t *testing.T) {
	b := recorder.New()
	p := newProgram(t, b, "phong")
	data := triangle()
	data.Attributes[metadata.AttributeAlpha] = metadata.AttributeData{Components: 1, Values: []float32{1, 1, 1}}
	data.Indices = []uint32{0, 1, 2}
	mesh, err := renderer.NewMesh(b, data)
	require.NoError(t, err)

	ctx := renderer.NewRenderContext(b, testCamera(), nil)
	b.UseProgram(p.Handle)
	mesh.Draw(ctx, p)

	require.Len(t, b.Draws, 1)
	assert.True(t, b.Draws[0].Indexed)
	assert.Equal(t, 3, b.Draws[0].Count)
	assert.ElementsMatch(t, []string{"position", "normal"}, b.Draws[0].Attributes)

	mesh.Destroy()
	assert.Equal(t, 0, b.LiveBuffers())
}

func TestMeshRejectsOutOfRangeIndices(t *testing.T) {
	data := triangle()
	data.Indices = []uint32{0, 1, 3}
	_, err := renderer.NewMesh(recorder.New(), data)
	assert.ErrorIs(t, err, core.ErrInvalidGeometry)
}

func TestProgramSharedUntilLastRelease(t *testing.T) {
	b := recorder.New()
	p := newProgram(t, b, "shared")
	a, c := renderer.NewMaterial("a"), renderer.NewMaterial("c")
	a.SetProgram(p)
	c.SetProgram(p)
	p.Release()
	assert.Equal(t, 2, p.RefCount())

	a.Release()
	assert.Equal(t, "shared", b.ProgramName(p.Handle))
	handle := p.Handle
	c.Release()
	assert.Equal(t, "", b.ProgramName(handle))
}

func TestProgramCompileFailure(t *testing.T) {
	_, err := renderer.NewProgram(recorder.New(), "broken", testVertex, "#error nope")
	assert.ErrorIs(t, err, core.ErrShaderCompile)
}

func TestIncompleteFramebufferIsReturnedWithError(t *testing.T) {
	b := recorder.New()
	b.IncompleteFramebuffers = true
	fb, err := renderer.NewFramebuffer(b, "eye", 64, 32)
	assert.ErrorIs(t, err, core.ErrFramebufferIncomplete)
	require.NotNil(t, fb)
	assert.Equal(t, 64, fb.Width)
	assert.NotZero(t, fb.Handle)
}

func TestNormalMatrixIsInverseTranspose(t *testing.T) {
	b := recorder.New()
	cam := components.NewCamera()
	ctx := renderer.NewRenderContext(b, cam, fixedNode(mgl32.Scale3D(2, 1, 1)))
	want := mgl32.Scale3D(2, 1, 1).Mat3().Inv().Transpose()
	assert.True(t, want.ApproxEqualThreshold(ctx.NormalMatrix(), 1e-6))
}
