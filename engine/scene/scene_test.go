package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/components"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/renderer/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	phongVertex = `
in vec3 position;
in vec3 normal;
uniform mat4 ModelMatrix;
uniform mat4 MVP;
void main() {}
`
	phongFragment = `
uniform vec3 diffuse;
void main() {}
`
	depthVertex = `
in vec3 position;
uniform mat4 MVP;
void main() {}
`
	depthFragment = `void main() {}`
)

func newMaterial(t *testing.T, b renderer.Backend, name, vs, fs string) *renderer.Material {
	t.Helper()
	p, err := renderer.NewProgram(b, name, vs, fs)
	require.NoError(t, err)
	m := renderer.NewMaterial(name)
	m.SetProgram(p)
	p.Release()
	m.Uniforms.SetSymbol("ModelMatrix", renderer.ModelMatrix)
	m.Uniforms.SetSymbol("MVP", renderer.ModelViewProjectionMatrix)
	return m
}

func newTriangle(t *testing.T, b renderer.Backend, name string, mat *renderer.Material) *renderer.Model {
	t.Helper()
	mesh, err := renderer.NewMesh(b, &metadata.MeshData{
		Topology: metadata.TopologyTriangles,
		Attributes: map[string]metadata.AttributeData{
			metadata.AttributePosition: {Components: 3, Values: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}},
		},
	})
	require.NoError(t, err)
	model := renderer.NewModel(name)
	model.AddMesh(mesh)
	model.SetMaterial(mat)
	return model
}

func originCamera() components.Camera {
	cam := components.NewCamera()
	cam.LookAt(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	return cam
}

func TestWorldTransformComposition(t *testing.T) {
	root := NewNode("root")
	root.SetPosition(mgl32.Vec3{1, 2, 3})
	root.SetOrientation(mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0}))

	child := root.CreateChild("child")
	child.SetPosition(mgl32.Vec3{-4, 0.5, 2})
	child.SetOrientation(mgl32.QuatRotate(1.1, mgl32.Vec3{1, 1, 0}.Normalize()))
	child.SetScale(mgl32.Vec3{2, 3, 0.5})

	parent := mgl32.Translate3D(0, 0, -10)
	root.UpdateTransform(parent)

	rootWorld := parent.Mul4(mgl32.Translate3D(1, 2, 3)).Mul4(root.Orientation.Mat4())
	assert.True(t, rootWorld.ApproxEqualThreshold(root.WorldTransform(), 1e-5))

	want := rootWorld.
		Mul4(mgl32.Translate3D(-4, 0.5, 2)).
		Mul4(child.Orientation.Mat4()).
		Mul4(mgl32.Scale3D(2, 3, 0.5))
	assert.True(t, want.ApproxEqualThreshold(child.WorldTransform(), 1e-5))
}

func TestTransformAlwaysRecomputed(t *testing.T) {
	root := NewNode("root")
	child := root.CreateChild("child")
	root.UpdateTransform(mgl32.Ident4())

	child.SetPosition(mgl32.Vec3{0, 3, 0})
	root.UpdateTransform(mgl32.Ident4())
	assert.Equal(t, mgl32.Translate3D(0, 3, 0), child.WorldTransform())
}

func TestWalkIsPreOrderInsertionOrder(t *testing.T) {
	root := NewNode("root")
	a := root.CreateChild("a")
	a.CreateChild("a1")
	a.CreateChild("a2")
	root.CreateChild("b").CreateChild("b1")

	var names []string
	root.Walk(func(n *Node) { names = append(names, n.Name) })
	assert.Equal(t, []string{"root", "a", "a1", "a2", "b", "b1"}, names)
	assert.Same(t, a, root.Find("a"))
	assert.Equal(t, "b1", root.Find("b1").Name)
	assert.Nil(t, root.Find("c"))
}

func TestDestroyInvalidatesObservers(t *testing.T) {
	root := NewNode("root")
	a := root.CreateChild("a")
	a1 := a.CreateChild("a1")
	b := root.CreateChild("b")

	a.Destroy()
	assert.False(t, a.Alive())
	assert.False(t, a1.Alive())
	assert.True(t, b.Alive())
	assert.Equal(t, []*Node{b}, root.Children())
	assert.Nil(t, root.Find("a1"))
}

func TestTraversalIsDeterministic(t *testing.T) {
	b := recorder.New()
	mgr := NewManager(b)
	mat := newMaterial(t, b, "phong", phongVertex, phongFragment)

	for i, name := range []string{"first", "second", "third"} {
		n := mgr.World().CreateChild(name)
		n.SetPosition(mgl32.Vec3{float32(i), 0, 0})
		n.AttachModel(newTriangle(t, b, name, mat))
		n.CreateChild(name + ".child").AttachModel(newTriangle(t, b, name+".child", mat))
	}
	mgr.View().AttachModel(newTriangle(t, b, "sky", mat))

	mgr.Render(originCamera(), false, metadata.StereoEyeCenter)
	first := append([]string(nil), b.Calls...)
	b.Reset()
	mgr.Render(originCamera(), false, metadata.StereoEyeCenter)
	assert.Equal(t, first, b.Calls)
	assert.Len(t, b.Draws, 7)
}

func TestSingleChildEndToEnd(t *testing.T) {
	b := recorder.New()
	mgr := NewManager(b)
	mat := newMaterial(t, b, "phong", phongVertex, phongFragment)

	child := mgr.World().CreateChild("child")
	child.SetPosition(mgl32.Vec3{5, 0, 0})
	child.AttachModel(newTriangle(t, b, "triangle", mat))

	assert.Equal(t, 1, mgr.Render(originCamera(), false, metadata.StereoEyeCenter))
	require.Len(t, b.Draws, 1)
	assert.Equal(t, mgl32.Translate3D(5, 0, 0), b.Draws[0].Uniforms["ModelMatrix"])
}

func TestOverrideMaterialInShadowPass(t *testing.T) {
	b := recorder.New()
	mgr := NewManager(b)
	phong := newMaterial(t, b, "phong", phongVertex, phongFragment)
	depth := newMaterial(t, b, "depth", depthVertex, depthFragment)
	mgr.SetOverride(depth)

	caster := newTriangle(t, b, "caster", phong)
	mgr.World().CreateChild("caster").AttachModel(caster)

	glass := renderer.NewMaterial("glass")
	glass.SetProgram(phong.Program)
	glass.CastsShadows = false
	mgr.World().CreateChild("glass").AttachModel(newTriangle(t, b, "glass", glass))

	assert.Equal(t, 1, mgr.Render(originCamera(), true, metadata.StereoEyeCenter))
	require.Len(t, b.Draws, 1)
	assert.Equal(t, "depth", b.Draws[0].ProgramName)
	assert.Same(t, phong, caster.Material)

	b.Reset()
	assert.Equal(t, 2, mgr.Render(originCamera(), false, metadata.StereoEyeCenter))
	for _, d := range b.Draws {
		assert.Equal(t, "phong", d.ProgramName)
	}
}

func TestViewRootUsesCameraAtOrigin(t *testing.T) {
	b := recorder.New()
	mgr := NewManager(b)
	mat := newMaterial(t, b, "phong", phongVertex, phongFragment)
	mgr.View().AttachModel(newTriangle(t, b, "sky", mat))

	cam := components.NewCamera()
	cam.LookAt(mgl32.Vec3{10, 0, 0}, mgl32.Vec3{10, 0, -1}, mgl32.Vec3{0, 1, 0})
	mgr.Render(cam, false, metadata.StereoEyeCenter)

	require.Len(t, b.Draws, 1)
	atOrigin := cam.WithPosition(mgl32.Vec3{})
	want := atOrigin.Matrix()
	got := b.Draws[0].Uniforms["MVP"].(mgl32.Mat4)
	assert.True(t, want.ApproxEqualThreshold(got, 1e-5))
}

func TestClearRemovesEverything(t *testing.T) {
	mgr := NewManager(recorder.New())
	n := mgr.World().CreateChild("a")
	mgr.View().CreateChild("b")
	mgr.Clear()
	assert.Empty(t, mgr.World().Children())
	assert.Empty(t, mgr.View().Children())
	assert.False(t, n.Alive())
}
