package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoObjects = `
# a child declared before its parent
o arm
parent body
mat metal.material
loc 0 1 0
v 0 0 0
v 1 0 0
v 0 1 0
f 0 1 2
f 0 1 7

o body
rot 1 0 0 0
scale 2 2 2
`

func TestParseSceneOrdersParentsFirst(t *testing.T) {
	data, err := ParseScene(strings.NewReader(twoObjects), "test.scene")
	require.NoError(t, err)
	require.Len(t, data.Objects, 2)

	body, arm := data.Objects[0], data.Objects[1]
	assert.Equal(t, "body", body.Name)
	assert.Equal(t, DefaultMaterial, body.Material)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, body.Scale)
	assert.Empty(t, body.Meshes)

	assert.Equal(t, "arm", arm.Name)
	assert.Equal(t, "body", arm.Parent)
	assert.Equal(t, "metal.material", arm.Material)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, arm.Position)
	require.Len(t, arm.Meshes, 1)

	mesh := arm.Meshes[0]
	// the face referencing vertex 7 is dropped
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
	assert.Equal(t, 3, mesh.VertexCount())
	assert.Len(t, mesh.Attributes[metadata.AttributeTexCoord].Values, 6)
	assert.Equal(t, []float32{0, 0, 1, 0, 0, 1, 0, 0, 1}, mesh.Attributes[metadata.AttributeNormal].Values)
}

func TestParseSceneWarnsAboutInvalidFaces(t *testing.T) {
	var out bytes.Buffer
	core.SetLogOutput(&out)
	defer core.SetLogOutput(new(bytes.Buffer))

	_, err := ParseScene(strings.NewReader(twoObjects), "test.scene")
	require.NoError(t, err)

	line := out.String()
	assert.Contains(t, line, "WARN")
	assert.Contains(t, line, "invalid face: 0 1 7")
}

func TestParseSceneErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		input string
		err   error
	}{
		"duplicate":      {"o a\no a\n", core.ErrDuplicateName},
		"missing parent": {"o a\nparent b\n", core.ErrParentNotFound},
		"cycle":          {"o a\nparent b\no b\nparent a\n", core.ErrParentNotFound},
		"bad number":     {"o a\nloc 1 x 3\n", core.ErrMalformedLine},
		"unknown token":  {"o a\nfoo 1\n", core.ErrMalformedLine},
		"no object":      {"v 1 2 3\n", core.ErrMalformedLine},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScene(strings.NewReader(tc.input), "bad.scene")
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestSceneLoaderMissingFile(t *testing.T) {
	_, err := (&SceneLoader{}).Load(filepath.Join(t.TempDir(), "nope.scene"), metadata.ResourceTypeScene, nil)
	assert.ErrorIs(t, err, core.ErrFileNotFound)
}

func TestParseMaterial(t *testing.T) {
	src := `
[material]
diffuse = [0.5, 0.25, 1.0]
shininess = 32.0
diffuse_texture = ["left.png", "right.png"]
specular_texture = "/abs/spec.png"
cast_shadows = false
disable = ["cull_face"]
enable = ["blend"]

[program]
vertex = "shaders/custom.vert"
fragment = "shaders/custom.frag"

[uniforms]
tint = [1.0, 0.0, 0.0]
strength = 0.5
`
	cfg, err := ParseMaterial([]byte(src), "/data/metal.material")
	require.NoError(t, err)

	assert.Equal(t, "metal", cfg.Name)
	assert.Equal(t, mgl32.Vec3{0.5, 0.25, 1}, cfg.Diffuse)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, cfg.Ambient)
	assert.Equal(t, float32(32), cfg.Shininess)
	assert.False(t, cfg.CastShadows)
	assert.Equal(t, &metadata.TextureRef{Left: "/data/left.png", Right: "/data/right.png"}, cfg.DiffuseTexture)
	assert.Equal(t, &metadata.TextureRef{Left: "/abs/spec.png"}, cfg.SpecularTexture)
	assert.False(t, cfg.Capabilities[metadata.CapabilityCullFace])
	assert.True(t, cfg.Capabilities[metadata.CapabilityDepthTest])
	assert.True(t, cfg.Capabilities[metadata.CapabilityBlend])
	assert.Equal(t, "/data/shaders/custom.vert", cfg.VertexPath)
	assert.Equal(t, []string{"strength", "tint"}, cfg.UniformOrder)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, cfg.Uniforms["tint"])
	assert.Equal(t, float32(0.5), cfg.Uniforms["strength"])
}

func TestParseMaterialRejectsUnknownCapability(t *testing.T) {
	_, err := ParseMaterial([]byte("[material]\ndisable = [\"fog\"]\n"), "x.material")
	assert.ErrorIs(t, err, core.ErrMalformedLine)
}

func TestParseBones(t *testing.T) {
	armature := `
bone root
matrix 1 0 0 0 1 0 0 0 1
matrix_local 1 0 0 0 0 1 0 0 0 0 1 0 2 0 0 1
head 0 0 0
tail 0 1 0
bone tip
parent root
`
	bones, err := ParseBones(strings.NewReader(armature), "a.armature", metadata.ResourceTypeArmature)
	require.NoError(t, err)
	require.Len(t, bones, 2)
	assert.Equal(t, "root", bones[0].Name)
	assert.Equal(t, mgl32.Translate3D(-2, 0, 0), bones[0].MatrixLocal)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, bones[0].Tail)
	assert.Equal(t, mgl32.Ident4(), bones[1].MatrixLocal)

	pose := "bone root\nmatrix 1 0 0 0 0 1 0 0 0 0 1 0 0 3 0 1\n"
	bones, err = ParseBones(strings.NewReader(pose), "a.pose", metadata.ResourceTypePose)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Translate3D(0, 3, 0), bones[0].Matrix)

	_, err = ParseBones(strings.NewReader("matrix 1 2 3\n"), "a.pose", metadata.ResourceTypePose)
	assert.ErrorIs(t, err, core.ErrMalformedLine)
}

func TestImageLoaderFlipsRows(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})
	path := filepath.Join(t.TempDir(), "two.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	res, err := (&ImageLoader{}).Load(path, metadata.ResourceTypeImage, &ImageParams{FlipY: true})
	require.NoError(t, err)
	data := res.Data.(*metadata.ImageResourceData)
	assert.Equal(t, uint32(1), data.Width)
	assert.Equal(t, uint32(2), data.Height)
	assert.Equal(t, []uint8{0, 0, 255, 255, 255, 0, 0, 255}, data.Pixels)
}

func TestShaderLoaderStages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.frag")
	require.NoError(t, os.WriteFile(path, []byte("void main() {}"), 0o644))

	res, err := (&ShaderLoader{}).Load(path, metadata.ResourceTypeShader, nil)
	require.NoError(t, err)
	assert.Equal(t, metadata.ShaderStageFragment, res.Data.(*metadata.ShaderResourceData).Stage)

	_, err = (&ShaderLoader{}).Load(filepath.Join(dir, "a.glsl"), metadata.ResourceTypeShader, nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestSceneFromGLTF(t *testing.T) {
	doc := gltf.NewDocument()
	positions := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	indices := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(indices),
			Attributes: map[string]int{gltf.POSITION: positions},
		}},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "root", Children: []int{1}, Rotation: [4]float64{0, 0, 0, 1}, Scale: [3]float64{1, 1, 1}},
		{Name: "leaf", Mesh: gltf.Index(0), Translation: [3]float64{5, 0, 0}, Rotation: [4]float64{0, 0, 0, 1}, Scale: [3]float64{1, 1, 1}},
	}
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0}}}

	data, err := SceneFromGLTF(doc)
	require.NoError(t, err)
	require.Len(t, data.Objects, 2)
	leaf := data.Objects[1]
	assert.Equal(t, "root", leaf.Parent)
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, leaf.Position)
	require.Len(t, leaf.Meshes, 1)
	assert.Equal(t, []uint32{0, 1, 2}, leaf.Meshes[0].Indices)
	assert.Equal(t, 3, leaf.Meshes[0].VertexCount())
	assert.Len(t, leaf.Meshes[0].Attributes[metadata.AttributeNormal].Values, 9)
}
