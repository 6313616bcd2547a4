package views

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/math"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/scene"
)

// SkyboxData returns a cube of half extent size whose faces point inward, so it survives back
// face culling when seen from inside.
func SkyboxData(size float32) *metadata.MeshData {
	faces := []mgl32.Vec3{
		math.AxisX, math.AxisX.Mul(-1),
		math.AxisY, math.AxisY.Mul(-1),
		math.AxisZ, math.AxisZ.Mul(-1),
	}

	var positions, normals, texcoords []float32
	var indices []uint32
	for _, n := range faces {
		v := math.AxisY
		if n.Y() != 0 {
			v = math.AxisZ
		}
		// n x v gives u x v = -n, counter clockwise seen from the center
		u := n.Cross(v)
		center := n.Mul(size)
		base := uint32(len(positions) / 3)
		corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		for _, c := range corners {
			p := center.Add(u.Mul(c[0] * size)).Add(v.Mul(c[1] * size))
			positions = append(positions, p[:]...)
			normals = append(normals, -n[0], -n[1], -n[2])
			texcoords = append(texcoords, (c[0]+1)/2, (c[1]+1)/2)
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}

	return &metadata.MeshData{
		Topology: metadata.TopologyTriangles,
		Attributes: map[string]metadata.AttributeData{
			metadata.AttributePosition: {Components: 3, Values: positions},
			metadata.AttributeNormal:   {Components: 3, Values: normals},
			metadata.AttributeTexCoord: {Components: 2, Values: texcoords},
		},
		Indices: indices,
	}
}

/**
 * @brief Attaches a skybox cube below parent, drawn with material (normally a "skybox"
 * material with the sky image on unit 0).
 */
func NewSkybox(b renderer.Backend, parent *scene.Node, material *renderer.Material, size float32) (*scene.Node, *renderer.Model, error) {
	mesh, err := renderer.NewMesh(b, SkyboxData(size))
	if err != nil {
		return nil, nil, err
	}
	model := renderer.NewModel("skybox")
	model.AddMesh(mesh)
	model.SetMaterial(material)

	node := parent.CreateChild("skybox")
	node.AttachModel(model)
	return node, model, nil
}
