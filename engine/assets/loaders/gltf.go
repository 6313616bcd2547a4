package loaders

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

type GLTFLoader struct{}

// Load reads a .gltf or .glb document and flattens its node hierarchy into scene objects.
func (gtl *GLTFLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, wrapOpenError(path, err)
	}
	data, err := SceneFromGLTF(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeScene,
		Data:     data,
	}, nil
}

func (gtl *GLTFLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	return nil
}

// SceneFromGLTF converts the default scene of doc (or every root node when there is none).
func SceneFromGLTF(doc *gltf.Document) (*metadata.SceneResourceData, error) {
	roots := rootNodes(doc)
	names := make(map[string]bool)
	data := &metadata.SceneResourceData{}

	var visit func(index int, parent string, depth int) error
	visit = func(index int, parent string, depth int) error {
		if index < 0 || index >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range: %w", index, core.ErrInvalidGeometry)
		}
		if depth > len(doc.Nodes) {
			return fmt.Errorf("node %d is its own ancestor: %w", index, core.ErrParentNotFound)
		}
		node := doc.Nodes[index]

		name := node.Name
		if name == "" || names[name] {
			name = fmt.Sprintf("node_%d", index)
		}
		names[name] = true

		obj := &metadata.ObjectData{
			Name:     name,
			Parent:   parent,
			Material: DefaultMaterial,
		}
		obj.Position, obj.Orientation, obj.Scale = nodeTransform(node)

		if node.Mesh != nil {
			meshes, err := readMesh(doc, *node.Mesh)
			if err != nil {
				return fmt.Errorf("node '%s': %w", name, err)
			}
			obj.Meshes = meshes
		}
		data.Objects = append(data.Objects, obj)

		for _, child := range node.Children {
			if err := visit(child, name, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := visit(root, "", 0); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func rootNodes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		scene := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			scene = *doc.Scene
		}
		return doc.Scenes[scene].Nodes
	}

	isChild := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			isChild[c] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func nodeTransform(node *gltf.Node) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	var m mgl32.Mat4
	for i, v := range node.Matrix {
		m[i] = float32(v)
	}
	if m != (mgl32.Mat4{}) && m != mgl32.Ident4() {
		scale := mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
		rot := mgl32.Ident4()
		for c := 0; c < 3; c++ {
			if scale[c] != 0 {
				rot.SetCol(c, m.Col(c).Mul(1/scale[c]))
			}
		}
		rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
		return m.Col(3).Vec3(), mgl32.Mat4ToQuat(rot), scale
	}

	position := mgl32.Vec3{float32(node.Translation[0]), float32(node.Translation[1]), float32(node.Translation[2])}
	// glTF stores rotations as x, y, z, w
	orientation := mgl32.Quat{
		W: float32(node.Rotation[3]),
		V: mgl32.Vec3{float32(node.Rotation[0]), float32(node.Rotation[1]), float32(node.Rotation[2])},
	}
	if orientation.Len() == 0 {
		orientation = mgl32.QuatIdent()
	}
	scale := mgl32.Vec3{float32(node.Scale[0]), float32(node.Scale[1]), float32(node.Scale[2])}
	if scale == (mgl32.Vec3{}) {
		scale = mgl32.Vec3{1, 1, 1}
	}
	return position, orientation, scale
}

func topology(mode gltf.PrimitiveMode) metadata.Topology {
	switch mode {
	case gltf.PrimitivePoints:
		return metadata.TopologyPoints
	case gltf.PrimitiveLines:
		return metadata.TopologyLines
	case gltf.PrimitiveTriangleStrip:
		return metadata.TopologyTriangleStrip
	default:
		return metadata.TopologyTriangles
	}
}

func readMesh(doc *gltf.Document, index int) ([]*metadata.MeshData, error) {
	if index < 0 || index >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range: %w", index, core.ErrInvalidGeometry)
	}
	var out []*metadata.MeshData
	for i, prim := range doc.Meshes[index].Primitives {
		mesh, err := readPrimitive(doc, prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", index, i, err)
		}
		out = append(out, mesh)
	}
	return out, nil
}

func accessor(doc *gltf.Document, attributes map[string]int, name string) (*gltf.Accessor, bool) {
	idx, ok := attributes[name]
	if !ok || idx < 0 || idx >= len(doc.Accessors) {
		return nil, false
	}
	return doc.Accessors[idx], true
}

func readPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*metadata.MeshData, error) {
	posAcc, ok := accessor(doc, prim.Attributes, gltf.POSITION)
	if !ok {
		return nil, fmt.Errorf("primitive without POSITION: %w", core.ErrInvalidGeometry)
	}
	positions, err := modeler.ReadPosition(doc, posAcc, nil)
	if err != nil {
		return nil, err
	}

	mesh := &metadata.MeshData{
		Topology:   topology(prim.Mode),
		Attributes: make(map[string]metadata.AttributeData),
	}
	mesh.Attributes[metadata.AttributePosition] = metadata.AttributeData{Components: 3, Values: flatten3(positions)}

	if prim.Indices != nil && *prim.Indices < len(doc.Accessors) {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, err
		}
		mesh.Indices = indices
	}

	if acc, ok := accessor(doc, prim.Attributes, gltf.NORMAL); ok {
		normals, err := modeler.ReadNormal(doc, acc, nil)
		if err != nil {
			return nil, err
		}
		mesh.Attributes[metadata.AttributeNormal] = metadata.AttributeData{Components: 3, Values: flatten3(normals)}
	} else if mesh.Topology == metadata.TopologyTriangles {
		indices := mesh.Indices
		if indices == nil {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
		mesh.Attributes[metadata.AttributeNormal] = metadata.AttributeData{
			Components: 3,
			Values:     SmoothNormals(mesh.Attributes[metadata.AttributePosition].Values, indices),
		}
	}

	if acc, ok := accessor(doc, prim.Attributes, gltf.TEXCOORD_0); ok {
		uvs, err := modeler.ReadTextureCoord(doc, acc, nil)
		if err != nil {
			return nil, err
		}
		values := make([]float32, 0, len(uvs)*2)
		for _, uv := range uvs {
			values = append(values, uv[0], uv[1])
		}
		mesh.Attributes[metadata.AttributeTexCoord] = metadata.AttributeData{Components: 2, Values: values}
	}

	if wAcc, ok := accessor(doc, prim.Attributes, gltf.WEIGHTS_0); ok {
		jAcc, ok := accessor(doc, prim.Attributes, gltf.JOINTS_0)
		if ok {
			weights, err := modeler.ReadWeights(doc, wAcc, nil)
			if err != nil {
				return nil, err
			}
			joints, err := modeler.ReadJoints(doc, jAcc, nil)
			if err != nil {
				return nil, err
			}
			w := make([]float32, 0, len(weights)*4)
			for _, v := range weights {
				w = append(w, v[0], v[1], v[2], v[3])
			}
			j := make([]float32, 0, len(joints)*4)
			for _, v := range joints {
				j = append(j, float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3]))
			}
			mesh.Attributes[metadata.AttributeBoneWeights] = metadata.AttributeData{Components: 4, Values: w}
			mesh.Attributes[metadata.AttributeBoneIndices] = metadata.AttributeData{Components: 4, Values: j}
		}
	}
	return mesh, nil
}

func flatten3(in [][3]float32) []float32 {
	out := make([]float32, 0, len(in)*3)
	for _, v := range in {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}
