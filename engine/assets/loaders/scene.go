package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

// DefaultMaterial is used by objects without a "mat" line.
const DefaultMaterial = "phong"

type SceneLoader struct{}

/**
 * @brief Loads a line based scene description. Every "o NAME" starts an object; the lines
 * after it set its parent, material, placement and geometry.
 */
func (sl *SceneLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, wrapOpenError(path, err)
	}
	defer file.Close()

	data, err := ParseScene(file, path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeScene,
		Data:     data,
	}, nil
}

func (sl *SceneLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	return nil
}

type objectBuilder struct {
	obj         *metadata.ObjectData
	positions   []float32
	texcoords   []float32
	normals     []float32
	boneWeights []float32
	boneIndices []float32
	faces       []uint32
}

func newObjectBuilder(name string) *objectBuilder {
	return &objectBuilder{
		obj: &metadata.ObjectData{
			Name:        name,
			Material:    DefaultMaterial,
			Orientation: mgl32.QuatIdent(),
			Scale:       mgl32.Vec3{1, 1, 1},
		},
	}
}

// ParseScene reads the scene format from r; name is used in error messages.
func ParseScene(r io.Reader, name string) (*metadata.SceneResourceData, error) {
	var (
		objects []*metadata.ObjectData
		current *objectBuilder
		seen    = make(map[string]bool)
	)

	commit := func() {
		if current == nil {
			return
		}
		current.build(name)
		objects = append(objects, current.obj)
		current = nil
	}

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		keyword, args := fields[0], fields[1:]

		if keyword == "o" {
			if len(args) < 1 {
				return nil, lineError(name, lineNumber, "object without a name")
			}
			commit()
			if seen[args[0]] {
				return nil, fmt.Errorf("%s:%d: object '%s': %w", name, lineNumber, args[0], core.ErrDuplicateName)
			}
			seen[args[0]] = true
			current = newObjectBuilder(args[0])
			continue
		}
		if keyword == "g" {
			continue
		}
		if current == nil {
			return nil, lineError(name, lineNumber, "'%s' before the first object", keyword)
		}
		if err := current.apply(keyword, args); err != nil {
			return nil, lineError(name, lineNumber, "%s", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	commit()

	ordered, err := parentsFirst(objects)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &metadata.SceneResourceData{Objects: ordered}, nil
}

func (b *objectBuilder) apply(keyword string, args []string) error {
	switch keyword {
	case "parent":
		if len(args) < 1 {
			return fmt.Errorf("parent without a name")
		}
		b.obj.Parent = args[0]
	case "mat":
		if len(args) < 1 {
			return fmt.Errorf("mat without a name")
		}
		b.obj.Material = args[0]
	case "loc":
		v, err := parseVec3(args)
		if err != nil {
			return err
		}
		b.obj.Position = v
	case "rot":
		f, err := parseFloats(args, 4)
		if err != nil {
			return err
		}
		b.obj.Orientation = mgl32.Quat{W: f[0], V: mgl32.Vec3{f[1], f[2], f[3]}}
	case "scale":
		v, err := parseVec3(args)
		if err != nil {
			return err
		}
		b.obj.Scale = v
	case "v":
		f, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		b.positions = append(b.positions, f...)
	case "vt":
		f, err := parseFloats(args, 2)
		if err != nil {
			return err
		}
		b.texcoords = append(b.texcoords, f...)
	case "vn":
		f, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		b.normals = append(b.normals, f...)
	case "bw":
		f, err := parseFloats(args, 4)
		if err != nil {
			return err
		}
		b.boneWeights = append(b.boneWeights, f...)
	case "bi":
		f, err := parseFloats(args, 4)
		if err != nil {
			return err
		}
		b.boneIndices = append(b.boneIndices, f...)
	case "f":
		if len(args) < 3 {
			return fmt.Errorf("face needs 3 indices, got %d", len(args))
		}
		for _, a := range args[:3] {
			i, err := strconv.Atoi(a)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid index '%s'", a)
			}
			b.faces = append(b.faces, uint32(i))
		}
	default:
		return fmt.Errorf("unhandled token '%s'", keyword)
	}
	return nil
}

// build turns the collected streams into a mesh. Objects without vertices stay empty nodes.
func (b *objectBuilder) build(name string) {
	vertexCount := len(b.positions) / 3
	if vertexCount == 0 {
		return
	}

	indices := make([]uint32, 0, len(b.faces))
	for i := 0; i+2 < len(b.faces); i += 3 {
		face := b.faces[i : i+3]
		if int(face[0]) >= vertexCount || int(face[1]) >= vertexCount || int(face[2]) >= vertexCount {
			core.LogWarn("%s: object '%s': invalid face: %d %d %d", name, b.obj.Name, face[0], face[1], face[2])
			continue
		}
		indices = append(indices, face...)
	}

	// fill in texcoords if there aren't enough
	texcoords := make([]float32, vertexCount*2)
	copy(texcoords, b.texcoords)

	normals := b.normals
	if len(normals) != vertexCount*3 {
		if len(normals) > 0 {
			core.LogWarn("%s: object '%s' has %d normals for %d vertices, recomputing", name, b.obj.Name, len(normals)/3, vertexCount)
		}
		normals = SmoothNormals(b.positions, indices)
	}

	mesh := &metadata.MeshData{
		Topology: metadata.TopologyTriangles,
		Attributes: map[string]metadata.AttributeData{
			metadata.AttributePosition: {Components: 3, Values: b.positions},
			metadata.AttributeTexCoord: {Components: 2, Values: texcoords},
			metadata.AttributeNormal:   {Components: 3, Values: normals},
		},
		Indices: indices,
	}
	if len(b.boneWeights) == vertexCount*4 && len(b.boneIndices) == vertexCount*4 {
		mesh.Attributes[metadata.AttributeBoneWeights] = metadata.AttributeData{Components: 4, Values: b.boneWeights}
		mesh.Attributes[metadata.AttributeBoneIndices] = metadata.AttributeData{Components: 4, Values: b.boneIndices}
	} else if len(b.boneWeights) > 0 || len(b.boneIndices) > 0 {
		core.LogWarn("%s: object '%s': bone weights/indices do not cover every vertex, ignored", name, b.obj.Name)
	}
	b.obj.Meshes = append(b.obj.Meshes, mesh)
}

// SmoothNormals averages the face normals around every vertex.
func SmoothNormals(positions []float32, indices []uint32) []float32 {
	normals := make([]mgl32.Vec3, len(positions)/3)
	at := func(i uint32) mgl32.Vec3 {
		return mgl32.Vec3{positions[i*3], positions[i*3+1], positions[i*3+2]}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		n := at(b).Sub(at(a)).Cross(at(c).Sub(at(b)))
		normals[a] = normals[a].Add(n)
		normals[b] = normals[b].Add(n)
		normals[c] = normals[c].Add(n)
	}
	out := make([]float32, 0, len(positions))
	for _, n := range normals {
		if n.Len() > 0 {
			n = n.Normalize()
		}
		out = append(out, n[0], n[1], n[2])
	}
	return out
}

// parentsFirst orders objects so that every parent precedes its children, keeping file order otherwise.
func parentsFirst(objects []*metadata.ObjectData) ([]*metadata.ObjectData, error) {
	byName := make(map[string]*metadata.ObjectData, len(objects))
	for _, o := range objects {
		byName[o.Name] = o
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(objects))
	ordered := make([]*metadata.ObjectData, 0, len(objects))

	var visit func(o *metadata.ObjectData) error
	visit = func(o *metadata.ObjectData) error {
		switch state[o.Name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("object '%s' is its own ancestor: %w", o.Name, core.ErrParentNotFound)
		}
		state[o.Name] = visiting
		if o.Parent != "" {
			parent, ok := byName[o.Parent]
			if !ok {
				return fmt.Errorf("parent '%s' of '%s': %w", o.Parent, o.Name, core.ErrParentNotFound)
			}
			if err := visit(parent); err != nil {
				return err
			}
		}
		state[o.Name] = done
		ordered = append(ordered, o)
		return nil
	}

	for _, o := range objects {
		if err := visit(o); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
