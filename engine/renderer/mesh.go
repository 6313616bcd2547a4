package renderer

import (
	"fmt"
	"slices"

	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

// AttributeBuffer is one uploaded vertex stream.
type AttributeBuffer struct {
	Buffer     uint32
	Components int
}

/**
 * @brief Immutable GPU geometry: named vertex streams plus an optional index buffer.
 * Streams the bound program does not declare are skipped at draw time.
 */
type Mesh struct {
	Topology metadata.Topology

	backend     Backend
	attributes  map[string]AttributeBuffer
	names       []string
	indexBuffer uint32
	indexCount  int
	vertexCount int
}

// NewMesh validates data and uploads it.
func NewMesh(b Backend, data *metadata.MeshData) (*Mesh, error) {
	vertexCount := data.VertexCount()
	if vertexCount == 0 {
		return nil, fmt.Errorf("mesh without positions: %w", core.ErrInvalidGeometry)
	}
	for name, attr := range data.Attributes {
		if attr.Components <= 0 || len(attr.Values)%attr.Components != 0 {
			return nil, fmt.Errorf("attribute '%s' has %d values for %d components: %w", name, len(attr.Values), attr.Components, core.ErrInvalidGeometry)
		}
		if len(attr.Values)/attr.Components != vertexCount {
			return nil, fmt.Errorf("attribute '%s' has %d vertices, expected %d: %w", name, len(attr.Values)/attr.Components, vertexCount, core.ErrInvalidGeometry)
		}
	}
	for _, idx := range data.Indices {
		if int(idx) >= vertexCount {
			return nil, fmt.Errorf("index %d out of range (%d vertices): %w", idx, vertexCount, core.ErrInvalidGeometry)
		}
	}

	m := &Mesh{
		Topology:    data.Topology,
		backend:     b,
		attributes:  make(map[string]AttributeBuffer, len(data.Attributes)),
		vertexCount: vertexCount,
	}
	for name, attr := range data.Attributes {
		m.attributes[name] = AttributeBuffer{
			Buffer:     b.CreateVertexBuffer(attr.Values),
			Components: attr.Components,
		}
		m.names = append(m.names, name)
	}
	slices.Sort(m.names)
	if len(data.Indices) > 0 {
		m.indexBuffer = b.CreateIndexBuffer(data.Indices)
		m.indexCount = len(data.Indices)
	}
	core.AssertGPU(b, "create mesh")
	return m, nil
}

func (m *Mesh) VertexCount() int {
	return m.vertexCount
}

func (m *Mesh) IndexCount() int {
	return m.indexCount
}

func (m *Mesh) HasAttribute(name string) bool {
	_, ok := m.attributes[name]
	return ok
}

// Draw binds every stream the program declares and issues the draw call.
func (m *Mesh) Draw(ctx *RenderContext, p *Program) {
	if p == nil {
		return
	}
	b := ctx.Backend()
	bound := make([]int32, 0, len(m.names))
	for _, name := range m.names {
		loc := p.AttributeLocation(name)
		if loc < 0 {
			continue
		}
		attr := m.attributes[name]
		b.BindVertexAttribute(loc, attr.Buffer, attr.Components)
		bound = append(bound, loc)
	}

	if m.indexBuffer != 0 {
		b.DrawElements(m.Topology, m.indexBuffer, m.indexCount)
	} else {
		b.DrawArrays(m.Topology, 0, m.vertexCount)
	}

	for _, loc := range bound {
		b.DisableVertexAttribute(loc)
	}
}

// Destroy releases the GPU buffers.
func (m *Mesh) Destroy() {
	for name, attr := range m.attributes {
		m.backend.DestroyBuffer(attr.Buffer)
		delete(m.attributes, name)
	}
	m.names = nil
	if m.indexBuffer != 0 {
		m.backend.DestroyBuffer(m.indexBuffer)
		m.indexBuffer = 0
	}
}

// RectData returns two triangles covering (x0,y0)-(x1,y1) at depth z. The texture v axis
// runs from y1 (v=0) to y0 (v=1) so render target images appear upright under a top-down ortho.
func RectData(x0, y0, x1, y1, z float32) *metadata.MeshData {
	return &metadata.MeshData{
		Topology: metadata.TopologyTriangles,
		Attributes: map[string]metadata.AttributeData{
			metadata.AttributePosition: {Components: 3, Values: []float32{
				x0, y0, z, x1, y0, z, x1, y1, z,
				x1, y1, z, x0, y1, z, x0, y0, z,
			}},
			metadata.AttributeTexCoord: {Components: 2, Values: []float32{
				0, 1, 1, 1, 1, 0,
				1, 0, 0, 0, 0, 1,
			}},
			metadata.AttributeNormal: {Components: 3, Values: []float32{
				0, 0, 1, 0, 0, 1, 0, 0, 1,
				0, 0, 1, 0, 0, 1, 0, 0, 1,
			}},
		},
	}
}

// CreateRect uploads RectData.
func CreateRect(b Backend, x0, y0, x1, y1, z float32) *Mesh {
	m, err := NewMesh(b, RectData(x0, y0, x1, y1, z))
	if err != nil {
		// RectData is always well formed
		panic(err)
	}
	return m
}
