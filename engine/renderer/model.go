package renderer

import (
	"github.com/spaghettifunk/parallax/engine/core"
)

/**
 * @brief Meshes drawn with one material. Models are shared: several scene nodes may
 * reference the same model.
 */
type Model struct {
	Name     string
	Meshes   []*Mesh
	Material *Material
}

func NewModel(name string) *Model {
	return &Model{Name: name}
}

func (m *Model) AddMesh(mesh *Mesh) {
	m.Meshes = append(m.Meshes, mesh)
}

// SetMaterial swaps the material, keeping a reference on the new program and textures alive
// through the material itself.
func (m *Model) SetMaterial(mat *Material) {
	m.Material = mat
}

/**
 * @brief Draws every mesh. With an override material in ctx, only models whose own material
 * casts shadows are drawn, using the override. The stored material is never changed.
 * @returns true when draw calls were issued.
 */
func (m *Model) Draw(ctx *RenderContext) bool {
	if m.Material == nil {
		core.LogError("model '%s' has no material, skipping", m.Name)
		return false
	}

	material := m.Material
	if override := ctx.Override(); override != nil {
		if !m.Material.CastsShadows {
			return false
		}
		material = override
	}

	material.Apply(ctx)
	for _, mesh := range m.Meshes {
		mesh.Draw(ctx, material.Program)
	}
	ctx.Backend().UseProgram(0)
	return true
}

// Destroy releases the meshes. The material is shared and released by its owner.
func (m *Model) Destroy() {
	for _, mesh := range m.Meshes {
		mesh.Destroy()
	}
	m.Meshes = nil
}
