package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/components"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

/**
 * @brief Owns the two roots of a scene: the world root, drawn with the camera as given, and
 * the view root, drawn with the camera moved to the origin so its content follows the viewer
 * (skyboxes, head-locked geometry).
 */
type Manager struct {
	backend  renderer.Backend
	world    *Node
	view     *Node
	override *renderer.Material
	video    *renderer.Texture
	shadow   *renderer.ShadowState
}

func NewManager(b renderer.Backend) *Manager {
	return &Manager{
		backend: b,
		world:   NewNode("world"),
		view:    NewNode("view"),
	}
}

func (m *Manager) World() *Node {
	return m.world
}

func (m *Manager) View() *Node {
	return m.view
}

// SetOverride sets the material used instead of each model's own material in geometry-only passes.
func (m *Manager) SetOverride(mat *renderer.Material) {
	m.override = mat
}

func (m *Manager) Override() *renderer.Material {
	return m.override
}

func (m *Manager) SetVideoTexture(t *renderer.Texture) {
	m.video = t
}

func (m *Manager) SetShadow(s *renderer.ShadowState) {
	m.shadow = s
}

// UpdateTransforms refreshes the world matrices of both roots from identity.
func (m *Manager) UpdateTransforms() {
	m.world.UpdateTransform(mgl32.Ident4())
	m.view.UpdateTransform(mgl32.Ident4())
}

/**
 * @brief Draws the whole scene for one eye.
 * @param camera snapshot used for the world root; the view root uses a copy at the origin.
 * @param geometryOnly true for the shadow pass: shadow casters are drawn with the override
 * material, everything else is skipped.
 * @returns the number of models drawn.
 */
func (m *Manager) Render(camera components.Camera, geometryOnly bool, eye metadata.StereoEye) int {
	m.UpdateTransforms()

	drawn := m.renderRoot(m.world, camera, geometryOnly, eye)
	drawn += m.renderRoot(m.view, camera.WithPosition(mgl32.Vec3{}), geometryOnly, eye)
	return drawn
}

func (m *Manager) renderRoot(root *Node, camera components.Camera, geometryOnly bool, eye metadata.StereoEye) int {
	ctx := renderer.NewRenderContext(m.backend, camera, nil)
	ctx.SetEye(eye)
	ctx.SetVideoTexture(m.video)
	ctx.SetShadow(m.shadow)
	if geometryOnly {
		ctx.SetOverride(m.override)
	}

	drawn := 0
	root.Walk(func(n *Node) {
		ctx.SetNode(n)
		for _, model := range n.models {
			if model.Draw(ctx) {
				drawn++
			}
		}
	})
	return drawn
}

// Clear destroys every node below both roots.
func (m *Manager) Clear() {
	for _, root := range []*Node{m.world, m.view} {
		for len(root.children) > 0 {
			root.children[0].Destroy()
		}
	}
}
