package scene

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/math"
	"github.com/spaghettifunk/parallax/engine/renderer"
)

/**
 * @brief A node of the scene graph. A node exclusively owns its children; pointers returned
 * by CreateChild are observers that stay valid as values but report Alive() == false once
 * the node (or one of its ancestors) was destroyed. Models are shared with other nodes.
 */
type Node struct {
	Name        string
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Scale       mgl32.Vec3

	world    mgl32.Mat4
	parent   *Node
	children []*Node
	models   []*renderer.Model
	alive    bool
}

// NewNode creates a detached root node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:        name,
		Orientation: mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 1, 1},
		world:       mgl32.Ident4(),
		alive:       true,
	}
}

func (n *Node) SetPosition(p mgl32.Vec3) {
	n.Position = p
}

func (n *Node) SetOrientation(q mgl32.Quat) {
	n.Orientation = q
}

func (n *Node) SetScale(s mgl32.Vec3) {
	n.Scale = s
}

// LocalTransform returns translate(p) * rotate(q) * scale(s).
func (n *Node) LocalTransform() mgl32.Mat4 {
	return math.Compose(n.Position, n.Orientation, n.Scale)
}

// WorldTransform returns the matrix computed by the last UpdateTransform.
func (n *Node) WorldTransform() mgl32.Mat4 {
	return n.world
}

/**
 * @brief Recomputes the world matrix of this node and of its whole subtree.
 * @param parentWorld world matrix of the parent, identity for a root.
 */
func (n *Node) UpdateTransform(parentWorld mgl32.Mat4) {
	n.world = parentWorld.Mul4(n.LocalTransform())
	for _, child := range n.children {
		child.UpdateTransform(n.world)
	}
}

// CreateChild appends a new child and returns an observer to it.
func (n *Node) CreateChild(name string) *Node {
	child := NewNode(name)
	child.parent = n
	n.children = append(n.children, child)
	return child
}

func (n *Node) AttachModel(m *renderer.Model) {
	n.models = append(n.models, m)
}

// Models returns the models attached to this node, in attach order.
func (n *Node) Models() []*renderer.Model {
	return n.models
}

// Children returns the owned children in insertion order.
func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Alive() bool {
	return n.alive
}

// Walk visits the subtree depth-first, pre-order, children in insertion order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.children {
		child.Walk(fn)
	}
}

// Find returns the first node named name in Walk order, nil when absent.
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, child := range n.children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Destroy detaches the node from its parent and invalidates the whole subtree.
func (n *Node) Destroy() {
	if n.parent != nil {
		n.parent.children = slices.DeleteFunc(n.parent.children, func(c *Node) bool { return c == n })
		n.parent = nil
	}
	n.Walk(func(c *Node) {
		c.alive = false
		c.models = nil
	})
	n.children = nil
}
