package metadata

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

/** @brief A fixed-function GPU capability toggled by materials. */
type Capability int

const (
	CapabilityDepthTest Capability = iota
	CapabilityCullFace
	CapabilityBlend
	CapabilityProgramPointSize
	CapabilityMultisample
	CapabilityStencilTest
	CapabilityCount
)

// ManagedCapabilities lists, in application order, every capability a material writes on apply.
var ManagedCapabilities = []Capability{
	CapabilityDepthTest,
	CapabilityCullFace,
	CapabilityBlend,
	CapabilityProgramPointSize,
	CapabilityMultisample,
	CapabilityStencilTest,
}

var capabilityNames = map[Capability]string{
	CapabilityDepthTest:        "depth_test",
	CapabilityCullFace:         "cull_face",
	CapabilityBlend:            "blend",
	CapabilityProgramPointSize: "program_point_size",
	CapabilityMultisample:      "multisample",
	CapabilityStencilTest:      "stencil_test",
}

func (c Capability) String() string {
	if n, ok := capabilityNames[c]; ok {
		return n
	}
	return "unknown"
}

// ParseCapability maps names such as "cull_face" to a Capability.
func ParseCapability(name string) (Capability, bool) {
	for c, n := range capabilityNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

/** @brief Blend factors for source and destination colors. */
type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
)

/** @brief Primitive topology of a mesh. */
type Topology int

const (
	TopologyTriangles Topology = iota
	TopologyLines
	TopologyPoints
	TopologyTriangleStrip
)

/** @brief Buffers cleared by Backend.Clear. */
type ClearMask uint8

const (
	ClearColor ClearMask = 1 << iota
	ClearDepth
	ClearStencil
)

/** @brief Pixel format of a texture. */
type TextureFormat int

const (
	TextureFormatRGBA8 TextureFormat = iota
	TextureFormatRGB8
	TextureFormatDepth24
)

/** @brief Well known vertex attribute names shared by loaders and shaders. */
const (
	AttributePosition    = "position"
	AttributeNormal      = "normal"
	AttributeTexCoord    = "texcoord"
	AttributeBoneWeights = "bone_weights"
	AttributeBoneIndices = "bone_indices"
	AttributePointSize   = "point_size"
	AttributeAlpha       = "alpha"
)
