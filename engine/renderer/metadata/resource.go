package metadata

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	ResourceTypeNone ResourceType = iota
	/** @brief Image resource type. */
	ResourceTypeImage
	/** @brief Material description resource type. */
	ResourceTypeMaterial
	/** @brief GLSL shader source. */
	ResourceTypeShader
	/** @brief Scene resource type (text scene or glTF). */
	ResourceTypeScene
	/** @brief Armature (bind pose) resource type. */
	ResourceTypeArmature
	/** @brief Pose resource type. */
	ResourceTypePose
	/** @brief Bitmap font resource type. */
	ResourceTypeBitmapFont
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeImage:
		return "image"
	case ResourceTypeMaterial:
		return "material"
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeScene:
		return "scene"
	case ResourceTypeArmature:
		return "armature"
	case ResourceTypePose:
		return "pose"
	case ResourceTypeBitmapFont:
		return "bitmap_font"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The type of the resource. */
	Type ResourceType
	/** @brief The resource data. */
	Data interface{}
}

/** @brief Decoded image pixels, always RGBA8. */
type ImageResourceData struct {
	Width  uint32
	Height uint32
	Pixels []uint8
}

/** @brief Source code of a single shader stage. */
type ShaderResourceData struct {
	Stage  ShaderStage
	Source string
}

/** @brief Stage of a shader program. */
type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	if s == ShaderStageFragment {
		return "fragment"
	}
	return "vertex"
}

/** @brief One float attribute stream; Components values per vertex. */
type AttributeData struct {
	Components int
	Values     []float32
}

/** @brief CPU side geometry of one mesh, produced by the model loaders. */
type MeshData struct {
	Topology   Topology
	Attributes map[string]AttributeData
	Indices    []uint32
}

// VertexCount returns the number of vertices in the position stream.
func (m *MeshData) VertexCount() int {
	pos, ok := m.Attributes[AttributePosition]
	if !ok || pos.Components == 0 {
		return 0
	}
	return len(pos.Values) / pos.Components
}

/** @brief One object of a loaded scene: placement, meshes and material reference. */
type ObjectData struct {
	Name        string
	Parent      string
	Material    string
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Scale       mgl32.Vec3
	Meshes      []*MeshData
}

/** @brief Objects of a scene in file order. Parents always precede their children. */
type SceneResourceData struct {
	Objects []*ObjectData
}

/** @brief A named bone with its matrices. */
type BoneData struct {
	Name        string
	Matrix      mgl32.Mat4
	MatrixLocal mgl32.Mat4
	Head        mgl32.Vec3
	Tail        mgl32.Vec3
}

/** @brief Bind pose skeleton; MatrixLocal is stored inverted. */
type ArmatureResourceData struct {
	Bones []*BoneData
}

/** @brief Per frame bone matrices. */
type PoseResourceData struct {
	Bones []*BoneData
}

/** @brief Texture reference in a material description; Right is set for stereo pairs. */
type TextureRef struct {
	Left  string
	Right string
}

/** @brief Declarative material description, resolved by the material system. */
type MaterialConfig struct {
	Name            string
	Diffuse         mgl32.Vec3
	Ambient         mgl32.Vec3
	Specular        mgl32.Vec3
	Shininess       float32
	DiffuseTexture  *TextureRef
	SpecularTexture *TextureRef
	CastShadows     bool
	Program         string
	VertexPath      string
	FragmentPath    string
	Capabilities    map[Capability]bool
	Uniforms        map[string]interface{}
	// Uniforms keys sorted by name; the order they are bound in.
	UniformOrder []string
}

/** @brief Placement of one glyph inside a font page. */
type FontGlyph struct {
	Codepoint rune
	X         int
	Y         int
	Width     int
	Height    int
	XOffset   int
	YOffset   int
	XAdvance  int
	PageID    int
}

/** @brief A pair of codepoints with a kerning adjustment. */
type KerningPair struct {
	First  rune
	Second rune
}

/** @brief A bitmap font: glyph table, kerning and decoded page images. */
type BitmapFontResourceData struct {
	Face       string
	Size       int
	LineHeight int
	Baseline   int
	Glyphs     map[rune]FontGlyph
	Kernings   map[KerningPair]int
	Pages      map[int]image.Image
}
