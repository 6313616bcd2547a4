package systems

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/parallax/engine/assets"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/engine/scene"
)

/**
 * @brief Turns model files (text scenes or glTF) into scene nodes with models. A model file
 * "x.scene" may come with "x.armature" and "x.pose"; meshes carrying bone attributes are then
 * drawn with a skinned material.
 */
type MeshLoaderSystem struct {
	backend   renderer.Backend
	assets    *assets.AssetManager
	materials *MaterialSystem

	models []*renderer.Model
	// skinned materials are per model and owned here
	owned []*renderer.Material
}

func NewMeshLoaderSystem(b renderer.Backend, am *assets.AssetManager, ms *MaterialSystem) *MeshLoaderSystem {
	return &MeshLoaderSystem{
		backend:   b,
		assets:    am,
		materials: ms,
	}
}

/**
 * @brief Loads path and attaches its objects below parent, keeping the file hierarchy.
 * @returns the nodes created directly below parent.
 */
func (mls *MeshLoaderSystem) Load(path string, parent *scene.Node) ([]*scene.Node, error) {
	res, err := mls.assets.LoadAsset(path, metadata.ResourceTypeScene, nil)
	if err != nil {
		return nil, err
	}
	data := res.Data.(*metadata.SceneResourceData)
	armature, pose := mls.loadSkeleton(res.FullPath)

	nodes := make(map[string]*scene.Node, len(data.Objects))
	var top []*scene.Node
	for _, obj := range data.Objects {
		p := parent
		if obj.Parent != "" {
			found, ok := nodes[obj.Parent]
			if !ok {
				return top, fmt.Errorf("%s: object '%s' parent '%s': %w", path, obj.Name, obj.Parent, core.ErrParentNotFound)
			}
			p = found
		}
		node := p.CreateChild(obj.Name)
		node.SetPosition(obj.Position)
		node.SetOrientation(obj.Orientation)
		node.SetScale(obj.Scale)
		nodes[obj.Name] = node
		if p == parent {
			top = append(top, node)
		}

		if len(obj.Meshes) == 0 {
			continue
		}
		model, err := mls.buildModel(res.FullPath, obj, armature, pose)
		if err != nil {
			return top, err
		}
		node.AttachModel(model)
	}
	core.LogInfo("model '%s' loaded: %d objects", path, len(data.Objects))
	return top, nil
}

func (mls *MeshLoaderSystem) buildModel(path string, obj *metadata.ObjectData, armature *metadata.ArmatureResourceData, pose *metadata.PoseResourceData) (*renderer.Model, error) {
	model := renderer.NewModel(obj.Name)
	skinned := false
	for _, md := range obj.Meshes {
		mesh, err := renderer.NewMesh(mls.backend, md)
		if err != nil {
			model.Destroy()
			return nil, fmt.Errorf("%s: object '%s': %w", path, obj.Name, err)
		}
		model.AddMesh(mesh)
		if mesh.HasAttribute(metadata.AttributeBoneWeights) && mesh.HasAttribute(metadata.AttributeBoneIndices) {
			skinned = true
		}
	}
	mls.models = append(mls.models, model)

	if skinned && armature != nil {
		mat, err := mls.materials.Create("phong_skinned")
		if err != nil {
			core.LogError("object '%s': %s", obj.Name, err)
			return model, nil
		}
		mls.materials.BindSkeleton(mat, armature, pose)
		mls.owned = append(mls.owned, mat)
		model.SetMaterial(mat)
		return model, nil
	}

	name := obj.Material
	if IsMaterialFile(name) && !filepath.IsAbs(name) {
		name = filepath.Join(filepath.Dir(path), name)
	}
	mat, err := mls.materials.Get(name)
	if err != nil {
		// the model stays without material and is skipped when drawn
		core.LogError("object '%s': %s", obj.Name, err)
		return model, nil
	}
	model.SetMaterial(mat)
	return model, nil
}

// loadSkeleton reads the armature and pose files next to the model, when present.
func (mls *MeshLoaderSystem) loadSkeleton(path string) (*metadata.ArmatureResourceData, *metadata.PoseResourceData) {
	base := strings.TrimSuffix(path, filepath.Ext(path))

	res, err := mls.assets.LoadAsset(base+".armature", metadata.ResourceTypeArmature, nil)
	if err != nil {
		if !errors.Is(err, core.ErrFileNotFound) {
			core.LogError("armature of '%s': %s", path, err)
		}
		return nil, nil
	}
	armature := res.Data.(*metadata.ArmatureResourceData)

	res, err = mls.assets.LoadAsset(base+".pose", metadata.ResourceTypePose, nil)
	if err != nil {
		if !errors.Is(err, core.ErrFileNotFound) {
			core.LogError("pose of '%s': %s", path, err)
		}
		return armature, nil
	}
	return armature, res.Data.(*metadata.PoseResourceData)
}

// Shutdown frees the meshes of every loaded model and the skinned materials.
func (mls *MeshLoaderSystem) Shutdown() error {
	for _, m := range mls.models {
		m.Destroy()
	}
	mls.models = nil
	for _, m := range mls.owned {
		m.Release()
	}
	mls.owned = nil
	return nil
}
