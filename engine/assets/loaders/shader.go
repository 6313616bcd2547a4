package loaders

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

type ShaderLoader struct{}

// Load reads a GLSL source file. The stage comes from the extension (.vert or .frag).
func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	var stage metadata.ShaderStage
	switch filepath.Ext(path) {
	case ".vert":
		stage = metadata.ShaderStageVertex
	case ".frag":
		stage = metadata.ShaderStageFragment
	default:
		return nil, fmt.Errorf("shader '%s': %w", path, core.ErrUnsupportedFormat)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapOpenError(path, err)
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeShader,
		Data: &metadata.ShaderResourceData{
			Stage:  stage,
			Source: string(data),
		},
	}, nil
}

func (sl *ShaderLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	return nil
}
