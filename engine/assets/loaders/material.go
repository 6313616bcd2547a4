package loaders

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

type MaterialLoader struct{}

type materialFile struct {
	Material struct {
		Diffuse         []float32   `toml:"diffuse"`
		Ambient         []float32   `toml:"ambient"`
		Specular        []float32   `toml:"specular"`
		Shininess       *float32    `toml:"shininess"`
		DiffuseTexture  interface{} `toml:"diffuse_texture"`
		SpecularTexture interface{} `toml:"specular_texture"`
		CastShadows     *bool       `toml:"cast_shadows"`
		Enable          []string    `toml:"enable"`
		Disable         []string    `toml:"disable"`
	} `toml:"material"`
	Program struct {
		Name     string `toml:"name"`
		Vertex   string `toml:"vertex"`
		Fragment string `toml:"fragment"`
	} `toml:"program"`
	Uniforms map[string]interface{} `toml:"uniforms"`
}

func (ml *MaterialLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapOpenError(path, err)
	}
	cfg, err := ParseMaterial(data, path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     cfg.Name,
		FullPath: path,
		Type:     metadata.ResourceTypeMaterial,
		Data:     cfg,
	}, nil
}

func (ml *MaterialLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	return nil
}

/**
 * @brief Parses a TOML material description. Relative texture and shader paths are resolved
 * against the directory of path. Cull face and depth test are enabled unless disabled.
 */
func ParseMaterial(data []byte, path string) (*metadata.MaterialConfig, error) {
	var file materialFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", path, err, core.ErrMalformedLine)
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	cfg := DefaultMaterialConfig(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	cfg.Program = file.Program.Name

	var err error
	if cfg.Diffuse, err = vec3Or(file.Material.Diffuse, cfg.Diffuse); err != nil {
		return nil, fmt.Errorf("%s: diffuse: %w", path, err)
	}
	if cfg.Ambient, err = vec3Or(file.Material.Ambient, cfg.Ambient); err != nil {
		return nil, fmt.Errorf("%s: ambient: %w", path, err)
	}
	if cfg.Specular, err = vec3Or(file.Material.Specular, cfg.Specular); err != nil {
		return nil, fmt.Errorf("%s: specular: %w", path, err)
	}
	if file.Material.Shininess != nil {
		cfg.Shininess = *file.Material.Shininess
	}
	if file.Material.CastShadows != nil {
		cfg.CastShadows = *file.Material.CastShadows
	}
	if cfg.DiffuseTexture, err = textureRef(file.Material.DiffuseTexture, resolve); err != nil {
		return nil, fmt.Errorf("%s: diffuse_texture: %w", path, err)
	}
	if cfg.SpecularTexture, err = textureRef(file.Material.SpecularTexture, resolve); err != nil {
		return nil, fmt.Errorf("%s: specular_texture: %w", path, err)
	}

	for _, list := range []struct {
		names []string
		value bool
	}{{file.Material.Enable, true}, {file.Material.Disable, false}} {
		for _, n := range list.names {
			c, ok := metadata.ParseCapability(n)
			if !ok {
				return nil, fmt.Errorf("%s: unknown capability '%s': %w", path, n, core.ErrMalformedLine)
			}
			cfg.Capabilities[c] = list.value
		}
	}

	if file.Program.Vertex != "" || file.Program.Fragment != "" {
		if file.Program.Vertex == "" || file.Program.Fragment == "" {
			return nil, fmt.Errorf("%s: program needs both vertex and fragment: %w", path, core.ErrMalformedLine)
		}
		cfg.VertexPath = resolve(file.Program.Vertex)
		cfg.FragmentPath = resolve(file.Program.Fragment)
	}

	for name, raw := range file.Uniforms {
		v, err := uniformValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: uniform '%s': %w", path, name, err)
		}
		cfg.Uniforms[name] = v
		cfg.UniformOrder = append(cfg.UniformOrder, name)
	}
	slices.Sort(cfg.UniformOrder)
	return cfg, nil
}

// DefaultMaterialConfig describes a white, shadow casting material with culling and depth test.
func DefaultMaterialConfig(name string) *metadata.MaterialConfig {
	return &metadata.MaterialConfig{
		Name:        name,
		Diffuse:     mgl32.Vec3{1, 1, 1},
		Ambient:     mgl32.Vec3{1, 1, 1},
		Specular:    mgl32.Vec3{1, 1, 1},
		Shininess:   16,
		CastShadows: true,
		Capabilities: map[metadata.Capability]bool{
			metadata.CapabilityCullFace:  true,
			metadata.CapabilityDepthTest: true,
		},
		Uniforms: make(map[string]interface{}),
	}
}

func vec3Or(values []float32, def mgl32.Vec3) (mgl32.Vec3, error) {
	switch len(values) {
	case 0:
		return def, nil
	case 3:
		return mgl32.Vec3{values[0], values[1], values[2]}, nil
	default:
		return def, fmt.Errorf("expected 3 components, got %d: %w", len(values), core.ErrMalformedLine)
	}
}

func textureRef(raw interface{}, resolve func(string) string) (*metadata.TextureRef, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &metadata.TextureRef{Left: resolve(v)}, nil
	case []interface{}:
		paths := make([]string, 0, len(v))
		for _, p := range v {
			s, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("texture paths must be strings: %w", core.ErrMalformedLine)
			}
			paths = append(paths, resolve(s))
		}
		switch len(paths) {
		case 1:
			return &metadata.TextureRef{Left: paths[0]}, nil
		case 2:
			return &metadata.TextureRef{Left: paths[0], Right: paths[1]}, nil
		}
		return nil, fmt.Errorf("expected one texture or a left/right pair, got %d: %w", len(paths), core.ErrMalformedLine)
	default:
		return nil, fmt.Errorf("unsupported texture value %T: %w", raw, core.ErrMalformedLine)
	}
}

// uniformValue converts TOML numbers and arrays into uploadable values.
func uniformValue(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case float64:
		return float32(v), nil
	case int64:
		return int32(v), nil
	case bool:
		return v, nil
	case []interface{}:
		f := make([]float32, 0, len(v))
		for _, e := range v {
			switch n := e.(type) {
			case float64:
				f = append(f, float32(n))
			case int64:
				f = append(f, float32(n))
			default:
				return nil, fmt.Errorf("array element %T: %w", e, core.ErrMalformedLine)
			}
		}
		switch len(f) {
		case 2:
			return mgl32.Vec2{f[0], f[1]}, nil
		case 3:
			return mgl32.Vec3{f[0], f[1], f[2]}, nil
		case 4:
			return mgl32.Vec4{f[0], f[1], f[2], f[3]}, nil
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported value %T: %w", raw, core.ErrMalformedLine)
	}
}
