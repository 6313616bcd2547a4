package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

/**
 * @brief Loads bone lists. With ResourceTypeArmature "matrix" holds a 3x3 rest rotation and
 * "matrix_local" the 4x4 bind matrix (stored inverted); with ResourceTypePose "matrix" holds
 * the 4x4 posed bone matrix. Matrices are column major.
 */
type ArmatureLoader struct{}

func (al *ArmatureLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, wrapOpenError(path, err)
	}
	defer file.Close()

	bones, err := ParseBones(file, path, assetType)
	if err != nil {
		return nil, err
	}

	res := &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     assetType,
	}
	if assetType == metadata.ResourceTypePose {
		res.Data = &metadata.PoseResourceData{Bones: bones}
	} else {
		res.Data = &metadata.ArmatureResourceData{Bones: bones}
	}
	return res, nil
}

func (al *ArmatureLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	return nil
}

// ParseBones reads bone blocks from r in file order.
func ParseBones(r io.Reader, name string, assetType metadata.ResourceType) ([]*metadata.BoneData, error) {
	var (
		bones   []*metadata.BoneData
		current *metadata.BoneData
	)
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		keyword, args := fields[0], fields[1:]

		if keyword == "bone" {
			if len(args) != 1 {
				return nil, lineError(name, lineNumber, "bone needs exactly one name")
			}
			current = &metadata.BoneData{Name: args[0], Matrix: mgl32.Ident4(), MatrixLocal: mgl32.Ident4()}
			bones = append(bones, current)
			continue
		}
		if current == nil {
			return nil, lineError(name, lineNumber, "'%s' before the first bone", keyword)
		}

		switch keyword {
		case "matrix":
			if assetType == metadata.ResourceTypePose {
				m, err := parseMat4(args)
				if err != nil {
					return nil, lineError(name, lineNumber, "%s", err)
				}
				current.Matrix = m
			} else {
				f, err := parseFloats(args, 9)
				if err != nil {
					return nil, lineError(name, lineNumber, "%s", err)
				}
				current.Matrix = mgl32.Mat3(f).Mat4()
			}
		case "matrix_local":
			m, err := parseMat4(args)
			if err != nil {
				return nil, lineError(name, lineNumber, "%s", err)
			}
			if m.Det() == 0 {
				return nil, lineError(name, lineNumber, "bone '%s' has a singular local matrix", current.Name)
			}
			current.MatrixLocal = m.Inv()
		case "head":
			v, err := parseVec3(args)
			if err != nil {
				return nil, lineError(name, lineNumber, "%s", err)
			}
			current.Head = v
		case "tail":
			v, err := parseVec3(args)
			if err != nil {
				return nil, lineError(name, lineNumber, "%s", err)
			}
			current.Tail = v
		case "parent", "head_local", "tail_local":
		default:
			core.LogWarn("%s:%d: unhandled tag '%s'", name, lineNumber, keyword)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return bones, nil
}

func parseMat4(fields []string) (mgl32.Mat4, error) {
	f, err := parseFloats(fields, 16)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	return mgl32.Mat4(f), nil
}
