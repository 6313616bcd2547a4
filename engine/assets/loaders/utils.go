package loaders

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine/core"
)

// wrapOpenError maps a missing file to core.ErrFileNotFound and keeps the path.
func wrapOpenError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, core.ErrFileNotFound)
	}
	return fmt.Errorf("%s: %w", path, err)
}

// lineError reports a malformed line of a text asset.
func lineError(path string, line int, format string, args ...interface{}) error {
	return fmt.Errorf("%s:%d: %s: %w", path, line, fmt.Sprintf(format, args...), core.ErrMalformedLine)
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, fmt.Errorf("invalid number '%s'", fields[i])
		}
		out[i] = float32(f)
	}
	return out, nil
}

func parseVec3(fields []string) (mgl32.Vec3, error) {
	f, err := parseFloats(fields, 3)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return mgl32.Vec3{f[0], f[1], f[2]}, nil
}
