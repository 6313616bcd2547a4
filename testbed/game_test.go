package testbed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/parallax/engine"
	"github.com/spaghettifunk/parallax/engine/renderer/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangle = `
o triangle
loc 0 0 -5
v -1 -1 0
v 1 -1 0
v 0 1 0
f 0 1 2
`

func headlessViewer(t *testing.T, options ViewerOptions, frames int) (*Viewer, *engine.Engine) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "triangle.scene"), []byte(triangle), 0o644))

	config := engine.DefaultApplicationConfig()
	config.Window.Width, config.Window.Height = 320, 240
	config.AssetsDir = dir
	config.Workers = 1
	config.LogLevel = "error"

	v := NewViewer(config, options)
	e, err := engine.NewHeadless(v.Game, frames)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	t.Cleanup(func() { require.NoError(t, e.Shutdown()) })
	return v, e
}

func programDraws(e *engine.Engine, program string) int {
	n := 0
	for _, d := range e.Backend().(*recorder.Backend).Draws {
		if d.ProgramName == program {
			n++
		}
	}
	return n
}

func TestViewerDrawsTheModel(t *testing.T) {
	v, e := headlessViewer(t, ViewerOptions{ModelPath: "triangle.scene", Spin: 90}, 2)
	require.Len(t, v.state().roots, 1)
	root := v.state().roots[0]
	assert.Equal(t, mgl32.QuatIdent(), root.Orientation)

	require.NoError(t, e.Run())
	assert.Equal(t, 1, programDraws(e, "phong"))
	assert.NotEqual(t, mgl32.QuatIdent(), root.Orientation)
}

func TestViewerWithoutModelShowsAnEmptyScene(t *testing.T) {
	v, e := headlessViewer(t, ViewerOptions{SkyboxPath: "sky.png"}, 1)
	assert.Empty(t, v.state().roots)
	require.NotNil(t, v.state().sky)

	require.NoError(t, e.Run())
	assert.Zero(t, programDraws(e, "phong"))
	assert.Equal(t, 1, programDraws(e, "skybox"))
}

func TestViewerReportsMissingModels(t *testing.T) {
	config := engine.DefaultApplicationConfig()
	config.AssetsDir = t.TempDir()
	config.LogLevel = "error"

	v := NewViewer(config, ViewerOptions{ModelPath: "missing.scene"})
	e, err := engine.NewHeadless(v.Game, 1)
	require.NoError(t, err)
	defer e.Shutdown()
	assert.Error(t, e.Initialize())
}
