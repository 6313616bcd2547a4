package assets

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func TestDetermineAssetType(t *testing.T) {
	for path, want := range map[string]metadata.ResourceType{
		"a/b.vert":       metadata.ResourceTypeShader,
		"tex.PNG":        metadata.ResourceTypeImage,
		"metal.material": metadata.ResourceTypeMaterial,
		"room.scene":     metadata.ResourceTypeScene,
		"room.glb":       metadata.ResourceTypeScene,
		"rig.armature":   metadata.ResourceTypeArmature,
		"walk.pose":      metadata.ResourceTypePose,
		"font.fnt":       metadata.ResourceTypeBitmapFont,
		"notes.md":       metadata.ResourceTypeNone,
	} {
		assert.Equal(t, want, DetermineAssetType(path), path)
	}
}

func TestLoadAssetResolvesAgainstBaseDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "box.scene"), []byte("o box\nloc 1 2 3\n"), 0o644))

	am, err := NewAssetManager(dir)
	require.NoError(t, err)
	defer am.Shutdown()

	res, err := am.LoadAsset("box.scene", metadata.ResourceTypeNone, nil)
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceTypeScene, res.Type)
	scene := res.Data.(*metadata.SceneResourceData)
	require.Len(t, scene.Objects, 1)
	assert.Equal(t, "box", scene.Objects[0].Name)

	info, ok := am.Loaded("box.scene")
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeScene, info.Type)

	require.NoError(t, am.UnloadAsset(res))
	assert.Nil(t, res.Data)
}

func TestLoadAssetMissingFile(t *testing.T) {
	am, err := NewAssetManager(t.TempDir())
	require.NoError(t, err)
	defer am.Shutdown()

	_, err = am.LoadAsset("missing.material", metadata.ResourceTypeNone, nil)
	assert.ErrorIs(t, err, core.ErrFileNotFound)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.unknown"), nil, 0o644))
	_, err = am.LoadAsset(filepath.Join(dir, "x.unknown"), metadata.ResourceTypeNone, nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestWatchPostsChangesOfLoadedAssets(t *testing.T) {
	require.True(t, core.EventSystemInitialize())
	defer core.EventSystemShutdown()

	dir := t.TempDir()
	path := filepath.Join(dir, "flat.frag")
	require.NoError(t, os.WriteFile(path, []byte("void main() {}\n"), 0o644))

	am, err := NewAssetManager(dir)
	require.NoError(t, err)
	defer am.Shutdown()

	_, err = am.LoadAsset(path, metadata.ResourceTypeNone, nil)
	require.NoError(t, err)
	require.NoError(t, am.Watch(dir))

	var changed []core.AssetEvent
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, nil, func(ctx core.EventContext) bool {
		changed = append(changed, ctx.Data.(core.AssetEvent))
		return true
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.frag"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("void main() { }\n"), 0o644))

	require.Eventually(t, func() bool {
		core.EventDispatchPending()
		return len(changed) > 0
	}, 5*time.Second, 20*time.Millisecond)

	for _, e := range changed {
		assert.Equal(t, path, e.Path)
		assert.False(t, e.Removed)
	}
}
