package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/parallax/engine/assets/loaders"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

/**
 * @brief Resolves asset paths, dispatches them to the loader of their type and, once Watch
 * was called, reports changes of loaded assets as core.EVENT_CODE_ASSET_CHANGED events.
 */
type AssetManager struct {
	baseDir string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	watching bool
	isClosed bool
}

func NewAssetManager(baseDir string) (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		baseDir:  baseDir,
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}

	// Register loaders
	armature := &loaders.ArmatureLoader{}
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeMaterial, &loaders.MaterialLoader{})
	am.registerLoader(metadata.ResourceTypeArmature, armature)
	am.registerLoader(metadata.ResourceTypePose, armature)
	am.registerLoader(metadata.ResourceTypeBitmapFont, &loaders.BitmapFontLoader{})

	return am, nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Resolve returns path as is when it exists, otherwise relative to the asset directory.
func (am *AssetManager) Resolve(path string) string {
	if filepath.IsAbs(path) || am.baseDir == "" {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(am.baseDir, path)
}

/**
 * @brief Loads an asset with the loader of its type. ResourceTypeNone picks the type from
 * the file extension. A missing file yields an error wrapping core.ErrFileNotFound.
 */
func (am *AssetManager) LoadAsset(path string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	path = am.Resolve(path)
	if resourceType == metadata.ResourceTypeNone {
		resourceType = DetermineAssetType(path)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, core.ErrFileNotFound)
		}
		return nil, err
	}

	loader, err := am.loaderFor(path, resourceType)
	if err != nil {
		return nil, err
	}
	res, err := loader.Load(path, resourceType, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[cleanPath(path)] = AssetInfo{
		Path:       path,
		Type:       resourceType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()
	return res, nil
}

func (am *AssetManager) loaderFor(path string, resourceType metadata.ResourceType) (Loader, error) {
	if resourceType == metadata.ResourceTypeScene {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".gltf", ".glb":
			return &loaders.GLTFLoader{}, nil
		default:
			return &loaders.SceneLoader{}, nil
		}
	}
	loader, ok := am.loaders[resourceType]
	if !ok {
		return nil, fmt.Errorf("no loader registered for %s asset '%s': %w", resourceType, path, core.ErrUnsupportedFormat)
	}
	return loader, nil
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	loader, err := am.loaderFor(asset.FullPath, asset.Type)
	if err != nil {
		return err
	}
	return loader.Unload(asset)
}

// Loaded returns what is known about a loaded asset.
func (am *AssetManager) Loaded(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[cleanPath(am.Resolve(path))]
	return info, ok
}

// Watch starts reporting changes below dir (recursively).
func (am *AssetManager) Watch(dir string) error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return errors.New("asset watcher already closed")
	}
	start := !am.watching
	am.watching = true
	am.mutex.Unlock()

	if start {
		go am.start()
	}
	return am.watchRecursive(dir, false)
}

func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	if am.watching {
		close(am.done)
		return nil
	}
	return am.fsnotify.Close()
}

func (am *AssetManager) start() {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("cannot watch '%s': %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name, false)
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.handleFileEvent(e.Name, true)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return nil
		}
		if unWatch {
			return am.fsnotify.Remove(walkPath)
		}
		return am.fsnotify.Add(walkPath)
	})
}

// handleFileEvent posts an ASSET_CHANGED event for files that were loaded before.
func (am *AssetManager) handleFileEvent(path string, removed bool) {
	key := cleanPath(path)
	am.mutex.Lock()
	info, known := am.assets[key]
	if known && removed {
		delete(am.assets, key)
	}
	am.mutex.Unlock()
	if !known {
		return
	}

	err := core.EventPost(core.EventContext{
		Type: core.EVENT_CODE_ASSET_CHANGED,
		Data: core.AssetEvent{Path: info.Path, Removed: removed},
	})
	if err != nil {
		core.LogWarn("asset change of '%s' dropped: %s", path, err)
	}
}

func cleanPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// DetermineAssetType maps a file extension to the resource type loading it.
func DetermineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vert", ".frag":
		return metadata.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		return metadata.ResourceTypeImage
	case ".material":
		return metadata.ResourceTypeMaterial
	case ".scene", ".txt", ".mod", ".gltf", ".glb":
		return metadata.ResourceTypeScene
	case ".armature":
		return metadata.ResourceTypeArmature
	case ".pose":
		return metadata.ResourceTypePose
	case ".fnt":
		return metadata.ResourceTypeBitmapFont
	default:
		return metadata.ResourceTypeNone
	}
}
