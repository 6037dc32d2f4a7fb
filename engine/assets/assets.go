package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/texstream/engine/assets/loaders"
	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

type AssetManagerConfig struct {
	// Root of the asset tree. Asset names are slash separated paths relative to it.
	Dir string
	// Keep the index current while the engine runs.
	Watch bool
	// Upper bound of concurrent image decodes.
	MaxConcurrentDecodes int64
}

// AssetManager indexes an asset directory and hands files to the loader
// registered for their type.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	return &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(config AssetManagerConfig) error {
	root, err := filepath.Abs(config.Dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("asset directory %s: %w", config.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("asset directory %s is not a directory", config.Dir)
	}
	am.root = root

	// Register loaders
	am.RegisterLoader(metadata.ResourceTypeImage, loaders.NewImageLoader(config.MaxConcurrentDecodes))
	am.RegisterLoader(metadata.ResourceTypeMipChain, &loaders.MipChainLoader{})

	if !config.Watch {
		close(am.stopped)
		return am.index(root)
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = fsWatch
	if err := am.watchRecursive(root, false); err != nil {
		fsWatch.Close()
		return err
	}
	go am.start()

	core.LogInfo("indexed %d assets under %s", am.Len(), root)
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) RegisterLoader(assetType metadata.ResourceType, loader Loader) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.loaders[assetType] = loader
}

// Resolve maps an asset name to its indexed file.
func (am *AssetManager) Resolve(name string) (AssetInfo, bool) {
	key := filepath.ToSlash(filepath.Clean(name))
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	asset, ok := am.assets[key]
	return asset, ok
}

// Load an asset using the appropriate loader
func (am *AssetManager) LoadAsset(ctx context.Context, name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	key := filepath.ToSlash(filepath.Clean(name))

	am.mutex.Lock()
	asset, exists := am.assets[key]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[key] = asset
	}
	loader, loaderExists := am.loaders[resourceType]
	am.mutex.Unlock()

	if !exists {
		return nil, fmt.Errorf("%s: %w", name, core.ErrAssetNotFound)
	}
	if asset.Type != resourceType {
		return nil, fmt.Errorf("asset %s is a %s, not a %s", name, asset.Type, resourceType)
	}
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", resourceType)
	}

	core.LogDebug("loading %s %s", resourceType, name)
	return loader.Load(ctx, asset.Path, params)
}

func (am *AssetManager) UnloadAsset(resourceType metadata.ResourceType, asset *metadata.Resource) error {
	am.mutex.RLock()
	loader, ok := am.loaders[resourceType]
	am.mutex.RUnlock()
	if !ok {
		return nil
	}
	return loader.Unload(asset)
}

// Len is the number of indexed assets.
func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Shutdown stops watching the asset directory.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	if am.fsnotify == nil {
		return nil
	}
	close(am.done)
	<-am.stopped
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
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
						core.LogWarn("watching %s: %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			// A removed directory can't be stat'ed; dropping it from the
			// watch list is harmless when it was a file.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
				am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("fsnotify: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// index walks root once without watching it.
func (am *AssetManager) index(root string) error {
	err := filepath.WalkDir(root, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			am.handleFileEvent(walkPath)
		}
		return nil
	})
	if err == nil {
		core.LogInfo("indexed %d assets under %s", am.Len(), root)
	}
	return err
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files it finds. Files created before the watch is added to
// their directory are picked up by the walk.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

func (am *AssetManager) key(path string) (string, bool) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return
	}
	key, ok := am.key(path)
	if !ok {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[key] = AssetInfo{
		Path: path,
		Type: assetType,
	}
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	key, ok := am.key(path)
	if !ok {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, key)
	// a removed directory takes its files with it
	prefix := key + "/"
	for k := range am.assets {
		if strings.HasPrefix(k, prefix) {
			delete(am.assets, k)
		}
	}
}

var errUnknownAssetType = errors.New("unknown asset type")

// AssetType reports the resource type an asset name maps to.
func AssetType(name string) (metadata.ResourceType, error) {
	if t := determineAssetType(name); t != metadata.ResourceTypeNone {
		return t, nil
	}
	return metadata.ResourceTypeNone, fmt.Errorf("%s: %w", name, errUnknownAssetType)
}

func determineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage
	case ".tmip":
		return metadata.ResourceTypeMipChain
	case ".toml":
		return metadata.ResourceTypeScene
	default:
		return metadata.ResourceTypeNone
	}
}
