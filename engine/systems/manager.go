package systems

import (
	"errors"

	"github.com/spaghettifunk/texstream/engine/assets"
	"github.com/spaghettifunk/texstream/engine/assets/loaders"
	"github.com/spaghettifunk/texstream/engine/core"
)

type SystemManagerConfig struct {
	Workers   int
	QueueSize int

	// The compressed mip chain path is usable.
	CompressedTextures   bool
	MaxTextureDimension  uint32
	PowerOfTwoTextures   bool
	MaxConcurrentDecodes int64
	FlipY                bool

	AssetsDir   string
	WatchAssets bool

	StrictBarriers bool
}

type SystemManager struct {
	jobSystem      *JobSystem
	notifierSystem *JobSystem
	assetManager   *assets.AssetManager

	TextureLoadSystem *TextureLoadSystem
}

func NewSystemManager(config *SystemManagerConfig, observer Observer) (*SystemManager, error) {
	if config == nil {
		return nil, errors.New("func NewSystemManager - config is nil")
	}

	js, err := NewJobSystem("loaders", config.Workers, config.QueueSize)
	if err != nil {
		return nil, err
	}
	// a single worker keeps observer callbacks ordered
	ns, err := NewJobSystem("notifier", 1, config.QueueSize)
	if err != nil {
		js.Shutdown()
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		js.Shutdown()
		ns.Shutdown()
		return nil, err
	}
	if err := am.Initialize(assets.AssetManagerConfig{
		Dir:                  config.AssetsDir,
		Watch:                config.WatchAssets,
		MaxConcurrentDecodes: config.MaxConcurrentDecodes,
	}); err != nil {
		js.Shutdown()
		ns.Shutdown()
		return nil, err
	}

	compressed := config.CompressedTextures
	source := NewAssetTextureSource(am, config.FlipY)
	ts, err := NewTextureLoadSystem(&TextureLoadSystemConfig{
		Workers:        js,
		Notifier:       ns,
		Compressed:     source,
		Images:         source,
		Normalizer:     loaders.NewNormalizer(config.MaxTextureDimension, config.PowerOfTwoTextures),
		Capability:     CapabilityFunc(func() bool { return compressed }),
		Observer:       observer,
		StrictBarriers: config.StrictBarriers,
	})
	if err != nil {
		js.Shutdown()
		ns.Shutdown()
		am.Shutdown()
		return nil, err
	}

	core.LogDebug("system manager ready: %d loader workers, compressed textures %t", js.Workers(), compressed)
	return &SystemManager{
		jobSystem:         js,
		notifierSystem:    ns,
		assetManager:      am,
		TextureLoadSystem: ts,
	}, nil
}

func (sm *SystemManager) AssetManager() *assets.AssetManager {
	return sm.assetManager
}

// Shutdown stops new requests, cancels and drains running loads, then
// delivers pending notifications.
func (sm *SystemManager) Shutdown() error {
	if err := sm.TextureLoadSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.jobSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.notifierSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.assetManager.Shutdown(); err != nil {
		return err
	}
	return nil
}
