package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/scene"
	"github.com/spaghettifunk/texstream/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine accepts scenes
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting-down"
	}
	return "unknown"
}

var ErrNotRunning = errors.New("engine is not running")

type Engine struct {
	config        *Config
	systemManager *systems.SystemManager

	mutex        sync.Mutex
	currentStage Stage
	scenes       map[core.SceneID]*scene.Scene
	waiters      map[core.SceneID]chan time.Duration
}

func New(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config:       config,
		currentStage: EngineStageUninitialized,
		scenes:       make(map[core.SceneID]*scene.Scene),
		waiters:      make(map[core.SceneID]chan time.Duration),
	}, nil
}

func (e *Engine) setStage(s Stage) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.currentStage = s
}

func (e *Engine) Stage() Stage {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.currentStage
}

func (e *Engine) Initialize() error {
	if e.Stage() != EngineStageUninitialized {
		return fmt.Errorf("engine cannot be initialized in stage %s", e.Stage())
	}
	e.setStage(EngineStageInitializing)

	level, err := core.ParseLogLevel(e.config.Log.Level)
	if err != nil {
		return err
	}
	core.SetLogLevel(level)
	if e.config.Log.Prefix != "" {
		core.SetLogPrefix(e.config.Log.Prefix)
	}

	sm, err := systems.NewSystemManager(e.config.systemManagerConfig(), e)
	if err != nil {
		e.setStage(EngineStageUninitialized)
		return err
	}
	e.systemManager = sm
	e.setStage(EngineStageInitialized)

	core.LogInfo("engine initialized, assets from %s", e.config.Assets.Dir)
	e.setStage(EngineStageRunning)
	return nil
}

// OnAllTexturesLoaded wakes the LoadScene call waiting for scene.
func (e *Engine) OnAllTexturesLoaded(id core.SceneID, elapsed time.Duration) {
	e.mutex.Lock()
	ch, ok := e.waiters[id]
	delete(e.waiters, id)
	e.mutex.Unlock()
	if ok {
		ch <- elapsed
	}
}

// RequestScene issues a texture request for every material slot of s and
// returns a channel receiving the scene's load time once every texture
// settled.
func (e *Engine) RequestScene(s *scene.Scene) (<-chan time.Duration, error) {
	e.mutex.Lock()
	if e.currentStage != EngineStageRunning || e.systemManager.TextureLoadSystem.Closed() {
		e.mutex.Unlock()
		return nil, ErrNotRunning
	}
	ch := make(chan time.Duration, 1)
	e.waiters[s.ID()] = ch
	e.scenes[s.ID()] = s
	e.mutex.Unlock()

	ts := e.systemManager.TextureLoadSystem
	release := ts.HoldScene(s.ID())
	for _, m := range s.Materials() {
		for _, slot := range m.Slots {
			ts.RequestLoad(s, slot.Texture, slot.Map)
		}
	}
	release()

	// a shutdown racing the requests drops them, so the scene would never
	// notify
	if ts.Closed() {
		e.forget(s.ID())
		return nil, ErrNotRunning
	}
	return ch, nil
}

// LoadScene loads the scene at path and waits until all its textures are
// loaded and bound to their slots, or ctx is done. A cancelled load unloads
// the scene.
func (e *Engine) LoadScene(ctx context.Context, path string) (*scene.Scene, time.Duration, error) {
	s, err := scene.Load(path)
	if err != nil {
		return nil, 0, err
	}

	done, err := e.RequestScene(s)
	if err != nil {
		return nil, 0, err
	}

	var elapsed time.Duration
	select {
	case elapsed = <-done:
	case <-ctx.Done():
		e.UnloadScene(s)
		return nil, 0, fmt.Errorf("loading scene %s: %w", s.Name, core.ErrSceneCancelled)
	}

	// attach jobs of shared textures may still be queued behind the last load
	for _, m := range s.Materials() {
		for _, slot := range m.Slots {
			select {
			case <-slot.Map.Ready():
			case <-ctx.Done():
				e.UnloadScene(s)
				return nil, 0, fmt.Errorf("loading scene %s: %w", s.Name, core.ErrSceneCancelled)
			}
		}
	}

	core.Logger().Info("scene loaded", "scene", s.Name, "id", s.ID(), "textures", s.TextureCount(), "elapsed", elapsed)
	return s, elapsed, nil
}

func (e *Engine) forget(id core.SceneID) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.waiters, id)
	delete(e.scenes, id)
}

// UnloadScene cancels running loads of s and releases its texture states.
func (e *Engine) UnloadScene(s *scene.Scene) {
	s.Cancel()
	e.forget(s.ID())
	if e.systemManager != nil {
		e.systemManager.TextureLoadSystem.ClearScene(s.ID())
	}
}

// Scenes is the number of scenes currently loaded or loading.
func (e *Engine) Scenes() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return len(e.scenes)
}

func (e *Engine) TextureLoadSystem() *systems.TextureLoadSystem {
	return e.systemManager.TextureLoadSystem
}

func (e *Engine) Metrics() core.MetricsSnapshot {
	return e.systemManager.TextureLoadSystem.Metrics()
}

func (e *Engine) Shutdown() error {
	e.mutex.Lock()
	if e.currentStage != EngineStageRunning {
		e.mutex.Unlock()
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	scenes := make([]*scene.Scene, 0, len(e.scenes))
	for _, s := range e.scenes {
		scenes = append(scenes, s)
	}
	e.mutex.Unlock()

	for _, s := range scenes {
		s.Cancel()
	}
	if err := e.systemManager.Shutdown(); err != nil {
		return err
	}
	e.setStage(EngineStageUninitialized)
	core.LogInfo("engine shut down")
	return nil
}
