package systems

import (
	"sync"

	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
)

type sceneEntry struct {
	states  map[int]*LoadState
	barrier *CompletionBarrier
}

// SceneRegistry owns the load states and the completion barrier of every
// active scene. Entries are created on first use and removed as a whole.
type SceneRegistry struct {
	mutex  sync.Mutex
	scenes map[core.SceneID]*sceneEntry

	defaultContent func() *metadata.Texture
	newBarrier     func(scene core.SceneID) *CompletionBarrier
}

func NewSceneRegistry(defaultContent func() *metadata.Texture, newBarrier func(scene core.SceneID) *CompletionBarrier) *SceneRegistry {
	if defaultContent == nil {
		placeholder := metadata.NewDefaultTexture()
		defaultContent = func() *metadata.Texture { return placeholder }
	}
	return &SceneRegistry{
		scenes:         make(map[core.SceneID]*sceneEntry),
		defaultContent: defaultContent,
		newBarrier:     newBarrier,
	}
}

func (r *SceneRegistry) entry(scene core.SceneID) *sceneEntry {
	e, ok := r.scenes[scene]
	if !ok {
		e = &sceneEntry{states: make(map[int]*LoadState)}
		r.scenes[scene] = e
	}
	return e
}

// GetOrCreateLoadState returns the state of (scene, index), creating a
// NotStarted one holding the placeholder if needed.
func (r *SceneRegistry) GetOrCreateLoadState(scene core.SceneID, index int) *LoadState {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	e := r.entry(scene)
	ls, ok := e.states[index]
	if !ok {
		ls = newLoadState(r.defaultContent())
		e.states[index] = ls
	}
	return ls
}

func (r *SceneRegistry) LoadState(scene core.SceneID, index int) (*LoadState, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	e, ok := r.scenes[scene]
	if !ok {
		return nil, false
	}
	ls, ok := e.states[index]
	return ls, ok
}

// Enter registers a unit of work on the scene's live barrier and returns it.
// The barrier is created lazily, and recreated once a previous one fired.
func (r *SceneRegistry) Enter(scene core.SceneID) *CompletionBarrier {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	e := r.entry(scene)
	if e.barrier != nil && e.barrier.Enter() {
		return e.barrier
	}
	e.barrier = r.newBarrier(scene)
	e.barrier.Enter()
	return e.barrier
}

// Barrier returns the scene's current barrier, if any work was ever entered.
func (r *SceneRegistry) Barrier(scene core.SceneID) (*CompletionBarrier, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	e, ok := r.scenes[scene]
	if !ok || e.barrier == nil {
		return nil, false
	}
	return e.barrier, true
}

// Clear drops every load state and the barrier of scene. In-flight loads
// keep running against the detached states but never notify. Unknown scenes
// are ignored.
func (r *SceneRegistry) Clear(scene core.SceneID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	e, ok := r.scenes[scene]
	if !ok {
		return
	}
	if e.barrier != nil {
		e.barrier.discard()
	}
	delete(r.scenes, scene)
}

func (r *SceneRegistry) Has(scene core.SceneID) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	_, ok := r.scenes[scene]
	return ok
}

// Len is the number of registered scenes.
func (r *SceneRegistry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.scenes)
}
