package systems

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
)

// SceneSource is the resource table of a parsed scene.
type SceneSource interface {
	ID() core.SceneID
	Texture(index int) (*metadata.TextureDescriptor, bool)
	Image(index int) (*metadata.ImageRecord, bool)
	IsCancelled() bool
}

// CapabilityChecker reports whether the compressed texture path can be used
// for the current render target.
type CapabilityChecker interface {
	CompressedTexturesSupported() bool
}

type CapabilityFunc func() bool

func (f CapabilityFunc) CompressedTexturesSupported() bool { return f() }

type CompressedTextureLoader interface {
	LoadCompressed(ctx context.Context, desc *metadata.TextureDescriptor, level metadata.MipLevel) (*metadata.Texture, error)
}

type ImageLoader interface {
	LoadImage(ctx context.Context, record *metadata.ImageRecord) (*metadata.ImageResourceData, error)
}

// ImageNormalizer turns a decoded image into texture content. Runs on a
// loader worker.
type ImageNormalizer interface {
	Compress(img *metadata.ImageResourceData) *metadata.Texture
}

// SamplerConfigurator applies a texture's sampler settings to a consumer. It
// is called on every request, whatever the load status.
type SamplerConfigurator interface {
	ConfigureSampler(desc *metadata.TextureDescriptor, c Consumer)
}

type SamplerConfiguratorFunc func(desc *metadata.TextureDescriptor, c Consumer)

func (f SamplerConfiguratorFunc) ConfigureSampler(desc *metadata.TextureDescriptor, c Consumer) {
	f(desc, c)
}

// TextureMapSampler applies the descriptor sampler to consumers that accept one,
// such as *metadata.TextureMap.
var TextureMapSampler = SamplerConfiguratorFunc(func(desc *metadata.TextureDescriptor, c Consumer) {
	if target, ok := c.(interface{ ApplySampler(metadata.Sampler) }); ok {
		target.ApplySampler(desc.Sampler)
	}
})

// Observer is told once per drained scene barrier.
type Observer interface {
	OnAllTexturesLoaded(scene core.SceneID, elapsed time.Duration)
}

type ObserverFunc func(scene core.SceneID, elapsed time.Duration)

func (f ObserverFunc) OnAllTexturesLoaded(scene core.SceneID, elapsed time.Duration) {
	f(scene, elapsed)
}

type TextureLoadSystemConfig struct {
	// Workers runs request dispatch and pipelines. Required.
	Workers Dispatcher
	// Notifier runs observer callbacks. Required.
	Notifier Dispatcher

	Compressed CompressedTextureLoader
	Images     ImageLoader
	Normalizer ImageNormalizer
	Capability CapabilityChecker
	// Defaults to TextureMapSampler.
	Sampler  SamplerConfigurator
	Observer Observer

	// DefaultTexture builds the placeholder of new load states. Defaults to
	// one shared metadata.NewDefaultTexture().
	DefaultTexture func() *metadata.Texture
	// Panic on unbalanced barrier leaves instead of logging.
	StrictBarriers bool
	// Clock source for barrier timings, defaults to time.Now.
	Now func() time.Time
}

// LoadSnapshot describes one texture of a scene at a point in time.
type LoadSnapshot struct {
	Status    LoadStatus
	Content   *metadata.Texture
	Tokens    []ConsumerToken
	Publishes uint32
}

// TextureLoadSystem is the entry point for texture requests. Each distinct
// (scene, texture index) is loaded at most once; every consumer requesting it
// is attached to that single load.
type TextureLoadSystem struct {
	workers  Dispatcher
	sampler  SamplerConfigurator
	pipeline *FallbackPipeline
	registry *SceneRegistry
	metrics  *core.LoadMetrics

	observerMutex sync.RWMutex
	observer      Observer

	tokens atomic.Uint64
	closed atomic.Bool
}

func NewTextureLoadSystem(config *TextureLoadSystemConfig) (*TextureLoadSystem, error) {
	if config == nil {
		return nil, errors.New("func NewTextureLoadSystem - config is nil")
	}
	if config.Workers == nil || config.Notifier == nil {
		err := fmt.Errorf("func NewTextureLoadSystem - workers and notifier dispatchers are required")
		core.LogError("%s", err)
		return nil, err
	}
	if config.Images == nil || config.Normalizer == nil {
		err := fmt.Errorf("func NewTextureLoadSystem - an image loader and normalizer are required")
		core.LogError("%s", err)
		return nil, err
	}

	sampler := config.Sampler
	if sampler == nil {
		sampler = TextureMapSampler
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	metrics := core.NewLoadMetrics()
	ts := &TextureLoadSystem{
		workers:  config.Workers,
		sampler:  sampler,
		pipeline: NewFallbackPipeline(config.Compressed, config.Images, config.Normalizer, config.Capability, metrics),
		metrics:  metrics,
		observer: config.Observer,
	}
	notifier := config.Notifier
	strict := config.StrictBarriers
	ts.registry = NewSceneRegistry(config.DefaultTexture, func(scene core.SceneID) *CompletionBarrier {
		return newCompletionBarrier(scene, notifier, core.NewClockWithSource(now), strict, ts.sceneDrained)
	})

	return ts, nil
}

// SetObserver replaces the all-textures-loaded observer. Nil disables it.
func (ts *TextureLoadSystem) SetObserver(o Observer) {
	ts.observerMutex.Lock()
	defer ts.observerMutex.Unlock()
	ts.observer = o
}

func (ts *TextureLoadSystem) sceneDrained(scene core.SceneID, elapsed time.Duration) {
	ts.metrics.SceneCompleted(elapsed)
	core.Logger().Info("all textures loaded", "scene", scene, "elapsed", elapsed)

	ts.observerMutex.RLock()
	o := ts.observer
	ts.observerMutex.RUnlock()
	if o != nil {
		o.OnAllTexturesLoaded(scene, elapsed)
	}
}

func (ts *TextureLoadSystem) nextToken() ConsumerToken {
	return ConsumerToken(ts.tokens.Add(1))
}

// RequestLoad attaches consumer to texture index of src, starting the load
// if nobody requested it before. It never blocks on the load itself; the
// consumer first receives the current content, then every later update. A
// nil consumer only warms the texture.
func (ts *TextureLoadSystem) RequestLoad(src SceneSource, index int, consumer Consumer) {
	ts.metrics.RequestReceived()
	if ts.closed.Load() {
		core.LogWarn("texture load system is shut down, dropping request for texture %d", index)
		return
	}

	desc, ok := src.Texture(index)
	if !ok || desc == nil {
		ts.metrics.ResolutionFailed()
		core.LogWarn("scene %s: %s: %d", src.ID(), core.ErrTextureNotFound, index)
		return
	}

	scene := src.ID()
	state := ts.registry.GetOrCreateLoadState(scene, index)

	// The status gate and the barrier entry happen on the caller so that all
	// requests issued for a scene up front are covered by one barrier.
	start := state.begin()
	var barrier *CompletionBarrier
	if start {
		barrier = ts.registry.Enter(scene)
		ts.metrics.PipelineStarted()
	}

	err := ts.workers.Submit(metadata.JobTask{
		Name:    fmt.Sprintf("texture %d (%s)", index, desc.Name),
		JobType: metadata.JOB_TYPE_RESOURCE_LOAD,
		OnStart: func(ctx context.Context) error {
			if consumer != nil {
				ts.sampler.ConfigureSampler(desc, consumer)
				state.Attach(consumer, ts.nextToken)
			}
			if !start {
				return nil
			}
			return ts.load(ctx, src, desc, state, barrier)
		},
	})
	if err != nil {
		core.LogError("scene %s: texture %d not dispatched: %s", scene, index, err)
		if start {
			state.finish()
			barrier.Leave()
		}
	}
}

func (ts *TextureLoadSystem) load(ctx context.Context, src SceneSource, desc *metadata.TextureDescriptor, state *LoadState, barrier *CompletionBarrier) error {
	defer barrier.Leave()
	defer state.finish()
	defer ts.metrics.PipelineFinished()

	if err := ts.pipeline.Run(ctx, src, desc, state); err != nil {
		core.LogDebug("scene %s: texture %d: %s", src.ID(), desc.Index, err)
	}
	return nil
}

// HoldScene keeps the scene's barrier from draining until release is
// called, so a batch of requests issued one by one completes as a whole.
// A held scene with no requests notifies on release. release is idempotent.
func (ts *TextureLoadSystem) HoldScene(scene core.SceneID) (release func()) {
	if ts.closed.Load() {
		return func() {}
	}
	barrier := ts.registry.Enter(scene)
	var once sync.Once
	return func() { once.Do(barrier.Leave) }
}

// ClearScene releases every load state and the barrier of scene.
func (ts *TextureLoadSystem) ClearScene(scene core.SceneID) {
	ts.registry.Clear(scene)
}

// Detach stops delivering updates of (scene, index) to consumer.
func (ts *TextureLoadSystem) Detach(scene core.SceneID, index int, consumer Consumer) bool {
	state, ok := ts.registry.LoadState(scene, index)
	if !ok {
		return false
	}
	return state.Detach(consumer)
}

func (ts *TextureLoadSystem) Snapshot(scene core.SceneID, index int) (LoadSnapshot, bool) {
	state, ok := ts.registry.LoadState(scene, index)
	if !ok {
		return LoadSnapshot{}, false
	}
	return LoadSnapshot{
		Status:    state.Status(),
		Content:   state.Content(),
		Tokens:    state.Tokens(),
		Publishes: state.Publishes(),
	}, true
}

// HasScene reports whether scene has any registered state.
func (ts *TextureLoadSystem) HasScene(scene core.SceneID) bool {
	return ts.registry.Has(scene)
}

func (ts *TextureLoadSystem) Metrics() core.MetricsSnapshot {
	return ts.metrics.Snapshot()
}

// Closed reports whether Shutdown was called. Requests issued after that are
// dropped and never notify.
func (ts *TextureLoadSystem) Closed() bool {
	return ts.closed.Load()
}

// Shutdown rejects further requests. The dispatchers are owned by the caller.
func (ts *TextureLoadSystem) Shutdown() error {
	ts.closed.Store(true)
	return nil
}
