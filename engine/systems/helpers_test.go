package systems_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
	"github.com/spaghettifunk/texstream/engine/systems"
)

var errLoaderFailed = errors.New("loader failed")

type fakeScene struct {
	id        core.SceneID
	textures  map[int]*metadata.TextureDescriptor
	images    map[int]*metadata.ImageRecord
	cancelled atomic.Bool
}

// newFakeScene builds a scene whose texture i uses image i and has a
// compressed chain.
func newFakeScene(textures int) *fakeScene {
	s := &fakeScene{
		id:       core.NewSceneID(),
		textures: make(map[int]*metadata.TextureDescriptor),
		images:   make(map[int]*metadata.ImageRecord),
	}
	for i := 0; i < textures; i++ {
		s.textures[i] = &metadata.TextureDescriptor{
			Index:      i,
			Name:       fmt.Sprintf("tex%d", i),
			Image:      i,
			Compressed: fmt.Sprintf("tex%d.tmip", i),
			Sampler: metadata.Sampler{
				FilterMinify:  metadata.TextureFilterModeNearest,
				FilterMagnify: metadata.TextureFilterModeNearest,
				RepeatU:       metadata.TextureRepeatClampToEdge,
				RepeatV:       metadata.TextureRepeatClampToEdge,
				RepeatW:       metadata.TextureRepeatClampToEdge,
			},
		}
		s.images[i] = &metadata.ImageRecord{Index: i, Name: fmt.Sprintf("img%d", i), Path: fmt.Sprintf("img%d.png", i)}
	}
	return s
}

func (s *fakeScene) ID() core.SceneID { return s.id }

func (s *fakeScene) Texture(index int) (*metadata.TextureDescriptor, bool) {
	d, ok := s.textures[index]
	return d, ok
}

func (s *fakeScene) Image(index int) (*metadata.ImageRecord, bool) {
	r, ok := s.images[index]
	return r, ok
}

func (s *fakeScene) IsCancelled() bool { return s.cancelled.Load() }

type fakeCompressed struct {
	firstCalls atomic.Int32
	allCalls   atomic.Int32
	failFirst  bool
	failAll    bool
	panicAll   bool
	// called before returning a result, from the worker
	hook func(level metadata.MipLevel)
}

func (f *fakeCompressed) LoadCompressed(ctx context.Context, desc *metadata.TextureDescriptor, level metadata.MipLevel) (*metadata.Texture, error) {
	if level == metadata.MipLevelFirst {
		f.firstCalls.Add(1)
	} else {
		f.allCalls.Add(1)
	}
	if f.hook != nil {
		f.hook(level)
	}
	if level == metadata.MipLevelAll && f.panicAll {
		panic("corrupt level table")
	}
	if (level == metadata.MipLevelFirst && f.failFirst) || (level == metadata.MipLevelAll && f.failAll) {
		return nil, errLoaderFailed
	}
	return &metadata.Texture{Name: fmt.Sprintf("%s@%s", desc.Name, level), Width: 4, Height: 4, ChannelCount: 4}, nil
}

// sharedCompressed hands out the same cached handle for every texture and
// level.
type sharedCompressed struct {
	handle *metadata.Texture
}

func (s *sharedCompressed) LoadCompressed(ctx context.Context, desc *metadata.TextureDescriptor, level metadata.MipLevel) (*metadata.Texture, error) {
	return s.handle, nil
}

type fakeImages struct {
	calls atomic.Int32
	fail  bool
}

func (f *fakeImages) LoadImage(ctx context.Context, record *metadata.ImageRecord) (*metadata.ImageResourceData, error) {
	f.calls.Add(1)
	if f.fail {
		return nil, errLoaderFailed
	}
	return &metadata.ImageResourceData{Width: 8, Height: 8, ChannelCount: 4, Format: record.Path}, nil
}

type fakeNormalizer struct {
	calls atomic.Int32
}

func (f *fakeNormalizer) Compress(img *metadata.ImageResourceData) *metadata.Texture {
	f.calls.Add(1)
	return &metadata.Texture{Name: "raw:" + img.Format, Width: img.Width, Height: img.Height, ChannelCount: img.ChannelCount}
}

type recordingConsumer struct {
	mutex    sync.Mutex
	received []*metadata.Texture
}

func (c *recordingConsumer) UpdateTexture(t *metadata.Texture) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.received = append(c.received, t)
}

func (c *recordingConsumer) last() *metadata.Texture {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.received) == 0 {
		return nil
	}
	return c.received[len(c.received)-1]
}

func (c *recordingConsumer) origins() []metadata.TextureOrigin {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := make([]metadata.TextureOrigin, 0, len(c.received))
	for _, t := range c.received {
		out = append(out, t.Origin)
	}
	return out
}

type completion struct {
	scene   core.SceneID
	elapsed time.Duration
}

type recordingObserver struct {
	mutex  sync.Mutex
	events []completion
	ch     chan completion
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{ch: make(chan completion, 64)}
}

func (o *recordingObserver) OnAllTexturesLoaded(scene core.SceneID, elapsed time.Duration) {
	o.mutex.Lock()
	o.events = append(o.events, completion{scene: scene, elapsed: elapsed})
	o.mutex.Unlock()
	o.ch <- completion{scene: scene, elapsed: elapsed}
}

func (o *recordingObserver) count(scene core.SceneID) int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	n := 0
	for _, e := range o.events {
		if e.scene == scene {
			n++
		}
	}
	return n
}

// queueDispatcher holds jobs until Drain, so a test can issue every request
// before any load runs.
type queueDispatcher struct {
	mutex sync.Mutex
	jobs  []metadata.JobTask
}

func (q *queueDispatcher) Submit(jt metadata.JobTask) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.jobs = append(q.jobs, jt)
	return nil
}

func (q *queueDispatcher) Drain() int {
	ran := 0
	for {
		q.mutex.Lock()
		if len(q.jobs) == 0 {
			q.mutex.Unlock()
			return ran
		}
		jt := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mutex.Unlock()

		systems.InlineDispatcher{}.Submit(jt)
		ran++
	}
}

func (q *queueDispatcher) Pending() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.jobs)
}

type rejectingDispatcher struct{}

func (rejectingDispatcher) Submit(metadata.JobTask) error { return core.ErrJobSystemShutdown }

type fixture struct {
	system     *systems.TextureLoadSystem
	workers    *queueDispatcher
	compressed *fakeCompressed
	images     *fakeImages
	normalizer *fakeNormalizer
	observer   *recordingObserver
	supported  atomic.Bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		workers:    &queueDispatcher{},
		compressed: &fakeCompressed{},
		images:     &fakeImages{},
		normalizer: &fakeNormalizer{},
		observer:   newRecordingObserver(),
	}
	f.supported.Store(true)
	ts, err := systems.NewTextureLoadSystem(&systems.TextureLoadSystemConfig{
		Workers:    f.workers,
		Notifier:   systems.InlineDispatcher{},
		Compressed: f.compressed,
		Images:     f.images,
		Normalizer: f.normalizer,
		Capability: systems.CapabilityFunc(f.supported.Load),
		Observer:   f.observer,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.system = ts
	return f
}
