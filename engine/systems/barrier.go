package systems

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
)

// DrainedFunc is called once when a scene's barrier drains.
type DrainedFunc func(scene core.SceneID, elapsed time.Duration)

// CompletionBarrier counts outstanding loads of one scene and fires its
// callback exactly once, on the notifier, the first time the count returns
// to zero. A fired barrier refuses further Enter calls; the registry replaces
// it with a fresh one.
type CompletionBarrier struct {
	mutex       sync.Mutex
	scene       core.SceneID
	outstanding int
	fired       bool
	discarded   bool
	strict      bool
	clock       *core.Clock
	notifier    Dispatcher
	onDrained   DrainedFunc
}

func newCompletionBarrier(scene core.SceneID, notifier Dispatcher, clock *core.Clock, strict bool, onDrained DrainedFunc) *CompletionBarrier {
	clock.Start()
	return &CompletionBarrier{
		scene:     scene,
		strict:    strict,
		clock:     clock,
		notifier:  notifier,
		onDrained: onDrained,
	}
}

// Enter registers one unit of work. It returns false if the barrier already
// fired or was discarded.
func (b *CompletionBarrier) Enter() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.fired || b.discarded {
		return false
	}
	b.outstanding++
	return true
}

// Leave completes one unit of work. An unmatched Leave is logged and ignored,
// or panics when the barrier is strict.
func (b *CompletionBarrier) Leave() {
	b.mutex.Lock()
	if b.outstanding <= 0 {
		b.mutex.Unlock()
		if b.strict {
			panic(fmt.Sprintf("completion barrier for scene %s: leave without enter", b.scene))
		}
		core.LogError("completion barrier for scene %s: leave without enter", b.scene)
		return
	}
	b.outstanding--
	if b.outstanding > 0 || b.fired {
		b.mutex.Unlock()
		return
	}
	b.fired = true
	b.clock.Update()
	elapsed := b.clock.Elapsed()
	discarded := b.discarded
	b.mutex.Unlock()

	if discarded || b.onDrained == nil {
		return
	}

	scene := b.scene
	onDrained := b.onDrained
	err := b.notifier.Submit(metadata.JobTask{
		Name:    fmt.Sprintf("scene %s textures loaded", scene),
		JobType: metadata.JOB_TYPE_NOTIFY,
		OnStart: func(ctx context.Context) error {
			onDrained(scene, elapsed)
			return nil
		},
	})
	if err != nil {
		core.LogWarn("completion barrier for scene %s: notification dropped: %s", scene, err)
	}
}

// Outstanding is the number of entered but not yet left units of work.
func (b *CompletionBarrier) Outstanding() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.outstanding
}

func (b *CompletionBarrier) Fired() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.fired
}

// discard silences the barrier. In-flight work may still Leave.
func (b *CompletionBarrier) discard() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.discarded = true
}
