package systems

import (
	"context"
	"fmt"
	"sync"

	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
)

// Dispatcher runs jobs somewhere else. JobSystem is the production
// implementation; tests plug in a synchronous one.
type Dispatcher interface {
	Submit(jt metadata.JobTask) error
}

type JobSystem struct {
	name       string
	numWorkers int
	jobQueue   chan metadata.JobTask
	wg         sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	// guards closed and sends on jobQueue against Shutdown closing it
	mutex  sync.RWMutex
	closed bool
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(name string, numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobSystem{
		name:       name,
		numWorkers: numWorkers,
		jobQueue:   make(chan metadata.JobTask, channelSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job metadata.JobTask) {
	runJob(js.ctx, js.name, job)
}

// runJob runs one job and its completion callbacks.
func runJob(ctx context.Context, owner string, job metadata.JobTask) {
	err := invoke(ctx, job)
	if err != nil {
		core.LogError("%s: %s job %q failed: %s", owner, job.JobType, job.Name, err)
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete()
	}
}

// invoke keeps a panicking job from taking the worker down with it.
func invoke(ctx context.Context, job metadata.JobTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	if job.OnStart == nil {
		return fmt.Errorf("job %q has no entry point", job.Name)
	}
	return job.OnStart(ctx)
}

// InlineDispatcher runs every job on the submitting goroutine before Submit
// returns. It makes the load system deterministic in tests.
type InlineDispatcher struct {
	Ctx context.Context
}

func (d InlineDispatcher) Submit(jt metadata.JobTask) error {
	ctx := d.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	runJob(ctx, "inline dispatcher", jt)
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 * @param jt The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt metadata.JobTask) error {
	js.mutex.RLock()
	defer js.mutex.RUnlock()
	if js.closed {
		return core.ErrJobSystemShutdown
	}
	js.jobQueue <- jt
	return nil
}

// Context is cancelled when the job system shuts down. Long running jobs
// should watch it.
func (js *JobSystem) Context() context.Context {
	return js.ctx
}

func (js *JobSystem) Workers() int {
	return js.numWorkers
}

/**
 * @brief Shuts the job system down. Queued jobs still run, with a cancelled
 * context. Safe to call more than once.
 */
func (js *JobSystem) Shutdown() error {
	js.mutex.Lock()
	if js.closed {
		js.mutex.Unlock()
		return nil
	}
	js.closed = true
	js.cancel()
	close(js.jobQueue)
	js.mutex.Unlock()

	js.wg.Wait()
	core.LogDebug("job system %s shut down", js.name)
	return nil
}
