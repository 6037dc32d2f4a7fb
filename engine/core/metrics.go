package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/texstream/engine/containers"
)

// Number of scene completions kept for the rolling load time average.
const AVG_COUNT int = 30

// LoadMetrics counts coordinator activity. Safe for concurrent use.
type LoadMetrics struct {
	requests          atomic.Uint64
	resolutionErrors  atomic.Uint64
	pipelinesStarted  atomic.Uint64
	pipelinesFinished atomic.Uint64
	stageFailures     [3]atomic.Uint64
	cancellations     atomic.Uint64
	contentPublished  atomic.Uint64
	scenesCompleted   atomic.Uint64
	durationMutex     sync.Mutex
	durations         *containers.RingQueue[time.Duration]
	lastSceneLoadTime time.Duration
}

// MetricsSnapshot is a point-in-time copy of LoadMetrics.
type MetricsSnapshot struct {
	Requests          uint64
	ResolutionErrors  uint64
	PipelinesStarted  uint64
	PipelinesFinished uint64
	// Indexed by pipeline stage: first mip, all mips, raw image.
	StageFailures    [3]uint64
	Cancellations    uint64
	ContentPublished uint64
	ScenesCompleted  uint64
	LastSceneLoad    time.Duration
	AvgSceneLoad     time.Duration
}

func NewLoadMetrics() *LoadMetrics {
	return &LoadMetrics{
		durations: containers.NewRingQueue[time.Duration](AVG_COUNT),
	}
}

func (m *LoadMetrics) RequestReceived()   { m.requests.Add(1) }
func (m *LoadMetrics) ResolutionFailed()  { m.resolutionErrors.Add(1) }
func (m *LoadMetrics) PipelineStarted()   { m.pipelinesStarted.Add(1) }
func (m *LoadMetrics) PipelineFinished()  { m.pipelinesFinished.Add(1) }
func (m *LoadMetrics) PipelineCancelled() { m.cancellations.Add(1) }
func (m *LoadMetrics) ContentPublished()  { m.contentPublished.Add(1) }

// StageFailed records a failure of the given stage (0..2). Out of range is ignored.
func (m *LoadMetrics) StageFailed(stage int) {
	if stage < 0 || stage >= len(m.stageFailures) {
		return
	}
	m.stageFailures[stage].Add(1)
}

// SceneCompleted records the elapsed load time of a drained scene barrier.
func (m *LoadMetrics) SceneCompleted(elapsed time.Duration) {
	m.scenesCompleted.Add(1)

	m.durationMutex.Lock()
	defer m.durationMutex.Unlock()
	m.durations.Push(elapsed)
	m.lastSceneLoadTime = elapsed
}

func (m *LoadMetrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Requests:          m.requests.Load(),
		ResolutionErrors:  m.resolutionErrors.Load(),
		PipelinesStarted:  m.pipelinesStarted.Load(),
		PipelinesFinished: m.pipelinesFinished.Load(),
		Cancellations:     m.cancellations.Load(),
		ContentPublished:  m.contentPublished.Load(),
		ScenesCompleted:   m.scenesCompleted.Load(),
	}
	for i := range m.stageFailures {
		s.StageFailures[i] = m.stageFailures[i].Load()
	}

	m.durationMutex.Lock()
	defer m.durationMutex.Unlock()
	s.LastSceneLoad = m.lastSceneLoadTime
	if n := m.durations.Len(); n > 0 {
		var total time.Duration
		m.durations.Each(func(d time.Duration) { total += d })
		s.AvgSceneLoad = total / time.Duration(n)
	}
	return s
}
