package core_test

import (
	"testing"
	"time"

	"github.com/spaghettifunk/texstream/engine/core"

	"github.com/stretchr/testify/assert"
)

func TestLoadMetrics_Counters(t *testing.T) {
	m := core.NewLoadMetrics()
	m.RequestReceived()
	m.RequestReceived()
	m.ResolutionFailed()
	m.PipelineStarted()
	m.StageFailed(0)
	m.StageFailed(2)
	m.StageFailed(7)
	m.PipelineCancelled()

	s := m.Snapshot()
	assert.Equal(t, uint64(2), s.Requests)
	assert.Equal(t, uint64(1), s.ResolutionErrors)
	assert.Equal(t, uint64(1), s.PipelinesStarted)
	assert.Equal(t, [3]uint64{1, 0, 1}, s.StageFailures)
	assert.Equal(t, uint64(1), s.Cancellations)
}

func TestLoadMetrics_SceneLoadAverage(t *testing.T) {
	m := core.NewLoadMetrics()
	assert.Zero(t, m.Snapshot().AvgSceneLoad)

	m.SceneCompleted(10 * time.Millisecond)
	m.SceneCompleted(30 * time.Millisecond)

	s := m.Snapshot()
	assert.Equal(t, uint64(2), s.ScenesCompleted)
	assert.Equal(t, 30*time.Millisecond, s.LastSceneLoad)
	assert.Equal(t, 20*time.Millisecond, s.AvgSceneLoad)
}

func TestLoadMetrics_AverageWindow(t *testing.T) {
	m := core.NewLoadMetrics()
	for i := 0; i < core.AVG_COUNT; i++ {
		m.SceneCompleted(time.Second)
	}
	// pushes the oldest 1s sample out of the window
	m.SceneCompleted(time.Second + time.Duration(core.AVG_COUNT)*time.Millisecond)

	s := m.Snapshot()
	assert.Equal(t, time.Second+time.Millisecond, s.AvgSceneLoad)
}
