package systems

import (
	"testing"

	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(rec *drainRecorder) *SceneRegistry {
	return NewSceneRegistry(nil, func(scene core.SceneID) *CompletionBarrier {
		return newCompletionBarrier(scene, InlineDispatcher{}, core.NewClock(), false, rec.onDrained)
	})
}

func TestSceneRegistry_GetOrCreateLoadState(t *testing.T) {
	r := newTestRegistry(&drainRecorder{})
	scene := core.NewSceneID()

	a := r.GetOrCreateLoadState(scene, 0)
	assert.Same(t, a, r.GetOrCreateLoadState(scene, 0))
	b := r.GetOrCreateLoadState(scene, 1)
	assert.NotSame(t, a, b)
	assert.Same(t, a.Content(), b.Content(), "placeholder is shared")
	assert.Equal(t, metadata.TextureOriginDefault, a.Content().Origin)

	got, ok := r.LoadState(scene, 1)
	require.True(t, ok)
	assert.Same(t, b, got)
	_, ok = r.LoadState(scene, 7)
	assert.False(t, ok)
	_, ok = r.LoadState(core.NewSceneID(), 0)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestSceneRegistry_CustomDefaultContent(t *testing.T) {
	calls := 0
	r := NewSceneRegistry(func() *metadata.Texture {
		calls++
		return &metadata.Texture{Name: "placeholder"}
	}, nil)
	scene := core.NewSceneID()
	r.GetOrCreateLoadState(scene, 0)
	r.GetOrCreateLoadState(scene, 1)
	r.GetOrCreateLoadState(scene, 1)
	assert.Equal(t, 2, calls)
}

func TestSceneRegistry_BarrierIsRecreatedAfterFiring(t *testing.T) {
	rec := &drainRecorder{}
	r := newTestRegistry(rec)
	scene := core.NewSceneID()

	_, ok := r.Barrier(scene)
	assert.False(t, ok)

	first := r.Enter(scene)
	assert.Same(t, first, r.Enter(scene))
	first.Leave()
	first.Leave()
	require.Equal(t, 1, rec.count())

	second := r.Enter(scene)
	assert.NotSame(t, first, second)
	second.Leave()
	assert.Equal(t, 2, rec.count())

	current, ok := r.Barrier(scene)
	require.True(t, ok)
	assert.Same(t, second, current)
}

func TestSceneRegistry_Clear(t *testing.T) {
	rec := &drainRecorder{}
	r := newTestRegistry(rec)
	scene := core.NewSceneID()
	other := core.NewSceneID()

	r.GetOrCreateLoadState(scene, 0)
	r.GetOrCreateLoadState(other, 0)
	b := r.Enter(scene)

	r.Clear(scene)
	assert.False(t, r.Has(scene))
	assert.True(t, r.Has(other))

	b.Leave()
	assert.Zero(t, rec.count(), "cleared scenes never notify")

	assert.NotPanics(t, func() { r.Clear(core.NewSceneID()) })
}
