package systems

import (
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
)

type LoadStatus int32

const (
	LoadStatusNotStarted LoadStatus = iota
	LoadStatusLoading
	LoadStatusLoaded
)

func (s LoadStatus) String() string {
	switch s {
	case LoadStatusNotStarted:
		return "not-started"
	case LoadStatusLoading:
		return "loading"
	case LoadStatusLoaded:
		return "loaded"
	}
	return "unknown"
}

// Consumer receives every content update of the textures it is attached to.
// Consumers are deduplicated by identity, so implementations must be
// comparable (pointer receivers are the norm).
type Consumer interface {
	UpdateTexture(t *metadata.Texture)
}

// ConsumerToken identifies one attachment of a consumer to a texture.
type ConsumerToken uint64

type attachment struct {
	token    ConsumerToken
	consumer Consumer
}

// LoadState tracks one texture of one scene: status, current content and the
// consumers waiting on it. Status only moves forward.
type LoadState struct {
	mutex     sync.Mutex
	status    LoadStatus
	consumers []attachment
	publishes uint32

	// read lock-free by renderers, written under mutex
	content atomic.Pointer[metadata.Texture]
}

func newLoadState(defaultContent *metadata.Texture) *LoadState {
	ls := &LoadState{status: LoadStatusNotStarted}
	ls.content.Store(defaultContent)
	return ls
}

func (ls *LoadState) Status() LoadStatus {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()
	return ls.status
}

// Content is the latest published texture, or the placeholder.
func (ls *LoadState) Content() *metadata.Texture {
	return ls.content.Load()
}

// begin claims the load. Only the first caller gets true.
func (ls *LoadState) begin() bool {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()
	if ls.status != LoadStatusNotStarted {
		return false
	}
	ls.status = LoadStatusLoading
	return true
}

// finish marks the texture Loaded. Later attaches only get current content.
func (ls *LoadState) finish() {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()
	ls.status = LoadStatusLoaded
}

// Attach adds c to the consumer set and hands it the current content right
// away. Attaching an already attached consumer keeps its original token and
// returns false.
func (ls *LoadState) Attach(c Consumer, token func() ConsumerToken) (ConsumerToken, bool) {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	current := ls.content.Load()
	for _, a := range ls.consumers {
		if a.consumer == c {
			c.UpdateTexture(current)
			return a.token, false
		}
	}

	a := attachment{token: token(), consumer: c}
	ls.consumers = append(ls.consumers, a)
	c.UpdateTexture(current)
	return a.token, true
}

// Detach removes c. It does not affect an in-flight load.
func (ls *LoadState) Detach(c Consumer) bool {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()
	for i, a := range ls.consumers {
		if a.consumer == c {
			ls.consumers = append(ls.consumers[:i], ls.consumers[i+1:]...)
			return true
		}
	}
	return false
}

// Publish replaces the content and pushes it to every attached consumer
// before returning. Publishes are serialized, so consumers observe updates in
// publish order.
func (ls *LoadState) Publish(t *metadata.Texture) {
	if t == nil {
		return
	}
	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	ls.publishes++
	ls.content.Store(t)
	for _, a := range ls.consumers {
		a.consumer.UpdateTexture(t)
	}
}

// Tokens lists the current attachments in attach order.
func (ls *LoadState) Tokens() []ConsumerToken {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()
	tokens := make([]ConsumerToken, 0, len(ls.consumers))
	for _, a := range ls.consumers {
		tokens = append(tokens, a.token)
	}
	return tokens
}

// Publishes is the number of content updates so far, excluding the placeholder.
func (ls *LoadState) Publishes() uint32 {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()
	return ls.publishes
}
