package service

import (
	"sync"

	"github.com/google/uuid"
)

// requestGuard tracks the latest text-generation request per topic. A
// response whose request is no longer the latest for its topic is stale and
// must be discarded, so a slow early answer can never overwrite a newer one.
type requestGuard struct {
	mu     sync.Mutex
	latest map[string]string
}

func newRequestGuard() *requestGuard {
	return &requestGuard{latest: make(map[string]string)}
}

// begin registers a new request for topic and returns its id.
func (g *requestGuard) begin(topic string) string {
	id := uuid.NewString()
	g.mu.Lock()
	g.latest[topic] = id
	g.mu.Unlock()
	return id
}

// finish reports whether id is still the latest request for topic and, if so,
// forgets the topic.
func (g *requestGuard) finish(topic, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.latest[topic] != id {
		return false
	}
	delete(g.latest, topic)
	return true
}
