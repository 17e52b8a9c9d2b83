package handlers

import (
	"sync"
	"time"

	"github.com/MegaGrindStone/mpp-web-ui/internal/stream"
)

// registry keeps one widget per browser, keyed by the widget cookie.
type registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	widget      *stream.Widget
	unsubscribe func()
	lastSeen    time.Time
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*registryEntry)}
}

// get returns the widget with id and marks it as seen.
func (r *registry) get(id string, now time.Time) (*stream.Widget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = now
	return e.widget, true
}

func (r *registry) add(w *stream.Widget, unsubscribe func(), now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[w.ID()] = &registryEntry{
		widget:      w,
		unsubscribe: unsubscribe,
		lastSeen:    now,
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// evict removes the widgets not seen since before and returns them. Widgets still streaming
// an answer are kept.
func (r *registry) evict(before time.Time) []*registryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []*registryEntry
	for id, e := range r.entries {
		if e.lastSeen.After(before) || e.widget.State().Loading {
			continue
		}
		delete(r.entries, id)
		evicted = append(evicted, e)
	}
	return evicted
}

// drain removes every widget.
func (r *registry) drain() []*registryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	drained := make([]*registryEntry, 0, len(r.entries))
	for id, e := range r.entries {
		delete(r.entries, id)
		drained = append(drained, e)
	}
	return drained
}

func (e *registryEntry) close() {
	e.unsubscribe()
	e.widget.Close()
	e.widget.Wait()
}
