// Package live re-runs store queries after every commit that can change their result
// and streams the fresh results to subscribers.
package live

import (
	"sync"

	"ildang/internal/core"
	"ildang/internal/storage"
)

// Deps declares what a subscription reads. A logs dependency with a Start or End
// only fires for commits that touch a log dated inside the window.
type Deps struct {
	Collections []storage.Collection
	Start       core.Date
	End         core.Date
}

// LogsIn declares a dependency on logs dated within [start, end].
func LogsIn(start, end core.Date) Deps {
	return Deps{Collections: []storage.Collection{storage.CollectionLogs}, Start: start, End: end}
}

// On declares a dependency on whole collections.
func On(collections ...storage.Collection) Deps {
	return Deps{Collections: collections}
}

func (d Deps) matches(cs storage.ChangeSet) bool {
	for _, c := range d.Collections {
		switch c {
		case storage.CollectionLogs:
			if !cs.Logs {
				continue
			}
			if d.Start.IsZero() && d.End.IsZero() {
				return true
			}
			if cs.TouchesDates(d.Start, d.End) {
				return true
			}
		case storage.CollectionSettings:
			if cs.Settings {
				return true
			}
		}
	}
	return false
}

type subscriber interface {
	deps() Deps
	markDirty()
	stop()
}

// Hub fans committed change sets out to the subscriptions that depend on them.
type Hub struct {
	store *storage.Store

	mu     sync.Mutex
	subs   map[storage.Collection]map[subscriber]struct{}
	cancel func()
	closed bool
}

// NewHub starts observing store.
func NewHub(store *storage.Store) *Hub {
	h := &Hub{
		store: store,
		subs:  make(map[storage.Collection]map[subscriber]struct{}),
	}
	h.cancel = store.Observe(h.onCommit)
	return h
}

// Store returns the observed store.
func (h *Hub) Store() *storage.Store { return h.store }

// onCommit runs under the store's writer lock; it only flags subscribers.
func (h *Hub) onCommit(cs storage.ChangeSet) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for coll, set := range h.subs {
		if !cs.Touches(coll) {
			continue
		}
		for s := range set {
			if s.deps().matches(cs) {
				s.markDirty()
			}
		}
	}
}

func (h *Hub) register(s subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	for _, c := range s.deps().Collections {
		set, ok := h.subs[c]
		if !ok {
			set = make(map[subscriber]struct{})
			h.subs[c] = set
		}
		set[s] = struct{}{}
	}
	return true
}

func (h *Hub) unregister(s subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range s.deps().Collections {
		if set, ok := h.subs[c]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, c)
			}
		}
	}
}

// Subscribers returns the number of live subscriptions on collection c.
func (h *Hub) Subscribers(c storage.Collection) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[c])
}

// Close stops observing the store and cancels every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	var all []subscriber
	seen := make(map[subscriber]bool)
	for _, set := range h.subs {
		for s := range set {
			if !seen[s] {
				seen[s] = true
				all = append(all, s)
			}
		}
	}
	h.mu.Unlock()

	h.cancel()
	for _, s := range all {
		s.stop()
	}
}
