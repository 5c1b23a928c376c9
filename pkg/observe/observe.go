// Package observe provides keyed change notification with explicit batch
// scopes. Notifications raised inside a batch are held back and delivered
// once, as one Batch, when the outermost scope closes.
package observe

import "sync"

// Wildcard subscribes to every key.
const Wildcard = ""

// Event is one change to the value under Key.
type Event struct {
	Key string
	Old any
	New any
}

// Batch is the set of events delivered to a listener in one call.
type Batch []Event

// Keys returns the distinct keys of the batch in first-seen order.
func (b Batch) Keys() []string {
	seen := make(map[string]bool, len(b))
	var keys []string
	for _, e := range b {
		if !seen[e.Key] {
			seen[e.Key] = true
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// Listener receives delivered batches.
type Listener func(Batch)

// Subscription identifies a registered listener.
type Subscription struct {
	id  uint64
	key string
}

// Key returns the key the subscription listens to.
func (s Subscription) Key() string { return s.key }

type subscriber struct {
	id       uint64
	key      string
	listener Listener
}

// Hub is an observer list with reentrancy-safe batching. Listeners are
// called without the hub's lock held, so they may notify, subscribe or
// unsubscribe.
type Hub struct {
	mu      sync.Mutex
	nextID  uint64
	subs    []*subscriber
	depth   int
	pending Batch
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers l for changes to key. Wildcard listeners receive
// every batch, including empty ones closed by End.
func (h *Hub) Subscribe(key string, l Listener) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.subs = append(h.subs, &subscriber{id: h.nextID, key: key, listener: l})
	return Subscription{id: h.nextID, key: key}
}

// Unsubscribe removes the listener behind s. It reports whether the
// subscription was still registered.
func (h *Hub) Unsubscribe(s Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, sub := range h.subs {
		if sub.id == s.id {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Subscribers returns the number of listeners registered for key.
func (h *Hub) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, sub := range h.subs {
		if sub.key == key {
			n++
		}
	}
	return n
}

// Notify raises e. Inside a batch the event is queued; otherwise it is
// delivered immediately.
func (h *Hub) Notify(e Event) {
	h.mu.Lock()
	if h.depth > 0 {
		h.pending = append(h.pending, e)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	h.deliver(Batch{e}, false)
}

// Begin opens a batch scope. Scopes nest.
func (h *Hub) Begin() {
	h.mu.Lock()
	h.depth++
	h.mu.Unlock()
}

// End closes a batch scope. Closing the outermost scope delivers the
// queued events as one batch. End without a matching Begin does nothing.
func (h *Hub) End() {
	h.mu.Lock()
	if h.depth == 0 {
		h.mu.Unlock()
		return
	}
	h.depth--
	if h.depth > 0 {
		h.mu.Unlock()
		return
	}
	batch := h.pending
	h.pending = nil
	h.mu.Unlock()
	h.deliver(batch, true)
}

// Batch runs fn inside a batch scope.
func (h *Hub) Batch(fn func()) {
	h.Begin()
	defer h.End()
	fn()
}

// InBatch reports whether a batch scope is open.
func (h *Hub) InBatch() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.depth > 0
}

// deliver calls every listener registered at the time of the call. A
// listener unsubscribed by an earlier listener in the same round is
// skipped. closing marks delivery at the end of a batch scope.
func (h *Hub) deliver(batch Batch, closing bool) {
	h.mu.Lock()
	subs := make([]*subscriber, len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, sub := range subs {
		if !h.registered(sub.id) {
			continue
		}
		if sub.key == Wildcard {
			if len(batch) > 0 || closing {
				sub.listener(batch)
			}
			continue
		}
		var mine Batch
		for _, e := range batch {
			if e.Key == sub.key {
				mine = append(mine, e)
			}
		}
		if len(mine) > 0 {
			sub.listener(mine)
		}
	}
}

func (h *Hub) registered(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.id == id {
			return true
		}
	}
	return false
}

// Group owns a set of subscriptions on one hub and releases them together.
type Group struct {
	hub  *Hub
	subs []Subscription
}

// NewGroup returns an empty group bound to h.
func NewGroup(h *Hub) *Group {
	return &Group{hub: h}
}

// On subscribes l to key and records the subscription in the group.
func (g *Group) On(key string, l Listener) Subscription {
	s := g.hub.Subscribe(key, l)
	g.subs = append(g.subs, s)
	return s
}

// Release unsubscribes every listener the group installed. Idempotent.
func (g *Group) Release() {
	for _, s := range g.subs {
		g.hub.Unsubscribe(s)
	}
	g.subs = nil
}

// Len returns the number of live subscriptions held by the group.
func (g *Group) Len() int { return len(g.subs) }
